/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/watch-log-tools/internal/store"
)

// addReportCmd represents the addReport command
var addReportCmd = &cobra.Command{
	Use:     "add-report <sets...>",
	Short:   "Adds an email report, to be sent periodically with `send-reports`",
	Long:    `<sets> is one or more of: movies, shows, episodes, all.`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: requireUser,
	Run: func(cmd *cobra.Command, args []string) {
		r := store.Report{
			User:      viper.GetString("user"),
			Name:      viper.GetString("name"),
			Email:     viper.GetString("dest"),
			RunDay:    viper.GetInt("run_day"),
			Dimension: viper.GetString("report.by"),
			Limit:     viper.GetInt("report.limit"),
		}
		err := addReport(context.Background(), viper.GetString("database"), r, args)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(addReportCmd)

	var email string
	addReportCmd.Flags().StringVar(&email, "dest", "", "Destination email address")
	addReportCmd.MarkFlagRequired("dest")
	err := viper.BindPFlag("dest", addReportCmd.Flags().Lookup("dest"))
	if err != nil {
		fmt.Println(err)
	}

	var reportName string
	addReportCmd.Flags().StringVar(&reportName, "name", "", "Report name - included in the email title, and used for periodically sending")
	addReportCmd.MarkFlagRequired("name")
	viper.BindPFlag("name", addReportCmd.Flags().Lookup("name"))

	var runDay int
	addReportCmd.Flags().IntVar(&runDay, "run_day", 0, "Which day of the month to run this report on")
	addReportCmd.MarkFlagRequired("run_day")
	viper.BindPFlag("run_day", addReportCmd.Flags().Lookup("run_day"))

	addReportCmd.Flags().String("by", "overall", "Dimension to rank by, or all")
	viper.BindPFlag("report.by", addReportCmd.Flags().Lookup("by"))

	addReportCmd.Flags().Int("limit", 20, "Rows per table")
	viper.BindPFlag("report.limit", addReportCmd.Flags().Lookup("limit"))
}

func addReport(ctx context.Context, dbPath string, r store.Report, setNames []string) error {
	if r.RunDay < 1 || r.RunDay > 31 {
		return fmt.Errorf("run_day out of range: %d", r.RunDay)
	}
	if len(r.Email) == 0 {
		return fmt.Errorf("Must specify destination email")
	}

	sets, err := parseSets(setNames)
	if err != nil {
		return fmt.Errorf("Invalid set: %w", err)
	}
	r.Sets = sets
	if _, err := parseDimensions(r.Dimension); err != nil {
		return err
	}

	db, err := store.New(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.CreateRater(ctx, store.Rater{ID: r.User}); err != nil {
		return err
	}
	return db.AddReport(ctx, r)
}
