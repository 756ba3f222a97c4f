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
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/watch-log-tools/internal/store"
)

// listReportsCmd represents the listReports command
var listReportsCmd = &cobra.Command{
	Use:   "list-reports",
	Short: "Lists all reports configured for the user",
	Long:  ``,
	Run: func(cmd *cobra.Command, args []string) {
		err := listReports(context.Background(), viper.GetString("database"), viper.GetString("user"), os.Stdout)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(listReportsCmd)
}

func listReports(ctx context.Context, dbPath string, user string, out io.Writer) error {
	db, err := store.New(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	reports, err := db.ListReports(ctx, user)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(out)
	table.Header([]string{"User", "Name", "Email", "Run Day", "Sets", "By", "Limit", "Last Sent"})
	for _, r := range reports {
		sent := ""
		if !r.Sent.IsZero() {
			sent = r.Sent.Format("2006-01-02")
		}
		row := []string{r.User, r.Name, r.Email, strconv.Itoa(r.RunDay), joinSetNames(r.Sets), r.Dimension, strconv.Itoa(r.Limit), sent}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
