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
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/watch-log-tools/internal/logging"
	"github.com/ademuri/watch-log-tools/internal/ratings"
	"github.com/ademuri/watch-log-tools/internal/store"
)

type SendReportsConfig struct {
	DbPath         string
	From           string
	DryRun         bool
	SendgridAPIKey string
}

var sendReportsCmd = &cobra.Command{
	Use:   "send-reports",
	Short: "Sends the email reports that are due this month.",
	Long:  ``,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetString("from") == "" {
			return fmt.Errorf("required flag(s) \"from\" not set")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		config := SendReportsConfig{
			DbPath:         viper.GetString("database"),
			From:           viper.GetString("from"),
			DryRun:         viper.GetBool("dry_run"),
			SendgridAPIKey: viper.GetString("sendgrid_api_key"),
		}

		ctx := context.Background()
		viewings, err := openBackend(ctx)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer viewings.Close()

		err = sendReports(ctx, viewings, config, time.Now())
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendReportsCmd)

	var dryRun bool
	sendReportsCmd.Flags().BoolVarP(&dryRun, "dry_run", "n", false, "When true, just print instead of emailing")
	viper.BindPFlag("dry_run", sendReportsCmd.Flags().Lookup("dry_run"))
}

// reportDue reports whether r should be sent at now: once per month, on or
// after its run day, and not again for a month it already covered.
func reportDue(r store.Report, now time.Time) bool {
	toSendThisMonth := time.Date(now.Year(), now.Month(), r.RunDay, 0, 0, 0, 0, now.Location())
	toSendLastMonth := time.Date(now.Year(), now.Month()-1, r.RunDay, 0, 0, 0, 0, now.Location())
	if r.Sent.After(toSendThisMonth) {
		fmt.Printf("Report (%q, %q) was already sent this month on %s, not sending.\n", r.User, r.Name, r.Sent.Format("2006-01-02"))
		return false
	}
	if now.Before(toSendThisMonth) && r.Sent.After(toSendLastMonth) {
		fmt.Printf("Report (%q, %q) was already sent for last month on %s, not sending.\n", r.User, r.Name, r.Sent.Format("2006-01-02"))
		return false
	}
	return true
}

// sendReports mails every due report. Report schedules always live in the
// SQLite database; viewings come from the configured backend.
func sendReports(ctx context.Context, viewings store.Backend, config SendReportsConfig, now time.Time) error {
	db, err := store.New(config.DbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	reports, err := db.ListReports(ctx, "")
	if err != nil {
		return fmt.Errorf("Querying reports: %w", err)
	}

	start, end := previousMonth(now)
	errOccurred := false
	for _, r := range reports {
		if !reportDue(r, now) {
			continue
		}

		emailConfig := SendEmailConfig{
			User:           r.User,
			From:           config.From,
			To:             r.Email,
			ReportName:     r.Name,
			Sets:           setNames(r.Sets),
			By:             r.Dimension,
			Limit:          r.Limit,
			DryRun:         config.DryRun,
			SendgridAPIKey: config.SendgridAPIKey,
			Start:          start,
			End:            end,
		}
		fmt.Printf("Sending report (%q, %q)\n", r.User, r.Name)
		if err := sendEmail(ctx, viewings, emailConfig); err != nil {
			errOccurred = true
			logging.Error().Err(err).Str("report", r.Name).Str("user", r.User).Msg("sending report")
			continue
		}
		if !config.DryRun {
			if err := db.MarkReportSent(ctx, r, now); err != nil {
				return fmt.Errorf("Recording last run: %w", err)
			}
		}
	}

	if errOccurred {
		return fmt.Errorf("Error occurred while sending reports")
	}
	return nil
}

func setNames(sets []ratings.Set) []string {
	out := make([]string, len(sets))
	for i, s := range sets {
		out[i] = string(s)
	}
	return out
}

func joinSetNames(sets []ratings.Set) string {
	return strings.Join(setNames(sets), ",")
}
