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
	"html"
	"os"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/watch-log-tools/internal/store"
)

type SendEmailConfig struct {
	User           string
	From           string
	To             string
	ReportName     string
	Sets           []string
	By             string
	Limit          int
	DryRun         bool
	SendgridAPIKey string
	Start          time.Time
	End            time.Time
}

var emailCmd = &cobra.Command{
	Use:   "email <address> [date] [date]",
	Short: "Sends an email report",
	Long: `Emails ranked tables to the given address.
  Optional date arguments can be provided at the end (e.g. '2023-01' or '2023-01 2023-06').
  If no dates are provided, defaults to the previous month.`,
	Args: cobra.RangeArgs(1, 3),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetString("from") == "" {
			return fmt.Errorf("required flag(s) \"from\" not set")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		var start, end time.Time
		var err error
		if len(args) > 1 {
			start, end, err = parseDateRangeFromArgs(args[1:])
			if err != nil {
				fmt.Printf("Error parsing dates: %v\n", err)
				os.Exit(1)
			}
		} else {
			start, end = previousMonth(time.Now())
		}

		config := SendEmailConfig{
			User:           viper.GetString("user"),
			From:           viper.GetString("from"),
			To:             args[0],
			Sets:           viper.GetStringSlice("email.set"),
			By:             viper.GetString("email.by"),
			Limit:          viper.GetInt("email.limit"),
			DryRun:         viper.GetBool("dryRun"),
			SendgridAPIKey: viper.GetString("sendgrid_api_key"),
			Start:          start,
			End:            end,
		}

		ctx := context.Background()
		db, err := openBackend(ctx)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer db.Close()

		err = sendEmail(ctx, db, config)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(emailCmd)

	var dryRun bool
	emailCmd.Flags().BoolVarP(&dryRun, "dry_run", "n", false, "When true, just print instead of emailing")
	viper.BindPFlag("dryRun", emailCmd.Flags().Lookup("dry_run"))

	emailCmd.Flags().StringSlice("set", []string{"all"}, "Bucket sets to include: movies, shows, episodes or all")
	viper.BindPFlag("email.set", emailCmd.Flags().Lookup("set"))

	emailCmd.Flags().String("by", "overall", "Dimension to rank by, or all")
	viper.BindPFlag("email.by", emailCmd.Flags().Lookup("by"))

	emailCmd.Flags().Int("limit", 20, "Rows per table")
	viper.BindPFlag("email.limit", emailCmd.Flags().Lookup("limit"))
}

// previousMonth returns the calendar month before now.
func previousMonth(now time.Time) (start, end time.Time) {
	start = time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, time.UTC)
	end = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return
}

func sendEmail(ctx context.Context, db store.Backend, config SendEmailConfig) error {
	statsConfig := StatsConfig{
		Sets:  config.Sets,
		By:    config.By,
		Limit: config.Limit,
		Start: config.Start,
		End:   config.End,
	}
	viewings, err := loadViewings(ctx, db, statsConfig)
	if err != nil {
		return err
	}
	catalog, err := db.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	report, err := buildStatsReport(viewings, catalog, statsConfig)
	if err != nil {
		return err
	}

	subject, out := generateEmailContent(config, report)

	if config.DryRun {
		fmt.Printf("Would have sent email: \nsubject: %s\n%s\n", subject, out)
		return nil
	}

	if config.SendgridAPIKey == "" {
		return fmt.Errorf("sendgrid_api_key must be set in order to send emails")
	}

	from := mail.NewEmail("watch-log-tools", config.From)
	to := mail.NewEmail(config.To, config.To)
	message := mail.NewSingleEmail(from, subject, to, plainText(report), out)
	client := sendgrid.NewSendClient(config.SendgridAPIKey)
	resp, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("sendEmail: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendEmail: sendgrid returned %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func generateEmailContent(config SendEmailConfig, report statsReport) (subject string, body string) {
	out := new(strings.Builder)
	out.WriteString(`
<html>
  <head>
<style>
td {
  padding: 0.1em 0.2em;
}
table, th, td {
  border: 1px solid black;
  border-collapse: collapse;
}
</style>
  </head>
  <body>
`)
	for _, sec := range report.Sections {
		out.WriteString(rankingAnalysis(sec).HTML())
	}
	fmt.Fprintf(out, "<div>%s</div>\n", html.EscapeString(countsLine(report)))
	out.WriteString("  </body>\n</html>\n")

	subjectSuffix := ""
	if len(config.ReportName) > 0 {
		subjectSuffix = ": " + config.ReportName
	}
	// Subject line format: Viewing report <Start> to <End> <Suffix>
	subject = fmt.Sprintf("Viewing report %s to %s%s", config.Start.Format("2006-01-02"), config.End.Format("2006-01-02"), subjectSuffix)

	return subject, out.String()
}

func plainText(report statsReport) string {
	out := new(strings.Builder)
	for _, sec := range report.Sections {
		fmt.Fprintln(out, rankingAnalysis(sec))
	}
	fmt.Fprintln(out, countsLine(report))
	return out.String()
}

func countsLine(report statsReport) string {
	return fmt.Sprintf("%d viewings counted, %d skipped as malformed", report.Processed, report.Skipped)
}
