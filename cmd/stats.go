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
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ademuri/watch-log-tools/internal/logging"
	"github.com/ademuri/watch-log-tools/internal/ratings"
	"github.com/ademuri/watch-log-tools/internal/store"
)

type StatsConfig struct {
	Sets      []string
	By        string
	Limit     int
	Rater     string
	Format    string
	Start     time.Time
	End       time.Time
	ListLimit int
}

type statsSection struct {
	Set       ratings.Set       `json:"set" yaml:"set"`
	Dimension ratings.Dimension `json:"dimension" yaml:"dimension"`
	Buckets   []ratings.Bucket  `json:"buckets" yaml:"buckets"`
}

type statsReport struct {
	From      string         `json:"from,omitempty" yaml:"from,omitempty"`
	To        string         `json:"to,omitempty" yaml:"to,omitempty"`
	Rater     string         `json:"rater,omitempty" yaml:"rater,omitempty"`
	Processed int            `json:"processed" yaml:"processed"`
	Skipped   int            `json:"skipped" yaml:"skipped"`
	Sections  []statsSection `json:"sections" yaml:"sections"`
}

var statsCmd = &cobra.Command{
	Use:   "stats [date] [date]",
	Short: "Ranks movies, shows and episodes by a rating dimension",
	Long: `Aggregates every logged viewing and prints ranked tables.
  Optional date arguments restrict the viewings used (e.g. '2023', '2023-10' or '2023-01 2023-06', or '30d').`,
	Args: cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		config := StatsConfig{
			Sets:   viper.GetStringSlice("stats.set"),
			By:     viper.GetString("stats.by"),
			Limit:  viper.GetInt("stats.limit"),
			Rater:  viper.GetString("stats.rater"),
			Format: viper.GetString("stats.format"),
		}
		if len(args) > 0 {
			var err error
			config.Start, config.End, err = parseDateRangeFromArgs(args)
			if err != nil {
				fmt.Printf("Error parsing dates: %v\n", err)
				os.Exit(1)
			}
		}

		ctx := context.Background()
		db, err := openBackend(ctx)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer db.Close()

		err = printStats(ctx, db, config, os.Stdout)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringSlice("set", []string{"all"}, "Bucket sets to rank: movies, shows, episodes or all")
	viper.BindPFlag("stats.set", statsCmd.Flags().Lookup("set"))

	statsCmd.Flags().String("by", string(ratings.Overall), "Dimension to rank by, or all")
	viper.BindPFlag("stats.by", statsCmd.Flags().Lookup("by"))

	statsCmd.Flags().IntP("limit", "n", ratings.DefaultLimit, "Rows per table; negative for every row")
	viper.BindPFlag("stats.limit", statsCmd.Flags().Lookup("limit"))

	statsCmd.Flags().String("rater", "", "Only count viewings by this rater")
	viper.BindPFlag("stats.rater", statsCmd.Flags().Lookup("rater"))

	statsCmd.Flags().String("format", "table", "Output format: table, yaml or json")
	viper.BindPFlag("stats.format", statsCmd.Flags().Lookup("format"))
}

func parseSets(names []string) ([]ratings.Set, error) {
	if len(names) == 0 {
		return ratings.Sets(), nil
	}
	var sets []ratings.Set
	seen := make(map[ratings.Set]bool)
	for _, name := range names {
		if strings.EqualFold(strings.TrimSpace(name), "all") {
			return ratings.Sets(), nil
		}
		s, err := ratings.ParseSet(name)
		if err != nil {
			return nil, err
		}
		if !seen[s] {
			seen[s] = true
			sets = append(sets, s)
		}
	}
	return sets, nil
}

func parseDimensions(by string) ([]ratings.Dimension, error) {
	if by == "" {
		return []ratings.Dimension{ratings.Overall}, nil
	}
	if strings.EqualFold(strings.TrimSpace(by), "all") {
		return ratings.Dimensions(), nil
	}
	d, err := ratings.ParseDimension(by)
	if err != nil {
		return nil, err
	}
	return []ratings.Dimension{d}, nil
}

// loadViewings reads the viewings a stats pass runs over.
func loadViewings(ctx context.Context, db store.Backend, config StatsConfig) ([]ratings.Viewing, error) {
	var viewings []ratings.Viewing
	var err error
	if config.Rater != "" {
		viewings, err = db.ListByRater(ctx, config.Rater)
	} else {
		viewings, err = db.ListViewings(ctx, config.ListLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("loading viewings: %w", err)
	}
	return filterByDate(viewings, config.Start, config.End), nil
}

// buildStatsReport aggregates viewings and ranks the requested sections.
func buildStatsReport(viewings []ratings.Viewing, catalog ratings.Catalog, config StatsConfig) (statsReport, error) {
	sets, err := parseSets(config.Sets)
	if err != nil {
		return statsReport{}, err
	}
	dims, err := parseDimensions(config.By)
	if err != nil {
		return statsReport{}, err
	}

	res := ratings.Aggregate(viewings, catalog)
	for _, d := range res.Defects {
		logging.Warn().Err(d.Err).Str("viewing", d.ViewingID).Int("index", d.Index).Msg("skipping malformed viewing")
	}

	report := statsReport{
		Rater:     config.Rater,
		Processed: res.Processed,
		Skipped:   res.Skipped,
	}
	if !config.Start.IsZero() {
		report.From = config.Start.Format("2006-01-02")
		report.To = config.End.Format("2006-01-02")
	}

	for _, s := range sets {
		for _, d := range dims {
			buckets, err := res.Table(s).Rank(d, config.Limit)
			if err != nil {
				return statsReport{}, err
			}
			report.Sections = append(report.Sections, statsSection{Set: s, Dimension: d, Buckets: buckets})
		}
	}
	return report, nil
}

func printStats(ctx context.Context, db store.Backend, config StatsConfig, out io.Writer) error {
	viewings, err := loadViewings(ctx, db, config)
	if err != nil {
		return err
	}
	catalog, err := db.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	report, err := buildStatsReport(viewings, catalog, config)
	if err != nil {
		return err
	}
	return writeStatsReport(report, config.Format, out)
}

func writeStatsReport(report statsReport, format string, out io.Writer) error {
	switch strings.ToLower(format) {
	case "", "table":
		for _, sec := range report.Sections {
			fmt.Fprintln(out, rankingAnalysis(sec))
		}
		fmt.Fprintln(out, countsLine(report))
		return nil

	case "yaml":
		return writeYAML(out, report)

	case "json":
		return writeJSON(out, report)
	}
	return fmt.Errorf("unknown format %q", format)
}

func writeYAML(out io.Writer, v interface{}) error {
	encoder := yaml.NewEncoder(out)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return encoder.Close()
}

func writeJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	_, err = fmt.Fprintf(out, "%s\n", data)
	return err
}
