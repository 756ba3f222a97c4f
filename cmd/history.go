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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/watch-log-tools/internal/logging"
	"github.com/ademuri/watch-log-tools/internal/ratings"
	"github.com/ademuri/watch-log-tools/internal/store"
)

type HistoryConfig struct {
	Target string
	Rater  string
	Limit  int
	Format string
}

// historyRow is one viewing as listed to the user.
type historyRow struct {
	ID              string                        `json:"id" yaml:"id"`
	WatchedOn       string                        `json:"watchedOn,omitempty" yaml:"watchedOn,omitempty"`
	Rater           string                        `json:"rater" yaml:"rater"`
	Target          string                        `json:"target" yaml:"target"`
	Title           string                        `json:"title" yaml:"title"`
	Episode         string                        `json:"episode,omitempty" yaml:"episode,omitempty"`
	Ratings         map[ratings.Dimension]float64 `json:"ratings" yaml:"ratings"`
	WouldWatchAgain bool                          `json:"wouldWatchAgain" yaml:"wouldWatchAgain"`
	WouldRecommend  bool                          `json:"wouldRecommend" yaml:"wouldRecommend"`
	Notes           string                        `json:"notes,omitempty" yaml:"notes,omitempty"`
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Lists individual viewings of a target or by a rater",
	Long: `Lists viewings newest first with their date, rater, ratings, flags and notes.
  --target and --rater may be combined; with neither, the most recent viewings are listed.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		config := HistoryConfig{
			Target: viper.GetString("history.target"),
			Rater:  viper.GetString("history.rater"),
			Limit:  viper.GetInt("history.limit"),
			Format: viper.GetString("history.format"),
		}

		ctx := context.Background()
		db, err := openBackend(ctx)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer db.Close()

		if err := printHistory(ctx, db, config, os.Stdout); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().String("target", "", "Only list viewings of this target")
	viper.BindPFlag("history.target", historyCmd.Flags().Lookup("target"))

	historyCmd.Flags().String("rater", "", "Only list viewings by this rater")
	viper.BindPFlag("history.rater", historyCmd.Flags().Lookup("rater"))

	historyCmd.Flags().IntP("limit", "n", 50, "Most viewings to list; negative for all")
	viper.BindPFlag("history.limit", historyCmd.Flags().Lookup("limit"))

	historyCmd.Flags().String("format", "table", "Output format: table, yaml or json")
	viper.BindPFlag("history.format", historyCmd.Flags().Lookup("format"))
}

func loadHistory(ctx context.Context, db store.Backend, config HistoryConfig) ([]historyRow, error) {
	var viewings []ratings.Viewing
	var err error
	switch {
	case config.Target != "":
		viewings, err = db.ListByTarget(ctx, config.Target)
	case config.Rater != "":
		viewings, err = db.ListByRater(ctx, config.Rater)
	default:
		viewings, err = db.ListViewings(ctx, config.Limit)
	}
	if err != nil {
		return nil, fmt.Errorf("loading viewings: %w", err)
	}

	catalog, err := db.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	rows := make([]historyRow, 0, len(viewings))
	for _, v := range viewings {
		if config.Rater != "" && v.RaterID != config.Rater {
			continue
		}
		if v.LoadErr != nil {
			logging.Warn().Err(v.LoadErr).Str("viewing", v.ID).Msg("not listing unreadable viewing")
			continue
		}
		if config.Limit > 0 && len(rows) == config.Limit {
			break
		}
		rows = append(rows, newHistoryRow(v, catalog))
	}
	return rows, nil
}

func newHistoryRow(v ratings.Viewing, catalog ratings.Catalog) historyRow {
	row := historyRow{
		ID:              v.ID,
		WatchedOn:       v.WatchedOn.String(),
		Rater:           v.RaterID,
		Target:          v.TargetID,
		Title:           v.TargetID,
		Ratings:         v.Ratings,
		WouldWatchAgain: v.Flags.WouldWatchAgain,
		WouldRecommend:  v.Flags.WouldRecommend,
		Notes:           v.Notes,
	}
	if meta, ok := catalog.Lookup(v.TargetID); ok && meta.Title != "" {
		row.Title = meta.Title
	}
	if v.HasEpisode() {
		row.Episode = fmt.Sprintf("S%dE%d", *v.Season, *v.Episode)
		if v.EpisodeLabel != "" {
			row.Episode += " - " + v.EpisodeLabel
		}
	}
	if row.Ratings == nil {
		row.Ratings = map[ratings.Dimension]float64{}
	}
	return row
}

func printHistory(ctx context.Context, db store.Backend, config HistoryConfig, out io.Writer) error {
	rows, err := loadHistory(ctx, db, config)
	if err != nil {
		return err
	}

	switch strings.ToLower(config.Format) {
	case "", "table":
		fmt.Fprintln(out, historyAnalysis(config, rows))
		return nil
	case "yaml":
		return writeYAML(out, rows)
	case "json":
		return writeJSON(out, rows)
	}
	return fmt.Errorf("unknown format %q", config.Format)
}
