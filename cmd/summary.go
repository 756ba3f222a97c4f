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

	"github.com/ademuri/watch-log-tools/internal/ratings"
	"github.com/ademuri/watch-log-tools/internal/store"
)

type targetSummary struct {
	Target   ratings.Bucket   `json:"target" yaml:"target"`
	Episodes []ratings.Bucket `json:"episodes,omitempty" yaml:"episodes,omitempty"`
	Skipped  int              `json:"skipped" yaml:"skipped"`
}

var summaryCmd = &cobra.Command{
	Use:   "summary <target>",
	Short: "Shows the averaged ratings of one movie or show",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		db, err := openBackend(ctx)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer db.Close()

		err = printSummary(ctx, db, args[0], viper.GetString("summary.format"), os.Stdout)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().String("format", "table", "Output format: table, yaml or json")
	viper.BindPFlag("summary.format", summaryCmd.Flags().Lookup("format"))
}

func summarizeTarget(ctx context.Context, db store.Backend, targetID string) (targetSummary, error) {
	viewings, err := db.ListByTarget(ctx, targetID)
	if err != nil {
		return targetSummary{}, err
	}

	catalog := ratings.MapCatalog{}
	t, ok, err := db.GetTarget(ctx, targetID)
	if err != nil {
		return targetSummary{}, err
	}
	if ok {
		catalog[targetID] = t.Metadata()
	}

	b, res, found := ratings.Summarize(targetID, viewings, catalog)
	if !found {
		return targetSummary{}, fmt.Errorf("no valid viewings of %q", targetID)
	}

	summary := targetSummary{Target: b, Skipped: res.Skipped}
	for _, e := range res.Episodes.Buckets() {
		if e.Key.TargetID == targetID {
			summary.Episodes = append(summary.Episodes, e)
		}
	}
	return summary, nil
}

func printSummary(ctx context.Context, db store.Backend, targetID, format string, out io.Writer) error {
	summary, err := summarizeTarget(ctx, db, targetID)
	if err != nil {
		return err
	}

	switch strings.ToLower(format) {
	case "", "table":
		fmt.Fprintln(out, vectorAnalysis(summary.Target))
		if len(summary.Episodes) > 0 {
			fmt.Fprintln(out, rankingAnalysis(statsSection{
				Set:       ratings.SetEpisodes,
				Dimension: ratings.Overall,
				Buckets:   summary.Episodes,
			}))
		}
		if summary.Skipped > 0 {
			fmt.Fprintf(out, "%d malformed viewings skipped\n", summary.Skipped)
		}
		return nil
	case "yaml":
		return writeYAML(out, summary)
	case "json":
		return writeJSON(out, summary)
	}
	return fmt.Errorf("unknown format %q", format)
}
