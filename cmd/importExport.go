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

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/watch-log-tools/internal/access"
	"github.com/ademuri/watch-log-tools/internal/logging"
	"github.com/ademuri/watch-log-tools/internal/ratings"
	"github.com/ademuri/watch-log-tools/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Imports viewings from a JSON array",
	Long: `Reads a JSON array of viewings, as written by export, and stores every valid one.
  Malformed viewings are reported and skipped.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Open(args[0])
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer f.Close()

		ctx := context.Background()
		db, err := openBackend(ctx)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer db.Close()

		imported, skipped, err := importViewings(ctx, db, allowlist(), viper.GetString("email"), f)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Printf("Imported %d viewings, skipped %d\n", imported, skipped)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Writes viewings as a JSON array",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		out := os.Stdout
		if len(args) == 1 {
			f, err := os.Create(args[0])
			if err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
			defer f.Close()
			out = f
		}

		ctx := context.Background()
		db, err := openBackend(ctx)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer db.Close()

		if err := exportViewings(ctx, db, viper.GetInt("export.limit"), out); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().Int("limit", store.DefaultListLimit, "Most recent viewings to export")
	viper.BindPFlag("export.limit", exportCmd.Flags().Lookup("limit"))
}

func importViewings(ctx context.Context, db store.Backend, allow *access.Allowlist, email string, in io.Reader) (imported int, skipped int, err error) {
	if err = allow.Check(email); err != nil {
		return
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return 0, 0, fmt.Errorf("reading import: %w", err)
	}
	var viewings []ratings.Viewing
	if err := json.Unmarshal(data, &viewings); err != nil {
		return 0, 0, fmt.Errorf("decoding import: %w", err)
	}

	raters := make(map[string]bool)
	for i := range viewings {
		v := viewings[i]
		if err := ratings.Validate(v); err != nil {
			logging.Warn().Err(err).Int("index", i).Str("viewing", v.ID).Msg("skipping malformed viewing")
			skipped++
			continue
		}
		if !raters[v.RaterID] {
			if err := db.CreateRater(ctx, store.Rater{ID: v.RaterID}); err != nil {
				return imported, skipped, err
			}
			raters[v.RaterID] = true
		}
		if err := db.AddViewing(ctx, &v); err != nil {
			return imported, skipped, fmt.Errorf("importing viewing %d: %w", i, err)
		}
		imported++
	}
	return imported, skipped, nil
}

func exportViewings(ctx context.Context, db store.Backend, limit int, out io.Writer) error {
	viewings, err := db.ListViewings(ctx, limit)
	if err != nil {
		return err
	}
	readable := make([]ratings.Viewing, 0, len(viewings))
	for _, v := range viewings {
		if v.LoadErr != nil {
			logging.Warn().Err(v.LoadErr).Str("viewing", v.ID).Msg("not exporting unreadable viewing")
			continue
		}
		readable = append(readable, v)
	}
	return writeJSON(out, readable)
}
