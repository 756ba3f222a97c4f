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
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/watch-log-tools/internal/logging"
	"github.com/ademuri/watch-log-tools/internal/store"
	"github.com/ademuri/watch-log-tools/internal/tmdb"
)

type SyncConfig struct {
	Force          bool
	UpdateInterval time.Duration
}

// syncMetadataCmd represents the sync-metadata command
var syncMetadataCmd = &cobra.Command{
	Use:   "sync-metadata",
	Short: "Fetches titles, years and posters from TMDB",
	Long:  `Refreshes catalog metadata for targets that have none or whose metadata is stale.`,
	Run: func(cmd *cobra.Command, args []string) {
		intervalStr := viper.GetString("sync.interval")
		interval, err := time.ParseDuration(intervalStr)
		if err != nil {
			fmt.Printf("Invalid interval: %v. Using default 30 days.\n", err)
			interval = 30 * 24 * time.Hour
		}

		config := SyncConfig{
			Force:          viper.GetBool("sync.force"),
			UpdateInterval: interval,
		}

		ctx := context.Background()
		db, err := openBackend(ctx)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer db.Close()

		err = syncMetadata(ctx, db, tmdb.NewResolver(newTMDBClient()), config, os.Stdout)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(syncMetadataCmd)

	var force bool
	syncMetadataCmd.Flags().BoolVarP(&force, "force", "f", false, "Refresh every target, regardless of age")
	viper.BindPFlag("sync.force", syncMetadataCmd.Flags().Lookup("force"))

	var interval string
	syncMetadataCmd.Flags().StringVar(&interval, "interval", "720h", "Time duration after which to re-fetch metadata (e.g., 24h)")
	viper.BindPFlag("sync.interval", syncMetadataCmd.Flags().Lookup("interval"))
}

func syncMetadata(ctx context.Context, db store.Backend, resolver *tmdb.Resolver, config SyncConfig, out io.Writer) error {
	interval := config.UpdateInterval
	if config.Force {
		interval = 0
	}

	targets, err := db.TargetsNeedingMetadata(ctx, interval)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Fprintln(out, "All target metadata is up to date")
		return nil
	}

	updated := 0
	for i, t := range targets {
		fresh, err := resolver.ResolveKind(ctx, t.Kind, t.TMDBID)
		if tmdb.NotFound(err) {
			logging.Warn().Str("target", t.ID).Msg("not found on TMDB, skipping")
			continue
		}
		if err != nil {
			return fmt.Errorf("fetching metadata for %q: %w", t.ID, err)
		}

		// Keep the stored id even if it was written without the show prefix.
		fresh.ID = t.ID
		fresh.CreatedBy = t.CreatedBy
		if err := db.UpsertTarget(ctx, fresh); err != nil {
			return err
		}
		updated++
		fmt.Fprintf(out, "Updated %d of %d: %s %q\n", i+1, len(targets), t.ID, fresh.Title)
	}

	fmt.Fprintf(out, "Updated metadata for %d targets\n", updated)
	return nil
}
