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

	"github.com/ademuri/watch-log-tools/internal/access"
	"github.com/ademuri/watch-log-tools/internal/ratings"
	"github.com/ademuri/watch-log-tools/internal/store"
	"github.com/ademuri/watch-log-tools/internal/tmdb"
)

var addTargetCmd = &cobra.Command{
	Use:     "add-target <movie|show> <tmdb id>",
	Short:   "Adds a movie or show to the catalog from TMDB",
	Args:    cobra.ExactArgs(2),
	PreRunE: requireUser,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		db, err := openBackend(ctx)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer db.Close()

		t, err := addTarget(ctx, db, allowlist(), tmdb.NewResolver(newTMDBClient()),
			viper.GetString("user"), viper.GetString("email"), args[0], args[1])
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Printf("Added %s %q (%d) as %s\n", t.Kind, t.Title, t.Year, t.ID)
	},
}

func init() {
	rootCmd.AddCommand(addTargetCmd)
}

func addTarget(ctx context.Context, db store.Backend, allow *access.Allowlist, resolver *tmdb.Resolver, user, email, kindName, tmdbID string) (store.Target, error) {
	if err := allow.Check(email); err != nil {
		return store.Target{}, err
	}
	kind, err := ratings.ParseKind(kindName)
	if err != nil {
		return store.Target{}, err
	}
	if kind != ratings.KindMovie && kind != ratings.KindShow {
		return store.Target{}, fmt.Errorf("kind must be movie or show, got %q", kindName)
	}

	t, err := resolver.ResolveKind(ctx, kind, tmdbID)
	if err != nil {
		return store.Target{}, err
	}
	t.CreatedBy = user
	if err := db.UpsertTarget(ctx, t); err != nil {
		return store.Target{}, err
	}
	return t, nil
}
