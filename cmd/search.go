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
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/watch-log-tools/internal/store"
	"github.com/ademuri/watch-log-tools/internal/tmdb"
)

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Searches TMDB for movies and shows",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := newTMDBClient()
		err := search(context.Background(), client, strings.Join(args, " "), viper.GetInt("search.page"), os.Stdout)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Int("page", 1, "Result page")
	viper.BindPFlag("search.page", searchCmd.Flags().Lookup("page"))
}

func search(ctx context.Context, client *tmdb.Client, query string, page int, out io.Writer) error {
	res, err := client.Search(ctx, query, page)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}
	if len(res.Results) == 0 {
		fmt.Fprintln(out, "No results.")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.Header([]string{"Target", "Kind", "Title", "Year"})
	for _, r := range res.Results {
		year := ""
		if y := r.Year(); y > 0 {
			year = strconv.Itoa(y)
		}
		row := []string{
			store.TargetID(r.Kind(), strconv.Itoa(r.ID)),
			string(r.Kind()),
			r.DisplayTitle(),
			year,
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Page %d of %d\n", res.Page, res.TotalPages)
	return nil
}
