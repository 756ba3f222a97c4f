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
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/watch-log-tools/internal/access"
	"github.com/ademuri/watch-log-tools/internal/logging"
	"github.com/ademuri/watch-log-tools/internal/ratings"
	"github.com/ademuri/watch-log-tools/internal/store"
	"github.com/ademuri/watch-log-tools/internal/tmdb"
)

type LogConfig struct {
	Target     string
	Kind       string
	Rater      string
	Email      string
	Ratings    []string
	Season     int
	Episode    int
	Label      string
	Notes      string
	WatchAgain bool
	Recommend  bool
	Date       string
}

var logCmd = &cobra.Command{
	Use:   "log <target> --rating dimension=value...",
	Short: "Logs one viewing of a movie, show or episode",
	Long: `Stores a viewing for the acting rater.
  <target> is a movie's TMDB id, or a show's id with the tv_ prefix (or use --kind show).
  Dimensions: overall, enjoyment, jump, dread, gore, atmosphere, story, rewatch, wtf, cozy.
  Unrated dimensions are left out and defaulted when ranking.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: requireUser,
	Run: func(cmd *cobra.Command, args []string) {
		config := LogConfig{
			Target:     args[0],
			Kind:       viper.GetString("log.kind"),
			Rater:      viper.GetString("user"),
			Email:      viper.GetString("email"),
			Ratings:    viper.GetStringSlice("log.rating"),
			Season:     viper.GetInt("log.season"),
			Episode:    viper.GetInt("log.episode"),
			Label:      viper.GetString("log.label"),
			Notes:      viper.GetString("log.notes"),
			WatchAgain: viper.GetBool("log.watch_again"),
			Recommend:  viper.GetBool("log.recommend"),
			Date:       viper.GetString("log.date"),
		}

		ctx := context.Background()
		db, err := openBackend(ctx)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer db.Close()

		v, err := logViewing(ctx, db, allowlist(), newResolver(), config)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Printf("Logged viewing %s of %q by %q\n", v.ID, v.TargetID, v.RaterID)
	},
}

func init() {
	rootCmd.AddCommand(logCmd)

	logCmd.Flags().StringArrayP("rating", "r", nil, "A rating as dimension=value, 0 to 10; repeatable")
	viper.BindPFlag("log.rating", logCmd.Flags().Lookup("rating"))

	logCmd.Flags().String("kind", "", "movie, show or episode (default: guessed from the target id)")
	viper.BindPFlag("log.kind", logCmd.Flags().Lookup("kind"))

	logCmd.Flags().Int("season", -1, "Season number, for an episode")
	viper.BindPFlag("log.season", logCmd.Flags().Lookup("season"))

	logCmd.Flags().Int("episode", -1, "Episode number, for an episode")
	viper.BindPFlag("log.episode", logCmd.Flags().Lookup("episode"))

	logCmd.Flags().String("label", "", "Episode title (default: looked up on TMDB)")
	viper.BindPFlag("log.label", logCmd.Flags().Lookup("label"))

	logCmd.Flags().String("notes", "", "Free-form notes")
	viper.BindPFlag("log.notes", logCmd.Flags().Lookup("notes"))

	logCmd.Flags().Bool("watch-again", false, "Would watch again")
	viper.BindPFlag("log.watch_again", logCmd.Flags().Lookup("watch-again"))

	logCmd.Flags().Bool("recommend", false, "Would recommend")
	viper.BindPFlag("log.recommend", logCmd.Flags().Lookup("recommend"))

	logCmd.Flags().String("date", "", "Date watched, yyyy-mm-dd (default: today)")
	viper.BindPFlag("log.date", logCmd.Flags().Lookup("date"))
}

// parseRatings reads dimension=value pairs. Each dimension may appear once.
func parseRatings(pairs []string) (map[ratings.Dimension]float64, error) {
	out := make(map[ratings.Dimension]float64, len(pairs))
	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("rating %q: expected dimension=value", pair)
		}
		d, err := ratings.ParseDimension(kv[0])
		if err != nil {
			return nil, err
		}
		if _, dup := out[d]; dup {
			return nil, fmt.Errorf("rating %q given twice", d)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("rating %q: %w", pair, err)
		}
		out[d] = value
	}
	return out, nil
}

// buildViewing turns command input into a validated viewing.
func buildViewing(config LogConfig, today time.Time) (ratings.Viewing, error) {
	r, err := parseRatings(config.Ratings)
	if err != nil {
		return ratings.Viewing{}, err
	}
	kind, err := ratings.ParseKind(config.Kind)
	if err != nil {
		return ratings.Viewing{}, err
	}

	v := ratings.Viewing{
		TargetID: strings.TrimSpace(config.Target),
		Kind:     kind,
		RaterID:  config.Rater,
		Ratings:  r,
		Flags: ratings.Flags{
			WouldWatchAgain: config.WatchAgain,
			WouldRecommend:  config.Recommend,
		},
		Notes:        config.Notes,
		EpisodeLabel: config.Label,
	}

	if (config.Season >= 0) != (config.Episode >= 0) {
		return ratings.Viewing{}, fmt.Errorf("--season and --episode must be given together")
	}
	if config.Season >= 0 {
		season, episode := config.Season, config.Episode
		v.Season, v.Episode = &season, &episode
		if v.Kind == ratings.KindUnknown || v.Kind == ratings.KindShow {
			v.Kind = ratings.KindEpisode
		}
	}
	if v.Kind == ratings.KindShow || v.Kind == ratings.KindEpisode {
		if _, tmdbID := store.SplitTargetID(v.TargetID); tmdbID == v.TargetID {
			v.TargetID = store.TargetID(ratings.KindShow, v.TargetID)
		}
	}

	if config.Date == "" {
		v.WatchedOn = ratings.DateOf(today)
	} else {
		v.WatchedOn, err = ratings.ParseDate(config.Date)
		if err != nil {
			return ratings.Viewing{}, err
		}
	}

	if err := ratings.Validate(v); err != nil {
		return ratings.Viewing{}, err
	}
	return v, nil
}

// logViewing stores one viewing after checking the allowlist. Metadata is
// fetched for unknown targets when resolver is non-nil; lookup failures are
// logged and never block the write.
func logViewing(ctx context.Context, db store.Backend, allow *access.Allowlist, resolver *tmdb.Resolver, config LogConfig) (ratings.Viewing, error) {
	if err := allow.Check(config.Email); err != nil {
		return ratings.Viewing{}, err
	}

	v, err := buildViewing(config, time.Now())
	if err != nil {
		return ratings.Viewing{}, err
	}

	if resolver != nil {
		ensureTarget(ctx, db, resolver, v)
		if v.HasEpisode() && v.EpisodeLabel == "" {
			label, err := resolver.EpisodeLabel(ctx, v.TargetID, *v.Season, *v.Episode)
			if err != nil {
				logging.Warn().Err(err).Str("target", v.TargetID).Msg("episode title lookup failed")
			} else {
				v.EpisodeLabel = label
			}
		}
	}

	if err := db.CreateRater(ctx, store.Rater{ID: v.RaterID, Email: config.Email}); err != nil {
		return ratings.Viewing{}, err
	}
	if err := db.AddViewing(ctx, &v); err != nil {
		return ratings.Viewing{}, err
	}
	return v, nil
}

func ensureTarget(ctx context.Context, db store.Backend, resolver *tmdb.Resolver, v ratings.Viewing) {
	_, ok, err := db.GetTarget(ctx, v.TargetID)
	if err != nil {
		logging.Warn().Err(err).Str("target", v.TargetID).Msg("reading target")
		return
	}
	if ok {
		return
	}

	kind, tmdbID := store.SplitTargetID(v.TargetID)
	if v.Kind != ratings.KindUnknown {
		kind = v.Kind
	}
	t, err := resolver.ResolveKind(ctx, kind, tmdbID)
	if err != nil {
		logging.Warn().Err(err).Str("target", v.TargetID).Msg("metadata lookup failed")
		return
	}
	t.CreatedBy = v.RaterID
	if err := db.UpsertTarget(ctx, t); err != nil {
		logging.Warn().Err(err).Str("target", v.TargetID).Msg("storing target metadata")
	}
}
