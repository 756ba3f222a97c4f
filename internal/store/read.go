package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/ademuri/watch-log-tools/internal/logging"
	"github.com/ademuri/watch-log-tools/internal/ratings"
)

const viewingColumns = `id, target, kind, rater, watched_on, season, episode, episode_label,
	ratings, would_watch_again, would_recommend, notes, inserted_at`

// ListViewings returns the most recent viewings, newest first. A limit of 0
// or less means DefaultListLimit.
func (s *Store) ListViewings(ctx context.Context, limit int) ([]ratings.Viewing, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+viewingColumns+" FROM Viewing ORDER BY watched_on DESC, inserted_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("querying viewings: %w", err)
	}
	return scanViewings(rows)
}

func (s *Store) ListByTarget(ctx context.Context, targetID string) ([]ratings.Viewing, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+viewingColumns+" FROM Viewing WHERE target = ? ORDER BY watched_on DESC, inserted_at DESC", targetID)
	if err != nil {
		return nil, fmt.Errorf("querying viewings for target %q: %w", targetID, err)
	}
	return scanViewings(rows)
}

func (s *Store) ListByRater(ctx context.Context, raterID string) ([]ratings.Viewing, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+viewingColumns+" FROM Viewing WHERE rater = ? ORDER BY watched_on DESC, inserted_at DESC", raterID)
	if err != nil {
		return nil, fmt.Errorf("querying viewings for rater %q: %w", raterID, err)
	}
	return scanViewings(rows)
}

func scanViewings(rows *sql.Rows) ([]ratings.Viewing, error) {
	defer rows.Close()

	var viewings []ratings.Viewing
	for rows.Next() {
		var (
			v                     ratings.Viewing
			kind, watchedOn       string
			season, episode       sql.NullInt64
			label, encoded, notes sql.NullString
			watchAgain, recommend int
			insertedAt            sql.NullTime
		)
		err := rows.Scan(&v.ID, &v.TargetID, &kind, &v.RaterID, &watchedOn, &season, &episode, &label,
			&encoded, &watchAgain, &recommend, &notes, &insertedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning viewing: %w", err)
		}

		v.Kind = ratings.Kind(kind)
		v.EpisodeLabel = label.String
		v.Notes = notes.String
		v.Flags.WouldWatchAgain = watchAgain != 0
		v.Flags.WouldRecommend = recommend != 0
		if insertedAt.Valid {
			v.InsertedAt = insertedAt.Time
		}
		if season.Valid {
			n := int(season.Int64)
			v.Season = &n
		}
		if episode.Valid {
			n := int(episode.Int64)
			v.Episode = &n
		}
		if watchedOn != "" {
			// A bad date is kept as zero; the date carries no weight in
			// aggregation.
			if d, err := ratings.ParseDate(watchedOn); err == nil {
				v.WatchedOn = d
			}
		}
		if encoded.Valid && encoded.String != "" {
			if err := json.Unmarshal([]byte(encoded.String), &v.Ratings); err != nil {
				logging.Warn().Err(err).Str("viewing", v.ID).Msg("unreadable ratings column")
				v.Ratings = nil
				v.LoadErr = fmt.Errorf("decoding ratings: %w", err)
			}
		}

		viewings = append(viewings, v)
	}
	return viewings, rows.Err()
}

const targetColumns = `id, kind, tmdb_id, title, year, poster_path, overview, created_by,
	overall_average, metadata_updated`

func (s *Store) GetTarget(ctx context.Context, id string) (Target, bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+targetColumns+" FROM Target WHERE id = ?", id)
	if err != nil {
		return Target{}, false, fmt.Errorf("querying target %q: %w", id, err)
	}
	targets, err := scanTargets(rows)
	if err != nil {
		return Target{}, false, err
	}
	if len(targets) == 0 {
		return Target{}, false, nil
	}
	return targets[0], true, nil
}

func (s *Store) ListTargets(ctx context.Context) ([]Target, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+targetColumns+" FROM Target ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying targets: %w", err)
	}
	return scanTargets(rows)
}

// Catalog returns every stored target's metadata keyed by target id.
func (s *Store) Catalog(ctx context.Context) (ratings.MapCatalog, error) {
	targets, err := s.ListTargets(ctx)
	if err != nil {
		return nil, err
	}
	catalog := make(ratings.MapCatalog, len(targets))
	for _, t := range targets {
		catalog[t.ID] = t.Metadata()
	}
	return catalog, nil
}

// TargetsNeedingMetadata returns targets whose metadata is missing or older
// than interval. Viewed ids without a Target row are included as bare
// targets so their metadata can be fetched for the first time.
func (s *Store) TargetsNeedingMetadata(ctx context.Context, interval time.Duration) ([]Target, error) {
	threshold := time.Now().Add(-interval)
	rows, err := s.db.QueryContext(ctx, "SELECT "+targetColumns+`
		FROM Target
		WHERE metadata_updated IS NULL OR metadata_updated < ? OR title IS NULL OR title = ''
		ORDER BY id`, threshold)
	if err != nil {
		return nil, fmt.Errorf("querying targets for metadata update: %w", err)
	}
	stale, err := scanTargets(rows)
	if err != nil {
		return nil, err
	}

	missing, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT v.target, v.kind
		FROM Viewing v
		LEFT JOIN Target t ON t.id = v.target
		WHERE t.id IS NULL
		ORDER BY v.target`)
	if err != nil {
		return nil, fmt.Errorf("querying unknown targets: %w", err)
	}
	defer missing.Close()

	seen := make(map[string]bool)
	for missing.Next() {
		var id, kind string
		if err := missing.Scan(&id, &kind); err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		t := Target{ID: id, Kind: ratings.Kind(kind)}
		if t.Kind == ratings.KindUnknown {
			t.Kind, t.TMDBID = SplitTargetID(id)
		} else {
			_, t.TMDBID = SplitTargetID(id)
		}
		if t.Kind == ratings.KindEpisode {
			t.Kind = ratings.KindShow
		}
		stale = append(stale, t)
	}
	return stale, missing.Err()
}

func scanTargets(rows *sql.Rows) ([]Target, error) {
	defer rows.Close()

	var targets []Target
	for rows.Next() {
		var (
			t                                        Target
			kind                                     string
			tmdbID, title, poster, overview, creator sql.NullString
			year                                     sql.NullInt64
			avg                                      sql.NullFloat64
			updated                                  sql.NullTime
		)
		err := rows.Scan(&t.ID, &kind, &tmdbID, &title, &year, &poster, &overview, &creator, &avg, &updated)
		if err != nil {
			return nil, fmt.Errorf("scanning target: %w", err)
		}
		t.Kind = ratings.Kind(kind)
		t.TMDBID = tmdbID.String
		if t.TMDBID == "" {
			_, t.TMDBID = SplitTargetID(t.ID)
		}
		t.Title = title.String
		t.Year = int(year.Int64)
		t.PosterPath = poster.String
		t.Overview = overview.String
		t.CreatedBy = creator.String
		t.OverallAverage = avg.Float64
		t.HasAverage = avg.Valid
		if updated.Valid {
			t.MetadataUpdated = updated.Time
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// Report reads

func (s *Store) ListReports(ctx context.Context, user string) ([]Report, error) {
	query := "SELECT user, name, email, run_day, sets, dimension, top_n, sent FROM Report"
	var args []interface{}
	if user != "" {
		query += " WHERE user = ?"
		args = append(args, user)
	}
	query += " ORDER BY user, name, email"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var (
			r               Report
			sets, dimension sql.NullString
			limit           sql.NullInt64
			sent            sql.NullTime
		)
		if err := rows.Scan(&r.User, &r.Name, &r.Email, &r.RunDay, &sets, &dimension, &limit, &sent); err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		r.Sets = splitSets(sets.String)
		r.Dimension = dimension.String
		r.Limit = int(limit.Int64)
		if sent.Valid {
			r.Sent = sent.Time
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
