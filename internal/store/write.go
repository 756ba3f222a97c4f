package store

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/ademuri/watch-log-tools/internal/ratings"
)

// CreateRater ensures a rater exists, updating name and email when given.
func (s *Store) CreateRater(ctx context.Context, rater Rater) error {
	if rater.ID == "" {
		return fmt.Errorf("creating rater: empty id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO Rater (id, name, email, color_key, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = COALESCE(NULLIF(excluded.name, ''), Rater.name),
			email = COALESCE(NULLIF(excluded.email, ''), Rater.email),
			color_key = COALESCE(NULLIF(excluded.color_key, ''), Rater.color_key)
	`, rater.ID, rater.Name, rater.Email, rater.ColorKey, time.Now())
	if err != nil {
		return fmt.Errorf("inserting rater %q: %w", rater.ID, err)
	}
	return nil
}

// AddViewing stores v, assigning an id and insertion time when missing, then
// refreshes the target's cached overall average.
func (s *Store) AddViewing(ctx context.Context, v *ratings.Viewing) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.InsertedAt.IsZero() {
		v.InsertedAt = time.Now()
	}

	encoded, err := json.Marshal(v.Ratings)
	if err != nil {
		return fmt.Errorf("encoding ratings: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO Viewing (id, target, kind, rater, watched_on, season, episode, episode_label,
			ratings, would_watch_again, would_recommend, notes, inserted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.TargetID, string(v.Kind), v.RaterID, v.WatchedOn.String(),
		nullableInt(v.Season), nullableInt(v.Episode), v.EpisodeLabel,
		string(encoded), boolInt(v.Flags.WouldWatchAgain), boolInt(v.Flags.WouldRecommend),
		v.Notes, v.InsertedAt)
	if err != nil {
		return fmt.Errorf("inserting viewing for %q: %w", v.TargetID, err)
	}

	return s.RefreshAverage(ctx, v.TargetID)
}

// RefreshAverage recomputes the cached overall average of one target from
// its viewings. Targets without a row are left alone.
func (s *Store) RefreshAverage(ctx context.Context, targetID string) error {
	viewings, err := s.ListByTarget(ctx, targetID)
	if err != nil {
		return err
	}

	var avg interface{}
	if b, _, ok := ratings.Summarize(targetID, viewings, nil); ok {
		avg = b.Average(ratings.Overall)
	}

	_, err = s.db.ExecContext(ctx, "UPDATE Target SET overall_average = ? WHERE id = ?", avg, targetID)
	if err != nil {
		return fmt.Errorf("updating average for %q: %w", targetID, err)
	}
	return nil
}

// UpsertTarget inserts or replaces catalog metadata for a target. The cached
// average and creator of an existing row are preserved.
func (s *Store) UpsertTarget(ctx context.Context, t Target) error {
	if t.MetadataUpdated.IsZero() {
		t.MetadataUpdated = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO Target (id, kind, tmdb_id, title, year, poster_path, overview, created_by, created_at, metadata_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			tmdb_id = excluded.tmdb_id,
			title = excluded.title,
			year = excluded.year,
			poster_path = excluded.poster_path,
			overview = excluded.overview,
			metadata_updated = excluded.metadata_updated
	`, t.ID, string(t.Kind), t.TMDBID, t.Title, t.Year, t.PosterPath, t.Overview,
		t.CreatedBy, time.Now(), t.MetadataUpdated)
	if err != nil {
		return fmt.Errorf("upserting target %q: %w", t.ID, err)
	}

	return s.RefreshAverage(ctx, t.ID)
}

// Report Operations

func (s *Store) AddReport(ctx context.Context, r Report) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO Report (user, name, email, run_day, sets, dimension, top_n) VALUES (?, ?, ?, ?, ?, ?, ?)",
		r.User, r.Name, r.Email, r.RunDay, joinSets(r.Sets), r.Dimension, r.Limit)
	if err != nil {
		return fmt.Errorf("inserting report %q: %w", r.Name, err)
	}
	return nil
}

// DeleteReport removes a report and returns the number of rows deleted.
func (s *Store) DeleteReport(ctx context.Context, user, name, email string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM Report WHERE user = ? AND name = ? AND email = ?", user, name, email)
	if err != nil {
		return 0, fmt.Errorf("deleting report: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

func (s *Store) MarkReportSent(ctx context.Context, r Report, sent time.Time) error {
	_, err := s.db.ExecContext(ctx, "UPDATE Report SET sent = ? WHERE user = ? AND name = ? AND email = ?",
		sent, r.User, r.Name, r.Email)
	if err != nil {
		return fmt.Errorf("recording report %q as sent: %w", r.Name, err)
	}
	return nil
}
