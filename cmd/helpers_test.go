package cmd

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ademuri/watch-log-tools/internal/access"
	"github.com/ademuri/watch-log-tools/internal/ratings"
	"github.com/ademuri/watch-log-tools/internal/store"
)

func createTestDb(t *testing.T) (*store.Store, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "watchlog.db")

	db, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New(%s) error: %v", dbPath, err)
	}
	t.Cleanup(func() { db.Close() })

	return db, dbPath
}

func addTestViewing(t *testing.T, db store.Backend, target, rater string, on ratings.Date, r map[ratings.Dimension]float64) {
	t.Helper()
	v := &ratings.Viewing{TargetID: target, RaterID: rater, WatchedOn: on, Ratings: r}
	if err := db.AddViewing(context.Background(), v); err != nil {
		t.Fatalf("AddViewing(%q) error: %v", target, err)
	}
}

func addTestTarget(t *testing.T, db store.Backend, id string, kind ratings.Kind, title string, year int) {
	t.Helper()
	tg := store.Target{ID: id, Kind: kind, Title: title, Year: year, MetadataUpdated: time.Now()}
	if err := db.UpsertTarget(context.Background(), tg); err != nil {
		t.Fatalf("UpsertTarget(%q) error: %v", id, err)
	}
}

type statsFixture struct {
	db     *store.Store
	dbPath string
}

type statsYAML struct {
	Sections []struct {
		Dimension string `yaml:"dimension"`
		Buckets   []struct {
			ID       string             `yaml:"id"`
			Averages map[string]float64 `yaml:"averages"`
		} `yaml:"buckets"`
	} `yaml:"sections"`
}

func allowFor(emails ...string) *access.Allowlist {
	return access.NewAllowlist(emails)
}
