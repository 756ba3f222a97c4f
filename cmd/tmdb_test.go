package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/ademuri/watch-log-tools/internal/access"
	"github.com/ademuri/watch-log-tools/internal/ratings"
	"github.com/ademuri/watch-log-tools/internal/store"
	"github.com/ademuri/watch-log-tools/internal/tmdb"
)

func newTestTMDB(t *testing.T) *tmdb.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/movie/603", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 603, "title": "The Matrix", "release_date": "1999-03-30", "poster_path": "/m.jpg"}`)
	})
	mux.HandleFunc("/tv/1399", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 1399, "name": "Game of Thrones", "first_air_date": "2011-04-17"}`)
	})
	mux.HandleFunc("/search/multi", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"page": 1, "total_pages": 3, "results": [
			{"id": 603, "media_type": "movie", "title": "The Matrix", "release_date": "1999-03-30"},
			{"id": 6384, "media_type": "person", "name": "Keanu Reeves"},
			{"id": 1399, "media_type": "tv", "name": "Game of Thrones", "first_air_date": "2011-04-17"}]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return tmdb.New("test-key",
		tmdb.WithBaseURL(srv.URL),
		tmdb.WithRateLimit(rate.Inf, 1),
		tmdb.WithRetry(1, time.Millisecond))
}

func TestSyncMetadata(t *testing.T) {
	db, _ := createTestDb(t)
	ctx := context.Background()

	stale := store.Target{ID: "603", Kind: ratings.KindMovie, Title: "Matrix?", CreatedBy: "bob",
		MetadataUpdated: time.Now().AddDate(-1, 0, 0)}
	if err := db.UpsertTarget(ctx, stale); err != nil {
		t.Fatalf("UpsertTarget() error: %v", err)
	}
	addTestTarget(t, db, "694", ratings.KindMovie, "The Shining", 1980)
	addTestViewing(t, db, "tv_1399", "alice", ratings.NewDate(2024, time.May, 1), nil)
	// Not on the test server.
	addTestViewing(t, db, "999", "alice", ratings.NewDate(2024, time.May, 1), nil)

	out := new(bytes.Buffer)
	err := syncMetadata(ctx, db, tmdb.NewResolver(newTestTMDB(t)), SyncConfig{UpdateInterval: 30 * 24 * time.Hour}, out)
	if err != nil {
		t.Fatalf("syncMetadata() error: %v", err)
	}
	if !strings.Contains(out.String(), "Updated metadata for 2 targets") {
		t.Errorf("syncMetadata() output:\n%s", out.String())
	}

	matrix, _, err := db.GetTarget(ctx, "603")
	if err != nil {
		t.Fatalf("GetTarget(603) error: %v", err)
	}
	if matrix.Title != "The Matrix" || matrix.Year != 1999 || matrix.CreatedBy != "bob" {
		t.Errorf("refreshed target = %+v", matrix)
	}

	got, ok, err := db.GetTarget(ctx, "tv_1399")
	if err != nil || !ok {
		t.Fatalf("GetTarget(tv_1399) = %v, %v", ok, err)
	}
	if got.Kind != ratings.KindShow || got.Title != "Game of Thrones" {
		t.Errorf("new target = %+v", got)
	}

	if _, ok, _ := db.GetTarget(ctx, "999"); ok {
		t.Error("target missing from TMDB was stored")
	}
}

func TestSyncMetadataNothingToDo(t *testing.T) {
	db, _ := createTestDb(t)
	addTestTarget(t, db, "694", ratings.KindMovie, "The Shining", 1980)

	out := new(bytes.Buffer)
	err := syncMetadata(context.Background(), db, tmdb.NewResolver(newTestTMDB(t)), SyncConfig{UpdateInterval: time.Hour}, out)
	if err != nil {
		t.Fatalf("syncMetadata() error: %v", err)
	}
	if !strings.Contains(out.String(), "up to date") {
		t.Errorf("syncMetadata() output:\n%s", out.String())
	}
}

func TestSearch(t *testing.T) {
	out := new(bytes.Buffer)
	if err := search(context.Background(), newTestTMDB(t), "matrix", 1, out); err != nil {
		t.Fatalf("search() error: %v", err)
	}
	s := out.String()
	for _, want := range []string{"603", "The Matrix", "tv_1399", "Game of Thrones", "Page 1 of 3"} {
		if !strings.Contains(s, want) {
			t.Errorf("search() output missing %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, "Keanu") {
		t.Errorf("search() output includes a person:\n%s", s)
	}
}

func TestAddTarget(t *testing.T) {
	db, _ := createTestDb(t)
	ctx := context.Background()
	resolver := tmdb.NewResolver(newTestTMDB(t))
	allow := access.NewAllowlist([]string{"alice@example.com"})

	target, err := addTarget(ctx, db, allow, resolver, "alice", "alice@example.com", "tv", "1399")
	if err != nil {
		t.Fatalf("addTarget() error: %v", err)
	}
	if target.ID != "tv_1399" || target.CreatedBy != "alice" {
		t.Errorf("addTarget() = %+v", target)
	}
	if _, ok, _ := db.GetTarget(ctx, "tv_1399"); !ok {
		t.Error("addTarget() did not store the target")
	}

	if _, err := addTarget(ctx, db, allow, resolver, "alice", "alice@example.com", "episode", "1399"); err == nil {
		t.Error("addTarget(episode) succeeded")
	}
	if _, err := addTarget(ctx, db, allow, resolver, "mallory", "mallory@example.com", "movie", "603"); !errors.Is(err, access.ErrNotAllowed) {
		t.Errorf("addTarget() by a stranger error = %v, want ErrNotAllowed", err)
	}
}
