package tmdb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ademuri/watch-log-tools/internal/ratings"
	"github.com/ademuri/watch-log-tools/internal/store"
)

// Resolver turns log target ids into store-ready target metadata.
type Resolver struct {
	Client *Client
	now    func() time.Time
}

func NewResolver(client *Client) *Resolver {
	return &Resolver{Client: client, now: time.Now}
}

// Resolve looks up targetID, using the show prefix to pick the endpoint.
func (r *Resolver) Resolve(ctx context.Context, targetID string) (store.Target, error) {
	kind, tmdbID := store.SplitTargetID(targetID)
	return r.ResolveKind(ctx, kind, tmdbID)
}

// ResolveKind looks up a TMDB id of a known kind. Episodes resolve to their
// show.
func (r *Resolver) ResolveKind(ctx context.Context, kind ratings.Kind, tmdbID string) (store.Target, error) {
	if _, err := strconv.Atoi(tmdbID); err != nil {
		return store.Target{}, fmt.Errorf("tmdb id %q is not numeric", tmdbID)
	}

	switch kind {
	case ratings.KindShow, ratings.KindEpisode:
		s, err := r.Client.Show(ctx, tmdbID)
		if err != nil {
			return store.Target{}, fmt.Errorf("fetching show %s: %w", tmdbID, err)
		}
		return store.Target{
			ID:              store.TargetID(ratings.KindShow, tmdbID),
			Kind:            ratings.KindShow,
			TMDBID:          tmdbID,
			Title:           s.Name,
			Year:            yearOf(s.FirstAirDate),
			PosterPath:      s.PosterPath,
			Overview:        s.Overview,
			MetadataUpdated: r.now(),
		}, nil
	default:
		m, err := r.Client.Movie(ctx, tmdbID)
		if err != nil {
			return store.Target{}, fmt.Errorf("fetching movie %s: %w", tmdbID, err)
		}
		return store.Target{
			ID:              store.TargetID(ratings.KindMovie, tmdbID),
			Kind:            ratings.KindMovie,
			TMDBID:          tmdbID,
			Title:           m.Title,
			Year:            yearOf(m.ReleaseDate),
			PosterPath:      m.PosterPath,
			Overview:        m.Overview,
			MetadataUpdated: r.now(),
		}, nil
	}
}

// EpisodeLabel returns the title of one episode of a show.
func (r *Resolver) EpisodeLabel(ctx context.Context, targetID string, season, episode int) (string, error) {
	_, tmdbID := store.SplitTargetID(targetID)
	s, err := r.Client.Season(ctx, tmdbID, season)
	if err != nil {
		return "", fmt.Errorf("fetching season %d of %s: %w", season, tmdbID, err)
	}
	e, ok := s.Episode(episode)
	if !ok {
		return "", fmt.Errorf("season %d of %s has no episode %d", season, tmdbID, episode)
	}
	return e.Name, nil
}
