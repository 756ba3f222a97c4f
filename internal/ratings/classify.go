package ratings

import (
	"fmt"
	"strings"
)

// LegacyShowPrefix marks show ids written before targets carried an explicit
// kind. It is only consulted when neither metadata nor the record say what
// the target is.
const LegacyShowPrefix = "tv_"

// Set identifies one of the three bucket sets.
type Set string

const (
	SetMovies   Set = "movies"
	SetShows    Set = "shows"
	SetEpisodes Set = "episodes"
)

func Sets() []Set {
	return []Set{SetMovies, SetShows, SetEpisodes}
}

func ParseSet(s string) (Set, error) {
	switch Set(strings.ToLower(strings.TrimSpace(s))) {
	case SetMovies, "movie":
		return SetMovies, nil
	case SetShows, "show", "tv":
		return SetShows, nil
	case SetEpisodes, "episode":
		return SetEpisodes, nil
	}
	return "", fmt.Errorf("unknown bucket set %q", s)
}

// Key is the identity of one bucket.
type Key struct {
	Set      Set
	TargetID string
	Season   int
	Episode  int
}

// ID renders the key as the bucket id used for tie-breaking and lookups.
func (k Key) ID() string {
	if k.Set == SetEpisodes {
		return EpisodeID(k.TargetID, k.Season, k.Episode)
	}
	return k.TargetID
}

func EpisodeID(targetID string, season, episode int) string {
	return fmt.Sprintf("%s::s%de%d", targetID, season, episode)
}

// Metadata is the display information resolved for a target.
type Metadata struct {
	Title      string
	Year       int
	PosterPath string
	Kind       Kind
}

// Catalog resolves target ids to metadata. Lookups must not block; callers
// fetch everything before aggregating.
type Catalog interface {
	Lookup(targetID string) (Metadata, bool)
}

// MapCatalog is a Catalog backed by a map.
type MapCatalog map[string]Metadata

func (c MapCatalog) Lookup(targetID string) (Metadata, bool) {
	m, ok := c[targetID]
	return m, ok
}

// ResolveKind decides whether a viewing's target is a movie or part of a
// series. Resolved metadata wins, then the record's own tag, then the legacy
// id prefix. Anything still unclassified counts as a movie.
func ResolveKind(v Viewing, meta Metadata, known bool) Kind {
	if known && meta.Kind != KindUnknown {
		return meta.Kind
	}
	if v.Kind != KindUnknown {
		return v.Kind
	}
	if strings.HasPrefix(v.TargetID, LegacyShowPrefix) {
		return KindShow
	}
	return KindMovie
}

// Classify returns the bucket keys a viewing contributes to. Series viewings
// always land in the show set and, when they name a season and an episode,
// also in the episode set.
func Classify(v Viewing, meta Metadata, known bool) []Key {
	if !ResolveKind(v, meta, known).isSeries() {
		return []Key{{Set: SetMovies, TargetID: v.TargetID}}
	}

	keys := []Key{{Set: SetShows, TargetID: v.TargetID}}
	if v.HasEpisode() {
		keys = append(keys, Key{
			Set:      SetEpisodes,
			TargetID: v.TargetID,
			Season:   *v.Season,
			Episode:  *v.Episode,
		})
	}
	return keys
}
