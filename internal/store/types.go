package store

import (
	"strings"
	"time"

	"github.com/ademuri/watch-log-tools/internal/ratings"
)

// ShowIDPrefix is prepended to TMDB ids of shows so they never collide with
// movie ids, which share TMDB's numbering.
const ShowIDPrefix = ratings.LegacyShowPrefix

// Rater is a person who logs viewings.
type Rater struct {
	ID       string
	Name     string
	Email    string
	ColorKey string
}

// Target is a movie or show known to the log, with its cached catalog
// metadata.
type Target struct {
	ID         string
	Kind       ratings.Kind
	TMDBID     string
	Title      string
	Year       int
	PosterPath string
	Overview   string
	CreatedBy  string

	// OverallAverage is a denormalized copy of the engine's overall average,
	// refreshed whenever a viewing is added. HasAverage is false until the
	// target has at least one valid viewing.
	OverallAverage float64
	HasAverage     bool

	MetadataUpdated time.Time
}

// TargetID builds the log id for a TMDB entity.
func TargetID(kind ratings.Kind, tmdbID string) string {
	if kind == ratings.KindShow || kind == ratings.KindEpisode {
		return ShowIDPrefix + tmdbID
	}
	return tmdbID
}

// SplitTargetID recovers the TMDB id and kind from a log id. Ids without the
// show prefix are reported as movies.
func SplitTargetID(id string) (ratings.Kind, string) {
	if rest, ok := strings.CutPrefix(id, ShowIDPrefix); ok {
		return ratings.KindShow, rest
	}
	return ratings.KindMovie, id
}

// Metadata is the subset of t the aggregation engine uses.
func (t Target) Metadata() ratings.Metadata {
	return ratings.Metadata{
		Title:      t.Title,
		Year:       t.Year,
		PosterPath: t.PosterPath,
		Kind:       t.Kind,
	}
}

// Report is a scheduled monthly stats email.
type Report struct {
	User      string
	Name      string
	Email     string
	RunDay    int
	Sets      []ratings.Set
	Dimension string
	Limit     int
	Sent      time.Time
}

func joinSets(sets []ratings.Set) string {
	parts := make([]string, len(sets))
	for i, s := range sets {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func splitSets(s string) []ratings.Set {
	var out []ratings.Set
	for _, part := range strings.Split(s, ",") {
		if set, err := ratings.ParseSet(part); err == nil {
			out = append(out, set)
		}
	}
	return out
}

func nullableInt(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
