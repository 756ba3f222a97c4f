package ratings

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Kind classifies the entity a viewing targets.
type Kind string

const (
	KindUnknown Kind = ""
	KindMovie   Kind = "movie"
	KindShow    Kind = "show"
	KindEpisode Kind = "episode"
)

// ParseKind accepts the stored kinds plus the catalog's "tv" spelling.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return KindUnknown, nil
	case "movie":
		return KindMovie, nil
	case "show", "tv":
		return KindShow, nil
	case "episode":
		return KindEpisode, nil
	}
	return KindUnknown, fmt.Errorf("unknown kind %q", s)
}

func (k Kind) isSeries() bool {
	return k == KindShow || k == KindEpisode
}

const dateLayout = "2006-01-02"

// Date is a calendar day. Time of day is always midnight UTC.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time of day from t.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type Flags struct {
	WouldWatchAgain bool `json:"wouldWatchAgain"`
	WouldRecommend  bool `json:"wouldRecommend"`
}

// Viewing is one logged instance of someone watching a movie, a show or an
// episode of a show. For episodes TargetID is the show-level id.
type Viewing struct {
	ID           string                `json:"id,omitempty"`
	TargetID     string                `json:"targetId" validate:"notblank"`
	Kind         Kind                  `json:"kind,omitempty" validate:"omitempty,oneof=movie show episode"`
	RaterID      string                `json:"raterId" validate:"notblank"`
	WatchedOn    Date                  `json:"watchedOn"`
	Ratings      map[Dimension]float64 `json:"ratings" validate:"dive,keys,oneof=overall enjoyment jump dread gore atmosphere story rewatch wtf cozy,endkeys,gte=0,lte=10"`
	Flags        Flags                 `json:"flags"`
	Notes        string                `json:"notes,omitempty"`
	Season       *int                  `json:"season,omitempty" validate:"omitempty,gte=0"`
	Episode      *int                  `json:"episode,omitempty" validate:"omitempty,gte=0"`
	EpisodeLabel string                `json:"episodeLabel,omitempty"`
	InsertedAt   time.Time             `json:"insertedAt,omitempty"`

	// LoadErr is set by a store that could not decode the stored record.
	// Such a viewing is always malformed.
	LoadErr error `json:"-" validate:"-"`
}

// HasEpisode reports whether both season and episode numbers are present.
func (v Viewing) HasEpisode() bool {
	return v.Season != nil && v.Episode != nil
}

// Normalize validates v and expands its ratings into a full vector.
//
// Dimensions that were not rated default to DefaultRating, except enjoyment,
// which defaults to the mean of story, rewatch and cozy (after those have
// been defaulted themselves). A stated value outside [0, 10] is never
// defaulted; the viewing is malformed instead.
func Normalize(v Viewing) (Vector, error) {
	if err := Validate(v); err != nil {
		return Vector{}, err
	}

	var out Vector
	for _, d := range dimensionOrder {
		if d == Enjoyment {
			continue
		}
		value, ok := v.Ratings[d]
		if !ok {
			value = DefaultRating
		}
		out.set(d, value)
	}

	if value, ok := v.Ratings[Enjoyment]; ok {
		out.set(Enjoyment, value)
	} else {
		out.set(Enjoyment, (out.Get(Story)+out.Get(Rewatch)+out.Get(Cozy))/3)
	}
	return out, nil
}
