package docstore

import (
	"time"

	"github.com/ademuri/watch-log-tools/internal/ratings"
	"github.com/ademuri/watch-log-tools/internal/store"
)

type viewingDoc struct {
	ID              string             `bson:"_id"`
	TargetID        string             `bson:"targetId"`
	Kind            string             `bson:"kind,omitempty"`
	RaterID         string             `bson:"raterId"`
	WatchedOn       string             `bson:"watchedOn"`
	Season          *int               `bson:"season,omitempty"`
	Episode         *int               `bson:"episode,omitempty"`
	EpisodeLabel    string             `bson:"episodeLabel,omitempty"`
	Ratings         map[string]float64 `bson:"ratings"`
	WouldWatchAgain bool               `bson:"wouldWatchAgain"`
	WouldRecommend  bool               `bson:"wouldRecommend"`
	Notes           string             `bson:"notes,omitempty"`
	InsertedAt      time.Time          `bson:"insertedAt"`
}

func toViewingDoc(v ratings.Viewing) viewingDoc {
	r := make(map[string]float64, len(v.Ratings))
	for d, value := range v.Ratings {
		r[string(d)] = value
	}
	return viewingDoc{
		ID:              v.ID,
		TargetID:        v.TargetID,
		Kind:            string(v.Kind),
		RaterID:         v.RaterID,
		WatchedOn:       v.WatchedOn.String(),
		Season:          v.Season,
		Episode:         v.Episode,
		EpisodeLabel:    v.EpisodeLabel,
		Ratings:         r,
		WouldWatchAgain: v.Flags.WouldWatchAgain,
		WouldRecommend:  v.Flags.WouldRecommend,
		Notes:           v.Notes,
		InsertedAt:      v.InsertedAt,
	}
}

func (d viewingDoc) viewing() ratings.Viewing {
	v := ratings.Viewing{
		ID:           d.ID,
		TargetID:     d.TargetID,
		Kind:         ratings.Kind(d.Kind),
		RaterID:      d.RaterID,
		Season:       d.Season,
		Episode:      d.Episode,
		EpisodeLabel: d.EpisodeLabel,
		Flags: ratings.Flags{
			WouldWatchAgain: d.WouldWatchAgain,
			WouldRecommend:  d.WouldRecommend,
		},
		Notes:      d.Notes,
		InsertedAt: d.InsertedAt,
	}
	if date, err := ratings.ParseDate(d.WatchedOn); err == nil {
		v.WatchedOn = date
	}
	if d.Ratings != nil {
		v.Ratings = make(map[ratings.Dimension]float64, len(d.Ratings))
		for k, value := range d.Ratings {
			// Unknown keys are kept so validation can flag the viewing.
			v.Ratings[ratings.Dimension(k)] = value
		}
	}
	return v
}

type targetDoc struct {
	ID              string    `bson:"_id"`
	Kind            string    `bson:"kind"`
	TMDBID          string    `bson:"tmdbId"`
	Title           string    `bson:"title"`
	Year            int       `bson:"year"`
	PosterPath      string    `bson:"posterPath"`
	Overview        string    `bson:"overview"`
	CreatedBy       string    `bson:"createdBy"`
	OverallAverage  *float64  `bson:"overallAverage,omitempty"`
	MetadataUpdated time.Time `bson:"metadataUpdated"`
}

func (d targetDoc) target() store.Target {
	t := store.Target{
		ID:              d.ID,
		Kind:            ratings.Kind(d.Kind),
		TMDBID:          d.TMDBID,
		Title:           d.Title,
		Year:            d.Year,
		PosterPath:      d.PosterPath,
		Overview:        d.Overview,
		CreatedBy:       d.CreatedBy,
		MetadataUpdated: d.MetadataUpdated,
	}
	if t.TMDBID == "" {
		_, t.TMDBID = store.SplitTargetID(t.ID)
	}
	if d.OverallAverage != nil {
		t.OverallAverage = *d.OverallAverage
		t.HasAverage = true
	}
	return t
}
