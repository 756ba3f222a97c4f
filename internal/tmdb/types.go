package tmdb

import (
	"strconv"

	"github.com/ademuri/watch-log-tools/internal/ratings"
)

const (
	MediaMovie = "movie"
	MediaTV    = "tv"
)

// Result is one entry of a multi search. Movies carry Title and ReleaseDate,
// shows carry Name and FirstAirDate.
type Result struct {
	ID           int    `json:"id"`
	MediaType    string `json:"media_type"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	ReleaseDate  string `json:"release_date"`
	FirstAirDate string `json:"first_air_date"`
	PosterPath   string `json:"poster_path"`
	Overview     string `json:"overview"`
}

func (r Result) Kind() ratings.Kind {
	if r.MediaType == MediaTV {
		return ratings.KindShow
	}
	return ratings.KindMovie
}

func (r Result) DisplayTitle() string {
	if r.MediaType == MediaTV {
		return r.Name
	}
	return r.Title
}

func (r Result) Year() int {
	if r.MediaType == MediaTV {
		return yearOf(r.FirstAirDate)
	}
	return yearOf(r.ReleaseDate)
}

type SearchPage struct {
	Page         int      `json:"page"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
	Results      []Result `json:"results"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Movie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Tagline     string  `json:"tagline"`
	ReleaseDate string  `json:"release_date"`
	Runtime     int     `json:"runtime"`
	PosterPath  string  `json:"poster_path"`
	Overview    string  `json:"overview"`
	Genres      []Genre `json:"genres"`
}

type Show struct {
	ID               int             `json:"id"`
	Name             string          `json:"name"`
	FirstAirDate     string          `json:"first_air_date"`
	NumberOfSeasons  int             `json:"number_of_seasons"`
	NumberOfEpisodes int             `json:"number_of_episodes"`
	PosterPath       string          `json:"poster_path"`
	Overview         string          `json:"overview"`
	Genres           []Genre         `json:"genres"`
	Seasons          []SeasonSummary `json:"seasons"`
}

type SeasonSummary struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	SeasonNumber int    `json:"season_number"`
	EpisodeCount int    `json:"episode_count"`
	AirDate      string `json:"air_date"`
}

type Season struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	SeasonNumber int       `json:"season_number"`
	AirDate      string    `json:"air_date"`
	Overview     string    `json:"overview"`
	PosterPath   string    `json:"poster_path"`
	Episodes     []Episode `json:"episodes"`
}

type Episode struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	SeasonNumber  int     `json:"season_number"`
	EpisodeNumber int     `json:"episode_number"`
	AirDate       string  `json:"air_date"`
	Runtime       int     `json:"runtime"`
	Overview      string  `json:"overview"`
	VoteAverage   float64 `json:"vote_average"`
}

// Episode returns the episode numbered n, if the season lists it.
func (s Season) Episode(n int) (Episode, bool) {
	for _, e := range s.Episodes {
		if e.EpisodeNumber == n {
			return e, true
		}
	}
	return Episode{}, false
}

// yearOf reads the year from a yyyy-mm-dd date, or 0.
func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}
