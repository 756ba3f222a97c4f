package ratings

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/goccy/go-json"
)

// Dimension names one bounded axis of a rating vector.
type Dimension string

const (
	Overall    Dimension = "overall"
	Enjoyment  Dimension = "enjoyment"
	Jump       Dimension = "jump"
	Dread      Dimension = "dread"
	Gore       Dimension = "gore"
	Atmosphere Dimension = "atmosphere"
	Story      Dimension = "story"
	Rewatch    Dimension = "rewatch"
	WTF        Dimension = "wtf"
	Cozy       Dimension = "cozy"
)

const (
	MinRating = 0.0
	MaxRating = 10.0

	// DefaultRating is used for any dimension a viewing did not rate,
	// except enjoyment which is derived (see Normalize).
	DefaultRating = 5.0

	NumDimensions = 10
)

var ErrUnknownDimension = errors.New("unknown rating dimension")

var dimensionOrder = [NumDimensions]Dimension{
	Overall, Enjoyment, Jump, Dread, Gore, Atmosphere, Story, Rewatch, WTF, Cozy,
}

var dimensionLabels = map[Dimension]string{
	Overall:    "Overall Scare",
	Enjoyment:  "Enjoyment",
	Jump:       "Jump Scares",
	Dread:      "Dread / Tension",
	Gore:       "Gore / Visceral Stuff",
	Atmosphere: "Atmosphere",
	Story:      "Story",
	Rewatch:    "Rewatchability",
	WTF:        "WTF Factor",
	Cozy:       "Cozy / Fun",
}

// Dimensions returns every dimension in canonical order.
func Dimensions() []Dimension {
	out := make([]Dimension, NumDimensions)
	copy(out, dimensionOrder[:])
	return out
}

// ParseDimension maps a user supplied key to a Dimension.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDimension, s)
	}
	return d, nil
}

func (d Dimension) Valid() bool {
	return d.index() >= 0
}

func (d Dimension) Label() string {
	if l, ok := dimensionLabels[d]; ok {
		return l
	}
	return string(d)
}

func (d Dimension) String() string {
	return string(d)
}

func (d Dimension) index() int {
	for i, o := range dimensionOrder {
		if o == d {
			return i
		}
	}
	return -1
}

// Vector is a fixed-shape rating vector indexed by dimension.
type Vector [NumDimensions]float64

// Get returns the value for d. It panics on an unknown dimension, which can
// only happen through a programming error since Dimension values are checked
// at the API boundary.
func (v Vector) Get(d Dimension) float64 {
	i := d.index()
	if i < 0 {
		panic(fmt.Sprintf("ratings: %v: %q", ErrUnknownDimension, string(d)))
	}
	return v[i]
}

func (v *Vector) set(d Dimension, value float64) {
	v[d.index()] = value
}

// Map converts the vector into a dimension keyed map, which is the shape used
// by the encoders.
func (v Vector) Map() map[Dimension]float64 {
	out := make(map[Dimension]float64, NumDimensions)
	for i, d := range dimensionOrder {
		out[d] = v[i]
	}
	return out
}

func (v Vector) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Map())
}

func (v Vector) MarshalYAML() (interface{}, error) {
	return v.Map(), nil
}

func roundTenth(x float64) float64 {
	return math.Round(x*10) / 10
}
