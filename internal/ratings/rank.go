package ratings

import (
	"fmt"
	"sort"
	"strconv"
)

const DefaultLimit = 10

// Bucket is one finalized row: the averages of every viewing sharing a key,
// plus best-effort display metadata.
type Bucket struct {
	ID              string `json:"id" yaml:"id"`
	Key             Key    `json:"-" yaml:"-"`
	DisplayTitle    string `json:"title" yaml:"title"`
	DisplaySubtitle string `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	PosterRef       string `json:"poster,omitempty" yaml:"poster,omitempty"`
	SampleCount     int    `json:"count" yaml:"count"`
	Averages        Vector `json:"averages" yaml:"averages"`
}

// Average returns the bucket's rounded average for d.
func (b Bucket) Average(d Dimension) float64 {
	return b.Averages.Get(d)
}

// Table holds the finalized buckets of one set. It is immutable once built;
// Rank returns sorted copies.
type Table struct {
	Set     Set
	buckets []Bucket
	byID    map[string]int
}

func newTable(set Set, accs map[Key]*Accumulator, catalog Catalog) *Table {
	t := &Table{Set: set, byID: make(map[string]int, len(accs))}
	for _, acc := range accs {
		avg, ok := acc.Average()
		if !ok {
			continue
		}
		b := Bucket{
			ID:          acc.Key.ID(),
			Key:         acc.Key,
			SampleCount: acc.Count(),
			Averages:    avg,
		}
		enrich(&b, acc, catalog)
		t.buckets = append(t.buckets, b)
	}
	sort.Slice(t.buckets, func(i, j int) bool {
		return t.buckets[i].ID < t.buckets[j].ID
	})
	for i, b := range t.buckets {
		t.byID[b.ID] = i
	}
	return t
}

func enrich(b *Bucket, acc *Accumulator, catalog Catalog) {
	var meta Metadata
	var known bool
	if catalog != nil {
		meta, known = catalog.Lookup(acc.Key.TargetID)
	}

	b.DisplayTitle = acc.Key.TargetID
	if known && meta.Title != "" {
		b.DisplayTitle = meta.Title
	}
	if known {
		b.PosterRef = meta.PosterPath
	}

	if acc.Key.Set == SetEpisodes {
		b.DisplaySubtitle = fmt.Sprintf("S%dE%d", acc.Key.Season, acc.Key.Episode)
		if acc.label != "" {
			b.DisplaySubtitle += " - " + acc.label
		}
	} else if known && meta.Year > 0 {
		b.DisplaySubtitle = strconv.Itoa(meta.Year)
	}
}

// Len is the number of non-empty buckets in the table.
func (t *Table) Len() int {
	return len(t.buckets)
}

// Buckets returns every bucket ordered by id.
func (t *Table) Buckets() []Bucket {
	out := make([]Bucket, len(t.buckets))
	copy(out, t.buckets)
	return out
}

// Find returns the bucket with the given id.
func (t *Table) Find(id string) (Bucket, bool) {
	i, ok := t.byID[id]
	if !ok {
		return Bucket{}, false
	}
	return t.buckets[i], true
}

// Rank orders the buckets by their average for d, highest first, and returns
// at most limit rows. Equal averages are ordered by bucket id. A limit of 0
// means DefaultLimit and a negative limit returns every bucket.
func (t *Table) Rank(d Dimension, limit int) ([]Bucket, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDimension, string(d))
	}
	if limit == 0 {
		limit = DefaultLimit
	}

	i := d.index()
	out := t.Buckets()
	sort.Slice(out, func(a, b int) bool {
		x, y := out[a].Averages[i], out[b].Averages[i]
		if x != y {
			return x > y
		}
		return out[a].ID < out[b].ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RankBy is Rank with the dimension given by name.
func (t *Table) RankBy(name string, limit int) ([]Bucket, error) {
	d, err := ParseDimension(name)
	if err != nil {
		return nil, err
	}
	return t.Rank(d, limit)
}
