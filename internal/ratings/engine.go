// Package ratings aggregates viewing ratings into ranked per-movie, per-show
// and per-episode averages.
package ratings

// Defect describes a viewing that was left out of an aggregation pass.
type Defect struct {
	Index     int
	ViewingID string
	Err       error
}

// Result holds the three finalized bucket sets of one aggregation pass.
type Result struct {
	Movies   *Table
	Shows    *Table
	Episodes *Table

	// Processed counts viewings that were folded into at least one bucket.
	Processed int
	// Skipped counts malformed viewings; Defects says why.
	Skipped int
	Defects []Defect
}

// Table returns the bucket set s, or nil for an unknown set.
func (r *Result) Table(s Set) *Table {
	switch s {
	case SetMovies:
		return r.Movies
	case SetShows:
		return r.Shows
	case SetEpisodes:
		return r.Episodes
	}
	return nil
}

// Find looks up one bucket by set and id.
func (r *Result) Find(s Set, id string) (Bucket, bool) {
	t := r.Table(s)
	if t == nil {
		return Bucket{}, false
	}
	return t.Find(id)
}

// Aggregate classifies, accumulates and finalizes viewings in one pass. It
// performs no I/O: catalog must already hold whatever metadata is available
// and may be nil. Malformed viewings are skipped and reported, never fatal.
//
// The returned Result shares nothing with other calls, so independent passes
// may run concurrently.
func Aggregate(viewings []Viewing, catalog Catalog) *Result {
	accs := map[Set]map[Key]*Accumulator{
		SetMovies:   {},
		SetShows:    {},
		SetEpisodes: {},
	}
	res := &Result{}

	for i, v := range viewings {
		vec, err := Normalize(v)
		if err != nil {
			res.Skipped++
			res.Defects = append(res.Defects, Defect{Index: i, ViewingID: v.ID, Err: err})
			continue
		}

		var meta Metadata
		var known bool
		if catalog != nil {
			meta, known = catalog.Lookup(v.TargetID)
		}

		for _, key := range Classify(v, meta, known) {
			set := accs[key.Set]
			acc, ok := set[key]
			if !ok {
				acc = NewAccumulator(key)
				set[key] = acc
			}
			acc.Add(vec)
			if key.Set == SetEpisodes {
				acc.offerLabel(v.EpisodeLabel, v.WatchedOn)
			}
		}
		res.Processed++
	}

	res.Movies = newTable(SetMovies, accs[SetMovies], catalog)
	res.Shows = newTable(SetShows, accs[SetShows], catalog)
	res.Episodes = newTable(SetEpisodes, accs[SetEpisodes], catalog)
	return res
}

// Summarize aggregates viewings that all belong to one target and returns its
// bucket from whichever set the target classifies into.
func Summarize(targetID string, viewings []Viewing, catalog Catalog) (Bucket, *Result, bool) {
	res := Aggregate(viewings, catalog)
	for _, s := range []Set{SetMovies, SetShows} {
		if b, ok := res.Find(s, targetID); ok {
			return b, res, true
		}
	}
	return Bucket{}, res, false
}
