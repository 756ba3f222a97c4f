package ratings

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"testing"
)

func intPtr(i int) *int {
	return &i
}

func newViewing(target string, r map[Dimension]float64) Viewing {
	return Viewing{
		TargetID:  target,
		RaterID:   "rater",
		WatchedOn: NewDate(2024, 10, 31),
		Ratings:   r,
	}
}

func fullRatings(value float64) map[Dimension]float64 {
	r := make(map[Dimension]float64)
	for _, d := range Dimensions() {
		r[d] = value
	}
	return r
}

func randomViewings(rng *rand.Rand, n int) []Viewing {
	targets := []string{"100", "200", "tv_300", "tv_400"}
	var out []Viewing
	for i := 0; i < n; i++ {
		r := make(map[Dimension]float64)
		for _, d := range Dimensions() {
			// Leave some dimensions out so the defaults take part too.
			if rng.Intn(4) == 0 {
				continue
			}
			r[d] = float64(rng.Intn(21)) / 2
		}
		v := newViewing(targets[rng.Intn(len(targets))], r)
		v.ID = fmt.Sprintf("v%d", i)
		if rng.Intn(2) == 0 {
			v.Season = intPtr(1 + rng.Intn(2))
			v.Episode = intPtr(1 + rng.Intn(3))
		}
		out = append(out, v)
	}
	return out
}

func TestAggregateAveragesStayInBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	res := Aggregate(randomViewings(rng, 200), nil)
	if res.Skipped != 0 {
		t.Fatalf("Skipped = %d, want 0", res.Skipped)
	}

	for _, s := range Sets() {
		for _, b := range res.Table(s).Buckets() {
			for _, d := range Dimensions() {
				avg := b.Average(d)
				if avg < MinRating || avg > MaxRating {
					t.Errorf("%s %s: average %s = %v out of [0, 10]", s, b.ID, d, avg)
				}
			}
		}
	}
}

func TestAggregateIsOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	viewings := randomViewings(rng, 150)
	want := Aggregate(viewings, nil)

	for i := 0; i < 25; i++ {
		shuffled := make([]Viewing, len(viewings))
		copy(shuffled, viewings)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		got := Aggregate(shuffled, nil)
		for _, s := range Sets() {
			if !reflect.DeepEqual(got.Table(s).Buckets(), want.Table(s).Buckets()) {
				t.Fatalf("permutation %d: %s buckets differ from original order", i, s)
			}
		}
	}
}

func TestNormalizeDerivesEnjoyment(t *testing.T) {
	v := newViewing("100", map[Dimension]float64{Story: 6, Rewatch: 4, Cozy: 8})
	vec, err := Normalize(v)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got := vec.Get(Enjoyment); got != 6.0 {
		t.Errorf("enjoyment = %v, want 6.0", got)
	}
	if got := vec.Get(Gore); got != DefaultRating {
		t.Errorf("gore = %v, want default %v", got, DefaultRating)
	}

	res := Aggregate([]Viewing{v}, nil)
	b, ok := res.Find(SetMovies, "100")
	if !ok {
		t.Fatalf("movie bucket 100 missing")
	}
	if got := b.Average(Enjoyment); got != 6.0 {
		t.Errorf("aggregated enjoyment = %v, want 6.0", got)
	}
}

func TestNormalizeKeepsExplicitEnjoyment(t *testing.T) {
	v := newViewing("100", map[Dimension]float64{Enjoyment: 2, Story: 10, Rewatch: 10, Cozy: 10})
	vec, err := Normalize(v)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got := vec.Get(Enjoyment); got != 2 {
		t.Errorf("enjoyment = %v, want 2", got)
	}
}

func TestRerankMatchesFreshRank(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	viewings := randomViewings(rng, 80)

	res := Aggregate(viewings, nil)
	if _, err := res.Movies.Rank(Overall, 0); err != nil {
		t.Fatalf("Rank(overall): %v", err)
	}

	for _, d := range Dimensions() {
		reranked, err := res.Movies.Rank(d, -1)
		if err != nil {
			t.Fatalf("Rank(%s): %v", d, err)
		}
		fresh, err := Aggregate(viewings, nil).Movies.Rank(d, -1)
		if err != nil {
			t.Fatalf("fresh Rank(%s): %v", d, err)
		}
		if !reflect.DeepEqual(reranked, fresh) {
			t.Errorf("re-ranking by %s differs from a fresh pass", d)
		}
	}
}

func TestShowAndEpisodeBuckets(t *testing.T) {
	ep1 := newViewing("tv_1396", fullRatings(8))
	ep1.Season, ep1.Episode = intPtr(1), intPtr(1)
	ep2 := newViewing("tv_1396", fullRatings(6))
	ep2.Season, ep2.Episode = intPtr(1), intPtr(2)
	showLevel := newViewing("tv_1396", fullRatings(4))

	res := Aggregate([]Viewing{ep1, ep2, showLevel}, nil)

	if got := res.Episodes.Len(); got != 2 {
		t.Errorf("episode buckets = %d, want 2", got)
	}
	if got := res.Shows.Len(); got != 1 {
		t.Fatalf("show buckets = %d, want 1", got)
	}
	if got := res.Movies.Len(); got != 0 {
		t.Errorf("movie buckets = %d, want 0", got)
	}

	show, _ := res.Find(SetShows, "tv_1396")
	if show.SampleCount != 3 {
		t.Errorf("show SampleCount = %d, want 3", show.SampleCount)
	}
	if got := show.Average(Gore); got != 6.0 {
		t.Errorf("show gore average = %v, want 6.0", got)
	}

	ep, ok := res.Find(SetEpisodes, EpisodeID("tv_1396", 1, 2))
	if !ok {
		t.Fatalf("episode bucket s1e2 missing")
	}
	if ep.SampleCount != 1 || ep.Average(Overall) != 6 {
		t.Errorf("episode s1e2 = %+v, want one sample averaging 6", ep)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	res := Aggregate(nil, nil)
	for _, s := range Sets() {
		rows, err := res.Table(s).Rank(Overall, 0)
		if err != nil {
			t.Fatalf("%s Rank: %v", s, err)
		}
		if len(rows) != 0 {
			t.Errorf("%s: got %d rows, want 0", s, len(rows))
		}
	}
	if res.Skipped != 0 || res.Processed != 0 {
		t.Errorf("Processed/Skipped = %d/%d, want 0/0", res.Processed, res.Skipped)
	}
}

func TestRankCapsAndOrders(t *testing.T) {
	var viewings []Viewing
	for score := 0; score <= 10; score++ {
		viewings = append(viewings, newViewing(fmt.Sprintf("movie-%02d", score), map[Dimension]float64{
			Overall: float64(score),
		}))
	}

	rows, err := Aggregate(viewings, nil).Movies.Rank(Overall, 10)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(rows) != 10 {
		t.Fatalf("got %d rows, want 10", len(rows))
	}
	if rows[0].Average(Overall) != 10 {
		t.Errorf("first row overall = %v, want 10", rows[0].Average(Overall))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Average(Overall) >= rows[i-1].Average(Overall) {
			t.Errorf("row %d (%v) not strictly below row %d (%v)", i, rows[i].Average(Overall), i-1, rows[i-1].Average(Overall))
		}
	}
	for _, r := range rows {
		if r.ID == "movie-00" {
			t.Errorf("lowest scored movie should have been cut")
		}
	}
}

func TestRankTieBreakIsDeterministic(t *testing.T) {
	viewings := []Viewing{
		newViewing("zeta", map[Dimension]float64{Gore: 7}),
		newViewing("alpha", map[Dimension]float64{Gore: 7}),
		newViewing("mid", map[Dimension]float64{Gore: 7}),
		newViewing("top", map[Dimension]float64{Gore: 9}),
	}
	want := []string{"top", "alpha", "mid", "zeta"}

	for run := 0; run < 20; run++ {
		rows, err := Aggregate(viewings, nil).Movies.Rank(Gore, 0)
		if err != nil {
			t.Fatalf("Rank: %v", err)
		}
		var got []string
		for _, r := range rows {
			got = append(got, r.ID)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("run %d: order = %v, want %v", run, got, want)
		}
	}
}

func TestRankUnknownDimension(t *testing.T) {
	res := Aggregate([]Viewing{newViewing("100", nil)}, nil)
	if _, err := res.Movies.Rank(Dimension("vibes"), 0); !errors.Is(err, ErrUnknownDimension) {
		t.Errorf("Rank(vibes) error = %v, want ErrUnknownDimension", err)
	}
	if _, err := res.Movies.RankBy("vibes", 0); !errors.Is(err, ErrUnknownDimension) {
		t.Errorf("RankBy(vibes) error = %v, want ErrUnknownDimension", err)
	}
	rows, err := res.Movies.RankBy(" Dread ", 0)
	if err != nil || len(rows) != 1 {
		t.Errorf("RankBy(\" Dread \") = %v, %v; want one row", rows, err)
	}
}

func TestAggregateSkipsMalformedViewings(t *testing.T) {
	good := newViewing("100", map[Dimension]float64{Overall: 4})
	outOfRange := newViewing("100", map[Dimension]float64{Overall: 11})
	outOfRange.ID = "too-high"
	noRater := newViewing("100", nil)
	noRater.RaterID = ""
	noTarget := newViewing("", nil)
	unknownKey := newViewing("100", map[Dimension]float64{"vibes": 3})
	blankTarget := newViewing("  ", nil)
	blankRater := newViewing("100", nil)
	blankRater.RaterID = " \t"

	res := Aggregate([]Viewing{good, outOfRange, noRater, noTarget, unknownKey, blankTarget, blankRater}, nil)

	if res.Skipped != 6 {
		t.Errorf("Skipped = %d, want 6", res.Skipped)
	}
	if res.Processed != 1 {
		t.Errorf("Processed = %d, want 1", res.Processed)
	}
	if len(res.Defects) != 6 || res.Defects[0].Index != 1 || res.Defects[0].ViewingID != "too-high" {
		t.Errorf("Defects = %+v", res.Defects)
	}
	for _, d := range res.Defects {
		if !errors.Is(d.Err, ErrMalformed) {
			t.Errorf("defect %d error %v does not wrap ErrMalformed", d.Index, d.Err)
		}
	}

	b, _ := res.Find(SetMovies, "100")
	if b.SampleCount != 1 || b.Average(Overall) != 4 {
		t.Errorf("bucket = %+v, want one sample averaging 4", b)
	}
	if res.Movies.Len() != 1 {
		t.Errorf("Movies has %d buckets, want only 100", res.Movies.Len())
	}
}

func TestAggregateEnrichment(t *testing.T) {
	ep := newViewing("tv_1", fullRatings(5))
	ep.Season, ep.Episode = intPtr(2), intPtr(3)
	ep.EpisodeLabel = "Old Title"
	ep.WatchedOn = NewDate(2024, 1, 1)

	later := ep
	later.EpisodeLabel = "The Long Night"
	later.WatchedOn = NewDate(2024, 2, 1)

	catalog := MapCatalog{
		"tv_1": {Title: "Haunting", Year: 2018, PosterPath: "/p.jpg", Kind: KindShow},
	}
	res := Aggregate([]Viewing{later, ep, newViewing("999", nil)}, catalog)

	show, _ := res.Find(SetShows, "tv_1")
	if show.DisplayTitle != "Haunting" || show.DisplaySubtitle != "2018" || show.PosterRef != "/p.jpg" {
		t.Errorf("show enrichment = %+v", show)
	}

	epBucket, _ := res.Find(SetEpisodes, EpisodeID("tv_1", 2, 3))
	if want := "S2E3 - The Long Night"; epBucket.DisplaySubtitle != want {
		t.Errorf("episode subtitle = %q, want %q", epBucket.DisplaySubtitle, want)
	}

	unknown, ok := res.Find(SetMovies, "999")
	if !ok {
		t.Fatalf("unresolved target should still produce a bucket")
	}
	if unknown.DisplayTitle != "999" || unknown.PosterRef != "" || unknown.DisplaySubtitle != "" {
		t.Errorf("unresolved enrichment = %+v", unknown)
	}
}

func TestSummarize(t *testing.T) {
	viewings := []Viewing{
		newViewing("tv_9", map[Dimension]float64{Overall: 3}),
		newViewing("tv_9", map[Dimension]float64{Overall: 4}),
	}
	b, _, ok := Summarize("tv_9", viewings, nil)
	if !ok {
		t.Fatalf("Summarize found nothing")
	}
	if b.SampleCount != 2 || b.Average(Overall) != 3.5 {
		t.Errorf("summary = %+v", b)
	}
}
