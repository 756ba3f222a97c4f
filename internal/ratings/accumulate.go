package ratings

import "math"

// fixedScale converts ratings to integer micro-points. Integer addition is
// associative, so the sums (and therefore the averages) do not depend on the
// order viewings are folded in.
const fixedScale = 1_000_000

// Accumulator keeps a running per-dimension sum and a shared count for one
// bucket. Division is deferred to Average.
type Accumulator struct {
	Key   Key
	count int
	sums  [NumDimensions]int64

	label     string
	labelDate Date
}

func NewAccumulator(key Key) *Accumulator {
	return &Accumulator{Key: key}
}

// Add folds one normalized rating vector into the bucket.
func (a *Accumulator) Add(v Vector) {
	for i, value := range v {
		a.sums[i] += int64(math.Round(value * fixedScale))
	}
	a.count++
}

// Merge folds another accumulator for the same bucket into a.
func (a *Accumulator) Merge(other *Accumulator) {
	for i := range a.sums {
		a.sums[i] += other.sums[i]
	}
	a.count += other.count
	a.offerLabel(other.label, other.labelDate)
}

func (a *Accumulator) Count() int {
	return a.count
}

// Average returns every dimension averaged over Count and rounded to one
// decimal place. ok is false when nothing has been folded.
func (a *Accumulator) Average() (avg Vector, ok bool) {
	if a.count == 0 {
		return Vector{}, false
	}
	for i, sum := range a.sums {
		avg[i] = roundTenth(float64(sum) / fixedScale / float64(a.count))
	}
	return avg, true
}

// offerLabel keeps the episode label of the most recent viewing, breaking
// ties on the smaller label so the outcome is independent of fold order.
func (a *Accumulator) offerLabel(label string, on Date) {
	if label == "" {
		return
	}
	switch {
	case a.label == "":
	case on.After(a.labelDate.Time):
	case on.Equal(a.labelDate.Time) && label < a.label:
	default:
		return
	}
	a.label = label
	a.labelDate = on
}
