package difficulty

import (
	"math"

	"github.com/abhisek/quizcraft/internal/lesson"
)

// Band is the rating interval assigned to a level. Only the hardest band
// includes its upper bound, which keeps bands disjoint.
type Band struct {
	Low, High float64
	Closed    bool
}

// Midpoint is the rating given to a level partition that cannot be scaled.
func (b Band) Midpoint() float64 {
	return (b.Low + b.High) / 2
}

// Top returns the largest rating inside the band.
func (b Band) Top() float64 {
	if b.Closed {
		return b.High
	}
	return math.Nextafter(b.High, b.Low)
}

// Contains reports whether r lies inside the band.
func (b Band) Contains(r float64) bool {
	if r < b.Low {
		return false
	}
	if b.Closed {
		return r <= b.High
	}
	return r < b.High
}

var bands = map[lesson.Level]Band{
	lesson.Easy:   {Low: 800, High: 1200},
	lesson.Medium: {Low: 1200, High: 1600},
	lesson.Hard:   {Low: 1600, High: 2000, Closed: true},
}

// BandFor returns the fixed rating band of a level.
func BandFor(level lesson.Level) Band {
	return bands[level]
}

// AssignRatings rates every question of one lesson. Ratings are only
// comparable within the lesson they were computed for.
func AssignRatings(questionsByLevel map[lesson.Level][]lesson.QuestionSpec) map[string]float64 {
	type entry struct {
		id    string
		level lesson.Level
	}

	var (
		entries []entry
		vectors []FeatureVector
	)
	for _, lvl := range lesson.Levels {
		for _, q := range questionsByLevel[lvl] {
			entries = append(entries, entry{id: q.ID, level: lvl})
			vectors = append(vectors, Extract(q.Content))
		}
	}

	ratings := make(map[string]float64, len(entries))
	if len(entries) == 0 {
		return ratings
	}

	raw := project(vectors)

	for _, lvl := range lesson.Levels {
		var idx []int
		for i, e := range entries {
			if e.level == lvl {
				idx = append(idx, i)
			}
		}
		if len(idx) == 0 {
			continue
		}

		scores := make([]float64, len(idx))
		for k, i := range idx {
			scores[k] = raw[i]
		}
		for k, r := range rescale(scores, BandFor(lvl)) {
			ratings[entries[idx[k]].id] = r
		}
	}
	return ratings
}

// rescale min-max normalizes scores onto band. A partition with zero range
// (including a single score) maps every score to the band midpoint.
func rescale(scores []float64, band Band) []float64 {
	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}

	out := make([]float64, len(scores))
	span := hi - lo
	if len(scores) == 1 || span <= 1e-12*math.Max(1, math.Abs(hi)) {
		for i := range out {
			out[i] = band.Midpoint()
		}
		return out
	}

	top := band.Top()
	for i, s := range scores {
		r := band.Low + (s-lo)/span*(top-band.Low)
		out[i] = math.Min(math.Max(r, band.Low), top)
	}
	return out
}
