package recognition

import (
	"math"

	"github.com/google/uuid"
)

// Params are the matching knobs, passed explicitly on every call.
type Params struct {
	// Tolerance is the maximum acceptable Euclidean distance between probe
	// and a stored encoding. Lower is stricter. A match requires the best
	// distance to be strictly below it.
	Tolerance float64
}

// Candidate is one active employee with their stored encodings.
type Candidate struct {
	EmployeeID uuid.UUID
	Name       string
	Encodings  [][]float32
}

// Match is the outcome of scanning a probe against a candidate set.
// It is ephemeral and never persisted as-is.
type Match struct {
	Matched    bool
	EmployeeID uuid.UUID
	Name       string
	Distance   float64
	Confidence float64
}

// Distance computes the Euclidean distance between two encodings.
// Mismatched or empty vectors yield +Inf so they can never win a scan.
func Distance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Confidence derives the display score from an accepted distance:
// max(0, (1-distance)*100). It ranks matches; it is not a probability.
func Confidence(distance float64) float64 {
	c := (1 - distance) * 100
	if c < 0 {
		return 0
	}
	return c
}

// BestMatch scans every stored encoding of every candidate and tracks the
// single smallest distance to the probe. The global minimum must be strictly
// below p.Tolerance to count as a match; otherwise the result is unmatched.
func BestMatch(probe []float32, candidates []Candidate, p Params) Match {
	best := Match{Distance: math.Inf(1)}

	for _, cand := range candidates {
		for _, enc := range cand.Encodings {
			d := Distance(probe, enc)
			if d < best.Distance && d < p.Tolerance {
				best.Matched = true
				best.EmployeeID = cand.EmployeeID
				best.Name = cand.Name
				best.Distance = d
			}
		}
	}

	if best.Matched {
		best.Confidence = Confidence(best.Distance)
	}
	return best
}
