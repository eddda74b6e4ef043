package recognition

import (
	"math"
	"testing"

	"github.com/google/uuid"
)

// encodingAtDistance builds a 128-d vector whose Euclidean distance to the
// zero vector is exactly d.
func encodingAtDistance(d float32) []float32 {
	v := make([]float32, 128)
	v[0] = d
	return v
}

func probe() []float32 {
	return make([]float32, 128)
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"unit apart", []float32{0, 0}, []float32{1, 0}, 1},
		{"pythagorean", []float32{0, 0}, []float32{3, 4}, 5},
		{"negative components", []float32{-1, 0}, []float32{1, 0}, 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Distance(tc.a, tc.b)
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("Distance(%v, %v) = %f; want %f", tc.a, tc.b, got, tc.expected)
			}
		})
	}
}

func TestDistanceInvalidInput(t *testing.T) {
	if d := Distance([]float32{1, 2}, []float32{1, 2, 3}); !math.IsInf(d, 1) {
		t.Errorf("mismatched lengths should give +Inf, got %f", d)
	}
	if d := Distance(nil, nil); !math.IsInf(d, 1) {
		t.Errorf("empty vectors should give +Inf, got %f", d)
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		distance float64
		expected float64
	}{
		{0, 100},
		{0.38, 62},
		{0.5, 50},
		{1, 0},
		{1.5, 0}, // clamped, never negative
	}

	for _, tc := range tests {
		got := Confidence(tc.distance)
		if math.Abs(got-tc.expected) > 1e-9 {
			t.Errorf("Confidence(%f) = %f; want %f", tc.distance, got, tc.expected)
		}
	}
}

func TestConfidenceStrictlyDecreasing(t *testing.T) {
	prev := Confidence(0)
	for d := 0.01; d < 1.0; d += 0.01 {
		c := Confidence(d)
		if c >= prev {
			t.Fatalf("confidence not strictly decreasing at d=%f: %f >= %f", d, c, prev)
		}
		prev = c
	}
}

func TestBestMatchGlobalMinimum(t *testing.T) {
	// Candidate A holds encodings at distances 0.5 and 0.38 from the probe,
	// candidate B at 0.6. With tolerance 0.4, A wins on the global minimum.
	a := Candidate{
		EmployeeID: uuid.New(),
		Name:       "A",
		Encodings:  [][]float32{encodingAtDistance(0.5), encodingAtDistance(0.38)},
	}
	b := Candidate{
		EmployeeID: uuid.New(),
		Name:       "B",
		Encodings:  [][]float32{encodingAtDistance(0.6)},
	}

	m := BestMatch(probe(), []Candidate{a, b}, Params{Tolerance: 0.4})

	if !m.Matched {
		t.Fatal("expected a match")
	}
	if m.EmployeeID != a.EmployeeID {
		t.Errorf("matched %s; want candidate A", m.Name)
	}
	if math.Abs(m.Distance-0.38) > 1e-6 {
		t.Errorf("distance = %f; want 0.38", m.Distance)
	}
	if math.Abs(m.Confidence-62.0) > 1e-4 {
		t.Errorf("confidence = %f; want 62.0", m.Confidence)
	}
}

func TestBestMatchNoMatch(t *testing.T) {
	cand := Candidate{
		EmployeeID: uuid.New(),
		Encodings:  [][]float32{encodingAtDistance(0.45)},
	}

	m := BestMatch(probe(), []Candidate{cand}, Params{Tolerance: 0.4})
	if m.Matched {
		t.Errorf("distance 0.45 should not match at tolerance 0.4")
	}
}

func TestBestMatchToleranceIsStrict(t *testing.T) {
	cand := Candidate{
		EmployeeID: uuid.New(),
		Encodings:  [][]float32{encodingAtDistance(0.4)},
	}

	// Acceptance requires distance strictly below the tolerance.
	if m := BestMatch(probe(), []Candidate{cand}, Params{Tolerance: 0.4}); m.Matched {
		t.Errorf("distance == tolerance should not match")
	}
	if m := BestMatch(probe(), []Candidate{cand}, Params{Tolerance: 0.41}); !m.Matched {
		t.Errorf("distance just under tolerance should match")
	}
}

func TestBestMatchMonotonicInTolerance(t *testing.T) {
	cands := []Candidate{
		{EmployeeID: uuid.New(), Encodings: [][]float32{encodingAtDistance(0.3)}},
		{EmployeeID: uuid.New(), Encodings: [][]float32{encodingAtDistance(0.55)}},
	}

	p := probe()
	matchedBefore := false
	for tol := 0.1; tol <= 1.0; tol += 0.05 {
		m := BestMatch(p, cands, Params{Tolerance: tol})
		if matchedBefore && !m.Matched {
			t.Fatalf("raising tolerance to %f turned a match into a rejection", tol)
		}
		if m.Matched {
			matchedBefore = true
		}
	}
}

func TestBestMatchSkipsMismatchedDimensions(t *testing.T) {
	good := encodingAtDistance(0.2)
	cand := Candidate{
		EmployeeID: uuid.New(),
		Name:       "mixed",
		Encodings:  [][]float32{{1, 2, 3}, good},
	}

	m := BestMatch(probe(), []Candidate{cand}, Params{Tolerance: 0.4})
	if !m.Matched {
		t.Fatal("valid encoding should still match despite a malformed sibling")
	}
	if math.Abs(m.Distance-0.2) > 1e-6 {
		t.Errorf("distance = %f; want 0.2", m.Distance)
	}
}

func TestBestMatchEmptyCandidates(t *testing.T) {
	if m := BestMatch(probe(), nil, Params{Tolerance: 0.4}); m.Matched {
		t.Error("no candidates should never match")
	}
}

func TestBestMatchEnrollThenProbe(t *testing.T) {
	// Enroll three samples; a fourth capture within tolerance of one of
	// them must resolve to the same identity.
	id := uuid.New()
	enrolled := Candidate{
		EmployeeID: id,
		Name:       "subject",
		Encodings: [][]float32{
			encodingAtDistance(0.9),
			encodingAtDistance(0.7),
			encodingAtDistance(0.1),
		},
	}
	other := Candidate{
		EmployeeID: uuid.New(),
		Name:       "other",
		Encodings:  [][]float32{encodingAtDistance(0.8)},
	}

	m := BestMatch(probe(), []Candidate{other, enrolled}, Params{Tolerance: 0.4})
	if !m.Matched || m.EmployeeID != id {
		t.Fatalf("probe should match the enrolled subject, got %+v", m)
	}
}
