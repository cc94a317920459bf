package pointset

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestMakeShapeRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name string
		xs   []float64
		ys   []float64
	}{
		{"length mismatch", []float64{1, 2}, []float64{1}},
		{"unsorted", []float64{2, 1}, []float64{1, 1}},
		{"nan", []float64{1, math.NaN()}, []float64{1, 1}},
		{"infinite y", []float64{1, 2}, []float64{1, math.Inf(1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := MakeShape(tc.xs, tc.ys); err == nil {
				t.Fatalf("expected error for xs=%v ys=%v", tc.xs, tc.ys)
			}
		})
	}
}

func TestLinearAtInterpolatesAndExtrapolates(t *testing.T) {
	s := XYShape{Xs: []float64{0, 1, 2}, Ys: []float64{0, 2, 0}}
	cases := []struct {
		x    float64
		ext  Extrapolation
		want float64
	}{
		{0.5, UseZero, 1},
		{1, UseZero, 2},
		{1.5, UseZero, 1},
		{-1, UseZero, 0},
		{3, UseOutermostPoints, 0},
		{-1, UseOutermostPoints, 0},
	}
	for _, tc := range cases {
		if got := s.LinearAt(tc.x, tc.ext); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("LinearAt(%v)=%v want=%v", tc.x, got, tc.want)
		}
	}
}

func TestContinuousIntegralAndMoments(t *testing.T) {
	// triangle on [0, 2] peaking at 1 with area 1
	c := Continuous{Shape: XYShape{Xs: []float64{0, 1, 2}, Ys: []float64{0, 1, 0}}}
	m := Mixed{Continuous: c}
	if got := m.IntegralSum(); math.Abs(got-1) > 1e-12 {
		t.Fatalf("integral=%v want=1", got)
	}
	if got := m.Mean(); math.Abs(got-1) > 1e-12 {
		t.Fatalf("mean=%v want=1", got)
	}
	if got := m.Variance(); math.Abs(got-1.0/6) > 1e-9 {
		t.Fatalf("variance=%v want=%v", got, 1.0/6)
	}
	if got := m.Cdf(1); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("cdf(1)=%v want=0.5", got)
	}
	if got := m.Inv(0.5); math.Abs(got-1) > 1e-9 {
		t.Fatalf("inv(0.5)=%v want=1", got)
	}
}

func TestDiscreteMergesDuplicatePoints(t *testing.T) {
	d := NewDiscrete([]float64{3, 1, 3}, []float64{0.25, 0.5, 0.25})
	if d.Shape.Len() != 2 {
		t.Fatalf("expected 2 points, got %v", d.Shape.Xs)
	}
	if got := d.MassAt(3); got != 0.5 {
		t.Fatalf("mass at 3=%v want=0.5", got)
	}
	if got := d.Cdf(2); got != 0.5 {
		t.Fatalf("cdf(2)=%v want=0.5", got)
	}
	m := Mixed{Discrete: d}
	if got := m.Inv(0.75); got != 3 {
		t.Fatalf("inv(0.75)=%v want=3", got)
	}
}

func TestFromSamplesProducesWellFormedShape(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	samples := make([]float64, 2000)
	for i := range samples {
		samples[i] = r.NormFloat64()*3 + 10
	}
	const outputLength = 100
	m, err := FromSamples(samples, outputLength)
	if err != nil {
		t.Fatalf("FromSamples: %v", err)
	}
	if !m.Discrete.IsEmpty() {
		t.Fatalf("unexpected discrete part: %v", m.Discrete.Shape.Xs)
	}
	s := m.Continuous.Shape
	if n := s.Len(); n < outputLength-1 || n > outputLength+1 {
		t.Fatalf("length=%d want within 1 of %d", n, outputLength)
	}
	for i, y := range s.Ys {
		if math.IsNaN(y) || math.IsInf(y, 0) || y < 0 {
			t.Fatalf("bad y at %d: %v", i, y)
		}
		if i > 0 && s.Xs[i] < s.Xs[i-1] {
			t.Fatalf("xs not sorted at %d", i)
		}
	}
	if s.Ys[0] != 0 || s.Ys[s.Len()-1] != 0 {
		t.Fatalf("ends should be zero, got %v and %v", s.Ys[0], s.Ys[s.Len()-1])
	}
	if got := m.IntegralSum(); math.Abs(got-1) > 1e-9 {
		t.Fatalf("integral=%v want=1", got)
	}
	if got := m.Mean(); math.Abs(got-10) > 0.5 {
		t.Fatalf("mean=%v want≈10", got)
	}
}

func TestFromSamplesSplitsRepeatedValues(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	samples := make([]float64, 0, 100)
	for range 30 {
		samples = append(samples, 5)
	}
	for range 70 {
		samples = append(samples, 100+r.Float64()*10)
	}
	m, err := FromSamples(samples, 50)
	if err != nil {
		t.Fatalf("FromSamples: %v", err)
	}
	if got := m.Discrete.MassAt(5); math.Abs(got-0.3) > 1e-12 {
		t.Fatalf("mass at 5=%v want=0.3", got)
	}
	if got := m.Continuous.IntegralSum(); math.Abs(got-0.7) > 1e-9 {
		t.Fatalf("continuous weight=%v want=0.7", got)
	}
}

func TestFromSamplesKeepsFewValuesDiscrete(t *testing.T) {
	m, err := FromSamples([]float64{1, 2, 3}, 50)
	if err != nil {
		t.Fatalf("FromSamples: %v", err)
	}
	if !m.Continuous.IsEmpty() || m.Discrete.Shape.Len() != 3 {
		t.Fatalf("expected three point masses, got %+v", m)
	}
	if _, err := FromSamples([]float64{math.NaN()}, 50); err == nil {
		t.Fatalf("expected error for no finite samples")
	}
}

func TestCombineAlgebraicallyDiscrete(t *testing.T) {
	coin := Mixed{Discrete: NewDiscrete([]float64{0, 1}, []float64{0.5, 0.5})}
	sum := CombineAlgebraically(ConvAdd, coin, coin)
	want := map[float64]float64{0: 0.25, 1: 0.5, 2: 0.25}
	if sum.Discrete.Shape.Len() != len(want) {
		t.Fatalf("got xs=%v", sum.Discrete.Shape.Xs)
	}
	for x, mass := range want {
		if got := sum.Discrete.MassAt(x); math.Abs(got-mass) > 1e-12 {
			t.Fatalf("mass at %v=%v want=%v", x, got, mass)
		}
	}
}

func TestCombineAlgebraicallyShiftsContinuousByDiscrete(t *testing.T) {
	tri := Mixed{Continuous: Continuous{Shape: XYShape{Xs: []float64{0, 1, 2}, Ys: []float64{0, 1, 0}}}}
	shift := Mixed{Discrete: NewDiscrete([]float64{10}, []float64{1})}
	out := CombineAlgebraically(ConvAdd, tri, shift)
	if got := out.Mean(); math.Abs(got-11) > 1e-9 {
		t.Fatalf("mean=%v want=11", got)
	}
	out = CombineAlgebraically(ConvSubtract, shift, tri)
	if got := out.Mean(); math.Abs(got-9) > 1e-9 {
		t.Fatalf("mean=%v want=9", got)
	}
}

func TestCombineAlgebraicallyContinuousAddsMeans(t *testing.T) {
	a := Mixed{Continuous: Continuous{Shape: XYShape{Xs: []float64{0, 1, 2}, Ys: []float64{0, 1, 0}}}}
	b := Mixed{Continuous: Continuous{Shape: XYShape{Xs: []float64{4, 5, 6}, Ys: []float64{0, 1, 0}}}}
	out := CombineAlgebraically(ConvAdd, a, b)
	if got := out.IntegralSum(); math.Abs(got-1) > 0.02 {
		t.Fatalf("integral=%v want≈1", got)
	}
	if got := out.Normalize().Mean(); math.Abs(got-6) > 0.05 {
		t.Fatalf("mean=%v want≈6", got)
	}
}

func TestMixtureWeightsComponents(t *testing.T) {
	a := Mixed{Discrete: NewDiscrete([]float64{0}, []float64{1})}
	b := Mixed{Discrete: NewDiscrete([]float64{1}, []float64{1})}
	m, err := Mixture([]Mixed{a, b}, []float64{1, 3})
	if err != nil {
		t.Fatalf("Mixture: %v", err)
	}
	if got := m.Discrete.MassAt(1); math.Abs(got-0.75) > 1e-12 {
		t.Fatalf("mass at 1=%v want=0.75", got)
	}
	if _, err := Mixture(nil, nil); err == nil {
		t.Fatalf("expected error for empty mixture")
	}
}

func TestTruncateAddsZeroEdges(t *testing.T) {
	c := Continuous{Shape: XYShape{Xs: []float64{0, 1, 2, 3, 4}, Ys: []float64{1, 1, 1, 1, 1}}}
	left, right := 1.0, 3.0
	out := Mixed{Continuous: c}.Truncate(&left, &right)
	s := out.Continuous.Shape
	if s.Ys[0] != 0 || s.Ys[s.Len()-1] != 0 {
		t.Fatalf("expected zero edges, got %v", s.Ys)
	}
	if got := out.MinX(); got >= left {
		t.Fatalf("min=%v should sit just below %v", got, left)
	}
}

func TestDownsample(t *testing.T) {
	xs := make([]float64, 101)
	ys := make([]float64, 101)
	for i := range xs {
		xs[i] = float64(i) / 50
		ys[i] = 1 - math.Abs(xs[i]-1)
	}
	c := Continuous{Shape: XYShape{Xs: xs, Ys: ys}}.Downsample(11)
	if n := c.Shape.Len(); n < 2 || n > 11 {
		t.Fatalf("downsampled to %d points", n)
	}
	if got := c.IntegralSum(); math.Abs(got-1) > 0.05 {
		t.Fatalf("integral=%v want about 1", got)
	}
	if got := (Mixed{Continuous: c}).Mean(); math.Abs(got-1) > 0.02 {
		t.Fatalf("mean=%v want about 1", got)
	}

	d := NewDiscrete([]float64{1, 2, 3, 4}, []float64{0.1, 0.4, 0.2, 0.3}).Downsample(2)
	if len(d.Shape.Xs) != 2 || d.Shape.Xs[0] != 2 || d.Shape.Xs[1] != 4 {
		t.Fatalf("kept xs=%v want [2 4]", d.Shape.Xs)
	}

	small := Continuous{Shape: XYShape{Xs: []float64{0, 1, 2}, Ys: []float64{0, 1, 0}}}
	if got := small.Downsample(10); got.Shape.Len() != 3 {
		t.Fatalf("short shape changed: %v", got.Shape)
	}
}
