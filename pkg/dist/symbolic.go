package dist

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"squiggle/interpreter-go/pkg/dist/pointset"
)

const (
	minCdfValue = 0.0001
	maxCdfValue = 0.9999
	// 95th percentile of the standard normal; a 90% interval spans twice it.
	normal95confidencePoint = 1.6448536269514722
)

// Symbolic is a distribution with a closed form.
type Symbolic interface {
	Dist
	symbolic()
}

type (
	Normal struct {
		Mu, Sigma float64
	}
	Lognormal struct {
		Mu, Sigma float64
	}
	Uniform struct {
		Low, High float64
	}
	Beta struct {
		Alpha, Beta float64
	}
	Exponential struct {
		Rate float64
	}
	Cauchy struct {
		Local, Scale float64
	}
	Triangular struct {
		Low, Medium, High float64
	}
	Gamma struct {
		Shape, Scale float64
	}
	Logistic struct {
		Location, Scale float64
	}
	Bernoulli struct {
		P float64
	}
	// PointMass is a single number viewed as a distribution.
	PointMass struct {
		Value float64
	}
)

func (Normal) symbolic()      {}
func (Lognormal) symbolic()   {}
func (Uniform) symbolic()     {}
func (Beta) symbolic()        {}
func (Exponential) symbolic() {}
func (Cauchy) symbolic()      {}
func (Triangular) symbolic()  {}
func (Gamma) symbolic()       {}
func (Logistic) symbolic()    {}
func (Bernoulli) symbolic()   {}
func (PointMass) symbolic()   {}

func NewNormal(mean, stdev float64) (Normal, error) {
	if !(stdev > 0) {
		return Normal{}, argumentError("Standard deviation of normal distribution must be larger than 0")
	}
	return Normal{Mu: mean, Sigma: stdev}, nil
}

func NewLognormal(mu, sigma float64) (Lognormal, error) {
	if !(sigma > 0) {
		return Lognormal{}, argumentError("Lognormal standard deviation must be larger than 0")
	}
	return Lognormal{Mu: mu, Sigma: sigma}, nil
}

// LognormalFromMeanStdev parameterizes a lognormal by its own mean and
// standard deviation.
func LognormalFromMeanStdev(mean, stdev float64) (Lognormal, error) {
	if !(mean > 0) {
		return Lognormal{}, argumentError("Lognormal mean must be larger than 0")
	}
	if !(stdev > 0) {
		return Lognormal{}, argumentError("Lognormal standard deviation must be larger than 0")
	}
	variance := stdev * stdev
	meanSquared := mean * mean
	mu := 2*math.Log(mean) - 0.5*math.Log(variance+meanSquared)
	sigma := math.Sqrt(math.Log(variance/meanSquared + 1))
	return Lognormal{Mu: mu, Sigma: sigma}, nil
}

func NewUniform(low, high float64) (Uniform, error) {
	if !(high > low) {
		return Uniform{}, argumentError("High must be larger than low")
	}
	return Uniform{Low: low, High: high}, nil
}

func NewBeta(alpha, beta float64) (Beta, error) {
	if !(alpha > 0 && beta > 0) {
		return Beta{}, argumentError("Beta distribution parameters must be positive")
	}
	return Beta{Alpha: alpha, Beta: beta}, nil
}

// BetaFromMeanStdev solves for the parameters with the given moments.
func BetaFromMeanStdev(mean, stdev float64) (Beta, error) {
	if !(0 < stdev && stdev <= 0.5) {
		return Beta{}, argumentError("Stdev must be in in between 0 and 0.5.")
	}
	if !(0 <= mean && mean <= 1) {
		return Beta{}, argumentError("Mean must be in between 0 and 1.0.")
	}
	sampleSize := mean*(1-mean)/(stdev*stdev) - 1
	return NewBeta(mean*sampleSize, (1-mean)*sampleSize)
}

func NewExponential(rate float64) (Exponential, error) {
	if !(rate > 0) {
		return Exponential{}, argumentError("Exponential distributions rate must be larger than 0.")
	}
	return Exponential{Rate: rate}, nil
}

func NewCauchy(local, scale float64) (Cauchy, error) {
	if !(scale > 0) {
		return Cauchy{}, argumentError("Cauchy distribution scale parameter must larger than 0.")
	}
	return Cauchy{Local: local, Scale: scale}, nil
}

func NewTriangular(low, medium, high float64) (Triangular, error) {
	if !(low < medium && medium < high) {
		return Triangular{}, argumentError("Triangular values must be increasing order.")
	}
	return Triangular{Low: low, Medium: medium, High: high}, nil
}

func NewGamma(shape, scale float64) (Gamma, error) {
	if !(shape > 0) {
		return Gamma{}, argumentError("shape must be larger than 0")
	}
	if !(scale > 0) {
		return Gamma{}, argumentError("scale must be larger than 0")
	}
	return Gamma{Shape: shape, Scale: scale}, nil
}

func NewLogistic(location, scale float64) (Logistic, error) {
	if !(scale > 0) {
		return Logistic{}, argumentError("Scale must be positive")
	}
	return Logistic{Location: location, Scale: scale}, nil
}

func NewBernoulli(p float64) (Bernoulli, error) {
	if !(p >= 0 && p <= 1) {
		return Bernoulli{}, argumentError("Bernoulli parameter must be between 0 and 1")
	}
	return Bernoulli{P: p}, nil
}

func NewPointMass(v float64) (PointMass, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return PointMass{}, argumentError("Float must be finite")
	}
	return PointMass{Value: v}, nil
}

// NormalFromCredibleInterval treats [low, high] as a 90% interval.
func NormalFromCredibleInterval(low, high float64) (Normal, error) {
	return NewNormal((low+high)/2, (high-low)/(2*normal95confidencePoint))
}

func LognormalFromCredibleInterval(low, high float64) (Lognormal, error) {
	if !(low > 0) {
		return Lognormal{}, argumentError("Low value must be above 0")
	}
	logLow, logHigh := math.Log(low), math.Log(high)
	return NewLognormal((logLow+logHigh)/2, (logHigh-logLow)/(2*normal95confidencePoint))
}

// FromCredibleInterval implements `low to high`: a normal when the interval
// reaches zero or below, a lognormal otherwise.
func FromCredibleInterval(low, high float64) (Symbolic, error) {
	switch {
	case low <= 0 && low < high:
		return NormalFromCredibleInterval(low, high)
	case low < high:
		return LognormalFromCredibleInterval(low, high)
	}
	return nil, argumentError("Low value must be less than high value.")
}

// Normal

func (d Normal) gonum(r *rand.Rand) distuv.Normal {
	return distuv.Normal{Mu: d.Mu, Sigma: d.Sigma, Src: source(r)}
}
func (d Normal) Mean() (float64, error)     { return d.Mu, nil }
func (d Normal) Variance() (float64, error) { return d.Sigma * d.Sigma, nil }
func (d Normal) Cdf(x float64) float64      { return d.gonum(nil).CDF(x) }
func (d Normal) Pdf(x float64, _ Env) (float64, error) {
	return d.gonum(nil).Prob(x), nil
}
func (d Normal) Inv(p float64) float64       { return quantile(d.gonum(nil).Quantile, p) }
func (d Normal) Sample(r *rand.Rand) float64 { return d.gonum(r).Rand() }
func (d Normal) Min() float64                { return d.Inv(minCdfValue) }
func (d Normal) Max() float64                { return d.Inv(maxCdfValue) }
func (d Normal) IntegralSum() float64        { return 1 }
func (d Normal) ToPointSet(env Env) (*PointSet, error) {
	return symbolicToPointSet(d, env)
}
func (d Normal) String() string { return fmt.Sprintf("Normal(%v,%v)", d.Mu, d.Sigma) }

// Lognormal

func (d Lognormal) gonum(r *rand.Rand) distuv.LogNormal {
	return distuv.LogNormal{Mu: d.Mu, Sigma: d.Sigma, Src: source(r)}
}
func (d Lognormal) Mean() (float64, error) { return math.Exp(d.Mu + d.Sigma*d.Sigma/2), nil }
func (d Lognormal) Variance() (float64, error) {
	s2 := d.Sigma * d.Sigma
	return (math.Exp(s2) - 1) * math.Exp(2*d.Mu+s2), nil
}
func (d Lognormal) Cdf(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return d.gonum(nil).CDF(x)
}
func (d Lognormal) Pdf(x float64, _ Env) (float64, error) {
	if x <= 0 {
		return 0, nil
	}
	return d.gonum(nil).Prob(x), nil
}
func (d Lognormal) Inv(p float64) float64       { return quantile(d.gonum(nil).Quantile, p) }
func (d Lognormal) Sample(r *rand.Rand) float64 { return d.gonum(r).Rand() }
func (d Lognormal) Min() float64                { return d.Inv(minCdfValue) }
func (d Lognormal) Max() float64                { return d.Inv(maxCdfValue) }
func (d Lognormal) IntegralSum() float64        { return 1 }
func (d Lognormal) ToPointSet(env Env) (*PointSet, error) {
	return symbolicToPointSet(d, env)
}
func (d Lognormal) String() string { return fmt.Sprintf("Lognormal(%v,%v)", d.Mu, d.Sigma) }

// Uniform

func (d Uniform) gonum(r *rand.Rand) distuv.Uniform {
	return distuv.Uniform{Min: d.Low, Max: d.High, Src: source(r)}
}
func (d Uniform) Mean() (float64, error) { return (d.Low + d.High) / 2, nil }
func (d Uniform) Variance() (float64, error) {
	w := d.High - d.Low
	return w * w / 12, nil
}
func (d Uniform) Cdf(x float64) float64 { return d.gonum(nil).CDF(x) }
func (d Uniform) Pdf(x float64, _ Env) (float64, error) {
	return d.gonum(nil).Prob(x), nil
}
func (d Uniform) Inv(p float64) float64       { return quantile(d.gonum(nil).Quantile, p) }
func (d Uniform) Sample(r *rand.Rand) float64 { return d.gonum(r).Rand() }
func (d Uniform) Min() float64                { return d.Low }
func (d Uniform) Max() float64                { return d.High }
func (d Uniform) IntegralSum() float64        { return 1 }

// ToPointSet uses an even grid with vertical edges at both bounds.
func (d Uniform) ToPointSet(env Env) (*PointSet, error) {
	n := max(env.XYPointLength, 2)
	density := 1 / (d.High - d.Low)
	xs := make([]float64, n+2)
	ys := make([]float64, n+2)
	floats.Span(xs[1:n+1], d.Low, d.High)
	xs[0], xs[n+1] = d.Low, d.High
	for i := 1; i <= n; i++ {
		ys[i] = density
	}
	return newContinuousPointSet(xs, ys)
}
func (d Uniform) String() string { return fmt.Sprintf("Uniform(%v,%v)", d.Low, d.High) }

// Beta

func (d Beta) gonum(r *rand.Rand) distuv.Beta {
	return distuv.Beta{Alpha: d.Alpha, Beta: d.Beta, Src: source(r)}
}
func (d Beta) Mean() (float64, error) { return d.Alpha / (d.Alpha + d.Beta), nil }
func (d Beta) Variance() (float64, error) {
	s := d.Alpha + d.Beta
	return d.Alpha * d.Beta / (s * s * (s + 1)), nil
}
func (d Beta) Cdf(x float64) float64 {
	switch {
	case x <= 0:
		return 0
	case x >= 1:
		return 1
	}
	return d.gonum(nil).CDF(x)
}
func (d Beta) Pdf(x float64, _ Env) (float64, error) {
	if x < 0 || x > 1 {
		return 0, nil
	}
	return d.gonum(nil).Prob(x), nil
}
func (d Beta) Inv(p float64) float64       { return quantile(d.gonum(nil).Quantile, p) }
func (d Beta) Sample(r *rand.Rand) float64 { return d.gonum(r).Rand() }
func (d Beta) Min() float64                { return d.Inv(minCdfValue) }
func (d Beta) Max() float64                { return d.Inv(maxCdfValue) }
func (d Beta) IntegralSum() float64        { return 1 }
func (d Beta) ToPointSet(env Env) (*PointSet, error) {
	return symbolicToPointSet(d, env)
}
func (d Beta) String() string { return fmt.Sprintf("Beta(%v,%v)", d.Alpha, d.Beta) }

// Exponential

func (d Exponential) gonum(r *rand.Rand) distuv.Exponential {
	return distuv.Exponential{Rate: d.Rate, Src: source(r)}
}
func (d Exponential) Mean() (float64, error)     { return 1 / d.Rate, nil }
func (d Exponential) Variance() (float64, error) { return 1 / (d.Rate * d.Rate), nil }
func (d Exponential) Cdf(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return d.gonum(nil).CDF(x)
}
func (d Exponential) Pdf(x float64, _ Env) (float64, error) {
	if x < 0 {
		return 0, nil
	}
	return d.gonum(nil).Prob(x), nil
}
func (d Exponential) Inv(p float64) float64       { return quantile(d.gonum(nil).Quantile, p) }
func (d Exponential) Sample(r *rand.Rand) float64 { return d.gonum(r).Rand() }
func (d Exponential) Min() float64                { return d.Inv(minCdfValue) }
func (d Exponential) Max() float64                { return d.Inv(maxCdfValue) }
func (d Exponential) IntegralSum() float64        { return 1 }
func (d Exponential) ToPointSet(env Env) (*PointSet, error) {
	return symbolicToPointSet(d, env)
}
func (d Exponential) String() string { return fmt.Sprintf("Exponential(%v)", d.Rate) }

// Cauchy

var errCauchyMoments = otherError("Cauchy distributions may have no mean value.")

func (d Cauchy) Mean() (float64, error)     { return 0, errCauchyMoments }
func (d Cauchy) Variance() (float64, error) { return 0, errCauchyMoments }
func (d Cauchy) Cdf(x float64) float64 {
	return 0.5 + math.Atan((x-d.Local)/d.Scale)/math.Pi
}
func (d Cauchy) Pdf(x float64, _ Env) (float64, error) {
	z := (x - d.Local) / d.Scale
	return 1 / (math.Pi * d.Scale * (1 + z*z)), nil
}
func (d Cauchy) Inv(p float64) float64 {
	return d.Local + d.Scale*math.Tan(math.Pi*(p-0.5))
}
func (d Cauchy) Sample(r *rand.Rand) float64 { return d.Inv(r.Float64()) }
func (d Cauchy) Min() float64                { return d.Inv(minCdfValue) }
func (d Cauchy) Max() float64                { return d.Inv(maxCdfValue) }
func (d Cauchy) IntegralSum() float64        { return 1 }
func (d Cauchy) ToPointSet(env Env) (*PointSet, error) {
	return symbolicToPointSet(d, env)
}
func (d Cauchy) String() string { return fmt.Sprintf("Cauchy(%v,%v)", d.Local, d.Scale) }

// Triangular

func (d Triangular) gonum(r *rand.Rand) distuv.Triangle {
	return distuv.NewTriangle(d.Low, d.High, d.Medium, source(r))
}
func (d Triangular) Mean() (float64, error) { return (d.Low + d.Medium + d.High) / 3, nil }
func (d Triangular) Variance() (float64, error) {
	a, b, c := d.Low, d.High, d.Medium
	return (a*a + b*b + c*c - a*b - a*c - b*c) / 18, nil
}
func (d Triangular) Cdf(x float64) float64 { return d.gonum(nil).CDF(x) }
func (d Triangular) Pdf(x float64, _ Env) (float64, error) {
	return d.gonum(nil).Prob(x), nil
}
func (d Triangular) Inv(p float64) float64       { return quantile(d.gonum(nil).Quantile, p) }
func (d Triangular) Sample(r *rand.Rand) float64 { return d.gonum(r).Rand() }
func (d Triangular) Min() float64                { return d.Low }
func (d Triangular) Max() float64                { return d.High }
func (d Triangular) IntegralSum() float64        { return 1 }
func (d Triangular) ToPointSet(env Env) (*PointSet, error) {
	return symbolicToPointSet(d, env)
}
func (d Triangular) String() string {
	return fmt.Sprintf("Triangular(%v,%v,%v)", d.Low, d.Medium, d.High)
}

// Gamma

func (d Gamma) gonum(r *rand.Rand) distuv.Gamma {
	return distuv.Gamma{Alpha: d.Shape, Beta: 1 / d.Scale, Src: source(r)}
}
func (d Gamma) Mean() (float64, error)     { return d.Shape * d.Scale, nil }
func (d Gamma) Variance() (float64, error) { return d.Shape * d.Scale * d.Scale, nil }
func (d Gamma) Cdf(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return d.gonum(nil).CDF(x)
}
func (d Gamma) Pdf(x float64, _ Env) (float64, error) {
	if x < 0 {
		return 0, nil
	}
	return d.gonum(nil).Prob(x), nil
}
func (d Gamma) Inv(p float64) float64       { return quantile(d.gonum(nil).Quantile, p) }
func (d Gamma) Sample(r *rand.Rand) float64 { return d.gonum(r).Rand() }
func (d Gamma) Min() float64                { return d.Inv(minCdfValue) }
func (d Gamma) Max() float64                { return d.Inv(maxCdfValue) }
func (d Gamma) IntegralSum() float64        { return 1 }
func (d Gamma) ToPointSet(env Env) (*PointSet, error) {
	return symbolicToPointSet(d, env)
}
func (d Gamma) String() string { return fmt.Sprintf("Gamma(%v,%v)", d.Shape, d.Scale) }

// Logistic

func (d Logistic) gonum() distuv.Logistic {
	return distuv.Logistic{Mu: d.Location, S: d.Scale}
}
func (d Logistic) Mean() (float64, error)     { return d.gonum().Mean(), nil }
func (d Logistic) Variance() (float64, error) { return d.gonum().Variance(), nil }
func (d Logistic) Cdf(x float64) float64      { return d.gonum().CDF(x) }
func (d Logistic) Pdf(x float64, _ Env) (float64, error) {
	return d.gonum().Prob(x), nil
}
func (d Logistic) Inv(p float64) float64       { return d.gonum().Quantile(p) }
func (d Logistic) Sample(r *rand.Rand) float64 { return d.Inv(r.Float64()) }
func (d Logistic) Min() float64                { return d.Inv(minCdfValue) }
func (d Logistic) Max() float64                { return d.Inv(maxCdfValue) }
func (d Logistic) IntegralSum() float64        { return 1 }
func (d Logistic) ToPointSet(env Env) (*PointSet, error) {
	return symbolicToPointSet(d, env)
}
func (d Logistic) String() string { return fmt.Sprintf("Logistic(%v,%v)", d.Location, d.Scale) }

// Bernoulli

func (d Bernoulli) gonum(r *rand.Rand) distuv.Bernoulli {
	return distuv.Bernoulli{P: d.P, Src: source(r)}
}
func (d Bernoulli) Mean() (float64, error)     { return d.P, nil }
func (d Bernoulli) Variance() (float64, error) { return d.gonum(nil).Variance(), nil }
func (d Bernoulli) Cdf(x float64) float64      { return d.gonum(nil).CDF(x) }
func (d Bernoulli) Pdf(x float64, _ Env) (float64, error) {
	return d.gonum(nil).Prob(x), nil
}
func (d Bernoulli) Inv(p float64) float64       { return quantile(d.gonum(nil).Quantile, p) }
func (d Bernoulli) Sample(r *rand.Rand) float64 { return d.gonum(r).Rand() }
func (d Bernoulli) Min() float64 {
	if d.P == 1 {
		return 1
	}
	return 0
}
func (d Bernoulli) Max() float64 {
	if d.P == 0 {
		return 0
	}
	return 1
}
func (d Bernoulli) IntegralSum() float64 { return 1 }
func (d Bernoulli) ToPointSet(Env) (*PointSet, error) {
	return &PointSet{Shape: pointset.Mixed{Discrete: pointset.NewDiscrete([]float64{0, 1}, []float64{1 - d.P, d.P})}}, nil
}
func (d Bernoulli) String() string { return fmt.Sprintf("Bernoulli(%v)", d.P) }

// PointMass

func (d PointMass) Mean() (float64, error)     { return d.Value, nil }
func (d PointMass) Variance() (float64, error) { return 0, nil }
func (d PointMass) Cdf(x float64) float64 {
	if x < d.Value {
		return 0
	}
	return 1
}
func (d PointMass) Pdf(x float64, _ Env) (float64, error) {
	if x == d.Value {
		return 1, nil
	}
	return 0, nil
}
func (d PointMass) Inv(float64) float64       { return d.Value }
func (d PointMass) Sample(*rand.Rand) float64 { return d.Value }
func (d PointMass) Min() float64              { return d.Value }
func (d PointMass) Max() float64              { return d.Value }
func (d PointMass) IntegralSum() float64      { return 1 }
func (d PointMass) ToPointSet(Env) (*PointSet, error) {
	return &PointSet{Shape: pointset.Mixed{Discrete: pointset.NewDiscrete([]float64{d.Value}, []float64{1})}}, nil
}
func (d PointMass) String() string { return fmt.Sprintf("PointMass(%v)", d.Value) }

// symbolicToPointSet samples the density at inverse-cdf spaced points, so
// the grid is dense where the mass is.
func symbolicToPointSet(d Symbolic, env Env) (*PointSet, error) {
	n := max(env.XYPointLength, 2)
	ps := floats.Span(make([]float64, n), minCdfValue, maxCdfValue)
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for _, p := range ps {
		x := d.Inv(p)
		if len(xs) > 0 && x <= xs[len(xs)-1] {
			continue
		}
		y, err := d.Pdf(x, env)
		if err != nil {
			return nil, err
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	p, err := newContinuousPointSet(xs, ys)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func newContinuousPointSet(xs, ys []float64) (*PointSet, error) {
	shape, err := pointset.MakeShape(xs, ys)
	if err != nil {
		return nil, &Error{Kind: XYShapeError, Message: err.Error()}
	}
	return &PointSet{Shape: pointset.Mixed{Continuous: pointset.Continuous{Shape: shape}}}, nil
}

// quantile clamps p so the edges return the support bounds instead of NaN.
func quantile(q func(float64) float64, p float64) float64 {
	switch {
	case p <= 0:
		return q(0)
	case p >= 1:
		return q(1)
	}
	return q(p)
}

// source adapts a generator to the gonum source interface; nil stays nil
// for the methods that never draw.
func source(r *rand.Rand) rand.Source {
	if r == nil {
		return nil
	}
	return r
}
