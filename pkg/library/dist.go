package library

import (
	"fmt"
	"math"
	"strings"

	"squiggle/interpreter-go/pkg/dist"
	"squiggle/interpreter-go/pkg/runtime"
)

// symbolicMaker describes a distribution constructor over numeric
// parameters.
type symbolicMaker struct {
	name   string
	params int
	make   func(p []float64) (dist.Dist, error)
}

var symbolicMakers = []symbolicMaker{
	{"normal", 2, func(p []float64) (dist.Dist, error) { return dist.NewNormal(p[0], p[1]) }},
	{"lognormal", 2, func(p []float64) (dist.Dist, error) { return dist.NewLognormal(p[0], p[1]) }},
	{"uniform", 2, func(p []float64) (dist.Dist, error) { return dist.NewUniform(p[0], p[1]) }},
	{"beta", 2, func(p []float64) (dist.Dist, error) { return dist.NewBeta(p[0], p[1]) }},
	{"cauchy", 2, func(p []float64) (dist.Dist, error) { return dist.NewCauchy(p[0], p[1]) }},
	{"gamma", 2, func(p []float64) (dist.Dist, error) { return dist.NewGamma(p[0], p[1]) }},
	{"logistic", 2, func(p []float64) (dist.Dist, error) { return dist.NewLogistic(p[0], p[1]) }},
	{"exponential", 1, func(p []float64) (dist.Dist, error) { return dist.NewExponential(p[0]) }},
	{"bernoulli", 1, func(p []float64) (dist.Dist, error) { return dist.NewBernoulli(p[0]) }},
	{"pointMass", 1, func(p []float64) (dist.Dist, error) { return dist.NewPointMass(p[0]) }},
	{"triangular", 3, func(p []float64) (dist.Dist, error) { return dist.NewTriangular(p[0], p[1], p[2]) }},
}

func repeatType(t runtime.FRType, n int) []runtime.FRType {
	out := make([]runtime.FRType, n)
	for i := range out {
		out[i] = t
	}
	return out
}

// exact builds the definition taking plain numbers.
func (m symbolicMaker) exact() runtime.FnDefinition {
	return def(repeatType(runtime.FRNumber, m.params), runtime.FRDist,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			ps := make([]float64, len(args))
			for i, a := range args {
				ps[i] = num(a)
			}
			return distResult(m.make(ps))
		})
}

// sampled builds the definition that accepts distributions as parameters:
// parameters are drawn per sample and the result is a sample set.
func (m symbolicMaker) sampled() runtime.FnDefinition {
	return def(repeatType(runtime.FRDistOrNumber, m.params), runtime.FRSampleSet,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			n, err := sampleCount(ctx)
			if err != nil {
				return nil, err
			}
			draws := make([][]float64, len(args))
			names := make([]string, len(args))
			for i, a := range args {
				d := distOf(a)
				draws[i] = dist.SampleN(d, n, ctx.RNG)
				names[i] = runtime.ToString(a)
			}
			samples := make([]float64, n)
			ps := make([]float64, len(args))
			for j := range samples {
				if j%1000 == 0 {
					if err := ctx.Err(); err != nil {
						return nil, err
					}
				}
				for i := range ps {
					ps[i] = draws[i][j]
				}
				d, err := m.make(ps)
				if err != nil {
					return nil, runtime.DistError(err)
				}
				samples[j] = d.Sample(ctx.RNG)
			}
			s, err := dist.NewSampleSet(samples)
			if err != nil {
				return nil, runtime.DistError(err)
			}
			s.Lineage = fmt.Sprintf("%s(%s)", m.name, strings.Join(names, ", "))
			return runtime.NewDist(s), nil
		})
}

// fromDict builds a definition reading named parameters from a dict, as in
// normal({mean: 5, stdev: 2}).
func fromDict(keys []string, build func(p []float64) (dist.Dist, error)) runtime.FnDefinition {
	name := "{" + strings.Join(keys, ", ") + "}"
	check := runtime.NewFRType(name, func(v runtime.Value) bool {
		d, ok := v.(*runtime.DictValue)
		if !ok || d.Len() != len(keys) {
			return false
		}
		for _, k := range keys {
			f, ok := d.Get(k)
			if !ok || f.Kind() != runtime.KindNumber {
				return false
			}
		}
		return true
	})
	return def(in(check), runtime.FRDist,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			ps := make([]float64, len(keys))
			for i, k := range keys {
				v, _ := dict(args[0]).Get(k)
				ps[i] = num(v)
			}
			return distResult(build(ps))
		})
}

func credibleInterval(p []float64) (dist.Dist, error) { return dist.FromCredibleInterval(p[0], p[1]) }

func registerDist(r *runtime.Registry) {
	d := namespace{r: r, ns: "Dist", bare: true}

	for _, m := range symbolicMakers {
		d.add(m.name, m.exact(), m.sampled())
	}
	d.add("normal",
		fromDict([]string{"mean", "stdev"}, func(p []float64) (dist.Dist, error) { return dist.NewNormal(p[0], p[1]) }),
		fromDict([]string{"p5", "p95"}, func(p []float64) (dist.Dist, error) { return dist.NormalFromCredibleInterval(p[0], p[1]) }),
	)
	d.add("lognormal",
		fromDict([]string{"mean", "stdev"}, func(p []float64) (dist.Dist, error) { return dist.LognormalFromMeanStdev(p[0], p[1]) }),
		fromDict([]string{"p5", "p95"}, func(p []float64) (dist.Dist, error) { return dist.LognormalFromCredibleInterval(p[0], p[1]) }),
	)
	d.add("beta", fromDict([]string{"mean", "stdev"}, func(p []float64) (dist.Dist, error) { return dist.BetaFromMeanStdev(p[0], p[1]) }))

	to := symbolicMaker{name: "to", params: 2, make: credibleInterval}
	r.Register("credibleIntervalToDistribution", to.exact(), to.sampled())
	d.add("to", to.exact(), to.sampled())

	registerMixture(d)
	registerAlgebra(r)
	registerDistFunctions(d)
}

func registerMixture(d namespace) {
	mixture := func(ctx *runtime.CallContext, components []runtime.Value, weights []float64) (runtime.Value, error) {
		dists := make([]dist.Dist, len(components))
		for i, c := range components {
			dists[i] = distOf(c)
		}
		return distResult(dist.Mixture(dists, weights, ctx.Env, ctx.RNG))
	}
	defs := []runtime.FnDefinition{
		def(in(runtime.FRArray(runtime.FRDistOrNumber)), runtime.FRDist,
			func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
				return mixture(ctx, list(args[0]), nil)
			}),
		def(in(runtime.FRArray(runtime.FRDistOrNumber), runtime.FRArray(runtime.FRNumber)), runtime.FRDist,
			func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
				return mixture(ctx, list(args[0]), numbers(args[1]))
			}),
	}
	// mx(a, b, ...) with up to five components, weights optional last.
	for n := 1; n <= 5; n++ {
		defs = append(defs,
			def(repeatType(runtime.FRDistOrNumber, n), runtime.FRDist,
				func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
					return mixture(ctx, args, nil)
				}),
			def(append(repeatType(runtime.FRDistOrNumber, n), runtime.FRArray(runtime.FRNumber)), runtime.FRDist,
				func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
					return mixture(ctx, args[:len(args)-1], numbers(args[len(args)-1]))
				}),
		)
	}
	d.add("mx", defs...)
	d.add("mixture", defs...)
}

var algebraicOps = []struct {
	name string
	op   dist.AlgebraicOp
}{
	{"add", dist.OpAdd},
	{"subtract", dist.OpSubtract},
	{"multiply", dist.OpMultiply},
	{"divide", dist.OpDivide},
	{"pow", dist.OpPower},
}

var pointwiseOps = []struct {
	name string
	op   dist.AlgebraicOp
}{
	{"dotAdd", dist.OpAdd},
	{"dotSubtract", dist.OpSubtract},
	{"dotMultiply", dist.OpMultiply},
	{"dotDivide", dist.OpDivide},
	{"dotPow", dist.OpPower},
}

func registerAlgebra(r *runtime.Registry) {
	for _, a := range algebraicOps {
		op := a.op
		run := func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return distResult(dist.Combine(distOf(args[0]), distOf(args[1]), op, ctx.Env, ctx.RNG, dist.AsDefault))
		}
		r.Register(a.name,
			def(in(runtime.FRDist, runtime.FRNumber), runtime.FRDist, run),
			def(in(runtime.FRNumber, runtime.FRDist), runtime.FRDist, run),
			def(in(runtime.FRDist, runtime.FRDist), runtime.FRDist, run),
		)
	}
	for _, p := range pointwiseOps {
		op := p.op
		r.Register(p.name,
			def(in(runtime.FRDist, runtime.FRNumber), runtime.FRDist,
				func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
					return distResult(dist.Scale(distOf(args[0]), op, num(args[1]), ctx.Env))
				}),
			def(in(runtime.FRDist, runtime.FRDist), runtime.FRDist,
				func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
					return distResult(dist.Pointwise(distOf(args[0]), distOf(args[1]), op, ctx.Env))
				}),
		)
	}
	r.Register("unaryMinus", def(in(runtime.FRDist), runtime.FRDist,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return distResult(dist.Combine(distOf(args[0]), dist.PointMass{Value: -1}, dist.OpMultiply, ctx.Env, ctx.RNG, dist.AsDefault))
		}))
}

func d2n(fn func(d dist.Dist) (float64, error)) runtime.FnDefinition {
	return def(in(runtime.FRDist), runtime.FRNumber,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return numberResult(fn(distOf(args[0])))
		})
}

func dn2n(fn func(d dist.Dist, x float64, env dist.Env) (float64, error)) runtime.FnDefinition {
	return def(in(runtime.FRDist, runtime.FRNumber), runtime.FRNumber,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return numberResult(fn(distOf(args[0]), num(args[1]), ctx.Env))
		})
}

func registerDistFunctions(d namespace) {
	d.add("sample", def(in(runtime.FRDist), runtime.FRNumber,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.Number(distOf(args[0]).Sample(ctx.RNG)), nil
		}))
	d.add("sampleN", def(in(runtime.FRDist, runtime.FRNumber), runtime.FRArray(runtime.FRNumber),
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			n, err := checkLength(num(args[1]))
			if err != nil {
				return nil, err
			}
			return numberArray(dist.SampleN(distOf(args[0]), n, ctx.RNG)), nil
		}))
	d.add("mean", d2n(func(d dist.Dist) (float64, error) { return d.Mean() }))
	d.add("variance", d2n(func(d dist.Dist) (float64, error) { return d.Variance() }))
	d.add("stdev", d2n(dist.Stdev))
	d.add("min", d2n(func(d dist.Dist) (float64, error) { return d.Min(), nil }))
	d.add("max", d2n(func(d dist.Dist) (float64, error) { return d.Max(), nil }))
	d.add("integralSum", d2n(func(d dist.Dist) (float64, error) { return d.IntegralSum(), nil }))
	d.add("cdf", dn2n(func(d dist.Dist, x float64, _ dist.Env) (float64, error) { return d.Cdf(x), nil }))
	d.add("pdf", dn2n(func(d dist.Dist, x float64, env dist.Env) (float64, error) { return d.Pdf(x, env) }))
	d.add("inv", dn2n(func(d dist.Dist, p float64, _ dist.Env) (float64, error) { return d.Inv(p), nil }))
	d.add("quantile", dn2n(func(d dist.Dist, p float64, _ dist.Env) (float64, error) { return d.Inv(p), nil }))

	d.add("mode", d2n(dist.Mode))
	d.add("toPointSet", def(in(runtime.FRDist), runtime.FRPointSet,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return distResult(distOf(args[0]).ToPointSet(ctx.Env))
		}))

	// exp and log act on the random variable; dotExp on the density.
	d.add("exp", def(in(runtime.FRDist), runtime.FRDist,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return distResult(dist.Combine(dist.PointMass{Value: math.E}, distOf(args[0]), dist.OpPower, ctx.Env, ctx.RNG, dist.AsDefault))
		}))
	logBase := func(base float64) runtime.FnDefinition {
		return def(in(runtime.FRDist), runtime.FRDist,
			func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
				return distResult(dist.Combine(distOf(args[0]), dist.PointMass{Value: base}, dist.OpLogarithm, ctx.Env, ctx.RNG, dist.AsDefault))
			})
	}
	d.add("log", logBase(math.E))
	d.add("log10", logBase(10))
	d.add("dotExp", def(in(runtime.FRDist), runtime.FRDist,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			p, err := distOf(args[0]).ToPointSet(ctx.Env)
			if err != nil {
				return nil, runtime.DistError(err)
			}
			return distResult(p.MapY(func(y float64) (float64, error) { return math.Exp(y), nil }))
		}))

	d.add("normalize", def(in(runtime.FRDist), runtime.FRDist,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.NewDist(dist.Normalize(distOf(args[0]))), nil
		}))
	d.add("isNormalized", def(in(runtime.FRDist), runtime.FRBool,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.Bool(dist.IsNormalized(distOf(args[0]))), nil
		}))

	truncate := func(ctx *runtime.CallContext, v runtime.Value, left, right *float64) (runtime.Value, error) {
		return distResult(dist.Truncate(distOf(v), left, right, ctx.Env))
	}
	d.add("truncate", def(in(runtime.FRDist, runtime.FRNumber, runtime.FRNumber), runtime.FRDist,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return truncate(ctx, args[0], optNum(args[1]), optNum(args[2]))
		}))
	d.add("truncateLeft", def(in(runtime.FRDist, runtime.FRNumber), runtime.FRDist,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return truncate(ctx, args[0], optNum(args[1]), nil)
		}))
	d.add("truncateRight", def(in(runtime.FRDist, runtime.FRNumber), runtime.FRDist,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return truncate(ctx, args[0], nil, optNum(args[1]))
		}))

	scale := func(op dist.AlgebraicOp) runtime.FnDefinition {
		return def(in(runtime.FRDist, runtime.FRNumber), runtime.FRDist,
			func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
				return distResult(dist.Scale(distOf(args[0]), op, num(args[1]), ctx.Env))
			})
	}
	d.add("scaleMultiply", scale(dist.OpMultiply))
	d.add("scalePow", scale(dist.OpPower))
	d.add("scaleLog", scale(dist.OpLogarithm))

	fold := func(op dist.AlgebraicOp) runtime.FnDefinition {
		return def(in(runtime.FRArray(runtime.FRDistOrNumber)), runtime.FRDist,
			func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
				elems := list(args[0])
				if len(elems) == 0 {
					return nil, argumentError("List is empty")
				}
				acc := distOf(elems[0])
				for _, e := range elems[1:] {
					next, err := dist.Combine(acc, distOf(e), op, ctx.Env, ctx.RNG, dist.AsDefault)
					if err != nil {
						return nil, runtime.DistError(err)
					}
					acc = next
				}
				return runtime.NewDist(acc), nil
			})
	}
	d.add("sum", fold(dist.OpAdd))
	d.add("product", fold(dist.OpMultiply))

	d.add("logScore", def(in(runtime.FRDict), runtime.FRNumber, logScore))
}

// logScore reads {estimate, answer, prior?}. A numeric answer is scored by
// density; a distribution answer by divergence.
func logScore(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
	params := dict(args[0])
	estimateV, ok := params.Get("estimate")
	if !ok || estimateV.Kind() != runtime.KindDist {
		return nil, argumentError("logScore requires an estimate distribution")
	}
	answerV, ok := params.Get("answer")
	if !ok || (answerV.Kind() != runtime.KindDist && answerV.Kind() != runtime.KindNumber) {
		return nil, argumentError("logScore requires an answer distribution or number")
	}
	var prior dist.Dist
	if p, ok := params.Get("prior"); ok {
		if p.Kind() != runtime.KindDist {
			return nil, argumentError("logScore prior must be a distribution")
		}
		prior = distOf(p)
	}
	estimate := distOf(estimateV)
	if n, ok := answerV.(runtime.NumberValue); ok {
		return numberResult(dist.LogScoreScalar(estimate, n.Val, prior, ctx.Env))
	}
	return numberResult(dist.LogScoreDist(estimate, distOf(answerV), prior, ctx.Env))
}
