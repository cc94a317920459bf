package library

import (
	"squiggle/interpreter-go/pkg/dist"
	"squiggle/interpreter-go/pkg/runtime"
)

var unitScales = []struct {
	suffix string
	scale  float64
}{
	{"n", 1e-9},
	{"m", 1e-3},
	{"%", 1e-2},
	{"k", 1e3},
	{"M", 1e6},
	{"B", 1e9},
	{"G", 1e9},
	{"T", 1e12},
}

// registerUnits adds fromUnit_<suffix> for the number suffixes, as in 5k.
func registerUnits(r *runtime.Registry) {
	for _, u := range unitScales {
		scale := u.scale
		r.Register("fromUnit_"+u.suffix,
			def(in(runtime.FRNumber), runtime.FRNumber,
				func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
					return runtime.Number(num(args[0]) * scale), nil
				}),
			def(in(runtime.FRDist), runtime.FRDist,
				func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
					return distResult(dist.Combine(distOf(args[0]), dist.PointMass{Value: scale}, dist.OpMultiply, ctx.Env, ctx.RNG, dist.AsDefault))
				}),
		)
	}
}
