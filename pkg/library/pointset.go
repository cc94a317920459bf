package library

import (
	"squiggle/interpreter-go/pkg/dist"
	"squiggle/interpreter-go/pkg/runtime"
)

var frPoint = runtime.NewFRType("{x: Number, y: Number}", func(v runtime.Value) bool {
	d, ok := v.(*runtime.DictValue)
	if !ok {
		return false
	}
	x, okX := d.Get("x")
	y, okY := d.Get("y")
	return okX && okY && x.Kind() == runtime.KindNumber && y.Kind() == runtime.KindNumber
})

func points(v runtime.Value) (xs, ys []float64) {
	for _, p := range list(v) {
		x, _ := dict(p).Get("x")
		y, _ := dict(p).Get("y")
		xs = append(xs, num(x))
		ys = append(ys, num(y))
	}
	return xs, ys
}

func registerPointSet(r *runtime.Registry) {
	p := namespace{r: r, ns: "PointSet"}
	fromDist := def(in(runtime.FRDist), runtime.FRPointSet,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return distResult(distOf(args[0]).ToPointSet(ctx.Env))
		})
	fromNumber := def(in(runtime.FRNumber), runtime.FRPointSet,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return distResult(dist.NewDiscretePointSet([]float64{num(args[0])}, []float64{1}))
		})
	p.add("fromDist", fromDist)
	p.add("fromNumber", fromNumber)
	p.add("make", fromDist, fromNumber)
	p.add("downsample", def(in(runtime.FRPointSet, runtime.FRNumber), runtime.FRPointSet,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			n, err := checkLength(num(args[1]))
			if err != nil {
				return nil, err
			}
			return runtime.NewDist(args[0].(*runtime.DistValue).Dist.(*dist.PointSet).Downsample(n)), nil
		}))
	p.add("makeContinuous", def(in(runtime.FRArray(frPoint)), runtime.FRPointSet,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return distResult(dist.NewContinuousPointSet(points(args[0])))
		}))
	p.add("makeDiscrete", def(in(runtime.FRArray(frPoint)), runtime.FRPointSet,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return distResult(dist.NewDiscretePointSet(points(args[0])))
		}))
	p.add("mapY", def(in(runtime.FRPointSet, runtime.FRLambda), runtime.FRPointSet,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			call := mapNumbers(ctx, lambda(args[1]))
			ps := args[0].(*runtime.DistValue).Dist.(*dist.PointSet)
			return distResult(ps.MapY(func(y float64) (float64, error) { return call(y) }))
		}))
}
