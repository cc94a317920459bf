package library

import (
	"strings"

	"squiggle/interpreter-go/pkg/runtime"
)

func registerString(r *runtime.Registry) {
	s := namespace{r: r, ns: "String"}
	concat := def(in(runtime.FRString, runtime.FRString), runtime.FRString,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.String(str(args[0]) + str(args[1])), nil
		})
	r.Register("add", concat)
	s.add("concat", concat)
	s.add("make", def(in(runtime.FRAny), runtime.FRString,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.String(display(args[0])), nil
		}))
	s.add("split", def(in(runtime.FRString, runtime.FRString), runtime.FRArray(runtime.FRString),
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			parts := strings.Split(str(args[0]), str(args[1]))
			out := make([]runtime.Value, len(parts))
			for i, p := range parts {
				out[i] = runtime.String(p)
			}
			return runtime.NewArray(out), nil
		}))
}

// display is ToString without quotes around a top-level string.
func display(v runtime.Value) string {
	if s, ok := v.(runtime.StringValue); ok {
		return s.Val
	}
	return runtime.ToString(v)
}
