package library

import (
	"squiggle/interpreter-go/pkg/runtime"
)

// IndexLookup is the builtin behind `a.b` and `a[b]`.
const IndexLookup = "$_atIndex_$"

func dictGet(d *runtime.DictValue, key string) (runtime.Value, error) {
	v, ok := d.Get(key)
	if !ok {
		return nil, runtime.NewError(runtime.ErrDictPropertyNotFound, "Dict property not found: %s", key)
	}
	return v, nil
}

func registerIndex(r *runtime.Registry) {
	r.Register(IndexLookup,
		def(in(runtime.FRArray(runtime.FRAny), runtime.FRNumber), runtime.FRAny,
			func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
				return arrayIndex(list(args[0]), num(args[1]))
			}),
		def(in(runtime.FRArray(runtime.FRAny), runtime.FRAny), runtime.FRAny,
			func(_ *runtime.CallContext, _ []runtime.Value) (runtime.Value, error) {
				return nil, otherError("Can't access non-numerical key on an array")
			}),
		def(in(runtime.FRDict, runtime.FRString), runtime.FRAny,
			func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
				return dictGet(dict(args[0]), str(args[1]))
			}),
		def(in(runtime.FRDict, runtime.FRNumber), runtime.FRAny,
			func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
				return dictGet(dict(args[0]), runtime.FormatNumber(num(args[1])))
			}),
	)
}

func registerDict(r *runtime.Registry) {
	registerIndex(r)
	d := namespace{r: r, ns: "Dict"}
	d.add("size", def(in(runtime.FRDict), runtime.FRNumber,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.Number(float64(dict(args[0]).Len())), nil
		}))
	d.add("keys", def(in(runtime.FRDict), runtime.FRArray(runtime.FRString),
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			keys := dict(args[0]).Keys()
			out := make([]runtime.Value, len(keys))
			for i, k := range keys {
				out[i] = runtime.String(k)
			}
			return runtime.NewArray(out), nil
		}))
	d.add("values", def(in(runtime.FRDict), runtime.FRArray(runtime.FRAny),
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			entries := dict(args[0]).Entries()
			out := make([]runtime.Value, len(entries))
			for i, e := range entries {
				out[i] = e.Value
			}
			return runtime.NewArray(out), nil
		}))
	d.add("toList", def(in(runtime.FRDict), runtime.FRArray(runtime.FRAny),
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			entries := dict(args[0]).Entries()
			out := make([]runtime.Value, len(entries))
			for i, e := range entries {
				out[i] = runtime.NewArray([]runtime.Value{runtime.String(e.Key), e.Value})
			}
			return runtime.NewArray(out), nil
		}))
	d.add("fromList", def(in(runtime.FRArray(runtime.FRTuple(runtime.FRString, runtime.FRAny))), runtime.FRDict,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			pairs := list(args[0])
			entries := make([]runtime.DictEntry, len(pairs))
			for i, p := range pairs {
				kv := list(p)
				entries[i] = runtime.DictEntry{Key: str(kv[0]), Value: kv[1]}
			}
			return runtime.NewDict(entries...), nil
		}))
	d.add("set", def(in(runtime.FRDict, runtime.FRString, runtime.FRAny), runtime.FRDict,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return dict(args[0]).Set(str(args[1]), args[2]), nil
		}))
	d.add("has", def(in(runtime.FRDict, runtime.FRString), runtime.FRBool,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			_, ok := dict(args[0]).Get(str(args[1]))
			return runtime.Bool(ok), nil
		}))
	d.add("delete", def(in(runtime.FRDict, runtime.FRString), runtime.FRDict,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			key := str(args[1])
			var kept []runtime.DictEntry
			for _, e := range dict(args[0]).Entries() {
				if e.Key != key {
					kept = append(kept, e)
				}
			}
			return runtime.NewDict(kept...), nil
		}))
	d.add("merge", def(in(runtime.FRDict, runtime.FRDict), runtime.FRDict,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return dict(args[0]).Merge(dict(args[1])), nil
		}))
	d.add("map", def(in(runtime.FRDict, runtime.FRLambda), runtime.FRDict,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			entries := dict(args[0]).Entries()
			for i, e := range entries {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				v, err := ctx.Call(lambda(args[1]), []runtime.Value{e.Value})
				if err != nil {
					return nil, err
				}
				entries[i].Value = v
			}
			return runtime.NewDict(entries...), nil
		}))
	d.add("mergeMany", def(in(runtime.FRArray(runtime.FRDict)), runtime.FRDict,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			var entries []runtime.DictEntry
			for _, e := range list(args[0]) {
				entries = append(entries, dict(e).Entries()...)
			}
			return runtime.NewDict(entries...), nil
		}))
	d.add("mapKeys", def(in(runtime.FRDict, runtime.FRLambda), runtime.FRDict,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			entries := dict(args[0]).Entries()
			for i, e := range entries {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				k, err := ctx.Call(lambda(args[1]), []runtime.Value{runtime.String(e.Key)})
				if err != nil {
					return nil, err
				}
				key, ok := k.(runtime.StringValue)
				if !ok {
					return nil, argumentError("mapKeys: lambda must return a string")
				}
				entries[i].Key = key.Val
			}
			return runtime.NewDict(entries...), nil
		}))

	d.add("pick", def(in(runtime.FRDict, runtime.FRArray(runtime.FRString)), runtime.FRDict,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			src := dict(args[0])
			var out []runtime.DictEntry
			for _, k := range list(args[1]) {
				if v, ok := src.Get(str(k)); ok {
					out = append(out, runtime.DictEntry{Key: str(k), Value: v})
				}
			}
			return runtime.NewDict(out...), nil
		}))
	d.add("omit", def(in(runtime.FRDict, runtime.FRArray(runtime.FRString)), runtime.FRDict,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			omitted := map[string]bool{}
			for _, k := range list(args[1]) {
				omitted[str(k)] = true
			}
			var out []runtime.DictEntry
			for _, e := range dict(args[0]).Entries() {
				if !omitted[e.Key] {
					out = append(out, e)
				}
			}
			return runtime.NewDict(out...), nil
		}))
}
