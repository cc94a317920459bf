package library

import (
	"squiggle/interpreter-go/pkg/runtime"
)

func tagsOf(v runtime.Value) runtime.Tags {
	if t := v.Tags(); t != nil {
		return *t
	}
	return runtime.Tags{}
}

func registerTags(r *runtime.Registry) {
	tag := namespace{r: r, ns: "Tag"}

	setter := func(apply func(t *runtime.Tags, arg runtime.Value)) runtime.RunFunc {
		return func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			t := tagsOf(args[0])
			apply(&t, args[1])
			return args[0].WithTags(&t), nil
		}
	}
	tag.add("name", decorate(in(runtime.FRAny, runtime.FRString), runtime.FRAny,
		setter(func(t *runtime.Tags, arg runtime.Value) { t.Name = str(arg) })))
	tag.add("doc", decorate(in(runtime.FRAny, runtime.FRString), runtime.FRAny,
		setter(func(t *runtime.Tags, arg runtime.Value) { t.Doc = str(arg) })))
	tag.add("format", decorate(in(runtime.FRDistOrNumber, runtime.FRString), runtime.FRAny,
		setter(func(t *runtime.Tags, arg runtime.Value) { t.Format = str(arg) })))
	tag.add("hide", decorate(in(runtime.FRAny, runtime.Optional(runtime.FRBool)), runtime.FRAny,
		setter(func(t *runtime.Tags, arg runtime.Value) { t.Hidden = arg == nil || boolean(arg) })))

	getter := func(get func(t runtime.Tags) runtime.Value) runtime.FnDefinition {
		return def(in(runtime.FRAny), runtime.FRAny,
			func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
				return get(tagsOf(args[0])), nil
			})
	}
	optString := func(s string) runtime.Value {
		if s == "" {
			return runtime.VoidValue{}
		}
		return runtime.String(s)
	}
	tag.add("getName", getter(func(t runtime.Tags) runtime.Value { return optString(t.Name) }))
	tag.add("getDoc", getter(func(t runtime.Tags) runtime.Value { return optString(t.Doc) }))
	tag.add("getFormat", getter(func(t runtime.Tags) runtime.Value { return optString(t.Format) }))
	tag.add("getHide", getter(func(t runtime.Tags) runtime.Value { return runtime.Bool(t.Hidden) }))
	tag.add("getAll", getter(func(t runtime.Tags) runtime.Value {
		var entries []runtime.DictEntry
		if t.Name != "" {
			entries = append(entries, runtime.DictEntry{Key: "name", Value: runtime.String(t.Name)})
		}
		if t.Doc != "" {
			entries = append(entries, runtime.DictEntry{Key: "doc", Value: runtime.String(t.Doc)})
		}
		if t.Format != "" {
			entries = append(entries, runtime.DictEntry{Key: "format", Value: runtime.String(t.Format)})
		}
		if t.Hidden {
			entries = append(entries, runtime.DictEntry{Key: "hidden", Value: runtime.Bool(true)})
		}
		return runtime.NewDict(entries...)
	}))
	tag.add("clear", def(in(runtime.FRAny), runtime.FRAny,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return args[0].WithTags(nil), nil
		}))
}
