package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"squiggle/interpreter-go/pkg/dist"
	"squiggle/interpreter-go/pkg/interpreter"
	"squiggle/interpreter-go/pkg/runtime"
	"squiggle/interpreter-go/pkg/serialize"
)

// RunRequest is everything needed to compile and evaluate one module.
// Externals hold the linked bindings; builtins are supplied by the runner.
type RunRequest struct {
	SourceID  string
	Source    string
	Externals map[string]runtime.Value
	Env       dist.Env
}

// Runner compiles and evaluates a linked module.
type Runner interface {
	Run(ctx context.Context, req RunRequest) (*interpreter.Output, error)
}

// InProcessRunner evaluates on the calling goroutine.
type InProcessRunner struct {
	Registry *runtime.Registry
}

func (r *InProcessRunner) Run(ctx context.Context, req RunRequest) (*interpreter.Output, error) {
	interp := interpreter.New(interpreter.Config{Registry: r.Registry, Env: req.Env})
	_, prog, err := interp.Compile(req.Source, req.SourceID, req.Externals)
	if err != nil {
		return nil, err
	}
	return interp.Run(ctx, prog)
}

// SerializingRunner passes externals and results through a JSON bundle on
// both sides of the evaluation, as a worker boundary would.
type SerializingRunner struct {
	Registry *runtime.Registry
}

type wireRequest struct {
	Externals map[string]serialize.Entrypoint `json:"externals"`
	Bundle    *serialize.Bundle               `json:"bundle"`
}

type wireOutput struct {
	Result   serialize.Entrypoint `json:"result"`
	Bindings serialize.Entrypoint `json:"bindings"`
	Exports  serialize.Entrypoint `json:"exports"`
	Bundle   *serialize.Bundle    `json:"bundle"`
}

func (r *SerializingRunner) Run(ctx context.Context, req RunRequest) (*interpreter.Output, error) {
	registry := r.Registry
	if registry == nil {
		registry = defaultRegistry()
	}
	payload, err := encodeRequest(req.Externals)
	if err != nil {
		return nil, err
	}

	var in wireRequest
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, fmt.Errorf("runner: decode request: %w", err)
	}
	dec := serialize.NewDecoder(in.Bundle, registry)
	externals := make(map[string]runtime.Value, len(in.Externals))
	for name, entry := range in.Externals {
		v, err := dec.Deserialize(entry)
		if err != nil {
			return nil, fmt.Errorf("runner: external %s: %w", name, err)
		}
		externals[name] = v
	}

	inner := &InProcessRunner{Registry: registry}
	out, err := inner.Run(ctx, RunRequest{SourceID: req.SourceID, Source: req.Source, Externals: externals, Env: req.Env})
	if err != nil {
		return nil, err
	}

	encoded, err := encodeOutput(out)
	if err != nil {
		return nil, err
	}
	return decodeOutput(encoded, registry)
}

func encodeRequest(externals map[string]runtime.Value) ([]byte, error) {
	enc := serialize.NewEncoder()
	names := make([]string, 0, len(externals))
	for name := range externals {
		names = append(names, name)
	}
	sort.Strings(names)
	req := wireRequest{Externals: make(map[string]serialize.Entrypoint, len(names))}
	for _, name := range names {
		entry, err := enc.Serialize(externals[name])
		if err != nil {
			return nil, fmt.Errorf("runner: external %s: %w", name, err)
		}
		req.Externals[name] = entry
	}
	req.Bundle = enc.Bundle()
	return json.Marshal(req)
}

func encodeOutput(out *interpreter.Output) ([]byte, error) {
	enc := serialize.NewEncoder()
	var wire wireOutput
	var err error
	if wire.Result, err = enc.Serialize(out.Result); err != nil {
		return nil, fmt.Errorf("runner: result: %w", err)
	}
	if wire.Bindings, err = enc.Serialize(out.Bindings); err != nil {
		return nil, fmt.Errorf("runner: bindings: %w", err)
	}
	if wire.Exports, err = enc.Serialize(out.Exports); err != nil {
		return nil, fmt.Errorf("runner: exports: %w", err)
	}
	wire.Bundle = enc.Bundle()
	return json.Marshal(wire)
}

func decodeOutput(data []byte, registry *runtime.Registry) (*interpreter.Output, error) {
	var wire wireOutput
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("runner: decode output: %w", err)
	}
	dec := serialize.NewDecoder(wire.Bundle, registry)
	result, err := dec.Deserialize(wire.Result)
	if err != nil {
		return nil, fmt.Errorf("runner: result: %w", err)
	}
	bindings, err := decodeDict(dec, wire.Bindings)
	if err != nil {
		return nil, fmt.Errorf("runner: bindings: %w", err)
	}
	exports, err := decodeDict(dec, wire.Exports)
	if err != nil {
		return nil, fmt.Errorf("runner: exports: %w", err)
	}
	return &interpreter.Output{Result: result, Bindings: bindings, Exports: exports}, nil
}

func decodeDict(dec *serialize.Decoder, entry serialize.Entrypoint) (*runtime.DictValue, error) {
	v, err := dec.Deserialize(entry)
	if err != nil {
		return nil, err
	}
	d, ok := v.(*runtime.DictValue)
	if !ok {
		return nil, fmt.Errorf("expected a dict, got %s", v.Kind())
	}
	return d, nil
}
