package runtime

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/modeclock/engine"
	"github.com/wippyai/modeclock/errors"
)

// Host is the interface for struct-based host modules.
// All exported methods (except Namespace) are registered as host functions.
type Host interface {
	// Namespace returns the import module name (e.g., "env").
	Namespace() string
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// RegisterFunc registers a typed Go function as namespace.name.
// Must be called BEFORE instantiating modules that import it.
func (r *Runtime) RegisterFunc(namespace, name string, fn any) error {
	if namespace == "" {
		return errors.InvalidInput(errors.PhaseHost, "namespace cannot be empty")
	}
	if name == "" {
		return errors.InvalidInput(errors.PhaseHost, "function name cannot be empty")
	}

	hf, params, results, err := lowerFunc(reflect.ValueOf(fn))
	if err != nil {
		return errors.New(errors.PhaseHost, errors.KindUnsupported).
			Path(namespace, name).
			Value(fmt.Sprintf("%T", fn)).
			Cause(err).
			Detail("unsupported host function signature").
			Build()
	}
	return r.engine.RegisterHostFunc(namespace, name, hf, params, results)
}

// RegisterRawFunc registers a function operating directly on the value stack.
func (r *Runtime) RegisterRawFunc(namespace, name string, fn engine.HostFunc, params, results []api.ValueType) error {
	return r.engine.RegisterHostFunc(namespace, name, fn, params, results)
}

// RegisterHost registers all exported methods of h as host functions.
// Method names are converted from PascalCase to snake_case (GetValue -> get_value).
func (r *Runtime) RegisterHost(h Host) error {
	ns := h.Namespace()
	if ns == "" {
		return errors.InvalidInput(errors.PhaseHost, "namespace cannot be empty")
	}

	rv := reflect.ValueOf(h)
	rt := rv.Type()
	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)
		if !method.IsExported() || method.Name == "Namespace" {
			continue
		}
		if err := r.RegisterFunc(ns, toSnakeCase(method.Name), rv.Method(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

// lowerFunc adapts fn to the engine's stack calling convention.
func lowerFunc(fn reflect.Value) (engine.HostFunc, []api.ValueType, []api.ValueType, error) {
	if fn.Kind() != reflect.Func {
		return nil, nil, nil, fmt.Errorf("handler must be a function")
	}
	ft := fn.Type()
	if ft.IsVariadic() {
		return nil, nil, nil, fmt.Errorf("variadic functions are not supported")
	}

	first := 0
	withCtx := ft.NumIn() > 0 && ft.In(0) == contextType
	if withCtx {
		first = 1
	}

	paramTypes := make([]reflect.Type, 0, ft.NumIn()-first)
	params := make([]api.ValueType, 0, ft.NumIn()-first)
	for i := first; i < ft.NumIn(); i++ {
		vt, ok := valueType(ft.In(i))
		if !ok {
			return nil, nil, nil, fmt.Errorf("parameter %d: unsupported type %s", i, ft.In(i))
		}
		paramTypes = append(paramTypes, ft.In(i))
		params = append(params, vt)
	}

	numOut := ft.NumOut()
	withErr := numOut > 0 && ft.Out(numOut-1) == errorType
	if withErr {
		numOut--
	}
	results := make([]api.ValueType, 0, numOut)
	for i := 0; i < numOut; i++ {
		vt, ok := valueType(ft.Out(i))
		if !ok {
			return nil, nil, nil, fmt.Errorf("result %d: unsupported type %s", i, ft.Out(i))
		}
		results = append(results, vt)
	}

	hf := func(ctx context.Context, _ api.Module, stack []uint64) {
		in := make([]reflect.Value, 0, ft.NumIn())
		if withCtx {
			in = append(in, reflect.ValueOf(ctx))
		}
		for i, t := range paramTypes {
			in = append(in, decodeValue(t, stack[i]))
		}

		out := fn.Call(in)
		if withErr {
			if err, _ := out[numOut].Interface().(error); err != nil {
				// wazero turns a host panic into a trap returned from Call.
				panic(err)
			}
		}
		for i := 0; i < numOut; i++ {
			stack[i] = encodeValue(out[i])
		}
	}
	return hf, params, results, nil
}

func valueType(t reflect.Type) (api.ValueType, bool) {
	switch t.Kind() {
	case reflect.Bool, reflect.Int32, reflect.Uint32:
		return api.ValueTypeI32, true
	case reflect.Int64, reflect.Uint64:
		return api.ValueTypeI64, true
	case reflect.Float32:
		return api.ValueTypeF32, true
	case reflect.Float64:
		return api.ValueTypeF64, true
	default:
		return 0, false
	}
}

func decodeValue(t reflect.Type, v uint64) reflect.Value {
	var rv reflect.Value
	switch t.Kind() {
	case reflect.Bool:
		rv = reflect.ValueOf(api.DecodeU32(v) != 0)
	case reflect.Int32:
		rv = reflect.ValueOf(api.DecodeI32(v))
	case reflect.Uint32:
		rv = reflect.ValueOf(api.DecodeU32(v))
	case reflect.Int64:
		rv = reflect.ValueOf(int64(v))
	case reflect.Uint64:
		rv = reflect.ValueOf(v)
	case reflect.Float32:
		rv = reflect.ValueOf(api.DecodeF32(v))
	case reflect.Float64:
		rv = reflect.ValueOf(api.DecodeF64(v))
	}
	return rv.Convert(t)
}

func encodeValue(v reflect.Value) uint64 {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return 1
		}
		return 0
	case reflect.Int32:
		return api.EncodeI32(int32(v.Int()))
	case reflect.Uint32:
		return api.EncodeU32(uint32(v.Uint()))
	case reflect.Int64:
		return api.EncodeI64(v.Int())
	case reflect.Uint64:
		return v.Uint()
	case reflect.Float32:
		return api.EncodeF32(float32(v.Float()))
	case reflect.Float64:
		return api.EncodeF64(v.Float())
	default:
		return 0
	}
}

// toSnakeCase converts PascalCase to snake_case.
// Handles acronyms: GetHTTPServer -> get_http_server
func toSnakeCase(s string) string {
	if len(s) == 0 {
		return ""
	}

	runes := []rune(s)
	var result strings.Builder

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if unicode.IsUpper(r) {
			acronymEnd := i + 1
			for acronymEnd < len(runes) && unicode.IsUpper(runes[acronymEnd]) {
				acronymEnd++
			}

			// Last uppercase before lowercase starts the next word
			if acronymEnd > i+1 && acronymEnd < len(runes) && unicode.IsLower(runes[acronymEnd]) {
				acronymEnd--
			}

			if i > 0 {
				result.WriteByte('_')
			}
			for j := i; j < acronymEnd; j++ {
				result.WriteRune(unicode.ToLower(runes[j]))
			}
			i = acronymEnd - 1
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
