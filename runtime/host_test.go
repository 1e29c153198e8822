package runtime

import (
	"context"
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/modeclock/errors"
	"github.com/wippyai/modeclock/internal/fixture"
	"github.com/wippyai/modeclock/tracker"
)

func TestLowerFunc(t *testing.T) {
	var gotCtx context.Context
	fn := func(ctx context.Context, a int32, b uint64, f float64, ok bool) (int64, float32, error) {
		gotCtx = ctx
		if !ok {
			return 0, 0, nil
		}
		return int64(a) + int64(b), float32(f * 2), nil
	}

	hf, params, results, err := lowerFunc(reflect.ValueOf(fn))
	if err != nil {
		t.Fatal(err)
	}
	wantParams := []api.ValueType{api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF64, api.ValueTypeI32}
	wantResults := []api.ValueType{api.ValueTypeI64, api.ValueTypeF32}
	if !reflect.DeepEqual(params, wantParams) || !reflect.DeepEqual(results, wantResults) {
		t.Fatalf("signature = %v -> %v", params, results)
	}

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, 1)
	stack := []uint64{api.EncodeI32(-2), 10, api.EncodeF64(1.25), 1}
	hf(ctx, nil, stack)

	if gotCtx != ctx {
		t.Error("context not forwarded")
	}
	if got := int64(stack[0]); got != 8 {
		t.Errorf("result 0 = %d, want 8", got)
	}
	if got := api.DecodeF32(stack[1]); got != 2.5 {
		t.Errorf("result 1 = %v, want 2.5", got)
	}
}

func TestLowerFuncErrorPanics(t *testing.T) {
	boom := stderrors.New("boom")
	hf, _, results, err := lowerFunc(reflect.ValueOf(func() error { return boom }))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("results = %v", results)
	}

	defer func() {
		if r := recover(); r != boom {
			t.Errorf("recovered %v, want boom", r)
		}
	}()
	hf(context.Background(), nil, nil)
}

func TestLowerFuncUnsupported(t *testing.T) {
	tests := []struct {
		name string
		fn   any
	}{
		{"not a func", 42},
		{"string param", func(string) {}},
		{"slice result", func() []byte { return nil }},
		{"variadic", func(...int32) {}},
		{"int param", func(int) {}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, _, err := lowerFunc(reflect.ValueOf(tt.fn)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRegisterFuncErrors(t *testing.T) {
	rt, _, _ := newRuntime(t, nil)

	tests := []struct {
		name string
		ns   string
		fn   string
		f    any
		kind errors.Kind
	}{
		{"empty namespace", "", "f", func() {}, errors.KindInvalidInput},
		{"empty name", "env", "", func() {}, errors.KindInvalidInput},
		{"bad signature", "env", "f", func(string) {}, errors.KindUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rt.RegisterFunc(tt.ns, tt.fn, tt.f)
			if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseHost, Kind: tt.kind}) {
				t.Errorf("err = %v, want %s", err, tt.kind)
			}
		})
	}
}

type tickHost struct {
	ticks int
}

func (h *tickHost) Namespace() string { return fixture.ImportModule }

func (h *tickHost) Tick() { h.ticks++ }

func TestRegisterHost(t *testing.T) {
	rt, _, _ := newRuntime(t, nil)
	h := &tickHost{}
	if err := rt.RegisterHost(h); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	mod, err := rt.LoadModule(ctx, fixture.Counter)
	if err != nil {
		t.Fatal(err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Close(ctx)

	res, err := inst.Call(ctx, fixture.ExportCallHost, 5)
	if err != nil {
		t.Fatal(err)
	}
	if res[0] != 5 || h.ticks != 1 {
		t.Errorf("res = %v, ticks = %d", res, h.ticks)
	}
}

func TestHostErrorTraps(t *testing.T) {
	rt, _, _ := newRuntime(t, nil)
	if err := rt.RegisterFunc("env", "tick", func() error { return stderrors.New("denied") }); err != nil {
		t.Fatal(err)
	}

	ctx, th := rt.Attach(context.Background(), "w")
	defer rt.Detach(ctx)

	mod, err := rt.LoadModule(ctx, fixture.Counter)
	if err != nil {
		t.Fatal(err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Close(ctx)

	_, err = inst.Call(ctx, fixture.ExportCallHost, 1)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseCall, Kind: errors.KindFailed}) {
		t.Errorf("err = %v, want call failure", err)
	}
	if th.Mode() != tracker.Interpreted {
		t.Errorf("mode after trap = %v, want interpreted", th.Mode())
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Tick", "tick"},
		{"GetValue", "get_value"},
		{"GetHTTPServer", "get_http_server"},
		{"ReadURL", "read_url"},
		{"HTTPServer", "http_server"},
		{"", ""},
		{"already", "already"},
	}
	for _, tt := range tests {
		if got := toSnakeCase(tt.in); got != tt.want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
