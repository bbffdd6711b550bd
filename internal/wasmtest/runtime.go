package wasmtest

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// InstantiateStubs registers no-op clipboard imports under module so a
// fixture guest can be instantiated without a real bridge.
func InstantiateStubs(ctx context.Context, r wazero.Runtime, module string) (api.Module, error) {
	if module == "" {
		module = "clipboard"
	}
	return r.NewHostModuleBuilder(module).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(context.Context, api.Module, []uint64) {}), nil, nil).
		Export("get_clipboard_text_raw").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(context.Context, api.Module, []uint64) {}),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, nil).
		Export("set_clipboard_text_raw").
		Instantiate(ctx)
}

// Global returns the value of an exported i32 global, or 0 when absent.
func Global(mod api.Module, name string) uint32 {
	g := mod.ExportedGlobal(name)
	if g == nil {
		return 0
	}
	return api.DecodeU32(g.Get())
}
