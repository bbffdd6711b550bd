package clipboard

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-clipboard/errors"
	"github.com/wippyai/wasm-clipboard/memory"
)

const (
	// DefaultModuleName is the import module guests use for the clipboard functions.
	DefaultModuleName = "clipboard"

	FuncGetText = "get_clipboard_text_raw"
	FuncSetText = "set_clipboard_text_raw"
)

// HostModule exposes an Adapter to guests as a wazero host module.
//
//	get_clipboard_text_raw()
//	set_clipboard_text_raw(addr i32, len i32)
//
// The guest calling either function is the one whose memory and allocator
// export (Callback) are used.
type HostModule struct {
	Adapter    *Adapter
	ModuleName string
	Callback   string
}

// NewHostModule returns a host module with default names.
func NewHostModule(a *Adapter) *HostModule {
	return &HostModule{
		Adapter:    a,
		ModuleName: DefaultModuleName,
		Callback:   memory.DefaultCallback,
	}
}

// Namespace returns the import module name.
func (h *HostModule) Namespace() string {
	if h.ModuleName == "" {
		return DefaultModuleName
	}
	return h.ModuleName
}

func (h *HostModule) getText(ctx context.Context, mod api.Module, _ []uint64) {
	h.Adapter.RequestRead(ctx, memory.Wrap(mod, h.Callback))
}

func (h *HostModule) setText(ctx context.Context, mod api.Module, stack []uint64) {
	addr := api.DecodeU32(stack[0])
	length := api.DecodeU32(stack[1])
	h.Adapter.RequestWrite(ctx, memory.Wrap(mod, h.Callback), addr, length)
}

// Instantiate registers the host functions in r. Guests importing them must
// be instantiated afterwards.
func (h *HostModule) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	if h.Adapter == nil {
		return nil, errors.InvalidInput(errors.PhaseHost, "host module has no adapter")
	}
	ns := h.Namespace()

	mod, err := r.NewHostModuleBuilder(ns).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.getText), nil, nil).
		Export(FuncGetText).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.setText),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, nil).
		WithParameterNames("addr", "len").
		Export(FuncSetText).
		Instantiate(ctx)
	if err != nil {
		return nil, errors.Registration(ns, FuncGetText+","+FuncSetText, err)
	}

	h.Adapter.logger.Debug("clipboard host module registered", zap.String("module", ns))
	return mod, nil
}
