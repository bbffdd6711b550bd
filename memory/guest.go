package memory

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	wasmclipboard "github.com/wippyai/wasm-clipboard"
	"github.com/wippyai/wasm-clipboard/errors"
)

var _ wasmclipboard.Accessor = (*Guest)(nil)

// DefaultCallback is the guest export the bridge calls to allocate read results.
const DefaultCallback = "get_clipboard_text_raw_callback"

// Guest adapts a wazero api.Module to wasmclipboard.Accessor.
type Guest struct {
	Mod      api.Module
	Callback string
}

// Wrap returns an accessor over mod, which must be non-nil. An empty callback
// selects DefaultCallback.
func Wrap(mod api.Module, callback string) *Guest {
	if callback == "" {
		callback = DefaultCallback
	}
	return &Guest{Mod: mod, Callback: callback}
}

func (g *Guest) memory() (api.Memory, error) {
	mem := g.Mod.Memory()
	if mem == nil {
		return nil, errors.NotFound(errors.PhaseMemory, "memory of module", g.Mod.Name())
	}
	return mem, nil
}

// LoadString decodes length bytes at offset. The bytes are copied out of guest
// memory so the guest may reuse the region as soon as this returns.
func (g *Guest) LoadString(offset uint32, length uint32) (string, error) {
	mem, err := g.memory()
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}
	data, ok := mem.Read(offset, length)
	if !ok {
		return "", outOfBounds("load", offset, length, mem.Size())
	}
	return string(data), nil
}

// StoreString writes the UTF-8 bytes of text starting at offset.
func (g *Guest) StoreString(offset uint32, text string) error {
	mem, err := g.memory()
	if err != nil {
		return err
	}
	if len(text) == 0 {
		return nil
	}
	if !mem.WriteString(offset, text) {
		return outOfBounds("store", offset, uint32(len(text)), mem.Size())
	}
	return nil
}

// Alloc calls the guest allocator export with size and returns its result.
func (g *Guest) Alloc(ctx context.Context, size uint32) (uint32, error) {
	fn := g.Mod.ExportedFunction(g.Callback)
	if fn == nil {
		return 0, errors.NotFound(errors.PhaseMemory, "export", g.Callback)
	}
	results, err := fn.Call(ctx, api.EncodeU32(size))
	if err != nil {
		return 0, errors.AllocationFailed(errors.PhaseMemory, g.Callback, size, err)
	}
	if len(results) == 0 {
		return 0, errors.New(errors.PhaseMemory, errors.KindAllocation).
			Op(g.Callback).
			Detail("allocator returned no address").
			Build()
	}
	return api.DecodeU32(results[0]), nil
}

func outOfBounds(op string, offset, length, size uint32) *errors.Error {
	return errors.New(errors.PhaseMemory, errors.KindOutOfBounds).
		Op(op).
		Range(offset, length).
		Detailf("guest memory is %d bytes", size).
		Build()
}
