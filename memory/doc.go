// Package memory provides guest memory access for the clipboard bridge.
//
// It bridges wazero's api.Module with the wasmclipboard Memory and Allocator
// interfaces: strings are loaded from and stored into the module's exported
// linear memory, and space is requested through a guest-exported allocator.
//
// # Guest Accessor
//
//	g := memory.Wrap(mod, "get_clipboard_text_raw_callback")
//	addr, err := g.Alloc(ctx, uint32(len(text)))
//	err = g.StoreString(addr, text)
//
// All failures are returned as *errors.Error with PhaseMemory.
package memory
