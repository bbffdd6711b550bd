// Package wasmclipboard exposes the host clipboard to WebAssembly guest modules.
//
// A guest imports two functions and exports one allocator callback:
//
//	(import "clipboard" "get_clipboard_text_raw" (func))
//	(import "clipboard" "set_clipboard_text_raw" (func (param i32 i32)))
//	(export "get_clipboard_text_raw_callback" (func (param i32) (result i32)))
//
// Both imports are fire-and-forget. A write decodes the UTF-8 bytes at
// [addr, addr+len) and hands them to the host clipboard. A read asks the host
// for the current text and, once it arrives, calls the guest allocator with the
// UTF-8 byte length and copies the bytes to the returned address.
//
// # Architecture Overview
//
//	wasmclipboard/       Root package with the Memory and Allocator interfaces
//	├── clipboard/       Adapter and wazero host module
//	├── memory/          Memory accessor over a wazero api.Module
//	├── provider/        Host clipboard backends (system, gopass, osc52, memory)
//	├── eventloop/       Serial task queue that runs asynchronous completions
//	├── runtime/         High-level API for loading and running guest modules
//	├── config/          Configuration loading
//	└── errors/          Structured error types for diagnostics
//
// # Quick Start
//
//	rt, err := runtime.New(ctx, runtime.Config{Provider: provider.NewSystem()})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	inst, err := rt.Instantiate(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Call the guest, then let pending clipboard completions run.
//	if _, err := inst.Call(ctx, "paste"); err != nil {
//	    log.Fatal(err)
//	}
//	if err := rt.Drain(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Failure Model
//
// Errors never reach the guest. When the host has no clipboard the calls are
// silent no-ops; when the host rejects a call the failure is logged through
// zap and dropped. A rejected read never invokes the guest allocator.
//
// # Thread Safety
//
// Guest modules are single-threaded. Clipboard completions are queued on an
// event loop and run one at a time on the goroutine that drains it, which must
// be the goroutine that otherwise calls into the guest.
package wasmclipboard
