// Package runtime hosts WebAssembly guests that import the clipboard bridge.
//
// # Quick Start
//
//	ctx := context.Background()
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
//	defer inst.Close(ctx)
//
//	// The guest calls get_clipboard_text_raw; the read is now in flight.
//	_, err = inst.Call(ctx, "paste")
//
//	// Deliver the text through the guest's allocator callback.
//	if err := rt.Drain(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Host Functions
//
// New registers two functions under Config.ModuleName ("clipboard" by
// default):
//
//	get_clipboard_text_raw()                  -> ()
//	set_clipboard_text_raw(addr i32, len i32) -> ()
//
// Reads complete by calling the guest export named by Config.Callback
// (get_clipboard_text_raw_callback by default) with the UTF-8 length and
// writing the text at the returned address.
//
// # Completions
//
// Host clipboard calls run on their own goroutines. Their results are queued
// on the runtime's event loop and touch guest memory only when Drain (or
// Loop().Run) executes them. Drain on the goroutine that calls into the guest.
//
// # WASI
//
// Config.WASI instantiates wasi_snapshot_preview1 so guests built by common
// toolchains load without extra host modules.
//
// # Thread Safety
//
// Runtime is NOT thread-safe. Guest calls and Drain must happen on one
// goroutine. Provider calls may run concurrently with guest execution.
package runtime
