// Package clipboard bridges the host clipboard into WebAssembly guests.
//
// The Adapter implements two fire-and-forget requests:
//
//	RequestRead   host read -> guest allocator(len) -> copy bytes to addr
//	RequestWrite  copy bytes from [addr, addr+len) -> host write
//
// Host calls run in their own goroutines. The second phase of a read touches
// guest memory, so it is queued on an eventloop.Loop and executes on whichever
// goroutine drains the loop.
//
// HostModule registers the adapter with wazero:
//
//	loop := eventloop.New()
//	adapter := clipboard.New(provider.NewSystem(), loop)
//	if _, err := clipboard.NewHostModule(adapter).Instantiate(ctx, r); err != nil {
//	    return err
//	}
//	// instantiate and call the guest, then
//	err := loop.RunUntilIdle(ctx)
package clipboard
