package wasmclipboard

import "context"

// Memory represents guest linear memory as seen by the clipboard bridge.
// Strings cross the boundary as UTF-8 bytes addressed by offset and length.
type Memory interface {
	LoadString(offset uint32, length uint32) (string, error)
	StoreString(offset uint32, text string) error
}

// Allocator asks the guest for a region of its own linear memory.
// The returned offset must have at least size bytes available.
type Allocator interface {
	Alloc(ctx context.Context, size uint32) (uint32, error)
}

// Accessor is the full collaborator the adapter needs from an embedding:
// read and write access plus the guest-exported allocation callback.
type Accessor interface {
	Memory
	Allocator
}
