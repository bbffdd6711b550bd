// Package provider implements host clipboard capabilities.
//
// A Provider reads and writes plain text. A provider may be absent on the
// current host (no clipboard utility, no terminal); such providers implement
// Availability and report false, and the bridge treats them as if no
// clipboard existed at all. A present provider may still reject individual
// calls, which the bridge logs and drops.
//
// Builtin providers:
//   - system - OS clipboard through github.com/atotto/clipboard
//   - gopass - OS clipboard through github.com/gopasspw/clipboard
//   - osc52  - write-only terminal clipboard via OSC 52 escape sequences
//   - memory - in-process clipboard
//   - none   - no clipboard
package provider

import (
	"context"
	stderrors "errors"
)

var (
	// ErrPermissionDenied is returned when the host refuses clipboard access.
	ErrPermissionDenied = stderrors.New("clipboard access denied")

	// ErrReadUnsupported is returned by write-only providers on read.
	ErrReadUnsupported = stderrors.New("clipboard read not supported")
)

// Provider is a host clipboard capability.
type Provider interface {
	// Name returns the provider name (e.g., "system", "osc52")
	Name() string

	// ReadText returns the current clipboard text.
	ReadText(ctx context.Context) (string, error)

	// WriteText replaces the clipboard contents with text.
	WriteText(ctx context.Context, text string) error
}

// Availability is implemented by providers that may be absent on the host.
type Availability interface {
	Available() bool
}

// Available reports whether p can be used at all. A nil provider is absent.
func Available(p Provider) bool {
	if p == nil {
		return false
	}
	if a, ok := p.(Availability); ok {
		return a.Available()
	}
	return true
}

// Unavailable is a provider for hosts without a clipboard.
type Unavailable struct{}

func (Unavailable) Name() string    { return "none" }
func (Unavailable) Available() bool { return false }

func (Unavailable) ReadText(context.Context) (string, error) {
	return "", ErrPermissionDenied
}

func (Unavailable) WriteText(context.Context, string) error {
	return ErrPermissionDenied
}
