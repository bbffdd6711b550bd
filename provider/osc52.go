package provider

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"

	"github.com/wippyai/wasm-clipboard/errors"
)

// Multiplexer selects the OSC 52 passthrough wrapping.
type Multiplexer string

const (
	MuxNone   Multiplexer = ""
	MuxTmux   Multiplexer = "tmux"
	MuxScreen Multiplexer = "screen"
)

// OSC52 writes to the clipboard of the terminal attached to Out using OSC 52
// escape sequences. It works over SSH but cannot read: terminals that answer
// OSC 52 queries do so on stdin, which belongs to the guest.
type OSC52 struct {
	Out   io.Writer
	Mux   Multiplexer
	Force bool
	// Limit drops payloads whose encoded sequence exceeds Limit bytes. 0 means no limit.
	Limit int

	mu sync.Mutex
}

// NewOSC52 returns a provider writing to out, or to os.Stdout when out is nil.
func NewOSC52(out io.Writer, mux Multiplexer) *OSC52 {
	if out == nil {
		out = os.Stdout
	}
	return &OSC52{Out: out, Mux: mux}
}

func (o *OSC52) Name() string {
	return "osc52"
}

// Available is true when Out is a terminal or Force is set.
func (o *OSC52) Available() bool {
	if o.Force {
		return true
	}
	f, ok := o.Out.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func (o *OSC52) ReadText(_ context.Context) (string, error) {
	return "", errors.Unsupported(errors.PhaseRead, o.Name(), "terminal clipboard is write-only", ErrReadUnsupported)
}

func (o *OSC52) WriteText(_ context.Context, text string) error {
	seq := osc52.New(text)
	switch o.Mux {
	case MuxTmux:
		seq = seq.Tmux()
	case MuxScreen:
		seq = seq.Screen()
	}
	if o.Limit > 0 {
		seq = seq.Limit(o.Limit)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := seq.WriteTo(o.Out)
	return err
}
