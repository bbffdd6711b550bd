package clipboard

import (
	"context"
	stderrors "errors"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	wasmclipboard "github.com/wippyai/wasm-clipboard"
	"github.com/wippyai/wasm-clipboard/errors"
	"github.com/wippyai/wasm-clipboard/eventloop"
	"github.com/wippyai/wasm-clipboard/provider"
)

// Adapter turns guest clipboard requests into host provider calls.
//
// Requests never fail from the guest's point of view. With no provider
// available they do nothing; host rejections and guest memory faults are
// logged and dropped. Concurrent reads are independent: each one allocates
// and fills its own guest region when its host call resolves, in whatever
// order the host resolves them.
type Adapter struct {
	provider provider.Provider
	loop     *eventloop.Loop
	logger   *zap.Logger
	observer Observer
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger overrides the package logger for this adapter.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithObserver registers a callback for request events.
func WithObserver(o Observer) Option {
	return func(a *Adapter) {
		a.observer = o
	}
}

// New creates an adapter. A nil provider means the host has no clipboard.
// Completions of asynchronous reads are queued on loop.
func New(p provider.Provider, loop *eventloop.Loop, opts ...Option) *Adapter {
	a := &Adapter{
		provider: p,
		loop:     loop,
		logger:   Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.loop == nil {
		a.loop = eventloop.New(eventloop.WithLogger(a.logger))
	}
	return a
}

// Loop returns the event loop completions are queued on.
func (a *Adapter) Loop() *eventloop.Loop {
	return a.loop
}

// Provider returns the host clipboard provider, which may be nil.
func (a *Adapter) Provider() provider.Provider {
	return a.provider
}

func (a *Adapter) providerName() string {
	if a.provider == nil {
		return "none"
	}
	return a.provider.Name()
}

func (a *Adapter) notify(ev Event) {
	if a.observer != nil {
		a.observer(ev)
	}
}

// RequestRead asks the host for the clipboard text. When it arrives, the
// completion runs on the event loop: the guest allocator is called with the
// UTF-8 byte length and the bytes are written at the returned address.
// A rejected read never calls the allocator.
func (a *Adapter) RequestRead(ctx context.Context, acc wasmclipboard.Accessor) {
	if !provider.Available(a.provider) {
		a.notify(Event{Op: OpRead, Outcome: OutcomeUnavailable})
		return
	}

	a.notify(Event{Op: OpRead, Outcome: OutcomeRequested})
	a.loop.Go(context.WithoutCancel(ctx), func(ctx context.Context) eventloop.Task {
		var text string
		err := a.call(errors.PhaseRead, func() error {
			var err error
			text, err = a.provider.ReadText(ctx)
			return err
		})
		if err != nil {
			a.logger.Warn("clipboard read denied",
				zap.String("provider", a.providerName()),
				zap.Error(err))
			a.notify(Event{Op: OpRead, Outcome: OutcomeRejected, Err: err})
			return nil
		}

		return func(ctx context.Context) {
			a.commit(ctx, acc, text)
		}
	})
}

// commit is the second phase of a read: request size, then copy bytes.
func (a *Adapter) commit(ctx context.Context, acc wasmclipboard.Accessor, text string) {
	if uint64(len(text)) > math.MaxUint32 {
		err := errors.New(errors.PhaseRead, errors.KindOutOfBounds).
			Provider(a.providerName()).
			Detailf("clipboard text is %d bytes", len(text)).
			Build()
		a.fail(OpRead, err)
		return
	}
	size := uint32(len(text))

	addr, err := acc.Alloc(ctx, size)
	if err != nil {
		a.fail(OpRead, err)
		return
	}

	if err := acc.StoreString(addr, text); err != nil {
		a.fail(OpRead, err)
		return
	}

	a.logger.Debug("clipboard text delivered",
		zap.Uint32("addr", addr),
		zap.Uint32("bytes", size))
	a.notify(Event{Op: OpRead, Outcome: OutcomeCompleted, Bytes: int(size), Addr: addr})
}

// RequestWrite copies length bytes at addr out of guest memory and asks the
// host to place them on the clipboard. The bytes are read before this
// returns, so the guest may reuse the buffer immediately.
func (a *Adapter) RequestWrite(ctx context.Context, mem wasmclipboard.Memory, addr, length uint32) {
	if !provider.Available(a.provider) {
		a.notify(Event{Op: OpWrite, Outcome: OutcomeUnavailable})
		return
	}

	text, err := mem.LoadString(addr, length)
	if err != nil {
		a.fail(OpWrite, err)
		return
	}
	if !utf8.ValidString(text) {
		a.logger.Debug("replacing invalid UTF-8 in clipboard text",
			zap.Error(errors.InvalidUTF8(errors.PhaseWrite, addr, []byte(text))))
		text = strings.ToValidUTF8(text, string(utf8.RuneError))
	}

	a.notify(Event{Op: OpWrite, Outcome: OutcomeRequested, Bytes: len(text)})
	a.loop.Go(context.WithoutCancel(ctx), func(ctx context.Context) eventloop.Task {
		err := a.call(errors.PhaseWrite, func() error {
			return a.provider.WriteText(ctx, text)
		})
		if err != nil {
			a.logger.Warn("clipboard write denied",
				zap.String("provider", a.providerName()),
				zap.Error(err))
			a.notify(Event{Op: OpWrite, Outcome: OutcomeRejected, Err: err})
			return nil
		}
		a.notify(Event{Op: OpWrite, Outcome: OutcomeCompleted, Bytes: len(text)})
		return nil
	})
}

// call runs a provider call, converting errors and panics to rejections.
// Structured provider errors keep their kind; anything else is a denial.
func (a *Adapter) call(phase errors.Phase, fn func() error) error {
	var err error
	var pc panics.Catcher
	pc.Try(func() { err = fn() })
	if r := pc.Recovered(); r != nil {
		return errors.Recovered(phase, a.providerName(), r.AsError())
	}
	if err == nil {
		return nil
	}
	var structured *errors.Error
	if stderrors.As(err, &structured) {
		return err
	}
	return errors.PermissionDenied(phase, a.providerName(), err)
}

func (a *Adapter) fail(op Op, err error) {
	a.logger.Warn("clipboard transfer failed",
		zap.String("op", string(op)),
		zap.String("provider", a.providerName()),
		zap.Error(err))
	a.notify(Event{Op: op, Outcome: OutcomeFailed, Err: err})
}
