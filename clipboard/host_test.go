package clipboard

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-clipboard/errors"
	"github.com/wippyai/wasm-clipboard/internal/wasmtest"
	"github.com/wippyai/wasm-clipboard/provider"
)

type guestFixture struct {
	ctx     context.Context
	adapter *Adapter
	events  *eventLog
	guest   api.Module
}

func newGuestFixture(t *testing.T, p provider.Provider, cfg wasmtest.GuestConfig, configure func(*HostModule)) *guestFixture {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })

	a, events, _ := newTestAdapter(p)
	host := NewHostModule(a)
	if configure != nil {
		configure(host)
	}
	if _, err := host.Instantiate(ctx, rt); err != nil {
		t.Fatalf("failed to instantiate host module: %v", err)
	}

	guest, err := rt.Instantiate(ctx, wasmtest.Guest(cfg))
	if err != nil {
		t.Fatalf("failed to instantiate guest: %v", err)
	}
	return &guestFixture{ctx: ctx, adapter: a, events: events, guest: guest}
}

func (f *guestFixture) call(t *testing.T, name string, params ...uint64) {
	t.Helper()
	if _, err := f.guest.ExportedFunction(name).Call(f.ctx, params...); err != nil {
		t.Fatalf("%s failed: %v", name, err)
	}
}

func (f *guestFixture) copyText(t *testing.T, addr uint32, text string) {
	t.Helper()
	if !f.guest.Memory().WriteString(addr, text) {
		t.Fatalf("failed to seed guest memory")
	}
	f.call(t, wasmtest.ExportCopy, api.EncodeU32(addr), api.EncodeU32(uint32(len(text))))
}

func (f *guestFixture) read(t *testing.T, addr, length uint32) string {
	t.Helper()
	data, ok := f.guest.Memory().Read(addr, length)
	if !ok {
		t.Fatalf("read out of range [%d, +%d)", addr, length)
	}
	return string(data)
}

func TestHost_SetScenario(t *testing.T) {
	p := provider.NewMemory("")
	f := newGuestFixture(t, p, wasmtest.GuestConfig{}, nil)

	f.copyText(t, 200, "héllo")
	drain(t, f.adapter)

	if p.Text() != "héllo" {
		t.Errorf("expected host clipboard to hold héllo, got %q", p.Text())
	}
}

func TestHost_GetScenario(t *testing.T) {
	p := provider.NewMemory("ok")
	f := newGuestFixture(t, p, wasmtest.GuestConfig{HeapBase: 4096}, nil)

	f.call(t, wasmtest.ExportPaste)
	drain(t, f.adapter)

	if calls := wasmtest.Global(f.guest, wasmtest.ExportAllocCalls); calls != 1 {
		t.Fatalf("expected 1 callback invocation, got %d", calls)
	}
	if heap := wasmtest.Global(f.guest, wasmtest.ExportHeap); heap != 4098 {
		t.Errorf("expected callback with length 2 (heap 4098), got heap %d", heap)
	}
	data, _ := f.guest.Memory().Read(4096, 2)
	if data[0] != 0x6F || data[1] != 0x6B {
		t.Errorf("expected bytes 6f 6b, got %x", data)
	}
}

func TestHost_RoundTripMultiByte(t *testing.T) {
	texts := []string{"héllo", "日本語テキスト", "emoji 🎉🚀", "mixed ü 中 🙂 a"}

	for _, text := range texts {
		t.Run(text, func(t *testing.T) {
			f := newGuestFixture(t, provider.NewMemory(""), wasmtest.GuestConfig{}, nil)

			f.copyText(t, 100, text)
			drain(t, f.adapter)

			f.call(t, wasmtest.ExportPaste)
			drain(t, f.adapter)

			size := uint32(len(text))
			if heap := wasmtest.Global(f.guest, wasmtest.ExportHeap); heap != 1024+size {
				t.Errorf("callback length = %d, want %d", heap-1024, size)
			}
			if got := f.read(t, 1024, size); got != text {
				t.Errorf("expected %q at callback address, got %q", text, got)
			}
		})
	}
}

func TestHost_UnavailableTouchesNothing(t *testing.T) {
	f := newGuestFixture(t, provider.Unavailable{}, wasmtest.GuestConfig{}, nil)
	before := f.read(t, 1024, 64)

	f.copyText(t, 100, "ignored")
	f.call(t, wasmtest.ExportPaste)
	drain(t, f.adapter)

	if calls := wasmtest.Global(f.guest, wasmtest.ExportAllocCalls); calls != 0 {
		t.Errorf("expected no callback invocation, got %d", calls)
	}
	if f.read(t, 1024, 64) != before {
		t.Error("guest memory modified")
	}
	if f.events.count(OpRead, OutcomeUnavailable) != 1 || f.events.count(OpWrite, OutcomeUnavailable) != 1 {
		t.Errorf("expected unavailable events, got %+v", f.events.events)
	}
}

func TestHost_ReadRejectedNoCallback(t *testing.T) {
	p := provider.NewMemory("secret")
	p.Deny(true, false)
	f := newGuestFixture(t, p, wasmtest.GuestConfig{}, nil)
	before := f.read(t, 1024, 64)

	f.call(t, wasmtest.ExportPaste)
	drain(t, f.adapter)

	if calls := wasmtest.Global(f.guest, wasmtest.ExportAllocCalls); calls != 0 {
		t.Errorf("expected no callback invocation, got %d", calls)
	}
	if f.read(t, 1024, 64) != before {
		t.Error("guest memory modified")
	}
}

func TestHost_WriteRejectedReturns(t *testing.T) {
	p := provider.NewMemory("before")
	p.Deny(false, true)
	f := newGuestFixture(t, p, wasmtest.GuestConfig{}, nil)

	f.copyText(t, 100, "after")
	drain(t, f.adapter)

	if p.Text() != "before" {
		t.Errorf("clipboard changed: %q", p.Text())
	}
	if f.events.count(OpWrite, OutcomeRejected) != 1 {
		t.Error("expected rejected event")
	}
}

func TestHost_OverlappingReads(t *testing.T) {
	p := newGatedProvider(2)
	f := newGuestFixture(t, p, wasmtest.GuestConfig{}, nil)

	var addrs []uint32
	f.adapter.observer = func(ev Event) {
		if ev.Op == OpRead && ev.Outcome == OutcomeCompleted {
			addrs = append(addrs, ev.Addr)
			if len(addrs) == 1 {
				p.gates[0] <- "alpha"
			}
		}
	}

	f.call(t, wasmtest.ExportPaste)
	f.call(t, wasmtest.ExportPaste)
	p.gates[1] <- "bravo!"
	drain(t, f.adapter)

	if calls := wasmtest.Global(f.guest, wasmtest.ExportAllocCalls); calls != 2 {
		t.Fatalf("expected 2 callback invocations, got %d", calls)
	}
	if len(addrs) != 2 || addrs[0] != 1024 || addrs[1] != 1030 {
		t.Fatalf("unexpected addresses %v", addrs)
	}
	if got := f.read(t, 1024, 6); got != "bravo!" {
		t.Errorf("first region = %q", got)
	}
	if got := f.read(t, 1030, 5); got != "alpha" {
		t.Errorf("second region = %q", got)
	}
}

func TestHost_CustomNames(t *testing.T) {
	p := provider.NewMemory("custom")
	cfg := wasmtest.GuestConfig{ImportModule: "env", Callback: "alloc_clipboard"}
	f := newGuestFixture(t, p, cfg, func(h *HostModule) {
		h.ModuleName = "env"
		h.Callback = "alloc_clipboard"
	})

	f.call(t, wasmtest.ExportPaste)
	drain(t, f.adapter)

	if got := f.read(t, 1024, 6); got != "custom" {
		t.Errorf("expected custom at 1024, got %q", got)
	}
}

func TestHost_MissingCallbackExport(t *testing.T) {
	f := newGuestFixture(t, provider.NewMemory("text"), wasmtest.GuestConfig{Alloc: wasmtest.AllocNone}, nil)

	f.call(t, wasmtest.ExportPaste)
	drain(t, f.adapter)

	if f.events.count(OpRead, OutcomeFailed) != 1 {
		t.Errorf("expected failed read, got %+v", f.events.events)
	}
}

func TestHost_CallbackTrap(t *testing.T) {
	f := newGuestFixture(t, provider.NewMemory("text"), wasmtest.GuestConfig{Alloc: wasmtest.AllocTrap}, nil)

	f.call(t, wasmtest.ExportPaste)
	drain(t, f.adapter)

	if f.events.count(OpRead, OutcomeFailed) != 1 {
		t.Errorf("expected failed read, got %+v", f.events.events)
	}
	// The guest stays usable after its allocator trapped.
	f.call(t, wasmtest.ExportPaste)
	drain(t, f.adapter)
}

func TestHost_CallbackOutOfBounds(t *testing.T) {
	cfg := wasmtest.GuestConfig{Alloc: wasmtest.AllocFixed, FixedAddr: 65534}
	f := newGuestFixture(t, provider.NewMemory("overflow"), cfg, nil)

	f.call(t, wasmtest.ExportPaste)
	drain(t, f.adapter)

	f.events.mu.Lock()
	defer f.events.mu.Unlock()
	var failure error
	for _, ev := range f.events.events {
		if ev.Outcome == OutcomeFailed {
			failure = ev.Err
		}
	}
	if !stderrors.Is(failure, &errors.Error{Phase: errors.PhaseMemory, Kind: errors.KindOutOfBounds}) {
		t.Errorf("expected out of bounds failure, got %v", failure)
	}
}

func TestHost_WriteOutOfBoundsRange(t *testing.T) {
	p := provider.NewMemory("unchanged")
	f := newGuestFixture(t, p, wasmtest.GuestConfig{}, nil)

	f.call(t, wasmtest.ExportCopy, api.EncodeU32(65530), api.EncodeU32(100))
	drain(t, f.adapter)

	if p.Text() != "unchanged" {
		t.Errorf("clipboard written from invalid range: %q", p.Text())
	}
}

func TestHost_Namespace(t *testing.T) {
	h := &HostModule{Adapter: New(nil, nil)}
	if h.Namespace() != DefaultModuleName {
		t.Errorf("expected default namespace, got %q", h.Namespace())
	}
	h.ModuleName = "odd"
	if h.Namespace() != "odd" {
		t.Errorf("expected custom namespace, got %q", h.Namespace())
	}
}

func TestHost_InstantiateErrors(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	if _, err := (&HostModule{}).Instantiate(ctx, rt); err == nil {
		t.Error("expected error without adapter")
	}

	host := NewHostModule(New(provider.NewMemory(""), nil))
	if _, err := host.Instantiate(ctx, rt); err != nil {
		t.Fatalf("first instantiate failed: %v", err)
	}
	_, err := host.Instantiate(ctx, rt)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseHost, Kind: errors.KindRegistration}) {
		t.Errorf("expected registration error on duplicate module, got %v", err)
	}
}
