package memory

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-clipboard/errors"
	"github.com/wippyai/wasm-clipboard/internal/wasmtest"
)

func instantiate(t *testing.T, cfg wasmtest.GuestConfig) (context.Context, api.Module) {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })

	if _, err := wasmtest.InstantiateStubs(ctx, rt, cfg.ImportModule); err != nil {
		t.Fatalf("failed to instantiate stubs: %v", err)
	}

	mod, err := rt.Instantiate(ctx, wasmtest.Guest(cfg))
	if err != nil {
		t.Fatalf("failed to instantiate guest: %v", err)
	}
	return ctx, mod
}

func TestWrap_CustomCallback(t *testing.T) {
	_, mod := instantiate(t, wasmtest.GuestConfig{})
	g := Wrap(mod, "alloc_clipboard")
	if g.Mod != mod || g.Callback != "alloc_clipboard" {
		t.Errorf("unexpected guest %+v", g)
	}
}

func TestWrap_DefaultCallback(t *testing.T) {
	_, mod := instantiate(t, wasmtest.GuestConfig{})
	g := Wrap(mod, "")
	if g.Callback != DefaultCallback {
		t.Errorf("expected %s, got %s", DefaultCallback, g.Callback)
	}
}

func TestGuest_StoreLoad(t *testing.T) {
	_, mod := instantiate(t, wasmtest.GuestConfig{})
	g := Wrap(mod, "")

	text := "héllo, 世界"
	if err := g.StoreString(100, text); err != nil {
		t.Fatalf("StoreString failed: %v", err)
	}

	got, err := g.LoadString(100, uint32(len(text)))
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}
	if got != text {
		t.Errorf("expected %q, got %q", text, got)
	}
}

func TestGuest_LoadCopiesBytes(t *testing.T) {
	_, mod := instantiate(t, wasmtest.GuestConfig{})
	g := Wrap(mod, "")

	if err := g.StoreString(0, "abc"); err != nil {
		t.Fatalf("StoreString failed: %v", err)
	}
	got, err := g.LoadString(0, 3)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}

	if err := g.StoreString(0, "xyz"); err != nil {
		t.Fatalf("StoreString failed: %v", err)
	}
	if got != "abc" {
		t.Errorf("loaded string changed with guest memory: %q", got)
	}
}

func TestGuest_ZeroLength(t *testing.T) {
	_, mod := instantiate(t, wasmtest.GuestConfig{})
	g := Wrap(mod, "")

	got, err := g.LoadString(12345, 0)
	if err != nil || got != "" {
		t.Errorf("expected empty string, got %q (%v)", got, err)
	}
	if err := g.StoreString(1<<30, ""); err != nil {
		t.Errorf("empty store should not touch memory: %v", err)
	}
}

func TestGuest_LoadOutOfBounds(t *testing.T) {
	_, mod := instantiate(t, wasmtest.GuestConfig{})
	g := Wrap(mod, "")

	_, err := g.LoadString(65535, 2)
	if err == nil {
		t.Fatal("expected error for out of bounds load")
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseMemory, Kind: errors.KindOutOfBounds}) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGuest_StoreOutOfBounds(t *testing.T) {
	_, mod := instantiate(t, wasmtest.GuestConfig{})
	g := Wrap(mod, "")

	err := g.StoreString(65536, "x")
	if err == nil {
		t.Fatal("expected error for out of bounds store")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("expected *errors.Error, got %T", err)
	}
	if e.Op != "store" || e.Addr != 65536 || e.Length != 1 {
		t.Errorf("unexpected error details: %+v", e)
	}
}

func TestGuest_AllocBump(t *testing.T) {
	ctx, mod := instantiate(t, wasmtest.GuestConfig{HeapBase: 2048})
	g := Wrap(mod, "")

	first, err := g.Alloc(ctx, 6)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	second, err := g.Alloc(ctx, 2)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}

	if first != 2048 || second != 2054 {
		t.Errorf("expected 2048 then 2054, got %d then %d", first, second)
	}
	if calls := wasmtest.Global(mod, wasmtest.ExportAllocCalls); calls != 2 {
		t.Errorf("expected 2 allocator calls, got %d", calls)
	}
}

func TestGuest_AllocCustomCallback(t *testing.T) {
	ctx, mod := instantiate(t, wasmtest.GuestConfig{Callback: "alloc_text"})
	g := Wrap(mod, "alloc_text")

	if _, err := g.Alloc(ctx, 1); err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
}

func TestGuest_AllocMissingExport(t *testing.T) {
	ctx, mod := instantiate(t, wasmtest.GuestConfig{Alloc: wasmtest.AllocNone})
	g := Wrap(mod, "")

	_, err := g.Alloc(ctx, 4)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseMemory, Kind: errors.KindNotFound}) {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestGuest_AllocTrap(t *testing.T) {
	ctx, mod := instantiate(t, wasmtest.GuestConfig{Alloc: wasmtest.AllocTrap})
	g := Wrap(mod, "")

	_, err := g.Alloc(ctx, 4)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseMemory, Kind: errors.KindAllocation}) {
		t.Errorf("expected allocation error, got %v", err)
	}
}
