// Package wasmtest builds small guest modules for exercising the clipboard bridge.
package wasmtest

import (
	"bytes"
)

// Exported names of the fixture guest.
const (
	ExportMemory     = "memory"
	ExportPaste      = "paste"
	ExportCopy       = "copy"
	ExportHeap       = "heap"
	ExportAllocCalls = "alloc_calls"
)

// AllocMode selects the body of the guest allocator callback.
type AllocMode int

const (
	// AllocBump returns the current heap pointer and advances it by the requested size.
	AllocBump AllocMode = iota
	// AllocFixed always returns GuestConfig.FixedAddr.
	AllocFixed
	// AllocTrap executes unreachable.
	AllocTrap
	// AllocNone omits the callback export.
	AllocNone
)

// GuestConfig describes the fixture guest.
//
// The guest imports get_clipboard_text_raw and set_clipboard_text_raw from
// ImportModule and exports:
//
//	memory                           linear memory (Pages pages)
//	<Callback>(len i32) -> i32       allocator, see AllocMode
//	paste()                          calls get_clipboard_text_raw
//	copy(addr i32, len i32)          calls set_clipboard_text_raw
//	heap                             mutable i32 global, bump pointer
//	alloc_calls                      mutable i32 global, allocator call count
type GuestConfig struct {
	ImportModule string
	Callback     string
	Alloc        AllocMode
	FixedAddr    int32
	HeapBase     int32
	Pages        uint32
}

func (c GuestConfig) withDefaults() GuestConfig {
	if c.ImportModule == "" {
		c.ImportModule = "clipboard"
	}
	if c.Callback == "" {
		c.Callback = "get_clipboard_text_raw_callback"
	}
	if c.HeapBase == 0 {
		c.HeapBase = 1024
	}
	if c.Pages == 0 {
		c.Pages = 1
	}
	return c
}

const (
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionGlobal   = 6
	sectionExport   = 7
	sectionCode     = 10

	kindFunc   = 0x00
	kindMemory = 0x02
	kindGlobal = 0x03

	valI32 = 0x7f

	opUnreachable = 0x00
	opEnd         = 0x0b
	opCall        = 0x10
	opLocalGet    = 0x20
	opGlobalGet   = 0x23
	opGlobalSet   = 0x24
	opI32Const    = 0x41
	opI32Add      = 0x6a
)

// Guest encodes the fixture guest described by cfg.
func Guest(cfg GuestConfig) []byte {
	cfg = cfg.withDefaults()

	var out writer
	out.raw(0x00, 0x61, 0x73, 0x6d) // magic
	out.raw(0x01, 0x00, 0x00, 0x00) // version

	// types: 0 = () -> (), 1 = (i32, i32) -> (), 2 = (i32) -> i32
	var types writer
	types.u32(3)
	types.raw(0x60, 0x00, 0x00)
	types.raw(0x60, 0x02, valI32, valI32, 0x00)
	types.raw(0x60, 0x01, valI32, 0x01, valI32)
	out.section(sectionType, &types)

	// imported functions occupy indices 0 and 1
	var imports writer
	imports.u32(2)
	imports.name(cfg.ImportModule)
	imports.name("get_clipboard_text_raw")
	imports.raw(kindFunc, 0)
	imports.name(cfg.ImportModule)
	imports.name("set_clipboard_text_raw")
	imports.raw(kindFunc, 1)
	out.section(sectionImport, &imports)

	// defined functions: 2 = callback, 3 = paste, 4 = copy
	var funcs writer
	funcs.u32(3)
	funcs.raw(2, 0, 1)
	out.section(sectionFunction, &funcs)

	var mems writer
	mems.u32(1)
	mems.raw(0x00)
	mems.u32(cfg.Pages)
	out.section(sectionMemory, &mems)

	// globals: 0 = heap, 1 = alloc_calls
	var globals writer
	globals.u32(2)
	globals.raw(valI32, 0x01, opI32Const)
	globals.s32(cfg.HeapBase)
	globals.raw(opEnd)
	globals.raw(valI32, 0x01, opI32Const)
	globals.s32(0)
	globals.raw(opEnd)
	out.section(sectionGlobal, &globals)

	var exports writer
	count := uint32(5)
	if cfg.Alloc != AllocNone {
		count++
	}
	exports.u32(count)
	exports.name(ExportMemory)
	exports.raw(kindMemory, 0)
	if cfg.Alloc != AllocNone {
		exports.name(cfg.Callback)
		exports.raw(kindFunc, 2)
	}
	exports.name(ExportPaste)
	exports.raw(kindFunc, 3)
	exports.name(ExportCopy)
	exports.raw(kindFunc, 4)
	exports.name(ExportHeap)
	exports.raw(kindGlobal, 0)
	exports.name(ExportAllocCalls)
	exports.raw(kindGlobal, 1)
	out.section(sectionExport, &exports)

	var code writer
	code.u32(3)
	code.body(allocBody(cfg))
	code.body([]byte{opCall, 0, opEnd})
	code.body([]byte{opLocalGet, 0, opLocalGet, 1, opCall, 1, opEnd})
	out.section(sectionCode, &code)

	return out.bytes()
}

func allocBody(cfg GuestConfig) []byte {
	var b writer
	if cfg.Alloc == AllocTrap {
		b.raw(opUnreachable, opEnd)
		return b.bytes()
	}

	// alloc_calls += 1
	b.raw(opGlobalGet, 1, opI32Const, 1, opI32Add, opGlobalSet, 1)

	if cfg.Alloc == AllocFixed {
		b.raw(opI32Const)
		b.s32(cfg.FixedAddr)
		b.raw(opEnd)
		return b.bytes()
	}

	// return heap; heap += len
	b.raw(opGlobalGet, 0, opGlobalGet, 0, opLocalGet, 0, opI32Add, opGlobalSet, 0, opEnd)
	return b.bytes()
}

type writer struct {
	buf bytes.Buffer
}

func (w *writer) bytes() []byte {
	return w.buf.Bytes()
}

func (w *writer) raw(b ...byte) {
	w.buf.Write(b)
}

func (w *writer) u32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

func (w *writer) s32(v int32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			w.buf.WriteByte(b)
			return
		}
		w.buf.WriteByte(b | 0x80)
	}
}

func (w *writer) name(s string) {
	w.u32(uint32(len(s)))
	w.buf.WriteString(s)
}

func (w *writer) section(id byte, content *writer) {
	w.buf.WriteByte(id)
	w.u32(uint32(content.buf.Len()))
	w.buf.Write(content.bytes())
}

// body writes a code entry with no locals.
func (w *writer) body(instrs []byte) {
	w.u32(uint32(len(instrs) + 1))
	w.buf.WriteByte(0x00)
	w.buf.Write(instrs)
}
