package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseRead    Phase = "read"    // host clipboard read
	PhaseWrite   Phase = "write"   // host clipboard write
	PhaseMemory  Phase = "memory"  // guest linear memory access
	PhaseHost    Phase = "host"    // host module registration
	PhaseLoad    Phase = "load"    // guest module loading
	PhaseRuntime Phase = "runtime" // runtime operations
	PhaseConfig  Phase = "config"  // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindUnsupported      Kind = "unsupported"
	KindPermissionDenied Kind = "permission_denied"
	KindOutOfBounds      Kind = "out_of_bounds"
	KindInvalidUTF8      Kind = "invalid_utf8"
	KindAllocation       Kind = "allocation"
	KindNotFound         Kind = "not_found"
	KindInvalidInput     Kind = "invalid_input"
	KindRegistration     Kind = "registration"
	KindInstantiation    Kind = "instantiation"
	KindTrap             Kind = "trap"
	KindPanic            Kind = "panic"
	KindClosed           Kind = "closed"
)

// Error is the structured error type used throughout the module
type Error struct {
	Cause    error
	Phase    Phase
	Kind     Kind
	Op       string
	Provider string
	Detail   string
	Addr     uint32
	Length   uint32
	HasRange bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}

	if e.Provider != "" {
		b.WriteString(" (provider ")
		b.WriteString(e.Provider)
		b.WriteByte(')')
	}

	if e.HasRange {
		b.WriteString(" at [")
		b.WriteString(strconv.FormatUint(uint64(e.Addr), 10))
		b.WriteString(", +")
		b.WriteString(strconv.FormatUint(uint64(e.Length), 10))
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Op sets the operation name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Provider sets the host clipboard provider name
func (b *Builder) Provider(name string) *Builder {
	b.err.Provider = name
	return b
}

// Range sets the guest memory range involved
func (b *Builder) Range(addr, length uint32) *Builder {
	b.err.Addr = addr
	b.err.Length = length
	b.err.HasRange = true
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string) *Builder {
	b.err.Detail = msg
	return b
}

// Detailf sets the detail message from a format string
func (b *Builder) Detailf(format string, args ...any) *Builder {
	b.err.Detail = fmt.Sprintf(format, args...)
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Unsupported creates an error for an operation a provider cannot perform
func Unsupported(phase Phase, provider, what string, cause error) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindUnsupported,
		Provider: provider,
		Detail:   what,
		Cause:    cause,
	}
}

// PermissionDenied creates an error for a host clipboard call that was rejected
func PermissionDenied(phase Phase, provider string, cause error) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindPermissionDenied,
		Provider: provider,
		Cause:    cause,
	}
}

// OutOfBounds creates an out of bounds guest memory error
func OutOfBounds(phase Phase, op string, addr, length uint32) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindOutOfBounds,
		Op:       op,
		Addr:     addr,
		Length:   length,
		HasRange: true,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, addr uint32, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:    phase,
		Kind:     KindInvalidUTF8,
		Addr:     addr,
		Length:   uint32(len(data)),
		HasRange: true,
		Detail:   fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// AllocationFailed creates an allocation failure error for a guest callback
func AllocationFailed(phase Phase, callback string, size uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Op:     callback,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Cause:  cause,
	}
}

// Recovered creates an error for a panic recovered from a host call
func Recovered(phase Phase, provider string, cause error) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindPanic,
		Provider: provider,
		Cause:    cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Cause:  cause,
		Detail: detail,
	}
}

// Runtime package convenience constructors

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a host function registration error
func Registration(module, name string, cause error) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindRegistration,
		Detail: module + "#" + name,
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase: PhaseRuntime,
		Kind:  KindInstantiation,
		Cause: cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}

// Closed creates an error for work submitted after shutdown
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: what + " is closed",
	}
}
