// Package errors provides structured error types for the clipboard bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the operation, guest address range, provider name and cause.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMemory, errors.KindOutOfBounds).
//		Op("store").
//		Range(addr, uint32(len(data))).
//		Detailf("guest memory is %d bytes", size).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.PermissionDenied(errors.PhaseRead, "system", cause)
//	err := errors.OutOfBounds(errors.PhaseMemory, "load", addr, length)
//
// None of these errors cross into the guest. The clipboard adapter logs them
// and drops them.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
