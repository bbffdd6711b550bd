package clipboard

// Op identifies the guest request.
type Op string

const (
	OpRead  Op = "read"
	OpWrite Op = "write"
)

// Outcome describes what happened to a request.
type Outcome string

const (
	// OutcomeRequested: the host call was started.
	OutcomeRequested Outcome = "requested"
	// OutcomeUnavailable: no clipboard capability, nothing was done.
	OutcomeUnavailable Outcome = "unavailable"
	// OutcomeCompleted: text reached the host clipboard or guest memory.
	OutcomeCompleted Outcome = "completed"
	// OutcomeRejected: the host refused the call.
	OutcomeRejected Outcome = "rejected"
	// OutcomeFailed: the host answered but guest memory could not be used.
	OutcomeFailed Outcome = "failed"
)

// Event reports the progress of one request. Addr is set for completed reads.
type Event struct {
	Err     error
	Op      Op
	Outcome Outcome
	Bytes   int
	Addr    uint32
}

// Observer receives events. Read completions are delivered on the event loop;
// everything else is delivered on the goroutine that made or resolved the
// request, so observers must be safe for concurrent use.
type Observer func(Event)
