package engine

// State is the oracle lifecycle state.
type State string

const (
	StateInactive State = "INACTIVE"
	StateActive   State = "ACTIVE"
	StateClosed   State = "CLOSED"
)

// Op names an oracle operation for lifecycle checks and error reports.
type Op string

const (
	OpEnable  Op = "enable"
	OpRecord  Op = "recordTransition"
	OpVerdict Op = "submitVerdict"
	OpClose   Op = "close"
	OpExport  Op = "export"
	OpRead    Op = "read"
)

// lifecycleEdge is a single allowed edge in the oracle state machine.
type lifecycleEdge struct {
	From State
	Op   Op
	To   State
}

var lifecycleTable = []lifecycleEdge{
	{From: StateInactive, Op: OpEnable, To: StateActive},

	{From: StateActive, Op: OpRecord, To: StateActive},
	{From: StateActive, Op: OpVerdict, To: StateActive},
	{From: StateActive, Op: OpClose, To: StateClosed},

	// Partial sessions export too.
	{From: StateActive, Op: OpExport, To: StateActive},
	{From: StateClosed, Op: OpExport, To: StateClosed},
	{From: StateActive, Op: OpRead, To: StateActive},
	{From: StateClosed, Op: OpRead, To: StateClosed},
}

// transitionFor returns the state op leads to from, if the edge exists.
func transitionFor(from State, op Op) (State, bool) {
	for _, e := range lifecycleTable {
		if e.From == from && e.Op == op {
			return e.To, true
		}
	}
	return "", false
}

// rejectionCause explains why op has no edge out of state.
func rejectionCause(state State, op Op) string {
	switch {
	case state == StateInactive:
		return "no active session"
	case state == StateActive && op == OpEnable:
		return "a session is already active"
	case state == StateClosed && op == OpEnable:
		return "the session is closed; start a new oracle"
	case state == StateClosed:
		return "the session is closed"
	default:
		return "operation not allowed"
	}
}
