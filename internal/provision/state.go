package provision

// State is the phase of one provisioning operation.
type State int

// Provisioning states in order. Completed and Failed are terminal.
const (
	StateIdle State = iota
	StateDirectoryPrepared
	StateSessionsLaunched
	StateAwaitingCompletion
	StateCompleted
	StateFailed
)

var stateNames = [...]string{
	StateIdle:               "idle",
	StateDirectoryPrepared:  "directory-prepared",
	StateSessionsLaunched:   "sessions-launched",
	StateAwaitingCompletion: "awaiting-completion",
	StateCompleted:          "completed",
	StateFailed:             "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}
