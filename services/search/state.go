package search

// State is the controller's lifecycle state.
type State int

const (
	// StateIdle means no index is loaded; submits are rejected.
	StateIdle State = iota
	StateReady
	StateQuerying
	// StateRendering lasts until every match has been dispatched, not until
	// every render has finished.
	StateRendering
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateQuerying:
		return "querying"
	case StateRendering:
		return "rendering"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
