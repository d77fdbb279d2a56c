package client

// State is a handshake state. States only move forward.
type State int

const (
	StateUninitialized State = iota
	StateSessionKnown
	StateParametersSent
	StateIdentified
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateSessionKnown:
		return "SessionKnown"
	case StateParametersSent:
		return "ParametersSent"
	case StateIdentified:
		return "Identified"
	}
	return "Unknown"
}
