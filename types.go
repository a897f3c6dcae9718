package alpacastream

// Phase is the connection phase of a single streaming session.
//
// Phases only move forward, one step at a time, until a reset returns the
// session to Disconnected.
type Phase int32

const (
	// Disconnected is the initial phase and the phase after any closure or error.
	Disconnected Phase = iota
	// TransportReady means the WebSocket handshake completed and nothing was exchanged yet.
	TransportReady
	// Authenticated means the authenticate request was acknowledged.
	Authenticated
	// Subscribed means the listen request was acknowledged. Inbound frames are stream data.
	Subscribed
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case Disconnected:
		return "Disconnected"
	case TransportReady:
		return "TransportReady"
	case Authenticated:
		return "Authenticated"
	case Subscribed:
		return "Subscribed"
	default:
		return "Unknown"
	}
}

// PhaseChangeFunc is called when the connection phase changes.
type PhaseChangeFunc func(oldPhase, newPhase Phase)
