package alpacastream

import (
	"bytes"
	"strings"
)

// Result tells the driver what to do after an event.
type Result struct {
	// RequestWritable asks the driver for a writable opportunity, which it
	// answers by calling OnWritable.
	RequestWritable bool
	// Deliver holds a stream payload for the downstream consumer.
	Deliver []byte
	// Detail carries diagnostic text from a connection error.
	Detail string
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithPhaseHook sets fn to be called synchronously on every phase change.
// fn must not block or call back into the machine.
func WithPhaseHook(fn PhaseChangeFunc) MachineOption {
	return func(m *Machine) {
		m.onChange = fn
	}
}

// Machine is the connection phase state machine for one connection attempt.
//
// It reacts to transport events and decides what to send next. It performs
// no I/O and is not safe for concurrent use: the driver must serialize calls.
//
// Any non-empty inbound frame in TransportReady or Authenticated counts as an
// acknowledgment. Status fields in the payload are not inspected, so a server
// error frame in those phases is taken as success.
type Machine struct {
	phase    Phase
	auth     []byte
	listen   []byte
	onChange PhaseChangeFunc
}

// NewMachine returns a machine in phase Disconnected that will authenticate
// with creds and listen to streams.
func NewMachine(creds Credentials, streams []string, opts ...MachineOption) (*Machine, error) {
	if creds.KeyID == "" || creds.SecretKey == "" {
		return nil, newError(KindInvalidConfig, "missing credentials", nil)
	}
	if len(streams) == 0 {
		return nil, newError(KindInvalidConfig, "no streams to listen to", nil)
	}
	for _, s := range streams {
		if strings.TrimSpace(s) == "" {
			return nil, newError(KindInvalidConfig, "empty stream name", nil)
		}
	}

	auth, err := EncodeAuthenticate(creds)
	if err != nil {
		return nil, err
	}
	listen, err := EncodeListen(append([]string(nil), streams...))
	if err != nil {
		return nil, err
	}

	m := &Machine{
		phase:  Disconnected,
		auth:   auth,
		listen: listen,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	return m.phase
}

// OnConnectionError resets the machine. detail is passed back for logging.
func (m *Machine) OnConnectionError(detail string) Result {
	m.setPhase(Disconnected)
	return Result{Detail: detail}
}

// OnEstablished records a completed transport handshake and asks for a
// writable opportunity. It fails with ErrSequenceViolation unless the
// machine is Disconnected, leaving the phase untouched.
func (m *Machine) OnEstablished() (Result, error) {
	if m.phase != Disconnected {
		return Result{}, newError(KindSequenceViolation, "established while "+m.phase.String(), nil)
	}
	m.setPhase(TransportReady)
	return Result{RequestWritable: true}, nil
}

// OnWritable returns the frame to send now, if any. It never changes phase:
// the phase advances only when the server acknowledges the frame. The
// returned slice is the caller's to keep.
func (m *Machine) OnWritable() ([]byte, bool) {
	switch m.phase {
	case TransportReady:
		return bytes.Clone(m.auth), true
	case Authenticated:
		return bytes.Clone(m.listen), true
	default:
		return nil, false
	}
}

// OnData handles one inbound frame.
func (m *Machine) OnData(payload []byte) Result {
	switch m.phase {
	case TransportReady:
		if len(payload) == 0 {
			return Result{}
		}
		m.setPhase(Authenticated)
		return Result{RequestWritable: true}
	case Authenticated:
		if len(payload) == 0 {
			return Result{}
		}
		m.setPhase(Subscribed)
		return Result{}
	case Subscribed:
		return Result{Deliver: payload}
	default:
		// A stale frame racing a reset must not resurrect the session.
		return Result{}
	}
}

// OnClosed resets the machine.
func (m *Machine) OnClosed() Result {
	m.setPhase(Disconnected)
	return Result{}
}

func (m *Machine) setPhase(p Phase) {
	old := m.phase
	m.phase = p
	if old != p && m.onChange != nil {
		m.onChange(old, p)
	}
}
