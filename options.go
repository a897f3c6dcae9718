package alpacastream

import (
	"log/slog"
	"time"
)

// Options configures the client driver.
type Options struct {
	// HandshakeTimeout is the timeout for the WebSocket handshake.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each outbound frame write. 0 disables it.
	WriteTimeout time.Duration

	// MessageBufferSize is the capacity of the Messages channel.
	MessageBufferSize int

	// AutoReconnect re-dials with a fresh session after a disconnect.
	AutoReconnect bool

	// MaxReconnectRetries caps the consecutive failed dials after a session
	// ends. Each dial builds a new session and Machine. 0 means no cap.
	MaxReconnectRetries int

	// Backoff spaces the dials that follow a lost session.
	Backoff Backoff

	// OnStateChange is called when the connection phase changes. It runs on
	// the client's internal goroutines, never concurrently, and must not block.
	OnStateChange PhaseChangeFunc

	// Logger receives driver logs. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		HandshakeTimeout:    10 * time.Second,
		WriteTimeout:        10 * time.Second,
		MessageBufferSize:   1000,
		AutoReconnect:       false,
		MaxReconnectRetries: 0, // unlimited
		Logger:              slog.New(slog.DiscardHandler),
		Backoff: Backoff{
			Initial:    100 * time.Millisecond,
			Max:        30 * time.Second,
			Multiplier: 2.0,
			Jitter:     0.1,
		},
	}
}

// WithHandshakeTimeout sets the WebSocket handshake timeout.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.HandshakeTimeout = d
	}
}

// WithWriteTimeout sets the timeout for a single frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.WriteTimeout = d
	}
}

// WithMessageBufferSize sets the capacity of the Messages channel.
func WithMessageBufferSize(size int) Option {
	return func(o *Options) {
		o.MessageBufferSize = size
	}
}

// WithAutoReconnect enables or disables automatic reconnection.
func WithAutoReconnect(enabled bool) Option {
	return func(o *Options) {
		o.AutoReconnect = enabled
	}
}

// WithMaxReconnectRetries sets how many dials in a row may fail before the
// client stops (0 = no cap).
func WithMaxReconnectRetries(n int) Option {
	return func(o *Options) {
		o.MaxReconnectRetries = n
	}
}

// WithBackoff sets the redial schedule: the first delay, its ceiling, the
// growth factor after each failed dial and the jitter ratio.
func WithBackoff(initial, max time.Duration, multiplier, jitter float64) Option {
	return func(o *Options) {
		o.Backoff = Backoff{Initial: initial, Max: max, Multiplier: multiplier, Jitter: jitter}
	}
}

// WithOnStateChange sets the callback invoked on phase changes.
func WithOnStateChange(fn PhaseChangeFunc) Option {
	return func(o *Options) {
		o.OnStateChange = fn
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}
