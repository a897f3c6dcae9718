package alpacastream

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client streams market data from one endpoint.
//
// Each connection attempt gets its own session and Machine. Stream payloads
// received once Subscribed are pushed to Messages.
type Client struct {
	cfg  Config
	opts *Options
	log  *slog.Logger

	// Messages receives stream payloads. Payloads are dropped when it is full.
	// It is closed by Close.
	Messages chan []byte

	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeOnce sync.Once
}

// Connect dials the endpoint described by cfg and starts the handshake.
// It returns once the WebSocket upgrade completes; authentication and the
// listen request proceed in the background, observable through State and
// OnStateChange.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:      cfg.clone(),
		opts:     options,
		log:      options.Logger,
		Messages: make(chan []byte, options.MessageBufferSize),
		done:     make(chan struct{}),
	}

	s, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(runCtx, s)

	return c, nil
}

// Close shuts the connection down and waits for goroutines to exit.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.wg.Wait()
		close(c.Messages)
	})
	return nil
}

// State returns the phase of the current session.
func (c *Client) State() Phase {
	return Phase(c.state.Load())
}

// Done is closed when the client stops: after Close, after a disconnect
// with reconnection disabled, or when reconnection gives up.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the most recent session, if any.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Client) setErr(err error) {
	c.errMu.Lock()
	c.err = err
	c.errMu.Unlock()
}

// dial opens a new session. A failed dial is fed to the session machine as a
// connection error and returned.
func (c *Client) dial(ctx context.Context) (*session, error) {
	id := uuid.New()
	log := c.log.With("session", id.String())

	machine, err := NewMachine(c.cfg.Credentials(), c.cfg.Streams, WithPhaseHook(func(oldPhase, newPhase Phase) {
		log.Info("phase changed", "old", oldPhase, "new", newPhase)
		c.setState(newPhase)
	}))
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.opts.HandshakeTimeout,
	}
	if c.cfg.Protocol != "" {
		dialer.Subprotocols = []string{c.cfg.Protocol}
	}
	header := http.Header{}
	header.Set("Origin", c.cfg.origin())

	log.Debug("connecting", "url", c.cfg.URL())
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL(), header)
	if err != nil {
		res := machine.OnConnectionError(err.Error())
		log.Error("connection attempt failed", "error", res.Detail)
		return nil, newError(KindTransportFailure, "connect", err)
	}

	s := &session{
		id:           id,
		conn:         conn,
		machine:      machine,
		log:          log,
		writeTimeout: c.opts.WriteTimeout,
		deliver:      c.deliver,
		writable:     make(chan struct{}, 1),
		frames:       make(chan []byte),
	}

	res, err := machine.OnEstablished()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	log.Info("connection established")
	if res.RequestWritable {
		s.requestWritable()
	}
	return s, nil
}

func (c *Client) deliver(payload []byte) {
	select {
	case c.Messages <- payload:
	default:
		c.log.Warn("message buffer full, dropping payload", "bytes", len(payload))
	}
}
