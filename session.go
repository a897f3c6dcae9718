package alpacastream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const closeGracePeriod = time.Second

// session drives one Machine over one WebSocket connection.
//
// The read goroutine only forwards frames. Every Machine call and every
// write happens on the dispatch goroutine, so events reach the machine in
// the order the transport observed them.
type session struct {
	id      uuid.UUID
	conn    *websocket.Conn
	machine *Machine
	log     *slog.Logger

	writeTimeout time.Duration
	deliver      func([]byte)

	writable chan struct{}
	frames   chan []byte
}

// requestWritable asks for a writable opportunity. Requests coalesce.
func (s *session) requestWritable() {
	select {
	case s.writable <- struct{}{}:
	default:
		// already requested
	}
}

// run blocks until the connection ends and returns why it ended.
// The machine is back in Disconnected when run returns.
func (s *session) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error { return s.dispatchLoop(gctx) })
	err := g.Wait()

	switch {
	case ctx.Err() != nil:
		s.machine.OnClosed()
		s.log.Info("connection closed", "reason", "local shutdown")
		return nil
	case isCloseError(err):
		s.machine.OnClosed()
		s.log.Info("connection closed", "reason", err.Error())
		return newError(KindUnexpectedClosure, "session closed", err)
	default:
		res := s.machine.OnConnectionError(errorDetail(err))
		s.log.Error("connection error", "error", res.Detail)
		return newError(KindTransportFailure, "session aborted", err)
	}
}

func (s *session) readLoop(ctx context.Context) error {
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}
		select {
		case s.frames <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *session) dispatchLoop(ctx context.Context) error {
	// Closing the conn unblocks the read goroutine.
	defer s.conn.Close()

	for {
		select {
		case <-ctx.Done():
			_ = s.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(closeGracePeriod),
			)
			return nil
		case <-s.writable:
			if err := s.onWritable(); err != nil {
				return err
			}
		case msg := <-s.frames:
			s.onData(msg)
		}
	}
}

func (s *session) onWritable() error {
	frame, ok := s.machine.OnWritable()
	if !ok {
		s.log.Debug("writable, nothing to send", "phase", s.machine.Phase())
		return nil
	}
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	s.log.Debug("frame sent", "phase", s.machine.Phase(), "bytes", len(frame))
	return nil
}

func (s *session) onData(msg []byte) {
	s.log.Debug("frame received", "phase", s.machine.Phase(), "bytes", len(msg))
	res := s.machine.OnData(msg)
	if res.RequestWritable {
		s.requestWritable()
	}
	if res.Deliver != nil {
		s.deliver(res.Deliver)
	}
}

func isCloseError(err error) bool {
	var ce *websocket.CloseError
	return errors.As(err, &ce)
}

func errorDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
