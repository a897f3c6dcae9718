package alpacastream

import (
	"context"
	"math/rand"
	"time"
)

// Backoff is the delay schedule between dials after a session is lost.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	// Jitter is a ratio in [0, 1]; 0.1 spreads each delay by +/-10%.
	Jitter float64
}

// next returns the base delay that follows a failed dial at cur.
func (b Backoff) next(cur time.Duration) time.Duration {
	n := time.Duration(float64(cur) * b.Multiplier)
	if n > b.Max {
		n = b.Max
	}
	return n
}

// jittered spreads base by the jitter ratio using r in [0, 1).
func (b Backoff) jittered(base time.Duration, r float64) time.Duration {
	if b.Jitter <= 0 {
		return base
	}
	return time.Duration(float64(base) * (1.0 + (r*2-1)*b.Jitter))
}

// setState mirrors the session phase and triggers the OnStateChange callback.
func (c *Client) setState(newState Phase) {
	oldState := Phase(c.state.Swap(int32(newState)))
	if oldState != newState && c.opts.OnStateChange != nil {
		c.opts.OnStateChange(oldState, newState)
	}
}

// runLoop drives sessions until the client is closed or gives up.
func (c *Client) runLoop(ctx context.Context, s *session) {
	defer c.wg.Done()
	defer close(c.done)

	for {
		err := s.run(ctx)
		if ctx.Err() != nil {
			return
		}
		c.setErr(err)

		if !c.opts.AutoReconnect {
			return
		}
		s = c.reconnect(ctx)
		if s == nil {
			return
		}
	}
}

// reconnect dials a fresh session with exponential backoff. It returns nil
// when ctx is done or the retry budget is exhausted.
func (c *Client) reconnect(ctx context.Context) *session {
	backoff := c.opts.Backoff.Initial
	attempts := 0

	for {
		if c.opts.MaxReconnectRetries > 0 && attempts >= c.opts.MaxReconnectRetries {
			c.log.Error("giving up reconnecting", "attempts", attempts)
			return nil
		}

		delay := c.opts.Backoff.jittered(backoff, rand.Float64())

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		attempts++
		c.log.Info("reconnecting", "attempt", attempts)

		s, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.setErr(err)
			backoff = c.opts.Backoff.next(backoff)
			continue
		}
		return s
	}
}
