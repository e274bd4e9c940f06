package gatekeeper

import (
	"context"
	"sync"
	"time"
)

// WakeProvider is the timer source of the engine. The default implementation
// uses real timers; tests inject their own to control time.
type WakeProvider interface {
	// After returns a channel that receives once, after d passed.
	After(d time.Duration) <-chan time.Time
}

type realWakeProvider struct{}

func (realWakeProvider) After(d time.Duration) <-chan time.Time { return time.After(d) }

// ReadinessToken signals external readiness to a suspended handler: more
// input arrived, a scanner daemon answered, a lookup finished. Fire may be
// called from any goroutine and is idempotent; only the first call counts.
type ReadinessToken struct {
	once sync.Once
	ch   chan struct{}
}

// NewReadinessToken returns an unfired token.
func NewReadinessToken() *ReadinessToken {
	return &ReadinessToken{ch: make(chan struct{})}
}

// Fire marks the token ready. Safe to call concurrently and repeatedly.
func (t *ReadinessToken) Fire() {
	t.once.Do(func() { close(t.ch) })
}

// Ready returns a channel that is closed once the token fired.
func (t *ReadinessToken) Ready() <-chan struct{} { return t.ch }

// Fired reports whether the token fired.
func (t *ReadinessToken) Fired() bool {
	select {
	case <-t.ch:
		return true
	default:
		return false
	}
}

// await parks the calling goroutine until cond is satisfied, the connection
// is torn down or ctx is canceled. Only the one connection's phase dispatch
// blocks; every other connection proceeds on its own goroutine.
//
// The wake condition is re-examined on wake: when the deadline and the token
// race, a fired token wins, so a handler resumes exactly once and with the
// branch that actually happened.
func (e *Engine) await(ctx context.Context, conn *Connection, cond WakeCondition) (WakeResult, error) {
	if cond.After <= 0 {
		return 0, errNoDeadline
	}
	conn.suspensionStarted()
	defer conn.suspensionFinished()

	var ready <-chan struct{}
	if cond.Token != nil {
		ready = cond.Token.Ready()
	}
	select {
	case <-ready:
		return WakeFired, nil
	case <-e.opts.wake.After(cond.After):
		if cond.Token != nil && cond.Token.Fired() {
			return WakeFired, nil
		}
		return WakeElapsed, nil
	case <-conn.closed:
		return 0, errConnClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
