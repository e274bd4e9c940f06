// Package earlytalker punishes clients that start transmitting before the
// server sent its banner. Legitimate mail servers wait; spam cannons often
// blast their whole dialogue at connect time.
//
// The check suspends itself at the connect phase for a configured wait. The
// hosting protocol engine puts a [gatekeeper.ReadinessToken] into the
// connection notes under (NoteNamespace, NoteToken) and fires it when input
// arrives before the banner; a fired token is the proof of an early talker.
// When no token is provided the check degrades to a plain anti-flood pause:
// it waits and then declines.
package earlytalker

import (
	"context"
	"time"

	"github.com/mailtap/gatekeeper"
)

// Notes contract between the protocol engine and this check.
const (
	NoteNamespace = "earlytalker"
	NoteToken     = "token"
)

// Check is the connect-phase handler.
type Check struct {
	wait    time.Duration
	penalty int
}

// New returns a check that waits for the given duration and, on an early
// talker, punishes the connection's karma by penalty and rejects.
func New(wait time.Duration, penalty int) *Check {
	return &Check{wait: wait, penalty: penalty}
}

var _ gatekeeper.Handler = (*Check)(nil)

func (c *Check) Check(_ context.Context, conn *gatekeeper.Connection, _ *gatekeeper.Transaction) (gatekeeper.Verdict, error) {
	v, _ := conn.Notes().Get(NoteNamespace, NoteToken)
	token, _ := v.(*gatekeeper.ReadinessToken)
	if token == nil {
		// no readiness source wired up: act as a pure anti-flood delay
		return gatekeeper.YieldFor(c.wait, c.resume), nil
	}
	return gatekeeper.YieldUntil(token, c.wait, c.resume), nil
}

func (c *Check) resume(_ context.Context, conn *gatekeeper.Connection, _ *gatekeeper.Transaction, result gatekeeper.WakeResult) (gatekeeper.Verdict, error) {
	if result != gatekeeper.WakeFired {
		// silence until the deadline is exactly what we hoped for
		return gatekeeper.Decline(), nil
	}
	conn.Karma().Adjust(-c.penalty)
	conn.Karma().MarkNaughty("remote started transmitting before the banner")
	return gatekeeper.DenySoftDisconnect("connecting host started transmitting before the banner"), nil
}

// Register binds the check to the connect phase. The wait duration is
// immutable registration configuration, so two registrations with different
// waits fail loudly at startup instead of racing each other at runtime.
func Register(e *gatekeeper.Engine, wait time.Duration, penalty int) error {
	return e.Register(gatekeeper.PhaseConnect, "earlytalker", New(wait, penalty),
		gatekeeper.WithConfig(gatekeeper.ConfigPair{Key: "wait", Value: wait.String()}),
	)
}
