package gatekeeper

import (
	"context"
	"time"

	"github.com/mailtap/gatekeeper/internal/replytext"
)

// Action is the kind of a [Verdict]. Actions are totally ordered by precedence:
// a numerically greater Action always wins over a smaller one when the
// dispatcher folds handler results into one phase verdict.
type Action uint8

// The possible verdict actions, in increasing precedence.
const (
	// ActDone accepts the phase outright. No later handler in the chain runs.
	ActDone Action = iota
	// ActDecline expresses no opinion. The chain continues with the next handler.
	ActDecline
	// ActYield suspends the current handler until a wake condition is satisfied.
	ActYield
	// ActDenySoft rejects temporarily. The client may retry later.
	ActDenySoft
	// ActDenySoftDisconnect rejects temporarily and asks for the connection to be closed.
	ActDenySoftDisconnect
	// ActDeny rejects permanently.
	ActDeny
)

var actionNames = map[Action]string{
	ActDone:               "done",
	ActDecline:            "decline",
	ActYield:              "yield",
	ActDenySoft:           "deny_soft",
	ActDenySoftDisconnect: "deny_soft_disconnect",
	ActDeny:               "deny",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "unknown"
}

// Terminal returns true when a verdict with this action ends the phase chain:
// no handler registered after the one that produced it will run.
func (a Action) Terminal() bool {
	switch a {
	case ActDeny, ActDenySoftDisconnect, ActDenySoft, ActDone:
		return true
	default:
		return false
	}
}

// WakeResult tells a resumed handler why it woke up.
type WakeResult uint8

const (
	// WakeElapsed means the wait deadline passed. For pure duration waits this
	// is the normal wake; for token waits it means the token never fired in time.
	WakeElapsed WakeResult = iota
	// WakeFired means the readiness token fired before the deadline.
	WakeFired
)

func (r WakeResult) String() string {
	if r == WakeFired {
		return "fired"
	}
	return "elapsed"
}

// WakeCondition describes what a suspended handler is waiting for.
// After is the wait duration (for token waits it acts as the deadline) and
// must be positive; a suspension without a deadline cannot guarantee forward
// progress and is treated as a handler fault.
type WakeCondition struct {
	After time.Duration
	Token *ReadinessToken
}

// ResumeFunc is the continuation of a suspended handler. It is invoked once
// when the wake condition of the Yield that carried it is satisfied, with
// result telling which branch woke it. It may yield again.
//
// A ResumeFunc is never invoked after its connection was closed.
type ResumeFunc func(ctx context.Context, conn *Connection, trx *Transaction, result WakeResult) (Verdict, error)

// Verdict is the outcome of one handler or of a whole phase.
type Verdict struct {
	action  Action
	message string
	cond    WakeCondition
	resume  ResumeFunc
}

// Action returns the kind of this verdict.
func (v Verdict) Action() Action { return v.action }

// Message returns the reply text of this verdict. It is empty for
// [ActDecline] and [ActYield] verdicts.
func (v Verdict) Message() string { return v.message }

// Terminal reports whether this verdict ends a phase chain.
func (v Verdict) Terminal() bool { return v.action.Terminal() }

func (v Verdict) String() string {
	if v.message == "" {
		return v.action.String()
	}
	return v.action.String() + " " + v.message
}

// Deny rejects permanently with the given reply text.
func Deny(message string) Verdict {
	return Verdict{action: ActDeny, message: replytext.Sanitize(message)}
}

// DenySoft rejects temporarily with the given reply text.
func DenySoft(message string) Verdict {
	return Verdict{action: ActDenySoft, message: replytext.Sanitize(message)}
}

// DenySoftDisconnect rejects temporarily and asks the protocol engine to
// close the connection after the reply.
func DenySoftDisconnect(message string) Verdict {
	return Verdict{action: ActDenySoftDisconnect, message: replytext.Sanitize(message)}
}

// Done accepts the phase. Handlers registered later in the chain do not run.
func Done(message string) Verdict {
	return Verdict{action: ActDone, message: replytext.Sanitize(message)}
}

// Decline expresses no opinion and lets the chain continue.
func Decline() Verdict {
	return Verdict{action: ActDecline}
}

// YieldFor suspends the current handler for d. When d elapsed, resume is
// invoked with [WakeElapsed].
func YieldFor(d time.Duration, resume ResumeFunc) Verdict {
	return Verdict{action: ActYield, cond: WakeCondition{After: d}, resume: resume}
}

// YieldUntil suspends the current handler until token fires, but no longer
// than deadline. resume is invoked with [WakeFired] when the token fired in
// time and [WakeElapsed] otherwise.
func YieldUntil(token *ReadinessToken, deadline time.Duration, resume ResumeFunc) Verdict {
	return Verdict{action: ActYield, cond: WakeCondition{After: deadline, Token: token}, resume: resume}
}
