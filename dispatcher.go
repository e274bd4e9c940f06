package gatekeeper

import (
	"context"
	"errors"
	"fmt"
)

// RunPhase invokes the handlers registered for phase, strictly in chain
// order, and folds their results into one final verdict:
//
//   - a terminal verdict (Deny, DenySoftDisconnect, DenySoft, Done) stops the
//     chain immediately and becomes the phase verdict,
//   - Decline continues with the next handler,
//   - Yield suspends the handler; on wake the same handler's continuation
//     runs and its result goes through the same folding,
//   - a chain that exhausts without a terminal verdict yields Decline and the
//     protocol engine applies its default.
//
// Immune connections skip every handler that did not register with
// [AlwaysRun]. A handler fault (error or panic) is logged and counts as
// Decline; it never reaches other handlers or connections.
//
// trx may be nil for phases outside a mail transaction. When the connection
// is torn down while a handler is suspended, RunPhase returns Decline without
// ever invoking the handler's continuation; the caller is expected to be
// gone anyway.
func (e *Engine) RunPhase(ctx context.Context, phase Phase, conn *Connection, trx *Transaction) Verdict {
	for _, reg := range e.reg.handlersFor(phase) {
		if conn.Karma().IsImmune() && !reg.alwaysRun {
			continue
		}
		v, err := runChecked(func() (Verdict, error) {
			return reg.handler.Check(ctx, conn, trx)
		})
		// RUNNING → SUSPENDED → RESUMED → RUNNING, until the handler
		// returns something other than Yield.
		for err == nil && v.action == ActYield {
			resume := v.resume
			if resume == nil {
				err = errors.New("yield without resume continuation")
				break
			}
			result, werr := e.await(ctx, conn, v.cond)
			if werr != nil {
				if errors.Is(werr, errNoDeadline) {
					err = werr
					break
				}
				// teardown or context cancellation: the continuation must
				// not run against destroyed state
				return Decline()
			}
			v, err = runChecked(func() (Verdict, error) {
				return resume(ctx, conn, trx, result)
			})
		}
		if err != nil {
			LogWarning("phase %s handler %s faulted, treating as decline: %v", phase, reg.name, err)
			continue
		}
		if v.Terminal() {
			return v
		}
	}
	return Decline()
}

func runChecked(f func() (Verdict, error)) (v Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			v = Decline()
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return f()
}
