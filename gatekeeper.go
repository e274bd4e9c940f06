// Package gatekeeper is the decision engine of an SMTP filtering server.
//
// For every phase of an SMTP conversation (connect, HELO/EHLO, MAIL, RCPT,
// DATA, …) the engine runs an ordered chain of independent filter handlers,
// folds their verdicts by precedence and returns one final verdict that the
// protocol engine maps to a wire reply. Handlers share facts through
// per-connection and per-transaction [Notes], influence each other through
// the cumulative karma [Ledger], postpone disclosure of a rejection through
// the [DeferredQueue], and can suspend themselves on timers or readiness
// tokens without blocking any other connection.
//
// The engine never touches sockets and never parses SMTP: the hosting
// protocol engine drives it one phase at a time through [Engine.RunPhase].
package gatekeeper

import (
	"net"

	"github.com/hashicorp/go-multierror"
)

// Engine holds the frozen handler registry and the engine-wide policy
// (karma thresholds, allow list, timer source). One Engine serves any number
// of concurrent connections; after [Engine.Freeze] it is never mutated, so
// all connection goroutines read it without synchronization.
type Engine struct {
	opts options
	reg  *registry
}

// New creates an engine. Register handlers, then call [Engine.Freeze] before
// accepting the first connection.
func New(opts ...Option) *Engine {
	resolved := options{wake: realWakeProvider{}}
	for _, o := range opts {
		o(&resolved)
	}
	return &Engine{
		opts: resolved,
		reg:  newRegistry(resolved.extraPhases),
	}
}

// Register binds handler to phase under the given name. See [RunLast],
// [AlwaysRun] and [WithConfig] for registration options. Registration fails
// with a [ConfigurationError] when the phase is unknown or when the same
// (phase, name) pair was already registered with a different configuration,
// and with [ErrFrozen] after Freeze.
func (e *Engine) Register(phase Phase, name string, handler Handler, opts ...RegisterOption) error {
	return e.reg.register(phase, name, handler, opts...)
}

// MustRegister is like [Engine.Register] but panics on error. Registration
// errors are startup configuration mistakes, so panicking here is the moral
// equivalent of failing to boot.
func (e *Engine) MustRegister(phase Phase, name string, handler Handler, opts ...RegisterOption) {
	if err := e.Register(phase, name, handler, opts...); err != nil {
		panic(err)
	}
}

// Freeze validates the configuration and makes the registry immutable.
// It must be called once, before the first connection is created.
func (e *Engine) Freeze() error {
	var result *multierror.Error
	if e.opts.karma != nil && e.opts.karma.Immune <= e.opts.karma.Naughty {
		result = multierror.Append(result, &ConfigurationError{
			Reason: "karma immune threshold must be greater than the naughty threshold",
		})
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	e.reg.freeze()
	return nil
}

// Frozen reports whether Freeze was called.
func (e *Engine) Frozen() bool { return e.reg.frozen }

// NewConnection creates the engine-side state for one accepted session.
// The allow-list predicate, when configured, runs here and may mark the
// connection immune before any handler sees it.
func (e *Engine) NewConnection(remote net.Addr) (*Connection, error) {
	if !e.reg.frozen {
		return nil, ErrNotFrozen
	}
	conn := &Connection{
		id:     genConnID(),
		remote: remote,
		notes:  newNotes(),
		ledger: newLedger(e.opts.karma),
		closed: make(chan struct{}),
	}
	if e.opts.allowList != nil && e.opts.allowList(conn) {
		conn.ledger.SetImmune()
	}
	return conn, nil
}
