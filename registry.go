package gatekeeper

import (
	"context"
	"fmt"
	"sort"
)

// Handler is a filter module bound to one or more phases. Its Check method
// must return exactly one [Verdict]; it may additionally write notes, adjust
// karma or store deferred rejections through conn and trx.
//
// trx is nil for phases that run outside a mail transaction (connect,
// helo/ehlo, quit).
//
// A non-nil error is a handler fault: it is logged and the handler counts as
// having declined. Faults never reach other handlers or other connections.
type Handler interface {
	Check(ctx context.Context, conn *Connection, trx *Transaction) (Verdict, error)
}

// HandlerFunc adapts a plain function to the [Handler] interface.
type HandlerFunc func(ctx context.Context, conn *Connection, trx *Transaction) (Verdict, error)

func (f HandlerFunc) Check(ctx context.Context, conn *Connection, trx *Transaction) (Verdict, error) {
	return f(ctx, conn, trx)
}

// ConfigPair is one registration option a handler defines for itself.
// The engine imposes no shape beyond ordered key/value pairs; it only
// compares them to detect conflicting re-registrations.
type ConfigPair struct {
	Key, Value string
}

// Config is the ordered registration configuration of one handler.
type Config []ConfigPair

// Get returns the value of the first pair with the given key.
func (c Config) Get(key string) (string, bool) {
	for _, p := range c {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Equal reports whether two configurations have the same pairs in the same order.
func (c Config) Equal(other Config) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

type registration struct {
	phase     Phase
	name      string
	handler   Handler
	config    Config
	runLast   bool
	alwaysRun bool
	seq       int
}

// RegisterOption tunes one registration.
type RegisterOption func(*registration)

// RunLast places the handler after all hint-less handlers of the same phase.
// A flushing handler that converts deferred state into an actual rejection
// must see the final opinions of every scoring handler, so it runs last.
func RunLast() RegisterOption {
	return func(r *registration) { r.runLast = true }
}

// AlwaysRun opts the handler out of the immunity shortcut: it runs even for
// immune connections. Meant for handlers with no filtering effect, such as
// pure logging.
func AlwaysRun() RegisterOption {
	return func(r *registration) { r.alwaysRun = true }
}

// WithConfig attaches the handler's own registration options. Registering the
// same (phase, name) pair again with a different configuration is a
// [ConfigurationError]: these options are immutable for the lifetime of the
// engine.
func WithConfig(pairs ...ConfigPair) RegisterOption {
	return func(r *registration) { r.config = pairs }
}

// registry maps phases to their handler chains. It is mutable only until
// Freeze; afterwards all concurrent connection goroutines read it without
// synchronization.
type registry struct {
	phases map[Phase]bool
	regs   map[Phase][]*registration
	seq    int
	frozen bool
}

func newRegistry(extra []Phase) *registry {
	r := &registry{
		phases: make(map[Phase]bool),
		regs:   make(map[Phase][]*registration),
	}
	for _, p := range BuiltinPhases() {
		r.phases[p] = true
	}
	for _, p := range extra {
		r.phases[p] = true
	}
	return r
}

func (r *registry) register(phase Phase, name string, handler Handler, opts ...RegisterOption) error {
	if r.frozen {
		return ErrFrozen
	}
	if !r.phases[phase] {
		return &ConfigurationError{Phase: phase, Handler: name, Reason: "unknown phase"}
	}
	if name == "" {
		return &ConfigurationError{Phase: phase, Handler: name, Reason: "handler name must not be empty"}
	}
	if handler == nil {
		return &ConfigurationError{Phase: phase, Handler: name, Reason: "handler must not be nil"}
	}
	reg := &registration{phase: phase, name: name, handler: handler, seq: r.seq}
	for _, o := range opts {
		o(reg)
	}
	for _, existing := range r.regs[phase] {
		if existing.name == name && !existing.config.Equal(reg.config) {
			return &ConfigurationError{
				Phase:   phase,
				Handler: name,
				Reason:  fmt.Sprintf("conflicting configuration (already registered with %v)", existing.config),
			}
		}
	}
	r.seq++
	r.regs[phase] = append(r.regs[phase], reg)
	return nil
}

func (r *registry) freeze() {
	if r.frozen {
		return
	}
	r.frozen = true
	// fix the final chain order once so handlersFor is a plain map read
	for phase := range r.regs {
		regs := r.regs[phase]
		sort.SliceStable(regs, func(i, j int) bool {
			if regs[i].runLast != regs[j].runLast {
				return !regs[i].runLast
			}
			return regs[i].seq < regs[j].seq
		})
	}
}

func (r *registry) handlersFor(phase Phase) []*registration {
	return r.regs[phase]
}
