package gatekeeper

import (
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid"
)

func genConnID() string {
	seed := time.Now().UnixNano()
	entropy := rand.New(rand.NewSource(seed))
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Connection is the engine-side state of one accepted network session. It is
// owned by the goroutine that dispatches phases for that session; nothing in
// it is shared between connections, so no locking guards the note store or
// the ledger.
//
// Close must be called when the session ends. It cancels every outstanding
// suspension so that no resumption can touch the destroyed state.
type Connection struct {
	id     string
	remote net.Addr
	notes  *Notes
	ledger *Ledger
	trx    *Transaction

	closed     chan struct{}
	closeOnce  sync.Once
	suspended  atomic.Int32
	trxCounter int
}

// ID returns the unique identifier of this connection.
func (c *Connection) ID() string { return c.id }

// RemoteAddr returns the remote address of the session.
func (c *Connection) RemoteAddr() net.Addr { return c.remote }

// Notes returns the connection-scoped note store. It lives until Close.
func (c *Connection) Notes() *Notes { return c.notes }

// Karma returns the reputation ledger of this connection.
func (c *Connection) Karma() *Ledger { return c.ledger }

// BeginTransaction starts a new MAIL…DATA cycle. Any transaction still in
// progress is ended first; a connection has at most one live transaction.
func (c *Connection) BeginTransaction() *Transaction {
	c.trxCounter++
	c.trx = &Transaction{
		conn:     c,
		seq:      c.trxCounter,
		notes:    newNotes(),
		deferred: &DeferredQueue{},
	}
	return c.trx
}

// Transaction returns the live transaction, or nil outside a MAIL…DATA cycle.
func (c *Connection) Transaction() *Transaction { return c.trx }

// EndTransaction destroys the live transaction. The protocol engine calls
// this on RSET and after DATA completed, successfully or not.
func (c *Connection) EndTransaction() { c.trx = nil }

// Close ends the session. Every outstanding suspension is cancelled; its
// resumption will never be invoked. The ledger freezes, so the score and the
// naughty flag stop changing. Close is idempotent.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.ledger.freeze()
		c.trx = nil
		close(c.closed)
	})
}

// Closed reports whether Close was called.
func (c *Connection) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// PendingSuspensions returns the number of handlers currently suspended on
// this connection.
func (c *Connection) PendingSuspensions() int {
	return int(c.suspended.Load())
}

func (c *Connection) suspensionStarted()  { c.suspended.Add(1) }
func (c *Connection) suspensionFinished() { c.suspended.Add(-1) }
