package gatekeeper

// Transaction is one MAIL…RSET/DATA cycle inside a connection. It carries its
// own note store and the deferred rejection queue; both are discarded when
// the transaction ends or resets. The connection-scoped ledger is reachable
// through Conn and is deliberately not duplicated here: karma accumulates
// across transactions.
type Transaction struct {
	conn     *Connection
	seq      int
	notes    *Notes
	deferred *DeferredQueue
}

// Conn returns the owning connection.
func (t *Transaction) Conn() *Connection { return t.conn }

// Seq returns the 1-based position of this transaction within its connection.
func (t *Transaction) Seq() int { return t.seq }

// Notes returns the transaction-scoped note store.
func (t *Transaction) Notes() *Notes { return t.notes }

// Deferred returns the deferred rejection queue of this transaction.
func (t *Transaction) Deferred() *DeferredQueue { return t.deferred }

// Reset clears the note store and the deferred rejection queue, as on RSET.
// The transaction stays usable.
func (t *Transaction) Reset() {
	t.notes.clear()
	t.deferred.clear()
}
