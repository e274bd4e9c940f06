package gatekeeper

import (
	"net"
	"testing"
)

func TestEngine_NewConnection(t *testing.T) {
	e := New()
	if _, err := e.NewConnection(nil); err != ErrNotFrozen {
		t.Fatalf("NewConnection() before freeze error = %v, want ErrNotFrozen", err)
	}
	if err := e.Freeze(); err != nil {
		t.Fatalf("Freeze() error = %v", err)
	}
	addr := &net.TCPAddr{IP: net.IPv4(192, 0, 2, 1), Port: 2525}
	conn, err := e.NewConnection(addr)
	if err != nil {
		t.Fatalf("NewConnection() error = %v", err)
	}
	defer conn.Close()
	if conn.ID() == "" {
		t.Errorf("ID() is empty")
	}
	if conn.RemoteAddr() != addr {
		t.Errorf("RemoteAddr() = %v, want %v", conn.RemoteAddr(), addr)
	}
	if conn.Closed() {
		t.Errorf("Closed() = true for fresh connection")
	}

	other, err := e.NewConnection(addr)
	if err != nil {
		t.Fatalf("NewConnection() error = %v", err)
	}
	defer other.Close()
	if other.ID() == conn.ID() {
		t.Errorf("two connections share ID %q", conn.ID())
	}
}

func TestEngine_AllowList(t *testing.T) {
	e := New(WithAllowList(func(conn *Connection) bool { return true }))
	conn := newTestConn(t, e)
	defer conn.Close()
	if !conn.Karma().IsImmune() {
		t.Errorf("allow-listed connection IsImmune() = false")
	}
}

func TestEngine_FreezeValidatesThresholds(t *testing.T) {
	e := New(WithKarmaThresholds(-5, 5))
	if err := e.Freeze(); err == nil {
		t.Errorf("Freeze() accepted immune threshold below naughty threshold")
	}
}

func TestConnection_TransactionLifecycle(t *testing.T) {
	e := New()
	conn := newTestConn(t, e)
	defer conn.Close()

	if conn.Transaction() != nil {
		t.Fatal("fresh connection has a live transaction")
	}
	trx := conn.BeginTransaction()
	if trx.Conn() != conn {
		t.Errorf("Conn() back-reference broken")
	}
	if trx.Seq() != 1 {
		t.Errorf("Seq() = %d, want 1", trx.Seq())
	}
	trx.Notes().Set("smtp", "mail_from", "a@example.com")
	trx.Deferred().Store("pending")

	trx.Reset()
	if trx.Notes().Len() != 0 {
		t.Errorf("Reset() left %d notes", trx.Notes().Len())
	}
	if trx.Deferred().HasPending() {
		t.Errorf("Reset() left deferred rejections")
	}

	conn.EndTransaction()
	if conn.Transaction() != nil {
		t.Errorf("EndTransaction() left a live transaction")
	}

	second := conn.BeginTransaction()
	if second.Seq() != 2 {
		t.Errorf("Seq() = %d, want 2", second.Seq())
	}
}

func TestConnection_KarmaSurvivesTransactions(t *testing.T) {
	e := New()
	conn := newTestConn(t, e)
	defer conn.Close()

	conn.BeginTransaction()
	conn.Karma().Adjust(-2)
	conn.EndTransaction()
	conn.BeginTransaction()
	conn.Karma().Adjust(-1)
	if conn.Karma().Score() != -3 {
		t.Errorf("Score() = %d, want -3 across transactions", conn.Karma().Score())
	}
}

func TestConnection_CloseFreezesLedger(t *testing.T) {
	e := New()
	conn := newTestConn(t, e)
	conn.Karma().Adjust(-1)
	conn.Close()
	conn.Close() // idempotent
	if !conn.Closed() {
		t.Fatal("Closed() = false after Close")
	}
	conn.Karma().Adjust(-1)
	if conn.Karma().Score() != -1 {
		t.Errorf("Score() = %d, want -1 after close", conn.Karma().Score())
	}
	if conn.Transaction() != nil {
		t.Errorf("Close() left a live transaction")
	}
}
