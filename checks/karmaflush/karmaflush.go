// Package karmaflush converts judgment accumulated during a transaction into
// the verdict the client finally sees. It runs last in the data_post chain:
// every scoring check has spoken by then, so this is the single point where
// deferred rejections and the naughty flag become an actual reply.
package karmaflush

import (
	"context"
	"strconv"

	"github.com/mailtap/gatekeeper"
)

// Severity is what the flusher does when it finds something to disclose.
type Severity int

const (
	// SeverityLog drains the queue but lets the transaction pass.
	SeverityLog Severity = iota
	// SeveritySoft rejects temporarily.
	SeveritySoft
	// SeveritySoftDisconnect rejects temporarily and drops the connection.
	SeveritySoftDisconnect
	// SeverityHard rejects permanently.
	SeverityHard
)

// Table maps a configured strictness level to a [Severity]. Index by level;
// levels beyond the last entry use the last entry. The default table rejects
// from level 3 on and only disconnects at level 4 and above.
type Table []Severity

// DefaultTable is the shipped strictness mapping.
var DefaultTable = Table{
	SeverityLog,            // 0: observe only
	SeveritySoft,           // 1
	SeveritySoft,           // 2
	SeverityHard,           // 3
	SeveritySoftDisconnect, // 4+: hard reject plus disconnect pressure
}

// Severity returns the severity for level, clamping to the ends of the table.
func (t Table) Severity(level int) Severity {
	if len(t) == 0 {
		return SeverityLog
	}
	if level < 0 {
		level = 0
	}
	if level >= len(t) {
		level = len(t) - 1
	}
	return t[level]
}

// Check is the flushing handler.
type Check struct {
	level int
	table Table
}

// New returns a flusher with the given strictness level and DefaultTable.
func New(level int) *Check {
	return NewWithTable(level, DefaultTable)
}

// NewWithTable returns a flusher with a custom strictness table.
func NewWithTable(level int, table Table) *Check {
	return &Check{level: level, table: table}
}

var _ gatekeeper.Handler = (*Check)(nil)

// Check flushes the transaction's deferred rejection queue, falling back to
// the naughty flag when the queue is empty. The first stored reason is used
// verbatim; the client receives exactly one rejection message no matter how
// many checks independently condemned the transaction.
func (c *Check) Check(_ context.Context, conn *gatekeeper.Connection, trx *gatekeeper.Transaction) (gatekeeper.Verdict, error) {
	var reason string
	switch {
	case trx != nil && trx.Deferred().HasPending():
		reason, _ = trx.Deferred().Flush()
	case conn.Karma().IsNaughty():
		reason = conn.Karma().NaughtyReason()
	default:
		return gatekeeper.Decline(), nil
	}
	switch c.table.Severity(c.level) {
	case SeveritySoft:
		return gatekeeper.DenySoft(reason), nil
	case SeveritySoftDisconnect:
		return gatekeeper.DenySoftDisconnect(reason), nil
	case SeverityHard:
		return gatekeeper.Deny(reason), nil
	default:
		gatekeeper.LogWarning("karmaflush: would have rejected %s: %s", conn.ID(), reason)
		return gatekeeper.Decline(), nil
	}
}

// Register binds the flusher to data_post with run-last ordering. The level
// is immutable registration configuration: registering again with a
// different level is a configuration error.
func Register(e *gatekeeper.Engine, level int) error {
	return e.Register(gatekeeper.PhaseDataPost, "karmaflush", New(level),
		gatekeeper.RunLast(),
		gatekeeper.WithConfig(gatekeeper.ConfigPair{Key: "level", Value: strconv.Itoa(level)}),
	)
}
