package gatekeeper

// KarmaThresholds derives connection flags from the cumulative score.
// A score of Immune or above marks the connection immune, a score of Naughty
// or below marks it naughty. Use [WithKarmaThresholds] to enable.
type KarmaThresholds struct {
	Immune  int
	Naughty int
}

// Ledger is the reputation score of one connection. Handlers adjust it to
// make their judgment visible to later, unrelated handlers without being
// coupled to them directly: an SPF failure recorded at MAIL time can harden
// a virus check at DATA time through nothing but the score.
//
// The score accumulates over the whole connection, it is never reset per
// transaction. Once the connection closes the ledger freezes and all
// further adjustments are ignored.
type Ledger struct {
	score      int
	naughty    bool
	naughtyWhy string
	immune     bool
	frozen     bool
	thresholds *KarmaThresholds
}

func newLedger(thresholds *KarmaThresholds) *Ledger {
	return &Ledger{thresholds: thresholds}
}

// Adjust adds delta to the score. Positive deltas reward, negative ones
// punish. When thresholds are configured, crossing them flags the connection
// immune or naughty.
func (l *Ledger) Adjust(delta int) {
	if l.frozen {
		return
	}
	l.score += delta
	if l.thresholds == nil {
		return
	}
	if l.score >= l.thresholds.Immune {
		l.immune = true
	}
	if l.score <= l.thresholds.Naughty {
		l.markNaughty("karma score fell below threshold")
	}
}

// Score returns the cumulative score.
func (l *Ledger) Score() int { return l.score }

// SetImmune exempts the connection from further scrutiny. The dispatcher
// skips all handlers that did not register with [AlwaysRun] for the rest of
// the connection. Allow-list checks call this independent of the score.
func (l *Ledger) SetImmune() {
	if l.frozen {
		return
	}
	l.immune = true
}

// IsImmune reports whether the connection is exempt from scrutiny.
func (l *Ledger) IsImmune() bool { return l.immune }

// MarkNaughty flags the connection as already condemned. The flag is sticky:
// the first reason wins and later calls cannot clear it. Execution of the
// remaining chain continues so other handlers can record their own opinion.
func (l *Ledger) MarkNaughty(reason string) {
	if l.frozen {
		return
	}
	l.markNaughty(reason)
}

func (l *Ledger) markNaughty(reason string) {
	if l.naughty {
		return
	}
	l.naughty = true
	l.naughtyWhy = reason
}

// IsNaughty reports whether the connection was marked naughty.
func (l *Ledger) IsNaughty() bool { return l.naughty }

// NaughtyReason returns the reason recorded by the first MarkNaughty call.
func (l *Ledger) NaughtyReason() string { return l.naughtyWhy }

func (l *Ledger) freeze() { l.frozen = true }
