package gatekeeper

// DeferredQueue records rejections that were decided early but may only be
// disclosed at a later phase. A check that condemns a message at MAIL time
// stores its reason here; a flushing handler at the disclosure phase turns
// the queue into an actual verdict, so the sending server sees the rejection
// at a point that correlates cleanly with its command sequencing.
type DeferredQueue struct {
	reasons []string
}

// Store appends a pending rejection reason.
func (q *DeferredQueue) Store(reason string) {
	q.reasons = append(q.reasons, reason)
}

// HasPending reports whether any rejection reasons are pending.
func (q *DeferredQueue) HasPending() bool { return len(q.reasons) > 0 }

// Pending returns the number of pending reasons.
func (q *DeferredQueue) Pending() int { return len(q.reasons) }

// Flush drains the queue and returns the first stored reason verbatim.
// A second Flush before any new Store returns ok == false.
func (q *DeferredQueue) Flush() (reason string, ok bool) {
	if len(q.reasons) == 0 {
		return "", false
	}
	reason = q.reasons[0]
	q.reasons = nil
	return reason, true
}

// FlushAll drains the queue and returns every stored reason in store order.
// Callers that want a combined reply must keep the first reason verbatim.
func (q *DeferredQueue) FlushAll() []string {
	reasons := q.reasons
	q.reasons = nil
	return reasons
}

func (q *DeferredQueue) clear() { q.reasons = nil }
