// Package heloname scores the hostname a client announced in HELO/EHLO.
// The protocol engine stores the announced name in the connection notes
// under (NoteNamespace, NoteName) before dispatching the phase.
//
// Violations accumulate a weight that is charged against the connection's
// karma; whether a weight also produces an immediate rejection is decided by
// an explicit rule table keyed on the configured strictness level, so the
// thresholds are visible configuration instead of buried comparisons.
package heloname

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	"github.com/mailtap/gatekeeper"
)

// Notes contract between the protocol engine and this check.
const (
	NoteNamespace = "heloname"
	NoteName      = "name"  // set by the protocol engine: the announced name
	NoteASCII     = "ascii" // set by this check: the IDNA ASCII form, when valid
)

// Rule maps an accumulated violation weight to a verdict action, active at or
// above a strictness level. The first matching rule wins.
type Rule struct {
	MinLevel  int
	MinWeight int
	Action    gatekeeper.Action
}

// DefaultRules is the shipped strictness table: permanent rejection only at
// level 4 and above, temporary rejection from level 2, scoring only below.
var DefaultRules = []Rule{
	{MinLevel: 4, MinWeight: 3, Action: gatekeeper.ActDeny},
	{MinLevel: 3, MinWeight: 2, Action: gatekeeper.ActDenySoft},
	{MinLevel: 2, MinWeight: 3, Action: gatekeeper.ActDenySoft},
}

// Check is the helo/ehlo-phase handler.
type Check struct {
	level int
	rules []Rule
}

// New returns a check at the given strictness level with DefaultRules.
func New(level int) *Check {
	return NewWithRules(level, DefaultRules)
}

// NewWithRules returns a check with a custom rule table.
func NewWithRules(level int, rules []Rule) *Check {
	return &Check{level: level, rules: rules}
}

var _ gatekeeper.Handler = (*Check)(nil)

func (c *Check) Check(_ context.Context, conn *gatekeeper.Connection, _ *gatekeeper.Transaction) (gatekeeper.Verdict, error) {
	name, ok := conn.Notes().String(NoteNamespace, NoteName)
	if !ok {
		// nothing announced yet; not our place to guess
		return gatekeeper.Decline(), nil
	}
	weight, reason := c.judge(conn, name)
	if weight == 0 {
		return gatekeeper.Decline(), nil
	}
	conn.Karma().Adjust(-weight)
	for _, r := range c.rules {
		if c.level >= r.MinLevel && weight >= r.MinWeight {
			switch r.Action {
			case gatekeeper.ActDeny:
				return gatekeeper.Deny(reason), nil
			case gatekeeper.ActDenySoft:
				return gatekeeper.DenySoft(reason), nil
			case gatekeeper.ActDenySoftDisconnect:
				return gatekeeper.DenySoftDisconnect(reason), nil
			}
		}
	}
	return gatekeeper.Decline(), nil
}

// judge accumulates violation weight for the announced name and records the
// normalized ASCII form for later checks when the name is a usable hostname.
func (c *Check) judge(conn *gatekeeper.Connection, name string) (int, string) {
	if name == "" {
		return 3, "empty HELO name"
	}
	if strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]") {
		// address literal per RFC 5321, acceptable but worth nothing
		return 0, ""
	}
	if net.ParseIP(name) != nil {
		return 2, fmt.Sprintf("bare IP address %q in HELO", name)
	}
	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return 2, fmt.Sprintf("HELO name %q is not a valid hostname", name)
	}
	conn.Notes().Set(NoteNamespace, NoteASCII, ascii)
	if !strings.Contains(ascii, ".") {
		return 1, fmt.Sprintf("HELO name %q is not fully qualified", name)
	}
	return 0, ""
}

// Register binds the check to both the helo and the ehlo phase with the same
// immutable strictness configuration.
func Register(e *gatekeeper.Engine, level int) error {
	cfg := gatekeeper.WithConfig(gatekeeper.ConfigPair{Key: "level", Value: strconv.Itoa(level)})
	check := New(level)
	for _, phase := range []gatekeeper.Phase{gatekeeper.PhaseHelo, gatekeeper.PhaseEhlo} {
		if err := e.Register(phase, "heloname", check, cfg); err != nil {
			return err
		}
	}
	return nil
}
