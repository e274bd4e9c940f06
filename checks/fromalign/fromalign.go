// Package fromalign compares the From: header of a message with the envelope
// sender recorded at MAIL time. The two legitimately differ for mailing
// lists and forwarders, so a mismatch is not rejected on the spot: the check
// charges karma and stores a deferred rejection that the data_post flusher
// may disclose, depending on the configured strictness.
//
// The protocol engine records the envelope sender in the transaction notes
// under (NoteNamespace, NoteEnvelope) before the mail phase and the raw
// header block under (NoteNamespace, NoteHeader) before data_post.
package fromalign

import (
	"context"
	"fmt"
	"strings"

	"github.com/emersion/go-message/mail"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/net/idna"

	"github.com/mailtap/gatekeeper"
)

// Notes contract between the protocol engine and this check.
const (
	NoteNamespace = "fromalign"
	NoteEnvelope  = "envelope" // string, the MAIL FROM address
	NoteHeader    = "header"   // string, the raw message header block
	noteDomain    = "envelope_domain"
)

// Check evaluates alignment in two stages: the mail phase extracts and
// normalizes the envelope domain, data_post parses the header and compares.
type Check struct {
	penalty int
}

// New returns a check that charges penalty karma points on misalignment.
func New(penalty int) *Check {
	return &Check{penalty: penalty}
}

var _ gatekeeper.Handler = (*Check)(nil)

func (c *Check) Check(_ context.Context, conn *gatekeeper.Connection, trx *gatekeeper.Transaction) (gatekeeper.Verdict, error) {
	if trx == nil {
		return gatekeeper.Decline(), nil
	}
	if _, ok := trx.Notes().String(NoteNamespace, NoteHeader); ok {
		return c.checkHeader(conn, trx)
	}
	return c.recordEnvelope(trx)
}

func (c *Check) recordEnvelope(trx *gatekeeper.Transaction) (gatekeeper.Verdict, error) {
	envelope, ok := trx.Notes().String(NoteNamespace, NoteEnvelope)
	if !ok || envelope == "" {
		// null sender: bounces have nothing to align against
		return gatekeeper.Decline(), nil
	}
	domain, err := asciiDomain(envelope)
	if err != nil {
		return gatekeeper.Decline(), err
	}
	trx.Notes().Set(NoteNamespace, noteDomain, domain)
	return gatekeeper.Decline(), nil
}

func (c *Check) checkHeader(conn *gatekeeper.Connection, trx *gatekeeper.Transaction) (gatekeeper.Verdict, error) {
	envDomain, ok := trx.Notes().String(NoteNamespace, noteDomain)
	if !ok {
		return gatekeeper.Decline(), nil
	}
	raw, _ := trx.Notes().String(NoteNamespace, NoteHeader)
	r, err := mail.CreateReader(strings.NewReader(raw + "\r\n"))
	if err != nil {
		conn.Karma().Adjust(-c.penalty)
		trx.Deferred().Store("message header is not parseable")
		return gatekeeper.Decline(), nil
	}
	froms, err := r.Header.AddressList("From")
	if err != nil || len(froms) == 0 {
		conn.Karma().Adjust(-c.penalty)
		trx.Deferred().Store("message carries no usable From header")
		return gatekeeper.Decline(), nil
	}
	hdrDomain, err := asciiDomain(froms[0].Address)
	if err != nil {
		conn.Karma().Adjust(-c.penalty)
		trx.Deferred().Store(fmt.Sprintf("From header domain in %q is not a valid hostname", froms[0].Address))
		return gatekeeper.Decline(), nil
	}
	if hdrDomain != envDomain {
		conn.Karma().Adjust(-c.penalty)
		trx.Deferred().Store(fmt.Sprintf("From header domain %q does not match envelope sender domain %q", hdrDomain, envDomain))
	}
	return gatekeeper.Decline(), nil
}

// asciiDomain returns the IDNA ASCII form of the domain part of addr,
// lower-cased. user@dömain and user@xn--dmain-jua compare equal this way.
func asciiDomain(addr string) (string, error) {
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return "", fmt.Errorf("fromalign: address %q has no domain", addr)
	}
	ascii, err := idna.Lookup.ToASCII(strings.ToLower(addr[at+1:]))
	if err != nil {
		return "", fmt.Errorf("fromalign: domain of %q: %w", addr, err)
	}
	return ascii, nil
}

// Register binds the check to the mail and data_post phases.
func Register(e *gatekeeper.Engine, penalty int) error {
	check := New(penalty)
	var result *multierror.Error
	for _, phase := range []gatekeeper.Phase{gatekeeper.PhaseMail, gatekeeper.PhaseDataPost} {
		if err := e.Register(phase, "fromalign", check); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
