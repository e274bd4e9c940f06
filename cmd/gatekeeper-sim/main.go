// Command gatekeeper-sim plays scripted SMTP conversations against a
// configured engine and prints the verdict of every phase. It stands in for
// the protocol engine during development: no sockets, no SMTP parsing, just
// the decision core under load.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mailtap/gatekeeper"
	"github.com/mailtap/gatekeeper/checks/earlytalker"
	"github.com/mailtap/gatekeeper/checks/fromalign"
	"github.com/mailtap/gatekeeper/checks/heloname"
	"github.com/mailtap/gatekeeper/checks/karmaflush"
)

type session struct {
	label      string
	remote     string
	talksEarly bool
	helo       string
	mailFrom   string
	rcptTo     string
	header     string
}

var sessions = []session{
	{
		label:    "clean",
		remote:   "192.0.2.10",
		helo:     "mail.example.com",
		mailFrom: "news@example.com",
		rcptTo:   "user@example.net",
		header:   "From: Example News <news@example.com>\r\nSubject: weekly digest\r\n",
	},
	{
		label:    "misaligned-from",
		remote:   "192.0.2.11",
		helo:     "mx.forwarder.example",
		mailFrom: "innocent@example.com",
		rcptTo:   "user@example.net",
		header:   "From: ceo@bank.example\r\nSubject: urgent wire transfer\r\n",
	},
	{
		label:      "early-talker",
		remote:     "192.0.2.12",
		talksEarly: true,
		helo:       "mail.example.com",
	},
	{
		label:    "rude-helo",
		remote:   "192.0.2.13",
		helo:     "192.0.2.13",
		mailFrom: "x@example.org",
		rcptTo:   "user@example.net",
		header:   "From: x@example.org\r\n",
	},
}

func play(ctx context.Context, e *gatekeeper.Engine, s session) error {
	conn, err := e.NewConnection(&net.TCPAddr{IP: net.ParseIP(s.remote), Port: 52525})
	if err != nil {
		return err
	}
	defer conn.Close()
	report := func(phase gatekeeper.Phase, v gatekeeper.Verdict) {
		log.Printf("conn=%s session=%s phase=%s verdict=%s karma=%d", conn.ID(), s.label, phase, v, conn.Karma().Score())
	}

	token := gatekeeper.NewReadinessToken()
	if s.talksEarly {
		token.Fire()
	}
	conn.Notes().Set(earlytalker.NoteNamespace, earlytalker.NoteToken, token)

	v := e.RunPhase(ctx, gatekeeper.PhaseConnect, conn, nil)
	report(gatekeeper.PhaseConnect, v)
	if v.Terminal() && v.Action() != gatekeeper.ActDone {
		return nil
	}

	conn.Notes().Set(heloname.NoteNamespace, heloname.NoteName, s.helo)
	v = e.RunPhase(ctx, gatekeeper.PhaseEhlo, conn, nil)
	report(gatekeeper.PhaseEhlo, v)
	if v.Action() == gatekeeper.ActDeny || v.Action() == gatekeeper.ActDenySoftDisconnect {
		return nil
	}

	trx := conn.BeginTransaction()
	trx.Notes().Set(fromalign.NoteNamespace, fromalign.NoteEnvelope, s.mailFrom)
	report(gatekeeper.PhaseMail, e.RunPhase(ctx, gatekeeper.PhaseMail, conn, trx))

	trx.Notes().Set("smtp", "rcpt_to", s.rcptTo)
	report(gatekeeper.PhaseRcpt, e.RunPhase(ctx, gatekeeper.PhaseRcpt, conn, trx))

	report(gatekeeper.PhaseData, e.RunPhase(ctx, gatekeeper.PhaseData, conn, trx))

	trx.Notes().Set(fromalign.NoteNamespace, fromalign.NoteHeader, s.header)
	report(gatekeeper.PhaseDataPost, e.RunPhase(ctx, gatekeeper.PhaseDataPost, conn, trx))
	conn.EndTransaction()

	report(gatekeeper.PhaseQuit, e.RunPhase(ctx, gatekeeper.PhaseQuit, conn, nil))
	return nil
}

func main() {
	strictness := flag.Int("strictness", 3, "Strictness level for the heloname and karmaflush checks")
	wait := flag.Duration("wait", 50*time.Millisecond, "Early-talker wait before the banner")
	rounds := flag.Int("rounds", 1, "How many times to play every scripted session concurrently")
	flag.Parse()

	e := gatekeeper.New(gatekeeper.WithKarmaThresholds(10, -5))
	if err := earlytalker.Register(e, *wait, 2); err != nil {
		log.Fatal(err)
	}
	if err := heloname.Register(e, *strictness); err != nil {
		log.Fatal(err)
	}
	if err := fromalign.Register(e, 2); err != nil {
		log.Fatal(err)
	}
	if err := karmaflush.Register(e, *strictness); err != nil {
		log.Fatal(err)
	}
	if err := e.Freeze(); err != nil {
		log.Fatal(err)
	}

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < *rounds; i++ {
		for _, s := range sessions {
			s := s
			g.Go(func() error { return play(ctx, e, s) })
		}
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}
