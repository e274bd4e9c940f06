package gatekeeper_test

import (
	"context"
	"fmt"

	"github.com/mailtap/gatekeeper"
)

// ExampleEngine wires two handlers into the mail phase and shows how the
// dispatcher folds their results: the first terminal verdict wins and ends
// the chain.
func ExampleEngine() {
	engine := gatekeeper.New()
	engine.MustRegister(gatekeeper.PhaseMail, "greylist", gatekeeper.HandlerFunc(
		func(_ context.Context, conn *gatekeeper.Connection, _ *gatekeeper.Transaction) (gatekeeper.Verdict, error) {
			conn.Karma().Adjust(-1)
			return gatekeeper.Decline(), nil
		}))
	engine.MustRegister(gatekeeper.PhaseMail, "blocklist", gatekeeper.HandlerFunc(
		func(context.Context, *gatekeeper.Connection, *gatekeeper.Transaction) (gatekeeper.Verdict, error) {
			return gatekeeper.DenySoft("listed, try again later"), nil
		}))
	if err := engine.Freeze(); err != nil {
		panic(err)
	}

	conn, err := engine.NewConnection(nil)
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	verdict := engine.RunPhase(context.Background(), gatekeeper.PhaseMail, conn, conn.BeginTransaction())
	fmt.Println(verdict)
	fmt.Println(conn.Karma().Score())
	// Output:
	// deny_soft listed, try again later
	// -1
}
