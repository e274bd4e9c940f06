package earlytalker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailtap/gatekeeper"
)

// instantWake elapses every deadline immediately so tests never sleep.
type instantWake struct{}

func (instantWake) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func newEngine(t *testing.T, opts ...gatekeeper.Option) *gatekeeper.Engine {
	t.Helper()
	e := gatekeeper.New(opts...)
	require.NoError(t, Register(e, 20*time.Second, 2))
	require.NoError(t, e.Freeze())
	return e
}

func TestCheck_EarlyTalkerRejected(t *testing.T) {
	e := newEngine(t)
	conn, err := e.NewConnection(nil)
	require.NoError(t, err)
	defer conn.Close()

	token := gatekeeper.NewReadinessToken()
	token.Fire() // the client already transmitted
	conn.Notes().Set(NoteNamespace, NoteToken, token)

	v := e.RunPhase(context.Background(), gatekeeper.PhaseConnect, conn, nil)
	assert.Equal(t, gatekeeper.ActDenySoftDisconnect, v.Action())
	assert.Equal(t, -2, conn.Karma().Score())
	assert.True(t, conn.Karma().IsNaughty())
}

func TestCheck_PatientClientPasses(t *testing.T) {
	e := newEngine(t, gatekeeper.WithWakeProvider(instantWake{}))
	conn, err := e.NewConnection(nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.Notes().Set(NoteNamespace, NoteToken, gatekeeper.NewReadinessToken())

	v := e.RunPhase(context.Background(), gatekeeper.PhaseConnect, conn, nil)
	assert.Equal(t, gatekeeper.ActDecline, v.Action())
	assert.Zero(t, conn.Karma().Score())
	assert.False(t, conn.Karma().IsNaughty())
}

func TestCheck_NoTokenActsAsPureDelay(t *testing.T) {
	e := newEngine(t, gatekeeper.WithWakeProvider(instantWake{}))
	conn, err := e.NewConnection(nil)
	require.NoError(t, err)
	defer conn.Close()

	v := e.RunPhase(context.Background(), gatekeeper.PhaseConnect, conn, nil)
	assert.Equal(t, gatekeeper.ActDecline, v.Action())
}

func TestRegister_ConflictingWaitDurations(t *testing.T) {
	e := gatekeeper.New()
	require.NoError(t, Register(e, 20*time.Second, 2))
	require.NoError(t, Register(e, 20*time.Second, 2), "identical re-registration is allowed")

	err := Register(e, 90*time.Second, 2)
	require.Error(t, err)
	var confErr *gatekeeper.ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, gatekeeper.PhaseConnect, confErr.Phase)
	assert.Equal(t, "earlytalker", confErr.Handler)
}
