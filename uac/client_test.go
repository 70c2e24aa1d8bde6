package uac

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipcore/sipua/dialog"
	"github.com/sipcore/sipua/sip"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c := New(Config{
		ServerHost: "127.0.0.1",
		ServerPort: 5060,
		Username:   "alice",
		Domain:     "example.test",
		LocalIP:    "127.0.0.1",
		Logger:     sip.DefaultLogger(),
	})
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(c.Stop)
	return c
}

func TestMakeCallCreatesDialogAndSendsInvite(t *testing.T) {
	received := make(chan sip.Message, 1)
	srv, err := newUDPProbe(received)
	require.NoError(t, err)
	defer srv.Close()

	c := newTestClient(t)
	c.cfg.ServerHost, c.cfg.ServerPort = srv.host, srv.port

	callID, err := c.MakeCall(srv.uri())
	require.NoError(t, err)
	assert.NotEmpty(t, callID)

	active := c.ActiveCalls()
	require.Len(t, active, 1)
	assert.Equal(t, callID, active[0].CallID)
	assert.Equal(t, dialog.Initiating, active[0].State)

	select {
	case msg := <-received:
		req, ok := msg.(*sip.Request)
		require.True(t, ok)
		assert.Equal(t, sip.INVITE, req.Method)
		assert.Contains(t, string(req.Body()), "m=audio")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for INVITE")
	}
}

func TestHangupUnknownCallIsSilent(t *testing.T) {
	c := newTestClient(t)
	assert.NotPanics(t, func() { c.Hangup("no-such-call") })
}

func TestRegisterBeforeStartFails(t *testing.T) {
	c := New(Config{ServerHost: "127.0.0.1", ServerPort: 5060, Logger: sip.DefaultLogger()})
	err := c.Register(3600)
	assert.ErrorIs(t, err, ErrNotRunning)
}
