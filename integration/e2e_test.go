// Package integration wires a real uac.Client against a real uas.Server
// over loopback UDP, exercising the full call lifecycle end to end
// (SPEC_FULL §8, scenario S4).
package integration

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipcore/sipua/dialog"
	"github.com/sipcore/sipua/sip"
	"github.com/sipcore/sipua/uac"
	"github.com/sipcore/sipua/uas"
)

func waitFor(t *testing.T, ch <-chan string, timeout time.Duration, what string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for %s", what)
		return ""
	}
}

func TestFullCallLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := uas.New(uas.Config{
		LocalIP: "127.0.0.1",
		Domain:  "b.test",
		Logger:  sip.DefaultLogger(),
		RTPPort: 20000,
	})
	require.NoError(t, server.Start(ctx))
	defer server.Stop()

	incoming := make(chan string, 1)
	server.SetOnIncomingCall(func(from, to string) { incoming <- from })

	_, portStr, err := net.SplitHostPort(server.LocalAddr())
	require.NoError(t, err)
	serverPort, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	caller := uac.New(uac.Config{
		ServerHost: "127.0.0.1",
		ServerPort: serverPort,
		Username:   "alice",
		Domain:     "a.test",
		LocalIP:    "127.0.0.1",
		Logger:     sip.DefaultLogger(),
	})
	require.NoError(t, caller.Start(ctx))
	defer caller.Stop()

	trying := make(chan string, 1)
	ringing := make(chan string, 1)
	connected := make(chan string, 1)
	ended := make(chan string, 1)
	caller.SetOnTrying(func(id string) { trying <- id })
	caller.SetOnRinging(func(id string) { ringing <- id })
	caller.SetOnConnected(func(id string) { connected <- id })
	caller.SetOnEnded(func(id string) { ended <- id })

	remoteURI := fmt.Sprintf("sip:bob@127.0.0.1:%d", serverPort)
	callID, err := caller.MakeCall(remoteURI)
	require.NoError(t, err)

	waitFor(t, incoming, 2*time.Second, "incoming call callback")
	assert.Equal(t, callID, waitFor(t, trying, 2*time.Second, "100 Trying"))
	assert.Equal(t, callID, waitFor(t, ringing, 2*time.Second, "180 Ringing"))
	assert.Equal(t, callID, waitFor(t, connected, 3*time.Second, "200 OK / connected"))

	active := caller.ActiveCalls()
	require.Len(t, active, 1)
	assert.Equal(t, dialog.Connected, active[0].State)

	caller.Hangup(callID)
	assert.Equal(t, callID, waitFor(t, ended, 2*time.Second, "call ended after hangup"))
	assert.Empty(t, caller.ActiveCalls())
}
