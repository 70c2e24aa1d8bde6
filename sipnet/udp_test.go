package sipnet

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sipcore/sipua/sip"
)

func TestTransportRoundTrip(t *testing.T) {
	received := make(chan sip.Message, 1)
	server, err := NewTransport("127.0.0.1", 0, func(msg sip.Message) {
		received <- msg
	}, sip.DefaultLogger())
	require.NoError(t, err)
	defer server.Close()
	server.Serve(context.Background())

	client, err := NewTransport("127.0.0.1", 0, nil, sip.DefaultLogger())
	require.NoError(t, err)
	defer client.Close()

	recipient := sip.Uri{User: "bob", Host: "127.0.0.1"}
	req := sip.NewRequest(sip.OPTIONS, recipient)
	req.AppendHeader(sip.NewCallIDHeader("abc123"))

	err = client.Send(server.LocalAddr().String(), req)
	require.NoError(t, err)

	select {
	case msg := <-received:
		r, ok := msg.(*sip.Request)
		require.True(t, ok)
		require.Equal(t, sip.OPTIONS, r.Method)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for datagram")
	}
}

func TestTransportResolutionFailed(t *testing.T) {
	client, err := NewTransport("127.0.0.1", 0, nil, sip.DefaultLogger())
	require.NoError(t, err)
	defer client.Close()

	recipient := sip.Uri{User: "bob", Host: "example.invalid"}
	req := sip.NewRequest(sip.OPTIONS, recipient)

	err = client.Send("no-such-host.invalid:5060", req)
	require.Error(t, err)
	var resolveErr *ResolutionFailed
	require.ErrorAs(t, err, &resolveErr)
}

func TestTransportBindFailed(t *testing.T) {
	first, err := NewTransport("127.0.0.1", 0, nil, sip.DefaultLogger())
	require.NoError(t, err)
	defer first.Close()

	_, err = NewTransport("127.0.0.1", first.LocalAddr().Port, nil, sip.DefaultLogger())
	require.Error(t, err)
	var bindErr *BindFailed
	require.ErrorAs(t, err, &bindErr)
}

func TestTransportCloseStopsReceiveLoop(t *testing.T) {
	tr, err := NewTransport("127.0.0.1", 0, func(sip.Message) {}, sip.DefaultLogger())
	require.NoError(t, err)
	tr.Serve(context.Background())
	require.NoError(t, tr.Close())

	// Close joins on t.wg before returning, so a nil return here means
	// Serve's goroutine has exited.
	_ = net.ErrClosed
}
