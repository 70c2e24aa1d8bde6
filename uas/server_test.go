package uas

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipcore/sipua/sip"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := New(Config{
		LocalIP: "127.0.0.1",
		Domain:  "example.test",
		Logger:  sip.DefaultLogger(),
	})
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)
	return s
}

func sendAndRecv(t *testing.T, s *Server, req *sip.Request) *sip.Response {
	t.Helper()
	conn, err := newClientConn()
	require.NoError(t, err)
	defer conn.Close()

	req.SetSource(conn.LocalAddr())
	require.NoError(t, conn.Send(s.LocalAddr(), req))
	msg, err := conn.Recv(time.Second)
	require.NoError(t, err)
	resp, ok := msg.(*sip.Response)
	require.True(t, ok)
	return resp
}

func TestServerRegisterAlwaysSucceeds(t *testing.T) {
	s := newTestServer(t)

	req := sip.NewRequest(sip.REGISTER, sip.Uri{Host: "example.test"})
	req.AppendHeader(sip.NewCallIDHeader("reg-1@test"))
	req.AppendHeader(&sip.FromHeader{Address: sip.Uri{User: "alice", Host: "example.test"}})
	req.AppendHeader(&sip.ToHeader{Address: sip.Uri{User: "alice", Host: "example.test"}})
	req.AppendHeader(&sip.ContactHeader{Address: sip.Uri{User: "alice", Host: "127.0.0.1", Port: 5070}})
	req.AppendHeader(&sip.CSeqHeader{SeqNo: 1, MethodName: sip.REGISTER})

	resp := sendAndRecv(t, s, req)
	assert.Equal(t, sip.StatusOK, resp.StatusCode)

	entry, ok := s.Registrar().Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, 5070, entry.Contact.Port)
}

func TestServerOptionsAdvertisesAllow(t *testing.T) {
	s := newTestServer(t)

	req := sip.NewRequest(sip.OPTIONS, sip.Uri{Host: "example.test"})
	req.AppendHeader(sip.NewCallIDHeader("opt-1@test"))
	req.AppendHeader(&sip.FromHeader{Address: sip.Uri{User: "alice", Host: "example.test"}})
	req.AppendHeader(&sip.ToHeader{Address: sip.Uri{Host: "example.test"}})
	req.AppendHeader(&sip.CSeqHeader{SeqNo: 1, MethodName: sip.OPTIONS})

	resp := sendAndRecv(t, s, req)
	assert.Equal(t, sip.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.GetHeader("Allow").Value(), "INVITE")
}

func TestServerUnknownMethodIsNotImplemented(t *testing.T) {
	s := newTestServer(t)

	req := sip.NewRequest(sip.RequestMethod("PUBLISH"), sip.Uri{Host: "example.test"})
	req.AppendHeader(sip.NewCallIDHeader("pub-1@test"))
	req.AppendHeader(&sip.FromHeader{Address: sip.Uri{User: "alice", Host: "example.test"}})
	req.AppendHeader(&sip.ToHeader{Address: sip.Uri{Host: "example.test"}})
	req.AppendHeader(&sip.CSeqHeader{SeqNo: 1, MethodName: sip.RequestMethod("PUBLISH")})

	resp := sendAndRecv(t, s, req)
	assert.Equal(t, sip.StatusNotImplemented, resp.StatusCode)
}
