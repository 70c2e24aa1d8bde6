package sip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	raw := "INVITE sip:bob@biloxi.com SIP/2.0\r\n" +
		"Via: SIP/2.0/UDP pc33.atlanta.com;branch=z9hG4bK776asdhds\r\n" +
		"From: \"Alice\" <sip:alice@atlanta.com>;tag=1928301774\r\n" +
		"To: Bob <sip:bob@biloxi.com>\r\n" +
		"Call-ID: a84b4c76e66710@pc33.atlanta.com\r\n" +
		"CSeq: 314159 INVITE\r\n" +
		"Max-Forwards: 70\r\n" +
		"Content-Length: 4\r\n" +
		"\r\n" +
		"abcd"

	msg, err := ParseMessage([]byte(raw))
	require.NoError(t, err)

	req, ok := msg.(*Request)
	require.True(t, ok)
	assert.Equal(t, INVITE, req.Method)
	assert.Equal(t, "bob", req.Recipient.User)
	assert.Equal(t, "biloxi.com", req.Recipient.Host)
	assert.Equal(t, []byte("abcd"), req.Body())

	via, ok := req.Via()
	require.True(t, ok)
	assert.Equal(t, "UDP", via.Transport)
	branch, ok := via.Branch()
	require.True(t, ok)
	assert.Equal(t, "z9hG4bK776asdhds", branch)

	from, ok := req.From()
	require.True(t, ok)
	tag, ok := from.Tag()
	require.True(t, ok)
	assert.Equal(t, "1928301774", tag)

	cseq, ok := req.CSeq()
	require.True(t, ok)
	assert.Equal(t, uint32(314159), cseq.SeqNo)
	assert.Equal(t, INVITE, cseq.MethodName)
}

func TestParseResponse(t *testing.T) {
	raw := "SIP/2.0 200 OK\r\n" +
		"Via: SIP/2.0/UDP pc33.atlanta.com;branch=z9hG4bK776asdhds\r\n" +
		"To: Bob <sip:bob@biloxi.com>;tag=a6c85cf\r\n" +
		"Call-ID: a84b4c76e66710@pc33.atlanta.com\r\n" +
		"CSeq: 314159 INVITE\r\n" +
		"Content-Length: 0\r\n" +
		"\r\n"

	msg, err := ParseMessage([]byte(raw))
	require.NoError(t, err)

	res, ok := msg.(*Response)
	require.True(t, ok)
	assert.Equal(t, 200, res.StatusCode)
	assert.True(t, res.IsSuccess())
}

func TestParseLFOnlyIsTolerated(t *testing.T) {
	raw := "INVITE sip:bob@biloxi.com SIP/2.0\n" +
		"Via: SIP/2.0/UDP pc33.atlanta.com;branch=z9hG4bK776asdhds\n" +
		"Call-ID: a84b4c76e66710@pc33.atlanta.com\n" +
		"CSeq: 314159 INVITE\n" +
		"Content-Length: 4\n" +
		"\n" +
		"abcd"

	msg, err := ParseMessage([]byte(raw))
	require.NoError(t, err)

	req, ok := msg.(*Request)
	require.True(t, ok)
	assert.Equal(t, INVITE, req.Method)
	assert.Equal(t, []byte("abcd"), req.Body())
}

func TestParseTruncatedBody(t *testing.T) {
	raw := "SIP/2.0 200 OK\r\nCall-ID: x\r\nContent-Length: 10\r\n\r\nab"
	_, err := ParseMessage([]byte(raw))
	require.ErrorIs(t, err, ErrTruncatedBody)
}

func TestGenericHeaderFolding(t *testing.T) {
	raw := "OPTIONS sip:bob@biloxi.com SIP/2.0\r\n" +
		"X-Custom: one\r\n" +
		"X-Custom: two\r\n" +
		"Content-Length: 0\r\n" +
		"\r\n"

	msg, err := ParseMessage([]byte(raw))
	require.NoError(t, err)

	hdrs := msg.GetHeaders("X-Custom")
	require.Len(t, hdrs, 1)
	assert.Equal(t, "one, two", hdrs[0].Value())
}

func TestRoundTripStartLine(t *testing.T) {
	uri := Uri{Host: "biloxi.com", User: "bob"}
	req := NewRequest(INVITE, uri)
	assert.Equal(t, "INVITE sip:bob@biloxi.com SIP/2.0", req.StartLine())
}
