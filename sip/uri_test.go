package sip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildURINoPort(t *testing.T) {
	assert.Equal(t, "sip:h", BuildURI("", "h", 0))
}

func TestBuildURIDefaultPortOmitted(t *testing.T) {
	assert.Equal(t, "sip:alice@h", BuildURI("alice", "h", DefaultSIPPort))
}

func TestBuildURINonDefaultPortKept(t *testing.T) {
	assert.Equal(t, "sip:alice@h:5070", BuildURI("alice", "h", 5070))
}

func TestParseURIRoundTrip(t *testing.T) {
	var u Uri
	require.NoError(t, ParseURI("sip:alice@atlanta.com:5070;transport=udp", &u))
	assert.Equal(t, "alice", u.User)
	assert.Equal(t, "atlanta.com", u.Host)
	assert.Equal(t, 5070, u.Port)
	val, ok := u.Params.Get("transport")
	require.True(t, ok)
	assert.Equal(t, "udp", val)
	assert.Equal(t, "sip:alice@atlanta.com:5070;transport=udp", u.String())
}

func TestParseURIRejectsUnknownScheme(t *testing.T) {
	var u Uri
	require.Error(t, ParseURI("tel:+15551234567", &u))
}
