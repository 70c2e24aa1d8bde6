package rtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	p := Packet{
		PayloadType:    8,
		SequenceNumber: 42,
		Timestamp:      160,
		SSRC:           0xDEADBEEF,
		Payload:        []byte("ABCD"),
	}

	frame, err := p.Marshal()
	require.NoError(t, err)
	assert.Len(t, frame, 16)

	var got Packet
	require.NoError(t, got.Unmarshal(frame))
	p.Version = 2 // Marshal defaults Version to 2; compare post-default
	assert.Equal(t, p, got)
}

func TestUnmarshalTooShort(t *testing.T) {
	var p Packet
	err := p.Unmarshal(make([]byte, 11))
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestUnmarshalTooShortForCSRC(t *testing.T) {
	buf := make([]byte, 12)
	buf[0] = 2 // CC=2 but no CSRC bytes present
	var p Packet
	err := p.Unmarshal(buf)
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestMarshalRejectsTooManyCSRC(t *testing.T) {
	p := Packet{CSRC: make([]uint32, 16)}
	_, err := p.Marshal()
	require.Error(t, err)
}
