package sdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOfferShape(t *testing.T) {
	offer := BuildOffer("192.168.1.5", 40000)
	assert.Contains(t, offer, "c=IN IP4 192.168.1.5\r\n")
	assert.Contains(t, offer, "m=audio 40000 RTP/AVP 0 8\r\n")
	assert.Contains(t, offer, "a=rtpmap:0 PCMU/8000\r\n")
	assert.Contains(t, offer, "a=rtpmap:8 PCMA/8000\r\n")
	assert.Contains(t, offer, "a=sendrecv\r\n")
}

func TestParseConnectionAndMedia(t *testing.T) {
	body := []byte(BuildOffer("10.0.0.7", 5004))

	ip, err := ParseConnection(body)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", ip)

	port, pts, err := ParseMedia(body)
	require.NoError(t, err)
	assert.Equal(t, 5004, port)
	assert.Equal(t, []int{0, 8}, pts)
}

func TestParseConnectionMissing(t *testing.T) {
	_, err := ParseConnection([]byte("v=0\r\ns=x\r\n"))
	require.ErrorIs(t, err, ErrNoConnectionLine)
}

func TestParseRtpMap(t *testing.T) {
	body := []byte(BuildOffer("10.0.0.7", 5004))
	maps := ParseRtpMap(body)
	require.Len(t, maps, 2)
	assert.Equal(t, RtpMap{PayloadType: 0, Encoding: "PCMU", ClockRate: 8000}, maps[0])
	assert.Equal(t, RtpMap{PayloadType: 8, Encoding: "PCMA", ClockRate: 8000}, maps[1])
}
