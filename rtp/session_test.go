package rtp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionSequenceMonotonicity(t *testing.T) {
	sender, err := NewSession(Config{
		LocalAddr:   &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)},
		SSRC:        1,
		PayloadType: 0,
		StartSeq:    65533,
	})
	require.NoError(t, err)
	defer sender.Stop()

	receiver, err := NewSession(Config{LocalAddr: &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)}})
	require.NoError(t, err)

	received := make(chan uint16, 8)
	receiver.onPacket = func(p *Packet, _ net.Addr) { received <- p.SequenceNumber }
	receiver.Start(context.Background())
	defer receiver.Stop()

	const n = 5
	for i := 0; i < n; i++ {
		require.NoError(t, sender.Send(receiver.LocalAddr(), []byte("x")))
	}

	want := []uint16{65533, 65534, 65535, 0, 1}
	for i := 0; i < n; i++ {
		select {
		case got := <-received:
			require.Equal(t, want[i], got)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for packet")
		}
	}
}
