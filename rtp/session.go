package rtp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	packetsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtp_packets_sent_total",
		Help: "RTP packets successfully written to the wire.",
	})
	packetsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtp_packets_dropped_total",
		Help: "RTP packets discarded on decode failure or short read.",
	})
)

// PacketHandler receives one decoded inbound RTP packet and its source.
type PacketHandler func(p *Packet, src net.Addr)

// Session is a bound RTP endpoint: one receive goroutine draining a UDP
// socket plus a Send method any goroutine may call. Sequence number and
// timestamp advance monotonically across Send calls (spec §8 property 5).
type Session struct {
	conn        *net.UDPConn
	ssrc        uint32
	payloadType uint8

	seq       atomic.Uint32 // stored as uint32, truncated to uint16 on use
	timestamp atomic.Uint32

	onPacket PacketHandler

	log zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	active atomic.Bool
}

// Config configures a new Session.
type Config struct {
	LocalAddr      *net.UDPAddr
	SSRC           uint32
	PayloadType    uint8
	StartSeq       uint16
	StartTimestamp uint32
	OnPacket       PacketHandler
	Logger         zerolog.Logger
}

// NewSession binds a UDP socket at cfg.LocalAddr (port 0 lets the OS pick)
// and returns a Session ready to Start.
func NewSession(cfg Config) (*Session, error) {
	conn, err := net.ListenUDP("udp", cfg.LocalAddr)
	if err != nil {
		return nil, fmt.Errorf("rtp: bind: %w", err)
	}

	s := &Session{
		conn:        conn,
		ssrc:        cfg.SSRC,
		payloadType: cfg.PayloadType,
		onPacket:    cfg.OnPacket,
		log:         cfg.Logger,
	}
	s.seq.Store(uint32(cfg.StartSeq))
	s.timestamp.Store(cfg.StartTimestamp)
	return s, nil
}

// LocalAddr returns the bound local address, useful when Config.LocalAddr's
// port was 0 and the OS assigned one.
func (s *Session) LocalAddr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// Start spawns the receive loop. Safe to call once; a second call is a no-op.
func (s *Session) Start(ctx context.Context) {
	if !s.active.CompareAndSwap(false, true) {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.receiveLoop()
}

// Stop cancels the receive loop, closes the socket and joins with a 2s
// timeout (spec §5 "stop() ... joins with ≤2s timeout").
func (s *Session) Stop() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	s.cancel()
	s.conn.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		s.log.Warn().Msg("rtp session receive loop did not exit within 2s")
	}
}

func (s *Session) receiveLoop() {
	defer s.wg.Done()
	buf := make([]byte, 1500)
	for {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			s.log.Error().Err(err).Msg("rtp read error")
			continue
		}

		var p Packet
		if err := p.Unmarshal(buf[:n]); err != nil {
			packetsDropped.Inc()
			s.log.Debug().Err(err).Msg("dropped malformed rtp packet")
			continue
		}
		if s.onPacket != nil {
			s.onPacket(&p, addr)
		}
	}
}

// Send packs payload into the next outbound packet, advancing the sequence
// number by 1 and the timestamp by len(payload) samples, and writes it to
// dst.
func (s *Session) Send(dst *net.UDPAddr, payload []byte) error {
	seq := uint16(s.seq.Add(1) - 1)
	ts := s.timestamp.Add(uint32(len(payload))) - uint32(len(payload))

	p := Packet{
		PayloadType:    s.payloadType,
		SequenceNumber: seq,
		Timestamp:      ts,
		SSRC:           s.ssrc,
		Payload:        payload,
	}
	frame, err := p.Marshal()
	if err != nil {
		return err
	}

	if _, err := s.conn.WriteToUDP(frame, dst); err != nil {
		return fmt.Errorf("rtp: send: %w", err)
	}
	packetsSent.Inc()
	return nil
}
