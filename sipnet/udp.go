// Package sipnet is the UDP transport for SIP messages: bind a local
// endpoint, receive datagrams on a dedicated goroutine, parse and dispatch
// them, and send outbound messages resolving hostname targets at send-site
// (spec §4.3).
package sipnet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sipcore/sipua/sip"
)

// maxDatagram bounds a single UDP read; SIP-over-UDP messages larger than
// this are out of scope (spec §4.3).
const maxDatagram = 4096

// ResolutionFailed is returned by Send when the destination host cannot be
// resolved to an IP address.
type ResolutionFailed struct {
	Host   string
	Reason error
}

func (e *ResolutionFailed) Error() string {
	return fmt.Sprintf("sipnet: resolve %q: %v", e.Host, e.Reason)
}

func (e *ResolutionFailed) Unwrap() error { return e.Reason }

// BindFailed is returned by NewTransport when the local socket cannot be
// opened.
type BindFailed struct {
	Addr   string
	Reason error
}

func (e *BindFailed) Error() string {
	return fmt.Sprintf("sipnet: bind %q: %v", e.Addr, e.Reason)
}

func (e *BindFailed) Unwrap() error { return e.Reason }

// SendFailed wraps a write-side socket error.
type SendFailed struct {
	Dest   string
	Reason error
}

func (e *SendFailed) Error() string {
	return fmt.Sprintf("sipnet: send to %q: %v", e.Dest, e.Reason)
}

func (e *SendFailed) Unwrap() error { return e.Reason }

// Handler processes one parsed inbound SIP message.
type Handler func(msg sip.Message)

// Transport is a single bound UDP endpoint with exactly one receive
// goroutine (spec §5 "exactly one receive context per UDP endpoint").
type Transport struct {
	conn    *net.UDPConn
	parser  *sip.Parser
	log     zerolog.Logger
	handler Handler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTransport binds a UDP socket at host:port (port 0 lets the OS choose)
// and returns a Transport ready for Serve.
func NewTransport(host string, port int, handler Handler, log zerolog.Logger) (*Transport, error) {
	laddr := &net.UDPAddr{IP: net.ParseIP(host), Port: port}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, &BindFailed{Addr: laddr.String(), Reason: err}
	}

	return &Transport{
		conn:    conn,
		parser:  sip.NewParser(sip.WithParserLogger(log)),
		log:     log,
		handler: handler,
	}, nil
}

// LocalAddr returns the bound local address, useful when the configured
// port was 0.
func (t *Transport) LocalAddr() *net.UDPAddr {
	return t.conn.LocalAddr().(*net.UDPAddr)
}

// Serve starts the receive loop on its own goroutine and returns at once.
// The loop runs until the socket is closed by Close; cancelling ctx alone
// does not stop it.
func (t *Transport) Serve(ctx context.Context) {
	t.ctx, t.cancel = context.WithCancel(ctx)
	t.wg.Add(1)
	go t.readLoop()
}

// Close cancels the receive loop and closes the socket, then waits up to 2s
// for the loop to exit (spec §5 "joins with ≤2s timeout").
func (t *Transport) Close() error {
	if t.cancel != nil {
		t.cancel()
	}
	err := t.conn.Close()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.log.Warn().Msg("sipnet receive loop did not exit within 2s")
	}
	return err
}

func (t *Transport) readLoop() {
	defer t.wg.Done()
	buf := make([]byte, maxDatagram)

	for {
		n, src, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				t.log.Debug().Msg("sipnet transport closed, exiting receive loop")
				return
			}
			// Errors other than a closed socket are logged and the loop
			// continues (spec §4.3) rather than tearing down the endpoint.
			t.log.Error().Err(err).Msg("sipnet read error")
			continue
		}
		t.parseAndDispatch(buf[:n], src)
	}
}

func (t *Transport) parseAndDispatch(data []byte, src *net.UDPAddr) {
	// UDP keep-alive datagrams are bare CRLFs; drop them silently.
	if len(bytes.Trim(data, "\r\n")) == 0 {
		return
	}

	msg, err := t.parser.ParseSIP(data)
	if err != nil {
		t.log.Warn().Err(err).Str("src", src.String()).Msg("discarding unparsable datagram")
		return
	}

	msg.SetTransport("UDP")
	msg.SetSource(src.String())
	if t.handler != nil {
		t.handler(msg)
	}
}

// Send resolves dest (a host:port string, hostname or literal IP) and
// writes msg's wire form to it. Hostname resolution happens here, at
// send-site, via blocking DNS (spec §4.3); failures surface as
// ResolutionFailed.
func (t *Transport) Send(dest string, msg sip.Message) error {
	host, port, err := net.SplitHostPort(dest)
	if err != nil {
		return &ResolutionFailed{Host: dest, Reason: err}
	}

	ips, err := net.LookupHost(host)
	if err != nil {
		return &ResolutionFailed{Host: host, Reason: err}
	}
	if len(ips) == 0 {
		return &ResolutionFailed{Host: host, Reason: errors.New("no addresses returned")}
	}

	raddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(ips[0], port))
	if err != nil {
		return &ResolutionFailed{Host: dest, Reason: err}
	}

	if _, err := t.conn.WriteToUDP([]byte(msg.String()), raddr); err != nil {
		return &SendFailed{Dest: raddr.String(), Reason: err}
	}
	return nil
}
