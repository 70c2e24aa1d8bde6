package uac

import (
	"fmt"
	"net"

	"github.com/sipcore/sipua/sip"
)

// udpProbe is a bare UDP listener used by tests to observe raw datagrams a
// Client sends, without depending on the sipnet or uas packages.
type udpProbe struct {
	conn *net.UDPConn
	host string
	port int
}

func newUDPProbe(out chan<- sip.Message) (*udpProbe, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return nil, err
	}
	addr := conn.LocalAddr().(*net.UDPAddr)
	p := &udpProbe{conn: conn, host: addr.IP.String(), port: addr.Port}

	go func() {
		buf := make([]byte, 4096)
		for {
			n, _, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			msg, err := sip.ParseMessage(buf[:n])
			if err != nil {
				continue
			}
			out <- msg
		}
	}()

	return p, nil
}

func (p *udpProbe) Close() error { return p.conn.Close() }

func (p *udpProbe) uri() string { return fmt.Sprintf("sip:bob@%s:%d", p.host, p.port) }
