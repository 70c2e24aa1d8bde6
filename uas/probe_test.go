package uas

import (
	"net"
	"time"

	"github.com/sipcore/sipua/sip"
)

// clientConn is a bare UDP socket test helper standing in for a peer UA: it
// sends raw SIP requests and reads back parsed responses without depending
// on the uac package.
type clientConn struct {
	conn *net.UDPConn
}

func newClientConn() (*clientConn, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return nil, err
	}
	return &clientConn{conn: conn}, nil
}

func (c *clientConn) LocalAddr() string {
	return c.conn.LocalAddr().(*net.UDPAddr).String()
}

func (c *clientConn) Send(dest string, msg sip.Message) error {
	addr, err := net.ResolveUDPAddr("udp", dest)
	if err != nil {
		return err
	}
	_, err = c.conn.WriteToUDP([]byte(msg.String()), addr)
	return err
}

func (c *clientConn) Recv(timeout time.Duration) (sip.Message, error) {
	c.conn.SetReadDeadline(time.Now().Add(timeout))
	buf := make([]byte, 4096)
	n, _, err := c.conn.ReadFromUDP(buf)
	if err != nil {
		return nil, err
	}
	return sip.ParseMessage(buf[:n])
}

func (c *clientConn) Close() error { return c.conn.Close() }
