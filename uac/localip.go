package uac

import (
	"net"
	"os"
)

// resolveLocalIP implements the fallback chain spec §4.5 mandates for
// Via/Contact/SDP: hostname→IP, then a connected-UDP-socket trick to an
// external address to infer the egress interface, then 127.0.0.1.
func resolveLocalIP() string {
	if hostname, err := os.Hostname(); err == nil {
		if ips, err := net.LookupHost(hostname); err == nil {
			for _, ip := range ips {
				if parsed := net.ParseIP(ip); parsed != nil && !parsed.IsLoopback() {
					return ip
				}
			}
		}
	}

	if conn, err := net.Dial("udp", "8.8.8.8:80"); err == nil {
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			return addr.IP.String()
		}
	}

	return "127.0.0.1"
}
