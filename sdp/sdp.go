// Package sdp implements the minimal Session Description Protocol codec
// this core needs to seed RTP endpoints from an offer/answer exchange: a
// fixed-shape offer builder and extraction of the `c=`/`m=` connection and
// media lines. Everything else in an SDP body is preserved verbatim but not
// interpreted (spec §4.1.3).
package sdp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoConnectionLine is returned by ParseConnection when the body has no
// "c=IN IP4 ..." line.
var ErrNoConnectionLine = errors.New("sdp: no connection line")

// ErrNoMediaLine is returned by ParseMedia when the body has no
// "m=audio ..." line.
var ErrNoMediaLine = errors.New("sdp: no audio media line")

// BuildOffer renders the fixed-shape offer this core always sends: PCMU and
// PCMA at 8000Hz, bidirectional, CRLF-delimited (spec §4.1.3).
func BuildOffer(localIP string, rtpPort int) string {
	var b strings.Builder
	b.WriteString("v=0\r\n")
	fmt.Fprintf(&b, "o=- 0 0 IN IP4 %s\r\n", localIP)
	b.WriteString("s=SIP Call\r\n")
	fmt.Fprintf(&b, "c=IN IP4 %s\r\n", localIP)
	b.WriteString("t=0 0\r\n")
	fmt.Fprintf(&b, "m=audio %d RTP/AVP 0 8\r\n", rtpPort)
	b.WriteString("a=rtpmap:0 PCMU/8000\r\n")
	b.WriteString("a=rtpmap:8 PCMA/8000\r\n")
	b.WriteString("a=sendrecv\r\n")
	return b.String()
}

// ParseConnection extracts the IP from the first "c=IN IP4 <ip>" line.
func ParseConnection(body []byte) (string, error) {
	for _, line := range sdpLines(body) {
		if ip, ok := strings.CutPrefix(line, "c=IN IP4 "); ok {
			return strings.TrimSpace(ip), nil
		}
	}
	return "", ErrNoConnectionLine
}

// ParseMedia extracts the port and payload-type list from the first
// "m=audio <port> RTP/AVP <pt>..." line.
func ParseMedia(body []byte) (port int, payloadTypes []int, err error) {
	for _, line := range sdpLines(body) {
		rest, ok := strings.CutPrefix(line, "m=audio ")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) < 2 {
			return 0, nil, fmt.Errorf("%w: malformed media line %q", ErrNoMediaLine, line)
		}
		port, err = strconv.Atoi(fields[0])
		if err != nil {
			return 0, nil, fmt.Errorf("%w: bad port in %q", ErrNoMediaLine, line)
		}
		for _, f := range fields[2:] {
			pt, err := strconv.Atoi(f)
			if err != nil {
				continue
			}
			payloadTypes = append(payloadTypes, pt)
		}
		return port, payloadTypes, nil
	}
	return 0, nil, ErrNoMediaLine
}

// RtpMap is one "a=rtpmap:<pt> <encoding>/<clock-rate>" attribute.
type RtpMap struct {
	PayloadType int
	Encoding    string
	ClockRate   int
}

// ParseRtpMap extracts every a=rtpmap: attribute in the body. This is kept
// separate from ParseMedia/ParseConnection and is not wired into the dialog
// engine's auto-answer: codec negotiation is a capability this core
// exposes, not one it enforces (spec §9 Open Question).
func ParseRtpMap(body []byte) []RtpMap {
	var maps []RtpMap
	for _, line := range sdpLines(body) {
		rest, ok := strings.CutPrefix(line, "a=rtpmap:")
		if !ok {
			continue
		}
		sp := strings.IndexByte(rest, ' ')
		if sp < 0 {
			continue
		}
		pt, err := strconv.Atoi(rest[:sp])
		if err != nil {
			continue
		}
		encClock := strings.SplitN(rest[sp+1:], "/", 2)
		m := RtpMap{PayloadType: pt, Encoding: encClock[0]}
		if len(encClock) == 2 {
			if rate, err := strconv.Atoi(strings.TrimSpace(encClock[1])); err == nil {
				m.ClockRate = rate
			}
		}
		maps = append(maps, m)
	}
	return maps
}

// sdpLines splits a body into trimmed, non-empty lines, tolerating both
// CRLF and bare-LF line endings.
func sdpLines(body []byte) []string {
	raw := strings.Split(string(body), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
