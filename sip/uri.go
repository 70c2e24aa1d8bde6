package sip

import (
	"io"
	"strconv"
	"strings"
)

// Uri is a SIP or SIPS URI (spec §3): scheme, optional user, host, optional
// port, and an ordered parameter list.
type Uri struct {
	// Encrypted is true for a sips: URI.
	Encrypted bool

	// User is the userinfo part ("joe" in sip:joe@bloggs.com). Empty if absent.
	User string

	// Host is the host part: a domain name or IP literal.
	Host string

	// Port is the port part, or 0 if not present (defaults applied by DefaultPort).
	Port int

	// Params are the ;key=value URI parameters, in insertion order.
	Params HeaderParams
}

// Scheme returns "sip" or "sips".
func (u *Uri) Scheme() string {
	if u.Encrypted {
		return "sips"
	}
	return "sip"
}

// DefaultPort returns the scheme's default port: 5060 for sip, 5061 for sips.
func (u *Uri) DefaultPort() int {
	if u.Encrypted {
		return DefaultSIPSPort
	}
	return DefaultSIPPort
}

// String renders the URI in canonical form.
func (u *Uri) String() string {
	var b strings.Builder
	u.StringWrite(&b)
	return b.String()
}

// StringWrite renders the URI into w, avoiding an intermediate allocation.
func (u *Uri) StringWrite(w io.StringWriter) {
	w.WriteString(u.Scheme())
	w.WriteString(":")
	if u.User != "" {
		w.WriteString(u.User)
		w.WriteString("@")
	}
	w.WriteString(u.Host)
	if u.Port > 0 {
		w.WriteString(":")
		w.WriteString(strconv.Itoa(u.Port))
	}
	if u.Params.Length() > 0 {
		w.WriteString(";")
		u.Params.ToStringWrite(';', w)
	}
}

// Clone returns a deep copy of u.
func (u *Uri) Clone() *Uri {
	c := *u
	c.Params = u.Params.Clone()
	return &c
}

// BuildURI composes a SIP URI from its parts, omitting the port when it
// equals the scheme default or is unset (spec S2: build_sip_uri(host="h") ⇒
// "sip:h", no port).
func BuildURI(user, host string, port int) string {
	u := Uri{User: user, Host: host}
	if port > 0 && port != u.DefaultPort() {
		u.Port = port
	}
	return u.String()
}
