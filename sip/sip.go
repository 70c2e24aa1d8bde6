// Package sip implements the textual SIP message model and wire codec:
// request/response parsing and serialization, header storage with
// order preservation, and SIP URI handling.
package sip

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RFC3261BranchMagicCookie is the required prefix of every Via branch
// parameter (RFC 3261 §8.1.1.7).
const RFC3261BranchMagicCookie = "z9hG4bK"

// SIPVersion is the only protocol version this core understands.
const SIPVersion = "SIP/2.0"

// Default transport ports.
const (
	DefaultSIPPort  = 5060
	DefaultSIPSPort = 5061
)

// RequestMethod is a SIP request method token.
type RequestMethod string

func (m RequestMethod) String() string { return string(m) }

// Methods this core knows by name (spec §4.1.1 step 3). The parser does not
// restrict request lines to this list; IsKnownMethod checks against it.
const (
	INVITE    RequestMethod = "INVITE"
	ACK       RequestMethod = "ACK"
	BYE       RequestMethod = "BYE"
	CANCEL    RequestMethod = "CANCEL"
	REGISTER  RequestMethod = "REGISTER"
	OPTIONS   RequestMethod = "OPTIONS"
	INFO      RequestMethod = "INFO"
	UPDATE    RequestMethod = "UPDATE"
	PRACK     RequestMethod = "PRACK"
	REFER     RequestMethod = "REFER"
	NOTIFY    RequestMethod = "NOTIFY"
	SUBSCRIBE RequestMethod = "SUBSCRIBE"
)

var knownMethods = map[RequestMethod]bool{
	INVITE: true, ACK: true, BYE: true, CANCEL: true, REGISTER: true,
	OPTIONS: true, INFO: true, UPDATE: true, PRACK: true, REFER: true,
	NOTIFY: true, SUBSCRIBE: true,
}

// IsKnownMethod reports whether method is one of the methods this core knows
// by name. The parser itself accepts any method token.
func IsKnownMethod(m RequestMethod) bool {
	return knownMethods[RequestMethod(strings.ToUpper(string(m)))]
}

// StatusCode is a SIP response status code.
type StatusCode int

// reasonPhrases is the bit-exact source status enumeration (spec §4.2).
var reasonPhrases = map[StatusCode]string{
	100: "Trying",
	180: "Ringing",
	181: "Call Is Being Forwarded",
	182: "Queued",
	183: "Session Progress",
	200: "OK",
	300: "Multiple Choices",
	301: "Moved Permanently",
	302: "Moved Temporarily",
	305: "Use Proxy",
	380: "Alternative Service",
	400: "Bad Request",
	401: "Unauthorized",
	402: "Payment Required",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	407: "Proxy Authentication Required",
	408: "Request Timeout",
	410: "Gone",
	413: "Request Entity Too Large",
	414: "Request-URI Too Long",
	415: "Unsupported Media Type",
	416: "Unsupported URI Scheme",
	420: "Bad Extension",
	421: "Extension Required",
	423: "Interval Too Brief",
	480: "Temporarily Unavailable",
	481: "Call/Transaction Does Not Exist",
	482: "Loop Detected",
	483: "Too Many Hops",
	484: "Address Incomplete",
	485: "Ambiguous",
	486: "Busy Here",
	487: "Request Terminated",
	488: "Not Acceptable Here",
	489: "Bad Event",
	491: "Request Pending",
	493: "Undecipherable",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
	505: "Version Not Supported",
	513: "Message Too Large",
	600: "Busy Everywhere",
	603: "Decline",
	604: "Does Not Exist Anywhere",
	606: "Not Acceptable Anywhere",
}

// ReasonPhrase returns the canonical reason phrase for code, or false if the
// code is not part of the known enumeration. The parser never rejects
// messages by status-code membership; this is informational only (spec §4.2,
// §9 "dynamic method/status enums").
func ReasonPhrase(code StatusCode) (string, bool) {
	r, ok := reasonPhrases[code]
	return r, ok
}

// Well-known status codes used by the dialog engine.
const (
	StatusTrying           = 100
	StatusRinging          = 180
	StatusOK               = 200
	StatusUnauthorized     = 401
	StatusNotFound         = 404
	StatusMethodNotAllowed = 405
	StatusCallDoesNotExist = 481
	StatusNotImplemented   = 501
)

// GenerateBranch returns a new Via branch parameter beginning with the RFC
// 3261 magic cookie followed by a random suffix.
func GenerateBranch() string {
	return RFC3261BranchMagicCookie + "." + randToken(16)
}

// GenerateTag returns a 10-character alphanumeric dialog tag (spec §4.4.3).
func GenerateTag() string {
	return randToken(10)
}

// randToken returns an n-character alphanumeric token derived from random
// UUIDs, concatenating as many as needed to cover n characters.
func randToken(n int) string {
	var b strings.Builder
	b.Grow(n)
	for b.Len() < n {
		b.WriteString(strings.ReplaceAll(uuid.New().String(), "-", ""))
	}
	return b.String()[:n]
}

// GenerateCallID returns a Call-ID of the form
// "<16-char random>-<ms-timestamp>@<localHostLabel>" (spec §4.4.3).
func GenerateCallID(localHostLabel string) string {
	return fmt.Sprintf("%s-%d@%s", randToken(16), time.Now().UnixMilli(), localHostLabel)
}

// FormatStatusCode prints an integer status code without leading zeros.
func FormatStatusCode(code int) string {
	return strconv.Itoa(code)
}
