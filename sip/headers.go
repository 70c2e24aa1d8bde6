package sip

import (
	"io"
	"strconv"
	"strings"
)

// abnf is the set of characters that force a param value to be quoted when
// serialized, and that separate a CSeq number from its method token.
const abnf = " \t\"(),/:;<=>?@[]{}"

// maxCseq is the largest CSeq sequence number this core accepts (2**31 - 1,
// RFC 3261 §8.1.1.5).
const maxCseq = 1<<31 - 1

// Header is any parsed SIP header field.
type Header interface {
	// Name is the canonical header field name ("Via", "Call-ID", ...).
	Name() string
	// Value renders the header field body (everything after "Name: ").
	Value() string
	String() string
	StringWrite(w io.StringWriter)
	headerClone() Header
}

// GenericHeader holds any header this core does not give a typed
// representation to. It round-trips verbatim.
type GenericHeader struct {
	HeaderName  string
	HeaderValue string
}

// NewHeader builds a GenericHeader from a raw field name and value.
func NewHeader(name, value string) *GenericHeader {
	return &GenericHeader{HeaderName: name, HeaderValue: value}
}

func (h *GenericHeader) Name() string  { return h.HeaderName }
func (h *GenericHeader) Value() string { return h.HeaderValue }
func (h *GenericHeader) String() string {
	return h.HeaderName + ": " + h.HeaderValue
}
func (h *GenericHeader) StringWrite(w io.StringWriter) {
	w.WriteString(h.HeaderName)
	w.WriteString(": ")
	w.WriteString(h.HeaderValue)
}
func (h *GenericHeader) headerClone() Header {
	c := *h
	return &c
}

// CallIDHeader is the Call-ID header value.
type CallIDHeader string

// NewCallIDHeader builds a *CallIDHeader from a raw value, so callers get
// the typed, cached header rather than a GenericHeader that AppendHeader
// and CallID() would not recognize.
func NewCallIDHeader(value string) *CallIDHeader {
	h := CallIDHeader(value)
	return &h
}

func (h *CallIDHeader) Name() string  { return "Call-ID" }
func (h *CallIDHeader) Value() string { return string(*h) }
func (h *CallIDHeader) String() string {
	return "Call-ID: " + string(*h)
}
func (h *CallIDHeader) StringWrite(w io.StringWriter) {
	w.WriteString("Call-ID: ")
	w.WriteString(string(*h))
}
func (h *CallIDHeader) headerClone() Header {
	c := *h
	return &c
}

// MaxForwardsHeader is the Max-Forwards header value.
type MaxForwardsHeader uint32

func (h *MaxForwardsHeader) Name() string  { return "Max-Forwards" }
func (h *MaxForwardsHeader) Value() string { return strconv.FormatUint(uint64(*h), 10) }
func (h *MaxForwardsHeader) String() string {
	return "Max-Forwards: " + h.Value()
}
func (h *MaxForwardsHeader) StringWrite(w io.StringWriter) {
	w.WriteString("Max-Forwards: ")
	w.WriteString(h.Value())
}
func (h *MaxForwardsHeader) headerClone() Header {
	c := *h
	return &c
}

// ContentLengthHeader is the Content-Length header value.
type ContentLengthHeader uint32

func (h *ContentLengthHeader) Name() string  { return "Content-Length" }
func (h *ContentLengthHeader) Value() string { return strconv.FormatUint(uint64(*h), 10) }
func (h *ContentLengthHeader) String() string {
	return "Content-Length: " + h.Value()
}
func (h *ContentLengthHeader) StringWrite(w io.StringWriter) {
	w.WriteString("Content-Length: ")
	w.WriteString(h.Value())
}
func (h *ContentLengthHeader) headerClone() Header {
	c := *h
	return &c
}

// ContentTypeHeader is the Content-Type header value.
type ContentTypeHeader string

func (h *ContentTypeHeader) Name() string  { return "Content-Type" }
func (h *ContentTypeHeader) Value() string { return string(*h) }
func (h *ContentTypeHeader) String() string {
	return "Content-Type: " + string(*h)
}
func (h *ContentTypeHeader) StringWrite(w io.StringWriter) {
	w.WriteString("Content-Type: ")
	w.WriteString(string(*h))
}
func (h *ContentTypeHeader) headerClone() Header {
	c := *h
	return &c
}

// CSeqHeader is the CSeq header: a sequence number paired with the request
// method it was issued for.
type CSeqHeader struct {
	SeqNo      uint32
	MethodName RequestMethod
}

func (h *CSeqHeader) Name() string { return "CSeq" }
func (h *CSeqHeader) Value() string {
	return strconv.FormatUint(uint64(h.SeqNo), 10) + " " + string(h.MethodName)
}
func (h *CSeqHeader) String() string {
	return "CSeq: " + h.Value()
}
func (h *CSeqHeader) StringWrite(w io.StringWriter) {
	w.WriteString("CSeq: ")
	w.WriteString(h.Value())
}
func (h *CSeqHeader) headerClone() Header {
	c := *h
	return &c
}

// addrHeader is the shared shape of From/To/Contact: an optional display
// name, a URI, and header parameters (e.g. ";tag=...", ";expires=...").
type addrHeader struct {
	DisplayName string
	Address     Uri
	Params      HeaderParams
}

func (a *addrHeader) stringWrite(name string, w io.StringWriter) {
	w.WriteString(name)
	w.WriteString(": ")
	if a.DisplayName != "" {
		w.WriteString("\"")
		w.WriteString(a.DisplayName)
		w.WriteString("\" ")
	}
	w.WriteString("<")
	a.Address.StringWrite(w)
	w.WriteString(">")
	if a.Params.Length() > 0 {
		w.WriteString(";")
		a.Params.ToStringWrite(';', w)
	}
}

// FromHeader is the From header: the initiator of the request.
type FromHeader addrHeader

func (h *FromHeader) Name() string { return "From" }
func (h *FromHeader) Value() string {
	var b strings.Builder
	(*addrHeader)(h).stringWrite("", &b)
	return strings.TrimPrefix(b.String(), ": ")
}
func (h *FromHeader) String() string {
	var b strings.Builder
	h.StringWrite(&b)
	return b.String()
}
func (h *FromHeader) StringWrite(w io.StringWriter) { (*addrHeader)(h).stringWrite("From", w) }
func (h *FromHeader) headerClone() Header {
	c := *h
	c.Address = *h.Address.Clone()
	c.Params = h.Params.Clone()
	return &c
}
func (h *FromHeader) Tag() (string, bool) { return h.Params.Get("tag") }

// ToHeader is the To header: the target of the request.
type ToHeader addrHeader

func (h *ToHeader) Name() string { return "To" }
func (h *ToHeader) Value() string {
	var b strings.Builder
	(*addrHeader)(h).stringWrite("", &b)
	return strings.TrimPrefix(b.String(), ": ")
}
func (h *ToHeader) String() string {
	var b strings.Builder
	h.StringWrite(&b)
	return b.String()
}
func (h *ToHeader) StringWrite(w io.StringWriter) { (*addrHeader)(h).stringWrite("To", w) }
func (h *ToHeader) headerClone() Header {
	c := *h
	c.Address = *h.Address.Clone()
	c.Params = h.Params.Clone()
	return &c
}
func (h *ToHeader) Tag() (string, bool) { return h.Params.Get("tag") }

// ContactHeader is the Contact header: where to send subsequent requests
// within the dialog.
type ContactHeader addrHeader

func (h *ContactHeader) Name() string { return "Contact" }
func (h *ContactHeader) Value() string {
	var b strings.Builder
	(*addrHeader)(h).stringWrite("", &b)
	return strings.TrimPrefix(b.String(), ": ")
}
func (h *ContactHeader) String() string {
	var b strings.Builder
	h.StringWrite(&b)
	return b.String()
}
func (h *ContactHeader) StringWrite(w io.StringWriter) { (*addrHeader)(h).stringWrite("Contact", w) }
func (h *ContactHeader) headerClone() Header {
	c := *h
	c.Address = *h.Address.Clone()
	c.Params = h.Params.Clone()
	return &c
}

// ViaHeader is a single Via hop. Multi-hop Via chains (proxy forwarding)
// are out of scope; this core only ever reads or writes one hop.
type ViaHeader struct {
	ProtocolName    string
	ProtocolVersion string
	Transport       string
	Host            string
	Port            int
	Params          HeaderParams
}

func (h *ViaHeader) Name() string { return "Via" }
func (h *ViaHeader) Value() string {
	var b strings.Builder
	h.valueWrite(&b)
	return b.String()
}
func (h *ViaHeader) valueWrite(w io.StringWriter) {
	w.WriteString(h.ProtocolName)
	w.WriteString("/")
	w.WriteString(h.ProtocolVersion)
	w.WriteString("/")
	w.WriteString(h.Transport)
	w.WriteString(" ")
	w.WriteString(h.Host)
	if h.Port > 0 {
		w.WriteString(":")
		w.WriteString(strconv.Itoa(h.Port))
	}
	if h.Params.Length() > 0 {
		w.WriteString(";")
		h.Params.ToStringWrite(';', w)
	}
}
func (h *ViaHeader) String() string {
	var b strings.Builder
	h.StringWrite(&b)
	return b.String()
}
func (h *ViaHeader) StringWrite(w io.StringWriter) {
	w.WriteString("Via: ")
	h.valueWrite(w)
}
func (h *ViaHeader) headerClone() Header {
	c := *h
	c.Params = h.Params.Clone()
	return &c
}
func (h *ViaHeader) Branch() (string, bool) { return h.Params.Get("branch") }
