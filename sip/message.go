package sip

import (
	"io"
	"strings"
)

// MessageHandler processes a parsed SIP message.
type MessageHandler func(msg Message)

// Message is implemented by *Request and *Response: the common surface for
// header access, body access and transport bookkeeping.
type Message interface {
	// StartLine returns the request-line or status-line.
	StartLine() string
	StartLineWrite(io.StringWriter)
	// String returns the full wire representation (start line, headers, CRLF, body).
	String() string
	StringWrite(io.StringWriter)
	// Short returns a one-line summary, used for logging.
	Short() string

	// Headers returns all message headers in wire order.
	Headers() []Header
	// GetHeaders returns every header with the given name.
	GetHeaders(name string) []Header
	// GetHeader returns the first header with the given name.
	GetHeader(name string) Header
	PrependHeader(header ...Header)
	AppendHeader(header Header)
	RemoveHeader(name string)
	ReplaceHeader(header Header)

	CallID() (*CallIDHeader, bool)
	Via() (*ViaHeader, bool)
	From() (*FromHeader, bool)
	To() (*ToHeader, bool)
	Contact() (*ContactHeader, bool)
	CSeq() (*CSeqHeader, bool)
	ContentLength() (*ContentLengthHeader, bool)
	ContentType() (*ContentTypeHeader, bool)

	Body() []byte
	SetBody(body []byte)

	Transport() string
	SetTransport(tp string)
	Source() string
	SetSource(src string)
	Destination() string
	SetDestination(dest string)
}

// headers stores parsed headers in wire order with cached pointers to the
// handful of types the dialog engine reads on every message. Duplicate
// header lines (repeated Name: ...) are comma-folded by the parser before
// they reach AppendHeader, so headerOrder never holds two entries for the
// same generic header name — Via/From/To/Contact/CSeq/Call-ID are singleton
// by construction in this core's single-hop model.
type headers struct {
	headerOrder []Header

	via           *ViaHeader
	from          *FromHeader
	to            *ToHeader
	contact       *ContactHeader
	callid        *CallIDHeader
	cseq          *CSeqHeader
	contentLength *ContentLengthHeader
	contentType   *ContentTypeHeader
}

func (hs *headers) cache(h Header) {
	switch v := h.(type) {
	case *ViaHeader:
		if hs.via == nil {
			hs.via = v
		}
	case *FromHeader:
		hs.from = v
	case *ToHeader:
		hs.to = v
	case *ContactHeader:
		hs.contact = v
	case *CallIDHeader:
		hs.callid = v
	case *CSeqHeader:
		hs.cseq = v
	case *ContentLengthHeader:
		hs.contentLength = v
	case *ContentTypeHeader:
		hs.contentType = v
	}
}

func (hs *headers) uncache(h Header) {
	switch h.(type) {
	case *ViaHeader:
		hs.via = nil
	case *FromHeader:
		hs.from = nil
	case *ToHeader:
		hs.to = nil
	case *ContactHeader:
		hs.contact = nil
	case *CallIDHeader:
		hs.callid = nil
	case *CSeqHeader:
		hs.cseq = nil
	case *ContentLengthHeader:
		hs.contentLength = nil
	case *ContentTypeHeader:
		hs.contentType = nil
	}
}

func (hs *headers) Headers() []Header { return hs.headerOrder }

func (hs *headers) GetHeaders(name string) []Header {
	name = HeaderToLower(name)
	var out []Header
	for _, h := range hs.headerOrder {
		if HeaderToLower(h.Name()) == name {
			out = append(out, h)
		}
	}
	return out
}

func (hs *headers) GetHeader(name string) Header {
	name = HeaderToLower(name)
	for _, h := range hs.headerOrder {
		if HeaderToLower(h.Name()) == name {
			return h
		}
	}
	return nil
}

func (hs *headers) PrependHeader(header ...Header) {
	for _, h := range header {
		hs.cache(h)
	}
	hs.headerOrder = append(append([]Header{}, header...), hs.headerOrder...)
}

func (hs *headers) AppendHeader(header Header) {
	hs.cache(header)
	hs.headerOrder = append(hs.headerOrder, header)
}

func (hs *headers) RemoveHeader(name string) {
	name = HeaderToLower(name)
	filtered := hs.headerOrder[:0]
	for _, h := range hs.headerOrder {
		if HeaderToLower(h.Name()) == name {
			hs.uncache(h)
			continue
		}
		filtered = append(filtered, h)
	}
	hs.headerOrder = filtered
}

func (hs *headers) ReplaceHeader(header Header) {
	name := HeaderToLower(header.Name())
	for i, h := range hs.headerOrder {
		if HeaderToLower(h.Name()) == name {
			hs.uncache(h)
			hs.cache(header)
			hs.headerOrder[i] = header
			return
		}
	}
	hs.AppendHeader(header)
}

func (hs *headers) CallID() (*CallIDHeader, bool)               { return hs.callid, hs.callid != nil }
func (hs *headers) Via() (*ViaHeader, bool)                     { return hs.via, hs.via != nil }
func (hs *headers) From() (*FromHeader, bool)                   { return hs.from, hs.from != nil }
func (hs *headers) To() (*ToHeader, bool)                       { return hs.to, hs.to != nil }
func (hs *headers) Contact() (*ContactHeader, bool)             { return hs.contact, hs.contact != nil }
func (hs *headers) CSeq() (*CSeqHeader, bool)                   { return hs.cseq, hs.cseq != nil }
func (hs *headers) ContentLength() (*ContentLengthHeader, bool) { return hs.contentLength, hs.contentLength != nil }
func (hs *headers) ContentType() (*ContentTypeHeader, bool)     { return hs.contentType, hs.contentType != nil }

func (hs *headers) headersStringWrite(w io.StringWriter) {
	for _, h := range hs.headerOrder {
		h.StringWrite(w)
		w.WriteString("\r\n")
	}
}

func (hs *headers) cloneHeadersInto(dst *headers) {
	for _, h := range hs.headerOrder {
		dst.AppendHeader(h.headerClone())
	}
}

// MessageData is the shared state of a Request and a Response: headers,
// body and transport-layer bookkeeping (spec §4.3's src/dest routing info).
type MessageData struct {
	headers
	SipVersion string
	body       []byte
	tp         string

	src  string
	dest string
}

func (msg *MessageData) Body() []byte { return msg.body }

// SetBody sets the message body and keeps Content-Length in sync.
func (msg *MessageData) SetBody(body []byte) {
	msg.body = body
	length := ContentLengthHeader(len(body))

	if hdr, exists := msg.ContentLength(); exists {
		if *hdr == length {
			return
		}
		msg.ReplaceHeader(&length)
		return
	}
	msg.AppendHeader(&length)
}

func (msg *MessageData) Transport() string      { return msg.tp }
func (msg *MessageData) SetTransport(tp string) { msg.tp = strings.ToUpper(tp) }
func (msg *MessageData) Source() string         { return msg.src }
func (msg *MessageData) SetSource(src string)   { msg.src = src }
func (msg *MessageData) Destination() string    { return msg.dest }
func (msg *MessageData) SetDestination(dest string) { msg.dest = dest }
