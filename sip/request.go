package sip

import (
	"fmt"
	"io"
	"strings"
)

// Request is a SIP request (RFC 3261 §7.1): a method, a Request-URI and a
// header/body payload.
type Request struct {
	MessageData
	Method    RequestMethod
	Recipient Uri
}

// NewRequest builds an empty request with no headers. Callers append
// headers and call SetBody to finish constructing it.
func NewRequest(method RequestMethod, recipient Uri) *Request {
	req := &Request{}
	req.SipVersion = SIPVersion
	req.headers = headers{headerOrder: make([]Header, 0, 8)}
	req.Method = method
	req.Recipient = *recipient.Clone()
	return req
}

func (req *Request) Short() string {
	if req == nil {
		return "<nil>"
	}
	return fmt.Sprintf("request method=%s recipient=%s source=%s",
		req.Method, req.Recipient.String(), req.Source())
}

// StartLine returns the request-line: "METHOD sip:uri SIP/2.0".
func (req *Request) StartLine() string {
	var b strings.Builder
	req.StartLineWrite(&b)
	return b.String()
}

func (req *Request) StartLineWrite(w io.StringWriter) {
	w.WriteString(string(req.Method))
	w.WriteString(" ")
	w.WriteString(req.Recipient.String())
	w.WriteString(" ")
	w.WriteString(req.SipVersion)
}

func (req *Request) String() string {
	var b strings.Builder
	req.StringWrite(&b)
	return b.String()
}

func (req *Request) StringWrite(w io.StringWriter) {
	req.StartLineWrite(w)
	w.WriteString("\r\n")
	req.headers.headersStringWrite(w)
	w.WriteString("\r\n")
	if req.body != nil {
		w.WriteString(string(req.body))
	}
}

// Clone performs a deep clone of headers and a shallow clone of the body.
func (req *Request) Clone() *Request {
	newReq := NewRequest(req.Method, req.Recipient)
	req.headers.cloneHeadersInto(&newReq.headers)
	newReq.SetBody(append([]byte(nil), req.Body()...))
	newReq.SetTransport(req.Transport())
	newReq.SetSource(req.Source())
	newReq.SetDestination(req.Destination())
	return newReq
}

func (req *Request) IsInvite() bool  { return req.Method == INVITE }
func (req *Request) IsAck() bool     { return req.Method == ACK }
func (req *Request) IsCancel() bool  { return req.Method == CANCEL }
func (req *Request) IsRegister() bool { return req.Method == REGISTER }

// Transport always reports UDP: the only transport this core implements
// (spec §4.3, Non-goals exclude TCP/TLS/WS/QUIC).
func (req *Request) Transport() string {
	if tp := req.MessageData.Transport(); tp != "" {
		return tp
	}
	return "UDP"
}

// NewAckRequest builds the ACK for a final response to an INVITE
// transaction (RFC 3261 §17.1.1.3, §13.2.2.4).
func NewAckRequest(inviteRequest *Request, inviteResponse *Response, body []byte) *Request {
	return newAckRequest(inviteRequest, inviteResponse, body)
}

// NewCancelRequest builds the CANCEL for a pending INVITE transaction
// (RFC 3261 §9.1).
func NewCancelRequest(requestForCancel *Request) *Request {
	return newCancelRequest(requestForCancel)
}

// newAckRequest builds the ACK for a non-2xx final response to an INVITE
// transaction, per RFC 3261 §17.1.1.3. There is no separate 2xx-ACK dialog
// path here: dialogs collapse the transaction layer (spec §9), so a single
// ACK shape covers both cases.
func newAckRequest(inviteRequest *Request, inviteResponse *Response, body []byte) *Request {
	ackRequest := NewRequest(ACK, inviteRequest.Recipient)
	ackRequest.SipVersion = inviteRequest.SipVersion

	if h, ok := inviteRequest.Via(); ok {
		ackRequest.AppendHeader(h.headerClone())
	}
	if h, ok := inviteRequest.From(); ok {
		ackRequest.AppendHeader(h.headerClone())
	}
	if h, ok := inviteResponse.To(); ok {
		ackRequest.AppendHeader(h.headerClone())
	}
	if h, ok := inviteRequest.CallID(); ok {
		ackRequest.AppendHeader(h.headerClone())
	}
	if h, ok := inviteRequest.CSeq(); ok {
		cseq := h.headerClone().(*CSeqHeader)
		cseq.MethodName = ACK
		ackRequest.AppendHeader(cseq)
	}

	ackRequest.SetBody(body)
	ackRequest.SetTransport(inviteRequest.Transport())
	ackRequest.SetSource(inviteRequest.Source())
	ackRequest.SetDestination(inviteRequest.Destination())
	return ackRequest
}

// newCancelRequest builds the CANCEL for a pending INVITE transaction
// (RFC 3261 §9.1): same Request-URI, Via, From, To, Call-ID as the INVITE,
// CSeq number unchanged but method set to CANCEL.
func newCancelRequest(requestForCancel *Request) *Request {
	cancelReq := NewRequest(CANCEL, requestForCancel.Recipient)
	cancelReq.SipVersion = requestForCancel.SipVersion

	if h, ok := requestForCancel.Via(); ok {
		cancelReq.AppendHeader(h.headerClone())
	}
	if h, ok := requestForCancel.From(); ok {
		cancelReq.AppendHeader(h.headerClone())
	}
	if h, ok := requestForCancel.To(); ok {
		cancelReq.AppendHeader(h.headerClone())
	}
	if h, ok := requestForCancel.CallID(); ok {
		cancelReq.AppendHeader(h.headerClone())
	}
	if h, ok := requestForCancel.CSeq(); ok {
		cseq := h.headerClone().(*CSeqHeader)
		cseq.MethodName = CANCEL
		cancelReq.AppendHeader(cseq)
	}

	cancelReq.SetTransport(requestForCancel.Transport())
	cancelReq.SetSource(requestForCancel.Source())
	cancelReq.SetDestination(requestForCancel.Destination())
	return cancelReq
}
