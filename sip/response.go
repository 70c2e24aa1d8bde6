package sip

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Response is a SIP response (RFC 3261 §7.2): a status line plus headers
// and an optional body.
type Response struct {
	MessageData
	Reason     string
	StatusCode int
}

// NewResponse builds an empty response with no headers.
func NewResponse(statusCode int, reason string) *Response {
	res := &Response{}
	res.SipVersion = SIPVersion
	res.headers = headers{headerOrder: make([]Header, 0, 8)}
	res.StatusCode = statusCode
	res.Reason = reason
	return res
}

func (res *Response) Short() string {
	if res == nil {
		return "<nil>"
	}
	return fmt.Sprintf("response status=%d reason=%s source=%s",
		res.StatusCode, res.Reason, res.Source())
}

func (res *Response) StartLine() string {
	var b strings.Builder
	res.StartLineWrite(&b)
	return b.String()
}

func (res *Response) StartLineWrite(w io.StringWriter) {
	w.WriteString(res.SipVersion)
	w.WriteString(" ")
	w.WriteString(strconv.Itoa(res.StatusCode))
	w.WriteString(" ")
	w.WriteString(res.Reason)
}

func (res *Response) String() string {
	var b strings.Builder
	res.StringWrite(&b)
	return b.String()
}

func (res *Response) StringWrite(w io.StringWriter) {
	res.StartLineWrite(w)
	w.WriteString("\r\n")
	res.headers.headersStringWrite(w)
	w.WriteString("\r\n")
	if res.body != nil {
		w.WriteString(string(res.body))
	}
}

func (res *Response) Clone() *Response {
	newRes := NewResponse(res.StatusCode, res.Reason)
	res.headers.cloneHeadersInto(&newRes.headers)
	newRes.SetBody(append([]byte(nil), res.Body()...))
	newRes.SetTransport(res.Transport())
	newRes.SetSource(res.Source())
	newRes.SetDestination(res.Destination())
	return newRes
}

func (res *Response) IsProvisional() bool { return res.StatusCode < 200 }
func (res *Response) IsSuccess() bool     { return res.StatusCode >= 200 && res.StatusCode < 300 }
func (res *Response) IsRedirection() bool { return res.StatusCode >= 300 && res.StatusCode < 400 }
func (res *Response) IsClientError() bool { return res.StatusCode >= 400 && res.StatusCode < 500 }
func (res *Response) IsServerError() bool { return res.StatusCode >= 500 && res.StatusCode < 600 }
func (res *Response) IsGlobalError() bool { return res.StatusCode >= 600 }

func (res *Response) Transport() string {
	if tp := res.MessageData.Transport(); tp != "" {
		return tp
	}
	return "UDP"
}

// NewResponseFromRequest builds a response for req per RFC 3261 §8.2.6:
// Via, From, Call-ID and CSeq are copied verbatim from the request; To is
// copied and, on any response other than 100 Trying, given a freshly
// generated random tag if it has none (spec §4.4.5). This core does not support rport/received Via parameters (spec
// §9 Open Question) — NAT'd clients are unreachable by design.
func NewResponseFromRequest(req *Request, statusCode int, reason string, body []byte) *Response {
	res := NewResponse(statusCode, reason)
	res.SipVersion = req.SipVersion

	if h, ok := req.Via(); ok {
		res.AppendHeader(h.headerClone())
	}
	if h, ok := req.From(); ok {
		res.AppendHeader(h.headerClone())
	}
	if h, ok := req.To(); ok {
		toClone := h.headerClone().(*ToHeader)
		if statusCode != StatusTrying {
			if _, exists := toClone.Params.Get("tag"); !exists {
				toClone.Params.Add("tag", GenerateTag())
			}
		}
		res.AppendHeader(toClone)
	}
	if h, ok := req.CallID(); ok {
		res.AppendHeader(h.headerClone())
	}
	if h, ok := req.CSeq(); ok {
		res.AppendHeader(h.headerClone())
	}

	res.SetBody(body)
	res.SetTransport(req.Transport())
	res.SetDestination(req.Source())
	return res
}

// NewSDPResponseFromRequest wraps NewResponseFromRequest with a 200 OK and
// an application/sdp body (spec §4.6 auto-answer).
func NewSDPResponseFromRequest(req *Request, body []byte) *Response {
	res := NewResponseFromRequest(req, StatusOK, "OK", body)
	res.AppendHeader(NewHeader("Content-Type", "application/sdp"))
	res.SetBody(body)
	return res
}
