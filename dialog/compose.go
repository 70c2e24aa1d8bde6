package dialog

import (
	"github.com/sipcore/sipua/sip"
)

// NewResponse composes a response from req per spec §4.4.5: copies Via,
// From, To, Call-ID, CSeq verbatim. On any response other than 100 Trying
// whose request To has no tag, it appends a freshly generated random tag
// to To; the dialog's LocalTag is not used, so successive responses to one
// request carry different To tags.
// A 2xx/INVITE additionally needs its own Contact/Content-Type, added by
// the caller after this returns.
func NewResponse(req *sip.Request, statusCode int, reason string, body []byte) *sip.Response {
	resp := sip.NewResponseFromRequest(req, statusCode, reason, body)
	return resp
}

// NewInviteOK builds the 2xx/INVITE response carrying the SDP answer,
// Contact and Content-Type per spec §4.4.5.
func NewInviteOK(req *sip.Request, contact sip.Uri, sdpBody []byte) *sip.Response {
	resp := sip.NewSDPResponseFromRequest(req, sdpBody)
	resp.AppendHeader(&sip.ContactHeader{Address: contact})
	return resp
}

// Allow is the fixed method list this core answers OPTIONS with (spec
// §4.4.2).
const Allow = "INVITE, ACK, BYE, CANCEL, REGISTER, OPTIONS"
