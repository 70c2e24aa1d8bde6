// Package uas is the UA-server: accepts REGISTER, answers INVITE with
// 100→180→200 after an auto-answer policy decision, and terminates dialogs
// on BYE/CANCEL (spec §4.4.2, §4.6).
package uas

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/sipcore/sipua/dialog"
	"github.com/sipcore/sipua/sdp"
	"github.com/sipcore/sipua/sip"
	"github.com/sipcore/sipua/sipnet"
)

// Action is an auto-answer policy decision for an inbound INVITE.
type Action int

const (
	Accept Action = iota
	Reject
	Defer
)

// Outcome is what an AnswerPolicy returns for one INVITE.
type Outcome struct {
	Action       Action
	SDP          []byte // used when Action == Accept
	RejectStatus int    // used when Action == Reject
	RejectReason string
}

// AnswerPolicy decides how an inbound call is handled. The default policy
// (see DefaultPolicy) always Accepts with a canned SDP body after a fixed
// delay.
type AnswerPolicy func(req *sip.Request) Outcome

// DefaultPolicy always accepts, answering with a fixed-shape SDP body
// advertising localIP:rtpPort (spec §4.1.3).
func DefaultPolicy(localIP string, rtpPort int) AnswerPolicy {
	return func(req *sip.Request) Outcome {
		return Outcome{Action: Accept, SDP: []byte(sdp.BuildOffer(localIP, rtpPort))}
	}
}

const lifecycleCreated = 0
const lifecycleRunning = 1
const lifecycleStopped = 2

// answerDelay is the policy delay before auto-answering an INVITE (spec
// §4.4.2 "1s in reference behavior").
const answerDelay = 1 * time.Second

// Config configures a Server.
type Config struct {
	LocalIP     string
	LocalPort   int
	Domain      string
	Logger      zerolog.Logger
	Policy      AnswerPolicy
	RTPPort     int
	RequireAuth bool
	Realm       string
	Lookup      LookupFunc
}

// Server is a SIP UA-server/registrar: one bound UDP transport, one dialog
// table, one registrar table.
type Server struct {
	cfg Config
	log zerolog.Logger

	transport *sipnet.Transport
	dialogs   *dialog.Table
	registrar *Registrar

	cseqOut atomic.Uint32
	state   atomic.Int32

	onIncomingCall func(fromURI, toURI string)
}

// New builds a Server in the created state.
func New(cfg Config) *Server {
	if cfg.LocalIP == "" {
		cfg.LocalIP = "0.0.0.0"
	}
	if cfg.RTPPort == 0 {
		cfg.RTPPort = 10000
	}
	if cfg.Policy == nil {
		cfg.Policy = DefaultPolicy(cfg.LocalIP, cfg.RTPPort)
	}
	if cfg.Realm == "" {
		cfg.Realm = cfg.Domain
	}
	return &Server{
		cfg:       cfg,
		log:       cfg.Logger,
		dialogs:   dialog.NewTable(),
		registrar: NewRegistrar(),
	}
}

// SetOnIncomingCall installs the inbound-call callback (spec §4.6).
func (s *Server) SetOnIncomingCall(f func(fromURI, toURI string)) { s.onIncomingCall = f }

// Registrar exposes the server's registration table for inspection (tests,
// admin tooling).
func (s *Server) Registrar() *Registrar { return s.registrar }

// Start binds the UDP socket and activates the receive loop. Idempotent.
func (s *Server) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(lifecycleCreated, lifecycleRunning) {
		s.log.Warn().Msg("uas server already started")
		return nil
	}

	transport, err := sipnet.NewTransport(s.cfg.LocalIP, s.cfg.LocalPort, s.handle, s.log)
	if err != nil {
		s.state.Store(lifecycleCreated)
		return err
	}
	s.transport = transport
	transport.Serve(ctx)
	s.log.Info().Str("local", transport.LocalAddr().String()).Msg("uas server started")
	return nil
}

// Stop closes the socket and joins the receive loop. Idempotent.
func (s *Server) Stop() {
	if !s.state.CompareAndSwap(lifecycleRunning, lifecycleStopped) {
		return
	}
	if s.transport != nil {
		s.transport.Close()
	}
}

// LocalAddr exposes the bound address, useful when LocalPort was 0.
func (s *Server) LocalAddr() string {
	if s.transport == nil {
		return ""
	}
	return s.transport.LocalAddr().String()
}

func (s *Server) reply(req *sip.Request, resp *sip.Response) {
	if err := s.transport.Send(req.Source(), resp); err != nil {
		s.log.Warn().Err(err).Str("dest", req.Source()).Msg("failed sending response")
	}
}

// handle dispatches one parsed inbound message (spec §4.4.2). All
// responses go back to the datagram's source address, never rport/received
// rewritten (spec §4.6).
func (s *Server) handle(msg sip.Message) {
	req, ok := msg.(*sip.Request)
	if !ok {
		// Stray response with no matching client-side transaction in this
		// core; nothing to correlate it to.
		return
	}

	switch req.Method {
	case sip.REGISTER:
		s.handleRegister(req)
	case sip.INVITE:
		s.handleInvite(req)
	case sip.BYE:
		s.handleBye(req)
	case sip.CANCEL:
		s.handleCancel(req)
	case sip.ACK:
		// ACK confirms a final response to INVITE; it is never answered.
	case sip.OPTIONS:
		resp := dialog.NewResponse(req, sip.StatusOK, "OK", nil)
		resp.AppendHeader(sip.NewHeader("Allow", dialog.Allow))
		s.reply(req, resp)
	default:
		s.reply(req, dialog.NewResponse(req, sip.StatusNotImplemented, "Not Implemented", nil))
	}
}

func (s *Server) handleRegister(req *sip.Request) {
	from, ok := req.From()
	if !ok {
		s.reply(req, dialog.NewResponse(req, 400, "Bad Request", nil))
		return
	}
	username := from.Address.User

	if s.cfg.RequireAuth {
		if !s.verifyAuth(req, username) {
			resp := dialog.NewResponse(req, sip.StatusUnauthorized, "Unauthorized", nil)
			resp.AppendHeader(sip.NewHeader("WWW-Authenticate",
				fmt.Sprintf(`Digest realm="%s", nonce="%s", algorithm=MD5`, s.cfg.Realm, sip.GenerateTag())))
			s.reply(req, resp)
			return
		}
	}

	contact, ok := req.Contact()
	if !ok {
		s.reply(req, dialog.NewResponse(req, 400, "Bad Request", nil))
		return
	}

	expires := 3600
	if h := req.GetHeader("Expires"); h != nil {
		fmt.Sscanf(h.Value(), "%d", &expires)
	}
	s.registrar.Upsert(username, contact.Address, req.Source(), expires)

	resp := dialog.NewResponse(req, sip.StatusOK, "OK", nil)
	resp.AppendHeader(sip.NewHeader("Expires", fmt.Sprintf("%d", expires)))
	s.reply(req, resp)
}

func (s *Server) verifyAuth(req *sip.Request, username string) bool {
	if s.cfg.Lookup == nil {
		return false
	}
	authHeader := req.GetHeader("Authorization")
	if authHeader == nil {
		return false
	}
	// This core does not parse the full Digest challenge-response grammar;
	// RequireAuth is an opt-in hook for callers that want to wire their own
	// Authorization parsing against the Digest helper in digest.go.
	_, ok := s.cfg.Lookup(username)
	return ok
}

func (s *Server) handleInvite(req *sip.Request) {
	callID, ok := req.CallID()
	if !ok {
		s.reply(req, dialog.NewResponse(req, 400, "Bad Request", nil))
		return
	}

	if existing, err := s.dialogs.Lookup(string(*callID)); err == nil {
		if existing.State() == dialog.Terminated || existing.State() == dialog.Failed {
			s.reply(req, dialog.NewResponse(req, sip.StatusCallDoesNotExist, "Call/Transaction Does Not Exist", nil))
		}
		return
	}

	from, _ := req.From()
	to, _ := req.To()
	localTag := sip.GenerateTag()

	d, err := s.dialogs.Create(string(*callID), req.Recipient, from.Address, localTag, dialog.Inbound)
	if err != nil {
		return
	}
	d.InviteRequest = req
	if body := req.Body(); len(body) > 0 {
		d.ApplyAnswer(body)
	}

	if s.onIncomingCall != nil {
		s.onIncomingCall(from.Address.String(), to.Address.String())
	}

	s.dialogs.Transition(d.CallID, dialog.Trying)
	s.reply(req, dialog.NewResponse(req, sip.StatusTrying, "Trying", nil))

	s.dialogs.Transition(d.CallID, dialog.Ringing)
	s.reply(req, dialog.NewResponse(req, sip.StatusRinging, "Ringing", nil))

	go s.autoAnswer(d, req, localTag)
}

// autoAnswer waits the policy delay, then answers the call unless the
// dialog has already left RINGING (local CANCEL, etc). The wait is a plain
// timer racing the dialog's own cancellation context, so it never holds
// the table lock while sleeping (spec §5).
func (s *Server) autoAnswer(d *dialog.Dialog, req *sip.Request, localTag string) {
	select {
	case <-time.After(answerDelay):
	case <-d.Context().Done():
		return
	}

	if d.State() != dialog.Ringing {
		return
	}

	outcome := s.cfg.Policy(req)
	switch outcome.Action {
	case Reject:
		status := outcome.RejectStatus
		if status == 0 {
			status = 486
		}
		if _, err := s.dialogs.Transition(d.CallID, dialog.Failed); err == nil {
			s.dialogs.Remove(d.CallID)
			s.reply(req, dialog.NewResponse(req, status, outcome.RejectReason, nil))
		}
	case Defer:
		// caller takes over answering; nothing to do here.
	default:
		contact := sip.Uri{Host: s.cfg.LocalIP, Port: s.cfg.LocalPort}
		resp := dialog.NewInviteOK(req, contact, outcome.SDP)
		if _, err := s.dialogs.Transition(d.CallID, dialog.Connected); err == nil {
			d.ApplyOffer(outcome.SDP, s.cfg.LocalIP, s.cfg.RTPPort)
			s.reply(req, resp)
		}
	}
}

func (s *Server) handleBye(req *sip.Request) {
	callID, ok := req.CallID()
	if !ok {
		return
	}
	d, err := s.dialogs.Lookup(string(*callID))
	if err != nil {
		s.reply(req, dialog.NewResponse(req, sip.StatusCallDoesNotExist, "Call/Transaction Does Not Exist", nil))
		return
	}

	s.reply(req, dialog.NewResponse(req, sip.StatusOK, "OK", nil))
	if _, err := s.dialogs.Transition(d.CallID, dialog.Terminated); err == nil {
		s.dialogs.Remove(d.CallID)
	}
}

func (s *Server) handleCancel(req *sip.Request) {
	callID, ok := req.CallID()
	if !ok {
		return
	}
	d, err := s.dialogs.Lookup(string(*callID))
	if err != nil {
		s.reply(req, dialog.NewResponse(req, sip.StatusCallDoesNotExist, "Call/Transaction Does Not Exist", nil))
		return
	}
	if d.State() != dialog.Trying && d.State() != dialog.Ringing {
		return
	}

	s.reply(req, dialog.NewResponse(req, sip.StatusOK, "OK", nil))
	if _, err := s.dialogs.Transition(d.CallID, dialog.Terminated); err == nil {
		s.dialogs.Remove(d.CallID)
	}
}
