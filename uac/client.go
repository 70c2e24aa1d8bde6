// Package uac is the UA-client: composes REGISTER/INVITE/BYE/ACK, reacts to
// provisional and final responses, and exposes the observable callback set
// of spec §4.5.
package uac

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/sipcore/sipua/dialog"
	"github.com/sipcore/sipua/sdp"
	"github.com/sipcore/sipua/sip"
	"github.com/sipcore/sipua/sipnet"
)

// ErrNotRunning is returned by any network-facing operation called before
// start() or after stop() (spec §4.5).
var ErrNotRunning = errors.New("uac: client not running")

const lifecycleCreated = 0
const lifecycleRunning = 1
const lifecycleStopped = 2

// Config configures a Client. Fields mirror the collab.ConfigBag keys of
// spec §6.
type Config struct {
	ServerHost string
	ServerPort int
	Username   string
	Password   string
	Domain     string
	LocalIP    string
	LocalPort  int
	Logger     zerolog.Logger
}

// Client is a single SIP user agent acting as a caller: one bound UDP
// transport, one dialog table, one CSeq counter (spec §4.4.4 "a single
// cseq_out counter per UA").
type Client struct {
	cfg Config
	log zerolog.Logger

	transport *sipnet.Transport
	dialogs   *dialog.Table
	localURI  sip.Uri
	localIP   string

	cseqOut atomic.Uint32
	state   atomic.Int32

	onIncomingCall func(fromURI, toURI string)
	onTrying       func(callID string)
	onRinging      func(callID string)
	onConnected    func(callID string)
	onEnded        func(callID string)
}

// New builds a Client in the created state.
func New(cfg Config) *Client {
	if cfg.LocalIP == "" {
		cfg.LocalIP = "0.0.0.0"
	}
	return &Client{
		cfg:     cfg,
		log:     cfg.Logger,
		dialogs: dialog.NewTable(),
	}
}

// SetOnIncomingCall stores the inbound-call callback. The client does not
// accept inbound INVITEs (requests whose Call-ID names no dialog are
// ignored), so this callback is never invoked.
func (c *Client) SetOnIncomingCall(f func(fromURI, toURI string)) { c.onIncomingCall = f }

// SetOnTrying installs the 100 Trying callback.
func (c *Client) SetOnTrying(f func(callID string)) { c.onTrying = f }

// SetOnRinging installs the 180 Ringing callback.
func (c *Client) SetOnRinging(f func(callID string)) { c.onRinging = f }

// SetOnConnected installs the 200 OK/INVITE callback.
func (c *Client) SetOnConnected(f func(callID string)) { c.onConnected = f }

// SetOnEnded installs the call-ended callback (inbound BYE, ≥400 response,
// or local hangup).
func (c *Client) SetOnEnded(f func(callID string)) { c.onEnded = f }

// Start binds the UDP socket and activates the receive loop. Idempotent: a
// second call warns and returns nil (spec §5 "start is idempotent
// (warn-on-second-call)").
func (c *Client) Start(ctx context.Context) error {
	if !c.state.CompareAndSwap(lifecycleCreated, lifecycleRunning) {
		c.log.Warn().Msg("uac client already started")
		return nil
	}

	transport, err := sipnet.NewTransport(c.cfg.LocalIP, c.cfg.LocalPort, c.handle, c.log)
	if err != nil {
		c.state.Store(lifecycleCreated)
		return err
	}
	c.transport = transport
	c.localIP = resolveLocalIP()
	c.localURI = sip.Uri{User: c.cfg.Username, Host: c.localIP, Port: transport.LocalAddr().Port}

	transport.Serve(ctx)
	c.log.Info().Str("local", transport.LocalAddr().String()).Msg("uac client started")
	return nil
}

// Stop closes the socket and joins the receive loop. Idempotent.
func (c *Client) Stop() {
	if !c.state.CompareAndSwap(lifecycleRunning, lifecycleStopped) {
		return
	}
	if c.transport != nil {
		c.transport.Close()
	}
}

func (c *Client) running() bool { return c.state.Load() == lifecycleRunning }

func (c *Client) nextCSeq() uint32 { return c.cseqOut.Add(1) }

func (c *Client) serverAddr() string {
	return fmt.Sprintf("%s:%d", c.cfg.ServerHost, c.cfg.ServerPort)
}

// Register sends a REGISTER for the configured username with the given
// expiry (spec §4.5).
func (c *Client) Register(expires int) error {
	if !c.running() {
		return ErrNotRunning
	}
	if expires <= 0 {
		expires = 3600
	}

	registrar := sip.Uri{Host: c.cfg.Domain}
	req := sip.NewRequest(sip.REGISTER, registrar)
	c.stampOutbound(req, c.localURI, sip.GenerateCallID(c.localIP))
	req.PrependHeader(&sip.FromHeader{Address: c.localURI, Params: newParams("tag", sip.GenerateTag())})
	req.AppendHeader(&sip.ToHeader{Address: c.localURI})
	req.AppendHeader(sip.NewHeader("Expires", fmt.Sprintf("%d", expires)))
	req.AppendHeader(&sip.ContactHeader{Address: c.localURI})

	return c.transport.Send(c.serverAddr(), req)
}

// MakeCall starts an outbound INVITE dialog to remoteURI (spec §4.4.1 and
// §4.5). Returns the new call_id.
func (c *Client) MakeCall(remoteURI string) (string, error) {
	if !c.running() {
		return "", ErrNotRunning
	}

	var remote sip.Uri
	if err := sip.ParseURI(remoteURI, &remote); err != nil {
		return "", fmt.Errorf("uac: %w", err)
	}

	callID := sip.GenerateCallID(c.localIP)
	localTag := sip.GenerateTag()

	d, err := c.dialogs.Create(callID, c.localURI, remote, localTag, dialog.Outbound)
	if err != nil {
		return "", err
	}

	rtpPort := 10000
	offer := sdp.BuildOffer(c.localIP, rtpPort)
	d.ApplyOffer([]byte(offer), c.localIP, rtpPort)

	req := sip.NewRequest(sip.INVITE, remote)
	c.stampOutbound(req, c.localURI, callID)
	req.PrependHeader(&sip.FromHeader{Address: c.localURI, Params: newParams("tag", localTag)})
	req.AppendHeader(&sip.ToHeader{Address: remote})
	req.AppendHeader(&sip.ContactHeader{Address: c.localURI})
	req.AppendHeader(sip.NewHeader("Content-Type", "application/sdp"))
	req.SetBody([]byte(offer))
	d.InviteRequest = req

	if err := c.transport.Send(remote.Host+fmt.Sprintf(":%d", remoteOrDefaultPort(remote)), req); err != nil {
		c.dialogs.Remove(callID)
		return "", err
	}
	return callID, nil
}

func remoteOrDefaultPort(u sip.Uri) int {
	if u.Port > 0 {
		return u.Port
	}
	return u.DefaultPort()
}

// Hangup sends BYE for an active call and terminates the dialog locally.
// Silent if callID is unknown (spec §4.5 "silent if unknown").
func (c *Client) Hangup(callID string) {
	d, err := c.dialogs.Lookup(callID)
	if err != nil {
		return
	}
	if d.State() != dialog.Connected {
		return
	}

	bye := sip.NewRequest(sip.BYE, d.RemoteURI)
	c.stampOutbound(bye, d.LocalURI, callID)
	bye.PrependHeader(&sip.FromHeader{Address: d.LocalURI, Params: newParams("tag", d.LocalTag)})
	bye.AppendHeader(&sip.ToHeader{Address: d.RemoteURI, Params: newParams("tag", d.RemoteTag)})

	dest := fmt.Sprintf("%s:%d", d.RemoteURI.Host, remoteOrDefaultPort(d.RemoteURI))
	if err := c.transport.Send(dest, bye); err != nil {
		c.log.Warn().Err(err).Str("call_id", callID).Msg("failed sending BYE")
	}

	if _, err := c.dialogs.Transition(callID, dialog.Terminated); err == nil {
		c.dialogs.Remove(callID)
		if c.onEnded != nil {
			c.onEnded(callID)
		}
	}
}

// ActiveCalls enumerates in-flight dialogs (SPEC_FULL §4.5 supplement).
func (c *Client) ActiveCalls() []dialog.Summary {
	return c.dialogs.Snapshot()
}

func (c *Client) stampOutbound(req *sip.Request, via sip.Uri, callID string) {
	seq := c.nextCSeq()
	req.AppendHeader(&sip.ViaHeader{
		ProtocolName:    "SIP",
		ProtocolVersion: "2.0",
		Transport:       "UDP",
		Host:            via.Host,
		Port:            via.Port,
		Params:          newParams("branch", sip.GenerateBranch()),
	})
	req.AppendHeader(sip.NewCallIDHeader(callID))
	req.AppendHeader(sip.NewHeader("Max-Forwards", "70"))
	req.AppendHeader(&sip.CSeqHeader{SeqNo: seq, MethodName: req.Method})
}

func newParams(key, value string) sip.HeaderParams {
	p := sip.NewParams()
	p.Add(key, value)
	return p
}

// handle dispatches one parsed inbound message to the dialog engine. It
// runs on the transport's single receive goroutine (spec §5 ordering
// guarantee).
func (c *Client) handle(msg sip.Message) {
	resp, ok := msg.(*sip.Response)
	if !ok {
		// Requests from the far end (e.g. BYE) inside an established
		// dialog are handled the same way a server would.
		c.handleRequest(msg.(*sip.Request))
		return
	}
	c.handleResponse(resp)
}

func (c *Client) handleRequest(req *sip.Request) {
	callID, ok := req.CallID()
	if !ok {
		return
	}
	d, err := c.dialogs.Lookup(string(*callID))
	if err != nil {
		return
	}

	switch req.Method {
	case sip.BYE:
		ok200 := sip.NewResponseFromRequest(req, sip.StatusOK, "OK", nil)
		c.transport.Send(req.Source(), ok200)
		if _, err := c.dialogs.Transition(d.CallID, dialog.Terminated); err == nil {
			c.dialogs.Remove(d.CallID)
			if c.onEnded != nil {
				c.onEnded(d.CallID)
			}
		}
	default:
		c.transport.Send(req.Source(), sip.NewResponseFromRequest(req, sip.StatusNotImplemented, "Not Implemented", nil))
	}
}

func (c *Client) handleResponse(resp *sip.Response) {
	callID, ok := resp.CallID()
	if !ok {
		return
	}
	d, err := c.dialogs.Lookup(string(*callID))
	if err != nil {
		return
	}

	switch {
	case resp.StatusCode == sip.StatusTrying:
		if _, err := c.dialogs.Transition(d.CallID, dialog.Trying); err == nil && c.onTrying != nil {
			c.onTrying(d.CallID)
		}

	case resp.StatusCode == sip.StatusRinging:
		if _, err := c.dialogs.Transition(d.CallID, dialog.Ringing); err == nil && c.onRinging != nil {
			c.onRinging(d.CallID)
		}

	case resp.IsSuccess() && d.InviteRequest != nil:
		if d.State() == dialog.Connected {
			// Best-effort duplicate-ACK on a retransmitted 200 OK (spec
			// §4.4.1): no formal retransmission timer, just re-answer.
			ack := sip.NewAckRequest(d.InviteRequest, resp, nil)
			c.transport.Send(resp.Source(), ack)
			return
		}

		if to, ok := resp.To(); ok {
			if tag, ok := to.Tag(); ok {
				d.RemoteTag = tag
			}
		}
		if body := resp.Body(); len(body) > 0 {
			d.ApplyAnswer(body)
		}
		if _, err := c.dialogs.Transition(d.CallID, dialog.Connected); err == nil {
			ack := sip.NewAckRequest(d.InviteRequest, resp, nil)
			c.transport.Send(resp.Source(), ack)
			if c.onConnected != nil {
				c.onConnected(d.CallID)
			}
		}

	case resp.StatusCode >= 400:
		if _, err := c.dialogs.Transition(d.CallID, dialog.Failed); err == nil {
			c.dialogs.Remove(d.CallID)
			if c.onEnded != nil {
				c.onEnded(d.CallID)
			}
		}
	}
}
