// Package session implements the vDC session state machine: the
// handshake, request dispatch, notification dispatch, and announcement
// task described in spec §4.4/§5. One Session exists per accepted TCP
// connection.
package session

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dsvdc/vdchost/clog"
	"github.com/dsvdc/vdchost/device"
	"github.com/dsvdc/vdchost/frame"
	"github.com/dsvdc/vdchost/message"
	"github.com/dsvdc/vdchost/metrics"
	"github.com/dsvdc/vdchost/proptree"
)

// State is a Session's position in the Unauthenticated -> Active -> Closing
// machine (spec §4.4).
type State int32

const (
	StateUnauthenticated State = iota
	StateActive
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Identities is the fixed (host dsuid, vDC dsuid) pair plus the descriptive
// fields GET_PROPERTY returns for those two special targets (spec §4.4).
type Identities struct {
	HostDSUID string
	HostName  string
	HostModel string

	VDCDSUID    string
	VDCName     string
	VDCModel    string
	VDCModelUID string
}

// Conn is the subset of net.Conn a Session needs; narrowed so tests can
// drive a Session over net.Pipe or any io.ReadWriteCloser.
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
}

// Session owns one accepted connection's framer and state machine (spec §3
// Data Model: Session). It keeps no outbound message-id counter: every
// response echoes the request's MessageID and every unsolicited frame uses 0.
type Session struct {
	id     uuid.UUID
	conn   Conn
	sender *frame.Sender
	reader *frame.Reader

	registry   *device.Registry
	identities Identities
	config     Config
	log        clog.Clog
	metrics    *metrics.Metrics

	state      atomic.Int32
	peerDSUID  atomic.Value // string
	apiVersion atomic.Int32

	genericHandlers map[string]GenericHandler
}

// GenericHandler answers a VDSM_REQUEST_GENERIC_REQUEST for a registered
// method name. Returning an error yields ERR_INVALID_VALUE_TYPE; returning
// nil yields a GENERIC_RESPONSE with ERR_OK and an empty description.
type GenericHandler func(methodName string) error

// New constructs a Session over conn. cfg is validated in place (zero
// fields take their defaults, per Config.Valid).
func New(conn Conn, registry *device.Registry, identities Identities, cfg Config, log clog.Clog, m *metrics.Metrics) (*Session, error) {
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	id := uuid.New()
	s := &Session{
		id:              id,
		conn:            conn,
		sender:          frame.NewSenderSize(conn, cfg.MaxFrameSize),
		reader:          frame.NewReader(conn, cfg.MaxFrameSize),
		registry:        registry,
		identities:      identities,
		config:          cfg,
		log:             log.With(shortID(id)),
		metrics:         m,
		genericHandlers: make(map[string]GenericHandler),
	}
	s.peerDSUID.Store("")
	return s, nil
}

func shortID(id uuid.UUID) string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// HandleGenericRequest registers a handler for a VDSM_REQUEST_GENERIC_REQUEST
// method name (spec §4.4: "respond not-implemented unless a handler has
// been registered").
func (s *Session) HandleGenericRequest(method string, h GenericHandler) {
	s.genericHandlers[method] = h
}

// State returns the session's current state.
func (s *Session) State() State { return State(s.state.Load()) }

// Close closes the underlying connection, unblocking any in-progress
// Run/readLoop (spec §5 Cancellation: "Host stop() closes... the session
// sockets; pending reads return").
func (s *Session) Close() error { return s.conn.Close() }

// PeerDSUID returns the controller's dsuid, known after a successful hello.
func (s *Session) PeerDSUID() string {
	v, _ := s.peerDSUID.Load().(string)
	return v
}

// Run drives the session to completion: reads and dispatches frames until
// the peer disconnects, sends VDSM_SEND_BYE, or a framing error occurs. It
// returns nil on a clean shutdown (peer EOF or BYE) and a non-nil error for
// I/O or framing failures, never panicking on malformed input (spec §7:
// framing errors close the session, they do not crash the host).
func (s *Session) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.readLoop(gctx, g)
	})

	err := g.Wait()
	s.sender.Close()
	_ = s.conn.Close()
	// A dead session's hooks must stop firing: otherwise the next
	// AddDevice/RemoveDevice call (made with no client connected, or
	// during the next session's pre-hello window) would invoke callbacks
	// captured for this session and write to its already-closed Sender.
	s.registry.SetActive(false)
	s.registry.SetHooks(nil, nil)
	if s.metrics != nil {
		s.metrics.SessionEnded()
	}
	if errors.Is(err, io.EOF) || errors.Is(err, errByeReceived) {
		return nil
	}
	return err
}

var errByeReceived = errors.New("session: peer sent bye")

func (s *Session) readLoop(ctx context.Context, g *errgroup.Group) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		payload, err := s.reader.Read()
		if err != nil {
			if errors.Is(err, frame.ErrFrameTooLarge) {
				s.log.Warn("closing session: %v", err)
				if s.metrics != nil {
					s.metrics.FrameError("oversize")
				}
				return err
			}
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			if s.metrics != nil {
				s.metrics.FrameError("truncated")
			}
			return err
		}

		msg, err := message.Decode(payload)
		if err != nil {
			if msg == nil {
				// Truncated payload after a valid length prefix: a framing
				// error per spec §7, not a recoverable protocol one.
				if s.metrics != nil {
					s.metrics.FrameError("truncated")
				}
				return err
			}
			// Known length, unrecognized type tag: a protocol error (spec
			// §7 "unimplemented message kind").
			s.replyNotImplemented(msg.MessageID)
			continue
		}

		if s.metrics != nil {
			s.metrics.FrameDispatched(msg.Type.String())
		}

		// BYE only closes the session once Active; arriving before hello
		// is "any other inbound" under the Unauthenticated gate in
		// dispatch and must get a not-implemented response, not a silent
		// close (spec §4.4).
		if msg.Type == message.VDSMSendBye && s.State() == StateActive {
			s.state.Store(int32(StateClosing))
			return errByeReceived
		}

		if err := s.dispatch(ctx, g, msg); err != nil {
			return err
		}
	}
}

func (s *Session) dispatch(ctx context.Context, g *errgroup.Group, msg *message.Message) error {
	if s.State() == StateUnauthenticated && msg.Type != message.VDSMRequestHello {
		s.replyNotImplemented(msg.MessageID)
		return nil
	}

	switch msg.Type {
	case message.VDSMRequestHello:
		return s.handleHello(ctx, g, msg)
	case message.VDSMRequestGetProperty:
		s.handleGetProperty(msg)
	case message.VDSMRequestSetProperty:
		s.handleSetProperty(msg)
	case message.VDSMRequestGenericRequest:
		s.handleGenericRequest(msg)
	case message.VDSMSendPing:
		s.handlePing(msg)
	case message.VDSMNotificationCallScene:
		s.handleCallScene(msg)
	case message.VDSMNotificationSetOutputChannelValue:
		s.handleSetOutputChannelValue(msg)
	case message.VDSMNotificationDimChannel:
		s.handleDimChannel(msg)
	case message.VDSMNotificationIdentify:
		s.handleIdentify(msg)
	case message.VDSMNotificationSaveScene, message.VDSMNotificationUndoScene:
		// No default behavior (spec §9 Open Questions); accepted and
		// ignored rather than answered with not-implemented, since these
		// are legal notification kinds in the Active state.
	default:
		s.replyNotImplemented(msg.MessageID)
	}
	return nil
}

func (s *Session) handleHello(ctx context.Context, g *errgroup.Group, msg *message.Message) error {
	s.peerDSUID.Store(msg.Hello.DSUID)
	s.apiVersion.Store(int32(msg.Hello.APIVersion))
	if msg.Hello.APIVersion > 3 {
		s.log.Warn("peer advertised api_version %d > 3, continuing without behavioral changes", msg.Hello.APIVersion)
	}

	if err := s.send(&message.Message{
		Type:          message.VDCResponseHello,
		MessageID:     msg.MessageID,
		ResponseHello: &message.HelloResponse{DSUID: s.identities.HostDSUID},
	}); err != nil {
		return err
	}

	s.state.Store(int32(StateActive))
	s.registry.SetActive(true)
	s.registry.SetHooks(
		func(d *device.Device) { s.sendDeviceAnnouncement(d) },
		func(d *device.Device) { s.sendVanish(d) },
	)

	g.Go(func() error {
		s.announce(ctx)
		return nil
	})
	return nil
}

func (s *Session) handleGetProperty(msg *message.Message) {
	target := msg.GetProperty.DSUID

	var fields []proptree.Field
	switch {
	case target == s.identities.VDCDSUID:
		fields = []proptree.Field{
			{Name: "dSUID", Value: s.identities.VDCDSUID},
			{Name: "type", Value: "vDC"},
			{Name: "name", Value: s.identities.VDCName},
			{Name: "model", Value: s.identities.VDCModel},
			{Name: "modelUID", Value: s.identities.VDCModelUID},
		}
	case target == s.identities.HostDSUID:
		fields = []proptree.Field{
			{Name: "dSUID", Value: s.identities.HostDSUID},
			{Name: "type", Value: "vDChost"},
			{Name: "name", Value: s.identities.HostName},
			{Name: "model", Value: s.identities.HostModel},
		}
	default:
		d, ok := s.registry.Lookup(target)
		if !ok {
			s.replyError(msg.MessageID, message.ErrNotFound, "unknown dSUID")
			return
		}
		fields = d.PropertyFields()
	}

	elements, err := proptree.Build(fields)
	if err != nil {
		s.replyError(msg.MessageID, message.ErrInvalidValueType, err.Error())
		return
	}
	s.send(&message.Message{
		Type:                message.VDCResponseGetProperty,
		MessageID:           msg.MessageID,
		ResponseGetProperty: &message.GetPropertyResponse{Properties: elements},
	})
}

func (s *Session) handleSetProperty(msg *message.Message) {
	d, ok := s.registry.Lookup(msg.SetProperty.DSUID)
	if !ok {
		s.replyError(msg.MessageID, message.ErrNotFound, "unknown dSUID")
		return
	}

	for _, f := range proptree.Lower(msg.SetProperty.Properties) {
		if err := d.SetProperty(f.Name, f.Value); err != nil {
			s.replyError(msg.MessageID, message.ErrInvalidValueType, err.Error())
			return
		}
	}
	s.replyOK(msg.MessageID)
}

func (s *Session) handleGenericRequest(msg *message.Message) {
	h, ok := s.genericHandlers[msg.GenericRequest.MethodName]
	if !ok {
		s.replyNotImplemented(msg.MessageID)
		return
	}
	if err := h(msg.GenericRequest.MethodName); err != nil {
		s.replyError(msg.MessageID, message.ErrInvalidValueType, err.Error())
		return
	}
	s.replyOK(msg.MessageID)
}

func (s *Session) handlePing(msg *message.Message) {
	s.send(&message.Message{
		Type:      message.VDCSendPong,
		MessageID: msg.MessageID,
		Pong:      &message.PongPayload{DSUID: msg.Ping.DSUID},
	})
}

func (s *Session) handleCallScene(msg *message.Message) {
	p := msg.CallScene
	force := p.HasForce && p.Force
	for _, id := range p.DSUIDs {
		if d, ok := s.registry.Lookup(id); ok {
			_ = d.CallScene(p.Scene, force)
		}
	}
}

func (s *Session) handleSetOutputChannelValue(msg *message.Message) {
	p := msg.SetOutputChannelValue
	for _, id := range p.DSUIDs {
		if d, ok := s.registry.Lookup(id); ok {
			_ = d.SetOutputValue(p.Value, p.ApplyNow)
		}
	}
}

func (s *Session) handleDimChannel(msg *message.Message) {
	p := msg.DimChannel
	channel := uint16(0)
	if p.HasChannel {
		channel = p.Channel
	}
	for _, id := range p.DSUIDs {
		if d, ok := s.registry.Lookup(id); ok {
			_ = d.DimChannel(p.Mode, channel)
		}
	}
}

func (s *Session) handleIdentify(msg *message.Message) {
	for _, id := range msg.Identify.DSUIDs {
		if d, ok := s.registry.Lookup(id); ok {
			_ = d.Identify()
		}
	}
}

func (s *Session) send(m *message.Message) error {
	b, err := message.Encode(m)
	if err != nil {
		s.log.Error("encode failed for type %s: %v", m.Type, err)
		return nil
	}
	if err := s.sender.Send(b); err != nil {
		s.log.Warn("send failed: %v", err)
		return err
	}
	return nil
}

func (s *Session) replyOK(id uint32) {
	s.send(&message.Message{Type: message.GenericResponse, MessageID: id, Generic: &message.GenericResponsePayload{Code: message.ErrOK}})
}

func (s *Session) replyNotImplemented(id uint32) {
	s.replyError(id, message.ErrNotImplemented, "")
}

func (s *Session) replyError(id uint32, code message.ResultCode, description string) {
	if s.metrics != nil {
		s.metrics.ProtocolError(code.String())
	}
	s.send(&message.Message{
		Type:      message.GenericResponse,
		MessageID: id,
		Generic:   &message.GenericResponsePayload{Code: code, Description: description},
	})
}
