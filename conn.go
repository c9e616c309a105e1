package mchub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gstoney/mchub/packet"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/gstoney/mchub"

// ConnConfig is shared by every connection a server accepts.
type ConnConfig struct {
	Registry  *Registry
	Transport TransportConfig

	// Logger defaults to the logrus standard logger.
	Logger  logrus.FieldLogger
	Metrics *Metrics
	// Tracer defaults to the global OpenTelemetry tracer provider.
	Tracer trace.Tracer
}

// Session stores what a client has told us about itself.
type Session struct {
	ProtocolVersion int32
	ServerAddr      string
	ServerPort      uint16
	Intent          int32

	Name       string
	PlayerUUID uuid.UUID
}

// Conn is one client connection. Packets are handled one at a time: a
// handler runs to completion, including any reply it writes, before the next
// frame is read. Handlers may therefore touch Conn state without locking.
type Conn struct {
	ID      uuid.UUID
	Session Session

	nc  net.Conn
	t   *Transport
	reg *Registry

	// Written only by the serving goroutine; atomic so the server can count
	// connections per phase.
	phase atomic.Uint32

	ctx     context.Context
	baseLog logrus.FieldLogger
	log     logrus.FieldLogger
	metrics *Metrics
	tracer  trace.Tracer

	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps nc. Reads are buffered; each outgoing frame is a single
// write to nc.
func NewConn(nc net.Conn, cfg ConnConfig) *Conn {
	return newConn(nc, nc, cfg)
}

func newConn(nc net.Conn, r io.Reader, cfg ConnConfig) *Conn {
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}

	id := uuid.New()
	log := cfg.Logger.WithFields(logrus.Fields{
		"conn_id": id.String(),
		"remote":  addrString(nc.RemoteAddr()),
	})

	return &Conn{
		ID:      id,
		nc:      nc,
		t:       NewTransport(r, nc, cfg.Transport),
		reg:     cfg.Registry,
		ctx:     context.Background(),
		baseLog: log,
		log:     log.WithField("phase", Handshaking.String()),
		metrics: cfg.Metrics,
		tracer:  cfg.Tracer,
	}
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}

func (c *Conn) Phase() Phase { return Phase(c.phase.Load()) }

// SetPhase switches the packet table used for the following frames. It does
// not check whether the transition makes sense; that is up to the handler
// requesting it.
func (c *Conn) SetPhase(p Phase) {
	if p == c.Phase() {
		return
	}
	c.log.WithField("next_phase", p.String()).Debug("phase change")
	c.phase.Store(uint32(p))
	c.log = c.baseLog.WithField("phase", p.String())
}

// Context is cancelled when the connection's serve loop ends. While a handler
// runs it also carries the span of the packet being handled.
func (c *Conn) Context() context.Context { return c.ctx }

func (c *Conn) Log() logrus.FieldLogger { return c.log }
func (c *Conn) RemoteAddr() net.Addr    { return c.nc.RemoteAddr() }
func (c *Conn) LocalAddr() net.Addr     { return c.nc.LocalAddr() }

// Send writes one packet with the given ID and an already encoded payload.
func (c *Conn) Send(id int32, payload []byte) error {
	if err := c.t.Send(id, payload); err != nil {
		return fmt.Errorf("send packet 0x%02x: %w", id, err)
	}
	c.metrics.sent()
	return nil
}

// WritePacket encodes p and sends it.
func (c *Conn) WritePacket(p packet.Packet) error {
	var b packet.Buffer
	if err := p.MarshalWire(&b); err != nil {
		return fmt.Errorf("encode packet 0x%02x: %w", p.ID(), err)
	}
	return c.Send(p.ID(), b.Bytes())
}

// Close closes the underlying stream, unblocking a pending read. It is safe
// to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.nc.Close()
	})
	return c.closeErr
}

// Serve reads and dispatches packets until the peer disconnects, a handler
// finishes the connection, a fatal error occurs, or ctx is cancelled. The
// stream is closed on return. A clean end of the conversation returns nil.
func (c *Conn) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.ctx = ctx

	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	for {
		if err := c.HandleNext(); err != nil {
			return c.terminate(err)
		}
	}
}

// HandleNext reads one frame and dispatches it. It blocks until the whole
// frame has arrived.
func (c *Conn) HandleNext() error {
	b, err := c.t.Recv()
	if err != nil {
		return err
	}
	f, err := ParseFrame(b)
	if err != nil {
		return err
	}
	return c.dispatch(f)
}

func (c *Conn) dispatch(f Frame) (err error) {
	phase := c.Phase()
	c.metrics.received(phase)

	base := c.ctx
	ctx, span := c.tracer.Start(base, "mchub.dispatch",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("mchub.conn_id", c.ID.String()),
			attribute.String("mchub.phase", phase.String()),
			attribute.Int("mchub.packet_id", int(f.ID)),
			attribute.Int("mchub.payload_len", len(f.Payload)),
		),
	)
	c.ctx = ctx
	defer func() {
		c.ctx = base
		if err != nil && !errors.Is(err, ErrDone) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	h, ok := c.reg.Lookup(phase, f.ID)
	if !ok {
		return c.unimplemented(phase, f.ID)
	}

	err = c.invoke(h, f.Payload)
	if errors.Is(err, ErrUnimplemented) {
		return c.unimplemented(phase, f.ID)
	}

	var de *DecodeError
	if errors.As(err, &de) {
		c.metrics.decodeFailed(phase)
	}
	return err
}

func (c *Conn) unimplemented(p Phase, id int32) error {
	c.metrics.unimplemented(p)
	c.log.WithField("packet_id", fmt.Sprintf("0x%02x", id)).Debug("unimplemented packet")
	return nil
}

// A panicking handler takes down its own connection only.
func (c *Conn) invoke(h Handler, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("handler panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(c, payload)
}

// terminate closes the connection and sorts the error that ended it into a
// normal end of conversation (nil) or a failure.
func (c *Conn) terminate(err error) error {
	cancelled := c.ctx.Err() != nil
	c.Close()

	switch {
	case errors.Is(err, io.EOF):
		c.log.Debug("client disconnected")
		return nil
	case errors.Is(err, ErrDone):
		c.log.Debug("connection finished")
		return nil
	case cancelled:
		c.log.Debug("connection cancelled")
		return nil
	}

	c.metrics.connFailed()
	c.log.WithError(err).Warn("closing connection")
	return err
}
