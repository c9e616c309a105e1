package mchub

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/gstoney/mchub/packet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type connHarness struct {
	conn    *Conn
	client  *Transport
	nc      net.Conn
	done    chan error
	cancel  context.CancelFunc
	hook    *logtest.Hook
	metrics *Metrics
}

// startConn serves a Conn over one end of a net.Pipe and returns a client
// Transport on the other end.
func startConn(t *testing.T, reg *Registry) *connHarness {
	t.Helper()

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	server, client := net.Pipe()
	metrics := NewMetrics(prometheus.NewRegistry())
	c := NewConn(server, ConnConfig{
		Registry:  reg,
		Transport: TransportConfig{MaxPacketLen: 1024},
		Logger:    logger,
		Metrics:   metrics,
	})

	ctx, cancel := context.WithCancel(context.Background())
	h := &connHarness{
		conn:    c,
		client:  NewTransport(client, client, TransportConfig{}),
		nc:      client,
		done:    make(chan error, 1),
		cancel:  cancel,
		hook:    hook,
		metrics: metrics,
	}
	go func() { h.done <- c.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		client.Close()
	})
	return h
}

func (h *connHarness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("connection did not terminate")
		return nil
	}
}

func echoRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(Handshaking, 0x00, Handle(func(c *Conn, p *packet.HandshakePacket) error {
		c.Session.ProtocolVersion = p.ProtocolVersion
		c.SetPhase(Status)
		return nil
	}))
	reg.Register(Status, 0x01, Handle(func(c *Conn, p *packet.PingReqPacket) error {
		return c.WritePacket(&packet.PingRespPacket{Payload: p.Payload})
	}))
	return reg
}

func sendPacket(t *testing.T, tr *Transport, p packet.Packet) {
	t.Helper()
	require.NoError(t, tr.WritePacket(p))
}

func recvPing(t *testing.T, tr *Transport) int64 {
	t.Helper()
	f, err := tr.RecvFrame()
	require.NoError(t, err)
	require.EqualValues(t, 0x01, f.ID)

	var resp packet.PingRespPacket
	require.NoError(t, packet.Unmarshal(f.Payload, &resp))
	return resp.Payload
}

func TestConn_DispatchByPhase(t *testing.T) {
	h := startConn(t, echoRegistry())

	assert.Equal(t, Handshaking, h.conn.Phase())

	sendPacket(t, h.client, &packet.HandshakePacket{ProtocolVersion: 759, ServerAddr: "localhost", ServerPort: 25565, NextState: 1})
	sendPacket(t, h.client, &packet.PingReqPacket{Payload: 42})
	assert.EqualValues(t, 42, recvPing(t, h.client))

	assert.Equal(t, Status, h.conn.Phase())
	assert.EqualValues(t, 759, h.conn.Session.ProtocolVersion)

	h.nc.Close()
	assert.NoError(t, h.wait(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.packetsReceived.WithLabelValues("handshaking")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.packetsReceived.WithLabelValues("status")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.packetsSent))
}

func TestConn_UnknownPacketContinues(t *testing.T) {
	h := startConn(t, echoRegistry())

	sendPacket(t, h.client, &packet.HandshakePacket{NextState: 1})
	require.NoError(t, h.client.Send(0x7f, []byte("whatever")))
	sendPacket(t, h.client, &packet.PingReqPacket{Payload: 7})

	// The first response on the wire is the pong; nothing was written for 0x7f.
	assert.EqualValues(t, 7, recvPing(t, h.client))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.packetsUnimplemented.WithLabelValues("status")))

	var logged bool
	for _, e := range h.hook.AllEntries() {
		if e.Message == "unimplemented packet" && e.Level == logrus.DebugLevel {
			logged = true
			assert.Equal(t, "0x7f", e.Data["packet_id"])
		}
	}
	assert.True(t, logged, "unimplemented packet was not logged")
}

func TestConn_PhaseGating(t *testing.T) {
	h := startConn(t, echoRegistry())

	// A ping before the handshake is looked up in the handshaking table.
	sendPacket(t, h.client, &packet.PingReqPacket{Payload: 1})
	sendPacket(t, h.client, &packet.HandshakePacket{NextState: 1})
	sendPacket(t, h.client, &packet.PingReqPacket{Payload: 2})

	assert.EqualValues(t, 2, recvPing(t, h.client))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.packetsUnimplemented.WithLabelValues("handshaking")))
}

func TestConn_HandlerUnimplemented(t *testing.T) {
	reg := echoRegistry()
	reg.RegisterFunc(Status, 0x02, func(*Conn, []byte) error {
		return &UnimplementedError{Phase: Status, ID: 0x02}
	})
	h := startConn(t, reg)

	sendPacket(t, h.client, &packet.HandshakePacket{NextState: 1})
	require.NoError(t, h.client.Send(0x02, nil))
	sendPacket(t, h.client, &packet.PingReqPacket{Payload: 3})

	assert.EqualValues(t, 3, recvPing(t, h.client))
}

func TestConn_DecodeErrorIsFatal(t *testing.T) {
	h := startConn(t, echoRegistry())

	sendPacket(t, h.client, &packet.HandshakePacket{NextState: 1})
	require.NoError(t, h.client.Send(0x01, []byte{0x00, 0x01}))

	err := h.wait(t)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.decodeErrors.WithLabelValues("status")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.connErrors))

	_, err = h.client.Recv()
	assert.Error(t, err, "connection should be closed")
}

func TestConn_RejectedIsFatal(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterFunc(Handshaking, 0x00, func(*Conn, []byte) error {
		return Reject("no")
	})
	h := startConn(t, reg)

	require.NoError(t, h.client.Send(0x00, nil))

	var re *RejectedError
	assert.ErrorAs(t, h.wait(t), &re)
}

func TestConn_Done(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterFunc(Handshaking, 0x00, func(c *Conn, _ []byte) error {
		if err := c.Send(0x00, []byte("bye")); err != nil {
			return err
		}
		return ErrDone
	})
	h := startConn(t, reg)

	require.NoError(t, h.client.Send(0x00, nil))

	f, err := h.client.RecvFrame()
	require.NoError(t, err)
	assert.Equal(t, "bye", string(f.Payload))

	assert.NoError(t, h.wait(t))
	_, err = h.client.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestConn_FrameTooBig(t *testing.T) {
	h := startConn(t, echoRegistry())

	go h.client.Send(0x00, make([]byte, 2048))

	assert.ErrorIs(t, h.wait(t), ErrPacketTooBig)
}

func TestConn_PanicIsContained(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterFunc(Handshaking, 0x00, func(*Conn, []byte) error {
		panic("boom")
	})
	h := startConn(t, reg)

	require.NoError(t, h.client.Send(0x00, nil))

	err := h.wait(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestConn_PeerDisconnect(t *testing.T) {
	h := startConn(t, echoRegistry())

	h.nc.Close()
	assert.NoError(t, h.wait(t))
}

func TestConn_Cancel(t *testing.T) {
	h := startConn(t, echoRegistry())

	h.cancel()
	assert.NoError(t, h.wait(t))

	_, err := h.nc.Write([]byte{0x01})
	assert.Error(t, err, "stream should be closed after cancel")
}

func TestConn_HandlerContext(t *testing.T) {
	reg := NewRegistry()
	got := make(chan context.Context, 1)
	reg.RegisterFunc(Handshaking, 0x00, func(c *Conn, _ []byte) error {
		got <- c.Context()
		return ErrDone
	})
	h := startConn(t, reg)

	require.NoError(t, h.client.Send(0x00, nil))
	require.NoError(t, h.wait(t))

	ctx := <-got
	assert.ErrorIs(t, ctx.Err(), context.Canceled, "handler context should end with the connection")
}
