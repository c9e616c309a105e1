//go:build !windows

package mchub

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/gstoney/mchub/packet"
	"github.com/prometheus/client_golang/prometheus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startPollServer runs s on the netpoll backend on a free loopback port and
// returns the address once it accepts connections.
func startPollServer(t *testing.T, s *Server) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	logger, _ := logtest.NewNullLogger()
	s.Addr = addr
	s.Backend = BackendNetpoll
	s.Logger = logger
	s.Metrics = NewMetrics(prometheus.NewRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	require.Eventually(t, func() bool {
		nc, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		nc.Close()
		return true
	}, 5*time.Second, 10*time.Millisecond)
	// The readiness probe above is a connection of its own.
	require.Eventually(t, func() bool { return s.ActiveConns() == 0 }, 5*time.Second, 10*time.Millisecond)

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("netpoll server did not stop")
		}
	})
	return addr
}

func pollRegistry() *Registry {
	reg := echoRegistry()
	reg.RegisterFunc(Status, 0x02, func(*Conn, []byte) error {
		return ErrDone
	})
	return reg
}

func TestNetpoll_Ping(t *testing.T) {
	s := &Server{Registry: pollRegistry()}
	addr := startPollServer(t, s)

	nc, tr := dialPing(t, addr, 42)
	assert.EqualValues(t, 42, recvPing(t, tr))
	assert.Equal(t, 1, s.ActiveConns())
	assert.Equal(t, 1, s.CountPhase(Status))

	nc.Close()
	require.Eventually(t, func() bool { return s.ActiveConns() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestNetpoll_SplitFrame(t *testing.T) {
	s := &Server{Registry: pollRegistry()}
	addr := startPollServer(t, s)

	nc, tr := dialPing(t, addr, 1)
	assert.EqualValues(t, 1, recvPing(t, tr))

	payload, err := packet.Marshal(&packet.PingReqPacket{Payload: 9})
	require.NoError(t, err)
	frame := AppendFrame(nil, 0x01, payload)

	_, err = nc.Write(frame[:3])
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, err = nc.Write(frame[3:])
	require.NoError(t, err)

	assert.EqualValues(t, 9, recvPing(t, tr))
	assert.Equal(t, 1, s.ActiveConns())
}

func TestNetpoll_Done(t *testing.T) {
	s := &Server{Registry: pollRegistry()}
	addr := startPollServer(t, s)

	_, tr := dialPing(t, addr, 5)
	assert.EqualValues(t, 5, recvPing(t, tr))

	require.NoError(t, tr.Send(0x02, nil))
	_, err := tr.Recv()
	assert.ErrorIs(t, err, io.EOF)
	require.Eventually(t, func() bool { return s.ActiveConns() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestNetpoll_MaxConnections(t *testing.T) {
	s := &Server{Registry: pollRegistry(), MaxConnections: 1}
	addr := startPollServer(t, s)

	_, tr := dialPing(t, addr, 1)
	assert.EqualValues(t, 1, recvPing(t, tr))

	nc, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer nc.Close()
	nc.SetReadDeadline(time.Now().Add(5 * time.Second))

	// The second connection is closed without being served.
	_, err = NewTransport(nc, nc, TransportConfig{}).Recv()
	assert.Error(t, err)
	assert.Equal(t, 1, s.ActiveConns())
}
