//go:build !windows

package mchub

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/netpoll"
)

type pollConnKey struct{}

// pollReader adapts a netpoll.Reader to the io.Reader/io.ByteReader pair the
// Transport reads from. Both block until enough input has arrived.
type pollReader struct {
	r netpoll.Reader
}

func (p pollReader) ReadByte() (byte, error) { return p.r.ReadByte() }

func (p pollReader) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	n := min(max(p.r.Len(), 1), len(b))
	buf, err := p.r.Next(n)
	if err != nil {
		return 0, err
	}
	return copy(b, buf), nil
}

// servePoll runs the event-loop backend. Connections only occupy a
// goroutine while they have unread input.
func (s *Server) servePoll(ctx context.Context) error {
	log := s.logger()

	l, err := netpoll.CreateListener("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("error listening on socket: %w", err)
	}

	loop, err := netpoll.NewEventLoop(
		s.onPollRequest,
		netpoll.WithOnConnect(func(ctx context.Context, nc netpoll.Connection) context.Context {
			c := newConn(nc, pollReader{nc.Reader()}, s.connConfig())
			c.ctx = ctx
			if !s.tryTrack(c, s.MaxConnections) {
				s.Metrics.connRejected()
				log.WithField("remote", addrString(nc.RemoteAddr())).Warn("server full, rejecting connection")
				nc.Close()
				return ctx
			}
			return context.WithValue(ctx, pollConnKey{}, c)
		}),
		netpoll.WithOnDisconnect(func(ctx context.Context, nc netpoll.Connection) {
			if c, ok := ctx.Value(pollConnKey{}).(*Conn); ok {
				c.Close()
				s.untrack(c)
			}
		}),
	)
	if err != nil {
		l.Close()
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := loop.Shutdown(sctx); err != nil {
			log.WithError(err).Warn("event loop shutdown")
		}
	})
	defer stop()

	log.WithField("addr", s.Addr).Info("waiting for connections (netpoll)")
	if err := loop.Serve(l); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// onPollRequest handles every complete frame currently buffered for the
// connection. A frame that has only partly arrived blocks here until the
// rest is readable.
func (s *Server) onPollRequest(ctx context.Context, nc netpoll.Connection) error {
	c, ok := ctx.Value(pollConnKey{}).(*Conn)
	if !ok {
		return nc.Close()
	}

	r := nc.Reader()
	defer r.Release()

	for r.Len() > 0 {
		if err := c.HandleNext(); err != nil {
			c.terminate(err)
			return nil
		}
	}
	return nil
}
