package mchub

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// Backend selects how connections are driven.
type Backend string

const (
	// BackendGoroutine serves each connection on its own goroutine with
	// blocking reads.
	BackendGoroutine Backend = "goroutine"
	// BackendNetpoll multiplexes connections on an event loop; a goroutine
	// is only busy while a connection has unread input.
	BackendNetpoll Backend = "netpoll"
)

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendGoroutine, BackendNetpoll:
		return b, nil
	case "":
		return BackendGoroutine, nil
	}
	return "", fmt.Errorf("unknown backend %q", s)
}

// A Server defines parameters for running a protocol endpoint.
type Server struct {
	Addr     string
	Backend  Backend
	Registry *Registry

	Transport TransportConfig
	// MaxConnections caps concurrently open connections. Zero means no cap.
	MaxConnections int

	Logger  logrus.FieldLogger
	Metrics *Metrics
	Tracer  trace.Tracer

	mu    sync.Mutex
	conns map[*Conn]struct{}
	wg    sync.WaitGroup
}

func (s *Server) connConfig() ConnConfig {
	return ConnConfig{
		Registry:  s.Registry,
		Transport: s.Transport,
		Logger:    s.logger(),
		Metrics:   s.Metrics,
		Tracer:    s.Tracer,
	}
}

func (s *Server) logger() logrus.FieldLogger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}

// ListenAndServe listens on s.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.Registry == nil {
		return errors.New("mchub: server has no registry")
	}

	switch s.Backend {
	case BackendNetpoll:
		return s.servePoll(ctx)
	case BackendGoroutine, "":
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}

	l, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("error listening on socket: %w", err)
	}
	return s.Serve(ctx, l)
}

// Serve accepts incoming connections on the Listener l, creating a new
// goroutine for each. It returns once ctx is cancelled and every
// connection has finished.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	log := s.logger()
	log.WithField("addr", l.Addr().String()).Info("waiting for connections")

	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()
	defer s.wg.Wait()

	var slots chan struct{}
	if s.MaxConnections > 0 {
		slots = make(chan struct{}, s.MaxConnections)
	}

	var delay time.Duration
	for {
		// Wait for a free slot before accepting so excess clients queue in
		// the listen backlog.
		if slots != nil {
			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
		}

		nc, err := l.Accept()
		if err != nil {
			if slots != nil {
				<-slots
			}
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}

			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay = min(2*delay, time.Second)
			}
			log.WithError(err).Warnf("failed to accept connection; retrying in %v", delay)
			time.Sleep(delay)
			continue
		}
		delay = 0

		c := NewConn(nc, s.connConfig())
		s.track(c)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.untrack(c)
				if slots != nil {
					<-slots
				}
			}()

			c.Serve(ctx)
		}()
	}
}

func (s *Server) track(c *Conn) {
	s.tryTrack(c, 0)
}

// tryTrack records c unless limit connections are already open. A zero
// limit means no cap.
func (s *Server) tryTrack(c *Conn, limit int) bool {
	s.mu.Lock()
	if limit > 0 && len(s.conns) >= limit {
		s.mu.Unlock()
		return false
	}
	if s.conns == nil {
		s.conns = make(map[*Conn]struct{})
	}
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	s.Metrics.connOpened()
	c.log.Debug("accepted connection")
	return true
}

func (s *Server) untrack(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()

	s.Metrics.connClosed()
	c.log.Debug("disconnected")
}

// ActiveConns reports the number of open connections.
func (s *Server) ActiveConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// CountPhase reports the number of open connections in phase p.
func (s *Server) CountPhase(p Phase) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for c := range s.conns {
		if c.Phase() == p {
			n++
		}
	}
	return n
}
