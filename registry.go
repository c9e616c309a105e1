package mchub

import (
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/gstoney/mchub/packet"
)

// Handler processes the payload of one packet. The payload slice is only
// valid until Handle returns.
//
// Returning ErrUnimplemented lets the connection carry on as if no handler
// was registered; ErrDone closes the connection cleanly; any other error is
// fatal to the connection.
type Handler interface {
	Handle(c *Conn, payload []byte) error
}

type HandlerFunc func(c *Conn, payload []byte) error

func (f HandlerFunc) Handle(c *Conn, payload []byte) error { return f(c, payload) }

// Handle adapts a typed function to a Handler. The payload must decode into
// exactly one T; leftover bytes are reported as packet.ErrTrailingBytes. All
// decode failures are wrapped in a *DecodeError.
func Handle[T any](fn func(c *Conn, p *T) error) Handler {
	name := reflect.TypeFor[T]().Name()
	return HandlerFunc(func(c *Conn, payload []byte) error {
		var p T
		if err := packet.Unmarshal(payload, &p); err != nil {
			return &DecodeError{Type: name, Err: err}
		}
		return fn(c, &p)
	})
}

// Registry maps (phase, packet ID) to a Handler. It is filled in before the
// server starts and only read afterwards.
type Registry struct {
	handlers [numPhases]map[int32]Handler
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.handlers {
		r.handlers[i] = make(map[int32]Handler)
	}
	return r
}

// Register adds h for id in phase p. Registering the same pair twice is a
// programming error and panics.
func (r *Registry) Register(p Phase, id int32, h Handler) {
	if !p.valid() {
		panic(fmt.Sprintf("mchub: register in unknown %s", p))
	}
	if h == nil {
		panic("mchub: nil handler")
	}
	if _, dup := r.handlers[p][id]; dup {
		panic(fmt.Sprintf("mchub: duplicate handler for packet 0x%02x in %s phase", id, p))
	}
	r.handlers[p][id] = h
}

func (r *Registry) RegisterFunc(p Phase, id int32, fn func(c *Conn, payload []byte) error) {
	r.Register(p, id, HandlerFunc(fn))
}

// Lookup returns the handler for id in phase p. A missing entry is not an
// error; the caller decides what an unknown packet means.
func (r *Registry) Lookup(p Phase, id int32) (Handler, bool) {
	if !p.valid() {
		return nil, false
	}
	h, ok := r.handlers[p][id]
	return h, ok
}

// Len reports the number of registered handlers across all phases.
func (r *Registry) Len() int {
	n := 0
	for _, m := range r.handlers {
		n += len(m)
	}
	return n
}

// Each calls fn for every registration, ordered by phase then ID.
func (r *Registry) Each(fn func(p Phase, id int32, h Handler)) {
	for p, m := range r.handlers {
		for _, id := range slices.Sorted(maps.Keys(m)) {
			fn(Phase(p), id, m[id])
		}
	}
}
