// Package sniff decodes hub conversations from packet captures. TCP segments
// are taken in capture order; retransmitted or reordered segments are not
// repaired.
package sniff

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/gstoney/mchub"
	"github.com/gstoney/mchub/handlers"
	"github.com/gstoney/mchub/packet"
)

type Direction bool

const (
	Serverbound Direction = true
	Clientbound Direction = false
)

func (d Direction) String() string {
	if d == Serverbound {
		return "C->S"
	}
	return "S->C"
}

// Record is one frame seen on the wire.
type Record struct {
	Time   time.Time
	Client string
	Dir    Direction
	Phase  mchub.Phase
	ID     int32
	// Name is the packet type, or empty when the ID is not known in Phase.
	Name string
	Len  int
}

func (r Record) String() string {
	name := r.Name
	if name == "" {
		name = "?"
	}
	return fmt.Sprintf("%s %-21s %s %-11s 0x%02x %-16s %d bytes",
		r.Time.Format("15:04:05.000"), r.Client, r.Dir, r.Phase, r.ID, name, r.Len)
}

var (
	serverbound = map[mchub.Phase]map[int32]func() packet.Packet{
		mchub.Handshaking: packet.HandshakeServerboundRegistry,
		mchub.Status:      packet.StatusServerboundRegistry,
		mchub.Login:       packet.LoginServerboundRegistry,
	}
	clientbound = map[mchub.Phase]map[int32]func() packet.Packet{
		mchub.Status: packet.StatusClientboundRegistry,
		mchub.Login:  packet.LoginClientboundRegistry,
	}
)

type stream struct {
	phase mchub.Phase
	// Unparsed bytes per direction.
	pending map[Direction][]byte
	broken  bool
}

// Sniffer follows hub connections to Port and emits a Record per frame.
type Sniffer struct {
	Port uint16
	Emit func(Record)

	streams map[string]*stream
}

func New(port uint16, emit func(Record)) *Sniffer {
	return &Sniffer{
		Port:    port,
		Emit:    emit,
		streams: make(map[string]*stream),
	}
}

// ReadCapture feeds every packet of a pcap or pcapng capture to s.
func (s *Sniffer) ReadCapture(r io.Reader) error {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return fmt.Errorf("read capture header: %w", err)
	}

	var src gopacket.PacketDataSource
	var link layers.LinkType
	// pcapng files start with a section header block.
	if magic[0] == 0x0a && magic[1] == 0x0d && magic[2] == 0x0d && magic[3] == 0x0a {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return fmt.Errorf("open pcapng: %w", err)
		}
		src, link = ng, ng.LinkType()
	} else {
		pr, err := pcapgo.NewReader(br)
		if err != nil {
			return fmt.Errorf("open pcap: %w", err)
		}
		src, link = pr, pr.LinkType()
	}

	ps := gopacket.NewPacketSource(src, link)
	for {
		p, err := ps.NextPacket()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		s.Packet(p)
	}
}

// Packet consumes one captured packet. Non-TCP traffic and traffic not
// involving Port is ignored.
func (s *Sniffer) Packet(p gopacket.Packet) {
	tcpLayer := p.Layer(layers.LayerTypeTCP)
	if tcpLayer == nil || p.NetworkLayer() == nil {
		return
	}
	tcp := tcpLayer.(*layers.TCP)
	flow := p.NetworkLayer().NetworkFlow()

	var dir Direction
	var client string
	switch {
	case uint16(tcp.DstPort) == s.Port:
		dir = Serverbound
		client = fmt.Sprintf("%s:%d", flow.Src(), tcp.SrcPort)
	case uint16(tcp.SrcPort) == s.Port:
		dir = Clientbound
		client = fmt.Sprintf("%s:%d", flow.Dst(), tcp.DstPort)
	default:
		return
	}

	st, ok := s.streams[client]
	if !ok || (tcp.SYN && !tcp.ACK) {
		st = &stream{phase: mchub.Handshaking, pending: make(map[Direction][]byte)}
		s.streams[client] = st
	}
	if tcp.FIN || tcp.RST {
		defer delete(s.streams, client)
	}
	if len(tcp.Payload) == 0 || st.broken {
		return
	}

	st.pending[dir] = append(st.pending[dir], tcp.Payload...)
	s.drain(st, client, dir, p.Metadata().Timestamp)
}

func (s *Sniffer) drain(st *stream, client string, dir Direction, ts time.Time) {
	buf := st.pending[dir]
	for len(buf) > 0 {
		length, n, err := packet.DecodeVarInt(buf)
		if errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil || length <= 0 {
			// Alignment is lost; nothing after this point can be trusted.
			st.broken = true
			buf = nil
			break
		}
		if len(buf)-n < int(length) {
			break
		}

		body := buf[n : n+int(length)]
		buf = buf[n+int(length):]

		f, err := mchub.ParseFrame(body)
		if err != nil {
			st.broken = true
			buf = nil
			break
		}
		s.frame(st, Record{
			Time:   ts,
			Client: client,
			Dir:    dir,
			Phase:  st.phase,
			ID:     f.ID,
			Len:    len(f.Payload),
		}, f.Payload)
	}
	st.pending[dir] = append(st.pending[dir][:0], buf...)
}

func (s *Sniffer) frame(st *stream, r Record, payload []byte) {
	table := clientbound
	if r.Dir == Serverbound {
		table = serverbound
	}
	if newPacket, ok := table[r.Phase][r.ID]; ok {
		p := newPacket()
		r.Name = reflect.TypeOf(p).Elem().Name()

		if hs, ok := p.(*packet.HandshakePacket); ok {
			if err := packet.Unmarshal(payload, hs); err == nil {
				if next, ok := handlers.IntentPhases[hs.NextState]; ok {
					st.phase = next
				}
			}
		}
	}

	if s.Emit != nil {
		s.Emit(r)
	}
}
