// Package handlers implements the hub's conversation: the handshake, server
// list status and ping, and turning away login attempts.
package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/gstoney/mchub"
	"github.com/gstoney/mchub/packet"
	"github.com/gstoney/mchub/status"
	"github.com/sirupsen/logrus"
)

// IntentPhases maps the handshake's next_state field to the phase the
// connection continues in. Transfers (3) log in like a fresh connection.
var IntentPhases = map[int32]mchub.Phase{
	1: mchub.Status,
	2: mchub.Login,
	3: mchub.Login,
}

const DefaultDisconnectMessage = "This server is a hub and can not be joined."

type Handlers struct {
	Status status.Source
	// CloseAfterPing ends the connection once the pong has been sent.
	CloseAfterPing bool
	// DisconnectMessage is shown to players who try to log in.
	DisconnectMessage string
	// Intents overrides IntentPhases when set.
	Intents map[int32]mchub.Phase
}

// Register installs h's handlers in reg.
func Register(reg *mchub.Registry, h *Handlers) {
	reg.Register(mchub.Handshaking, 0x00, mchub.Handle(h.Handshake))
	reg.Register(mchub.Status, 0x00, mchub.Handle(h.StatusRequest))
	reg.Register(mchub.Status, 0x01, mchub.Handle(h.Ping))
	reg.Register(mchub.Login, 0x00, mchub.Handle(h.LoginStart))
}

func (h *Handlers) Handshake(c *mchub.Conn, p *packet.HandshakePacket) error {
	intents := h.Intents
	if intents == nil {
		intents = IntentPhases
	}

	next, ok := intents[p.NextState]
	if !ok {
		return mchub.Reject("unknown handshake intent %d", p.NextState)
	}

	c.Session.ProtocolVersion = p.ProtocolVersion
	c.Session.ServerAddr = p.ServerAddr
	c.Session.ServerPort = p.ServerPort
	c.Session.Intent = p.NextState

	c.Log().WithFields(logrus.Fields{
		"protocol": p.ProtocolVersion,
		"address":  fmt.Sprintf("%s:%d", p.ServerAddr, p.ServerPort),
		"intent":   p.NextState,
	}).Debug("handshake")

	c.SetPhase(next)
	return nil
}

func (h *Handlers) StatusRequest(c *mchub.Conn, _ *packet.StatusReqPacket) error {
	src := h.Status
	if src == nil {
		src = &status.Static{Base: status.Default()}
	}

	st, err := src.Status(c.Context())
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	doc, err := st.JSON()
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	c.Log().Debug("status requested")
	return c.WritePacket(&packet.StatusRespPacket{Response: doc})
}

func (h *Handlers) Ping(c *mchub.Conn, p *packet.PingReqPacket) error {
	if err := c.WritePacket(&packet.PingRespPacket{Payload: p.Payload}); err != nil {
		return err
	}
	if h.CloseAfterPing {
		return mchub.ErrDone
	}
	return nil
}

type textComponent struct {
	Text string `json:"text"`
}

func (h *Handlers) LoginStart(c *mchub.Conn, p *packet.LoginStart) error {
	c.Session.Name = p.Name
	c.Session.PlayerUUID = p.PlayerUUID

	msg := h.DisconnectMessage
	if msg == "" {
		msg = DefaultDisconnectMessage
	}
	reason, err := json.Marshal(textComponent{Text: msg})
	if err != nil {
		return err
	}

	c.Log().WithFields(logrus.Fields{
		"player":      p.Name,
		"player_uuid": p.PlayerUUID.String(),
	}).Info("turning away login")

	if err := c.WritePacket(&packet.LoginDisconnect{Reason: string(reason)}); err != nil {
		return err
	}
	return mchub.ErrDone
}
