package mchub

import "fmt"

// Phase selects which packet table a connection decodes against. Packet IDs
// are reused across phases, so the same ID means different packets in
// Status and Login.
type Phase byte

const (
	Handshaking Phase = iota
	Status
	Login
	Play

	numPhases
)

var phaseNames = [numPhases]string{
	Handshaking: "handshaking",
	Status:      "status",
	Login:       "login",
	Play:        "play",
}

func (p Phase) String() string {
	if p < numPhases {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", byte(p))
}

func (p Phase) valid() bool { return p < numPhases }
