// Package status builds the document returned to server list pings.
package status

import (
	"context"
	"encoding/json"
)

type Version struct {
	Name     string `json:"name"`
	Protocol int32  `json:"protocol"`
}

type Player struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type Players struct {
	Max    int      `json:"max"`
	Online int      `json:"online"`
	Sample []Player `json:"sample"`
}

type Description struct {
	Text string `json:"text"`
}

// Status is the JSON document carried by a status response.
type Status struct {
	Version     Version     `json:"version"`
	Players     Players     `json:"players"`
	Description Description `json:"description"`
	// Favicon is a data URI ("data:image/png;base64,...") or empty.
	Favicon            string `json:"favicon,omitempty"`
	EnforcesSecureChat bool   `json:"enforcesSecureChat"`
	PreviewsChat       bool   `json:"previewsChat"`
}

func Default() Status {
	return Status{
		Version: Version{
			Name:     "1.19",
			Protocol: 759,
		},
		Players: Players{
			Max:    100,
			Sample: []Player{},
		},
		Description: Description{
			Text: "Hubby",
		},
		PreviewsChat: true,
	}
}

// JSON renders s as sent on the wire.
func (s Status) JSON() (string, error) {
	if s.Players.Sample == nil {
		s.Players.Sample = []Player{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Source produces the current status document.
type Source interface {
	Status(ctx context.Context) (Status, error)
}

type SourceFunc func(ctx context.Context) (Status, error)

func (f SourceFunc) Status(ctx context.Context) (Status, error) { return f(ctx) }

// Static serves a fixed document. Online, when set, supplies the live player
// count.
type Static struct {
	Base   Status
	Online func() int
}

func (s *Static) Status(context.Context) (Status, error) {
	st := s.Base
	if s.Online != nil {
		st.Players.Online = s.Online()
	}
	return st, nil
}
