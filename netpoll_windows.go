package mchub

import (
	"context"
	"errors"
)

func (s *Server) servePoll(context.Context) error {
	return errors.New("mchub: netpoll backend is not available on windows")
}
