package packet

import (
	"github.com/google/uuid"
)

// @gen:r,w,regserver
type LoginStart struct {
	Name       string    `field:"String"`
	PlayerUUID uuid.UUID `field:"UUID"`
}

func (p LoginStart) ID() int32 {
	return 0
}

// @gen:r,w,regclient
type LoginDisconnect struct {
	Reason string `field:"String"` // JSON Text Component
}

func (p LoginDisconnect) ID() int32 {
	return 0
}
