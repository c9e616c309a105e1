package packet

// @gen:r,w,regserver
type HandshakePacket struct {
	ProtocolVersion int32  `field:"VarInt"`
	ServerAddr      string `field:"String"`
	ServerPort      uint16 `field:"Uint16"`
	NextState       int32  `field:"VarInt"`
}

func (p HandshakePacket) ID() int32 {
	return 0
}
