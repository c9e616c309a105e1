package packet

// @gen:r,w,regserver
type StatusReqPacket struct{}

func (p StatusReqPacket) ID() int32 {
	return 0
}

// @gen:r,w,regserver
type PingReqPacket struct {
	Payload int64 `field:"Int64"`
}

func (p PingReqPacket) ID() int32 {
	return 1
}

// @gen:r,w,regclient
type StatusRespPacket struct {
	Response string `field:"String"` // JSON status document
}

func (p StatusRespPacket) ID() int32 {
	return 0
}

// @gen:r,w,regclient
type PingRespPacket struct {
	Payload int64 `field:"Int64"`
}

func (p PingRespPacket) ID() int32 {
	return 1
}
