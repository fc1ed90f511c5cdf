package tcpmodel

// packet is the tagged payload carried by a scheduled TcpMessage; tcpmodel
// is the only package that interprets it — to the event manager it is just
// an opaque `any`.
type packet interface{ isPacket() }

type connectPacket struct{}

func (connectPacket) isPacket() {}

type dataPacket struct{ Bytes []byte }

func (dataPacket) isPacket() {}
