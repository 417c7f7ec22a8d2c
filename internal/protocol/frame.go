// Package protocol defines the frame format carried over the DataChannel
// after negotiation completes.
package protocol

// Frame kind constants.
const (
	KindData uint8 = 0x01 // application payload
	KindPing uint8 = 0x02 // keepalive probe
	KindPong uint8 = 0x03 // keepalive reply
	KindBye  uint8 = 0x04 // orderly shutdown notice
)

// HeaderSize is the fixed header size: Kind(1) + Flags(1) + Stream(4).
const HeaderSize = 6

// Flag bits.
const (
	// FlagEOF marks the last frame of a stream.
	FlagEOF uint8 = 1 << 0
)

// Frame is one DataChannel message. Stream distinguishes logical streams
// multiplexed over the single channel; PING/PONG/BYE use stream 0.
type Frame struct {
	Kind    uint8
	Flags   uint8
	Stream  uint32
	Payload []byte // only used for KindData
}

// EOF reports whether the frame closes its stream.
func (f *Frame) EOF() bool { return f.Flags&FlagEOF != 0 }
