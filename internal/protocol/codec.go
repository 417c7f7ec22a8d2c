package protocol

import (
	"encoding/binary"
	"fmt"
)

// Encode serializes a Frame into a byte slice for DataChannel transmission.
func Encode(f *Frame) []byte {
	buf := make([]byte, HeaderSize+len(f.Payload))
	buf[0] = f.Kind
	buf[1] = f.Flags
	binary.BigEndian.PutUint32(buf[2:6], f.Stream)
	copy(buf[HeaderSize:], f.Payload)
	return buf
}

// Decode deserializes a byte slice into a Frame.
func Decode(data []byte) (*Frame, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("frame too short: %d bytes (need at least %d)", len(data), HeaderSize)
	}
	f := &Frame{
		Kind:   data[0],
		Flags:  data[1],
		Stream: binary.BigEndian.Uint32(data[2:6]),
	}
	switch f.Kind {
	case KindData, KindPing, KindPong, KindBye:
	default:
		return nil, fmt.Errorf("unknown frame kind 0x%02x", f.Kind)
	}
	if len(data) > HeaderSize {
		f.Payload = make([]byte, len(data)-HeaderSize)
		copy(f.Payload, data[HeaderSize:])
	}
	return f, nil
}
