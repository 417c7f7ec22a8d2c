package protocol

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		f    *Frame
	}{
		{
			name: "data frame with payload",
			f:    &Frame{Kind: KindData, Stream: 1, Payload: []byte("hello world")},
		},
		{
			name: "data frame with EOF flag",
			f:    &Frame{Kind: KindData, Flags: FlagEOF, Stream: 7, Payload: []byte("bye")},
		},
		{
			name: "ping without payload",
			f:    &Frame{Kind: KindPing},
		},
		{
			name: "large payload",
			f:    &Frame{Kind: KindData, Stream: 0xDEADBEEF, Payload: make([]byte, 16*1024)},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			decoded, err := Decode(Encode(tc.f))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if decoded.Kind != tc.f.Kind {
				t.Errorf("Kind mismatch: got %d, want %d", decoded.Kind, tc.f.Kind)
			}
			if decoded.Flags != tc.f.Flags {
				t.Errorf("Flags mismatch: got %d, want %d", decoded.Flags, tc.f.Flags)
			}
			if decoded.Stream != tc.f.Stream {
				t.Errorf("Stream mismatch: got %d, want %d", decoded.Stream, tc.f.Stream)
			}
			if !bytes.Equal(decoded.Payload, tc.f.Payload) {
				t.Errorf("Payload mismatch: got %d bytes, want %d", len(decoded.Payload), len(tc.f.Payload))
			}
		})
	}
}

func TestDecodeTooShort(t *testing.T) {
	if _, err := Decode([]byte{KindData, 0, 0}); err == nil {
		t.Fatalf("Decode must reject truncated frames")
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	raw := Encode(&Frame{Kind: KindData, Stream: 1})
	raw[0] = 0x7F
	if _, err := Decode(raw); err == nil {
		t.Fatalf("Decode must reject unknown frame kinds")
	}
}

func TestEOFFlag(t *testing.T) {
	f := &Frame{Kind: KindData, Flags: FlagEOF}
	if !f.EOF() {
		t.Errorf("EOF() must report the flag")
	}
	f.Flags = 0
	if f.EOF() {
		t.Errorf("EOF() must be false without the flag")
	}
}
