// Package signaling implements the WebSocket relay that pairs two peers,
// assigns their negotiation roles, and forwards descriptions and candidates
// between them in order.
package signaling

import (
	"github.com/pion/webrtc/v4"
)

// Control carries out-of-band pairing information from the relay to a peer.
// It is sent exactly once, before any description or candidate.
type Control struct {
	// Polite is the negotiation role assigned to the receiving peer. The
	// relay guarantees the two peers of a room get opposite values.
	Polite bool `json:"polite"`
}

// Message is the JSON structure exchanged over the WebSocket. Exactly one
// field is set per message.
type Message struct {
	Description *webrtc.SessionDescription `json:"description,omitempty"`
	Candidate   *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
	Control     *Control                   `json:"control,omitempty"`
}
