// Package negotiation implements the perfect-negotiation signaling state
// machine for a two-party WebRTC connection. Each side runs a Session that
// consumes inbound signaling messages and local renegotiation triggers,
// resolving offer collisions by role: the polite side rolls back its own
// in-flight offer, the impolite side's offer always wins.
//
// The package is deliberately decoupled from pion — connectivity operations
// go through the Peer interface and outbound signaling through the Sender
// interface, so the machine can be driven by an in-process fake in tests.
package negotiation

import (
	"errors"

	"github.com/pion/webrtc/v4"
)

// Role is the collision-resolution role of an endpoint, fixed for the
// lifetime of the connection. Exactly one side of a pairing is polite.
type Role string

const (
	RolePolite   Role = "polite"
	RoleImpolite Role = "impolite"
)

// Opposite returns the role the remote endpoint must hold.
func (r Role) Opposite() Role {
	if r == RolePolite {
		return RoleImpolite
	}
	return RolePolite
}

func (r Role) String() string { return string(r) }

// State mirrors the RTCSignalingState values of the underlying connection.
type State string

const (
	StateStable             State = "stable"
	StateHaveLocalOffer     State = "have-local-offer"
	StateHaveRemoteOffer    State = "have-remote-offer"
	StateHaveLocalPranswer  State = "have-local-pranswer"
	StateHaveRemotePranswer State = "have-remote-pranswer"
	StateClosed             State = "closed"
)

func (s State) String() string { return string(s) }

// DescriptionType identifies the kind of session description.
type DescriptionType string

const (
	TypeOffer    DescriptionType = "offer"
	TypeAnswer   DescriptionType = "answer"
	TypePranswer DescriptionType = "pranswer"
	TypeRollback DescriptionType = "rollback"
)

// Description is a session description exchanged through signaling. The SDP
// payload is opaque to the state machine.
type Description struct {
	Type DescriptionType
	SDP  string
}

// Candidate is a discovered connectivity path fragment. The machine never
// inspects it; it only decides whether an application failure is suppressed.
type Candidate = webrtc.ICECandidateInit

// Message is one inbound signaling message. Exactly one field is set.
type Message struct {
	Description *Description
	Candidate   *Candidate
}

// FromSessionDescription converts a pion session description into the
// machine's representation.
func FromSessionDescription(sd webrtc.SessionDescription) Description {
	return Description{
		Type: DescriptionType(sd.Type.String()),
		SDP:  sd.SDP,
	}
}

// SessionDescription converts the description back to pion's type.
func (d Description) SessionDescription() webrtc.SessionDescription {
	return webrtc.SessionDescription{
		Type: webrtc.NewSDPType(string(d.Type)),
		SDP:  d.SDP,
	}
}

var (
	// ErrClosed is returned by operations on a closed Session.
	ErrClosed = errors.New("negotiation: session closed")

	// ErrInvalidState is returned when an inbound offer would require a
	// rollback from a pranswer state, which the protocol forbids. The
	// negotiation attempt is dead; the owner decides whether to tear down.
	ErrInvalidState = errors.New("negotiation: rollback not permitted in pranswer state")

	// ErrBadMessage is returned for a message carrying neither or both of
	// a description and a candidate.
	ErrBadMessage = errors.New("negotiation: message must carry exactly one of description or candidate")
)

// Peer is the connectivity layer a Session drives. internal/transport
// implements it on top of a pion PeerConnection.
type Peer interface {
	// CreateOffer generates a local offer. When restart is true the offer
	// must request a fresh connectivity handshake (ICE restart).
	CreateOffer(restart bool) (Description, error)

	// CreateAnswer generates an answer to the current remote offer.
	CreateAnswer() (Description, error)

	// SetLocalDescription applies a locally generated description.
	SetLocalDescription(desc Description) error

	// ApplyRemoteDescription applies an inbound description. When the
	// description is an offer and a local offer is outstanding, the
	// implementation must roll the local offer back and apply the remote
	// one as a single step — callers never observe the intermediate state.
	ApplyRemoteDescription(desc Description) error

	// AddCandidate feeds a remote connectivity candidate to the ICE agent.
	AddCandidate(c Candidate) error
}

// Sender transmits signaling messages to the remote endpoint. Delivery must
// preserve send order; the relay upholds that contract.
type Sender interface {
	SendDescription(desc Description) error
	SendCandidate(c Candidate) error
}
