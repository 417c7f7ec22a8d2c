package negotiation

import (
	"fmt"
	"sync"

	"github.com/parley-p2p/parley/internal/util"
)

// Session is one endpoint of a two-party negotiation. All operations on a
// Session are serialized by an internal mutex: collision decisions read
// makingOffer and the signaling state together, and judging either against
// a stale snapshot is exactly the bug perfect negotiation avoids.
type Session struct {
	role Role
	peer Peer
	out  Sender

	mu             sync.Mutex
	state          State
	makingOffer    bool
	ignoreOffer    bool
	restartPending bool
	renegotiate    bool // a Negotiate trigger arrived while not stable
}

// NewSession creates a Session in the stable state. The role must have been
// agreed with the remote side before any signaling message is exchanged.
func NewSession(role Role, peer Peer, out Sender) *Session {
	return &Session{
		role:  role,
		peer:  peer,
		out:   out,
		state: StateStable,
	}
}

// Role returns the endpoint's fixed collision-resolution role.
func (s *Session) Role() Role { return s.role }

// State returns the current signaling state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// MakingOffer reports whether a local offer is being produced right now.
func (s *Session) MakingOffer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.makingOffer
}

// Negotiate produces a local offer and sends it to the remote endpoint.
// Called whenever the local media/data configuration changes and the
// connection needs (re)negotiation. If a negotiation cycle is already in
// progress the trigger is remembered and replayed once the session returns
// to stable, so at most one renegotiation is queued.
func (s *Session) Negotiate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrClosed
	}
	if s.state != StateStable || s.makingOffer {
		s.renegotiate = true
		return nil
	}
	return s.negotiateLocked()
}

// negotiateLocked runs one offer cycle. Caller holds s.mu and has verified
// the session is stable and open.
func (s *Session) negotiateLocked() error {
	s.makingOffer = true
	defer func() { s.makingOffer = false }()

	restart := s.restartPending
	s.restartPending = false

	offer, err := s.peer.CreateOffer(restart)
	if err != nil {
		if restart {
			s.restartPending = true // keep the restart request for the retry
		}
		return fmt.Errorf("create offer: %w", err)
	}
	if err := s.peer.SetLocalDescription(offer); err != nil {
		if restart {
			s.restartPending = true
		}
		return fmt.Errorf("set local offer: %w", err)
	}
	s.state = StateHaveLocalOffer

	if err := s.out.SendDescription(offer); err != nil {
		return fmt.Errorf("send offer: %w", err)
	}
	return nil
}

// HandleMessage processes one inbound signaling message. Collision-discard
// and stale-candidate conditions are absorbed here; every other failure
// propagates to the owner, which decides between retry and teardown.
func (s *Session) HandleMessage(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrClosed
	}
	if (msg.Description == nil) == (msg.Candidate == nil) {
		return ErrBadMessage
	}

	if msg.Candidate != nil {
		return s.handleCandidateLocked(*msg.Candidate)
	}
	return s.handleDescriptionLocked(*msg.Description)
}

func (s *Session) handleDescriptionLocked(desc Description) error {
	switch desc.Type {
	case TypeOffer:
		return s.handleOfferLocked(desc)

	case TypeAnswer:
		if s.state == StateStable {
			// A duplicate answer is a remote-side bug, but it must not
			// corrupt our state. Drop it.
			util.LogWarning("[%s] duplicate answer ignored", s.role)
			return nil
		}
		if err := s.peer.ApplyRemoteDescription(desc); err != nil {
			return fmt.Errorf("apply remote answer: %w", err)
		}
		s.state = StateStable
		return s.replayPendingLocked()

	case TypePranswer:
		if err := s.peer.ApplyRemoteDescription(desc); err != nil {
			return fmt.Errorf("apply remote pranswer: %w", err)
		}
		s.state = StateHaveRemotePranswer
		return nil

	default:
		// Rollback is a local transition; the wire never carries it.
		return fmt.Errorf("negotiation: unexpected inbound description type %q", desc.Type)
	}
}

func (s *Session) handleOfferLocked(desc Description) error {
	outcome, err := decideOffer(s.state, s.role, s.makingOffer)
	if err != nil {
		return err
	}
	if outcome.ignore {
		// Not an error: policy discard. The remote polite side will
		// abandon this offer and answer ours instead.
		s.ignoreOffer = true
		util.LogInfo("[%s] colliding offer discarded", s.role)
		return nil
	}
	s.ignoreOffer = false

	if outcome.rollback {
		util.LogInfo("[%s] rolling back local offer for remote offer", s.role)
	}

	// For a collision at have-local-offer the peer rolls our offer back
	// and applies theirs as one step; we never pass through stable.
	if err := s.peer.ApplyRemoteDescription(desc); err != nil {
		return fmt.Errorf("apply remote offer: %w", err)
	}
	s.state = StateHaveRemoteOffer

	// Answer immediately. This is a response, not a fresh offer, so
	// makingOffer stays untouched.
	answer, err := s.peer.CreateAnswer()
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := s.peer.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local answer: %w", err)
	}
	s.state = StateStable

	if err := s.out.SendDescription(answer); err != nil {
		return fmt.Errorf("send answer: %w", err)
	}
	return s.replayPendingLocked()
}

func (s *Session) handleCandidateLocked(c Candidate) error {
	if err := s.peer.AddCandidate(c); err != nil {
		if s.ignoreOffer {
			// The candidate belongs to an offer exchange we discarded.
			util.LogDebug("[%s] stale candidate suppressed: %v", s.role, err)
			return nil
		}
		return fmt.Errorf("add candidate: %w", err)
	}
	return nil
}

// replayPendingLocked re-runs a renegotiation trigger that arrived while a
// cycle was in flight. The session just returned to stable.
func (s *Session) replayPendingLocked() error {
	if !s.renegotiate {
		return nil
	}
	s.renegotiate = false
	return s.negotiateLocked()
}

// RestartICE marks the connectivity as failed from the caller's point of
// view: the next produced offer will request a fresh ICE handshake. The
// caller follows up with Negotiate; no timer inside the session does.
func (s *Session) RestartICE() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restartPending = true
}

// Close moves the session to its terminal state. Further operations return
// ErrClosed. Closing the underlying connection is the owner's job.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
}
