package negotiation

// offerOutcome is the decision for one inbound offer, computed atomically
// from the endpoint's current state. Modelling the decision as a single
// function removes the interleaving window between "detect collision" and
// "act on it" that perfect negotiation exists to close.
type offerOutcome struct {
	// ignore means the offer is discarded outright (impolite collision).
	ignore bool
	// rollback means applying the offer supersedes our own in-flight offer.
	rollback bool
}

// decideOffer computes the outcome for an inbound offer given the current
// signaling state, the endpoint's role, and whether a local offer is being
// produced right now. makingOffer covers the window where CreateOffer has
// started but the state transition to have-local-offer has not landed yet;
// the state alone is not a reliable collision signal.
func decideOffer(state State, role Role, makingOffer bool) (offerOutcome, error) {
	if state == StateClosed {
		return offerOutcome{}, ErrClosed
	}

	collision := makingOffer || state != StateStable
	if !collision {
		return offerOutcome{}, nil
	}

	if role == RoleImpolite {
		// Our offer wins. Drop theirs; the polite remote will answer ours.
		return offerOutcome{ignore: true}, nil
	}

	// Polite endpoint: sacrifice the in-flight offer and adopt theirs.
	switch state {
	case StateHaveLocalPranswer, StateHaveRemotePranswer:
		// A provisional answer is already in play; rolling back here is
		// not a legal transition. Fatal to this negotiation attempt.
		return offerOutcome{}, ErrInvalidState
	}
	return offerOutcome{rollback: true}, nil
}
