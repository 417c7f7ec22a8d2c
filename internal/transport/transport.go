// Package transport wraps a pion PeerConnection and DataChannel pair behind
// the negotiation core's connectivity interface, and carries the post-
// negotiation frame stream with backpressure.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/parley-p2p/parley/internal/negotiation"
	"github.com/parley-p2p/parley/internal/protocol"
	"github.com/parley-p2p/parley/internal/util"
)

// Compile-time interface check.
var _ negotiation.Peer = (*Transport)(nil)

// Transport owns one PeerConnection and one pre-negotiated DataChannel.
// The negotiation.Session drives the connection's descriptions through the
// negotiation.Peer methods; the frame methods become usable once Ready()
// fires.
//
// Its lifecycle is governed by the DataChannel state and the context passed
// at construction time.
type Transport struct {
	pc *webrtc.PeerConnection
	dc *webrtc.DataChannel

	sender     *sender
	openSignal chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	pcState webrtc.PeerConnectionState
	stateFn func(webrtc.PeerConnectionState)
}

// New creates a Transport backed by a new PeerConnection and a negotiated
// DataChannel. The caller wires the returned Transport into a
// negotiation.Session and performs signaling before using Send*/OnFrame.
func New(ctx context.Context) (*Transport, error) {
	pc, err := newPeerConnection()
	if err != nil {
		return nil, err
	}

	dc, err := newDataChannel(pc)
	if err != nil {
		pc.Close()
		return nil, err
	}

	tCtx, tCancel := context.WithCancel(ctx)

	t := &Transport{
		pc:         pc,
		dc:         dc,
		openSignal: make(chan struct{}),
		ctx:        tCtx,
		cancel:     tCancel,
		pcState:    webrtc.PeerConnectionStateNew,
	}

	// DC open gate.
	var openOnce sync.Once
	dc.OnOpen(func() {
		openOnce.Do(func() { close(t.openSignal) })
	})

	// DC close → cancel transport context.
	dc.OnClose(func() {
		util.LogInfo("DataChannel closed")
		tCancel()
	})

	// Record PC state and forward to the registered observer.
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		util.LogDebug("PeerConnection state: %s", state.String())
		t.mu.Lock()
		t.pcState = state
		fn := t.stateFn
		t.mu.Unlock()
		if fn != nil {
			fn(state)
		}
	})

	// Start the sender goroutine.
	t.sender = newSender(tCtx, dc, t.openSignal)

	return t, nil
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Ready returns a channel that is closed when the DataChannel is open and
// the Transport is ready to send and receive frames.
func (t *Transport) Ready() <-chan struct{} {
	return t.openSignal
}

// Done returns a channel that is closed when the Transport is shut down
// (DataChannel closed or parent context cancelled).
func (t *Transport) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Close shuts down the DataChannel and PeerConnection.
func (t *Transport) Close() error {
	t.cancel()
	return errors.Join(t.dc.Close(), t.pc.Close())
}

// ConnectionState returns the last observed PeerConnection state.
func (t *Transport) ConnectionState() webrtc.PeerConnectionState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pcState
}

// OnConnectionStateChange registers an observer for PeerConnection state
// transitions. The app uses it to request an ICE restart on failure.
func (t *Transport) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	t.mu.Lock()
	t.stateFn = fn
	t.mu.Unlock()
}

// OnNegotiationNeeded registers the renegotiation trigger callback.
func (t *Transport) OnNegotiationNeeded(fn func()) {
	t.pc.OnNegotiationNeeded(fn)
}

// OnICECandidate registers a callback invoked whenever a new local ICE
// candidate is gathered. A nil candidate signals the end of gathering.
func (t *Transport) OnICECandidate(fn func(*webrtc.ICECandidate)) {
	t.pc.OnICECandidate(fn)
}

// ---------------------------------------------------------------------------
// negotiation.Peer
// ---------------------------------------------------------------------------

// CreateOffer generates a local offer, requesting an ICE restart when asked.
func (t *Transport) CreateOffer(restart bool) (negotiation.Description, error) {
	var opts *webrtc.OfferOptions
	if restart {
		opts = &webrtc.OfferOptions{ICERestart: true}
	}
	offer, err := t.pc.CreateOffer(opts)
	if err != nil {
		return negotiation.Description{}, err
	}
	return negotiation.FromSessionDescription(offer), nil
}

// CreateAnswer generates an answer to the current remote offer.
func (t *Transport) CreateAnswer() (negotiation.Description, error) {
	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return negotiation.Description{}, err
	}
	return negotiation.FromSessionDescription(answer), nil
}

// SetLocalDescription applies a locally generated description.
func (t *Transport) SetLocalDescription(desc negotiation.Description) error {
	return t.pc.SetLocalDescription(desc.SessionDescription())
}

// ApplyRemoteDescription applies an inbound description. A colliding offer
// arriving while our own offer is outstanding rolls the local offer back
// first; the two steps are presented to the session as one transition, and
// the session's lock keeps anything from observing the midpoint.
func (t *Transport) ApplyRemoteDescription(desc negotiation.Description) error {
	if desc.Type == negotiation.TypeOffer &&
		t.pc.SignalingState() == webrtc.SignalingStateHaveLocalOffer {
		rollback := webrtc.SessionDescription{Type: webrtc.SDPTypeRollback}
		if err := t.pc.SetLocalDescription(rollback); err != nil {
			return fmt.Errorf("rollback local offer: %w", err)
		}
	}
	return t.pc.SetRemoteDescription(desc.SessionDescription())
}

// AddCandidate adds a remote ICE candidate received through signaling.
func (t *Transport) AddCandidate(c negotiation.Candidate) error {
	return t.pc.AddICECandidate(c)
}

// ---------------------------------------------------------------------------
// Frames
// ---------------------------------------------------------------------------

// SendData enqueues a DATA frame on the given stream.
func (t *Transport) SendData(stream uint32, payload []byte) {
	t.sender.send(t.ctx, &protocol.Frame{
		Kind:    protocol.KindData,
		Stream:  stream,
		Payload: payload,
	})
}

// SendPing enqueues a keepalive probe.
func (t *Transport) SendPing() {
	t.sender.send(t.ctx, &protocol.Frame{Kind: protocol.KindPing})
}

// SendPong enqueues a keepalive reply.
func (t *Transport) SendPong() {
	t.sender.send(t.ctx, &protocol.Frame{Kind: protocol.KindPong})
}

// SendBye enqueues an orderly shutdown notice.
func (t *Transport) SendBye() {
	t.sender.send(t.ctx, &protocol.Frame{Kind: protocol.KindBye})
}

// OnFrame registers a callback invoked for every inbound DataChannel
// message. The callback receives the decoded frame and any decoding error.
func (t *Transport) OnFrame(fn func(*protocol.Frame, error)) {
	t.dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		f, err := protocol.Decode(msg.Data)
		if err == nil {
			util.Stats.AddRecv(len(msg.Data))
		}
		fn(f, err)
	})
}

