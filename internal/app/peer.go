// Package app contains the top-level orchestration for a peer.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/parley-p2p/parley/internal/config"
	"github.com/parley-p2p/parley/internal/negotiation"
	"github.com/parley-p2p/parley/internal/protocol"
	"github.com/parley-p2p/parley/internal/signaling"
	"github.com/parley-p2p/parley/internal/transport"
	"github.com/parley-p2p/parley/internal/util"
)

// keepaliveInterval is how often a PING frame probes the established link.
const keepaliveInterval = 20 * time.Second

// linkSender adapts the relay Link to the negotiation core's Sender.
type linkSender struct {
	link *signaling.Link
}

var _ negotiation.Sender = linkSender{}

func (s linkSender) SendDescription(desc negotiation.Description) error {
	sd := desc.SessionDescription()
	return s.link.Send(signaling.Message{Description: &sd})
}

func (s linkSender) SendCandidate(c negotiation.Candidate) error {
	return s.link.Send(signaling.Message{Candidate: &c})
}

// RunPeer orchestrates the full peer lifecycle:
//  1. Connect to the relay and wait for the role assignment
//  2. Create the Transport and negotiation Session
//  3. Drive negotiation from relay messages and renegotiation triggers
//  4. Once the DataChannel opens, pipe frames between stdin/stdout
//  5. On connectivity failure, request an ICE restart and renegotiate
//  6. Block until shutdown
func RunPeer(ctx context.Context, cfg config.Config) error {
	// ── 1. Relay connection & role assignment ──────────────────────────
	link, err := signaling.Connect(ctx, cfg.RelayURL, cfg.Room, cfg.PIN)
	if err != nil {
		return err
	}
	defer link.Close()
	util.LogInfo("relay connected, waiting for peer in room %s", cfg.Room)

	ctrl, err := link.AwaitControl(ctx)
	if err != nil {
		return fmt.Errorf("role assignment failed: %w", err)
	}

	role := negotiation.RoleImpolite
	if ctrl.Polite {
		role = negotiation.RolePolite
	}
	util.LogInfo("paired — negotiating as the %s endpoint", role)

	// ── 2. Transport & session ─────────────────────────────────────────
	tr, err := transport.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}
	defer tr.Close()

	sess := negotiation.NewSession(role, tr, linkSender{link})
	defer sess.Close()

	errCh := make(chan error, 1)
	fail := func(err error) {
		select {
		case errCh <- err:
		default:
		}
	}

	// ── 3. Negotiation wiring ──────────────────────────────────────────
	// Trickle ICE candidates. Error intentionally ignored: once the link
	// is up the relay socket may already be gone, and candidates are
	// best-effort from then on.
	tr.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		init := c.ToJSON()
		_ = link.Send(signaling.Message{Candidate: &init})
	})

	// Later renegotiation triggers (the data channel itself is negotiated
	// up front, so this fires only for genuine configuration changes).
	tr.OnNegotiationNeeded(func() {
		util.Stats.AddRenegotiation()
		go func() {
			if err := sess.Negotiate(); err != nil {
				fail(fmt.Errorf("negotiate: %w", err))
			}
		}()
	})

	// Connectivity failure → explicit restart request, then a fresh offer.
	tr.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		if state != webrtc.PeerConnectionStateFailed {
			return
		}
		util.LogWarning("connection failed — requesting ICE restart")
		util.Stats.AddRestart()
		sess.RestartICE()
		go func() {
			if err := sess.Negotiate(); err != nil {
				fail(fmt.Errorf("restart negotiate: %w", err))
			}
		}()
	})

	// Relay receive loop: descriptions and candidates, in arrival order.
	go func() {
		for {
			msg, err := link.Receive()
			if err != nil {
				// The relay socket closing after the link is up is the
				// normal end of signaling, not a failure.
				select {
				case <-tr.Ready():
					return
				default:
					fail(err)
					return
				}
			}
			if err := handleSignal(sess, msg); err != nil {
				fail(err)
				return
			}
		}
	}()

	// Kick the first negotiation from both sides. The resulting glare is
	// the normal case here, resolved by the role split: the impolite
	// offer wins, the polite side answers it.
	go func() {
		if err := sess.Negotiate(); err != nil {
			fail(fmt.Errorf("initial negotiate: %w", err))
		}
	}()

	// ── 4. Wait for the DataChannel ────────────────────────────────────
	select {
	case <-tr.Ready():
	case err := <-errCh:
		return fmt.Errorf("signaling failed: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}

	util.LogSuccess("P2P link established")
	util.StartStatsReporter(ctx)

	// ── 5. Frame pipe & keepalive ──────────────────────────────────────
	runPipe(ctx, tr, fail)

	// ── 6. Block until shutdown ────────────────────────────────────────
	select {
	case <-tr.Done():
		util.LogInfo("link closed")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		tr.SendBye()
		return nil
	}
}

// handleSignal converts one relay message for the session. A late control
// message is a relay bug and is dropped.
func handleSignal(sess *negotiation.Session, msg signaling.Message) error {
	switch {
	case msg.Description != nil:
		desc := negotiation.FromSessionDescription(*msg.Description)
		return sess.HandleMessage(negotiation.Message{Description: &desc})
	case msg.Candidate != nil:
		return sess.HandleMessage(negotiation.Message{Candidate: msg.Candidate})
	case msg.Control != nil:
		util.LogWarning("unexpected control message after pairing")
		return nil
	default:
		return negotiation.ErrBadMessage
	}
}

// runPipe wires stdin lines to DATA frames and inbound DATA frames to
// stdout, plus the keepalive exchange.
func runPipe(ctx context.Context, tr *transport.Transport, fail func(error)) {
	tr.OnFrame(func(f *protocol.Frame, err error) {
		if err != nil {
			util.LogWarning("frame decode failed: %v", err)
			return
		}
		switch f.Kind {
		case protocol.KindData:
			os.Stdout.Write(append(f.Payload, '\n'))
		case protocol.KindPing:
			tr.SendPong()
		case protocol.KindPong:
			util.LogDebug("keepalive pong")
		case protocol.KindBye:
			util.LogInfo("peer closed the link")
			tr.Close()
		}
	})

	// Stdin pump.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			tr.SendData(1, append([]byte(nil), scanner.Bytes()...))
		}
		if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
			fail(fmt.Errorf("stdin: %w", err))
			return
		}
		tr.SendBye()
	}()

	// Keepalive.
	go func() {
		ticker := time.NewTicker(keepaliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				tr.SendPing()
			case <-tr.Done():
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}
