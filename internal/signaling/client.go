package signaling

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Link is a peer's connection to the relay. Sends are serialized by a
// mutex; receives happen from a single reader loop, so inbound order is
// the order the remote side sent.
type Link struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Connect dials the relay and joins a room. The base URL points at the
// relay host, e.g. wss://example.devtunnels.ms — the /ws path, room, and
// PIN are appended here.
func Connect(ctx context.Context, baseURL, roomID, pin string) (*Link, error) {
	wsURL, err := buildWSURL(baseURL, roomID, pin)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to relay: %w", err)
	}
	return &Link{conn: conn}, nil
}

// Send writes a signaling message to the relay, guarded by a mutex.
func (l *Link) Send(msg Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.WriteJSON(msg)
}

// Receive blocks for the next inbound message. Only one goroutine may call
// Receive.
func (l *Link) Receive() (Message, error) {
	var msg Message
	if err := l.conn.ReadJSON(&msg); err != nil {
		return Message{}, fmt.Errorf("relay read: %w", err)
	}
	return msg, nil
}

// AwaitControl reads messages until the relay's role assignment arrives.
// Any description or candidate seen before it would violate the relay's
// contract and is rejected.
func (l *Link) AwaitControl(ctx context.Context) (Control, error) {
	type result struct {
		ctrl Control
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		msg, err := l.Receive()
		if err != nil {
			ch <- result{err: err}
			return
		}
		if msg.Control == nil {
			ch <- result{err: fmt.Errorf("expected control message, got %+v", msg)}
			return
		}
		ch <- result{ctrl: *msg.Control}
	}()

	select {
	case r := <-ch:
		return r.ctrl, r.err
	case <-ctx.Done():
		l.conn.Close()
		return Control{}, ctx.Err()
	}
}

// Close shuts the WebSocket down.
func (l *Link) Close() error {
	return l.conn.Close()
}

// buildWSURL validates and normalizes the relay base URL into the full
// WebSocket endpoint for a room.
func buildWSURL(raw, roomID, pin string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid relay URL: %s", raw)
	}
	scheme := "wss"
	if u.Scheme == "ws" || u.Scheme == "wss" {
		scheme = u.Scheme
	}
	q := url.Values{}
	q.Set("room", roomID)
	if pin != "" {
		q.Set("pin", pin)
	}
	return fmt.Sprintf("%s://%s/ws?%s", scheme, u.Host, q.Encode()), nil
}
