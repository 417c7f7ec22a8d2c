package signaling

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
)

// startRelay mounts the relay on an httptest server and returns a dialer
// for it.
func startRelay(t *testing.T, pin string) (dial func(room, pin string) (*websocket.Conn, *http.Response, error), cleanup func()) {
	t.Helper()
	srv := NewServer(pin)
	ts := httptest.NewServer(srv.Handler())

	dial = func(room, pin string) (*websocket.Conn, *http.Response, error) {
		wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?room=" + room
		if pin != "" {
			wsURL += "&pin=" + pin
		}
		return websocket.DefaultDialer.Dial(wsURL, nil)
	}
	return dial, ts.Close
}

// readMessage reads one Message with a deadline so a broken relay fails
// the test instead of hanging it.
func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

func TestPairingAssignsOppositeRoles(t *testing.T) {
	dial, cleanup := startRelay(t, "")
	defer cleanup()

	room := NewRoomID()
	first, _, err := dial(room, "")
	if err != nil {
		t.Fatalf("first dial: %v", err)
	}
	defer first.Close()

	second, _, err := dial(room, "")
	if err != nil {
		t.Fatalf("second dial: %v", err)
	}
	defer second.Close()

	ctrlFirst := readMessage(t, first)
	ctrlSecond := readMessage(t, second)

	if ctrlFirst.Control == nil || ctrlSecond.Control == nil {
		t.Fatalf("both peers must receive a control message first")
	}
	if !ctrlFirst.Control.Polite {
		t.Errorf("first joiner must be polite")
	}
	if ctrlSecond.Control.Polite {
		t.Errorf("second joiner must be impolite")
	}
}

func TestForwardingPreservesOrder(t *testing.T) {
	dial, cleanup := startRelay(t, "")
	defer cleanup()

	room := NewRoomID()
	first, _, err := dial(room, "")
	if err != nil {
		t.Fatalf("first dial: %v", err)
	}
	defer first.Close()
	second, _, err := dial(room, "")
	if err != nil {
		t.Fatalf("second dial: %v", err)
	}
	defer second.Close()

	readMessage(t, first)  // control
	readMessage(t, second) // control

	const n = 20
	for i := 0; i < n; i++ {
		desc := webrtc.SessionDescription{
			Type: webrtc.SDPTypeOffer,
			SDP:  fmt.Sprintf("v=0 seq=%d", i),
		}
		if err := first.WriteJSON(Message{Description: &desc}); err != nil {
			t.Fatalf("WriteJSON %d: %v", i, err)
		}
	}

	for i := 0; i < n; i++ {
		msg := readMessage(t, second)
		if msg.Description == nil {
			t.Fatalf("message %d: no description", i)
		}
		want := fmt.Sprintf("v=0 seq=%d", i)
		if msg.Description.SDP != want {
			t.Fatalf("message %d: SDP = %q, want %q (reordered)", i, msg.Description.SDP, want)
		}
	}
}

func TestForwardingBothDirections(t *testing.T) {
	dial, cleanup := startRelay(t, "")
	defer cleanup()

	room := NewRoomID()
	first, _, _ := dial(room, "")
	defer first.Close()
	second, _, _ := dial(room, "")
	defer second.Close()

	readMessage(t, first)
	readMessage(t, second)

	cand := webrtc.ICECandidateInit{Candidate: "candidate:1 1 udp 2130706431 192.0.2.1 54321 typ host"}
	if err := second.WriteJSON(Message{Candidate: &cand}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	msg := readMessage(t, first)
	if msg.Candidate == nil || msg.Candidate.Candidate != cand.Candidate {
		t.Fatalf("candidate not forwarded, got %+v", msg)
	}
}

func TestBadPinRejected(t *testing.T) {
	dial, cleanup := startRelay(t, "4242")
	defer cleanup()

	_, resp, err := dial(NewRoomID(), "9999")
	if err == nil {
		t.Fatalf("dial with wrong PIN must fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %+v", resp)
	}
}

func TestMissingRoomRejected(t *testing.T) {
	dial, cleanup := startRelay(t, "")
	defer cleanup()

	_, resp, err := dial("", "")
	if err == nil {
		t.Fatalf("dial without room must fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %+v", resp)
	}
}

func TestThirdJoinerRejected(t *testing.T) {
	dial, cleanup := startRelay(t, "")
	defer cleanup()

	room := NewRoomID()
	first, _, _ := dial(room, "")
	defer first.Close()
	second, _, _ := dial(room, "")
	defer second.Close()

	readMessage(t, first)
	readMessage(t, second)

	// The pairing is done and the room is gone; a third joiner starts a
	// new pairing and waits — it must not receive a control message from
	// the completed pairing.
	third, _, err := dial(room, "")
	if err != nil {
		t.Fatalf("third dial: %v", err)
	}
	defer third.Close()

	third.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var msg Message
	if err := third.ReadJSON(&msg); err == nil {
		t.Fatalf("third joiner unexpectedly received %+v", msg)
	}
}

func TestNewRoomIDUnique(t *testing.T) {
	a, b := NewRoomID(), NewRoomID()
	if a == b {
		t.Fatalf("room IDs must be unique, got %q twice", a)
	}
	if a == "" {
		t.Fatalf("room ID must not be empty")
	}
}
