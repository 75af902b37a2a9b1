package ws_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/astroserve/astroserve/internal/auth"
	"github.com/astroserve/astroserve/internal/store"
	wsHub "github.com/astroserve/astroserve/internal/ws"
)

// --- helpers ----------------------------------------------------------------

// startHub starts a test HTTP server with an authenticated hub as its
// handler. Token "tok-ana" maps to subject "uid-ana", "tok-bia" to "uid-bia".
func startHub(t *testing.T) (wsURL string, hub *wsHub.Hub) {
	t.Helper()

	a := auth.New(auth.Static{"tok-ana": "uid-ana", "tok-bia": "uid-bia"})
	hub = wsHub.New(a)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), hub
}

// dial connects a WebSocket client with the given bearer token.
func dial(t *testing.T, wsURL, token string) *websocket.Conn {
	t.Helper()
	hdr := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, hdr)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads one text message from conn with a short deadline.
func readMessage(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	return msg
}

// waitForCount polls until the hub registers want connections for subject.
func waitForCount(t *testing.T, hub *wsHub.Hub, subject string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count(subject) != want {
		if time.Now().After(deadline) {
			t.Fatalf("Count(%s): got %d, want %d", subject, hub.Count(subject), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func notification(kind string) store.Notification {
	return store.Notification{
		ID:      "ntf-1",
		Title:   "Astral Chart Calculated",
		Message: "Your astral chart is ready!",
		Kind:    kind,
	}
}

// --- tests ------------------------------------------------------------------

func TestHub_DeliverReachesSubject(t *testing.T) {
	wsURL, hub := startHub(t)
	conn := dial(t, wsURL, "tok-ana")
	waitForCount(t, hub, "uid-ana", 1)

	hub.Deliver("uid-ana", notification(store.KindSuccess))

	var msg wsHub.Message
	if err := json.Unmarshal(readMessage(t, conn), &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Event != "notification" {
		t.Errorf("event: got %q, want notification", msg.Event)
	}
	if msg.Data.Kind != store.KindSuccess {
		t.Errorf("kind: got %q, want success", msg.Data.Kind)
	}
}

func TestHub_DeliverDoesNotCrossSubjects(t *testing.T) {
	wsURL, hub := startHub(t)
	annaConn := dial(t, wsURL, "tok-ana")
	biaConn := dial(t, wsURL, "tok-bia")
	waitForCount(t, hub, "uid-ana", 1)
	waitForCount(t, hub, "uid-bia", 1)

	hub.Deliver("uid-ana", notification(store.KindSuccess))

	// Ana receives it.
	readMessage(t, annaConn)

	// Bia must not: a short read deadline should expire with no frame.
	biaConn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if _, _, err := biaConn.ReadMessage(); err == nil {
		t.Fatal("uid-bia received uid-ana's notification")
	}
}

func TestHub_RejectsMissingToken(t *testing.T) {
	wsURL, _ := startHub(t)
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("dial without token should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status: got %v, want 401", resp)
	}
}

func TestHub_RejectsBadToken(t *testing.T) {
	wsURL, _ := startHub(t)
	hdr := http.Header{"Authorization": []string{"Bearer tok-wrong"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, hdr)
	if err == nil {
		t.Fatal("dial with bad token should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status: got %v, want 401", resp)
	}
}

func TestHub_TokenQueryParam(t *testing.T) {
	wsURL, hub := startHub(t)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/?token=tok-ana", nil)
	if err != nil {
		t.Fatalf("dial with query token: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	waitForCount(t, hub, "uid-ana", 1)
}

func TestHub_CountDropsOnDisconnect(t *testing.T) {
	wsURL, hub := startHub(t)
	conn := dial(t, wsURL, "tok-ana")
	waitForCount(t, hub, "uid-ana", 1)

	conn.Close()
	waitForCount(t, hub, "uid-ana", 0)
}
