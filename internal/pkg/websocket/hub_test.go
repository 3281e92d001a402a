package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestPushReachesOnlyAddressedUser(t *testing.T) {
	hub := startHub(t)

	alice := &Client{hub: hub, userID: "1111111111", send: make(chan []byte, 4)}
	bob := &Client{hub: hub, userID: "2222222222", send: make(chan []byte, 4)}
	hub.addClient(alice)
	hub.addClient(bob)

	hub.Push("1111111111", &Message{Type: "notification", Payload: map[string]string{"short": "Transfer Request"}})

	select {
	case data := <-alice.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Type != "notification" || msg.Timestamp.IsZero() {
			t.Fatalf("unexpected message %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("alice did not receive the push")
	}

	select {
	case <-bob.send:
		t.Fatalf("bob should not receive alice's push")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := startHub(t)

	slow := &Client{hub: hub, userID: "1111111111", send: make(chan []byte)}
	hub.addClient(slow)
	waitFor(t, func() bool { return hub.ConnectedCount("1111111111") == 1 })

	hub.Push("1111111111", &Message{Type: "notification"})
	waitFor(t, func() bool { return hub.ConnectedCount("1111111111") == 0 })

	if _, ok := <-slow.send; ok {
		t.Fatalf("send queue of a dropped client should be closed")
	}
}

type recordingReader struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingReader) MarkRead(_ context.Context, userID string, id *int64, all bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if all {
		r.calls = append(r.calls, userID+":all")
	} else {
		r.calls = append(r.calls, userID+":one")
	}
	return nil
}

func (r *recordingReader) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestHandleConnectionRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := startHub(t)
	reader := &recordingReader{}
	handler := NewHandler(hub, NewMessageHandler(reader, zerolog.Nop()), zerolog.Nop())

	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		c.Set("userID", "1234567890")
		c.Next()
	}, handler.HandleConnection)

	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return hub.ConnectedCount("1234567890") == 1 })

	hub.Push("1234567890", &Message{Type: "notification", Payload: "hello"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"payload":"hello"`) {
		t.Fatalf("unexpected frame %s", data)
	}

	if err := conn.WriteJSON(ClientMessage{Type: "mark_all_read"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, func() bool { return reader.count() == 1 })
}

func TestHandleConnectionRequiresUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(NewHub(zerolog.Nop()), nil, zerolog.Nop())

	router := gin.New()
	router.GET("/ws", handler.HandleConnection)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/ws", nil))
	if w.Code != 400 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestStoppedHubDoesNotBlockClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := &Client{hub: hub, userID: "1111111111", send: make(chan []byte, 1)}
	if !hub.addClient(client) {
		t.Fatalf("running hub rejected client")
	}
	cancel()
	<-stopped

	if _, ok := <-client.send; ok {
		t.Fatalf("send queue should be closed on shutdown")
	}

	returned := make(chan struct{})
	go func() {
		hub.removeClient(client)
		if hub.addClient(&Client{hub: hub, userID: "2222222222", send: make(chan []byte)}) {
			t.Errorf("stopped hub accepted a client")
		}
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatalf("client calls blocked on a stopped hub")
	}
}
