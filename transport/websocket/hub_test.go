package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/mcp-training/chainreaction/game/engine"
	"github.com/wricardo/mcp-training/chainreaction/game/service"
)

func newTestClient(hub *Hub, sessionID string) *Client {
	return &Client{
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, sendBuffer),
	}
}

func testState(t *testing.T) *engine.GameState {
	t.Helper()
	e, err := engine.NewGame(2, 3, []engine.Player{"A", "B"})
	if err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}
	if _, err := e.Move(engine.Coord{Row: 1, Col: 2}, "A"); err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	return e.GetState()
}

func receive(t *testing.T, client *Client) Message {
	t.Helper()
	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		return message
	case <-time.After(100 * time.Millisecond):
		t.Fatal("No message received within timeout")
	}
	return Message{}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if hub.register == nil {
		t.Error("Hub register channel is nil")
	}
	if hub.ClientCount("anything") != 0 {
		t.Error("New hub should have no clients")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "test-session")

	hub.registerClient(client)

	if !hub.sessions["test-session"][client] {
		t.Error("Client was not registered in session")
	}
	if hub.ClientCount("TEST-SESSION") != 1 {
		t.Errorf("Expected 1 client in session, got %d", hub.ClientCount("test-session"))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "test-session")

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.sessions["test-session"]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
	if _, ok := <-client.send; ok {
		t.Error("Send channel should be closed")
	}

	// a second unregister must not panic on the closed channel
	hub.unregisterClient(client)
}

func TestHubMultipleClientsInSession(t *testing.T) {
	hub := NewHub()
	sessionID := "multi-client-session"

	client1 := newTestClient(hub, sessionID)
	client2 := newTestClient(hub, sessionID)
	other := newTestClient(hub, "other")

	hub.registerClient(client1)
	hub.registerClient(client2)
	hub.registerClient(other)

	if hub.ClientCount(sessionID) != 2 {
		t.Errorf("Expected 2 clients in session, got %d", hub.ClientCount(sessionID))
	}

	hub.BroadcastEvent(sessionID, "ping", "x")
	receive(t, client1)
	receive(t, client2)
	select {
	case <-other.send:
		t.Error("Client of another session received the broadcast")
	default:
	}

	hub.unregisterClient(client1)
	if hub.ClientCount(sessionID) != 1 || !hub.sessions[sessionID][client2] {
		t.Error("client2 should be the only client left")
	}
}

func TestHubBroadcastToSession(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "broadcast-test")
	hub.registerClient(client)

	state := testState(t)
	hub.BroadcastToSession("Broadcast-Test", state)

	message := receive(t, client)
	if message.SessionID != "broadcast-test" {
		t.Errorf("Expected sessionID broadcast-test, got %s", message.SessionID)
	}
	if message.Event != EventStateUpdate {
		t.Errorf("Expected event %s, got %s", EventStateUpdate, message.Event)
	}
	if message.GameState == nil || message.GameState.CurrentPlayer != "B" {
		t.Fatalf("GameState not correctly transmitted: %+v", message.GameState)
	}
	cell, err := message.GameState.Grid.Get(engine.Coord{Row: 1, Col: 2})
	if err != nil || cell.Stock != 1 || cell.Owner != "A" {
		t.Errorf("Expected {1 A} at (1,2), got %+v (%v)", cell, err)
	}
}

func TestHubPublishMove(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "pub")
	hub.registerClient(client)

	at := engine.Coord{Row: 0, Col: 0}
	events := []service.GameEvent{
		{Type: service.EventMove, Player: "A", Coord: &at},
		{Type: service.EventOverflow, Cells: []engine.Coord{at}},
		{Type: service.EventCapture, Player: "A", From: "B", Cells: []engine.Coord{{Row: 0, Col: 1}}},
		{Type: service.EventTurn, Player: "B"},
		{Type: service.EventVictory, Player: "A"},
	}
	hub.PublishMove("pub", testState(t), events)

	want := []string{EventOverflow, EventCapture, EventVictory, EventStateUpdate}
	for _, event := range want {
		message := receive(t, client)
		if message.Event != event {
			t.Fatalf("Expected %s, got %s", event, message.Event)
		}
	}
	select {
	case data := <-client.send:
		t.Errorf("Unexpected extra message: %s", data)
	default:
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	client := &Client{hub: hub, sessionID: "slow", send: make(chan []byte, 1)}
	hub.registerClient(client)

	hub.BroadcastEvent("slow", "one", nil)
	hub.BroadcastEvent("slow", "two", nil)

	if hub.ClientCount("slow") != 0 {
		t.Error("Slow client should have been dropped")
	}
}

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		origin  string
		allowed []string
		want    bool
	}{
		{"http://evil.example", nil, true},
		{"", []string{"http://a.example"}, true},
		{"http://a.example", []string{"http://a.example"}, true},
		{"HTTP://A.EXAMPLE", []string{"http://a.example"}, true},
		{"http://b.example", []string{"http://a.example"}, false},
		{"http://b.example", []string{"*"}, true},
	}
	for _, tt := range tests {
		if got := originAllowed(tt.origin, tt.allowed); got != tt.want {
			t.Errorf("originAllowed(%q, %v) = %v, want %v", tt.origin, tt.allowed, got, tt.want)
		}
	}
}

func startHubServer(t *testing.T, hub *Hub, initial *engine.GameState) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"), initial)
	}))
	t.Cleanup(server.Close)
	return server
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketLifecycle(t *testing.T) {
	hub := NewHub()
	server := startHubServer(t, hub, nil)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=ws-test"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}

	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 1 })

	conn.Close()

	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 0 })
}

func TestWebSocketMessageReceive(t *testing.T) {
	hub := NewHub()
	initial := testState(t)
	server := startHubServer(t, hub, initial)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=msg-test"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	read := func() Message {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read WebSocket message: %v", err)
		}
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		return message
	}

	first := read()
	if first.Event != EventStateUpdate || first.GameState == nil || first.GameState.GameID != initial.GameID {
		t.Fatalf("Expected initial state_update, got %+v", first)
	}

	waitFor(t, func() bool { return hub.ClientCount("msg-test") == 1 })
	hub.BroadcastEvent("msg-test", EventVictory, map[string]string{"winner": "A"})

	second := read()
	if second.SessionID != "msg-test" || second.Event != EventVictory {
		t.Errorf("Expected victory for msg-test, got %+v", second)
	}
	data, ok := second.Data.(map[string]interface{})
	if !ok || data["winner"] != "A" {
		t.Errorf("Expected winner A in data, got %v", second.Data)
	}
}

func TestHubRunStopsOnCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := newTestClient(hub, "s")
	hub.register <- client
	waitFor(t, func() bool { return hub.ClientCount("s") == 1 })

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if hub.ClientCount("s") != 0 {
		t.Error("Clients should be disconnected when the hub stops")
	}
}
