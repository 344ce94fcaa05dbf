package bridge_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/go-json-experiment/json"

	"github.com/solraven/keeper/bridge"
)

// wsServer is a fake platform endpoint. It acknowledges every action frame
// and lets tests push event frames to the client.
type wsServer struct {
	t *testing.T

	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsServer) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.t.Errorf("accept: %v", err)
		return
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var f struct {
			Op  string `json:"op"`
			RID int64  `json:"rid"`
		}
		if err := json.Unmarshal(data, &f); err != nil {
			s.t.Errorf("malformed frame: %v", err)
			return
		}
		ack := map[string]any{"rid": f.RID}
		if f.Op == "kick" {
			ack["error"] = "no permission"
		}
		s.send(ctx, ack)
	}
}

func (s *wsServer) send(ctx context.Context, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.t.Errorf("marshal: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		s.t.Error("no connection")
		return
	}
	if err := s.conn.Write(ctx, websocket.MessageText, b); err != nil {
		s.t.Errorf("write: %v", err)
	}
}

func (s *wsServer) event(ctx context.Context, t *testing.T, ev map[string]any) {
	t.Helper()
	// Wait for the client to be connected.
	deadline := time.Now().Add(5 * time.Second)
	for {
		s.mu.Lock()
		ok := s.conn != nil
		s.mu.Unlock()
		if ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("client never connected")
		}
		time.Sleep(time.Millisecond)
	}
	s.send(ctx, ev)
}

func startClient(t *testing.T) (*bridge.Client, *wsServer, context.Context) {
	t.Helper()
	s := &wsServer{t: t}
	srv := httptest.NewServer(http.HandlerFunc(s.handler))
	t.Cleanup(srv.Close)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	cl := bridge.NewClient(bridge.Config{
		URL:     "ws://" + strings.TrimPrefix(srv.URL, "http://"),
		Token:   "token",
		Room:    "room",
		Timeout: 5 * time.Second,
	})
	go cl.Connect(ctx)
	return cl, s, ctx
}

func recvEvent(t *testing.T, cl *bridge.Client) bridge.Event {
	t.Helper()
	select {
	case ev := <-cl.Events():
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no event")
		panic("unreachable")
	}
}

func TestClientEvents(t *testing.T) {
	cl, s, ctx := startClient(t)
	s.event(ctx, t, map[string]any{"ev": "ready", "user": map[string]any{"id": "bot", "name": "keeper"}})
	ev := recvEvent(t, cl)
	if ev.Kind != bridge.Ready || ev.User.ID != "bot" {
		t.Errorf("event = %+v, want ready from bot", ev)
	}
	s.event(ctx, t, map[string]any{"ev": "join", "user": map[string]any{"id": "u1", "name": "alice"}})
	ev = recvEvent(t, cl)
	if ev.Kind != bridge.Join || ev.User.Name != "alice" {
		t.Errorf("event = %+v, want join from alice", ev)
	}
	if !cl.Roster().Present("u1") {
		t.Error("join did not update roster")
	}
	s.event(ctx, t, map[string]any{"ev": "dm", "user": map[string]any{"id": "u1", "name": "alice"}, "text": "hi"})
	ev = recvEvent(t, cl)
	if ev.Kind != bridge.Chat || ev.Channel != bridge.DM || ev.Text != "hi" {
		t.Errorf("event = %+v, want dm chat", ev)
	}
}

func TestClientSessionSnapshot(t *testing.T) {
	cl, s, ctx := startClient(t)
	s.event(ctx, t, map[string]any{"ev": "session", "users": []map[string]any{
		{"id": "u1", "name": "alice"},
		{"id": "u2", "name": "bob"},
	}})
	// The snapshot produces no event, so follow it with one that does.
	s.event(ctx, t, map[string]any{"ev": "ready", "user": map[string]any{"id": "bot", "name": "keeper"}})
	if ev := recvEvent(t, cl); ev.Kind != bridge.Ready {
		t.Errorf("event = %+v, want ready", ev)
	}
	if !cl.Roster().Present("u1") || !cl.Roster().Present("u2") {
		t.Error("snapshot did not populate roster")
	}
}

func TestClientActionAck(t *testing.T) {
	cl, s, ctx := startClient(t)
	s.event(ctx, t, map[string]any{"ev": "ready", "user": map[string]any{"id": "bot", "name": "keeper"}})
	recvEvent(t, cl)
	if err := cl.SendChat(ctx, "hello"); err != nil {
		t.Errorf("send: %v", err)
	}
}

func TestClientActionRejected(t *testing.T) {
	cl, s, ctx := startClient(t)
	s.event(ctx, t, map[string]any{"ev": "ready", "user": map[string]any{"id": "bot", "name": "keeper"}})
	recvEvent(t, cl)
	err := cl.Kick(ctx, "u1")
	if err == nil || !strings.Contains(err.Error(), "no permission") {
		t.Errorf("err = %v, want platform rejection", err)
	}
}

func TestClientNotConnected(t *testing.T) {
	cl := bridge.NewClient(bridge.Config{URL: "ws://127.0.0.1:1", Timeout: time.Second})
	err := cl.SendChat(context.Background(), "hello")
	if err == nil {
		t.Error("send succeeded with no connection")
	}
}
