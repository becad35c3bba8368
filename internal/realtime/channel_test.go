package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/nuocmamcacom/chess-lobby/pkg/wire"
)

// wsServer accepts one connection at a time and exposes its frames.
type wsServer struct {
	srv      *httptest.Server
	inbound  chan wire.Envelope
	outbound chan wire.Envelope
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	s := &wsServer{
		inbound:  make(chan wire.Envelope, 8),
		outbound: make(chan wire.Envelope, 8),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		ctx := r.Context()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case env := <-s.outbound:
					payload, _ := json.Marshal(env)
					_ = conn.Write(ctx, websocket.MessageText, payload)
				}
			}
		}()
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var env wire.Envelope
			if json.Unmarshal(data, &env) == nil {
				s.inbound <- env
			}
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func recvEnvelope(t *testing.T, ch <-chan wire.Envelope, within time.Duration) wire.Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(within):
		t.Fatalf("timed out waiting for envelope")
		return wire.Envelope{}
	}
}

func waitConnected(t *testing.T, c *Channel) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == Connected {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("channel never connected")
}

func TestChannel_DispatchesSubscribedEvent(t *testing.T) {
	srv := newWSServer(t)
	c := Dial(context.Background(), srv.url(), zap.NewNop())
	defer c.Close()
	waitConnected(t, c)

	got := make(chan wire.RoomDeleted, 1)
	unsub := c.Subscribe(wire.EventRoomDeleted, func(data json.RawMessage) {
		var ev wire.RoomDeleted
		if json.Unmarshal(data, &ev) == nil {
			got <- ev
		}
	})
	defer unsub()

	payload, _ := json.Marshal(wire.RoomDeleted{RoomID: "ab12cd", DeletedBy: "alice@example.com"})
	srv.outbound <- wire.Envelope{Event: wire.EventRoomDeleted, Data: payload}

	select {
	case ev := <-got:
		if ev.RoomID != "ab12cd" || ev.DeletedBy != "alice@example.com" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for roomDeleted dispatch")
	}
}

func TestChannel_EmitReachesServer(t *testing.T) {
	srv := newWSServer(t)
	c := Dial(context.Background(), srv.url(), zap.NewNop())
	defer c.Close()
	waitConnected(t, c)

	c.Emit(wire.EventRoomDeleted, wire.RoomDeleted{RoomID: "r1", DeletedBy: "host@x"})

	env := recvEnvelope(t, srv.inbound, 2*time.Second)
	if env.Event != wire.EventRoomDeleted {
		t.Fatalf("want roomDeleted, got %q", env.Event)
	}
	var ev wire.RoomDeleted
	if err := json.Unmarshal(env.Data, &ev); err != nil || ev.RoomID != "r1" {
		t.Fatalf("bad payload: %s", env.Data)
	}
}

func TestChannel_EmitWhileDisconnectedIsDropped(t *testing.T) {
	// Nothing is listening on this port; the channel stays disconnected.
	c := Dial(context.Background(), "ws://127.0.0.1:1", zap.NewNop())
	defer c.Close()

	if c.State() != Disconnected {
		t.Fatalf("expected disconnected state")
	}
	// Must neither block nor panic.
	c.Emit(wire.EventRoomDeleted, wire.RoomDeleted{RoomID: "r1"})
}

func TestChannel_UnsubscribeStopsDelivery(t *testing.T) {
	srv := newWSServer(t)
	c := Dial(context.Background(), srv.url(), zap.NewNop())
	defer c.Close()
	waitConnected(t, c)

	got := make(chan struct{}, 4)
	unsub := c.Subscribe(wire.EventRoomDeleted, func(json.RawMessage) { got <- struct{}{} })
	unsub()
	unsub() // double unsubscribe is harmless

	srv.outbound <- wire.Envelope{Event: wire.EventRoomDeleted, Data: json.RawMessage(`{}`)}

	select {
	case <-got:
		t.Fatalf("handler ran after unsubscribe")
	case <-time.After(200 * time.Millisecond):
	}
}
