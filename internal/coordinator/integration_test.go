package coordinator_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nuocmamcacom/chess-lobby/internal/coordinator"
	"github.com/nuocmamcacom/chess-lobby/internal/directory"
	"github.com/nuocmamcacom/chess-lobby/internal/httpapi"
	"github.com/nuocmamcacom/chess-lobby/internal/hub"
	"github.com/nuocmamcacom/chess-lobby/internal/realtime"
	"github.com/nuocmamcacom/chess-lobby/internal/room"
	"github.com/nuocmamcacom/chess-lobby/internal/store"
	"github.com/nuocmamcacom/chess-lobby/internal/ws"
)

// client is one full stack: directory client + realtime channel +
// coordinator, exactly as a mobile client wires them.
type client struct {
	co *coordinator.Coordinator
	rt *realtime.Channel
}

func newStack(t *testing.T) (a, b *client) {
	t.Helper()
	log := zap.NewNop()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.New(ctx, log)
	handlers := httpapi.NewHandlers(store.NewMemory(), log)
	srv := httptest.NewServer(httpapi.SetupRoutes(handlers, ws.Handler(h, log)))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	mk := func() *client {
		rt := realtime.Dial(ctx, wsURL, log)
		t.Cleanup(rt.Close)
		dir := directory.NewClient(directory.Static(srv.URL+"/api"), log)
		return &client{co: coordinator.New(ctx, dir, rt, log), rt: rt}
	}
	return mk(), mk()
}

func waitConnected(t *testing.T, c *client) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.rt.State() == realtime.Connected {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("realtime channel never connected")
}

func view(t *testing.T, c *client) coordinator.View {
	t.Helper()
	reply := make(chan coordinator.View, 1)
	c.co.Inbox() <- coordinator.GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for view")
		return coordinator.View{}
	}
}

func waitRooms(t *testing.T, c *client, n int, what string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		if v := view(t, c); len(v.Rooms) == n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("%s: never reached %d rooms", what, n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestTwoClients_DeletePropagatesOverRealtime(t *testing.T) {
	alice, bob := newStack(t)
	waitConnected(t, alice)
	waitConnected(t, bob)

	// Alice creates a room and is told to navigate into it.
	alice.co.Inbox() <- coordinator.Create{Email: "alice@example.com"}
	select {
	case ev := <-alice.co.Events():
		nav, ok := ev.(coordinator.Navigate)
		if !ok {
			t.Fatalf("want Navigate, got %+v", ev)
		}
		if nav.RoomID == "" {
			t.Fatalf("navigation without a room id")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("alice never got her navigation signal")
	}
	waitRooms(t, alice, 1, "alice after create")

	// Bob only learns about it on his next refresh.
	bob.co.Inbox() <- coordinator.Refresh{}
	waitRooms(t, bob, 1, "bob after refresh")
	roomID := view(t, bob).Rooms[0].RoomID

	// Alice deletes. Bob converges from the realtime notification alone,
	// with no further refresh on his side.
	alice.co.Inbox() <- coordinator.RequestDelete{RoomID: roomID}
	alice.co.Inbox() <- coordinator.ConfirmDelete{Email: "alice@example.com"}

	waitRooms(t, alice, 0, "alice after delete")
	waitRooms(t, bob, 0, "bob via roomDeleted event")
}

func TestTwoClients_JoinFillsSeatsThenRejects(t *testing.T) {
	alice, bob := newStack(t)
	waitConnected(t, alice)
	waitConnected(t, bob)

	alice.co.Inbox() <- coordinator.Create{Email: "alice@example.com"}
	select {
	case <-alice.co.Events():
	case <-time.After(3 * time.Second):
		t.Fatalf("create never resolved")
	}
	waitRooms(t, alice, 1, "alice after create")
	roomID := view(t, alice).Rooms[0].RoomID

	bob.co.Inbox() <- coordinator.Join{RoomID: roomID, Email: "bob@example.com"}
	select {
	case ev := <-bob.co.Events():
		if nav, ok := ev.(coordinator.Navigate); !ok || nav.RoomID != roomID {
			t.Fatalf("want Navigate into %s, got %+v", roomID, ev)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("bob's join never resolved")
	}

	// A third identity cannot take a seat.
	bob.co.Inbox() <- coordinator.Join{RoomID: roomID, Email: "carol@example.com"}
	select {
	case ev := <-bob.co.Events():
		failed, ok := ev.(coordinator.ActionFailed)
		if !ok {
			t.Fatalf("want ActionFailed, got %+v", ev)
		}
		if failed.Kind != room.RoomFull {
			t.Fatalf("want RoomFull, got %s", failed.Kind)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("full-room join never resolved")
	}
}
