// Package hub fans realtime envelopes out to every connected lobby
// client. One goroutine owns the client table; the ws handlers talk to
// it only through typed messages, so there is nothing to lock.
package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/nuocmamcacom/chess-lobby/pkg/wire"
)

type Msg interface{ isHubMsg() }

// Register adds a connection; everything broadcast afterwards lands on
// its Outbox until it unregisters or stops draining.
type Register struct {
	ClientID string
	Outbox   chan wire.Envelope
}

type Unregister struct{ ClientID string }

// Broadcast relays one envelope to every client except the sender.
// Delivery is best effort; the REST API carries correctness.
type Broadcast struct {
	From string
	Env  wire.Envelope
}

// Count is test-only: how many clients are registered.
type Count struct{ Reply chan int }

type Shutdown struct{}

func (Register) isHubMsg()   {}
func (Unregister) isHubMsg() {}
func (Broadcast) isHubMsg()  {}
func (Count) isHubMsg()      {}
func (Shutdown) isHubMsg()   {}

type Hub struct {
	inbox   chan Msg
	clients map[string]chan wire.Envelope
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan Msg, 64),
		clients: make(map[string]chan wire.Envelope),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- Msg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Register:
				h.clients[msg.ClientID] = msg.Outbox
				h.log.Debug("client registered", zap.String("clientId", msg.ClientID))

			case Unregister:
				if ch, ok := h.clients[msg.ClientID]; ok {
					close(ch)
					delete(h.clients, msg.ClientID)
				}

			case Broadcast:
				for id, ch := range h.clients {
					if id == msg.From {
						continue
					}
					select {
					case ch <- msg.Env:
					default:
						// Client stopped draining; drop it.
						close(ch)
						delete(h.clients, id)
						h.log.Warn("dropped slow client", zap.String("clientId", id))
					}
				}

			case Count:
				msg.Reply <- len(h.clients)

			case Shutdown:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for id, ch := range h.clients {
		close(ch)
		delete(h.clients, id)
	}
	h.cancel()
}
