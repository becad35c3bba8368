// Package ws bridges websocket connections onto the hub. Each
// connection registers an outbox, relays the envelopes it sends, and
// receives everything other clients broadcast.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nuocmamcacom/chess-lobby/internal/hub"
	"github.com/nuocmamcacom/chess-lobby/pkg/wire"
)

const writeTimeout = 3 * time.Second

// relayable guards the event names clients may broadcast through us.
var relayable = map[string]bool{
	wire.EventRoomDeleted: true,
}

func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// The lobby runs against emulators and LAN devices with
			// arbitrary origins; the REST API does the authorization.
			InsecureSkipVerify: true,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		out := make(chan wire.Envelope, 8)
		h.Inbox() <- hub.Register{ClientID: clientID, Outbox: out}
		defer func() { h.Inbox() <- hub.Unregister{ClientID: clientID} }()

		log.Info("realtime client connected", zap.String("clientId", clientID))
		defer log.Info("realtime client disconnected", zap.String("clientId", clientID))

		// Writer goroutine: hub outbox -> socket.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for env := range out {
				payload, err := json.Marshal(env)
				if err != nil {
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop: socket -> hub broadcast.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var env wire.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				log.Warn("undecodable frame", zap.String("clientId", clientID), zap.Error(err))
				continue
			}
			if !relayable[env.Event] {
				log.Warn("ignoring unknown event", zap.String("event", env.Event), zap.String("clientId", clientID))
				continue
			}
			h.Inbox() <- hub.Broadcast{From: clientID, Env: env}
		}
	}
}
