// Package realtime maintains the persistent socket used to push room
// change notifications between clients. Delivery is best effort: the
// REST API is the source of truth and a missed event only delays the
// next refresh, so emits are dropped silently while disconnected and
// the channel reconnects on its own.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/nuocmamcacom/chess-lobby/pkg/wire"
)

type State string

const (
	Connected    State = "connected"
	Disconnected State = "disconnected"
)

// Handler receives the raw payload of one event occurrence. Handlers
// run on the channel's read goroutine and must not block.
type Handler func(data json.RawMessage)

const (
	writeTimeout  = 3 * time.Second
	minBackoff    = 500 * time.Millisecond
	maxBackoff    = 10 * time.Second
	backoffFactor = 2
)

type Channel struct {
	url    string
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	conn    *websocket.Conn
	state   State
	subs    map[string]map[int]Handler
	nextSub int
}

// Dial starts the connection loop and returns immediately; the channel
// keeps reconnecting in the background until ctx is cancelled or Close
// is called.
func Dial(ctx context.Context, url string, log *zap.Logger) *Channel {
	ctx, cancel := context.WithCancel(ctx)
	c := &Channel{
		url:    url,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  Disconnected,
		subs:   make(map[string]map[int]Handler),
	}
	go c.run()
	return c
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers handler for eventName and returns its
// unsubscribe func. Unsubscribing twice is harmless.
func (c *Channel) Subscribe(eventName string, handler func(data json.RawMessage)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs[eventName] == nil {
		c.subs[eventName] = make(map[int]Handler)
	}
	id := c.nextSub
	c.nextSub++
	c.subs[eventName][id] = handler

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs[eventName], id)
	}
}

// Emit sends one event, fire and forget. While disconnected the event
// is dropped: correctness rides on REST plus the next list, not on this
// notification.
func (c *Channel) Emit(eventName string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.log.Warn("realtime emit: bad payload", zap.String("event", eventName), zap.Error(err))
		return
	}
	frame, err := json.Marshal(wire.Envelope{Event: eventName, Data: data})
	if err != nil {
		return
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		c.log.Debug("realtime emit dropped: disconnected", zap.String("event", eventName))
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
		c.log.Debug("realtime emit failed", zap.String("event", eventName), zap.Error(err))
	}
}

// Close tears the channel down and waits for the run loop to exit.
func (c *Channel) Close() {
	c.cancel()
	<-c.done
}

func (c *Channel) run() {
	defer close(c.done)
	backoff := minBackoff

	for {
		if c.ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.Dial(c.ctx, c.url, nil)
		if err != nil {
			c.log.Debug("realtime dial failed", zap.String("url", c.url), zap.Error(err))
			select {
			case <-c.ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff *= backoffFactor; backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		backoff = minBackoff
		c.setConn(conn)
		c.log.Info("realtime connected", zap.String("url", c.url))

		c.readLoop(conn)

		c.setConn(nil)
		_ = conn.Close(websocket.StatusGoingAway, "reconnecting")
		c.log.Info("realtime disconnected", zap.String("url", c.url))
	}
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(c.ctx)
		if err != nil {
			return
		}
		var env wire.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Warn("realtime: undecodable frame", zap.Error(err))
			continue
		}
		c.dispatch(env)
	}
}

func (c *Channel) dispatch(env wire.Envelope) {
	c.mu.Lock()
	handlers := make([]Handler, 0, len(c.subs[env.Event]))
	for _, h := range c.subs[env.Event] {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(env.Data)
	}
}

func (c *Channel) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
	if conn != nil {
		c.state = Connected
	} else {
		c.state = Disconnected
	}
}
