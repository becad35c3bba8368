// Package coordinator reconciles REST-fetched state, locally initiated
// actions, and inbound realtime events into one consistent view of the
// room list. All state lives on a single goroutine fed by a message
// inbox; network calls run in spawned goroutines that post their result
// back into the same inbox.
package coordinator

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"sort"

	"go.uber.org/zap"

	"github.com/nuocmamcacom/chess-lobby/internal/room"
	"github.com/nuocmamcacom/chess-lobby/pkg/wire"
)

// Directory is the REST surface the coordinator drives.
// directory.Client satisfies it.
type Directory interface {
	List(ctx context.Context) ([]room.Room, error)
	Create(ctx context.Context, roomID, hostEmail string) (room.Room, error)
	Join(ctx context.Context, roomID, email string) (room.Room, error)
	Delete(ctx context.Context, roomID, email string) error
}

// Notifier is the realtime surface: best-effort emit plus event
// subscription. realtime.Channel satisfies it.
type Notifier interface {
	Emit(eventName string, payload any)
	Subscribe(eventName string, handler func(data json.RawMessage)) func()
}

type pendingAction struct {
	op    Op
	token uint64
}

type Coordinator struct {
	inbox  chan Msg
	dir    Directory
	rt     Notifier
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc

	events chan Event
	unsub  func()

	// Loop-owned state; touched only from loop().
	rooms       map[string]room.Room
	pending     map[string]pendingAction
	listStatus  ListStatus
	armed       string
	watchers    map[string]chan Snapshot
	version     int
	mutationSeq uint64
	nextToken   uint64

	// Overridable in tests to pin generated room IDs.
	genRoomID func() (string, error)
}

func New(parent context.Context, dir Directory, rt Notifier, log *zap.Logger) *Coordinator {
	ctx, cancel := context.WithCancel(parent)
	c := &Coordinator{
		inbox:      make(chan Msg, 64),
		dir:        dir,
		rt:         rt,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		events:     make(chan Event, 16),
		rooms:      make(map[string]room.Room),
		pending:    make(map[string]pendingAction),
		listStatus: ListIdle,
		watchers:   make(map[string]chan Snapshot),
		genRoomID:  NewRoomID,
	}
	c.unsub = rt.Subscribe(wire.EventRoomDeleted, func(data json.RawMessage) {
		var ev wire.RoomDeleted
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Warn("undecodable roomDeleted payload", zap.Error(err))
			return
		}
		c.post(RemoteDeleted{RoomID: ev.RoomID, DeletedBy: ev.DeletedBy})
	})
	go c.loop()
	return c
}

// Inbox is where callers (and tests) send messages.
func (c *Coordinator) Inbox() chan<- Msg { return c.inbox }

// Events carries navigation hand-offs and surfaced failures.
func (c *Coordinator) Events() <-chan Event { return c.events }

// post delivers a message into the inbox unless the coordinator has
// shut down; used from non-loop goroutines.
func (c *Coordinator) post(m Msg) {
	select {
	case c.inbox <- m:
	case <-c.ctx.Done():
	}
}

func (c *Coordinator) loop() {
	for {
		select {
		case <-c.ctx.Done():
			c.shutdown()
			return

		case m := <-c.inbox:
			switch msg := m.(type) {
			case Refresh:
				c.startRefresh()
			case listDone:
				c.handleListDone(msg)
			case Create:
				c.handleCreate(msg)
			case createDone:
				c.handleCreateDone(msg)
			case Join:
				c.handleJoin(msg)
			case joinDone:
				c.handleJoinDone(msg)
			case RequestDelete:
				c.handleRequestDelete(msg)
			case CancelDelete:
				if c.armed != "" {
					c.armed = ""
					c.broadcast()
				}
			case ConfirmDelete:
				c.handleConfirmDelete(msg)
			case deleteDone:
				c.handleDeleteDone(msg)
			case RemoteDeleted:
				c.handleRemoteDeleted(msg)
			case Watch:
				c.watchers[msg.ID] = msg.Outbox
				msg.Outbox <- c.snapshot()
			case Unwatch:
				delete(c.watchers, msg.ID)
			case GetState:
				msg.Reply <- View{
					Snapshot:    c.snapshot(),
					NumPending:  len(c.pending),
					NumWatchers: len(c.watchers),
				}
			case Shutdown:
				c.shutdown()
				return
			}
		}
	}
}

// startRefresh issues a list call tagged with the mutation sequence in
// force when it left, so its response can be recognized as stale later.
func (c *Coordinator) startRefresh() {
	c.listStatus = ListLoading
	c.broadcast()
	seq := c.mutationSeq
	go func() {
		rooms, err := c.dir.List(c.ctx)
		c.post(listDone{seq: seq, rooms: rooms, err: err})
	}()
}

func (c *Coordinator) handleListDone(msg listDone) {
	if msg.err != nil {
		// Stale-but-available beats empty: keep the previous snapshot.
		c.listStatus = ListError
		c.log.Warn("room list failed", zap.Error(msg.err))
		c.broadcast()
		return
	}
	if msg.seq < c.mutationSeq {
		// A local mutation landed while this list was in flight; its
		// snapshot predates what the user just did. Drop it rather than
		// resurrect a deleted room. The next refresh is authoritative.
		c.log.Debug("discarding stale room list",
			zap.Uint64("listSeq", msg.seq), zap.Uint64("mutationSeq", c.mutationSeq))
		c.listStatus = ListIdle
		c.broadcast()
		return
	}

	next := make(map[string]room.Room, len(msg.rooms))
	for _, r := range msg.rooms {
		next[r.RoomID] = r
	}
	// Rooms with a live pending action keep their local presence or
	// absence; the server snapshot wins everywhere else.
	for id := range c.pending {
		if local, ok := c.rooms[id]; ok {
			next[id] = local
		} else {
			delete(next, id)
		}
	}
	c.rooms = next
	c.listStatus = ListIdle
	c.disarmIfGone()
	c.version++
	c.broadcast()
}

func (c *Coordinator) handleCreate(msg Create) {
	if msg.Email == "" {
		c.emit(ActionFailed{Op: OpCreate, Kind: room.Unauthorized, Message: "sign in before creating a room"})
		return
	}
	roomID, err := c.genRoomID()
	if err != nil {
		c.emit(ActionFailed{Op: OpCreate, Kind: room.Unknown, Message: "could not generate a room id"})
		return
	}
	if !c.acquirePending(roomID, OpCreate) {
		c.emit(ActionFailed{Op: OpCreate, RoomID: roomID, Kind: room.Conflict, Message: "an action for this room is already in flight"})
		return
	}
	go func() {
		created, err := c.dir.Create(c.ctx, roomID, msg.Email)
		c.post(createDone{roomID: roomID, email: msg.Email, room: created, err: err})
	}()
}

func (c *Coordinator) handleCreateDone(msg createDone) {
	delete(c.pending, msg.roomID)
	if msg.err != nil {
		c.surface(OpCreate, msg.roomID, msg.err)
		return
	}
	c.rooms[msg.room.RoomID] = msg.room
	c.mutationSeq++
	c.version++
	c.broadcast()
	c.startRefresh()
	c.emit(Navigate{RoomID: msg.room.RoomID})
}

func (c *Coordinator) handleJoin(msg Join) {
	if msg.RoomID == "" {
		c.emit(ActionFailed{Op: OpJoin, Kind: room.NotFound, Message: "no room selected"})
		return
	}
	if !c.acquirePending(msg.RoomID, OpJoin) {
		c.emit(ActionFailed{Op: OpJoin, RoomID: msg.RoomID, Kind: room.Conflict, Message: "an action for this room is already in flight"})
		return
	}
	go func() {
		joined, err := c.dir.Join(c.ctx, msg.RoomID, msg.Email)
		c.post(joinDone{roomID: msg.RoomID, room: joined, err: err})
	}()
}

func (c *Coordinator) handleJoinDone(msg joinDone) {
	delete(c.pending, msg.roomID)
	if msg.err != nil {
		c.surface(OpJoin, msg.roomID, msg.err)
		return
	}
	c.rooms[msg.room.RoomID] = msg.room
	c.mutationSeq++
	c.version++
	c.broadcast()
	c.startRefresh()
	c.emit(Navigate{RoomID: msg.room.RoomID})
}

func (c *Coordinator) handleRequestDelete(msg RequestDelete) {
	if _, ok := c.rooms[msg.RoomID]; !ok {
		return
	}
	c.armed = msg.RoomID
	c.broadcast()
}

func (c *Coordinator) handleConfirmDelete(msg ConfirmDelete) {
	if c.armed == "" {
		return
	}
	roomID := c.armed
	c.armed = ""
	if !c.acquirePending(roomID, OpDelete) {
		c.emit(ActionFailed{Op: OpDelete, RoomID: roomID, Kind: room.Conflict, Message: "an action for this room is already in flight"})
		c.broadcast()
		return
	}
	c.broadcast()
	go func() {
		err := c.dir.Delete(c.ctx, roomID, msg.Email)
		c.post(deleteDone{roomID: roomID, email: msg.Email, err: err})
	}()
}

func (c *Coordinator) handleDeleteDone(msg deleteDone) {
	delete(c.pending, msg.roomID)
	if msg.err != nil && room.KindOf(msg.err) != room.NotFound {
		c.surface(OpDelete, msg.roomID, msg.err)
		return
	}
	// Success, or the room was already gone server-side; either way the
	// desired end state holds. Remove it now rather than waiting for the
	// next refresh, and nudge the other clients.
	if _, ok := c.rooms[msg.roomID]; ok {
		delete(c.rooms, msg.roomID)
		c.version++
	}
	c.mutationSeq++
	c.disarmIfGone()
	c.broadcast()
	c.rt.Emit(wire.EventRoomDeleted, wire.RoomDeleted{RoomID: msg.roomID, DeletedBy: msg.email})
}

func (c *Coordinator) handleRemoteDeleted(msg RemoteDeleted) {
	if _, ok := c.rooms[msg.RoomID]; !ok {
		return
	}
	// Advisory removal: no mutation bump, so a wrong notification is
	// healed by the next refresh.
	delete(c.rooms, msg.RoomID)
	c.log.Info("room deleted remotely",
		zap.String("roomId", msg.RoomID), zap.String("deletedBy", msg.DeletedBy))
	c.disarmIfGone()
	c.version++
	c.broadcast()
}

// acquirePending registers the one allowed in-flight action for roomID
// and reports whether it won the slot.
func (c *Coordinator) acquirePending(roomID string, op Op) bool {
	if _, exists := c.pending[roomID]; exists {
		return false
	}
	c.nextToken++
	c.pending[roomID] = pendingAction{op: op, token: c.nextToken}
	return true
}

// disarmIfGone clears the delete confirmation when its target no longer
// exists locally, so a stale arm can never fire at the wrong room.
func (c *Coordinator) disarmIfGone() {
	if c.armed == "" {
		return
	}
	if _, ok := c.rooms[c.armed]; !ok {
		c.armed = ""
	}
}

func (c *Coordinator) surface(op Op, roomID string, err error) {
	kind, message := room.KindOf(err), err.Error()
	var e *room.Error
	if errors.As(err, &e) {
		message = e.Message
	}
	c.log.Warn("action failed",
		zap.String("op", string(op)), zap.String("roomId", roomID), zap.Error(err))
	c.emit(ActionFailed{Op: op, RoomID: roomID, Kind: kind, Message: message})
}

func (c *Coordinator) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.log.Warn("event dropped: observer not draining")
	}
}

func (c *Coordinator) snapshot() Snapshot {
	rooms := make([]room.Room, 0, len(c.rooms))
	for _, r := range c.rooms {
		rooms = append(rooms, r.Clone())
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].RoomID < rooms[j].RoomID })
	return Snapshot{
		Version:     c.version,
		Rooms:       rooms,
		ListStatus:  c.listStatus,
		ArmedDelete: c.armed,
	}
}

func (c *Coordinator) broadcast() {
	snap := c.snapshot()
	for id, ch := range c.watchers {
		select {
		case ch <- snap:
		default:
			// Observer is slow or gone; drop it.
			close(ch)
			delete(c.watchers, id)
		}
	}
}

func (c *Coordinator) shutdown() {
	if c.unsub != nil {
		c.unsub()
	}
	for id, ch := range c.watchers {
		close(ch)
		delete(c.watchers, id)
	}
	c.cancel()
}

const roomIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewRoomID returns a fresh 6-character room identifier. IDs are
// generated client-side; the backend rejects the rare collision with
// Conflict and the user simply retries.
func NewRoomID() (string, error) {
	id := make([]byte, 6)
	for i := range id {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomIDAlphabet))))
		if err != nil {
			return "", err
		}
		id[i] = roomIDAlphabet[n.Int64()]
	}
	return string(id), nil
}
