package coordinator

import (
	"github.com/nuocmamcacom/chess-lobby/internal/room"
)

// Msg is anything the coordinator loop consumes from its inbox. User
// intents, realtime notifications, and network-call completions all
// arrive through the same channel, so state only ever changes on one
// goroutine.
type Msg interface{ isMsg() }

// Op names a user-initiated operation for error reporting.
type Op string

const (
	OpCreate Op = "create"
	OpJoin   Op = "join"
	OpDelete Op = "delete"
)

// User intents.

type Refresh struct{}

type Create struct{ Email string }

type Join struct {
	RoomID string
	Email  string
}

// RequestDelete arms the delete confirmation for one room; nothing is
// sent until ConfirmDelete. Re-arming replaces the previous target.
type RequestDelete struct{ RoomID string }

type CancelDelete struct{}

type ConfirmDelete struct{ Email string }

// RemoteDeleted is an inbound realtime notification that another client
// committed a delete.
type RemoteDeleted struct {
	RoomID    string
	DeletedBy string
}

// Watch registers an observer; the coordinator sends the current
// snapshot immediately and every later change to Outbox. Observers that
// stop draining are dropped.
type Watch struct {
	ID     string
	Outbox chan Snapshot
}

type Unwatch struct{ ID string }

// GetState is test-only introspection without data races.
type GetState struct{ Reply chan View }

type Shutdown struct{}

func (Refresh) isMsg()       {}
func (Create) isMsg()        {}
func (Join) isMsg()          {}
func (RequestDelete) isMsg() {}
func (CancelDelete) isMsg()  {}
func (ConfirmDelete) isMsg() {}
func (RemoteDeleted) isMsg() {}
func (Watch) isMsg()         {}
func (Unwatch) isMsg()       {}
func (GetState) isMsg()      {}
func (Shutdown) isMsg()      {}

// Network-call completions, posted back into the inbox by the
// goroutines that performed the round trip.

type listDone struct {
	seq   uint64 // mutation sequence captured when the list was issued
	rooms []room.Room
	err   error
}

type createDone struct {
	roomID string
	email  string
	room   room.Room
	err    error
}

type joinDone struct {
	roomID string
	room   room.Room
	err    error
}

type deleteDone struct {
	roomID string
	email  string
	err    error
}

func (listDone) isMsg()   {}
func (createDone) isMsg() {}
func (joinDone) isMsg()   {}
func (deleteDone) isMsg() {}

// ListStatus mirrors the state of the last list call.
type ListStatus string

const (
	ListIdle    ListStatus = "idle"
	ListLoading ListStatus = "loading"
	ListError   ListStatus = "error"
)

// Snapshot is what observers see: the reconciled room list plus the
// bits of coordinator state a lobby screen renders.
type Snapshot struct {
	Version     int
	Rooms       []room.Room
	ListStatus  ListStatus
	ArmedDelete string // roomID the delete confirmation is armed for, "" when unarmed
}

// View extends Snapshot with internals for tests.
type View struct {
	Snapshot
	NumPending  int
	NumWatchers int
}

// Event is the coordinator's signal stream back to the caller:
// navigation hand-offs and surfaced failures.
type Event interface{ isEvent() }

// Navigate tells the caller to enter the game session for RoomID.
type Navigate struct{ RoomID string }

// ActionFailed surfaces one failed user action. RoomID may be empty for
// a create rejected before an ID was assigned.
type ActionFailed struct {
	Op      Op
	RoomID  string
	Kind    room.Kind
	Message string
}

func (Navigate) isEvent()     {}
func (ActionFailed) isEvent() {}
