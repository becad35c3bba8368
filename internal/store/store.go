// Package store persists rooms for the lobby backend. Implementations
// speak the shared room.Kind taxonomy so handlers map failures straight
// onto HTTP statuses.
package store

import (
	"context"

	"github.com/nuocmamcacom/chess-lobby/internal/room"
)

// RoomStore is the persistence surface behind the REST handlers.
//
// Create fails with Conflict when the id is taken. Join fails with
// NotFound or RoomFull and is idempotent for existing members. Delete
// fails with NotFound when the room is gone and Forbidden when the
// requester is not the host.
type RoomStore interface {
	List(ctx context.Context) ([]room.Room, error)
	Get(ctx context.Context, roomID string) (room.Room, error)
	Create(ctx context.Context, roomID, hostEmail string) (room.Room, error)
	Join(ctx context.Context, roomID, email string) (room.Room, error)
	Delete(ctx context.Context, roomID, email string) error
}
