package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nuocmamcacom/chess-lobby/internal/room"
)

// Memory is the default RoomStore: a mutex-guarded map. It backs the
// dev server and every handler test.
type Memory struct {
	mu    sync.Mutex
	rooms map[string]room.Room
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{rooms: make(map[string]room.Room), now: time.Now}
}

func (m *Memory) List(ctx context.Context) ([]room.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]room.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) Get(ctx context.Context, roomID string) (room.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return room.Room{}, room.Errf(room.NotFound, "room %s not found", roomID)
	}
	return r.Clone(), nil
}

func (m *Memory) Create(ctx context.Context, roomID, hostEmail string) (room.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rooms[roomID]; exists {
		return room.Room{}, room.Errf(room.Conflict, "room %s already exists", roomID)
	}
	now := m.now().UTC()
	r := room.Room{
		RoomID:    roomID,
		HostEmail: hostEmail,
		Members:   []string{hostEmail},
		Status:    room.StatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.rooms[roomID] = r
	return r.Clone(), nil
}

func (m *Memory) Join(ctx context.Context, roomID, email string) (room.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return room.Room{}, room.Errf(room.NotFound, "room %s not found", roomID)
	}
	if err := r.AddMember(email); err != nil {
		return room.Room{}, err
	}
	r.UpdatedAt = m.now().UTC()
	m.rooms[roomID] = r
	return r.Clone(), nil
}

func (m *Memory) Delete(ctx context.Context, roomID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return room.Errf(room.NotFound, "room %s not found", roomID)
	}
	if r.HostEmail != email {
		return room.Err(room.Forbidden, "only the host can delete a room")
	}
	delete(m.rooms, roomID)
	return nil
}
