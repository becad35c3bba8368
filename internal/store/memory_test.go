package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuocmamcacom/chess-lobby/internal/room"
)

func newMemory(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	m.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return m
}

func TestMemory_CreateAssignsServerFields(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	r, err := m.Create(ctx, "ab12cd", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, room.StatusWaiting, r.Status)
	assert.Equal(t, []string{"alice@example.com"}, r.Members)
	assert.False(t, r.CreatedAt.IsZero())
	assert.Equal(t, r.CreatedAt, r.UpdatedAt)
}

func TestMemory_CreateConflict(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	_, err := m.Create(ctx, "dup", "alice@x")
	require.NoError(t, err)
	_, err = m.Create(ctx, "dup", "bob@x")
	assert.Equal(t, room.Conflict, room.KindOf(err))
}

func TestMemory_JoinCapacityAndIdempotence(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()
	_, err := m.Create(ctx, "r1", "alice@x")
	require.NoError(t, err)

	r, err := m.Join(ctx, "r1", "bob@x")
	require.NoError(t, err)
	assert.Len(t, r.Members, 2)
	assert.True(t, r.UpdatedAt.After(r.CreatedAt))

	// Same member again: success, no duplicate seat.
	r, err = m.Join(ctx, "r1", "bob@x")
	require.NoError(t, err)
	assert.Len(t, r.Members, 2)

	// Third member: full.
	_, err = m.Join(ctx, "r1", "carol@x")
	assert.Equal(t, room.RoomFull, room.KindOf(err))

	stored, err := m.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, stored.Members, 2)
}

func TestMemory_JoinMissingRoom(t *testing.T) {
	m := newMemory(t)
	_, err := m.Join(context.Background(), "ghost", "bob@x")
	assert.Equal(t, room.NotFound, room.KindOf(err))
}

func TestMemory_DeleteRules(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()
	_, err := m.Create(ctx, "r1", "alice@x")
	require.NoError(t, err)

	err = m.Delete(ctx, "r1", "mallory@x")
	assert.Equal(t, room.Forbidden, room.KindOf(err))

	require.NoError(t, m.Delete(ctx, "r1", "alice@x"))

	err = m.Delete(ctx, "r1", "alice@x")
	assert.Equal(t, room.NotFound, room.KindOf(err))
}

func TestMemory_ListOrderedByCreation(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()
	for _, id := range []string{"c3", "a1", "b2"} {
		_, err := m.Create(ctx, id, "host@x")
		require.NoError(t, err)
	}

	rooms, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 3)
	assert.Equal(t, "c3", rooms[0].RoomID)
	assert.Equal(t, "a1", rooms[1].RoomID)
	assert.Equal(t, "b2", rooms[2].RoomID)
}
