package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nuocmamcacom/chess-lobby/internal/room"
)

// Redis keeps each room as a JSON blob under rooms:{id} with an index
// set of ids for listing. Join runs under WATCH so two racing joins on
// the last seat cannot overshoot the capacity.
type Redis struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb, now: time.Now}
}

const redisIndexKey = "rooms"

func redisRoomKey(id string) string { return fmt.Sprintf("rooms:%s", id) }

func (s *Redis) List(ctx context.Context) ([]room.Room, error) {
	ids, err := s.rdb.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, room.Errf(room.Unknown, "list rooms: %v", err)
	}
	rooms := make([]room.Room, 0, len(ids))
	for _, id := range ids {
		r, err := s.Get(ctx, id)
		if room.KindOf(err) == room.NotFound {
			// Index entry outlived its room; drop it lazily.
			s.rdb.SRem(ctx, redisIndexKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, nil
}

func (s *Redis) Get(ctx context.Context, roomID string) (room.Room, error) {
	data, err := s.rdb.Get(ctx, redisRoomKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return room.Room{}, room.Errf(room.NotFound, "room %s not found", roomID)
	}
	if err != nil {
		return room.Room{}, room.Errf(room.Unknown, "get room: %v", err)
	}
	var r room.Room
	if err := json.Unmarshal(data, &r); err != nil {
		return room.Room{}, room.Errf(room.Unknown, "decode room: %v", err)
	}
	return r, nil
}

func (s *Redis) Create(ctx context.Context, roomID, hostEmail string) (room.Room, error) {
	now := s.now().UTC()
	r := room.Room{
		RoomID:    roomID,
		HostEmail: hostEmail,
		Members:   []string{hostEmail},
		Status:    room.StatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	data, err := json.Marshal(r)
	if err != nil {
		return room.Room{}, room.Errf(room.Unknown, "encode room: %v", err)
	}
	ok, err := s.rdb.SetNX(ctx, redisRoomKey(roomID), data, 0).Result()
	if err != nil {
		return room.Room{}, room.Errf(room.Unknown, "create room: %v", err)
	}
	if !ok {
		return room.Room{}, room.Errf(room.Conflict, "room %s already exists", roomID)
	}
	if err := s.rdb.SAdd(ctx, redisIndexKey, roomID).Err(); err != nil {
		return room.Room{}, room.Errf(room.Unknown, "index room: %v", err)
	}
	return r, nil
}

func (s *Redis) Join(ctx context.Context, roomID, email string) (room.Room, error) {
	var joined room.Room
	key := redisRoomKey(roomID)

	// Optimistic transaction: watch the room blob, apply the membership
	// rules locally, write back only if nobody else raced us.
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return room.Errf(room.NotFound, "room %s not found", roomID)
		}
		if err != nil {
			return room.Errf(room.Unknown, "get room: %v", err)
		}
		var r room.Room
		if err := json.Unmarshal(data, &r); err != nil {
			return room.Errf(room.Unknown, "decode room: %v", err)
		}
		if err := r.AddMember(email); err != nil {
			return err
		}
		r.UpdatedAt = s.now().UTC()
		out, err := json.Marshal(r)
		if err != nil {
			return room.Errf(room.Unknown, "encode room: %v", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err != nil {
			return room.Errf(room.Unknown, "save room: %v", err)
		}
		joined = r
		return nil
	}, key)
	if err != nil {
		return room.Room{}, err
	}
	return joined, nil
}

func (s *Redis) Delete(ctx context.Context, roomID, email string) error {
	r, err := s.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if r.HostEmail != email {
		return room.Err(room.Forbidden, "only the host can delete a room")
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, redisRoomKey(roomID))
	pipe.SRem(ctx, redisIndexKey, roomID)
	if _, err := pipe.Exec(ctx); err != nil {
		return room.Errf(room.Unknown, "delete room: %v", err)
	}
	return nil
}
