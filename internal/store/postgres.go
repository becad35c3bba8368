package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/nuocmamcacom/chess-lobby/internal/room"
)

// Postgres keeps rooms in a relational table via gorm. Members live in
// a JSON column; at two seats per room there is nothing to join on.
type Postgres struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true, // surface gorm.ErrDuplicatedKey instead of driver codes
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&room.Room{}); err != nil {
		return nil, fmt.Errorf("migrate rooms: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) List(ctx context.Context) ([]room.Room, error) {
	var rooms []room.Room
	if err := p.db.WithContext(ctx).Order("created_at").Find(&rooms).Error; err != nil {
		return nil, room.Errf(room.Unknown, "list rooms: %v", err)
	}
	return rooms, nil
}

func (p *Postgres) Get(ctx context.Context, roomID string) (room.Room, error) {
	var r room.Room
	err := p.db.WithContext(ctx).First(&r, "room_id = ?", roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return room.Room{}, room.Errf(room.NotFound, "room %s not found", roomID)
	}
	if err != nil {
		return room.Room{}, room.Errf(room.Unknown, "get room: %v", err)
	}
	return r, nil
}

func (p *Postgres) Create(ctx context.Context, roomID, hostEmail string) (room.Room, error) {
	r := room.Room{
		RoomID:    roomID,
		HostEmail: hostEmail,
		Members:   []string{hostEmail},
		Status:    room.StatusWaiting,
	}
	err := p.db.WithContext(ctx).Create(&r).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return room.Room{}, room.Errf(room.Conflict, "room %s already exists", roomID)
	}
	if err != nil {
		return room.Room{}, room.Errf(room.Unknown, "create room: %v", err)
	}
	return r, nil
}

func (p *Postgres) Join(ctx context.Context, roomID, email string) (room.Room, error) {
	var joined room.Room
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r room.Room
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&r, "room_id = ?", roomID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return room.Errf(room.NotFound, "room %s not found", roomID)
		}
		if err != nil {
			return room.Errf(room.Unknown, "lock room: %v", err)
		}
		if err := r.AddMember(email); err != nil {
			return err
		}
		if err := tx.Save(&r).Error; err != nil {
			return room.Errf(room.Unknown, "save room: %v", err)
		}
		joined = r
		return nil
	})
	if err != nil {
		return room.Room{}, err
	}
	return joined, nil
}

func (p *Postgres) Delete(ctx context.Context, roomID, email string) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r room.Room
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&r, "room_id = ?", roomID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return room.Errf(room.NotFound, "room %s not found", roomID)
		}
		if err != nil {
			return room.Errf(room.Unknown, "lock room: %v", err)
		}
		if r.HostEmail != email {
			return room.Err(room.Forbidden, "only the host can delete a room")
		}
		if err := tx.Delete(&room.Room{}, "room_id = ?", roomID).Error; err != nil {
			return room.Errf(room.Unknown, "delete room: %v", err)
		}
		return nil
	})
}
