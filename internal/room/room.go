package room

import "time"

// MaxMembers is the seat capacity of a chess room: host plus one opponent.
const MaxMembers = 2

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusPlaying, StatusFinished:
		return true
	}
	return false
}

// Terminal reports whether a room can never change status again.
func (s Status) Terminal() bool { return s == StatusFinished }

// Room is one shared game room. RoomID is generated client-side at
// creation and authoritative once the backend has persisted it.
// CreatedAt/UpdatedAt are assigned by the backend only.
type Room struct {
	RoomID    string    `json:"roomId" gorm:"primaryKey;column:room_id"`
	HostEmail string    `json:"hostEmail" gorm:"column:host_email"`
	Members   []string  `json:"members" gorm:"serializer:json"`
	Status    Status    `json:"status" gorm:"column:status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Room) TableName() string { return "rooms" }

// HasMember reports whether email already holds a seat.
func (r *Room) HasMember(email string) bool {
	for _, m := range r.Members {
		if m == email {
			return true
		}
	}
	return false
}

// AddMember seats email. Re-joining a room you are already in succeeds
// without duplicating the entry; a full room rejects with RoomFull.
func (r *Room) AddMember(email string) error {
	if r.HasMember(email) {
		return nil
	}
	if len(r.Members) >= MaxMembers {
		return Errf(RoomFull, "room %s already has %d members", r.RoomID, MaxMembers)
	}
	r.Members = append(r.Members, email)
	return nil
}

// Clone returns a deep copy so callers can hand rooms across goroutine
// boundaries without sharing the members slice.
func (r Room) Clone() Room {
	out := r
	out.Members = append([]string(nil), r.Members...)
	return out
}
