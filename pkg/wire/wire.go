// Package wire defines the JSON shapes shared by the lobby REST API and
// the realtime socket. Both the client core and the reference server
// marshal through these types so the two halves cannot drift.
package wire

import "encoding/json"

// REST request bodies.

type CreateRoomRequest struct {
	RoomID    string `json:"roomId"`
	HostEmail string `json:"hostEmail"`
}

type JoinRoomRequest struct {
	Email string `json:"email"`
}

type DeleteRoomRequest struct {
	Email string `json:"email"`
}

// ErrorResponse is the body attached to any non-2xx REST response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Envelope is the framing for every realtime message: an event name plus
// an event-specific payload, left raw until the subscriber decodes it.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EventRoomDeleted is the only event the lobby core cares about. It is
// advisory: the REST delete is the commit, the event just makes other
// clients refresh sooner.
const EventRoomDeleted = "roomDeleted"

type RoomDeleted struct {
	RoomID    string `json:"roomId"`
	DeletedBy string `json:"deletedBy"`
}
