package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nuocmamcacom/chess-lobby/internal/room"
	"github.com/nuocmamcacom/chess-lobby/internal/store"
	"github.com/nuocmamcacom/chess-lobby/pkg/wire"
)

type Handlers struct {
	store store.RoomStore
	log   *zap.Logger
}

func NewHandlers(s store.RoomStore, log *zap.Logger) *Handlers {
	return &Handlers{store: s, log: log}
}

func (h *Handlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.store.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if rooms == nil {
		rooms = []room.Room{}
	}
	h.writeJSON(w, http.StatusOK, rooms)
}

func (h *Handlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req wire.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, room.Err(room.Unknown, "invalid request body"))
		return
	}
	if req.HostEmail == "" {
		h.writeError(w, room.Err(room.Unauthorized, "hostEmail is required"))
		return
	}
	if req.RoomID == "" {
		h.writeError(w, room.Err(room.Unknown, "roomId is required"))
		return
	}

	created, err := h.store.Create(r.Context(), req.RoomID, req.HostEmail)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.log.Info("room created",
		zap.String("roomId", created.RoomID), zap.String("host", created.HostEmail))
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handlers) JoinRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	var req wire.JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, room.Err(room.Unknown, "invalid request body"))
		return
	}
	if req.Email == "" {
		h.writeError(w, room.Err(room.Unauthorized, "email is required"))
		return
	}

	joined, err := h.store.Join(r.Context(), roomID, req.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.log.Info("room joined",
		zap.String("roomId", roomID), zap.String("member", req.Email))
	h.writeJSON(w, http.StatusOK, joined)
}

func (h *Handlers) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	email := r.URL.Query().Get("email")
	if email == "" {
		// Mobile clients send the requester in the body instead.
		var req wire.DeleteRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			email = req.Email
		}
	}
	if email == "" {
		h.writeError(w, room.Err(room.Unauthorized, "email is required"))
		return
	}

	if err := h.store.Delete(r.Context(), roomID, email); err != nil {
		h.writeError(w, err)
		return
	}
	h.log.Info("room deleted",
		zap.String("roomId", roomID), zap.String("by", email))
	w.WriteHeader(http.StatusNoContent)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("write response failed", zap.Error(err))
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	kind := room.KindOf(err)
	message := err.Error()
	var tagged *room.Error
	if errors.As(err, &tagged) {
		message = tagged.Message
	}
	if kind == room.Unknown {
		h.log.Warn("request failed", zap.Error(err))
	}
	h.writeJSONError(w, kind.HTTPStatus(), message)
}

func (h *Handlers) writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(wire.ErrorResponse{Error: message})
}
