// Package directory wraps the lobby REST API: list, create, join, delete.
// Every failure comes back tagged with a room.Kind; nothing here retries.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/nuocmamcacom/chess-lobby/internal/room"
	"github.com/nuocmamcacom/chess-lobby/pkg/wire"
)

// BaseURL supplies the API base per request, so a persisted endpoint
// change takes effect without rebuilding the client. endpoint.Resolver
// satisfies it.
type BaseURL interface {
	Resolve() (string, error)
}

// Static is a fixed BaseURL, handy in tests and tools.
type Static string

func (s Static) Resolve() (string, error) { return string(s), nil }

type Client struct {
	base BaseURL
	http *http.Client
	log  *zap.Logger
}

func NewClient(base BaseURL, log *zap.Logger) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 15 * time.Second},
		log:  log,
	}
}

// List returns the current room snapshot. An empty slice is a valid,
// non-error result.
func (c *Client) List(ctx context.Context) ([]room.Room, error) {
	var rooms []room.Room
	if err := c.do(ctx, http.MethodGet, "/rooms", nil, &rooms, c.listKind); err != nil {
		return nil, err
	}
	if rooms == nil {
		rooms = []room.Room{}
	}
	return rooms, nil
}

// Create registers a new room under the client-generated roomID.
func (c *Client) Create(ctx context.Context, roomID, hostEmail string) (room.Room, error) {
	var created room.Room
	body := wire.CreateRoomRequest{RoomID: roomID, HostEmail: hostEmail}
	if err := c.do(ctx, http.MethodPost, "/rooms", body, &created, c.createKind); err != nil {
		return room.Room{}, err
	}
	return created, nil
}

// Join adds email to the room. Joining a room you are already in
// succeeds server-side without duplicating the membership.
func (c *Client) Join(ctx context.Context, roomID, email string) (room.Room, error) {
	var joined room.Room
	path := "/rooms/" + url.PathEscape(roomID) + "/join"
	if err := c.do(ctx, http.MethodPost, path, wire.JoinRoomRequest{Email: email}, &joined, c.joinKind); err != nil {
		return room.Room{}, err
	}
	return joined, nil
}

// Delete removes the room. Only the host may delete; NotFound is passed
// through untranslated — the coordinator decides it means "already done".
func (c *Client) Delete(ctx context.Context, roomID, email string) error {
	path := "/rooms/" + url.PathEscape(roomID) + "?email=" + url.QueryEscape(email)
	return c.do(ctx, http.MethodDelete, path, wire.DeleteRoomRequest{Email: email}, nil, c.deleteKind)
}

// kindFn maps an HTTP status onto the taxonomy for one operation.
// 409 means Conflict on create but RoomFull on join, so the mapping is
// per call site rather than global.
type kindFn func(status int) room.Kind

func (c *Client) listKind(status int) room.Kind {
	return room.Unknown
}

func (c *Client) createKind(status int) room.Kind {
	switch status {
	case http.StatusConflict:
		return room.Conflict
	case http.StatusUnauthorized:
		return room.Unauthorized
	default:
		return room.Unknown
	}
}

func (c *Client) joinKind(status int) room.Kind {
	switch status {
	case http.StatusNotFound:
		return room.NotFound
	case http.StatusConflict:
		return room.RoomFull
	default:
		return room.Unknown
	}
}

func (c *Client) deleteKind(status int) room.Kind {
	switch status {
	case http.StatusNotFound:
		return room.NotFound
	case http.StatusForbidden:
		return room.Forbidden
	default:
		return room.Unknown
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, kind kindFn) error {
	base, err := c.base.Resolve()
	if err != nil {
		return room.Errf(room.Unknown, "resolve endpoint: %v", err)
	}

	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return room.Errf(room.Unknown, "encode request: %v", err)
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, buf)
	if err != nil {
		return room.Errf(room.Unknown, "build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("lobby request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return room.Errf(room.NetworkUnavailable, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return room.Errf(room.Unknown, "decode response: %v", err)
		}
		return nil
	}

	return room.Err(kind(resp.StatusCode), errorMessage(resp))
}

// errorMessage pulls the backend's {error} body when present, falling
// back to the bare status line.
func errorMessage(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(data) > 0 {
		var payload wire.ErrorResponse
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			return payload.Error
		}
	}
	return fmt.Sprintf("unexpected status %d", resp.StatusCode)
}
