package room

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the failure taxonomy shared by the directory client, the
// coordinator, and the server handlers. Every failed lobby operation
// resolves to exactly one Kind.
type Kind string

const (
	Conflict           Kind = "Conflict"
	NotFound           Kind = "NotFound"
	RoomFull           Kind = "RoomFull"
	Unauthorized       Kind = "Unauthorized"
	Forbidden          Kind = "Forbidden"
	NetworkUnavailable Kind = "NetworkUnavailable"
	Unknown            Kind = "Unknown"
)

// Error is a tagged failure: a Kind plus an optional human-readable
// message sourced from the backend payload when one was present.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Err builds a tagged error with a fixed message.
func Err(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Errf builds a tagged error with a formatted message.
func Errf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, unwrapping as needed. Anything not
// carrying a *Error resolves to Unknown; nil resolves to "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// HTTPStatus maps a Kind onto the status the REST surface responds with.
// RoomFull shares 409 with Conflict; the client disambiguates by which
// operation it was performing.
func (k Kind) HTTPStatus() int {
	switch k {
	case Conflict, RoomFull:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
