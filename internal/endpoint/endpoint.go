// Package endpoint resolves and persists the base URL of the lobby REST
// backend. The stored value is keyed per platform so two emulators (or an
// emulator and a browser) on one machine do not clobber each other.
package endpoint

import (
	"strings"

	"go.uber.org/zap"
)

// Platform identifies where the client is running. It picks the
// compiled-in default when no endpoint has been stored yet.
type Platform string

const (
	PlatformBrowser  Platform = "browser"
	PlatformEmulator Platform = "emulator"
	PlatformDevice   Platform = "device"
)

const apiSuffix = "/api"

// Per-platform defaults. Emulators reach the host machine through the
// NAT alias 10.0.2.2; a physical device needs a LAN address.
var platformDefaults = map[Platform]string{
	PlatformBrowser:  "http://localhost:5000",
	PlatformEmulator: "http://10.0.2.2:5000",
	PlatformDevice:   "http://192.168.1.10:5000",
}

const genericDefault = "http://localhost:5000"

// Store persists one endpoint string per key. Implementations must be
// safe for use from a single resolver; they are not required to be
// goroutine-safe on their own.
type Store interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// Resolver hands out the active, normalized base URL and accepts
// replacements at runtime.
type Resolver struct {
	store    Store
	platform Platform
	log      *zap.Logger
}

func NewResolver(store Store, platform Platform, log *zap.Logger) *Resolver {
	return &Resolver{store: store, platform: platform, log: log}
}

func (r *Resolver) key() string { return "apiBaseUrl." + string(r.platform) }

// Resolve returns the normalized base URL for this platform. The first
// resolve on a platform with nothing stored computes the compiled-in
// default and writes it back, so later resolves are deterministic even
// if the default table changes.
func (r *Resolver) Resolve() (string, error) {
	if v, ok := r.store.Get(r.key()); ok && strings.TrimSpace(v) != "" {
		return Normalize(v), nil
	}
	def, ok := platformDefaults[r.platform]
	if !ok {
		def = genericDefault
	}
	if err := r.store.Set(r.key(), def); err != nil {
		return "", err
	}
	r.log.Info("endpoint defaulted",
		zap.String("platform", string(r.platform)),
		zap.String("base", def))
	return Normalize(def), nil
}

// Persist validates and stores candidate as the active endpoint.
// An empty or whitespace-only candidate is rejected with no side effects.
func (r *Resolver) Persist(candidate string) bool {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return false
	}
	if err := r.store.Set(r.key(), trimmed); err != nil {
		r.log.Warn("endpoint persist failed", zap.Error(err))
		return false
	}
	r.log.Info("endpoint updated",
		zap.String("platform", string(r.platform)),
		zap.String("base", trimmed))
	return true
}

// Normalize turns user input into a canonical API base URL: scheme
// defaulted to http, trailing slashes stripped, the /api suffix appended
// exactly once.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "http://" + s
	}
	s = strings.TrimRight(s, "/")
	if !strings.HasSuffix(s, apiSuffix) {
		s += apiSuffix
	}
	return s
}
