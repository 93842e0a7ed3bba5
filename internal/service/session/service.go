package session

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
)

const (
	idPrefix = "sess_"
	// legacyPrefix matches identifiers minted by the storefront before the
	// server started issuing them.
	legacyPrefix = "session_"

	minIDLength = 16
	maxIDLength = 128
)

// Service issues and validates the opaque session identifiers that key
// anonymous carts. Issuing is purely local: no storage, no network.
type Service struct{}

func New() *Service {
	return &Service{}
}

// GetOrCreate returns existing when it is a well-formed session identifier,
// otherwise mints a new one. Repeated calls with the same identifier always
// return it unchanged.
func (s *Service) GetOrCreate(existing string) (id string, created bool, err error) {
	existing = strings.TrimSpace(existing)
	if IsWellFormed(existing) {
		return existing, false, nil
	}
	id, err = newID()
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// IsWellFormed reports whether id looks like an identifier this service (or
// the legacy storefront) could have issued.
func IsWellFormed(id string) bool {
	if len(id) < minIDLength || len(id) > maxIDLength {
		return false
	}
	return strings.HasPrefix(id, idPrefix) || strings.HasPrefix(id, legacyPrefix)
}

func newID() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return idPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}
