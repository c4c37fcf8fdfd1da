package auth

import (
	"errors"
	"fmt"
)

// Credential names resolved by the Manager. Each value is the raw blob as
// exported from the browser (cookie JSON list) or, for the photo service,
// a base64-encoded token file.
const (
	CredTwitterCookies    = "TWITTER_COOKIES"
	CredCookies115        = "COOKIES_115"
	CredCookiesQuark      = "COOKIES_QUARK"
	CredGooglePhotosToken = "GOOGLE_PHOTOS_TOKEN"
)

// ErrNotFound is returned when no store holds the requested credential
var ErrNotFound = errors.New("credential not found")

// Store is the interface for credential lookup backends
type Store interface {
	// Get returns the credential value for name, if present
	Get(name string) (string, bool)
}

// Manager resolves credentials from an ordered list of stores
type Manager struct {
	stores []Store
}

// NewManager creates a credential manager. Environment variables win over
// the system keychain so CI runs can override stored values.
func NewManager() *Manager {
	stores := []Store{NewEnvironmentStore()}
	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}
	return &Manager{stores: stores}
}

// NewManagerWithStores creates a manager over an explicit store list
func NewManagerWithStores(stores ...Store) *Manager {
	return &Manager{stores: stores}
}

// Resolve returns the credential value for name from the first store that
// has it.
func (m *Manager) Resolve(name string) (string, error) {
	for _, store := range m.stores {
		if value, ok := store.Get(name); ok {
			return value, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// ResolveOptional returns the credential value or empty string when absent
func (m *Manager) ResolveOptional(name string) string {
	value, err := m.Resolve(name)
	if err != nil {
		return ""
	}
	return value
}
