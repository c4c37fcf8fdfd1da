package auth

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "xarchive"

// KeyringStore reads and writes credentials in the system keychain
type KeyringStore struct{}

// NewKeyringStore creates a new keyring-based credential store
func NewKeyringStore() (*KeyringStore, error) {
	// Test if keyring is available
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

// Get returns the keychain value for name
func (k *KeyringStore) Get(name string) (string, bool) {
	value, err := keyring.Get(keyringService, name)
	if err != nil {
		return "", false
	}
	return value, value != ""
}

// Set stores a credential in the keychain
func (k *KeyringStore) Set(name, value string) error {
	if err := keyring.Set(keyringService, name, value); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Delete removes a credential from the keychain
func (k *KeyringStore) Delete(name string) error {
	if err := keyring.Delete(keyringService, name); err != nil {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}
