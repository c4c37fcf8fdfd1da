package auth

import "os"

// EnvironmentStore reads credentials from environment variables. The
// credential name is used verbatim as the variable name.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Get returns the environment value for name
func (e *EnvironmentStore) Get(name string) (string, bool) {
	value := os.Getenv(name)
	return value, value != ""
}
