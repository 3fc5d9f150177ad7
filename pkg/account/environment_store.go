package account

import (
	"os"
	"time"
)

// EnvironmentStore implements Store using environment variables.
// It exposes at most one credential, read from DYCRAWLER_COOKIES.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve gets a credential from environment variables
func (e *EnvironmentStore) Retrieve(name string) (*Credential, error) {
	cookies := os.Getenv("DYCRAWLER_COOKIES")
	if cookies == "" {
		return nil, ErrCredentialsNotFound
	}

	// Environment variables don't store a name, so we use "default" or
	// the provided one
	if name == "" {
		name = "default"
	}

	return &Credential{
		Name:         name,
		Cookies:      cookies,
		Platform:     os.Getenv("DYCRAWLER_PLATFORM"),
		Status:       StatusActive,
		LastModified: time.Now(),
	}, nil
}

// List returns a single credential if environment variables are set
func (e *EnvironmentStore) List() ([]*Credential, error) {
	cred, err := e.Retrieve("")
	if err != nil {
		return []*Credential{}, nil
	}
	return []*Credential{cred}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv("DYCRAWLER_COOKIES") != ""
}
