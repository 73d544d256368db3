package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using AO3_USERNAME and
// AO3_PASSWORD environment variables. Read-only; Store and Delete are no-ops
// that report failure so the manager falls through to a writable store.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is unsupported for environment variables
func (s *EnvironmentStore) Store(account *Account) error {
	return ErrInvalidCredentials
}

// Retrieve reads credentials from the environment. An empty username
// matches whatever account the environment provides.
func (s *EnvironmentStore) Retrieve(username string) (*Account, error) {
	envUser := os.Getenv("AO3_USERNAME")
	envPass := os.Getenv("AO3_PASSWORD")

	if envUser == "" || envPass == "" {
		return nil, ErrCredentialsNotFound
	}
	if username != "" && username != envUser {
		return nil, ErrCredentialsNotFound
	}

	return &Account{
		Username:     envUser,
		Password:     envPass,
		LastModified: time.Now(),
	}, nil
}

// Delete is unsupported for environment variables
func (s *EnvironmentStore) Delete(username string) error {
	return ErrCredentialsNotFound
}

// Exists checks whether the environment provides the account
func (s *EnvironmentStore) Exists(username string) bool {
	account, err := s.Retrieve(username)
	return err == nil && account != nil
}
