// Package keyring stores remembered challenge secrets in the system keyring.
package keyring

import (
	"errors"
	"fmt"
	"strings"

	zkeyring "github.com/zalando/go-keyring"
)

// ServiceName is the identifier used for storing credentials in the system keyring.
const ServiceName = "openvpn3-gui"

var (
	// ErrSecretNotFound is returned when no secret exists for a config path.
	ErrSecretNotFound = errors.New("secret not found")
	// ErrEmptyConfigPath is returned when an empty config path is used as a key.
	ErrEmptyConfigPath = errors.New("config path must not be empty")
)

// Store defines the interface for challenge-secret storage operations.
// Secrets are keyed by VPN config path, since that is the stable
// identity of a connection in this application; session paths are
// ephemeral.
type Store interface {
	// Save stores a secret for the given config path.
	Save(configPath, secret string) error
	// Get retrieves the secret for the given config path.
	Get(configPath string) (string, error)
	// Delete removes the secret for the given config path.
	Delete(configPath string) error
}

// SystemKeyring implements Store using the system keyring.
type SystemKeyring struct{}

// NewSystemKeyring creates a new SystemKeyring instance.
func NewSystemKeyring() *SystemKeyring {
	return &SystemKeyring{}
}

// Save stores a secret for the given config path in the system keyring.
func (s *SystemKeyring) Save(configPath, secret string) error {
	if err := validateConfigPath(configPath); err != nil {
		return err
	}
	if err := zkeyring.Set(ServiceName, configPath, secret); err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}
	return nil
}

// Get retrieves the secret for the given config path.
// Returns ErrSecretNotFound if none is stored.
func (s *SystemKeyring) Get(configPath string) (string, error) {
	if err := validateConfigPath(configPath); err != nil {
		return "", err
	}
	secret, err := zkeyring.Get(ServiceName, configPath)
	if err != nil {
		if errors.Is(err, zkeyring.ErrNotFound) {
			return "", ErrSecretNotFound
		}
		return "", fmt.Errorf("failed to retrieve secret: %w", err)
	}
	return secret, nil
}

// Delete removes the secret for the given config path.
// This operation is idempotent - a missing secret is not an error.
func (s *SystemKeyring) Delete(configPath string) error {
	if err := validateConfigPath(configPath); err != nil {
		return err
	}
	if err := zkeyring.Delete(ServiceName, configPath); err != nil {
		if errors.Is(err, zkeyring.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	return nil
}

func validateConfigPath(configPath string) error {
	if strings.TrimSpace(configPath) == "" {
		return ErrEmptyConfigPath
	}
	return nil
}
