package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

const (
	keychainService = "prefkeep"
	tokenAccount    = "api_token"
	tokenEnv        = "PREFKEEP_API_TOKEN"
)

// Keychain abstracts the platform secret store for testing.
type Keychain interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

// NewKeychain returns the platform secret store: macOS Keychain via the
// security CLI, or a 0600 JSON file under $XDG_DATA_HOME elsewhere.
func NewKeychain() Keychain {
	return platformKeychain{}
}

type platformKeychain struct{}

func (platformKeychain) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (platformKeychain) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}

// GetAPIToken returns the bearer token guarding the HTTP API. PREFKEEP_API_TOKEN
// wins; otherwise the token is read from kc and created on first use.
func GetAPIToken(kc Keychain) (string, error) {
	if t := os.Getenv(tokenEnv); t != "" {
		return t, nil
	}
	if t, err := kc.Get(keychainService, tokenAccount); err == nil && t != "" {
		return t, nil
	}

	token := uuid.NewString()
	if err := kc.Set(keychainService, tokenAccount, token); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return token, nil
}
