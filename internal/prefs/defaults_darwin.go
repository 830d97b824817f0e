//go:build darwin

package prefs

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultsBackend stores a namespace in macOS UserDefaults via the defaults CLI.
type DefaultsBackend struct {
	domain string
}

// NewDefaultsBackend binds namespace to the defaults domain <bundle>.<namespace>.
func NewDefaultsBackend(bundle, namespace string) (*DefaultsBackend, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	return &DefaultsBackend{domain: bundle + "." + namespace}, nil
}

func (b *DefaultsBackend) GetString(key string) (string, bool, error) {
	out, err := exec.Command("defaults", "read", b.domain, key).CombinedOutput()
	s := strings.TrimSuffix(string(out), "\n")
	if err != nil {
		if isMissing(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading default for key '%s': %w, output: %s", key, err, s)
	}
	return s, true, nil
}

func (b *DefaultsBackend) SetString(key, val string) error {
	return exec.Command("defaults", "write", b.domain, key, "-string", val).Run()
}

func (b *DefaultsBackend) Delete(key string) error {
	err := exec.Command("defaults", "delete", b.domain, key).Run()
	if err != nil && isMissing(err) {
		return nil
	}
	return err
}

// defaults exits with status 1 when the domain or key does not exist.
func isMissing(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == 1
}
