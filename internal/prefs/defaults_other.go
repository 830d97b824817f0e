//go:build !darwin

package prefs

// DefaultsBackend is only available on macOS.
type DefaultsBackend struct{}

func NewDefaultsBackend(bundle, namespace string) (*DefaultsBackend, error) {
	return nil, ErrUnsupportedBackend
}

func (*DefaultsBackend) GetString(string) (string, bool, error) { return "", false, ErrUnsupportedBackend }
func (*DefaultsBackend) SetString(string, string) error         { return ErrUnsupportedBackend }
func (*DefaultsBackend) Delete(string) error                    { return ErrUnsupportedBackend }
