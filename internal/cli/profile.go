// Package cli is the client side of quotectl: the saved profile and a typed
// client for the quotebook HTTP API.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/google/uuid"
)

// DefaultServerURL is written to new profiles.
const DefaultServerURL = "http://localhost:8080"

// Profile is what quotectl remembers between runs. The session id keeps the
// last displayed quote stable across invocations.
type Profile struct {
	ServerURL string `toml:"server_url"`
	SessionID string `toml:"session_id"`
}

// DefaultProfilePath returns $XDG_CONFIG_HOME/quotebook/profile.toml, or the
// platform equivalent.
func DefaultProfilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}

	return filepath.Join(dir, "quotebook", "profile.toml"), nil
}

// LoadProfile reads the profile at path. A missing file, or one missing a
// field, is filled with defaults and saved.
func LoadProfile(path string) (Profile, error) {
	var p Profile

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Profile{}, fmt.Errorf("reading profile: %w", err)
	default:
		if err := toml.Unmarshal(data, &p); err != nil {
			return Profile{}, fmt.Errorf("parsing profile %s: %w", path, err)
		}
	}

	changed := false

	if strings.TrimSpace(p.ServerURL) == "" {
		p.ServerURL = DefaultServerURL
		changed = true
	}

	if strings.TrimSpace(p.SessionID) == "" {
		p.SessionID = uuid.NewString()
		changed = true
	}

	if changed {
		if err := SaveProfile(path, p); err != nil {
			return Profile{}, err
		}
	}

	return p, nil
}

// SaveProfile writes p to path, creating parent directories.
func SaveProfile(path string, p Profile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating profile dir: %w", err)
	}

	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing profile: %w", err)
	}

	return nil
}
