package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProfile_CreatesOnFirstUse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotebook", "profile.toml")

	p, err := LoadProfile(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultServerURL, p.ServerURL)
	_, err = uuid.Parse(p.SessionID)
	require.NoError(t, err)

	again, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, p, again, "second load reads the saved file")
}

func TestLoadProfile_KeepsExistingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.toml")
	require.NoError(t, os.WriteFile(path, []byte("server_url = 'http://quotes.internal:9000'\nsession_id = 'abc'\n"), 0o600))

	p, err := LoadProfile(path)
	require.NoError(t, err)

	assert.Equal(t, Profile{ServerURL: "http://quotes.internal:9000", SessionID: "abc"}, p)
}

func TestLoadProfile_FillsMissingSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.toml")
	require.NoError(t, os.WriteFile(path, []byte("server_url = 'http://localhost:1234'\n"), 0o600))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:1234", p.ServerURL)
	assert.NotEmpty(t, p.SessionID)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), p.SessionID)
}

func TestLoadProfile_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.toml")
	require.NoError(t, os.WriteFile(path, []byte("server_url = ["), 0o600))

	_, err := LoadProfile(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing profile")
}

func TestDefaultProfilePath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	t.Setenv("HOME", "/tmp/home")

	path, err := DefaultProfilePath()
	require.NoError(t, err)

	assert.Equal(t, "profile.toml", filepath.Base(path))
	assert.Equal(t, "quotebook", filepath.Base(filepath.Dir(path)))
}
