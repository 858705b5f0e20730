package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebook/internal/domain"
)

func TestStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = s.Get(ctx, "quotes")
	require.True(t, domain.IsNotFound(err))

	require.NoError(t, s.Set(ctx, "quotes", []byte(`[]`)))
	require.NoError(t, s.Set(ctx, "quotes", []byte(`[{"text":"Hi","category":"A"}]`)))

	got, err := s.Get(ctx, "quotes")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"text":"Hi","category":"A"}]`, string(got))
	assert.FileExists(t, filepath.Join(dir, "quotes.json"))
}

func TestStore_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	for range 5 {
		require.NoError(t, s.Set(context.Background(), "selectedCategory", []byte(`"all"`)))
	}

	require.NoError(t, s.Check(context.Background()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), tempFilePrefix), "leftover %s", e.Name())
	}
}

func TestStore_RejectsPathLikeKeys(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	err = s.Set(context.Background(), "../escape", []byte("x"))
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestStore_CheckFailsWhenDirectoryRemoved(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	s, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(dir))

	assert.Error(t, s.Check(context.Background()))
	assert.Equal(t, "quote-store", s.Name())
}
