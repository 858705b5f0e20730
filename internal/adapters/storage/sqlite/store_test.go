package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebook/internal/domain"
)

func openTemp(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "nested", "quotebook.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestStore_GetMissingKey(t *testing.T) {
	s := openTemp(t)

	_, err := s.Get(context.Background(), "quotes")

	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestStore_SetThenGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "selectedCategory", []byte(`"Motivation"`)))
	require.NoError(t, s.Set(ctx, "selectedCategory", []byte(`"Server"`)))

	got, err := s.Get(ctx, "selectedCategory")
	require.NoError(t, err)
	assert.JSONEq(t, `"Server"`, string(got))
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotebook.db")
	ctx := context.Background()

	first, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "quotes", []byte(`[{"text":"Do it","category":"A"}]`)))
	require.NoError(t, first.Close())

	second, err := Open(path, nil)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Get(ctx, "quotes")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"text":"Do it","category":"A"}]`, string(got))
}

func TestStore_InMemory(t *testing.T) {
	s, err := Open(":memory:", nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set(context.Background(), "k", []byte("v")))

	got, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestStore_HealthCheck(t *testing.T) {
	s := openTemp(t)

	assert.Equal(t, "quote-store", s.Name())
	require.NoError(t, s.Check(context.Background()))

	require.NoError(t, s.Close())
	assert.Error(t, s.Check(context.Background()))
}
