package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallel2(t *testing.T) {
	n, s, err := Parallel2(context.Background(),
		func(context.Context) (int, error) { return 7, nil },
		func(context.Context) (string, error) { return "all", nil },
	)

	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, "all", s)
}

func TestParallel2_FirstErrorCancelsOther(t *testing.T) {
	boom := errors.New("boom")

	n, s, err := Parallel2(context.Background(),
		func(context.Context) (int, error) { return 0, boom },
		func(ctx context.Context) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	)

	require.ErrorIs(t, err, boom)
	assert.Zero(t, n)
	assert.Empty(t, s)
}
