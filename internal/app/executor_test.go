package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebook/internal/domain"
)

func TestExecute_RunsStepsInOrder(t *testing.T) {
	var steps []string

	out, err := Execute(context.Background(), NewExecutor(discardLogger()), Operation[int, int, int, string]{
		Name: "double",
		Validate: func(context.Context, int) error {
			steps = append(steps, "validate")
			return nil
		},
		Perform: func(_ context.Context, in int) (int, error) {
			steps = append(steps, "perform")
			return in * 2, nil
		},
		Verify: func(_ context.Context, _ int, p int) (int, error) {
			steps = append(steps, "verify")
			return p, nil
		},
		Archive: func(context.Context, int, int) error {
			steps = append(steps, "archive")
			return nil
		},
		Respond: func(_ context.Context, _ int, v int) (string, error) {
			steps = append(steps, "respond")
			return "ok", nil
		},
	}, 21)

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, []string{"validate", "perform", "verify", "archive", "respond"}, steps)
}

func TestExecute_StopsAtFailingStep(t *testing.T) {
	archived := false
	cause := domain.NewFormatError("expected a JSON array", nil)

	_, err := Execute(context.Background(), NewExecutor(nil), Operation[string, string, string, int]{
		Name: "import",
		Perform: func(context.Context, string) (string, error) {
			return "", cause
		},
		Archive: func(context.Context, string, string) error {
			archived = true
			return nil
		},
	}, "{}")

	require.Error(t, err)
	assert.False(t, archived)
	assert.True(t, IsExecutionError(err))
	assert.True(t, domain.IsFormat(err), "domain error survives the wrapper")

	step, ok := GetExecutionStep(err)
	require.True(t, ok)
	assert.Equal(t, StepPerform, step)
}

func TestExecute_ValidationStep(t *testing.T) {
	_, err := Execute(context.Background(), NewExecutor(nil), Operation[string, struct{}, struct{}, struct{}]{
		Name: "add",
		Validate: func(context.Context, string) error {
			return domain.NewValidationError("text", "quote text is required")
		},
	}, "")

	step, ok := GetExecutionStep(err)
	require.True(t, ok)
	assert.Equal(t, StepValidate, step)
	assert.True(t, domain.IsValidation(err))
}

func TestGetExecutionStep_PlainError(t *testing.T) {
	_, ok := GetExecutionStep(errors.New("plain"))

	assert.False(t, ok)
	assert.False(t, IsExecutionError(errors.New("plain")))
}

func TestExecute_NilVerifyPassesThrough(t *testing.T) {
	out, err := Execute(context.Background(), NewExecutor(nil), Operation[int, int, int, int]{
		Name:    "pass",
		Perform: func(_ context.Context, in int) (int, error) { return in + 1, nil },
		Respond: func(_ context.Context, _ int, v int) (int, error) { return v, nil },
	}, 1)

	require.NoError(t, err)
	assert.Equal(t, 2, out)
}
