package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

// Mutating use cases such as adding a quote or importing a file run in five
// steps. Only Archive may touch the collection or the store, so a failure in
// the first three leaves both as they were.
//
//	validate  check the raw input
//	perform   parse or build without side effects
//	verify    check the result against current state
//	archive   apply to the collection and persist
//	respond   shape the output, publish notifications

// ExecutionStep names one of the five steps.
type ExecutionStep string

const (
	StepValidate ExecutionStep = "validate"
	StepPerform  ExecutionStep = "perform"
	StepVerify   ExecutionStep = "verify"
	StepArchive  ExecutionStep = "archive"
	StepRespond  ExecutionStep = "respond"
)

// ExecutionError records which step failed. Domain causes stay reachable
// through errors.As, so the HTTP layer still maps them by kind.
type ExecutionError struct {
	Step    ExecutionStep
	Message string
	Cause   error
}

func (e *ExecutionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s failed: %s", e.Step, e.Message)
	}

	return fmt.Sprintf("%s failed: %s: %v", e.Step, e.Message, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// NewExecutionValidationError wraps cause as a validate-step failure.
func NewExecutionValidationError(message string, cause error) error {
	return &ExecutionError{Step: StepValidate, Message: message, Cause: cause}
}

// NewPerformError wraps cause as a perform-step failure.
func NewPerformError(message string, cause error) error {
	return &ExecutionError{Step: StepPerform, Message: message, Cause: cause}
}

// stepMessages is the summary recorded for each step's failure.
var stepMessages = map[ExecutionStep]string{
	StepValidate: "input validation failed",
	StepPerform:  "operation failed",
	StepVerify:   "verification failed",
	StepArchive:  "state persistence failed",
}

// Executor runs Operations and logs each step.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor returns an Executor. A nil logger means slog.Default.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{logger: logger}
}

// Operation is one use case split into steps. Any step may be nil. A nil
// Verify forwards the performed value when P and V are the same type.
type Operation[I, P, V, O any] struct {
	Name string

	Validate func(ctx context.Context, in I) error
	Perform  func(ctx context.Context, in I) (P, error)
	Verify   func(ctx context.Context, in I, performed P) (V, error)
	Archive  func(ctx context.Context, in I, verified V) error
	Respond  func(ctx context.Context, in I, verified V) (O, error)
}

// Execute runs op on in, stopping at the first failing step. Failures in
// validate through archive come back as *ExecutionError; a Respond error is
// returned unchanged.
func Execute[I, P, V, O any](ctx context.Context, exec *Executor, op Operation[I, P, V, O], in I) (O, error) {
	var (
		zero      O
		performed P
		verified  V
		out       O
	)

	logger := exec.logger.With(slog.String("operation", op.Name))
	start := time.Now()

	err := step(ctx, logger, StepValidate, op.Validate != nil, func() error {
		return op.Validate(ctx, in)
	})
	if err != nil {
		return zero, err
	}

	err = step(ctx, logger, StepPerform, op.Perform != nil, func() (err error) {
		performed, err = op.Perform(ctx, in)
		return err
	})
	if err != nil {
		return zero, err
	}

	if op.Verify == nil {
		verified, _ = any(performed).(V)
	}

	err = step(ctx, logger, StepVerify, op.Verify != nil, func() (err error) {
		verified, err = op.Verify(ctx, in, performed)
		return err
	})
	if err != nil {
		return zero, err
	}

	err = step(ctx, logger, StepArchive, op.Archive != nil, func() error {
		return op.Archive(ctx, in, verified)
	})
	if err != nil {
		return zero, err
	}

	if op.Respond != nil {
		if out, err = op.Respond(ctx, in, verified); err != nil {
			logger.WarnContext(ctx, "respond failed", slog.Any("error", err))
			return zero, err
		}
	}

	logger.Log(ctx, logging.LevelTrace, "operation completed", slog.Duration("duration", time.Since(start)))

	return out, nil
}

// step runs fn when present and wraps its error with the step name. Input
// problems log at warn; everything later logs at error.
func step(ctx context.Context, logger *slog.Logger, s ExecutionStep, present bool, fn func() error) error {
	if !present {
		return nil
	}

	logger.DebugContext(ctx, "step started", slog.String("step", string(s)))

	err := fn()
	if err == nil {
		return nil
	}

	level := slog.LevelError
	if s == StepValidate {
		level = slog.LevelWarn
	}

	logger.Log(ctx, level, "step failed", slog.String("step", string(s)), slog.Any("error", err))

	return &ExecutionError{Step: s, Message: stepMessages[s], Cause: err}
}

// IsExecutionError reports whether err came out of a step.
func IsExecutionError(err error) bool {
	var execErr *ExecutionError

	return errors.As(err, &execErr)
}

// GetExecutionStep returns the step that produced err, if any.
func GetExecutionStep(err error) (ExecutionStep, bool) {
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		return "", false
	}

	return execErr.Step, true
}
