package engine

import (
	"errors"
	"fmt"
	"time"
)

// RuntimeError represents a campaign-level error detected by the engine.
//
// Runtime errors include:
//   - Harness exhaustion: too many rejected steps to explore meaningfully
//   - Campaign timeout: the wall-clock budget ran out
//   - SUT setup failure: the factory could not build an instance
//   - A panicking ghost update in handler code
//   - Invalid configuration or an unknown action in a replayed sequence
//
// None of these are findings about the SUT. Invariant violations are
// reported through FailureReports, never as errors.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Run is the run index the error was detected in, or -1.
	Run int

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeHarnessExhausted indicates max_rejects was exceeded.
	ErrCodeHarnessExhausted RuntimeErrorCode = "HARNESS_EXHAUSTED"

	// ErrCodeCampaignTimeout indicates the campaign ran out of wall-clock time.
	ErrCodeCampaignTimeout RuntimeErrorCode = "CAMPAIGN_TIMEOUT"

	// ErrCodeSUTSetup indicates the SUT factory failed.
	ErrCodeSUTSetup RuntimeErrorCode = "SUT_SETUP_FAILED"

	// ErrCodeInvalidConfig indicates a configuration value is unusable.
	ErrCodeInvalidConfig RuntimeErrorCode = "INVALID_CONFIG"

	// ErrCodeHandlerPanic indicates a ghost update panicked, leaving the
	// model in an unknown state.
	ErrCodeHandlerPanic RuntimeErrorCode = "HANDLER_PANIC"

	// ErrCodeUnknownAction indicates a replayed step names an action or
	// actor the harness does not have.
	ErrCodeUnknownAction RuntimeErrorCode = "UNKNOWN_ACTION"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Run >= 0 {
		return fmt.Sprintf("%s: %s (run=%d)", e.Code, e.Message, e.Run)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsExhaustedError returns true if the error means the harness could not
// explore: rejects exceeded or the campaign timed out.
// Uses errors.As to handle wrapped errors.
func IsExhaustedError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeHarnessExhausted || re.Code == ErrCodeCampaignTimeout
	}
	return IsRejectsExceededError(err)
}

// IsConfigError returns true if the error is a configuration error.
func IsConfigError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeInvalidConfig
	}
	return false
}

// NewExhaustedError wraps a reject quota overrun.
func NewExhaustedError(cause *RejectsExceededError) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeHarnessExhausted,
		Message: fmt.Sprintf("rejected steps exceeded max_rejects (%d > %d); handler bounds are too narrow", cause.Rejects, cause.Limit),
		Run:     cause.Run,
		Details: map[string]string{
			"rejects":     fmt.Sprintf("%d", cause.Rejects),
			"max_rejects": fmt.Sprintf("%d", cause.Limit),
		},
		Err: cause,
	}
}

// NewTimeoutError reports a campaign that ran out of time before run.
func NewTimeoutError(run int, timeout time.Duration, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeCampaignTimeout,
		Message: fmt.Sprintf("campaign exceeded timeout %s", timeout),
		Run:     run,
		Details: map[string]string{"timeout": timeout.String()},
		Err:     cause,
	}
}

// NewSetupError reports a SUT factory failure.
func NewSetupError(run int, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeSUTSetup,
		Message: fmt.Sprintf("create SUT instance: %v", cause),
		Run:     run,
		Err:     cause,
	}
}

// NewConfigError reports an unusable configuration value.
func NewConfigError(field, reason string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidConfig,
		Message: fmt.Sprintf("%s: %s", field, reason),
		Run:     -1,
		Details: map[string]string{"field": field},
	}
}

// NewUnknownActionError reports a replayed step the harness cannot run.
func NewUnknownActionError(step int, what, name string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownAction,
		Message: fmt.Sprintf("step %d: unknown %s %q", step, what, name),
		Run:     -1,
		Details: map[string]string{"step": fmt.Sprintf("%d", step), what: name},
	}
}

// NewHandlerPanicError reports a ghost update that panicked at step.
func NewHandlerPanicError(run, step int, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeHandlerPanic,
		Message: fmt.Sprintf("step %d: %v", step, cause),
		Run:     run,
		Details: map[string]string{"step": fmt.Sprintf("%d", step)},
		Err:     cause,
	}
}
