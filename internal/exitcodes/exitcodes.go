package exitcodes

import (
	"errors"

	"cache-cleanup/internal/cleanup"
	"cache-cleanup/internal/config"
	"cache-cleanup/internal/safety"
)

// Exit codes for the cachecleanup CLI
// These codes form the contract with CI scripts calling it between test stages
const (
	Success         = 0 // Successful execution
	HookFailed      = 1 // A hook aborted on a filesystem error
	InvalidConfig   = 2 // Configuration file invalid or missing, or bad usage
	SafetyViolation = 3 // Safety validator rejected a configured path
	RuntimeError    = 4 // Runtime error during execution
)

// Error attaches an exit code to err
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// WithCode wraps err with code, nil stays nil
func WithCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Err: err}
}

// For maps err to the process exit code. Safety and configuration sentinels
// win over an attached code.
func For(err error) int {
	if err == nil {
		return Success
	}

	switch {
	case errors.Is(err, safety.ErrOutsideRoot),
		errors.Is(err, safety.ErrProtectedPath),
		errors.Is(err, safety.ErrRootTarget),
		errors.Is(err, safety.ErrInvalidPath):
		return SafetyViolation
	case errors.Is(err, config.ErrNoRoot),
		errors.Is(err, config.ErrRootNotDir),
		errors.Is(err, cleanup.ErrUnknownHook):
		return InvalidConfig
	}

	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return RuntimeError
}
