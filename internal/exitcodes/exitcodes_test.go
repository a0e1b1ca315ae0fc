package exitcodes

import (
	"errors"
	"fmt"
	"testing"

	"cache-cleanup/internal/cleanup"
	"cache-cleanup/internal/config"
	"cache-cleanup/internal/safety"
)

func TestFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, Success},
		{"plain", errors.New("disk on fire"), RuntimeError},
		{"coded", WithCode(HookFailed, errors.New("permission denied")), HookFailed},
		{"wrapped coded", fmt.Errorf("run: %w", WithCode(InvalidConfig, errors.New("bad yaml"))), InvalidConfig},
		{"outside root", fmt.Errorf("job x: delete ../y: %w", safety.ErrOutsideRoot), SafetyViolation},
		{"protected beats code", WithCode(InvalidConfig, safety.ErrProtectedPath), SafetyViolation},
		{"root target", safety.ErrRootTarget, SafetyViolation},
		{"no root", fmt.Errorf("%w: stat", config.ErrNoRoot), InvalidConfig},
		{"root not dir", config.ErrRootNotDir, InvalidConfig},
		{"unknown hook", fmt.Errorf("%w: afterStep", cleanup.ErrUnknownHook), InvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := For(tt.err); got != tt.want {
				t.Errorf("For(%v) = %d, expected %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestWithCodeNil(t *testing.T) {
	if err := WithCode(HookFailed, nil); err != nil {
		t.Errorf("WithCode(nil) = %v, expected nil", err)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := WithCode(RuntimeError, cause)
	if !errors.Is(err, cause) {
		t.Error("coded error should unwrap to its cause")
	}
	if err.Error() != "cause" {
		t.Errorf("Error() = %q, expected %q", err.Error(), "cause")
	}
}
