package export

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
)

// Sentinel errors classifying export failures. Callers match with
// errors.Is; the message carries the operation and, for I/O failures,
// remediation text.
var (
	// ErrConfiguration marks requests that can never succeed as given:
	// missing assets, zero or negative durations, unsupported formats.
	// Exports failing this way never start.
	ErrConfiguration = errors.New("configuration error")
	// ErrPermission marks output locations the process may not write to.
	ErrPermission = errors.New("permission denied")
	// ErrOutOfSpace marks exhausted disk space on the target volume.
	ErrOutOfSpace = errors.New("out of disk space")
	// ErrEncode marks container writer failures; partial output is
	// discarded.
	ErrEncode = errors.New("encode failed")
	// ErrNotImplemented marks deliberately stubbed formats.
	ErrNotImplemented = errors.New("not implemented")
	// ErrCancelled marks user cancellation. It is a distinct terminal
	// status, not a failure.
	ErrCancelled = errors.New("export cancelled")
)

// Wrap tags err with a classification marker plus operation context and
// optional remediation text.
func Wrap(marker error, operation, remediation string, err error) error {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if remediation = strings.TrimSpace(remediation); remediation != "" {
		parts = append(parts, remediation)
	}
	detail := strings.Join(parts, ": ")
	if err != nil {
		if detail == "" {
			return fmt.Errorf("%w: %w", marker, err)
		}
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// classifyIOError maps a filesystem error onto the taxonomy, attaching
// user-actionable remediation text.
func classifyIOError(operation string, err error) error {
	switch {
	case errors.Is(err, syscall.ENOSPC):
		return Wrap(ErrOutOfSpace, operation, "free up space on the target volume and retry", err)
	case errors.Is(err, os.ErrPermission):
		return Wrap(ErrPermission, operation, "grant write access to the output location or choose a different directory", err)
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
