package domain

import (
	"errors"
	"fmt"
)

// ErrNoMatch is matched by every NoMatchError.
var ErrNoMatch = errors.New("no mapping found")

// StorageError reports an unreadable or corrupt pattern table.
type StorageError struct {
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("pattern storage %s: %v", e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NoMatchError reports text that no stored pattern matched.
type NoMatchError struct {
	Text string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("No mapping found for: '%s'", e.Text)
}

func (e *NoMatchError) Is(target error) bool { return target == ErrNoMatch }

// IndexOutOfRangeError reports a 1-based index outside the last listing.
type IndexOutOfRangeError struct {
	Kind  string // "Index" or "File index"
	Index int    // 1-based
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("%s %d out of range (valid range: 1-%d)", e.Kind, e.Index, e.Len)
}

// HostExecutionError reports a failed host command.
type HostExecutionError struct {
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *HostExecutionError) Error() string {
	if e.ExitCode != 0 {
		msg := fmt.Sprintf("command '%s' returned non-zero exit status %d", e.Command, e.ExitCode)
		if e.Output != "" {
			msg += ": " + e.Output
		}
		return msg
	}
	return fmt.Sprintf("command '%s' failed: %v", e.Command, e.Err)
}

func (e *HostExecutionError) Unwrap() error { return e.Err }

// FilesystemError reports a missing path, denied access or wrong entry type.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }
