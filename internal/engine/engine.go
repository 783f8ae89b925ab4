// Package engine executes resolved commands and tracks the session state
// that later commands refer to.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/ashureev/shsh-voice/internal/domain"
)

// DefaultCommandTimeout bounds a single pass-through command.
const DefaultCommandTimeout = 2 * time.Minute

// Engine executes one command at a time against its SessionState. Execute
// holds a lock for the whole transition, so front-ends may share an Engine.
type Engine struct {
	mu      sync.Mutex
	state   *domain.SessionState
	host    HostRunner
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds pass-through commands. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an engine owning state. host runs pass-through commands.
func New(state *domain.SessionState, host HostRunner, opts ...Option) *Engine {
	e := &Engine{
		state:   state,
		host:    host,
		timeout: DefaultCommandTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs cmd and returns a human-readable result. It never returns an
// error and never panics: every failure is described in the result text.
// A nil cmd means there is nothing to do.
func (e *Engine) Execute(ctx context.Context, cmd domain.Command) (result string) {
	if cmd == nil {
		return "No command to execute"
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Command panicked", "command", cmd.String(), "panic", r)
			result = fmt.Sprintf("Unexpected error: %v", r)
		}
	}()

	e.state.RecordCommand(cmd.String())
	e.logger.Debug("Executing command", "command", cmd.String(), "work_dir", e.state.WorkDir)

	switch c := cmd.(type) {
	case domain.ChangeDir:
		return e.changeDir(c.Path)
	case domain.CurrentDir:
		return "Current directory: " + e.state.WorkDir
	case domain.ParentDir:
		return e.parentDir()
	case domain.NavigateIndex:
		return e.navigate(c.Index)
	case domain.List:
		return e.list()
	case domain.DeleteIndex:
		return e.deleteIndex(c.Index)
	case domain.UndoDelete:
		return e.undoDelete()
	case domain.CreateFile:
		return e.createFile(c.Name)
	case domain.StopListening:
		return "Listening stopped."
	case domain.Shell:
		return e.passThrough(ctx, c.Line)
	default:
		return fmt.Sprintf("Unexpected error: unsupported command %T", cmd)
	}
}

// WorkDir returns the current working directory of the session.
func (e *Engine) WorkDir() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.WorkDir
}

// History returns a copy of the executed command history.
func (e *Engine) History() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.state.History)
}

// RecentHistory returns a copy of the last n executed commands.
func (e *Engine) RecentHistory(n int) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.state.RecentCommands(n))
}

func (e *Engine) changeDir(path string) string {
	target, err := e.enterDir(e.resolvePath(path))
	if err != nil {
		return "Error changing directory: " + err.Error()
	}
	return "Changed directory to: " + target
}

func (e *Engine) parentDir() string {
	target, err := e.enterDir(filepath.Dir(e.state.WorkDir))
	if err != nil {
		return "Error moving up a directory: " + err.Error()
	}
	return "Moved up to: " + target
}

func (e *Engine) navigate(index int) string {
	listing := e.state.DirectoryListing
	if len(listing) == 0 {
		return "No directory listing available. Please use 'list files' first."
	}
	if index < 0 || index >= len(listing) {
		return (&domain.IndexOutOfRangeError{Kind: "Index", Index: index + 1, Len: len(listing)}).Error()
	}

	name := listing[index]
	if _, err := e.enterDir(filepath.Join(e.listingBase(), name)); err != nil {
		return "Error changing directory: " + err.Error()
	}
	return "Changed directory to: " + name
}

func (e *Engine) passThrough(ctx context.Context, line string) string {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := e.host.Run(ctx, e.state.WorkDir, line)
	if err != nil {
		e.logger.Warn("Host command failed", "command", line, "error", err, "duration", time.Since(start))
		return "Error executing command: " + err.Error()
	}
	e.logger.Debug("Host command finished", "command", line, "output_len", len(out), "duration", time.Since(start))
	return out
}

// enterDir makes target the working directory if it is an accessible directory.
func (e *Engine) enterDir(target string) (string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return "", fsError("chdir", target, err)
	}
	if !info.IsDir() {
		return "", &domain.FilesystemError{Op: "chdir", Path: target, Err: errors.New("not a directory")}
	}
	f, err := os.Open(target)
	if err != nil {
		return "", fsError("chdir", target, err)
	}
	_ = f.Close()

	e.state.WorkDir = target
	return target, nil
}

func (e *Engine) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(e.state.WorkDir, p)
}

// listingBase is the directory the last listing was taken in. Listings stay
// usable after the working directory moves on, and keep pointing at the
// entries the user was shown.
func (e *Engine) listingBase() string {
	if e.state.ListingDir != "" {
		return e.state.ListingDir
	}
	return e.state.WorkDir
}

// fsError strips the operation prefix from a *fs.PathError so messages name
// the engine operation instead of the syscall.
func fsError(op, path string, err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		err = pathErr.Err
	}
	return &domain.FilesystemError{Op: op, Path: path, Err: err}
}
