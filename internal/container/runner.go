package container

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/shsh-voice/internal/domain"
	"github.com/ashureev/shsh-voice/internal/engine"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

const (
	execInspectAttempts = 10
	execInspectDelay    = 50 * time.Millisecond
)

type execClient interface {
	ContainerExecCreate(ctx context.Context, containerID string, options container.ExecOptions) (container.ExecCreateResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config container.ExecStartOptions) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error)
}

// SandboxRunner implements engine.HostRunner by exec'ing each command line
// in a long-lived sandbox container. The sandbox root is mounted at the same
// path inside the container, so the engine's working directory is valid on
// both sides.
type SandboxRunner struct {
	mgr         Manager
	exec        execClient
	root        string
	outputLimit int
	logger      *slog.Logger
	now         func() time.Time

	mu          sync.Mutex
	containerID string
	lastUsed    time.Time
}

// NewSandboxRunner returns a runner using mgr's Docker client. Commands may
// only run in directories below root.
func NewSandboxRunner(mgr *DockerManager, root string, outputLimit int, logger *slog.Logger) *SandboxRunner {
	return newSandboxRunner(mgr, mgr.Client(), root, outputLimit, logger)
}

func newSandboxRunner(mgr Manager, exec execClient, root string, outputLimit int, logger *slog.Logger) *SandboxRunner {
	if logger == nil {
		logger = slog.Default()
	}
	if root != "" {
		root = filepath.Clean(root)
	}
	return &SandboxRunner{
		mgr:         mgr,
		exec:        exec,
		root:        root,
		outputLimit: outputLimit,
		logger:      logger,
		now:         time.Now,
	}
}

// Run implements engine.HostRunner.
func (r *SandboxRunner) Run(ctx context.Context, dir, line string) (string, error) {
	if !withinRoot(r.root, dir) {
		return "", &domain.HostExecutionError{
			Command: line,
			Err:     fmt.Errorf("directory %s is outside the sandbox root %s", dir, r.root),
		}
	}

	id, err := r.ensure(ctx)
	if err != nil {
		return "", &domain.HostExecutionError{Command: line, Err: err}
	}

	resp, err := r.exec.ContainerExecCreate(ctx, id, container.ExecOptions{
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   dir,
		Cmd:          []string{"sh", "-c", line},
	})
	if err != nil {
		return "", &domain.HostExecutionError{Command: line, Err: fmt.Errorf("create exec in sandbox %s: %w", id, err)}
	}

	attach, err := r.exec.ContainerExecAttach(ctx, resp.ID, container.ExecStartOptions{})
	if err != nil {
		return "", &domain.HostExecutionError{Command: line, Err: fmt.Errorf("attach exec %s: %w", resp.ID, err)}
	}
	defer attach.Close()

	out := engine.NewOutputBuffer(r.outputLimit)
	done := make(chan error, 1)
	go func() {
		_, copyErr := stdcopy.StdCopy(out, out, attach.Reader)
		done <- copyErr
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		attach.Close()
		<-done
		return out.String(), &domain.HostExecutionError{Command: line, Output: strings.TrimSpace(out.String()), Err: ctx.Err()}
	}
	output := out.String()
	if err != nil {
		return output, &domain.HostExecutionError{Command: line, Output: strings.TrimSpace(output), Err: fmt.Errorf("read exec output: %w", err)}
	}

	exitCode, err := r.exitCode(ctx, resp.ID)
	if err != nil {
		return output, &domain.HostExecutionError{Command: line, Output: strings.TrimSpace(output), Err: err}
	}
	if exitCode != 0 {
		return output, &domain.HostExecutionError{
			Command:  line,
			ExitCode: exitCode,
			Output:   strings.TrimSpace(output),
			Err:      fmt.Errorf("exit status %d", exitCode),
		}
	}
	return output, nil
}

// exitCode waits briefly for the exec to be reported finished once its
// output stream has closed.
func (r *SandboxRunner) exitCode(ctx context.Context, execID string) (int, error) {
	for i := 0; ; i++ {
		inspect, err := r.exec.ContainerExecInspect(ctx, execID)
		if err != nil {
			return 0, fmt.Errorf("inspect exec %s: %w", execID, err)
		}
		if !inspect.Running || i >= execInspectAttempts-1 {
			return inspect.ExitCode, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(execInspectDelay):
		}
	}
}

func (r *SandboxRunner) ensure(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := r.mgr.EnsureSandbox(ctx, r.containerID)
	if err != nil {
		return "", err
	}
	if id != r.containerID {
		r.logger.Info("Sandbox ready", "container_id", id)
	}
	r.containerID = id
	r.lastUsed = r.now()
	return id, nil
}

// Reap removes the sandbox when it has been idle for at least ttl. It
// reports whether a container was removed.
func (r *SandboxRunner) Reap(ctx context.Context, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.containerID == "" || r.now().Sub(r.lastUsed) < ttl {
		return false, nil
	}
	if err := r.mgr.StopContainer(ctx, r.containerID); err != nil {
		return false, err
	}
	r.containerID = ""
	return true, nil
}

// Stop removes the sandbox if one is running.
func (r *SandboxRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.containerID == "" {
		return nil
	}
	if err := r.mgr.StopContainer(ctx, r.containerID); err != nil {
		return err
	}
	r.containerID = ""
	return nil
}

func withinRoot(root, dir string) bool {
	if root == "" {
		return true
	}
	rel, err := filepath.Rel(root, filepath.Clean(dir))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
