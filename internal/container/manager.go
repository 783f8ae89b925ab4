// Package container runs pass-through commands inside a Docker sandbox.
package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
)

const (
	// Container configuration.
	sandboxName     = "shsh-voice-sandbox"
	stopTimeoutSecs = 10

	// Resource limits.
	memoryLimitBytes = 512 * 1024 * 1024 // 512MB
	cpuQuota         = 50000             // 0.5 CPU
	pidsLimit        = 256

	createRetryAttempts = 20
	createRetryDelay    = 250 * time.Millisecond
)

// Manager controls the lifecycle of the sandbox container.
type Manager interface {
	// EnsureSandbox returns the ID of a running sandbox, creating or
	// restarting it when needed.
	EnsureSandbox(ctx context.Context, currentID string) (string, error)

	// StopContainer stops and removes a container.
	StopContainer(ctx context.Context, containerID string) error

	// IsRunning checks if a container is currently running.
	IsRunning(ctx context.Context, containerID string) (bool, error)

	// Client returns the underlying Docker client.
	Client() *client.Client
}

// SandboxSpec describes the sandbox container.
type SandboxSpec struct {
	Image   string
	Root    string // bind-mounted at the same path inside the container
	Runtime string // "" = default (runc), "runsc" = gVisor
	User    string // defaults to the current uid:gid
}

// DockerManager implements Manager using the Docker API.
type DockerManager struct {
	cli    *client.Client
	spec   SandboxSpec
	logger *slog.Logger
}

// NewDockerManager creates a Docker-backed sandbox manager.
func NewDockerManager(spec SandboxSpec, logger *slog.Logger) (*DockerManager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if spec.Image == "" {
		return nil, errors.New("sandbox image cannot be empty")
	}
	if spec.User == "" {
		spec.User = fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid())
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	runtime := spec.Runtime
	if runtime == "" {
		runtime = "default"
	}
	logger.Info("Docker client initialized", "runtime", runtime, "image", spec.Image, "root", spec.Root)
	return &DockerManager{cli: cli, spec: spec, logger: logger}, nil
}

// EnsureSandbox implements Manager.
func (m *DockerManager) EnsureSandbox(ctx context.Context, currentID string) (string, error) {
	ref := currentID
	if ref == "" {
		ref = sandboxName
	}

	inspect, err := m.cli.ContainerInspect(ctx, ref)
	if err == nil {
		if inspect.State != nil && inspect.State.Running {
			return inspect.ID, nil
		}
		m.logger.Info("Restarting stopped sandbox", "container_id", inspect.ID)
		if err := m.cli.ContainerStart(ctx, inspect.ID, container.StartOptions{}); err == nil {
			return inspect.ID, nil
		}
		m.logger.Warn("Sandbox restart failed, recreating", "container_id", inspect.ID, "error", err)
		if err := m.StopContainer(ctx, inspect.ID); err != nil {
			m.logger.Warn("Failed to remove sandbox before recreation", "error", err, "container_id", inspect.ID)
		}
	} else if !errdefs.IsNotFound(err) {
		return "", fmt.Errorf("inspect sandbox %s: %w", ref, err)
	}

	config, hostConfig := m.containerConfig()

	m.logger.Info("Creating sandbox container", "image", m.spec.Image)
	var resp container.CreateResponse
	var createErr error
	for i := 0; i < createRetryAttempts; i++ {
		resp, createErr = m.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, sandboxName)
		if createErr == nil {
			break
		}

		errStr := strings.ToLower(createErr.Error())
		if !strings.Contains(errStr, "is already in use") && !strings.Contains(errStr, "conflict") {
			return "", fmt.Errorf("create sandbox: %w", createErr)
		}

		// A previous process may have left the named container behind.
		m.logger.Warn("Sandbox name conflict during create, retrying",
			"container_name", sandboxName,
			"attempt", i+1,
			"error", createErr,
		)
		if inspect, inspectErr := m.cli.ContainerInspect(ctx, sandboxName); inspectErr == nil {
			if stopErr := m.StopContainer(ctx, inspect.ID); stopErr != nil {
				m.logger.Warn("Failed to stop conflicting sandbox before retry", "container_id", inspect.ID, "error", stopErr)
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(createRetryDelay):
		}
	}
	if createErr != nil {
		return "", fmt.Errorf("create sandbox after retries: %w", createErr)
	}

	if err := m.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		if removeErr := m.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true}); removeErr != nil && !errors.Is(removeErr, context.Canceled) {
			m.logger.Warn("Failed to remove sandbox after start failure", "container_id", resp.ID, "error", removeErr)
		}
		return "", fmt.Errorf("start sandbox %s: %w", resp.ID, err)
	}

	m.logger.Info("Sandbox created and started", "container_id", resp.ID)
	return resp.ID, nil
}

func (m *DockerManager) containerConfig() (*container.Config, *container.HostConfig) {
	config := &container.Config{
		Image:      m.spec.Image,
		User:       m.spec.User,
		WorkingDir: m.spec.Root,
		Cmd:        []string{"sh", "-c", "while :; do sleep 3600; done"},
		Labels:     map[string]string{"app": sandboxName},
	}

	hostConfig := &container.HostConfig{
		Runtime:     m.spec.Runtime,
		NetworkMode: container.NetworkMode("none"),
		Resources: container.Resources{
			Memory:    memoryLimitBytes,
			CPUQuota:  cpuQuota,
			PidsLimit: ptr(int64(pidsLimit)),
		},
	}
	if m.spec.Root != "" {
		hostConfig.Mounts = []mount.Mount{{
			Type:   mount.TypeBind,
			Source: m.spec.Root,
			Target: m.spec.Root,
		}}
	}
	return config, hostConfig
}

// StopContainer stops and removes a container.
// It is idempotent and handles concurrent calls gracefully.
func (m *DockerManager) StopContainer(ctx context.Context, containerID string) error {
	m.logger.Info("Stopping container", "container_id", containerID)

	_, err := m.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		if errdefs.IsNotFound(err) {
			m.logger.Debug("Container already removed", "container_id", containerID)
			return nil
		}
		return fmt.Errorf("inspect container %s: %w", containerID, err)
	}

	timeout := stopTimeoutSecs
	if err := m.cli.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		if errdefs.IsNotFound(err) {
			m.logger.Debug("Container already stopped/removed", "container_id", containerID)
		} else {
			m.logger.Debug("Container stop returned error, continuing to remove", "container_id", containerID, "error", err)
		}
	}

	if err := m.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		if errdefs.IsNotFound(err) || strings.Contains(err.Error(), "is already in progress") {
			return nil
		}
		if ctx.Err() != nil {
			m.logger.Debug("Context canceled during remove, container may still be removed", "container_id", containerID, "error", err)
			return nil
		}
		return fmt.Errorf("remove container %s: %w", containerID, err)
	}

	m.logger.Info("Container stopped and removed", "container_id", containerID)
	return nil
}

// IsRunning checks if a container is currently running.
func (m *DockerManager) IsRunning(ctx context.Context, containerID string) (bool, error) {
	inspect, err := m.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("inspect container %s: %w", containerID, err)
	}
	return inspect.State != nil && inspect.State.Running, nil
}

// Client returns the underlying Docker client.
func (m *DockerManager) Client() *client.Client {
	return m.cli
}

// Close releases the Docker client.
func (m *DockerManager) Close() error {
	return m.cli.Close()
}

func ptr[T any](v T) *T {
	return &v
}
