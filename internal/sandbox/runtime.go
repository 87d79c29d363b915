// Package sandbox wraps the Docker-compatible container runtime client used
// by the Orchestrator to spawn, wait on, and tear down the per-job
// Processor container and, when needed, an ephemeral CAD sidecar container.
// Each SandboxSpec decides its container's isolation: network off, a
// read-only root filesystem, memory/CPU/pids caps and a scratch tmpfs are
// applied only where the spec sets them.
package sandbox

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
)

// Runtime wraps a Docker client with the sandbox-spawning operations the
// Orchestrator needs. It holds no network or database credentials of its
// own: its only privilege is the container-runtime socket.
type Runtime struct {
	cli *client.Client
}

// NewRuntime connects to the container runtime at the given host (empty
// string uses the default, typically the local Unix socket).
func NewRuntime(host string) (*Runtime, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to container runtime: %w", err)
	}
	return &Runtime{cli: cli}, nil
}

// Close releases the underlying client connection.
func (r *Runtime) Close() error {
	return r.cli.Close()
}

// EnsureVolume creates a named volume if it does not already exist.
func (r *Runtime) EnsureVolume(ctx context.Context, name string) error {
	_, err := r.cli.VolumeInspect(ctx, name)
	if err == nil {
		return nil
	}
	_, err = r.cli.VolumeCreate(ctx, volume.CreateOptions{Name: name})
	if err != nil {
		return fmt.Errorf("create volume %s: %w", name, err)
	}
	return nil
}

// RemoveVolume deletes a volume, ignoring "not found".
func (r *Runtime) RemoveVolume(ctx context.Context, name string) error {
	if err := r.cli.VolumeRemove(ctx, name, true); err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("remove volume %s: %w", name, err)
	}
	return nil
}

// SandboxSpec describes one ephemeral container to spawn.
type SandboxSpec struct {
	Image        string
	Runtime      string // runc, runsc, kata
	Cmd          []string
	Env          []string
	NetworkOff   bool
	ReadOnlyRoot bool
	MemoryMB     int64
	CPUs         float64
	Pids         int64
	TmpfsMB      int64
	Mounts       []BindMount
}

// BindMount binds a host path or named volume into the container.
type BindMount struct {
	Source   string
	Target   string
	ReadOnly bool
	IsVolume bool
}

// Spawned is a running sandbox container handle.
type Spawned struct {
	ID string
}

// buildMounts converts the sandbox-agnostic BindMount list into the
// Docker client's mount.Mount representation.
func buildMounts(specMounts []BindMount) []mount.Mount {
	var mounts []mount.Mount
	for _, m := range specMounts {
		t := mount.TypeBind
		if m.IsVolume {
			t = mount.TypeVolume
		}
		mounts = append(mounts, mount.Mount{
			Type:     t,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}
	return mounts
}

// buildHostConfig translates a SandboxSpec into the HostConfig the spec's
// resource caps and network/filesystem trust boundary require.
func buildHostConfig(spec SandboxSpec) *container.HostConfig {
	networkMode := container.NetworkMode("bridge")
	if spec.NetworkOff {
		networkMode = container.NetworkMode("none")
	}

	pidsLimit := spec.Pids
	hostConfig := &container.HostConfig{
		NetworkMode:    networkMode,
		ReadonlyRootfs: spec.ReadOnlyRoot,
		Runtime:        spec.Runtime,
		Mounts:         buildMounts(spec.Mounts),
		Resources: container.Resources{
			Memory:    spec.MemoryMB * 1024 * 1024,
			NanoCPUs:  int64(spec.CPUs * 1e9),
			PidsLimit: &pidsLimit,
		},
	}
	if spec.TmpfsMB > 0 {
		hostConfig.Tmpfs = map[string]string{
			"/tmp": fmt.Sprintf("size=%dm", spec.TmpfsMB),
		}
	}
	return hostConfig
}

// Spawn creates and starts a container per spec, returning its ID.
func (r *Runtime) Spawn(ctx context.Context, spec SandboxSpec) (*Spawned, error) {
	hostConfig := buildHostConfig(spec)

	created, err := r.cli.ContainerCreate(ctx, &container.Config{
		Image: spec.Image,
		Cmd:   spec.Cmd,
		Env:   spec.Env,
	}, hostConfig, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("create container from %s: %w", spec.Image, err)
	}

	if err := r.cli.ContainerStart(ctx, created.ID, types.ContainerStartOptions{}); err != nil {
		return nil, fmt.Errorf("start container %s: %w", created.ID, err)
	}

	return &Spawned{ID: created.ID}, nil
}

// Wait blocks until the container exits or the timeout elapses. On
// timeout it kills the container and returns a timeout error.
func (r *Runtime) Wait(ctx context.Context, id string, timeout time.Duration) (exitCode int64, err error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	statusCh, errCh := r.cli.ContainerWait(waitCtx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if waitCtx.Err() != nil {
			_ = r.cli.ContainerKill(ctx, id, "SIGKILL")
			return 0, fmt.Errorf("container %s exceeded timeout of %v", id, timeout)
		}
		return 0, fmt.Errorf("wait for container %s: %w", id, err)
	case status := <-statusCh:
		return status.StatusCode, nil
	}
}

// Logs returns the combined stdout/stderr of a container.
func (r *Runtime) Logs(ctx context.Context, id string) (io.ReadCloser, error) {
	return r.cli.ContainerLogs(ctx, id, types.ContainerLogsOptions{ShowStdout: true, ShowStderr: true})
}

// Remove force-removes a container, ignoring "not found".
func (r *Runtime) Remove(ctx context.Context, id string) error {
	err := r.cli.ContainerRemove(ctx, id, types.ContainerRemoveOptions{Force: true})
	if client.IsErrNotFound(err) {
		return nil
	}
	return err
}

// Kill sends SIGKILL to a running container.
func (r *Runtime) Kill(ctx context.Context, id string) error {
	return r.cli.ContainerKill(ctx, id, "SIGKILL")
}

// CopyInto streams a tar archive into a container path, used by the
// throwaway staging container that marshals {hash}.bin/{hash}.json onto the
// job-scoped work volume before the Processor container starts.
func (r *Runtime) CopyInto(ctx context.Context, id, destPath string, tarStream io.Reader) error {
	return r.cli.CopyToContainer(ctx, id, destPath, tarStream, types.CopyToContainerOptions{})
}

// CopyOutOf streams a tar archive of srcPath out of a container, used to
// pull /work/* back onto the output stage volume once the Processor exits.
func (r *Runtime) CopyOutOf(ctx context.Context, id, srcPath string) (io.ReadCloser, error) {
	rc, _, err := r.cli.CopyFromContainer(ctx, id, srcPath)
	return rc, err
}
