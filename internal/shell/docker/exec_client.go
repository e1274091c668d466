package docker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/dockhand/internal/shell/run"
)

// =============================================================================
// Exec Client - docker CLI through a Runner
// =============================================================================

// ExecClient implements the Client interface by invoking the docker CLI
// through a command runner. This is how deployments reach a remote target:
// the SSH runner carries the same commands the local CLI would run.
type ExecClient struct {
	runner run.Runner
}

// NewExecClient creates a CLI-backed Docker client.
func NewExecClient(runner run.Runner) *ExecClient {
	return &ExecClient{runner: runner}
}

// Ping checks if the Docker daemon is reachable.
func (d *ExecClient) Ping(ctx context.Context) error {
	res, err := d.docker(ctx, "info", "--format", "{{.ServerVersion}}")
	if err != nil {
		return err
	}
	if !res.Ok() {
		return NewDockerError("Ping", "", "", strings.TrimSpace(res.Stderr), ErrConnectionFailed)
	}
	return nil
}

// Close implements Client. The runner owns the connection.
func (d *ExecClient) Close() error {
	return nil
}

// =============================================================================
// Image Operations
// =============================================================================

// ImageExists checks if an image exists locally.
func (d *ExecClient) ImageExists(ctx context.Context, imageName string) (bool, error) {
	res, err := d.docker(ctx, "image", "inspect", imageName)
	if err != nil {
		return false, err
	}
	return res.Ok(), nil
}

// PullImage pulls an image from the registry.
func (d *ExecClient) PullImage(ctx context.Context, imageName string) error {
	res, err := d.docker(ctx, "pull", imageName)
	if err != nil {
		return err
	}
	if !res.Ok() {
		stderr := strings.TrimSpace(res.Stderr)
		if strings.Contains(stderr, "not found") || strings.Contains(stderr, "pull access denied") {
			return NewDockerError("PullImage", "image", imageName, "image not found", ErrImageNotFound)
		}
		return NewDockerError("PullImage", "image", imageName, stderr, ErrImagePullFailed)
	}
	return nil
}

// =============================================================================
// Volume Operations
// =============================================================================

// CreateVolume creates a new Docker volume.
func (d *ExecClient) CreateVolume(ctx context.Context, spec VolumeSpec) (string, error) {
	args := []string{"volume", "create"}
	if spec.Driver != "" {
		args = append(args, "--driver", spec.Driver)
	}
	for k, v := range spec.Labels {
		args = append(args, "--label", k+"="+v)
	}
	args = append(args, spec.Name)

	res, err := d.docker(ctx, args...)
	if err != nil {
		return "", err
	}
	if !res.Ok() {
		return "", NewDockerError("CreateVolume", "volume", spec.Name, strings.TrimSpace(res.Stderr), fmt.Errorf("exit status %d", res.ExitCode))
	}

	return strings.TrimSpace(res.Stdout), nil
}

// =============================================================================
// Container Operations
// =============================================================================

// CreateContainer creates a new container from the given spec.
func (d *ExecClient) CreateContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	args := []string{"create", "--name", spec.Name}

	if spec.RestartPolicy.Name != "" {
		policy := spec.RestartPolicy.Name
		if spec.RestartPolicy.MaximumRetryCount > 0 {
			policy = fmt.Sprintf("%s:%d", policy, spec.RestartPolicy.MaximumRetryCount)
		}
		args = append(args, "--restart", policy)
	}

	for _, p := range spec.Ports {
		proto := p.Protocol
		if proto == "" {
			proto = "tcp"
		}
		host := fmt.Sprintf("%d", p.HostPort)
		if p.HostIP != "" {
			host = p.HostIP + ":" + host
		}
		args = append(args, "-p", fmt.Sprintf("%s:%d/%s", host, p.ContainerPort, proto))
	}

	for _, v := range spec.Volumes {
		bind := v.Source + ":" + v.Target
		if v.ReadOnly {
			bind += ":ro"
		}
		args = append(args, "-v", bind)
	}

	for k, v := range spec.Env {
		args = append(args, "-e", k+"="+v)
	}
	for k, v := range spec.Labels {
		args = append(args, "-l", k+"="+v)
	}

	args = append(args, spec.Image)

	res, err := d.docker(ctx, args...)
	if err != nil {
		return "", err
	}
	if !res.Ok() {
		stderr := strings.TrimSpace(res.Stderr)
		if strings.Contains(stderr, "is already in use") || strings.Contains(stderr, "Conflict") {
			return "", NewDockerError("CreateContainer", "container", spec.Name, "container already exists", ErrContainerAlreadyExists)
		}
		if strings.Contains(stderr, "port is already allocated") {
			return "", NewDockerError("CreateContainer", "container", spec.Name, stderr, ErrPortAlreadyAllocated)
		}
		return "", NewDockerError("CreateContainer", "container", spec.Name, stderr, fmt.Errorf("exit status %d", res.ExitCode))
	}

	return strings.TrimSpace(res.Stdout), nil
}

// StartContainer starts a stopped container.
func (d *ExecClient) StartContainer(ctx context.Context, containerID string) error {
	res, err := d.docker(ctx, "start", containerID)
	if err != nil {
		return err
	}
	if !res.Ok() {
		stderr := strings.TrimSpace(res.Stderr)
		if strings.Contains(stderr, "No such container") {
			return NewDockerError("StartContainer", "container", containerID, "container not found", ErrContainerNotFound)
		}
		return NewDockerError("StartContainer", "container", containerID, stderr, fmt.Errorf("exit status %d", res.ExitCode))
	}
	return nil
}

// FindContainerByName returns the container with the exact name, or nil if
// no such container exists (running or not).
func (d *ExecClient) FindContainerByName(ctx context.Context, name string) (*ContainerInfo, error) {
	res, err := d.docker(ctx, "ps", "-a",
		"--filter", "name=^"+name+"$",
		"--format", "{{.ID}}\t{{.Names}}\t{{.State}}\t{{.Image}}\t{{.CreatedAt}}")
	if err != nil {
		return nil, err
	}
	if !res.Ok() {
		return nil, NewDockerError("FindContainerByName", "container", name, strings.TrimSpace(res.Stderr), fmt.Errorf("exit status %d", res.ExitCode))
	}

	for _, line := range strings.Split(res.Stdout, "\n") {
		fields := strings.Split(strings.TrimSpace(line), "\t")
		if len(fields) < 4 || fields[1] != name {
			continue
		}

		info := &ContainerInfo{
			ID:     fields[0],
			Name:   fields[1],
			Status: ContainerStatus(fields[2]),
			Image:  fields[3],
		}
		if len(fields) >= 5 {
			// docker ps CreatedAt format: "2006-01-02 15:04:05 -0700 MST"
			if t, err := time.Parse("2006-01-02 15:04:05 -0700 MST", fields[4]); err == nil {
				info.CreatedAt = t
			}
		}
		return info, nil
	}

	return nil, nil
}

// docker runs a single docker CLI invocation.
func (d *ExecClient) docker(ctx context.Context, args ...string) (run.ExecResult, error) {
	return d.runner.Run(ctx, run.Command{Name: "docker", Args: args})
}
