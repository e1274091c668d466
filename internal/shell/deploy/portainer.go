package deploy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/artpar/dockhand/internal/shell/docker"
)

// =============================================================================
// Container-Management UI Deployment
// =============================================================================

// PortainerConfig configures the container-management UI deployment. The
// defaults reproduce the classic Portainer-CE run invocation.
type PortainerConfig struct {
	Name       string // container name
	Image      string
	AgentPort  int    // tunnel/agent port (default 8000)
	UIPort     int    // web UI port (default 9000)
	SocketPath string // host Docker socket bind
	VolumeName string // named data volume
}

// DefaultPortainerConfig returns the stock Portainer-CE deployment.
func DefaultPortainerConfig() PortainerConfig {
	return PortainerConfig{
		Name:       "portainer",
		Image:      "portainer/portainer-ce:latest",
		AgentPort:  8000,
		UIPort:     9000,
		SocketPath: "/var/run/docker.sock",
		VolumeName: "portainer_data",
	}
}

// PortainerDeployer launches the management UI as a directly-run container.
type PortainerDeployer struct {
	docker docker.Client
	logger *slog.Logger
}

// NewPortainerDeployer creates a container-management UI deployer.
func NewPortainerDeployer(client docker.Client, logger *slog.Logger) *PortainerDeployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortainerDeployer{
		docker: client,
		logger: logger.With("component", "portainer_deploy"),
	}
}

// Deploy creates the data volume and the container, then starts it. A
// direct run is not idempotent on a name collision, so an existing
// container is handled explicitly: running means skip, stopped means start.
// The returned skipped flag and message feed the step result.
func (p *PortainerDeployer) Deploy(ctx context.Context, cfg PortainerConfig) (skipped bool, message string, err error) {
	existing, err := p.docker.FindContainerByName(ctx, cfg.Name)
	if err != nil {
		return false, "", err
	}
	if existing != nil {
		if existing.Running() {
			p.logger.Info("container already running", "name", cfg.Name, "id", existing.ID)
			return true, "already running", nil
		}
		p.logger.Info("starting existing container", "name", cfg.Name, "id", existing.ID)
		if err := p.docker.StartContainer(ctx, existing.ID); err != nil {
			return false, "", err
		}
		return false, "restarted existing container", nil
	}

	exists, err := p.docker.ImageExists(ctx, cfg.Image)
	if err != nil {
		return false, "", err
	}
	if !exists {
		p.logger.Info("pulling image", "image", cfg.Image)
		if err := p.docker.PullImage(ctx, cfg.Image); err != nil {
			return false, "", err
		}
	}

	if _, err := p.docker.CreateVolume(ctx, docker.VolumeSpec{
		Name:   cfg.VolumeName,
		Labels: map[string]string{docker.LabelManaged: "true"},
	}); err != nil {
		return false, "", fmt.Errorf("create volume %s: %w", cfg.VolumeName, err)
	}

	id, err := p.docker.CreateContainer(ctx, docker.ContainerSpec{
		Name:  cfg.Name,
		Image: cfg.Image,
		Labels: map[string]string{
			docker.LabelManaged: "true",
			docker.LabelApp:     cfg.Name,
		},
		Ports: []docker.PortBinding{
			{ContainerPort: 8000, HostPort: cfg.AgentPort},
			{ContainerPort: 9000, HostPort: cfg.UIPort},
		},
		Volumes: []docker.VolumeMount{
			{Source: cfg.SocketPath, Target: "/var/run/docker.sock"},
			{Source: cfg.VolumeName, Target: "/data"},
		},
		RestartPolicy: docker.RestartPolicy{Name: "always"},
	})
	if err != nil {
		return false, "", err
	}

	if err := p.docker.StartContainer(ctx, id); err != nil {
		return false, "", err
	}

	p.logger.Info("container started", "name", cfg.Name, "id", id)
	return false, "", nil
}
