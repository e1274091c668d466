package deploy

import (
	"context"
	"log/slog"

	"github.com/artpar/dockhand/internal/shell/docker"
)

// =============================================================================
// Portainer Agent Deployment
// =============================================================================

// AgentConfig configures the Portainer Agent deployment, for hosts managed
// from a Portainer-CE instance running elsewhere.
type AgentConfig struct {
	Name        string // container name
	Image       string
	Port        int    // agent port (default 9001)
	SocketPath  string // host Docker socket bind
	VolumesPath string // host Docker volumes bind
}

// DefaultAgentConfig returns the stock Portainer Agent deployment.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Name:        "portainer_agent",
		Image:       "portainer/agent:latest",
		Port:        9001,
		SocketPath:  "/var/run/docker.sock",
		VolumesPath: "/var/lib/docker/volumes",
	}
}

// AgentDeployer launches the agent as a directly-run container.
type AgentDeployer struct {
	docker docker.Client
	logger *slog.Logger
}

// NewAgentDeployer creates a Portainer Agent deployer.
func NewAgentDeployer(client docker.Client, logger *slog.Logger) *AgentDeployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AgentDeployer{
		docker: client,
		logger: logger.With("component", "agent_deploy"),
	}
}

// Deploy creates and starts the agent container. Same name-collision guard
// as the management UI: running means skip, stopped means start.
func (a *AgentDeployer) Deploy(ctx context.Context, cfg AgentConfig) (skipped bool, message string, err error) {
	existing, err := a.docker.FindContainerByName(ctx, cfg.Name)
	if err != nil {
		return false, "", err
	}
	if existing != nil {
		if existing.Running() {
			a.logger.Info("container already running", "name", cfg.Name, "id", existing.ID)
			return true, "already running", nil
		}
		a.logger.Info("starting existing container", "name", cfg.Name, "id", existing.ID)
		if err := a.docker.StartContainer(ctx, existing.ID); err != nil {
			return false, "", err
		}
		return false, "restarted existing container", nil
	}

	exists, err := a.docker.ImageExists(ctx, cfg.Image)
	if err != nil {
		return false, "", err
	}
	if !exists {
		a.logger.Info("pulling image", "image", cfg.Image)
		if err := a.docker.PullImage(ctx, cfg.Image); err != nil {
			return false, "", err
		}
	}

	id, err := a.docker.CreateContainer(ctx, docker.ContainerSpec{
		Name:  cfg.Name,
		Image: cfg.Image,
		Labels: map[string]string{
			docker.LabelManaged: "true",
			docker.LabelApp:     cfg.Name,
		},
		Ports: []docker.PortBinding{
			{ContainerPort: 9001, HostPort: cfg.Port},
		},
		Volumes: []docker.VolumeMount{
			{Source: cfg.SocketPath, Target: "/var/run/docker.sock"},
			{Source: cfg.VolumesPath, Target: "/var/lib/docker/volumes"},
		},
		RestartPolicy: docker.RestartPolicy{Name: "always"},
	})
	if err != nil {
		return false, "", err
	}

	if err := a.docker.StartContainer(ctx, id); err != nil {
		return false, "", err
	}

	a.logger.Info("container started", "name", cfg.Name, "id", id)
	return false, "", nil
}
