// Package provision builds and executes the provisioning pipeline: a
// linear sequence of steps from preflight checks through the application
// deployments, each reporting a result instead of exiting the process.
package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/artpar/dockhand/internal/core/osrelease"
	"github.com/artpar/dockhand/internal/core/plan"
	"github.com/artpar/dockhand/internal/shell/apt"
	"github.com/artpar/dockhand/internal/shell/deploy"
	"github.com/artpar/dockhand/internal/shell/docker"
	"github.com/artpar/dockhand/internal/shell/run"
	"github.com/artpar/dockhand/internal/shell/systemd"
)

// =============================================================================
// Step Type
// =============================================================================

// Step is one provisioning action. Run reports skipped=true with a notice
// when the step was not needed (e.g. the binary is already installed).
type Step struct {
	ID    string
	Label string
	Run   func(ctx context.Context) (skipped bool, message string, err error)
}

// =============================================================================
// Pipeline Configuration
// =============================================================================

// Config parameterizes the step sequence.
type Config struct {
	// OSTarget is the distribution the preflight check requires,
	// matched case-insensitively against the os-release ID.
	OSTarget string

	// OSReleasePath is the identity file on the target.
	OSReleasePath string

	// SudoUser is added to the docker group when set.
	SudoUser string

	// Upgrade controls whether installed packages are upgraded after the
	// index refresh.
	Upgrade bool

	// Prerequisites are installed before Docker.
	Prerequisites []string

	// DockerInstallScript is the vendor convenience installer URL.
	DockerInstallScript string

	// ServiceUnit is the container runtime's systemd unit.
	ServiceUnit string

	// Readiness bounds the service activation poll.
	Readiness plan.PollPolicy

	// ProxyEnabled/Proxy control the reverse-proxy manager deployment.
	ProxyEnabled bool
	Proxy        deploy.ProxyConfig

	// PortainerEnabled/Portainer control the management UI deployment.
	PortainerEnabled bool
	Portainer        deploy.PortainerConfig

	// AgentEnabled/Agent control the Portainer Agent deployment, for hosts
	// managed from a Portainer-CE instance running elsewhere. Off by
	// default.
	AgentEnabled bool
	Agent        deploy.AgentConfig

	// MediaEnabled/Media control the Navidrome deployment. Off by default.
	MediaEnabled bool
	Media        deploy.MediaConfig
}

// DefaultConfig returns the stock Ubuntu pipeline configuration.
func DefaultConfig() Config {
	return Config{
		OSTarget:            "ubuntu",
		OSReleasePath:       "/etc/os-release",
		Upgrade:             true,
		Prerequisites:       []string{"curl", "wget", "git"},
		DockerInstallScript: "https://get.docker.com",
		ServiceUnit:         "docker",
		Readiness:           plan.DefaultPollPolicy(),
		ProxyEnabled:        true,
		PortainerEnabled:    true,
		Portainer:           deploy.DefaultPortainerConfig(),
		Agent:               deploy.DefaultAgentConfig(),
	}
}

// Deps are the shell components the steps drive.
type Deps struct {
	Runner    run.Runner
	Apt       *apt.Manager
	Systemd   *systemd.Manager
	Docker    docker.Client
	Proxy     *deploy.ProxyDeployer
	Portainer *deploy.PortainerDeployer
	Agent     *deploy.AgentDeployer
	Media     *deploy.MediaDeployer
}

// =============================================================================
// Step Builder
// =============================================================================

// BuildSteps assembles the ordered pipeline. Preflight steps come first so
// a refused run performs no mutation.
func BuildSteps(deps Deps, cfg Config) []Step {
	steps := []Step{
		{
			ID:    "preflight-root",
			Label: "Checking root privilege",
			Run: func(ctx context.Context) (bool, string, error) {
				return false, "", checkRoot(ctx, deps.Runner)
			},
		},
		{
			ID:    "preflight-os",
			Label: fmt.Sprintf("Checking for %s", cfg.OSTarget),
			Run: func(ctx context.Context) (bool, string, error) {
				return false, "", checkOS(ctx, deps.Runner, cfg)
			},
		},
		{
			ID:    "apt-update",
			Label: "Updating package index",
			Run: func(ctx context.Context) (bool, string, error) {
				return false, "", deps.Apt.Update(ctx)
			},
		},
	}

	if cfg.Upgrade {
		steps = append(steps, Step{
			ID:    "apt-upgrade",
			Label: "Upgrading system packages",
			Run: func(ctx context.Context) (bool, string, error) {
				return false, "", deps.Apt.Upgrade(ctx)
			},
		})
	}

	steps = append(steps,
		Step{
			ID:    "prerequisites",
			Label: fmt.Sprintf("Installing prerequisites (%s)", strings.Join(cfg.Prerequisites, ", ")),
			Run: func(ctx context.Context) (bool, string, error) {
				return false, "", deps.Apt.Install(ctx, cfg.Prerequisites...)
			},
		},
		Step{
			ID:    "install-docker",
			Label: "Installing Docker-CE",
			Run: func(ctx context.Context) (bool, string, error) {
				present, err := deps.Apt.HasBinary(ctx, "docker")
				if err != nil {
					return false, "", err
				}
				if present {
					return true, "already installed", nil
				}

				res, err := deps.Runner.Run(ctx, run.Command{
					Script: fmt.Sprintf("curl -fsSL %s | sh", cfg.DockerInstallScript),
				})
				if err != nil {
					return false, "", err
				}
				if !res.Ok() {
					return false, "", fmt.Errorf("install script exited with status %d", res.ExitCode)
				}
				return false, "", nil
			},
		},
		Step{
			ID:    "docker-group",
			Label: "Adding user to docker group",
			Run: func(ctx context.Context) (bool, string, error) {
				if cfg.SudoUser == "" {
					return true, "no sudo user to add", nil
				}

				res, err := deps.Runner.Run(ctx, run.Command{
					Name: "usermod",
					Args: []string{"-aG", "docker", cfg.SudoUser},
				})
				if err != nil {
					return false, "", err
				}
				if !res.Ok() {
					return false, "", fmt.Errorf("usermod exited with status %d", res.ExitCode)
				}
				return false, fmt.Sprintf("added %s (re-login required)", cfg.SudoUser), nil
			},
		},
		Step{
			ID:    "enable-docker",
			Label: "Starting and enabling the Docker service",
			Run: func(ctx context.Context) (bool, string, error) {
				if err := deps.Systemd.Start(ctx, cfg.ServiceUnit); err != nil {
					return false, "", err
				}
				return false, "", deps.Systemd.Enable(ctx, cfg.ServiceUnit)
			},
		},
		Step{
			ID:    "install-compose",
			Label: "Installing Docker-Compose",
			Run: func(ctx context.Context) (bool, string, error) {
				present, err := deps.Apt.HasBinary(ctx, "docker-compose")
				if err != nil {
					return false, "", err
				}
				if present {
					return true, "already installed", nil
				}
				return false, "", deps.Apt.Install(ctx, "docker-compose")
			},
		},
		Step{
			ID:    "wait-docker",
			Label: "Waiting for the Docker service",
			Run: func(ctx context.Context) (bool, string, error) {
				return false, "", deps.Systemd.WaitActive(ctx, cfg.ServiceUnit, cfg.Readiness)
			},
		},
		Step{
			ID:    "ping-docker",
			Label: "Verifying Docker daemon connectivity",
			Run: func(ctx context.Context) (bool, string, error) {
				return false, "", deps.Docker.Ping(ctx)
			},
		},
	)

	if cfg.ProxyEnabled {
		steps = append(steps, Step{
			ID:    "deploy-proxy",
			Label: "Deploying NGinX Proxy Manager",
			Run: func(ctx context.Context) (bool, string, error) {
				return false, "", deps.Proxy.Deploy(ctx, cfg.Proxy)
			},
		})
	}

	if cfg.PortainerEnabled {
		steps = append(steps, Step{
			ID:    "deploy-portainer",
			Label: "Deploying Portainer-CE",
			Run: func(ctx context.Context) (bool, string, error) {
				return deps.Portainer.Deploy(ctx, cfg.Portainer)
			},
		})
	}

	if cfg.AgentEnabled {
		steps = append(steps, Step{
			ID:    "deploy-agent",
			Label: "Deploying Portainer Agent",
			Run: func(ctx context.Context) (bool, string, error) {
				return deps.Agent.Deploy(ctx, cfg.Agent)
			},
		})
	}

	if cfg.MediaEnabled {
		steps = append(steps, Step{
			ID:    "deploy-media",
			Label: "Deploying Navidrome",
			Run: func(ctx context.Context) (bool, string, error) {
				return false, "", deps.Media.Deploy(ctx, cfg.Media)
			},
		})
	}

	return steps
}

// =============================================================================
// Preflight Checks
// =============================================================================

// checkRoot verifies the effective user on the target is root.
func checkRoot(ctx context.Context, runner run.Runner) error {
	res, err := runner.Run(ctx, run.Command{Name: "id", Args: []string{"-u"}})
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("id -u exited with status %d", res.ExitCode)
	}
	if strings.TrimSpace(res.Stdout) != "0" {
		return ErrNotRoot
	}
	return nil
}

// checkOS verifies the target's os-release identity.
func checkOS(ctx context.Context, runner run.Runner, cfg Config) error {
	res, err := runner.Run(ctx, run.Command{Name: "cat", Args: []string{cfg.OSReleasePath}})
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("read %s: exit status %d: %w", cfg.OSReleasePath, res.ExitCode, ErrOSMismatch)
	}

	info := osrelease.Parse(res.Stdout)
	if !info.Matches(cfg.OSTarget) {
		return fmt.Errorf("target runs %q, need %s: %w", info.ID, cfg.OSTarget, ErrOSMismatch)
	}
	return nil
}
