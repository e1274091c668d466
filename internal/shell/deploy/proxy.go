// Package deploy launches the pre-configured application deployments once
// the container runtime is provisioned: the reverse-proxy manager and the
// media server via generated Compose descriptors, and the
// container-management UI and its agent via direct container runs.
package deploy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/artpar/dockhand/internal/core/composefile"
	"github.com/artpar/dockhand/internal/shell/run"
)

// =============================================================================
// Proxy Manager Deployment
// =============================================================================

// ProxyConfig configures the reverse-proxy manager deployment.
type ProxyConfig struct {
	// Dir is the directory holding the Compose descriptor on the target.
	Dir string

	// Params parameterize the rendered descriptor.
	Params composefile.ProxyParams
}

// ProxyDeployer writes the descriptor and launches it detached via Compose.
// All target I/O goes through the runner so the same deployment works on
// local and SSH targets.
type ProxyDeployer struct {
	runner run.Runner
	logger *slog.Logger
}

// NewProxyDeployer creates a proxy manager deployer.
func NewProxyDeployer(runner run.Runner, logger *slog.Logger) *ProxyDeployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProxyDeployer{
		runner: runner,
		logger: logger.With("component", "proxy_deploy"),
	}
}

// Deploy renders the descriptor, writes it to the target (overwriting any
// previous run's copy), and brings the service up detached. Compose is
// idempotent for an unchanged descriptor, so re-runs are safe.
func (p *ProxyDeployer) Deploy(ctx context.Context, cfg ProxyConfig) error {
	content, err := composefile.Render(cfg.Params)
	if err != nil {
		return fmt.Errorf("render descriptor: %w", err)
	}

	descriptorPath, err := writeDescriptor(ctx, p.runner, cfg.Dir, content)
	if err != nil {
		return err
	}
	p.logger.Info("wrote compose descriptor", "path", descriptorPath, "bytes", len(content))

	return composeUp(ctx, p.runner, p.logger, cfg.Dir)
}
