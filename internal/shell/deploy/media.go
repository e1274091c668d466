package deploy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/artpar/dockhand/internal/core/composefile"
	"github.com/artpar/dockhand/internal/shell/run"
)

// =============================================================================
// Media Server Deployment
// =============================================================================

// MediaConfig configures the Navidrome deployment.
type MediaConfig struct {
	// Dir is the directory holding the Compose descriptor on the target.
	Dir string

	// Params parameterize the rendered descriptor.
	Params composefile.MediaParams
}

// MediaDeployer launches the music server from a generated Compose
// descriptor, the same way the proxy manager is deployed.
type MediaDeployer struct {
	runner run.Runner
	logger *slog.Logger
}

// NewMediaDeployer creates a media server deployer.
func NewMediaDeployer(runner run.Runner, logger *slog.Logger) *MediaDeployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaDeployer{
		runner: runner,
		logger: logger.With("component", "media_deploy"),
	}
}

// Deploy renders the descriptor, writes it to the target, and brings the
// service up detached.
func (m *MediaDeployer) Deploy(ctx context.Context, cfg MediaConfig) error {
	content, err := composefile.RenderMedia(cfg.Params)
	if err != nil {
		return fmt.Errorf("render descriptor: %w", err)
	}

	descriptorPath, err := writeDescriptor(ctx, m.runner, cfg.Dir, content)
	if err != nil {
		return err
	}
	m.logger.Info("wrote compose descriptor", "path", descriptorPath, "bytes", len(content))

	return composeUp(ctx, m.runner, m.logger, cfg.Dir)
}
