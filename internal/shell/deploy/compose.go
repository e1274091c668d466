package deploy

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/artpar/dockhand/internal/shell/run"
)

// =============================================================================
// Compose Helpers
// =============================================================================

// writeDescriptor writes rendered Compose bytes into dir, creating it if
// needed, and returns the descriptor path. mkdir + cat keeps the write
// runner-portable; an SSH target gets the bytes over the session's stdin.
func writeDescriptor(ctx context.Context, runner run.Runner, dir string, content []byte) (string, error) {
	descriptorPath := path.Join(dir, "docker-compose.yml")

	res, err := runner.Run(ctx, run.Command{
		Script: fmt.Sprintf("mkdir -p %s && cat > %s",
			run.ShellQuote(dir), run.ShellQuote(descriptorPath)),
		Stdin: bytes.NewReader(content),
	})
	if err != nil {
		return "", fmt.Errorf("write descriptor: %w", err)
	}
	if !res.Ok() {
		return "", fmt.Errorf("write descriptor: exit status %d", res.ExitCode)
	}

	return descriptorPath, nil
}

// composeUp launches the descriptor in dir detached, preferring the
// standalone docker-compose binary and falling back to the compose plugin.
func composeUp(ctx context.Context, runner run.Runner, logger *slog.Logger, dir string) error {
	cmd := run.Command{Name: "docker-compose", Args: []string{"up", "-d"}, Dir: dir}

	standalone, err := runner.LookPath(ctx, "docker-compose")
	if err != nil {
		return err
	}
	if !standalone {
		cmd = run.Command{Name: "docker", Args: []string{"compose", "up", "-d"}, Dir: dir}
	}

	res, err := runner.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("%s: exit status %d", cmd.String(), res.ExitCode)
	}

	logger.Info("compose service up", "dir", dir)
	return nil
}
