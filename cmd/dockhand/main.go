// Command dockhand provisions a Docker host: it verifies the target,
// installs the container runtime and Compose, waits for the daemon, and
// deploys NGinX Proxy Manager and Portainer-CE. The same pipeline runs
// against the local machine or a remote host over SSH.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/artpar/dockhand/internal/core/composefile"
	"github.com/artpar/dockhand/internal/core/plan"
	"github.com/artpar/dockhand/internal/shell/apt"
	"github.com/artpar/dockhand/internal/shell/deploy"
	"github.com/artpar/dockhand/internal/shell/docker"
	"github.com/artpar/dockhand/internal/shell/journal"
	"github.com/artpar/dockhand/internal/shell/provision"
	"github.com/artpar/dockhand/internal/shell/run"
	"github.com/artpar/dockhand/internal/shell/systemd"
)

// Exit codes.
const (
	ExitSuccess     = 0
	ExitFailure     = 1
	ExitConfigError = 2
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	dryRun := flag.Bool("dry-run", false, "Print the step plan without executing it")
	reportOnly := flag.Bool("report-only", false, "Run every step even after a failure")
	historyLimit := flag.Int("history", 0, "Print the last N recorded runs and exit")
	flag.Parse()

	// Handle version flag
	if *showVersion {
		fmt.Printf("dockhand %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	// Load configuration
	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}

	if *historyLimit > 0 {
		j, err := journal.NewSQLiteJournal(cfg.Journal.DSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot open journal: %v\n", err)
			return ExitConfigError
		}
		defer j.Close()

		if err := printHistory(os.Stdout, j, *historyLimit); err != nil {
			fmt.Fprintf(os.Stderr, "cannot read journal: %v\n", err)
			return ExitFailure
		}
		return ExitSuccess
	}

	pipelineCfg := buildPipelineConfig(cfg)

	// The dry run needs no target connection or transcript.
	if *dryRun {
		fmt.Printf("Plan for %s:\n", cfg.Target.Label())
		for _, line := range provision.Describe(provision.BuildSteps(provision.Deps{}, pipelineCfg)) {
			fmt.Println(line)
		}
		return ExitSuccess
	}

	transcript, err := run.OpenTranscript(cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot open log file: %v\n", err)
		return ExitConfigError
	}
	defer transcript.Close()

	logger := SetupLogger(cfg, transcript)
	logger.Info("starting dockhand",
		"version", Version,
		"config", *configPath,
		"target", cfg.Target.Label(),
	)

	runner, err := buildRunner(cfg, transcript)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot reach target: %v\n", err)
		return ExitConfigError
	}
	defer runner.Close()

	dockerClient, err := buildDockerClient(cfg, runner)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot create Docker client: %v\n", err)
		return ExitConfigError
	}
	defer dockerClient.Close()

	executor := provision.NewExecutor(os.Stdout, logger)
	executor.LogPath = transcript.Path()
	executor.ReportOnly = *reportOnly

	if cfg.Journal.Enabled {
		j, err := journal.NewSQLiteJournal(cfg.Journal.DSN)
		if err != nil {
			// The journal is bookkeeping; a broken one should not block
			// provisioning.
			logger.Warn("journal unavailable, continuing without it", "error", err)
		} else {
			defer j.Close()
			executor.Journal = j
		}
	}

	deps := provision.Deps{
		Runner:    runner,
		Apt:       apt.NewManager(runner),
		Systemd:   systemd.NewManager(runner),
		Docker:    dockerClient,
		Proxy:     deploy.NewProxyDeployer(runner, logger),
		Portainer: deploy.NewPortainerDeployer(dockerClient, logger),
		Agent:     deploy.NewAgentDeployer(dockerClient, logger),
		Media:     deploy.NewMediaDeployer(runner, logger),
	}

	ctx := context.Background()
	report, err := executor.Execute(ctx, cfg.Target.Label(), provision.BuildSteps(deps, pipelineCfg))
	if err != nil {
		logger.Error("run aborted", "error", err)
		fmt.Fprintf(os.Stderr, "run aborted: %v\n", err)
		return ExitFailure
	}

	if report.Ok() {
		printEndpoints(cfg)
	}

	return report.ExitCode()
}

// buildPipelineConfig maps the file/env configuration onto the step plan.
func buildPipelineConfig(cfg *Config) provision.Config {
	p := provision.Config{
		OSTarget:            cfg.Preflight.OSTarget,
		OSReleasePath:       cfg.Preflight.OSReleasePath,
		Upgrade:             cfg.Packages.Upgrade,
		Prerequisites:       cfg.Packages.Prerequisites,
		DockerInstallScript: cfg.Docker.InstallScript,
		ServiceUnit:         cfg.Docker.ServiceUnit,
		Readiness: plan.PollPolicy{
			MaxAttempts: cfg.Readiness.MaxAttempts,
			Interval:    cfg.Readiness.Interval,
			Multiplier:  cfg.Readiness.Multiplier,
			MaxInterval: cfg.Readiness.MaxInterval,
		},
		ProxyEnabled: cfg.Proxy.Enabled,
		Proxy: deploy.ProxyConfig{
			Dir: cfg.Proxy.Dir,
			Params: composefile.ProxyParams{
				Image:          cfg.Proxy.Image,
				ServiceName:    "app",
				HTTPPort:       cfg.Proxy.HTTPPort,
				AdminPort:      cfg.Proxy.AdminPort,
				HTTPSPort:      cfg.Proxy.HTTPSPort,
				DataDir:        cfg.Proxy.DataDir,
				LetsEncryptDir: cfg.Proxy.LetsEncryptDir,
				RestartPolicy:  "unless-stopped",
			},
		},
		PortainerEnabled: cfg.Portainer.Enabled,
		Portainer: deploy.PortainerConfig{
			Name:       cfg.Portainer.Name,
			Image:      cfg.Portainer.Image,
			AgentPort:  cfg.Portainer.AgentPort,
			UIPort:     cfg.Portainer.UIPort,
			SocketPath: cfg.Portainer.SocketPath,
			VolumeName: cfg.Portainer.VolumeName,
		},
		AgentEnabled: cfg.Agent.Enabled,
		Agent: deploy.AgentConfig{
			Name:        cfg.Agent.Name,
			Image:       cfg.Agent.Image,
			Port:        cfg.Agent.Port,
			SocketPath:  cfg.Agent.SocketPath,
			VolumesPath: cfg.Agent.VolumesPath,
		},
		MediaEnabled: cfg.Media.Enabled,
		Media: deploy.MediaConfig{
			Dir: cfg.Media.Dir,
			Params: composefile.MediaParams{
				Image:          cfg.Media.Image,
				ServiceName:    "navidrome",
				Port:           cfg.Media.Port,
				DataDir:        cfg.Media.DataDir,
				MusicDir:       cfg.Media.MusicDir,
				ScanSchedule:   "1h",
				LogLevel:       "info",
				SessionTimeout: "24h",
				RestartPolicy:  "unless-stopped",
			},
		},
	}

	// Only a local sudo invocation identifies a user to add to the docker
	// group; SSH targets run as the configured remote user already.
	if cfg.Target.Mode == "local" {
		p.SudoUser = os.Getenv("SUDO_USER")
	}

	if p.Proxy.Dir == "" {
		p.Proxy.Dir = defaultAppDir(cfg, p.SudoUser, "docker/nginx-proxy-manager")
	}
	if p.Media.Dir == "" {
		p.Media.Dir = defaultAppDir(cfg, p.SudoUser, "docker/navidrome")
	}

	return p
}

// defaultAppDir places a descriptor directory under the invoking user's
// home. Under sudo that is the sudoing user's home, not root's. SSH targets
// get a path relative to the remote user's home.
func defaultAppDir(cfg *Config, sudoUser, subdir string) string {
	if cfg.Target.Mode == "ssh" {
		return subdir
	}

	if sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil && u.HomeDir != "" {
			return filepath.Join(u.HomeDir, subdir)
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, subdir)
	}
	return filepath.Join("/opt", subdir)
}

// printHistory lists the most recent recorded runs, newest first, with each
// run's step tally and any failed steps.
func printHistory(w io.Writer, j journal.Journal, limit int) error {
	ctx := context.Background()

	runs, err := j.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no recorded runs")
		return nil
	}

	for _, r := range runs {
		steps, err := j.ListSteps(ctx, r.ID)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "%s  %-9s  %s  (%d steps)\n",
			r.StartedAt.Format(time.RFC3339), r.Status, r.Target, len(steps))
		for _, s := range steps {
			if s.Status != plan.StatusFailed {
				continue
			}
			fmt.Fprintf(w, "    ✘ %s: %s\n", s.Label, s.Message)
		}
	}
	return nil
}

// buildRunner creates the command runner for the configured target.
func buildRunner(cfg *Config, transcript *run.Transcript) (run.Runner, error) {
	if cfg.Target.Mode == "ssh" {
		return run.NewSSH(run.SSHConfig{
			Host:           cfg.Target.SSHHost,
			Port:           cfg.Target.SSHPort,
			User:           cfg.Target.SSHUser,
			KeyPath:        cfg.Target.SSHKeyPath,
			ConnectTimeout: cfg.Target.ConnectTimeout,
		}, transcript)
	}
	return run.NewLocal(transcript), nil
}

// buildDockerClient picks the Docker client for the target: the Engine API
// locally, the docker CLI through the runner for SSH targets.
func buildDockerClient(cfg *Config, runner run.Runner) (docker.Client, error) {
	if cfg.Target.Mode == "ssh" {
		return docker.NewExecClient(runner), nil
	}
	return docker.NewEngineClient(cfg.Docker.Host)
}

// printEndpoints tells the operator where the deployed services live.
func printEndpoints(cfg *Config) {
	fmt.Println()
	if cfg.Proxy.Enabled {
		fmt.Printf("NGinX Proxy Manager admin UI: http://<host>:%d (default login admin@example.com / changeme)\n",
			cfg.Proxy.AdminPort)
	}
	if cfg.Portainer.Enabled {
		fmt.Printf("Portainer UI: http://<host>:%d\n", cfg.Portainer.UIPort)
	}
	if cfg.Agent.Enabled {
		fmt.Printf("Portainer Agent: add this host as an endpoint on port %d\n", cfg.Agent.Port)
	}
	if cfg.Media.Enabled {
		fmt.Printf("Navidrome UI: http://<host>:%d (create the admin account on first visit)\n", cfg.Media.Port)
	}
	if user := os.Getenv("SUDO_USER"); user != "" && cfg.Target.Mode == "local" {
		fmt.Printf("Log out and back in for %s's docker group membership to take effect.\n", user)
	}
}
