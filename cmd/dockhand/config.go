package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Target    TargetConfig    `mapstructure:"target"`
	Preflight PreflightConfig `mapstructure:"preflight"`
	Packages  PackagesConfig  `mapstructure:"packages"`
	Docker    DockerConfig    `mapstructure:"docker"`
	Readiness ReadinessConfig `mapstructure:"readiness"`
	Proxy     ProxyConfig     `mapstructure:"proxy"`
	Portainer PortainerConfig `mapstructure:"portainer"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Media     MediaConfig     `mapstructure:"media"`
	Journal   JournalConfig   `mapstructure:"journal"`
}

// LogConfig holds logging configuration. Structured events go to the
// transcript file alongside command output; step lines stay on stdout.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// TargetConfig selects the provisioning target.
type TargetConfig struct {
	// Mode is "local" or "ssh".
	Mode string `mapstructure:"mode"`

	// SSH settings, used when Mode is "ssh".
	SSHHost        string        `mapstructure:"ssh_host"`
	SSHPort        int           `mapstructure:"ssh_port"`
	SSHUser        string        `mapstructure:"ssh_user"`
	SSHKeyPath     string        `mapstructure:"ssh_key_path"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// Label renders the target for the run heading and the journal.
func (c TargetConfig) Label() string {
	if c.Mode == "ssh" {
		return fmt.Sprintf("ssh://%s@%s", c.SSHUser, c.SSHHost)
	}
	return "local"
}

// PreflightConfig holds the target-identity requirements.
type PreflightConfig struct {
	OSTarget      string `mapstructure:"os_target"`
	OSReleasePath string `mapstructure:"os_release_path"`
}

// PackagesConfig holds the apt phase configuration.
type PackagesConfig struct {
	Upgrade       bool     `mapstructure:"upgrade"`
	Prerequisites []string `mapstructure:"prerequisites"`
}

// DockerConfig holds the runtime install configuration.
type DockerConfig struct {
	InstallScript string `mapstructure:"install_script"`
	ServiceUnit   string `mapstructure:"service_unit"`

	// Host is the Engine API endpoint for local targets. Empty means the
	// environment default.
	Host string `mapstructure:"host"`
}

// ReadinessConfig bounds the service activation poll.
type ReadinessConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Interval    time.Duration `mapstructure:"interval"`
	Multiplier  float64       `mapstructure:"multiplier"`
	MaxInterval time.Duration `mapstructure:"max_interval"`
}

// ProxyConfig holds the reverse-proxy manager deployment configuration.
type ProxyConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Dir            string `mapstructure:"dir"`
	Image          string `mapstructure:"image"`
	HTTPPort       int    `mapstructure:"http_port"`
	AdminPort      int    `mapstructure:"admin_port"`
	HTTPSPort      int    `mapstructure:"https_port"`
	DataDir        string `mapstructure:"data_dir"`
	LetsEncryptDir string `mapstructure:"letsencrypt_dir"`
}

// PortainerConfig holds the management UI deployment configuration.
type PortainerConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Name       string `mapstructure:"name"`
	Image      string `mapstructure:"image"`
	AgentPort  int    `mapstructure:"agent_port"`
	UIPort     int    `mapstructure:"ui_port"`
	SocketPath string `mapstructure:"socket_path"`
	VolumeName string `mapstructure:"volume_name"`
}

// AgentConfig holds the Portainer Agent deployment configuration, for
// hosts managed from a Portainer-CE instance running elsewhere.
type AgentConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Name        string `mapstructure:"name"`
	Image       string `mapstructure:"image"`
	Port        int    `mapstructure:"port"`
	SocketPath  string `mapstructure:"socket_path"`
	VolumesPath string `mapstructure:"volumes_path"`
}

// MediaConfig holds the Navidrome deployment configuration.
type MediaConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Dir      string `mapstructure:"dir"`
	Image    string `mapstructure:"image"`
	Port     int    `mapstructure:"port"`
	DataDir  string `mapstructure:"data_dir"`
	MusicDir string `mapstructure:"music_dir"`
}

// JournalConfig holds the run journal configuration.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "/var/log/dockhand.log")

	v.SetDefault("target.mode", "local")
	v.SetDefault("target.ssh_port", 22)
	v.SetDefault("target.ssh_user", "root")
	v.SetDefault("target.connect_timeout", "10s")

	v.SetDefault("preflight.os_target", "ubuntu")
	v.SetDefault("preflight.os_release_path", "/etc/os-release")

	v.SetDefault("packages.upgrade", true)
	v.SetDefault("packages.prerequisites", []string{"curl", "wget", "git"})

	v.SetDefault("docker.install_script", "https://get.docker.com")
	v.SetDefault("docker.service_unit", "docker")
	v.SetDefault("docker.host", "")

	v.SetDefault("readiness.max_attempts", 30)
	v.SetDefault("readiness.interval", "1s")
	v.SetDefault("readiness.multiplier", 1.0)
	v.SetDefault("readiness.max_interval", "0s")

	v.SetDefault("proxy.enabled", true)
	v.SetDefault("proxy.dir", "") // empty derives <home>/docker/nginx-proxy-manager
	v.SetDefault("proxy.image", "jc21/nginx-proxy-manager:latest")
	v.SetDefault("proxy.http_port", 80)
	v.SetDefault("proxy.admin_port", 81)
	v.SetDefault("proxy.https_port", 443)
	v.SetDefault("proxy.data_dir", "./data")
	v.SetDefault("proxy.letsencrypt_dir", "./letsencrypt")

	v.SetDefault("portainer.enabled", true)
	v.SetDefault("portainer.name", "portainer")
	v.SetDefault("portainer.image", "portainer/portainer-ce:latest")
	v.SetDefault("portainer.agent_port", 8000)
	v.SetDefault("portainer.ui_port", 9000)
	v.SetDefault("portainer.socket_path", "/var/run/docker.sock")
	v.SetDefault("portainer.volume_name", "portainer_data")

	v.SetDefault("agent.enabled", false)
	v.SetDefault("agent.name", "portainer_agent")
	v.SetDefault("agent.image", "portainer/agent:latest")
	v.SetDefault("agent.port", 9001)
	v.SetDefault("agent.socket_path", "/var/run/docker.sock")
	v.SetDefault("agent.volumes_path", "/var/lib/docker/volumes")

	v.SetDefault("media.enabled", false)
	v.SetDefault("media.dir", "") // empty derives <home>/docker/navidrome
	v.SetDefault("media.image", "deluan/navidrome:latest")
	v.SetDefault("media.port", 4533)
	v.SetDefault("media.data_dir", "./data")
	v.SetDefault("media.music_dir", "./music")

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.dsn", "/var/lib/dockhand/journal.db")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("DOCKHAND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Target.Mode {
	case "local":
	case "ssh":
		if c.Target.SSHHost == "" {
			return fmt.Errorf("target.ssh_host is required when target.mode is ssh")
		}
		if c.Target.SSHKeyPath == "" {
			return fmt.Errorf("target.ssh_key_path is required when target.mode is ssh")
		}
	default:
		return fmt.Errorf("target.mode must be local or ssh, got %q", c.Target.Mode)
	}

	if c.Readiness.MaxAttempts <= 0 {
		return fmt.Errorf("readiness.max_attempts must be positive")
	}
	if c.Readiness.Interval < 0 {
		return fmt.Errorf("readiness.interval must not be negative")
	}

	return nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level, writing to w.
func SetupLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
