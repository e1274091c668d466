package deploy

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/artpar/dockhand/internal/core/composefile"
	"github.com/artpar/dockhand/internal/shell/docker"
	"github.com/artpar/dockhand/internal/shell/run"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeRunner struct {
	commands []run.Command
	stdins   []string
	binaries map[string]bool
}

func (f *fakeRunner) Run(_ context.Context, cmd run.Command) (run.ExecResult, error) {
	f.commands = append(f.commands, cmd)
	if cmd.Stdin != nil {
		data, _ := io.ReadAll(cmd.Stdin)
		f.stdins = append(f.stdins, string(data))
	}
	return run.ExecResult{ExitCode: 0}, nil
}

func (f *fakeRunner) LookPath(_ context.Context, name string) (bool, error) {
	return f.binaries[name], nil
}

func (f *fakeRunner) Close() error { return nil }

type fakeDocker struct {
	existing   *docker.ContainerInfo
	hasImage   bool
	pulled     []string
	volumes    []docker.VolumeSpec
	containers []docker.ContainerSpec
	started    []string
}

func (f *fakeDocker) Ping(context.Context) error { return nil }
func (f *fakeDocker) Close() error               { return nil }

func (f *fakeDocker) ImageExists(_ context.Context, _ string) (bool, error) {
	return f.hasImage, nil
}

func (f *fakeDocker) PullImage(_ context.Context, image string) error {
	f.pulled = append(f.pulled, image)
	return nil
}

func (f *fakeDocker) CreateVolume(_ context.Context, spec docker.VolumeSpec) (string, error) {
	f.volumes = append(f.volumes, spec)
	return spec.Name, nil
}

func (f *fakeDocker) CreateContainer(_ context.Context, spec docker.ContainerSpec) (string, error) {
	f.containers = append(f.containers, spec)
	return "cid-1", nil
}

func (f *fakeDocker) StartContainer(_ context.Context, id string) error {
	f.started = append(f.started, id)
	return nil
}

func (f *fakeDocker) FindContainerByName(_ context.Context, _ string) (*docker.ContainerInfo, error) {
	return f.existing, nil
}

// =============================================================================
// Proxy Deployer Tests
// =============================================================================

func TestProxyDeploy_WritesDescriptorAndLaunches(t *testing.T) {
	runner := &fakeRunner{binaries: map[string]bool{"docker-compose": true}}
	deployer := NewProxyDeployer(runner, nil)

	err := deployer.Deploy(context.Background(), ProxyConfig{
		Dir:    "/home/admin/docker/nginx-proxy-manager",
		Params: composefile.DefaultProxyParams(),
	})
	require.NoError(t, err)

	require.Len(t, runner.commands, 2)

	write := runner.commands[0]
	assert.Contains(t, write.Script, "mkdir -p '/home/admin/docker/nginx-proxy-manager'")
	assert.Contains(t, write.Script, "cat > '/home/admin/docker/nginx-proxy-manager/docker-compose.yml'")
	require.Len(t, runner.stdins, 1)
	assert.Contains(t, runner.stdins[0], "jc21/nginx-proxy-manager:latest")

	up := runner.commands[1]
	assert.Equal(t, "docker-compose", up.Name)
	assert.Equal(t, []string{"up", "-d"}, up.Args)
	assert.Equal(t, "/home/admin/docker/nginx-proxy-manager", up.Dir)
}

func TestProxyDeploy_FallsBackToComposePlugin(t *testing.T) {
	runner := &fakeRunner{} // no standalone docker-compose
	deployer := NewProxyDeployer(runner, nil)

	err := deployer.Deploy(context.Background(), ProxyConfig{
		Dir:    "/root/docker/nginx-proxy-manager",
		Params: composefile.DefaultProxyParams(),
	})
	require.NoError(t, err)

	up := runner.commands[len(runner.commands)-1]
	assert.Equal(t, "docker", up.Name)
	assert.Equal(t, []string{"compose", "up", "-d"}, up.Args)
}

func TestProxyDeploy_QuotesDirWithSpaces(t *testing.T) {
	runner := &fakeRunner{binaries: map[string]bool{"docker-compose": true}}
	deployer := NewProxyDeployer(runner, nil)

	err := deployer.Deploy(context.Background(), ProxyConfig{
		Dir:    "/srv/proxy manager",
		Params: composefile.DefaultProxyParams(),
	})
	require.NoError(t, err)

	write := runner.commands[0]
	assert.Contains(t, write.Script, "mkdir -p '/srv/proxy manager'")
	assert.Contains(t, write.Script, "cat > '/srv/proxy manager/docker-compose.yml'")
}

func TestProxyDeploy_InvalidParams(t *testing.T) {
	runner := &fakeRunner{}
	deployer := NewProxyDeployer(runner, nil)

	params := composefile.DefaultProxyParams()
	params.Image = ""

	err := deployer.Deploy(context.Background(), ProxyConfig{Dir: "/tmp/x", Params: params})
	require.Error(t, err)
	// Nothing was written before validation failed.
	assert.Empty(t, runner.commands)
}

// =============================================================================
// Portainer Deployer Tests
// =============================================================================

func TestPortainerDeploy_FreshInstall(t *testing.T) {
	cli := &fakeDocker{}
	deployer := NewPortainerDeployer(cli, nil)

	skipped, _, err := deployer.Deploy(context.Background(), DefaultPortainerConfig())
	require.NoError(t, err)
	assert.False(t, skipped)

	assert.Equal(t, []string{"portainer/portainer-ce:latest"}, cli.pulled)

	require.Len(t, cli.volumes, 1)
	assert.Equal(t, "portainer_data", cli.volumes[0].Name)

	require.Len(t, cli.containers, 1)
	spec := cli.containers[0]
	assert.Equal(t, "portainer", spec.Name)
	assert.Equal(t, "always", spec.RestartPolicy.Name)
	require.Len(t, spec.Ports, 2)
	assert.Equal(t, 8000, spec.Ports[0].HostPort)
	assert.Equal(t, 9000, spec.Ports[1].HostPort)
	require.Len(t, spec.Volumes, 2)
	assert.Equal(t, "/var/run/docker.sock", spec.Volumes[0].Source)
	assert.Equal(t, "portainer_data", spec.Volumes[1].Source)

	assert.Equal(t, []string{"cid-1"}, cli.started)
}

func TestPortainerDeploy_ImagePresentSkipsPull(t *testing.T) {
	cli := &fakeDocker{hasImage: true}
	deployer := NewPortainerDeployer(cli, nil)

	_, _, err := deployer.Deploy(context.Background(), DefaultPortainerConfig())
	require.NoError(t, err)
	assert.Empty(t, cli.pulled)
}

func TestPortainerDeploy_RunningContainerSkips(t *testing.T) {
	cli := &fakeDocker{existing: &docker.ContainerInfo{
		ID:     "old-id",
		Name:   "portainer",
		Status: docker.ContainerStatusRunning,
	}}
	deployer := NewPortainerDeployer(cli, nil)

	skipped, message, err := deployer.Deploy(context.Background(), DefaultPortainerConfig())
	require.NoError(t, err)
	assert.True(t, skipped)
	assert.Equal(t, "already running", message)
	assert.Empty(t, cli.containers)
	assert.Empty(t, cli.started)
}

func TestPortainerDeploy_StoppedContainerRestarts(t *testing.T) {
	cli := &fakeDocker{existing: &docker.ContainerInfo{
		ID:     "old-id",
		Name:   "portainer",
		Status: docker.ContainerStatusExited,
	}}
	deployer := NewPortainerDeployer(cli, nil)

	skipped, message, err := deployer.Deploy(context.Background(), DefaultPortainerConfig())
	require.NoError(t, err)
	assert.False(t, skipped)
	assert.True(t, strings.Contains(message, "restarted"))
	assert.Equal(t, []string{"old-id"}, cli.started)
	assert.Empty(t, cli.containers)
}

// =============================================================================
// Agent Deployer Tests
// =============================================================================

func TestAgentDeploy_FreshInstall(t *testing.T) {
	cli := &fakeDocker{}
	deployer := NewAgentDeployer(cli, nil)

	skipped, _, err := deployer.Deploy(context.Background(), DefaultAgentConfig())
	require.NoError(t, err)
	assert.False(t, skipped)

	assert.Equal(t, []string{"portainer/agent:latest"}, cli.pulled)
	// The agent binds host paths directly; no named volume is created.
	assert.Empty(t, cli.volumes)

	require.Len(t, cli.containers, 1)
	spec := cli.containers[0]
	assert.Equal(t, "portainer_agent", spec.Name)
	assert.Equal(t, "always", spec.RestartPolicy.Name)
	require.Len(t, spec.Ports, 1)
	assert.Equal(t, 9001, spec.Ports[0].HostPort)
	assert.Equal(t, 9001, spec.Ports[0].ContainerPort)
	require.Len(t, spec.Volumes, 2)
	assert.Equal(t, "/var/run/docker.sock", spec.Volumes[0].Source)
	assert.Equal(t, "/var/lib/docker/volumes", spec.Volumes[1].Source)
	assert.Equal(t, "/var/lib/docker/volumes", spec.Volumes[1].Target)

	assert.Equal(t, []string{"cid-1"}, cli.started)
}

func TestAgentDeploy_RunningContainerSkips(t *testing.T) {
	cli := &fakeDocker{existing: &docker.ContainerInfo{
		ID:     "agent-id",
		Name:   "portainer_agent",
		Status: docker.ContainerStatusRunning,
	}}
	deployer := NewAgentDeployer(cli, nil)

	skipped, message, err := deployer.Deploy(context.Background(), DefaultAgentConfig())
	require.NoError(t, err)
	assert.True(t, skipped)
	assert.Equal(t, "already running", message)
	assert.Empty(t, cli.containers)
	assert.Empty(t, cli.started)
}

func TestAgentDeploy_StoppedContainerRestarts(t *testing.T) {
	cli := &fakeDocker{existing: &docker.ContainerInfo{
		ID:     "agent-id",
		Name:   "portainer_agent",
		Status: docker.ContainerStatusExited,
	}}
	deployer := NewAgentDeployer(cli, nil)

	skipped, message, err := deployer.Deploy(context.Background(), DefaultAgentConfig())
	require.NoError(t, err)
	assert.False(t, skipped)
	assert.True(t, strings.Contains(message, "restarted"))
	assert.Equal(t, []string{"agent-id"}, cli.started)
	assert.Empty(t, cli.containers)
}

// =============================================================================
// Media Deployer Tests
// =============================================================================

func TestMediaDeploy_WritesDescriptorAndLaunches(t *testing.T) {
	runner := &fakeRunner{binaries: map[string]bool{"docker-compose": true}}
	deployer := NewMediaDeployer(runner, nil)

	err := deployer.Deploy(context.Background(), MediaConfig{
		Dir:    "/home/admin/docker/navidrome",
		Params: composefile.DefaultMediaParams(),
	})
	require.NoError(t, err)

	require.Len(t, runner.commands, 2)

	write := runner.commands[0]
	assert.Contains(t, write.Script, "mkdir -p '/home/admin/docker/navidrome'")
	assert.Contains(t, write.Script, "cat > '/home/admin/docker/navidrome/docker-compose.yml'")
	require.Len(t, runner.stdins, 1)
	assert.Contains(t, runner.stdins[0], "deluan/navidrome:latest")
	assert.Contains(t, runner.stdins[0], "ND_SCANSCHEDULE")

	up := runner.commands[1]
	assert.Equal(t, "docker-compose", up.Name)
	assert.Equal(t, []string{"up", "-d"}, up.Args)
	assert.Equal(t, "/home/admin/docker/navidrome", up.Dir)
}

func TestMediaDeploy_InvalidParams(t *testing.T) {
	runner := &fakeRunner{}
	deployer := NewMediaDeployer(runner, nil)

	params := composefile.DefaultMediaParams()
	params.Image = ""

	err := deployer.Deploy(context.Background(), MediaConfig{Dir: "/tmp/x", Params: params})
	require.Error(t, err)
	assert.Empty(t, runner.commands)
}
