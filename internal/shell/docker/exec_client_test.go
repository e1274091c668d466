package docker

import (
	"context"
	"strings"
	"testing"

	"github.com/artpar/dockhand/internal/shell/run"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Fake Runner
// =============================================================================

type fakeRunner struct {
	commands []run.Command
	results  []run.ExecResult
}

func (f *fakeRunner) Run(_ context.Context, cmd run.Command) (run.ExecResult, error) {
	f.commands = append(f.commands, cmd)
	if len(f.results) == 0 {
		return run.ExecResult{}, nil
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res, nil
}

func (f *fakeRunner) LookPath(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (f *fakeRunner) Close() error { return nil }

func (f *fakeRunner) lastArgs() []string {
	return f.commands[len(f.commands)-1].Args
}

// =============================================================================
// ExecClient Tests
// =============================================================================

func TestExecClient_Ping(t *testing.T) {
	runner := &fakeRunner{results: []run.ExecResult{{ExitCode: 0, Stdout: "27.0.3\n"}}}
	cli := NewExecClient(runner)

	require.NoError(t, cli.Ping(context.Background()))
	assert.Equal(t, []string{"info", "--format", "{{.ServerVersion}}"}, runner.lastArgs())
}

func TestExecClient_Ping_DaemonDown(t *testing.T) {
	runner := &fakeRunner{results: []run.ExecResult{
		{ExitCode: 1, Stderr: "Cannot connect to the Docker daemon"},
	}}
	cli := NewExecClient(runner)

	err := cli.Ping(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestExecClient_ImageExists(t *testing.T) {
	runner := &fakeRunner{results: []run.ExecResult{
		{ExitCode: 0},
		{ExitCode: 1, Stderr: "Error: No such image"},
	}}
	cli := NewExecClient(runner)

	exists, err := cli.ImageExists(context.Background(), "portainer/portainer-ce:latest")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = cli.ImageExists(context.Background(), "portainer/portainer-ce:latest")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExecClient_CreateVolume(t *testing.T) {
	runner := &fakeRunner{results: []run.ExecResult{{ExitCode: 0, Stdout: "portainer_data\n"}}}
	cli := NewExecClient(runner)

	name, err := cli.CreateVolume(context.Background(), VolumeSpec{Name: "portainer_data"})
	require.NoError(t, err)
	assert.Equal(t, "portainer_data", name)
	assert.Equal(t, []string{"volume", "create", "portainer_data"}, runner.lastArgs())
}

func TestExecClient_CreateContainer_BuildsRunArgs(t *testing.T) {
	runner := &fakeRunner{results: []run.ExecResult{{ExitCode: 0, Stdout: "abc123\n"}}}
	cli := NewExecClient(runner)

	id, err := cli.CreateContainer(context.Background(), ContainerSpec{
		Name:  "portainer",
		Image: "portainer/portainer-ce:latest",
		Ports: []PortBinding{
			{ContainerPort: 8000, HostPort: 8000},
			{ContainerPort: 9000, HostPort: 9000},
		},
		Volumes: []VolumeMount{
			{Source: "/var/run/docker.sock", Target: "/var/run/docker.sock"},
			{Source: "portainer_data", Target: "/data"},
		},
		RestartPolicy: RestartPolicy{Name: "always"},
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)

	joined := strings.Join(runner.lastArgs(), " ")
	assert.Contains(t, joined, "create --name portainer")
	assert.Contains(t, joined, "--restart always")
	assert.Contains(t, joined, "-p 8000:8000/tcp")
	assert.Contains(t, joined, "-p 9000:9000/tcp")
	assert.Contains(t, joined, "-v /var/run/docker.sock:/var/run/docker.sock")
	assert.Contains(t, joined, "-v portainer_data:/data")
	assert.True(t, strings.HasSuffix(joined, "portainer/portainer-ce:latest"))
}

func TestExecClient_CreateContainer_NameConflict(t *testing.T) {
	runner := &fakeRunner{results: []run.ExecResult{
		{ExitCode: 125, Stderr: `Error response from daemon: Conflict. The container name "/portainer" is already in use`},
	}}
	cli := NewExecClient(runner)

	_, err := cli.CreateContainer(context.Background(), ContainerSpec{Name: "portainer", Image: "portainer/portainer-ce:latest"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContainerAlreadyExists)
}

func TestExecClient_CreateContainer_PortAllocated(t *testing.T) {
	runner := &fakeRunner{results: []run.ExecResult{
		{ExitCode: 125, Stderr: "Error: port is already allocated"},
	}}
	cli := NewExecClient(runner)

	_, err := cli.CreateContainer(context.Background(), ContainerSpec{Name: "portainer", Image: "img"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPortAlreadyAllocated)
}

func TestExecClient_StartContainer_NotFound(t *testing.T) {
	runner := &fakeRunner{results: []run.ExecResult{
		{ExitCode: 1, Stderr: "Error response from daemon: No such container: xyz"},
	}}
	cli := NewExecClient(runner)

	err := cli.StartContainer(context.Background(), "xyz")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContainerNotFound)
}

func TestExecClient_FindContainerByName(t *testing.T) {
	runner := &fakeRunner{results: []run.ExecResult{
		{ExitCode: 0, Stdout: "abc123\tportainer\trunning\tportainer/portainer-ce:latest\t2025-06-01 12:00:00 +0000 UTC\n"},
	}}
	cli := NewExecClient(runner)

	info, err := cli.FindContainerByName(context.Background(), "portainer")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "abc123", info.ID)
	assert.Equal(t, ContainerStatusRunning, info.Status)
	assert.True(t, info.Running())
	assert.False(t, info.CreatedAt.IsZero())
}

func TestExecClient_FindContainerByName_Absent(t *testing.T) {
	runner := &fakeRunner{results: []run.ExecResult{{ExitCode: 0, Stdout: "\n"}}}
	cli := NewExecClient(runner)

	info, err := cli.FindContainerByName(context.Background(), "portainer")
	require.NoError(t, err)
	assert.Nil(t, info)
}
