package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhand-sh/deckhand/pkg/config"
)

type runResult struct {
	out []byte
	err error
}

// fakeRunner records every invocation and replays canned results in
// order.
type fakeRunner struct {
	calls   [][]string
	results []runResult
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	if len(r.results) == 0 {
		return nil, nil
	}
	res := r.results[0]
	r.results = r.results[1:]
	return res.out, res.err
}

func buildConfig(t *testing.T, withDockerfile bool) config.DeploymentConfig {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.BuildContext = t.TempDir()
	if withDockerfile {
		path := filepath.Join(cfg.Paths.BuildContext, "Dockerfile")
		require.NoError(t, os.WriteFile(path, []byte("FROM scratch\n"), 0644))
	}
	return cfg
}

func TestBuildMissingDockerfile(t *testing.T) {
	runner := &fakeRunner{}
	cfg := buildConfig(t, false)

	_, err := NewBuilder().WithRunner(runner).Build(context.Background(), cfg)

	assert.True(t, errors.Is(err, ErrNoBuildDescriptor))
	assert.Empty(t, runner.calls, "no engine command may run without a build descriptor")
}

func TestBuildSuccess(t *testing.T) {
	runner := &fakeRunner{results: []runResult{
		{out: []byte("Successfully built\n")},
		{out: []byte("sha256:f00dfeed 734003200\n")},
	}}
	cfg := buildConfig(t, true)
	cfg.Version = "1.0.0"

	ref, err := NewBuilder().WithRunner(runner).Build(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "localhost:5000/classifier-api:1.0.0", ref.Image)
	assert.Equal(t, "sha256:f00dfeed", ref.ID)
	assert.Equal(t, int64(734003200), ref.SizeBytes)

	require.Len(t, runner.calls, 2)
	build := runner.calls[0]
	assert.Equal(t, "docker", build[0])
	assert.Equal(t, "build", build[1])
	assert.Contains(t, build, "--memory")
	assert.Contains(t, build, "1024m")
	assert.Contains(t, build, "--cpu-quota")
	assert.Contains(t, build, "100000")
	assert.Equal(t, cfg.Paths.BuildContext, build[len(build)-1])
}

func TestBuildEngineFailure(t *testing.T) {
	runner := &fakeRunner{results: []runResult{
		{out: []byte("Step 3/5 : RUN make\nerror: make failed\n"), err: errors.New("exit status 1")},
	}}
	cfg := buildConfig(t, true)

	_, err := NewBuilder().WithRunner(runner).Build(context.Background(), cfg)

	var buildErr *BuildError
	require.True(t, errors.As(err, &buildErr))
	assert.Contains(t, buildErr.Output, "make failed")
	assert.Len(t, runner.calls, 1, "inspect must not run after a failed build")
}

func TestBuildInspectFailureTolerated(t *testing.T) {
	runner := &fakeRunner{results: []runResult{
		{out: []byte("Successfully built\n")},
		{err: errors.New("exit status 1")},
	}}
	cfg := buildConfig(t, true)

	ref, err := NewBuilder().WithRunner(runner).Build(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, cfg.ImageRef(), ref.Image)
	assert.Empty(t, ref.ID)
	assert.Zero(t, ref.SizeBytes)
}

func TestBuildCustomEngine(t *testing.T) {
	runner := &fakeRunner{}
	cfg := buildConfig(t, true)

	_, err := NewBuilder().WithEngine("podman").WithRunner(runner).Build(context.Background(), cfg)
	require.NoError(t, err)

	require.NotEmpty(t, runner.calls)
	assert.Equal(t, "podman", runner.calls[0][0])
}
