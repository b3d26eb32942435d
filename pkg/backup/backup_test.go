package backup

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/deckhand-sh/deckhand/pkg/config"
	"github.com/deckhand-sh/deckhand/pkg/types"
)

type fakeSampler struct {
	snap types.ResourceSnapshot
}

func (s *fakeSampler) Sample() (types.ResourceSnapshot, error) {
	return s.snap, nil
}

func backupConfig(t *testing.T) config.DeploymentConfig {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Environment = types.EnvProduction
	cfg.BackupEnabled = true
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.LogsDir = filepath.Join(root, "logs")
	cfg.Paths.BackupsDir = filepath.Join(root, "backups")
	cfg.Paths.EnvFile = filepath.Join(root, ".env")
	return cfg
}

// steppingNow returns a time source that advances one second per call,
// so every snapshot gets a distinct timestamp key.
func steppingNow() func() time.Time {
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func TestSnapshotWritesRecordAndMetadata(t *testing.T) {
	cfg := backupConfig(t)
	require.NoError(t, os.MkdirAll(cfg.Paths.LogsDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Paths.LogsDir, "classifier-api.log"), []byte("line\n"), 0644))
	require.NoError(t, os.WriteFile(cfg.Paths.EnvFile, []byte("ENVIRONMENT=production\n"), 0644))
	require.NoError(t, os.MkdirAll(cfg.Paths.DataDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Paths.DataDir, "descriptor.yaml"), []byte("service: classifier-api\n"), 0644))

	mgr := NewManager(&fakeSampler{}).WithNow(steppingNow())

	record, err := mgr.Snapshot(cfg)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.DirExists(t, record.Path)
	assert.FileExists(t, filepath.Join(record.Path, "metadata.yaml"))
	assert.FileExists(t, filepath.Join(record.Path, "descriptor.yaml"))
	assert.FileExists(t, filepath.Join(record.Path, ".env"))
	assert.FileExists(t, filepath.Join(record.Path, "logs", "classifier-api.log"))

	data, err := os.ReadFile(filepath.Join(record.Path, "metadata.yaml"))
	require.NoError(t, err)
	var meta types.BackupMetadata
	require.NoError(t, yaml.Unmarshal(data, &meta))
	assert.Equal(t, "production", meta.Config["ENVIRONMENT"])
}

func TestSnapshotRetention(t *testing.T) {
	cfg := backupConfig(t)
	mgr := NewManager(&fakeSampler{}).WithNow(steppingNow())

	var paths []string
	for i := 0; i < 5; i++ {
		record, err := mgr.Snapshot(cfg)
		require.NoError(t, err)
		require.NotNil(t, record)
		paths = append(paths, record.Path)
	}

	entries, err := os.ReadDir(cfg.Paths.BackupsDir)
	require.NoError(t, err)
	require.Len(t, entries, RetentionCount)

	var kept []string
	for _, e := range entries {
		kept = append(kept, e.Name())
	}
	sort.Strings(kept)

	// The three newest snapshot keys survive; the two oldest are gone.
	for i, path := range paths[len(paths)-RetentionCount:] {
		assert.Equal(t, filepath.Base(path), kept[i])
	}
	for _, path := range paths[:len(paths)-RetentionCount] {
		assert.NoDirExists(t, path)
	}
}

func TestSnapshotIgnoresForeignDirectories(t *testing.T) {
	cfg := backupConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Paths.BackupsDir, "keep-me"), 0755))

	mgr := NewManager(&fakeSampler{}).WithNow(steppingNow())
	for i := 0; i < 4; i++ {
		_, err := mgr.Snapshot(cfg)
		require.NoError(t, err)
	}

	assert.DirExists(t, filepath.Join(cfg.Paths.BackupsDir, "keep-me"))
}

func TestSnapshotNoOpWhenDisabled(t *testing.T) {
	cfg := backupConfig(t)
	cfg.BackupEnabled = false

	record, err := NewManager(&fakeSampler{}).Snapshot(cfg)
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.NoDirExists(t, cfg.Paths.BackupsDir)
}

func TestSnapshotNoOpOutsideProduction(t *testing.T) {
	cfg := backupConfig(t)
	cfg.Environment = types.EnvDevelopment

	record, err := NewManager(&fakeSampler{}).Snapshot(cfg)
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.NoDirExists(t, cfg.Paths.BackupsDir)
}

func TestCleanLogs(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-8 * 24 * time.Hour)

	for _, name := range []string{"old-1.log", "old-2.log"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		require.NoError(t, os.Chtimes(path, old, old))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fresh.log"), []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))

	removed := NewManager(&fakeSampler{}).CleanLogs(dir, LogRetention)

	assert.Equal(t, 2, removed)
	assert.NoFileExists(t, filepath.Join(dir, "old-1.log"))
	assert.NoFileExists(t, filepath.Join(dir, "old-2.log"))
	assert.FileExists(t, filepath.Join(dir, "fresh.log"))
	assert.DirExists(t, filepath.Join(dir, "nested"))
}

func TestCleanLogsMissingDir(t *testing.T) {
	removed := NewManager(&fakeSampler{}).CleanLogs(filepath.Join(t.TempDir(), "absent"), LogRetention)
	assert.Zero(t, removed)
}
