package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhand-sh/deckhand/pkg/types"
)

func TestParseMemory(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{"1536m", 1536 * 1024 * 1024, false},
		{"2g", 2 * 1024 * 1024 * 1024, false},
		{"512k", 512 * 1024, false},
		{"1048576", 1048576, false},
		{"  1536M ", 1536 * 1024 * 1024, false},
		{"abc", 0, true},
		{"", 0, true},
		{"-5m", 0, true},
		{"0", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMemory(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFromEnvDefaults(t *testing.T) {
	// Empty values count as absent and fall back to defaults.
	for _, key := range []string{
		EnvKeyEnvironment, EnvKeyMaxMemory, EnvKeyMaxCPUs,
		EnvKeyWorkerProcs, EnvKeyWorkerThreads, EnvKeyMaxRequests,
		EnvKeyBackupEnabled,
	} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, types.EnvDevelopment, cfg.Environment)
	assert.False(t, cfg.BackupEnabled)
	assert.Equal(t, int64(1536*1024*1024), cfg.MaxMemoryBytes)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv(EnvKeyEnvironment, "production")
	t.Setenv(EnvKeyMaxMemory, "2g")
	t.Setenv(EnvKeyMaxCPUs, "1.5")
	t.Setenv(EnvKeyWorkerProcs, "4")
	t.Setenv(EnvKeyWorkerThreads, "8")
	t.Setenv(EnvKeyMaxRequests, "500")
	t.Setenv(EnvKeyBackupEnabled, "true")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, types.EnvProduction, cfg.Environment)
	assert.Equal(t, int64(2*1024*1024*1024), cfg.MaxMemoryBytes)
	assert.Equal(t, 1.5, cfg.MaxCPUs)
	assert.Equal(t, 4, cfg.WorkerProcesses)
	assert.Equal(t, 8, cfg.WorkerThreads)
	assert.Equal(t, 500, cfg.MaxRequestsPerWorker)
	assert.True(t, cfg.BackupEnabled)
}

func TestFromEnvMalformed(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{EnvKeyEnvironment, "staging"},
		{EnvKeyMaxMemory, "lots"},
		{EnvKeyMaxCPUs, "-1"},
		{EnvKeyWorkerProcs, "zero"},
		{EnvKeyBackupEnabled, "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deckhand.yaml")
	content := []byte(`
environment: production
version: "1.2.0"
max_memory_bytes: 2147483648
service_port: 9000
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, types.EnvProduction, cfg.Environment)
	assert.Equal(t, "1.2.0", cfg.Version)
	assert.Equal(t, int64(2147483648), cfg.MaxMemoryBytes)
	assert.Equal(t, 9000, cfg.ServicePort)
	// Untouched fields keep their defaults.
	assert.Equal(t, Default().Image, cfg.Image)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestImageRef(t *testing.T) {
	cfg := Default()
	cfg.Registry = "registry.example.com"
	cfg.Image = "api"
	cfg.Version = "2.0.1"
	assert.Equal(t, "registry.example.com/api:2.0.1", cfg.ImageRef())
}

func TestEnvVars(t *testing.T) {
	cfg := Default()
	vars := cfg.EnvVars()

	assert.Equal(t, "development", vars["ENVIRONMENT"])
	assert.Equal(t, "8000", vars["API_PORT"])
	assert.Equal(t, "1536m", vars["MAX_MEMORY"])
	assert.Equal(t, "1", vars["MAX_CPUS"])
}
