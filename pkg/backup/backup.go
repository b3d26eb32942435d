package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
	"gopkg.in/yaml.v3"

	"github.com/deckhand-sh/deckhand/pkg/config"
	"github.com/deckhand-sh/deckhand/pkg/log"
	"github.com/deckhand-sh/deckhand/pkg/metrics"
	"github.com/deckhand-sh/deckhand/pkg/sysinfo"
	"github.com/deckhand-sh/deckhand/pkg/types"
)

const (
	// RetentionCount is how many snapshots survive pruning.
	RetentionCount = 3

	// TimestampLayout keys backup directories and doubles as the
	// record's identity.
	TimestampLayout = "20060102_150405"

	// LogRetention is the age beyond which the clean operation prunes
	// log files, by modification time.
	LogRetention = 7 * 24 * time.Hour
)

// Manager takes configuration/log snapshots and enforces retention.
type Manager struct {
	sampler sysinfo.Sampler
	now     func() time.Time
}

// NewManager creates a backup manager.
func NewManager(sampler sysinfo.Sampler) *Manager {
	return &Manager{
		sampler: sampler,
		now:     time.Now,
	}
}

// WithNow overrides the time source, used by tests to key snapshots.
func (m *Manager) WithNow(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Snapshot copies the fixed artifact set (logs, rendered descriptor,
// environment file if present) into a timestamp-keyed directory and
// writes a metadata record. Backups are a production-only opt-in given
// the tight memory ceiling: when disabled or outside production the
// call is a no-op returning (nil, nil). After a successful snapshot the
// retention rule prunes everything beyond the most recent three.
func (m *Manager) Snapshot(cfg config.DeploymentConfig) (*types.BackupRecord, error) {
	logger := log.WithComponent("backup")

	if !cfg.BackupEnabled || cfg.Environment != types.EnvProduction {
		logger.Debug().
			Bool("enabled", cfg.BackupEnabled).
			Str("environment", string(cfg.Environment)).
			Msg("backups not active, skipping snapshot")
		return nil, nil
	}

	createdAt := m.now()
	dir := filepath.Join(cfg.Paths.BackupsDir, createdAt.Format(TimestampLayout))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	// Each artifact is copied best-effort; a missing source is skipped.
	m.copyTree(filepath.Join(dir, "logs"), cfg.Paths.LogsDir, logger)
	m.copyFile(dir, filepath.Join(cfg.Paths.DataDir, "descriptor.yaml"), logger)
	m.copyFile(dir, cfg.Paths.EnvFile, logger)

	snap, err := m.sampler.Sample()
	if err != nil {
		logger.Warn().Err(err).Msg("failed to sample resources for backup metadata")
	}

	hostname, _ := os.Hostname()
	meta := types.BackupMetadata{
		Hostname:  hostname,
		Kernel:    kernelVersion(),
		Resources: snap,
		Config:    cfg.EnvVars(),
	}

	data, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal backup metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.yaml"), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write backup metadata: %w", err)
	}

	record := &types.BackupRecord{
		CreatedAt: createdAt,
		Path:      dir,
		Metadata:  meta,
	}

	metrics.BackupsTotal.Inc()
	logger.Info().Str("path", dir).Msg("backup snapshot written")

	m.prune(cfg.Paths.BackupsDir, logger)

	return record, nil
}

// prune deletes every snapshot beyond the RetentionCount most recent.
// Cleanup is best-effort and never fails the calling operation.
func (m *Manager) prune(backupsDir string, logger zerolog.Logger) {
	entries, err := os.ReadDir(backupsDir)
	if err != nil {
		return
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(TimestampLayout, e.Name()); err != nil {
			continue
		}
		names = append(names, e.Name())
	}

	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	for _, name := range names[min(len(names), RetentionCount):] {
		if err := os.RemoveAll(filepath.Join(backupsDir, name)); err != nil {
			logger.Warn().Err(err).Str("backup", name).Msg("failed to prune backup")
			continue
		}
		metrics.BackupsPruned.Inc()
		logger.Info().Str("backup", name).Msg("pruned old backup")
	}
}

// CleanLogs deletes files under dir with a modification time older than
// maxAge. Deletion failures are swallowed; the removed count is
// returned for reporting.
func (m *Manager) CleanLogs(dir string, maxAge time.Duration) int {
	logger := log.WithComponent("backup")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	cutoff := m.now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			logger.Warn().Err(err).Str("file", e.Name()).Msg("failed to remove old log")
			continue
		}
		removed++
	}

	if removed > 0 {
		logger.Info().Int("removed", removed).Str("dir", dir).Msg("pruned old logs")
	}
	return removed
}

func (m *Manager) copyFile(dstDir, src string, logger zerolog.Logger) {
	in, err := os.Open(src)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("file", src).Msg("failed to open backup source")
		}
		return
	}
	defer in.Close()

	out, err := os.Create(filepath.Join(dstDir, filepath.Base(src)))
	if err != nil {
		logger.Warn().Err(err).Str("file", src).Msg("failed to create backup copy")
		return
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		logger.Warn().Err(err).Str("file", src).Msg("failed to copy backup source")
	}
}

func (m *Manager) copyTree(dstDir, srcDir string, logger zerolog.Logger) {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return
	}
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m.copyFile(dstDir, filepath.Join(srcDir, e.Name()), logger)
	}
}

func kernelVersion() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return ""
	}
	return unix.ByteSliceToString(u.Release[:])
}
