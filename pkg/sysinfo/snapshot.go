package sysinfo

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/deckhand-sh/deckhand/pkg/types"
)

// Sampler produces fresh resource snapshots. Implementations must not
// cache: every call reflects the host as it is now.
type Sampler interface {
	Sample() (types.ResourceSnapshot, error)
}

// HostSampler reads memory, CPU, load, and disk figures from the
// running host.
type HostSampler struct {
	// DiskPath is the filesystem statted for disk figures
	DiskPath string

	// LoadAvgPath is the load average source
	LoadAvgPath string
}

// NewHostSampler returns a sampler with the standard Linux paths.
func NewHostSampler() *HostSampler {
	return &HostSampler{
		DiskPath:    "/",
		LoadAvgPath: "/proc/loadavg",
	}
}

// Sample gathers a fresh ResourceSnapshot.
func (s *HostSampler) Sample() (types.ResourceSnapshot, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return types.ResourceSnapshot{}, fmt.Errorf("failed to read sysinfo: %w", err)
	}

	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}

	snap := types.ResourceSnapshot{
		TotalMemory:     uint64(info.Totalram) * unit,
		AvailableMemory: (uint64(info.Freeram) + uint64(info.Bufferram)) * unit,
		CPUCores:        runtime.NumCPU(),
		SampledAt:       time.Now(),
	}

	// An unparsable load average stays unknown rather than defaulting
	// to a healthy-looking zero.
	if load, ok := s.readLoad(); ok {
		snap.Load1 = load
		snap.LoadKnown = true
	}

	var fs unix.Statfs_t
	if err := unix.Statfs(s.DiskPath, &fs); err == nil {
		snap.DiskTotal = fs.Blocks * uint64(fs.Bsize)
		snap.DiskFree = fs.Bavail * uint64(fs.Bsize)
	}

	return snap, nil
}

func (s *HostSampler) readLoad() (float64, bool) {
	data, err := os.ReadFile(s.LoadAvgPath)
	if err != nil {
		return 0, false
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, false
	}
	load, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return load, true
}
