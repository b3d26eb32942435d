package sysinfo

import (
	"errors"
	"fmt"

	"github.com/deckhand-sh/deckhand/pkg/log"
	"github.com/deckhand-sh/deckhand/pkg/types"
)

const (
	// AbsoluteMemoryFloor is the hard minimum total memory. Below this
	// the service cannot safely start and deployment aborts.
	AbsoluteMemoryFloor = 1536 * 1024 * 1024

	// RecommendedAvailableMemory is the advisory free-memory threshold.
	RecommendedAvailableMemory = 512 * 1024 * 1024

	// RecommendedCPUCores is the advisory core count.
	RecommendedCPUCores = 2
)

// ErrInsufficientMemory is the fatal admission failure: total host
// memory is below the absolute floor.
var ErrInsufficientMemory = errors.New("insufficient total memory")

// WarningCode classifies non-fatal admission findings.
type WarningCode string

const (
	WarnLowAvailableMemory WarningCode = "low-available-memory"
	WarnInsufficientCPU    WarningCode = "insufficient-cpu"
	WarnLoadUnknown        WarningCode = "load-unknown"
)

// Warning is a non-fatal admission finding; the deployment continues.
type Warning struct {
	Code    WarningCode
	Message string
}

// GateResult is the outcome of one admission check.
type GateResult struct {
	Snapshot types.ResourceSnapshot
	Warnings []Warning

	// Err is non-nil only for fatal conditions
	Err error
}

// Fatal reports whether the check blocks deployment.
func (r GateResult) Fatal() bool {
	return r.Err != nil
}

// Gate is the one-shot pre-deployment admission check. It only
// observes; it has no side effects on the host.
type Gate struct {
	sampler Sampler
}

// NewGate creates a gate backed by the given sampler.
func NewGate(sampler Sampler) *Gate {
	return &Gate{sampler: sampler}
}

// Check samples host resources and applies the admission thresholds.
// Total memory below minTotal is fatal; available memory below
// minAvailable and core count below minCores only warn.
func (g *Gate) Check(minTotal, minAvailable uint64, minCores int) GateResult {
	logger := log.WithComponent("gate")

	snap, err := g.sampler.Sample()
	if err != nil {
		return GateResult{Err: fmt.Errorf("failed to sample host resources: %w", err)}
	}

	result := GateResult{Snapshot: snap}

	if snap.TotalMemory < minTotal {
		result.Err = fmt.Errorf("%w: have %d MiB, need %d MiB",
			ErrInsufficientMemory, snap.TotalMemory/(1024*1024), minTotal/(1024*1024))
		logger.Error().Err(result.Err).Msg("admission check failed")
		return result
	}

	if snap.AvailableMemory < minAvailable {
		result.Warnings = append(result.Warnings, Warning{
			Code: WarnLowAvailableMemory,
			Message: fmt.Sprintf("available memory %d MiB is below the recommended %d MiB",
				snap.AvailableMemory/(1024*1024), minAvailable/(1024*1024)),
		})
	}

	if snap.CPUCores < minCores {
		result.Warnings = append(result.Warnings, Warning{
			Code:    WarnInsufficientCPU,
			Message: fmt.Sprintf("%d CPU cores available, %d recommended", snap.CPUCores, minCores),
		})
	}

	if !snap.LoadKnown {
		result.Warnings = append(result.Warnings, Warning{
			Code:    WarnLoadUnknown,
			Message: "load average could not be read; treating as unknown",
		})
	}

	for _, w := range result.Warnings {
		logger.Warn().Str("code", string(w.Code)).Msg(w.Message)
	}

	return result
}
