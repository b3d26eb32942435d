package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhand-sh/deckhand/pkg/types"
)

type fakeSampler struct {
	snap types.ResourceSnapshot
	err  error
}

func (s *fakeSampler) Sample() (types.ResourceSnapshot, error) {
	return s.snap, s.err
}

type fakeQuerier struct {
	status types.RuntimeStatus
	err    error
}

func (q *fakeQuerier) Status(ctx context.Context, name string) (types.RuntimeStatus, error) {
	return q.status, q.err
}

type fakeProbe struct {
	healthy bool
}

func (p *fakeProbe) Check(ctx context.Context) types.HealthCheckResult {
	return types.HealthCheckResult{
		CheckedAt: time.Now(),
		Healthy:   p.healthy,
		Message:   "probe",
	}
}

func testReporter() *Reporter {
	sampler := &fakeSampler{snap: types.ResourceSnapshot{TotalMemory: 4 << 30, CPUCores: 4, LoadKnown: true}}
	querier := &fakeQuerier{status: types.RuntimeStatus{Running: true, ContainerID: "c1", State: "running"}}
	return NewReporter("classifier-api", sampler, querier, &fakeProbe{healthy: true}).
		WithInterval(5 * time.Millisecond)
}

func TestStreamEmitsSnapshots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := testReporter().Stream(ctx)

	var got []Snapshot
	for snap := range stream {
		got = append(got, snap)
		if len(got) == 3 {
			cancel()
			break
		}
	}

	require.Len(t, got, 3)
	first := got[0]
	assert.True(t, first.Runtime.Running)
	assert.Equal(t, "c1", first.Runtime.ContainerID)
	assert.Equal(t, uint64(4<<30), first.Resources.TotalMemory)
	assert.True(t, first.Health.Healthy)
	assert.Equal(t, 1, first.Health.Attempt)
	assert.False(t, first.At.IsZero())
}

func TestStreamClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	stream := testReporter().Stream(ctx)

	<-stream
	cancel()

	// The channel must close shortly after cancellation.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-stream:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after cancellation")
		}
	}
}

func TestGatherToleratesFailures(t *testing.T) {
	sampler := &fakeSampler{err: errors.New("sysinfo unavailable")}
	querier := &fakeQuerier{err: errors.New("runtime unreachable")}
	r := NewReporter("classifier-api", sampler, querier, &fakeProbe{healthy: false})

	snap := r.gather(context.Background())

	assert.Zero(t, snap.Resources.TotalMemory)
	assert.False(t, snap.Runtime.Running)
	assert.False(t, snap.Health.Healthy, "collection failures never report as healthy")
}
