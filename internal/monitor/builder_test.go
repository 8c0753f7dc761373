package monitor

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/runtime-insight/agent/internal/metrics/dynamic"
	"github.com/runtime-insight/agent/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCounters advances every counter a fixed step per read
type fakeCounters struct {
	mu        sync.Mutex
	total     time.Duration
	process   time.Duration
	cpuOK     bool
	memoryMB  float64
	memoryOK  bool
	rx, tx    dynamic.Counter
	read, wrt dynamic.Counter
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{
		cpuOK:    true,
		memoryMB: 42.5,
		memoryOK: true,
		rx:       dynamic.Some(1000),
		tx:       dynamic.Some(2000),
		read:     dynamic.Some(3000),
		wrt:      dynamic.Some(4000),
	}
}

func (f *fakeCounters) CPUTimes(context.Context) (time.Duration, time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total += 100 * time.Millisecond
	f.process += 10 * time.Millisecond
	return f.total, f.process, f.cpuOK
}

func (f *fakeCounters) ResidentMB(context.Context) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.memoryMB, f.memoryOK
}

func (f *fakeCounters) NetworkBytes(context.Context) (dynamic.Counter, dynamic.Counter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rx, f.tx
}

func (f *fakeCounters) DiskBytes(context.Context) (dynamic.Counter, dynamic.Counter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read, f.wrt
}

func (f *fakeCounters) sources() dynamic.Sources {
	return dynamic.Sources{
		CPUTimes: f,
		Memory:   f,
		Network:  f,
		Disk:     f,
		Cores:    1,
	}
}

func sampleKeys(t *testing.T, s *models.MetricSample) map[string]any {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestBuildAllDisabledOnlyTimestamp(t *testing.T) {
	b := NewSampleBuilder(newFakeCounters().sources())
	now := time.UnixMilli(1_700_000_000_123)

	for i := 0; i < 3; i++ {
		s := b.Build(context.Background(), models.MetricsConfig{IntervalMs: 10}, now)
		keys := sampleKeys(t, s)
		assert.Equal(t, map[string]any{"timestampMs": float64(1_700_000_000_123)}, keys)
	}
}

func TestBuildAllEnabled(t *testing.T) {
	b := NewSampleBuilder(newFakeCounters().sources())
	ctx := context.Background()
	cfg := models.DefaultMetricsConfig()

	first := b.Build(ctx, cfg, time.Now())
	require.NotNil(t, first.CPUPercent)
	assert.Equal(t, 0.0, *first.CPUPercent, "first tick only sets the baseline")
	require.NotNil(t, first.MemoryMB)
	assert.Equal(t, 42.5, *first.MemoryMB)
	assert.Equal(t, uint64(1000), *first.NetworkRxBytes)
	assert.Equal(t, uint64(2000), *first.NetworkTxBytes)
	assert.Equal(t, uint64(3000), *first.DiskReadBytes)
	assert.Equal(t, uint64(4000), *first.DiskWriteBytes)

	second := b.Build(ctx, cfg, time.Now())
	require.NotNil(t, second.CPUPercent)
	assert.InDelta(t, 10.0, *second.CPUPercent, 1e-9)
}

func TestBuildDegradesPerSource(t *testing.T) {
	f := newFakeCounters()
	f.cpuOK = false
	f.memoryOK = false
	f.rx = dynamic.Counter{}
	f.wrt = dynamic.Counter{}
	b := NewSampleBuilder(f.sources())

	s := b.Build(context.Background(), models.DefaultMetricsConfig(), time.Now())

	require.NotNil(t, s.CPUPercent)
	assert.Equal(t, 0.0, *s.CPUPercent)
	require.NotNil(t, s.MemoryMB, "memory reports 0 on failure")
	assert.Equal(t, 0.0, *s.MemoryMB)
	assert.Nil(t, s.NetworkRxBytes)
	require.NotNil(t, s.NetworkTxBytes)
	assert.Equal(t, uint64(2000), *s.NetworkTxBytes)
	require.NotNil(t, s.DiskReadBytes)
	assert.Nil(t, s.DiskWriteBytes)
}

func TestBuildMissingSources(t *testing.T) {
	b := NewSampleBuilder(dynamic.Sources{})
	s := b.Build(context.Background(), models.DefaultMetricsConfig(), time.Now())

	keys := sampleKeys(t, s)
	assert.Contains(t, keys, "cpuPercent")
	assert.Contains(t, keys, "memoryMb")
	assert.NotContains(t, keys, "networkRxBytes")
	assert.NotContains(t, keys, "diskReadBytes")
}

func TestBuildTracksCPUWhileDisabled(t *testing.T) {
	b := NewSampleBuilder(newFakeCounters().sources())
	ctx := context.Background()

	b.Build(ctx, models.MetricsConfig{IntervalMs: 10}, time.Now())

	// Baseline was taken on the disabled tick, so enabling cpu yields a real value at once
	s := b.Build(ctx, models.MetricsConfig{CPU: true, IntervalMs: 10}, time.Now())
	require.NotNil(t, s.CPUPercent)
	assert.InDelta(t, 10.0, *s.CPUPercent, 1e-9)

	b.Reset()
	s = b.Build(ctx, models.MetricsConfig{CPU: true, IntervalMs: 10}, time.Now())
	assert.Equal(t, 0.0, *s.CPUPercent)
}
