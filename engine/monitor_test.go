package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProbe replays a fixed memory trace, holding the last value once
// the trace is exhausted.
type scriptedProbe struct {
	samples []uint64
	idx     int
}

func (p *scriptedProbe) MemoryBytes() (uint64, error) {
	if p.idx < len(p.samples) {
		v := p.samples[p.idx]
		p.idx++
		return v, nil
	}
	if len(p.samples) == 0 {
		return 0, nil
	}
	return p.samples[len(p.samples)-1], nil
}

const mb = 1024 * 1024

func TestMonitorWorkerExitsFirst(t *testing.T) {
	m := NewMonitor(5 * time.Millisecond)
	done := make(chan struct{})
	close(done)

	var killed atomic.Bool
	breach, peak := m.Watch(done, time.Now(), time.Minute, 512*mb,
		&scriptedProbe{samples: []uint64{10 * mb}}, func() { killed.Store(true) })

	assert.Equal(t, ErrorKind(""), breach)
	assert.False(t, killed.Load(), "a naturally exiting worker must not be killed")
	assert.LessOrEqual(t, peak, uint64(10*mb))
}

func TestMonitorTimeout(t *testing.T) {
	m := NewMonitor(5 * time.Millisecond)
	done := make(chan struct{})

	var killed atomic.Bool
	// Start two seconds in the past so the one second budget is already
	// exhausted at the first sample; memory stays far below its limit.
	breach, _ := m.Watch(done, time.Now().Add(-2*time.Second), time.Second, 512*mb,
		&scriptedProbe{samples: []uint64{10 * mb}}, func() {
			killed.Store(true)
			close(done)
		})

	assert.Equal(t, KindTimeout, breach)
	assert.True(t, killed.Load())
}

func TestMonitorMemoryExceeded(t *testing.T) {
	m := NewMonitor(5 * time.Millisecond)
	done := make(chan struct{})

	var killed atomic.Bool
	breach, peak := m.Watch(done, time.Now(), time.Minute, 100*mb,
		&scriptedProbe{samples: []uint64{20 * mb, 200 * mb}}, func() {
			killed.Store(true)
			close(done)
		})

	assert.Equal(t, KindMemoryLimit, breach)
	assert.True(t, killed.Load())
	assert.Equal(t, uint64(200*mb), peak)
}

func TestMonitorTieBreakSameSampleIsMemory(t *testing.T) {
	// Both thresholds cross at the very first sample: the time budget is
	// already exhausted and the first memory reading is over the ceiling.
	// Same-sample breaches classify as a memory violation; only a strictly
	// earlier time breach classifies as a timeout.
	m := NewMonitor(5 * time.Millisecond)
	done := make(chan struct{})

	breach, _ := m.Watch(done, time.Now().Add(-2*time.Second), time.Second, 100*mb,
		&scriptedProbe{samples: []uint64{200 * mb}}, func() { close(done) })

	assert.Equal(t, KindMemoryLimit, breach)
}

func TestMonitorTieBreakTimeFirst(t *testing.T) {
	// The time budget is exhausted while memory is still under its ceiling,
	// so the earlier-sample rule resolves to a timeout even though memory
	// would have breached on a later sample.
	m := NewMonitor(5 * time.Millisecond)
	done := make(chan struct{})

	breach, _ := m.Watch(done, time.Now().Add(-2*time.Second), time.Second, 100*mb,
		&scriptedProbe{samples: []uint64{50 * mb, 200 * mb}}, func() { close(done) })

	assert.Equal(t, KindTimeout, breach)
}

func TestMonitorZeroMemoryLimitDisablesProbeEnforcement(t *testing.T) {
	m := NewMonitor(5 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		time.Sleep(30 * time.Millisecond)
		close(done)
	}()

	breach, _ := m.Watch(done, time.Now(), time.Minute, 0,
		&scriptedProbe{samples: []uint64{500 * mb}}, func() {
			t.Error("kill must not fire with memory enforcement disabled")
		})
	assert.Equal(t, ErrorKind(""), breach)
}

func TestMonitorDefaultPollInterval(t *testing.T) {
	m := NewMonitor(0)
	require.Equal(t, DefaultPollInterval, m.pollInterval)

	m = NewMonitor(-time.Second)
	require.Equal(t, DefaultPollInterval, m.pollInterval)
}
