package engine

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultPollInterval is the monitor sampling period when the config does not
// override it. Frequent enough to bound limit overshoot, coarse enough to
// stay off the profile.
const DefaultPollInterval = 75 * time.Millisecond

// MemoryProbe samples the current resident memory of a worker process.
type MemoryProbe interface {
	// MemoryBytes returns the worker's current RSS. Implementations return
	// 0, nil once the process is gone.
	MemoryBytes() (uint64, error)
}

// procStatusProbe reads VmRSS from /proc/<pid>/status. On platforms without
// procfs every sample reads as zero, leaving the timeout as the backstop.
type procStatusProbe struct {
	pid int
}

func (p procStatusProbe) MemoryBytes() (uint64, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/status", p.pid))
	if err != nil {
		return 0, nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "VmRSS:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, fmt.Errorf("malformed VmRSS line: %q", line)
		}
		kb, parseErr := strconv.ParseUint(fields[1], 10, 64)
		if parseErr != nil {
			return 0, fmt.Errorf("malformed VmRSS value: %w", parseErr)
		}
		return kb * 1024, nil
	}
	return 0, scanner.Err()
}

// Monitor enforces the wall-clock and memory ceilings for one worker. Per
// run it walks Running -> {Completed | TimedOut | MemoryExceeded | Crashed}
// -> Terminated; this type decides the two forced-kill transitions, the
// engine derives Completed vs Crashed from the exit status.
type Monitor struct {
	pollInterval time.Duration
}

// NewMonitor creates a monitor sampling at the given interval. A
// non-positive interval falls back to DefaultPollInterval.
func NewMonitor(pollInterval time.Duration) *Monitor {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Monitor{pollInterval: pollInterval}
}

// Watch samples the worker until it exits or breaches a limit. On breach it
// calls kill exactly once and returns the breach kind (KindTimeout or
// KindMemoryLimit); if the worker exits first it returns "". The returned
// peak is the highest memory sample observed.
//
// Tie-break: when both thresholds have been crossed, the run is classified
// as a timeout only if the time threshold was crossed at a strictly earlier
// sample; a same-sample breach is a memory violation. Samples are taken
// against a single monotonic clock, so the classification is deterministic.
func (m *Monitor) Watch(done <-chan struct{}, start time.Time, timeout time.Duration, memLimitBytes uint64, probe MemoryProbe, kill func()) (ErrorKind, uint64) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	var peak uint64
	timeBreachSample, memBreachSample := -1, -1

	for sample := 0; ; sample++ {
		select {
		case <-done:
			return "", peak
		case <-ticker.C:
		}

		if mem, err := probe.MemoryBytes(); err == nil && mem > peak {
			peak = mem
		}
		if timeBreachSample < 0 && time.Since(start) >= timeout {
			timeBreachSample = sample
		}
		if memBreachSample < 0 && memLimitBytes > 0 && peak >= memLimitBytes {
			memBreachSample = sample
		}

		if timeBreachSample < 0 && memBreachSample < 0 {
			continue
		}

		kill()
		if timeBreachSample >= 0 && (memBreachSample < 0 || timeBreachSample < memBreachSample) {
			return KindTimeout, peak
		}
		return KindMemoryLimit, peak
	}
}
