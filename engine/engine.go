package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config holds the engine's operational settings. The limit contract for
// requests lives in request.go; these knobs tune how the engine enforces it.
type Config struct {
	// PythonBin is the interpreter used for workers.
	PythonBin string

	// PollInterval is the resource monitor sampling period.
	PollInterval time.Duration

	// MaxCaptureBytes caps each captured stream per run.
	MaxCaptureBytes int
}

// Engine runs untrusted Python snippets, one fresh worker process per
// request. It holds no execution state between runs; the admission gate is
// the only shared resource.
type Engine struct {
	logger  *zap.Logger
	config  *Config
	gate    *Gate
	monitor *Monitor
}

// New creates an Engine using the given admission gate.
func New(logger *zap.Logger, config *Config, gate *Gate) *Engine {
	return &Engine{
		logger:  logger,
		config:  config,
		gate:    gate,
		monitor: NewMonitor(config.PollInterval),
	}
}

// Gate exposes the admission gate for health reporting.
func (e *Engine) Gate() *Gate { return e.gate }

// Execute runs one snippet and produces exactly one Result.
//
// A malformed request is rejected before any worker resource is allocated
// and surfaces as a *ValidationError. Failures of the snippet itself
// (syntax, runtime, timeout, memory, crash) are data in the Result, never an
// error return; the error return is reserved for engine faults such as
// failing to spawn a worker or losing the caller's context while queued at
// the admission gate.
func (e *Engine) Execute(ctx context.Context, req Request) (Result, error) {
	req = req.withDefaults()
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	if err := e.gate.Acquire(ctx); err != nil {
		return Result{}, err
	}
	defer e.gate.Release()

	runID := uuid.NewString()
	log := e.logger.With(zap.String("run_id", runID))
	log.Info("starting worker",
		zap.Int("timeout_sec", req.TimeoutSec),
		zap.Int("max_memory_mb", req.MaxMemoryMB),
		zap.Int("code_len", len(req.Code)),
		zap.Bool("capture_locals", req.CaptureLocals),
	)

	w, err := startWorker(ctx, e.config.PythonBin, req, e.config.MaxCaptureBytes)
	if err != nil {
		log.Error("failed to spawn worker", zap.Error(err))
		return Result{}, err
	}
	defer w.Close()

	timeout := time.Duration(req.TimeoutSec) * time.Second
	memLimit := uint64(req.MaxMemoryMB) * 1024 * 1024
	breach, peak := e.monitor.Watch(w.Done(), w.StartedAt(), timeout, memLimit, w.Probe(), w.Kill)

	// The kill has been issued on breach; wait for the exit to be reaped and
	// the stream copies to finish before reading anything.
	<-w.Done()
	elapsed := time.Since(w.StartedAt()).Seconds()

	var report *harnessReport
	if breach == "" {
		report = w.Report()
	}

	res := assembleResult(req, breach, w.ExitedCleanly(), report,
		w.stdout.String(), w.stderr.String(),
		elapsed, float64(peak)/(1024*1024))

	log.Info("worker finished",
		zap.Bool("success", res.Success),
		zap.String("error_kind", string(res.ErrorKind)),
		zap.Float64("execution_time_sec", res.ExecutionTimeSec),
		zap.Float64("memory_used_mb", res.MemoryUsedMB),
		zap.Int("stdout_len", len(res.Stdout)),
		zap.Int("stderr_len", len(res.Stderr)),
	)
	return res, nil
}
