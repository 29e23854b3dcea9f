package engine

import "fmt"

// ErrorKind classifies why an execution did not succeed. The values are the
// wire names consumed by the HTTP layer.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation_error"
	KindSyntax      ErrorKind = "syntax_error"
	KindRuntime     ErrorKind = "runtime_error"
	KindTimeout     ErrorKind = "timeout"
	KindMemoryLimit ErrorKind = "memory_limit_exceeded"
	KindCrashed     ErrorKind = "worker_crashed"
)

// Result is the outcome of one accepted execution request. Exactly one Result
// is produced per request; a snippet's own failure is data here, never an
// error in the supervisor.
type Result struct {
	Success bool

	// Stdout and Stderr hold the captured streams, possibly truncated with
	// an explicit marker. They are always present, empty if nothing was
	// written.
	Stdout string
	Stderr string

	// ErrorKind and ErrorMessage are set iff Success is false.
	ErrorKind    ErrorKind
	ErrorMessage string

	// ExecutionTimeSec is the observed wall-clock duration including
	// interpreter startup.
	ExecutionTimeSec float64

	// MemoryUsedMB is the peak resident memory sampled by the monitor.
	MemoryUsedMB float64

	// CapturedLocals holds the snippet's final bindings. Populated only when
	// capture was requested and the worker completed normally; a forcibly
	// killed worker's memory is not trustworthy and is never inspected.
	CapturedLocals map[string]any
}

// harnessReport is the verdict the Python harness writes before exiting.
// Kind values "syntax" and "runtime" mirror the two ways a snippet itself
// can fail.
type harnessReport struct {
	OK           bool           `json:"ok"`
	ErrorKind    string         `json:"error_kind"`
	ErrorMessage string         `json:"error_message"`
	Locals       map[string]any `json:"locals"`
}

// assembleResult folds the monitor verdict, the worker's exit, the harness
// report, and the captured streams into the final Result.
//
// breach is the monitor's forced-kill classification ("" if the worker exited
// on its own). exited reports whether the process terminated with status zero.
// report is nil when the harness never produced a verdict.
func assembleResult(req Request, breach ErrorKind, exited bool, report *harnessReport, stdout, stderr string, elapsedSec, peakMB float64) Result {
	res := Result{
		Stdout:           stdout,
		Stderr:           stderr,
		ExecutionTimeSec: elapsedSec,
		MemoryUsedMB:     peakMB,
	}

	switch {
	case breach == KindTimeout:
		res.ErrorKind = KindTimeout
		res.ErrorMessage = fmt.Sprintf("execution exceeded the %d second timeout", req.TimeoutSec)
	case breach == KindMemoryLimit:
		res.ErrorKind = KindMemoryLimit
		res.ErrorMessage = fmt.Sprintf("execution exceeded the %d MB memory limit", req.MaxMemoryMB)
	case !exited || report == nil:
		res.ErrorKind = KindCrashed
		res.ErrorMessage = "worker process exited abnormally before reporting a result"
	case report.OK:
		res.Success = true
		if req.CaptureLocals {
			res.CapturedLocals = report.Locals
			if res.CapturedLocals == nil {
				res.CapturedLocals = map[string]any{}
			}
		}
	case report.ErrorKind == "syntax":
		res.ErrorKind = KindSyntax
		res.ErrorMessage = report.ErrorMessage
	default:
		res.ErrorKind = KindRuntime
		res.ErrorMessage = report.ErrorMessage
	}

	return res
}
