package engine

import (
	"fmt"
	"strings"
)

// Resource-limit contract for submitted snippets. The limits endpoint reports
// these so clients can validate before submitting.
const (
	MaxCodeChars = 50000

	MinTimeoutSec     = 1
	MaxTimeoutSec     = 300
	DefaultTimeoutSec = 30

	MinMemoryMB     = 64
	MaxMemoryMB     = 2048
	DefaultMemoryMB = 512
)

// Request describes one snippet execution.
type Request struct {
	// Code is the Python source to execute. Required, 1..MaxCodeChars
	// characters, must not be blank.
	Code string

	// TimeoutSec is the wall-clock budget. Zero means DefaultTimeoutSec.
	TimeoutSec int

	// MaxMemoryMB is the resident-memory ceiling. Zero means DefaultMemoryMB.
	MaxMemoryMB int

	// Globals and Locals are named bindings visible to the snippet. Both
	// namespaces are merged into a single execution namespace, locals last.
	Globals map[string]any
	Locals  map[string]any

	// CaptureLocals requests a snapshot of the namespace after a completed
	// run. Killed or crashed workers never return bindings.
	CaptureLocals bool
}

// ValidationError reports a malformed request. It is returned before any
// worker process is created.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// withDefaults returns a copy of the request with zero-valued limits replaced
// by the engine defaults.
func (r Request) withDefaults() Request {
	if r.TimeoutSec == 0 {
		r.TimeoutSec = DefaultTimeoutSec
	}
	if r.MaxMemoryMB == 0 {
		r.MaxMemoryMB = DefaultMemoryMB
	}
	return r
}

// Validate checks the request against the engine's limit contract. It has no
// side effects and allocates no execution resources.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return &ValidationError{Field: "code", Reason: "must not be empty"}
	}
	if len(r.Code) > MaxCodeChars {
		return &ValidationError{
			Field:  "code",
			Reason: fmt.Sprintf("exceeds maximum length of %d characters", MaxCodeChars),
		}
	}
	if r.TimeoutSec < MinTimeoutSec || r.TimeoutSec > MaxTimeoutSec {
		return &ValidationError{
			Field:  "timeout",
			Reason: fmt.Sprintf("must be between %d and %d seconds, got %d", MinTimeoutSec, MaxTimeoutSec, r.TimeoutSec),
		}
	}
	if r.MaxMemoryMB < MinMemoryMB || r.MaxMemoryMB > MaxMemoryMB {
		return &ValidationError{
			Field:  "max_memory_mb",
			Reason: fmt.Sprintf("must be between %d and %d MB, got %d", MinMemoryMB, MaxMemoryMB, r.MaxMemoryMB),
		}
	}
	return nil
}

// Bound describes one configurable limit for the limits endpoint.
type Bound struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Default int `json:"default"`
}

// Limits reports the engine's limit contract.
type Limits struct {
	Timeout      Bound `json:"timeout"`
	MemoryMB     Bound `json:"memory_mb"`
	MaxCodeChars int   `json:"max_code_chars"`
}

// EngineLimits returns the limit contract enforced by Validate.
func EngineLimits() Limits {
	return Limits{
		Timeout:      Bound{Min: MinTimeoutSec, Max: MaxTimeoutSec, Default: DefaultTimeoutSec},
		MemoryMB:     Bound{Min: MinMemoryMB, Max: MaxMemoryMB, Default: DefaultMemoryMB},
		MaxCodeChars: MaxCodeChars,
	}
}
