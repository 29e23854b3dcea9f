package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/luannanxian/qlib-gui-sub003/engine"
)

// executeRequest is the JSON body accepted by POST /api/v1/execute.
type executeRequest struct {
	Code          string         `json:"code"`
	Timeout       int            `json:"timeout"`
	MaxMemoryMB   int            `json:"max_memory_mb"`
	Globals       map[string]any `json:"globals"`
	Locals        map[string]any `json:"locals"`
	CaptureLocals bool           `json:"capture_locals"`
}

// executeResponse is the JSON body returned for every accepted execution.
type executeResponse struct {
	Success       bool           `json:"success"`
	Stdout        string         `json:"stdout"`
	Stderr        string         `json:"stderr"`
	ErrorType     string         `json:"error_type,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	ExecutionTime float64        `json:"execution_time"`
	MemoryUsedMB  float64        `json:"memory_used_mb"`
	LocalsDict    map[string]any `json:"locals_dict,omitempty"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type limitsResponse struct {
	Timeout       engine.Bound `json:"timeout"`
	MemoryMB      engine.Bound `json:"memory_mb"`
	MaxCodeChars  int          `json:"max_code_chars"`
	MaxConcurrent int64        `json:"max_concurrent"`
}

type healthResponse struct {
	Status   string `json:"status"`
	InFlight int64  `json:"in_flight"`
	Capacity int64  `json:"capacity"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var body executeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed_request", Detail: err.Error()})
		return
	}

	result, err := s.executor.Execute(r.Context(), engine.Request{
		Code:          body.Code,
		TimeoutSec:    body.Timeout,
		MaxMemoryMB:   body.MaxMemoryMB,
		Globals:       body.Globals,
		Locals:        body.Locals,
		CaptureLocals: body.CaptureLocals,
	})
	if err != nil {
		var verr *engine.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: string(engine.KindValidation), Detail: verr.Error()})
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "not_accepting", Detail: "request abandoned while waiting for a worker slot"})
		default:
			s.logger.Error("execution failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, executeResponse{
		Success:       result.Success,
		Stdout:        result.Stdout,
		Stderr:        result.Stderr,
		ErrorType:     string(result.ErrorKind),
		ErrorMessage:  result.ErrorMessage,
		ExecutionTime: result.ExecutionTimeSec,
		MemoryUsedMB:  result.MemoryUsedMB,
		LocalsDict:    result.CapturedLocals,
	})
}

func (s *Server) handleLimits(w http.ResponseWriter, _ *http.Request) {
	limits := engine.EngineLimits()
	writeJSON(w, http.StatusOK, limitsResponse{
		Timeout:       limits.Timeout,
		MemoryMB:      limits.MemoryMB,
		MaxCodeChars:  limits.MaxCodeChars,
		MaxConcurrent: s.gate.Capacity(),
	})
}

// handleHealth always answers 200 so probes can tell a saturated engine from
// a dead one; saturation is reported in the body.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	if s.gate.Saturated() {
		status = "busy"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   status,
		InFlight: s.gate.InFlight(),
		Capacity: s.gate.Capacity(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
