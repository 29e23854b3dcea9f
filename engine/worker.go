package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

// File permission constants for per-run scratch directories.
const (
	DirPermission  = 0o755
	FilePermission = 0o600
)

// workerJob is the job file handed to the harness.
type workerJob struct {
	Code          string         `json:"code"`
	Globals       map[string]any `json:"globals,omitempty"`
	Locals        map[string]any `json:"locals,omitempty"`
	CaptureLocals bool           `json:"capture_locals"`
}

// worker is one isolated execution of a snippet: a fresh python3 process in
// its own process group, with a private scratch directory and bounded
// capture of both output streams. Workers are single-use.
type worker struct {
	cmd        *exec.Cmd
	dir        string
	resultPath string
	stdout     *CaptureBuffer
	stderr     *CaptureBuffer
	started    time.Time

	done     chan struct{}
	waitErr  error
	killOnce sync.Once
}

// startWorker prepares the scratch directory, writes the harness and job
// files, and starts the worker process. The returned worker is already
// running; callers must consume Done() and then Close().
func startWorker(ctx context.Context, pythonBin string, req Request, maxCaptureBytes int) (*worker, error) {
	dir, err := os.MkdirTemp("", "pyexec-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}

	harnessPath := filepath.Join(dir, "harness.py")
	if writeErr := os.WriteFile(harnessPath, []byte(harnessSource), FilePermission); writeErr != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to write harness: %w", writeErr)
	}

	jobBytes, err := json.Marshal(workerJob{
		Code:          req.Code,
		Globals:       req.Globals,
		Locals:        req.Locals,
		CaptureLocals: req.CaptureLocals,
	})
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to encode job: %w", err)
	}
	jobPath := filepath.Join(dir, "job.json")
	if writeErr := os.WriteFile(jobPath, jobBytes, FilePermission); writeErr != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to write job: %w", writeErr)
	}

	w := &worker{
		dir:        dir,
		resultPath: filepath.Join(dir, "result.json"),
		stdout:     NewCaptureBuffer(maxCaptureBytes),
		stderr:     NewCaptureBuffer(maxCaptureBytes),
		done:       make(chan struct{}),
	}

	// -I isolates the interpreter from user site-packages and environment
	// hooks. The process group makes the whole worker tree killable in one
	// signal, including anything the snippet spawned.
	cmd := exec.Command(pythonBin, "-I", harnessPath, jobPath, w.resultPath) //nolint:gosec // Interpreter path comes from config, not from the request
	cmd.Dir = dir
	cmd.Env = []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + dir,
		"LANG=C.UTF-8",
		"PYTHONDONTWRITEBYTECODE=1",
	}
	cmd.Stdout = w.stdout
	cmd.Stderr = w.stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if startErr := cmd.Start(); startErr != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to start worker: %w", startErr)
	}
	w.cmd = cmd
	w.started = time.Now()

	go func() {
		w.waitErr = cmd.Wait()
		close(w.done)
	}()

	// Supervisor-side cancellation rides the same forced-kill path as the
	// monitor.
	go func() {
		select {
		case <-ctx.Done():
			w.Kill()
		case <-w.done:
		}
	}()

	return w, nil
}

// Done is closed once the worker process has exited and both streams are
// fully drained.
func (w *worker) Done() <-chan struct{} { return w.done }

// StartedAt reports when the worker process began.
func (w *worker) StartedAt() time.Time { return w.started }

// Probe returns a memory probe for the running worker.
func (w *worker) Probe() MemoryProbe {
	return procStatusProbe{pid: w.cmd.Process.Pid}
}

// Kill forcibly terminates the worker and every process it spawned. It
// requires no cooperation from the worker and is safe to call more than
// once or after exit.
func (w *worker) Kill() {
	w.killOnce.Do(func() {
		if w.cmd.Process != nil {
			_ = syscall.Kill(-w.cmd.Process.Pid, syscall.SIGKILL)
		}
	})
}

// ExitedCleanly reports whether the process terminated with status zero.
// Valid only after Done is closed.
func (w *worker) ExitedCleanly() bool { return w.waitErr == nil }

// Report reads the harness verdict. It returns nil when the worker died
// before writing one.
func (w *worker) Report() *harnessReport {
	data, err := os.ReadFile(w.resultPath)
	if err != nil {
		return nil
	}
	var report harnessReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil
	}
	return &report
}

// Close removes the worker's scratch directory.
func (w *worker) Close() {
	_ = os.RemoveAll(w.dir)
}
