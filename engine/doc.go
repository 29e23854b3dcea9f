// Package engine provides sandboxed execution of untrusted Python snippets.
//
// The engine package implements the execution core: request validation,
// per-run worker processes, resource monitoring (wall clock and memory),
// bounded output capture, and result assembly with a stable error taxonomy.
//
// Each accepted request runs in a fresh python3 process in its own process
// group. The supervisor never executes untrusted code in its own address
// space, and a worker can always be killed without its cooperation. Workers
// are never reused, so no variable bindings or interpreter state leak
// between runs.
//
// Usage:
//
//	gate := engine.NewGate(8)
//	eng := engine.New(logger, &engine.Config{PythonBin: "python3"}, gate)
//	result, err := eng.Execute(ctx, engine.Request{
//	    Code:          "print(1 + 1)",
//	    CaptureLocals: true,
//	})
package engine
