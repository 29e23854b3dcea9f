// Package httpserver provides the REST surface of the execution engine.
//
// The httpserver package maps the engine's request/result model onto JSON
// endpoints: POST /api/v1/execute runs a snippet, GET /api/v1/execute/limits
// reports the configured bounds so clients can validate before submitting,
// and GET /healthz reports whether the admission gate can accept new work.
// Authentication, user identity and execution history are handled by
// upstream collaborators, not here.
package httpserver
