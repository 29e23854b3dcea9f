// Package mcpserver provides the Model Context Protocol (MCP) surface of the
// execution engine.
//
// The mcpserver package exposes the snippet engine as an MCP tool so agent
// frontends can run Python without speaking the REST API. It uses the
// mark3labs/mcp-go library for the protocol details and registers the
// execute_python tool as the single entry point.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/luannanxian/qlib-gui-sub003/config"
	"github.com/luannanxian/qlib-gui-sub003/engine"
)

// Executor runs one snippet request.
type Executor interface {
	Execute(ctx context.Context, req engine.Request) (engine.Result, error)
}

// MCPServer represents the MCP server
type MCPServer struct {
	config    *config.Config
	logger    *zap.Logger
	executor  Executor
	mcpServer *server.MCPServer
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, executor Executor) (*MCPServer, error) {
	s := &MCPServer{
		config:   cfg,
		logger:   logger,
		executor: executor,
	}

	// Log configuration parameters on startup
	logger.Info("configuration loaded",
		zap.String("server.transport", cfg.Server.Transport),
		zap.Int("server.http_port", cfg.Server.HTTPPort),
		zap.String("engine.python_bin", cfg.Engine.PythonBin),
		zap.Int("engine.max_concurrent", cfg.Engine.MaxConcurrent),
		zap.Int("engine.poll_interval_ms", cfg.Engine.PollIntervalMS),
		zap.Int("engine.max_capture_kb", cfg.Engine.MaxCaptureKB),
	)

	s.mcpServer = server.NewMCPServer("snippet-executor", "A sandboxed Python snippet execution server")
	s.registerExecutePythonTool()

	return s, nil
}

// registerExecutePythonTool registers the execute_python tool
func (s *MCPServer) registerExecutePythonTool() {
	limits := engine.EngineLimits()
	tool := mcp.Tool{
		Name:        "execute_python",
		Description: "Execute an untrusted Python snippet in an isolated worker process",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "Python source to execute",
				},
				"timeout": map[string]any{
					"type":        "integer",
					"description": fmt.Sprintf("Wall-clock budget in seconds (%d-%d, default %d)", limits.Timeout.Min, limits.Timeout.Max, limits.Timeout.Default),
				},
				"max_memory_mb": map[string]any{
					"type":        "integer",
					"description": fmt.Sprintf("Memory ceiling in MB (%d-%d, default %d)", limits.MemoryMB.Min, limits.MemoryMB.Max, limits.MemoryMB.Default),
				},
				"globals": map[string]any{
					"type":        "object",
					"description": "Named bindings visible to the snippet (module level)",
				},
				"locals": map[string]any{
					"type":        "object",
					"description": "Named bindings visible to the snippet (local level, merged over globals)",
				},
				"capture_locals": map[string]any{
					"type":        "boolean",
					"description": "Return the snippet's final variable bindings",
				},
			},
			Required: []string{"code"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleExecutePython)
}

// handleExecutePython handles the execute_python tool
func (s *MCPServer) handleExecutePython(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return nil, fmt.Errorf("code parameter is required: %w", err)
	}

	req := engine.Request{
		Code:          code,
		TimeoutSec:    request.GetInt("timeout", 0),
		MaxMemoryMB:   request.GetInt("max_memory_mb", 0),
		CaptureLocals: request.GetBool("capture_locals", false),
	}
	if args := request.GetArguments(); args != nil {
		if globals, ok := args["globals"].(map[string]any); ok {
			req.Globals = globals
		}
		if locals, ok := args["locals"].(map[string]any); ok {
			req.Locals = locals
		}
	}

	s.logger.Info("executing snippet",
		zap.Int("code_len", len(req.Code)),
		zap.Bool("capture_locals", req.CaptureLocals))

	result, err := s.executor.Execute(ctx, req)
	if err != nil {
		s.logger.Error("snippet execution failed", zap.Error(err))
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf("Execution failed: %v", err),
				},
			},
			IsError: true,
		}, nil
	}

	s.logger.Info("snippet execution completed",
		zap.Bool("success", result.Success),
		zap.String("error_kind", string(result.ErrorKind)),
		zap.Int("stdout_len", len(result.Stdout)),
		zap.Int("stderr_len", len(result.Stderr)))

	payload := map[string]any{
		"success":        result.Success,
		"stdout":         result.Stdout,
		"stderr":         result.Stderr,
		"execution_time": result.ExecutionTimeSec,
		"memory_used_mb": result.MemoryUsedMB,
	}
	if !result.Success {
		payload["error_type"] = string(result.ErrorKind)
		payload["error_message"] = result.ErrorMessage
	}
	if result.CapturedLocals != nil {
		payload["locals_dict"] = result.CapturedLocals
	}

	resultJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: string(resultJSON),
			},
		},
	}, nil
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	port := s.config.Server.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	return httpServer.Start(fmt.Sprintf(":%d", port))
}
