// Package main is the entry point for the snippet execution server.
//
// The server runs short, untrusted Python snippets on behalf of a
// multi-tenant service. Each snippet executes in a fresh, killable worker
// process under a hard timeout and memory ceiling, with output captured into
// bounded buffers and a single structured result returned per request.
//
// The application uses Uber's fx framework for dependency injection and
// lifecycle management, with zap for structured logging and viper for
// configuration. The engine is exposed over a REST API or over MCP
// (stdio or streamable HTTP) depending on server.transport.
package main

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/luannanxian/qlib-gui-sub003/config"
	"github.com/luannanxian/qlib-gui-sub003/engine"
	"github.com/luannanxian/qlib-gui-sub003/httpserver"
	"github.com/luannanxian/qlib-gui-sub003/logger"
	"github.com/luannanxian/qlib-gui-sub003/mcpserver"
)

func newGate(cfg *config.Config) *engine.Gate {
	return engine.NewGate(cfg.Engine.MaxConcurrent)
}

func newEngine(log *zap.Logger, cfg *config.Config, gate *engine.Gate) *engine.Engine {
	return engine.New(log, &engine.Config{
		PythonBin:       cfg.Engine.PythonBin,
		PollInterval:    cfg.GetPollInterval(),
		MaxCaptureBytes: cfg.GetMaxCaptureBytes(),
	}, gate)
}

func newRESTServer(cfg *config.Config, log *zap.Logger, eng *engine.Engine, gate *engine.Gate) *httpserver.Server {
	return httpserver.New(cfg, log, eng, gate)
}

func newMCPServer(cfg *config.Config, log *zap.Logger, eng *engine.Engine) (*mcpserver.MCPServer, error) {
	return mcpserver.New(cfg, log, eng)
}

func main() {
	app := fx.New(
		fx.Provide(
			config.New,
			logger.New,
			newGate,
			newEngine,
			newRESTServer,
			newMCPServer,
		),

		// Start the appropriate transport based on config
		fx.Invoke(
			func(lc fx.Lifecycle, cfg *config.Config, rest *httpserver.Server, mcp *mcpserver.MCPServer) {
				switch cfg.Server.Transport {
				case "rest":
					lc.Append(fx.Hook{
						OnStart: func(context.Context) error {
							go func() {
								if err := rest.Start(); err != nil {
									panic(err)
								}
							}()
							return nil
						},
						OnStop: rest.Shutdown,
					})
				case "mcp-stdio":
					go func() {
						if err := mcp.ServeStdio(); err != nil {
							panic(err)
						}
					}()
				case "mcp-http":
					go func() {
						if err := mcp.ServeHTTP(); err != nil {
							panic(err)
						}
					}()
				default:
					panic("unsupported transport: " + cfg.Server.Transport)
				}
			},
		),

		// Use the application logger for fx logs
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	app.Run()
}
