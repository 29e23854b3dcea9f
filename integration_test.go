package integration

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luannanxian/qlib-gui-sub003/config"
	"github.com/luannanxian/qlib-gui-sub003/engine"
	"github.com/luannanxian/qlib-gui-sub003/logger"
	"github.com/luannanxian/qlib-gui-sub003/mcpserver"
)

// TestIntegrationConfigLoggerEngine tests the integration between the config,
// logger and engine packages
func TestIntegrationConfigLoggerEngine(t *testing.T) {
	t.Run("ConfigAndLoggerIntegration", func(t *testing.T) {
		cfg := &config.Config{
			Server: config.ServerConfig{
				Transport:      "rest",
				HTTPPort:       8080,
				RateLimitRPS:   5,
				RateLimitBurst: 10,
			},
			Engine: config.EngineConfig{
				PythonBin:      "python3",
				MaxConcurrent:  8,
				PollIntervalMS: 75,
				MaxCaptureKB:   256,
			},
			Logging: config.LoggingConfig{
				Mode:  "development",
				Level: "debug",
			},
		}

		testLogger, err := logger.New(cfg)
		require.NoError(t, err)
		require.NotNil(t, testLogger)

		testLogger.Info("Integration test started")
		_ = testLogger.Sync()
	})

	t.Run("ConfigLoggerEngineIntegration", func(t *testing.T) {
		pythonBin, err := exec.LookPath("python3")
		if err != nil {
			t.Skip("python3 not available on this host")
		}

		cfg := &config.Config{
			Engine: config.EngineConfig{
				PythonBin:      pythonBin,
				MaxConcurrent:  2,
				PollIntervalMS: 10,
				MaxCaptureKB:   64,
			},
			Logging: config.LoggingConfig{
				Mode:  "development",
				Level: "info",
			},
		}

		testLogger, err := logger.New(cfg)
		require.NoError(t, err)

		gate := engine.NewGate(cfg.Engine.MaxConcurrent)
		eng := engine.New(testLogger, &engine.Config{
			PythonBin:       cfg.Engine.PythonBin,
			PollInterval:    cfg.GetPollInterval(),
			MaxCaptureBytes: cfg.GetMaxCaptureBytes(),
		}, gate)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		result, err := eng.Execute(ctx, engine.Request{
			Code:          "result = 2.0\nprint('ready')",
			CaptureLocals: true,
		})
		require.NoError(t, err)

		assert.True(t, result.Success)
		assert.Equal(t, "ready\n", result.Stdout)
		assert.Equal(t, map[string]any{"result": 2.0}, result.CapturedLocals)
		assert.Equal(t, int64(0), gate.InFlight(), "the run must release its admission slot")
	})

	t.Run("EngineAndMCPServerIntegration", func(t *testing.T) {
		cfg := &config.Config{
			Server: config.ServerConfig{
				Transport: "mcp-stdio",
				HTTPPort:  8080,
			},
			Engine: config.EngineConfig{
				PythonBin:      "python3",
				MaxConcurrent:  2,
				PollIntervalMS: 75,
				MaxCaptureKB:   256,
			},
			Logging: config.LoggingConfig{
				Mode:  "development",
				Level: "info",
			},
		}

		testLogger, err := logger.New(cfg)
		require.NoError(t, err)

		gate := engine.NewGate(cfg.Engine.MaxConcurrent)
		eng := engine.New(testLogger, &engine.Config{
			PythonBin:       cfg.Engine.PythonBin,
			PollInterval:    cfg.GetPollInterval(),
			MaxCaptureBytes: cfg.GetMaxCaptureBytes(),
		}, gate)

		server, err := mcpserver.New(cfg, testLogger, eng)
		require.NoError(t, err)
		require.NotNil(t, server)
	})
}
