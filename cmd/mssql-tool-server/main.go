// Command mssql-tool-server is the long-lived JSON-RPC tool host (C8,
// spec.md §4.8): it resolves configuration and secrets, wires the
// connection manager, safety policy, performance observatory, and tool
// dispatcher, then serves requests over stdio until stdin reaches EOF or it
// receives SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hyp3rd/mssql-tool-server/internal/config"
	"github.com/hyp3rd/mssql-tool-server/internal/constants"
	"github.com/hyp3rd/mssql-tool-server/internal/dispatcher"
	"github.com/hyp3rd/mssql-tool-server/internal/logger"
	"github.com/hyp3rd/mssql-tool-server/internal/logger/adapter"
	"github.com/hyp3rd/mssql-tool-server/internal/logger/output"
	"github.com/hyp3rd/mssql-tool-server/internal/mssqlconn"
	"github.com/hyp3rd/mssql-tool-server/internal/perfobs"
	"github.com/hyp3rd/mssql-tool-server/internal/secrets"
	"github.com/hyp3rd/mssql-tool-server/internal/tools"
)

const (
	maxLogSize = 10 * 1024 * 1024 // 10 MB
	logsDir    = "logs/mssql-tool-server"
	logsFile   = "mssql-tool-server.log"

	configFileName = "config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := initConfig(ctx)
	log, multiWriter := initLogger(cfg.Environment, cfg.LogLevel)

	defer func() {
		if err := multiWriter.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %+v\n", err)
		}

		if err := multiWriter.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "logger writer cleanup failed: %+v\n", err)
		}
	}()

	printStartupBanner(cfg, log)

	pool := mssqlconn.New(&cfg.MSSQL, log)

	if err := pool.Connect(ctx); err != nil {
		// Non-fatal: spec.md §4.2 requires the process to stay up and retry
		// lazily on the first tool call rather than refuse to start.
		log.WithError(err).Warn("initial database connection failed; will retry on first tool call")
	}

	defer func() {
		if err := pool.Close(); err != nil {
			log.WithError(err).Error("error closing connection pool during shutdown")
		}
	}()

	obs := perfobs.New(perfobs.Config{
		Enabled:            cfg.Perf.Enabled,
		MaxHistory:         cfg.Perf.MaxHistory,
		SlowQueryMs:        cfg.Perf.SlowQueryMs,
		SamplingRate:       cfg.Perf.SamplingRate,
		StreamingEnabled:   cfg.Stream.Enabled,
		FingerprintCacheSz: constants.StatementFingerprintCacheSize,
		MaxStatementBytes:  constants.MaxStoredStatementBytes,
	})

	deps := &tools.Deps{Pool: pool, Obs: obs, Cfg: cfg, Logger: log}

	d := dispatcher.New(deps)

	log.Info("mssql-tool-server ready, serving JSON-RPC over stdio")

	if err := d.Serve(ctx, os.Stdin, os.Stdout); err != nil {
		log.WithError(err).Error("dispatcher serve loop exited with error")
		os.Exit(1)
	}

	log.Info("mssql-tool-server shutting down")
}

func initConfig(ctx context.Context) *config.Config {
	provider, err := secrets.NewProviderFromEnv(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "secrets provider: %+v\n", err)
		os.Exit(1)
	}

	opts := config.Options{
		ConfigName:      configFileName,
		SecretsProvider: provider,
		Timeout:         constants.DefaultTimeout,
	}

	cfg, err := config.NewConfig(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize config: %+v\n", err)
		os.Exit(1)
	}

	return cfg
}

// initLogger routes every console writer to stderr: stdout carries nothing
// but JSON-RPC frames (spec.md §4.6/§8).
func initLogger(environment, level string) (logger.Logger, *output.MultiWriter) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil { //nolint:mnd
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		os.Exit(1)
	}

	fileWriter, err := output.NewFileWriter(output.FileConfig{
		Path:     logsDir + "/" + logsFile,
		MaxSize:  maxLogSize,
		Compress: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file writer: %v\n", err)
		os.Exit(1)
	}

	consoleWriter := output.NewConsoleWriter(os.Stderr, output.ColorModeAuto)

	multiWriter, err := output.NewMultiWriter(consoleWriter, fileWriter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create multi-writer: %v\n", err)
		fileWriter.Close()
		os.Exit(1)
	}

	loggerCfg := logger.DefaultConfig()
	loggerCfg.Output = multiWriter
	loggerCfg.EnableJSON = true
	loggerCfg.Level = levelFromString(level)
	loggerCfg.AdditionalFields = []logger.Field{
		{Key: "service", Value: "mssql-tool-server"},
		{Key: "environment", Value: environment},
	}

	log, err := adapter.NewAdapter(loggerCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %+v\n", err)
		os.Exit(1)
	}

	return log, multiWriter
}

func levelFromString(level string) logger.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logger.TraceLevel
	case "debug":
		return logger.DebugLevel
	case "warn", "warning":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	case "fatal":
		return logger.FatalLevel
	default:
		return logger.InfoLevel
	}
}

// printStartupBanner logs the safety posture at startup (spec.md §4.8): a
// SECURE banner when every flag is at its safe default, else an UNSAFE
// banner naming exactly which flags were relaxed.
func printStartupBanner(cfg *config.Config, log logger.Logger) {
	if cfg.Safety.IsSecure() {
		log.Info("safety posture: SECURE (readOnlyMode=true)")

		return
	}

	relaxed := cfg.Safety.RelaxedFlags()
	log.WithFields(logger.Field{Key: "relaxed_flags", Value: relaxed}).
		Warn("safety posture: UNSAFE — one or more destructive capabilities are enabled")
}
