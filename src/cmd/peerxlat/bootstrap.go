// FILE: peerxlat/src/cmd/peerxlat/bootstrap.go
package main

import (
	"context"
	"fmt"
	"strings"

	"peerxlat/src/internal/admin"
	"peerxlat/src/internal/config"
	"peerxlat/src/internal/lookup"
	"peerxlat/src/internal/netaddr"
	"peerxlat/src/internal/service"
	"peerxlat/src/internal/version"

	"github.com/lixenwraith/log"
)

// application groups the engine with its optional network front ends.
type application struct {
	svc    *service.Service
	admin  *admin.Server
	lookup *lookup.Server
}

// bootstrapService starts the engine, then the admin and lookup servers when
// enabled. A missing or malformed rules file is logged, not fatal.
func bootstrapService(ctx context.Context, cfg *config.Config) (*application, error) {
	app := &application{
		svc: service.New(ctx, cfg.Rules, cfg.Reload, logger),
	}

	if err := app.svc.Start(); err != nil {
		return nil, fmt.Errorf("failed to start translation engine: %w", err)
	}

	if cfg.Admin.Enabled {
		srv, err := admin.New(&cfg.Admin, app.svc, logger)
		if err != nil {
			app.shutdown()
			return nil, fmt.Errorf("failed to create admin server: %w", err)
		}
		if err := srv.Start(ctx); err != nil {
			app.shutdown()
			return nil, fmt.Errorf("failed to start admin server: %w", err)
		}
		app.admin = srv
		Print("Admin API:  http://%s:%d (status: %s)\n", cfg.Admin.Host, cfg.Admin.Port, cfg.Admin.StatusPath)
	}

	if cfg.Lookup.Enabled {
		srv := lookup.New(&cfg.Lookup, app.svc, app.svc.Metrics(), logger)
		if err := srv.Start(ctx); err != nil {
			app.shutdown()
			return nil, fmt.Errorf("failed to start lookup server: %w", err)
		}
		app.lookup = srv
		Print("Lookup:     tcp://%s:%d (%d-byte frames)\n", cfg.Lookup.Host, cfg.Lookup.Port, lookup.FrameSize)
	}

	status := app.svc.Status()
	logger.Info("msg", "peerxlat started",
		"version", version.Short(),
		"address_family", netaddr.Family,
		"rules_file", cfg.Rules.File,
		"rules", status.Rules,
		"load_cause", status.Cause,
		"admin", cfg.Admin.Enabled,
		"lookup", cfg.Lookup.Enabled)

	return app, nil
}

// shutdown stops the front ends first so no request sees a cleared store.
func (a *application) shutdown() {
	if a.lookup != nil {
		a.lookup.Stop()
	}
	if a.admin != nil {
		a.admin.Stop()
	}
	a.svc.Shutdown()
}

// initializeLogger sets up the logger based on configuration
func initializeLogger(cfg *config.Config) error {
	logger = log.NewLogger()

	var configArgs []string

	if cfg.Quiet {
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=false",
			"level=255")

		return logger.InitWithDefaults(configArgs...)
	}

	levelValue, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	configArgs = append(configArgs, fmt.Sprintf("level=%d", levelValue))

	switch cfg.Logging.Output {
	case "none":
		configArgs = append(configArgs, "disable_file=true", "enable_stdout=false")

	case "stdout", "stderr":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=true",
			"stdout_target="+cfg.Logging.Output)

	case "file":
		configArgs = append(configArgs, "enable_stdout=false")
		configArgs = append(configArgs, fileLogArgs(cfg.Logging.File)...)

	case "both":
		configArgs = append(configArgs, "enable_stdout=true")
		configArgs = append(configArgs, fileLogArgs(cfg.Logging.File)...)
		configArgs = append(configArgs, consoleTargetArgs(cfg.Logging.Console)...)

	default:
		return fmt.Errorf("invalid log output mode: %s", cfg.Logging.Output)
	}

	if cfg.Logging.Console != nil && cfg.Logging.Console.Format != "" {
		configArgs = append(configArgs, "format="+cfg.Logging.Console.Format)
	}

	return logger.InitWithDefaults(configArgs...)
}

func fileLogArgs(file *config.LogFileConfig) []string {
	if file == nil {
		return nil
	}
	args := []string{
		"directory=" + file.Directory,
		"name=" + file.Name,
		fmt.Sprintf("max_size_mb=%d", file.MaxSizeMB),
		fmt.Sprintf("max_total_size_mb=%d", file.MaxTotalSizeMB),
	}
	if file.RetentionHours > 0 {
		args = append(args, fmt.Sprintf("retention_period_hrs=%.1f", file.RetentionHours))
	}
	return args
}

func consoleTargetArgs(console *config.LogConsoleConfig) []string {
	target := "stderr"
	if console != nil && console.Target != "" {
		target = console.Target
	}

	// split: info/debug to stdout, warn/error to stderr
	if target == "split" {
		return []string{"stdout_split_mode=true", "stdout_target=split"}
	}
	return []string{"stdout_target=" + target}
}

func parseLogLevel(level string) (int, error) {
	switch strings.ToLower(level) {
	case "debug":
		return int(log.LevelDebug), nil
	case "info":
		return int(log.LevelInfo), nil
	case "warn", "warning":
		return int(log.LevelWarn), nil
	case "error":
		return int(log.LevelError), nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}
