// FILE: peerxlat/src/cmd/peerxlat/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"peerxlat/src/cmd/peerxlat/commands"
	"peerxlat/src/internal/config"
	"peerxlat/src/internal/version"

	"github.com/lixenwraith/log"
)

var logger *log.Logger

func main() {
	router := commands.NewCommandRouter()
	handled, err := router.Route(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if handled {
		os.Exit(0)
	}

	flagCfg, cliArgs, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	InitOutputHandler(flagCfg.Quiet)

	if flagCfg.ShowVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	if flagCfg.ConfigFile != "" {
		if _, err := os.Stat(flagCfg.ConfigFile); err != nil {
			FatalError(2, "Config file not found: %s\n", flagCfg.ConfigFile)
		}
		os.Setenv("PEERXLAT_CONFIG_FILE", flagCfg.ConfigFile)
	}

	cfg, err := config.Load(cliArgs)
	if err != nil {
		FatalError(1, "Failed to load config: %v\n", err)
	}
	if flagCfg.Quiet {
		cfg.Quiet = true
	}
	output.SetQuiet(cfg.Quiet)

	if err := initializeLogger(cfg); err != nil {
		FatalError(1, "Failed to initialize logger: %v\n", err)
	}
	defer shutdownLogger()

	logger.Info("msg", "peerxlat starting",
		"version", version.String(),
		"config_file", cfg.ConfigFile,
		"log_output", cfg.Logging.Output)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrapService(ctx, cfg)
	if err != nil {
		logger.Error("msg", "Failed to bootstrap service", "error", err)
		shutdownLogger()
		os.Exit(1)
	}

	sigHandler := NewSignalHandler(app.svc, cfg.Reload.Signals, logger)
	defer sigHandler.Stop()

	sig := sigHandler.Handle(ctx)
	logger.Info("msg", "Shutdown signal received, starting graceful shutdown...",
		"signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		cancel()
		app.shutdown()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("msg", "Shutdown complete")
	case <-shutdownCtx.Done():
		logger.Error("msg", "Shutdown timeout exceeded - forcing exit")
		shutdownLogger()
		os.Exit(1)
	}
}

func shutdownLogger() {
	if logger != nil {
		if err := logger.Shutdown(2 * time.Second); err != nil {
			Error("Logger shutdown error: %v\n", err)
		}
	}
}
