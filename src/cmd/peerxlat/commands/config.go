// FILE: peerxlat/src/cmd/peerxlat/commands/config.go
package commands

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"peerxlat/src/internal/config"
)

// ConfigCommand writes a starter configuration file.
type ConfigCommand struct {
	output io.Writer
	errOut io.Writer
}

func NewConfigCommand() *ConfigCommand {
	return &ConfigCommand{
		output: os.Stdout,
		errOut: os.Stderr,
	}
}

func (cc *ConfigCommand) Execute(args []string) error {
	if len(args) == 0 || args[0] != "init" {
		fmt.Fprint(cc.errOut, cc.Help())
		return fmt.Errorf("expected 'init' action")
	}

	cmd := flag.NewFlagSet("config init", flag.ContinueOnError)
	cmd.SetOutput(cc.errOut)

	var (
		out       = cmd.String("o", "", "Output path (default: resolved config path)")
		outLong   = cmd.String("output", "", "Output path (default: resolved config path)")
		rules     = cmd.String("rules", "", "Rules file to reference")
		watchMs   = cmd.Int64("watch-interval-ms", 0, "Enable the polling watcher")
		enableAPI = cmd.Bool("admin", false, "Enable the admin API")
		force     = cmd.Bool("f", false, "Overwrite an existing file")
		forceLong = cmd.Bool("force", false, "Overwrite an existing file")
	)

	cmd.Usage = func() {
		fmt.Fprint(cc.errOut, cc.Help())
	}

	if err := cmd.Parse(args[1:]); err != nil {
		return err
	}
	if cmd.NArg() > 0 {
		return fmt.Errorf("unexpected argument(s): %s", strings.Join(cmd.Args(), " "))
	}

	cfg := config.Defaults()
	if *rules != "" {
		cfg.Rules.File = *rules
	}
	cfg.Reload.WatchIntervalMs = *watchMs
	cfg.Admin.Enabled = *enableAPI

	path := coalesceString(*out, *outLong, config.GetConfigPath())
	if err := cfg.SaveToFile(path, coalesceBool(*force, *forceLong)); err != nil {
		return err
	}

	fmt.Fprintf(cc.output, "Wrote %s\n", path)
	return nil
}

func (cc *ConfigCommand) Description() string {
	return "Write a starter configuration file"
}

func (cc *ConfigCommand) Help() string {
	return `Config Command - Write a starter peerxlat configuration

Usage:
  peerxlat config init [options]

Options:
  -o, --output <path>          Output path (default: PEERXLAT_CONFIG_FILE, or
                               ~/.config/peerxlat.toml)
      --rules <path>           Rules file the config points at
      --watch-interval-ms <n>  Poll the rules file every n ms
      --admin                  Enable the admin API on 127.0.0.1
  -f, --force                  Overwrite an existing file

The written file holds every setting with its default value and passes
the same validation the daemon applies at startup.

Examples:
  peerxlat config init -o /etc/peerxlat/peerxlat.toml --rules /etc/peerxlat/peers.rules
`
}
