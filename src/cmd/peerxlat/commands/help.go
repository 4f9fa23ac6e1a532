// FILE: peerxlat/src/cmd/peerxlat/commands/help.go
package commands

import (
	"fmt"
	"strings"
)

const generalHelpTemplate = `peerxlat: peer address translation for BitTorrent trackers.

Usage:
  peerxlat [command] [options]
  peerxlat [options]

Commands:
%s
Application Options:
  -c, --config <path>      Path to configuration file (default: ~/.config/peerxlat.toml)
  -q, --quiet              Suppress all console output, including errors
  -v, --version            Display version information and exit
  -h, --help               Display this help message and exit

Any configuration key can be given as --<section>.<key>=<value>, e.g.
  --rules.file=/etc/peerxlat/peers.rules --lookup.enabled=true

Configuration Sources (Precedence: CLI > Env > File > Defaults):
  - Environment variables use the PEERXLAT_ prefix (PEERXLAT_RULES_FILE)
  - PEERXLAT_CONFIG_FILE and PEERXLAT_CONFIG_DIR locate the TOML file

Reloading:
  SIGHUP or SIGUSR1 reload the rules file when reload.signals is true.
  POST /reload on the admin API does the same.

For command-specific help:
  peerxlat help <command>
  peerxlat <command> --help
`

// HelpCommand displays general or command-specific help.
type HelpCommand struct {
	router *CommandRouter
}

func NewHelpCommand(router *CommandRouter) *HelpCommand {
	return &HelpCommand{router: router}
}

func (c *HelpCommand) Execute(args []string) error {
	if len(args) > 0 {
		cmd, exists := c.router.GetCommand(args[0])
		if !exists {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		fmt.Print(cmd.Help())
		return nil
	}

	fmt.Printf(generalHelpTemplate, c.commandList())
	return nil
}

func (c *HelpCommand) commandList() string {
	var sb strings.Builder
	for _, name := range c.router.names() {
		cmd, _ := c.router.GetCommand(name)
		fmt.Fprintf(&sb, "  %-10s %s\n", name, cmd.Description())
	}
	return sb.String()
}

func (c *HelpCommand) Description() string {
	return "Display help information"
}

func (c *HelpCommand) Help() string {
	return `Help Command - Display help information

Usage:
  peerxlat help            Show general help
  peerxlat help <command>  Show help for a specific command
`
}
