// FILE: peerxlat/src/cmd/peerxlat/commands/router.go
package commands

import (
	"fmt"
	"io"
	"os"
	"sort"
)

// Handler defines the interface required for all subcommands.
type Handler interface {
	Execute(args []string) error
	Description() string
	Help() string
}

// CommandRouter routes CLI arguments to a subcommand handler.
type CommandRouter struct {
	commands map[string]Handler
	errOut   io.Writer
}

// NewCommandRouter creates the router with all available commands.
func NewCommandRouter() *CommandRouter {
	router := &CommandRouter{
		commands: make(map[string]Handler),
		errOut:   os.Stderr,
	}

	router.commands["check"] = NewCheckCommand()
	router.commands["auth"] = NewAuthCommand()
	router.commands["config"] = NewConfigCommand()
	router.commands["version"] = NewVersionCommand()
	router.commands["help"] = NewHelpCommand(router)

	return router
}

// Route executes a subcommand if args name one. handled is false when the
// main service should start instead.
func (r *CommandRouter) Route(args []string) (handled bool, err error) {
	if len(args) < 2 {
		return false, nil
	}

	cmdName := args[1]

	for _, arg := range args[1:] {
		if arg == "-h" || arg == "--help" {
			if handler, exists := r.commands[cmdName]; exists && cmdName != "help" {
				fmt.Print(handler.Help())
				return true, nil
			}
			return true, r.commands["help"].Execute(nil)
		}
	}

	handler, exists := r.commands[cmdName]
	if !exists {
		if cmdName[0] != '-' {
			return false, fmt.Errorf("unknown command: %s\n\nRun 'peerxlat help' for usage", cmdName)
		}
		return false, nil
	}

	return true, handler.Execute(args[2:])
}

// GetCommand returns a command handler by name.
func (r *CommandRouter) GetCommand(name string) (Handler, bool) {
	cmd, exists := r.commands[name]
	return cmd, exists
}

// names returns the registered command names in order.
func (r *CommandRouter) names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// coalesceString returns the first non-empty string.
func coalesceString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// coalesceInt returns the first value that differs from defaultVal.
func coalesceInt(primary, secondary, defaultVal int) int {
	if primary != defaultVal {
		return primary
	}
	if secondary != defaultVal {
		return secondary
	}
	return defaultVal
}

// coalesceBool returns true if any value is true.
func coalesceBool(values ...bool) bool {
	for _, v := range values {
		if v {
			return true
		}
	}
	return false
}
