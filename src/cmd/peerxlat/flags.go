// FILE: peerxlat/src/cmd/peerxlat/flags.go
package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// flagConfig holds the flags handled before configuration is loaded.
type flagConfig struct {
	ConfigFile  string
	Quiet       bool
	ShowVersion bool
}

// parseFlags parses the application flags and returns the --section.key
// overrides untouched for the config builder.
func parseFlags(args []string, errOut io.Writer) (*flagConfig, []string, error) {
	appArgs, overrides := splitOverrides(args)

	fc := &flagConfig{}
	fs := flag.NewFlagSet("peerxlat", flag.ContinueOnError)
	fs.SetOutput(errOut)

	fs.StringVar(&fc.ConfigFile, "c", "", "Config file path")
	fs.StringVar(&fc.ConfigFile, "config", "", "Config file path")
	fs.BoolVar(&fc.Quiet, "q", false, "Suppress all console output")
	fs.BoolVar(&fc.Quiet, "quiet", false, "Suppress all console output")
	fs.BoolVar(&fc.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&fc.ShowVersion, "version", false, "Show version information")

	if err := fs.Parse(appArgs); err != nil {
		return nil, nil, err
	}
	if fs.NArg() > 0 {
		return nil, nil, fmt.Errorf("unexpected argument(s): %s", strings.Join(fs.Args(), " "))
	}

	configSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "c" || f.Name == "config" {
			configSet = true
		}
	})
	if configSet && fc.ConfigFile == "" {
		return nil, nil, fmt.Errorf("-config requires a path")
	}

	return fc, overrides, nil
}

// splitOverrides separates dotted config keys (--rules.file=x or
// --rules.file x) from application flags.
func splitOverrides(args []string) (appArgs, overrides []string) {
	appArgs = make([]string, 0, len(args))
	overrides = make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, _, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || !strings.Contains(name, ".") {
			appArgs = append(appArgs, arg)
			continue
		}

		overrides = append(overrides, arg)
		if !hasValue && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			overrides = append(overrides, args[i])
		}
	}
	return appArgs, overrides
}
