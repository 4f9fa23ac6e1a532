// FILE: peerxlat/src/cmd/peerxlat/output.go
package main

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// OutputHandler writes console messages unless quiet mode is on.
type OutputHandler struct {
	quiet  bool
	mu     sync.RWMutex
	stdout io.Writer
	stderr io.Writer
}

var output *OutputHandler

// InitOutputHandler sets up the global output handler.
func InitOutputHandler(quiet bool) {
	output = &OutputHandler{
		quiet:  quiet,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

func (o *OutputHandler) Print(format string, args ...any) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if !o.quiet {
		fmt.Fprintf(o.stdout, format, args...)
	}
}

func (o *OutputHandler) Error(format string, args ...any) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if !o.quiet {
		fmt.Fprintf(o.stderr, format, args...)
	}
}

// SetQuiet updates quiet mode once the config file has been read.
func (o *OutputHandler) SetQuiet(quiet bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.quiet = quiet
}

func Print(format string, args ...any) {
	if output != nil {
		output.Print(format, args...)
	}
}

func Error(format string, args ...any) {
	if output != nil {
		output.Error(format, args...)
	}
}

// FatalError prints the message (unless quiet) and exits with code.
func FatalError(code int, format string, args ...any) {
	if output != nil {
		output.Error(format, args...)
	} else {
		fmt.Fprintf(os.Stderr, format, args...)
	}
	os.Exit(code)
}
