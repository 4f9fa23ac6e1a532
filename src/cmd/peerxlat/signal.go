// FILE: peerxlat/src/cmd/peerxlat/signal.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"peerxlat/src/internal/reload"

	"github.com/lixenwraith/log"
)

// reloader is the part of the service the signal handler drives.
type reloader interface {
	Reload(reason string) bool
}

// SignalHandler turns SIGHUP/SIGUSR1 into rule reloads and hands
// termination signals back to the caller.
type SignalHandler struct {
	target        reloader
	reloadSignals bool
	logger        *log.Logger
	sigChan       chan os.Signal
}

func NewSignalHandler(target reloader, reloadSignals bool, logger *log.Logger) *SignalHandler {
	sh := &SignalHandler{
		target:        target,
		reloadSignals: reloadSignals,
		logger:        logger,
		sigChan:       make(chan os.Signal, 1),
	}

	signal.Notify(sh.sigChan,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,
		syscall.SIGUSR1,
	)

	return sh
}

// Handle blocks until a termination signal arrives or ctx is done.
func (sh *SignalHandler) Handle(ctx context.Context) os.Signal {
	for {
		select {
		case sig := <-sh.sigChan:
			if sh.dispatch(sig) {
				continue
			}
			return sig
		case <-ctx.Done():
			return nil
		}
	}
}

// dispatch handles reload signals and reports whether sig was consumed.
func (sh *SignalHandler) dispatch(sig os.Signal) bool {
	switch sig {
	case syscall.SIGHUP, syscall.SIGUSR1:
		if !sh.reloadSignals {
			sh.logger.Warn("msg", "Reload signal ignored, signal reloads disabled",
				"signal", sig)
			return true
		}
		queued := sh.target.Reload(reload.ReasonSignal)
		sh.logger.Info("msg", "Reload signal received",
			"signal", sig,
			"queued", queued)
		return true
	default:
		return false
	}
}

func (sh *SignalHandler) Stop() {
	signal.Stop(sh.sigChan)
}
