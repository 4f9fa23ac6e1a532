// FILE: peerxlat/src/internal/reload/controller.go
package reload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"peerxlat/src/internal/metrics"
	"peerxlat/src/internal/ruleset"

	"github.com/lixenwraith/log"
)

// Reasons passed to Trigger by the built-in event sources.
const (
	ReasonStartup     = "startup"
	ReasonSignal      = "signal"
	ReasonFileChanged = "file_changed"
	ReasonAdmin       = "admin"
)

// ErrShutdown is returned for work requested after Shutdown.
var ErrShutdown = errors.New("reload controller is shut down")

// Options tune a Controller. Zero values mean defaults.
type Options struct {
	StopPhrase    string
	MaxRules      int
	WatchInterval time.Duration
}

// Status describes the most recent load attempt.
type Status struct {
	State      string    `json:"state"`
	Source     string    `json:"source"`
	Reason     string    `json:"reason"`
	LastReload time.Time `json:"last_reload"`
	Duration   string    `json:"duration"`
	Generation uint64    `json:"generation"`
	Rules      int       `json:"rules"`
	Cause      string    `json:"cause"`
	Error      string    `json:"error,omitempty"`
	Line       int       `json:"line,omitempty"`
	Content    string    `json:"content,omitempty"`
	Attempts   uint64    `json:"attempts"`
	Failures   uint64    `json:"failures"`
}

// Controller loads the rules file into a Store, once at startup and again
// on every reload event, until Shutdown.
type Controller struct {
	path    string
	store   *ruleset.Store
	logger  *log.Logger
	metrics *metrics.Metrics
	opts    Options

	events     chan string
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	started    atomic.Bool
	stopOnce   sync.Once
	reloadMu   sync.Mutex
	reloading  atomic.Bool

	mu     sync.RWMutex
	status Status
}

// New creates a controller for the rules file at path. m may be nil.
func New(path string, store *ruleset.Store, logger *log.Logger, m *metrics.Metrics, opts Options) *Controller {
	return &Controller{
		path:       path,
		store:      store,
		logger:     logger,
		metrics:    m,
		opts:       opts,
		events:     make(chan string, 1),
		shutdownCh: make(chan struct{}),
		status:     Status{State: "idle", Source: path, Cause: ruleset.CauseName(nil)},
	}
}

// Start performs the initial load synchronously and then waits for reload
// events in the background. A failed initial load is not an error: the store
// is left empty and the controller keeps running.
func (c *Controller) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("reload controller already started")
	}
	if c.isShutdown() {
		return ErrShutdown
	}

	var baseline fileState
	if c.opts.WatchInterval > 0 {
		st, err := statFile(c.path)
		if err != nil {
			c.logger.Warn("msg", "Rules file stat failed",
				"component", "reload_watcher",
				"rules_file", c.path,
				"error", err)
		}
		baseline = st
	}

	c.reload(ReasonStartup)

	c.wg.Add(1)
	go c.loop(ctx)

	if c.opts.WatchInterval > 0 {
		w := newFileWatcher(c.path, c.opts.WatchInterval, baseline, c.logger, func() {
			c.Trigger(ReasonFileChanged)
		})
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			w.watch(ctx, c.shutdownCh)
		}()
	}

	c.logger.Info("msg", "Rule reload controller started",
		"component", "reload",
		"rules_file", c.path,
		"watch_interval", c.opts.WatchInterval)

	return nil
}

// Trigger requests a reload. It never blocks: while a request is already
// pending, further ones are merged into it. Returns false when merged.
func (c *Controller) Trigger(reason string) bool {
	select {
	case c.events <- reason:
		return true
	default:
		c.logger.Debug("msg", "Reload already pending, request merged",
			"component", "reload",
			"reason", reason)
		return false
	}
}

// ReloadNow loads synchronously on the caller's goroutine. Used by the CLI
// and the admin API when the caller wants the outcome.
func (c *Controller) ReloadNow(reason string) error {
	return c.reload(reason)
}

func (c *Controller) loop(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdownCh:
			return
		case reason := <-c.events:
			c.reload(reason)
		}
	}
}

// reload parses off to the side and only then swaps the store handle. Any
// failure empties the store; the previous ruleset is never kept.
func (c *Controller) reload(reason string) error {
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	if c.isShutdown() {
		return ErrShutdown
	}

	c.reloading.Store(true)
	defer c.reloading.Store(false)

	start := time.Now()
	rs, err := ruleset.Load(c.path,
		ruleset.WithStopPhrase(c.opts.StopPhrase),
		ruleset.WithMaxRules(c.opts.MaxRules))
	elapsed := time.Since(start)

	var gen uint64
	if err != nil {
		gen = c.store.Clear()
	} else {
		gen = c.store.Commit(rs)
	}

	st := c.recordStatus(reason, rs, err, gen, start, elapsed)
	c.metrics.ObserveReload(st.Cause, st.Rules, gen)

	if err != nil {
		c.logger.Error("msg", "Rules load failed, translation disabled until next successful reload",
			"component", "reload",
			"rules_file", c.path,
			"reason", reason,
			"cause", st.Cause,
			"line", st.Line,
			"content", st.Content,
			"error", err)
		return fmt.Errorf("reload %s: %w", c.path, err)
	}

	c.logger.Info("msg", "Rules loaded",
		"component", "reload",
		"rules_file", c.path,
		"reason", reason,
		"rules", rs.Len(),
		"generation", gen,
		"duration", elapsed)
	return nil
}

func (c *Controller) recordStatus(reason string, rs *ruleset.Ruleset, err error, gen uint64, at time.Time, elapsed time.Duration) Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := &c.status
	st.Reason = reason
	st.LastReload = at
	st.Duration = elapsed.String()
	st.Generation = gen
	st.Rules = rs.Len()
	st.Cause = ruleset.CauseName(err)
	st.Attempts++
	st.Error, st.Line, st.Content = "", 0, ""
	if err != nil {
		st.Failures++
		st.Error = err.Error()
		var pe *ruleset.ParseError
		if errors.As(err, &pe) {
			st.Line = pe.Line
			st.Content = pe.Raw
		}
	}
	return *st
}

// Status returns a copy of the latest load outcome.
func (c *Controller) Status() Status {
	c.mu.RLock()
	st := c.status
	c.mu.RUnlock()

	switch {
	case c.reloading.Load():
		st.State = "reloading"
	case c.isShutdown():
		st.State = "stopped"
	default:
		st.State = "idle"
	}
	return st
}

// Shutdown interrupts the wait for events, waits for background goroutines
// and drops the active ruleset. Safe to call more than once.
func (c *Controller) Shutdown() {
	c.stopOnce.Do(func() {
		c.logger.Info("msg", "Shutting down rule reload controller", "component", "reload")
		close(c.shutdownCh)
		c.wg.Wait()

		c.reloadMu.Lock()
		c.store.Clear()
		c.reloadMu.Unlock()
	})
}

func (c *Controller) isShutdown() bool {
	select {
	case <-c.shutdownCh:
		return true
	default:
		return false
	}
}
