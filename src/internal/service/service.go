// FILE: peerxlat/src/internal/service/service.go
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"peerxlat/src/internal/config"
	"peerxlat/src/internal/metrics"
	"peerxlat/src/internal/reload"
	"peerxlat/src/internal/ruleset"
	"peerxlat/src/internal/translate"

	"github.com/lixenwraith/log"
)

// Service is the rule engine handle a tracker embeds: it owns the active
// ruleset, the reload controller feeding it and the translator reading it.
type Service struct {
	cfg        config.RulesConfig
	store      *ruleset.Store
	controller *reload.Controller
	translator *translate.Translator
	metrics    *metrics.Metrics
	logger     *log.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	startedAt time.Time
	mu        sync.Mutex
	started   bool
	stopped   bool
}

// New creates a service for the given rules and reload settings. Nothing is
// loaded until Start.
func New(ctx context.Context, rules config.RulesConfig, reloadCfg config.ReloadConfig, logger *log.Logger) *Service {
	serviceCtx, cancel := context.WithCancel(ctx)

	m := metrics.New()
	store := ruleset.NewStore()

	return &Service{
		cfg:        rules,
		store:      store,
		controller: reload.New(rules.File, store, logger, m, reload.Options{
			StopPhrase:    rules.StopPhrase,
			MaxRules:      rules.MaxRules,
			WatchInterval: reloadCfg.WatchInterval(),
		}),
		translator: translate.New(store, m),
		metrics:    m,
		logger:     logger,
		ctx:        serviceCtx,
		cancel:     cancel,
	}
}

// Start performs the first load and starts the reload controller. A rules
// file that fails to load does not fail Start; translation stays disabled
// until a later reload succeeds.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("service already shut down")
	}
	if s.started {
		return fmt.Errorf("service already started")
	}

	if err := s.controller.Start(s.ctx); err != nil {
		return fmt.Errorf("failed to start reload controller: %w", err)
	}
	s.started = true
	s.startedAt = time.Now()

	st := s.controller.Status()
	s.logger.Info("msg", "Translation service started",
		"component", "service",
		"rules_file", s.cfg.File,
		"rules", st.Rules,
		"load_cause", st.Cause)

	return nil
}

// Shutdown stops the reload controller and releases the active ruleset.
// Translate keeps working afterwards and passes every address through.
func (s *Service) Shutdown() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.logger.Info("msg", "Service shutdown initiated", "component", "service")

	s.controller.Shutdown()
	s.cancel()

	s.logger.Info("msg", "Service shutdown complete", "component", "service")
}

// Translate rewrites peer in place according to the active ruleset.
func (s *Service) Translate(peer, requester []byte) bool {
	return s.translator.Translate(peer, requester)
}

// Evaluate reports what Translate would do without modifying peer.
func (s *Service) Evaluate(peer, requester []byte) (translate.Decision, *ruleset.Ruleset) {
	rs := s.store.Load()
	return translate.Evaluate(rs, peer, requester), rs
}

// Rules returns the active ruleset snapshot.
func (s *Service) Rules() *ruleset.Ruleset {
	return s.store.Load()
}

// StopPhrase is the phrase used when rendering stopper rules.
func (s *Service) StopPhrase() string {
	if s.cfg.StopPhrase == "" {
		return ruleset.DefaultStopPhrase
	}
	return s.cfg.StopPhrase
}

// Reload queues an asynchronous reload. Returns false if one was already
// pending.
func (s *Service) Reload(reason string) bool {
	return s.controller.Trigger(reason)
}

// ReloadNow reloads synchronously and returns the load error, if any.
func (s *Service) ReloadNow(reason string) error {
	return s.controller.ReloadNow(reason)
}

// Status returns the latest reload outcome.
func (s *Service) Status() reload.Status {
	return s.controller.Status()
}

// Metrics exposes the service's collectors.
func (s *Service) Metrics() *metrics.Metrics {
	return s.metrics
}

// GetStats returns a snapshot for status reporting.
func (s *Service) GetStats() map[string]any {
	st := s.controller.Status()

	s.mu.Lock()
	startedAt := s.startedAt
	s.mu.Unlock()

	stats := map[string]any{
		"rules_file":  s.cfg.File,
		"rules":       s.store.Load().Len(),
		"generation":  s.store.Generation(),
		"reload":      st,
		"stop_phrase": s.StopPhrase(),
	}
	if !startedAt.IsZero() {
		stats["uptime_seconds"] = int64(time.Since(startedAt).Seconds())
	}
	return stats
}
