// FILE: peerxlat/src/internal/lookup/server.go
package lookup

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"peerxlat/src/internal/config"
	"peerxlat/src/internal/limit"
	"peerxlat/src/internal/metrics"

	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/panjf2000/gnet/v2"
)

const (
	outcomeRewritten   = "rewritten"
	outcomeUnchanged   = "unchanged"
	outcomeRateLimited = "rate_limited"
)

// Server answers fixed-size translation frames over TCP.
type Server struct {
	config     *config.LookupConfig
	translator Translator
	metrics    *metrics.Metrics
	logger     *log.Logger
	limiter    *limit.Limiter

	handler  *handler
	engine   *gnet.Engine
	engineMu sync.Mutex
	done     chan struct{}
	stopOnce sync.Once

	// Statistics
	startTime     time.Time
	activeConns   atomic.Int64
	totalConns    atomic.Uint64
	rejectedConns atomic.Uint64
	frames        atomic.Uint64
	rewritten     atomic.Uint64
	rateLimited   atomic.Uint64
}

// New creates a lookup server. It does not listen until Start.
func New(cfg *config.LookupConfig, tr Translator, m *metrics.Metrics, logger *log.Logger) *Server {
	s := &Server{
		config:     cfg,
		translator: tr,
		metrics:    m,
		logger:     logger,
		limiter:    limit.New(cfg.RateLimit, cfg.MaxConnectionsPerIP, logger),
		done:       make(chan struct{}),
		startTime:  time.Now(),
	}
	s.handler = &handler{server: s}
	return s
}

// Start runs the gnet engine in the background. It returns an error only if
// the listener fails straight away.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("tcp://%s:%d", s.config.Host, s.config.Port)

	opts := []gnet.Option{
		gnet.WithLogger(compat.NewGnetAdapter(s.logger)),
		gnet.WithMulticore(true),
		gnet.WithReusePort(true),
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("msg", "Starting lookup server",
			"component", "lookup",
			"address", addr,
			"frame_size", FrameSize)

		err := gnet.Run(s.handler, addr, opts...)
		if err != nil {
			s.logger.Error("msg", "Lookup server failed",
				"component", "lookup",
				"address", addr,
				"error", err)
		}
		errChan <- err
	}()

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.done:
		}
	}()

	select {
	case err := <-errChan:
		s.stopOnce.Do(func() { close(s.done) })
		s.limiter.Shutdown()
		return err
	case <-time.After(100 * time.Millisecond):
		s.logger.Info("msg", "Lookup server started",
			"component", "lookup",
			"port", s.config.Port)
		return nil
	}
}

// Stop shuts the engine down. Safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("msg", "Stopping lookup server", "component", "lookup")
		close(s.done)

		s.engineMu.Lock()
		engine := s.engine
		s.engineMu.Unlock()

		if engine != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := engine.Stop(ctx); err != nil {
				s.logger.Warn("msg", "Lookup engine stop returned error",
					"component", "lookup",
					"error", err)
			}
		}

		s.limiter.Shutdown()
		s.logger.Info("msg", "Lookup server stopped", "component", "lookup")
	})
}

// GetStats returns lookup server statistics.
func (s *Server) GetStats() map[string]any {
	return map[string]any{
		"uptime_seconds":     int64(time.Since(s.startTime).Seconds()),
		"active_connections": s.activeConns.Load(),
		"total_connections":  s.totalConns.Load(),
		"rejected":           s.rejectedConns.Load(),
		"frames":             s.frames.Load(),
		"rewritten":          s.rewritten.Load(),
		"rate_limited":       s.rateLimited.Load(),
		"limits":             s.limiter.GetStats(),
	}
}

// handle answers the frames buffered for one client. It returns the response
// bytes, how many request bytes were used and whether the client should be
// disconnected.
func (s *Server) handle(buf []byte, clientIP string) ([]byte, int, bool) {
	out, consumed, rewritten, denied := processFrames(buf, s.translator, func() bool {
		return s.limiter.Allow(clientIP)
	})

	n := consumed / FrameSize
	s.frames.Add(uint64(n))
	s.rewritten.Add(uint64(rewritten))
	if s.metrics != nil {
		s.metrics.LookupFrames.WithLabelValues(outcomeRewritten).Add(float64(rewritten))
		s.metrics.LookupFrames.WithLabelValues(outcomeUnchanged).Add(float64(n - rewritten))
	}

	if denied {
		s.rateLimited.Add(1)
		if s.metrics != nil {
			s.metrics.LookupFrames.WithLabelValues(outcomeRateLimited).Inc()
		}
		s.logger.Warn("msg", "Lookup client rate limited",
			"component", "lookup",
			"client_ip", clientIP)
	}
	return out, consumed, denied
}

// handler implements gnet.EventHandler for the lookup protocol.
type handler struct {
	gnet.BuiltinEventEngine
	server *Server
}

func (h *handler) OnBoot(eng gnet.Engine) gnet.Action {
	h.server.engineMu.Lock()
	h.server.engine = &eng
	h.server.engineMu.Unlock()

	h.server.logger.Debug("msg", "Lookup server booted",
		"component", "lookup",
		"port", h.server.config.Port)
	return gnet.None
}

func (h *handler) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	ip := limit.ClientIP(c.RemoteAddr().String())

	if !h.server.limiter.AddConnection(ip) {
		h.server.rejectedConns.Add(1)
		h.server.logger.Warn("msg", "Lookup connection limited",
			"component", "lookup",
			"client_ip", ip)
		return nil, gnet.Close
	}
	c.SetContext(ip)

	h.server.totalConns.Add(1)
	active := h.server.activeConns.Add(1)
	h.server.logger.Debug("msg", "Lookup connection opened",
		"component", "lookup",
		"client_ip", ip,
		"active_connections", active)
	return nil, gnet.None
}

func (h *handler) OnClose(c gnet.Conn, err error) gnet.Action {
	ip, ok := c.Context().(string)
	if !ok {
		// Rejected in OnOpen
		return gnet.None
	}

	h.server.limiter.RemoveConnection(ip)
	active := h.server.activeConns.Add(-1)
	h.server.logger.Debug("msg", "Lookup connection closed",
		"component", "lookup",
		"client_ip", ip,
		"active_connections", active,
		"error", err)
	return gnet.None
}

func (h *handler) OnTraffic(c gnet.Conn) gnet.Action {
	buffered := c.InboundBuffered()
	if buffered < FrameSize {
		return gnet.None
	}

	buf, err := c.Peek(buffered - buffered%FrameSize)
	if err != nil {
		return gnet.Close
	}

	ip, _ := c.Context().(string)
	out, consumed, closeConn := h.server.handle(buf, ip)

	if _, err := c.Discard(consumed); err != nil {
		return gnet.Close
	}
	if len(out) > 0 {
		if _, err := c.Write(out); err != nil {
			h.server.logger.Debug("msg", "Lookup write failed",
				"component", "lookup",
				"client_ip", ip,
				"error", err)
			return gnet.Close
		}
	}
	if closeConn {
		return gnet.Close
	}
	return gnet.None
}
