// FILE: peerxlat/src/internal/admin/server.go
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"peerxlat/src/internal/auth"
	"peerxlat/src/internal/config"
	"peerxlat/src/internal/limit"
	"peerxlat/src/internal/metrics"
	"peerxlat/src/internal/reload"
	"peerxlat/src/internal/ruleset"
	"peerxlat/src/internal/translate"
	"peerxlat/src/internal/version"

	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Backend is the rule engine surface the admin API exposes.
type Backend interface {
	Status() reload.Status
	Rules() *ruleset.Ruleset
	StopPhrase() string
	Evaluate(peer, requester []byte) (translate.Decision, *ruleset.Ruleset)
	Reload(reason string) bool
	ReloadNow(reason string) error
	Metrics() *metrics.Metrics
	GetStats() map[string]any
}

// Server is the HTTP admin API.
type Server struct {
	config  *config.AdminConfig
	backend Backend
	logger  *log.Logger

	server         *fasthttp.Server
	metricsHandler fasthttp.RequestHandler
	authenticator  *auth.Authenticator
	limiter        *limit.Limiter
	startTime      time.Time
	wg             sync.WaitGroup

	// Statistics
	totalRequests atomic.Uint64
	authFailures  atomic.Uint64
	rateLimited   atomic.Uint64
}

// New creates the admin server. It does not listen until Start.
func New(cfg *config.AdminConfig, backend Backend, logger *log.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("admin config cannot be nil")
	}

	authenticator, err := auth.New(cfg.Auth, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}

	s := &Server{
		config:        cfg,
		backend:       backend,
		logger:        logger,
		authenticator: authenticator,
		limiter:       limit.New(cfg.RateLimit, 0, logger),
		startTime:     time.Now(),
	}

	promHandler := promhttp.HandlerFor(backend.Metrics().Registry(), promhttp.HandlerOpts{})
	s.metricsHandler = fasthttpadaptor.NewFastHTTPHandler(promHandler)

	return s, nil
}

// Start listens on the configured address. The server stops when ctx is
// cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.server = &fasthttp.Server{
		Name:               fmt.Sprintf("peerxlat/%s", version.Short()),
		Handler:            s.requestHandler,
		Logger:             compat.NewFastHTTPAdapter(s.logger),
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxRequestBodySize: 64 * 1024,
		CloseOnShutdown:    true,
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	errChan := make(chan error, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("msg", "Admin server started",
			"component", "admin",
			"address", addr,
			"status_path", s.config.StatusPath,
			"auth", s.authenticator != nil)

		if err := s.server.ListenAndServe(addr); err != nil {
			errChan <- err
		}
	}()

	go func() {
		<-ctx.Done()
		s.shutdownServer()
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("admin server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func (s *Server) shutdownServer() {
	if s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.server.ShutdownWithContext(shutdownCtx); err != nil {
		s.logger.Error("msg", "Error shutting down admin server",
			"component", "admin",
			"error", err)
	}
}

// Stop shuts the listener down and waits for it to exit.
func (s *Server) Stop() {
	s.logger.Info("msg", "Stopping admin server", "component", "admin")

	s.shutdownServer()
	s.wg.Wait()
	s.limiter.Shutdown()

	s.logger.Info("msg", "Admin server stopped", "component", "admin")
}

func (s *Server) requestHandler(ctx *fasthttp.RequestCtx) {
	s.totalRequests.Add(1)
	remoteAddr := ctx.RemoteAddr().String()

	if allowed, statusCode, message := s.limiter.CheckHTTP(remoteAddr); !allowed {
		s.rateLimited.Add(1)
		s.logger.Warn("msg", "Admin request rate limited",
			"component", "admin",
			"remote_addr", remoteAddr,
			"status_code", statusCode)
		writeJSON(ctx, statusCode, map[string]any{
			"error": message,
		})
		return
	}

	path := string(ctx.Path())

	// Status endpoint doesn't require auth
	if path == s.config.StatusPath {
		if !requireMethod(ctx, fasthttp.MethodGet) {
			return
		}
		s.handleStatus(ctx)
		return
	}

	if s.authenticator != nil {
		authHeader := string(ctx.Request.Header.Peek("Authorization"))
		if _, err := s.authenticator.AuthenticateHTTP(authHeader, remoteAddr); err != nil {
			s.authFailures.Add(1)
			ctx.Response.Header.Set("WWW-Authenticate",
				fmt.Sprintf("%s realm=%q", s.authenticator.Scheme(), s.authenticator.Realm()))
			writeJSON(ctx, fasthttp.StatusUnauthorized, map[string]string{
				"error": "Unauthorized",
			})
			return
		}
	}

	switch path {
	case "/rules":
		if requireMethod(ctx, fasthttp.MethodGet) {
			s.handleRules(ctx)
		}
	case "/translate":
		if requireMethod(ctx, fasthttp.MethodGet) {
			s.handleTranslate(ctx)
		}
	case "/reload":
		if requireMethod(ctx, fasthttp.MethodPost) {
			s.handleReload(ctx)
		}
	case "/metrics":
		if requireMethod(ctx, fasthttp.MethodGet) {
			s.metricsHandler(ctx)
		}
	default:
		writeJSON(ctx, fasthttp.StatusNotFound, map[string]any{
			"error": "Not Found",
			"endpoints": []string{
				s.config.StatusPath, "/rules", "/translate", "/reload", "/metrics",
			},
		})
	}
}

// GetStats returns admin server statistics
func (s *Server) GetStats() map[string]any {
	return map[string]any{
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"total_requests": s.totalRequests.Load(),
		"auth_failures":  s.authFailures.Load(),
		"rate_limited":   s.rateLimited.Load(),
		"auth":           s.authenticator.GetStats(),
		"rate_limit":     s.limiter.GetStats(),
	}
}

func requireMethod(ctx *fasthttp.RequestCtx, method string) bool {
	if string(ctx.Method()) == method {
		return true
	}
	ctx.Response.Header.Set("Allow", method)
	writeJSON(ctx, fasthttp.StatusMethodNotAllowed, map[string]string{
		"error": fmt.Sprintf("method %s not allowed", ctx.Method()),
	})
	return false
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, body any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(body)
}
