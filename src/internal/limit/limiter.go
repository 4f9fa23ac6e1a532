// FILE: peerxlat/src/internal/limit/limiter.go
package limit

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"peerxlat/src/internal/config"

	"github.com/lixenwraith/log"
	"golang.org/x/time/rate"
)

// DenialReason indicates why a request was denied
type DenialReason string

const (
	ReasonAllowed           DenialReason = ""
	ReasonRateLimited       DenialReason = "Rate limit exceeded"
	ReasonConnectionLimited DenialReason = "Connection limit exceeded"
)

const (
	defaultCleanupInterval = 30 * time.Second
	defaultStatusCode      = 429
)

// Limiter applies per-client token buckets and connection caps. A nil
// *Limiter allows everything.
type Limiter struct {
	config   config.RateLimitConfig
	maxConns int64
	logger   *log.Logger

	clients sync.Map // map[string]*clientLimiter

	// Connection tracking
	connections map[string]*atomic.Int64
	connMu      sync.Mutex

	// Statistics
	totalRequests      atomic.Uint64
	blockedByRateLimit atomic.Uint64
	blockedByConnLimit atomic.Uint64

	cleanupInterval time.Duration
	ctx             context.Context
	cancel          context.CancelFunc
	cleanupDone     chan struct{}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// New creates a limiter. Returns nil when neither rate limiting nor a
// connection cap is configured.
func New(cfg *config.RateLimitConfig, maxConnsPerIP int64, logger *log.Logger) *Limiter {
	rateEnabled := cfg != nil && cfg.Enabled
	if !rateEnabled && maxConnsPerIP <= 0 {
		return nil
	}

	if logger == nil {
		panic("limit.New: logger cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Limiter{
		maxConns:        maxConnsPerIP,
		logger:          logger,
		connections:     make(map[string]*atomic.Int64),
		cleanupInterval: defaultCleanupInterval,
		ctx:             ctx,
		cancel:          cancel,
		cleanupDone:     make(chan struct{}),
	}
	if cfg != nil {
		l.config = *cfg
	}

	if rateEnabled {
		go l.cleanupLoop()
	} else {
		close(l.cleanupDone)
	}

	logger.Info("msg", "Client limiter initialized",
		"component", "limit",
		"rate_limiting", rateEnabled,
		"requests_per_second", l.config.RequestsPerSecond,
		"burst_size", l.config.BurstSize,
		"max_connections_per_ip", maxConnsPerIP)

	return l
}

// ClientIP strips the port from a remote address.
func ClientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// Allow reports whether one more request from ip may proceed.
func (l *Limiter) Allow(ip string) bool {
	if l == nil {
		return true
	}

	l.totalRequests.Add(1)

	if !l.config.Enabled {
		return true
	}

	if !l.getLimiter(ip).Allow() {
		l.blockedByRateLimit.Add(1)
		return false
	}
	return true
}

// CheckHTTP is Allow with the configured HTTP response for denials.
func (l *Limiter) CheckHTTP(remoteAddr string) (allowed bool, statusCode int, message string) {
	if l.Allow(ClientIP(remoteAddr)) {
		return true, 0, ""
	}

	statusCode = l.config.ResponseCode
	if statusCode == 0 {
		statusCode = defaultStatusCode
	}
	message = l.config.ResponseMessage
	if message == "" {
		message = string(ReasonRateLimited)
	}
	return false, statusCode, message
}

func (l *Limiter) getLimiter(ip string) *rate.Limiter {
	now := time.Now().UnixNano()

	if val, ok := l.clients.Load(ip); ok {
		client := val.(*clientLimiter)
		client.lastSeen.Store(now)
		return client.limiter
	}

	client := &clientLimiter{
		limiter: rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.BurstSize),
	}
	client.lastSeen.Store(now)

	actual, _ := l.clients.LoadOrStore(ip, client)
	return actual.(*clientLimiter).limiter
}

// AddConnection registers a connection from ip. It returns false, without
// registering, when the per-IP cap is already reached.
func (l *Limiter) AddConnection(ip string) bool {
	if l == nil {
		return true
	}

	l.connMu.Lock()
	defer l.connMu.Unlock()

	counter, exists := l.connections[ip]
	if !exists {
		counter = &atomic.Int64{}
		l.connections[ip] = counter
	}

	if l.maxConns > 0 && counter.Load() >= l.maxConns {
		l.blockedByConnLimit.Add(1)
		l.logger.Debug("msg", "Connection rejected",
			"component", "limit",
			"ip", ip,
			"reason", ReasonConnectionLimited)
		return false
	}

	counter.Add(1)
	return true
}

// RemoveConnection releases a connection registered with AddConnection.
func (l *Limiter) RemoveConnection(ip string) {
	if l == nil {
		return
	}

	l.connMu.Lock()
	defer l.connMu.Unlock()

	counter, exists := l.connections[ip]
	if !exists {
		return
	}
	if counter.Add(-1) <= 0 {
		delete(l.connections, ip)
	}
}

// Connections returns the live connection count for ip.
func (l *Limiter) Connections(ip string) int64 {
	if l == nil {
		return 0
	}

	l.connMu.Lock()
	defer l.connMu.Unlock()

	if counter, ok := l.connections[ip]; ok {
		return counter.Load()
	}
	return 0
}

// GetStats returns limiter statistics
func (l *Limiter) GetStats() map[string]any {
	if l == nil {
		return map[string]any{"enabled": false}
	}

	activeClients := 0
	l.clients.Range(func(_, _ any) bool {
		activeClients++
		return true
	})

	l.connMu.Lock()
	trackedIPs := len(l.connections)
	l.connMu.Unlock()

	return map[string]any{
		"enabled":        true,
		"total_requests": l.totalRequests.Load(),
		"blocked": map[string]uint64{
			"rate_limit":       l.blockedByRateLimit.Load(),
			"connection_limit": l.blockedByConnLimit.Load(),
		},
		"active_clients": activeClients,
		"tracked_ips":    trackedIPs,
	}
}

func (l *Limiter) cleanupLoop() {
	defer close(l.cleanupDone)

	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.removeIdleClients(time.Now().Add(-2 * l.cleanupInterval))
		}
	}
}

// removeIdleClients drops buckets not used since threshold.
func (l *Limiter) removeIdleClients(threshold time.Time) int {
	removed := 0
	cutoff := threshold.UnixNano()
	l.clients.Range(func(key, value any) bool {
		if value.(*clientLimiter).lastSeen.Load() < cutoff {
			l.clients.Delete(key)
			removed++
		}
		return true
	})

	if removed > 0 {
		l.logger.Debug("msg", "Removed idle client limiters",
			"component", "limit",
			"removed", removed)
	}
	return removed
}

// Shutdown stops the cleanup goroutine.
func (l *Limiter) Shutdown() {
	if l == nil {
		return
	}

	l.cancel()

	select {
	case <-l.cleanupDone:
	case <-time.After(2 * time.Second):
		l.logger.Warn("msg", "Cleanup goroutine shutdown timeout", "component", "limit")
	}
}
