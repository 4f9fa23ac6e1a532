// FILE: peerxlat/src/internal/auth/authenticator.go
package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"peerxlat/src/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lixenwraith/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// Prevent unbounded map growth
const maxAuthTrackedIPs = 10000

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("too many authentication attempts")
)

// Authenticator checks admin API credentials. A nil *Authenticator accepts
// every request.
type Authenticator struct {
	config     *config.AuthConfig
	logger     *log.Logger
	basicUsers map[string]string // username -> bcrypt hash
	jwtParser  *jwt.Parser
	jwtKey     []byte

	// Slows down brute forcing; zero in tests
	failureDelay time.Duration

	// Brute-force protection
	ipAuthAttempts map[string]*ipAuthState
	authMu         sync.Mutex
}

type ipAuthState struct {
	limiter      *rate.Limiter
	failCount    int
	lastAttempt  time.Time
	blockedUntil time.Time
}

// Principal identifies an authenticated caller.
type Principal struct {
	Username   string
	Method     string // none, basic, jwt
	RemoteAddr string
}

// New creates an authenticator from config. Returns nil for type "none".
func New(cfg *config.AuthConfig, logger *log.Logger) (*Authenticator, error) {
	if cfg == nil || cfg.Type == "" || cfg.Type == "none" {
		return nil, nil
	}

	a := &Authenticator{
		config:         cfg,
		logger:         logger,
		basicUsers:     make(map[string]string),
		failureDelay:   500 * time.Millisecond,
		ipAuthAttempts: make(map[string]*ipAuthState),
	}

	switch cfg.Type {
	case "basic":
		for _, user := range cfg.Users {
			a.basicUsers[user.Username] = user.PasswordHash
		}
	case "jwt":
		if cfg.JWTSigningKey == "" {
			return nil, fmt.Errorf("jwt auth requires a signing key")
		}
		a.jwtKey = []byte(cfg.JWTSigningKey)
		opts := []jwt.ParserOption{
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
			jwt.WithLeeway(5 * time.Second),
			jwt.WithExpirationRequired(),
		}
		if cfg.JWTIssuer != "" {
			opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
		}
		a.jwtParser = jwt.NewParser(opts...)
	default:
		return nil, fmt.Errorf("unsupported auth type: %s", cfg.Type)
	}

	logger.Info("msg", "Authenticator initialized",
		"component", "auth",
		"type", cfg.Type,
		"basic_users", len(a.basicUsers))

	return a, nil
}

// Realm returns the WWW-Authenticate realm.
func (a *Authenticator) Realm() string {
	if a == nil || a.config.Realm == "" {
		return "peerxlat"
	}
	return a.config.Realm
}

// Scheme returns the HTTP auth scheme expected in the Authorization header.
func (a *Authenticator) Scheme() string {
	if a != nil && a.config.Type == "jwt" {
		return "Bearer"
	}
	return "Basic"
}

// AuthenticateHTTP validates an Authorization header value.
func (a *Authenticator) AuthenticateHTTP(authHeader, remoteAddr string) (*Principal, error) {
	if a == nil {
		return &Principal{Method: "none", RemoteAddr: remoteAddr}, nil
	}

	if err := a.checkRateLimit(remoteAddr); err != nil {
		return nil, err
	}

	var (
		p   *Principal
		err error
	)
	switch a.config.Type {
	case "basic":
		p, err = a.authenticateBasic(authHeader, remoteAddr)
	case "jwt":
		p, err = a.authenticateBearer(authHeader, remoteAddr)
	default:
		err = fmt.Errorf("unsupported auth type: %s", a.config.Type)
	}

	if err != nil {
		a.recordFailure(remoteAddr)
		a.logger.Warn("msg", "Authentication failed",
			"component", "auth",
			"remote_addr", remoteAddr,
			"error", err)
		if a.failureDelay > 0 {
			time.Sleep(a.failureDelay)
		}
		return nil, err
	}

	a.recordSuccess(remoteAddr)
	return p, nil
}

func (a *Authenticator) authenticateBasic(authHeader, remoteAddr string) (*Principal, error) {
	if !strings.HasPrefix(authHeader, "Basic ") {
		return nil, fmt.Errorf("%w: expected basic authorization", ErrInvalidCredentials)
	}

	payload, err := base64.StdEncoding.DecodeString(authHeader[6:])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 encoding", ErrInvalidCredentials)
	}

	username, password, ok := strings.Cut(string(payload), ":")
	if !ok {
		return nil, fmt.Errorf("%w: invalid credentials format", ErrInvalidCredentials)
	}

	expectedHash, exists := a.basicUsers[username]
	if !exists {
		// Perform bcrypt anyway to prevent timing attacks
		bcrypt.CompareHashAndPassword([]byte("$2a$10$dummy.hash.to.prevent.timing.attacks"), []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(expectedHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &Principal{Username: username, Method: "basic", RemoteAddr: remoteAddr}, nil
}

func (a *Authenticator) authenticateBearer(authHeader, remoteAddr string) (*Principal, error) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, fmt.Errorf("%w: expected bearer authorization", ErrInvalidCredentials)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := a.jwtParser.ParseWithClaims(authHeader[7:], claims, func(*jwt.Token) (any, error) {
		return a.jwtKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if !token.Valid {
		return nil, ErrInvalidCredentials
	}

	return &Principal{Username: claims.Subject, Method: "jwt", RemoteAddr: remoteAddr}, nil
}

// Check and enforce per-IP attempt limits
func (a *Authenticator) checkRateLimit(remoteAddr string) error {
	ip := clientIP(remoteAddr)

	a.authMu.Lock()
	defer a.authMu.Unlock()

	state, exists := a.ipAuthAttempts[ip]
	now := time.Now()

	if !exists {
		if len(a.ipAuthAttempts) >= maxAuthTrackedIPs {
			a.evictOldest()
		}

		// 5 attempts per minute, burst of 3
		state = &ipAuthState{
			limiter:     rate.NewLimiter(rate.Every(12*time.Second), 3),
			lastAttempt: now,
		}
		a.ipAuthAttempts[ip] = state
	}

	if now.Before(state.blockedUntil) {
		remaining := state.blockedUntil.Sub(now)
		return fmt.Errorf("%w: blocked for %v", ErrRateLimited, remaining.Round(time.Second))
	}

	if !state.limiter.Allow() {
		state.failCount++

		// Progressive blocking: 2^failCount minutes, capped at 64
		blockMinutes := 1 << min(state.failCount, 6)
		state.blockedUntil = now.Add(time.Duration(blockMinutes) * time.Minute)

		a.logger.Warn("msg", "Authentication rate limit exceeded, blocking IP",
			"component", "auth",
			"ip", ip,
			"fail_count", state.failCount,
			"block_duration", time.Duration(blockMinutes)*time.Minute)

		return ErrRateLimited
	}

	state.lastAttempt = now
	return nil
}

// evictOldest drops the stalest of a small sample of tracked IPs.
func (a *Authenticator) evictOldest() {
	const sampleSize = 20

	var oldestIP string
	oldestTime := time.Now()
	sampled := 0
	for ip, st := range a.ipAuthAttempts {
		if st.lastAttempt.Before(oldestTime) {
			oldestIP = ip
			oldestTime = st.lastAttempt
		}
		sampled++
		if sampled >= sampleSize {
			break
		}
	}

	if oldestIP != "" {
		delete(a.ipAuthAttempts, oldestIP)
	}
}

func (a *Authenticator) recordFailure(remoteAddr string) {
	a.authMu.Lock()
	defer a.authMu.Unlock()

	if state, exists := a.ipAuthAttempts[clientIP(remoteAddr)]; exists {
		state.failCount++
		state.lastAttempt = time.Now()
	}
}

func (a *Authenticator) recordSuccess(remoteAddr string) {
	a.authMu.Lock()
	defer a.authMu.Unlock()

	if state, exists := a.ipAuthAttempts[clientIP(remoteAddr)]; exists {
		state.failCount = 0
		state.blockedUntil = time.Time{}
	}
}

// GetStats returns authentication statistics
func (a *Authenticator) GetStats() map[string]any {
	if a == nil {
		return map[string]any{"enabled": false}
	}

	a.authMu.Lock()
	tracked := len(a.ipAuthAttempts)
	a.authMu.Unlock()

	return map[string]any{
		"enabled":     true,
		"type":        a.config.Type,
		"basic_users": len(a.basicUsers),
		"tracked_ips": tracked,
	}
}

func clientIP(remoteAddr string) string {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return ip
}
