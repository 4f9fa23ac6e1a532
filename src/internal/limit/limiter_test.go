// FILE: peerxlat/src/internal/limit/limiter_test.go
package limit

import (
	"testing"
	"time"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"peerxlat/src/internal/config"
)

func rateConfig(rps float64, burst int) *config.RateLimitConfig {
	return &config.RateLimitConfig{Enabled: true, RequestsPerSecond: rps, BurstSize: burst}
}

func TestNew_NilWhenUnconfigured(t *testing.T) {
	assert.Nil(t, New(nil, 0, log.NewLogger()))
	assert.Nil(t, New(&config.RateLimitConfig{Enabled: false}, 0, log.NewLogger()))

	var l *Limiter
	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.AddConnection("10.0.0.1"))
	l.RemoveConnection("10.0.0.1")
	l.Shutdown()
	assert.Equal(t, false, l.GetStats()["enabled"])
}

func TestAllow_PerClientBurst(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l := New(rateConfig(0.001, 2), 0, log.NewLogger())
	require.NotNil(t, l)
	defer l.Shutdown()

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))

	// Buckets are independent per client
	assert.True(t, l.Allow("10.0.0.2"))

	stats := l.GetStats()
	assert.Equal(t, uint64(4), stats["total_requests"])
	assert.Equal(t, uint64(1), stats["blocked"].(map[string]uint64)["rate_limit"])
	assert.Equal(t, 2, stats["active_clients"])
}

func TestCheckHTTP(t *testing.T) {
	cfg := rateConfig(0.001, 1)
	cfg.ResponseCode = 503
	cfg.ResponseMessage = "slow down"
	l := New(cfg, 0, log.NewLogger())
	defer l.Shutdown()

	ok, code, msg := l.CheckHTTP("192.0.2.1:5000")
	assert.True(t, ok)
	assert.Zero(t, code)
	assert.Empty(t, msg)

	// Same client, different source port
	ok, code, msg = l.CheckHTTP("192.0.2.1:5001")
	assert.False(t, ok)
	assert.Equal(t, 503, code)
	assert.Equal(t, "slow down", msg)
}

func TestCheckHTTP_Defaults(t *testing.T) {
	l := New(rateConfig(0.001, 1), 0, log.NewLogger())
	defer l.Shutdown()

	l.CheckHTTP("192.0.2.1:5000")
	ok, code, msg := l.CheckHTTP("192.0.2.1:5000")
	assert.False(t, ok)
	assert.Equal(t, 429, code)
	assert.Equal(t, string(ReasonRateLimited), msg)
}

func TestConnectionCap(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l := New(nil, 2, log.NewLogger())
	require.NotNil(t, l)
	defer l.Shutdown()

	assert.True(t, l.AddConnection("10.0.0.1"))
	assert.True(t, l.AddConnection("10.0.0.1"))
	assert.False(t, l.AddConnection("10.0.0.1"))
	assert.Equal(t, int64(2), l.Connections("10.0.0.1"))

	l.RemoveConnection("10.0.0.1")
	assert.True(t, l.AddConnection("10.0.0.1"))

	l.RemoveConnection("10.0.0.1")
	l.RemoveConnection("10.0.0.1")
	assert.Zero(t, l.Connections("10.0.0.1"))
	assert.Equal(t, 0, l.GetStats()["tracked_ips"])

	// Rate limiting off: everything passes
	assert.True(t, l.Allow("10.0.0.1"))
}

func TestRemoveIdleClients(t *testing.T) {
	l := New(rateConfig(10, 10), 0, log.NewLogger())
	defer l.Shutdown()

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.2")

	assert.Zero(t, l.removeIdleClients(time.Now().Add(-time.Hour)))
	assert.Equal(t, 2, l.removeIdleClients(time.Now().Add(time.Second)))
	assert.Equal(t, 0, l.GetStats()["active_clients"])
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "192.0.2.1", ClientIP("192.0.2.1:80"))
	assert.Equal(t, "2001:db8::1", ClientIP("[2001:db8::1]:80"))
	assert.Equal(t, "bare", ClientIP("bare"))
}
