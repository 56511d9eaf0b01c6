package ratelimit

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(config *Config) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLimiter(config)
	l.now = clock.now
	return l, clock
}

func TestLimiter_Allow(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
	})
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/regions", http.MethodGet)
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 10-i-1, info.Remaining)
	}

	allowed, info := limiter.Allow("127.0.0.1", "/regions", http.MethodGet)
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Greater(t, info.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, info.RetryAfter, 6*time.Second)
}

func TestLimiter_Refill(t *testing.T) {
	limiter, clock := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  60,
		DefaultWindow: time.Minute,
	})
	defer limiter.Stop()

	for i := 0; i < 60; i++ {
		limiter.Allow("c", "/regions", http.MethodGet)
	}
	allowed, _ := limiter.Allow("c", "/regions", http.MethodGet)
	require.False(t, allowed)

	clock.advance(1100 * time.Millisecond)

	allowed, _ = limiter.Allow("c", "/regions", http.MethodGet)
	assert.True(t, allowed, "one token refills per second")
	allowed, _ = limiter.Allow("c", "/regions", http.MethodGet)
	assert.False(t, allowed)
}

func TestLimiter_ResetTime(t *testing.T) {
	limiter, clock := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: 10 * time.Second,
	})
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		limiter.Allow("c", "/x", http.MethodGet)
	}
	_, info := limiter.Allow("c", "/x", http.MethodGet)

	assert.Equal(t, 4, info.Remaining)
	assert.Equal(t, clock.now().Add(6*time.Second), info.ResetTime)
}

func TestLimiter_Exempt(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Exempt:        map[string]bool{"10.0.0.1": true},
	})
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		allowed, _ := limiter.Allow("10.0.0.1", "/collection", http.MethodGet)
		assert.True(t, allowed)
	}
}

func TestLimiter_Disabled(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{Enabled: false})
	defer limiter.Stop()

	for i := 0; i < 100; i++ {
		allowed, info := limiter.Allow("c", "/collection", http.MethodGet)
		require.True(t, allowed)
		assert.Zero(t, info.Limit)
	}
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:         true,
		DefaultLimit:    100,
		DefaultWindow:   time.Minute,
		EndpointConfigs: DefaultEndpointConfigs(30, 2),
	})
	defer limiter.Stop()

	for i := 0; i < 2; i++ {
		allowed, info := limiter.Allow("c", "/collection", http.MethodGet)
		require.True(t, allowed)
		assert.Equal(t, 30, info.Limit)
	}
	allowed, _ := limiter.Allow("c", "/collection", http.MethodGet)
	assert.False(t, allowed, "burst of 2 exhausted")

	allowed, info := limiter.Allow("c", "/regions", http.MethodGet)
	assert.True(t, allowed)
	assert.Equal(t, 100, info.Limit)
}

func TestLimiter_SharedBucketAcrossPaths(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:         true,
		DefaultLimit:    100,
		DefaultWindow:   time.Minute,
		EndpointConfigs: DefaultEndpointConfigs(1, 1),
	})
	defer limiter.Stop()

	allowed, _ := limiter.Allow("c", "/collection/ical", http.MethodGet)
	require.True(t, allowed)

	for _, path := range []string{"/collection/ICAL", "/collection/Ical", "/collection/ics", "/collection/csv", "/collection/json", "/collection", "/collection/", "/collection/junk"} {
		allowed, _ := limiter.Allow("c", path, http.MethodGet)
		assert.False(t, allowed, path)
	}
	assert.Equal(t, 1, limiter.size())

	allowed, _ = limiter.Allow("other", "/collection/csv", http.MethodGet)
	assert.True(t, allowed, "other clients keep their own bucket")
}

func TestLimiter_DefaultTierShared(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  2,
		DefaultWindow: time.Minute,
	})
	defer limiter.Stop()

	for _, path := range []string{"/regions", "/a", "/b"} {
		limiter.Allow("c", path, http.MethodGet)
	}
	assert.Equal(t, 1, limiter.size())
	allowed, _ := limiter.Allow("c", "/c", http.MethodGet)
	assert.False(t, allowed)
}

func TestLimiter_HealthUnlimited(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
	})
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		allowed, _ := limiter.Allow("c", "/health", http.MethodGet)
		assert.True(t, allowed)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  50,
		DefaultWindow: time.Hour,
	})
	defer limiter.Stop()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := limiter.Allow("c", "/regions", http.MethodGet)
			if ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}

func TestLimiter_SeparateClients(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
	})
	defer limiter.Stop()

	for i := 0; i < 3; i++ {
		allowed, _ := limiter.Allow(fmt.Sprintf("client-%d", i), "/regions", http.MethodGet)
		assert.True(t, allowed)
	}
	assert.Equal(t, 3, limiter.size())
}

func TestLimiter_CleanupBuckets(t *testing.T) {
	limiter, clock := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
	})
	defer limiter.Stop()

	limiter.Allow("old", "/regions", http.MethodGet)
	clock.advance(2 * time.Hour)
	limiter.Allow("new", "/regions", http.MethodGet)

	limiter.cleanupBuckets(clock.now().Add(-time.Hour))
	assert.Equal(t, 1, limiter.size())
}

func TestNewLimiter_NilConfig(t *testing.T) {
	limiter := NewLimiter(nil)
	defer limiter.Stop()

	allowed, info := limiter.Allow("c", "/regions", http.MethodGet)
	assert.True(t, allowed)
	assert.Equal(t, 600, info.Limit)

	limiter.Stop()
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs(30, 5)

	assert.Equal(t, "/collection", MatchEndpoint("/collection", http.MethodGet, configs).Path)
	assert.Equal(t, "/collection", MatchEndpoint("/collection/", http.MethodGet, configs).Path)
	assert.Equal(t, "/collection", MatchEndpoint("/collection/csv", http.MethodGet, configs).Path)
	assert.Nil(t, MatchEndpoint("/collections", http.MethodGet, configs))
	assert.Nil(t, MatchEndpoint("/regions", http.MethodGet, configs))
	assert.Nil(t, MatchEndpoint("/collection", http.MethodPost, configs))
	assert.Zero(t, MatchEndpoint("/health", http.MethodGet, configs).Limit)
	assert.Zero(t, MatchEndpoint("/collection", http.MethodOptions, configs).Limit)
}

func TestLoadConfigFrom(t *testing.T) {
	env := map[string]string{
		EnvPerMinute: "12",
		EnvBurst:     "3",
		EnvExempt:    "10.0.0.1, 10.0.0.2,",
	}
	cfg := LoadConfigFrom(func(k string) (string, bool) { v, ok := env[k]; return v, ok })

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 600, cfg.DefaultLimit)
	assert.Equal(t, time.Minute, cfg.DefaultWindow)
	assert.Equal(t, map[string]bool{"10.0.0.1": true, "10.0.0.2": true}, cfg.Exempt)
	require.Len(t, cfg.EndpointConfigs, 1)
	assert.Equal(t, 12, cfg.EndpointConfigs[0].Limit)
	assert.Equal(t, 3, cfg.EndpointConfigs[0].Burst)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadConfigFrom_Malformed(t *testing.T) {
	env := map[string]string{
		EnvEnabled:       "sometimes",
		EnvPerMinute:     "lots",
		EnvDefaultWindow: "1 minute",
	}
	cfg := LoadConfigFrom(func(k string) (string, bool) { v, ok := env[k]; return v, ok })

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 30, cfg.EndpointConfigs[0].Limit)
	assert.Equal(t, time.Minute, cfg.DefaultWindow)
	assert.Len(t, cfg.Warnings, 3)
}

func TestLoadConfig_Disabled(t *testing.T) {
	t.Setenv(EnvEnabled, "false")
	assert.False(t, LoadConfig().Enabled)
}
