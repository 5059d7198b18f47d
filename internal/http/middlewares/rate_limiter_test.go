package middlewares

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	a := rl.limiter("10.0.0.1")
	require.True(t, a.AllowN(now, 1))
	require.True(t, a.AllowN(now, 1))
	require.False(t, a.AllowN(now, 1))

	// a separate bucket for every client
	require.True(t, rl.limiter("10.0.0.2").AllowN(now, 1))
	require.Same(t, a, rl.limiter("10.0.0.1"))

	now = now.Add(time.Second)
	require.True(t, a.AllowN(now, 1))
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	rl.limiter("10.0.0.1")
	now = now.Add(limiterIdleTTL / 2)
	rl.limiter("10.0.0.2")
	require.Equal(t, 2, rl.size())

	now = now.Add(limiterIdleTTL/2 + time.Second)
	rl.Sweep()
	require.Equal(t, 1, rl.size())

	rl.mu.Lock()
	_, kept := rl.visitors["10.0.0.2"]
	rl.mu.Unlock()
	require.True(t, kept)
}
