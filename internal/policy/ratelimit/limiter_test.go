package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiterSpacesSameHost(t *testing.T) {
	t.Parallel()

	l := New(Config{MinInterval: 100 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://www.newarknj.gov/a"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://WWW.NEWARKNJ.GOV/b"))
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestLimiterDifferentHosts(t *testing.T) {
	t.Parallel()

	l := New(Config{MinInterval: time.Second})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://a.nj.us/1"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://b.nj.us/1"))
	require.Less(t, time.Since(start), 100*time.Millisecond, "host b must not wait on host a")
}

func TestLimiterZeroIntervalNeverBlocks(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	start := time.Now()
	for i := 0; i < 50; i++ {
		require.NoError(t, l.Wait(context.Background(), "https://a.nj.us/doc.pdf"))
	}
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestLimiterCanceledContext(t *testing.T) {
	t.Parallel()

	l := New(Config{MinInterval: time.Hour})
	require.NoError(t, l.Wait(context.Background(), "https://a.nj.us/"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, l.Wait(ctx, "https://a.nj.us/"))
}
