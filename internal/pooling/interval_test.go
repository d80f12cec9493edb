package pooling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextIntervalBuckets(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.Equal(t, IntervalIdle, NextInterval(time.Time{}, now), "never active ⇒ idle interval")
	require.Equal(t, IntervalHot, NextInterval(now.Add(-4*time.Second), now))
	require.Equal(t, IntervalWarm, NextInterval(now.Add(-5*time.Second), now), "half-open lower bound: exactly 5s ⇒ 10s bucket")
	require.Equal(t, IntervalWarm, NextInterval(now.Add(-9*time.Second), now))
	require.Equal(t, IntervalCool, NextInterval(now.Add(-10*time.Second), now))
	require.Equal(t, IntervalCool, NextInterval(now.Add(-29*time.Second), now))
	require.Equal(t, IntervalIdle, NextInterval(now.Add(-30*time.Second), now))
	require.Equal(t, IntervalIdle, NextInterval(now.Add(-time.Hour), now))
}
