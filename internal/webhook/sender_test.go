package webhook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ocrch/engine/internal/entity"
)

func TestBackoffCapsAtTwoThousandFortyEightSeconds(t *testing.T) {
	require.Equal(t, 1*time.Second, backoff(0))
	require.Equal(t, 1024*time.Second, backoff(10))
	require.Equal(t, 2048*time.Second, backoff(11))
	require.Equal(t, 2048*time.Second, backoff(12))
}

func TestNextAttemptDueWithNoPriorAttempt(t *testing.T) {
	o := &entity.Order{WebhookRetryCount: 0}
	require.True(t, nextAttemptDue(o, time.Now()))
}

func TestNextAttemptDueRespectsBackoffWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tried := now.Add(-30 * time.Second)
	o := &entity.Order{WebhookRetryCount: 5, WebhookLastTriedAt: &tried}
	require.False(t, nextAttemptDue(o, now))

	tried2 := now.Add(-2 * time.Hour)
	o2 := &entity.Order{WebhookRetryCount: 5, WebhookLastTriedAt: &tried2}
	require.True(t, nextAttemptDue(o2, now))
}
