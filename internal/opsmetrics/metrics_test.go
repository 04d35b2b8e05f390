package opsmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsObserveRingAndScheduler(t *testing.T) {
	m := New()
	require.NotNil(t, m)

	m.ObserveRing("image", 128, 3)
	assert.Equal(t, float64(128), testutil.ToFloat64(m.RingNext.WithLabelValues("image")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.RingGeneration.WithLabelValues("image")))

	m.ObserveScheduler("extend", 4, 1)
	assert.Equal(t, float64(4), testutil.ToFloat64(m.SchedulerPending.WithLabelValues("extend")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SchedulerPaused.WithLabelValues("extend")))

	m.RingWrites.WithLabelValues("image").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RingWrites.WithLabelValues("image")))

	assert.GreaterOrEqual(t, m.Uptime().Seconds(), float64(0))
}
