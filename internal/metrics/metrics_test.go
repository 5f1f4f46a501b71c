package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func Test_Counters(t *testing.T) {
	m := New()
	m.EventIngested("stale")
	m.EventIngested("stale")
	m.EventMalformed()
	m.AlertDispatched()
	m.AlertFailed()
	m.SweepFinished("ok", 3, time.Second)
	m.SweepFinished("skipped", 0, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("stale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.malformed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alerts.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alerts.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweeps.WithLabelValues("skipped")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.swept))
}

func Test_NilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.EventIngested("stale")
		m.EventMalformed()
		m.AlertDispatched()
		m.AlertFailed()
		m.SweepFinished("ok", 1, time.Second)
	})
	assert.NotNil(t, m.Handler())
}
