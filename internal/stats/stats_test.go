package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientStats(t *testing.T) {
	cs := NewClientStats()
	cs.RegisterMetric(MessagesSent)
	cs.RegisterMetric(SendFailures)

	cs.Incr(MessagesSent)
	cs.Incr(MessagesSent)

	assert.Equal(t, int64(2), cs.Get(MessagesSent), "expected counter to be incremented")
	assert.Equal(t, int64(0), cs.Get(SendFailures), "expected untouched counter to be zero")

	snapshot := cs.Snapshot()
	assert.Equal(t, map[string]int64{
		MessagesSent: 2,
		SendFailures: 0,
	}, snapshot, "expected snapshot of all registered counters")
}

func TestClientStats_unregisteredMetricPanics(t *testing.T) {
	cs := NewClientStats()

	assert.Panics(t, func() {
		cs.Incr("NoSuchMetric")
	}, "expected panic incrementing an unregistered metric")
}
