package stats

import (
	"expvar"
)

// Metric names tracked by the chat client.
const (
	MessagesSent     = "MessagesSent"
	MessagesReceived = "MessagesReceived"
	SendFailures     = "SendFailures"
	SocketConnects   = "SocketConnects"
)

type StatsProvider interface {
	Incr(name string)
	RegisterMetric(name string)
}

// ClientStats tracks client-side counters on an expvar map. The map is not
// published globally so multiple instances can coexist, e.g. in tests;
// Publish exposes it under /debug/vars for a long-running process.
type ClientStats struct {
	vars *expvar.Map
}

func NewClientStats() *ClientStats {
	return &ClientStats{
		vars: new(expvar.Map).Init(),
	}
}

func (cs *ClientStats) RegisterMetric(name string) {
	cs.vars.Set(name, new(expvar.Int))
}

func (cs *ClientStats) Incr(name string) {
	metric := cs.vars.Get(name)
	if metric == nil {
		panic("metric not found: " + name)
	}

	metric.(*expvar.Int).Add(1)
}

func (cs *ClientStats) Get(name string) int64 {
	metric, ok := cs.vars.Get(name).(*expvar.Int)
	if !ok {
		return 0
	}

	return metric.Value()
}

// Snapshot returns the current value of every registered counter.
func (cs *ClientStats) Snapshot() map[string]int64 {
	snapshot := make(map[string]int64)
	cs.vars.Do(func(kv expvar.KeyValue) {
		if v, ok := kv.Value.(*expvar.Int); ok {
			snapshot[kv.Key] = v.Value()
		}
	})

	return snapshot
}

func (cs *ClientStats) Publish(name string) {
	expvar.Publish(name, cs.vars)
}
