// Package syncstats exposes optional Prometheus counters and gauges
// for sync activity: ticks run, targets discovered, notifies applied,
// and reconnect attempts observed. It is ambient observability, not a
// spec feature — the facade works with a nil *Stats, it just doesn't
// record anything.
/*
 * Copyright (c) 2024, Electronic Theatre Controls, Inc.
 */
package syncstats

import "github.com/prometheus/client_golang/prometheus"

// Stats is a small tracker registered against a caller-supplied
// Prometheus registry, mirroring the teacher's "stats tracker is
// injected, not global" convention (stats/common_statsd.go).
type Stats struct {
	Ticks             prometheus.Counter
	TargetsDiscovered prometheus.Counter
	NotifiesApplied   prometheus.Counter
	Reconnects        prometheus.Counter
	SyncStatus        prometheus.Gauge
}

// New registers and returns a Stats bound to reg. Passing
// prometheus.NewRegistry() keeps tests hermetic; passing
// prometheus.DefaultRegisterer wires it into a process-wide /metrics
// endpoint.
func New(reg prometheus.Registerer) *Stats {
	s := &Stats{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eossync",
			Name:      "ticks_total",
			Help:      "Total number of Facade.Tick calls.",
		}),
		TargetsDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eossync",
			Name:      "targets_discovered_total",
			Help:      "Total growth of the mirror's target count, summed over ticks in which it grew.",
		}),
		NotifiesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eossync",
			Name:      "notifies_applied_total",
			Help:      "Total number of inbound notify events handed to the router.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eossync",
			Name:      "reconnects_total",
			Help:      "Total number of connect attempts started after the transport had already connected once.",
		}),
		SyncStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "eossync",
			Name:      "sync_status",
			Help:      "Aggregate SyncData status: 0=uninitialized, 1=running, 2=complete.",
		}),
	}
	reg.MustRegister(s.Ticks, s.TargetsDiscovered, s.NotifiesApplied, s.Reconnects, s.SyncStatus)
	return s
}

// Tick records one Facade.Tick call. Safe to call on a nil *Stats.
func (s *Stats) Tick() {
	if s == nil {
		return
	}
	s.Ticks.Inc()
}

// TargetAdded records one unit of growth in the mirror's target count.
func (s *Stats) TargetAdded() {
	if s == nil {
		return
	}
	s.TargetsDiscovered.Inc()
}

// NotifyApplied records one inbound notify event handed to the router.
func (s *Stats) NotifyApplied() {
	if s == nil {
		return
	}
	s.NotifiesApplied.Inc()
}

// Reconnected records the facade re-entering Connecting (via
// Initialize) after the transport had Connected at least once before,
// whether or not that prior connection is still up.
func (s *Stats) Reconnected() {
	if s == nil {
		return
	}
	s.Reconnects.Inc()
}

// SetStatus records the current aggregate SyncData status value.
func (s *Stats) SetStatus(v int) {
	if s == nil {
		return
	}
	s.SyncStatus.Set(float64(v))
}
