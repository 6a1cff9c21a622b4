// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package audit

import "github.com/prometheus/client_golang/prometheus"

// Failure reasons.
const (
	ReasonBatchWrite     = "batch_write_failed"
	ReasonWALWrite       = "wal_write_failed"
	ReasonWALUnmarshal   = "wal_unmarshal_failed"
	ReasonWALReplayWrite = "wal_replay_failed"
)

// Dropped counts attempts discarded because the queue was full or the
// recorder was closed.
var Dropped = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "zyric_audit_dropped_total",
	Help: "Total number of login attempts dropped before reaching storage",
})

// Failures counts audit write failures by reason.
var Failures = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "zyric_audit_failures_total",
	Help: "Total number of login audit failures",
}, []string{"reason"})

// WALEntries is the number of attempts waiting in the write-ahead log.
var WALEntries = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "zyric_audit_wal_entries",
	Help: "Current number of login attempts in the write-ahead log",
})

// RegisterMetrics registers audit metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Dropped, Failures, WALEntries)
}
