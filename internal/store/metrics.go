// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package store

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// statter is the subset of *pgxpool.Pool read by PoolCollector.
type statter interface {
	Stat() *pgxpool.Stat
}

// PoolCollector exports pgxpool statistics at scrape time.
type PoolCollector struct {
	pool statter

	total        *prometheus.Desc
	idle         *prometheus.Desc
	acquired     *prometheus.Desc
	max          *prometheus.Desc
	acquireCount *prometheus.Desc
	emptyAcquire *prometheus.Desc
	acquireWait  *prometheus.Desc
}

// NewPoolCollector creates a collector for pool.
func NewPoolCollector(pool statter) *PoolCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("zyric_db_pool_"+name, help, nil, nil)
	}
	return &PoolCollector{
		pool:         pool,
		total:        desc("connections", "Current number of connections in the pool"),
		idle:         desc("idle_connections", "Current number of idle connections"),
		acquired:     desc("acquired_connections", "Current number of acquired connections"),
		max:          desc("max_connections", "Maximum size of the pool"),
		acquireCount: desc("acquires_total", "Total number of successful acquires"),
		emptyAcquire: desc("empty_acquires_total", "Total number of acquires that waited for a connection"),
		acquireWait:  desc("acquire_wait_seconds_total", "Total time spent waiting for a connection"),
	}
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.idle
	ch <- c.acquired
	ch <- c.max
	ch <- c.acquireCount
	ch <- c.emptyAcquire
	ch <- c.acquireWait
}

// Collect implements prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.MaxConns()))
	ch <- prometheus.MustNewConstMetric(c.acquireCount, prometheus.CounterValue, float64(s.AcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.emptyAcquire, prometheus.CounterValue, float64(s.EmptyAcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.acquireWait, prometheus.CounterValue, s.AcquireDuration().Seconds())
}

var _ prometheus.Collector = (*PoolCollector)(nil)
