// Copyright 2024 The Context-Fabric Authors
// This file is part of Context-Fabric.
//
// Context-Fabric is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Context-Fabric is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Context-Fabric. If not, see <http://www.gnu.org/licenses/>.

// Package metrics holds the library's four Prometheus collectors
// (SPEC_FULL §4.10). Collectors are built once by New and never touch the
// default registry on their own — an embedding program opts in by calling
// Collectors.MustRegister(reg) against its own registry.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace labels the query namespace a call came through (F/E/C/L/N/T).
type Namespace string

const (
	NamespaceF Namespace = "F"
	NamespaceE Namespace = "E"
	NamespaceC Namespace = "C"
	NamespaceL Namespace = "L"
	NamespaceN Namespace = "N"
	NamespaceT Namespace = "T"
)

// Result labels a compile outcome.
type Result string

const (
	ResultOK    Result = "ok"
	ResultFatal Result = "fatal"
)

// Source labels where a Fabric's nodes/features came from.
type Source string

const (
	SourceStore   Source = "store"
	SourceCompile Source = "compile"
)

// Collectors bundles the four collectors described in SPEC_FULL §4.10.
// It is safe to embed one per Fabric instance: New never registers
// anything globally, so two Fabrics in the same process never collide.
type Collectors struct {
	CompileDuration *prometheus.HistogramVec
	LoadDuration    *prometheus.HistogramVec
	StoreMappedBytes prometheus.Gauge
	QueryCallsTotal *prometheus.CounterVec

	mu         sync.Mutex
	registered bool
}

// New builds a fresh, unregistered set of collectors.
func New() *Collectors {
	return &Collectors{
		CompileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cf_compile_duration_seconds",
				Help:    "Time taken to compile a corpus into a store, by outcome.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		LoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cf_load_duration_seconds",
				Help:    "Time taken to load a Fabric, by source.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		StoreMappedBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cf_store_mapped_bytes",
				Help: "Sum of bytes currently mmapped by a MmapStore.",
			},
		),
		QueryCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cf_query_calls_total",
				Help: "Total query-API calls, by namespace.",
			},
			[]string{"namespace"},
		),
	}
}

// MustRegister registers every collector against reg. Calling it more than
// once on the same *Collectors is a no-op — it does not panic on repeat
// registration the way a bare prometheus.MustRegister would.
func (c *Collectors) MustRegister(reg prometheus.Registerer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registered {
		return
	}
	reg.MustRegister(c.CompileDuration, c.LoadDuration, c.StoreMappedBytes, c.QueryCallsTotal)
	c.registered = true
}

// ObserveCompile records a compile duration under its result label.
func (c *Collectors) ObserveCompile(seconds float64, result Result) {
	c.CompileDuration.WithLabelValues(string(result)).Observe(seconds)
}

// ObserveLoad records a load duration under its source label.
func (c *Collectors) ObserveLoad(seconds float64, source Source) {
	c.LoadDuration.WithLabelValues(string(source)).Observe(seconds)
}

// SetMappedBytes reports the current mmap footprint of a store.
func (c *Collectors) SetMappedBytes(bytes int64) {
	c.StoreMappedBytes.Set(float64(bytes))
}

// IncQueryCall counts one call through a query namespace.
func (c *Collectors) IncQueryCall(ns Namespace) {
	c.QueryCallsTotal.WithLabelValues(string(ns)).Inc()
}
