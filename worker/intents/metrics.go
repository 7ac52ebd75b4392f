// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package intents

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/juju/netcore/core/intent"
)

const metricsNamespace = "netcore_intents"

// managerMetrics implements prometheus.Collector for the intent
// manager: counters for batch throughput and a gauge sampling the
// store's intent count at scrape time.
type managerMetrics struct {
	store intent.Store

	intentCountDesc *prometheus.Desc

	mu             sync.Mutex
	batchesTotal   prometheus.Counter
	itemsTotal     prometheus.Counter
	writesTotal    prometheus.Counter
}

func newManagerMetrics(store intent.Store) *managerMetrics {
	return &managerMetrics{
		store: store,
		intentCountDesc: prometheus.NewDesc(
			metricsNamespace+"_intent_count",
			"Number of intents with current data in the store.",
			nil, nil,
		),
		batchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "batches_total",
			Help:      "Number of intent batches processed.",
		}),
		itemsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "batch_items_total",
			Help:      "Number of intent operations processed across all batches.",
		}),
		writesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "batch_writes_total",
			Help:      "Number of intent data writes produced by batches.",
		}),
	}
}

func (m *managerMetrics) batchDone(items, writes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchesTotal.Inc()
	m.itemsTotal.Add(float64(items))
	m.writesTotal.Add(float64(writes))
}

// Describe is part of the prometheus.Collector interface.
func (m *managerMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.intentCountDesc
	m.batchesTotal.Describe(ch)
	m.itemsTotal.Describe(ch)
	m.writesTotal.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (m *managerMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		m.intentCountDesc, prometheus.GaugeValue, float64(m.store.GetIntentCount()),
	)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchesTotal.Collect(ch)
	m.itemsTotal.Collect(ch)
	m.writesTotal.Collect(ch)
}
