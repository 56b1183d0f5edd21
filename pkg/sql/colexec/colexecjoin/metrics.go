// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package colexecjoin

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts the work done by nested loop joins. A single Metrics can be
// shared by many joiners.
type Metrics struct {
	PerformCalls  prometheus.Counter
	MatchedPairs  prometheus.Counter
	OutputBatches prometheus.Counter
}

// NewMetrics returns a new set of unregistered nested loop join metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		PerformCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sql",
			Subsystem: "nested_loop_join",
			Name:      "perform_calls_total",
			Help:      "Number of times the matching engine was invoked on a pair of batches.",
		}),
		MatchedPairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sql",
			Subsystem: "nested_loop_join",
			Name:      "matched_pairs_total",
			Help:      "Number of pairs of rows that satisfied all join conditions.",
		}),
		OutputBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sql",
			Subsystem: "nested_loop_join",
			Name:      "output_batches_total",
			Help:      "Number of batches emitted by nested loop joins.",
		}),
	}
}

// Register registers all metrics with r.
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.PerformCalls, m.MatchedPairs, m.OutputBatches} {
		if err := r.Register(c); err != nil {
			return errors.Wrap(err, "registering nested loop join metrics")
		}
	}
	return nil
}

func (m *Metrics) recordPerform(numMatches int) {
	if m == nil {
		return
	}
	m.PerformCalls.Inc()
	m.MatchedPairs.Add(float64(numMatches))
}

func (m *Metrics) recordOutputBatch() {
	if m == nil {
		return
	}
	m.OutputBatches.Inc()
}
