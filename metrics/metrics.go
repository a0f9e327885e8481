// Copyright 2021 Optakt Labs OÜ
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

// Package metrics exposes prometheus counters and gauges for a running
// pthm.Map, and a zerolog sink that periodically logs a snapshot of them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

const namespacePTHM = "pthm"

// Collector records counts of map operations as they happen. A *Map does not
// hold one itself; callers that want metrics wrap their own call sites.
type Collector struct {
	gets    prometheus.Counter
	puts    prometheus.Counter
	removes prometheus.Counter
	size    prometheus.Gauge
	depth   prometheus.Gauge
}

// NewCollector registers a fresh set of counters with the default prometheus
// registry.
func NewCollector() *Collector {
	return &Collector{
		gets: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespacePTHM,
			Name:      "gets_total",
			Help:      "number of Get calls",
		}),
		puts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespacePTHM,
			Name:      "puts_total",
			Help:      "number of Put calls",
		}),
		removes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespacePTHM,
			Name:      "removes_total",
			Help:      "number of Remove calls",
		}),
		size: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespacePTHM,
			Name:      "size",
			Help:      "last observed map size",
		}),
		depth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespacePTHM,
			Name:      "leftmost_depth",
			Help:      "last observed depth of the leftmost leaf",
		}),
	}
}

func (c *Collector) Get()    { c.gets.Inc() }
func (c *Collector) Put()    { c.puts.Inc() }
func (c *Collector) Remove() { c.removes.Inc() }

// Observe records a point-in-time size and depth reading, typically taken
// between workload bursts rather than after every operation.
func (c *Collector) Observe(size int, depth uint8) {
	c.size.Set(float64(size))
	c.depth.Set(float64(depth))
}

// ReportPeriodically logs a snapshot of the registered gauges every interval,
// until stop is closed. It is meant to run in its own goroutine.
func ReportPeriodically(log zerolog.Logger, interval time.Duration, snapshot func() (size int, depth uint8), stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			size, depth := snapshot()
			log.Info().Int("size", size).Uint8("leftmost_depth", depth).Msg("pthm snapshot")
		}
	}
}
