// Copyright 2026 The NATS Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package console

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ConsoleMetrics are the Prometheus collectors of one console.
type ConsoleMetrics struct {
	dispatches           *prometheus.CounterVec
	dispatchLatency      *prometheus.HistogramVec
	historyEntries       prometheus.Gauge
	connected            prometheus.Gauge
	reconnects           prometheus.Counter
	activeSubscriptions  prometheus.Gauge
	subscriptionMessages *prometheus.CounterVec
}

func NewConsoleMetrics(registry *prometheus.Registry, constLabels prometheus.Labels) *ConsoleMetrics {
	metrics := &ConsoleMetrics{
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        prometheus.BuildFQName("nats", "console", "dispatch_count"),
			Help:        "Number of messages dispatched from the console by mode and outcome",
			ConstLabels: constLabels,
		}, []string{"mode", "status"}),

		dispatchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        prometheus.BuildFQName("nats", "console", "dispatch_duration_seconds"),
			Help:        "Wall clock time spent in a dispatch",
			ConstLabels: constLabels,
		}, []string{"mode"}),

		historyEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        prometheus.BuildFQName("nats", "console", "history_entries"),
			Help:        "Number of entries in the dispatch history",
			ConstLabels: constLabels,
		}),

		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        prometheus.BuildFQName("nats", "console", "connected"),
			Help:        "1 while the console holds a live broker connection",
			ConstLabels: constLabels,
		}),

		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        prometheus.BuildFQName("nats", "console", "nats_reconnects"),
			Help:        "Number of times the console reconnected to the NATS server",
			ConstLabels: constLabels,
		}),

		activeSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        prometheus.BuildFQName("nats", "console", "subscriptions_active"),
			Help:        "Number of active console subscriptions",
			ConstLabels: constLabels,
		}),

		subscriptionMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        prometheus.BuildFQName("nats", "console", "subscription_messages_count"),
			Help:        "Number of messages received on console subscriptions",
			ConstLabels: constLabels,
		}, []string{"subject"}),
	}

	registry.MustRegister(metrics.dispatches)
	registry.MustRegister(metrics.dispatchLatency)
	registry.MustRegister(metrics.historyEntries)
	registry.MustRegister(metrics.connected)
	registry.MustRegister(metrics.reconnects)
	registry.MustRegister(metrics.activeSubscriptions)
	registry.MustRegister(metrics.subscriptionMessages)

	return metrics
}
