/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package provider

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeCommitted    = "committed"
	outcomeRolledBack   = "rolled_back"
	outcomeAutoRollback = "auto_rolled_back"
	outcomeUnused       = "unused"
)

// Metrics records how units of work end. A nil *Metrics records nothing.
type Metrics struct {
	outcomes *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the provider collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hummer",
			Subsystem: "provider",
			Name:      "transactions_total",
			Help:      "Units of work by final transaction outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hummer",
			Subsystem: "provider",
			Name:      "transaction_duration_seconds",
			Help:      "Time from transaction begin to commit or rollback.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.outcomes, m.duration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observe(outcome string, began time.Time) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
	if !began.IsZero() {
		m.duration.WithLabelValues(outcome).Observe(time.Since(began).Seconds())
	}
}
