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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
)

var bunSqlSilentMode atomic.Bool

// EnableBunSqlSilent mutes QueryHook and SlowQueryHook process-wide.
func EnableBunSqlSilent(b bool) {
	bunSqlSilentMode.Store(b)
}

var operationColors = map[string]*color.Color{
	"SELECT": color.New(color.FgGreen),
	"INSERT": color.New(color.FgBlue),
	"UPDATE": color.New(color.FgYellow),
	"DELETE": color.New(color.FgMagenta),
}

var defaultOperationColor = color.New(color.FgRed)

func formatOperationColor(event *bun.QueryEvent) string {
	c, ok := operationColors[event.Operation()]
	if !ok {
		c = defaultOperationColor
	}
	return c.Sprint(event.Query)
}

// QueryHook prints executed queries with their duration. By default only
// failed queries are printed; verbose mode prints every query. The env var,
// when set, overrides both: "0" or empty disables, "1" enables, "2" is verbose.
type QueryHook struct {
	envName string
	enabled bool
	verbose bool
	writer  io.Writer
}

var _ bun.QueryHook = (*QueryHook)(nil)

type QueryHookOption func(*QueryHook)

func WithEnabled(on bool) QueryHookOption {
	return func(h *QueryHook) { h.enabled = on }
}

func WithVerbose(on bool) QueryHookOption {
	return func(h *QueryHook) { h.verbose = on }
}

func WithWriter(w io.Writer) QueryHookOption {
	return func(h *QueryHook) { h.writer = w }
}

func WithEnv(name string) QueryHookOption {
	return func(h *QueryHook) { h.envName = name }
}

func NewQueryHook(opts ...QueryHookOption) *QueryHook {
	h := &QueryHook{envName: "HUMMER_SQL_DEBUG", writer: os.Stdout}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *QueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if bunSqlSilentMode.Load() {
		return
	}
	enabled, verbose := h.enabled, h.verbose
	if env, ok := os.LookupEnv(h.envName); ok {
		enabled = env != "" && env != "0"
		verbose = env == "2"
	}
	if !enabled {
		return
	}
	if !verbose {
		switch {
		case event.Err == nil, errors.Is(event.Err, sql.ErrNoRows), errors.Is(event.Err, sql.ErrTxDone):
			return
		}
	}

	now := time.Now()
	args := []interface{}{
		now.Format("2006-01-02 15:04:05.000"),
		color.CyanString("%15s", "[BUN]"),
		fmt.Sprintf("%17s", now.Sub(event.StartTime).Round(time.Microsecond)),
		"  ", formatOperationColor(event),
	}
	if event.Err != nil {
		typ := reflect.TypeOf(event.Err).String()
		args = append(args, "\t", color.New(color.BgRed).Sprintf(" %s: %s ", typ, event.Err.Error()))
	}
	_, _ = fmt.Fprintln(h.writer, args...)
}

// SlowQueryHook logs successful queries slower than its threshold at WARN.
type SlowQueryHook struct {
	slowTime time.Duration
	logger   Logger
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

func NewSlowQueryHook(threshold time.Duration, logger Logger) *SlowQueryHook {
	if logger == nil {
		logger = GetLogger()
	}
	return &SlowQueryHook{slowTime: threshold, logger: logger}
}

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if bunSqlSilentMode.Load() || event.Err != nil {
		return
	}
	duration := time.Since(event.StartTime)
	if duration > h.slowTime {
		h.logger.Warn("Database slow query detected",
			"duration", duration,
			"slow_threshold", h.slowTime,
			"query", event.Query,
		)
	}
}

// MetricsHook records query latency by operation and counts failed queries.
// sql.ErrNoRows is not a failure.
type MetricsHook struct {
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

var _ bun.QueryHook = (*MetricsHook)(nil)

func NewMetricsHook(reg prometheus.Registerer) (*MetricsHook, error) {
	h := &MetricsHook{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hummer",
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Duration of SQL statements by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hummer",
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Failed SQL statements by operation.",
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{h.duration, h.errors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *MetricsHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *MetricsHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	op := strings.ToLower(event.Operation())
	h.duration.WithLabelValues(op).Observe(time.Since(event.StartTime).Seconds())
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		h.errors.WithLabelValues(op).Inc()
	}
}
