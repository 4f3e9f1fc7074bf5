/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Enabled controls whether metrics are collected. When false, every
// metric variable holds a noop implementation so instrumentation sites
// never need their own guards. Set via SetEnabled before Init.
var Enabled = false

// SetEnabled configures metrics collection. Must be called before Init().
func SetEnabled(enabled bool) {
	Enabled = enabled
}

// IsEnabled reports whether metrics collection is active.
func IsEnabled() bool {
	return Enabled
}

// resetOnce returns a fresh sync.Once, used by tests to reinitialize
func resetOnce() sync.Once {
	return sync.Once{}
}

// Counter is the subset of prometheus.Counter used by this package
type Counter interface {
	Inc()
	Add(float64)
}

// Gauge is the subset of prometheus.Gauge used by this package
type Gauge interface {
	Set(float64)
	Inc()
	Dec()
	Add(float64)
	Sub(float64)
}

// Histogram is the subset of prometheus.Histogram used by this package
type Histogram interface {
	Observe(float64)
}

// CounterVec dispenses counters for label combinations
type CounterVec interface {
	WithLabelValues(lvs ...string) Counter
}

// GaugeVec dispenses gauges for label combinations
type GaugeVec interface {
	WithLabelValues(lvs ...string) Gauge
}

// HistogramVec dispenses histograms for label combinations
type HistogramVec interface {
	WithLabelValues(lvs ...string) Histogram
}

// GaugeFunc mirrors prometheus.GaugeFunc; nil when metrics are disabled
type GaugeFunc = prometheus.GaugeFunc

// Wrappers adapt the concrete prometheus vec types to the interfaces
// above so the noop implementations can stand in for them.

type counterVecWrapper struct {
	*prometheus.CounterVec
}

func (c *counterVecWrapper) WithLabelValues(lvs ...string) Counter {
	return c.CounterVec.WithLabelValues(lvs...)
}

type gaugeVecWrapper struct {
	*prometheus.GaugeVec
}

func (g *gaugeVecWrapper) WithLabelValues(lvs ...string) Gauge {
	return g.GaugeVec.WithLabelValues(lvs...)
}

type histogramVecWrapper struct {
	*prometheus.HistogramVec
}

func (h *histogramVecWrapper) WithLabelValues(lvs ...string) Histogram {
	return h.HistogramVec.WithLabelValues(lvs...)
}

// Noop implementations returned when metrics are disabled.

type noopCounter struct{}

func (noopCounter) Inc()        {}
func (noopCounter) Add(float64) {}

type noopGauge struct{}

func (noopGauge) Set(float64) {}
func (noopGauge) Inc()        {}
func (noopGauge) Dec()        {}
func (noopGauge) Add(float64) {}
func (noopGauge) Sub(float64) {}

type noopHistogram struct{}

func (noopHistogram) Observe(float64) {}

type noopCounterVec struct{}

func (noopCounterVec) WithLabelValues(...string) Counter { return noopCounter{} }

type noopGaugeVec struct{}

func (noopGaugeVec) WithLabelValues(...string) Gauge { return noopGauge{} }

type noopHistogramVec struct{}

func (noopHistogramVec) WithLabelValues(...string) Histogram { return noopHistogram{} }

// Constructors return real collectors when enabled and noops otherwise.

func newCounter(opts prometheus.CounterOpts) Counter {
	if !Enabled {
		return noopCounter{}
	}
	return prometheus.NewCounter(opts)
}

func newCounterVec(opts prometheus.CounterOpts, labels []string) CounterVec {
	if !Enabled {
		return noopCounterVec{}
	}
	return &counterVecWrapper{prometheus.NewCounterVec(opts, labels)}
}

func newGauge(opts prometheus.GaugeOpts) Gauge {
	if !Enabled {
		return noopGauge{}
	}
	return prometheus.NewGauge(opts)
}

func newGaugeVec(opts prometheus.GaugeOpts, labels []string) GaugeVec {
	if !Enabled {
		return noopGaugeVec{}
	}
	return &gaugeVecWrapper{prometheus.NewGaugeVec(opts, labels)}
}

func newGaugeFunc(opts prometheus.GaugeOpts, fn func() float64) GaugeFunc {
	if !Enabled {
		return nil
	}
	return prometheus.NewGaugeFunc(opts, fn)
}

func newHistogram(opts prometheus.HistogramOpts) Histogram {
	if !Enabled {
		return noopHistogram{}
	}
	return prometheus.NewHistogram(opts)
}

func newHistogramVec(opts prometheus.HistogramOpts, labels []string) HistogramVec {
	if !Enabled {
		return noopHistogramVec{}
	}
	return &histogramVecWrapper{prometheus.NewHistogramVec(opts, labels)}
}
