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
	"runtime"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	namespace = "task_sync_agent"
)

var (
	once     sync.Once
	registry *prometheus.Registry

	// Realtime channel metrics
	ChannelConnectionState GaugeVec
	ChannelReconnectsTotal CounterVec
	HeartbeatsSentTotal    CounterVec
	FramesReceivedTotal    CounterVec
	FramesDiscardedTotal   CounterVec

	// Task store metrics
	StoreMutationsTotal            CounterVec
	TasksCached                    Gauge
	SnapshotPersistDurationSeconds Histogram

	// Task service request metrics
	BackendRequestsTotal          CounterVec
	BackendRequestDurationSeconds HistogramVec
	CSRFRenewalsTotal             CounterVec
	SessionTerminationsTotal      CounterVec

	// Local event stream metrics
	EventSubscribers     Gauge
	EventsBroadcastTotal Counter
	EventsDroppedTotal   Counter

	// Telemetry shipping metrics
	TelemetryEventsTotal CounterVec

	// Local HTTP API metrics
	HTTPRequestsTotal          CounterVec
	HTTPRequestDurationSeconds HistogramVec
	HTTPRequestSizeBytes       HistogramVec
	HTTPResponseSizeBytes      HistogramVec
	ConcurrentRequests         Gauge

	// Process metrics
	Up          Gauge
	Info        GaugeVec
	Goroutines  GaugeFunc
	MemoryBytes GaugeVec

	ErrorsTotal          CounterVec
	PanicRecoveriesTotal CounterVec
)

// initMetrics initializes all metric variables.
// This must be called after SetEnabled() to ensure proper noop behavior when disabled.
func initMetrics() {
	ChannelConnectionState = newGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channel_connection_state",
			Help:      "Connection state per realtime channel (1 for the current state)",
		},
		[]string{"channel", "state"},
	)

	ChannelReconnectsTotal = newCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_reconnects_total",
			Help:      "Total number of reconnect attempts per realtime channel",
		},
		[]string{"channel"},
	)

	HeartbeatsSentTotal = newCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeats_sent_total",
			Help:      "Total number of heartbeat frames sent per realtime channel",
		},
		[]string{"channel"},
	)

	FramesReceivedTotal = newCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Total number of frames received per channel, type, and event",
		},
		[]string{"channel", "type", "event"},
	)

	FramesDiscardedTotal = newCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_discarded_total",
			Help:      "Total number of frames discarded per channel and reason",
		},
		[]string{"channel", "reason"},
	)

	StoreMutationsTotal = newCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_mutations_total",
			Help:      "Total number of task store mutations by operation",
		},
		[]string{"operation"},
	)

	TasksCached = newGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_cached",
			Help:      "Number of tasks currently held in the live store",
		},
	)

	SnapshotPersistDurationSeconds = newHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_persist_duration_seconds",
			Help:      "Duration of task snapshot writes to durable storage in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
	)

	BackendRequestsTotal = newCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Total number of requests sent to the task service",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	BackendRequestDurationSeconds = newHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Duration of task service requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"method", "endpoint"},
	)

	CSRFRenewalsTotal = newCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "csrf_renewals_total",
			Help:      "Total number of CSRF token renewal cycles by outcome",
		},
		[]string{"outcome"},
	)

	SessionTerminationsTotal = newCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_terminations_total",
			Help:      "Total number of session terminations by reason",
		},
		[]string{"reason"},
	)

	EventSubscribers = newGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_subscribers",
			Help:      "Number of local event stream subscribers",
		},
	)

	EventsBroadcastTotal = newCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_broadcast_total",
			Help:      "Total number of events broadcast to local subscribers",
		},
	)

	EventsDroppedTotal = newCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped for slow local subscribers",
		},
	)

	TelemetryEventsTotal = newCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_events_total",
			Help:      "Total number of telemetry events by delivery status",
		},
		[]string{"status"},
	)

	HTTPRequestsTotal = newCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of local API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDurationSeconds = newHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of local API requests in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"method", "endpoint"},
	)

	HTTPRequestSizeBytes = newHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "Size of local API request bodies in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 6),
		},
		[]string{"endpoint"},
	)

	HTTPResponseSizeBytes = newHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "Size of local API response bodies in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 6),
		},
		[]string{"endpoint"},
	)

	ConcurrentRequests = newGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "concurrent_requests",
			Help:      "Number of local API requests currently in flight",
		},
	)

	Up = newGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "up",
			Help:      "Sync agent liveness indicator (1=up, 0=down)",
		},
	)

	Info = newGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "info",
			Help:      "Sync agent build information",
		},
		[]string{"version", "storage_type"},
	)

	Goroutines = newGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
		func() float64 {
			return float64(runtime.NumGoroutine())
		},
	)

	MemoryBytes = newGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_bytes",
			Help:      "Memory usage in bytes",
		},
		[]string{"type"},
	)

	ErrorsTotal = newCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)

	PanicRecoveriesTotal = newCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panic_recoveries_total",
			Help:      "Total number of panic recoveries",
		},
		[]string{"component"},
	)
}

func registerCounter(v Counter) {
	if !Enabled {
		return
	}
	if c, ok := v.(prometheus.Counter); ok {
		if err := registry.Register(c); err != nil {
			// Already registered or other error - ignore
		}
	}
}

func registerCounterVec(v CounterVec) {
	if !Enabled {
		return
	}
	if wrapper, ok := v.(*counterVecWrapper); ok {
		if err := registry.Register(wrapper.CounterVec); err != nil {
			// Already registered or other error - ignore
		}
	}
}

func registerGauge(v Gauge) {
	if !Enabled {
		return
	}
	if g, ok := v.(prometheus.Gauge); ok {
		if err := registry.Register(g); err != nil {
			// Already registered or other error - ignore
		}
	}
}

func registerGaugeVec(v GaugeVec) {
	if !Enabled {
		return
	}
	if wrapper, ok := v.(*gaugeVecWrapper); ok {
		if err := registry.Register(wrapper.GaugeVec); err != nil {
			// Already registered or other error - ignore
		}
	}
}

func registerGaugeFunc(v GaugeFunc) {
	if !Enabled || v == nil {
		return
	}
	if err := registry.Register(v); err != nil {
		// Already registered or other error - ignore
	}
}

func registerHistogram(v Histogram) {
	if !Enabled {
		return
	}
	if h, ok := v.(prometheus.Histogram); ok {
		if err := registry.Register(h); err != nil {
			// Already registered or other error - ignore
		}
	}
}

func registerHistogramVec(v HistogramVec) {
	if !Enabled {
		return
	}
	if wrapper, ok := v.(*histogramVecWrapper); ok {
		if err := registry.Register(wrapper.HistogramVec); err != nil {
			// Already registered or other error - ignore
		}
	}
}

func initRegistry() {
	registry = prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registerGaugeVec(ChannelConnectionState)
	registerCounterVec(ChannelReconnectsTotal)
	registerCounterVec(HeartbeatsSentTotal)
	registerCounterVec(FramesReceivedTotal)
	registerCounterVec(FramesDiscardedTotal)

	registerCounterVec(StoreMutationsTotal)
	registerGauge(TasksCached)
	registerHistogram(SnapshotPersistDurationSeconds)

	registerCounterVec(BackendRequestsTotal)
	registerHistogramVec(BackendRequestDurationSeconds)
	registerCounterVec(CSRFRenewalsTotal)
	registerCounterVec(SessionTerminationsTotal)

	registerGauge(EventSubscribers)
	registerCounter(EventsBroadcastTotal)
	registerCounter(EventsDroppedTotal)

	registerCounterVec(TelemetryEventsTotal)

	registerCounterVec(HTTPRequestsTotal)
	registerHistogramVec(HTTPRequestDurationSeconds)
	registerHistogramVec(HTTPRequestSizeBytes)
	registerHistogramVec(HTTPResponseSizeBytes)
	registerGauge(ConcurrentRequests)

	registerGauge(Up)
	registerGaugeVec(Info)
	registerGaugeFunc(Goroutines)
	registerGaugeVec(MemoryBytes)

	registerCounterVec(ErrorsTotal)
	registerCounterVec(PanicRecoveriesTotal)

	Up.Set(1)
}

// Init initializes the metrics registry with all collectors.
// This must be called after SetEnabled() has been called.
func Init() *prometheus.Registry {
	once.Do(func() {
		// Initialize all metric variables first
		initMetrics()

		if !Enabled {
			registry = prometheus.NewRegistry()
			return
		}
		initRegistry()
	})

	return registry
}

// GetRegistry returns the prometheus registry
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return Init()
	}
	return registry
}

// UpdateMemoryMetrics updates memory-related metrics
func UpdateMemoryMetrics() {
	if !Enabled {
		return
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	MemoryBytes.WithLabelValues("heap_alloc").Set(float64(m.HeapAlloc))
	MemoryBytes.WithLabelValues("heap_sys").Set(float64(m.HeapSys))
	MemoryBytes.WithLabelValues("stack_inuse").Set(float64(m.StackInuse))
}
