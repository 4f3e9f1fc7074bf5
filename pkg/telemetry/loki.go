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

// Package telemetry ships agent lifecycle events to a Loki push
// endpoint. Delivery is strictly best effort: pushes run on their own
// goroutine, time out quickly, and swallow every failure so telemetry
// can never stall or break the agent.
package telemetry

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wso2/task-platform/sync-agent/pkg/config"
	"github.com/wso2/task-platform/sync-agent/pkg/constants"
	"github.com/wso2/task-platform/sync-agent/pkg/metrics"
	"go.uber.org/zap"
)

// pushPayload is the body of a Loki push API request
type pushPayload struct {
	Streams []logStream `json:"streams"`
}

// logStream is a single labeled stream carrying one or more entries.
// Each value is a [timestamp, line] pair where the timestamp is epoch
// nanoseconds rendered as a string.
type logStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// queueCap bounds how many events may wait for the drain worker. A
// full queue drops new events rather than block or grow.
const queueCap = 256

// Client pushes events to Loki
type Client struct {
	url        string
	app        string
	httpClient *http.Client
	log        *zap.Logger
	enabled    bool

	mu     sync.RWMutex
	closed bool
	events chan pushPayload
	done   chan struct{}
}

// NewClient creates a telemetry client from configuration and starts
// its drain worker. When telemetry is disabled the client is inert and
// Log becomes a no-op.
func NewClient(cfg *config.TelemetryConfig, log *zap.Logger) *Client {
	c := &Client{
		url: cfg.URL,
		app: cfg.App,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log:     log,
		enabled: cfg.Enabled,
	}

	if c.enabled {
		c.events = make(chan pushPayload, queueCap)
		c.done = make(chan struct{})
		go c.drain()
	}
	return c
}

// drain is the single worker pushing queued events in order
func (c *Client) drain() {
	defer close(c.done)
	for payload := range c.events {
		c.push(payload)
	}
}

// Log queues a single event and returns immediately. The event carries
// the application and level labels, a unique event id, and any
// caller-supplied labels. When the queue is full the event is dropped;
// telemetry never blocks the caller.
func (c *Client) Log(level, message string, labels map[string]string) {
	if c == nil || !c.enabled {
		return
	}

	stream := map[string]string{
		"application": c.app,
		"level":       level,
		"event_id":    uuid.New().String(),
	}
	for k, v := range labels {
		stream[k] = v
	}

	payload := pushPayload{
		Streams: []logStream{
			{
				Stream: stream,
				Values: [][2]string{
					{strconv.FormatInt(time.Now().UnixNano(), 10), message},
				},
			},
		},
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}

	select {
	case c.events <- payload:
	default:
		c.log.Debug("Telemetry queue full, dropping event")
		metrics.TelemetryEventsTotal.WithLabelValues("dropped").Inc()
	}
}

// Wait flushes the queue and stops the drain worker. Used during
// shutdown and in tests; events logged afterwards are discarded.
func (c *Client) Wait() {
	if c == nil || !c.enabled {
		return
	}

	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	c.mu.Unlock()

	<-c.done
}

func (c *Client) push(payload pushPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		metrics.TelemetryEventsTotal.WithLabelValues("error").Inc()
		return
	}

	resp, err := c.httpClient.Post(c.url, constants.ContentTypeJSON, bytes.NewReader(body))
	if err != nil {
		c.log.Debug("Telemetry push failed", zap.Error(err))
		metrics.TelemetryEventsTotal.WithLabelValues("error").Inc()
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		c.log.Debug("Telemetry push rejected", zap.Int("status", resp.StatusCode))
		metrics.TelemetryEventsTotal.WithLabelValues("rejected").Inc()
		return
	}

	metrics.TelemetryEventsTotal.WithLabelValues("sent").Inc()
}
