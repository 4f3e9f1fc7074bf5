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

package telemetry

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wso2/task-platform/sync-agent/pkg/config"
	"github.com/wso2/task-platform/sync-agent/pkg/metrics"
	"go.uber.org/zap"
)

func testClient(t *testing.T, url string, enabled bool) *Client {
	t.Helper()
	metrics.SetEnabled(false)
	metrics.Init()

	cfg := &config.TelemetryConfig{
		Enabled: enabled,
		URL:     url,
		App:     "task-sync-agent",
		Timeout: time.Second,
	}
	return NewClient(cfg, zap.NewNop())
}

func TestClient_Log_PayloadShape(t *testing.T) {
	received := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		received <- body
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, true)

	before := time.Now().UnixNano()
	c.Log("info", "channel reconnected", map[string]string{"channel": "tasks"})
	c.Wait()

	var body []byte
	select {
	case body = <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("telemetry push never arrived")
	}

	var payload pushPayload
	require.NoError(t, json.Unmarshal(body, &payload))
	require.Len(t, payload.Streams, 1)

	stream := payload.Streams[0]
	assert.Equal(t, "task-sync-agent", stream.Stream["application"])
	assert.Equal(t, "info", stream.Stream["level"])
	assert.Equal(t, "tasks", stream.Stream["channel"])

	eventID, err := uuid.Parse(stream.Stream["event_id"])
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, eventID)

	require.Len(t, stream.Values, 1)
	assert.Equal(t, "channel reconnected", stream.Values[0][1])

	ts, err := strconv.ParseInt(stream.Values[0][0], 10, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ts, before)
	assert.LessOrEqual(t, ts, time.Now().UnixNano())
}

func TestClient_Log_DropsWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	var received atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		<-release
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, true)

	// Flood well past capacity while the sink is stuck. Log must never
	// block; the overflow is dropped, not queued.
	start := time.Now()
	for i := 0; i < 2*queueCap; i++ {
		c.Log("info", "flood", nil)
	}
	require.Less(t, time.Since(start), time.Second, "Log blocked on a stuck sink")

	close(release)
	c.Wait()

	// At most the queued events plus the one in flight ever reach the
	// sink; everything past that was dropped at enqueue time.
	assert.LessOrEqual(t, received.Load(), int64(queueCap+1))
	assert.Greater(t, received.Load(), int64(0))
}

func TestClient_Log_AfterWaitIsDiscarded(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, true)
	c.Wait()

	c.Log("info", "too late", nil)
	c.Wait()

	assert.Equal(t, int64(0), calls.Load())
}

func TestClient_Log_Disabled(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, false)
	c.Log("info", "should never leave the process", nil)
	c.Wait()

	assert.Equal(t, int64(0), calls.Load())
}

func TestClient_Log_EndpointUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := testClient(t, url, true)

	// Failures are swallowed; Log must not block or panic.
	c.Log("error", "push into the void", nil)
	c.Wait()
}

func TestClient_Log_RejectedByServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, true)

	c.Log("warn", "loki is unhappy", nil)
	c.Wait()
}

func TestClient_NilReceiver(t *testing.T) {
	var c *Client
	c.Log("info", "nil client", nil)
	c.Wait()
}
