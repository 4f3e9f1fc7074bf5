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

package realtime

import (
	"context"
	"crypto/tls"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wso2/task-platform/sync-agent/pkg/config"
	"github.com/wso2/task-platform/sync-agent/pkg/constants"
	"github.com/wso2/task-platform/sync-agent/pkg/metrics"
	"go.uber.org/zap"
)

// State represents the connection state of a channel
type State int

const (
	// Idle state - no connection and none wanted
	Idle State = iota
	// Connecting state - attempting to establish a connection
	Connecting
	// Open state - active connection
	Open
	// Reconnecting state - waiting to reconnect after a failure
	Reconnecting
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// FrameHandler consumes text frames read off an open channel connection
type FrameHandler interface {
	HandleFrame(channel string, frame []byte)
}

// ConnState holds the current state and metadata for a channel connection
type ConnState struct {
	Current       State           // Current connection state
	Conn          *websocket.Conn // Active WebSocket connection (nil if not connected)
	LastConnected time.Time       // Timestamp of last successful connection
	LastHeartbeat int64           // Unix timestamp of last heartbeat sent (atomic)
	RetryCount    int             // Consecutive retry attempts
	mu            sync.RWMutex    // Protects state transitions
}

// ConnOptions configures a single channel connection
type ConnOptions struct {
	// Channel is the stream name appended to the websocket path
	Channel string

	// BaseURL is the ws:// or wss:// service root including any path prefix
	BaseURL string

	// Jar supplies session cookies for the websocket handshake
	Jar http.CookieJar

	InsecureSkipVerify bool

	// Handler receives every text frame read from the connection
	Handler FrameHandler
}

// Conn manages the WebSocket connection for one channel. Once started
// it keeps itself connected until Stop: lost connections are retried
// forever with doubling delays. Stop is final; a stopped connection
// never reconnects.
type Conn struct {
	opts     ConnOptions
	cfg      config.RealtimeConfig
	logger   *zap.Logger
	backoff  *Backoff
	state    *ConnState
	ctx      context.Context
	cancel   context.CancelFunc
	stopChan chan struct{}
	wg       sync.WaitGroup
	writeMu  sync.Mutex // Serializes writes to the active connection
}

// NewConn creates a connection for a single channel. Call Start to
// begin connecting.
func NewConn(opts ConnOptions, cfg config.RealtimeConfig, logger *zap.Logger) *Conn {
	ctx, cancel := context.WithCancel(context.Background())

	return &Conn{
		opts:    opts,
		cfg:     cfg,
		logger:  logger,
		backoff: NewBackoff(cfg.ReconnectInitial, cfg.ReconnectMax),
		state: &ConnState{
			Current: Idle,
			Conn:    nil,
		},
		ctx:      ctx,
		cancel:   cancel,
		stopChan: make(chan struct{}),
	}
}

// Start begins connecting in the background
func (c *Conn) Start() {
	c.logger.Info("Starting channel connection",
		zap.String("channel", c.opts.Channel),
		zap.String("url", c.url()),
	)

	c.wg.Add(1)
	go c.connectionLoop()
}

// Stop permanently disconnects the channel. The connection transitions
// to Idle and never reconnects on its own; a new Conn is required to
// resume streaming. Stop must be called at most once.
func (c *Conn) Stop() {
	c.logger.Info("Disconnecting channel", zap.String("channel", c.opts.Channel))

	// Signal shutdown
	close(c.stopChan)
	c.cancel()

	// Close active connection if exists
	c.state.mu.Lock()
	if c.state.Conn != nil {
		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnecting")
		_ = c.writeFrame(c.state.Conn, websocket.CloseMessage, closeMsg)
		_ = c.state.Conn.Close()
		c.state.Conn = nil
	}
	c.state.mu.Unlock()

	// Wait for goroutines to finish
	c.wg.Wait()

	c.setState(Idle)

	c.logger.Info("Channel disconnected", zap.String("channel", c.opts.Channel))
}

// connectionLoop manages the connection lifecycle with reconnection
func (c *Conn) connectionLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopChan:
			return
		case <-c.ctx.Done():
			return
		default:
		}

		// Attempt connection
		if err := c.connect(); err != nil {
			c.logger.Warn("Channel connection failed",
				zap.String("channel", c.opts.Channel),
				zap.Error(err),
			)
			if !c.scheduleRetry() {
				return
			}
			continue
		}

		// Stop may have fired while the handshake was in flight, after
		// its sweep of the stored connection. The fresh connection must
		// be closed here; readLoop has no shutdown path of its own.
		if c.isShuttingDown() {
			c.closeConn()
			return
		}

		// Connection established, read frames until it drops
		c.readLoop()

		// Check if we should reconnect
		if c.isShuttingDown() {
			return
		}

		if !c.scheduleRetry() {
			return
		}
	}
}

// connect establishes a WebSocket connection for the channel
func (c *Conn) connect() error {
	c.setState(Connecting)

	wsURL := c.url()
	c.logger.Info("Connecting to channel",
		zap.String("channel", c.opts.Channel),
		zap.String("url", wsURL),
		zap.Int("retry_count", c.retryCount()),
	)

	// Create WebSocket dialer with timeout. The cookie jar carries the
	// session cookies the service set during sign-in.
	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
		Jar:              c.opts.Jar,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: c.opts.InsecureSkipVerify,
		},
	}

	// Dial under the connection context so Stop aborts an in-flight
	// handshake instead of waiting it out.
	conn, resp, err := dialer.DialContext(c.ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			c.logger.Error("WebSocket connection failed",
				zap.String("channel", c.opts.Channel),
				zap.Error(err),
				zap.Int("status_code", resp.StatusCode),
			)
		} else {
			c.logger.Error("WebSocket connection failed",
				zap.String("channel", c.opts.Channel),
				zap.Error(err),
			)
		}
		return err
	}

	// Store connection
	c.state.mu.Lock()
	c.state.Conn = conn
	c.state.LastConnected = time.Now()
	c.state.mu.Unlock()

	// Announce ourselves exactly once per established connection. A
	// failed hello is not fatal: a dead socket surfaces in the read
	// loop and triggers reconnection.
	if err := c.sendHello(conn); err != nil {
		c.logger.Warn("Failed to send hello frame",
			zap.String("channel", c.opts.Channel),
			zap.Error(err),
		)
	}

	c.setState(Open)
	c.backoff.Reset()
	c.state.mu.Lock()
	c.state.RetryCount = 0
	c.state.mu.Unlock()

	c.logger.Info("Channel connection established",
		zap.String("channel", c.opts.Channel),
	)

	// Start heartbeat sender
	c.wg.Add(1)
	go c.heartbeatLoop(conn)

	return nil
}

// sendHello writes the hello announcement on a freshly opened connection
func (c *Conn) sendHello(conn *websocket.Conn) error {
	frame, err := newHelloFrame(time.Now())
	if err != nil {
		return err
	}
	return c.writeFrame(conn, websocket.TextMessage, frame)
}

// heartbeatLoop periodically sends ping frames on the given connection.
// Send failures are swallowed: the read loop is the authority on
// connection loss. The loop exits once the connection is replaced or
// torn down.
func (c *Conn) heartbeatLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if c.currentConn() != conn {
				// Connection was replaced or closed
				return
			}

			frame, err := newPingFrame(time.Now())
			if err != nil {
				return
			}

			if err := c.writeFrame(conn, websocket.TextMessage, frame); err != nil {
				c.logger.Debug("Heartbeat send failed",
					zap.String("channel", c.opts.Channel),
					zap.Error(err),
				)
				continue
			}

			atomic.StoreInt64(&c.state.LastHeartbeat, time.Now().Unix())
			metrics.HeartbeatsSentTotal.WithLabelValues(c.opts.Channel).Inc()

		case <-c.stopChan:
			return
		case <-c.ctx.Done():
			return
		}
	}
}

// readLoop reads frames until the connection drops and hands each text
// frame to the handler.
func (c *Conn) readLoop() {
	c.state.mu.RLock()
	conn := c.state.Conn
	c.state.mu.RUnlock()

	if conn == nil {
		return
	}

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if !c.isShuttingDown() {
				c.logger.Warn("Channel connection lost",
					zap.String("channel", c.opts.Channel),
					zap.Error(err),
				)
			}

			c.closeConn()
			return
		}

		c.handleMessage(messageType, message)
	}
}

// handleMessage forwards text frames to the handler
func (c *Conn) handleMessage(messageType int, message []byte) {
	// Only process text messages (JSON frames)
	if messageType != websocket.TextMessage {
		c.logger.Debug("Ignoring non-text message",
			zap.String("channel", c.opts.Channel),
			zap.Int("message_type", messageType),
		)
		return
	}

	if c.opts.Handler != nil {
		c.opts.Handler.HandleFrame(c.opts.Channel, message)
	}
}

// scheduleRetry transitions to Reconnecting and waits out the next
// backoff delay. It returns false when shutdown interrupts the wait.
func (c *Conn) scheduleRetry() bool {
	c.setState(Reconnecting)

	c.state.mu.Lock()
	c.state.RetryCount++
	retries := c.state.RetryCount
	c.state.mu.Unlock()

	delay := c.backoff.Next()
	metrics.ChannelReconnectsTotal.WithLabelValues(c.opts.Channel).Inc()

	c.logger.Info("Scheduling channel reconnect",
		zap.String("channel", c.opts.Channel),
		zap.Duration("retry_delay", delay),
		zap.Int("retry_count", retries),
	)

	select {
	case <-time.After(delay):
		return true
	case <-c.stopChan:
		return false
	case <-c.ctx.Done():
		return false
	}
}

// writeFrame serializes writes so the heartbeat sender and shutdown
// never interleave frames on the socket.
func (c *Conn) writeFrame(conn *websocket.Conn, messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(messageType, data)
}

// setState updates the connection state
func (c *Conn) setState(newState State) {
	c.state.mu.Lock()
	oldState := c.state.Current
	c.state.Current = newState
	c.state.mu.Unlock()

	if oldState != newState {
		c.logger.Info("Channel state changed",
			zap.String("channel", c.opts.Channel),
			zap.String("from", oldState.String()),
			zap.String("to", newState.String()),
		)
		metrics.ChannelConnectionState.WithLabelValues(c.opts.Channel, oldState.String()).Set(0)
	}
	metrics.ChannelConnectionState.WithLabelValues(c.opts.Channel, newState.String()).Set(1)
}

// closeConn closes and clears the stored connection, if any
func (c *Conn) closeConn() {
	c.state.mu.Lock()
	if c.state.Conn != nil {
		c.state.Conn.Close()
		c.state.Conn = nil
	}
	c.state.mu.Unlock()
}

// isShuttingDown checks if the connection is being stopped
func (c *Conn) isShuttingDown() bool {
	select {
	case <-c.stopChan:
		return true
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

// currentConn returns the active connection, if any (thread-safe)
func (c *Conn) currentConn() *websocket.Conn {
	c.state.mu.RLock()
	defer c.state.mu.RUnlock()
	return c.state.Conn
}

// retryCount returns the consecutive retry attempts (thread-safe)
func (c *Conn) retryCount() int {
	c.state.mu.RLock()
	defer c.state.mu.RUnlock()
	return c.state.RetryCount
}

// GetState returns the current connection state (thread-safe)
func (c *Conn) GetState() State {
	c.state.mu.RLock()
	defer c.state.mu.RUnlock()
	return c.state.Current
}

// IsConnected returns true if the channel stream is currently open
func (c *Conn) IsConnected() bool {
	return c.GetState() == Open
}

// Channel returns the channel name this connection serves
func (c *Conn) Channel() string {
	return c.opts.Channel
}

// url constructs the channel WebSocket URL from the base URL
func (c *Conn) url() string {
	return strings.TrimSuffix(c.opts.BaseURL, "/") + constants.PathWebSocket + c.opts.Channel
}
