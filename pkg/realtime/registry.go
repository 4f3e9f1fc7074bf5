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
	"net/http"
	"sync"

	"github.com/wso2/task-platform/sync-agent/pkg/config"
	"go.uber.org/zap"
)

// RegistryOptions configures connections created by a Registry
type RegistryOptions struct {
	// BaseURL is the ws:// or wss:// service root including any path prefix
	BaseURL string

	// Jar supplies session cookies for websocket handshakes
	Jar http.CookieJar

	InsecureSkipVerify bool

	// Handler receives frames from every channel connection
	Handler FrameHandler
}

// Registry tracks channel connections by name. It guarantees a channel
// never has more than one live stream: Connect on an already-tracked
// channel is a no-op, and Disconnect fully tears the stream down before
// the name can be reused.
type Registry struct {
	mu     sync.Mutex
	conns  map[string]*Conn
	opts   RegistryOptions
	cfg    config.RealtimeConfig
	logger *zap.Logger
}

// NewRegistry creates an empty channel registry
func NewRegistry(opts RegistryOptions, cfg config.RealtimeConfig, logger *zap.Logger) *Registry {
	return &Registry{
		conns:  make(map[string]*Conn),
		opts:   opts,
		cfg:    cfg,
		logger: logger,
	}
}

// Connect ensures a connection exists for the named channel. Calling
// it while the channel is already tracked is a no-op.
func (r *Registry) Connect(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[channel]; exists {
		r.logger.Debug("Channel already connected", zap.String("channel", channel))
		return
	}

	conn := NewConn(ConnOptions{
		Channel:            channel,
		BaseURL:            r.opts.BaseURL,
		Jar:                r.opts.Jar,
		InsecureSkipVerify: r.opts.InsecureSkipVerify,
		Handler:            r.opts.Handler,
	}, r.cfg, r.logger)

	r.conns[channel] = conn
	conn.Start()
}

// Disconnect tears down the named channel connection. Disconnecting an
// unknown channel is a no-op. The teardown completes before the name
// is released, so a following Connect starts from a clean slate.
func (r *Registry) Disconnect(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.conns[channel]
	if !exists {
		r.logger.Debug("Channel not connected", zap.String("channel", channel))
		return
	}

	delete(r.conns, channel)
	conn.Stop()
}

// IsConnected reports whether the named channel currently has an open
// stream. Channels that are connecting or waiting to reconnect are not
// considered connected.
func (r *Registry) IsConnected(channel string) bool {
	r.mu.Lock()
	conn, exists := r.conns[channel]
	r.mu.Unlock()

	return exists && conn.IsConnected()
}

// States returns the connection state of every tracked channel
func (r *Registry) States() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make(map[string]string, len(r.conns))
	for name, conn := range r.conns {
		states[name] = conn.GetState().String()
	}
	return states
}

// DisconnectAll tears down every tracked channel connection
func (r *Registry) DisconnectAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, conn := range r.conns {
		delete(r.conns, name)
		conn.Stop()
	}
}
