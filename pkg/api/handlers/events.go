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

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wso2/task-platform/sync-agent/pkg/api/middleware"
	"go.uber.org/zap"
)

const eventWriteTimeout = 5 * time.Second

// The local API binds to loopback; cross-origin browser pages on the
// same machine are still legitimate consumers.
var eventUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamEvents upgrades the request to a WebSocket and relays every
// store and session event to the subscriber until either side closes.
// A subscriber that cannot keep up silently loses frames rather than
// stalling the hub.
// (GET /api/v1/events)
func (s *APIServer) StreamEvents(c *gin.Context) {
	log := middleware.GetLogger(c, s.logger)

	conn, err := eventUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written its own error response
		log.Debug("Event stream upgrade failed", zap.Error(err))
		return
	}

	sub := s.hub.Subscribe()
	log.Info("Event stream subscriber connected",
		zap.String("remote_addr", conn.RemoteAddr().String()))

	// Reader exists only to observe the close handshake; inbound
	// payloads on this endpoint are ignored.
	go func() {
		defer sub.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for frame := range sub.Events() {
		conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Debug("Event stream write failed", zap.Error(err))
			break
		}
	}

	sub.Close()
	conn.Close()
	log.Info("Event stream subscriber disconnected")
}
