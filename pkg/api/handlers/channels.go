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

	"github.com/gin-gonic/gin"
	"github.com/wso2/task-platform/sync-agent/pkg/api"
	"github.com/wso2/task-platform/sync-agent/pkg/api/middleware"
	"go.uber.org/zap"
)

// ListChannels reports every tracked channel and its connection state
// (GET /api/v1/channels)
func (s *APIServer) ListChannels(c *gin.Context) {
	c.JSON(http.StatusOK, api.ChannelList{
		Channels: s.registry.States(),
	})
}

// ConnectChannel starts (or keeps) the named channel connection.
// Connecting an already-connected channel is a no-op.
// (POST /api/v1/channels/:name/connect)
func (s *APIServer) ConnectChannel(c *gin.Context) {
	log := middleware.GetLogger(c, s.logger)

	name := c.Param("name")
	if name == "" {
		respondError(c, http.StatusBadRequest, "Channel name is required")
		return
	}

	s.registry.Connect(name)
	log.Info("Channel connect requested", zap.String("channel", name))

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "success",
		"channel": name,
	})
}

// DisconnectChannel tears the named channel down. Disconnecting an
// unknown channel is a no-op.
// (POST /api/v1/channels/:name/disconnect)
func (s *APIServer) DisconnectChannel(c *gin.Context) {
	log := middleware.GetLogger(c, s.logger)

	name := c.Param("name")
	if name == "" {
		respondError(c, http.StatusBadRequest, "Channel name is required")
		return
	}

	s.registry.Disconnect(name)
	log.Info("Channel disconnect requested", zap.String("channel", name))

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"channel": name,
	})
}
