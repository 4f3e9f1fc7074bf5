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
	"github.com/wso2/task-platform/sync-agent/pkg/constants"
	"github.com/wso2/task-platform/sync-agent/pkg/models"
	"github.com/wso2/task-platform/sync-agent/pkg/realtime"
	"go.uber.org/zap"
)

// Login authenticates the agent against the task service and seeds the
// local task view from the fresh session.
// (POST /api/v1/session/login)
func (s *APIServer) Login(c *gin.Context) {
	log := middleware.GetLogger(c, s.logger)

	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.backend.Login(c.Request.Context(), req)
	if err != nil {
		log.Warn("Login against task service failed",
			zap.String("username", req.Username), zap.Error(err))
		respondBackendError(c, err)
		return
	}

	// Seed the view; a failure here leaves an empty view that the
	// channel stream and a later sync will fill in.
	if tasks, err := s.backend.ListTasks(c.Request.Context()); err != nil {
		log.Warn("Initial task sync after login failed", zap.Error(err))
	} else {
		s.store.ReplaceAll(tasks)
	}

	c.JSON(http.StatusOK, api.LoginResponse{
		Status: "success",
		User:   user,
	})
}

// SessionStatus reports whether the agent holds a usable session
// (GET /api/v1/session)
func (s *APIServer) SessionStatus(c *gin.Context) {
	status := api.SessionStatus{
		Authenticated: s.creds.HasSession(),
		CSRFReady:     s.creds.HasCSRFToken(),
		Channels:      s.registry.States(),
	}
	if user, ok := s.creds.Identity(); ok {
		status.User = &user
	}

	c.JSON(http.StatusOK, status)
}

// Logout ends the session. The credential store is torn down before
// the network call so requests racing the logout cannot renew it back
// to life; the local teardown runs regardless of the call's outcome.
// (POST /api/v1/session/logout)
func (s *APIServer) Logout(c *gin.Context) {
	log := middleware.GetLogger(c, s.logger)

	s.backend.Logout(c.Request.Context())

	s.store.Reset()
	s.registry.DisconnectAll()

	if frame, err := realtime.NewEventFrame(constants.FrameTypeSession, constants.EventEnded, nil); err == nil {
		s.hub.Broadcast(frame)
	}

	log.Info("Session ended by local request")
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
	})
}
