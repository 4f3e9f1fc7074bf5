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

// Package handlers implements the agent's local HTTP surface. Reads
// are served from the local task view; mutations are proxied to the
// upstream task service and the confirmed result is applied locally,
// so the later server echo is suppressed as self-origin.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wso2/task-platform/sync-agent/pkg/api"
	"github.com/wso2/task-platform/sync-agent/pkg/api/middleware"
	"github.com/wso2/task-platform/sync-agent/pkg/backend"
	"github.com/wso2/task-platform/sync-agent/pkg/realtime"
	"github.com/wso2/task-platform/sync-agent/pkg/session"
	"github.com/wso2/task-platform/sync-agent/pkg/storage"
	"github.com/wso2/task-platform/sync-agent/pkg/stream"
	"github.com/wso2/task-platform/sync-agent/pkg/taskdoc"
	"go.uber.org/zap"
)

// APIServer exposes the agent's state and operations to local consumers
type APIServer struct {
	store     *storage.TaskStore
	backend   *backend.Client
	creds     *session.Store
	registry  *realtime.Registry
	hub       *stream.Hub
	parser    *taskdoc.Parser
	validator *taskdoc.Validator
	logger    *zap.Logger
}

// NewAPIServer creates a new API server with dependencies
func NewAPIServer(
	store *storage.TaskStore,
	client *backend.Client,
	creds *session.Store,
	registry *realtime.Registry,
	hub *stream.Hub,
	logger *zap.Logger,
) *APIServer {
	return &APIServer{
		store:     store,
		backend:   client,
		creds:     creds,
		registry:  registry,
		hub:       hub,
		parser:    taskdoc.NewParser(),
		validator: taskdoc.NewValidator(),
		logger:    logger,
	}
}

// Router builds the gin engine with the full middleware chain and all
// local routes registered.
func (s *APIServer) Router() *gin.Engine {
	router := gin.New()
	router.Use(middleware.CorrelationIDMiddleware(s.logger))
	router.Use(middleware.ErrorHandlingMiddleware(s.logger))
	router.Use(middleware.LoggingMiddleware(s.logger))
	router.Use(middleware.MetricsMiddleware())

	router.GET("/health", s.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/tasks", s.ListTasks)
		v1.GET("/tasks/statistics", s.TaskStatistics)
		v1.POST("/tasks/sync", s.SyncTasks)
		v1.POST("/tasks/import", s.ImportTasks)
		v1.GET("/tasks/:id", s.GetTask)
		v1.POST("/tasks", s.CreateTask)
		v1.PUT("/tasks/:id", s.UpdateTask)
		v1.DELETE("/tasks/:id", s.DeleteTask)
		v1.POST("/tasks/:id/comments", s.AddComment)

		v1.POST("/session/login", s.Login)
		v1.GET("/session", s.SessionStatus)
		v1.POST("/session/logout", s.Logout)

		v1.GET("/channels", s.ListChannels)
		v1.POST("/channels/:name/connect", s.ConnectChannel)
		v1.POST("/channels/:name/disconnect", s.DisconnectChannel)

		v1.GET("/events", s.StreamEvents)
	}

	return router
}

// HealthCheck reports the agent's own liveness
// (GET /health)
func (s *APIServer) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// respondError writes the standard error body
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, api.ErrorResponse{
		Status:  "error",
		Message: message,
	})
}

// respondBackendError maps a task service failure onto a local status.
// Session-expired failures become 401 so the consumer knows a fresh
// login is needed; unknown resources stay 404; anything else carries
// the upstream status through.
func respondBackendError(c *gin.Context, err error) {
	switch {
	case backend.IsSessionExpired(err):
		respondError(c, http.StatusUnauthorized, "Session expired, login required")
	case backend.IsNotFound(err):
		respondError(c, http.StatusNotFound, "Task not found")
	default:
		if apiErr, ok := backend.AsAPIError(err); ok {
			respondError(c, apiErr.StatusCode, apiErr.Body)
			return
		}
		respondError(c, http.StatusBadGateway, err.Error())
	}
}
