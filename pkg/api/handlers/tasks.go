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
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wso2/task-platform/sync-agent/pkg/api/middleware"
	"github.com/wso2/task-platform/sync-agent/pkg/models"
	"go.uber.org/zap"
)

// ListTasks serves the local task view
// (GET /api/v1/tasks)
func (s *APIServer) ListTasks(c *gin.Context) {
	tasks := s.store.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"count":  len(tasks),
		"tasks":  tasks,
	})
}

// GetTask serves a single task from the local view
// (GET /api/v1/tasks/:id)
func (s *APIServer) GetTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	task, found := s.store.Get(id)
	if !found {
		respondError(c, http.StatusNotFound, "Task not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"task":   task,
	})
}

// CreateTask proxies a task creation to the task service and applies
// the confirmed task to the local view.
// (POST /api/v1/tasks)
func (s *APIServer) CreateTask(c *gin.Context) {
	log := middleware.GetLogger(c, s.logger)

	var req models.TaskCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	task, err := s.backend.CreateTask(c.Request.Context(), req)
	if err != nil {
		log.Error("Failed to create task upstream", zap.Error(err))
		respondBackendError(c, err)
		return
	}

	s.store.InsertFront(task)
	log.Info("Task created", zap.Int64("task_id", task.ID))

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"task":   task,
	})
}

// UpdateTask proxies a task update and replaces the local copy with
// the confirmed result.
// (PUT /api/v1/tasks/:id)
func (s *APIServer) UpdateTask(c *gin.Context) {
	log := middleware.GetLogger(c, s.logger)

	id, ok := taskID(c)
	if !ok {
		return
	}

	var req models.TaskUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	task, err := s.backend.UpdateTask(c.Request.Context(), id, req)
	if err != nil {
		log.Error("Failed to update task upstream",
			zap.Int64("task_id", id), zap.Error(err))
		respondBackendError(c, err)
		return
	}

	s.store.Replace(task)
	log.Info("Task updated", zap.Int64("task_id", task.ID))

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"task":   task,
	})
}

// DeleteTask proxies a task deletion and removes the local copy
// (DELETE /api/v1/tasks/:id)
func (s *APIServer) DeleteTask(c *gin.Context) {
	log := middleware.GetLogger(c, s.logger)

	id, ok := taskID(c)
	if !ok {
		return
	}

	if err := s.backend.DeleteTask(c.Request.Context(), id); err != nil {
		log.Error("Failed to delete task upstream",
			zap.Int64("task_id", id), zap.Error(err))
		respondBackendError(c, err)
		return
	}

	s.store.Remove(id)
	log.Info("Task deleted", zap.Int64("task_id", id))

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
	})
}

// AddComment proxies a comment creation and appends the confirmed
// comment to the parent task's local copy.
// (POST /api/v1/tasks/:id/comments)
func (s *APIServer) AddComment(c *gin.Context) {
	log := middleware.GetLogger(c, s.logger)

	id, ok := taskID(c)
	if !ok {
		return
	}

	var req models.CommentCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	comment, err := s.backend.AddComment(c.Request.Context(), id, req)
	if err != nil {
		log.Error("Failed to add comment upstream",
			zap.Int64("task_id", id), zap.Error(err))
		respondBackendError(c, err)
		return
	}

	s.store.AppendComment(id, comment)
	log.Info("Comment added",
		zap.Int64("task_id", id), zap.Int64("comment_id", comment.ID))

	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"comment": comment,
	})
}

// TaskStatistics proxies the aggregate view to the task service, which
// is the record of truth for counts beyond what the agent caches.
// (GET /api/v1/tasks/statistics)
func (s *APIServer) TaskStatistics(c *gin.Context) {
	log := middleware.GetLogger(c, s.logger)

	stats, err := s.backend.Statistics(c.Request.Context())
	if err != nil {
		log.Error("Failed to fetch task statistics", zap.Error(err))
		respondBackendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"statistics": stats,
	})
}

// SyncTasks reloads the full task list from the task service into the
// local view. Used at login and whenever a consumer suspects drift.
// (POST /api/v1/tasks/sync)
func (s *APIServer) SyncTasks(c *gin.Context) {
	log := middleware.GetLogger(c, s.logger)

	tasks, err := s.backend.ListTasks(c.Request.Context())
	if err != nil {
		log.Error("Failed to sync tasks from task service", zap.Error(err))
		respondBackendError(c, err)
		return
	}

	s.store.ReplaceAll(tasks)
	log.Info("Task view synced", zap.Int("count", len(tasks)))

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"count":  len(tasks),
	})
}

// taskID parses the :id path parameter, answering 400 itself on bad input
func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid task id")
		return 0, false
	}
	return id, true
}
