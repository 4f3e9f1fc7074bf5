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
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wso2/task-platform/sync-agent/pkg/api"
	"github.com/wso2/task-platform/sync-agent/pkg/api/middleware"
	"go.uber.org/zap"
)

// ImportTasks accepts a YAML or JSON task document, validates it, and
// creates every entry through the task service. Entries fail
// individually; one bad entry does not abort the batch.
// (POST /api/v1/tasks/import)
func (s *APIServer) ImportTasks(c *gin.Context) {
	log := middleware.GetLogger(c, s.logger)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Error("Failed to read request body", zap.Error(err))
		respondError(c, http.StatusBadRequest, "Failed to read request body")
		return
	}

	doc, err := s.parser.Parse(body, c.GetHeader("Content-Type"))
	if err != nil {
		log.Error("Failed to parse import document", zap.Error(err))
		respondError(c, http.StatusBadRequest, "Failed to parse document")
		return
	}

	if validationErrors := s.validator.Validate(doc); len(validationErrors) > 0 {
		log.Warn("Import document validation failed",
			zap.Int("num_errors", len(validationErrors)))
		c.JSON(http.StatusBadRequest, api.ValidationErrorResponse{
			Status:  "error",
			Message: "Document validation failed",
			Errors:  validationErrors,
		})
		return
	}

	results := make([]api.ImportResult, 0, len(doc.Spec.Tasks))
	created, failed := 0, 0

	for i, entry := range doc.Spec.Tasks {
		result := api.ImportResult{Index: i}

		req, err := entry.TaskCreate()
		if err != nil {
			result.Error = err.Error()
			failed++
			results = append(results, result)
			continue
		}

		task, err := s.backend.CreateTask(c.Request.Context(), req)
		if err != nil {
			log.Warn("Import entry rejected by task service",
				zap.Int("index", i), zap.Error(err))
			result.Error = err.Error()
			failed++
			results = append(results, result)
			continue
		}

		s.store.InsertFront(task)
		result.ID = task.ID
		created++
		results = append(results, result)
	}

	log.Info("Task document imported",
		zap.Int("created", created), zap.Int("failed", failed))

	status := http.StatusCreated
	if created == 0 && failed > 0 {
		status = http.StatusBadGateway
	}
	c.JSON(status, api.ImportResponse{
		Status:  "success",
		Created: created,
		Failed:  failed,
		Results: results,
	})
}
