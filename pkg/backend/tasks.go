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

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/wso2/task-platform/sync-agent/pkg/constants"
	"github.com/wso2/task-platform/sync-agent/pkg/models"
)

// listPageSize is the largest page the task service serves
const listPageSize = 100

// ListTasks walks the paginated task collection and returns all of it
// in the service's display order, newest first.
func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	var all []models.Task
	for page := 1; ; page++ {
		path := fmt.Sprintf("%s?page=%d&size=%d", constants.PathTasks, page, listPageSize)
		data, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}

		var resp models.TaskPage
		if err := decode(data, &resp); err != nil {
			return nil, err
		}

		all = append(all, resp.Tasks...)
		if page >= resp.Pages || len(resp.Tasks) == 0 {
			return all, nil
		}
	}
}

// GetTask fetches a single task by id
func (c *Client) GetTask(ctx context.Context, id int64) (models.Task, error) {
	data, err := c.do(ctx, http.MethodGet, taskPath(id), nil)
	if err != nil {
		return models.Task{}, err
	}

	var task models.Task
	if err := decode(data, &task); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// CreateTask creates a task and returns the stored version
func (c *Client) CreateTask(ctx context.Context, req models.TaskCreate) (models.Task, error) {
	if err := req.Validate(); err != nil {
		return models.Task{}, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to marshal task: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, constants.PathTasks, body)
	if err != nil {
		return models.Task{}, err
	}

	var task models.Task
	if err := decode(data, &task); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// UpdateTask applies a partial update and returns the stored version
func (c *Client) UpdateTask(ctx context.Context, id int64, req models.TaskUpdate) (models.Task, error) {
	if err := req.Validate(); err != nil {
		return models.Task{}, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to marshal task update: %w", err)
	}

	data, err := c.do(ctx, http.MethodPut, taskPath(id), body)
	if err != nil {
		return models.Task{}, err
	}

	var task models.Task
	if err := decode(data, &task); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// DeleteTask removes a task by id
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, taskPath(id), nil)
	return err
}

// AddComment attaches a comment to a task and returns the stored comment
func (c *Client) AddComment(ctx context.Context, taskID int64, req models.CommentCreate) (models.Comment, error) {
	if err := req.Validate(); err != nil {
		return models.Comment{}, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return models.Comment{}, fmt.Errorf("failed to marshal comment: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, commentsPath(taskID), body)
	if err != nil {
		return models.Comment{}, err
	}

	var comment models.Comment
	if err := decode(data, &comment); err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

// Statistics fetches the aggregate task counters
func (c *Client) Statistics(ctx context.Context) (models.TaskStatistics, error) {
	data, err := c.do(ctx, http.MethodGet, constants.PathStatistics, nil)
	if err != nil {
		return models.TaskStatistics{}, err
	}

	var stats models.TaskStatistics
	if err := decode(data, &stats); err != nil {
		return models.TaskStatistics{}, err
	}
	return stats, nil
}

func taskPath(id int64) string {
	return fmt.Sprintf("/tasks/%d", id)
}

func commentsPath(id int64) string {
	return fmt.Sprintf("/tasks/%d/comments", id)
}
