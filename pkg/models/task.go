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

package models

import (
	"fmt"
	"strings"
	"time"
)

// TaskPriority represents the priority level of a task.
// The wire values are fixed by the task service.
type TaskPriority string

const (
	PriorityHigh   TaskPriority = "alta"
	PriorityMedium TaskPriority = "media"
	PriorityLow    TaskPriority = "baja"
)

// IsValid reports whether the priority is one of the known wire values
func (p TaskPriority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Task represents a task as served by the task service
type Task struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	Completed   bool         `json:"completed"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	Priority    TaskPriority `json:"priority"`
	AssignedTo  *int64       `json:"assigned_to,omitempty"`
	CreatedBy   int64        `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Comments    []Comment    `json:"comments"`
}

// Comment represents a comment attached to a task
type Comment struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	AuthorID  int64     `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskCreate is the request body for creating a task
type TaskCreate struct {
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	Priority    TaskPriority `json:"priority,omitempty"`
	AssignedTo  *int64       `json:"assigned_to,omitempty"`
}

// Validate checks the request against the task service's field constraints
func (t *TaskCreate) Validate() error {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if len(title) > 200 {
		return fmt.Errorf("title must be 1-200 characters, got: %d", len(title))
	}
	if t.Description != nil && len(*t.Description) > 1000 {
		return fmt.Errorf("description must be at most 1000 characters, got: %d", len(*t.Description))
	}
	if t.Priority != "" && !t.Priority.IsValid() {
		return fmt.Errorf("priority must be one of alta, media, baja, got: %s", t.Priority)
	}
	return nil
}

// TaskUpdate is the request body for partially updating a task.
// Nil fields are left unchanged by the task service.
type TaskUpdate struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Completed   *bool         `json:"completed,omitempty"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty"`
	AssignedTo  *int64        `json:"assigned_to,omitempty"`
}

// Validate checks the request against the task service's field constraints
func (t *TaskUpdate) Validate() error {
	if t.Title != nil {
		title := strings.TrimSpace(*t.Title)
		if title == "" {
			return fmt.Errorf("title cannot be empty")
		}
		if len(title) > 200 {
			return fmt.Errorf("title must be 1-200 characters, got: %d", len(title))
		}
	}
	if t.Description != nil && len(*t.Description) > 1000 {
		return fmt.Errorf("description must be at most 1000 characters, got: %d", len(*t.Description))
	}
	if t.Priority != nil && !t.Priority.IsValid() {
		return fmt.Errorf("priority must be one of alta, media, baja, got: %s", *t.Priority)
	}
	return nil
}

// CommentCreate is the request body for adding a comment to a task
type CommentCreate struct {
	Content string `json:"content"`
}

// Validate checks the comment content is present
func (c *CommentCreate) Validate() error {
	if strings.TrimSpace(c.Content) == "" {
		return fmt.Errorf("content cannot be empty")
	}
	return nil
}

// TaskStatistics mirrors the statistics document served by the task service
type TaskStatistics struct {
	TotalTasks          int `json:"total_tasks"`
	CompletedTasks      int `json:"completed_tasks"`
	PendingTasks        int `json:"pending_tasks"`
	OverdueTasks        int `json:"overdue_tasks"`
	HighPriorityTasks   int `json:"high_priority_tasks"`
	MediumPriorityTasks int `json:"medium_priority_tasks"`
	LowPriorityTasks    int `json:"low_priority_tasks"`
}

// TaskPage mirrors one page of the task service's paginated listing
type TaskPage struct {
	Tasks []Task `json:"tasks"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Size  int    `json:"size"`
	Pages int    `json:"pages"`
}
