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

// Package taskdoc parses and validates task import documents, the
// declarative YAML/JSON batches the agent turns into create calls
// against the task service.
package taskdoc

import (
	"fmt"
	"time"

	"github.com/wso2/task-platform/sync-agent/pkg/models"
)

const (
	// DocumentVersion is the only accepted version marker
	DocumentVersion = "task-platform/v1"

	// DocumentKind is the only accepted document kind
	DocumentKind = "tasks/import"
)

// Document is an importable batch of tasks
type Document struct {
	Version string       `json:"version" yaml:"version"`
	Kind    string       `json:"kind" yaml:"kind"`
	Spec    DocumentSpec `json:"spec" yaml:"spec"`
}

// DocumentSpec holds the document payload
type DocumentSpec struct {
	Tasks []TaskEntry `json:"tasks" yaml:"tasks"`
}

// TaskEntry is one task in an import document. Dates stay strings here
// so validation can report them by field instead of failing the parse.
type TaskEntry struct {
	Title       string  `json:"title" yaml:"title"`
	Description *string `json:"description,omitempty" yaml:"description,omitempty"`
	Priority    string  `json:"priority,omitempty" yaml:"priority,omitempty"`
	DueDate     *string `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	AssignedTo  *int64  `json:"assigned_to,omitempty" yaml:"assigned_to,omitempty"`
}

// TaskCreate converts an entry into the task service's request shape
func (e TaskEntry) TaskCreate() (models.TaskCreate, error) {
	req := models.TaskCreate{
		Title:       e.Title,
		Description: e.Description,
		AssignedTo:  e.AssignedTo,
	}
	if e.Priority != "" {
		req.Priority = models.TaskPriority(e.Priority)
	}
	if e.DueDate != nil {
		ts, err := time.Parse(time.RFC3339, *e.DueDate)
		if err != nil {
			return models.TaskCreate{}, fmt.Errorf("invalid due_date %q: %w", *e.DueDate, err)
		}
		req.DueDate = &ts
	}
	return req, nil
}
