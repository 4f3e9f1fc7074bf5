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

// Package api defines the request and response bodies of the agent's
// local HTTP surface.
package api

import (
	"github.com/wso2/task-platform/sync-agent/pkg/models"
	"github.com/wso2/task-platform/sync-agent/pkg/taskdoc"
)

// ErrorResponse is the error body returned by the local API
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ValidationErrorResponse carries field-level validation failures
type ValidationErrorResponse struct {
	Status  string                    `json:"status"`
	Message string                    `json:"message"`
	Errors  []taskdoc.ValidationError `json:"errors"`
}

// LoginResponse is returned after a successful login
type LoginResponse struct {
	Status string      `json:"status"`
	User   models.User `json:"user"`
}

// SessionStatus describes the agent's current session
type SessionStatus struct {
	Authenticated bool              `json:"authenticated"`
	CSRFReady     bool              `json:"csrf_ready"`
	User          *models.User      `json:"user,omitempty"`
	Channels      map[string]string `json:"channels"`
}

// ChannelList reports every registered channel and its state
type ChannelList struct {
	Channels map[string]string `json:"channels"`
}

// ImportResult reports the outcome of one imported task entry
type ImportResult struct {
	Index int    `json:"index"`
	ID    int64  `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// ImportResponse summarizes a document import
type ImportResponse struct {
	Status  string         `json:"status"`
	Created int            `json:"created"`
	Failed  int            `json:"failed"`
	Results []ImportResult `json:"results"`
}
