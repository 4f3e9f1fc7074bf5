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

package storage

import "github.com/wso2/task-platform/sync-agent/pkg/models"

// Storage persists agent state across restarts. The durable credential
// copy backs outbound requests; the task snapshot lets the agent serve
// reads before the task service is reachable.
type Storage interface {
	// SaveCredential stores or replaces a credential value by key
	SaveCredential(key, value string) error

	// GetCredential returns the stored value for key, or ErrNotFound
	GetCredential(key string) (string, error)

	// DeleteCredential removes a credential. Deleting an absent key is not an error.
	DeleteCredential(key string) error

	// ClearCredentials removes all stored credentials
	ClearCredentials() error

	// SaveTaskSnapshot replaces the cached task list, preserving order
	SaveTaskSnapshot(tasks []models.Task) error

	// LoadTaskSnapshot returns the cached task list in stored order
	LoadTaskSnapshot() ([]models.Task, error)

	// Close releases the underlying resources
	Close() error
}
