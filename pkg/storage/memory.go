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

import (
	"fmt"
	"sync"

	"github.com/wso2/task-platform/sync-agent/pkg/models"
)

// MemoryStorage is the Storage implementation for memory-only mode.
// Nothing survives a restart; it exists so the rest of the agent can
// treat storage uniformly.
type MemoryStorage struct {
	mu          sync.RWMutex
	credentials map[string]string
	snapshot    []models.Task
}

// NewMemoryStorage creates an empty in-memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		credentials: make(map[string]string),
	}
}

// SaveCredential stores or replaces a credential value by key
func (m *MemoryStorage) SaveCredential(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials[key] = value
	return nil
}

// GetCredential returns the stored value for key, or ErrNotFound
func (m *MemoryStorage) GetCredential(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.credentials[key]
	if !ok {
		return "", fmt.Errorf("%w: credential %s", ErrNotFound, key)
	}
	return value, nil
}

// DeleteCredential removes a credential. Deleting an absent key is not an error.
func (m *MemoryStorage) DeleteCredential(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.credentials, key)
	return nil
}

// ClearCredentials removes all stored credentials
func (m *MemoryStorage) ClearCredentials() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials = make(map[string]string)
	return nil
}

// SaveTaskSnapshot replaces the cached task list, preserving order
func (m *MemoryStorage) SaveTaskSnapshot(tasks []models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = make([]models.Task, len(tasks))
	copy(m.snapshot, tasks)
	return nil
}

// LoadTaskSnapshot returns the cached task list in stored order
func (m *MemoryStorage) LoadTaskSnapshot() ([]models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tasks := make([]models.Task, len(m.snapshot))
	copy(tasks, m.snapshot)
	return tasks, nil
}

// Close is a no-op for memory storage
func (m *MemoryStorage) Close() error {
	return nil
}
