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

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wso2/task-platform/sync-agent/pkg/metrics"
	"github.com/wso2/task-platform/sync-agent/pkg/models"
	"github.com/wso2/task-platform/sync-agent/pkg/storage"
	"go.uber.org/zap"
)

func TestPersistSnapshotRoundTrip(t *testing.T) {
	metrics.SetEnabled(false)
	metrics.Init()

	db := storage.NewMemoryStorage()
	store := storage.NewTaskStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.ReplaceAll([]models.Task{
		{ID: 2, Title: "Second", Priority: models.PriorityLow, CreatedAt: now, UpdatedAt: now},
		{ID: 1, Title: "First", Priority: models.PriorityHigh, CreatedAt: now, UpdatedAt: now},
	})

	persistSnapshot(db, store, zap.NewNop())

	restored, err := db.LoadTaskSnapshot()
	require.NoError(t, err)
	require.Len(t, restored, 2)
	assert.Equal(t, int64(2), restored[0].ID, "snapshot must keep display order")
	assert.Equal(t, "First", restored[1].Title)
}

func TestPersistSnapshotEmptyView(t *testing.T) {
	metrics.SetEnabled(false)
	metrics.Init()

	db := storage.NewMemoryStorage()
	store := storage.NewTaskStore()

	persistSnapshot(db, store, zap.NewNop())

	restored, err := db.LoadTaskSnapshot()
	require.NoError(t, err)
	assert.Empty(t, restored)
}
