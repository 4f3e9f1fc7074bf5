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

package integration

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wso2/task-platform/sync-agent/pkg/models"
	"github.com/wso2/task-platform/sync-agent/pkg/session"
	"github.com/wso2/task-platform/sync-agent/pkg/storage"
	"go.uber.org/zap"
)

func testTask(id int64, title string) models.Task {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return models.Task{
		ID:        id,
		Title:     title,
		Priority:  models.PriorityMedium,
		CreatedBy: 1,
		CreatedAt: now,
		UpdatedAt: now,
		Comments:  []models.Comment{},
	}
}

// TestSessionSurvivesRestart verifies that credentials written through
// the session store are restored by a fresh store over a reopened
// database, the way an agent restart replays them.
func TestSessionSurvivesRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "agent.db")
	logger := zap.NewNop()

	// Phase 1: log in, capture a CSRF token, shut down
	{
		db, err := storage.NewSQLiteStorage(dbPath, logger)
		require.NoError(t, err)

		creds := session.NewStore(db, 5*time.Second, logger)
		creds.SetAccessToken("access-abc")
		creds.CaptureCSRF("csrf-xyz")

		require.NoError(t, db.Close())
	}

	// Phase 2: restart restores both credential copies
	{
		db, err := storage.NewSQLiteStorage(dbPath, logger)
		require.NoError(t, err)
		defer db.Close()

		creds := session.NewStore(db, 5*time.Second, logger)
		assert.True(t, creds.HasSession())
		assert.Equal(t, "access-abc", creds.AccessToken())
		assert.Equal(t, "csrf-xyz", creds.CSRFToken())
	}
}

// TestLogoutDoesNotSurviveRestart verifies that a cleared session stays
// cleared after reopen.
func TestLogoutDoesNotSurviveRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "agent.db")
	logger := zap.NewNop()

	{
		db, err := storage.NewSQLiteStorage(dbPath, logger)
		require.NoError(t, err)

		creds := session.NewStore(db, 5*time.Second, logger)
		creds.SetAccessToken("access-abc")
		creds.Clear()

		require.NoError(t, db.Close())
	}

	{
		db, err := storage.NewSQLiteStorage(dbPath, logger)
		require.NoError(t, err)
		defer db.Close()

		creds := session.NewStore(db, 5*time.Second, logger)
		assert.False(t, creds.HasSession())
		assert.Empty(t, creds.AccessToken())
	}
}

// TestTaskSnapshotRestoresView verifies the persist-on-shutdown /
// restore-on-start cycle keeps the task view in display order.
func TestTaskSnapshotRestoresView(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "agent.db")
	logger := zap.NewNop()

	{
		db, err := storage.NewSQLiteStorage(dbPath, logger)
		require.NoError(t, err)

		view := storage.NewTaskStore()
		view.ReplaceAll([]models.Task{testTask(3, "Newest"), testTask(1, "Oldest")})
		view.InsertFront(testTask(5, "Even newer"))

		require.NoError(t, db.SaveTaskSnapshot(view.Snapshot()))
		require.NoError(t, db.Close())
	}

	{
		db, err := storage.NewSQLiteStorage(dbPath, logger)
		require.NoError(t, err)
		defer db.Close()

		tasks, err := db.LoadTaskSnapshot()
		require.NoError(t, err)
		require.Len(t, tasks, 3)
		assert.Equal(t, "Even newer", tasks[0].Title)
		assert.Equal(t, "Newest", tasks[1].Title)
		assert.Equal(t, "Oldest", tasks[2].Title)

		view := storage.NewTaskStore()
		view.ReplaceAll(tasks)
		assert.Equal(t, 3, view.Len())
	}
}

// TestSnapshotReplacedOnEverySave verifies repeated persists never
// accumulate stale rows.
func TestSnapshotReplacedOnEverySave(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "agent.db")
	db, err := storage.NewSQLiteStorage(dbPath, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.SaveTaskSnapshot([]models.Task{
		testTask(1, "A"), testTask(2, "B"), testTask(3, "C"),
	}))
	require.NoError(t, db.SaveTaskSnapshot([]models.Task{testTask(9, "Only")}))

	tasks, err := db.LoadTaskSnapshot()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, int64(9), tasks[0].ID)
}
