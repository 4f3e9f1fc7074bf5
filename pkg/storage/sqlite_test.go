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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wso2/task-platform/sync-agent/pkg/models"
)

func newTestSQLite(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "agent.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// storageImplementations returns each Storage backend under test
func storageImplementations(t *testing.T) map[string]Storage {
	t.Helper()
	return map[string]Storage{
		"sqlite": newTestSQLite(t),
		"memory": NewMemoryStorage(),
	}
}

func TestStorage_CredentialRoundTrip(t *testing.T) {
	for name, s := range storageImplementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveCredential("access_token", "tok-1"))
			require.NoError(t, s.SaveCredential("csrf_token", "csrf-1"))

			value, err := s.GetCredential("access_token")
			require.NoError(t, err)
			assert.Equal(t, "tok-1", value)

			// Save overwrites
			require.NoError(t, s.SaveCredential("access_token", "tok-2"))
			value, err = s.GetCredential("access_token")
			require.NoError(t, err)
			assert.Equal(t, "tok-2", value)
		})
	}
}

func TestStorage_GetMissingCredential(t *testing.T) {
	for name, s := range storageImplementations(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetCredential("nope")
			assert.True(t, IsNotFoundError(err), "expected not-found, got: %v", err)
		})
	}
}

func TestStorage_DeleteCredential(t *testing.T) {
	for name, s := range storageImplementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveCredential("csrf_token", "csrf-1"))
			require.NoError(t, s.DeleteCredential("csrf_token"))

			_, err := s.GetCredential("csrf_token")
			assert.True(t, IsNotFoundError(err))

			// Deleting an absent key is not an error
			assert.NoError(t, s.DeleteCredential("csrf_token"))
		})
	}
}

func TestStorage_ClearCredentials(t *testing.T) {
	for name, s := range storageImplementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveCredential("access_token", "a"))
			require.NoError(t, s.SaveCredential("csrf_token", "b"))
			require.NoError(t, s.ClearCredentials())

			_, err := s.GetCredential("access_token")
			assert.True(t, IsNotFoundError(err))
			_, err = s.GetCredential("csrf_token")
			assert.True(t, IsNotFoundError(err))
		})
	}
}

func TestStorage_TaskSnapshotRoundTrip(t *testing.T) {
	for name, s := range storageImplementations(t) {
		t.Run(name, func(t *testing.T) {
			tasks := []models.Task{makeTask(3, "newest"), makeTask(1, "older"), makeTask(2, "oldest")}
			require.NoError(t, s.SaveTaskSnapshot(tasks))

			loaded, err := s.LoadTaskSnapshot()
			require.NoError(t, err)
			require.Len(t, loaded, 3)

			// Order survives the round trip even though IDs are not sorted
			assert.Equal(t, int64(3), loaded[0].ID)
			assert.Equal(t, int64(1), loaded[1].ID)
			assert.Equal(t, int64(2), loaded[2].ID)
			assert.Equal(t, "newest", loaded[0].Title)
		})
	}
}

func TestStorage_SaveSnapshotReplacesPrevious(t *testing.T) {
	for name, s := range storageImplementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveTaskSnapshot([]models.Task{makeTask(1, "a"), makeTask(2, "b")}))
			require.NoError(t, s.SaveTaskSnapshot([]models.Task{makeTask(9, "only")}))

			loaded, err := s.LoadTaskSnapshot()
			require.NoError(t, err)
			require.Len(t, loaded, 1)
			assert.Equal(t, int64(9), loaded[0].ID)
		})
	}
}

func TestSQLiteStorage_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.db")

	s, err := NewSQLiteStorage(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.SaveCredential("access_token", "tok-1"))
	require.NoError(t, s.SaveTaskSnapshot([]models.Task{makeTask(7, "persisted")}))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStorage(path, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	value, err := reopened.GetCredential("access_token")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", value)

	loaded, err := reopened.LoadTaskSnapshot()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "persisted", loaded[0].Title)
}

func TestSQLiteStorage_SchemaVersionStamped(t *testing.T) {
	s := newTestSQLite(t)

	var version int
	require.NoError(t, s.db.Get(&version, "PRAGMA user_version"))
	assert.Equal(t, schemaVersion, version)
}

func TestSQLiteStorage_SkipsCorruptCachedTask(t *testing.T) {
	s := newTestSQLite(t)

	require.NoError(t, s.SaveTaskSnapshot([]models.Task{makeTask(1, "good")}))
	_, err := s.db.Exec("INSERT INTO task_cache (id, position, doc) VALUES (2, 1, 'not json')")
	require.NoError(t, err)

	loaded, err := s.LoadTaskSnapshot()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, int64(1), loaded[0].ID)
}

func TestSQLiteStorage_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "agent.db")

	s, err := NewSQLiteStorage(path, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveCredential("access_token", "tok"))
}
