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
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wso2/task-platform/sync-agent/pkg/storage"
	"go.uber.org/zap"
)

// TestDatabaseFileCreation verifies the database file and its parent
// directory are created on first open.
func TestDatabaseFileCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "agent.db")

	db, err := storage.NewSQLiteStorage(dbPath, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	info, err := os.Stat(dbPath)
	require.NoError(t, err, "database file should exist")
	assert.False(t, info.IsDir())
}

// TestSchemaInitialization verifies the expected tables exist and the
// schema version is stamped.
func TestSchemaInitialization(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "agent.db")

	db, err := storage.NewSQLiteStorage(dbPath, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	raw, err := sqlx.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer raw.Close()

	var tables []string
	require.NoError(t, raw.Select(&tables,
		"SELECT name FROM sqlite_master WHERE type='table' ORDER BY name"))
	assert.Contains(t, tables, "session_credentials")
	assert.Contains(t, tables, "task_cache")

	var version int
	require.NoError(t, raw.Get(&version, "PRAGMA user_version"))
	assert.Equal(t, 1, version)
}

// TestSchemaInitializationIdempotent verifies reopening an initialized
// database neither fails nor loses data.
func TestSchemaInitializationIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "agent.db")
	logger := zap.NewNop()

	db, err := storage.NewSQLiteStorage(dbPath, logger)
	require.NoError(t, err)
	require.NoError(t, db.SaveCredential("access_token", "keep-me"))
	require.NoError(t, db.Close())

	for i := 0; i < 3; i++ {
		db, err := storage.NewSQLiteStorage(dbPath, logger)
		require.NoError(t, err, "reopen %d should succeed", i)

		value, err := db.GetCredential("access_token")
		require.NoError(t, err)
		assert.Equal(t, "keep-me", value)

		require.NoError(t, db.Close())
	}
}

// TestDatabaseIntegrityCheck runs SQLite's own integrity check on a
// database the agent has written to.
func TestDatabaseIntegrityCheck(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "agent.db")

	db, err := storage.NewSQLiteStorage(dbPath, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.SaveCredential("csrf_token", "token-value"))
	require.NoError(t, db.SaveTaskSnapshot(nil))
	require.NoError(t, db.Close())

	raw, err := sqlx.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer raw.Close()

	var result string
	require.NoError(t, raw.Get(&result, "PRAGMA integrity_check"))
	assert.Equal(t, "ok", result)
}
