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
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/wso2/task-platform/sync-agent/pkg/models"
)

//go:embed agent-db.sql
var schemaSQL string

// schemaVersion is stamped into PRAGMA user_version after migration
const schemaVersion = 1

// SQLiteStorage is the Storage implementation backed by a local SQLite file
type SQLiteStorage struct {
	db  *sqlx.DB
	log *zap.Logger
}

// NewSQLiteStorage opens (and if necessary creates) the agent database
func NewSQLiteStorage(path string, log *zap.Logger) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_cache_size=2000&_foreign_keys=ON", path)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// CRITICAL: SQLite supports a single writer. More than one pooled
	// connection turns writer contention into "database is locked" errors.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}

	s := &SQLiteStorage{db: db, log: log}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// initSchema creates or migrates the schema, tracked via PRAGMA user_version
func (s *SQLiteStorage) initSchema() error {
	var version int
	if err := s.db.Get(&version, "PRAGMA user_version"); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if version >= schemaVersion {
		return nil
	}

	if version == 0 {
		if _, err := s.db.Exec(schemaSQL); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", wrapSQLiteError(err))
		}
	}

	// Future migrations run here, keyed off the stored version.

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	s.log.Info("Database schema ready",
		zap.Int("from_version", version),
		zap.Int("to_version", schemaVersion),
	)

	return nil
}

// SaveCredential stores or replaces a credential value by key
func (s *SQLiteStorage) SaveCredential(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO session_credentials (key, value, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	return wrapSQLiteError(err)
}

// GetCredential returns the stored value for key, or ErrNotFound
func (s *SQLiteStorage) GetCredential(key string) (string, error) {
	var value string
	err := s.db.Get(&value, "SELECT value FROM session_credentials WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: credential %s", ErrNotFound, key)
	}
	if err != nil {
		return "", wrapSQLiteError(err)
	}
	return value, nil
}

// DeleteCredential removes a credential. Deleting an absent key is not an error.
func (s *SQLiteStorage) DeleteCredential(key string) error {
	_, err := s.db.Exec("DELETE FROM session_credentials WHERE key = ?", key)
	return wrapSQLiteError(err)
}

// ClearCredentials removes all stored credentials
func (s *SQLiteStorage) ClearCredentials() error {
	_, err := s.db.Exec("DELETE FROM session_credentials")
	return wrapSQLiteError(err)
}

// taskRow is the task_cache table shape
type taskRow struct {
	ID       int64  `db:"id"`
	Position int    `db:"position"`
	Doc      string `db:"doc"`
}

// SaveTaskSnapshot replaces the cached task list, preserving order
func (s *SQLiteStorage) SaveTaskSnapshot(tasks []models.Task) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return wrapSQLiteError(err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM task_cache"); err != nil {
		return wrapSQLiteError(err)
	}

	stmt, err := tx.Preparex("INSERT INTO task_cache (id, position, doc) VALUES (?, ?, ?)")
	if err != nil {
		return wrapSQLiteError(err)
	}
	defer stmt.Close()

	for i, task := range tasks {
		doc, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("failed to marshal task %d: %w", task.ID, err)
		}
		if _, err := stmt.Exec(task.ID, i, string(doc)); err != nil {
			return wrapSQLiteError(err)
		}
	}

	return wrapSQLiteError(tx.Commit())
}

// LoadTaskSnapshot returns the cached task list in stored order
func (s *SQLiteStorage) LoadTaskSnapshot() ([]models.Task, error) {
	var rows []taskRow
	if err := s.db.Select(&rows, "SELECT id, position, doc FROM task_cache ORDER BY position ASC"); err != nil {
		return nil, wrapSQLiteError(err)
	}

	tasks := make([]models.Task, 0, len(rows))
	for _, row := range rows {
		var task models.Task
		if err := json.Unmarshal([]byte(row.Doc), &task); err != nil {
			s.log.Warn("Skipping corrupt cached task",
				zap.Int64("task_id", row.ID),
				zap.Error(err),
			)
			continue
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// wrapSQLiteError maps driver errors onto the package sentinels so callers
// can use errors.Is without importing the driver
func wrapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "database is locked") {
		return fmt.Errorf("%w: %v", ErrDatabaseLocked, err)
	}
	return err
}
