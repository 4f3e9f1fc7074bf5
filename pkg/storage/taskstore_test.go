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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wso2/task-platform/sync-agent/pkg/models"
)

func makeTask(id int64, title string) models.Task {
	now := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)
	return models.Task{
		ID:        id,
		Title:     title,
		Priority:  models.PriorityMedium,
		CreatedBy: 1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestTaskStore_InsertFrontKeepsNewestFirst(t *testing.T) {
	ts := NewTaskStore()
	ts.ReplaceAll([]models.Task{makeTask(1, "first"), makeTask(2, "second")})

	ts.InsertFront(makeTask(3, "third"))

	snapshot := ts.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, int64(3), snapshot[0].ID)
	assert.Equal(t, int64(1), snapshot[1].ID)
	assert.Equal(t, int64(2), snapshot[2].ID)
}

func TestTaskStore_ReplaceKeepsPosition(t *testing.T) {
	ts := NewTaskStore()
	ts.ReplaceAll([]models.Task{makeTask(1, "a"), makeTask(2, "b"), makeTask(3, "c")})

	updated := makeTask(2, "b renamed")
	require.True(t, ts.Replace(updated))

	snapshot := ts.Snapshot()
	assert.Equal(t, int64(2), snapshot[1].ID)
	assert.Equal(t, "b renamed", snapshot[1].Title)
}

func TestTaskStore_ReplaceUnknownIsNoop(t *testing.T) {
	ts := NewTaskStore()
	ts.ReplaceAll([]models.Task{makeTask(1, "a")})

	assert.False(t, ts.Replace(makeTask(99, "ghost")))
	assert.Equal(t, 1, ts.Len())
}

func TestTaskStore_Remove(t *testing.T) {
	ts := NewTaskStore()
	ts.ReplaceAll([]models.Task{makeTask(1, "a"), makeTask(2, "b")})

	assert.True(t, ts.Remove(1))
	assert.False(t, ts.Remove(1))

	snapshot := ts.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, int64(2), snapshot[0].ID)
}

func TestTaskStore_AppendComment(t *testing.T) {
	ts := NewTaskStore()
	ts.ReplaceAll([]models.Task{makeTask(1, "a")})

	comment := models.Comment{ID: 10, TaskID: 1, AuthorID: 5, Content: "hello"}
	require.True(t, ts.AppendComment(1, comment))
	assert.False(t, ts.AppendComment(42, comment))

	task, ok := ts.Get(1)
	require.True(t, ok)
	require.Len(t, task.Comments, 1)
	assert.Equal(t, "hello", task.Comments[0].Content)
}

func TestTaskStore_SnapshotIsIsolated(t *testing.T) {
	ts := NewTaskStore()
	task := makeTask(1, "a")
	task.Comments = []models.Comment{{ID: 1, TaskID: 1, Content: "c"}}
	ts.ReplaceAll([]models.Task{task})

	snapshot := ts.Snapshot()
	snapshot[0].Title = "mutated"
	snapshot[0].Comments[0].Content = "mutated"

	fresh, ok := ts.Get(1)
	require.True(t, ok)
	assert.Equal(t, "a", fresh.Title)
	assert.Equal(t, "c", fresh.Comments[0].Content)
}

func TestTaskStore_Reset(t *testing.T) {
	ts := NewTaskStore()
	ts.ReplaceAll([]models.Task{makeTask(1, "a"), makeTask(2, "b")})

	ts.Reset()

	assert.Equal(t, 0, ts.Len())
	assert.Empty(t, ts.Snapshot())
}

func TestTaskStore_ChangeListener(t *testing.T) {
	ts := NewTaskStore()

	type change struct {
		op ChangeOp
		id int64
	}
	var changes []change
	ts.SetChangeListener(func(op ChangeOp, taskID int64) {
		changes = append(changes, change{op, taskID})
		// Listener reads must not deadlock
		_ = ts.Len()
	})

	ts.ReplaceAll([]models.Task{makeTask(1, "a")})
	ts.InsertFront(makeTask(2, "b"))
	ts.Replace(makeTask(2, "b2"))
	ts.AppendComment(1, models.Comment{ID: 3, TaskID: 1})
	ts.Remove(1)
	ts.Reset()

	// Noop mutations do not notify
	ts.Replace(makeTask(99, "ghost"))
	ts.Remove(99)

	expected := []change{
		{OpReplaceAll, 0},
		{OpInsert, 2},
		{OpUpdate, 2},
		{OpComment, 1},
		{OpDelete, 1},
		{OpReset, 0},
	}
	assert.Equal(t, expected, changes)
}
