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
	"sync"

	"github.com/wso2/task-platform/sync-agent/pkg/models"
)

// ChangeOp identifies the kind of task store mutation reported to the
// change listener
type ChangeOp string

const (
	OpReplaceAll ChangeOp = "replace_all"
	OpInsert     ChangeOp = "insert"
	OpUpdate     ChangeOp = "update"
	OpDelete     ChangeOp = "delete"
	OpComment    ChangeOp = "comment"
	OpReset      ChangeOp = "reset"
)

// TaskStore holds the live task list in display order. Newly created
// tasks go to the front; updates keep their position. Reads always
// return copies so callers can never mutate shared state.
type TaskStore struct {
	mu    sync.RWMutex
	tasks []models.Task

	// onChange is set once during wiring, before concurrent use
	onChange func(op ChangeOp, taskID int64)
}

// NewTaskStore creates an empty task store
func NewTaskStore() *TaskStore {
	return &TaskStore{}
}

// SetChangeListener registers the callback invoked after every mutation.
// It must be set before the store is shared between goroutines.
func (ts *TaskStore) SetChangeListener(fn func(op ChangeOp, taskID int64)) {
	ts.onChange = fn
}

// ReplaceAll swaps in a full task list, e.g. after a refresh from the
// task service or a snapshot restore
func (ts *TaskStore) ReplaceAll(tasks []models.Task) {
	ts.mu.Lock()
	ts.tasks = cloneTasks(tasks)
	ts.mu.Unlock()

	ts.notify(OpReplaceAll, 0)
}

// InsertFront prepends a task to the list
func (ts *TaskStore) InsertFront(task models.Task) {
	ts.mu.Lock()
	ts.tasks = append([]models.Task{cloneTask(task)}, ts.tasks...)
	ts.mu.Unlock()

	ts.notify(OpInsert, task.ID)
}

// Replace swaps the task with the same ID, keeping its position.
// Returns false without mutating when no task with that ID exists.
func (ts *TaskStore) Replace(task models.Task) bool {
	ts.mu.Lock()
	idx := ts.indexOf(task.ID)
	if idx < 0 {
		ts.mu.Unlock()
		return false
	}
	ts.tasks[idx] = cloneTask(task)
	ts.mu.Unlock()

	ts.notify(OpUpdate, task.ID)
	return true
}

// Remove deletes the task with the given ID.
// Returns false when no task with that ID exists.
func (ts *TaskStore) Remove(id int64) bool {
	ts.mu.Lock()
	idx := ts.indexOf(id)
	if idx < 0 {
		ts.mu.Unlock()
		return false
	}
	ts.tasks = append(ts.tasks[:idx], ts.tasks[idx+1:]...)
	ts.mu.Unlock()

	ts.notify(OpDelete, id)
	return true
}

// AppendComment attaches a comment to its parent task.
// Returns false when the parent task is not in the store.
func (ts *TaskStore) AppendComment(taskID int64, comment models.Comment) bool {
	ts.mu.Lock()
	idx := ts.indexOf(taskID)
	if idx < 0 {
		ts.mu.Unlock()
		return false
	}
	ts.tasks[idx].Comments = append(ts.tasks[idx].Comments, comment)
	ts.mu.Unlock()

	ts.notify(OpComment, taskID)
	return true
}

// Get returns a copy of the task with the given ID
func (ts *TaskStore) Get(id int64) (models.Task, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	idx := ts.indexOf(id)
	if idx < 0 {
		return models.Task{}, false
	}
	return cloneTask(ts.tasks[idx]), true
}

// Snapshot returns a copy of the full task list in display order
func (ts *TaskStore) Snapshot() []models.Task {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	return cloneTasks(ts.tasks)
}

// Len returns the number of tasks in the store
func (ts *TaskStore) Len() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	return len(ts.tasks)
}

// Reset drops all tasks, e.g. when the session ends
func (ts *TaskStore) Reset() {
	ts.mu.Lock()
	ts.tasks = nil
	ts.mu.Unlock()

	ts.notify(OpReset, 0)
}

// indexOf returns the position of the task with the given ID, or -1.
// Callers must hold the lock.
func (ts *TaskStore) indexOf(id int64) int {
	for i := range ts.tasks {
		if ts.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// notify invokes the change listener outside the store lock so the
// listener may read the store
func (ts *TaskStore) notify(op ChangeOp, taskID int64) {
	if ts.onChange != nil {
		ts.onChange(op, taskID)
	}
}

func cloneTask(task models.Task) models.Task {
	clone := task
	if task.Comments != nil {
		clone.Comments = make([]models.Comment, len(task.Comments))
		copy(clone.Comments, task.Comments)
	}
	return clone
}

func cloneTasks(tasks []models.Task) []models.Task {
	clones := make([]models.Task, len(tasks))
	for i := range tasks {
		clones[i] = cloneTask(tasks[i])
	}
	return clones
}
