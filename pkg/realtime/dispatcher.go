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

package realtime

import (
	"encoding/json"

	"github.com/wso2/task-platform/sync-agent/pkg/constants"
	"github.com/wso2/task-platform/sync-agent/pkg/metrics"
	"github.com/wso2/task-platform/sync-agent/pkg/models"
	"github.com/wso2/task-platform/sync-agent/pkg/storage"
	"go.uber.org/zap"
)

// ActorSource exposes the identity of the signed-in user. The
// dispatcher uses it to suppress frames that echo this client's own
// mutations back to it.
type ActorSource interface {
	CurrentActorID() (int64, bool)
}

// Broadcaster receives frames that mutated the store, for fan-out to
// local consumers.
type Broadcaster interface {
	Broadcast(frame []byte)
}

// Dispatcher interprets channel frames and applies them to the local
// task store. Every frame yields at most one store mutation; frames
// that cannot be interpreted are discarded without side effects.
type Dispatcher struct {
	store   *storage.TaskStore
	actors  ActorSource
	forward Broadcaster
	logger  *zap.Logger
}

// NewDispatcher creates a dispatcher writing to the given store.
// forward may be nil when no local fan-out is wanted.
func NewDispatcher(store *storage.TaskStore, actors ActorSource, forward Broadcaster, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:   store,
		actors:  actors,
		forward: forward,
		logger:  logger,
	}
}

// HandleFrame processes a single text frame from a channel connection
func (d *Dispatcher) HandleFrame(channel string, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		d.logger.Debug("Discarding malformed frame",
			zap.String("channel", channel),
			zap.Error(err),
		)
		metrics.FramesDiscardedTotal.WithLabelValues(channel, "malformed").Inc()
		return
	}

	metrics.FramesReceivedTotal.WithLabelValues(channel, env.Type, env.Event).Inc()

	// A frame produced by our own signed-in user has already been
	// applied locally; applying the echo would duplicate it.
	if d.isSelfOrigin(&env) {
		d.logger.Debug("Suppressing self-origin frame",
			zap.String("channel", channel),
			zap.String("type", env.Type),
			zap.String("event", env.Event),
		)
		metrics.FramesDiscardedTotal.WithLabelValues(channel, "self_origin").Inc()
		return
	}

	var applied bool
	switch {
	case env.Type == constants.FrameTypeTask && env.Event == constants.EventCreated:
		applied = d.applyTaskCreated(channel, env.Data)
	case env.Type == constants.FrameTypeTask && env.Event == constants.EventUpdated:
		applied = d.applyTaskUpdated(channel, env.Data)
	case env.Type == constants.FrameTypeTask && env.Event == constants.EventDeleted:
		applied = d.applyTaskDeleted(channel, env.Data)
	case env.Type == constants.FrameTypeComment && env.Event == constants.EventCreated:
		applied = d.applyCommentCreated(channel, env.Data)
	default:
		d.logger.Debug("Ignoring unrecognized frame",
			zap.String("channel", channel),
			zap.String("type", env.Type),
			zap.String("event", env.Event),
		)
		metrics.FramesDiscardedTotal.WithLabelValues(channel, "unrecognized").Inc()
		return
	}

	// Only frames that changed the store are fanned out; local
	// consumers mirror the store, so a no-op here is a no-op there.
	if applied && d.forward != nil {
		d.forward.Broadcast(frame)
	}
}

// applyTaskCreated inserts a new task at the front of the store
func (d *Dispatcher) applyTaskCreated(channel string, data json.RawMessage) bool {
	var task models.Task
	if err := json.Unmarshal(data, &task); err != nil || task.ID == 0 {
		d.logger.Debug("Discarding malformed task payload",
			zap.String("channel", channel),
			zap.String("event", constants.EventCreated),
		)
		metrics.FramesDiscardedTotal.WithLabelValues(channel, "malformed").Inc()
		return false
	}

	d.store.InsertFront(task)
	d.logger.Debug("Applied task created",
		zap.String("channel", channel),
		zap.Int64("task_id", task.ID),
	)
	return true
}

// applyTaskUpdated replaces the matching task in place. Updates for
// tasks the store does not hold are dropped silently.
func (d *Dispatcher) applyTaskUpdated(channel string, data json.RawMessage) bool {
	var task models.Task
	if err := json.Unmarshal(data, &task); err != nil || task.ID == 0 {
		d.logger.Debug("Discarding malformed task payload",
			zap.String("channel", channel),
			zap.String("event", constants.EventUpdated),
		)
		metrics.FramesDiscardedTotal.WithLabelValues(channel, "malformed").Inc()
		return false
	}

	if !d.store.Replace(task) {
		d.logger.Debug("Update for unknown task, ignoring",
			zap.String("channel", channel),
			zap.Int64("task_id", task.ID),
		)
		return false
	}

	d.logger.Debug("Applied task updated",
		zap.String("channel", channel),
		zap.Int64("task_id", task.ID),
	)
	return true
}

// applyTaskDeleted removes the identified task from the store
func (d *Dispatcher) applyTaskDeleted(channel string, data json.RawMessage) bool {
	id, ok := parseDeletedID(data)
	if !ok {
		d.logger.Debug("Discarding malformed delete payload",
			zap.String("channel", channel),
		)
		metrics.FramesDiscardedTotal.WithLabelValues(channel, "malformed").Inc()
		return false
	}

	if !d.store.Remove(id) {
		d.logger.Debug("Delete for unknown task, ignoring",
			zap.String("channel", channel),
			zap.Int64("task_id", id),
		)
		return false
	}

	d.logger.Debug("Applied task deleted",
		zap.String("channel", channel),
		zap.Int64("task_id", id),
	)
	return true
}

// applyCommentCreated appends a comment to its task via the embedded
// task reference.
func (d *Dispatcher) applyCommentCreated(channel string, data json.RawMessage) bool {
	var comment models.Comment
	if err := json.Unmarshal(data, &comment); err != nil || comment.TaskID == 0 {
		d.logger.Debug("Discarding malformed comment payload",
			zap.String("channel", channel),
		)
		metrics.FramesDiscardedTotal.WithLabelValues(channel, "malformed").Inc()
		return false
	}

	if !d.store.AppendComment(comment.TaskID, comment) {
		d.logger.Debug("Comment for unknown task, ignoring",
			zap.String("channel", channel),
			zap.Int64("task_id", comment.TaskID),
		)
		return false
	}

	d.logger.Debug("Applied comment created",
		zap.String("channel", channel),
		zap.Int64("task_id", comment.TaskID),
		zap.Int64("comment_id", comment.ID),
	)
	return true
}

// isSelfOrigin reports whether the frame was produced by this client's
// own signed-in user.
func (d *Dispatcher) isSelfOrigin(env *Envelope) bool {
	if env.Meta == nil || env.Meta.ActorID == nil {
		return false
	}
	if d.actors == nil {
		return false
	}
	actor, ok := d.actors.CurrentActorID()
	return ok && actor == *env.Meta.ActorID
}

// parseDeletedID extracts the task id from a delete payload. The
// service sends either a bare integer or an {"id": N} object.
func parseDeletedID(data json.RawMessage) (int64, bool) {
	var id int64
	if err := json.Unmarshal(data, &id); err == nil && id != 0 {
		return id, true
	}

	var wrapper struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.ID != 0 {
		return wrapper.ID, true
	}

	return 0, false
}
