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
	"time"

	"github.com/wso2/task-platform/sync-agent/pkg/constants"
)

// Envelope is the frame format exchanged with the task service over a
// channel connection. Data carries an event-specific payload; Meta is
// optional provenance.
type Envelope struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Meta  *Meta           `json:"meta,omitempty"`
}

// Meta identifies the user whose action produced a frame. Frames
// echoing this client's own mutations are suppressed by comparing
// ActorID against the signed-in user.
type Meta struct {
	ActorID *int64 `json:"actor_id,omitempty"`
}

// NewEventFrame builds a serialized envelope for local fan-out. A nil
// data payload leaves the data field out entirely.
func NewEventFrame(frameType, event string, data interface{}) ([]byte, error) {
	env := Envelope{
		Type:  frameType,
		Event: event,
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

// helloData is the payload of the hello announcement
type helloData struct {
	TS int64 `json:"ts"`
}

// newHelloFrame builds the announcement sent exactly once after a
// connection opens.
func newHelloFrame(now time.Time) ([]byte, error) {
	frame := struct {
		Type  string    `json:"type"`
		Event string    `json:"event"`
		Data  helloData `json:"data"`
	}{
		Type:  constants.FrameTypeClient,
		Event: constants.EventHello,
		Data:  helloData{TS: now.UnixMilli()},
	}
	return json.Marshal(frame)
}

// newPingFrame builds a heartbeat frame carrying the send time in
// epoch milliseconds.
func newPingFrame(now time.Time) ([]byte, error) {
	frame := struct {
		Type string `json:"type"`
		Data int64  `json:"data"`
	}{
		Type: constants.FrameTypePing,
		Data: now.UnixMilli(),
	}
	return json.Marshal(frame)
}
