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

import "time"

// Backoff produces the reconnect delay sequence for a channel
// connection. Delays double from Initial up to Max and the sequence is
// deterministic: the Nth delay after a reset is min(Initial*2^(N-1), Max).
// Backoff is not safe for concurrent use; each connection owns one.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration

	next time.Duration
}

// NewBackoff creates a backoff starting at initial and capped at max
func NewBackoff(initial, max time.Duration) *Backoff {
	return &Backoff{
		Initial: initial,
		Max:     max,
		next:    initial,
	}
}

// Next returns the delay to wait before the upcoming attempt and
// advances the sequence.
func (b *Backoff) Next() time.Duration {
	if b.next <= 0 {
		b.next = b.Initial
	}

	delay := b.next
	if delay > b.Max {
		delay = b.Max
	}

	b.next = delay * 2
	if b.next > b.Max {
		b.next = b.Max
	}

	return delay
}

// Reset restarts the sequence at the initial delay. Called whenever a
// connection opens successfully.
func (b *Backoff) Reset() {
	b.next = b.Initial
}
