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

package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired indicates the task service rejected the session
	// and a credential renewal was not possible or was also rejected.
	ErrSessionExpired = errors.New("session expired")

	// ErrNotFound indicates the requested resource does not exist upstream
	ErrNotFound = errors.New("not found")
)

// APIError carries a non-2xx response from the task service
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("task service returned status %d: %s", e.StatusCode, e.Body)
}

// IsSessionExpired reports whether err means the session is terminally dead
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// IsNotFound reports whether err means the resource does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// AsAPIError extracts the upstream status response from err, if any
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
