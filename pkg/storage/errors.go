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

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDatabaseLocked indicates the SQLite database is locked by another writer
	ErrDatabaseLocked = errors.New("database is locked")

	// ErrDatabaseUnavailable indicates the database could not be reached
	ErrDatabaseUnavailable = errors.New("database unavailable")
)

// IsNotFoundError checks if an error is a not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDatabaseLockedError checks if an error is a database-locked error
func IsDatabaseLockedError(err error) bool {
	return errors.Is(err, ErrDatabaseLocked)
}

// IsDatabaseUnavailableError checks if an error is a database-unavailable error
func IsDatabaseUnavailableError(err error) bool {
	return errors.Is(err, ErrDatabaseUnavailable)
}
