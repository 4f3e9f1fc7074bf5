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

// Package session holds the agent's view of the authenticated session.
//
// Credentials live in two copies: an in-memory copy that answers local
// API reads, and a durable copy that backs outbound requests and
// survives restarts. Writes that arrive from the task service (token
// capture, login) converge both copies; reads for outbound requests
// prefer the durable copy and fall back to memory.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wso2/task-platform/sync-agent/pkg/constants"
	"github.com/wso2/task-platform/sync-agent/pkg/models"
	"github.com/wso2/task-platform/sync-agent/pkg/storage"
)

// credentials is one copy of the session credential pair
type credentials struct {
	accessToken string
	csrfToken   string
}

// Store manages session credentials, the current actor identity, and the
// logout window
type Store struct {
	mu       sync.RWMutex
	memory   credentials
	durable  credentials
	identity *models.User

	storage      storage.Storage
	logoutWindow time.Duration
	log          *zap.Logger

	// logoutDeadline is the unix-nano end of the active logout window (atomic)
	logoutDeadline int64
}

// NewStore creates a credential store backed by the given storage.
// Previously persisted credentials are loaded into both copies.
func NewStore(st storage.Storage, logoutWindow time.Duration, log *zap.Logger) *Store {
	s := &Store{
		storage:      st,
		logoutWindow: logoutWindow,
		log:          log,
	}

	s.durable.accessToken = s.loadCredential(constants.CredentialKeyAccessToken)
	s.durable.csrfToken = s.loadCredential(constants.CredentialKeyCSRFToken)
	s.memory = s.durable

	if s.durable.accessToken != "" {
		log.Info("Restored session credentials from storage")
	}

	return s
}

// loadCredential reads one persisted value, treating absence as empty
func (s *Store) loadCredential(key string) string {
	value, err := s.storage.GetCredential(key)
	if err != nil {
		if !storage.IsNotFoundError(err) {
			s.log.Warn("Failed to load persisted credential",
				zap.String("key", key),
				zap.Error(err),
			)
		}
		return ""
	}
	return value
}

// persist writes one credential value through to storage. Persistence
// failures demote to warnings; the in-memory session continues.
func (s *Store) persist(key, value string) {
	var err error
	if value == "" {
		err = s.storage.DeleteCredential(key)
	} else {
		err = s.storage.SaveCredential(key, value)
	}
	if err != nil {
		s.log.Warn("Failed to persist credential",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// SetAccessToken stores a fresh access token in both copies
func (s *Store) SetAccessToken(token string) {
	s.mu.Lock()
	s.memory.accessToken = token
	s.durable.accessToken = token
	s.mu.Unlock()

	s.persist(constants.CredentialKeyAccessToken, token)
}

// AccessToken returns the token for outbound requests: the durable copy,
// falling back to memory when the durable copy is empty
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.durable.accessToken != "" {
		return s.durable.accessToken
	}
	return s.memory.accessToken
}

// CaptureCSRF converges both copies on a token observed in a response.
// The newest capture always wins.
func (s *Store) CaptureCSRF(token string) {
	if token == "" {
		return
	}

	s.mu.Lock()
	s.memory.csrfToken = token
	s.durable.csrfToken = token
	s.mu.Unlock()

	s.persist(constants.CredentialKeyCSRFToken, token)
}

// CSRFToken returns the token for outbound mutating requests: the durable
// copy, falling back to memory when the durable copy is empty
func (s *Store) CSRFToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.durable.csrfToken != "" {
		return s.durable.csrfToken
	}
	return s.memory.csrfToken
}

// HasSession reports whether the in-memory copy holds an access token.
// This is the session state the local API surfaces.
func (s *Store) HasSession() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.memory.accessToken != ""
}

// HasCSRFToken reports whether any copy holds a CSRF token
func (s *Store) HasCSRFToken() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.durable.csrfToken != "" || s.memory.csrfToken != ""
}

// SetIdentity records the authenticated account after login or identify
func (s *Store) SetIdentity(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = &user
}

// Identity returns a copy of the current account, if known
func (s *Store) Identity() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.identity == nil {
		return models.User{}, false
	}
	return *s.identity, true
}

// CurrentActorID returns the authenticated account ID, if known.
// The realtime dispatcher uses it to suppress self-originated events.
func (s *Store) CurrentActorID() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.identity == nil {
		return 0, false
	}
	return s.identity.ID, true
}

// Clear wipes both credential copies, the identity, and persisted state
func (s *Store) Clear() {
	s.mu.Lock()
	s.memory = credentials{}
	s.durable = credentials{}
	s.identity = nil
	s.mu.Unlock()

	if err := s.storage.ClearCredentials(); err != nil {
		s.log.Warn("Failed to clear persisted credentials", zap.Error(err))
	}
}

// BeginLogoutWindow opens the window during which credential renewal is
// suppressed. It must be set before any other logout side effect.
func (s *Store) BeginLogoutWindow() {
	deadline := time.Now().Add(s.logoutWindow).UnixNano()
	atomic.StoreInt64(&s.logoutDeadline, deadline)
}

// InLogoutWindow reports whether a logout window is currently active
func (s *Store) InLogoutWindow() bool {
	deadline := atomic.LoadInt64(&s.logoutDeadline)
	return deadline != 0 && time.Now().UnixNano() < deadline
}
