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

package constants

const (
	// Realtime Frame Types
	FrameTypeClient  = "client"
	FrameTypePing    = "ping"
	FrameTypeTask    = "task"
	FrameTypeComment = "comment"
	FrameTypeSession = "session"

	// Realtime Frame Events
	EventHello   = "hello"
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
	EventExpired = "expired"
	EventEnded   = "ended"

	// Channel Names
	ChannelTasks = "tasks"

	// HTTP Headers
	HeaderCSRFToken     = "X-CSRF-Token"
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"

	// Authorization Scheme
	BearerPrefix = "Bearer "

	// Content Types
	ContentTypeJSON = "application/json"
	ContentTypeYAML = "application/yaml"

	// Backend Endpoint Paths (relative to the configured base URL)
	PathLogin      = "/auth/login"
	PathLogout     = "/auth/logout"
	PathIdentity   = "/auth/me"
	PathCSRFToken  = "/csrf/token"
	PathTasks      = "/tasks/"
	PathStatistics = "/tasks/statistics"
	PathWebSocket  = "/ws/"

	// Renewal-Exempt Path Prefixes
	// Responses with 401 under these prefixes never trigger a CSRF renewal cycle.
	AuthPathPrefix = "/auth/"
	CSRFPathPrefix = "/csrf/"

	// Durable Credential Keys
	CredentialKeyAccessToken = "access_token"
	CredentialKeyCSRFToken   = "csrf_token"

	// URL Schemes
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeWS    = "ws"
	SchemeWSS   = "wss"
)
