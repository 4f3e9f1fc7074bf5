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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/wso2/task-platform/sync-agent/pkg/constants"
	"github.com/wso2/task-platform/sync-agent/pkg/metrics"
	"github.com/wso2/task-platform/sync-agent/pkg/models"
	"go.uber.org/zap"
)

// Login authenticates against the task service, stores the issued
// token, and resolves the account identity behind it.
func (c *Client) Login(ctx context.Context, creds models.LoginRequest) (models.User, error) {
	if err := creds.Validate(); err != nil {
		return models.User{}, err
	}

	body, err := json.Marshal(creds)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to marshal login request: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, constants.PathLogin, body)
	if err != nil {
		return models.User{}, err
	}

	var token models.Token
	if err := decode(data, &token); err != nil {
		return models.User{}, err
	}

	c.creds.SetAccessToken(token.AccessToken)
	c.resetSessionTerminal()

	user, err := c.Identify(ctx)
	if err != nil {
		return models.User{}, err
	}

	c.log.Info("Logged in to task service",
		zap.String("username", user.Username),
		zap.Int64("user_id", user.ID))
	return user, nil
}

// Identify fetches the account behind the stored token and records it
// as the current actor.
func (c *Client) Identify(ctx context.Context) (models.User, error) {
	data, err := c.do(ctx, http.MethodGet, constants.PathIdentity, nil)
	if err != nil {
		return models.User{}, err
	}

	var user models.User
	if err := decode(data, &user); err != nil {
		return models.User{}, err
	}

	c.creds.SetIdentity(user)
	return user, nil
}

// Logout ends the session locally first and tells the service after.
// The order is load-bearing: the logout window must be open and the
// credentials gone before any network round trip can fail, so a dead
// service cannot keep a session alive on this machine.
func (c *Client) Logout(ctx context.Context) {
	token := c.creds.AccessToken()
	csrf := c.creds.CSRFToken()

	c.creds.BeginLogoutWindow()
	c.creds.Clear()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+constants.PathLogout, nil)
	if err != nil {
		return
	}
	if token != "" {
		req.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
	}
	if csrf != "" {
		req.Header.Set(constants.HeaderCSRFToken, csrf)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("Logout request to task service failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	metrics.BackendRequestsTotal.WithLabelValues(
		http.MethodPost, constants.PathLogout, strconv.Itoa(resp.StatusCode)).Inc()
	c.log.Info("Logged out of task service", zap.Int("status", resp.StatusCode))
}
