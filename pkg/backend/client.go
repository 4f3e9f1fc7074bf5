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

// Package backend is the HTTP client for the upstream task service.
// Every request passes through one coordinator that injects the stored
// credentials, captures CSRF tokens from responses, and answers a 401
// with a single token renewal followed by a single retry.
package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wso2/task-platform/sync-agent/pkg/config"
	"github.com/wso2/task-platform/sync-agent/pkg/constants"
	"github.com/wso2/task-platform/sync-agent/pkg/metrics"
	"github.com/wso2/task-platform/sync-agent/pkg/session"
	"go.uber.org/zap"
)

// Options configures a task service client
type Options struct {
	Config      config.BackendConfig
	Credentials *session.Store
	Logger      *zap.Logger

	// Jar is shared with the websocket dialer so both transports ride
	// the same session cookies. A nil jar gets a fresh one.
	Jar http.CookieJar

	// OnSessionTerminal runs at most once per session when the service
	// rejects the session beyond repair.
	OnSessionTerminal func(reason string)
}

// Client talks to the task service on behalf of the local UI
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      *session.Store
	log        *zap.Logger

	onSessionTerminal func(reason string)
	terminalMu        sync.Mutex
	terminalFired     bool

	// renew is the in-flight renewal, nil when none is running
	renewMu sync.Mutex
	renew   *renewal
}

// renewal carries one in-flight token renewal and its outcome. err is
// written before done closes, so waiters read it safely after <-done.
type renewal struct {
	done chan struct{}
	err  error
}

// NewClient creates a task service client
func NewClient(opts Options) *Client {
	jar := opts.Jar
	if jar == nil {
		jar, _ = cookiejar.New(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: strings.TrimSuffix(opts.Config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: opts.Config.RequestTimeout,
			Jar:     jar,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: opts.Config.InsecureSkipVerify,
				},
			},
		},
		creds:             opts.Credentials,
		log:               logger,
		onSessionTerminal: opts.OnSessionTerminal,
	}
}

// do performs one logical request against the task service. A 401 on a
// renewable path triggers one CSRF renewal and a single retry; a second
// 401 or a failed renewal marks the session terminal.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	data, status, err := c.doOnce(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized && c.renewable(path) {
		if c.creds.InLogoutWindow() {
			c.log.Debug("Skipping credential renewal during logout",
				zap.String("path", path))
			return nil, checkStatus(method, path, status, data)
		}

		if err := c.renewCSRF(ctx); err != nil {
			c.fireSessionTerminal("csrf_renewal_failed")
			return nil, fmt.Errorf("%w: csrf renewal failed: %v", ErrSessionExpired, err)
		}

		data, status, err = c.doOnce(ctx, method, path, body)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			c.fireSessionTerminal("unauthorized_after_renewal")
			return nil, fmt.Errorf("%s %s: %w", method, path, ErrSessionExpired)
		}
	}

	if err := checkStatus(method, path, status, data); err != nil {
		return nil, err
	}
	return data, nil
}

// doOnce sends a single request with the current credentials attached
// and captures any CSRF token the response carries.
func (c *Client) doOnce(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	}
	if token := c.creds.AccessToken(); token != "" {
		req.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
	}
	if isMutating(method) {
		if csrf := c.creds.CSRFToken(); csrf != "" {
			req.Header.Set(constants.HeaderCSRFToken, csrf)
		}
	}

	endpoint := metricPath(path)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(method, endpoint, "error").Inc()
		return nil, 0, fmt.Errorf("request to task service failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.BackendRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	metrics.BackendRequestDurationSeconds.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())

	// Every response is a capture opportunity, success or not
	if token := resp.Header.Get(constants.HeaderCSRFToken); token != "" {
		c.creds.CaptureCSRF(token)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, resp.StatusCode, nil
}

// renewCSRF obtains a fresh token, single-flighted across requests:
// concurrent unauthorized responses share one renewal, with the first
// caller fetching and every waiter receiving the same outcome.
func (c *Client) renewCSRF(ctx context.Context) error {
	c.renewMu.Lock()
	if r := c.renew; r != nil {
		c.renewMu.Unlock()
		select {
		case <-r.done:
			return r.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r := &renewal{done: make(chan struct{})}
	c.renew = r
	c.renewMu.Unlock()

	r.err = c.fetchCSRF(ctx)
	close(r.done)

	c.renewMu.Lock()
	c.renew = nil
	c.renewMu.Unlock()

	return r.err
}

// fetchCSRF performs the actual token request. The token usually
// arrives as a response header; the body carries a copy too.
func (c *Client) fetchCSRF(ctx context.Context) error {
	c.log.Info("Renewing CSRF token")

	data, status, err := c.doOnce(ctx, http.MethodGet, constants.PathCSRFToken, nil)
	if err != nil {
		metrics.CSRFRenewalsTotal.WithLabelValues("failure").Inc()
		return err
	}
	if status != http.StatusOK {
		metrics.CSRFRenewalsTotal.WithLabelValues("failure").Inc()
		return &APIError{StatusCode: status, Body: string(data)}
	}

	var payload struct {
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.CSRFToken != "" {
		c.creds.CaptureCSRF(payload.CSRFToken)
	}

	metrics.CSRFRenewalsTotal.WithLabelValues("success").Inc()
	return nil
}

// renewable reports whether a 401 for this path may start a renewal
// cycle. Auth and token endpoints answer 401 as a normal outcome.
func (c *Client) renewable(path string) bool {
	return !strings.HasPrefix(path, constants.AuthPathPrefix) &&
		!strings.HasPrefix(path, constants.CSRFPathPrefix)
}

// fireSessionTerminal runs the terminal callback at most once per
// session. A successful login arms it again.
func (c *Client) fireSessionTerminal(reason string) {
	c.terminalMu.Lock()
	fired := c.terminalFired
	c.terminalFired = true
	c.terminalMu.Unlock()
	if fired {
		return
	}

	metrics.SessionTerminationsTotal.WithLabelValues(reason).Inc()
	c.log.Warn("Session terminally rejected by task service",
		zap.String("reason", reason))

	if c.onSessionTerminal != nil {
		c.onSessionTerminal(reason)
	}
}

func (c *Client) resetSessionTerminal() {
	c.terminalMu.Lock()
	c.terminalFired = false
	c.terminalMu.Unlock()
}

// checkStatus maps a response status onto the package's error space
func checkStatus(method, path string, status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	default:
		return &APIError{StatusCode: status, Body: string(body)}
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// metricPath collapses resource IDs and strips queries so the endpoint
// label stays low-cardinality.
func metricPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part != "" && isDigits(part) {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func decode(data []byte, out interface{}) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode task service response: %w", err)
	}
	return nil
}
