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

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wso2/task-platform/sync-agent/pkg/backend"
	"github.com/wso2/task-platform/sync-agent/pkg/config"
	"github.com/wso2/task-platform/sync-agent/pkg/metrics"
	"github.com/wso2/task-platform/sync-agent/pkg/models"
	"github.com/wso2/task-platform/sync-agent/pkg/realtime"
	"github.com/wso2/task-platform/sync-agent/pkg/session"
	"github.com/wso2/task-platform/sync-agent/pkg/storage"
	"github.com/wso2/task-platform/sync-agent/pkg/stream"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testFixture wires an APIServer against a fake task service
type testFixture struct {
	server  *APIServer
	router  *gin.Engine
	store   *storage.TaskStore
	creds   *session.Store
	hub     *stream.Hub
	backend *httptest.Server
}

func newFixture(t *testing.T, backendHandler http.Handler) *testFixture {
	t.Helper()
	metrics.SetEnabled(false)
	metrics.Init()

	if backendHandler == nil {
		backendHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unexpected backend call", http.StatusTeapot)
		})
	}
	ts := httptest.NewServer(backendHandler)
	t.Cleanup(ts.Close)

	creds := session.NewStore(storage.NewMemoryStorage(), 5*time.Second, zap.NewNop())
	client := backend.NewClient(backend.Options{
		Config: config.BackendConfig{
			BaseURL:        ts.URL,
			RequestTimeout: 5 * time.Second,
		},
		Credentials: creds,
		Logger:      zap.NewNop(),
	})

	store := storage.NewTaskStore()
	hub := stream.NewHub(zap.NewNop())
	t.Cleanup(hub.Close)

	registry := realtime.NewRegistry(realtime.RegistryOptions{
		BaseURL: "ws://127.0.0.1:1",
	}, config.RealtimeConfig{
		ReconnectInitial:  10 * time.Millisecond,
		ReconnectMax:      20 * time.Millisecond,
		HeartbeatInterval: time.Minute,
		HandshakeTimeout:  time.Second,
	}, zap.NewNop())
	t.Cleanup(registry.DisconnectAll)

	server := NewAPIServer(store, client, creds, registry, hub, zap.NewNop())
	return &testFixture{
		server:  server,
		router:  server.Router(),
		store:   store,
		creds:   creds,
		hub:     hub,
		backend: ts,
	}
}

func (f *testFixture) request(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func sampleTask(id int64, title string) models.Task {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return models.Task{
		ID:        id,
		Title:     title,
		Priority:  models.PriorityMedium,
		CreatedBy: 1,
		CreatedAt: now,
		UpdatedAt: now,
		Comments:  []models.Comment{},
	}
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t, nil)

	w := f.request(http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestListTasksServesLocalView(t *testing.T) {
	f := newFixture(t, nil)
	f.store.ReplaceAll([]models.Task{sampleTask(1, "First"), sampleTask(2, "Second")})

	w := f.request(http.MethodGet, "/api/v1/tasks", "")

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count int           `json:"count"`
		Tasks []models.Task `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "First", resp.Tasks[0].Title)
}

func TestGetTask(t *testing.T) {
	f := newFixture(t, nil)
	f.store.InsertFront(sampleTask(7, "Lookup"))

	t.Run("found", func(t *testing.T) {
		w := f.request(http.MethodGet, "/api/v1/tasks/7", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Lookup")
	})

	t.Run("not found", func(t *testing.T) {
		w := f.request(http.MethodGet, "/api/v1/tasks/99", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		w := f.request(http.MethodGet, "/api/v1/tasks/abc", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCreateTaskProxiesAndApplies(t *testing.T) {
	var backendCalls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/tasks/", r.URL.Path)
		backendCalls++
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(sampleTask(10, "Created upstream"))
	})
	f := newFixture(t, handler)

	w := f.request(http.MethodPost, "/api/v1/tasks", `{"title":"Created upstream"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, backendCalls)

	task, ok := f.store.Get(10)
	require.True(t, ok, "confirmed task must land in the local view")
	assert.Equal(t, "Created upstream", task.Title)
}

func TestCreateTaskRejectsInvalidBodyLocally(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called for an invalid body")
	}))

	w := f.request(http.MethodPost, "/api/v1/tasks", `{"title":""}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, f.store.Len())
}

func TestUpdateTaskNotFoundUpstream(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "{}", http.StatusNotFound)
	}))

	w := f.request(http.MethodPut, "/api/v1/tasks/5", `{"title":"New title"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteTaskRemovesLocally(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	f.store.InsertFront(sampleTask(3, "Doomed"))

	w := f.request(http.MethodDelete, "/api/v1/tasks/3", "")

	require.Equal(t, http.StatusOK, w.Code)
	_, ok := f.store.Get(3)
	assert.False(t, ok)
}

func TestAddCommentAppendsLocally(t *testing.T) {
	comment := models.Comment{ID: 40, TaskID: 3, AuthorID: 2, Content: "Nice"}
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tasks/3/comments", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(comment)
	}))
	f.store.InsertFront(sampleTask(3, "Commented"))

	w := f.request(http.MethodPost, "/api/v1/tasks/3/comments", `{"content":"Nice"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	task, ok := f.store.Get(3)
	require.True(t, ok)
	require.Len(t, task.Comments, 1)
	assert.Equal(t, "Nice", task.Comments[0].Content)
}

func TestSyncTasksReplacesView(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := models.TaskPage{
			Tasks: []models.Task{sampleTask(1, "Synced")},
			Total: 1, Page: 1, Size: 100, Pages: 1,
		}
		json.NewEncoder(w).Encode(page)
	}))
	f.store.InsertFront(sampleTask(50, "Stale"))

	w := f.request(http.MethodPost, "/api/v1/tasks/sync", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.store.Len())
	_, stale := f.store.Get(50)
	assert.False(t, stale)
}

func TestSessionStatusAnonymous(t *testing.T) {
	f := newFixture(t, nil)

	w := f.request(http.MethodGet, "/api/v1/session", "")

	require.Equal(t, http.StatusOK, w.Code)

	var status struct {
		Authenticated bool              `json:"authenticated"`
		Channels      map[string]string `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.False(t, status.Authenticated)
	assert.Empty(t, status.Channels)
}

func TestLoginSeedsView(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.Token{AccessToken: "tok-1", TokenType: "bearer"})
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.User{ID: 9, Username: "ana"})
	})
	mux.HandleFunc("/tasks/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.TaskPage{
			Tasks: []models.Task{sampleTask(1, "Mine")},
			Total: 1, Page: 1, Size: 100, Pages: 1,
		})
	})
	f := newFixture(t, mux)

	w := f.request(http.MethodPost, "/api/v1/session/login",
		`{"username":"ana","password":"secret"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ana")
	assert.True(t, f.creds.HasSession())
	assert.Equal(t, 1, f.store.Len())

	actor, ok := f.creds.CurrentActorID()
	require.True(t, ok)
	assert.Equal(t, int64(9), actor)
}

func TestLogoutTearsDownLocally(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	f.creds.SetAccessToken("tok-1")
	f.store.InsertFront(sampleTask(1, "Gone after logout"))

	sub := f.hub.Subscribe()
	defer sub.Close()

	w := f.request(http.MethodPost, "/api/v1/session/logout", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, f.creds.HasSession())
	assert.Equal(t, 0, f.store.Len())
	assert.True(t, f.creds.InLogoutWindow())

	select {
	case frame := <-sub.Events():
		assert.JSONEq(t, `{"type":"session","event":"ended"}`, string(frame))
	case <-time.After(time.Second):
		t.Fatal("expected a session-ended broadcast")
	}
}

func TestImportTasksDocument(t *testing.T) {
	var nextID int64
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.TaskCreate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		nextID++
		task := sampleTask(nextID, req.Title)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(task)
	}))

	doc := `version: task-platform/v1
kind: tasks/import
spec:
  tasks:
    - title: Primera tarea
      priority: alta
    - title: Segunda tarea
`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/import", strings.NewReader(doc))
	req.Header.Set("Content-Type", "application/yaml")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Created int `json:"created"`
		Failed  int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Created)
	assert.Equal(t, 0, resp.Failed)
	assert.Equal(t, 2, f.store.Len())
}

func TestImportTasksValidationFailure(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called for an invalid document")
	}))

	doc := `{"version":"task-platform/v1","kind":"tasks/import","spec":{"tasks":[{"title":"","priority":"urgent"}]}}`
	w := f.request(http.MethodPost, "/api/v1/tasks/import", doc)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation failed")
}

func TestChannelEndpoints(t *testing.T) {
	f := newFixture(t, nil)

	w := f.request(http.MethodGet, "/api/v1/channels", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Channels map[string]string `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list.Channels)

	// Disconnecting a channel that was never connected is a no-op
	w = f.request(http.MethodPost, "/api/v1/channels/tasks/disconnect", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStreamEventsRelaysBroadcasts(t *testing.T) {
	f := newFixture(t, nil)

	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Subscription registration races the dial; wait for the hub to see it
	require.Eventually(t, func() bool {
		return f.hub.Subscribers() == 1
	}, time.Second, 10*time.Millisecond)

	payload := fmt.Sprintf(`{"type":"task","event":"created","data":{"id":%d}}`, 1)
	f.hub.Broadcast([]byte(payload))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(frame))
}
