// Package e2e provides end-to-end tests that drive the rollout engine
// through its HTTP surface: manifest in, audit trail out.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/artpar/rollout/internal/shell/api"
	"github.com/artpar/rollout/internal/shell/audit"
	"github.com/artpar/rollout/internal/shell/deploy"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// In-Memory Container Runtime
// =============================================================================

// memoryRuntime is a deploy.Client that records containers instead of
// talking to a Docker daemon, so the full HTTP-to-audit path runs in-process.
type memoryRuntime struct {
	mu      sync.Mutex
	nextID  int
	created map[string]deploy.ContainerSpec // containerID -> spec
	running map[string]bool
}

func newMemoryRuntime() *memoryRuntime {
	return &memoryRuntime{
		created: make(map[string]deploy.ContainerSpec),
		running: make(map[string]bool),
	}
}

func (m *memoryRuntime) PullImage(ctx context.Context, image string) error { return nil }

func (m *memoryRuntime) ImageExists(ctx context.Context, image string) (bool, error) {
	return true, nil
}

func (m *memoryRuntime) CreateContainer(ctx context.Context, spec deploy.ContainerSpec) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("e2e-ctr-%d", m.nextID)
	m.created[id] = spec
	return id, nil
}

func (m *memoryRuntime) StartContainer(ctx context.Context, containerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running[containerID] = true
	return nil
}

func (m *memoryRuntime) StopContainer(ctx context.Context, containerID string, timeout *time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running[containerID] = false
	return nil
}

func (m *memoryRuntime) RemoveContainer(ctx context.Context, containerID string, opts deploy.RemoveOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.created, containerID)
	delete(m.running, containerID)
	return nil
}

func (m *memoryRuntime) InspectContainer(ctx context.Context, containerID string) (*deploy.ContainerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, ok := m.created[containerID]
	if !ok {
		return nil, deploy.ErrContainerNotFound
	}
	now := time.Now()
	return &deploy.ContainerInfo{
		ID:        containerID,
		Name:      spec.Name,
		Image:     spec.Image,
		Status:    deploy.ContainerStatusRunning,
		StartedAt: &now,
		Labels:    spec.Labels,
	}, nil
}

func (m *memoryRuntime) Ping(ctx context.Context) error { return nil }
func (m *memoryRuntime) Close() error                   { return nil }

// RunningContainers returns how many containers are currently started.
func (m *memoryRuntime) RunningContainers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, up := range m.running {
		if up {
			n++
		}
	}
	return n
}

// =============================================================================
// Probes
// =============================================================================

// okProber answers every health and endpoint probe with 200.
type okProber struct{}

func (okProber) Probe(ctx context.Context, method, url string) (int, error) {
	return http.StatusOK, nil
}

// =============================================================================
// Test Server
// =============================================================================

// testServer is one running engine instance with its collaborators exposed.
type testServer struct {
	URL     string
	Runtime *memoryRuntime
	Store   *audit.SQLiteAuditor
}

// startServer boots the API over a file-backed audit store and an in-memory
// runtime, the same wiring the binary does minus the Docker daemon.
func startServer(t *testing.T) *testServer {
	t.Helper()

	store, err := audit.NewSQLiteAuditor(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	runtime := newMemoryRuntime()
	handler := api.NewHandler(api.Config{
		Store:  store,
		Docker: runtime,
		Prober: okProber{},
	})

	srv := httptest.NewServer(handler.Routes())
	t.Cleanup(srv.Close)

	return &testServer{
		URL:     srv.URL,
		Runtime: runtime,
		Store:   store,
	}
}

// =============================================================================
// HTTP Helpers
// =============================================================================

// HTTPGet performs a GET and fails the test on transport errors.
func HTTPGet(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err, "GET %s", url)
	return resp
}

// PostJSON performs a POST with a JSON body.
func PostJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err, "POST %s", url)
	return resp
}

// DecodeBody decodes a JSON response body into v and closes it.
func DecodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}
