package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/PortableShelf/internal/api/ws"
	"github.com/GriffinCanCode/PortableShelf/internal/domain/launcher"
	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/config"
	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PortableShelf/internal/shared/types"
)

type stubSpawner struct{}

func (stubSpawner) Spawn(context.Context, launcher.SpawnRequest) (int, error) {
	return 4242, nil
}

func newTestServer(t *testing.T, extra ...string) (*Server, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Library.AppsDir = filepath.Join(dir, "Portable apps")
	cfg.Library.IconsDir = filepath.Join(dir, "Icons")
	cfg.Library.StorePath = filepath.Join(dir, "portable_apps.json")

	require.NoError(t, os.MkdirAll(cfg.Library.AppsDir, 0o755))
	for _, name := range append([]string{"Notepad.exe"}, extra...) {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.Library.AppsDir, name), []byte("MZ"), 0o755))
	}

	s, err := NewServer(context.Background(), cfg, logging.NewNop(), WithSpawner(stubSpawner{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func getJSON(t *testing.T, url string) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestServerStartupScan(t *testing.T) {
	s, ts := newTestServer(t)

	assert.Equal(t, 1, s.Service().Registry().Len())

	health := getJSON(t, ts.URL+"/health")
	assert.Equal(t, "healthy", health["status"])

	apps := getJSON(t, ts.URL+"/apps")
	assert.Equal(t, float64(1), apps["count"])
}

func TestServerStreamsLaunchEvents(t *testing.T) {
	_, ts := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/stream", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "system", msg.Type)

	resp, err := http.Post(ts.URL+"/apps/Notepad/launch", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "event", msg.Type)
	require.NotNil(t, msg.Event)
	assert.Equal(t, types.EventLaunched, msg.Event.Kind)
	assert.Equal(t, "Notepad", msg.Event.Name)
}

func TestServerMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	getJSON(t, ts.URL+"/apps")

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "shelf_registry_apps 1")
	assert.Contains(t, buf.String(), `shelf_http_requests_total{method="GET",path="/apps",status="200"} 1`)
}

func TestServerRunStopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	s.config.Server.Port = "0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestServerCompressesLargeResponses(t *testing.T) {
	var extra []string
	for i := 0; i < 40; i++ {
		extra = append(extra, fmt.Sprintf("Tool%02d.exe", i))
	}
	_, ts := newTestServer(t, extra...)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/apps", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

	zr, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, sonic.ConfigDefault.NewDecoder(zr).Decode(&out))
	assert.Equal(t, float64(41), out["count"])
}
