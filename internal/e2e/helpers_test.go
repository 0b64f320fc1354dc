package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"pipeld/internal/config"
	"pipeld/internal/container"
	"pipeld/internal/httpapi"
	"pipeld/internal/preset"
	"pipeld/internal/service"
	"pipeld/internal/session"
)

type recordingOrch struct {
	started []container.RunParams
	stopped []string
}

func (o *recordingOrch) StartRunner(_ context.Context, p container.RunParams) (string, error) {
	o.started = append(o.started, p)
	return "ctr-e2e", nil
}

func (o *recordingOrch) StopRunner(_ context.Context, id string) error {
	o.stopped = append(o.stopped, id)
	return nil
}

func (o *recordingOrch) DaemonUp(context.Context) bool { return true }

// sidecarStub writes a fake compositor/endpoint binary that touches its
// socket (when given) and then idles until the supervisor stops it.
func sidecarStub(t *testing.T, dir, name, touchPath string) string {
	t.Helper()
	script := "#!/bin/sh\n"
	if touchPath != "" {
		script += "touch " + touchPath + "\n"
	}
	script += "sleep 60\n"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return path
}

// newServer assembles the full daemon in-process: real preset and settings
// stores on disk, a real supervisor over stub sidecars, and the HTTP mux.
func newServer(t *testing.T) (*httptest.Server, *recordingOrch) {
	t.Helper()
	dir := t.TempDir()
	sock := filepath.Join(dir, "wayland-pipeld-0")

	presets, err := preset.Open(filepath.Join(dir, "presets.json"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open preset store: %v", err)
	}
	t.Cleanup(func() { _ = presets.Close() })
	settings, err := preset.OpenSettings(filepath.Join(dir, "settings.json"))
	if err != nil {
		t.Fatalf("open settings store: %v", err)
	}

	orch := &recordingOrch{}
	sup := session.New(session.Config{
		CompositorBin:     sidecarStub(t, dir, "compositor", sock),
		CompositorSocket:  sock,
		EndpointBin:       sidecarStub(t, dir, "endpoint", ""),
		RuntimeDir:        filepath.Join(dir, "run"),
		SocketWaitTimeout: 5 * time.Second,
		StopGrace:         2 * time.Second,
	}, orch, zerolog.Nop())
	t.Cleanup(func() { _ = sup.Stop() })

	cfg := config.Default()
	cfg.RuntimeDir = filepath.Join(dir, "run")
	cfg.Sidecar.CompositorSocket = sock

	svc := service.New(cfg, presets, settings, sup, zerolog.Nop())
	srv := httptest.NewServer(httpapi.NewMux(svc, svc))
	t.Cleanup(srv.Close)
	return srv, orch
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPutJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpDelete(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodDelete, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
