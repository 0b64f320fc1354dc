package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// healthClient polls the sidecar's health endpoints. Candidate base URLs are
// tried in order and the first success short-circuits.
type healthClient struct {
	bases  []string
	client *http.Client
}

func newHealthClient(bases []string) *healthClient {
	// Timeout stays zero; every call carries its own context deadline.
	return &healthClient{bases: bases, client: &http.Client{Timeout: 0}}
}

// firstLive returns the first base URL whose liveness endpoint answers 2xx.
func (h *healthClient) firstLive(ctx context.Context) (string, bool) {
	for _, base := range h.bases {
		if h.probe(ctx, base+"/healthz") {
			return base, true
		}
	}
	return "", false
}

// ready reports whether any candidate's readiness endpoint answers 2xx.
func (h *healthClient) ready(ctx context.Context) bool {
	for _, base := range h.bases {
		if h.probe(ctx, base+"/readyz") {
			return true
		}
	}
	return false
}

// connectedClients reports how many clients the endpoint currently serves.
// /status is consulted first for an exact count; /streamz degrades to a
// 0-or-1 signal when /status is unavailable.
func (h *healthClient) connectedClients(ctx context.Context) int {
	for _, base := range h.bases {
		if n, ok := h.statusClients(ctx, base); ok {
			return n
		}
	}
	for _, base := range h.bases {
		if h.probe(ctx, base+"/streamz") {
			return 1
		}
	}
	return 0
}

func (h *healthClient) statusClients(ctx context.Context, base string) (int, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/status", nil)
	if err != nil {
		return 0, false
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return 0, false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, false
	}
	var payload struct {
		ConnectedClients int `json:"connectedClients"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload); err != nil {
		return 0, false
	}
	return payload.ConnectedClients, true
}

func (h *healthClient) probe(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
