package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// NormalizePin strips separators from a PIN and requires exactly 4 digits.
// Rejection happens before any network call.
func NormalizePin(pin string) (string, error) {
	var b strings.Builder
	for _, r := range pin {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	normalized := b.String()
	if len(normalized) != 4 {
		return "", pinFormatError{pin: pin}
	}
	return normalized, nil
}

// pairingSucceeded decides whether the endpoint's pairing response means
// success. The upstream pairing API does not commit to one response shape:
// observed variants include {"success":true}, {"status":"ok"}, {"status":
// true}, {"paired":true} and an empty 2xx body. Keep every accepted shape in
// this one function so the contract can be tightened without touching the
// state machine.
func pairingSucceeded(status int, body []byte) bool {
	if status < 200 || status >= 300 {
		return false
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return true
	}
	var payload map[string]any
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		// Non-JSON 2xx bodies: look for a bare success token.
		s := strings.ToLower(string(trimmed))
		return strings.Contains(s, "success") || strings.Contains(s, "ok")
	}
	for _, key := range []string{"success", "paired", "status"} {
		switch v := payload[key].(type) {
		case bool:
			if v {
				return true
			}
		case string:
			lv := strings.ToLower(v)
			if lv == "ok" || lv == "true" || lv == "success" {
				return true
			}
		}
	}
	return false
}

// submitPin forwards a normalized PIN to the endpoint's pairing API.
func (s *Supervisor) submitPin(ctx context.Context, baseURL, pin string) error {
	payload, _ := json.Marshal(map[string]string{"pin": pin})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/pin", bytes.NewReader(payload))
	if err != nil {
		return ErrPairing("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return ErrPairing("endpoint unreachable: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if !pairingSucceeded(resp.StatusCode, body) {
		return ErrPairing("endpoint rejected pin: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

// clearPairedClients asks the endpoint to forget all paired clients.
func (s *Supervisor) clearPairedClients(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/clients/unpair", nil)
	if err != nil {
		return ErrPairing("build request: %v", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return ErrPairing("endpoint unreachable: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ErrPairing("unpair failed: %s", resp.Status)
	}
	return nil
}

// pairedClients fetches the endpoint's paired client list. A missing or
// malformed list is reported as empty, not an error: status must stay
// usable while the endpoint is restarting.
func (s *Supervisor) pairedClients(ctx context.Context, baseURL string) []string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/clients/list", nil)
	if err != nil {
		return nil
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}
	var payload struct {
		Clients []struct {
			Name string `json:"name"`
			UUID string `json:"uuid"`
		} `json:"named_certs"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return nil
	}
	out := make([]string, 0, len(payload.Clients))
	for _, c := range payload.Clients {
		if c.Name != "" {
			out = append(out, c.Name)
		} else if c.UUID != "" {
			out = append(out, c.UUID)
		} else {
			out = append(out, fmt.Sprintf("client-%d", len(out)+1))
		}
	}
	return out
}
