package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeld/internal/container"
	"pipeld/pkg/types"
)

type fakeOrch struct {
	started  []container.RunParams
	stopped  []string
	up       bool
	startErr error
}

func (f *fakeOrch) StartRunner(_ context.Context, p container.RunParams) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.started = append(f.started, p)
	return "ctr-1", nil
}

func (f *fakeOrch) StopRunner(_ context.Context, id string) error {
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeOrch) DaemonUp(context.Context) bool { return f.up }

func TestNormalizePin(t *testing.T) {
	for in, want := range map[string]string{
		"1234":    "1234",
		"12-34":   "1234",
		" 12 34 ": "1234",
		"1-2-3-4": "1234",
	} {
		got, err := NormalizePin(in)
		require.NoError(t, err, "pin %q", in)
		assert.Equal(t, want, got, "pin %q", in)
	}
}

func TestNormalizePin_Rejects(t *testing.T) {
	for _, in := range []string{"123", "12345", "abcd", "", "12-345"} {
		_, err := NormalizePin(in)
		require.Error(t, err, "pin %q", in)
		assert.True(t, IsPinFormat(err), "pin %q", in)
	}
}

func TestPairingSucceeded(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   bool
	}{
		{404, `{"success":true}`, false},
		{200, "", true},
		{200, "   ", true},
		{200, `{"success":true}`, true},
		{200, `{"success":false}`, false},
		{200, `{"status":"ok"}`, true},
		{200, `{"status":true}`, true},
		{200, `{"paired":true}`, true},
		{200, `{"error":"denied"}`, false},
		{200, "OK", true},
		{200, "pairing success", true},
		{200, "nope", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, pairingSucceeded(c.status, []byte(c.body)),
			"status %d body %q", c.status, c.body)
	}
}

// pairingEndpoint fakes the streaming endpoint's pairing API surface.
func pairingEndpoint(t *testing.T, acceptPin bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/pin", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Len(t, payload["pin"], 4)
		if acceptPin {
			_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": false})
	})
	mux.HandleFunc("/api/clients/list", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"named_certs":[{"name":"laptop","uuid":"u1"},{"name":"","uuid":"u2"}]}`))
	})
	mux.HandleFunc("/api/clients/unpair", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func pairingSupervisor(t *testing.T, base string) *Supervisor {
	t.Helper()
	return New(Config{HealthBaseURLs: []string{base}}, &fakeOrch{}, zerolog.Nop())
}

func TestPair_Pair(t *testing.T) {
	srv := pairingEndpoint(t, true)
	s := pairingSupervisor(t, srv.URL)

	resp, err := s.Pair(context.Background(), types.PairRequest{Action: "pair", Pin: "98-76"})
	require.NoError(t, err)
	assert.True(t, resp.Ready)
	assert.Equal(t, []string{"laptop", "u2"}, resp.Paired)
	assert.Equal(t, "paired", resp.Message)
}

func TestPair_RejectedPin(t *testing.T) {
	srv := pairingEndpoint(t, false)
	s := pairingSupervisor(t, srv.URL)

	_, err := s.Pair(context.Background(), types.PairRequest{Action: "pair", Pin: "9876"})
	require.Error(t, err)
	assert.True(t, IsPairingError(err))
}

func TestPair_BadPinSkipsNetwork(t *testing.T) {
	// No endpoint at all: a malformed PIN must fail before any call.
	s := pairingSupervisor(t, "http://127.0.0.1:1")

	_, err := s.Pair(context.Background(), types.PairRequest{Action: "pair", Pin: "12"})
	require.Error(t, err)
	assert.True(t, IsPinFormat(err))
}

func TestPair_EndpointNotReady(t *testing.T) {
	s := pairingSupervisor(t, "http://127.0.0.1:1")

	_, err := s.Pair(context.Background(), types.PairRequest{Action: "pair", Pin: "1234"})
	require.Error(t, err)
	assert.True(t, IsPairingError(err))
}

func TestPair_Status(t *testing.T) {
	srv := pairingEndpoint(t, true)
	s := pairingSupervisor(t, srv.URL)

	resp, err := s.Pair(context.Background(), types.PairRequest{Action: "status"})
	require.NoError(t, err)
	assert.True(t, resp.Ready)
	assert.Equal(t, []string{"laptop", "u2"}, resp.Paired)
}

func TestPair_StatusOffline(t *testing.T) {
	s := pairingSupervisor(t, "http://127.0.0.1:1")

	resp, err := s.Pair(context.Background(), types.PairRequest{Action: "status"})
	require.NoError(t, err)
	assert.False(t, resp.Ready)
	assert.Empty(t, resp.Paired)
	assert.NotNil(t, resp.Paired)
}

func TestPair_Clear(t *testing.T) {
	srv := pairingEndpoint(t, true)
	s := pairingSupervisor(t, srv.URL)

	resp, err := s.Pair(context.Background(), types.PairRequest{Action: "clear"})
	require.NoError(t, err)
	assert.True(t, resp.Ready)
	assert.Empty(t, resp.Paired)
}

func TestPair_UnknownAction(t *testing.T) {
	srv := pairingEndpoint(t, true)
	s := pairingSupervisor(t, srv.URL)

	_, err := s.Pair(context.Background(), types.PairRequest{Action: "reset"})
	require.Error(t, err)
	assert.True(t, IsPairingError(err))
}
