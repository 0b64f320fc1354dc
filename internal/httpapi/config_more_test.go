package httpapi

import "testing"

func TestSetMaxBodyBytes_DefaultWhenNonPositive(t *testing.T) {
	SetMaxBodyBytes(-1)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("expected default 1MiB, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(0)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("expected default 1MiB on zero, got %d", maxBodyBytes)
	}
}

func TestSetMaxBodyBytes_PositiveSetsValue(t *testing.T) {
	SetMaxBodyBytes(1234)
	if maxBodyBytes != 1234 {
		t.Fatalf("expected 1234, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(0)
}

func TestSetCORSOptions_CopiesSlices(t *testing.T) {
	origins := []string{"http://localhost:5173"}
	SetCORSOptions(true, origins, []string{"GET"}, []string{"Content-Type"})
	defer SetCORSOptions(false, nil, nil, nil)
	origins[0] = "mutated"
	if corsAllowedOrigins[0] != "http://localhost:5173" {
		t.Fatalf("expected defensive copy, got %q", corsAllowedOrigins[0])
	}
	if !corsEnabled {
		t.Fatalf("expected cors enabled")
	}
}
