package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pipeld/pkg/types"
)

// GraphService is the preset-store surface the HTTP layer needs.
type GraphService interface {
	Document() types.StoreDocument
	ReplaceDocument(doc types.StoreDocument) (types.StoreDocument, error)
	CreatePreset(req types.CreatePresetRequest) (types.Preset, error)
	UpdatePreset(id string, req types.CreatePresetRequest) (types.Preset, error)
	DeletePreset(id string) (types.StoreDocument, error)
	ClonePreset(id string) (types.Preset, error)
	Revalidate() (types.ValidationReport, error)
}

// SessionService is the supervisor surface the HTTP layer needs.
type SessionService interface {
	Settings() types.StreamSettings
	UpdateSettings(s types.StreamSettings) (types.StreamSettings, error)
	SessionStatus(ctx context.Context) types.SessionStatus
	LaunchGame(ctx context.Context, req types.LaunchGameRequest) (types.SessionStatus, error)
	StartTest(ctx context.Context, req types.TestRequest) (types.SessionStatus, error)
	StopSession(ctx context.Context) error
	Pair(ctx context.Context, req types.PairRequest) (types.PairResponse, error)
	Ready() bool
}

// NewMux builds the router for the pipeline daemon.
func NewMux(graphs GraphService, sessions SessionService) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/graph", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, graphs.Document())
	})

	r.Post("/graph", func(w http.ResponseWriter, r *http.Request) {
		var doc types.StoreDocument
		if !decodeBody(w, r, &doc) {
			return
		}
		out, err := graphs.ReplaceDocument(doc)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Post("/graph/presets", func(w http.ResponseWriter, r *http.Request) {
		var req types.CreatePresetRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.ID) == "" || strings.TrimSpace(req.Name) == "" {
			writeJSONError(w, http.StatusBadRequest, "id and name are required")
			return
		}
		p, err := graphs.CreatePreset(req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	})

	r.Put("/graph/presets/{id}", func(w http.ResponseWriter, r *http.Request) {
		var req types.CreatePresetRequest
		if !decodeBody(w, r, &req) {
			return
		}
		p, err := graphs.UpdatePreset(chi.URLParam(r, "id"), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	})

	r.Delete("/graph/presets/{id}", func(w http.ResponseWriter, r *http.Request) {
		doc, err := graphs.DeletePreset(chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	})

	r.Post("/graph/presets/{id}/clone", func(w http.ResponseWriter, r *http.Request) {
		p, err := graphs.ClonePreset(chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	})

	r.Post("/graph/validate", func(w http.ResponseWriter, r *http.Request) {
		report, err := graphs.Revalidate()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	})

	r.Get("/settings/streaming", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessions.Settings())
	})

	r.Post("/settings/streaming", func(w http.ResponseWriter, r *http.Request) {
		var in types.StreamSettings
		if !decodeBody(w, r, &in) {
			return
		}
		out, err := sessions.UpdateSettings(in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Get("/session", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessions.SessionStatus(r.Context()))
	})

	r.Post("/session", func(w http.ResponseWriter, r *http.Request) {
		var req types.LaunchGameRequest
		if !decodeBody(w, r, &req) {
			return
		}
		// A launch outlives the request; tie it to the server base context as
		// well so shutdown still cancels a launch in flight.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		st, err := sessions.LaunchGame(ctx, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, st)
	})

	r.Delete("/session", func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.StopSession(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessions.SessionStatus(r.Context()))
	})

	r.Post("/test", func(w http.ResponseWriter, r *http.Request) {
		var req types.TestRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Mode != "stream" && req.Mode != "x11" {
			writeJSONError(w, http.StatusBadRequest, "mode must be stream or x11")
			return
		}
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		st, err := sessions.StartTest(ctx, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, st)
	})

	r.Delete("/test", func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.StopSession(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/pair", func(w http.ResponseWriter, r *http.Request) {
		var req types.PairRequest
		if !decodeBody(w, r, &req) {
			return
		}
		switch req.Action {
		case "pair", "status", "clear":
		default:
			writeJSONError(w, http.StatusBadRequest, "action must be pair, status or clear")
			return
		}
		resp, err := sessions.Pair(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if sessions.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// decodeBody enforces the JSON content type and body-size limit, then decodes
// into dst. Writes the error response itself and reports success.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Error().Err(err).Msg("encode response")
	}
}
