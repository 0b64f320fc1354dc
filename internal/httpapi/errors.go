package httpapi

import (
	"encoding/json"
	"net/http"

	"pipeld/internal/compile"
	"pipeld/internal/preset"
	"pipeld/internal/session"
	"pipeld/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusForError maps well-known service errors to HTTP status codes.
// Anything unrecognized is a 500.
func statusForError(err error) int {
	switch {
	case preset.IsPresetNotFound(err):
		return http.StatusNotFound
	case preset.IsFactoryPreset(err):
		return http.StatusForbidden
	case preset.IsInvalidGraph(err):
		return http.StatusConflict
	case compile.IsCompilationError(err):
		return http.StatusUnprocessableEntity
	case session.IsPinFormat(err):
		return http.StatusBadRequest
	case session.IsLaunchBusy(err):
		return http.StatusConflict
	case session.IsLaunchError(err):
		return http.StatusBadGateway
	case session.IsPairingError(err):
		return http.StatusBadGateway
	case session.IsNoSession(err):
		return http.StatusConflict
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeServiceError maps err via statusForError and emits the JSON payload.
func writeServiceError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusConflict && session.IsLaunchBusy(err) {
		IncrementBusy("launch")
	}
	writeJSONError(w, status, err.Error())
}
