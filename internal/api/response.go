package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/goldmafia/clubhouse/internal/domain"
	"github.com/goldmafia/clubhouse/internal/media"
	"github.com/goldmafia/clubhouse/internal/pinning"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	CID   string `json:"cid,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor maps gateway kinds and domain errors to HTTP status codes
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrInvalidScope):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPinnedFileNotFound),
		errors.Is(err, domain.ErrProfileNotFound),
		errors.Is(err, domain.ErrMirrorDisabled),
		errors.Is(err, domain.ErrNotMirrored):
		return http.StatusNotFound
	}

	switch pinning.GetKind(err) {
	case pinning.KindValidation:
		return http.StatusBadRequest
	case pinning.KindConfiguration:
		return http.StatusServiceUnavailable
	case pinning.KindUpload:
		return http.StatusBadGateway
	case pinning.KindNetwork:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// writeServiceError reports err to the client. Internal failures are logged
// and answered with a generic message.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}
	if kind := pinning.GetKind(err); kind != pinning.KindUnknown {
		resp.Kind = kind.String()
	}

	var catErr *media.CatalogError
	if errors.As(err, &catErr) {
		resp.CID = catErr.CID
		resp.Error = "content was pinned but could not be recorded"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
		if status == http.StatusInternalServerError && resp.CID == "" {
			resp.Error = "internal server error"
		}
	}
	writeJSON(w, status, resp)
}
