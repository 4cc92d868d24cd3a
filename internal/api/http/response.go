package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"postings-ledger/internal/domain"
	"postings-ledger/internal/logger"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, ErrorResponse{Error: code, ErrorDescription: description})
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case domain.IsConflict(err):
		writeJSONError(w, http.StatusConflict, "conflict", err.Error())
	case domain.IsValidation(err), errors.Is(err, domain.ErrNotEnoughInfo):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, errUnauthenticated):
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	default:
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func badRequest(w http.ResponseWriter, description string) {
	writeJSONError(w, http.StatusBadRequest, "invalid_request", description)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func pathID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	return id, err == nil
}

// queryTime parses an RFC3339 query parameter, defaulting to now.
func queryTime(r *http.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return domain.Now(), nil
	}
	return time.Parse(time.RFC3339Nano, v)
}

// queryPage reads the limit and offset query parameters. Missing values are
// left zero for domain.PageRequest to default.
func queryPage(r *http.Request) (domain.PageRequest, error) {
	var page domain.PageRequest
	var err error
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if page.Limit, err = strconv.Atoi(v); err != nil {
			return page, errors.New("invalid limit")
		}
	}
	if v := q.Get("offset"); v != "" {
		if page.Offset, err = strconv.Atoi(v); err != nil {
			return page, errors.New("invalid offset")
		}
	}
	return page, nil
}
