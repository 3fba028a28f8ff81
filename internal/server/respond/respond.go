// Package respond writes the JSON envelope used by every API endpoint and
// maps the service error taxonomy onto HTTP status codes.
package respond

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"commie/backend/internal/apperr"
)

type envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *apiError `json:"error,omitempty"`
	Meta  *Meta     `json:"meta,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta carries pagination fields alongside list responses.
type Meta struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// JSON writes data inside the {"data": ...} envelope with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, envelope{Data: data})
}

// Paginated writes a list response with pagination meta.
func Paginated(w http.ResponseWriter, data any, page, perPage, total int) {
	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	write(w, http.StatusOK, envelope{
		Data: data,
		Meta: &Meta{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages},
	})
}

// NoContent writes an empty 204 response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error maps err onto a status code and error code and writes the error
// envelope. Unrecognized errors become 500 INTERNAL with a generic message so
// internals do not leak to clients.
func Error(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	message := "internal error"
	switch {
	case errors.Is(err, apperr.ErrAuthenticationRequired):
		status, code, message = http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", err.Error()
	case errors.Is(err, apperr.ErrForbidden):
		status, code, message = http.StatusForbidden, "FORBIDDEN", err.Error()
	case errors.Is(err, apperr.ErrNotFound):
		status, code, message = http.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.Is(err, apperr.ErrInvalidState):
		status, code, message = http.StatusConflict, "INVALID_STATE", err.Error()
	case errors.Is(err, apperr.ErrValidation):
		status, code, message = http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	default:
		log.Printf("respond: internal error: %v", err)
	}
	write(w, status, envelope{Error: &apiError{Code: code, Message: message}})
}

// ErrorStatus writes an error envelope with an explicit status and code.
func ErrorStatus(w http.ResponseWriter, status int, code, message string) {
	write(w, status, envelope{Error: &apiError{Code: code, Message: message}})
}

func write(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Printf("respond: encode failed: %v", err)
	}
}

// DecodeJSON decodes the request body into v, limited to 1 MiB.
func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.ErrValidation
	}
	return nil
}
