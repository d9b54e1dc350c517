// Package response writes the JSON envelope shared by every endpoint.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-social-go/pkg/apperr"
)

// Envelope is the success shape; T is the typed payload of one endpoint.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

// Failure is the error shape.
type Failure struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError represents a single field validation error
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a success envelope carrying data.
func OK[T any](w http.ResponseWriter, status int, message string, data T) {
	writeJSON(w, status, Envelope[T]{Success: true, Message: message, Data: data})
}

// Message writes a success envelope without payload.
func Message(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope[*struct{}]{Success: true, Message: message})
}

// Fail writes an error envelope.
func Fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Failure{Success: false, Message: message})
}

// StatusFor maps an error kind to an HTTP status code.
func StatusFor(k apperr.Kind) int {
	switch k {
	case apperr.Invalid:
		return http.StatusBadRequest
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.Unavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error maps a service error to a status code. Internal errors are logged and
// replaced by a generic message.
func Error(w http.ResponseWriter, logger *zap.SugaredLogger, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		logger.Errorw("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
		Fail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	logger.Debugw("request rejected", "path", r.URL.Path, "kind", kind.String(), "err", err)
	Fail(w, StatusFor(kind), apperr.MessageOf(err))
}

// Validation writes field errors produced by validator.
func Validation(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		Fail(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: fe.Tag()})
	}
	writeJSON(w, http.StatusBadRequest, Failure{Success: false, Message: "Validation failed", Errors: out})
}
