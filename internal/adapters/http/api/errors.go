package api

import (
	"errors"
	"net/http"

	service "github.com/okian/hoopsim/internal/app"
)

// ErrBadRequest marks query parameters that could not be parsed.
var ErrBadRequest = errors.New("bad request")

// statusFor maps a service error code to the HTTP status it is served with.
func statusFor(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeAmbiguousSubject:
		return http.StatusConflict
	case service.CodeNotEligible, service.CodeInsufficientPool, service.CodeMissingFeatureValue:
		return http.StatusUnprocessableEntity
	case service.CodeBadRequest:
		return http.StatusBadRequest
	case service.CodeUnavailable, service.CodeCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError classifies err and writes it as a JSON error body.
func writeServiceError(w http.ResponseWriter, err error) {
	code := service.ErrorCode(err)
	writeError(w, statusFor(code), code, err)
}
