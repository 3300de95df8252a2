package service

import (
	"context"
	"errors"

	"github.com/okian/hoopsim/internal/adapters/repository"
	"github.com/okian/hoopsim/internal/domain/dataset"
	"github.com/okian/hoopsim/internal/domain/features"
	"github.com/okian/hoopsim/internal/domain/separation"
	"github.com/okian/hoopsim/internal/domain/similarity"
)

// Sentinel kinds for service errors.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnavailable    = errors.New("service unavailable")
	ErrNoDatasetPath  = errors.New("no dataset path configured")
	ErrLoad           = errors.New("dataset load failed")
)

// Error codes shared by logs, metrics and transports.
const (
	CodeOK                  = "ok"
	CodeEmpty               = "empty"
	CodeNotFound            = "not_found"
	CodeAmbiguousSubject    = "ambiguous_subject"
	CodeNotEligible         = "not_eligible"
	CodeInsufficientPool    = "insufficient_pool"
	CodeMissingFeatureValue = "missing_feature_value"
	CodeBadRequest          = "bad_request"
	CodeUnavailable         = "unavailable"
	CodeCanceled            = "canceled"
	CodeLoadFailed          = "load_failed"
	CodeInternal            = "internal_error"
)

// ErrorCode classifies err into one of the Code constants. A nil error is
// CodeOK.
func ErrorCode(err error) string {
	var amb *dataset.AmbiguousSubjectError
	switch {
	case err == nil:
		return CodeOK
	case errors.As(err, &amb):
		if amb.NotFound() {
			return CodeNotFound
		}
		return CodeAmbiguousSubject
	case errors.Is(err, dataset.ErrNotEligible):
		return CodeNotEligible
	case errors.Is(err, dataset.ErrInsufficientPool):
		return CodeInsufficientPool
	case errors.Is(err, dataset.ErrMissingFeatureValue):
		return CodeMissingFeatureValue
	case errors.Is(err, dataset.ErrInvalidSelection),
		errors.Is(err, features.ErrUnknownSubset),
		errors.Is(err, similarity.ErrInvalidK),
		errors.Is(err, separation.ErrInvalidN),
		errors.Is(err, ErrInvalidRequest):
		return CodeBadRequest
	case errors.Is(err, ErrUnavailable), errors.Is(err, repository.ErrNoSnapshot):
		return CodeUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	case errors.Is(err, ErrLoad):
		return CodeLoadFailed
	default:
		return CodeInternal
	}
}
