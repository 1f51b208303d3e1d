package ai

import (
	"errors"

	"github.com/tmc/langchaingo/llms"
)

// IsPermanent reports whether err is a service failure that retrying cannot fix:
// bad credentials, an invalid request, a missing model, an exhausted quota,
// or a canceled call. Errors that were not classified by a
// langchaingo ErrorMapper are treated as transient.
func IsPermanent(err error) bool {
	var e *llms.Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Code {
	case llms.ErrCodeAuthentication,
		llms.ErrCodeInvalidRequest,
		llms.ErrCodeResourceNotFound,
		llms.ErrCodeQuotaExceeded,
		llms.ErrCodeContentFilter,
		llms.ErrCodeTokenLimit,
		llms.ErrCodeNotImplemented,
		llms.ErrCodeCanceled:
		return true
	}
	return false
}
