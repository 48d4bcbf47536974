package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")

	// ErrPlanning is the only fatal error of a request: no capability survived repair.
	ErrPlanning = errors.New("request could not be understood")
	// ErrSynthesis marks generation output rejected by post-validation.
	ErrSynthesis = errors.New("synthesis output rejected")

	ErrProviderTimeout = errors.New("provider timed out")
	ErrProviderFailure = errors.New("provider failed")
)
