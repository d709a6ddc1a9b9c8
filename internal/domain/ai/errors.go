package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrUnauthorized indicates the provider rejected the configured credential (HTTP 401).
var ErrUnauthorized = errors.New("ai credential rejected")

// ErrMissingAPIKey is returned before any network call when no credential is configured.
var ErrMissingAPIKey = errors.New("ai api key not configured")

// ErrEmptyResponse means the provider answered without any choice to read.
var ErrEmptyResponse = errors.New("ai returned no choices")
