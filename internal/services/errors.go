package services

import "errors"

// Service-level sentinel errors. Artifact-level sentinels
// (ErrNoEnrichedTable, ErrArtifactStale) live in internal/errors and are
// wrapped by the data service when artifact loading fails.
var (
	// State errors
	ErrStateNotFound = errors.New("state not found in dataset")

	// Insight errors
	ErrInsightsUnavailable = errors.New("insights artifact not available")

	// General errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)
