package domain

import "errors"

var (
	// ErrProductNotFound is returned when no source produced a usable record
	ErrProductNotFound = errors.New("product not found")

	// ErrNotRecognized is returned when image recognition confidence is below the medium threshold
	ErrNotRecognized = errors.New("product not recognized")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in the scan cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrDatabaseUnavailable is returned when the public food database request fails
	ErrDatabaseUnavailable = errors.New("food database request failed")

	// ErrModelsExhausted is returned when every model in the fallback list failed
	ErrModelsExhausted = errors.New("all models exhausted")

	// ErrModelNotConfigured is returned when the model API key is missing;
	// model-dependent operations fail fast without a network call
	ErrModelNotConfigured = errors.New("model gateway not configured")

	// ErrNoJSONFound is returned when no JSON value could be recovered from
	// model output, even after truncation repair
	ErrNoJSONFound = errors.New("no JSON value found in model output")
)
