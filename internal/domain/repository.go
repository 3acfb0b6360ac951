package domain

import "context"

// ScanCache is the local cache of previously resolved scans. The resolution
// engine reads it but never writes; the delivery layer stores new scans.
type ScanCache interface {
	// GetByBarcode returns the cached record for an exact barcode, or ErrCacheMiss.
	GetByBarcode(ctx context.Context, barcode string) (*ProductRecord, error)
	// SearchByName returns cached records whose name or brand contains a
	// word of the query.
	SearchByName(ctx context.Context, query string) ([]ProductRecord, error)
	// Put stores a freshly resolved record, evicting the least recently
	// scanned entry beyond capacity.
	Put(ctx context.Context, record ProductRecord) error
}

// FoodDatabase is the public food database collaborator.
type FoodDatabase interface {
	// FetchByBarcode returns one record or ErrProductNotFound.
	FetchByBarcode(ctx context.Context, barcode string) (*ProductRecord, error)
	// SearchByText returns the database's ranked candidates for a free-text
	// query; callers re-rank locally.
	SearchByText(ctx context.Context, query string) ([]ProductRecord, error)
}

// ModelGateway is the generative model collaborator. Implementations try an
// ordered fallback list of model identifiers and return the first non-empty
// text payload.
type ModelGateway interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateVision(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
	// Configured reports whether credentials are present; when false, every
	// Generate call returns ErrModelNotConfigured without a network call.
	Configured() bool
}

// ImageResolver validates candidate image URLs, returning the first
// confirmed to be a real image.
type ImageResolver interface {
	// BestImage derives CDN candidates from the barcode, merges them with
	// the given candidates, checks all in parallel, and returns the first
	// URL confirmed as an image content type, or "".
	BestImage(ctx context.Context, barcode string, candidates ...string) string
}
