package igc

import "context"

// CatalogClient defines the standard interface for all interactions with the
// external metadata catalog. The core compilers treat it as a collaborator:
// timeouts, retries and session handling live behind this seam.
type CatalogClient interface {
	// SearchTerms retrieves every business term, optionally scoped to a
	// category subtree. Paging is handled internally; the full result set is
	// returned with category paths normalized root-to-leaf.
	SearchTerms(ctx context.Context, categoryID string) ([]Term, error)
	// SearchDataClasses retrieves every data class together with its native
	// type tags and term assignments.
	SearchDataClasses(ctx context.Context) ([]DataClass, error)
	// GetTerm performs a point lookup by identifier with the given
	// relationship-traversal depth.
	GetTerm(ctx context.Context, id string, depth int) (*Term, error)
	// UpdateAsset applies a partial-attribute patch to a single asset.
	UpdateAsset(ctx context.Context, id string, patch Patch) error
	// CreateBundleAssets submits a complete asset bundle in one batch.
	CreateBundleAssets(ctx context.Context, bundle *Bundle) error
	// Close terminates the catalog session.
	Close(ctx context.Context) error
}
