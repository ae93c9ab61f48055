package resort

import "context"

// Repository is the persistence surface for resorts and their collected
// data. Implementations must be safe for concurrent use by collector
// workers.
type Repository interface {
	// SaveSnapshot persists one collection result atomically: the resort
	// row is created on first sight (later runs only touch updated_at),
	// and condition, weather, and webcam rows are appended.
	SaveSnapshot(ctx context.Context, snap *Snapshot) error

	// SaveContact stores places enrichment on the resort row. Returns
	// ErrNotFound when the resort does not exist.
	SaveContact(ctx context.Context, resortID int64, info *ContactInfo) error

	// ReplaceTrails swaps the resort's trail set in one transaction,
	// updating the boundary ring when one is given.
	ReplaceTrails(ctx context.Context, resortID int64, boundary [][]float64, trails []Trail) error

	// Disable soft-deletes a resort and returns its slug for cache
	// invalidation. Returns ErrNotFound when no enabled row matches.
	Disable(ctx context.Context, id int64) (string, error)

	// GetByID returns one enabled resort's assembled view.
	GetByID(ctx context.Context, id int64) (*View, error)

	// GetBySlug returns one enabled resort's assembled view.
	GetBySlug(ctx context.Context, slug string) (*View, error)

	// ListEnabled returns assembled views for every enabled resort,
	// ordered by id.
	ListEnabled(ctx context.Context) ([]*View, error)

	// TrailsByID returns the stored trail set, empty when none collected.
	TrailsByID(ctx context.Context, id int64) ([]TrailView, error)

	// TrailsBySlug returns the stored trail set, empty when none collected.
	TrailsBySlug(ctx context.Context, slug string) ([]TrailView, error)

	// CountEnabled returns the number of enabled resorts.
	CountEnabled(ctx context.Context) (int, error)

	// Ping verifies database reachability.
	Ping(ctx context.Context) error
}
