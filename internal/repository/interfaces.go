package repository

import (
	"context"

	"github.com/martinhantha/kutt/internal/domain"
	"github.com/martinhantha/kutt/internal/filter"
)

// LinkRepository defines the durable store operations for links and targets.
// It is the source of truth; it never touches the cache.
type LinkRepository interface {
	// Count returns the number of links matching f, narrowed by a case-insensitive search
	Count(ctx context.Context, f filter.Filter, params domain.SearchParams) (int64, error)

	// List returns targets joined with their links, newest target first
	List(ctx context.Context, f filter.Filter, params domain.ListParams) ([]*domain.TargetRow, error)

	// FindOne returns the first link matching f, or nil when none matches
	FindOne(ctx context.Context, f filter.Filter) (*domain.Link, error)

	// Select returns every link matching f ordered by id
	Select(ctx context.Context, f filter.Filter) ([]*domain.Link, error)

	// CreateTarget inserts a target attached to linkID (nil for an orphan target)
	CreateTarget(ctx context.Context, params domain.TargetParams, linkID *int64) (*domain.Target, error)

	// CreateLink inserts a link and its first target atomically
	CreateLink(ctx context.Context, params domain.CreateLinkParams) (*domain.Link, error)

	// Remove deletes the single link matching f. A missing link is reported in the result, not as an error.
	Remove(ctx context.Context, f filter.Filter) (*domain.RemoveResult, error)

	// BatchRemove deletes every link matching f and returns the rows as they were before deletion
	BatchRemove(ctx context.Context, f filter.Filter) (*domain.BatchRemoveResult, error)

	// Update applies patch to every link matching f and returns the updated rows
	Update(ctx context.Context, f filter.Filter, patch domain.LinkPatch) ([]*domain.Link, error)

	// Ping checks the store connection
	Ping(ctx context.Context) error

	// Close closes the repository connection
	Close() error
}
