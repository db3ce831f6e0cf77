package service

import (
	"context"

	"github.com/martinhantha/kutt/internal/domain"
	"github.com/martinhantha/kutt/internal/filter"
)

// Resolver is the only entry point for reading and mutating links. It owns the
// link cache: lookups go cache first, and every mutation evicts what it made stale.
type Resolver interface {
	// Find returns the link matching f, or nil when no link matches
	Find(ctx context.Context, f filter.Filter) (*domain.Link, error)

	// List returns targets joined with their links, newest first
	List(ctx context.Context, f filter.Filter, params domain.ListParams) ([]*domain.TargetRow, error)

	// Count returns the number of links matching f
	Count(ctx context.Context, f filter.Filter, params domain.SearchParams) (int64, error)

	// Create stores a new link with its first target, generating an address when none is given
	Create(ctx context.Context, params domain.CreateLinkParams) (*domain.Link, error)

	// CreateTarget attaches an additional target to a link
	CreateTarget(ctx context.Context, params domain.TargetParams, linkID *int64) (*domain.Target, error)

	// Update applies patch to every link matching f and returns the updated links
	Update(ctx context.Context, f filter.Filter, patch domain.LinkPatch) ([]*domain.Link, error)

	// Remove deletes the single link matching f
	Remove(ctx context.Context, f filter.Filter) (*domain.RemoveResult, error)

	// BatchRemove deletes every link matching f
	BatchRemove(ctx context.Context, f filter.Filter) (*domain.BatchRemoveResult, error)

	// FlushCache drops every cached link and returns how many entries were removed
	FlushCache(ctx context.Context) int

	// Ping checks the durable store
	Ping(ctx context.Context) error

	// Close closes the service and its dependencies
	Close() error
}
