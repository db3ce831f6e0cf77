package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/martinhantha/kutt/internal/cache"
	"github.com/martinhantha/kutt/internal/domain"
	"github.com/martinhantha/kutt/internal/errx"
	"github.com/martinhantha/kutt/internal/filter"
	"github.com/martinhantha/kutt/internal/repository"
	"github.com/martinhantha/kutt/internal/shortener"
)

// Config controls the resolver's use of the link cache
type Config struct {
	// CacheEnabled turns the cache on. When false the resolver never touches the cache store.
	CacheEnabled bool
	// CacheTTL is the lifetime of a cached link; zero selects cache.DefaultLinkTTL
	CacheTTL time.Duration
}

// maxGenerateAttempts bounds how many generated addresses Create tries
const maxGenerateAttempts = 3

// resolver implements Resolver
type resolver struct {
	repo      repository.LinkRepository
	links     *cache.Links
	generator shortener.Generator
	logger    *slog.Logger
}

// NewResolver creates a resolver over repo. The cache is used only when
// cfg.CacheEnabled is set and store is non-nil. generator may be nil, in which
// case every created link must carry its own address.
func NewResolver(repo repository.LinkRepository, store cache.Store, generator shortener.Generator, cfg Config, logger *slog.Logger) Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	var links *cache.Links
	if cfg.CacheEnabled && store != nil {
		links = cache.NewLinks(store, cfg.CacheTTL, logger)
	}

	return &resolver{
		repo:      repo,
		links:     links,
		generator: generator,
		logger:    logger,
	}
}

// Find resolves a link, answering from the cache when the filter names a cache key
func (s *resolver) Find(ctx context.Context, f filter.Filter) (*domain.Link, error) {
	cacheable := s.cacheable(f)

	if cacheable {
		if link, ok := s.links.Get(ctx, *f.Address, f.DomainID.ID()); ok {
			if f.MatchesLink(link) {
				return link, nil
			}
			s.logger.DebugContext(ctx, "cached link does not satisfy filter", "address", link.Address, "id", link.ID)
		}
	}

	link, err := s.repo.FindOne(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to find link: %w", err)
	}
	if link == nil {
		// Absence is never cached
		return nil, nil
	}

	if cacheable {
		s.links.Put(ctx, link)
	}
	return link, nil
}

// List returns targets joined with their links
func (s *resolver) List(ctx context.Context, f filter.Filter, params domain.ListParams) ([]*domain.TargetRow, error) {
	rows, err := s.repo.List(ctx, f, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return rows, nil
}

// Count returns the number of links matching f
func (s *resolver) Count(ctx context.Context, f filter.Filter, params domain.SearchParams) (int64, error) {
	count, err := s.repo.Count(ctx, f, params)
	if err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	return count, nil
}

// Create stores a new link. A new row cannot be stale in the cache, so nothing is evicted.
func (s *resolver) Create(ctx context.Context, params domain.CreateLinkParams) (*domain.Link, error) {
	const op = "service.Create"

	if err := validateTarget(params.Target); err != nil {
		return nil, errx.E(op, errx.Invalid, err)
	}

	if params.Address != "" {
		link, err := s.repo.CreateLink(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to create link: %w", err)
		}
		return link, nil
	}
	if s.generator == nil {
		return nil, errx.E(op, errx.Invalid, errors.New("address is required"))
	}

	// A generated address can still clash with a custom one, so try a fresh address
	var lastErr error
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		address, err := s.generator.Generate(ctx)
		if err != nil {
			return nil, errx.E(op, errx.Unavailable, fmt.Errorf("failed to generate address: %w", err))
		}
		params.Address = address

		link, err := s.repo.CreateLink(ctx, params)
		if err == nil {
			return link, nil
		}
		if errx.KindOf(err) != errx.Conflict {
			return nil, fmt.Errorf("failed to create link: %w", err)
		}
		s.logger.Warn("generated address already taken", "address", address, "attempt", attempt+1)
		lastErr = err
	}
	return nil, errx.E(op, errx.Unavailable, fmt.Errorf("no free address after %d attempts: %w", maxGenerateAttempts, lastErr))
}

// CreateTarget attaches a target to a link
func (s *resolver) CreateTarget(ctx context.Context, params domain.TargetParams, linkID *int64) (*domain.Target, error) {
	if err := validateTarget(params.Target); err != nil {
		return nil, errx.E("service.CreateTarget", errx.Invalid, err)
	}

	target, err := s.repo.CreateTarget(ctx, params, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to create target: %w", err)
	}
	return target, nil
}

// Update applies patch and evicts both the old and the new cache keys of every affected link
func (s *resolver) Update(ctx context.Context, f filter.Filter, patch domain.LinkPatch) ([]*domain.Link, error) {
	if patch.Target != nil {
		if err := validateTarget(*patch.Target); err != nil {
			return nil, errx.E("service.Update", errx.Invalid, err)
		}
	}

	// The patch can move a link to another cache key, so capture the keys it has now
	var before []*domain.Link
	if s.links != nil && patch.TouchesCacheKey() {
		var err error
		before, err = s.repo.Select(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("failed to read links before update: %w", err)
		}
	}

	updated, err := s.repo.Update(ctx, f, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update links: %w", err)
	}

	if s.links != nil {
		stale := make([]*domain.Link, 0, len(before)+len(updated))
		stale = append(stale, before...)
		stale = append(stale, updated...)
		s.links.Evict(ctx, stale...)
	}

	return updated, nil
}

// Remove deletes a single link and evicts the snapshot taken before the delete
func (s *resolver) Remove(ctx context.Context, f filter.Filter) (*domain.RemoveResult, error) {
	result, err := s.repo.Remove(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to remove link: %w", err)
	}

	if s.links != nil && result.Removed {
		s.links.Evict(ctx, result.Link)
	}
	return result, nil
}

// BatchRemove deletes every matching link and evicts the snapshots taken before the delete
func (s *resolver) BatchRemove(ctx context.Context, f filter.Filter) (*domain.BatchRemoveResult, error) {
	result, err := s.repo.BatchRemove(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to remove links: %w", err)
	}

	if s.links != nil {
		s.links.Evict(ctx, result.Links...)
	}
	return result, nil
}

// FlushCache drops every cached link. It is a no-op when caching is disabled.
func (s *resolver) FlushCache(ctx context.Context) int {
	if s.links == nil {
		return 0
	}
	return s.links.Flush(ctx)
}

// Ping checks the durable store
func (s *resolver) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Close closes the service and its dependencies
func (s *resolver) Close() error {
	if s.generator != nil {
		if err := s.generator.Close(); err != nil {
			return fmt.Errorf("failed to close generator: %w", err)
		}
	}
	if s.links != nil {
		if err := s.links.Close(); err != nil {
			return fmt.Errorf("failed to close cache: %w", err)
		}
	}
	if err := s.repo.Close(); err != nil {
		return fmt.Errorf("failed to close repository: %w", err)
	}
	return nil
}

// cacheable reports whether a lookup may be answered from the cache. Target
// columns are not part of the snapshot, so filters on them always go to the store.
func (s *resolver) cacheable(f filter.Filter) bool {
	return s.links != nil && f.CacheKeyed() && !f.HasTargetFields()
}

func validateTarget(target string) error {
	parsedURL, err := url.ParseRequestURI(target)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	// Only allow HTTP and HTTPS schemes
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("invalid URL: only HTTP and HTTPS are supported")
	}
	return nil
}

// Ensure resolver implements Resolver interface
var _ Resolver = (*resolver)(nil)
