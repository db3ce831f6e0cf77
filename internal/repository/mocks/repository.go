package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/martinhantha/kutt/internal/domain"
	"github.com/martinhantha/kutt/internal/filter"
)

// LinkRepository is a mock implementation of repository.LinkRepository
type LinkRepository struct {
	mock.Mock
}

// Count returns the number of matching links
func (m *LinkRepository) Count(ctx context.Context, f filter.Filter, params domain.SearchParams) (int64, error) {
	args := m.Called(ctx, f, params)
	return args.Get(0).(int64), args.Error(1)
}

// List returns targets joined with their links
func (m *LinkRepository) List(ctx context.Context, f filter.Filter, params domain.ListParams) ([]*domain.TargetRow, error) {
	args := m.Called(ctx, f, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TargetRow), args.Error(1)
}

// FindOne returns the first matching link
func (m *LinkRepository) FindOne(ctx context.Context, f filter.Filter) (*domain.Link, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// Select returns every matching link
func (m *LinkRepository) Select(ctx context.Context, f filter.Filter) ([]*domain.Link, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Link), args.Error(1)
}

// CreateTarget inserts a target
func (m *LinkRepository) CreateTarget(ctx context.Context, params domain.TargetParams, linkID *int64) (*domain.Target, error) {
	args := m.Called(ctx, params, linkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Target), args.Error(1)
}

// CreateLink inserts a link and its first target
func (m *LinkRepository) CreateLink(ctx context.Context, params domain.CreateLinkParams) (*domain.Link, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// Remove deletes the single matching link
func (m *LinkRepository) Remove(ctx context.Context, f filter.Filter) (*domain.RemoveResult, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RemoveResult), args.Error(1)
}

// BatchRemove deletes every matching link
func (m *LinkRepository) BatchRemove(ctx context.Context, f filter.Filter) (*domain.BatchRemoveResult, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchRemoveResult), args.Error(1)
}

// Update applies a patch to every matching link
func (m *LinkRepository) Update(ctx context.Context, f filter.Filter, patch domain.LinkPatch) ([]*domain.Link, error) {
	args := m.Called(ctx, f, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Link), args.Error(1)
}

// Ping checks the store connection
func (m *LinkRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close closes the repository connection
func (m *LinkRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}
