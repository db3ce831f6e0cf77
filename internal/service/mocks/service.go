package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/martinhantha/kutt/internal/domain"
	"github.com/martinhantha/kutt/internal/filter"
)

// Resolver is a mock implementation of service.Resolver
type Resolver struct {
	mock.Mock
}

// Find returns the matching link
func (m *Resolver) Find(ctx context.Context, f filter.Filter) (*domain.Link, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// List returns targets joined with their links
func (m *Resolver) List(ctx context.Context, f filter.Filter, params domain.ListParams) ([]*domain.TargetRow, error) {
	args := m.Called(ctx, f, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TargetRow), args.Error(1)
}

// Count returns the number of matching links
func (m *Resolver) Count(ctx context.Context, f filter.Filter, params domain.SearchParams) (int64, error) {
	args := m.Called(ctx, f, params)
	return args.Get(0).(int64), args.Error(1)
}

// Create stores a new link
func (m *Resolver) Create(ctx context.Context, params domain.CreateLinkParams) (*domain.Link, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// CreateTarget attaches a target to a link
func (m *Resolver) CreateTarget(ctx context.Context, params domain.TargetParams, linkID *int64) (*domain.Target, error) {
	args := m.Called(ctx, params, linkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Target), args.Error(1)
}

// Update applies a patch
func (m *Resolver) Update(ctx context.Context, f filter.Filter, patch domain.LinkPatch) ([]*domain.Link, error) {
	args := m.Called(ctx, f, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Link), args.Error(1)
}

// Remove deletes a single link
func (m *Resolver) Remove(ctx context.Context, f filter.Filter) (*domain.RemoveResult, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RemoveResult), args.Error(1)
}

// BatchRemove deletes every matching link
func (m *Resolver) BatchRemove(ctx context.Context, f filter.Filter) (*domain.BatchRemoveResult, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchRemoveResult), args.Error(1)
}

// FlushCache drops every cached link
func (m *Resolver) FlushCache(ctx context.Context) int {
	args := m.Called(ctx)
	return args.Int(0)
}

// Ping checks the durable store
func (m *Resolver) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close closes the service
func (m *Resolver) Close() error {
	args := m.Called()
	return args.Error(0)
}
