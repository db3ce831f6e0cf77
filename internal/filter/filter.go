// Package filter turns lookup criteria into canonical, table-qualified column matches.
package filter

import (
	"github.com/martinhantha/kutt/internal/domain"
)

// Filter selects links. Nil fields and an unset DomainID leave that column unconstrained.
type Filter struct {
	ID       *int64
	IDs      []int64
	Address  *string
	DomainID domain.DomainScope
	UserID   *int64
	Language *string
	Target   *string
	UUID     *string
}

// ByAddress selects the link with the given address within a domain scope
func ByAddress(address string, scope domain.DomainScope) Filter {
	return Filter{Address: &address, DomainID: scope}
}

// ByID selects a single link by primary key
func ByID(id int64) Filter {
	return Filter{ID: &id}
}

// ByIDs selects every link whose primary key is listed. No ids matches nothing.
func ByIDs(ids ...int64) Filter {
	if ids == nil {
		ids = []int64{}
	}
	return Filter{IDs: ids}
}

// Match returns the bare-key form of the filter
func (f Filter) Match() Match {
	m := Match{}
	switch {
	case f.ID != nil && f.IDs != nil:
		// both must hold: the single id, or nothing when it is not listed
		if containsID(f.IDs, *f.ID) {
			m["id"] = *f.ID
		} else {
			m["id"] = []int64{}
		}
	case f.ID != nil:
		m["id"] = *f.ID
	case f.IDs != nil:
		m["id"] = f.IDs
	}
	if f.Address != nil {
		m["address"] = *f.Address
	}
	if f.DomainID.IsSet() {
		m["domain_id"] = f.DomainID.Value()
	}
	if f.UserID != nil {
		m["user_id"] = *f.UserID
	}
	if f.Language != nil {
		m["language"] = *f.Language
	}
	if f.Target != nil {
		m["target"] = *f.Target
	}
	if f.UUID != nil {
		m["uuid"] = *f.UUID
	}
	return m
}

// Normalized returns the table-qualified form of the filter
func (f Filter) Normalized() Match {
	return Normalize(f.Match())
}

// CacheKeyed reports whether the filter names both parts of a cache key
func (f Filter) CacheKeyed() bool {
	return f.Address != nil && f.DomainID.IsSet()
}

// HasTargetFields reports whether the filter constrains target columns
func (f Filter) HasTargetFields() bool {
	return f.Language != nil || f.Target != nil || f.UUID != nil
}

// IsEmpty reports whether the filter would match every link
func (f Filter) IsEmpty() bool {
	return len(f.Match()) == 0
}

// MatchesLink reports whether a link snapshot satisfies every link-level predicate of the filter
func (f Filter) MatchesLink(link *domain.Link) bool {
	if link == nil {
		return false
	}
	if f.ID != nil && *f.ID != link.ID {
		return false
	}
	if f.IDs != nil && !containsID(f.IDs, link.ID) {
		return false
	}
	if f.Address != nil && *f.Address != link.Address {
		return false
	}
	if !f.DomainID.Contains(link.DomainID) {
		return false
	}
	if f.UserID != nil && (link.UserID == nil || *f.UserID != *link.UserID) {
		return false
	}
	return true
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
