package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DomainScope is a tri-state domain reference: unset, the default domain (NULL), or a concrete domain id.
// The zero value is unset.
type DomainScope struct {
	set bool
	id  *int64
}

// AnyDomain leaves the domain unconstrained
func AnyDomain() DomainScope {
	return DomainScope{}
}

// DefaultDomain selects links that have no custom domain
func DefaultDomain() DomainScope {
	return DomainScope{set: true}
}

// InDomain selects links on the given custom domain
func InDomain(id int64) DomainScope {
	return DomainScope{set: true, id: &id}
}

// ScopeOf converts a nullable domain id into a set scope
func ScopeOf(id *int64) DomainScope {
	if id == nil {
		return DefaultDomain()
	}
	return InDomain(*id)
}

// IsSet reports whether the scope constrains the domain at all
func (s DomainScope) IsSet() bool {
	return s.set
}

// ID returns the domain id, or nil for the default domain
func (s DomainScope) ID() *int64 {
	if s.id == nil {
		return nil
	}
	id := *s.id
	return &id
}

// Value returns the value stored in the domain_id column: nil for the default domain
func (s DomainScope) Value() any {
	if s.id == nil {
		return nil
	}
	return *s.id
}

// Contains reports whether a link with the given domain id falls within the scope
func (s DomainScope) Contains(id *int64) bool {
	if !s.set {
		return true
	}
	if s.id == nil || id == nil {
		return s.id == nil && id == nil
	}
	return *s.id == *id
}

// MarshalJSON writes the default domain as null and a custom domain as its id.
// Use the omitzero tag option to leave an unset scope out.
func (s DomainScope) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.id)
}

// UnmarshalJSON sets the scope from null or a domain id. A missing key leaves it unset.
func (s *DomainScope) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = DefaultDomain()
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("domain id must be a number or null: %w", err)
	}
	*s = InDomain(id)
	return nil
}
