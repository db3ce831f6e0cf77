package domain

import (
	"time"
)

// MaxTargetLength is the longest destination URL the store accepts
const MaxTargetLength = 2040

// Link represents a short address mapped to a destination, optionally scoped to a custom domain
type Link struct {
	ID            int64     `json:"id"`
	Address       string    `json:"address"`
	DomainID      *int64    `json:"domain_id"`
	DomainAddress *string   `json:"domain,omitempty"`
	UserID        *int64    `json:"user_id,omitempty"`
	Target        string    `json:"target"`
	Language      *string   `json:"language,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Password      string    `json:"password,omitempty"` // bcrypt hash, never the plain value
	VisitCount    int64     `json:"visit_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Target is a per-language destination attached to a link
type Target struct {
	ID        int64     `json:"id"`
	UUID      string    `json:"uuid"`
	LinkID    *int64    `json:"link_id"`
	Language  *string   `json:"language,omitempty"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TargetRow is a target joined with the link that owns it
type TargetRow struct {
	Target
	Address  *string `json:"address"`
	DomainID *int64  `json:"domain_id"`
}

// TargetParams holds the fields accepted when inserting a target
type TargetParams struct {
	UUID     string
	Language *string
	Target   string
}

// CreateLinkParams holds the fields accepted when creating a link together with its first target
type CreateLinkParams struct {
	Address     string
	DomainID    *int64
	UserID      *int64
	Target      string
	Language    *string
	Description *string
	Password    *string
}

// LinkPatch describes a partial update. Nil fields are left untouched.
type LinkPatch struct {
	Address     *string
	DomainID    DomainScope
	Target      *string
	Language    *string
	Description *string
	Password    *string
}

// TouchesCacheKey reports whether the patch changes a field that participates in the cache key
func (p LinkPatch) TouchesCacheKey() bool {
	return p.Address != nil || p.DomainID.IsSet()
}

// IsEmpty reports whether the patch changes nothing
func (p LinkPatch) IsEmpty() bool {
	return !p.TouchesCacheKey() && p.Target == nil && p.Language == nil &&
		p.Description == nil && p.Password == nil
}

// SearchParams narrows counts by a free-text search
type SearchParams struct {
	Search string
}

// ListParams paginates and optionally searches a listing
type ListParams struct {
	Skip   uint64
	Limit  uint64
	Search string
}

// RemoveResult reports the outcome of removing a single link.
// A missing link is not an error: Removed is false and Error describes why.
type RemoveResult struct {
	Removed  bool
	Affected int64
	Error    error
	Link     *Link
}

// BatchRemoveResult reports the outcome of removing every link matching a filter
type BatchRemoveResult struct {
	Removed  bool
	Affected int64
	Links    []*Link
}

// CreateLinkRequest is the JSON body accepted when creating a link
type CreateLinkRequest struct {
	Address     string  `json:"address"`
	DomainID    *int64  `json:"domain_id"`
	Target      string  `json:"target"`
	Language    *string `json:"language"`
	Description *string `json:"description"`
	Password    *string `json:"password"`
}

// UpdateLinkRequest is the JSON body accepted when editing a link
type UpdateLinkRequest struct {
	Address     *string     `json:"address"`
	DomainID    DomainScope `json:"domain_id,omitzero"`
	Target      *string     `json:"target"`
	Language    *string     `json:"language"`
	Description *string     `json:"description"`
	Password    *string     `json:"password"`
}

// BatchDeleteRequest is the JSON body accepted when deleting several links at once
type BatchDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

// ListLinksResponse is the JSON body returned by the link listing
type ListLinksResponse struct {
	Total int64        `json:"total"`
	Skip  uint64       `json:"skip"`
	Limit uint64       `json:"limit"`
	Data  []*TargetRow `json:"data"`
}
