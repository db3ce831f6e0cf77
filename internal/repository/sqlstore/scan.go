package sqlstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/martinhantha/kutt/internal/domain"
)

var linkColumns = []string{
	"links.id",
	"links.address",
	"links.domain_id",
	"domains.address",
	"links.user_id",
	"links.target",
	"links.language",
	"links.description",
	"links.password",
	"links.visit_count",
	"links.created_at",
	"links.updated_at",
}

var targetColumns = []string{
	"targets.id",
	"targets.uuid",
	"targets.link_id",
	"targets.language",
	"targets.target",
	"targets.created_at",
	"targets.updated_at",
}

// returningTargetColumns are the unqualified columns read back after an insert
const returningTargetColumns = "id, uuid, link_id, language, target, created_at, updated_at"

var timestampLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// timestamp scans time columns that drivers hand back either as time.Time or as text
type timestamp struct {
	time.Time
}

func (ts *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		ts.Time = v.UTC()
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	case nil:
		ts.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (ts *timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLink(row scanner) (*domain.Link, error) {
	var (
		link          domain.Link
		domainID      sql.NullInt64
		domainAddress sql.NullString
		userID        sql.NullInt64
		language      sql.NullString
		description   sql.NullString
		password      sql.NullString
		createdAt     timestamp
		updatedAt     timestamp
	)

	err := row.Scan(
		&link.ID,
		&link.Address,
		&domainID,
		&domainAddress,
		&userID,
		&link.Target,
		&language,
		&description,
		&password,
		&link.VisitCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	link.DomainID = int64Ptr(domainID)
	link.DomainAddress = stringPtr(domainAddress)
	link.UserID = int64Ptr(userID)
	link.Language = stringPtr(language)
	link.Description = stringPtr(description)
	link.Password = password.String
	link.CreatedAt = createdAt.Time
	link.UpdatedAt = updatedAt.Time

	return &link, nil
}

func scanTarget(row scanner) (*domain.Target, error) {
	var (
		target    domain.Target
		linkID    sql.NullInt64
		language  sql.NullString
		createdAt timestamp
		updatedAt timestamp
	)

	if err := row.Scan(&target.ID, &target.UUID, &linkID, &language, &target.Target, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	target.LinkID = int64Ptr(linkID)
	target.Language = stringPtr(language)
	target.CreatedAt = createdAt.Time
	target.UpdatedAt = updatedAt.Time

	return &target, nil
}

func scanTargetRow(row scanner) (*domain.TargetRow, error) {
	var (
		result    domain.TargetRow
		linkID    sql.NullInt64
		language  sql.NullString
		createdAt timestamp
		updatedAt timestamp
		address   sql.NullString
		domainID  sql.NullInt64
	)

	err := row.Scan(
		&result.ID,
		&result.UUID,
		&linkID,
		&language,
		&result.Target.Target,
		&createdAt,
		&updatedAt,
		&address,
		&domainID,
	)
	if err != nil {
		return nil, err
	}

	result.LinkID = int64Ptr(linkID)
	result.Language = stringPtr(language)
	result.CreatedAt = createdAt.Time
	result.UpdatedAt = updatedAt.Time
	result.Address = stringPtr(address)
	result.DomainID = int64Ptr(domainID)

	return &result, nil
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
