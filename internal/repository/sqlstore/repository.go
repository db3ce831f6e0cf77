package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"                   // Postgres driver
	_ "github.com/mattn/go-sqlite3"                      // Local SQLite driver
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/martinhantha/kutt/internal/domain"
	"github.com/martinhantha/kutt/internal/errx"
	"github.com/martinhantha/kutt/internal/filter"
	"github.com/martinhantha/kutt/internal/metrics"
	"github.com/martinhantha/kutt/internal/repository"
)

// DefaultHashCost is the bcrypt cost applied to link passwords
const DefaultHashCost = 12

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository implements repository.LinkRepository on a relational database
type Repository struct {
	db       *sql.DB
	dialect  Dialect
	builder  sq.StatementBuilderType
	now      func() time.Time
	hashCost int
}

// Option configures a Repository
type Option func(*Repository)

// WithClock replaces the time source used for created_at/updated_at
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// WithHashCost overrides the bcrypt cost used for link passwords
func WithHashCost(cost int) Option {
	return func(r *Repository) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			r.hashCost = cost
		}
	}
}

// Open connects to the database without running migrations
func Open(ctx context.Context, dialect Dialect, dsn string, opts ...Option) (*Repository, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &Repository{
		db:       db,
		dialect:  dialect,
		builder:  sq.StatementBuilder.PlaceholderFormat(dialect.Placeholder),
		now:      time.Now,
		hashCost: DefaultHashCost,
	}
	for _, opt := range opts {
		opt(repo)
	}

	return repo, nil
}

// New connects to the database and applies pending migrations
func New(ctx context.Context, dialect Dialect, dsn string, opts ...Option) (*Repository, error) {
	repo, err := Open(ctx, dialect, dsn, opts...)
	if err != nil {
		return nil, err
	}

	if err := repo.Migrate(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

// Dialect returns the SQL dialect in use
func (r *Repository) Dialect() Dialect {
	return r.dialect
}

// Count returns the number of links matching f
func (r *Repository) Count(ctx context.Context, f filter.Filter, params domain.SearchParams) (int64, error) {
	const op = "repository.Count"
	defer metrics.ObserveStore("count", time.Now())

	match := f.Normalized()
	query := r.joinLinkTables(r.builder.Select("COUNT(DISTINCT links.id)").From("links"), match)
	query = where(query, match)
	if params.Search != "" {
		query = query.Where(r.dialect.search(params.Search,
			"links.description", "links.address", "links.target", "domains.address"))
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, errx.E(op, errx.Internal, err)
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, mapError(op, err)
	}
	return count, nil
}

// List returns targets joined with their links ordered by descending target id
func (r *Repository) List(ctx context.Context, f filter.Filter, params domain.ListParams) ([]*domain.TargetRow, error) {
	const op = "repository.List"
	defer metrics.ObserveStore("list", time.Now())

	match := f.Normalized()
	columns := append(append([]string{}, targetColumns...), "links.address", "links.domain_id")
	query := r.builder.Select(columns...).
		From("targets").
		LeftJoin("links ON links.id = targets.link_id").
		LeftJoin("domains ON domains.id = links.domain_id").
		OrderBy("targets.id DESC")
	query = where(query, match)

	if params.Search != "" {
		query = query.Where(r.dialect.search(params.Search,
			"targets.language", "targets.target", "links.address", "links.description", "domains.address"))
	}
	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	} else if params.Skip > 0 {
		// OFFSET requires LIMIT on sqlite
		query = query.Limit(math.MaxInt64)
	}
	if params.Skip > 0 {
		query = query.Offset(params.Skip)
	}

	rows, err := r.query(ctx, r.db, query)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	var result []*domain.TargetRow
	for rows.Next() {
		row, err := scanTargetRow(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}

	return result, nil
}

// FindOne returns the first link matching f, or nil when none does
func (r *Repository) FindOne(ctx context.Context, f filter.Filter) (*domain.Link, error) {
	const op = "repository.FindOne"
	defer metrics.ObserveStore("find_one", time.Now())

	link, err := r.findOne(ctx, r.db, f)
	if err != nil {
		return nil, mapError(op, err)
	}
	return link, nil
}

// Select returns every link matching f ordered by id
func (r *Repository) Select(ctx context.Context, f filter.Filter) ([]*domain.Link, error) {
	const op = "repository.Select"
	defer metrics.ObserveStore("select", time.Now())

	links, err := r.selectLinks(ctx, r.db, f)
	if err != nil {
		return nil, mapError(op, err)
	}
	return links, nil
}

// CreateTarget inserts a target attached to linkID, which may be nil
func (r *Repository) CreateTarget(ctx context.Context, params domain.TargetParams, linkID *int64) (*domain.Target, error) {
	const op = "repository.CreateTarget"
	defer metrics.ObserveStore("create_target", time.Now())

	target, err := r.insertTarget(ctx, r.db, params, linkID)
	if err != nil {
		return nil, mapError(op, err)
	}
	return target, nil
}

// CreateLink inserts a link and its first target in one transaction
func (r *Repository) CreateLink(ctx context.Context, params domain.CreateLinkParams) (*domain.Link, error) {
	const op = "repository.CreateLink"
	defer metrics.ObserveStore("create_link", time.Now())

	var password any
	if params.Password != nil {
		hashed, err := r.hashPassword(*params.Password)
		if err != nil {
			return nil, errx.E(op, errx.Internal, err)
		}
		password = hashed
	}

	var id int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := r.dialect.timeValue(r.now())
		insert := r.builder.Insert("links").
			Columns("address", "domain_id", "user_id", "target", "language", "description", "password", "visit_count", "created_at", "updated_at").
			Values(params.Address, params.DomainID, params.UserID, params.Target, params.Language, params.Description, password, 0, now, now)

		var err error
		id, err = r.insertID(ctx, tx, insert)
		if err != nil {
			return err
		}

		_, err = r.insertTarget(ctx, tx, domain.TargetParams{
			Language: params.Language,
			Target:   params.Target,
		}, &id)
		return err
	})
	if err != nil {
		return nil, mapError(op, err)
	}

	link, err := r.findOne(ctx, r.db, filter.ByID(id))
	if err != nil {
		return nil, mapError(op, err)
	}
	if link == nil {
		return nil, errx.E(op, errx.Internal, fmt.Errorf("link %d vanished after insert", id))
	}
	return link, nil
}

// Remove deletes the single link matching f. Its targets are removed by cascade.
func (r *Repository) Remove(ctx context.Context, f filter.Filter) (*domain.RemoveResult, error) {
	const op = "repository.Remove"
	defer metrics.ObserveStore("remove", time.Now())

	link, err := r.findOne(ctx, r.db, f)
	if err != nil {
		return nil, mapError(op, err)
	}
	if link == nil {
		return &domain.RemoveResult{
			Removed: false,
			Error:   errx.E(op, errx.NotFound, ErrLinkNotFound),
			Link:    nil,
		}, nil
	}

	affected, err := r.exec(ctx, r.db, r.builder.Delete("links").Where(sq.Eq{"id": link.ID}))
	if err != nil {
		return nil, mapError(op, err)
	}
	if affected == 0 {
		// deleted concurrently between the lookup and the delete
		return &domain.RemoveResult{
			Removed: false,
			Error:   errx.E(op, errx.NotFound, ErrLinkNotFound),
			Link:    link,
		}, nil
	}

	return &domain.RemoveResult{
		Removed:  true,
		Affected: affected,
		Link:     link,
	}, nil
}

// BatchRemove deletes every link matching f. The returned rows are captured
// inside the same transaction before the delete runs.
func (r *Repository) BatchRemove(ctx context.Context, f filter.Filter) (*domain.BatchRemoveResult, error) {
	const op = "repository.BatchRemove"
	defer metrics.ObserveStore("batch_remove", time.Now())

	result := &domain.BatchRemoveResult{}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		links, err := r.selectLinks(ctx, tx, f)
		if err != nil {
			return err
		}
		result.Links = links
		if len(links) == 0 {
			return nil
		}

		affected, err := r.exec(ctx, tx, r.builder.Delete("links").Where(sq.Eq{"id": linkIDs(links)}))
		if err != nil {
			return err
		}
		result.Affected = affected
		result.Removed = affected > 0
		return nil
	})
	if err != nil {
		return nil, mapError(op, err)
	}

	return result, nil
}

// Update applies patch to every link matching f, stamping updated_at, and
// returns the rows re-read by id so links whose address changed are included.
func (r *Repository) Update(ctx context.Context, f filter.Filter, patch domain.LinkPatch) ([]*domain.Link, error) {
	const op = "repository.Update"
	defer metrics.ObserveStore("update", time.Now())

	set, err := r.patchColumns(patch)
	if err != nil {
		return nil, errx.E(op, errx.Internal, err)
	}

	var updated []*domain.Link
	err = r.withTx(ctx, func(tx *sql.Tx) error {
		ids, err := r.selectIDs(ctx, tx, f)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		if _, err := r.exec(ctx, tx, r.builder.Update("links").SetMap(set).Where(sq.Eq{"id": ids})); err != nil {
			return err
		}

		updated, err = r.selectLinks(ctx, tx, filter.ByIDs(ids...))
		return err
	})
	if err != nil {
		return nil, mapError(op, err)
	}

	return updated, nil
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return mapError("repository.Ping", err)
	}
	return nil
}

// Close closes the repository connection
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) patchColumns(patch domain.LinkPatch) (map[string]any, error) {
	set := map[string]any{
		"updated_at": r.dialect.timeValue(r.now()),
	}
	if patch.Address != nil {
		set["address"] = *patch.Address
	}
	if patch.DomainID.IsSet() {
		set["domain_id"] = patch.DomainID.Value()
	}
	if patch.Target != nil {
		set["target"] = *patch.Target
	}
	if patch.Language != nil {
		set["language"] = *patch.Language
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Password != nil {
		hashed, err := r.hashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		set["password"] = hashed
	}
	return set, nil
}

func (r *Repository) hashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), r.hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// joinLinkTables adds the joins a link query needs for the given match
func (r *Repository) joinLinkTables(query sq.SelectBuilder, match filter.Match) sq.SelectBuilder {
	query = query.LeftJoin("domains ON domains.id = links.domain_id")
	if match.ReferencesTable("targets") {
		query = query.LeftJoin("targets ON targets.link_id = links.id")
	}
	return query
}

func (r *Repository) linkQuery(match filter.Match) sq.SelectBuilder {
	query := r.joinLinkTables(r.builder.Select(linkColumns...).From("links"), match)
	if match.ReferencesTable("targets") {
		query = query.Distinct()
	}
	return where(query, match).OrderBy("links.id")
}

func (r *Repository) findOne(ctx context.Context, q querier, f filter.Filter) (*domain.Link, error) {
	sqlStr, args, err := r.linkQuery(f.Normalized()).Limit(1).ToSql()
	if err != nil {
		return nil, err
	}

	link, err := scanLink(q.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (r *Repository) selectLinks(ctx context.Context, q querier, f filter.Filter) ([]*domain.Link, error) {
	rows, err := r.query(ctx, q, r.linkQuery(f.Normalized()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*domain.Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (r *Repository) selectIDs(ctx context.Context, q querier, f filter.Filter) ([]int64, error) {
	match := f.Normalized()
	query := r.joinLinkTables(r.builder.Select("links.id").From("links"), match)
	if match.ReferencesTable("targets") {
		query = query.Distinct()
	}

	rows, err := r.query(ctx, q, where(query, match).OrderBy("links.id"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) insertTarget(ctx context.Context, q querier, params domain.TargetParams, linkID *int64) (*domain.Target, error) {
	id := params.UUID
	if id == "" {
		id = uuid.NewString()
	}
	now := r.dialect.timeValue(r.now())

	insert := r.builder.Insert("targets").
		Columns("uuid", "link_id", "language", "target", "created_at", "updated_at").
		Values(id, linkID, params.Language, params.Target, now, now)

	if r.dialect.Returning {
		sqlStr, args, err := insert.Suffix("RETURNING " + returningTargetColumns).ToSql()
		if err != nil {
			return nil, err
		}
		return scanTarget(q.QueryRowContext(ctx, sqlStr, args...))
	}

	// The driver only reports the generated id, so read the row back
	targetID, err := r.insertID(ctx, q, insert)
	if err != nil {
		return nil, err
	}

	sqlStr, args, err := r.builder.Select(targetColumns...).
		From("targets").
		Where(sq.Eq{"targets.id": targetID}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanTarget(q.QueryRowContext(ctx, sqlStr, args...))
}

// insertID runs an insert and returns the generated primary key
func (r *Repository) insertID(ctx context.Context, q querier, insert sq.InsertBuilder) (int64, error) {
	if r.dialect.Returning {
		sqlStr, args, err := insert.Suffix("RETURNING id").ToSql()
		if err != nil {
			return 0, err
		}
		var id int64
		err = q.QueryRowContext(ctx, sqlStr, args...).Scan(&id)
		return id, err
	}

	sqlStr, args, err := insert.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := q.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repository) query(ctx context.Context, q querier, query sq.SelectBuilder) (*sql.Rows, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	return q.QueryContext(ctx, sqlStr, args...)
}

func (r *Repository) exec(ctx context.Context, q querier, stmt sq.Sqlizer) (int64, error) {
	sqlStr, args, err := stmt.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := q.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func where(query sq.SelectBuilder, match filter.Match) sq.SelectBuilder {
	if len(match) == 0 {
		return query
	}
	return query.Where(sq.Eq(match))
}

func linkIDs(links []*domain.Link) []int64 {
	ids := make([]int64, len(links))
	for i, link := range links {
		ids[i] = link.ID
	}
	return ids
}

// Ensure Repository implements the interface
var _ repository.LinkRepository = (*Repository)(nil)
