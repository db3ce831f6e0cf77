package sqlstore

import (
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const sqliteTimeLayout = "2006-01-02 15:04:05.999999999-07:00"

// Dialect captures the SQL differences between supported backends
type Dialect struct {
	// Name selects the migration set
	Name string
	// Driver is the database/sql driver name
	Driver string
	// Placeholder is the bind parameter style
	Placeholder sq.PlaceholderFormat
	// LikeOperator performs a case-insensitive substring match
	LikeOperator string
	// Returning reports whether INSERT ... RETURNING yields the full row.
	// Without it the store reads back the row by its generated id.
	Returning bool
}

var (
	// SQLite uses mattn/go-sqlite3. LIKE is case-insensitive for ASCII.
	SQLite = Dialect{
		Name:         "sqlite",
		Driver:       "sqlite3",
		Placeholder:  sq.Question,
		LikeOperator: "LIKE",
	}

	// SQLitePure uses the cgo-free modernc.org/sqlite driver with the same schema
	SQLitePure = Dialect{
		Name:         "sqlite",
		Driver:       "sqlite",
		Placeholder:  sq.Question,
		LikeOperator: "LIKE",
	}

	// LibSQL talks to a libsql/Turso server with the sqlite schema
	LibSQL = Dialect{
		Name:         "sqlite",
		Driver:       "libsql",
		Placeholder:  sq.Question,
		LikeOperator: "LIKE",
	}

	// Postgres uses the pgx database/sql driver
	Postgres = Dialect{
		Name:         "postgres",
		Driver:       "pgx",
		Placeholder:  sq.Dollar,
		LikeOperator: "ILIKE",
		Returning:    true,
	}
)

// ParseDialect maps a DB_CLIENT value to a dialect
func ParseDialect(client string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(client)) {
	case "pg", "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3", "better-sqlite3":
		return SQLite, nil
	case "sqlite-pure", "modernc":
		return SQLitePure, nil
	case "libsql", "turso":
		return LibSQL, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database client %q", client)
	}
}

// concat joins columns with single spaces, treating NULL as empty
func (d Dialect) concat(columns ...string) string {
	if d.Name == Postgres.Name {
		return "concat_ws(' ', " + strings.Join(columns, ", ") + ")"
	}
	parts := make([]string, len(columns))
	for i, column := range columns {
		parts[i] = "COALESCE(" + column + ", '')"
	}
	return strings.Join(parts, " || ' ' || ")
}

// search builds a case-insensitive substring predicate over columns
func (d Dialect) search(term string, columns ...string) sq.Sqlizer {
	return sq.Expr(d.concat(columns...)+" "+d.LikeOperator+" ?", "%"+term+"%")
}

// timeValue converts a timestamp into the value bound for a timestamp column
func (d Dialect) timeValue(t time.Time) any {
	if d.Name == SQLite.Name {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}
