package sqlstore

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/martinhantha/kutt/internal/metrics"
	"github.com/martinhantha/kutt/internal/shortener"
)

// ReserveCounter advances the named counter by n and returns its new value
func (r *Repository) ReserveCounter(ctx context.Context, key string, n int64) (int64, error) {
	const op = "repository.ReserveCounter"
	defer metrics.ObserveStore("reserve_counter", time.Now())

	var value int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := r.dialect.timeValue(r.now())
		upsert := r.builder.Insert("counters").
			Columns("key", "value", "updated_at").
			Values(key, n, now).
			Suffix("ON CONFLICT (key) DO UPDATE SET value = counters.value + excluded.value, updated_at = excluded.updated_at")
		if _, err := r.exec(ctx, tx, upsert); err != nil {
			return err
		}

		sqlStr, args, err := r.builder.Select("value").From("counters").Where(sq.Eq{"key": key}).ToSql()
		if err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, sqlStr, args...).Scan(&value)
	})
	if err != nil {
		return 0, mapError(op, err)
	}
	return value, nil
}

// Ensure Repository can back address generation
var _ shortener.CounterStore = (*Repository)(nil)
