// Package store implements the upsert sink and the watermark queries
// the engine plans against. A Store created without a database URL is a
// dry store: every write is a no-op that still returns the count it
// would have written, so collectors can run safely with no
// infrastructure at all.
package store

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/quantfold/harvest/pkg/errors"
	"github.com/quantfold/harvest/pkg/models"
)

// Store persists canonical observations into PostgreSQL with upsert
// semantics. The zero-destination form (empty URL) is the dry mode the
// CLI and tests rely on.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// StoredRow is one persisted observation row read back for derived
// field computation. Absent value columns are omitted from Values.
type StoredRow struct {
	Date      time.Time
	Dimension string
	Values    map[string]float64
}

// New creates a store. An empty databaseURL yields a dry store; a
// non-empty URL is dialed and pinged immediately so storage problems
// surface before any fetch is attempted.
func New(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	if databaseURL == "" {
		logger.Info("no database URL provided, store running in dry mode")
		return &Store{logger: logger}, nil
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorageUnavailable, "failed to parse database URL")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeStorageUnavailable, "failed to reach database")
	}

	return &Store{pool: pool, logger: logger}, nil
}

// Dry reports whether the store has no destination configured
func (s *Store) Dry() bool {
	return s.pool == nil
}

// Ping verifies the destination is reachable. Dry stores are always
// reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.Dry() {
		return nil
	}
	if err := s.pool.Ping(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorageUnavailable, "database unreachable")
	}
	return nil
}

// Close releases the connection pool
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// MaxDate returns the most recent stored date in the table, or
// ok=false for an empty table. Dry stores always report empty.
func (s *Store) MaxDate(ctx context.Context, table, dateColumn string) (time.Time, bool, error) {
	if s.Dry() {
		return time.Time{}, false, nil
	}

	sql := "SELECT MAX(" + ident(dateColumn) + ") FROM " + ident(table)

	var max *time.Time
	if err := s.pool.QueryRow(ctx, sql).Scan(&max); err != nil {
		return time.Time{}, false, errors.Wrap(err, errors.ErrorTypeStorageUnavailable,
			"failed to query max date").WithDetail("table", table)
	}
	if max == nil {
		return time.Time{}, false, nil
	}
	return max.UTC(), true, nil
}

// MaxDatePerDimension returns the most recent stored date for each
// dimension value in the table. An empty map means an empty table.
func (s *Store) MaxDatePerDimension(ctx context.Context, table, dateColumn, dimensionColumn string) (map[string]time.Time, error) {
	if s.Dry() {
		return map[string]time.Time{}, nil
	}

	sql := "SELECT " + ident(dimensionColumn) + ", MAX(" + ident(dateColumn) + ") FROM " +
		ident(table) + " GROUP BY " + ident(dimensionColumn)

	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorageUnavailable,
			"failed to query per-dimension max dates").WithDetail("table", table)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var dim string
		var max time.Time
		if err := rows.Scan(&dim, &max); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeStorageUnavailable, "failed to scan watermark row")
		}
		out[dim] = max.UTC()
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorageUnavailable, "watermark query failed")
	}
	return out, nil
}

// ValuesSince reads back stored rows from `since` onward, for derived
// field computation. valueColumns that are NULL in a row are omitted
// from that row's Values map. Dry stores return no history.
func (s *Store) ValuesSince(ctx context.Context, table, dateColumn, dimensionColumn string, valueColumns []string, since time.Time) ([]StoredRow, error) {
	if s.Dry() {
		return nil, nil
	}

	cols := []string{ident(dateColumn)}
	if dimensionColumn != "" {
		cols = append(cols, ident(dimensionColumn))
	}
	for _, c := range valueColumns {
		cols = append(cols, ident(c))
	}

	sql := "SELECT " + strings.Join(cols, ", ") + " FROM " + ident(table) +
		" WHERE " + ident(dateColumn) + " >= $1 ORDER BY " + ident(dateColumn)

	rows, err := s.pool.Query(ctx, sql, since)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorageUnavailable,
			"failed to read back history").WithDetail("table", table)
	}
	defer rows.Close()

	var out []StoredRow
	for rows.Next() {
		row := StoredRow{Values: make(map[string]float64, len(valueColumns))}

		dest := make([]interface{}, 0, len(cols))
		dest = append(dest, &row.Date)
		var dim *string
		if dimensionColumn != "" {
			dest = append(dest, &dim)
		}
		vals := make([]*float64, len(valueColumns))
		for i := range vals {
			dest = append(dest, &vals[i])
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeStorageUnavailable, "failed to scan history row")
		}

		row.Date = row.Date.UTC()
		if dim != nil {
			row.Dimension = *dim
		}
		for i, v := range vals {
			if v != nil {
				row.Values[valueColumns[i]] = *v
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorageUnavailable, "history query failed")
	}
	return out, nil
}

// UpsertBatch describes one transactional upsert of observations into
// a destination table.
type UpsertBatch struct {
	Table           string
	DateColumn      string
	DimensionColumn string
	Rows            []*models.Observation
}

// Upsert writes the batch inside a single transaction: insert new
// rows, and on key conflict update value and derived columns plus
// updated_at, leaving created_at untouched. A failure rolls the whole
// batch back. Dry stores return the would-be count without touching
// anything.
func (s *Store) Upsert(ctx context.Context, batch UpsertBatch) (int, error) {
	if len(batch.Rows) == 0 {
		return 0, nil
	}
	if s.Dry() {
		s.logger.Info("dry mode, skipping storage",
			zap.String("table", batch.Table),
			zap.Int("records", len(batch.Rows)))
		return len(batch.Rows), nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeStorageUnavailable, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	pgBatch := &pgx.Batch{}
	for _, obs := range batch.Rows {
		sql, args := buildUpsert(batch, obs)
		pgBatch.Queue(sql, args...)
	}

	results := tx.SendBatch(ctx, pgBatch)
	for range batch.Rows {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return 0, errors.Wrap(err, errors.ErrorTypeStorageUnavailable,
				"upsert failed").WithDetail("table", batch.Table)
		}
	}
	if err := results.Close(); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeStorageUnavailable, "failed to close batch")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeStorageUnavailable, "failed to commit batch")
	}

	return len(batch.Rows), nil
}

// buildUpsert renders one row's INSERT ... ON CONFLICT statement.
// Column order is sorted so statements are stable across runs.
func buildUpsert(batch UpsertBatch, obs *models.Observation) (string, []interface{}) {
	columns := []string{batch.DateColumn}
	args := []interface{}{obs.Date}

	if batch.DimensionColumn != "" {
		columns = append(columns, batch.DimensionColumn)
		args = append(args, obs.Dimension)
	}

	conflictCount := len(columns)

	for _, c := range sortedKeys(obs.Values) {
		columns = append(columns, c)
		args = append(args, obs.Values[c])
	}
	for _, c := range sortedKeys(obs.Derived) {
		columns = append(columns, c)
		args = append(args, obs.Derived[c])
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(ident(batch.Table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ident(c))
	}
	b.WriteString(", updated_at) VALUES (")
	for i := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("$" + strconv.Itoa(i+1))
	}
	b.WriteString(", CURRENT_TIMESTAMP) ON CONFLICT (")
	for i := 0; i < conflictCount; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ident(columns[i]))
	}
	b.WriteString(") DO UPDATE SET ")
	first := true
	for _, c := range columns[conflictCount:] {
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(ident(c))
		b.WriteString(" = EXCLUDED.")
		b.WriteString(ident(c))
	}
	if !first {
		b.WriteString(", ")
	}
	b.WriteString("updated_at = CURRENT_TIMESTAMP")

	return b.String(), args
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
