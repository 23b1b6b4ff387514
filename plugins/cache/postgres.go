package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

// DefaultTableName is the table used when no custom name is provided.
const DefaultTableName = "hookgrid_cache"

const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
    key         TEXT PRIMARY KEY,
    node_id     TEXT NOT NULL,
    output      JSONB,
    tokens_used BIGINT NOT NULL DEFAULT 0,
    stored_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Querier is the subset of pgx used by PostgresStore. *pgxpool.Pool and
// pgx.Tx both satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is a Store backed by one PostgreSQL table. Outputs are kept
// as JSONB, so numbers read back as float64 and structs as maps.
type PostgresStore struct {
	db        Querier
	tableName string
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithTableName overrides DefaultTableName. The name is sanitized with
// pgx.Identifier.
func WithTableName(name string) PostgresOption {
	return func(s *PostgresStore) {
		s.tableName = pgx.Identifier{name}.Sanitize()
	}
}

// NewPostgresStore returns a store using db.
func NewPostgresStore(db Querier, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, tableName: DefaultTableName}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSchema creates the cache table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, fmt.Sprintf(createTableSQL, s.tableName)); err != nil {
		return errors.Wrap(err, "cache: create table")
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	query := fmt.Sprintf(`SELECT node_id, output, tokens_used, stored_at FROM %s WHERE key = $1`, s.tableName)

	var (
		e   Entry
		raw []byte
	)
	err := s.db.QueryRow(ctx, query, key).Scan(&e.NodeID, &raw, &e.TokensUsed, &e.StoredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, errors.Wrap(err, "cache: get")
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &e.Output); err != nil {
			return Entry{}, false, errors.Wrapf(err, "cache: decode output of '%s'", e.NodeID)
		}
	}
	return e, true, nil
}

// Put implements Store. An existing entry for key is replaced.
func (s *PostgresStore) Put(ctx context.Context, key string, e Entry) error {
	raw, err := json.Marshal(e.Output)
	if err != nil {
		return errors.Wrapf(err, "cache: encode output of '%s'", e.NodeID)
	}
	if e.StoredAt.IsZero() {
		e.StoredAt = time.Now().UTC()
	}

	query := fmt.Sprintf(`INSERT INTO %s (key, node_id, output, tokens_used, stored_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE SET
			output = EXCLUDED.output,
			tokens_used = EXCLUDED.tokens_used,
			stored_at = EXCLUDED.stored_at`, s.tableName)

	if _, err := s.db.Exec(ctx, query, key, e.NodeID, raw, e.TokensUsed, e.StoredAt); err != nil {
		return errors.Wrap(err, "cache: put")
	}
	return nil
}
