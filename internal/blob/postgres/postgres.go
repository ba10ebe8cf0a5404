// Package postgres stores blobs in a PostgreSQL table:
//
//	blobs(key text primary key, body bytea not null, updated_at timestamptz)
package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/agentstation/speakerpool/pkg/blob"
	"github.com/agentstation/speakerpool/pkg/errors"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "blobs"

// undefinedTable is the SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// Store is a blob gateway on a PostgreSQL table.
type Store struct {
	DB    *sql.DB
	table string
}

var (
	_ blob.Gateway      = (*Store)(nil)
	_ blob.AssetGateway = (*Store)(nil)
)

// New wraps an open database. An empty table name selects DefaultTable.
func New(db *sql.DB, table string) *Store {
	if table == "" {
		table = DefaultTable
	}
	return &Store{DB: db, table: pq.QuoteIdentifier(table)}
}

// Open connects with a lib/pq DSN and verifies the connection.
func Open(ctx context.Context, dsn, table string) (*Store, error) {
	if dsn == "" {
		return nil, errors.NewConfigError("postgres", "storage.dsn is required", nil)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.NewConfigError("postgres", "invalid dsn", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.WrapResource("connect", "database", "postgres", err)
	}
	return New(db, table), nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// EnsureSchema creates the table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        text PRIMARY KEY,
			body       bytea NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		)
	`, s.table)
	if _, err := s.DB.ExecContext(ctx, query); err != nil {
		return errors.WrapResource("create", "table", s.table, err)
	}
	return nil
}

// Get returns the body stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT body FROM %s WHERE key = $1`, s.table)
	var body []byte
	err := s.DB.QueryRowContext(ctx, query, key).Scan(&body)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("object", key)
	}
	if err != nil {
		return nil, s.wrap("get", key, err)
	}
	return body, nil
}

// Put inserts or replaces the body under key.
func (s *Store) Put(ctx context.Context, key string, body []byte) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, body, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET body = EXCLUDED.body, updated_at = now()
	`, s.table)
	if body == nil {
		body = []byte{}
	}
	if _, err := s.DB.ExecContext(ctx, query, key, body); err != nil {
		return s.wrap("put", key, err)
	}
	return nil
}

// List returns the keys starting with prefix, ordered by key.
func (s *Store) List(ctx context.Context, prefix string) ([]blob.Object, error) {
	query := fmt.Sprintf(`SELECT key FROM %s WHERE key LIKE $1 ESCAPE '\' ORDER BY key`, s.table)
	rows, err := s.DB.QueryContext(ctx, query, likePrefix(prefix))
	if err != nil {
		return nil, s.wrap("list", prefix, err)
	}
	defer rows.Close()

	var out []blob.Object
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, s.wrap("list", prefix, err)
		}
		out = append(out, blob.Object{Name: key})
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("list", prefix, err)
	}
	return out, nil
}

// GetAsset implements blob.AssetGateway.
func (s *Store) GetAsset(ctx context.Context, key string) ([]byte, error) {
	return s.Get(ctx, key)
}

// PutAsset implements blob.AssetGateway.
func (s *Store) PutAsset(ctx context.Context, key string, body []byte) error {
	return s.Put(ctx, key, body)
}

func (s *Store) wrap(op, key string, err error) error {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) && string(pqErr.Code) == undefinedTable {
		return errors.NewConfigError("postgres", "table "+s.table+" does not exist, run with storage.migrate", err)
	}
	return errors.WrapResource(op, "object", key, err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePrefix turns a literal prefix into a LIKE pattern.
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
