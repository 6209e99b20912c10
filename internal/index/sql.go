package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// dialect holds the statements that differ between SQL engines.
type dialect struct {
	driver string
	create string
	get    string
	upsert string
}

var postgresDialect = dialect{
	driver: "postgres",
	create: `CREATE TABLE IF NOT EXISTS gallery_index (
		index_key   TEXT PRIMARY KEY,
		index_value BYTEA NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	get: `SELECT index_value FROM gallery_index WHERE index_key = $1`,
	upsert: `
		INSERT INTO gallery_index (index_key, index_value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (index_key) DO UPDATE SET
			index_value = EXCLUDED.index_value,
			updated_at = EXCLUDED.updated_at
	`,
}

var sqliteDialect = dialect{
	driver: "sqlite",
	create: `CREATE TABLE IF NOT EXISTS gallery_index (
		index_key   TEXT PRIMARY KEY,
		index_value BLOB NOT NULL,
		updated_at  TIMESTAMP NOT NULL
	)`,
	get: `SELECT index_value FROM gallery_index WHERE index_key = ?`,
	upsert: `
		INSERT INTO gallery_index (index_key, index_value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (index_key) DO UPDATE SET
			index_value = excluded.index_value,
			updated_at = excluded.updated_at
	`,
}

// SQL is a Store backed by a single table in a database/sql database.
type SQL struct {
	db      *sql.DB
	dialect dialect
}

// OpenPostgres connects to postgres with connStr and ensures the index table exists.
func OpenPostgres(connStr string) (*SQL, error) {
	if connStr == "" {
		return nil, errors.New("index: postgres DSN is required")
	}
	db, err := sql.Open(postgresDialect.driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return newSQL(db, postgresDialect)
}

// OpenSQLite opens the sqlite file at path and ensures the index table exists.
func OpenSQLite(path string) (*SQL, error) {
	if path == "" {
		return nil, errors.New("index: sqlite file path is required")
	}
	db, err := sql.Open(sqliteDialect.driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	return newSQL(db, sqliteDialect)
}

func newSQL(db *sql.DB, d dialect) (*SQL, error) {
	if _, err := db.Exec(d.create); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index table: %w", err)
	}
	return &SQL{db: db, dialect: d}, nil
}

func (s *SQL) Get(ctx context.Context, key string) ([]byte, error) {
	var val []byte
	err := s.db.QueryRowContext(ctx, s.dialect.get, key).Scan(&val)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (s *SQL) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, s.dialect.upsert, key, value, time.Now().UTC())
	return err
}

func (s *SQL) Close() error {
	return s.db.Close()
}
