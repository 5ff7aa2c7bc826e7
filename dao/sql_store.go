package dao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

const (
	recordsTable        = "dormscout_records"
	sqlOperationTimeout = 5 * time.Second
)

type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

type sqlStatements struct {
	schema string
	get    string
	upsert string
	delete string
}

func statementsFor(d Dialect) (sqlStatements, error) {
	switch d {
	case DialectMySQL:
		return sqlStatements{
			schema: `CREATE TABLE IF NOT EXISTS ` + recordsTable + ` (
				record_key VARCHAR(191) PRIMARY KEY,
				payload LONGTEXT NOT NULL,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
			)`,
			get:    `SELECT payload FROM ` + recordsTable + ` WHERE record_key = ?`,
			upsert: `INSERT INTO ` + recordsTable + ` (record_key, payload) VALUES (?, ?) ON DUPLICATE KEY UPDATE payload = VALUES(payload)`,
			delete: `DELETE FROM ` + recordsTable + ` WHERE record_key = ?`,
		}, nil
	case DialectPostgres:
		return sqlStatements{
			schema: `CREATE TABLE IF NOT EXISTS ` + recordsTable + ` (
				record_key TEXT PRIMARY KEY,
				payload TEXT NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			get:    `SELECT payload FROM ` + recordsTable + ` WHERE record_key = $1`,
			upsert: `INSERT INTO ` + recordsTable + ` (record_key, payload) VALUES ($1, $2) ON CONFLICT (record_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
			delete: `DELETE FROM ` + recordsTable + ` WHERE record_key = $1`,
		}, nil
	default:
		return sqlStatements{}, fmt.Errorf("unsupported sql dialect: %s", d)
	}
}

// SQLStore keeps every logical key as one row of dormscout_records.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	stmts   sqlStatements
}

func OpenSQLStore(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	stmts, err := statementsFor(dialect)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &SQLStore{db: db, dialect: dialect, stmts: stmts}, nil
}

// Migrate creates the records table if it does not exist yet.
func (s *SQLStore) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, sqlOperationTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, s.stmts.schema)
	return err
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, sqlOperationTimeout)
	defer cancel()
	var payload string
	err := s.db.QueryRowContext(ctx, s.stmts.get, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(payload), true, nil
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	ctx, cancel := context.WithTimeout(ctx, sqlOperationTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, s.stmts.upsert, key, string(value))
	return err
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, sqlOperationTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, s.stmts.delete, key)
	return err
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type StoreOptions struct {
	Backend     string
	Path        string
	MySQLDSN    string
	PostgresURL string
}

// OpenStore builds the backend named by opts.Backend. SQL backends get their table created.
func OpenStore(ctx context.Context, opts StoreOptions) (KVStore, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", "memory", "mem":
		return NewMemoryStore(), nil
	case "file":
		s, err := NewFileStore(opts.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "mysql":
		s, err := OpenSQLStore(ctx, DialectMySQL, opts.MySQLDSN)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return s, nil
	case "postgres", "postgresql":
		s, err := OpenSQLStore(ctx, DialectPostgres, opts.PostgresURL)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", opts.Backend)
	}
}
