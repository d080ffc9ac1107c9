package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql adapter for pgx
)

// postgresStorage implements Storage for PostgreSQL
type postgresStorage struct {
	db *sql.DB
}

// NewPostgreSQL creates a new PostgreSQL storage connection through the pgx
// database/sql adapter, so the query layer sees the same interface as SQLite.
func NewPostgreSQL(ctx context.Context, cfg PostgreSQLConfig) (Storage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("postgresql URL is required")
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}

	return &postgresStorage{db: db}, nil
}

func (s *postgresStorage) Type() string {
	return TypePostgreSQL
}

func (s *postgresStorage) DB() *sql.DB {
	return s.db
}

func (s *postgresStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
