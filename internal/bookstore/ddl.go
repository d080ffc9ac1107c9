package bookstore

import (
	"context"
	"fmt"
	"strings"

	"shelfql/internal/query"
)

// CreateSchema creates every bookstore table if it does not exist. The %s
// placeholder in each statement is the auto-assigned primary key column,
// which differs between SQLite and PostgreSQL.
func CreateSchema(ctx context.Context, sess *query.Session) error {
	pk := "id INTEGER PRIMARY KEY"
	if sess.Dialect() == query.DialectPostgres {
		pk = "id BIGSERIAL PRIMARY KEY"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS authors (
			%s,
			name TEXT NOT NULL,
			age INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS author_friends (
			from_author_id INTEGER NOT NULL,
			to_author_id INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS publishers (
			%s,
			name TEXT NOT NULL,
			num_awards INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS books (
			%s,
			isbn TEXT NOT NULL,
			title TEXT NOT NULL,
			pages INTEGER NOT NULL DEFAULT 0,
			rating DOUBLE PRECISION NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			pubdate TEXT NOT NULL,
			contact_id INTEGER NOT NULL REFERENCES authors (id),
			publisher_id INTEGER NOT NULL REFERENCES publishers (id)
		)`,
		`CREATE TABLE IF NOT EXISTS book_authors (
			book_id INTEGER NOT NULL REFERENCES books (id),
			author_id INTEGER NOT NULL REFERENCES authors (id)
		)`,
		`CREATE TABLE IF NOT EXISTS stores (
			%s,
			name TEXT NOT NULL,
			original_opening TEXT NOT NULL,
			friday_night_closing TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS store_books (
			store_id INTEGER NOT NULL REFERENCES stores (id),
			book_id INTEGER NOT NULL REFERENCES books (id)
		)`,
		`CREATE TABLE IF NOT EXISTS department_stores (
			store_ptr_id INTEGER PRIMARY KEY REFERENCES stores (id),
			chain TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS companies (
			%s,
			name TEXT NOT NULL,
			motto TEXT,
			ticker_name TEXT,
			description TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS employees (
			%s,
			first_name TEXT NOT NULL,
			manager INTEGER NOT NULL DEFAULT 0,
			last_name TEXT NOT NULL,
			age INTEGER NOT NULL,
			salary DOUBLE PRECISION NOT NULL,
			store_id INTEGER NOT NULL REFERENCES stores (id)
		)`,
	}

	for _, stmt := range stmts {
		if strings.Contains(stmt, "%s") {
			stmt = fmt.Sprintf(stmt, pk)
		}
		if _, err := sess.DB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create bookstore schema: %w", err)
		}
	}
	return nil
}

// DropSchema removes every bookstore table. Used by tests that need a clean
// database between cases.
func DropSchema(ctx context.Context, sess *query.Session) error {
	tables := []string{
		"employees", "companies", "department_stores", "store_books",
		"stores", "book_authors", "books", "publishers", "author_friends", "authors",
	}
	for _, t := range tables {
		if _, err := sess.DB().ExecContext(ctx, "DROP TABLE IF EXISTS "+t); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", t, err)
		}
	}
	return nil
}
