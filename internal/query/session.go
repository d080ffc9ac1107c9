package query

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"shelfql/internal/schema"
)

// Dialect selects placeholder style and insert-return behavior.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Session wraps a database connection for the query layer. It counts every
// statement it executes (tests assert on query counts for deferred loading)
// and invokes the optional OnQuery hook, which the server uses to feed its
// Prometheus counter.
type Session struct {
	db      *sql.DB
	dialect Dialect
	count   atomic.Int64

	// OnQuery, when set, is called with each statement before execution.
	OnQuery func(sql string)
}

// NewSession creates a session over an open connection.
func NewSession(db *sql.DB, dialect Dialect) *Session {
	return &Session{db: db, dialect: dialect}
}

// DB exposes the underlying connection for DDL and maintenance statements.
func (s *Session) DB() *sql.DB { return s.db }

// Dialect reports which engine the session talks to.
func (s *Session) Dialect() Dialect { return s.dialect }

// Queries returns the number of statements executed so far.
func (s *Session) Queries() int64 { return s.count.Load() }

func (s *Session) observe(stmt string) {
	s.count.Add(1)
	if s.OnQuery != nil {
		s.OnQuery(stmt)
	}
	slog.Debug("executing query", "sql", stmt)
}

func (s *Session) query(ctx context.Context, stmt string, args ...any) (*sql.Rows, error) {
	stmt = s.rebind(stmt)
	s.observe(stmt)
	return s.db.QueryContext(ctx, stmt, args...)
}

func (s *Session) exec(ctx context.Context, stmt string, args ...any) (sql.Result, error) {
	stmt = s.rebind(stmt)
	s.observe(stmt)
	return s.db.ExecContext(ctx, stmt, args...)
}

// rebind rewrites ? placeholders into $N for PostgreSQL. Question marks
// inside single-quoted strings are left alone.
func (s *Session) rebind(stmt string) string {
	if s.dialect != DialectPostgres {
		return stmt
	}
	var b strings.Builder
	n := 0
	inString := false
	for _, r := range stmt {
		switch {
		case r == '\'':
			inString = !inString
			b.WriteRune(r)
		case r == '?' && !inString:
			n++
			b.WriteString("$" + strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Insert writes one row. Values may include the primary key; when absent the
// engine assigns it. Multi-table-inheritance children insert their parent row
// first and reuse its key as the child's link column.
func (s *Session) Insert(ctx context.Context, t *schema.Table, vals map[string]any) (int64, error) {
	if t.Parent != nil {
		parentVals := map[string]any{}
		childVals := map[string]any{}
		for k, v := range vals {
			if _, owner, ok := t.Parent.Field(k); ok && owner != nil {
				parentVals[k] = v
				continue
			}
			childVals[k] = v
		}
		id, err := s.Insert(ctx, t.Parent, parentVals)
		if err != nil {
			return 0, err
		}
		childVals[t.ParentLink] = id
		if err := s.insertInto(ctx, t.Name, childVals); err != nil {
			return 0, err
		}
		return id, nil
	}

	if pk, ok := vals[t.PK]; ok {
		if err := s.insertInto(ctx, t.Name, vals); err != nil {
			return 0, err
		}
		return toInt64(pk), nil
	}

	cols, placeholders, args := insertParts(vals)
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", q(t.Name), cols, placeholders)

	if s.dialect == DialectPostgres {
		stmt += " RETURNING " + q(t.PK)
		stmt = s.rebind(stmt)
		s.observe(stmt)
		var id int64
		if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to insert into %s: %w", t.Name, err)
		}
		return id, nil
	}

	s.observe(stmt)
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", t.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id for %s: %w", t.Name, err)
	}
	return id, nil
}

func (s *Session) insertInto(ctx context.Context, table string, vals map[string]any) error {
	cols, placeholders, args := insertParts(vals)
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", q(table), cols, placeholders)
	if _, err := s.exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

// SyncSequence advances the engine-assigned key sequence past explicitly
// inserted keys. Only PostgreSQL needs this; SQLite derives the next rowid
// from the current maximum.
func (s *Session) SyncSequence(ctx context.Context, t *schema.Table) error {
	if s.dialect != DialectPostgres || t.Parent != nil {
		return nil
	}
	stmt := fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%s', '%s'), COALESCE(MAX(%s), 0) + 1, false) FROM %s",
		t.Name, t.PK, q(t.PK), q(t.Name))
	if _, err := s.exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to sync sequence for %s: %w", t.Name, err)
	}
	return nil
}

// Relate links a row to targets through a many-to-many relation.
func (s *Session) Relate(ctx context.Context, t *schema.Table, relName string, id int64, targets ...int64) error {
	rel, _, ok := t.Rel(relName)
	if !ok || rel.Kind != schema.ManyToMany {
		return &FieldError{Keyword: relName, Table: t.Name, Choices: t.Choices()}
	}
	for _, target := range targets {
		stmt := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)",
			q(rel.Through), q(rel.NearColumn), q(rel.FarColumn))
		if _, err := s.exec(ctx, stmt, id, target); err != nil {
			return fmt.Errorf("failed to relate %s.%s: %w", t.Name, relName, err)
		}
	}
	return nil
}

// insertParts renders column list, placeholder list and arguments in a
// deterministic (sorted) column order.
func insertParts(vals map[string]any) (string, string, []any) {
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := make([]string, len(keys))
	marks := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		cols[i] = q(k)
		marks[i] = "?"
		args[i] = normalizeArg(vals[k])
	}
	return strings.Join(cols, ", "), strings.Join(marks, ", "), args
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

// q quotes an identifier for SQLite and PostgreSQL.
func q(ident string) string { return `"` + ident + `"` }
