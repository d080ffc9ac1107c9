package query

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	ddl := []string{
		`CREATE TABLE publishers (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, num_awards INTEGER)`,
		`CREATE TABLE authors (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, age INTEGER)`,
		`CREATE TABLE books (id INTEGER PRIMARY KEY AUTOINCREMENT, title TEXT, rating REAL,
			pages INTEGER, in_print INTEGER, publisher_id INTEGER)`,
		`CREATE TABLE book_authors (book_id INTEGER, author_id INTEGER)`,
		`CREATE TABLE stores (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT)`,
		`CREATE TABLE outlet_stores (store_ptr_id INTEGER PRIMARY KEY, chain TEXT)`,
	}
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("ddl failed: %v", err)
		}
	}
	return db
}

func TestRebind(t *testing.T) {
	cases := []struct {
		name    string
		dialect Dialect
		in      string
		want    string
	}{
		{
			name:    "SQLitePassthrough",
			dialect: DialectSQLite,
			in:      "SELECT * FROM t WHERE a = ? AND b = ?",
			want:    "SELECT * FROM t WHERE a = ? AND b = ?",
		},
		{
			name:    "PostgresNumbersPlaceholders",
			dialect: DialectPostgres,
			in:      "SELECT * FROM t WHERE a = ? AND b = ? AND c = ?",
			want:    "SELECT * FROM t WHERE a = $1 AND b = $2 AND c = $3",
		},
		{
			name:    "PostgresSkipsQuotedStrings",
			dialect: DialectPostgres,
			in:      "SELECT '?' AS mark FROM t WHERE a = ? AND b = 'x?y' AND c = ?",
			want:    "SELECT '?' AS mark FROM t WHERE a = $1 AND b = 'x?y' AND c = $2",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sess := NewSession(nil, tc.dialect)
			if got := sess.rebind(tc.in); got != tc.want {
				t.Errorf("rebind(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestInsertParts(t *testing.T) {
	cols, marks, args := insertParts(map[string]any{"beta": 2, "alpha": 1, "gamma": true})
	if cols != `"alpha", "beta", "gamma"` {
		t.Errorf("cols = %s", cols)
	}
	if marks != "?, ?, ?" {
		t.Errorf("marks = %s", marks)
	}
	// Column order is sorted, and booleans bind as integers.
	if len(args) != 3 || args[0] != 1 || args[1] != 2 || args[2] != 1 {
		t.Errorf("args = %v", args)
	}
}

func TestSessionInsert(t *testing.T) {
	ctx := context.Background()
	ts := newTestSchema()
	sess := NewSession(openTestDB(t), DialectSQLite)

	var observed []string
	sess.OnQuery = func(stmt string) { observed = append(observed, stmt) }

	id, err := sess.Insert(ctx, ts.publishers, map[string]any{"name": "Apress", "num_awards": 3})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if id != 1 {
		t.Errorf("assigned id = %d", id)
	}

	id, err = sess.Insert(ctx, ts.publishers, map[string]any{"id": 7, "name": "Sams", "num_awards": 1})
	if err != nil {
		t.Fatalf("insert with explicit key failed: %v", err)
	}
	if id != 7 {
		t.Errorf("explicit id = %d", id)
	}

	if sess.Queries() != 2 || len(observed) != 2 {
		t.Errorf("Queries() = %d, observed %d statements", sess.Queries(), len(observed))
	}
}

func TestSessionInsertInheritanceChild(t *testing.T) {
	ctx := context.Background()
	ts := newTestSchema()
	db := openTestDB(t)
	sess := NewSession(db, DialectSQLite)

	id, err := sess.Insert(ctx, ts.outlets, map[string]any{"name": "Angus & Robinson", "chain": "Westfield"})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	// The parent row takes the inherited columns, the child row the rest,
	// linked by the parent's key.
	var name string
	if err := db.QueryRow("SELECT name FROM stores WHERE id = ?", id).Scan(&name); err != nil {
		t.Fatalf("parent row missing: %v", err)
	}
	if name != "Angus & Robinson" {
		t.Errorf("parent name = %q", name)
	}
	var chain string
	if err := db.QueryRow("SELECT chain FROM outlet_stores WHERE store_ptr_id = ?", id).Scan(&chain); err != nil {
		t.Fatalf("child row missing: %v", err)
	}
	if chain != "Westfield" {
		t.Errorf("child chain = %q", chain)
	}
}

func TestSessionRelate(t *testing.T) {
	ctx := context.Background()
	ts := newTestSchema()
	db := openTestDB(t)
	sess := NewSession(db, DialectSQLite)

	bookID, err := sess.Insert(ctx, ts.books, map[string]any{"title": "The Definitive Guide", "rating": 5.0})
	if err != nil {
		t.Fatal(err)
	}
	a1, _ := sess.Insert(ctx, ts.authors, map[string]any{"name": "Adrian Holovaty", "age": 34})
	a2, _ := sess.Insert(ctx, ts.authors, map[string]any{"name": "Jacob Kaplan-Moss", "age": 35})

	if err := sess.Relate(ctx, ts.books, "authors", bookID, a1, a2); err != nil {
		t.Fatalf("relate failed: %v", err)
	}
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM book_authors WHERE book_id = ?", bookID).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("link rows = %d", n)
	}

	// Only many-to-many relations can be linked this way.
	if err := sess.Relate(ctx, ts.books, "publisher", bookID, 1); err == nil {
		t.Error("expected error for foreign-key relation")
	}
	if err := sess.Relate(ctx, ts.books, "missing", bookID, 1); err == nil {
		t.Error("expected error for unknown relation")
	}
}

func TestRowAccessors(t *testing.T) {
	ctx := context.Background()
	ts := newTestSchema()
	sess := NewSession(openTestDB(t), DialectSQLite)

	_, err := sess.Insert(ctx, ts.books, map[string]any{
		"title": "Practical Django Projects", "rating": 4.0, "pages": 300, "in_print": true,
	})
	if err != nil {
		t.Fatal(err)
	}

	row, err := NewSet(sess, ts.books).Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if row.Str("title") != "Practical Django Projects" {
		t.Errorf("title = %q", row.Str("title"))
	}
	if row.Float("rating") != 4.0 {
		t.Errorf("rating = %v", row.Float("rating"))
	}
	if row.Int("pages") != 300 {
		t.Errorf("pages = %v", row.Int("pages"))
	}
	// Declared booleans come back as bool even though SQLite stores integers.
	if !row.Bool("in_print") {
		t.Error("in_print should be true")
	}
	if !row.IsNull("publisher_id") {
		t.Error("publisher_id should be NULL")
	}
	if _, err := row.Value(ctx, "velocity"); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestAggregateHonorsAggregateFilters(t *testing.T) {
	ctx := context.Background()
	ts := newTestSchema()
	sess := NewSession(openTestDB(t), DialectSQLite)

	b1, err := sess.Insert(ctx, ts.books, map[string]any{"title": "Paired", "rating": 4.0})
	if err != nil {
		t.Fatal(err)
	}
	b2, err := sess.Insert(ctx, ts.books, map[string]any{"title": "Solo", "rating": 3.0})
	if err != nil {
		t.Fatal(err)
	}
	a1, _ := sess.Insert(ctx, ts.authors, map[string]any{"name": "First", "age": 30})
	a2, _ := sess.Insert(ctx, ts.authors, map[string]any{"name": "Second", "age": 40})
	if err := sess.Relate(ctx, ts.books, "authors", b1, a1, a2); err != nil {
		t.Fatal(err)
	}
	if err := sess.Relate(ctx, ts.books, "authors", b2, a1); err != nil {
		t.Fatal(err)
	}

	// The HAVING filter keeps one book; the count must not see the joined
	// author rows that produced the annotation.
	agg, err := NewSet(sess, ts.books).
		Annotate("num_authors", Count("authors")).
		Filter(Gt("num_authors", 1)).
		Aggregate(ctx, As("n", Count("id")))
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if agg["n"] != int64(1) {
		t.Errorf("n = %v, want 1", agg["n"])
	}
}

func TestGetCardinality(t *testing.T) {
	ctx := context.Background()
	ts := newTestSchema()
	sess := NewSession(openTestDB(t), DialectSQLite)

	for _, name := range []string{"Apress", "Sams"} {
		if _, err := sess.Insert(ctx, ts.publishers, map[string]any{"name": name, "num_awards": 1}); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := NewSet(sess, ts.publishers).Get(ctx, Eq("name", "Prentice Hall")); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := NewSet(sess, ts.publishers).Get(ctx, Eq("num_awards", 1)); !errors.Is(err, ErrMultipleRows) {
		t.Errorf("err = %v, want ErrMultipleRows", err)
	}

	row, err := NewSet(sess, ts.publishers).First(ctx)
	if err != nil || row == nil {
		t.Fatalf("First() = %v, %v", row, err)
	}
	row, err = NewSet(sess, ts.publishers).Filter(Eq("name", "Prentice Hall")).First(ctx)
	if err != nil || row != nil {
		t.Errorf("First() on empty set = %v, %v", row, err)
	}
}
