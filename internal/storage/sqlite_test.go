package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestSQLiteInMemory(t *testing.T) {
	store, err := NewSQLite(SQLiteConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create SQLite storage: %v", err)
	}
	defer store.Close()

	if store.Type() != TypeSQLite {
		t.Errorf("Type() = %q", store.Type())
	}
	if err := store.DB().Ping(); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}

func TestSQLiteConcurrentWriteSafety(t *testing.T) {
	store, err := NewSQLite(SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("failed to create SQLite storage: %v", err)
	}
	defer store.Close()

	db := store.DB()

	// Two tables written concurrently, the way fixture loads and lazy
	// deferred-column reads interleave under the test server.
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS test_books (id TEXT PRIMARY KEY, data TEXT)`)
	if err != nil {
		t.Fatalf("failed to create test_books table: %v", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS test_stores (id TEXT PRIMARY KEY, data TEXT)`)
	if err != nil {
		t.Fatalf("failed to create test_stores table: %v", err)
	}

	const goroutines = 10
	const insertsPerGoroutine = 50

	var wg sync.WaitGroup
	errs := make(chan error, goroutines*insertsPerGoroutine*2)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			table := "test_books"
			if id%2 == 1 {
				table = "test_stores"
			}
			for j := 0; j < insertsPerGoroutine; j++ {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				_, err := db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (id, data) VALUES (?, ?)`, table),
					fmt.Sprintf("%d-%d", id, j), "payload")
				cancel()
				if err != nil {
					errs <- fmt.Errorf("goroutine %d insert %d into %s: %w", id, j, table, err)
				}
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent write error: %v", err)
	}

	var bookCount, storeCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM test_books").Scan(&bookCount); err != nil {
		t.Fatalf("failed to count book rows: %v", err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM test_stores").Scan(&storeCount); err != nil {
		t.Fatalf("failed to count store rows: %v", err)
	}

	expectedPerTable := (goroutines / 2) * insertsPerGoroutine
	if bookCount != expectedPerTable {
		t.Errorf("test_books: got %d rows, want %d", bookCount, expectedPerTable)
	}
	if storeCount != expectedPerTable {
		t.Errorf("test_stores: got %d rows, want %d", storeCount, expectedPerTable)
	}
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(context.Background(), Config{Type: "oracle"})
	if err == nil {
		t.Fatal("expected error for unknown storage type")
	}
}
