// Package regression holds the behavior corpus for the query layer and the
// render shortcuts: every test pins one observable behavior against an
// in-memory SQLite database or a live test server.
package regression

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"shelfql/internal/bookstore"
	"shelfql/internal/fixtures"
	"shelfql/internal/query"
	"shelfql/internal/render"
	"shelfql/internal/server"
	"shelfql/internal/storage"
)

// newSession opens a throwaway SQLite database with the bookstore schema and
// fixture dataset loaded.
func newSession(t *testing.T) *query.Session {
	t.Helper()

	st, err := storage.NewSQLite(storage.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	sess := query.NewSession(st.DB(), query.DialectSQLite)
	ctx := context.Background()
	require.NoError(t, bookstore.CreateSchema(ctx, sess))
	require.NoError(t, fixtures.Load(ctx, sess, bookstore.Tables(), bookstore.Fixture))
	return sess
}

// newShortcutServer starts a test server with the regression templates.
func newShortcutServer(t *testing.T) *httptest.Server {
	t.Helper()

	sess := newSession(t)
	rn := render.New(render.Config{
		Dirs:       []string{"testdata/templates"},
		Processors: []render.Processor{render.StaticProcessor("/assets/static/")},
	})
	srv := server.New(sess, rn, &server.Config{
		AltTemplateDirs: []string{"testdata/alt"},
	})

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}
