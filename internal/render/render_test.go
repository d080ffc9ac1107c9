package render

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"shelfql/internal/cache"
)

func testRenderer(t *testing.T, opts ...func(*Config)) *Renderer {
	t.Helper()
	cfg := Config{
		Dirs:       []string{"testdata/templates"},
		Processors: []Processor{StaticProcessor("/assets/static/")},
	}
	for _, o := range opts {
		o(&cfg)
	}
	return New(cfg)
}

func testRequest() *http.Request {
	return httptest.NewRequest(http.MethodGet, "/banner", nil)
}

func TestResponseBareContext(t *testing.T) {
	rn := testRenderer(t)
	rec := httptest.NewRecorder()

	err := rn.Response(rec, "banner.html", Context{"title": "SHELF", "section": "BOOKS"})
	if err != nil {
		t.Fatalf("Response: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "SHELF.BOOKS..\n" {
		t.Errorf("body = %q, want %q", got, "SHELF.BOOKS..\n")
	}
	if ct := rec.Header().Get("Content-Type"); ct != DefaultContentType {
		t.Errorf("content type = %q, want %q", ct, DefaultContentType)
	}
}

func TestResponseContentType(t *testing.T) {
	rn := testRenderer(t)
	rec := httptest.NewRecorder()

	err := rn.Response(rec, "banner.html", Context{"title": "SHELF", "section": "BOOKS"},
		WithContentType("application/x-rendered"))
	if err != nil {
		t.Fatalf("Response: %v", err)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-rendered" {
		t.Errorf("content type = %q", ct)
	}
}

func TestResponseAlternateDirs(t *testing.T) {
	rn := testRenderer(t)
	rec := httptest.NewRecorder()

	err := rn.Response(rec, "banner.html", Context{"title": "SHELF", "section": "BOOKS"},
		WithDirs("testdata/alt"))
	if err != nil {
		t.Fatalf("Response: %v", err)
	}
	if got := rec.Body.String(); got != "SHELF.BOOKS (alt)\n" {
		t.Errorf("body = %q", got)
	}
}

func TestRenderRunsProcessors(t *testing.T) {
	rn := testRenderer(t)
	rec := httptest.NewRecorder()

	err := rn.Render(rec, testRequest(), "banner.html", Context{"title": "SHELF", "section": "BOOKS"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := rec.Body.String(); got != "SHELF.BOOKS../assets/static/\n" {
		t.Errorf("body = %q", got)
	}
}

func TestRenderCallerContextWins(t *testing.T) {
	rn := testRenderer(t)
	rec := httptest.NewRecorder()

	err := rn.Render(rec, testRequest(), "banner.html",
		Context{"title": "SHELF", "section": "BOOKS", "static": "/override/"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := rec.Body.String(); got != "SHELF.BOOKS../override/\n" {
		t.Errorf("body = %q", got)
	}
}

func TestRenderWithoutProcessors(t *testing.T) {
	rn := testRenderer(t)
	rec := httptest.NewRecorder()

	err := rn.Render(rec, testRequest(), "banner.html",
		Context{"title": "SHELF", "section": "BOOKS"}, WithoutProcessors())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := rec.Body.String(); got != "SHELF.BOOKS..\n" {
		t.Errorf("body = %q", got)
	}
}

func TestRenderStatus(t *testing.T) {
	rn := testRenderer(t)
	rec := httptest.NewRecorder()

	err := rn.Render(rec, testRequest(), "banner.html", Context{}, WithStatus(http.StatusForbidden))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestResolveApp(t *testing.T) {
	r := testRequest()

	app, err := ResolveApp(r, "books_admin")
	if err != nil || app != "books_admin" {
		t.Errorf("ResolveApp(override) = %q, %v", app, err)
	}

	app, err = ResolveApp(WithRequestApp(r, "store_front"), "")
	if err != nil || app != "store_front" {
		t.Errorf("ResolveApp(request) = %q, %v", app, err)
	}

	_, err = ResolveApp(WithRequestApp(r, "store_front"), "books_admin")
	if !errors.Is(err, ErrAppConflict) {
		t.Errorf("ResolveApp(conflict) = %v, want ErrAppConflict", err)
	}
}

func TestRenderAppConflict(t *testing.T) {
	rn := testRenderer(t)
	rec := httptest.NewRecorder()

	err := rn.Render(rec, WithRequestApp(testRequest(), "store_front"), "banner.html",
		Context{}, WithApp("books_admin"))
	if !errors.Is(err, ErrAppConflict) {
		t.Fatalf("Render = %v, want ErrAppConflict", err)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("conflicting render wrote a body: %q", rec.Body.String())
	}
}

func TestRenderTemplateNotFound(t *testing.T) {
	rn := testRenderer(t)
	rec := httptest.NewRecorder()

	err := rn.Response(rec, "missing.html", Context{})
	var nf *TemplateNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Response = %v, want TemplateNotFoundError", err)
	}
	if nf.Name != "missing.html" {
		t.Errorf("Name = %q", nf.Name)
	}
}

func TestTemplateSourceCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "banner.html")
	if err := os.WriteFile(path, []byte("first {{.title}}"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := cache.NewLocalCache(0)
	rn := New(Config{Dirs: []string{dir}, Cache: c})

	rec := httptest.NewRecorder()
	if err := rn.Response(rec, "banner.html", Context{"title": "X"}); err != nil {
		t.Fatalf("Response: %v", err)
	}
	if got := rec.Body.String(); got != "first X" {
		t.Fatalf("body = %q", got)
	}

	if err := os.WriteFile(path, []byte("second {{.title}}"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec = httptest.NewRecorder()
	if err := rn.Response(rec, "banner.html", Context{"title": "X"}); err != nil {
		t.Fatalf("Response: %v", err)
	}
	if got := rec.Body.String(); got != "first X" {
		t.Errorf("body = %q, want cached %q", got, "first X")
	}
}
