// Package server provides the HTTP surface of shelfql: a JSON API over the
// bookstore query layer and a set of template-rendered pages.
package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"shelfql/internal/bookstore"
	"shelfql/internal/fixtures"
	"shelfql/internal/query"
	"shelfql/internal/render"
)

// Handler holds the HTTP handlers
type Handler struct {
	sess    *query.Session
	rn      *render.Renderer
	altDirs []string
}

// NewHandler creates a new handler over a session and renderer.
func NewHandler(sess *query.Session, rn *render.Renderer, cfg *Config) *Handler {
	h := &Handler{sess: sess, rn: rn}
	if cfg != nil {
		h.altDirs = cfg.AltTemplateDirs
	}
	return h
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ListBooks handles GET /v1/books. Each book carries a computed author count,
// and ?min_rating filters on rating.
func (h *Handler) ListBooks(c echo.Context) error {
	set := bookstore.BookSet(h.sess).
		Annotate("num_authors", query.Count("authors")).
		OrderBy("id")

	if v := c.QueryParam("min_rating"); v != "" {
		min, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorBody("invalid_request", "min_rating must be a number"))
		}
		set = set.Filter(query.Gte("rating", min))
	}

	rows, err := set.All(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}

	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]any{
			"id":          r.Int("id"),
			"isbn":        r.Str("isbn"),
			"title":       r.Str("title"),
			"rating":      r.Float("rating"),
			"num_authors": r.Int("num_authors"),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"books": out})
}

// GetBook handles GET /v1/books/:id, eagerly loading the publisher.
func (h *Handler) GetBook(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid_request", "book id must be an integer"))
	}

	row, err := bookstore.BookSet(h.sess).
		SelectRelated("publisher").
		Get(c.Request().Context(), query.Eq("id", id))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"id":        row.Int("id"),
		"isbn":      row.Str("isbn"),
		"title":     row.Str("title"),
		"pages":     row.Int("pages"),
		"rating":    row.Float("rating"),
		"price":     row.Float("price"),
		"pubdate":   row.Str("pubdate"),
		"publisher": row.Rel("publisher").Str("name"),
	})
}

// BookStats handles GET /v1/books/stats with corpus-wide aggregates.
func (h *Handler) BookStats(c echo.Context) error {
	stats, err := bookstore.BookSet(h.sess).Aggregate(c.Request().Context(),
		query.As("count", query.Count("id")),
		query.As("avg_rating", query.Avg("rating")),
		query.As("total_pages", query.Sum("pages")),
	)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// ListPublishers handles GET /v1/publishers.
func (h *Handler) ListPublishers(c echo.Context) error {
	rows, err := query.NewSet(h.sess, bookstore.Publishers).
		OrderBy("name").
		All(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}

	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]any{
			"id":         r.Int("id"),
			"name":       r.Str("name"),
			"num_awards": r.Int("num_awards"),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"publishers": out})
}

// ReloadFixtures handles POST /v1/fixtures/reload: it rebuilds the bookstore
// schema and loads the embedded dataset.
func (h *Handler) ReloadFixtures(c echo.Context) error {
	ctx := c.Request().Context()
	if err := bookstore.DropSchema(ctx, h.sess); err != nil {
		return handleError(c, err)
	}
	if err := bookstore.CreateSchema(ctx, h.sess); err != nil {
		return handleError(c, err)
	}
	if err := fixtures.Load(ctx, h.sess, bookstore.Tables(), bookstore.Fixture); err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "loaded"})
}

// Dashboard handles GET /dashboard with a rendered status page.
func (h *Handler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()

	books, err := bookstore.BookSet(h.sess).Aggregate(ctx, query.As("n", query.Count("id")))
	if err != nil {
		return handleError(c, err)
	}
	authors, err := bookstore.AuthorSet(h.sess).Aggregate(ctx, query.As("n", query.Count("id")))
	if err != nil {
		return handleError(c, err)
	}

	return h.render(c, func() error {
		return h.rn.Render(c.Response(), c.Request(), "dashboard.html", render.Context{
			"books":   strconv.FormatInt(toCount(books["n"]), 10),
			"authors": strconv.FormatInt(toCount(authors["n"]), 10),
			"queries": strconv.FormatInt(h.sess.Queries(), 10),
		})
	})
}

// render runs a render closure and maps its failure to an HTTP response.
func (h *Handler) render(c echo.Context, fn func() error) error {
	if err := fn(); err != nil {
		return handleError(c, err)
	}
	return nil
}

func toCount(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func errorBody(typ, msg string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"type":    typ,
			"message": msg,
		},
	}
}

// handleError converts library errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, query.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorBody("not_found", err.Error()))
	case errors.Is(err, query.ErrMultipleRows):
		return c.JSON(http.StatusConflict, errorBody("multiple_rows", err.Error()))
	case errors.Is(err, render.ErrAppConflict):
		return c.JSON(http.StatusInternalServerError, errorBody("render_error", err.Error()))
	}

	var fieldErr *query.FieldError
	if errors.As(err, &fieldErr) {
		return c.JSON(http.StatusBadRequest, errorBody("invalid_request", fieldErr.Error()))
	}

	// Fallback for unexpected errors
	return c.JSON(http.StatusInternalServerError, errorBody("internal_error", "an unexpected error occurred"))
}
