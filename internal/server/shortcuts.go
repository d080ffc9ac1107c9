package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"shelfql/internal/render"
)

// ResolvedAppHeader carries the current application a page was rendered for,
// so clients and tests can observe the resolution outcome.
const ResolvedAppHeader = "X-Resolved-App"

// bannerContext is the context every banner and page route renders with.
func bannerContext() render.Context {
	return render.Context{"title": "SHELF", "section": "BOOKS"}
}

func registerShortcuts(e *echo.Echo, h *Handler) {
	e.GET("/banner", h.Banner)
	e.GET("/banner/site", h.BannerSite)
	e.GET("/banner/content_type", h.BannerContentType)
	e.GET("/banner/alt-dirs", h.BannerAltDirs)
	e.GET("/banner/context", h.BannerRequestContext)

	e.GET("/page", h.Page)
	e.GET("/page/base", h.PageBase)
	e.GET("/page/content_type", h.PageContentType)
	e.GET("/page/status", h.PageStatus)
	e.GET("/page/alt-dirs", h.PageAltDirs)
	e.GET("/page/app", h.PageApp)
	e.GET("/page/app-conflict", h.PageAppConflict)
}

// Banner renders the banner template with the handler's context alone.
func (h *Handler) Banner(c echo.Context) error {
	return h.render(c, func() error {
		return h.rn.Response(c.Response(), "banner.html", bannerContext())
	})
}

// BannerSite renders the banner against the request, so site-wide context
// processors contribute values.
func (h *Handler) BannerSite(c echo.Context) error {
	return h.render(c, func() error {
		return h.rn.Render(c.Response(), c.Request(), "banner.html", bannerContext())
	})
}

// BannerContentType serves the banner under a custom content type.
func (h *Handler) BannerContentType(c echo.Context) error {
	return h.render(c, func() error {
		return h.rn.Response(c.Response(), "banner.html", bannerContext(),
			render.WithContentType("application/x-rendered"))
	})
}

// BannerAltDirs renders the banner template that lives in the alternate
// template directories.
func (h *Handler) BannerAltDirs(c echo.Context) error {
	return h.render(c, func() error {
		return h.rn.Response(c.Response(), "banner.html", bannerContext(),
			render.WithDirs(h.altDirs...))
	})
}

// BannerRequestContext renders the banner with processor output merged even
// though the caller supplied a full context, mirroring handlers that pass a
// prepared request context by hand.
func (h *Handler) BannerRequestContext(c echo.Context) error {
	ctx := bannerContext()
	ctx["promo"] = "SALE"
	return h.render(c, func() error {
		return h.rn.Render(c.Response(), c.Request(), "banner.html", ctx)
	})
}

// Page is the full render shortcut: processors run and no current app is in
// effect afterwards.
func (h *Handler) Page(c echo.Context) error {
	app, err := render.ResolveApp(c.Request(), "")
	if err != nil {
		return handleError(c, err)
	}
	c.Response().Header().Set(ResolvedAppHeader, app)
	return h.render(c, func() error {
		return h.rn.Render(c.Response(), c.Request(), "banner.html", bannerContext())
	})
}

// PageBase renders without processors, leaving only the handler's context.
func (h *Handler) PageBase(c echo.Context) error {
	return h.render(c, func() error {
		return h.rn.Render(c.Response(), c.Request(), "banner.html", bannerContext(),
			render.WithoutProcessors())
	})
}

// PageContentType renders the page under a custom content type.
func (h *Handler) PageContentType(c echo.Context) error {
	return h.render(c, func() error {
		return h.rn.Render(c.Response(), c.Request(), "banner.html", bannerContext(),
			render.WithContentType("application/x-rendered"))
	})
}

// PageStatus renders the page with a 403 status.
func (h *Handler) PageStatus(c echo.Context) error {
	return h.render(c, func() error {
		return h.rn.Render(c.Response(), c.Request(), "banner.html", bannerContext(),
			render.WithStatus(http.StatusForbidden))
	})
}

// PageAltDirs renders the page from the alternate template directories.
func (h *Handler) PageAltDirs(c echo.Context) error {
	return h.render(c, func() error {
		return h.rn.Render(c.Response(), c.Request(), "banner.html", bannerContext(),
			render.WithDirs(h.altDirs...))
	})
}

// PageApp renders the page for an explicit current application and reports
// the resolution in a response header.
func (h *Handler) PageApp(c echo.Context) error {
	app, err := render.ResolveApp(c.Request(), "books_admin")
	if err != nil {
		return handleError(c, err)
	}
	c.Response().Header().Set(ResolvedAppHeader, app)
	return h.render(c, func() error {
		return h.rn.Render(c.Response(), c.Request(), "banner.html", bannerContext(),
			render.WithApp("books_admin"))
	})
}

// PageAppConflict sets a current application on the request and then renders
// with a conflicting explicit one, which is a server-side error.
func (h *Handler) PageAppConflict(c echo.Context) error {
	r := render.WithRequestApp(c.Request(), "store_front")
	return h.render(c, func() error {
		return h.rn.Render(c.Response(), r, "banner.html", bannerContext(),
			render.WithApp("books_admin"))
	})
}
