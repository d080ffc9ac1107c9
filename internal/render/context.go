package render

import (
	"context"
	"net/http"
)

// Context carries the values a template renders. Missing keys render as the
// empty string.
type Context map[string]string

// Processor derives context values from the incoming request. Processors run
// before the caller's context, so explicit values win on key collisions.
type Processor func(r *http.Request) Context

// StaticProcessor exposes the static asset prefix to every template under
// the "static" key.
func StaticProcessor(url string) Processor {
	return func(*http.Request) Context {
		return Context{"static": url}
	}
}

type appKey struct{}

// WithRequestApp attaches the current application name to the request, the
// way middleware resolves it from the URL namespace.
func WithRequestApp(r *http.Request, app string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), appKey{}, app))
}

// RequestApp returns the application name attached to the request, if any.
func RequestApp(r *http.Request) (string, bool) {
	app, ok := r.Context().Value(appKey{}).(string)
	return app, ok && app != ""
}

// ResolveApp picks the current application for a render call. An override
// supplied alongside a request-level app is a programming error.
func ResolveApp(r *http.Request, override string) (string, error) {
	reqApp, ok := RequestApp(r)
	if ok && override != "" {
		return "", ErrAppConflict
	}
	if override != "" {
		return override, nil
	}
	return reqApp, nil
}
