// Package render provides response-rendering shortcuts over html/template:
// look a template up in one or more directories, merge request context
// processors into the caller's context, and write the result with a
// configurable status and content type.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"

	"shelfql/internal/cache"
)

// DefaultContentType is used when no content-type option is given.
const DefaultContentType = "text/html; charset=utf-8"

// ErrAppConflict is returned when a current app is supplied both on the
// request and as a render option.
var ErrAppConflict = errors.New("current app is set on both the request and the render call")

// TemplateNotFoundError reports a template name that none of the searched
// directories contain.
type TemplateNotFoundError struct {
	Name string
	Dirs []string
}

// Error implements the error interface.
func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template %q not found in %v", e.Name, e.Dirs)
}

// Renderer renders templates from a set of directories. Template sources go
// through an optional cache so multi-instance deployments hit disk once.
type Renderer struct {
	dirs       []string
	processors []Processor
	cache      cache.Cache
}

// Config configures a Renderer.
type Config struct {
	// Dirs are the template directories, searched in order.
	Dirs []string

	// Processors run against the request on every Render call and their
	// output merges under the caller's context.
	Processors []Processor

	// Cache, when set, holds template sources keyed by path.
	Cache cache.Cache
}

// New creates a Renderer.
func New(cfg Config) *Renderer {
	return &Renderer{dirs: cfg.Dirs, processors: cfg.Processors, cache: cfg.Cache}
}

type options struct {
	status        int
	contentType   string
	dirs          []string
	app           string
	useProcessors bool
}

// Option adjusts a single render call.
type Option func(*options)

// WithStatus overrides the response status code.
func WithStatus(code int) Option {
	return func(o *options) { o.status = code }
}

// WithContentType overrides the response content type.
func WithContentType(ct string) Option {
	return func(o *options) { o.contentType = ct }
}

// WithDirs overrides the template directories for this call only.
func WithDirs(dirs ...string) Option {
	return func(o *options) { o.dirs = dirs }
}

// WithApp sets the current application for this call. Conflicts with an app
// already set on the request.
func WithApp(app string) Option {
	return func(o *options) { o.app = app }
}

// WithoutProcessors skips the configured context processors, rendering the
// caller's context alone.
func WithoutProcessors() Option {
	return func(o *options) { o.useProcessors = false }
}

// Render renders a template against the request: context processors run
// first, then the caller's context is merged over their output.
func (rn *Renderer) Render(w http.ResponseWriter, r *http.Request, name string, c Context, opts ...Option) error {
	o := options{useProcessors: true}
	for _, opt := range opts {
		opt(&o)
	}

	if _, err := ResolveApp(r, o.app); err != nil {
		return err
	}

	data := Context{}
	if o.useProcessors {
		for _, p := range rn.processors {
			merge(data, p(r))
		}
	}
	merge(data, c)

	return rn.write(w, name, data, o)
}

// Response renders a template without a request: no processors run. This is
// the bare shortcut for handlers that build their full context themselves.
func (rn *Renderer) Response(w http.ResponseWriter, name string, c Context, opts ...Option) error {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	data := Context{}
	merge(data, c)
	return rn.write(w, name, data, o)
}

func (rn *Renderer) write(w http.ResponseWriter, name string, data Context, o options) error {
	tmpl, err := rn.lookup(name, o.dirs)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render %q: %w", name, err)
	}

	ct := o.contentType
	if ct == "" {
		ct = DefaultContentType
	}
	status := o.status
	if status == 0 {
		status = http.StatusOK
	}

	w.Header().Set("Content-Type", ct)
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

// lookup finds and parses a template, searching override dirs when given,
// the renderer's dirs otherwise.
func (rn *Renderer) lookup(name string, override []string) (*template.Template, error) {
	dirs := rn.dirs
	if len(override) > 0 {
		dirs = override
	}

	for _, dir := range dirs {
		source, err := rn.source(filepath.Join(dir, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		tmpl, err := template.New(name).Parse(string(source))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %q: %w", name, err)
		}
		return tmpl, nil
	}
	return nil, &TemplateNotFoundError{Name: name, Dirs: dirs}
}

// source reads a template file through the cache when one is configured.
func (rn *Renderer) source(path string) ([]byte, error) {
	ctx := context.Background()
	if rn.cache != nil {
		if data, err := rn.cache.Get(ctx, path); err == nil && data != nil {
			return data, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if rn.cache != nil {
		_ = rn.cache.Set(ctx, path, data)
	}
	return data, nil
}

func merge(dst, src Context) {
	for k, v := range src {
		dst[k] = v
	}
}
