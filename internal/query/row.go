package query

import (
	"context"
	"fmt"
	"strconv"

	"shelfql/internal/schema"
)

// Row is one result of a Set. Column values are dynamic because annotations
// are per-query columns; typed accessors convert on the way out. Deferred
// columns load lazily, one query each, against the originating session.
type Row struct {
	set      *Set
	ctx      context.Context
	cols     []col
	vals     map[string]any
	deferred map[string]bool
	prefix   string
}

func (s *Set) newRow(ctx context.Context, cols []col, raw []any) *Row {
	vals := make(map[string]any, len(cols))
	for i, cl := range cols {
		v := normalizeValue(raw[i])
		// SQLite hands booleans back as integers; the declared kind says so.
		if cl.kindKnown && cl.kind == schema.Bool {
			if n, ok := v.(int64); ok {
				v = n != 0
			}
		}
		vals[cl.name] = v
	}
	deferred := map[string]bool{}
	if len(s.values) == 0 {
		for _, d := range s.deferred {
			if _, ok := vals[d]; !ok {
				deferred[d] = true
			}
		}
	}
	return &Row{set: s, ctx: ctx, cols: cols, vals: vals, deferred: deferred}
}

// Columns returns the selected column names in SELECT order.
func (r *Row) Columns() []string {
	names := make([]string, 0, len(r.cols))
	for _, cl := range r.cols {
		names = append(names, cl.name)
	}
	return names
}

// Value returns a column by name, lazily loading it when deferred.
// Unknown names produce a FieldMissingError.
func (r *Row) Value(ctx context.Context, name string) (any, error) {
	full := r.prefix + name
	if v, ok := r.vals[full]; ok {
		return v, nil
	}
	if r.deferred[full] {
		return r.loadDeferred(ctx, full)
	}
	return nil, &FieldMissingError{Table: r.set.table.Name, Field: full}
}

// loadDeferred fetches one deferred column by primary key and caches it.
func (r *Row) loadDeferred(ctx context.Context, name string) (any, error) {
	f, owner, ok := r.set.table.Field(name)
	if !ok {
		return nil, &FieldMissingError{Table: r.set.table.Name, Field: name}
	}

	pkVal, ok := r.vals[rootPK(r.set.table)]
	if !ok {
		return nil, fmt.Errorf("cannot load deferred column %q without the primary key", name)
	}

	pkCol := owner.PK
	if owner.Parent != nil {
		pkCol = owner.ParentLink
	}

	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", q(f.Name), q(owner.Name), q(pkCol))
	rows, err := r.set.sess.query(ctx, stmt, pkVal)
	if err != nil {
		return nil, fmt.Errorf("failed to load deferred column %q: %w", name, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("%s: %w", r.set.table.Name, ErrNotFound)
	}
	var v any
	if err := rows.Scan(&v); err != nil {
		return nil, fmt.Errorf("failed to scan deferred column %q: %w", name, err)
	}
	v = normalizeValue(v)
	r.vals[name] = v
	delete(r.deferred, name)
	return v, nil
}

// Rel returns a view over the columns of an eagerly loaded relation, as
// selected by SelectRelated.
func (r *Row) Rel(name string) *Row {
	view := *r
	view.prefix = r.prefix + name + "."
	return &view
}

// Int returns a column as int64, zero when absent or not numeric.
func (r *Row) Int(name string) int64 {
	v, _ := r.Value(r.ctx, name)
	return toInt64(v)
}

// Float returns a column as float64, zero when absent or not numeric.
func (r *Row) Float(name string) float64 {
	v, _ := r.Value(r.ctx, name)
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	default:
		return 0
	}
}

// Str returns a column as string, empty when absent or NULL.
func (r *Row) Str(name string) string {
	v, _ := r.Value(r.ctx, name)
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Bool returns a column as bool; SQLite reports booleans as integers.
func (r *Row) Bool(name string) bool {
	v, _ := r.Value(r.ctx, name)
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	default:
		return false
	}
}

// IsNull reports whether a column is present and NULL.
func (r *Row) IsNull(name string) bool {
	v, err := r.Value(r.ctx, name)
	return err == nil && v == nil
}

// normalizeValue converts driver-specific scan types into the small set the
// accessors understand.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	default:
		return v
	}
}
