package query

import (
	"context"
	"fmt"
	"strings"

	"shelfql/internal/schema"
)

// Set is an immutable, chainable query over one table. Every chaining method
// returns a copy; nothing touches the database until All, Get, Aggregate or
// Update runs.
type Set struct {
	sess  *Session
	table *schema.Table

	annotations []Named
	filters     []Predicate
	order       []string
	values      []string
	deferred    []string
	related     []string
	extras      []Named
}

// NewSet starts a query over a table.
func NewSet(sess *Session, t *schema.Table) *Set {
	return &Set{sess: sess, table: t}
}

func (s *Set) clone() *Set {
	c := *s
	c.annotations = append([]Named(nil), s.annotations...)
	c.filters = append([]Predicate(nil), s.filters...)
	c.order = append([]string(nil), s.order...)
	c.values = append([]string(nil), s.values...)
	c.deferred = append([]string(nil), s.deferred...)
	c.related = append([]string(nil), s.related...)
	c.extras = append([]Named(nil), s.extras...)
	return &c
}

// Annotate attaches a named expression as an extra result column.
func (s *Set) Annotate(name string, e Expr) *Set {
	c := s.clone()
	c.annotations = append(c.annotations, Named{Name: name, Expr: e})
	return c
}

// Filter restricts the result set. Predicates referencing aggregate
// annotations compile into HAVING, everything else into WHERE.
func (s *Set) Filter(preds ...Predicate) *Set {
	c := s.clone()
	c.filters = append(c.filters, preds...)
	return c
}

// OrderBy orders results by the given names, which may be columns, relation
// paths or annotation names. A leading '-' reverses the direction.
func (s *Set) OrderBy(names ...string) *Set {
	c := s.clone()
	c.order = append(c.order, names...)
	return c
}

// Values restricts the selected base columns to the given names.
// Annotations still contribute their own columns.
func (s *Set) Values(names ...string) *Set {
	c := s.clone()
	c.values = append(c.values, names...)
	return c
}

// Defer excludes declared columns from the SELECT; deferred columns load
// lazily on first access, one query per column. Deferring a name that is not
// a declared column (such as an annotation) fails at execution with a
// FieldMissingError.
func (s *Set) Defer(names ...string) *Set {
	c := s.clone()
	c.deferred = append(c.deferred, names...)
	return c
}

// SelectRelated eagerly loads the named foreign-key relations, appending
// their columns after the annotations.
func (s *Set) SelectRelated(names ...string) *Set {
	c := s.clone()
	c.related = append(c.related, names...)
	return c
}

// Extra prepends a raw SQL select expression under the given name. Extra
// columns come first in the result, before declared columns.
func (s *Set) Extra(name, rawSQL string) *Set {
	c := s.clone()
	c.extras = append(c.extras, Named{Name: name, Expr: rawExpr{sql: rawSQL}})
	return c
}

// All executes the query and returns every row.
func (s *Set) All(ctx context.Context) ([]*Row, error) {
	stmt, args, cols, err := s.build()
	if err != nil {
		return nil, err
	}

	rows, err := s.sess.query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []*Row
	for rows.Next() {
		ptrs := make([]any, len(cols))
		raw := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, s.newRow(ctx, cols, raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// Get executes the query, optionally adding filters, and expects exactly one
// row. It returns ErrNotFound or ErrMultipleRows otherwise.
func (s *Set) Get(ctx context.Context, preds ...Predicate) (*Row, error) {
	qs := s
	if len(preds) > 0 {
		qs = s.Filter(preds...)
	}
	rows, err := qs.All(ctx)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, fmt.Errorf("%s: %w", s.table.Name, ErrNotFound)
	case 1:
		return rows[0], nil
	default:
		return nil, fmt.Errorf("%s matched %d rows: %w", s.table.Name, len(rows), ErrMultipleRows)
	}
}

// First executes the query and returns the first row, or nil when empty.
func (s *Set) First(ctx context.Context) (*Row, error) {
	rows, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Aggregate collapses the whole result set into one row of named aggregate
// values. Aggregate arguments may reference the set's annotations. Filters on
// aggregate annotations are honored through a grouped subquery keyed on the
// base primary key, so the outer aggregate sees one row per matching base row
// rather than the joined multiples.
func (s *Set) Aggregate(ctx context.Context, aggs ...Named) (map[string]any, error) {
	c := newCompiler(s, true)

	where, whereArgs, having, havingArgs, err := c.conditions()
	if err != nil {
		return nil, err
	}

	compileAggs := func(cc *compiler) ([]string, []any, error) {
		selects := make([]string, 0, len(aggs))
		var args []any
		for _, a := range aggs {
			frag, err := a.Expr.compile(cc)
			if err != nil {
				return nil, nil, err
			}
			selects = append(selects, frag.sql+" AS "+q(a.Name))
			args = append(args, frag.args...)
		}
		return selects, args, nil
	}

	var stmt string
	var args []any
	if having != "" {
		// The HAVING refs carry their own joins; those belong to the inner
		// query only, or they would multiply the rows the outer aggregate
		// runs over.
		outer := newCompiler(s, true)
		selects, selArgs, err := compileAggs(outer)
		if err != nil {
			return nil, err
		}
		basePK := q(s.table.Name) + "." + q(s.table.PK)
		inner := "SELECT " + basePK + c.fromClause()
		if where != "" {
			inner += " WHERE " + where
		}
		inner += " GROUP BY " + strings.Join(c.groupRefs(), ", ")
		inner += " HAVING " + having

		stmt = "SELECT " + strings.Join(selects, ", ") + outer.fromClause() +
			" WHERE " + basePK + " IN (" + inner + ")"
		args = append(selArgs, whereArgs...)
		args = append(args, havingArgs...)
	} else {
		selects, selArgs, err := compileAggs(c)
		if err != nil {
			return nil, err
		}
		stmt = "SELECT " + strings.Join(selects, ", ") + c.fromClause()
		args = selArgs
		if where != "" {
			stmt += " WHERE " + where
			args = append(args, whereArgs...)
		}
	}

	rows, err := s.sess.query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate query failed: %w", err)
	}
	defer rows.Close()

	out := map[string]any{}
	if rows.Next() {
		raw := make([]any, len(aggs))
		ptrs := make([]any, len(aggs))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		for i, a := range aggs {
			out[a.Name] = normalizeValue(raw[i])
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading aggregate row: %w", err)
	}
	return out, nil
}

// Update writes the given assignments to every row the set matches.
// Expressions may reference the set's annotations; their definitions are
// inlined. Relation paths are not allowed in an update.
func (s *Set) Update(ctx context.Context, sets ...Named) (int64, error) {
	c := newCompiler(s, false)

	assigns := make([]string, 0, len(sets))
	var args []any
	for _, a := range sets {
		if _, _, ok := s.table.Field(a.Name); !ok {
			return 0, &FieldMissingError{Table: s.table.Name, Field: a.Name}
		}
		frag, err := a.Expr.compile(c)
		if err != nil {
			return 0, err
		}
		assigns = append(assigns, q(a.Name)+" = "+frag.sql)
		args = append(args, frag.args...)
	}

	where, whereArgs, having, _, err := c.conditions()
	if err != nil {
		return 0, err
	}
	if having != "" {
		return 0, fmt.Errorf("cannot update with aggregate filters on %s", s.table.Name)
	}
	args = append(args, whereArgs...)

	stmt := "UPDATE " + q(s.table.Name) + " SET " + strings.Join(assigns, ", ")
	if where != "" {
		stmt += " WHERE " + where
	}

	res, err := s.sess.exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("update failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}
