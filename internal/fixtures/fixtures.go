// Package fixtures loads serialized test datasets into a query session.
// A fixture is a JSON list of records shaped like
//
//	{"model": "bookstore.book", "pk": 3, "fields": {"title": "...", "publisher": 1, "authors": [4]}}
//
// where relation names carry keys of related rows instead of column values.
// Rows are inserted in record order first, then many-to-many links, so
// fixtures may reference rows declared later in the file.
package fixtures

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"

	"shelfql/internal/query"
	"shelfql/internal/schema"
)

// Load inserts every record of a serialized fixture. The tables map binds
// model labels to schema tables.
func Load(ctx context.Context, sess *query.Session, tables map[string]*schema.Table, data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("fixture is not valid JSON")
	}

	type link struct {
		table   *schema.Table
		rel     string
		pk      int64
		targets []int64
	}
	var links []link
	seen := map[*schema.Table]bool{}

	records := gjson.ParseBytes(data).Array()
	for i, rec := range records {
		label := rec.Get("model").String()
		t, ok := tables[label]
		if !ok {
			return fmt.Errorf("fixture record %d references unknown model %q", i, label)
		}
		pk := rec.Get("pk").Int()

		vals := map[string]any{t.PK: pk}
		var loadErr error
		rec.Get("fields").ForEach(func(key, value gjson.Result) bool {
			name := key.String()
			if rel, _, isRel := t.Rel(name); isRel {
				switch rel.Kind {
				case schema.ForeignKey:
					vals[rel.Column] = value.Int()
				case schema.ManyToMany:
					var targets []int64
					for _, v := range value.Array() {
						targets = append(targets, v.Int())
					}
					if len(targets) > 0 {
						links = append(links, link{table: t, rel: name, pk: pk, targets: targets})
					}
				}
				return true
			}

			f, _, isField := t.Field(name)
			if !isField {
				loadErr = fmt.Errorf("fixture record %d: %s has no field or relation %q", i, t.Name, name)
				return false
			}
			v, err := coerce(f, value)
			if err != nil {
				loadErr = fmt.Errorf("fixture record %d: %w", i, err)
				return false
			}
			vals[name] = v
			return true
		})
		if loadErr != nil {
			return loadErr
		}

		if _, err := sess.Insert(ctx, t, vals); err != nil {
			return fmt.Errorf("fixture record %d: %w", i, err)
		}
		seen[t] = true
	}

	for _, l := range links {
		if err := sess.Relate(ctx, l.table, l.rel, l.pk, l.targets...); err != nil {
			return err
		}
	}

	// Explicit keys leave engine-assigned sequences behind; catch them up so
	// later inserts do not collide.
	for t := range seen {
		if err := sess.SyncSequence(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// coerce converts a JSON value into the Go value a column expects. Decimal
// columns accept quoted strings, which is how serialized decimals avoid
// float drift in the fixture file.
func coerce(f schema.Field, v gjson.Result) (any, error) {
	if v.Type == gjson.Null {
		if !f.Nullable {
			return nil, fmt.Errorf("column %q is not nullable", f.Name)
		}
		return nil, nil
	}
	switch f.Kind {
	case schema.Int:
		return v.Int(), nil
	case schema.Float:
		return v.Float(), nil
	case schema.Decimal:
		if v.Type == gjson.String {
			parsed, err := strconv.ParseFloat(v.String(), 64)
			if err != nil {
				return nil, fmt.Errorf("column %q: invalid decimal %q", f.Name, v.String())
			}
			return parsed, nil
		}
		return v.Float(), nil
	case schema.Bool:
		return v.Bool(), nil
	default:
		return v.String(), nil
	}
}
