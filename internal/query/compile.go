package query

import (
	"fmt"
	"strings"

	"shelfql/internal/schema"
)

// colClass classifies a selected column. The SELECT list is always ordered
// extra columns, declared columns, annotations, related columns, and rows
// report their columns in that order.
type colClass int

const (
	colExtra colClass = iota
	colField
	colAnnotation
	colRelated
)

type col struct {
	name      string
	class     colClass
	kind      schema.Kind
	kindKnown bool
}

type aliasInfo struct {
	alias string
	table *schema.Table
}

// compiler holds per-query resolution state: table aliases, rendered joins
// and the annotation names currently being inlined (cycle guard).
type compiler struct {
	set     *Set
	qualify bool

	joins     []string
	aliases   map[string]aliasInfo
	njoin     int
	resolving map[string]bool

	// relatedAliases are the join targets select-related columns come from.
	// Grouped queries must group by their primary keys too, or the related
	// columns would be illegal under PostgreSQL's functional-dependence rules.
	relatedAliases []aliasInfo
}

func newCompiler(s *Set, qualify bool) *compiler {
	return &compiler{
		set:       s,
		qualify:   qualify,
		aliases:   map[string]aliasInfo{},
		resolving: map[string]bool{},
	}
}

func (c *compiler) baseAlias() aliasInfo {
	return aliasInfo{alias: c.set.table.Name, table: c.set.table}
}

func (c *compiler) newAlias() string {
	c.njoin++
	return fmt.Sprintf("j%d", c.njoin)
}

// resolveRef resolves a name the way filters and expressions see it:
// annotations first, then declared columns, then relation paths.
func (c *compiler) resolveRef(path string) (fragment, error) {
	if named, ok := c.annotation(path); ok {
		c.resolving[path] = true
		frag, err := named.Expr.compile(c)
		delete(c.resolving, path)
		return frag, err
	}
	return c.resolveField(path)
}

func (c *compiler) annotation(name string) (Named, bool) {
	if c.resolving[name] {
		return Named{}, false
	}
	for _, a := range c.set.annotations {
		if a.Name == name {
			return a, true
		}
	}
	return Named{}, false
}

func (c *compiler) choices() []string {
	names := make([]string, 0, len(c.set.annotations))
	for _, a := range c.set.annotations {
		names = append(names, a.Name)
	}
	return append(names, c.set.table.Choices()...)
}

// resolveField resolves a column name or a "__"-separated relation path into
// a qualified column reference, adding joins as needed.
func (c *compiler) resolveField(path string) (fragment, error) {
	segs := strings.Split(path, "__")
	cur := c.baseAlias()
	keyPrefix := ""

	for i, seg := range segs {
		if i == len(segs)-1 {
			f, owner, ok := cur.table.Field(seg)
			if !ok {
				// A path ending at a relation refers to the related rows
				// themselves, as in counting over a many-to-many.
				if rel, rowner, isRel := cur.table.Rel(seg); isRel && c.qualify {
					at := c.relAlias(cur, rowner, rel, keyPrefix, seg)
					return fragment{sql: q(at.alias) + "." + q(at.table.PK)}, nil
				}
				return fragment{}, &FieldError{Keyword: seg, Table: cur.table.Name, Choices: c.choices()}
			}
			if !c.qualify {
				return fragment{sql: q(f.Name)}, nil
			}
			at := c.ownerAlias(cur, owner, keyPrefix)
			return fragment{sql: q(at.alias) + "." + q(f.Name)}, nil
		}

		rel, owner, ok := cur.table.Rel(seg)
		if !ok {
			return fragment{}, &FieldError{Keyword: seg, Table: cur.table.Name, Choices: c.choices()}
		}
		if !c.qualify {
			return fragment{}, fmt.Errorf("cannot reference related path %q in an update", path)
		}
		cur = c.relAlias(cur, owner, rel, keyPrefix, seg)
		keyPrefix += seg + "__"
	}
	return fragment{}, &FieldError{Keyword: path, Table: c.set.table.Name, Choices: c.choices()}
}

// ownerAlias walks multi-table-inheritance links from cur up to the table
// that owns a column, joining each parent once.
func (c *compiler) ownerAlias(cur aliasInfo, owner *schema.Table, keyPrefix string) aliasInfo {
	for cur.table != owner {
		child := cur.table
		parent := child.Parent
		if parent == nil {
			return cur
		}
		key := keyPrefix + "^" + parent.Name
		if a, ok := c.aliases[key]; ok {
			cur = a
			continue
		}
		alias := c.newAlias()
		c.joins = append(c.joins, fmt.Sprintf("JOIN %s AS %s ON %s.%s = %s.%s",
			q(parent.Name), q(alias), q(cur.alias), q(child.ParentLink), q(alias), q(parent.PK)))
		info := aliasInfo{alias: alias, table: parent}
		c.aliases[key] = info
		c.relatedAliases = append(c.relatedAliases, info)
		cur = info
	}
	return cur
}

// relAlias joins a relation once and returns the alias of its target.
func (c *compiler) relAlias(cur aliasInfo, owner *schema.Table, rel schema.Rel, keyPrefix, seg string) aliasInfo {
	key := keyPrefix + seg
	if a, ok := c.aliases[key]; ok {
		return a
	}
	cur = c.ownerAlias(cur, owner, keyPrefix)

	var info aliasInfo
	switch rel.Kind {
	case schema.ForeignKey:
		alias := c.newAlias()
		c.joins = append(c.joins, fmt.Sprintf("LEFT JOIN %s AS %s ON %s.%s = %s.%s",
			q(rel.Target.Name), q(alias), q(cur.alias), q(rel.Column), q(alias), q(rel.Target.PK)))
		info = aliasInfo{alias: alias, table: rel.Target}
		// A foreign key joins at most one row, so grouping by its target
		// primary key never changes cardinality.
		c.relatedAliases = append(c.relatedAliases, info)

	case schema.ManyToMany:
		through := c.newAlias()
		c.joins = append(c.joins, fmt.Sprintf("LEFT JOIN %s AS %s ON %s.%s = %s.%s",
			q(rel.Through), q(through), q(cur.alias), q(owner.PK), q(through), q(rel.NearColumn)))
		alias := c.newAlias()
		c.joins = append(c.joins, fmt.Sprintf("LEFT JOIN %s AS %s ON %s.%s = %s.%s",
			q(rel.Target.Name), q(alias), q(through), q(rel.FarColumn), q(alias), q(rel.Target.PK)))
		info = aliasInfo{alias: alias, table: rel.Target}
	}

	c.aliases[key] = info
	return info
}

// relPath walks a select-related path of foreign keys and returns the final
// target alias.
func (c *compiler) relPath(path string) (aliasInfo, error) {
	cur := c.baseAlias()
	keyPrefix := ""
	for _, seg := range strings.Split(path, "__") {
		rel, owner, ok := cur.table.Rel(seg)
		if !ok {
			return aliasInfo{}, &FieldError{Keyword: seg, Table: cur.table.Name, Choices: c.choices()}
		}
		if rel.Kind != schema.ForeignKey {
			return aliasInfo{}, fmt.Errorf("select related requires a foreign key, %s.%s is not one", cur.table.Name, seg)
		}
		cur = c.relAlias(cur, owner, rel, keyPrefix, seg)
		keyPrefix += seg + "__"
	}
	return cur, nil
}

// conditions compiles the set's filters into WHERE and HAVING clauses.
func (c *compiler) conditions() (string, []any, string, []any, error) {
	var wheres, havings []string
	var wargs, hargs []any

	for _, p := range c.set.filters {
		var lfrag fragment
		var err error
		agg := false

		if named, ok := c.annotation(p.Path); ok {
			agg = named.Expr.aggregate()
			c.resolving[p.Path] = true
			lfrag, err = named.Expr.compile(c)
			delete(c.resolving, p.Path)
		} else {
			lfrag, err = c.resolveField(p.Path)
		}
		if err != nil {
			return "", nil, "", nil, err
		}

		var rfrag fragment
		if e, ok := p.RHS.(Expr); ok {
			rfrag, err = e.compile(c)
			if err != nil {
				return "", nil, "", nil, err
			}
			if e.aggregate() {
				agg = true
			}
		} else {
			rfrag = fragment{sql: "?", args: []any{normalizeArg(p.RHS)}}
		}

		cond := lfrag.sql + " " + p.Op + " " + rfrag.sql
		args := append(lfrag.args, rfrag.args...)
		if agg {
			havings = append(havings, cond)
			hargs = append(hargs, args...)
		} else {
			wheres = append(wheres, cond)
			wargs = append(wargs, args...)
		}
	}
	return strings.Join(wheres, " AND "), wargs, strings.Join(havings, " AND "), hargs, nil
}

func (c *compiler) fromClause() string {
	out := " FROM " + q(c.set.table.Name)
	for _, j := range c.joins {
		out += " " + j
	}
	return out
}

// groupRefs returns the column references a grouped query groups by: the
// base primary key, which preserves row identity while letting aggregates
// collapse joined rows, plus the primary key of every select-related target.
func (c *compiler) groupRefs() []string {
	refs := []string{q(c.set.table.Name) + "." + q(c.set.table.PK)}
	for _, a := range c.relatedAliases {
		refs = append(refs, q(a.alias)+"."+q(a.table.PK))
	}
	return refs
}

// rootPK returns the primary key column of the inheritance root.
func rootPK(t *schema.Table) string {
	for t.Parent != nil {
		t = t.Parent
	}
	return t.PK
}

// build compiles the full SELECT for All/Get.
func (s *Set) build() (string, []any, []col, error) {
	c := newCompiler(s, true)

	type sel struct {
		col  col
		frag fragment
	}
	var sels []sel

	// Extra select columns come first.
	for _, e := range s.extras {
		frag, err := e.Expr.compile(c)
		if err != nil {
			return "", nil, nil, err
		}
		sels = append(sels, sel{col{name: e.Name, class: colExtra}, frag})
	}

	fieldNames := s.table.FieldNames()
	pk := rootPK(s.table)

	deferred := map[string]bool{}
	for _, d := range s.deferred {
		if !containsString(fieldNames, d) {
			return "", nil, nil, &FieldMissingError{Table: s.table.Name, Field: d}
		}
		if d != pk {
			deferred[d] = true
		}
	}

	// Declared columns (or the values projection).
	base := fieldNames
	if len(s.values) > 0 {
		base = s.values
	}
	for _, name := range base {
		if len(s.values) == 0 && deferred[name] {
			continue
		}
		frag, err := c.resolveField(name)
		if err != nil {
			return "", nil, nil, err
		}
		cl := col{name: name, class: colField}
		if f, _, ok := s.table.Field(name); ok {
			cl.kind, cl.kindKnown = f.Kind, true
		}
		sels = append(sels, sel{cl, frag})
	}

	// Annotations.
	hasAggregate := false
	for _, a := range s.annotations {
		if _, _, ok := s.table.Field(a.Name); ok {
			return "", nil, nil, &AnnotationError{Table: s.table.Name, Name: a.Name}
		}
		frag, err := a.Expr.compile(c)
		if err != nil {
			return "", nil, nil, err
		}
		if a.Expr.aggregate() {
			hasAggregate = true
		}
		cl := col{name: a.Name, class: colAnnotation}
		cl.kind, cl.kindKnown = exprKind(a.Expr, s.table)
		sels = append(sels, sel{cl, frag})
	}

	// Related columns come last.
	for _, relName := range s.related {
		info, err := c.relPath(relName)
		if err != nil {
			return "", nil, nil, err
		}
		for _, fname := range info.table.FieldNames() {
			f, _, _ := info.table.Field(fname)
			sels = append(sels, sel{
				col{name: relName + "." + fname, class: colRelated, kind: f.Kind, kindKnown: true},
				fragment{sql: q(info.alias) + "." + q(fname)},
			})
		}
	}

	where, wargs, having, hargs, err := c.conditions()
	if err != nil {
		return "", nil, nil, err
	}

	var orderParts []string
	var oargs []any
	for _, name := range s.order {
		dir := ""
		n := name
		if strings.HasPrefix(n, "-") {
			n = strings.TrimPrefix(n, "-")
			dir = " DESC"
		}
		if _, ok := c.annotation(n); ok {
			orderParts = append(orderParts, q(n)+dir)
			continue
		}
		frag, err := c.resolveField(n)
		if err != nil {
			return "", nil, nil, err
		}
		orderParts = append(orderParts, frag.sql+dir)
		oargs = append(oargs, frag.args...)
	}

	selects := make([]string, len(sels))
	cols := make([]col, len(sels))
	var args []any
	for i, se := range sels {
		selects[i] = se.frag.sql + " AS " + q(se.col.name)
		cols[i] = se.col
		args = append(args, se.frag.args...)
	}

	stmt := "SELECT " + strings.Join(selects, ", ") + c.fromClause()
	if where != "" {
		stmt += " WHERE " + where
		args = append(args, wargs...)
	}
	if hasAggregate || having != "" {
		var groups []string
		if len(s.values) > 0 {
			for _, se := range sels {
				if se.col.class == colField {
					groups = append(groups, se.frag.sql)
				}
			}
		} else {
			groups = c.groupRefs()
		}
		stmt += " GROUP BY " + strings.Join(groups, ", ")
	}
	if having != "" {
		stmt += " HAVING " + having
		args = append(args, hargs...)
	}
	if len(orderParts) > 0 {
		stmt += " ORDER BY " + strings.Join(orderParts, ", ")
		args = append(args, oargs...)
	}

	return stmt, args, cols, nil
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
