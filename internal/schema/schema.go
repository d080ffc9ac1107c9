// Package schema holds declarative table metadata consumed by the query
// compiler: column kinds, foreign keys, many-to-many join tables and
// multi-table inheritance links. Tables describe relational shape only;
// connection management lives in internal/storage.
package schema

// Kind identifies the value kind of a column.
type Kind int

const (
	Int Kind = iota
	Float
	Text
	Bool
	Date
	Time
	Decimal
)

// Field describes a single column on a table.
type Field struct {
	Name     string
	Kind     Kind
	Nullable bool
}

// RelKind identifies how a relation is stored.
type RelKind int

const (
	// ForeignKey is a column on this table holding the target's primary key.
	ForeignKey RelKind = iota
	// ManyToMany goes through a join table. The same shape covers both
	// directions: NearColumn references this table's primary key and
	// FarColumn references the target's.
	ManyToMany
)

// Rel describes a named relation from one table to another.
type Rel struct {
	Name   string
	Kind   RelKind
	Target *Table

	// Column is the local FK column (ForeignKey only).
	Column string

	// Through, NearColumn and FarColumn describe the join table
	// (ManyToMany only).
	Through    string
	NearColumn string
	FarColumn  string
}

// Table describes one relational table. Parent, when set, marks a
// multi-table-inheritance child whose ParentLink column is both primary key
// and foreign key to the parent's primary key.
type Table struct {
	Name       string
	PK         string
	Parent     *Table
	ParentLink string
	Fields     []Field
	Rels       []Rel
}

// Field looks up a column by name on the table or any inheritance parent.
// The second return reports which table actually owns the column.
func (t *Table) Field(name string) (Field, *Table, bool) {
	for tab := t; tab != nil; tab = tab.Parent {
		for _, f := range tab.Fields {
			if f.Name == name {
				return f, tab, true
			}
		}
		if name == tab.PK {
			return Field{Name: tab.PK, Kind: Int}, tab, true
		}
	}
	return Field{}, nil, false
}

// Rel looks up a relation by name on the table or any inheritance parent.
// The second return reports the table owning the relation.
func (t *Table) Rel(name string) (Rel, *Table, bool) {
	for tab := t; tab != nil; tab = tab.Parent {
		for _, r := range tab.Rels {
			if r.Name == name {
				return r, tab, true
			}
		}
	}
	return Rel{}, nil, false
}

// FieldNames returns the names of all selectable columns, parent columns
// first, in declaration order. The primary key is always first.
func (t *Table) FieldNames() []string {
	var names []string
	var walk func(tab *Table)
	walk = func(tab *Table) {
		if tab == nil {
			return
		}
		walk(tab.Parent)
		if tab.Parent == nil {
			names = append(names, tab.PK)
		}
		for _, f := range tab.Fields {
			names = append(names, f.Name)
		}
	}
	walk(t)
	return names
}

// Choices returns every name resolvable on the table: columns first, then
// relations. Used to build field-resolution error messages.
func (t *Table) Choices() []string {
	names := t.FieldNames()
	for tab := t; tab != nil; tab = tab.Parent {
		for _, r := range tab.Rels {
			names = append(names, r.Name)
		}
	}
	return names
}
