package query

import (
	"strings"

	"shelfql/internal/schema"
)

// Expr is a SQL value expression: a column reference, a literal, a function
// call, an aggregate or an arithmetic combination of those. Expressions are
// compiled per query by the Set's compiler, which resolves field paths and
// annotation names into column references.
type Expr interface {
	compile(c *compiler) (fragment, error)
	aggregate() bool
}

// fragment is a compiled piece of SQL together with its bind arguments.
type fragment struct {
	sql  string
	args []any
}

// FieldRef references a column by name or by a relation path such as
// "publisher__num_awards". Inside a query it resolves annotation names first,
// then columns, then relation paths.
type FieldRef struct {
	Path string
}

// F builds a field reference.
func F(path string) FieldRef { return FieldRef{Path: path} }

func (f FieldRef) compile(c *compiler) (fragment, error) { return c.resolveRef(f.Path) }

func (f FieldRef) aggregate() bool { return false }

// Literal is a constant value with an optional declared kind. The kind is
// used to normalize scanned results (SQLite reports booleans as integers).
type Literal struct {
	Val  any
	Kind schema.Kind
}

// Value builds a literal expression.
func Value(v any, kind schema.Kind) Literal { return Literal{Val: v, Kind: kind} }

func (l Literal) compile(_ *compiler) (fragment, error) {
	return fragment{sql: "?", args: []any{normalizeArg(l.Val)}}, nil
}

func (l Literal) aggregate() bool { return false }

// FuncExpr is a call to a SQL function by name, e.g. COALESCE or LOWER.
// The engine executing the query must support the function; nothing is
// validated here.
type FuncExpr struct {
	Name string
	Args []Expr
	Kind schema.Kind
}

// Fn builds a SQL function call expression.
func Fn(name string, args ...Expr) FuncExpr {
	return FuncExpr{Name: name, Args: args, Kind: schema.Text}
}

func (f FuncExpr) compile(c *compiler) (fragment, error) {
	parts := make([]string, 0, len(f.Args))
	var args []any
	for _, a := range f.Args {
		frag, err := a.compile(c)
		if err != nil {
			return fragment{}, err
		}
		parts = append(parts, frag.sql)
		args = append(args, frag.args...)
	}
	return fragment{sql: f.Name + "(" + strings.Join(parts, ", ") + ")", args: args}, nil
}

func (f FuncExpr) aggregate() bool {
	for _, a := range f.Args {
		if a.aggregate() {
			return true
		}
	}
	return false
}

// aggExpr is an aggregate over a single argument expression.
type aggExpr struct {
	fn  string
	arg Expr
}

// Sum builds a SUM aggregate. The argument may be a field path string or an
// arbitrary expression.
func Sum(arg any) Expr { return aggExpr{fn: "SUM", arg: asExpr(arg)} }

// Count builds a COUNT aggregate over a field path string or expression.
func Count(arg any) Expr { return aggExpr{fn: "COUNT", arg: asExpr(arg)} }

// Avg builds an AVG aggregate.
func Avg(arg any) Expr { return aggExpr{fn: "AVG", arg: asExpr(arg)} }

// Max builds a MAX aggregate.
func Max(arg any) Expr { return aggExpr{fn: "MAX", arg: asExpr(arg)} }

// Min builds a MIN aggregate.
func Min(arg any) Expr { return aggExpr{fn: "MIN", arg: asExpr(arg)} }

func (a aggExpr) compile(c *compiler) (fragment, error) {
	frag, err := a.arg.compile(c)
	if err != nil {
		return fragment{}, err
	}
	return fragment{sql: a.fn + "(" + frag.sql + ")", args: frag.args}, nil
}

func (a aggExpr) aggregate() bool { return true }

// binExpr is an infix arithmetic expression.
type binExpr struct {
	op   string
	l, r Expr
}

// Add builds l + r.
func Add(l, r any) Expr { return binExpr{op: "+", l: asExpr(l), r: asExpr(r)} }

// Sub builds l - r.
func Sub(l, r any) Expr { return binExpr{op: "-", l: asExpr(l), r: asExpr(r)} }

// Mul builds l * r.
func Mul(l, r any) Expr { return binExpr{op: "*", l: asExpr(l), r: asExpr(r)} }

func (b binExpr) compile(c *compiler) (fragment, error) {
	lf, err := b.l.compile(c)
	if err != nil {
		return fragment{}, err
	}
	rf, err := b.r.compile(c)
	if err != nil {
		return fragment{}, err
	}
	return fragment{
		sql:  "(" + lf.sql + " " + b.op + " " + rf.sql + ")",
		args: append(lf.args, rf.args...),
	}, nil
}

func (b binExpr) aggregate() bool { return b.l.aggregate() || b.r.aggregate() }

// rawExpr is a raw SQL snippet, used for extra-select columns.
type rawExpr struct {
	sql string
}

func (r rawExpr) compile(_ *compiler) (fragment, error) { return fragment{sql: r.sql}, nil }

func (r rawExpr) aggregate() bool { return false }

// Named binds an alias to an expression, as used by Set.Aggregate.
type Named struct {
	Name string
	Expr Expr
}

// As names an expression.
func As(name string, e Expr) Named { return Named{Name: name, Expr: e} }

// asExpr lifts a field path string or plain value into an expression.
func asExpr(v any) Expr {
	switch t := v.(type) {
	case Expr:
		return t
	case string:
		return F(t)
	default:
		return Literal{Val: v}
	}
}

// normalizeArg converts Go values into forms every supported driver binds
// consistently.
func normalizeArg(v any) any {
	switch t := v.(type) {
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return v
	}
}

// exprKind reports the declared result kind of an expression where one can
// be derived without compiling it. Auto (-1) means unknown.
func exprKind(e Expr, t *schema.Table) (schema.Kind, bool) {
	switch x := e.(type) {
	case Literal:
		return x.Kind, true
	case FuncExpr:
		return x.Kind, true
	case FieldRef:
		if !strings.Contains(x.Path, "__") {
			if f, _, ok := t.Field(x.Path); ok {
				return f.Kind, true
			}
		}
	}
	return 0, false
}
