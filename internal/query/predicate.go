package query

// Predicate is a single comparison in a filter clause. The left side is a
// name resolved against annotations first, then columns, then relation
// paths. The right side is a literal or an expression.
type Predicate struct {
	Path string
	Op   string
	RHS  any
}

// Eq compares for equality.
func Eq(path string, rhs any) Predicate { return Predicate{Path: path, Op: "=", RHS: rhs} }

// Ne compares for inequality.
func Ne(path string, rhs any) Predicate { return Predicate{Path: path, Op: "<>", RHS: rhs} }

// Gt compares with >.
func Gt(path string, rhs any) Predicate { return Predicate{Path: path, Op: ">", RHS: rhs} }

// Gte compares with >=.
func Gte(path string, rhs any) Predicate { return Predicate{Path: path, Op: ">=", RHS: rhs} }

// Lt compares with <.
func Lt(path string, rhs any) Predicate { return Predicate{Path: path, Op: "<", RHS: rhs} }

// Lte compares with <=.
func Lte(path string, rhs any) Predicate { return Predicate{Path: path, Op: "<=", RHS: rhs} }
