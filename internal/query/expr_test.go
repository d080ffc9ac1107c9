package query

import (
	"testing"

	"shelfql/internal/schema"
)

func TestAggregateFlagPropagation(t *testing.T) {
	if F("rating").aggregate() {
		t.Error("field reference is not an aggregate")
	}
	if Value(1, schema.Int).aggregate() {
		t.Error("literal is not an aggregate")
	}
	if !Sum("age").aggregate() {
		t.Error("Sum is an aggregate")
	}
	// The flag travels through arithmetic and function calls, which is what
	// routes filters over such expressions into HAVING.
	if !Add(F("rating"), Sum("age")).aggregate() {
		t.Error("arithmetic over an aggregate is an aggregate")
	}
	if Mul(F("rating"), Value(2, schema.Int)).aggregate() {
		t.Error("plain arithmetic is not an aggregate")
	}
	if !Fn("COALESCE", Max("age"), Value(0, schema.Int)).aggregate() {
		t.Error("function over an aggregate is an aggregate")
	}
}

func TestAsExprLifting(t *testing.T) {
	if _, ok := asExpr("publisher__name").(FieldRef); !ok {
		t.Error("strings lift to field references")
	}
	if _, ok := asExpr(42).(Literal); !ok {
		t.Error("plain values lift to literals")
	}
	sum := Sum("age")
	if asExpr(sum) != sum {
		t.Error("expressions pass through unchanged")
	}
}

func TestExprKind(t *testing.T) {
	tab := &schema.Table{
		Name: "books",
		PK:   "id",
		Fields: []schema.Field{
			{Name: "rating", Kind: schema.Float},
			{Name: "in_print", Kind: schema.Bool},
		},
	}

	if k, ok := exprKind(Value(true, schema.Bool), tab); !ok || k != schema.Bool {
		t.Errorf("literal kind = %v, %v", k, ok)
	}
	if k, ok := exprKind(F("in_print"), tab); !ok || k != schema.Bool {
		t.Errorf("column kind = %v, %v", k, ok)
	}
	// Relation paths and aggregates cannot be classified without compiling.
	if _, ok := exprKind(F("publisher__name"), tab); ok {
		t.Error("relation path should be unclassified")
	}
	if _, ok := exprKind(Sum("rating"), tab); ok {
		t.Error("aggregate should be unclassified")
	}
}
