// Package expr defines the field expression and boolean filter algebra
// for building queries. Values here are pure data: constructing and
// combining them never touches a schema or a database. Field paths are
// validated later, when the IR builder resolves them against the
// registry.
package expr

import "strings"

// Expression is the marker interface for value expressions usable as
// condition operands.
type Expression interface {
	expression()
}

// Literal is a constant operand. It always compiles to a parameter
// placeholder, never to inline SQL text.
type Literal struct {
	// Val is the literal value.
	Val any
}

func (Literal) expression() {}

// FieldRef references a field by its lookup path. A path with more
// than one segment traverses relations and induces joins.
type FieldRef struct {
	// Path is the ordered list of relation names ending in a field name.
	Path []string
}

func (FieldRef) expression() {}

// PathKey returns the canonical double-underscore form of the path.
func (f FieldRef) PathKey() string {
	return strings.Join(f.Path, "__")
}

// F creates a field reference from path segments:
// F("address", "city", "name").
func F(path ...string) FieldRef {
	return FieldRef{Path: path}
}

// FPath creates a field reference from a double-underscore lookup
// string: FPath("address__city__name").
func FPath(path string) FieldRef {
	return FieldRef{Path: strings.Split(path, "__")}
}

// ArithOp is a binary arithmetic operator usable inside expressions.
type ArithOp string

const (
	// OpAdd is addition.
	OpAdd ArithOp = "+"
	// OpSub is subtraction.
	OpSub ArithOp = "-"
	// OpMul is multiplication.
	OpMul ArithOp = "*"
	// OpDiv is division.
	OpDiv ArithOp = "/"
)

// BinaryArith is an arithmetic combination of two expressions,
// evaluated entirely inside SQL.
type BinaryArith struct {
	// Op is the infix operator.
	Op ArithOp
	// Left is the left operand.
	Left Expression
	// Right is the right operand.
	Right Expression
}

func (BinaryArith) expression() {}

// Add returns f + other. Non-expression operands are wrapped as
// literals.
func (f FieldRef) Add(other any) BinaryArith {
	return BinaryArith{Op: OpAdd, Left: f, Right: Wrap(other)}
}

// Sub returns f - other.
func (f FieldRef) Sub(other any) BinaryArith {
	return BinaryArith{Op: OpSub, Left: f, Right: Wrap(other)}
}

// Mul returns f * other.
func (f FieldRef) Mul(other any) BinaryArith {
	return BinaryArith{Op: OpMul, Left: f, Right: Wrap(other)}
}

// Div returns f / other.
func (f FieldRef) Div(other any) BinaryArith {
	return BinaryArith{Op: OpDiv, Left: f, Right: Wrap(other)}
}

// Add returns a + other, allowing chained arithmetic.
func (a BinaryArith) Add(other any) BinaryArith {
	return BinaryArith{Op: OpAdd, Left: a, Right: Wrap(other)}
}

// Sub returns a - other.
func (a BinaryArith) Sub(other any) BinaryArith {
	return BinaryArith{Op: OpSub, Left: a, Right: Wrap(other)}
}

// Mul returns a * other.
func (a BinaryArith) Mul(other any) BinaryArith {
	return BinaryArith{Op: OpMul, Left: a, Right: Wrap(other)}
}

// Div returns a / other.
func (a BinaryArith) Div(other any) BinaryArith {
	return BinaryArith{Op: OpDiv, Left: a, Right: Wrap(other)}
}

// Wrap converts a Go value into an Expression. Expressions pass
// through; anything else becomes a Literal.
func Wrap(v any) Expression {
	if e, ok := v.(Expression); ok {
		return e
	}
	return Literal{Val: v}
}
