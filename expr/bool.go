package expr

import "strings"

// Node is the marker interface for boolean filter nodes. A Node tree
// is what Queryset.Filter accumulates and the compiler turns into a
// WHERE clause.
type Node interface {
	booleanNode()
}

// Condition is a leaf comparison: a field reference, a lookup kind and
// an operand expression.
type Condition struct {
	// Ref is the field being compared.
	Ref FieldRef
	// Lookup is the comparison kind.
	Lookup Lookup
	// Operand is the right-hand side. A FieldRef or BinaryArith operand
	// compiles to column references with no parameters.
	Operand Expression
}

func (Condition) booleanNode() {}

// AndNode is a conjunction of child nodes. Children are ordered but
// semantically commutative.
type AndNode struct {
	// Children are the conjoined nodes.
	Children []Node
}

func (AndNode) booleanNode() {}

// OrNode is a disjunction of child nodes.
type OrNode struct {
	// Children are the alternative nodes.
	Children []Node
}

func (OrNode) booleanNode() {}

// NotNode negates its child.
type NotNode struct {
	// Child is the negated node.
	Child Node
}

func (NotNode) booleanNode() {}

// Q builds a leaf condition from a lookup string and a value:
//
//	Q("power_level__gt", 9000)
//	Q("address__city__name__iexact", "stl")
//	Q("name", F("code_name"))
//
// The final double-underscore segment is treated as the lookup kind
// when it names one; otherwise the whole string is a field path and
// the lookup defaults to exact. Path validity is checked at IR build
// time, not here.
func Q(lookup string, value any) Condition {
	segs := strings.Split(lookup, "__")
	kind := Exact
	if len(segs) > 1 {
		if l, ok := KnownLookup(segs[len(segs)-1]); ok {
			kind = l
			segs = segs[:len(segs)-1]
		}
	}
	return Condition{Ref: FieldRef{Path: segs}, Lookup: kind, Operand: Wrap(value)}
}

// And combines nodes into a conjunction, flattening nested AndNodes.
// A single node passes through unchanged.
func And(nodes ...Node) Node {
	flat := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if a, ok := n.(AndNode); ok {
			flat = append(flat, a.Children...)
		} else {
			flat = append(flat, n)
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return AndNode{Children: flat}
}

// Or combines nodes into a disjunction, flattening nested OrNodes.
// A single node passes through unchanged.
func Or(nodes ...Node) Node {
	flat := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if o, ok := n.(OrNode); ok {
			flat = append(flat, o.Children...)
		} else {
			flat = append(flat, n)
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return OrNode{Children: flat}
}

// Not negates a node. A double negation unwraps.
func Not(node Node) Node {
	if n, ok := node.(NotNode); ok {
		return n.Child
	}
	return NotNode{Child: node}
}
