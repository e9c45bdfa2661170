package expr

import (
	"reflect"
	"testing"
)

func TestQ_LookupSuffix(t *testing.T) {
	tests := []struct {
		in       string
		wantPath []string
		wantKind Lookup
	}{
		{"power_level__gt", []string{"power_level"}, Gt},
		{"name", []string{"name"}, Exact},
		{"address__city__name__iexact", []string{"address", "city", "name"}, IExact},
		{"address__street", []string{"address", "street"}, Exact},
		{"deleted_at__isnull", []string{"deleted_at"}, IsNull},
		// "in" only counts as a lookup in suffix position.
		{"in", []string{"in"}, Exact},
	}
	for _, tt := range tests {
		cond := Q(tt.in, 1)
		if !reflect.DeepEqual(cond.Ref.Path, tt.wantPath) {
			t.Errorf("Q(%q) path = %v, want %v", tt.in, cond.Ref.Path, tt.wantPath)
		}
		if cond.Lookup != tt.wantKind {
			t.Errorf("Q(%q) lookup = %v, want %v", tt.in, cond.Lookup, tt.wantKind)
		}
	}
}

func TestQ_OperandWrapping(t *testing.T) {
	cond := Q("name", "vegeta")
	if lit, ok := cond.Operand.(Literal); !ok || lit.Val != "vegeta" {
		t.Errorf("operand = %#v, want Literal{vegeta}", cond.Operand)
	}

	cond = Q("name", F("code_name"))
	if ref, ok := cond.Operand.(FieldRef); !ok || ref.PathKey() != "code_name" {
		t.Errorf("operand = %#v, want FieldRef{code_name}", cond.Operand)
	}
}

func TestAnd_Flattens(t *testing.T) {
	a := Q("a", 1)
	b := Q("b", 2)
	c := Q("c", 3)

	n := And(And(a, b), c)
	and, ok := n.(AndNode)
	if !ok {
		t.Fatalf("node = %T, want AndNode", n)
	}
	if len(and.Children) != 3 {
		t.Errorf("children = %d, want 3 (nested AND flattened)", len(and.Children))
	}
}

func TestOr_Flattens(t *testing.T) {
	n := Or(Or(Q("a", 1), Q("b", 2)), Q("c", 3))
	or, ok := n.(OrNode)
	if !ok {
		t.Fatalf("node = %T, want OrNode", n)
	}
	if len(or.Children) != 3 {
		t.Errorf("children = %d, want 3 (nested OR flattened)", len(or.Children))
	}
}

func TestJunction_SingletonUnwraps(t *testing.T) {
	a := Q("a", 1)
	if _, ok := And(a).(Condition); !ok {
		t.Error("And of one node should return the node itself")
	}
	if _, ok := Or(a).(Condition); !ok {
		t.Error("Or of one node should return the node itself")
	}
}

func TestNot_DoubleNegation(t *testing.T) {
	a := Q("a", 1)
	if _, ok := Not(Not(a)).(Condition); !ok {
		t.Error("Not(Not(x)) should unwrap to x")
	}
	if _, ok := Not(a).(NotNode); !ok {
		t.Error("Not(x) should wrap in NotNode")
	}
}

func TestFieldRef_Arithmetic(t *testing.T) {
	e := F("power_level").Add(F("base_level")).Mul(2)
	outer, ok := any(e).(BinaryArith)
	if !ok {
		t.Fatalf("expression = %T, want BinaryArith", e)
	}
	if outer.Op != OpMul {
		t.Errorf("outer op = %v, want OpMul", outer.Op)
	}
	inner, ok := outer.Left.(BinaryArith)
	if !ok || inner.Op != OpAdd {
		t.Errorf("inner = %#v, want addition", outer.Left)
	}
	if lit, ok := outer.Right.(Literal); !ok || lit.Val != 2 {
		t.Errorf("right = %#v, want Literal{2}", outer.Right)
	}
}

func TestFPath(t *testing.T) {
	ref := FPath("address__city__name")
	if got := ref.PathKey(); got != "address__city__name" {
		t.Errorf("PathKey = %q", got)
	}
	if len(ref.Path) != 3 {
		t.Errorf("segments = %d, want 3", len(ref.Path))
	}
}
