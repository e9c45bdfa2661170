package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garrypolley/djorm/expr"
	"github.com/garrypolley/djorm/ir"
)

func TestCompileInsert(t *testing.T) {
	sql, params, err := New(SQLite).CompileInsert("user",
		[]string{"name", "power_level"}, []any{"vegeta", 9001})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO user (name, power_level) VALUES (?, ?)", sql)
	assert.Equal(t, []any{"vegeta", 9001}, params)
}

func TestCompileInsert_Mismatch(t *testing.T) {
	_, _, err := New(nil).CompileInsert("user", []string{"name"}, []any{"a", "b"})
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
}

func TestCompileUpdate(t *testing.T) {
	q := buildQuery(t, "user", func(b *ir.Builder) {
		b.Filter(expr.Q("power_level__gt", 9000))
	})
	sql, params, err := New(nil).CompileUpdate(q, []Assignment{
		{Column: "base_level", Value: 100},
		{Column: "code_name", Value: "over9000"},
	})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE user SET base_level = %s, code_name = %s WHERE user.power_level > %s", sql)
	// SET parameters come before WHERE parameters.
	assert.Equal(t, []any{100, "over9000", 9000}, params)
}

func TestCompileUpdate_RejectsJoins(t *testing.T) {
	q := buildQuery(t, "address", func(b *ir.Builder) {
		b.Filter(expr.Q("user__name", "vegeta"))
	})
	_, _, err := New(nil).CompileUpdate(q, []Assignment{{Column: "street", Value: "elm"}})
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
}

func TestCompileUpdate_NoAssignments(t *testing.T) {
	q := buildQuery(t, "user", func(b *ir.Builder) {})
	_, _, err := New(nil).CompileUpdate(q, nil)
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
}

func TestCompileDelete(t *testing.T) {
	q := buildQuery(t, "user", func(b *ir.Builder) {
		b.Filter(expr.Q("name", "nappa"))
	})
	sql, params, err := New(nil).CompileDelete(q)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM user WHERE user.name = %s", sql)
	assert.Equal(t, []any{"nappa"}, params)
}

func TestCompileDelete_RejectsJoins(t *testing.T) {
	q := buildQuery(t, "address", func(b *ir.Builder) {
		b.Filter(expr.Q("city__name", "stl"))
	})
	_, _, err := New(nil).CompileDelete(q)
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
}
