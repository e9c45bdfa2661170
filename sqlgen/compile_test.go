package sqlgen

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garrypolley/djorm/expr"
	"github.com/garrypolley/djorm/ir"
	"github.com/garrypolley/djorm/schema"
)

const fixtureSchema = `
entity user {
    field id int pk;
    field name string;
    field code_name string;
    field power_level int;
    field base_level int;
}

entity city table cities {
    field id int pk;
    field name string;
}

entity address {
    field id int pk;
    field street string;
    field user_id int;
    field city_id int;
    rel user many_to_one user on user_id = id;
    rel city many_to_one city on city_id = id;
    rel gangsta_users many_to_many user via address_gangsta (address_id, user_id);
}
`

func buildQuery(t *testing.T, root string, build func(*ir.Builder)) *ir.Query {
	t.Helper()
	reg, err := schema.ParseSchema(fixtureSchema)
	require.NoError(t, err)
	e, ok := reg.Lookup(root)
	require.True(t, ok)
	b := ir.NewBuilder(reg, e)
	build(b)
	q, err := b.Build()
	require.NoError(t, err)
	return q
}

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestCompile_FilterJoinAnnotate(t *testing.T) {
	q := buildQuery(t, "address", func(b *ir.Builder) {
		b.Filter(expr.Q("street__iexact", "elm"))
		b.Annotate("max", ir.Max, expr.FPath("user__power_level"))
	})

	sql, params, err := New(nil).Compile(q)
	require.NoError(t, err)
	assert.Equal(t, []any{"elm"}, params)
	golden(t).Assert(t, "filter_join_annotate", []byte(sql))
}

func TestCompile_OrFilter(t *testing.T) {
	q := buildQuery(t, "user", func(b *ir.Builder) {
		b.Filter(expr.Or(expr.Q("power_level__gt", 9000), expr.Q("base_level__gt", 9000)))
	})

	sql, params, err := New(nil).Compile(q)
	require.NoError(t, err)
	assert.Equal(t, []any{9000, 9000}, params)
	assert.Contains(t, sql, "WHERE (user.power_level > %s OR user.base_level > %s)")
	golden(t).Assert(t, "or_filter", []byte(sql))
}

func TestCompile_ManyToManyOrderLimit(t *testing.T) {
	q := buildQuery(t, "address", func(b *ir.Builder) {
		b.Filter(expr.Q("gangsta_users__name", "nappa"))
		b.OrderBy(expr.FPath("street"), true)
		b.Limit(10)
		b.Offset(5)
	})

	sql, params, err := New(nil).Compile(q)
	require.NoError(t, err)
	assert.Equal(t, []any{"nappa"}, params)
	golden(t).Assert(t, "m2m_order_limit", []byte(sql))
}

func TestCompile_PostgresPlaceholders(t *testing.T) {
	q := buildQuery(t, "user", func(b *ir.Builder) {
		b.Filter(expr.Q("name__iexact", "vegeta"))
		b.Filter(expr.Q("power_level__in", []int{1, 2, 3}))
	})

	sql, params, err := New(Postgres).Compile(q)
	require.NoError(t, err)
	assert.Equal(t, []any{"vegeta", 1, 2, 3}, params)
	assert.Contains(t, sql, "UPPER(user.name) = UPPER($1)")
	assert.Contains(t, sql, "user.power_level IN ($2, $3, $4)")
	golden(t).Assert(t, "postgres_placeholders", []byte(sql))
}

func TestCompile_PostgresCaseInsensitive(t *testing.T) {
	q := buildQuery(t, "user", func(b *ir.Builder) {
		b.Filter(expr.Q("name__icontains", "geta"))
	})
	sql, params, err := New(Postgres).Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, `user.name ILIKE $1 ESCAPE '\'`)
	assert.Equal(t, []any{"%geta%"}, params)

	// iexact is equality, never a pattern match.
	q = buildQuery(t, "user", func(b *ir.Builder) {
		b.Filter(expr.Q("name__iexact", "100%"))
	})
	sql, params, err = New(Postgres).Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, "UPPER(user.name) = UPPER($1)")
	assert.Equal(t, []any{"100%"}, params)
}

func TestCompile_SelfReferenceNoParams(t *testing.T) {
	q := buildQuery(t, "user", func(b *ir.Builder) {
		b.Filter(expr.Q("name", expr.F("code_name")))
	})

	sql, params, err := New(nil).Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE user.name = user.code_name")
	assert.Empty(t, params, "column comparison adds nothing to the parameter list")
}

func TestCompile_InjectionSafety(t *testing.T) {
	hostile := `'; DROP TABLE user; --`
	q := buildQuery(t, "user", func(b *ir.Builder) {
		b.Filter(expr.Q("name", hostile))
	})

	sql, params, err := New(nil).Compile(q)
	require.NoError(t, err)
	assert.NotContains(t, sql, "DROP TABLE", "operand text must never reach the SQL")
	assert.Equal(t, []any{hostile}, params)
}

func TestCompile_DeMorganTextDiffers(t *testing.T) {
	a := expr.Q("power_level__gt", 10)
	b := expr.Q("base_level__gt", 20)

	qNand := buildQuery(t, "user", func(qb *ir.Builder) {
		qb.Filter(expr.Not(expr.And(a, b)))
	})
	qOrNot := buildQuery(t, "user", func(qb *ir.Builder) {
		qb.Filter(expr.Or(expr.Not(a), expr.Not(b)))
	})

	sqlNand, paramsNand, err := New(nil).Compile(qNand)
	require.NoError(t, err)
	sqlOrNot, paramsOrNot, err := New(nil).Compile(qOrNot)
	require.NoError(t, err)

	// Logically equivalent, textually distinct.
	assert.NotEqual(t, sqlNand, sqlOrNot)
	assert.Contains(t, sqlNand, "NOT ((user.power_level > %s AND user.base_level > %s))")
	assert.Contains(t, sqlOrNot, "(NOT (user.power_level > %s) OR NOT (user.base_level > %s))")
	assert.Equal(t, paramsNand, paramsOrNot)
}

func TestCompile_Arithmetic(t *testing.T) {
	q := buildQuery(t, "user", func(b *ir.Builder) {
		b.Filter(expr.Condition{
			Ref:     expr.F("power_level"),
			Lookup:  expr.Gt,
			Operand: expr.F("base_level").Mul(2),
		})
	})

	sql, params, err := New(nil).Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE user.power_level > (user.base_level * %s)")
	assert.Equal(t, []any{2}, params)
}

func TestCompile_IsNull(t *testing.T) {
	q := buildQuery(t, "user", func(b *ir.Builder) {
		b.Filter(expr.Q("code_name__isnull", true))
	})
	sql, params, err := New(nil).Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE user.code_name IS NULL")
	assert.Empty(t, params)

	q = buildQuery(t, "user", func(b *ir.Builder) {
		b.Filter(expr.Q("code_name__isnull", false))
	})
	sql, _, err = New(nil).Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE user.code_name IS NOT NULL")
}

func TestCompile_EmptyInMatchesNothing(t *testing.T) {
	q := buildQuery(t, "user", func(b *ir.Builder) {
		b.Filter(expr.Q("power_level__in", []int{}))
	})
	sql, params, err := New(nil).Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE 1 = 0")
	assert.Empty(t, params)
}

func TestCompile_LikeWildcards(t *testing.T) {
	q := buildQuery(t, "user", func(b *ir.Builder) {
		b.Filter(expr.Q("name__contains", "saiy"))
	})
	sql, params, err := New(nil).Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, `user.name LIKE %s ESCAPE '\'`)
	assert.Equal(t, []any{"%saiy%"}, params)

	q = buildQuery(t, "user", func(b *ir.Builder) {
		b.Filter(expr.Q("name__startswith", "ve"))
	})
	_, params, err = New(nil).Compile(q)
	require.NoError(t, err)
	assert.Equal(t, []any{"ve%"}, params)
}

func TestCompile_LikeMetacharactersMatchLiterally(t *testing.T) {
	tests := []struct {
		path string
		val  string
		want string
	}{
		{"name__contains", "100%", `%100\%%`},
		{"name__contains", "a_b", `%a\_b%`},
		{"name__icontains", `c:\tmp`, `%c:\\tmp%`},
		{"name__startswith", "50%_off", `50\%\_off%`},
	}
	for _, tt := range tests {
		q := buildQuery(t, "user", func(b *ir.Builder) {
			b.Filter(expr.Q(tt.path, tt.val))
		})
		_, params, err := New(nil).Compile(q)
		require.NoError(t, err)
		assert.Equal(t, []any{tt.want}, params, "%s %q", tt.path, tt.val)
	}
}

func TestCompile_UnsupportedLookup(t *testing.T) {
	crippled := Default.clone()
	delete(crippled.Lookups, expr.Contains)

	q := buildQuery(t, "user", func(b *ir.Builder) {
		b.Filter(expr.Q("name__contains", "x"))
	})
	_, _, err := New(crippled).Compile(q)
	var unsupported *UnsupportedLookupError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, expr.Contains, unsupported.Lookup)
}

func TestCompile_SQLitePlaceholders(t *testing.T) {
	q := buildQuery(t, "user", func(b *ir.Builder) {
		b.Filter(expr.Q("power_level__gte", 100))
	})
	sql, params, err := New(SQLite).Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, "user.power_level >= ?")
	assert.Equal(t, []any{100}, params)
}

func TestCompileCount(t *testing.T) {
	q := buildQuery(t, "address", func(b *ir.Builder) {
		b.Filter(expr.Q("user__power_level__gt", 9000))
		b.Limit(10)
	})
	sql, params, err := New(nil).CompileCount(q)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sql, "SELECT COUNT(*) FROM address"))
	assert.Contains(t, sql, "LEFT OUTER JOIN user ON (address.user_id = user.id)")
	assert.NotContains(t, sql, "LIMIT", "count ignores pagination")
	assert.Equal(t, []any{9000}, params)
}

func TestCompileCount_GroupedCountsGroups(t *testing.T) {
	q := buildQuery(t, "address", func(b *ir.Builder) {
		b.Filter(expr.Q("street__startswith", "E"))
		b.Annotate("max", ir.Max, expr.FPath("gangsta_users__power_level"))
	})
	sql, params, err := New(nil).CompileCount(q)
	require.NoError(t, err)

	// The m2m join multiplies rows; counting must collapse the grouping
	// first so Count agrees with the length of the grouped result.
	assert.True(t, strings.HasPrefix(sql, "SELECT COUNT(*) FROM (SELECT address.id, address.street, address.user_id, address.city_id FROM address"))
	assert.Contains(t, sql, "LEFT OUTER JOIN address_gangsta")
	assert.Contains(t, sql, "GROUP BY address.id, address.street, address.user_id, address.city_id) AS grouped")
	assert.Equal(t, []any{"E%"}, params)
}

func TestCompile_ParamsNeverNil(t *testing.T) {
	q := buildQuery(t, "user", func(b *ir.Builder) {})
	_, params, err := New(nil).Compile(q)
	require.NoError(t, err)
	assert.NotNil(t, params)
	assert.Empty(t, params)
}

func TestDialect_WithLookupDoesNotMutate(t *testing.T) {
	custom := Default.WithLookup(expr.IExact, "%s ILIKE %s")
	assert.Equal(t, "%s ILIKE %s", custom.Lookups[expr.IExact])
	assert.Equal(t, "UPPER(%s) = UPPER(%s)", Default.Lookups[expr.IExact])
}
