package schema

import (
	"errors"
	"testing"
	"time"
)

type testUser struct {
	ID         int64  `djorm:"pk"`
	Name       string `djorm:""`
	CodeName   string
	PowerLevel int64
	BaseLevel  int64
	Secret     string `djorm:"-"`

	Addresses []*testAddress `djorm:"addresses,rev=test_address,on=id:user_id"`
}

type testCity struct {
	ID   int64 `djorm:"pk,table=cities"`
	Name string
}

type testAddress struct {
	ID     int64 `djorm:"pk"`
	Street string
	UserID int64
	CityID int64
	User   *testUser `djorm:"user,fk=test_user"`
	City   *testCity `djorm:"city,fk=test_city"`
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	if err := RegisterModelIn[testUser](r); err != nil {
		t.Fatal(err)
	}
	if err := RegisterModelIn[testCity](r); err != nil {
		t.Fatal(err)
	}
	if err := RegisterModelIn[testAddress](r); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRegisterModel_Fields(t *testing.T) {
	r := newTestRegistry(t)
	e, ok := r.Lookup("test_user")
	if !ok {
		t.Fatal("test_user not registered")
	}
	if e.Table != "test_user" {
		t.Errorf("table = %q, want %q", e.Table, "test_user")
	}

	wantCols := []string{"id", "name", "code_name", "power_level", "base_level"}
	cols := e.Columns()
	if len(cols) != len(wantCols) {
		t.Fatalf("columns = %v, want %v", cols, wantCols)
	}
	for i, c := range wantCols {
		if cols[i] != c {
			t.Errorf("column %d = %q, want %q", i, cols[i], c)
		}
	}

	pk, ok := e.PrimaryKey()
	if !ok || pk.Name != "id" {
		t.Errorf("primary key = %v, %v; want id", pk, ok)
	}
	if _, ok := e.Field("secret"); ok {
		t.Error("skipped field secret was registered")
	}
}

func TestRegisterModel_TableOverride(t *testing.T) {
	r := newTestRegistry(t)
	e, ok := r.Lookup("test_city")
	if !ok {
		t.Fatal("test_city not registered")
	}
	if e.Table != "cities" {
		t.Errorf("table = %q, want cities", e.Table)
	}
}

func TestRegisterModel_ForeignKeys(t *testing.T) {
	r := newTestRegistry(t)
	e, ok := r.Lookup("test_address")
	if !ok {
		t.Fatal("test_address not registered")
	}

	rel, ok := e.Relation("user")
	if !ok {
		t.Fatal("relation user missing")
	}
	if rel.Target != "test_user" {
		t.Errorf("target = %q, want test_user", rel.Target)
	}
	if rel.Cardinality != ManyToOne {
		t.Errorf("cardinality = %v, want ManyToOne", rel.Cardinality)
	}
	if rel.LocalColumn != "user_id" || rel.ForeignColumn != "id" {
		t.Errorf("join columns = %s/%s, want user_id/id", rel.LocalColumn, rel.ForeignColumn)
	}

	// The key column itself stays a plain field, so inserts and
	// hydration see it.
	if f, ok := e.Field("user_id"); !ok || f.Kind != KindInt {
		t.Errorf("user_id field = %v, %v; want int field", f, ok)
	}
}

func TestRegisterModel_ReverseRelation(t *testing.T) {
	r := newTestRegistry(t)
	e, _ := r.Lookup("test_user")

	rel, ok := e.Relation("addresses")
	if !ok {
		t.Fatal("relation addresses missing")
	}
	if rel.Cardinality != OneToMany {
		t.Errorf("cardinality = %v, want OneToMany", rel.Cardinality)
	}
	if rel.Target != "test_address" {
		t.Errorf("target = %q, want test_address", rel.Target)
	}
	// The on= option pins both join columns.
	if rel.LocalColumn != "id" || rel.ForeignColumn != "user_id" {
		t.Errorf("join columns = %s/%s, want id/user_id", rel.LocalColumn, rel.ForeignColumn)
	}
}

func TestRegisterModel_ReverseRelationDefaults(t *testing.T) {
	type revPet struct {
		ID      int64 `djorm:"pk"`
		OwnerID int64
	}
	type revOwner struct {
		ID   int64     `djorm:"pk"`
		Pets []*revPet `djorm:"pets,rev=rev_pet"`
	}
	r := NewRegistry()
	if err := RegisterModelIn[revPet](r); err != nil {
		t.Fatal(err)
	}
	if err := RegisterModelIn[revOwner](r); err != nil {
		t.Fatal(err)
	}

	e, _ := r.Lookup("rev_owner")
	rel, ok := e.Relation("pets")
	if !ok {
		t.Fatal("relation pets missing")
	}
	// Without on=, the foreign column defaults to <owner>_id.
	if rel.LocalColumn != "id" || rel.ForeignColumn != "rev_owner_id" {
		t.Errorf("join columns = %s/%s, want id/rev_owner_id", rel.LocalColumn, rel.ForeignColumn)
	}
}

func TestRegisterModel_MalformedOn(t *testing.T) {
	type badOn struct {
		ID   int64       `djorm:"pk"`
		Pets []*testCity `djorm:"pets,rev=test_city,on=id"`
	}
	if err := RegisterModelIn[badOn](NewRegistry()); err == nil {
		t.Fatal("want error for on= without a colon")
	}

	type strayOn struct {
		ID int64 `djorm:"pk,on=id:owner_id"`
	}
	if err := RegisterModelIn[strayOn](NewRegistry()); err == nil {
		t.Fatal("want error for on= outside fk/rev")
	}
}

func TestRegisterModel_ManyToMany(t *testing.T) {
	type testTag struct {
		ID   int64 `djorm:"pk"`
		Name string
	}
	type testPost struct {
		ID   int64      `djorm:"pk"`
		Tags []*testTag `djorm:"tags,m2m=test_tag"`
	}
	r := NewRegistry()
	if err := RegisterModelIn[testTag](r); err != nil {
		t.Fatal(err)
	}
	if err := RegisterModelIn[testPost](r); err != nil {
		t.Fatal(err)
	}

	e, _ := r.Lookup("test_post")
	rel, ok := e.Relation("tags")
	if !ok {
		t.Fatal("relation tags missing")
	}
	if rel.Cardinality != ManyToMany {
		t.Errorf("cardinality = %v, want ManyToMany", rel.Cardinality)
	}
	if rel.LinkTable != "test_post_tags" {
		t.Errorf("link table = %q, want test_post_tags", rel.LinkTable)
	}
	if rel.LinkLocal != "test_post_id" || rel.LinkForeign != "test_tag_id" {
		t.Errorf("link columns = %s/%s", rel.LinkLocal, rel.LinkForeign)
	}
}

func TestRegisterModel_UnsupportedType(t *testing.T) {
	type bad struct {
		Data map[string]int
	}
	if err := RegisterModelIn[bad](NewRegistry()); err == nil {
		t.Fatal("want error for unsupported field type")
	}
}

func TestRegisterModel_Duplicate(t *testing.T) {
	r := NewRegistry()
	if err := RegisterModelIn[testCity](r); err != nil {
		t.Fatal(err)
	}
	err := RegisterModelIn[testCity](r)
	var dup *DuplicateEntityError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v, want *DuplicateEntityError", err)
	}
}

func TestFieldKindOf_Time(t *testing.T) {
	type stamped struct {
		ID        int64 `djorm:"pk"`
		CreatedAt time.Time
		DeletedAt *time.Time `djorm:"deleted_at,nullable"`
	}
	r := NewRegistry()
	if err := RegisterModelIn[stamped](r); err != nil {
		t.Fatal(err)
	}
	e, _ := r.Lookup("stamped")
	f, ok := e.Field("created_at")
	if !ok || f.Kind != KindTime {
		t.Errorf("created_at = %v, %v; want time field", f, ok)
	}
	f, _ = e.Field("deleted_at")
	if !f.Nullable {
		t.Error("deleted_at should be nullable")
	}
}

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"User", "user"},
		{"CodeName", "code_name"},
		{"UserID", "user_id"},
		{"PowerLevel", "power_level"},
		{"HTTPServer", "http_server"},
		{"ID", "id"},
	}
	for _, tt := range tests {
		if got := SnakeCase(tt.in); got != tt.want {
			t.Errorf("SnakeCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
