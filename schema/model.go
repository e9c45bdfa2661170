package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ModelInfo ties a registered entity to the Go struct it was extracted
// from, so query results can be hydrated back into struct values.
type ModelInfo struct {
	// Entity is the extracted schema entity.
	Entity *Entity
	// GoType is the reflection type of the backing struct.
	GoType reflect.Type
	// FieldIndex maps logical field names to struct field indices.
	FieldIndex map[string]int
}

// RegisterModel extracts an Entity from the struct type T and registers
// it with the default registry. Field mapping is controlled by `djorm`
// struct tags:
//
//	ID        int64      `djorm:"id,pk"`
//	Street    string     `djorm:"street"`
//	User      *User      `djorm:"user,fk=user"`
//	Tags      []*Tag     `djorm:"tags,m2m=tag"`
//	Addresses []*Address `djorm:"addresses,rev=address"`
//
// The first tag element is the logical field name (default: snake case
// of the Go field name). Supported options: pk, nullable, col=<column>,
// default=<value>, choices=<a|b|c>, fk=<entity>, rev=<entity>,
// m2m=<entity>, on=<local>:<foreign> (overrides the join columns of a
// fk or rev relation), table=<name> (on any field, overrides the table
// name).
//
// rev declares the reverse side of a foreign key held by the target
// entity: it joins this entity's id column to the target's
// <this_entity>_id column unless on= says otherwise.
func RegisterModel[T any]() error {
	return RegisterModelIn[T](defaultRegistry)
}

// MustRegisterModel calls RegisterModel and panics on error.
func MustRegisterModel[T any]() {
	if err := RegisterModel[T](); err != nil {
		panic(err)
	}
}

// RegisterModelIn registers the struct type T with a specific registry.
func RegisterModelIn[T any](r *Registry) error {
	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	info, err := extractModelInfo(t)
	if err != nil {
		return fmt.Errorf("registering %s: %w", t.Name(), err)
	}
	if err := r.Add(info.Entity); err != nil {
		return fmt.Errorf("registering %s: %w", t.Name(), err)
	}
	r.mu.Lock()
	r.byType[t] = info
	r.mu.Unlock()
	return nil
}

func extractModelInfo(t reflect.Type) (*ModelInfo, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct, got %s", t.Kind())
	}

	entity := &Entity{Name: SnakeCase(t.Name())}
	info := &ModelInfo{
		Entity:     entity,
		GoType:     t,
		FieldIndex: make(map[string]int),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}
		tag, err := parseTag(field.Tag.Get("djorm"))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		if tag.Skip {
			continue
		}
		if tag.Name == "" {
			tag.Name = SnakeCase(field.Name)
		}
		if tag.Table != "" {
			entity.Table = tag.Table
		}

		switch {
		case tag.FK != "":
			rel := RelationDef{
				Name:          tag.Name,
				Target:        tag.FK,
				Cardinality:   ManyToOne,
				LocalColumn:   tag.Name + "_id",
				ForeignColumn: "id",
			}
			if tag.Column != "" {
				rel.LocalColumn = tag.Column
			}
			if tag.OnLocal != "" {
				rel.LocalColumn = tag.OnLocal
				rel.ForeignColumn = tag.OnForeign
			}
			if tag.OneToOne {
				rel.Cardinality = OneToOne
			}
			entity.Relations = append(entity.Relations, rel)

		case tag.Rev != "":
			rel := RelationDef{
				Name:          tag.Name,
				Target:        tag.Rev,
				Cardinality:   OneToMany,
				LocalColumn:   "id",
				ForeignColumn: SnakeCase(t.Name()) + "_id",
			}
			if tag.OnLocal != "" {
				rel.LocalColumn = tag.OnLocal
				rel.ForeignColumn = tag.OnForeign
			}
			entity.Relations = append(entity.Relations, rel)

		case tag.M2M != "":
			entity.Relations = append(entity.Relations, RelationDef{
				Name:          tag.Name,
				Target:        tag.M2M,
				Cardinality:   ManyToMany,
				LocalColumn:   "id",
				ForeignColumn: "id",
				LinkTable:     SnakeCase(t.Name()) + "_" + tag.Name,
				LinkLocal:     SnakeCase(t.Name()) + "_id",
				LinkForeign:   tag.M2M + "_id",
			})

		default:
			if tag.OnLocal != "" {
				return nil, fmt.Errorf("field %s: on= requires fk= or rev=", field.Name)
			}
			kind, err := fieldKindOf(field.Type)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
			def := FieldDef{
				Name:       tag.Name,
				Column:     tag.Name,
				Kind:       kind,
				PrimaryKey: tag.PK,
				Nullable:   tag.Nullable,
				Default:    tag.Default,
				Choices:    tag.Choices,
			}
			if tag.Column != "" {
				def.Column = tag.Column
			}
			entity.Fields = append(entity.Fields, def)
			info.FieldIndex[tag.Name] = i
		}
	}

	if entity.Table == "" {
		entity.Table = entity.Name
	}
	return info, nil
}

// fieldTag is the parsed form of a `djorm` struct tag.
type fieldTag struct {
	Name      string
	Column    string
	Table     string
	PK        bool
	Nullable  bool
	OneToOne  bool
	Skip      bool
	FK        string
	Rev       string
	M2M       string
	OnLocal   string
	OnForeign string
	Default   any
	Choices   []any
}

func parseTag(tag string) (fieldTag, error) {
	if tag == "-" {
		return fieldTag{Skip: true}, nil
	}
	ft := fieldTag{}
	if tag == "" {
		return ft, nil
	}
	for i, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch {
		case part == "pk":
			ft.PK = true
		case part == "nullable":
			ft.Nullable = true
		case part == "o2o":
			ft.OneToOne = true
		case strings.HasPrefix(part, "col="):
			ft.Column = strings.TrimPrefix(part, "col=")
		case strings.HasPrefix(part, "table="):
			ft.Table = strings.TrimPrefix(part, "table=")
		case strings.HasPrefix(part, "fk="):
			ft.FK = strings.TrimPrefix(part, "fk=")
		case strings.HasPrefix(part, "rev="):
			ft.Rev = strings.TrimPrefix(part, "rev=")
		case strings.HasPrefix(part, "m2m="):
			ft.M2M = strings.TrimPrefix(part, "m2m=")
		case strings.HasPrefix(part, "on="):
			local, foreign, ok := strings.Cut(strings.TrimPrefix(part, "on="), ":")
			if !ok || local == "" || foreign == "" {
				return fieldTag{}, fmt.Errorf("malformed on= option: %q", part)
			}
			ft.OnLocal, ft.OnForeign = local, foreign
		case strings.HasPrefix(part, "default="):
			ft.Default = parseTagValue(strings.TrimPrefix(part, "default="))
		case strings.HasPrefix(part, "choices="):
			for _, c := range strings.Split(strings.TrimPrefix(part, "choices="), "|") {
				ft.Choices = append(ft.Choices, parseTagValue(c))
			}
		default:
			if i == 0 {
				ft.Name = part
			} else {
				return fieldTag{}, fmt.Errorf("unknown tag option: %q", part)
			}
		}
	}
	return ft, nil
}

// parseTagValue interprets a tag literal as int, float, bool or string.
func parseTagValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

var timeType = reflect.TypeOf(time.Time{})

func fieldKindOf(t reflect.Type) (FieldKind, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == timeType {
		return KindTime, nil
	}
	switch t.Kind() {
	case reflect.String:
		return KindString, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt, nil
	case reflect.Float32, reflect.Float64:
		return KindFloat, nil
	case reflect.Bool:
		return KindBool, nil
	}
	return 0, fmt.Errorf("unsupported field type %s", t)
}

// SnakeCase converts a Go identifier to snake case, keeping acronym
// runs together (e.g. "CodeName" -> "code_name", "UserID" -> "user_id").
func SnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || nextLower) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
