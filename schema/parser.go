package schema

import (
	"fmt"
	"os"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// --- Participle grammar structs ---

// schemaFile is the top-level grammar: a sequence of entity blocks.
type schemaFile struct {
	Entities []entityDef `parser:"@@*"`
}

// entityDef parses: entity name [table name] { decl* }
type entityDef struct {
	Name  string       `parser:"'entity' @Ident"`
	Table string       `parser:"('table' @Ident)?"`
	Decls []entityDecl `parser:"'{' @@* '}'"`
}

// entityDecl is one field or relation declaration, terminated by ';'.
type entityDecl struct {
	Field *fieldDecl `parser:"( @@"`
	Rel   *relDecl   `parser:"| @@ ) ';'"`
}

// fieldDecl parses: field name kind [col column] [pk] [nullable]
// [default value] [choices(v, ...)]
type fieldDecl struct {
	Name     string   `parser:"'field' @Ident"`
	Kind     string   `parser:"@Ident"`
	Column   string   `parser:"('col' @Ident)?"`
	PK       bool     `parser:"@'pk'?"`
	Nullable bool     `parser:"@'nullable'?"`
	Default  *string  `parser:"('default' @(Number|String|Ident))?"`
	Choices  []string `parser:"('choices' '(' @(Number|String) (',' @(Number|String))* ')')?"`
}

// relDecl parses: rel name cardinality target [on local = foreign]
// [via table (local, foreign)]
type relDecl struct {
	Name   string   `parser:"'rel' @Ident"`
	Card   string   `parser:"@Ident"`
	Target string   `parser:"@Ident"`
	On     *onDecl  `parser:"@@?"`
	Via    *viaDecl `parser:"@@?"`
}

// onDecl parses: on local = foreign
type onDecl struct {
	Local   string `parser:"'on' @Ident"`
	Foreign string `parser:"'=' @Ident"`
}

// viaDecl parses: via table (local, foreign)
type viaDecl struct {
	Table   string `parser:"'via' @Ident"`
	Local   string `parser:"'(' @Ident"`
	Foreign string `parser:"',' @Ident ')'"`
}

var schemaLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s]+`},
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
	{Name: "Number", Pattern: `-?[0-9]+(?:\.[0-9]+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Punct", Pattern: `[;,(){}=]`},
})

// ParseSchema parses a schema DSL string into a fresh Registry. The
// DSL is a compact textual form of entity declarations, convenient for
// tools that compile queries without a compiled-in model (see
// cmd/djorm):
//
//	entity user {
//	    field id int pk;
//	    field name string;
//	    field gender int default 3 choices(1, 2, 3, 4);
//	}
//
//	entity address table addresses {
//	    field id int pk;
//	    field street string;
//	    rel user many_to_one user on user_id = id;
//	    rel gangsta_users many_to_many user;
//	}
func ParseSchema(input string) (*Registry, error) {
	parser, err := participle.Build[schemaFile](
		participle.Lexer(schemaLexer),
		participle.Elide("Comment", "Whitespace"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("build parser: %w", err)
	}

	file, err := parser.ParseString("schema", input)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	return convertSchema(file)
}

// ParseSchemaFile reads a schema DSL file and parses it.
func ParseSchemaFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return ParseSchema(string(data))
}

func convertSchema(file *schemaFile) (*Registry, error) {
	reg := NewRegistry()
	for _, ed := range file.Entities {
		entity := &Entity{Name: ed.Name, Table: ed.Table}
		if entity.Table == "" {
			entity.Table = entity.Name
		}
		for _, decl := range ed.Decls {
			switch {
			case decl.Field != nil:
				f, err := convertField(ed.Name, decl.Field)
				if err != nil {
					return nil, err
				}
				entity.Fields = append(entity.Fields, f)
			case decl.Rel != nil:
				r, err := convertRel(ed.Name, decl.Rel)
				if err != nil {
					return nil, err
				}
				entity.Relations = append(entity.Relations, r)
			}
		}
		if err := reg.Add(entity); err != nil {
			return nil, err
		}
	}

	// Relation targets may be declared after their referrers, so
	// validate only once every entity is in.
	for _, e := range reg.Entities() {
		for _, rel := range e.Relations {
			if _, ok := reg.Lookup(rel.Target); !ok {
				return nil, fmt.Errorf("entity %q: relation %q targets unknown entity %q",
					e.Name, rel.Name, rel.Target)
			}
		}
	}
	return reg, nil
}

func convertField(entity string, fd *fieldDecl) (FieldDef, error) {
	var kind FieldKind
	switch fd.Kind {
	case "string":
		kind = KindString
	case "int":
		kind = KindInt
	case "float":
		kind = KindFloat
	case "bool":
		kind = KindBool
	case "time":
		kind = KindTime
	default:
		return FieldDef{}, fmt.Errorf("entity %q: field %q has unknown kind %q", entity, fd.Name, fd.Kind)
	}

	def := FieldDef{
		Name:       fd.Name,
		Column:     fd.Name,
		Kind:       kind,
		PrimaryKey: fd.PK,
		Nullable:   fd.Nullable,
	}
	if fd.Column != "" {
		def.Column = fd.Column
	}
	if fd.Default != nil {
		def.Default = convertLiteral(*fd.Default)
	}
	for _, c := range fd.Choices {
		def.Choices = append(def.Choices, convertLiteral(c))
	}
	return def, nil
}

func convertRel(entity string, rd *relDecl) (RelationDef, error) {
	rel := RelationDef{Name: rd.Name, Target: rd.Target}
	switch rd.Card {
	case "one_to_one":
		rel.Cardinality = OneToOne
	case "many_to_one":
		rel.Cardinality = ManyToOne
	case "many_to_many":
		rel.Cardinality = ManyToMany
	case "one_to_many":
		rel.Cardinality = OneToMany
	default:
		return RelationDef{}, fmt.Errorf("entity %q: relation %q has unknown cardinality %q",
			entity, rd.Name, rd.Card)
	}

	if rel.Cardinality == ManyToMany {
		rel.LocalColumn = "id"
		rel.ForeignColumn = "id"
		rel.LinkTable = entity + "_" + rd.Name
		rel.LinkLocal = entity + "_id"
		rel.LinkForeign = rd.Target + "_id"
		if rd.Via != nil {
			rel.LinkTable = rd.Via.Table
			rel.LinkLocal = rd.Via.Local
			rel.LinkForeign = rd.Via.Foreign
		}
		return rel, nil
	}

	if rel.Cardinality == OneToMany {
		rel.LocalColumn = "id"
		rel.ForeignColumn = entity + "_id"
	} else {
		rel.LocalColumn = rd.Name + "_id"
		rel.ForeignColumn = "id"
	}
	if rd.On != nil {
		rel.LocalColumn = rd.On.Local
		rel.ForeignColumn = rd.On.Foreign
	}
	return rel, nil
}

// convertLiteral interprets a DSL literal token as int, float, bool or
// unquoted string.
func convertLiteral(s string) any {
	if len(s) >= 2 && s[0] == '"' {
		if unquoted, err := strconv.Unquote(s); err == nil {
			return unquoted
		}
	}
	return parseTagValue(s)
}
