package schema

// Step is one relation traversal in a resolved lookup path.
type Step struct {
	// Relation is the relation definition being traversed.
	Relation RelationDef
	// From is the entity owning the relation.
	From *Entity
	// To is the entity the relation points at.
	To *Entity
}

// ResolvedPath is the result of walking a lookup path against the
// registry: the chain of traversed relations and the final field.
type ResolvedPath struct {
	// Steps holds the traversed relations, in path order. Empty for a
	// path naming a field on the root entity directly.
	Steps []Step
	// Entity is the entity owning the final field.
	Entity *Entity
	// Field is the final field the path resolves to.
	Field FieldDef
}

// Resolve walks a lookup path (e.g. ["address", "city", "name"])
// starting at root. Every segment but the last must name a relation;
// the last must name a field. A trailing to-one relation name resolves
// to its local key column, mirroring the common "filter by related id"
// shorthand.
func Resolve(r *Registry, root *Entity, path []string) (*ResolvedPath, error) {
	if len(path) == 0 {
		return nil, &UnknownFieldError{Entity: root.Name, Name: ""}
	}

	resolved := &ResolvedPath{Entity: root}
	current := root
	for i, seg := range path {
		last := i == len(path)-1
		if last {
			if f, ok := current.Field(seg); ok {
				resolved.Entity = current
				resolved.Field = f
				return resolved, nil
			}
			if rel, ok := current.Relation(seg); ok {
				if rel.Cardinality == ManyToMany || rel.Cardinality == OneToMany {
					// To-many relations have no single key column to
					// compare against.
					return nil, &InvalidPathError{Entity: current.Name, Path: path, Segment: seg}
				}
				resolved.Entity = current
				resolved.Field = FieldDef{Name: rel.Name, Column: rel.LocalColumn, Kind: KindInt}
				return resolved, nil
			}
			return nil, &UnknownFieldError{Entity: current.Name, Name: seg}
		}

		rel, ok := current.Relation(seg)
		if !ok {
			if _, isField := current.Field(seg); isField {
				return nil, &InvalidPathError{Entity: current.Name, Path: path, Segment: seg}
			}
			return nil, &UnknownFieldError{Entity: current.Name, Name: seg}
		}
		target, ok := r.Lookup(rel.Target)
		if !ok {
			return nil, &NotRegisteredError{TypeName: rel.Target}
		}
		resolved.Steps = append(resolved.Steps, Step{Relation: rel, From: current, To: target})
		current = target
	}
	// Unreachable: the loop returns on the last segment.
	return nil, &UnknownFieldError{Entity: root.Name, Name: path[len(path)-1]}
}
