package delivery

import (
	"encoding/json"
	"fmt"
)

// Entity is a hydrated resource. Field values are nil, bool, string,
// json.Number, []any, map[string]any or *Entity for a resolved link.
//
// The graph may contain cycles: an edge back to a resource already being
// built is the same *Entity pointer.
type Entity struct {
	Sys    Sys
	Fields map[string]any
}

// Key returns the linkable identity of the entity.
func (e *Entity) Key() Key {
	key, _ := e.Sys.Key()

	return key
}

// ContentTypeID returns the content type id of the entity, if any.
func (e *Entity) ContentTypeID() string {
	return e.Sys.ContentTypeID()
}

// Field returns the hydrated value of a field, or nil.
func (e *Entity) Field(name string) any {
	if e == nil || e.Fields == nil {
		return nil
	}

	return e.Fields[name]
}

// Link returns the resolved entity stored in a field, or nil.
func (e *Entity) Link(name string) *Entity {
	linked, _ := e.Field(name).(*Entity)

	return linked
}

// String returns a short identity for logs.
func (e *Entity) String() string {
	return fmt.Sprintf("%s(%s)", e.Sys.Type, e.Sys.ID)
}

// Plain converts the entity to maps and slices that encode without cycles.
// An edge back into the current path is written as a link stub.
func (e *Entity) Plain() map[string]any {
	return plainEntity(e, make(map[*Entity]bool))
}

// MarshalJSON encodes the cycle-safe plain form.
func (e *Entity) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(e.Plain())
	if err != nil {
		return nil, fmt.Errorf("encoding entity %s: %w", e.Sys.ID, err)
	}

	return data, nil
}

// MarshalYAML encodes the cycle-safe plain form.
func (e *Entity) MarshalYAML() (interface{}, error) {
	return e.Plain(), nil
}

func plainEntity(entity *Entity, path map[*Entity]bool) map[string]any {
	if path[entity] {
		key := entity.Key()

		return map[string]any{"sys": NewLink(key.LinkType, key.ID).Sys}
	}

	path[entity] = true
	defer delete(path, entity)

	out := map[string]any{"sys": entity.Sys}
	if entity.Fields != nil {
		fields := make(map[string]any, len(entity.Fields))
		for name, value := range entity.Fields {
			fields[name] = plainValue(value, path)
		}

		out["fields"] = fields
	}

	return out
}

func plainValue(value any, path map[*Entity]bool) any {
	switch typed := value.(type) {
	case *Entity:
		if typed == nil {
			return nil
		}

		return plainEntity(typed, path)
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, child := range typed {
			out[key] = plainValue(child, path)
		}

		return out
	case []any:
		out := make([]any, len(typed))
		for i, child := range typed {
			out[i] = plainValue(child, path)
		}

		return out
	default:
		return value
	}
}
