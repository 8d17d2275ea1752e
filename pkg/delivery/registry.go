package delivery

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sync"
)

// ContentTypeResolver maps a content type id to the Go type its entries are
// materialized into when the target is an interface.
type ContentTypeResolver interface {
	Resolve(contentTypeID string) (reflect.Type, bool)
}

// ContentTypeResolverFunc adapts a function to ContentTypeResolver.
type ContentTypeResolverFunc func(contentTypeID string) (reflect.Type, bool)

// Resolve calls f.
func (f ContentTypeResolverFunc) Resolve(contentTypeID string) (reflect.Type, bool) {
	return f(contentTypeID)
}

// ContentTypeRegistry is a ContentTypeResolver backed by a map. It is safe
// for concurrent use.
type ContentTypeRegistry struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewContentTypeRegistry creates an empty registry.
func NewContentTypeRegistry() *ContentTypeRegistry {
	return &ContentTypeRegistry{types: make(map[string]reflect.Type)}
}

// RegisterType maps contentTypeID to typ. typ must be a struct or a pointer
// to a struct.
func (r *ContentTypeRegistry) RegisterType(contentTypeID string, typ reflect.Type) error {
	if contentTypeID == "" {
		return fmt.Errorf("%w: empty content type id", ErrInvalidContentTypeMapping)
	}

	if typ == nil {
		return fmt.Errorf("%w: nil type for %s", ErrInvalidContentTypeMapping, contentTypeID)
	}

	base := typ
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}

	if base.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %s maps to %v, want a struct", ErrInvalidContentTypeMapping, contentTypeID, typ)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.types[contentTypeID] = typ

	return nil
}

// Resolve implements ContentTypeResolver.
func (r *ContentTypeRegistry) Resolve(contentTypeID string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typ, ok := r.types[contentTypeID]

	return typ, ok
}

// ContentTypes returns the registered ids in sorted order.
func (r *ContentTypeRegistry) ContentTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.types))
}

// Register maps contentTypeID to T.
//
//	reg := delivery.NewContentTypeRegistry()
//	_ = delivery.Register[*BlogPost](reg, "blogPost")
func Register[T any](reg *ContentTypeRegistry, contentTypeID string) error {
	return reg.RegisterType(contentTypeID, reflect.TypeFor[T]())
}
