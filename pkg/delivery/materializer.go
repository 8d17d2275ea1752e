package delivery

import (
	"bytes"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	entityPtrType     = reflect.TypeFor[*Entity]()
	assetPtrType      = reflect.TypeFor[*Asset]()
	sysType           = reflect.TypeFor[Sys]()
	sysPtrType        = reflect.TypeFor[*Sys]()
	richTextType      = reflect.TypeFor[RichText]()
	richTextPtrType   = reflect.TypeFor[*RichText]()
	timeType          = reflect.TypeFor[time.Time]()
	jsonUnmarshaler   = reflect.TypeFor[json.Unmarshaler]()
	textUnmarshaler   = reflect.TypeFor[encoding.TextUnmarshaler]()
	contentResourceTy = reflect.TypeFor[ContentResource]()
)

// Materialize converts every item of res into T. Items whose content type
// has no Go type assignable to T are collected in Collection.Unmapped; a
// value that does not fit its target fails the call with a
// *MaterializeError. An included asset that no item references and that does
// not fit Asset is logged and left out of Collection.IncludedAssets.
//
// Within one call, each hydrated resource materialized into the same
// pointer type yields the same pointer, so shared references and cycles in
// the graph are preserved.
func Materialize[T any](res *Resolution, opts ...Option) (*Collection[T], error) {
	if res == nil {
		return nil, ErrNilResolution
	}

	m := newMaterializer(newOptions(opts))

	col := &Collection[T]{
		Skip:            res.Skip,
		Limit:           res.Limit,
		Total:           res.Total,
		Items:           make([]T, 0, len(res.Items)),
		IncludedEntries: res.IncludedEntries,
		IncludedAssets:  make([]*Asset, 0, len(res.IncludedAssets)),
		Errors:          res.Errors,
	}

	for _, item := range res.Items {
		var value T

		err := m.assignEntity(reflect.ValueOf(&value).Elem(), item)
		if errors.Is(err, ErrUnmappedContentType) {
			col.Unmapped = append(col.Unmapped, item)

			continue
		}

		if err != nil {
			return nil, err
		}

		col.Items = append(col.Items, value)
	}

	for _, included := range res.IncludedAssets {
		asset, err := m.pointerFor(included, assetPtrType)
		if err != nil {
			if m.logger != nil {
				m.logger.Warn("Included asset does not fit Asset", map[string]interface{}{
					"id":    included.Sys.ID,
					"error": err.Error(),
				})
			}

			continue
		}

		col.IncludedAssets = append(col.IncludedAssets, asset.Interface().(*Asset))
	}

	return col, nil
}

// MaterializeEntity converts a single hydrated resource into T.
func MaterializeEntity[T any](entity *Entity, opts ...Option) (T, error) {
	var value T

	if entity == nil {
		return value, nil
	}

	m := newMaterializer(newOptions(opts))

	err := m.assignEntity(reflect.ValueOf(&value).Elem(), entity)
	if errors.Is(err, ErrUnmappedContentType) {
		return value, fmt.Errorf("%w: %q into %v", ErrUnmappedContentType, entity.ContentTypeID(), reflect.TypeFor[T]())
	}

	return value, err
}

type memoKey struct {
	entity *Entity
	typ    reflect.Type
}

// location tracks where a value sits while it is being materialized.
type location struct {
	id   string
	path string
}

func (l location) child(name string) location {
	if l.path == "" {
		return location{id: l.id, path: name}
	}

	return location{id: l.id, path: l.path + "." + name}
}

func (l location) index(i int) location {
	return location{id: l.id, path: fmt.Sprintf("%s[%d]", l.path, i)}
}

type materializer struct {
	resolver ContentTypeResolver
	validate *validator.Validate
	logger   Logger

	// memo holds one pointer per (resource, pointer type), registered before
	// the pointee is filled.
	memo map[memoKey]reflect.Value

	// active holds non-pointer struct targets on the current path. Re-entry
	// leaves the value zero.
	active map[memoKey]bool
}

func newMaterializer(o *options) *materializer {
	return &materializer{
		resolver: o.resolver,
		validate: o.validator,
		logger:   o.logger,
		memo:     make(map[memoKey]reflect.Value),
		active:   make(map[memoKey]bool),
	}
}

func (m *materializer) fail(loc location, typ reflect.Type, err error) error {
	return &MaterializeError{ID: loc.id, Path: loc.path, Type: typ, Err: err}
}

// assign stores value into dst. A nested link whose content type cannot be
// placed in an interface target leaves dst zero.
func (m *materializer) assign(dst reflect.Value, value any, loc location) error {
	if value == nil {
		dst.SetZero()

		return nil
	}

	if dst.Type() == richTextType || dst.Type() == richTextPtrType {
		return m.assignRichText(dst, value, loc)
	}

	if entity, ok := value.(*Entity); ok {
		err := m.assignEntity(dst, entity)
		if errors.Is(err, ErrUnmappedContentType) {
			dst.SetZero()

			return nil
		}

		return err
	}

	source := reflect.ValueOf(value)
	if source.Type().AssignableTo(dst.Type()) {
		dst.Set(source)

		return nil
	}

	switch dst.Kind() {
	case reflect.Pointer:
		elem := reflect.New(dst.Type().Elem())

		err := m.assign(elem.Elem(), value, loc)
		if err != nil {
			return err
		}

		dst.Set(elem)

		return nil
	case reflect.Struct:
		object, ok := value.(map[string]any)
		if !ok || isLeafStruct(dst.Type()) {
			return m.decodeLeaf(dst, value, loc)
		}

		err := m.fillStruct(dst, object, nil, loc)
		if err != nil {
			return err
		}

		return m.validateStruct(dst, loc)
	case reflect.Map:
		object, ok := value.(map[string]any)
		if !ok || dst.Type().Key().Kind() != reflect.String {
			return m.decodeLeaf(dst, value, loc)
		}

		return m.assignMap(dst, object, loc)
	case reflect.Slice:
		list, ok := value.([]any)
		if !ok || dst.Type().Elem().Kind() == reflect.Uint8 {
			return m.decodeLeaf(dst, value, loc)
		}

		return m.assignSlice(dst, list, loc)
	default:
		return m.decodeLeaf(dst, value, loc)
	}
}

// assignEntity stores a hydrated resource into dst.
func (m *materializer) assignEntity(dst reflect.Value, entity *Entity) error {
	loc := location{id: entity.Sys.ID}
	target := dst.Type()

	switch {
	case target == entityPtrType:
		dst.Set(reflect.ValueOf(entity))

		return nil
	case target.Kind() == reflect.Interface:
		return m.assignInterface(dst, entity)
	case target.Kind() == reflect.Pointer && target.Elem().Kind() == reflect.Struct && !isLeafStruct(target.Elem()):
		ptr, err := m.pointerFor(entity, target)
		if err != nil {
			return err
		}

		dst.Set(ptr)

		return nil
	case target.Kind() == reflect.Struct && !isLeafStruct(target):
		return m.fillValue(dst, entity)
	case target.Kind() == reflect.Map:
		return m.assign(dst, entity.Fields, loc.child("fields"))
	default:
		return m.decodeLeaf(dst, entity, loc)
	}
}

// assignInterface picks a concrete type for an interface target: the type
// mapped to the entry's content type, then *Entity, then *Asset.
func (m *materializer) assignInterface(dst reflect.Value, entity *Entity) error {
	target := dst.Type()

	if m.resolver != nil && entity.ContentTypeID() != "" {
		typ, ok := m.resolver.Resolve(entity.ContentTypeID())
		if ok && typ.AssignableTo(target) {
			built, err := m.build(entity, typ)
			if err != nil {
				return err
			}

			dst.Set(built)

			return nil
		}
	}

	if entityPtrType.AssignableTo(target) {
		dst.Set(reflect.ValueOf(entity))

		return nil
	}

	if entity.Sys.Type == TypeAsset && assetPtrType.AssignableTo(target) {
		ptr, err := m.pointerFor(entity, assetPtrType)
		if err != nil {
			return err
		}

		dst.Set(ptr)

		return nil
	}

	return ErrUnmappedContentType
}

// build returns entity materialized as typ, a struct or pointer to struct.
func (m *materializer) build(entity *Entity, typ reflect.Type) (reflect.Value, error) {
	if typ.Kind() == reflect.Pointer {
		return m.pointerFor(entity, typ)
	}

	value := reflect.New(typ).Elem()

	err := m.fillValue(value, entity)
	if err != nil {
		return reflect.Value{}, err
	}

	return value, nil
}

// pointerFor returns the memoised pointer for entity as ptrType, building it
// on first use.
func (m *materializer) pointerFor(entity *Entity, ptrType reflect.Type) (reflect.Value, error) {
	key := memoKey{entity: entity, typ: ptrType}
	if ptr, ok := m.memo[key]; ok {
		return ptr, nil
	}

	ptr := reflect.New(ptrType.Elem())
	m.memo[key] = ptr

	err := m.fillEntity(ptr.Elem(), entity)
	if err != nil {
		delete(m.memo, key)

		return reflect.Value{}, err
	}

	return ptr, nil
}

// fillValue fills a non-pointer struct target, leaving it zero when the same
// resource is already being built into the same type further up the path.
func (m *materializer) fillValue(dst reflect.Value, entity *Entity) error {
	key := memoKey{entity: entity, typ: dst.Type()}
	if m.active[key] {
		dst.SetZero()

		return nil
	}

	m.active[key] = true
	defer delete(m.active, key)

	return m.fillEntity(dst, entity)
}

// fillEntity fills an addressable struct from a resource. Whole-node types
// get sys and fields; others get fields lifted plus sys in their sys slot.
func (m *materializer) fillEntity(dst reflect.Value, entity *Entity) error {
	loc := location{id: entity.Sys.ID}

	if resource, ok := dst.Addr().Interface().(ContentResource); ok {
		*resource.ResourceSys() = entity.Sys

		for _, plan := range planFor(dst.Type()) {
			if plan.name != "fields" {
				continue
			}

			field := dst.FieldByIndex(plan.index)
			if !field.CanSet() {
				continue
			}

			// A struct fields target is validated by assign.
			err := m.assign(field, fieldsValue(entity), loc.child("fields"))
			if err != nil {
				return err
			}
		}

		return nil
	}

	err := m.fillStruct(dst, entity.Fields, &entity.Sys, loc.child("fields"))
	if err != nil {
		return err
	}

	return m.validateStruct(dst, loc)
}

// fieldsValue returns the fields map as an untyped nil when absent, so that
// assign leaves the target zero.
func fieldsValue(e *Entity) any {
	if e.Fields == nil {
		return nil
	}

	return e.Fields
}

// fillStruct assigns object members to struct fields matched by json name or,
// failing that, case-insensitively by name. A non-nil sys goes to the sys
// slot.
func (m *materializer) fillStruct(dst reflect.Value, object map[string]any, sys *Sys, loc location) error {
	var folded map[string]string

	for _, plan := range planFor(dst.Type()) {
		field := dst.FieldByIndex(plan.index)
		if !field.CanSet() {
			continue
		}

		if plan.sys && sys != nil {
			err := m.assignSys(field, sys, loc)
			if err != nil {
				return err
			}

			continue
		}

		value, ok := object[plan.name]
		if !ok {
			if folded == nil {
				folded = foldKeys(object)
			}

			key, found := folded[strings.ToLower(plan.name)]
			if !found {
				continue
			}

			value = object[key]
		}

		err := m.assign(field, value, loc.child(plan.name))
		if err != nil {
			return err
		}
	}

	return nil
}

func (m *materializer) assignSys(dst reflect.Value, sys *Sys, loc location) error {
	switch dst.Type() {
	case sysType:
		dst.Set(reflect.ValueOf(*sys))
	case sysPtrType:
		copied := *sys
		dst.Set(reflect.ValueOf(&copied))
	default:
		return m.decodeLeaf(dst, *sys, location{id: loc.id, path: "sys"})
	}

	return nil
}

func foldKeys(object map[string]any) map[string]string {
	folded := make(map[string]string, len(object))
	for key := range object {
		folded[strings.ToLower(key)] = key
	}

	return folded
}

func (m *materializer) assignMap(dst reflect.Value, object map[string]any, loc location) error {
	mapType := dst.Type()
	out := reflect.MakeMapWithSize(mapType, len(object))

	for key, value := range object {
		elem := reflect.New(mapType.Elem()).Elem()

		err := m.assign(elem, value, loc.child(key))
		if err != nil {
			return err
		}

		out.SetMapIndex(reflect.ValueOf(key).Convert(mapType.Key()), elem)
	}

	dst.Set(out)

	return nil
}

// assignSlice assigns list elements. Links that cannot be placed in an
// interface element type are dropped.
func (m *materializer) assignSlice(dst reflect.Value, list []any, loc location) error {
	out := reflect.MakeSlice(dst.Type(), 0, len(list))

	for i, value := range list {
		elem := reflect.New(dst.Type().Elem()).Elem()

		if entity, ok := value.(*Entity); ok {
			err := m.assignEntity(elem, entity)
			if errors.Is(err, ErrUnmappedContentType) {
				continue
			}

			if err != nil {
				return err
			}

			out = reflect.Append(out, elem)

			continue
		}

		err := m.assign(elem, value, loc.index(i))
		if err != nil {
			return err
		}

		out = reflect.Append(out, elem)
	}

	dst.Set(out)

	return nil
}

func (m *materializer) assignRichText(dst reflect.Value, value any, loc location) error {
	doc, err := ParseRichText(value)
	if err != nil {
		return m.fail(loc, dst.Type(), err)
	}

	if dst.Type() == richTextPtrType {
		dst.Set(reflect.ValueOf(doc))
	} else {
		dst.Set(reflect.ValueOf(*doc))
	}

	return nil
}

// decodeLeaf round-trips value through JSON into dst, which covers scalars,
// time.Time and types with their own unmarshalers.
func (m *materializer) decodeLeaf(dst reflect.Value, value any, loc location) error {
	data, err := json.Marshal(plainValue(value, make(map[*Entity]bool)))
	if err != nil {
		return m.fail(loc, dst.Type(), err)
	}

	ptr := reflect.New(dst.Type())

	err = json.Unmarshal(data, ptr.Interface())
	if err != nil {
		return m.fail(loc, dst.Type(), err)
	}

	dst.Set(ptr.Elem())

	return nil
}

// validateStruct checks the struct's own validate tags. Nested structs are
// validated when they are built, so the walk stops at the first level and
// never follows a cycle.
func (m *materializer) validateStruct(dst reflect.Value, loc location) error {
	if m.validate == nil {
		return nil
	}

	offset := len(dst.Type().Name())
	if offset > 0 {
		offset++
	}

	err := m.validate.StructFiltered(dst.Addr().Interface(), func(ns []byte) bool {
		return len(ns) > offset && bytes.IndexByte(ns[offset:], '.') >= 0
	})
	if err != nil {
		return m.fail(loc, dst.Type(), err)
	}

	return nil
}

// isLeafStruct reports whether a struct type decodes as a single JSON value.
func isLeafStruct(typ reflect.Type) bool {
	if typ == timeType {
		return true
	}

	ptr := reflect.PointerTo(typ)
	if ptr.Implements(contentResourceTy) {
		return false
	}

	return ptr.Implements(jsonUnmarshaler) || ptr.Implements(textUnmarshaler)
}

type fieldPlan struct {
	index []int
	name  string
	sys   bool
}

var fieldPlans sync.Map

// planFor lists the assignable fields of a struct type, with embedded
// structs flattened.
func planFor(typ reflect.Type) []fieldPlan {
	if cached, ok := fieldPlans.Load(typ); ok {
		plans, _ := cached.([]fieldPlan)

		return plans
	}

	var plans []fieldPlan

	collectFields(typ, nil, &plans)
	fieldPlans.Store(typ, plans)

	return plans
}

func collectFields(typ reflect.Type, prefix []int, plans *[]fieldPlan) {
	for i := range typ.NumField() {
		field := typ.Field(i)
		index := append(slices.Clone(prefix), i)

		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}

		if field.Type == sysType || field.Type == sysPtrType || name == "sys" {
			*plans = append(*plans, fieldPlan{index: index, name: "sys", sys: true})

			continue
		}

		if field.Anonymous && name == "" && field.Type.Kind() == reflect.Struct {
			collectFields(field.Type, index, plans)

			continue
		}

		if !field.IsExported() {
			continue
		}

		if name == "" {
			name = field.Name
		}

		*plans = append(*plans, fieldPlan{index: index, name: name})
	}
}
