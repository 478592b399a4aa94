// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

// Package marshal maps between Go values and the generic JSON value model
// defined by package ast.
//
// Struct types are mapped field by field. By default each exported field is
// stored as an object member whose key is the name of the field. Field
// policies are declared with the "jcodec" struct tag:
//
//	Name  string   `jcodec:"name"`          // rename the member
//	Tags  []string `jcodec:",optional"`     // omit when nil or null
//	Debug bool     `jcodec:"debug,present"` // record whether the key exists
//	Shape Shape    `jcodec:"shape,any"`     // map by the dynamic type
//	Cache []byte   `jcodec:"-"`             // never mapped
//
// A present field must have type bool. When marshalling, a true present field
// is written as a null member and a false one is omitted. When unmarshalling,
// the field reports whether its key occurs in the input, whatever its value.
//
// A field tagged "any" must be an interface, or a slice or array of
// interfaces. It is marshalled according to the dynamic type of its value,
// and unmarshalled into a fresh value of the dynamic type it already holds.
// An interface field without this policy is marshalled according to its
// declared type, which has no fields: a struct value in such a field is
// written as an empty object.
//
// A struct may declare an unexported field named __data of type *ast.Object.
// When unmarshalling, every member of the input object is added to this field
// in addition to the ordinary assignment of fields. It is never marshalled.
package marshal

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"unsafe"

	"github.com/creachadair/jcodec/ast"
	"github.com/creachadair/mds/mapset"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// DefaultMaxDepth is the nesting limit used by a Marshaller whose MaxDepth is
// zero.
const DefaultMaxDepth = 512

// A Marshaller converts between Go values and ast values. The zero value is
// ready for use with default settings. A Marshaller may be used concurrently,
// but the value being unmarshalled into must not be accessed by other
// goroutines until the call returns.
type Marshaller struct {
	// If set, debug records are logged here for input members that do not
	// match any field of the record they are unmarshalled into.
	Logger log.Logger

	// The maximum nesting depth of values. If zero, DefaultMaxDepth is used.
	MaxDepth int
}

var std Marshaller

// Marshal converts v, a struct or pointer to struct, into an object using a
// default Marshaller.
func Marshal(v any) (*ast.Object, error) { return std.Marshal(v) }

// MarshalValue converts v into a value using a default Marshaller.
func MarshalValue(v any) (ast.Value, error) { return std.MarshalValue(v) }

// Unmarshal stores the members of obj into dst, which must be a non-nil
// pointer to a struct, using a default Marshaller.
func Unmarshal(obj *ast.Object, dst any) error { return std.Unmarshal(obj, dst) }

// UnmarshalValue stores v into dst, which must be a non-nil pointer, using a
// default Marshaller.
func UnmarshalValue(v ast.Value, dst any) error { return std.UnmarshalValue(v, dst) }

// Marshal converts v, a struct or pointer to struct, into an object.
func (m Marshaller) Marshal(v any) (*ast.Object, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("marshal: cannot marshal %T as a record", v)
	}
	out, err := m.MarshalValue(v)
	if err != nil {
		return nil, err
	}
	return out.(*ast.Object), nil
}

// MarshalValue converts v into a value. It accepts nil, booleans, numbers,
// strings, structs, string-keyed maps, slices and arrays of supported values,
// pointers to supported values, and values of ast types.
func (m Marshaller) MarshalValue(v any) (ast.Value, error) {
	e := &encoder{max: m.maxDepth(), seen: mapset.New[visit]()}
	return e.value(reflect.ValueOf(v), false)
}

// Unmarshal stores the members of obj into dst, which must be a non-nil
// pointer to a struct. Fields whose keys do not occur in obj are not
// modified.
func (m Marshaller) Unmarshal(obj *ast.Object, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("marshal: destination must be a non-nil pointer to a struct, not %T", dst)
	}
	if obj == nil {
		return errors.New("marshal: nil object")
	}
	return m.UnmarshalValue(obj, dst)
}

// UnmarshalValue stores v into dst, which must be a non-nil pointer.
func (m Marshaller) UnmarshalValue(v ast.Value, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("marshal: destination must be a non-nil pointer, not %T", dst)
	}
	d := &decoder{max: m.maxDepth(), log: m.Logger}
	return d.assign(v, rv.Elem(), false)
}

func (m Marshaller) maxDepth() int { return cmp.Or(m.MaxDepth, DefaultMaxDepth) }

// visit identifies a pointer being marshalled.
type visit struct {
	t reflect.Type
	p unsafe.Pointer
}

type encoder struct {
	depth, max int
	seen       mapset.Set[visit]
}

func (e *encoder) enter() error {
	e.depth++
	if e.depth > e.max {
		return ErrTooDeep
	}
	return nil
}

func (e *encoder) exit() { e.depth-- }

// value converts rv into a value. If poly is true, interface values are
// converted according to their dynamic type.
func (e *encoder) value(rv reflect.Value, poly bool) (ast.Value, error) {
	if !rv.IsValid() {
		return ast.Null, nil
	}
	if rv.Type().Implements(valueType) {
		if isNil(rv) {
			return ast.Null, nil
		}
		return rv.Interface().(ast.Value), nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return ast.Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return ast.Integer(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("value %d out of range", u)
		}
		return ast.Integer(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return ast.Float(rv.Float()), nil
	case reflect.String:
		return ast.String(rv.String()), nil

	case reflect.Slice:
		if rv.IsNil() {
			return ast.Null, nil
		}
		fallthrough
	case reflect.Array:
		if err := e.enter(); err != nil {
			return nil, err
		}
		defer e.exit()
		out := make(ast.Array, rv.Len())
		for i := range rv.Len() {
			v, err := e.value(rv.Index(i), poly)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type %v", rv.Type().Key())
		} else if rv.IsNil() {
			return ast.Null, nil
		}
		if err := e.enter(); err != nil {
			return nil, err
		}
		defer e.exit()
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		out := new(ast.Object)
		for _, key := range keys {
			v, err := e.value(rv.MapIndex(key), poly)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key.String(), err)
			}
			out.Set(key.String(), v)
		}
		return out, nil

	case reflect.Struct:
		if err := e.enter(); err != nil {
			return nil, err
		}
		defer e.exit()
		return e.record(rv)

	case reflect.Pointer:
		if rv.IsNil() {
			return ast.Null, nil
		}
		key := visit{t: rv.Type(), p: rv.UnsafePointer()}
		if e.seen.Has(key) {
			return nil, &CycleError{Type: rv.Type()}
		}
		e.seen.Add(key)
		defer e.seen.Remove(key)
		return e.value(rv.Elem(), poly)

	case reflect.Interface:
		if rv.IsNil() {
			return ast.Null, nil
		}
		dyn := rv.Elem()
		if !poly && isRecord(dyn) {
			// The declared type of the field has no fields of its own.
			return new(ast.Object), nil
		}
		return e.value(dyn, poly)
	}
	return nil, fmt.Errorf("unsupported type %v", rv.Type())
}

// record converts the struct rv into an object.
func (e *encoder) record(rv reflect.Value) (ast.Value, error) {
	rec, err := recordOf(rv.Type())
	if err != nil {
		return nil, err
	}
	out := new(ast.Object)
	for i := range rec.fields {
		f := &rec.fields[i]
		fv := rv.Field(f.index)
		if f.present {
			if fv.Bool() {
				out.Set(f.key, ast.Null)
			}
			continue
		} else if f.optional && isAbsent(fv) {
			continue
		}
		v, err := e.value(fv, f.poly)
		if err != nil {
			return nil, wrapField(err, f, rv.Type())
		}
		out.Set(f.key, v)
	}
	return out, nil
}

type decoder struct {
	depth, max int
	log        log.Logger
}

func (d *decoder) enter() error {
	d.depth++
	if d.depth > d.max {
		return ErrTooDeep
	}
	return nil
}

func (d *decoder) exit() { d.depth-- }

// assign stores v into the settable value dst. If poly is true, interface
// values are decoded according to the dynamic type dst already holds.
func (d *decoder) assign(v ast.Value, dst reflect.Value, poly bool) error {
	if v == nil {
		v = ast.Null
	}
	_, isNull := v.(ast.NullType)
	dt := dst.Type()

	if dst.Kind() == reflect.Interface {
		if isNull {
			dst.SetZero()
			return nil
		}
		if poly && !dst.IsNil() {
			return d.assignDynamic(v, dst)
		}
		if vv := reflect.ValueOf(v); vv.Type().AssignableTo(dt) {
			dst.Set(vv)
			return nil
		}
		return typeMismatch(v.Kind(), dt)
	}
	if dt.Implements(valueType) {
		if vv := reflect.ValueOf(v); vv.Type().AssignableTo(dt) {
			dst.Set(vv)
			return nil
		} else if !isNull {
			return typeMismatch(v.Kind(), dt)
		}
	}
	if isNull {
		// Null clears references, and leaves other values unchanged.
		if canBeNil(dt.Kind()) {
			dst.SetZero()
		}
		return nil
	}

	switch dst.Kind() {
	case reflect.Bool:
		b, ok := v.(ast.Bool)
		if !ok {
			return typeMismatch(v.Kind(), dt)
		}
		dst.SetBool(bool(b))

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		z, err := toInteger(v, dt)
		if err != nil {
			return err
		} else if dst.OverflowInt(z) {
			return fmt.Errorf("value %d overflows %v", z, dt)
		}
		dst.SetInt(z)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		z, err := toInteger(v, dt)
		if err != nil {
			return err
		} else if z < 0 || dst.OverflowUint(uint64(z)) {
			return fmt.Errorf("value %d overflows %v", z, dt)
		}
		dst.SetUint(uint64(z))

	case reflect.Float32, reflect.Float64:
		var f float64
		switch t := v.(type) {
		case ast.Int:
			f = float64(t)
		case ast.Long:
			f = float64(t)
		case ast.Float:
			f = float64(t)
		default:
			return typeMismatch(v.Kind(), dt)
		}
		if dst.OverflowFloat(f) {
			return fmt.Errorf("value %v overflows %v", f, dt)
		}
		dst.SetFloat(f)

	case reflect.String:
		s, ok := v.(ast.String)
		if !ok {
			return typeMismatch(v.Kind(), dt)
		}
		dst.SetString(string(s))

	case reflect.Pointer:
		if dst.IsNil() {
			dst.Set(reflect.New(dt.Elem()))
		}
		return d.assign(v, dst.Elem(), poly)

	case reflect.Struct:
		obj, ok := v.(*ast.Object)
		if !ok {
			return typeMismatch(v.Kind(), dt)
		}
		if err := d.enter(); err != nil {
			return err
		}
		defer d.exit()
		return d.record(obj, dst)

	case reflect.Slice:
		arr, ok := v.(ast.Array)
		if !ok {
			return typeMismatch(v.Kind(), dt)
		}
		if err := d.enter(); err != nil {
			return err
		}
		defer d.exit()
		out := reflect.MakeSlice(dt, len(arr), len(arr))
		for i, elt := range arr {
			if poly && i < dst.Len() {
				out.Index(i).Set(dst.Index(i))
			}
			if err := d.assign(elt, out.Index(i), poly); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		dst.Set(out)

	case reflect.Array:
		arr, ok := v.(ast.Array)
		if !ok {
			return typeMismatch(v.Kind(), dt)
		}
		if err := d.enter(); err != nil {
			return err
		}
		defer d.exit()
		for i := range min(len(arr), dst.Len()) {
			if err := d.assign(arr[i], dst.Index(i), poly); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}

	case reflect.Map:
		obj, ok := v.(*ast.Object)
		if !ok {
			return typeMismatch(v.Kind(), dt)
		} else if dt.Key().Kind() != reflect.String {
			return fmt.Errorf("unsupported map key type %v", dt.Key())
		}
		if err := d.enter(); err != nil {
			return err
		}
		defer d.exit()
		out := reflect.MakeMapWithSize(dt, obj.Len())
		for key, elt := range obj.All() {
			ev := reflect.New(dt.Elem()).Elem()
			if err := d.assign(elt, ev, poly); err != nil {
				return fmt.Errorf("key %q: %w", key, err)
			}
			out.SetMapIndex(reflect.ValueOf(key).Convert(dt.Key()), ev)
		}
		dst.Set(out)

	default:
		return fmt.Errorf("unsupported type %v", dt)
	}
	return nil
}

// assignDynamic stores v into the interface dst according to the dynamic type
// of its current value. A pointer to a struct is updated in place; any other
// dynamic value is replaced by a fresh value of the same type.
func (d *decoder) assignDynamic(v ast.Value, dst reflect.Value) error {
	cur := dst.Elem()
	if cur.Kind() == reflect.Pointer && !cur.IsNil() {
		return d.assign(v, cur.Elem(), true)
	}
	fresh := reflect.New(cur.Type()).Elem()
	if err := d.assign(v, fresh, true); err != nil {
		return err
	}
	dst.Set(fresh)
	return nil
}

// record stores the members of obj into the fields of the struct dst.
func (d *decoder) record(obj *ast.Object, dst reflect.Value) error {
	rt := dst.Type()
	rec, err := recordOf(rt)
	if err != nil {
		return err
	}
	if rec.catchAll >= 0 {
		fv := dst.Field(rec.catchAll)
		fv = reflect.NewAt(fv.Type(), unsafe.Pointer(fv.UnsafeAddr())).Elem()
		data, _ := fv.Interface().(*ast.Object)
		if data == nil {
			data = new(ast.Object)
			fv.Set(reflect.ValueOf(data))
		}
		for key, v := range obj.All() {
			data.Set(key, v)
		}
	}
	for i := range rec.fields {
		f := &rec.fields[i]
		v, ok := obj.Get(f.key)
		if f.present {
			dst.Field(f.index).SetBool(ok)
			continue
		} else if !ok {
			continue
		}
		if err := d.assign(v, dst.Field(f.index), f.poly); err != nil {
			return wrapField(err, f, rt)
		}
	}
	if d.log != nil {
		for key := range obj.All() {
			if !rec.keys[key] {
				level.Debug(d.log).Log("msg", "unmatched member", "record", rt.String(), "key", key)
			}
		}
	}
	return nil
}

// toInteger converts v to an integer for storage in t. Floating-point values
// are accepted if they are integral.
func toInteger(v ast.Value, t reflect.Type) (int64, error) {
	switch z := v.(type) {
	case ast.Int:
		return int64(z), nil
	case ast.Long:
		return int64(z), nil
	case ast.Float:
		if f := float64(z); f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return int64(f), nil
		}
		return 0, fmt.Errorf("value %v is not an integer", z)
	default:
		return 0, typeMismatch(v.Kind(), t)
	}
}

func canBeNil(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		return true
	}
	return false
}

func isNil(rv reflect.Value) bool { return canBeNil(rv.Kind()) && rv.IsNil() }

// isAbsent reports whether the field value rv is absent for the purpose of
// the optional policy.
func isAbsent(rv reflect.Value) bool {
	if isNil(rv) {
		return true
	}
	if rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	_, isNull := rv.Interface().(ast.NullType)
	return isNull
}

// isRecord reports whether rv is a struct or a pointer to a struct, other
// than one of the ast types.
func isRecord(rv reflect.Value) bool {
	if rv.Type().Implements(valueType) {
		return false
	} else if rv.Kind() == reflect.Pointer {
		return rv.Type().Elem().Kind() == reflect.Struct
	}
	return rv.Kind() == reflect.Struct
}
