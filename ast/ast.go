// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

// Package ast defines the generic value model for JSON: a closed set of
// variants (null, boolean, number, string, array, object) that the reader
// produces, the writer consumes, and the marshaller maps onto Go structs.
package ast

import (
	"fmt"
	"iter"
	"math"
	"reflect"
	"slices"
	"sort"
)

// Kind identifies the variant of a Value.
type Kind byte

// Constants defining the valid Kind values.
const (
	NullKind   Kind = iota // null
	BoolKind               // true, false
	IntKind                // integer that fits in 32 bits
	LongKind               // integer that needs 64 bits
	FloatKind              // number with a fractional part
	StringKind             // string
	ArrayKind              // [ ... ]
	ObjectKind             // { ... }
)

var kindStr = [...]string{
	NullKind:   "null",
	BoolKind:   "boolean",
	IntKind:    "integer",
	LongKind:   "long",
	FloatKind:  "float",
	StringKind: "string",
	ArrayKind:  "array",
	ObjectKind: "object",
}

func (k Kind) String() string {
	if int(k) >= len(kindStr) {
		return fmt.Sprintf("kind(%d)", k)
	}
	return kindStr[k]
}

// A Value is an arbitrary JSON value. The concrete types are NullType, Bool,
// Int, Long, Float, String, Array, and *Object.
type Value interface{ Kind() Kind }

// NullType is the type of the Null value.
type NullType struct{}

// Null is the JSON null constant.
var Null = NullType{}

// Kind satisfies the Value interface.
func (NullType) Kind() Kind { return NullKind }

// A Bool is a Boolean constant, true or false.
type Bool bool

// Kind satisfies the Value interface.
func (Bool) Kind() Kind { return BoolKind }

// An Int is an integer value in the range of a signed 32-bit integer.
type Int int32

// Kind satisfies the Value interface.
func (Int) Kind() Kind { return IntKind }

// A Long is an integer value outside the range of a 32-bit integer.
type Long int64

// Kind satisfies the Value interface.
func (Long) Kind() Kind { return LongKind }

// A Float is a number with a fractional part.
type Float float64

// Kind satisfies the Value interface.
func (Float) Kind() Kind { return FloatKind }

// A String is a string value, with escapes already decoded.
type String string

// Kind satisfies the Value interface.
func (String) Kind() Kind { return StringKind }

// An Array is an ordered sequence of values.
type Array []Value

// Kind satisfies the Value interface.
func (Array) Kind() Kind { return ArrayKind }

// Len reports the number of elements in a.
func (a Array) Len() int { return len(a) }

// Integer returns the narrowest integer Value holding z: an Int if z fits in
// 32 bits, otherwise a Long.
func Integer(z int64) Value {
	if z >= math.MinInt32 && z <= math.MaxInt32 {
		return Int(z)
	}
	return Long(z)
}

// A Member is a single key-value pair belonging to an Object.
type Member struct {
	Key   string
	Value Value
}

// Field constructs an object member with the given key and value.
// The value is converted with ToValue.
func Field(key string, value any) *Member { return &Member{Key: key, Value: ToValue(value)} }

// An Object is a collection of key-value members with unique keys, iterated
// in the order each key was first inserted. The zero value is an empty
// object ready for use.
type Object struct {
	members []*Member
	index   map[string]int
}

// NewObject constructs an object from the given members. Later members with
// a duplicate key replace the value of the earlier one.
func NewObject(ms ...*Member) *Object {
	o := new(Object)
	for _, m := range ms {
		o.Set(m.Key, m.Value)
	}
	return o
}

// Kind satisfies the Value interface.
func (*Object) Kind() Kind { return ObjectKind }

// Len reports the number of members in o.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.members)
}

// Set assigns v to key. If key is already present, its value is replaced
// without changing its position; otherwise a new member is added at the end.
func (o *Object) Set(key string, v Value) {
	if v == nil {
		v = Null
	}
	if i, ok := o.index[key]; ok {
		o.members[i].Value = v
		return
	}
	if o.index == nil {
		o.index = make(map[string]int)
	}
	o.index[key] = len(o.members)
	o.members = append(o.members, &Member{Key: key, Value: v})
}

// Get returns the value of key and reports whether it was present.
func (o *Object) Get(key string) (Value, bool) {
	if m := o.Find(key); m != nil {
		return m.Value, true
	}
	return nil, false
}

// Has reports whether key is present in o.
func (o *Object) Has(key string) bool { return o.Find(key) != nil }

// Find returns the member of o with the given key, or nil. The caller may
// update the Value of the member, but must not modify its Key.
func (o *Object) Find(key string) *Member {
	if o == nil {
		return nil
	}
	if i, ok := o.index[key]; ok {
		return o.members[i]
	}
	return nil
}

// At returns the member at offset i in iteration order. It panics if i is
// out of range.
func (o *Object) At(i int) *Member { return o.members[i] }

// Delete removes key from o, and reports whether it was present.
func (o *Object) Delete(key string) bool {
	i, ok := o.index[key]
	if !ok {
		return false
	}
	o.members = slices.Delete(o.members, i, i+1)
	delete(o.index, key)
	for j := i; j < len(o.members); j++ {
		o.index[o.members[j].Key] = j
	}
	return true
}

// Keys returns the keys of o in iteration order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	keys := make([]string, len(o.members))
	for i, m := range o.members {
		keys[i] = m.Key
	}
	return keys
}

// Members returns a copy of the members of o in iteration order.
func (o *Object) Members() []Member {
	if o == nil {
		return nil
	}
	out := make([]Member, len(o.members))
	for i, m := range o.members {
		out[i] = *m
	}
	return out
}

// All is a range function over the key-value pairs of o in iteration order.
func (o *Object) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if o == nil {
			return
		}
		for _, m := range o.members {
			if !yield(m.Key, m.Value) {
				return
			}
		}
	}
}

// Equal reports whether a and b are structurally equal. Arrays are compared
// elementwise in order; objects are equal if they have the same set of keys
// with equal values, regardless of order.
func Equal(a, b Value) bool {
	if a == nil {
		a = Null
	}
	if b == nil {
		b = Null
	}
	switch x := a.(type) {
	case Array:
		y, ok := b.(Array)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case *Object:
		y, ok := b.(*Object)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for key, xv := range x.All() {
			yv, ok := y.Get(key)
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// ToValue converts a native Go value into a Value. It handles nil, Value,
// bool, integer and floating-point kinds, string, and slices and string-keyed
// maps of convertible values. Map members are added in sorted key order.
// ToValue panics if v cannot be converted.
func ToValue(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case int:
		return Integer(int64(t))
	case int32:
		return Int(t)
	case int64:
		return Integer(t)
	case float64:
		return Float(t)
	case []any:
		out := make(Array, len(t))
		for i, elt := range t {
			out[i] = ToValue(elt)
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(t))
		for key := range t {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		o := new(Object)
		for _, key := range keys {
			o.Set(key, ToValue(t[key]))
		}
		return o
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Integer(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			panic(fmt.Sprintf("value %d out of range", u))
		}
		return Integer(int64(u))
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float())
	case reflect.Slice, reflect.Array:
		out := make(Array, rv.Len())
		for i := range rv.Len() {
			out[i] = ToValue(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		o := new(Object)
		for _, key := range keys {
			o.Set(key.String(), ToValue(rv.MapIndex(key).Interface()))
		}
		return o
	}
	panic(fmt.Sprintf("cannot convert %T to a value", v))
}

// Interface converts v into native Go values: nil, bool, int32, int64,
// float64, string, []any, and map[string]any. Object member order is not
// preserved by the result.
func Interface(v Value) any {
	switch t := v.(type) {
	case nil, NullType:
		return nil
	case Bool:
		return bool(t)
	case Int:
		return int32(t)
	case Long:
		return int64(t)
	case Float:
		return float64(t)
	case String:
		return string(t)
	case Array:
		out := make([]any, len(t))
		for i, elt := range t {
			out[i] = Interface(elt)
		}
		return out
	case *Object:
		out := make(map[string]any, t.Len())
		for key, elt := range t.All() {
			out[key] = Interface(elt)
		}
		return out
	default:
		panic(fmt.Sprintf("unknown value type %T", v))
	}
}
