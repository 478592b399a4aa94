// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package marshal

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/creachadair/jcodec/ast"
)

// tagKey is the struct tag key that declares field policies.
const tagKey = "jcodec"

// catchAllName is the name of the field that receives every member of the
// object a record is read from. It must have type *ast.Object.
const catchAllName = "__data"

var (
	valueType  = reflect.TypeFor[ast.Value]()
	objectType = reflect.TypeFor[*ast.Object]()
)

// A field describes how one struct field maps to an object member.
type field struct {
	name  string // Go field name
	key   string // object member key
	index int
	typ   reflect.Type

	optional bool // omit when absent
	present  bool // bool flag recording whether the key exists
	poly     bool // marshal by dynamic type
}

// A record describes the mapping of a struct type.
type record struct {
	fields   []field
	keys     map[string]bool // the member keys of fields
	catchAll int             // index of the catch-all field, or -1
}

// records caches record descriptors by struct type.
var records sync.Map // map[reflect.Type]*record

// recordOf returns the descriptor for struct type t.
func recordOf(t reflect.Type) (*record, error) {
	if r, ok := records.Load(t); ok {
		return r.(*record), nil
	}
	r, err := parseRecord(t)
	if err != nil {
		return nil, err
	}
	actual, _ := records.LoadOrStore(t, r)
	return actual.(*record), nil
}

func parseRecord(t reflect.Type) (*record, error) {
	r := &record{keys: make(map[string]bool), catchAll: -1}
	for i := range t.NumField() {
		sf := t.Field(i)
		if sf.Name == catchAllName {
			if sf.Type != objectType {
				return nil, &MappingError{
					Field: sf.Name, FieldType: sf.Type, Record: t,
					Err: fmt.Errorf("catch-all field must have type %v", objectType),
				}
			}
			r.catchAll = i
			continue
		}
		tag, ok := sf.Tag.Lookup(tagKey)
		if !sf.IsExported() || (ok && tag == "-") {
			continue
		}
		f := field{name: sf.Name, key: sf.Name, index: i, typ: sf.Type}
		if ok {
			name, opts, _ := strings.Cut(tag, ",")
			if name != "" {
				f.key = name
			}
			for opt := range strings.SplitSeq(opts, ",") {
				switch opt {
				case "optional":
					f.optional = true
				case "present":
					f.present = true
				case "any":
					f.poly = true
				case "":
				default:
					return nil, &MappingError{
						Field: sf.Name, FieldType: sf.Type, Record: t,
						Err: fmt.Errorf("unknown field option %q", opt),
					}
				}
			}
		}
		if f.present && sf.Type.Kind() != reflect.Bool {
			return nil, &MappingError{
				Field: sf.Name, FieldType: sf.Type, Record: t,
				Err: errors.New("present flag must have type bool"),
			}
		}
		if r.keys[f.key] {
			return nil, &MappingError{
				Field: sf.Name, FieldType: sf.Type, Record: t,
				Err: fmt.Errorf("duplicate key %q", f.key),
			}
		}
		r.keys[f.key] = true
		r.fields = append(r.fields, f)
	}
	return r, nil
}
