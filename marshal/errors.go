// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package marshal

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrTooDeep is reported when a value is nested more deeply than the
// Marshaller allows.
var ErrTooDeep = errors.New("marshal: value nested too deeply")

// MappingError is reported when a field of a record cannot be converted to or
// from the value model.
type MappingError struct {
	Field     string       // the name of the Go field
	FieldType reflect.Type // the declared type of the field
	Record    reflect.Type // the struct type containing the field
	Err       error        // the reason for the failure
}

// Error satisfies the error interface.
func (m *MappingError) Error() string {
	return fmt.Sprintf("marshal: field %s.%s (%v): %v", m.Record, m.Field, m.FieldType, m.Err)
}

// Unwrap supports error wrapping.
func (m *MappingError) Unwrap() error { return m.Err }

// CycleError is reported when marshalling a value that contains a reference
// to itself.
type CycleError struct {
	Type reflect.Type // the type of the pointer that closes the cycle
}

// Error satisfies the error interface.
func (c *CycleError) Error() string {
	return fmt.Sprintf("marshal: cyclic reference through %v", c.Type)
}

// wrapField reports err as a failure of field f in rec. An error that already
// identifies a field is returned unchanged, so the innermost field is named.
func wrapField(err error, f *field, rec reflect.Type) error {
	var me *MappingError
	if errors.As(err, &me) {
		return err
	}
	return &MappingError{Field: f.name, FieldType: f.typ, Record: rec, Err: err}
}

// typeMismatch reports that a value of kind got cannot be stored in want.
func typeMismatch(got fmt.Stringer, want reflect.Type) error {
	return fmt.Errorf("cannot store %v in %v", got, want)
}
