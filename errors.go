// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jcodec

import (
	"errors"
	"fmt"

	"github.com/creachadair/jcodec/ast"
)

// ErrTooDeep is reported when a value is nested more deeply than the reader
// or writer allows.
var ErrTooDeep = errors.New("jcodec: value nested too deeply")

// errLookahead is reported if the reader is reset to a mark that has been
// invalidated by reading past its limit. It indicates a bug in the reader.
var errLookahead = errors.New("jcodec: lookahead limit exceeded")

// SyntaxError is reported when the input contains a character that is not
// permitted at that point in the grammar.
type SyntaxError struct {
	Expected string    // a description of what was expected
	Found    rune      // the offending character, or -1 at end of input
	Location Location  // where Found occurs in the input
	Partial  ast.Value // the enclosing container as read so far, or nil
}

// Error satisfies the error interface.
func (s *SyntaxError) Error() string {
	return fmt.Sprintf("at %s: expected %s, found %s", s.Location.First, s.Expected, runeLabel(s.Found))
}

// UnterminatedError is reported when the input ends inside a value.
type UnterminatedError struct {
	What     string    // the kind of value: object, array, string, number, boolean, null
	Location Location  // where the unfinished value begins
	Partial  ast.Value // the enclosing container as read so far, or nil
}

// Error satisfies the error interface.
func (u *UnterminatedError) Error() string {
	return fmt.Sprintf("at %s: unexpected end of input in %s", u.Location.First, u.What)
}

// DecodeError is reported when the text of a literal or number is malformed.
type DecodeError struct {
	What     string   // the kind of token: boolean, null, number, string
	Text     string   // the offending text
	Location Location // where Text occurs in the input

	Err error // the underlying conversion error, if any
}

// Error satisfies the error interface.
func (d *DecodeError) Error() string {
	msg := fmt.Sprintf("at %s: invalid %s %q", d.Location.First, d.What, d.Text)
	if d.Err != nil {
		return msg + ": " + d.Err.Error()
	}
	return msg
}

// Unwrap supports error wrapping.
func (d *DecodeError) Unwrap() error { return d.Err }

// IOError wraps a failure reported by the underlying source or sink.
type IOError struct{ Err error }

// Error satisfies the error interface.
func (e *IOError) Error() string { return "jcodec: i/o error: " + e.Err.Error() }

// Unwrap supports error wrapping.
func (e *IOError) Unwrap() error { return e.Err }

// UnsupportedValueError is reported when a value cannot be written as JSON,
// for example a floating-point NaN.
type UnsupportedValueError struct {
	Value  ast.Value
	Reason string
}

// Error satisfies the error interface.
func (u *UnsupportedValueError) Error() string {
	return fmt.Sprintf("jcodec: unsupported value %#v: %s", u.Value, u.Reason)
}

// failure carries an error through a panic to the nearest entry point.
type failure struct{ error }

func (f failure) Unwrap() error { return f.error }

// fail aborts the current operation with err.
func fail(err error) { panic(failure{err}) }

// recoverFailure recovers a failure panic and stores its error in *errp.
// Other panics are propagated.
func recoverFailure(errp *error) {
	if v := recover(); v != nil {
		f, ok := v.(failure)
		if !ok {
			panic(v)
		}
		*errp = f.error
	}
}

func runeLabel(r rune) string {
	if r == eof {
		return "end of input"
	}
	return fmt.Sprintf("%q", r)
}
