// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jcodec

import (
	"errors"

	"github.com/creachadair/jcodec/ast"
)

// maxDepth is the maximum nesting depth of objects and arrays accepted by the
// reader and the writer.
const maxDepth = 1000

// scopeState is the state of an object or array scope reader.
type scopeState byte

const (
	awaitingOpen     scopeState = iota // before the open delimiter
	awaitingFirst                      // after the open delimiter
	awaitingNext                       // after a separator
	inKey                              // reading an object key
	afterKey                           // after a key, before the colon
	awaitingValue                      // before a value
	awaitingSepOrEnd                   // after a value
	closed                             // after the close delimiter
)

// errNoValue is reported when Value is called without a pending value.
var errNoValue = errors.New("jcodec: no value is pending")

// An ObjectReader reads the members of a JSON object one at a time. Call Next
// to advance to each member, and Value to read the value of the current
// member. Values not read before the next call to Next are read and
// discarded.
//
// An ObjectReader must be read to completion (until Next reports false) before
// its input is used for anything else.
type ObjectReader struct {
	r     *reader
	depth int
	state scopeState
	start position
	key   string
	err   error

	obj *ast.Object // if non-nil, accumulates the members read
}

func newObjectReader(r *reader, depth int, keep bool) *ObjectReader {
	o := &ObjectReader{r: r, depth: depth}
	if keep {
		o.obj = new(ast.Object)
	}
	return o
}

// Next advances o to the next member of the object and returns its key.
// It reports false when the end of the object has been reached.
func (o *ObjectReader) Next() (_ string, _ bool, err error) {
	if o.err != nil {
		return "", false, o.err
	}
	defer o.capture(&err)
	return o.next()
}

// Value reads and returns the value of the current member.
func (o *ObjectReader) Value() (_ ast.Value, err error) {
	if o.err != nil {
		return nil, o.err
	} else if o.state != awaitingValue {
		return nil, errNoValue
	}
	defer o.capture(&err)
	return o.value(), nil
}

// Key returns the key of the current member, or "" if no member has been read.
func (o *ObjectReader) Key() string { return o.key }

func (o *ObjectReader) next() (string, bool, error) {
	if o.state == awaitingValue {
		o.value()
	}
	for {
		switch o.state {
		case closed:
			return "", false, nil

		case awaitingOpen:
			ch := o.r.skipSpace()
			if ch != '{' {
				o.syntaxError(`"{"`, ch)
			}
			o.start = o.r.prev
			o.state = awaitingFirst

		case awaitingFirst, awaitingNext:
			ch := o.r.skipSpace()
			if ch == '}' && o.state == awaitingFirst {
				o.state = closed
				return "", false, nil
			} else if ch == eof {
				o.unterminated()
			} else if ch != '"' {
				if o.state == awaitingFirst {
					o.syntaxError(`key or "}"`, ch)
				}
				o.syntaxError("key", ch)
			}
			o.state = inKey
			o.key = string(o.r.readString())
			o.state = afterKey

		case afterKey:
			ch := o.r.skipSpace()
			if ch == eof {
				o.unterminated()
			} else if ch != ':' {
				o.syntaxError(`":"`, ch)
			}
			o.state = awaitingValue
			return o.key, true, nil

		case awaitingSepOrEnd:
			ch := o.r.skipSpace()
			switch ch {
			case ',':
				o.state = awaitingNext
			case '}':
				o.state = closed
				return "", false, nil
			case eof:
				o.unterminated()
			default:
				o.syntaxError(`"," or "}"`, ch)
			}
		}
	}
}

func (o *ObjectReader) value() ast.Value {
	v := o.r.readValue(o.depth+1, o)
	if o.obj != nil {
		o.obj.Set(o.key, v)
	}
	o.state = awaitingSepOrEnd
	return v
}

// readAll reads the complete object, which must be its first call.
func (o *ObjectReader) readAll() *ast.Object {
	for {
		if _, ok, _ := o.next(); !ok {
			return o.obj
		}
		o.value()
	}
}

func (o *ObjectReader) capture(errp *error) {
	recoverFailure(errp)
	if *errp != nil {
		o.err = *errp
	}
}

func (o *ObjectReader) partial() ast.Value {
	if o.obj == nil {
		return nil
	}
	return o.obj
}

func (o *ObjectReader) syntaxError(want string, got rune) {
	fail(&SyntaxError{Expected: want, Found: got, Location: o.r.last(), Partial: o.partial()})
}

func (o *ObjectReader) unterminated() {
	fail(&UnterminatedError{What: "object", Location: locate(o.start, o.start), Partial: o.partial()})
}

// An ArrayReader reads the elements of a JSON array one at a time. Call Next
// to advance to each element, and Value to read it. Elements not read before
// the next call to Next are read and discarded.
//
// An ArrayReader must be read to completion (until Next reports false) before
// its input is used for anything else.
type ArrayReader struct {
	r     *reader
	depth int
	state scopeState
	start position
	err   error

	keep bool
	arr  ast.Array // if keep, accumulates the elements read
}

func newArrayReader(r *reader, depth int, keep bool) *ArrayReader {
	return &ArrayReader{r: r, depth: depth, keep: keep}
}

// Next advances a to the next element of the array. It reports false when the
// end of the array has been reached.
func (a *ArrayReader) Next() (_ bool, err error) {
	if a.err != nil {
		return false, a.err
	}
	defer a.capture(&err)
	return a.next(), nil
}

// Value reads and returns the current element.
func (a *ArrayReader) Value() (_ ast.Value, err error) {
	if a.err != nil {
		return nil, a.err
	} else if a.state != awaitingValue {
		return nil, errNoValue
	}
	defer a.capture(&err)
	return a.value(), nil
}

func (a *ArrayReader) next() bool {
	if a.state == awaitingValue {
		a.value()
	}
	for {
		switch a.state {
		case closed:
			return false

		case awaitingOpen:
			ch := a.r.skipSpace()
			if ch != '[' {
				a.syntaxError(`"["`, ch)
			}
			a.start = a.r.prev
			if a.keep {
				a.arr = ast.Array{}
			}
			a.state = awaitingFirst

		case awaitingFirst, awaitingNext:
			ch := a.r.skipSpace()
			if ch == ']' && a.state == awaitingFirst {
				a.state = closed
				return false
			} else if ch == eof {
				a.unterminated()
			}
			a.r.reset()
			a.state = awaitingValue
			return true

		case awaitingSepOrEnd:
			ch := a.r.skipSpace()
			switch ch {
			case ',':
				a.state = awaitingNext
			case ']':
				a.state = closed
				return false
			case eof:
				a.unterminated()
			default:
				a.syntaxError(`"," or "]"`, ch)
			}
		}
	}
}

func (a *ArrayReader) value() ast.Value {
	v := a.r.readValue(a.depth+1, a)
	if a.keep {
		a.arr = append(a.arr, v)
	}
	a.state = awaitingSepOrEnd
	return v
}

// readAll reads the complete array, which must be its first call.
func (a *ArrayReader) readAll() ast.Array {
	for a.next() {
		a.value()
	}
	return a.arr
}

func (a *ArrayReader) capture(errp *error) {
	recoverFailure(errp)
	if *errp != nil {
		a.err = *errp
	}
}

func (a *ArrayReader) partial() ast.Value {
	if !a.keep {
		return nil
	}
	return a.arr
}

func (a *ArrayReader) syntaxError(want string, got rune) {
	fail(&SyntaxError{Expected: want, Found: got, Location: a.r.last(), Partial: a.partial()})
}

func (a *ArrayReader) unterminated() {
	fail(&UnterminatedError{What: "array", Location: locate(a.start, a.start), Partial: a.partial()})
}

// A scope is an enclosing object or array, reported in errors.
type scope interface {
	partial() ast.Value
	syntaxError(want string, got rune)
	unterminated()
}

// readValue reads a complete value of any type, nested at the given depth
// inside sc. If sc == nil the value is not enclosed by a container.
func (r *reader) readValue(depth int, sc scope) ast.Value {
	if depth > maxDepth {
		fail(ErrTooDeep)
	}
	ch := r.skipSpace()
	switch {
	case ch == '"':
		return r.readString()
	case ch == '{':
		r.reset()
		return newObjectReader(r, depth, true).readAll()
	case ch == '[':
		r.reset()
		return newArrayReader(r, depth, true).readAll()
	case isNumStart(ch):
		r.reset()
		return r.readNumber()
	case ch == 't' || ch == 'f':
		r.reset()
		return r.readBool()
	case ch == 'n':
		r.reset()
		return r.readNull()
	case ch == eof && sc != nil:
		sc.unterminated()
	case ch == eof:
		fail(&UnterminatedError{What: "value", Location: r.last()})
	}
	if sc != nil {
		sc.syntaxError("value", ch)
	}
	fail(&SyntaxError{Expected: "value", Found: ch, Location: r.last()})
	panic("unreachable")
}
