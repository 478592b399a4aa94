// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jcodec

import (
	"errors"
	"math"
	"strconv"

	"github.com/creachadair/jcodec/ast"
	"github.com/creachadair/jcodec/internal/escape"
	"go4.org/mem"
)

// A controller tracks the layout state of a write operation.
type controller struct {
	w      *writer
	indent string // if empty, output is compact
	depth  int
	buf    []byte
}

func (c *controller) enter() {
	c.depth++
	if c.depth > maxDepth {
		fail(ErrTooDeep)
	}
}

func (c *controller) exit() { c.depth-- }

// newline starts a new line at the current depth, in pretty mode.
func (c *controller) newline() {
	if c.indent == "" {
		return
	}
	c.w.writeChar('\n')
	for range c.depth {
		c.w.writeString(c.indent)
	}
}

// separate writes the separator preceding the element at offset n of the
// current container.
func (c *controller) separate(n int) {
	if n > 0 {
		c.w.writeChar(',')
		if c.indent == "" {
			c.w.writeChar(' ')
		}
	}
	c.newline()
}

// writeValue writes the text of v.
func (c *controller) writeValue(v ast.Value) {
	switch t := v.(type) {
	case nil, ast.NullType:
		c.w.writeString("null")
	case ast.Bool:
		c.w.writeString(strconv.FormatBool(bool(t)))
	case ast.Int:
		c.buf = strconv.AppendInt(c.buf[:0], int64(t), 10)
		c.w.write(c.buf)
	case ast.Long:
		c.buf = strconv.AppendInt(c.buf[:0], int64(t), 10)
		c.w.write(c.buf)
	case ast.Float:
		c.writeFloat(t)
	case ast.String:
		c.writeString(string(t))
	case ast.Array:
		a := c.beginArray()
		for _, elt := range t {
			a.value(elt)
		}
		a.close()
	case *ast.Object:
		if t == nil {
			c.w.writeString("null")
			return
		}
		o := c.beginObject()
		for key, elt := range t.All() {
			o.key(key)
			c.writeValue(elt)
		}
		o.close()
	default:
		fail(&UnsupportedValueError{Value: v, Reason: "unknown value type"})
	}
}

// writeFloat writes f with no exponent and enough fractional digits to
// recover its exact value. Integral values are written with a ".0" suffix so
// that they are read back as floating-point.
func (c *controller) writeFloat(f ast.Float) {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		fail(&UnsupportedValueError{Value: f, Reason: "not a finite number"})
	}
	c.buf = strconv.AppendFloat(c.buf[:0], float64(f), 'f', -1, 64)
	if mem.IndexByte(mem.B(c.buf), '.') < 0 {
		c.buf = append(c.buf, '.', '0')
	}
	c.w.write(c.buf)
}

func (c *controller) writeString(s string) {
	c.buf = append(c.buf[:0], '"')
	c.buf = escape.Quote(c.buf, mem.S(s))
	c.buf = append(c.buf, '"')
	c.w.write(c.buf)
}

func (c *controller) beginObject() *ObjectWriter {
	c.w.writeChar('{')
	c.enter()
	return &ObjectWriter{c: c}
}

func (c *controller) beginArray() *ArrayWriter {
	c.w.writeChar('[')
	c.enter()
	return &ArrayWriter{c: c}
}

var (
	errWriterClosed = errors.New("jcodec: writer is closed")
	errNeedKey      = errors.New("jcodec: object value without a key")
	errNeedValue    = errors.New("jcodec: object key without a value")
)

// An ObjectWriter writes the members of a JSON object one at a time.
// Write each member with Field, or with Key followed by Value, and call
// Close to finish the object.
type ObjectWriter struct {
	c       *controller
	n       int  // members begun
	pending bool // a key has been written without its value
	done    bool
	err     error
}

// Field writes a member with the given key and value.
func (o *ObjectWriter) Field(key string, v ast.Value) error {
	if err := o.Key(key); err != nil {
		return err
	}
	return o.Value(v)
}

// Key writes the key of a new member, whose value must be written next.
func (o *ObjectWriter) Key(key string) (err error) {
	if err := o.check(); err != nil {
		return err
	} else if o.pending {
		return errNeedValue
	}
	defer o.capture(&err)
	o.key(key)
	return nil
}

// Value writes the value of the member whose key was last written.
func (o *ObjectWriter) Value(v ast.Value) (err error) {
	if err := o.check(); err != nil {
		return err
	} else if !o.pending {
		return errNeedKey
	}
	defer o.capture(&err)
	o.c.writeValue(v)
	o.pending = false
	return nil
}

// Close writes the end of the object. If the object is not nested in another
// value, the output is flushed.
func (o *ObjectWriter) Close() (err error) {
	if err := o.check(); err != nil {
		return err
	} else if o.pending {
		return errNeedValue
	}
	defer o.capture(&err)
	o.close()
	if o.c.depth == 0 {
		return o.c.w.flush()
	}
	return nil
}

func (o *ObjectWriter) key(key string) {
	o.c.separate(o.n)
	o.c.writeString(key)
	o.c.w.writeString(": ")
	o.n++
	o.pending = true
}

func (o *ObjectWriter) close() {
	o.c.exit()
	if o.n > 0 {
		o.c.newline()
	}
	o.c.w.writeChar('}')
	o.done = true
}

func (o *ObjectWriter) check() error {
	if o.err != nil {
		return o.err
	} else if o.done {
		return errWriterClosed
	}
	return nil
}

func (o *ObjectWriter) capture(errp *error) {
	recoverFailure(errp)
	if *errp != nil {
		o.err = *errp
	}
}

// An ArrayWriter writes the elements of a JSON array one at a time.
// Call Close to finish the array.
type ArrayWriter struct {
	c    *controller
	n    int
	done bool
	err  error
}

// Value writes the next element of the array.
func (a *ArrayWriter) Value(v ast.Value) (err error) {
	if err := a.check(); err != nil {
		return err
	}
	defer a.capture(&err)
	a.value(v)
	return nil
}

// Close writes the end of the array. If the array is not nested in another
// value, the output is flushed.
func (a *ArrayWriter) Close() (err error) {
	if err := a.check(); err != nil {
		return err
	}
	defer a.capture(&err)
	a.close()
	if a.c.depth == 0 {
		return a.c.w.flush()
	}
	return nil
}

func (a *ArrayWriter) value(v ast.Value) {
	a.c.separate(a.n)
	a.c.writeValue(v)
	a.n++
}

func (a *ArrayWriter) close() {
	a.c.exit()
	if a.n > 0 {
		a.c.newline()
	}
	a.c.w.writeChar(']')
	a.done = true
}

func (a *ArrayWriter) check() error {
	if a.err != nil {
		return a.err
	} else if a.done {
		return errWriterClosed
	}
	return nil
}

func (a *ArrayWriter) capture(errp *error) {
	recoverFailure(errp)
	if *errp != nil {
		a.err = *errp
	}
}
