// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jcodec

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/creachadair/jcodec/ast"
	"github.com/creachadair/jcodec/marshal"
	"github.com/tailscale/hujson"
)

// A Decoder reads JSON values from an input stream.
type Decoder struct {
	src      io.Reader
	r        *reader
	comments bool
	err      error // sticky
}

// NewDecoder constructs a Decoder that consumes input from r.
func NewDecoder(r io.Reader) *Decoder { return &Decoder{src: r} }

// AllowComments configures d to accept (true) or reject (false) comments and
// trailing commas in its input, as defined by JWCC. When enabled, the whole
// input is read and standardized before the first value is decoded, and must
// consist of exactly one value. It must be called before any value is read.
func (d *Decoder) AllowComments(ok bool) { d.comments = ok }

func (d *Decoder) init() error {
	if d.err != nil {
		return d.err
	} else if d.r != nil {
		return nil
	}
	src := d.src
	if d.comments {
		data, err := io.ReadAll(src)
		if err != nil {
			return d.setErr(&IOError{Err: err})
		}
		std, err := hujson.Standardize(data)
		if err != nil {
			return d.setErr(fmt.Errorf("jcodec: invalid input: %w", err))
		}
		src = bytes.NewReader(std)
	}
	d.r = newReader(src)
	return nil
}

func (d *Decoder) setErr(err error) error {
	if err != nil && !errors.Is(err, io.EOF) {
		d.err = err
	}
	return err
}

// decode runs read on the reader of d, recovering a failure as an error.
func (d *Decoder) decode(read func(r *reader)) (err error) {
	if err := d.init(); err != nil {
		return err
	}
	defer func() { d.setErr(err) }()
	defer recoverFailure(&err)
	read(d.r)
	return nil
}

// ReadMap reads a JSON object from the input. The object may be preceded by
// whitespace. Input following the object is not consumed.
func (d *Decoder) ReadMap() (obj *ast.Object, err error) {
	err = d.decode(func(r *reader) { obj = newObjectReader(r, 1, true).readAll() })
	return obj, err
}

// ReadList reads a JSON array from the input. The array may be preceded by
// whitespace. Input following the array is not consumed.
func (d *Decoder) ReadList() (arr ast.Array, err error) {
	err = d.decode(func(r *reader) { arr = newArrayReader(r, 1, true).readAll() })
	return arr, err
}

// ReadValue reads the next JSON value of any type from the input, skipping
// leading whitespace. If no further value is available, it returns io.EOF.
func (d *Decoder) ReadValue() (v ast.Value, err error) {
	err = d.decode(func(r *reader) {
		if r.skipSpace() == eof {
			fail(io.EOF)
		}
		r.reset()
		v = r.readValue(1, nil)
	})
	return v, err
}

// Read reads a single JSON value of any type that must comprise the rest of
// the input, apart from whitespace.
func (d *Decoder) Read() (v ast.Value, err error) {
	err = d.decode(func(r *reader) {
		v = r.readValue(1, nil)
		if ch := r.skipSpace(); ch != eof {
			fail(&SyntaxError{Expected: "end of input", Found: ch, Location: r.last(), Partial: v})
		}
	})
	return v, err
}

// Decode reads the next JSON value from the input and unmarshals it into
// dst, which must be a non-nil pointer. See [marshal.UnmarshalValue].
func (d *Decoder) Decode(dst any) error {
	v, err := d.ReadValue()
	if err != nil {
		return err
	}
	return marshal.UnmarshalValue(v, dst)
}

// Object returns a reader for the members of the next value of the input,
// which must be an object. Errors are reported by the methods of the reader.
func (d *Decoder) Object() *ObjectReader {
	o := newObjectReader(nil, 1, false)
	if err := d.init(); err != nil {
		o.err = err
	}
	o.r = d.r
	return o
}

// Array returns a reader for the elements of the next value of the input,
// which must be an array. Errors are reported by the methods of the reader.
func (d *Decoder) Array() *ArrayReader {
	a := newArrayReader(nil, 1, false)
	if err := d.init(); err != nil {
		a.err = err
	}
	a.r = d.r
	return a
}

// Close closes the underlying input, if it implements io.Closer.
func (d *Decoder) Close() error {
	if c, ok := d.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// An Encoder writes JSON values to an output stream.
type Encoder struct {
	dst io.Writer
	c   *controller
}

// NewEncoder constructs an Encoder that writes output to w. By default the
// output is compact; see [Encoder.SetIndent].
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{dst: w, c: &controller{w: newWriter(w)}}
}

// SetIndent sets the indentation unit used for each level of nesting. If
// indent == "", output is written on a single line.
func (e *Encoder) SetIndent(indent string) { e.c.indent = indent }

// Encode writes v to the output and flushes it.
func (e *Encoder) Encode(v ast.Value) (err error) {
	if e.c.w.err != nil {
		return e.c.w.err
	}
	defer func() {
		if err != nil {
			e.c.depth = 0
		}
	}()
	defer recoverFailure(&err)
	e.c.writeValue(v)
	return e.c.w.flush()
}

// EncodeRecord marshals rec and writes the result to the output.
// See [marshal.MarshalValue].
func (e *Encoder) EncodeRecord(rec any) error {
	v, err := marshal.MarshalValue(rec)
	if err != nil {
		return err
	}
	return e.Encode(v)
}

// Object begins writing an object to the output. The object is complete
// when the Close method of the writer is called.
func (e *Encoder) Object() *ObjectWriter {
	o := &ObjectWriter{c: e.c}
	o.err = e.begin(func() { e.c.beginObject() })
	return o
}

// Array begins writing an array to the output. The array is complete when
// the Close method of the writer is called.
func (e *Encoder) Array() *ArrayWriter {
	a := &ArrayWriter{c: e.c}
	a.err = e.begin(func() { e.c.beginArray() })
	return a
}

func (e *Encoder) begin(open func()) (err error) {
	if e.c.w.err != nil {
		return e.c.w.err
	}
	defer recoverFailure(&err)
	open()
	return nil
}

// Flush writes any buffered output.
func (e *Encoder) Flush() error { return e.c.w.flush() }

// Close flushes buffered output and closes the underlying output, if it
// implements io.Closer.
func (e *Encoder) Close() error {
	err := e.Flush()
	if c, ok := e.dst.(io.Closer); ok {
		err = cmp.Or(err, c.Close())
	}
	return err
}

// ReadMap reads a JSON object from r, and closes r if it is an io.Closer.
func ReadMap(r io.Reader) (_ *ast.Object, err error) {
	d := NewDecoder(r)
	defer func() { err = cmp.Or(err, d.Close()) }()
	return d.ReadMap()
}

// ReadList reads a JSON array from r, and closes r if it is an io.Closer.
func ReadList(r io.Reader) (_ ast.Array, err error) {
	d := NewDecoder(r)
	defer func() { err = cmp.Or(err, d.Close()) }()
	return d.ReadList()
}

// Read reads a JSON value that comprises the whole input of r, and closes r
// if it is an io.Closer.
func Read(r io.Reader) (_ ast.Value, err error) {
	d := NewDecoder(r)
	defer func() { err = cmp.Or(err, d.Close()) }()
	return d.Read()
}

// ReadValue reads one JSON value from the front of r, and closes r if it is
// an io.Closer. Any input following the value is discarded.
func ReadValue(r io.Reader) (_ ast.Value, err error) {
	d := NewDecoder(r)
	defer func() { err = cmp.Or(err, d.Close()) }()
	return d.ReadValue()
}

// ReadRecord reads a JSON value that comprises the whole input of r and
// unmarshals it into dst, which must be a non-nil pointer. It closes r if it
// is an io.Closer.
func ReadRecord(r io.Reader, dst any) error {
	v, err := Read(r)
	if err != nil {
		return err
	}
	return marshal.UnmarshalValue(v, dst)
}

// Write writes v to w, and closes w if it is an io.Closer. If indent == "",
// the output is compact; otherwise each nested value begins on a new line
// indented by one copy of indent per level.
func Write(w io.Writer, v ast.Value, indent string) (err error) {
	e := NewEncoder(w)
	e.SetIndent(indent)
	defer func() { err = cmp.Or(err, e.Close()) }()
	return e.Encode(v)
}

// WriteRecord marshals rec and writes the result to w as for [Write].
func WriteRecord(w io.Writer, rec any, indent string) error {
	v, err := marshal.MarshalValue(rec)
	if err != nil {
		if c, ok := w.(io.Closer); ok {
			c.Close()
		}
		return err
	}
	return Write(w, v, indent)
}

// Parse parses s as a single JSON value.
func Parse(s string) (ast.Value, error) { return Read(strings.NewReader(s)) }

// Format renders v as JSON text. See [Write].
func Format(v ast.Value, indent string) (string, error) {
	var sb strings.Builder
	if err := Write(&sb, v, indent); err != nil {
		return "", err
	}
	return sb.String(), nil
}
