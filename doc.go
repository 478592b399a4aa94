// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

// Package jcodec implements a streaming JSON reader and writer over a generic
// value model, and the mapping of that model onto Go struct types.
//
// # Reading
//
// The reader consumes its input one character at a time with a small
// bounded lookahead, and never buffers the whole document. The package
// functions read a complete value and close the input if it is an io.Closer:
//
//	obj, err := jcodec.ReadMap(f)   // a JSON object
//	arr, err := jcodec.ReadList(f)  // a JSON array
//	v, err := jcodec.Read(f)        // any value comprising the whole input
//
// The values returned are from package [ast]. Numbers without a fractional
// part are read as [ast.Int] when they fit in 32 bits, otherwise [ast.Long];
// numbers with a fractional part are read as [ast.Float]. Exponent notation is
// not supported. The non-breaking space (U+00A0) is accepted as whitespace.
//
// To read a sequence of values from one stream, or to read the members of a
// large object incrementally, use a [Decoder]:
//
//	d := jcodec.NewDecoder(input)
//	o := d.Object()
//	for {
//	   key, ok, err := o.Next()
//	   if err != nil {
//	      log.Fatalf("Next: %v", err)
//	   } else if !ok {
//	      break
//	   }
//	   v, err := o.Value()
//	   // ...
//	}
//
// # Writing
//
// Write renders a value to an output. If the indent is empty the output is a
// single line with ", " and ": " separators; otherwise each member or element
// starts on a new line indented by one copy of the indent per level:
//
//	err := jcodec.Write(os.Stdout, obj, "  ")
//
// Strings are written as printable ASCII: every character outside that range
// is written as a \u escape, using a surrogate pair where necessary. Floating
// point values are written without an exponent, and with enough digits to be
// read back exactly.
//
// # Records
//
// ReadRecord and WriteRecord map between JSON and Go struct values using
// package [marshal]. Fields are selected and renamed with struct tags:
//
//	type Config struct {
//	   Name    string   `jcodec:"name"`
//	   Tags    []string `jcodec:"tags,optional"`
//	   Verbose bool     `jcodec:"verbose,present"`
//	   Secret  string   `jcodec:"-"`
//	}
//
// # Errors
//
// Malformed input is reported as a [*SyntaxError], [*UnterminatedError], or
// [*DecodeError], each of which carries the location of the problem in the
// input. Where possible, the container being read when the error occurred is
// attached as the Partial field. Failures of the underlying input or output
// are reported as [*IOError].
package jcodec
