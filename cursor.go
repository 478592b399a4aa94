// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jcodec

import (
	"bufio"
	"io"
	"unicode/utf8"
)

// eof is the character reported by the reader at the end of its input.
const eof = -1

// lookahead is the number of characters the scanners may read past a mark
// before resetting to it.
const lookahead = 4

// A reader delivers the characters of an input one at a time, with a bounded
// mark and reset facility for lookahead. A reader is not safe for concurrent
// use.
type reader struct {
	in *bufio.Reader

	back []rune // characters to re-read after a reset, in reverse order
	hist []rune // characters read since the mark

	marked bool // whether hist is a valid mark
	limit  int  // the lookahead limit of the current mark

	pos     position // the location of the next character
	prev    position // the location of the last character read
	markPos position // the value of pos when the mark was set

	buf []byte // scratch space for scalar tokens
}

func newReader(r io.Reader) *reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &reader{in: br, pos: position{line: 1}}
}

// mark records the current position so that a subsequent reset will return
// to it. The mark remains valid for the next n characters read.
func (r *reader) mark(n int) {
	r.hist = r.hist[:0]
	r.marked = true
	r.limit = n
	r.markPos = r.pos
}

// reset returns the reader to the most recent mark. The characters read since
// the mark will be delivered again.
func (r *reader) reset() {
	if !r.marked {
		fail(errLookahead)
	}
	for i := len(r.hist) - 1; i >= 0; i-- {
		r.back = append(r.back, r.hist[i])
	}
	r.hist = r.hist[:0]
	r.marked = false
	r.pos = r.markPos
	r.prev = r.markPos
}

// readChar returns the next character of the input, or eof.
func (r *reader) readChar() rune {
	var ch rune
	if n := len(r.back); n > 0 {
		ch = r.back[n-1]
		r.back = r.back[:n-1]
	} else {
		c, _, err := r.in.ReadRune()
		if err == io.EOF {
			r.prev = r.pos
			return eof
		} else if err != nil {
			fail(&IOError{Err: err})
		}
		ch = c
	}
	if r.marked {
		if len(r.hist) == r.limit {
			r.marked = false
		} else {
			r.hist = append(r.hist, ch)
		}
	}
	r.advance(ch)
	return ch
}

func (r *reader) advance(ch rune) {
	r.prev = r.pos
	r.pos.offset += utf8.RuneLen(ch)
	if ch == '\n' {
		r.pos.line++
		r.pos.col = 0
	} else {
		r.pos.col += utf8.RuneLen(ch)
	}
}

// last returns the location of the most recently read character.
func (r *reader) last() Location { return locate(r.prev, r.pos) }

// skipSpace reads and discards whitespace, and returns the first character
// that is not whitespace. A mark is set before that character is read, so the
// caller may reset to push it back.
func (r *reader) skipSpace() rune {
	for {
		r.mark(lookahead)
		if ch := r.readChar(); !isSpace(ch) {
			return ch
		}
	}
}

// A writer delivers characters to an output. Errors from the output abort the
// current operation.
type writer struct {
	out *bufio.Writer
	err error
}

func newWriter(w io.Writer) *writer {
	bw, ok := w.(*bufio.Writer)
	if !ok {
		bw = bufio.NewWriter(w)
	}
	return &writer{out: bw}
}

func (w *writer) writeChar(ch byte) {
	if w.err == nil {
		w.check(w.out.WriteByte(ch))
	}
}

func (w *writer) writeString(s string) {
	if w.err == nil {
		_, err := w.out.WriteString(s)
		w.check(err)
	}
}

func (w *writer) write(data []byte) {
	if w.err == nil {
		_, err := w.out.Write(data)
		w.check(err)
	}
}

// flush writes any buffered data to the output and reports the first error
// encountered by w, if any.
func (w *writer) flush() error {
	if w.err == nil {
		if err := w.out.Flush(); err != nil {
			w.err = &IOError{Err: err}
		}
	}
	return w.err
}

func (w *writer) check(err error) {
	if err != nil {
		w.err = &IOError{Err: err}
		fail(w.err)
	}
}

// isSpace reports whether ch is insignificant whitespace: any control
// character or space, and the non-breaking space.
func isSpace(ch rune) bool { return (ch >= 0 && ch <= ' ') || ch == 0xA0 }

func isDigit(ch rune) bool    { return '0' <= ch && ch <= '9' }
func isNumStart(ch rune) bool { return ch == '-' || isDigit(ch) }

func isHexDigit(ch rune) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
