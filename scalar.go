// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jcodec

import (
	"unicode/utf8"

	"github.com/creachadair/jcodec/ast"
	"github.com/creachadair/jcodec/internal/escape"
	"go4.org/mem"
)

// readString reads the remainder of a string whose opening quotation mark has
// already been consumed, through the closing quotation mark.
//
// Unicode escapes are copied into the token without decoding, and their
// offsets recorded; they are decoded together once the token is complete.
func (r *reader) readString() ast.String {
	start := r.prev
	r.buf = r.buf[:0]
	var esc []int
	for {
		ch := r.readChar()
		switch ch {
		case eof:
			fail(&UnterminatedError{What: "string", Location: locate(start, r.pos)})
		case '"':
			if len(esc) == 0 {
				return ast.String(r.buf)
			}
			dec, err := escape.DecodeUnicode(mem.B(r.buf), esc)
			if err != nil {
				fail(&DecodeError{What: "string", Text: string(r.buf), Location: locate(start, r.pos), Err: err})
			}
			return ast.String(dec)
		case '\\':
			// handled below
		default:
			r.buf = utf8.AppendRune(r.buf, ch)
			continue
		}

		ch = r.readChar()
		switch ch {
		case eof:
			fail(&UnterminatedError{What: "string", Location: locate(start, r.pos)})
		case 'n':
			r.buf = append(r.buf, '\n')
		case 'r':
			r.buf = append(r.buf, '\r')
		case 't':
			r.buf = append(r.buf, '\t')
		case 'f':
			r.buf = append(r.buf, '\f')
		case 'b':
			r.buf = append(r.buf, '\b')
		case 'u':
			esc = append(esc, len(r.buf))
			r.buf = append(r.buf, '\\', 'u')
			for range 4 {
				hc := r.readChar()
				if hc == eof {
					fail(&UnterminatedError{What: "string", Location: locate(start, r.pos)})
				} else if !isHexDigit(hc) {
					fail(&DecodeError{
						What:     "string",
						Text:     string(utf8.AppendRune(r.buf, hc)),
						Location: r.last(),
					})
				}
				r.buf = append(r.buf, byte(hc))
			}
		default:
			// Quotation marks, backslashes, and any other escaped character
			// stand for themselves.
			r.buf = utf8.AppendRune(r.buf, ch)
		}
	}
}

// readNumber reads a number. The first character of the number must be the
// next character of the input. The character following the number is pushed
// back for the caller to read.
func (r *reader) readNumber() ast.Value {
	start := r.pos
	r.buf = r.buf[:0]
	var isFloat bool
	for {
		r.mark(1)
		ch := r.readChar()
		if isDigit(ch) || (ch == '-' && len(r.buf) == 0) {
			r.buf = append(r.buf, byte(ch))
		} else if ch == '.' && !isFloat {
			r.buf = append(r.buf, '.')
			isFloat = true
		} else {
			r.reset()
			break
		}
	}

	text := mem.B(r.buf)
	bad := func(err error) {
		fail(&DecodeError{What: "number", Text: text.StringCopy(), Location: locate(start, r.pos), Err: err})
	}
	if !hasDigit(r.buf) {
		bad(nil)
	}
	if isFloat {
		f, err := mem.ParseFloat(text, 64)
		if err != nil {
			bad(err)
		}
		return ast.Float(f)
	}
	z, err := mem.ParseInt(text, 10, 64)
	if err != nil {
		bad(err)
	}
	return ast.Integer(z)
}

// readBool reads the constant true or false. The first character of the
// constant must be the next character of the input.
func (r *reader) readBool() ast.Bool {
	start := r.pos
	word := r.readWord("boolean", start, lookahead)
	switch word {
	case "true":
		return true
	case "fals":
		ch := r.readChar()
		if ch == 'e' {
			return false
		} else if ch == eof {
			fail(&UnterminatedError{What: "boolean", Location: locate(start, r.pos)})
		}
		word += string(ch)
	}
	fail(&DecodeError{What: "boolean", Text: word, Location: locate(start, r.pos)})
	panic("unreachable")
}

// readNull reads the constant null. The first character of the constant must
// be the next character of the input.
func (r *reader) readNull() ast.NullType {
	start := r.pos
	if got := r.readWord("null", start, lookahead); got != "null" {
		fail(&DecodeError{What: "null", Text: got, Location: locate(start, r.pos)})
	}
	return ast.Null
}

// readWord reads exactly n characters into the token buffer and returns them.
// If the input ends first, it fails with an unterminated error for what.
func (r *reader) readWord(what string, start position, n int) string {
	r.buf = r.buf[:0]
	for range n {
		ch := r.readChar()
		if ch == eof {
			fail(&UnterminatedError{What: what, Location: locate(start, r.pos)})
		}
		r.buf = utf8.AppendRune(r.buf, ch)
	}
	return string(r.buf)
}

func hasDigit(buf []byte) bool {
	for _, b := range buf {
		if '0' <= b && b <= '9' {
			return true
		}
	}
	return false
}
