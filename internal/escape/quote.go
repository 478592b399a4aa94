// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package escape

import (
	"unicode/utf16"
	"unicode/utf8"

	"go4.org/mem"
)

var controlEsc = [...]byte{
	'\b': 'b',
	'\f': 'f',
	'\n': 'n',
	'\r': 'r',
	'\t': 't',
	' ':  ' ', // sentinel
}

var hexDigit = []byte("0123456789ABCDEF")

// Quote appends to dst the escaped form of src for inclusion in a JSON
// string, and returns the extended slice. The enclosing quotation marks are
// not added.
//
// The output is printable ASCII: quotation marks and backslashes are escaped,
// the common control characters use their short escapes, and every other
// control character, DEL, and UTF-16 code unit at or above 128 is written as
// a \uXXXX escape. Characters outside the Basic Multilingual Plane are
// written as a surrogate pair. Invalid UTF-8 is written as an escaped U+FFFD.
func Quote(dst []byte, src mem.RO) []byte {
	for src.Len() != 0 {
		r, n := mem.DecodeRune(src)
		src = src.SliceFrom(n)

		if r < utf8.RuneSelf {
			switch {
			case r < ' ':
				if b := controlEsc[r]; b != 0 {
					dst = append(dst, '\\', b)
				} else {
					dst = appendUnit(dst, uint16(r))
				}
			case r == '\\' || r == '"':
				dst = append(dst, '\\', byte(r))
			case r == utf8.RuneSelf-1: // DEL
				dst = appendUnit(dst, uint16(r))
			default:
				dst = append(dst, byte(r))
			}
			continue
		}

		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			dst = appendUnit(appendUnit(dst, uint16(r1)), uint16(r2))
		} else {
			dst = appendUnit(dst, uint16(r))
		}
	}
	return dst
}

func appendUnit(dst []byte, u uint16) []byte {
	return append(dst, '\\', 'u',
		hexDigit[u>>12&15], hexDigit[u>>8&15], hexDigit[u>>4&15], hexDigit[u&15])
}
