// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

// Package escape handles quoting and unquoting of JSON strings.
package escape

import (
	"errors"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"go4.org/mem"
)

// escLen is the length in bytes of a complete \uXXXX escape.
const escLen = 6

// DecodeUnicode decodes the \uXXXX escapes of src that begin at the byte
// offsets listed in at, which must be strictly increasing. All other bytes of
// src are copied unchanged, so a backslash that was not recorded in at is not
// treated as the start of an escape.
//
// Each escape denotes one UTF-16 code unit. A high surrogate immediately
// followed by an escaped low surrogate is combined into a single rune; an
// unpaired surrogate is replaced by the Unicode replacement rune.
// DecodeUnicode reports an error if an escape is truncated or contains a
// non-hexadecimal digit.
func DecodeUnicode(src mem.RO, at []int) ([]byte, error) {
	dec := make([]byte, 0, src.Len())
	if len(at) == 0 {
		return mem.Append(dec, src), nil
	}

	units := make([]uint16, len(at))
	for i, pos := range at {
		if pos+escLen > src.Len() {
			return nil, errors.New("incomplete Unicode escape")
		}
		if src.At(pos) != '\\' || src.At(pos+1) != 'u' {
			return nil, fmt.Errorf("no Unicode escape at offset %d", pos)
		}
		v, err := parseHex(src.Slice(pos+2, pos+escLen))
		if err != nil {
			return nil, err
		}
		units[i] = uint16(v)
	}

	putRune := func(r rune) { dec = utf8.AppendRune(dec, r) }
	last := 0
	for i := 0; i < len(at); i++ {
		pos := at[i]
		dec = mem.Append(dec, src.Slice(last, pos))
		last = pos + escLen

		u := rune(units[i])
		if utf16.IsSurrogate(u) {
			// Combine with the next unit only if it is escaped directly after
			// this one and completes a valid pair.
			if i+1 < len(at) && at[i+1] == last {
				if r := utf16.DecodeRune(u, rune(units[i+1])); r != utf8.RuneError {
					putRune(r)
					i++
					last = at[i] + escLen
					continue
				}
			}
			putRune(utf8.RuneError)
			continue
		}
		putRune(u)
	}
	return mem.Append(dec, src.SliceFrom(last)), nil
}

func parseHex(data mem.RO) (int64, error) {
	var v int64
	for i := 0; i < data.Len(); i++ {
		b := data.At(i)
		v <<= 4
		if '0' <= b && b <= '9' {
			v += int64(b - '0')
		} else if 'a' <= b && b <= 'f' {
			v += int64(b - 'a' + 10)
		} else if 'A' <= b && b <= 'F' {
			v += int64(b - 'A' + 10)
		} else {
			return 0, fmt.Errorf("invalid hex digit %q", b)
		}
	}
	return v, nil
}
