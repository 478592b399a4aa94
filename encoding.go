// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jcodec

import (
	"errors"
	"strings"

	"github.com/creachadair/jcodec/internal/escape"
	"go4.org/mem"
)

// Quote encodes src as a JSON string value. The contents are escaped as the
// writer does, and double quotation marks are added.
func Quote(src string) string {
	buf := make([]byte, 0, len(src)+2)
	buf = append(buf, '"')
	buf = escape.Quote(buf, mem.S(src))
	return string(append(buf, '"'))
}

// Unquote decodes a JSON string value. Double quotation marks are removed,
// and escape sequences are replaced with their unescaped equivalents, as the
// reader does.
func Unquote(src string) (_ string, err error) {
	if len(src) < 2 || !strings.HasPrefix(src, `"`) || !strings.HasSuffix(src, `"`) {
		return "", errors.New("missing quotations")
	}
	defer recoverFailure(&err)
	r := newReader(strings.NewReader(src))
	r.readChar() // the opening quote
	s := r.readString()
	if ch := r.readChar(); ch != eof {
		fail(&SyntaxError{Expected: "end of input", Found: ch, Location: r.last()})
	}
	return string(s), nil
}
