// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jcodec

import "fmt"

// A Span describes a contiguous span of a source input.
type Span struct {
	Pos int // the start offset, 0-based
	End int // the end offset, 0-based (noninclusive)
}

// A LineCol describes the line number and column offset of a location in
// source text.
type LineCol struct {
	Line   int // line number, 1-based
	Column int // byte offset of column in line, 0-based
}

func (lc LineCol) String() string { return fmt.Sprintf("%d:%d", lc.Line, lc.Column) }

// A Location describes the complete location of a range of source text,
// including line and column offsets.
type Location struct {
	Span
	First, Last LineCol
}

func (loc Location) String() string {
	if loc.First == loc.Last {
		return loc.First.String()
	}
	return fmt.Sprintf("%s-%s", loc.First, loc.Last)
}

// position is a point in the input tracked by the reader.
type position struct {
	offset int
	line   int // 1-based
	col    int // 0-based
}

func (p position) lineCol() LineCol { return LineCol{Line: p.line, Column: p.col} }

// locate returns the location of the text between from and to.
func locate(from, to position) Location {
	return Location{
		Span:  Span{Pos: from.offset, End: to.offset},
		First: from.lineCol(),
		Last:  to.lineCol(),
	}
}
