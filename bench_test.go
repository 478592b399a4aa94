// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jcodec_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/creachadair/jcodec"
)

func benchInput(b *testing.B) []byte {
	b.Helper()
	g := valueGen{f: gofakeit.New(1)}
	var buf bytes.Buffer
	e := jcodec.NewEncoder(&buf)
	a := e.Array()
	for range 500 {
		if err := a.Value(g.value(5)); err != nil {
			b.Fatalf("Generating input: %v", err)
		}
	}
	if err := a.Close(); err != nil {
		b.Fatalf("Generating input: %v", err)
	}
	return buf.Bytes()
}

func BenchmarkRead(b *testing.B) {
	input := benchInput(b)
	b.Logf("Benchmark input: %d bytes", len(input))

	b.Run("Stdlib", func(b *testing.B) {
		for b.Loop() {
			var v any
			if err := json.Unmarshal(input, &v); err != nil {
				b.Fatalf("Unexpected error: %v", err)
			}
		}
	})

	b.Run("Reader", func(b *testing.B) {
		for b.Loop() {
			if _, err := jcodec.Read(bytes.NewReader(input)); err != nil {
				b.Fatalf("Unexpected error: %v", err)
			}
		}
	})
}

func BenchmarkWrite(b *testing.B) {
	v, err := jcodec.Read(bytes.NewReader(benchInput(b)))
	if err != nil {
		b.Fatalf("Reading input: %v", err)
	}
	var buf bytes.Buffer
	for b.Loop() {
		buf.Reset()
		if err := jcodec.Write(&buf, v, ""); err != nil {
			b.Fatalf("Unexpected error: %v", err)
		}
	}
}
