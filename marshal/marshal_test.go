// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package marshal_test

import (
	"bytes"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/creachadair/jcodec"
	"github.com/creachadair/jcodec/ast"
	"github.com/creachadair/jcodec/marshal"
	"github.com/go-kit/log"
	"github.com/google/go-cmp/cmp"
)

type Inner struct {
	X int `jcodec:"x"`
}

type Sample struct {
	Name  string    `jcodec:"name"`
	Count int       // no tag: the field name is the key
	Tags  []string  `jcodec:"tags,optional"`
	Inner *Inner    `jcodec:"inner,optional"`
	Flag  bool      `jcodec:"flag,present"`
	Skip  string    `jcodec:"-"`
	Ratio float64   `jcodec:"ratio"`
	Raw   ast.Value `jcodec:"raw,optional"`

	hidden int
}

func mustParse(t *testing.T, s string) ast.Value {
	t.Helper()
	v, err := jcodec.Parse(s)
	if err != nil {
		t.Fatalf("Parse %#q: %v", s, err)
	}
	return v
}

func mustParseObject(t *testing.T, s string) *ast.Object {
	t.Helper()
	o, ok := mustParse(t, s).(*ast.Object)
	if !ok {
		t.Fatalf("Parse %#q: not an object", s)
	}
	return o
}

func TestMarshal(t *testing.T) {
	tests := []struct {
		name     string
		input    Sample
		wantKeys []string
		want     string
	}{
		{"Minimal", Sample{Name: "a", Count: 3, Ratio: 0.5, Skip: "no", hidden: 1},
			[]string{"name", "Count", "ratio"},
			`{"name": "a", "Count": 3, "ratio": 0.5}`},
		{"Full", Sample{
			Name: "b", Tags: []string{"x"}, Inner: &Inner{X: 2}, Flag: true, Ratio: 1, Raw: ast.String("r"),
		},
			[]string{"name", "Count", "tags", "inner", "flag", "ratio", "raw"},
			`{"name": "b", "Count": 0, "tags": ["x"], "inner": {"x": 2}, "flag": null, "ratio": 1.0, "raw": "r"}`},
		{"NullRaw", Sample{Raw: ast.Null},
			[]string{"name", "Count", "ratio"},
			`{"name": "", "Count": 0, "ratio": 0.0}`},
		{"EmptyTags", Sample{Tags: []string{}},
			[]string{"name", "Count", "tags", "ratio"},
			`{"name": "", "Count": 0, "tags": [], "ratio": 0.0}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := marshal.Marshal(&tc.input)
			if err != nil {
				t.Fatalf("Marshal: unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.wantKeys, got.Keys()); diff != "" {
				t.Errorf("Keys (-want, +got):\n%s", diff)
			}
			text, err := jcodec.Format(got, "")
			if err != nil {
				t.Fatalf("Format: unexpected error: %v", err)
			}
			if text != tc.want {
				t.Errorf("Marshal:\ngot  %s\nwant %s", text, tc.want)
			}
		})
	}
}

func TestMarshalValue(t *testing.T) {
	tests := []struct {
		input any
		want  ast.Value
	}{
		{nil, ast.Null},
		{true, ast.Bool(true)},
		{int8(-3), ast.Int(-3)},
		{uint32(math.MaxUint32), ast.Long(math.MaxUint32)},
		{int64(1 << 40), ast.Long(1 << 40)},
		{float32(0.25), ast.Float(0.25)},
		{"s", ast.String("s")},
		{[]int{1, 3, 5}, ast.Array{ast.Int(1), ast.Int(3), ast.Int(5)}},
		{[2]bool{true, false}, ast.Array{ast.Bool(true), ast.Bool(false)}},
		{[]int(nil), ast.Null},
		{map[string]int{"b": 2, "a": 1}, ast.NewObject(ast.Field("a", 1), ast.Field("b", 2))},
		{map[string]*Inner{"p": nil}, ast.NewObject(ast.Field("p", nil))},
		{(*Inner)(nil), ast.Null},
		{&Inner{X: 4}, ast.NewObject(ast.Field("x", 4))},
		{ast.String("v"), ast.String("v")},
		{[]any{1, "a", nil}, ast.Array{ast.Int(1), ast.String("a"), ast.Null}},
	}
	for _, tc := range tests {
		got, err := marshal.MarshalValue(tc.input)
		if err != nil {
			t.Errorf("MarshalValue(%#v): unexpected error: %v", tc.input, err)
			continue
		}
		if !ast.Equal(got, tc.want) {
			t.Errorf("MarshalValue(%#v): got %#v, want %#v", tc.input, got, tc.want)
		}
	}

	m, err := marshal.MarshalValue(map[string]int{"z": 1, "a": 2, "m": 3})
	if err != nil {
		t.Fatalf("MarshalValue: unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "m", "z"}, m.(*ast.Object).Keys()); diff != "" {
		t.Errorf("Map keys (-want, +got):\n%s", diff)
	}
}

func TestMarshalErrors(t *testing.T) {
	for _, input := range []any{5, nil, "record", []Inner{}, (*Inner)(nil)} {
		if got, err := marshal.Marshal(input); err == nil {
			t.Errorf("Marshal(%#v): got %v, want error", input, got)
		}
	}
	for _, input := range []any{
		uint64(math.MaxUint64),
		map[int]string{1: "x"},
		make(chan int),
		func() {},
		struct{ F complex128 }{1i},
	} {
		if got, err := marshal.MarshalValue(input); err == nil {
			t.Errorf("MarshalValue(%T): got %v, want error", input, got)
		}
	}

	_, err := marshal.MarshalValue(struct{ Bad uint64 }{math.MaxUint64})
	var me *marshal.MappingError
	if !errors.As(err, &me) {
		t.Fatalf("MarshalValue: got %v, want *MappingError", err)
	}
	if me.Field != "Bad" || me.FieldType != reflect.TypeFor[uint64]() {
		t.Errorf("MappingError: got field %s of type %v, want Bad of type uint64", me.Field, me.FieldType)
	}
}

type Record struct {
	B int `jcodec:"b"`

	__data *ast.Object
}

func TestCatchAll(t *testing.T) {
	var r Record
	if err := marshal.Unmarshal(mustParseObject(t, `{"a":1,"b":2}`), &r); err != nil {
		t.Fatalf("Unmarshal: unexpected error: %v", err)
	}
	if r.B != 2 {
		t.Errorf("B: got %d, want 2", r.B)
	}
	want := ast.NewObject(ast.Field("a", 1), ast.Field("b", 2))
	if !ast.Equal(r.__data, want) {
		t.Errorf("Catch-all: got %#v, want %#v", r.__data, want)
	}

	// A second unmarshal merges into the existing catch-all.
	if err := marshal.Unmarshal(mustParseObject(t, `{"c":3}`), &r); err != nil {
		t.Fatalf("Unmarshal: unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, r.__data.Keys()); diff != "" {
		t.Errorf("Catch-all keys (-want, +got):\n%s", diff)
	}

	// The catch-all is never written.
	got, err := marshal.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"b"}, got.Keys()); diff != "" {
		t.Errorf("Marshal keys (-want, +got):\n%s", diff)
	}
}

func TestUnmarshalPolicies(t *testing.T) {
	var s Sample
	s.Skip = "unchanged"
	in := mustParseObject(t, `{"name":"n","Count":7,"tags":["p","q"],"inner":{"x":9},"flag":false,"Skip":"no","raw":[1]}`)
	if err := marshal.Unmarshal(in, &s); err != nil {
		t.Fatalf("Unmarshal: unexpected error: %v", err)
	}
	if s.Name != "n" || s.Count != 7 || !s.Flag || s.Skip != "unchanged" {
		t.Errorf("Unmarshal: got %+v", s)
	}
	if diff := cmp.Diff([]string{"p", "q"}, s.Tags); diff != "" {
		t.Errorf("Tags (-want, +got):\n%s", diff)
	}
	if s.Inner == nil || s.Inner.X != 9 {
		t.Errorf("Inner: got %+v, want x=9", s.Inner)
	}
	if !ast.Equal(s.Raw, ast.Array{ast.Int(1)}) {
		t.Errorf("Raw: got %#v, want [1]", s.Raw)
	}

	// The present flag is cleared when its key is missing.
	if err := marshal.Unmarshal(mustParseObject(t, `{}`), &s); err != nil {
		t.Fatalf("Unmarshal: unexpected error: %v", err)
	}
	if s.Flag {
		t.Error("Flag: got true, want false")
	}
	if s.Name != "n" {
		t.Errorf("Name: got %q, want it unchanged", s.Name)
	}
}

type Numbers struct {
	I8        int8
	I         int
	U16       uint16
	F32       float32
	F64       float64
	FromFloat int
	Big       int64
}

func TestUnmarshalNumbers(t *testing.T) {
	var got Numbers
	in := mustParseObject(t, `{"I8":-5,"I":7,"U16":65535,"F32":1.5,"F64":3,"FromFloat":4.0,"Big":9000000000}`)
	if err := marshal.Unmarshal(in, &got); err != nil {
		t.Fatalf("Unmarshal: unexpected error: %v", err)
	}
	want := Numbers{I8: -5, I: 7, U16: 65535, F32: 1.5, F64: 3, FromFloat: 4, Big: 9000000000}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unmarshal (-want, +got):\n%s", diff)
	}

	tests := []struct {
		input string
		field string
	}{
		{`{"I8": 128}`, "I8"},
		{`{"I8": -129}`, "I8"},
		{`{"U16": -1}`, "U16"},
		{`{"U16": 65536}`, "U16"},
		{`{"FromFloat": 4.5}`, "FromFloat"},
		{`{"I": "x"}`, "I"},
		{`{"F64": true}`, "F64"},
		{`{"F32": 1000000000000000000000000000000000000000000.0}`, "F32"},
		{`{"Big": [1]}`, "Big"},
	}
	for _, tc := range tests {
		var n Numbers
		err := marshal.Unmarshal(mustParseObject(t, tc.input), &n)
		var me *marshal.MappingError
		if !errors.As(err, &me) {
			t.Errorf("Unmarshal %#q: got %v, want *MappingError", tc.input, err)
			continue
		}
		if me.Field != tc.field || me.Record != reflect.TypeFor[Numbers]() {
			t.Errorf("Unmarshal %#q: got field %s.%s, want Numbers.%s", tc.input, me.Record, me.Field, tc.field)
		}
	}
}

type Nullable struct {
	S string
	N int
	P *Inner
	L []int
	M map[string]int
	V ast.Value
	A any
	O *ast.Object
	T ast.String
}

func TestUnmarshalNull(t *testing.T) {
	got := Nullable{
		S: "keep", N: 5, P: &Inner{X: 1}, L: []int{1}, M: map[string]int{"a": 1},
		V: ast.Int(1), A: 2, O: ast.NewObject(), T: "also kept",
	}
	in := mustParseObject(t, `{"S":null,"N":null,"P":null,"L":null,"M":null,"V":null,"A":null,"O":null,"T":null}`)
	if err := marshal.Unmarshal(in, &got); err != nil {
		t.Fatalf("Unmarshal: unexpected error: %v", err)
	}
	if got.S != "keep" || got.N != 5 || got.T != "also kept" {
		t.Errorf("Value fields changed: %+v", got)
	}
	if got.P != nil || got.L != nil || got.M != nil || got.V != nil || got.A != nil || got.O != nil {
		t.Errorf("Reference fields not cleared: %+v", got)
	}
}

type Holder struct {
	In    *Inner         `jcodec:"in"`
	Arr   [3]int         `jcodec:"arr"`
	Map   map[string]int `jcodec:"map"`
	Any   any            `jcodec:"any"`
	Obj   *ast.Object    `jcodec:"obj"`
	List  ast.Array      `jcodec:"list"`
	Value Inner          `jcodec:"value"`
}

func TestUnmarshalContainers(t *testing.T) {
	keep := &Inner{X: 1}
	h := Holder{In: keep, Map: map[string]int{"old": 0}}
	in := mustParseObject(t, `{
  "in": {"x": 2},
  "arr": [1, 2],
  "map": {"a": 1, "b": 2},
  "any": {"k": "v"},
  "obj": {"p": true},
  "list": [null],
  "value": {"x": 3}
}`)
	if err := marshal.Unmarshal(in, &h); err != nil {
		t.Fatalf("Unmarshal: unexpected error: %v", err)
	}
	if h.In != keep || keep.X != 2 {
		t.Errorf("In: got %p %+v, want the existing pointer updated", h.In, h.In)
	}
	if h.Arr != [3]int{1, 2, 0} {
		t.Errorf("Arr: got %v, want [1 2 0]", h.Arr)
	}
	if diff := cmp.Diff(map[string]int{"a": 1, "b": 2}, h.Map); diff != "" {
		t.Errorf("Map (-want, +got):\n%s", diff)
	}
	if !ast.Equal(h.Any.(ast.Value), ast.NewObject(ast.Field("k", "v"))) {
		t.Errorf("Any: got %#v", h.Any)
	}
	if !ast.Equal(h.Obj, ast.NewObject(ast.Field("p", true))) {
		t.Errorf("Obj: got %#v", h.Obj)
	}
	if !ast.Equal(h.List, ast.Array{ast.Null}) {
		t.Errorf("List: got %#v", h.List)
	}
	if h.Value.X != 3 {
		t.Errorf("Value: got %+v, want x=3", h.Value)
	}

	// A fixed array takes only as many elements as it has room for.
	if err := marshal.Unmarshal(mustParseObject(t, `{"arr": [7, 8, 9, 10]}`), &h); err != nil {
		t.Fatalf("Unmarshal: unexpected error: %v", err)
	}
	if h.Arr != [3]int{7, 8, 9} {
		t.Errorf("Arr: got %v, want [7 8 9]", h.Arr)
	}

	// A fresh record allocates its pointer fields.
	var fresh Holder
	if err := marshal.Unmarshal(mustParseObject(t, `{"in": {"x": 5}}`), &fresh); err != nil {
		t.Fatalf("Unmarshal: unexpected error: %v", err)
	}
	if fresh.In == nil || fresh.In.X != 5 {
		t.Errorf("In: got %+v, want x=5", fresh.In)
	}

	for _, bad := range []string{`{"obj": [1]}`, `{"list": {}}`, `{"value": 1}`, `{"map": {"a": "b"}}`} {
		var h Holder
		if err := marshal.Unmarshal(mustParseObject(t, bad), &h); err == nil {
			t.Errorf("Unmarshal %#q: got nil, want error", bad)
		}
	}
}

func TestUnmarshalValue(t *testing.T) {
	var xs []int
	if err := marshal.UnmarshalValue(mustParse(t, "[1,3,5]"), &xs); err != nil {
		t.Fatalf("UnmarshalValue: unexpected error: %v", err)
	}
	if diff := cmp.Diff([]int{1, 3, 5}, xs); diff != "" {
		t.Errorf("UnmarshalValue (-want, +got):\n%s", diff)
	}

	var s string
	if err := marshal.UnmarshalValue(ast.String("ok"), &s); err != nil || s != "ok" {
		t.Errorf("UnmarshalValue string: got %q, %v; want ok, nil", s, err)
	}

	var m map[string][]bool
	if err := marshal.UnmarshalValue(mustParse(t, `{"a":[true],"b":[]}`), &m); err != nil {
		t.Fatalf("UnmarshalValue: unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[string][]bool{"a": {true}, "b": {}}, m); diff != "" {
		t.Errorf("UnmarshalValue (-want, +got):\n%s", diff)
	}

	for _, dst := range []any{nil, xs, (*[]int)(nil), 5} {
		if err := marshal.UnmarshalValue(ast.Array{}, dst); err == nil {
			t.Errorf("UnmarshalValue into %T: got nil, want error", dst)
		}
	}
	if err := marshal.Unmarshal(ast.NewObject(), &xs); err == nil {
		t.Error("Unmarshal into a slice: got nil, want error")
	}
	if err := marshal.Unmarshal(nil, &Inner{}); err == nil {
		t.Error("Unmarshal from nil: got nil, want error")
	}
}

type Shape interface{ Area() float64 }

type Circle struct {
	R float64 `jcodec:"r"`
}

func (c *Circle) Area() float64 { return math.Pi * c.R * c.R }

type Square struct {
	S float64 `jcodec:"s"`
}

func (s Square) Area() float64 { return s.S * s.S }

type Drawing struct {
	Main  Shape   `jcodec:"main,any"`
	Plain Shape   `jcodec:"plain,optional"`
	All   []Shape `jcodec:"all,any"`
}

func TestPolymorphic(t *testing.T) {
	d := Drawing{
		Main:  &Circle{R: 1.5},
		Plain: Square{S: 2},
		All:   []Shape{Square{S: 1}, &Circle{R: 2}},
	}
	got, err := marshal.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: unexpected error: %v", err)
	}
	want := mustParse(t, `{"main": {"r": 1.5}, "plain": {}, "all": [{"s": 1.0}, {"r": 2.0}]}`)
	if !ast.Equal(got, want) {
		t.Errorf("Marshal: got %#v, want %#v", got, want)
	}

	primary := &Circle{}
	last := &Circle{}
	dst := Drawing{Main: primary, All: []Shape{Square{}, last}}
	in := mustParseObject(t, `{"main": {"r": 3.5}, "all": [{"s": 4}, {"r": 5}]}`)
	if err := marshal.Unmarshal(in, &dst); err != nil {
		t.Fatalf("Unmarshal: unexpected error: %v", err)
	}
	if dst.Main != Shape(primary) || primary.R != 3.5 {
		t.Errorf("Main: got %#v, want the existing circle with r=3.5", dst.Main)
	}
	if sq, ok := dst.All[0].(Square); !ok || sq.S != 4 {
		t.Errorf("All[0]: got %#v, want Square{S: 4}", dst.All[0])
	}
	if dst.All[1] != Shape(last) || last.R != 5 {
		t.Errorf("All[1]: got %#v, want the existing circle with r=5", dst.All[1])
	}

	// Without the polymorphic policy, an interface cannot be decoded.
	err = marshal.Unmarshal(mustParseObject(t, `{"plain": {"s": 1}}`), &dst)
	var me *marshal.MappingError
	if !errors.As(err, &me) {
		t.Fatalf("Unmarshal: got %v, want *MappingError", err)
	}
	if me.Field != "Plain" || me.Record != reflect.TypeFor[Drawing]() || me.FieldType != reflect.TypeFor[Shape]() {
		t.Errorf("MappingError: got %s.%s (%v)", me.Record, me.Field, me.FieldType)
	}
}

type Node struct {
	Name string `jcodec:"name"`
	Next *Node  `jcodec:"next,optional"`
}

func TestCycles(t *testing.T) {
	loop := &Node{Name: "a"}
	loop.Next = &Node{Name: "b", Next: loop}
	_, err := marshal.Marshal(loop)
	var ce *marshal.CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("Marshal: got %v, want *CycleError", err)
	}
	if ce.Type != reflect.TypeFor[*Node]() {
		t.Errorf("CycleError type: got %v, want *Node", ce.Type)
	}

	// Shared but acyclic references are fine.
	shared := &Node{Name: "shared"}
	pair := []*Node{shared, shared}
	if _, err := marshal.MarshalValue(pair); err != nil {
		t.Errorf("MarshalValue: unexpected error: %v", err)
	}
}

func TestMaxDepth(t *testing.T) {
	m := marshal.Marshaller{MaxDepth: 2}
	if _, err := m.MarshalValue([][]int{{1}}); err != nil {
		t.Errorf("MarshalValue: unexpected error: %v", err)
	}
	if _, err := m.MarshalValue([][][]int{{{1}}}); !errors.Is(err, marshal.ErrTooDeep) {
		t.Errorf("MarshalValue: got %v, want %v", err, marshal.ErrTooDeep)
	}
	var out [][][]int
	if err := m.UnmarshalValue(mustParse(t, "[[[1]]]"), &out); !errors.Is(err, marshal.ErrTooDeep) {
		t.Errorf("UnmarshalValue: got %v, want %v", err, marshal.ErrTooDeep)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	m := marshal.Marshaller{Logger: log.NewLogfmtLogger(&buf)}

	var r Record
	if err := m.Unmarshal(mustParseObject(t, `{"b": 1, "extra": true}`), &r); err != nil {
		t.Fatalf("Unmarshal: unexpected error: %v", err)
	}
	out := buf.String()
	t.Logf("Log output: %s", out)
	if !strings.Contains(out, "level=debug") || !strings.Contains(out, "key=extra") {
		t.Errorf("Log output missing the unmatched key: %q", out)
	}
	if strings.Contains(out, "key=b") {
		t.Errorf("Log output includes a matched key: %q", out)
	}
}

func TestBadDescriptors(t *testing.T) {
	type badPresent struct {
		F int `jcodec:"f,present"`
	}
	type badOption struct {
		F int `jcodec:"f,bogus"`
	}
	type badCatchAll struct {
		__data map[string]any
	}
	type dupKeys struct {
		A int `jcodec:"k"`
		B int `jcodec:"k"`
	}
	for _, v := range []any{
		badPresent{F: 1},
		badOption{F: 1},
		badCatchAll{__data: nil},
		dupKeys{A: 1, B: 2},
	} {
		_, err := marshal.MarshalValue(v)
		var me *marshal.MappingError
		if !errors.As(err, &me) {
			t.Errorf("MarshalValue(%T): got %v, want *MappingError", v, err)
		} else {
			t.Logf("MarshalValue(%T): %v", v, err)
		}
	}
}

type Profile struct {
	Name   string         `jcodec:"name" fake:"{name}"`
	Email  string         `jcodec:"email,optional" fake:"{email}"`
	Age    int32          `jcodec:"age"`
	Score  float64        `jcodec:"score"`
	Ratio  float32        `jcodec:"ratio"`
	Active bool           `jcodec:"active"`
	Level  uint8          `jcodec:"level"`
	Tags   []string       `jcodec:"tags" fakesize:"3"`
	Counts map[string]int `jcodec:"counts" fakesize:"2"`
	Child  *Child         `jcodec:"child,optional"`
}

type Child struct {
	Word string `fake:"{word}"`
	N    int64
}

func TestRoundTrip(t *testing.T) {
	f := gofakeit.New(20231105)
	for i := range 25 {
		var in Profile
		if err := f.Struct(&in); err != nil {
			t.Fatalf("Generate %d: %v", i, err)
		}

		var buf bytes.Buffer
		if err := jcodec.WriteRecord(&buf, &in, ""); err != nil {
			t.Fatalf("WriteRecord %d: unexpected error: %v", i, err)
		}
		var out Profile
		if err := jcodec.ReadRecord(&buf, &out); err != nil {
			t.Fatalf("ReadRecord %d: unexpected error: %v", i, err)
		}
		if diff := cmp.Diff(in, out); diff != "" {
			t.Errorf("Round trip %d (-want, +got):\n%s", i, diff)
		}
	}
}
