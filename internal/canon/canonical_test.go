package canon

import (
	"encoding/json"
	"testing"
)

func mustMarshal(t *testing.T, v any) string {
	t.Helper()
	b, err := Marshal(v)
	if err != nil {
		t.Fatalf("Marshal(%v): %v", v, err)
	}
	return string(b)
}

func TestMarshal_SortsKeysByUTF16CodeUnits(t *testing.T) {
	// U+1F600 encodes as the surrogate pair D83D DE00 in UTF-16, which
	// sorts before U+FB33 even though its UTF-8 bytes sort after.
	obj := Object{
		"דּ":     Int(1),
		"\U0001F600": Int(2),
	}
	got := mustMarshal(t, obj)
	want := `{"` + "\U0001F600" + `":2,"` + "דּ" + `":1}`
	if got != want {
		t.Errorf("got %s, want surrogate-pair key first: %s", got, want)
	}
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	got := mustMarshal(t, Object{"s": String(`<a href="x">&</a>`)})
	want := `{"s":"<a href=\"x\">&</a>"}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestMarshal_NFCNormalizesStrings(t *testing.T) {
	composed := "café"
	decomposed := "café"
	if mustMarshal(t, String(composed)) != mustMarshal(t, String(decomposed)) {
		t.Error("composed and decomposed forms marshaled differently")
	}
}

func TestMarshal_ControlCharacterEscapes(t *testing.T) {
	cases := map[string]string{
		"a\nb":     `"a\nb"`,
		"a\tb":     `"a\tb"`,
		"a\x01b":   `"a\u0001b"`,
		"a\u2028b": "\"a\u2028b\"", // line separator is not escaped per RFC 8785
	}
	for in, want := range cases {
		if got := mustMarshal(t, String(in)); got != want {
			t.Errorf("Marshal(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestMarshal_RejectsFloatsAndNull(t *testing.T) {
	if _, err := Marshal(3.14); err == nil {
		t.Error("float accepted")
	}
	if _, err := Marshal(nil); err == nil {
		t.Error("nil accepted")
	}
	if _, err := Marshal(Object{"x": Null{}}); err == nil {
		t.Error("null value accepted")
	}
	if _, err := Marshal(map[string]any{"x": 1.5}); err == nil {
		t.Error("float inside map accepted")
	}
}

func TestMarshal_GoPrimitives(t *testing.T) {
	got := mustMarshal(t, map[string]any{"n": 42, "b": true, "s": "x"})
	want := `{"b":true,"n":42,"s":"x"}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestParse_StrictValidation(t *testing.T) {
	v, err := Parse([]byte(`{"a": 1, "b": [true, "x"]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	obj, ok := v.(Object)
	if !ok || obj["a"] != Int(1) {
		t.Errorf("parsed value = %#v", v)
	}

	if _, err := Parse([]byte(`{"a": 1.5}`)); err == nil {
		t.Error("float accepted")
	}
	if _, err := Parse([]byte(`{"a": null}`)); err == nil {
		t.Error("null accepted")
	}
	if _, err := Parse([]byte(`{"a": 1e3}`)); err == nil {
		t.Error("exponent accepted")
	}
}

func TestObject_JSONRoundTrip(t *testing.T) {
	src := Object{
		"id":     String("clip-1"),
		"frames": Int(90),
		"nested": Object{"enabled": Bool(true)},
		"list":   Array{Int(1), Int(2)},
	}
	data, err := json.Marshal(src)
	if err != nil {
		t.Fatal(err)
	}
	var back Object
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	d1, _ := Marshal(src)
	d2, _ := Marshal(back)
	if string(d1) != string(d2) {
		t.Errorf("round trip changed canonical form: %s vs %s", d1, d2)
	}
}
