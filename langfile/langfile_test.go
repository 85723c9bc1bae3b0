package langfile

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseAndMarshal_PreservesOrder(t *testing.T) {
	data := []byte(`{
  "item.sword": "Sword",
  "a.lang.code": "en_us",
  "block.stone": "Stone"
}`)

	f, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	want := []string{"item.sword", "a.lang.code", "block.stone"}
	if got := f.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}

	out, err := f.Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	wantOut := "{\n" +
		"    \"item.sword\": \"Sword\",\n" +
		"    \"a.lang.code\": \"en_us\",\n" +
		"    \"block.stone\": \"Stone\"\n" +
		"}\n"
	if string(out) != wantOut {
		t.Fatalf("Marshal() =\n%s\nwant\n%s", out, wantOut)
	}
}

func TestMarshal_KeepsNonASCIIAndEscapes(t *testing.T) {
	f := New()
	f.Set("item.sword", "Меч")
	f.Set("tip", "Use <shift> & \"quotes\"\n")

	out, err := f.Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `"Меч"`) {
		t.Fatalf("non-ASCII text was escaped: %s", s)
	}
	if !strings.Contains(s, `"Use <shift> & \"quotes\"\n"`) {
		t.Fatalf("unexpected escaping: %s", s)
	}

	back, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse(Marshal()) error: %v", err)
	}
	if v, _ := back.Get("tip"); v != "Use <shift> & \"quotes\"\n" {
		t.Fatalf("round trip value = %q", v)
	}
}

func TestParse_DuplicateKeyKeepsFirstPositionLastValue(t *testing.T) {
	f, err := Parse([]byte(`{"a": "1", "b": "2", "a": "3"}`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got := f.Keys(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("Keys() = %v", got)
	}
	if v, _ := f.Get("a"); v != "3" {
		t.Fatalf("Get(a) = %q, want 3", v)
	}
}

func TestParse_BOMAndEmpty(t *testing.T) {
	f, err := Parse(append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{}`)...))
	if err != nil {
		t.Fatalf("Parse with BOM error: %v", err)
	}
	if f.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", f.Len())
	}
	out, _ := f.Marshal()
	if string(out) != "{}\n" {
		t.Fatalf("Marshal(empty) = %q", out)
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantKey string
	}{
		{name: "truncated", data: `{"broken":`, wantKey: "broken"},
		{name: "array root", data: `["a"]`},
		{name: "number value", data: `{"count": 3}`, wantKey: "count"},
		{name: "nested object", data: `{"nested": {"a": "b"}}`, wantKey: "nested"},
		{name: "trailing data", data: `{"a": "b"} {"c": "d"}`},
	}

	for _, tc := range tests {
		_, err := Parse([]byte(tc.data))
		var me *MalformedError
		if !errors.As(err, &me) {
			t.Fatalf("%s: error = %v, want *MalformedError", tc.name, err)
		}
		if me.Key != tc.wantKey {
			t.Fatalf("%s: Key = %q, want %q", tc.name, me.Key, tc.wantKey)
		}
	}
}

func TestClone_IsIndependent(t *testing.T) {
	f := New()
	f.Set("a", "1")
	c := f.Clone()
	c.Set("a", "2")
	c.Set("b", "3")

	if v, _ := f.Get("a"); v != "1" {
		t.Fatalf("original mutated: a = %q", v)
	}
	if f.Len() != 1 {
		t.Fatalf("original Len() = %d, want 1", f.Len())
	}
}
