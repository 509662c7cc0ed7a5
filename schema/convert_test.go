package schema

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestConversions(t *testing.T) {
	if i, err := ToInt64(json.Number("12.0")); err != nil || i != 12 {
		t.Fatalf("expected 12; got %v %v", i, err)
	}
	if _, err := ToInt64(json.Number("12.5")); err == nil {
		t.Fatal("expected an error for a fractional integer")
	}
	if _, err := ToInt64("abc"); err == nil {
		t.Fatal("expected an error for a non numeric string")
	}
	if b, err := ToBool(json.Number("1")); err != nil || !b {
		t.Fatal("expected 1 to be true")
	}
	if _, err := ToBool(json.Number("2")); err == nil {
		t.Fatal("expected an error for 2")
	}
	if f, err := ToFloat64("1.5"); err != nil || f != 1.5 {
		t.Fatalf("expected 1.5; got %v", f)
	}
	if _, err := ToTime("03/15/2024 02:05 PM"); err != nil {
		t.Fatal(err)
	}
	if _, err := ToTime("not a time"); err == nil {
		t.Fatal("expected an error for a bad timestamp")
	}
}

func TestConvert(t *testing.T) {
	cases := []struct {
		in       interface{}
		typ      LogicalType
		expected interface{}
	}{
		{json.Number("9007199254740993"), Integer, int64(9007199254740993)},
		{"7", Integer, int64(7)},
		{json.Number("1.25"), Float, 1.25},
		{"false", Boolean, false},
		{true, Boolean, true},
		{json.Number("10"), String, "10"},
		{map[string]interface{}{"a": "b"}, String, `{"a":"b"}`},
		{"2024-03-15T14:05:00Z", Timestamp, time.Date(2024, 3, 15, 14, 5, 0, 0, time.UTC)},
		{nil, Integer, nil},
	}
	for _, c := range cases {
		got, err := Convert(c.in, c.typ)
		if err != nil {
			t.Fatalf("unexpected error converting %v to %v: %v", c.in, c.typ, err)
		}
		if ts, ok := c.expected.(time.Time); ok {
			if !ts.Equal(got.(time.Time)) {
				t.Fatalf("expected %v; got %v", ts, got)
			}
			continue
		}
		if got != c.expected {
			t.Fatalf("converting %v to %v: expected %#v; got %#v", c.in, c.typ, c.expected, got)
		}
	}
	if _, err := Convert("x", Integer); err == nil {
		t.Fatal("expected an error converting a word to an integer")
	}
}
