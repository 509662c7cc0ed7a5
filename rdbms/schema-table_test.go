package rdbms

import (
	"testing"
)

func TestSchemaTable(t *testing.T) {
	cases := []struct {
		input  string
		schema string
		table  string
	}{
		{"jcr.programs", "jcr", "programs"},
		{`jcr."programs"`, "jcr", `"programs"`},
		{`"random.table"`, "", `"random.table"`},
		{`"jcr"."programs"`, `"jcr"`, `"programs"`},
		{`"jcr".programs`, `"jcr"`, "programs"},
		{"programs", "", "programs"},
	}
	for _, c := range cases {
		st := SchemaTable{SchemaTable: c.input}
		if got := st.GetSchema(); got != c.schema {
			t.Fatalf("input %v: expected schema = %q; got %q", c.input, c.schema, got)
		}
		if got := st.GetTable(); got != c.table {
			t.Fatalf("input %v: expected table = %q; got %q", c.input, c.table, got)
		}
		if got := st.String(); got != c.input {
			t.Fatalf("input %v: expected string = %q; got %q", c.input, c.input, got)
		}
	}
}

func TestNewSchemaTable(t *testing.T) {
	if got := NewSchemaTable("", "programs"); got.String() != "programs" {
		t.Fatalf("unexpected %v", got)
	}
	if got := NewSchemaTable("jcr", "programs"); got.String() != "jcr.programs" {
		t.Fatalf("unexpected %v", got)
	}
}
