package rdbms

import (
	"regexp"
	"strings"
)

var (
	reQuotedDotTable   = regexp.MustCompile(`^".+\..+"$`) // "random.table"
	reQuotedSchemaDots = regexp.MustCompile(`".+"\.".+"`) // "schema"."table"
)

// SchemaTable is a table name qualified by an optional schema, [<schema>.]<table>.
// Either part may be double quoted.
type SchemaTable struct {
	SchemaTable string `errorTxt:"[<schema>.]<object>" mandatory:"yes"`
}

// NewSchemaTable qualifies table with schema, or returns the bare table when schema is empty.
func NewSchemaTable(schema string, table string) SchemaTable {
	if schema == "" {
		return SchemaTable{table}
	}
	return SchemaTable{schema + "." + table}
}

// isQuotedTable is true for a quoted "random.table" that is not a regular "schema"."table".
func (st SchemaTable) isQuotedTable() bool {
	return reQuotedDotTable.MatchString(st.SchemaTable) && !reQuotedSchemaDots.MatchString(st.SchemaTable)
}

func (st SchemaTable) split() (schema string, table string) {
	if st.isQuotedTable() {
		return "", st.SchemaTable
	}
	i := strings.Index(st.SchemaTable, ".")
	if i < 0 {
		return "", st.SchemaTable
	}
	return st.SchemaTable[:i], st.SchemaTable[i+1:]
}

func (st SchemaTable) GetTable() string {
	_, t := st.split()
	return t
}

func (st SchemaTable) GetSchema() string {
	s, _ := st.split()
	return s
}

func (st SchemaTable) String() string {
	return st.SchemaTable
}
