package schema

import (
	"fmt"

	om "github.com/cevaris/ordered_map"
	"github.com/relloyd/obspipe/constants"
)

// LogicalType is the warehouse-neutral type of a column.
type LogicalType uint32

const (
	Integer LogicalType = iota + 1
	Float
	Boolean
	String
	Timestamp
)

func (t LogicalType) String() string {
	switch t {
	case Integer:
		return "INTEGER"
	case Float:
		return "FLOAT"
	case Boolean:
		return "BOOLEAN"
	case String:
		return "STRING"
	case Timestamp:
		return "TIMESTAMP"
	default:
		return fmt.Sprintf("LogicalType(%d)", uint32(t))
	}
}

// Column describes one typed column of a table.
// Nullable records whether the API may send null for the field. The DDL leaves every column
// nullable so rows with missing fields still load; the loader counts NULLs in other columns.
type Column struct {
	Name     string
	Type     LogicalType
	Nullable bool
}

// TableSchema is the fixed, ordered column list of a warehouse table.
type TableSchema struct {
	Name    string
	Columns []Column
}

// ColumnNames returns the column names in declaration order.
func (s TableSchema) ColumnNames() []string {
	retval := make([]string, len(s.Columns))
	for idx, c := range s.Columns {
		retval[idx] = c.Name
	}
	return retval
}

// ColumnMap returns an ordered map of record field name to table column name, for use by DML generators.
// Field and column names are the same for every registered table.
func (s TableSchema) ColumnMap() *om.OrderedMap {
	m := om.NewOrderedMap()
	for _, c := range s.Columns {
		m.Set(c.Name, c.Name)
	}
	return m
}

// Column returns the named column and whether it exists.
func (s TableSchema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// PartitionColumn returns the column used for day partitioning or clustering, or "" if the table has none.
func (s TableSchema) PartitionColumn() string {
	if c, ok := s.Column(constants.PartitionColumnName); ok && c.Type == Timestamp {
		return c.Name
	}
	return ""
}

// SchemaNotFoundError is returned when a table has no registered schema.
// It indicates a configuration defect rather than bad data.
type SchemaNotFoundError struct {
	Table string
}

func (e SchemaNotFoundError) Error() string {
	return fmt.Sprintf("schema not defined for table %q", e.Table)
}
