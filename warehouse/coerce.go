package warehouse

import (
	"sort"
	"strings"

	"github.com/relloyd/obspipe/logger"
	"github.com/relloyd/obspipe/metrics"
	"github.com/relloyd/obspipe/schema"
	"github.com/relloyd/obspipe/stream"
)

// CoercionOutcome records one field that could not be converted to its column type.
// Value holds the raw field; the row is loaded with NULL in its place.
type CoercionOutcome struct {
	Table  string
	Row    int
	Column string
	Value  interface{}
	Err    error
}

// TypedRecords are records converted to the column order and types of a table.
type TypedRecords struct {
	Schema       schema.TableSchema
	Rows         [][]interface{}
	Outcomes     []CoercionOutcome
	NullRequired map[string]int // rows loaded with NULL in a column that is not nullable, by column.
}

// Len returns the number of rows.
func (t *TypedRecords) Len() int {
	return len(t.Rows)
}

// Coerce converts each record field to the logical type declared for table.
// Fields missing from a record become nil; fields not in the schema are dropped.
// A field that fails to convert is logged, recorded in Outcomes and loaded as NULL so the
// rest of the row still loads.
// NULLs in columns that are not nullable are counted in NullRequired.
// It returns schema.SchemaNotFoundError for an unknown table.
func Coerce(log logger.Logger, records []stream.Record, table string) (*TypedRecords, error) {
	s, err := schema.SchemaFor(table)
	if err != nil {
		return nil, err
	}
	retval := &TypedRecords{Schema: s, Rows: make([][]interface{}, 0, len(records)), NullRequired: make(map[string]int)}
	dropped := make(map[string]bool)
	for idx, rec := range records {
		for _, k := range rec.GetSortedDataMapKeys() {
			if _, ok := s.Column(k); !ok {
				dropped[k] = true
			}
		}
		row := make([]interface{}, len(s.Columns))
		for colIdx, col := range s.Columns {
			raw, ok := rec.LookupData(col.Name)
			if !ok || raw == nil {
				if !col.Nullable {
					retval.NullRequired[col.Name]++
				}
				continue
			}
			v, err := schema.Convert(raw, col.Type)
			if err != nil {
				log.Warn("could not convert column ", col.Name, " of table ", table, " row ", idx, " to ", col.Type, ": ", err)
				metrics.CoercionFailuresTotal.WithLabelValues(table, col.Name).Inc()
				retval.Outcomes = append(retval.Outcomes, CoercionOutcome{Table: table, Row: idx, Column: col.Name, Value: raw, Err: err})
				v = nil
				if !col.Nullable {
					retval.NullRequired[col.Name]++
				}
			}
			row[colIdx] = v
		}
		retval.Rows = append(retval.Rows, row)
	}
	if len(dropped) > 0 {
		names := make([]string, 0, len(dropped))
		for k := range dropped {
			names = append(names, k)
		}
		sort.Strings(names)
		log.Debug("dropping fields not in table ", table, ": ", strings.Join(names, ", "))
	}
	for col, n := range retval.NullRequired {
		log.Debug(n, " rows of table ", table, " have no value for column ", col)
	}
	return retval, nil
}
