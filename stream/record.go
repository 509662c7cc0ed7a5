package stream

import (
	"sort"
)

// Record is a loosely-typed row as decoded from an API payload: field name to raw value.
// Missing fields and JSON nulls are both possible, so callers should use LookupData when a field may be absent.
type Record struct {
	data map[string]interface{} // raw data values, which can represent null values as nil interfaces.
}

// NewRecord creates a new Record and returns it by value; the map inside is shared by copies.
func NewRecord() Record {
	return Record{
		data: make(map[string]interface{}),
	}
}

// NewRecordFromMap wraps m without copying it.
func NewRecordFromMap(m map[string]interface{}) Record {
	if m == nil {
		return NewRecord()
	}
	return Record{data: m}
}

// LookupData returns the value of name and whether it was present.
func (sr Record) LookupData(name string) (interface{}, bool) {
	val, ok := sr.data[name]
	return val, ok
}

// GetSortedDataMapKeys will return a slice of the keys found in map sr.data.
func (sr Record) GetSortedDataMapKeys() []string {
	retval := make([]string, 0, len(sr.data))
	for k := range sr.data {
		retval = append(retval, k)
	}
	sort.Strings(retval)
	return retval
}

// RecordsFromMaps wraps each map as a Record, preserving order.
func RecordsFromMaps(rows []map[string]interface{}) []Record {
	retval := make([]Record, 0, len(rows))
	for _, r := range rows {
		retval = append(retval, NewRecordFromMap(r))
	}
	return retval
}
