package schema

import (
	"fmt"
	"strings"

	"github.com/relloyd/obspipe/constants"
)

// Mapper converts logical column types into the data type of a target database.
type Mapper interface {
	Map(t LogicalType) (output string)
}

type dataTypeMap struct {
	mapTypes map[LogicalType]string
}

func (o dataTypeMap) Map(t LogicalType) string {
	v, ok := o.mapTypes[t]
	if !ok {
		panic(fmt.Sprintf("unsupported logical data type %v during conversion", t))
	}
	return v
}

type dataTypeLink struct {
	LogicalType    LogicalType
	TargetDataType string
}

func newDataTypeMapper(types []dataTypeLink) dataTypeMap {
	dtm := dataTypeMap{mapTypes: make(map[LogicalType]string)}
	for _, row := range types {
		dtm.mapTypes[row.LogicalType] = row.TargetDataType
	}
	return dtm
}

var SnowflakeDataTypeMapping = []dataTypeLink{
	{LogicalType: Integer, TargetDataType: "number(38,0)"},
	{LogicalType: Float, TargetDataType: "float"},
	{LogicalType: Boolean, TargetDataType: "boolean"},
	{LogicalType: String, TargetDataType: "varchar"},
	{LogicalType: Timestamp, TargetDataType: "timestamp_tz"},
}

var DuckDBDataTypeMapping = []dataTypeLink{
	{LogicalType: Integer, TargetDataType: "bigint"},
	{LogicalType: Float, TargetDataType: "double"},
	{LogicalType: Boolean, TargetDataType: "boolean"},
	{LogicalType: String, TargetDataType: "varchar"},
	{LogicalType: Timestamp, TargetDataType: "timestamptz"},
}

var NetezzaDataTypeMapping = []dataTypeLink{
	{LogicalType: Integer, TargetDataType: "bigint"},
	{LogicalType: Float, TargetDataType: "double precision"},
	{LogicalType: Boolean, TargetDataType: "boolean"},
	{LogicalType: String, TargetDataType: "nvarchar(16000)"},
	{LogicalType: Timestamp, TargetDataType: "timestamp"},
}

var SqlServerDataTypeMapping = []dataTypeLink{
	{LogicalType: Integer, TargetDataType: "bigint"},
	{LogicalType: Float, TargetDataType: "float"},
	{LogicalType: Boolean, TargetDataType: "bit"},
	{LogicalType: String, TargetDataType: "nvarchar(max)"},
	{LogicalType: Timestamp, TargetDataType: "datetimeoffset"},
}

// ddlConfigT holds the CREATE TABLE template and type mapper for one database type.
// Template tokens: <TABLE>, <COLUMNS>, <PARTITION>.
type ddlConfigT struct {
	template          string
	partitionTemplate string // used to render <PARTITION> when the table has a partition column.
	fnGetMapper       func() Mapper
}

type mapDdlConfigT map[string]ddlConfigT

var ddlConfig = mapDdlConfigT{
	constants.ConnectionTypeSnowflake: {
		template:          "create table if not exists <TABLE> (\n<COLUMNS>\n)<PARTITION>",
		partitionTemplate: " cluster by (to_date(<COLUMN>))",
		fnGetMapper:       func() Mapper { return newDataTypeMapper(SnowflakeDataTypeMapping) },
	},
	constants.ConnectionTypeDuckDB: {
		template:    "create table if not exists <TABLE> (\n<COLUMNS>\n)",
		fnGetMapper: func() Mapper { return newDataTypeMapper(DuckDBDataTypeMapping) },
	},
	constants.ConnectionTypeNetezza: {
		template:          "create table if not exists <TABLE> (\n<COLUMNS>\n)<PARTITION>",
		partitionTemplate: " organize on (<COLUMN>)",
		fnGetMapper:       func() Mapper { return newDataTypeMapper(NetezzaDataTypeMapping) },
	},
	constants.ConnectionTypeSqlServer: {
		template:    "if object_id('<TABLE>', 'U') is null create table <TABLE> (\n<COLUMNS>\n)",
		fnGetMapper: func() Mapper { return newDataTypeMapper(SqlServerDataTypeMapping) },
	},
	constants.ConnectionTypeMock: {
		template:    "create table if not exists <TABLE> (\n<COLUMNS>\n)",
		fnGetMapper: func() Mapper { return newDataTypeMapper(DuckDBDataTypeMapping) },
	},
}

// getRecord looks up the DDL config for databaseType. The prefix "odbc+" is trimmed first.
func (t mapDdlConfigT) getRecord(databaseType string) (ddlConfigT, error) {
	dt := strings.TrimPrefix(databaseType, "odbc+")
	k, ok := t[dt]
	if !ok {
		return ddlConfigT{}, fmt.Errorf("unable to find DDL config for database type %q", databaseType)
	}
	return k, nil
}

// GetMapper returns the type Mapper for the given connection type.
func GetMapper(databaseType string) (Mapper, error) {
	r, err := ddlConfig.getRecord(databaseType)
	if err != nil {
		return nil, err
	}
	return r.fnGetMapper(), nil
}

// CreateTableDDL renders idempotent CREATE TABLE DDL for s on the given database type.
// qualifiedTable is the [<schema>.]<table> name to create.
func CreateTableDDL(databaseType string, qualifiedTable string, s TableSchema) (string, error) {
	r, err := ddlConfig.getRecord(databaseType)
	if err != nil {
		return "", err
	}
	if len(s.Columns) == 0 {
		return "", fmt.Errorf("table %q has no columns", s.Name)
	}
	mapper := r.fnGetMapper()
	cols := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		cols = append(cols, fmt.Sprintf("  %v %v", c.Name, mapper.Map(c.Type)))
	}
	partition := ""
	if p := s.PartitionColumn(); p != "" && r.partitionTemplate != "" {
		partition = strings.Replace(r.partitionTemplate, "<COLUMN>", p, -1)
	}
	ddl := strings.Replace(r.template, "<TABLE>", qualifiedTable, -1)
	ddl = strings.Replace(ddl, "<COLUMNS>", strings.Join(cols, ",\n"), 1)
	ddl = strings.Replace(ddl, "<PARTITION>", partition, 1)
	return ddl, nil
}
