package shared

import (
	"fmt"

	om "github.com/cevaris/ordered_map"
	"github.com/relloyd/obspipe/logger"
)

// BindStyle is the bind variable syntax used by a database driver.
type BindStyle uint32

const (
	BindColonN   BindStyle = iota // :1, :2 (snowflake)
	BindQuestion                  // ?, ? (odbc)
	BindDollarN                   // $1, $2 (duckdb, netezza)
	BindAtPN                      // @p1, @p2 (sqlserver)
)

// Placeholder returns the bind variable for the 1-based position idx.
func (b BindStyle) Placeholder(idx int) string {
	switch b {
	case BindQuestion:
		return "?"
	case BindDollarN:
		return fmt.Sprintf("$%v", idx)
	case BindAtPN:
		return fmt.Sprintf("@p%v", idx)
	default:
		return fmt.Sprintf(":%v", idx)
	}
}

// DmlGeneratorTxtBatch generates multi-row INSERT statements using text bind variables.
// MaxBindValues of 0 means the database has no practical limit.
type DmlGeneratorTxtBatch struct {
	Bind          BindStyle
	MaxBindValues int
}

func (d *DmlGeneratorTxtBatch) GetMaxRowsPerBatch(numCols int, requested int) int {
	if requested < 1 {
		requested = 1
	}
	if d.MaxBindValues <= 0 || numCols <= 0 {
		return requested
	}
	max := d.MaxBindValues / numCols
	if max < 1 {
		max = 1
	}
	if requested > max {
		return max
	}
	return requested
}

type SqlStatementGeneratorConfig struct {
	Log             logger.Logger
	OutputSchema    string
	SchemaSeparator string
	OutputTable     string
	TargetCols      *om.OrderedMap // ordered map of: key = record field name; value = target table column name
}

type sqlCoreCfg struct {
	sqlStmt                string
	sqlStmtTemplate        string
	sqlValues              []interface{} // slice to hold data values for all rows in batch
	batchSize              int
	rowsInBatch            int
	previousNumRowsInBatch int
}
