package shared

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	h "github.com/relloyd/obspipe/helper"
)

// SqlInsertTxtBatch implements interface SqlStmtTxtBatcher
// and is able to generate INSERT statements with batches of rows supplied.
type SqlInsertTxtBatch struct {
	SqlStatementGeneratorConfig // mandatory to be populated.
	sqlCoreCfg
	ColList []string // list of columns extracted from SqlStatementGeneratorConfig.
	bind    BindStyle
}

// NewInsertGenerator creates a new SqlStmtGenerator that implements interface SqlStmtTxtBatcher.
func (d *DmlGeneratorTxtBatch) NewInsertGenerator(cfg *SqlStatementGeneratorConfig) SqlStmtGenerator {
	if err := FixSqlStatementGeneratorConfig(cfg); err != nil {
		cfg.Log.Panic(err)
	}
	cfg.Log.Debug("Creating NewInsertGenerator")
	o := &SqlInsertTxtBatch{SqlStatementGeneratorConfig: *cfg, bind: d.Bind}
	o.setupSqlStatement()
	return o
}

func (o *SqlInsertTxtBatch) setupSqlStatement() {
	// Build the list of column names.
	o.ColList = make([]string, o.TargetCols.Len())
	idx := 0
	h.OrderedMapValuesToStringSlice(o.Log, o.TargetCols, &o.ColList, &idx)
	// Populate the SQL template.
	o.sqlStmtTemplate = `insert into <SCHEMA><SEPARATOR><TABLE> (<TGT-COLS>) values <VALUES>`
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<SCHEMA>", o.OutputSchema, 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<SEPARATOR>", o.SchemaSeparator, 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TABLE>", o.OutputTable, 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TGT-COLS>", strings.Join(o.ColList, ","), 1)
	o.previousNumRowsInBatch = -1
	o.Log.Debug("setup INSERT generator with SQL (VALUES pending): ", o.sqlStmtTemplate)
}

func (o *SqlInsertTxtBatch) InitBatch(batchSize int) {
	o.batchSize = batchSize
	o.rowsInBatch = 0
	// Allocate a new buffer to hold all values (args) to exec.
	o.sqlValues = make([]interface{}, 0, o.batchSize*len(o.ColList)) // many values per row in a batch.
}

func (o *SqlInsertTxtBatch) AddValuesToBatch(values []interface{}) (batchIsFull bool, err error) {
	if o.rowsInBatch >= o.batchSize {
		err = errors.New("no more rows allowed in INSERT batch")
		batchIsFull = true
		return
	}
	if len(values) != len(o.ColList) {
		err = errors.New("the number of values supplied does not match the number of table columns")
		return
	}
	// Append values to buffer.
	o.sqlValues = append(o.sqlValues, values...)
	o.rowsInBatch++
	batchIsFull = o.rowsInBatch >= o.batchSize // caller should exec SQL when full.
	return
}

func (o *SqlInsertTxtBatch) GetValues() []interface{} {
	return o.sqlValues
}

// GetStatement returns INSERT SQL with bind variables for the rows added so far.
// The SQL is cached while the number of rows stays the same between batches.
func (o *SqlInsertTxtBatch) GetStatement() string {
	if o.previousNumRowsInBatch != o.rowsInBatch { // if we have a new row count and need to generate SQL...
		allRows := strings.Builder{}
		valIdx := 1
		for rowIdx := 0; rowIdx < o.rowsInBatch; rowIdx++ { // for each row...
			row := make([]string, len(o.ColList))
			for idy := range o.ColList { // for each field in the current row...
				row[idy] = o.bind.Placeholder(valIdx)
				valIdx++
			}
			if rowIdx > 0 {
				allRows.WriteString(",")
			}
			allRows.WriteString(fmt.Sprintf("( %v )", strings.Join(row, ",")))
		}
		o.sqlStmt = strings.Replace(o.sqlStmtTemplate, "<VALUES>", allRows.String(), 1)
		o.previousNumRowsInBatch = o.rowsInBatch
	}
	return o.sqlStmt
}
