package shared

import (
	"context"
)

// Connector abstracts all access to Go SQL functionality.
type Connector interface {
	// Go SQL entry points:
	Begin() (Transacter, error)
	BeginTx(ctx context.Context) (Transacter, error)
	Exec(query string, args ...interface{}) (Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error)
	PingContext(ctx context.Context) error
	Close()
	// Warehouse functionality:
	GetType() string
	GetDmlGenerator() DmlGenerator
}

type Transacter interface {
	Exec(query string, args ...interface{}) (Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error)
	Commit() error
	Rollback() error
}

type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

type DmlGenerator interface {
	NewInsertGenerator(cfg *SqlStatementGeneratorConfig) SqlStmtGenerator
	// GetMaxRowsPerBatch caps the requested rows per INSERT so the bind variable limit of the
	// target database is not exceeded for a table of numCols columns.
	GetMaxRowsPerBatch(numCols int, requested int) int
}

// SqlStmtGenerator is used as part of SqlStmtTxtBatcher.
type SqlStmtGenerator interface {
	GetStatement() string
}

// SqlStmtTxtBatcher is used to combine DML statements that affect individual records into one statement, aiming
// to improve performance and reduce network round trips.
type SqlStmtTxtBatcher interface {
	SqlStmtGenerator
	InitBatch(batchSize int)                             // reset variables and preallocate slices for the given batch size.
	AddValuesToBatch(values []interface{}) (bool, error) // add values to SQL statement.
	GetValues() []interface{}                            // get all values added to the batch so they can be supplied as args to exec the SQL returned by getStatement().
}

type ConnectionGetter interface {
	LoadConnection(name string) (ConnectionDetails, error)
}
