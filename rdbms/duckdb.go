package rdbms

import (
	"database/sql"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/logger"
	"github.com/relloyd/obspipe/rdbms/shared"
)

// DuckDBPathFromDsn strips an optional duckdb:// prefix to leave the database file path.
// An empty path opens an in-memory database.
func DuckDBPathFromDsn(dsn string) string {
	return strings.TrimPrefix(dsn, constants.ConnectionTypeDuckDB+"://")
}

// newDuckDBConnection opens the local DuckDB database file specified in d.
func newDuckDBConnection(log logger.Logger, d *shared.DsnConnectionDetails) (shared.Connector, error) {
	path := DuckDBPathFromDsn(d.Dsn)
	if path == ":memory:" {
		path = ""
	}
	conn := &shared.HpConnection{
		Dml:    &shared.DmlGeneratorTxtBatch{Bind: shared.BindDollarN},
		DbType: constants.ConnectionTypeDuckDB,
	}
	var err error
	if conn.DbSql, err = sql.Open("duckdb", path); err != nil {
		return nil, err
	}
	if err = conn.DbSql.Ping(); err != nil {
		_ = conn.DbSql.Close()
		return nil, err
	}
	log.Info("Successful database connection to DuckDB: ", d.Dsn)
	return conn, nil
}
