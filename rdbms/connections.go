package rdbms

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/IBM/nzgo/v12"
	_ "github.com/denisenkom/go-mssqldb"
	"github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/logger"
	"github.com/relloyd/obspipe/rdbms/shared"
	"github.com/xo/dburl"
)

// sqlServerMaxBindValues is the parameter limit of a single SQL Server statement less some headroom.
const sqlServerMaxBindValues = 2000

// supportedDsnConnectionTypes is a map where keys are the supported connections based on values in module constants.
// Snowflake, DuckDB and Netezza connections are handled explicitly so do not need to be here.
var supportedDsnConnectionTypes = map[string]shared.BindStyle{
	constants.ConnectionTypeSqlServer:     shared.BindAtPN,
	constants.ConnectionTypeOdbcSqlServer: shared.BindQuestion,
}

// isSupportedConnection returns true if it can look up the supplied connection type t in map of supported
// connections supportedDsnConnectionTypes.
func isSupportedConnection(connectionType string) bool {
	_, ok := supportedDsnConnectionTypes[connectionType]
	return ok
}

// OpenDbConnection opens a database connection using the supplied ConnectionDetails struct in c.
func OpenDbConnection(log logger.Logger, c shared.ConnectionDetails) (db shared.Connector, err error) {
	log.Debug("opening connection type ", c.Type, " with logicalName ", c.LogicalName) // don't log password details in c.Data!
	switch c.Type {
	case constants.ConnectionTypeSnowflake:
		db, err = newSnowflakeConnection(log, shared.GetDsnConnectionDetails(&c))
	case constants.ConnectionTypeDuckDB:
		db, err = newDuckDBConnection(log, shared.GetDsnConnectionDetails(&c))
	case constants.ConnectionTypeNetezza:
		db, err = newNetezzaConnection(log, shared.GetDsnConnectionDetails(&c))
	case constants.ConnectionTypeMock:
		db = shared.NewMockConnectionWithMockTx(log, constants.ConnectionTypeMock)
	default: // else if connection is ODBC or generic DSN...
		if !isSupportedConnection(c.Type) { // if the connection type is not supported...
			return nil, fmt.Errorf("unsupported database type, %q", c.Type)
		}
		if strings.HasPrefix(c.Type, constants.ConnectionTypeOdbc+"+") {
			db, err = NewOdbcConnection(log, shared.GetDsnConnectionDetails(&c))
		} else {
			db, err = newConnectionWithDsn(log, shared.GetDsnConnectionDetails(&c), supportedDsnConnectionTypes[c.Type])
		}
	}
	return
}

// ConnectionTypeFromDsn derives the connection type from the scheme of dsn.
// A bare file path, or a path with suffix .duckdb, is treated as a DuckDB database.
func ConnectionTypeFromDsn(dsn string) (string, error) {
	switch {
	case strings.HasPrefix(dsn, constants.ConnectionTypeSnowflake+"://"):
		return constants.ConnectionTypeSnowflake, nil
	case strings.HasPrefix(dsn, constants.ConnectionTypeNetezza+"://"):
		return constants.ConnectionTypeNetezza, nil
	case strings.HasPrefix(dsn, constants.ConnectionTypeDuckDB+"://"), strings.HasSuffix(dsn, ".duckdb"), dsn == ":memory:":
		return constants.ConnectionTypeDuckDB, nil
	case strings.HasPrefix(dsn, constants.ConnectionTypeMock+"://"):
		return constants.ConnectionTypeMock, nil
	}
	d := shared.DsnConnectionDetails{Dsn: dsn}
	scheme, err := d.GetScheme()
	if err != nil {
		return "", err
	}
	if !isSupportedConnection(scheme) {
		return "", fmt.Errorf("unsupported database type, %q", scheme)
	}
	return scheme, nil
}

func newConnectionWithDsn(log logger.Logger, d *shared.DsnConnectionDetails, bind shared.BindStyle) (shared.Connector, error) {
	log.Info("Opening database connection: ", d)
	u, err := dburl.Parse(d.Dsn)
	if err != nil { // if the DSN could not be parsed...
		return nil, fmt.Errorf("error parsing DSN %q: %w", d, err)
	}
	// Create the new Connector.
	conn := &shared.HpConnection{
		Dml:    &shared.DmlGeneratorTxtBatch{Bind: bind, MaxBindValues: sqlServerMaxBindValues},
		DbType: u.OriginalScheme,
	}
	// Open the connection.
	conn.DbSql, err = sql.Open(u.Driver, u.DSN)
	if err != nil {
		return nil, err
	}
	// Test the connection.
	if err = conn.DbSql.PingContext(context.Background()); err != nil {
		_ = conn.DbSql.Close()
		return nil, err
	}
	log.Info("Successful connection to: ", d)
	return conn, nil
}
