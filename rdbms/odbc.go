package rdbms

import (
	"database/sql"
	"fmt"

	_ "github.com/alexbrainman/odbc"
	"github.com/relloyd/obspipe/logger"
	"github.com/relloyd/obspipe/rdbms/shared"
	"github.com/xo/dburl"
)

// NewOdbcConnection opens an ODBC connection described by a DSN of the form odbc+<driver>://...
func NewOdbcConnection(log logger.Logger, d *shared.DsnConnectionDetails) (shared.Connector, error) {
	log.Info("Opening ODBC database connection: ", d)
	u, err := dburl.Parse(d.Dsn)
	if err != nil { // if the DSN could not be parsed...
		return nil, fmt.Errorf("error parsing DSN %q: %w", d, err)
	}
	conn := &shared.HpConnection{
		Dml:    &shared.DmlGeneratorTxtBatch{Bind: shared.BindQuestion, MaxBindValues: sqlServerMaxBindValues},
		DbType: u.OriginalScheme,
	}
	conn.DbSql, err = sql.Open(u.Driver, u.DSN)
	if err != nil {
		return nil, err
	}
	if err = conn.DbSql.Ping(); err != nil {
		_ = conn.DbSql.Close()
		return nil, err
	}
	log.Info("Successful ODBC connection to: ", d)
	return conn, nil
}
