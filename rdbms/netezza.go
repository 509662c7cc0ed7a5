package rdbms

import (
	"database/sql"

	"github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/logger"
	"github.com/relloyd/obspipe/rdbms/shared"
)

// newNetezzaConnection opens the Netezza database connection specified in d.
func newNetezzaConnection(log logger.Logger, d *shared.DsnConnectionDetails) (shared.Connector, error) {
	conn := &shared.HpConnection{
		Dml:    &shared.DmlGeneratorTxtBatch{Bind: shared.BindDollarN},
		DbType: constants.ConnectionTypeNetezza,
	}
	var err error
	var dsn string
	n := shared.NetezzaConnectionDetails{Dsn: d.Dsn}
	if dsn, err = n.GetNzgoConnectionString(); err != nil {
		return nil, err
	}
	if conn.DbSql, err = sql.Open("nzgo", dsn); err != nil {
		return nil, err
	}
	if err = conn.DbSql.Ping(); err != nil {
		_ = conn.DbSql.Close()
		return nil, err
	}
	log.Info("Successful database connection to Netezza.")
	return conn, nil
}
