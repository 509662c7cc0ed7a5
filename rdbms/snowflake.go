package rdbms

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/helper"
	"github.com/relloyd/obspipe/logger"
	"github.com/relloyd/obspipe/rdbms/shared"
	sf "github.com/snowflakedb/gosnowflake"
)

const snowflakeScheme = constants.ConnectionTypeSnowflake + "://"

// SnowflakeConnectionDetails are the parts of a Snowflake DSN.
// Account may carry the region as <account>.<region>.
type SnowflakeConnectionDetails struct {
	Account   string `errorTxt:"Snowflake account" mandatory:"yes"`
	DBName    string `errorTxt:"Snowflake database" mandatory:"yes"`
	Schema    string `errorTxt:"Snowflake schema" mandatory:"yes"`
	User      string `errorTxt:"Snowflake user" mandatory:"yes"`
	Password  string `errorTxt:"Snowflake password" mandatory:"yes"`
	Warehouse string
	RoleName  string
}

func (d SnowflakeConnectionDetails) String() string {
	return fmt.Sprintf("%v:%v@%v/%v/%v?warehouse=%v&role=%v",
		d.User, "xxxxxxx", d.Account, d.DBName, d.Schema, d.Warehouse, d.RoleName)
}

// IsEmpty is true when no Snowflake settings have been supplied.
func (d SnowflakeConnectionDetails) IsEmpty() bool {
	return d == (SnowflakeConnectionDetails{})
}

// newSnowflakeConnection opens the Snowflake database connection specified in d.
func newSnowflakeConnection(log logger.Logger, d *shared.DsnConnectionDetails) (shared.Connector, error) {
	conn := &shared.HpConnection{
		Dml:    &shared.DmlGeneratorTxtBatch{Bind: shared.BindColonN},
		DbType: constants.ConnectionTypeSnowflake,
	}
	var err error
	conn.DbSql, err = sql.Open("snowflake", strings.TrimPrefix(d.Dsn, snowflakeScheme))
	if err != nil {
		return nil, err
	}
	if err = conn.DbSql.Ping(); err != nil {
		_ = conn.DbSql.Close()
		return nil, err
	}
	log.Info("Successful database connection to Snowflake.")
	return conn, nil
}

// SnowflakeGetDSN builds a snowflake:// DSN from c. All mandatory fields must be set.
func SnowflakeGetDSN(c *SnowflakeConnectionDetails) (string, error) {
	if err := helper.ValidateStructIsPopulated(c); err != nil {
		return "", err
	}
	cfg := &sf.Config{
		Account:   c.Account,
		Database:  c.DBName,
		Schema:    c.Schema,
		User:      c.User,
		Password:  c.Password,
		Warehouse: c.Warehouse,
		Role:      c.RoleName,
	}
	dsn, err := sf.DSN(cfg)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(dsn, snowflakeScheme) {
		dsn = snowflakeScheme + dsn
	}
	return dsn, nil
}

// SnowflakeParseDSN converts a snowflake:// DSN into its parts.
func SnowflakeParseDSN(d string) (*SnowflakeConnectionDetails, error) {
	if !strings.HasPrefix(d, snowflakeScheme) {
		return nil, errors.New("unsupported Snowflake DSN format")
	}
	cfg, err := sf.ParseDSN(strings.TrimPrefix(d, snowflakeScheme))
	if err != nil {
		return nil, err
	}
	retval := &SnowflakeConnectionDetails{
		User:      cfg.User,
		Password:  cfg.Password,
		Schema:    cfg.Schema,
		DBName:    cfg.Database,
		Account:   cfg.Account,
		RoleName:  cfg.Role,
		Warehouse: cfg.Warehouse,
	}
	if cfg.Region != "" && !strings.Contains(retval.Account, ".") {
		retval.Account = fmt.Sprintf("%v.%v", retval.Account, cfg.Region)
	}
	return retval, nil
}
