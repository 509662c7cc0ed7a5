package actions

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/relloyd/obspipe/config"
	"github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/helper"
	"github.com/relloyd/obspipe/rdbms"
	"github.com/relloyd/obspipe/rdbms/shared"
)

type ConnectionConfig struct {
	ConfigFile  ConfigGetterSetter `errorTxt:"config file" mandatory:"yes"`
	LogicalName string             `errorTxt:"connection name" mandatory:"yes"`
	Dsn         string
	Snowflake   *rdbms.SnowflakeConnectionDetails // used to build the DSN when Dsn is empty.
	Force       bool
	Output      io.Writer
}

// RunConnectionAdd saves a warehouse connection. The type is derived from the DSN scheme.
// A Snowflake DSN is built from cfg.Snowflake when no DSN is supplied.
func RunConnectionAdd(cfg *ConnectionConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	if cfg.ConfigFile == nil {
		return errors.New("missing config file")
	}
	if strings.Contains(cfg.LogicalName, ".") {
		return fmt.Errorf("connection name %q cannot contain period characters", cfg.LogicalName)
	}
	switch {
	case cfg.Dsn != "" && cfg.Snowflake != nil:
		return errors.New("supply either a DSN or Snowflake connection details, not both")
	case cfg.Dsn == "" && cfg.Snowflake == nil:
		return errors.New("a DSN or Snowflake connection details are required")
	case cfg.Dsn == "":
		dsn, err := rdbms.SnowflakeGetDSN(cfg.Snowflake)
		if err != nil {
			return fmt.Errorf("unable to create connection: %w", err)
		}
		cfg.Dsn = dsn
		printf(cfg.Output, "Using Snowflake connection %v\n", cfg.Snowflake)
	}
	t, err := rdbms.ConnectionTypeFromDsn(cfg.Dsn)
	if err != nil {
		return fmt.Errorf("unable to create connection: %w", err)
	}
	if t == constants.ConnectionTypeSnowflake { // check the DSN can be rebuilt for the driver.
		if _, err = rdbms.SnowflakeParseDSN(cfg.Dsn); err != nil {
			return fmt.Errorf("unable to create connection: %w", err)
		}
	}
	connection := shared.ConnectionDetails{
		Type:        t,
		LogicalName: cfg.LogicalName,
		Data:        map[string]string{shared.DefaultDsnConnectionKeyNames.Dsn: cfg.Dsn},
	}
	existing := shared.ConnectionDetails{}
	err = cfg.ConfigFile.Get(cfg.LogicalName, &existing)
	if err == nil && !cfg.Force {
		return fmt.Errorf("connection %q exists, use force to update the connection or remove it first", cfg.LogicalName)
	} else if err != nil && !errors.As(err, &config.KeyNotFoundError{}) && !errors.As(err, &config.FileNotFoundError{}) {
		return err
	}
	if err = cfg.ConfigFile.Set(cfg.LogicalName, &connection); err != nil {
		return fmt.Errorf("error writing connections config file after adding: %w", err)
	}
	printf(cfg.Output, "Connection %q (%v) added\n", cfg.LogicalName, t)
	return nil
}

func RunConnectionRemove(cfg *ConnectionConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	if err := cfg.ConfigFile.Delete(cfg.LogicalName); err != nil {
		return fmt.Errorf("unable to delete connection %q from config: %w", cfg.LogicalName, err)
	}
	printf(cfg.Output, "Connection %q removed\n", cfg.LogicalName)
	return nil
}

// RunConnectionList prints every saved connection with passwords redacted.
func RunConnectionList(f ConfigGetterSetter, w io.Writer) error {
	keys, err := f.GetAllKeys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		conn := shared.ConnectionDetails{}
		if err := f.Get(k, &conn); err != nil {
			return err
		}
		printf(w, "%v:\n%v\n", k, conn)
	}
	return nil
}

func printf(w io.Writer, format string, a ...interface{}) {
	if w != nil {
		_, _ = fmt.Fprintf(w, format, a...)
	}
}
