package cmd

import (
	"os"

	"github.com/relloyd/obspipe/actions"
	"github.com/relloyd/obspipe/config"
	"github.com/relloyd/obspipe/rdbms"
	"github.com/spf13/cobra"
)

var connAddCfg = actions.ConnectionConfig{}
var connAddSnowflake = rdbms.SnowflakeConnectionDetails{}

var configConnAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a warehouse connection",
	Long: `Add a logical warehouse connection. The connection type is taken from the DSN:
snowflake://, sqlserver://, odbc+sqlserver://, netezza://, or a DuckDB file path.
Instead of a DSN, a Snowflake connection can be given by its parts using the --snowflake-* flags.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		connAddCfg.ConfigFile = config.Connections
		connAddCfg.Output = os.Stdout
		if !connAddSnowflake.IsEmpty() {
			connAddCfg.Snowflake = &connAddSnowflake
		}
		return actions.RunConnectionAdd(&connAddCfg)
	},
}

func initConnAdd() {
	configConnCmd.AddCommand(configConnAddCmd)
	configConnAddCmd.Flags().SortFlags = false
	switches.addFlag(configConnAddCmd, &connAddCfg.LogicalName, "connection-name", "", true, "")
	switches.addFlag(configConnAddCmd, &connAddCfg.Dsn, "dsn", "", false, "")
	switches.addFlag(configConnAddCmd, &connAddSnowflake.Account, "snowflake-account", "", false, "")
	switches.addFlag(configConnAddCmd, &connAddSnowflake.DBName, "snowflake-database", "", false, "")
	switches.addFlag(configConnAddCmd, &connAddSnowflake.Schema, "snowflake-schema", "", false, "")
	switches.addFlag(configConnAddCmd, &connAddSnowflake.User, "snowflake-user", "", false, "")
	switches.addFlag(configConnAddCmd, &connAddSnowflake.Password, "snowflake-password", "", false, "")
	switches.addFlag(configConnAddCmd, &connAddSnowflake.Warehouse, "snowflake-warehouse", "", false, "")
	switches.addFlag(configConnAddCmd, &connAddSnowflake.RoleName, "snowflake-role", "", false, "")
	switches.addFlag(configConnAddCmd, &connAddCfg.Force, "force", "", false, "")
	configConnAddCmd.SilenceUsage = true
}
