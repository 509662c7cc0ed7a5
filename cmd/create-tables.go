package cmd

import (
	"context"
	"os"

	"github.com/relloyd/obspipe/actions"
	"github.com/spf13/cobra"
)

var createTablesCfg = actions.CreateTablesConfig{}

var createTablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Create any missing pipeline tables in the warehouse",
	Long: `Create any missing pipeline tables in the warehouse named by the pipeline definition.
Use --print to output the CREATE TABLE statements without executing them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		return runCreateTables(ctx)
	},
}

func init() {
	createCmd.AddCommand(createTablesCmd)
	createTablesCmd.Flags().SortFlags = false
	switches.addFlag(createTablesCmd, &createTablesCfg.PipelineFile, "file", "", false, "")
	switches.addFlag(createTablesCmd, &createTablesCfg.PrintOnly, "print", "", false, "")
	switches.addFlag(createTablesCmd, &createTablesCfg.LogLevel, "log-level", "", false, "")
	createTablesCmd.SilenceUsage = true
}

func runCreateTables(ctx context.Context) error {
	createTablesCfg.Connections = getConnectionLoader()
	createTablesCfg.Credentials = getCredentials()
	createTablesCfg.StackDumpOnPanic = stackDumpOnPanic
	createTablesCfg.Output = os.Stdout
	return actions.RunCreateTables(ctx, &createTablesCfg)
}
