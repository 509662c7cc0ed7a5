package cmd

import (
	"context"
	"os"

	"github.com/relloyd/obspipe/actions"
	"github.com/spf13/cobra"
)

var authCheckCfg = actions.AuthCheckConfig{}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Work with the observation API login",
}

var authCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the API credentials by logging in",
	Long: `Log in to the observation API using the credentials in the pipeline definition,
environment or credentials store, and print the session with the token hidden.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		return runAuthCheck(ctx)
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authCheckCmd)
	authCheckCmd.Flags().SortFlags = false
	switches.addFlag(authCheckCmd, &authCheckCfg.PipelineFile, "file", "", false, "")
	switches.addFlag(authCheckCmd, &authCheckCfg.LogLevel, "log-level", "", false, "")
	authCheckCmd.SilenceUsage = true
}

func runAuthCheck(ctx context.Context) error {
	authCheckCfg.Credentials = getCredentials()
	authCheckCfg.StackDumpOnPanic = stackDumpOnPanic
	authCheckCfg.Output = os.Stdout
	_, err := actions.RunAuthCheck(ctx, &authCheckCfg)
	return err
}
