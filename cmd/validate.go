package cmd

import (
	"os"

	"github.com/relloyd/obspipe/actions"
	"github.com/spf13/cobra"
)

var validateCfg = actions.ValidateConfig{}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the pipeline definition",
	Long: `Check the pipeline definition after applying environment variables and stored
credentials, then print the effective configuration with secrets hidden.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate()
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	switches.addFlag(validateCmd, &validateCfg.PipelineFile, "file", "", false, "")
	validateCmd.SilenceUsage = true
}

func runValidate() error {
	validateCfg.Connections = getConnectionLoader()
	validateCfg.Credentials = getCredentials()
	validateCfg.Output = os.Stdout
	return actions.RunValidate(&validateCfg)
}
