package cmd

import (
	"fmt"
	"os"

	"github.com/relloyd/obspipe/actions"
	"github.com/relloyd/obspipe/config"
	"github.com/spf13/cobra"
)

var apiAddCfg = actions.APIConfigureConfig{}

var configAPICmd = &cobra.Command{
	Use:   "api",
	Short: "Configure the observation API credentials",
	Long: fmt.Sprintf(`Configure the observation API base URL and login where:

- Credentials are stored in file %q
- Values in the pipeline definition or OP_ environment variables take priority`, config.Credentials.FullPath),
}

var configAPIAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Save the API base URL and login",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		apiAddCfg.ConfigFile = config.Credentials
		apiAddCfg.Output = os.Stdout
		return actions.RunAPIConfigure(&apiAddCfg)
	},
}

var configAPIShowCmd = &cobra.Command{
	Use:     "show",
	Aliases: []string{"list"},
	Short:   "Print the saved API credentials with the password hidden",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return actions.RunAPIShow(config.Credentials, os.Stdout)
	},
}

var configAPIRemoveCmd = &cobra.Command{
	Use:     "remove",
	Aliases: []string{"rm", "del", "delete"},
	Short:   "Remove the saved API credentials",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return actions.RunAPIRemove(config.Credentials, os.Stdout)
	},
}

func init() {
	configCmd.AddCommand(configAPICmd)
	configAPICmd.AddCommand(configAPIAddCmd, configAPIShowCmd, configAPIRemoveCmd)
	configAPIAddCmd.Flags().SortFlags = false
	switches.addFlag(configAPIAddCmd, &apiAddCfg.Credentials.BaseURL, "base-url", "", true, "")
	switches.addFlag(configAPIAddCmd, &apiAddCfg.Credentials.UserLogonID, "user-logon-id", "", true, "")
	switches.addFlag(configAPIAddCmd, &apiAddCfg.Credentials.Password, "password", "", true, "")
	switches.addFlag(configAPIAddCmd, &apiAddCfg.Force, "force", "", false, "")
	configAPIAddCmd.SilenceUsage = true
	configAPIShowCmd.SilenceUsage = true
	configAPIRemoveCmd.SilenceUsage = true
}
