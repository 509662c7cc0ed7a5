package cmd

import (
	"fmt"

	"github.com/relloyd/obspipe/config"
	"github.com/spf13/cobra"
)

var defaultCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Configure default values for command flags",
	Long: fmt.Sprintf(`Configure default values for command flags, where:

- Defaults are stored in config file %q
- Keys match the long flag name, e.g. "file" sets the default pipeline definition`, config.Main.FullPath),
}

func init() {
	configCmd.AddCommand(defaultCmd)
}
