package cmd

import (
	"fmt"

	"github.com/relloyd/obspipe/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure API credentials, warehouse connections and default flag values",
	Long: fmt.Sprintf(`Configure API credentials, warehouse connections & default parameters where:

- API credentials are stored in file %q
- Connections are stored in file %q
- Default flag values are stored in file %q

All files are encrypted using the key in environment variable OP_CONFIG_KEY, if set.
`, config.Credentials.FullPath, config.Connections.FullPath, config.Main.FullPath),
}

func init() {
	rootCmd.AddCommand(configCmd)
}
