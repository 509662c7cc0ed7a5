package cmd

import (
	"fmt"

	"github.com/relloyd/obspipe/config"
	"github.com/spf13/cobra"
)

var configConnCmd = &cobra.Command{
	Use:     "connections",
	Aliases: []string{"warehouse"},
	Short:   "Configure warehouse connection details",
	Long: fmt.Sprintf(`Configure warehouse connections named by the pipeline warehouse.connection setting where:

- Connections are stored in file %q`, config.Connections.FullPath),
}

func init() {
	configCmd.AddCommand(configConnCmd)
	initConnAdd()
	initConnList()
	initConnRemove()
}
