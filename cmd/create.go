package cmd

import (
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create warehouse objects",
	Long: `Create the following in the target warehouse:

- the observation summary table
- the six observation detail tables
`,
}

func init() {
	rootCmd.AddCommand(createCmd)
}
