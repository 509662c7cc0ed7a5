package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information for obspipe",
	Long:  `Show version information for obspipe`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf(`obspipe
  Version:	%v
  Build date:	%v
`, version, buildDate)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
