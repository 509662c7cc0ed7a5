package cmd

import (
	"net"

	"github.com/relloyd/obspipe/actions"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a web service that runs the pipeline on request",
	Long: `Start a web service with the following routes:

POST /run               start a run; body {"summaryOnly": bool, "wait": bool} is optional
GET  /runs              list runs
GET  /runs/{runId}      show a run and its report
POST /runs/{runId}/stop cancel a run
GET  /health            health check
GET  /metrics           Prometheus metrics
POST /stop              stop the server`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		serveConfig.Connections = getConnectionLoader()
		serveConfig.Credentials = getCredentials()
		serveConfig.StackDumpOnPanic = stackDumpOnPanic
		return actions.RunWebServer(&serveConfig)
	},
}

var serveConfig = actions.WebServerConfig{
	LogLevel: "info",
	Scheme:   "http",
	Addr:     net.IP{0, 0, 0, 0},
	Port:     8080,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().SortFlags = false
	serveCmd.Flags().IPVarP(&serveConfig.Addr, "address", "a", net.IP{0, 0, 0, 0}, "Address to listen on")
	switches.addFlag(serveCmd, &serveConfig.Port, "port", "8080", false, "")
	switches.addFlag(serveCmd, &serveConfig.PipelineFile, "file", "", false, "")
	switches.addFlag(serveCmd, &serveConfig.LogLevel, "log-level", "info", false, "")
}
