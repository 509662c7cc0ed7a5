package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/relloyd/obspipe/actions"
	"github.com/relloyd/obspipe/metrics"
	"github.com/relloyd/obspipe/pipeline"
	"github.com/spf13/cobra"
)

var runCfg = actions.RunConfig{}
var runOutput string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the observation pipeline once",
	Long: `Authenticate with the observation API, replace the observation summary table and then
append observation details for every site with an active license, in batches of sites.
The run report is printed to STDOUT and a status line to STDERR.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		return runPipeline(ctx)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().SortFlags = false
	switches.addFlag(runCmd, &runCfg.PipelineFile, "file", "", false, "")
	switches.addFlag(runCmd, &runCfg.SummaryOnly, "summary-only", "", false, "")
	switches.addFlag(runCmd, &runOutput, "output", "json", false, "")
	switches.addFlag(runCmd, &runCfg.LogLevel, "log-level", "", false, "")
	runCmd.SilenceUsage = true
}

func runPipeline(ctx context.Context) error {
	runCfg.Connections = getConnectionLoader()
	runCfg.Credentials = getCredentials()
	runCfg.StackDumpOnPanic = stackDumpOnPanic
	report, err := actions.RunPipeline(ctx, &runCfg)
	if report != nil {
		if werr := actions.WriteOutput(os.Stdout, report, runOutput); werr != nil {
			return werr
		}
		printRunStatus(os.Stderr, report)
	}
	return err
}

// printRunStatus writes a one line outcome of r to w.
func printRunStatus(w io.Writer, r *pipeline.RunReport) {
	status := color.New(color.FgGreen).Sprint(r.Status)
	if r.Status != metrics.StatusSuccess {
		status = color.New(color.FgRed).Sprint(r.Status)
	}
	failed := r.FailedBatches()
	batches := fmt.Sprintf("%d/%d", len(r.Batches)-failed, len(r.Batches))
	if failed > 0 {
		batches = color.New(color.FgYellow).Sprint(batches)
	}
	_, _ = fmt.Fprintf(w, "run %v %v: %v summary rows, %v eligible sites, batches loaded %v\n",
		r.RunID, status, r.SummaryRows, r.EligibleSites, batches)
}
