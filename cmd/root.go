package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"
)

var (
	// Default values may be set at compile time.
	version          = "0.1.0"
	buildDate        = "2026-01-02T03:04+0000"
	stackDumpOnPanic bool
)

var rootCmd = &cobra.Command{
	Use: "obspipe",
	Long: `
       _                _            
  ___ | |__  ___ _ __  (_)_ __   ___ 
 / _ \| '_ \/ __| '_ \ | | '_ \ / _ \
| (_) | |_) \__ \ |_) || | |_) |  __/
 \___/|_.__/|___/ .__/ |_| .__/ \___|
                |_|      |_|         

Obspipe copies JCR tracer observations into a data warehouse.
Each run refreshes the observation summary and then appends the observation
details of every licensed site, a few sites at a time. Run it from a scheduler,
as a Lambda function, or start the HTTP server and trigger runs with POST /run.`,
}

func init() {
	cobra.EnableCommandSorting = false
	rootCmd.PersistentFlags().BoolVar(&stackDumpOnPanic, "print-stack", false, "Print a stack dump if there is a panic")
	_ = rootCmd.PersistentFlags().MarkHidden("print-stack")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if twelveFactorMode { // if we are running based on environment variables...
		stackDumpOnPanic = envBool(os.Getenv(envVarStackDump))
		if lambdaMode {
			lambda.Start(func(ctx context.Context) error { return execute12FactorMode(ctx, twelveFactorActions) })
		} else {
			ctx, cancel := signalContext()
			err := execute12FactorMode(ctx, twelveFactorActions)
			cancel()
			if err != nil {
				// execute12FactorMode logs the error.
				os.Exit(1)
			}
		}
	} else {
		if err := rootCmd.Execute(); err != nil {
			// Execute() prints the error.
			os.Exit(1)
		}
	}
}

// signalContext is cancelled by SIGINT or SIGTERM so runs stop between batches.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
