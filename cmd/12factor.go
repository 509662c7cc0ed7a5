package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/relloyd/obspipe/actions"
	"github.com/relloyd/obspipe/config"
	c "github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/helper"
	"github.com/relloyd/obspipe/logger"
	"github.com/relloyd/obspipe/rdbms"
	"github.com/relloyd/obspipe/rdbms/shared"
)

// init will be called first due to the lexical order in which these functions are executed.
// This ensures the value of twelveFactorMode is set such that other init() functions that configure
// Cobra can do the job of processing all environment variables that would contain equivalent of the CLI flag
// structures used by the actions.
func init() {
	setupTwelveFactorMode()
}

// setupTwelveFactorMode will enable or disable 12 factor mode based on environment variable.
func setupTwelveFactorMode() {
	mode := os.Getenv(envVarTwelveFactorMode)
	if mode != "" {
		twelveFactorMode = true
		if strings.ToLower(mode) == "lambda" {
			lambdaMode = true
		}
	} else {
		twelveFactorMode = false // tests may have turned it on.
		lambdaMode = false
	}
}

const (
	envVarTwelveFactorMode = c.EnvVarPrefix + "_" + "12FACTOR_MODE"
	envVarCommand          = c.EnvVarPrefix + "_" + "COMMAND"
	envVarLogLevel         = c.EnvVarPrefix + "_" + "LOG_LEVEL"
	envVarStackDump        = c.EnvVarPrefix + "_" + "STACK_DUMP"
	envVarFile             = c.EnvVarPrefix + "_" + "FILE"
	envVarPassword         = c.EnvVarPrefix + "_" + "PASSWORD"
	envVarWarehouseDsn     = c.EnvVarPrefix + "_" + "WAREHOUSE_DSN"
)

var (
	twelveFactorMode bool // true if os env var envVarTwelveFactorMode is set
	lambdaMode       bool // true if envVarTwelveFactorMode is "lambda"
	twelveFactorVars = map[string]string{
		envVarCommand:      "",
		envVarLogLevel:     "",
		envVarStackDump:    "",
		envVarFile:         "",
		envVarPassword:     "",
		envVarWarehouseDsn: "",
	}
	twelveFactorVarsSensitive = map[string]string{
		envVarPassword:     "",
		envVarWarehouseDsn: "",
	}
)

type twelveFactorAction struct {
	runnerFunc func(ctx context.Context) error
}

var twelveFactorActions = map[string]twelveFactorAction{
	"run":           {runnerFunc: runPipeline},
	"create-tables": {runnerFunc: runCreateTables},
	"auth-check":    {runnerFunc: runAuthCheck},
	"validate":      {runnerFunc: func(ctx context.Context) error { return runValidate() }},
}

func getConnectionLoader() actions.ConnectionLoader {
	if twelveFactorMode {
		return &TwelveFactorConnections{}
	}
	return config.Connections
}

// getCredentials returns the credentials store, which is not used in twelveFactorMode
// since the API settings come from the environment.
func getCredentials() actions.ConfigGetter {
	if twelveFactorMode {
		return nil
	}
	return config.Credentials
}

func execute12FactorMode(ctx context.Context, acts map[string]twelveFactorAction) (err error) {
	logLevel := helper.ReadValueFromEnvWithDefault(envVarLogLevel, "info")
	log := logger.NewLogger(c.ServiceName, logLevel, stackDumpOnPanic)
	log.Info("Running in 12 Factor mode...")
	for k := range twelveFactorVars {
		twelveFactorVars[k] = os.Getenv(k)
		if _, sensitive := twelveFactorVarsSensitive[k]; !sensitive {
			log.Debug(k, "=", twelveFactorVars[k])
		} else {
			log.Debug(k, "=", "<obfuscated>")
		}
	}
	command := strings.ToLower(strings.TrimSpace(twelveFactorVars[envVarCommand]))
	if command == "" {
		command = "run"
	}
	a, ok := acts[command]
	if !ok {
		err = fmt.Errorf("invalid command %q in %v", command, envVarCommand)
		log.Error(err.Error())
		return
	}
	if err = a.runnerFunc(ctx); err != nil {
		log.Error("Error: ", err)
	}
	return err
}

type TwelveFactorConnections struct{} // implements interfaces in module, actions.

// LoadConnection reads the DSN for connectionName from environment variable OP_<CONNECTION_NAME>_DSN.
// This mimics loading connection details from the connections file.
func (t *TwelveFactorConnections) LoadConnection(connectionName string) (shared.ConnectionDetails, error) {
	kDsn := helper.GetDsnEnvVarName(connectionName)
	var vDsn string
	if err := helper.ReadValueFromEnv(kDsn, &vDsn); err != nil {
		return shared.ConnectionDetails{}, err
	}
	vType, err := rdbms.ConnectionTypeFromDsn(vDsn)
	if err != nil {
		return shared.ConnectionDetails{}, fmt.Errorf("invalid DSN in %v: %w", kDsn, err)
	}
	if vType == c.ConnectionTypeSnowflake {
		if _, err = rdbms.SnowflakeParseDSN(vDsn); err != nil {
			return shared.ConnectionDetails{}, fmt.Errorf("invalid DSN in %v: %w", kDsn, err)
		}
	}
	return shared.ConnectionDetails{
		Type:        vType,
		LogicalName: connectionName,
		Data:        shared.DsnConnectionDetails{Dsn: vDsn}.GetMap(nil),
	}, nil
}
