package cmd

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/relloyd/obspipe/config"
	"github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/metrics"
	"github.com/relloyd/obspipe/pipeline"
)

var results = map[string]int{}

func getMock12FactorExecutor(action string, err error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		results[action]++
		return err
	}
}

var mockTwelveFactorActions = map[string]twelveFactorAction{
	"run":        {runnerFunc: getMock12FactorExecutor("run", nil)},
	"auth-check": {runnerFunc: getMock12FactorExecutor("auth-check", errors.New("login failed"))},
}

func TestSetupTwelveFactorMode(t *testing.T) {
	defer setupTwelveFactorMode()
	t.Setenv(envVarTwelveFactorMode, "")
	setupTwelveFactorMode()
	if twelveFactorMode {
		t.Fatal("expected twelveFactorMode to be false; got true")
	}
	t.Setenv(envVarTwelveFactorMode, "1")
	setupTwelveFactorMode()
	if !twelveFactorMode || lambdaMode {
		t.Fatal("expected twelveFactorMode without lambdaMode")
	}
	t.Setenv(envVarTwelveFactorMode, "Lambda")
	setupTwelveFactorMode()
	if !twelveFactorMode || !lambdaMode {
		t.Fatal("expected twelveFactorMode and lambdaMode")
	}
	t.Setenv(envVarTwelveFactorMode, "")
}

func TestExecute12FactorMode(t *testing.T) {
	var osVars = map[string]string{
		"OP_LOG_LEVEL":     "error",
		"OP_FILE":          "/tmp/pipeline.yaml",
		"OP_PASSWORD":      "secret",
		"OP_WAREHOUSE_DSN": "/tmp/jcr.duckdb",
		"OP_STACK_DUMP":    "1",
	}
	for k, v := range osVars {
		t.Setenv(k, v)
	}
	ctx := context.Background()

	// Test 1 - an empty command runs the pipeline.
	t.Setenv("OP_COMMAND", "")
	if err := execute12FactorMode(ctx, mockTwelveFactorActions); err != nil {
		t.Fatalf("test 1 failed: expected nil error got error: %v", err)
	}
	if results["run"] != 1 {
		t.Fatalf("test 1 failed: expected run to be called once; got %v", results["run"])
	}

	// Test 2 - invalid command.
	t.Setenv("OP_COMMAND", "invalidCommand")
	if err := execute12FactorMode(ctx, mockTwelveFactorActions); err == nil {
		t.Fatal("test 2 failed, expected: error; got: nil")
	}

	// Test 3 - errors from the action are returned.
	t.Setenv("OP_COMMAND", "Auth-Check")
	if err := execute12FactorMode(ctx, mockTwelveFactorActions); err == nil || err.Error() != "login failed" {
		t.Fatalf("test 3 failed, expected: login failed; got: %v", err)
	}
	if results["auth-check"] != 1 {
		t.Fatal("test 3 failed: expected auth-check to be called")
	}

	// Test 4 - all twelveFactorVars are fetched from the environment.
	for k, expected := range osVars {
		if got := twelveFactorVars[k]; got != expected {
			t.Fatalf("expected %v = %v; got: %v", k, expected, got)
		}
	}

	// Test 5 - sensitive vars are set up.
	if _, sensitive := twelveFactorVarsSensitive[envVarPassword]; !sensitive {
		t.Fatal("expected envVarPassword to be registered in map twelveFactorVarsSensitive")
	}
}

func TestTwelveFactorActions(t *testing.T) {
	for _, k := range []string{"run", "create-tables", "auth-check", "validate"} {
		if _, ok := twelveFactorActions[k]; !ok {
			t.Fatalf("twelveFactorActions does not handle command %v", k)
		}
	}
}

func TestGetConnectionLoader(t *testing.T) {
	defer func() { twelveFactorMode = false }()
	// Test 1
	twelveFactorMode = true
	c := getConnectionLoader()
	tx := reflect.TypeOf(c)
	if tx != reflect.TypeOf(&TwelveFactorConnections{}) {
		t.Fatalf("TestGetConnectionLoader test 1 failed - expected: *cmd.TwelveFactorConnections; got: %v", tx.String())
	}
	if getCredentials() != nil {
		t.Fatal("expected no credentials store in twelve factor mode")
	}
	// Test 2
	twelveFactorMode = false
	c = getConnectionLoader()
	tx = reflect.TypeOf(c)
	if tx != reflect.TypeOf(config.Connections) {
		t.Fatalf("TestGetConnectionLoader test 2 failed - expected: config.Connections; got: %v", tx.String())
	}
}

func TestTwelveFactorConnectionsLoadConnection(t *testing.T) {
	tf := &TwelveFactorConnections{}
	t.Setenv("OP_WH_DSN", "/data/jcr.duckdb")
	got, err := tf.LoadConnection("wh")
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != constants.ConnectionTypeDuckDB || got.LogicalName != "wh" || got.Data["dsn"] != "/data/jcr.duckdb" {
		t.Fatalf("unexpected connection details: %+v", got)
	}
	if _, err = tf.LoadConnection("missing"); err == nil {
		t.Fatal("expected an error for a connection without a DSN variable")
	}
	t.Setenv("OP_BAD_DSN", "oracle://u:p@host/db")
	if _, err = tf.LoadConnection("bad"); err == nil {
		t.Fatal("expected an error for an unsupported DSN")
	}
}

func TestPrintRunStatus(t *testing.T) {
	r := &pipeline.RunReport{
		RunID:         "abc",
		Status:        metrics.StatusSuccess,
		SummaryRows:   3,
		EligibleSites: 2,
		Batches:       []pipeline.BatchReport{{Status: metrics.StatusSuccess}},
	}
	w := &bytes.Buffer{}
	printRunStatus(w, r)
	for _, s := range []string{"run abc", "3 summary rows", "2 eligible sites", "1/1"} {
		if !strings.Contains(w.String(), s) {
			t.Fatalf("expected %q in status line %q", s, w.String())
		}
	}
}
