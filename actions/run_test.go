package actions

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"testing"

	"github.com/relloyd/obspipe/config"
	"github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/logger"
	"github.com/relloyd/obspipe/metrics"
)

var testLog = logger.NewLogger("obspipe", "error", true)

func upstream(authStatus int) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(constants.ApiPathAuthenticate, func(w http.ResponseWriter, r *http.Request) {
		if authStatus != http.StatusOK {
			w.WriteHeader(authStatus)
			return
		}
		_, _ = w.Write([]byte(`{"token":"abc","user_id":"7"}`))
	})
	mux.HandleFunc(constants.ApiPathObservationSummary, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"observation_summary":[
			{"site_id":1,"hco_id":null,"program_id":2,"site_name":"A","program_name":"P","has_active_license":true,"observations_found":4,"updated_from":"2024-03-01T00:00:00","updated_thru":"2024-03-10T00:00:00"},
			{"site_id":2,"hco_id":11,"program_id":2,"site_name":"B","program_name":"P","has_active_license":false,"observations_found":0,"updated_from":"2024-03-01T00:00:00","updated_thru":"2024-03-10T00:00:00"}
		]}`))
	})
	mux.HandleFunc(constants.ApiPathObservationDetails, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"observation_notes":[{"question_id":1,"question_note_id":2,"observation_id":3,"question_note":"n","last_updated":"2024-03-12T09:30:00Z"}]}`))
	})
	return mux
}

// writePipelineFile saves a pipeline definition using baseURL and dsn and returns its path.
func writePipelineFile(t *testing.T, baseURL string, dsn string, extra string) string {
	t.Helper()
	f := path.Join(t.TempDir(), "pipeline.yaml")
	y := fmt.Sprintf(`environment: testing
api:
  baseUrl: %v
  userLogonId: user
  password: pw
warehouse:
  dsn: %q
  datasetId: jcr
batch:
  batchSize: 2
%v`, baseURL, dsn, extra)
	if err := ioutil.WriteFile(f, []byte(y), 0600); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestRunPipelineAgainstFakeUpstream(t *testing.T) {
	srv := httptest.NewServer(upstream(http.StatusOK))
	defer srv.Close()
	f := writePipelineFile(t, srv.URL, "mock://warehouse", "")
	report, err := RunPipeline(context.Background(), &RunConfig{LogLevel: "error", PipelineFile: f})
	if err != nil {
		t.Fatal(err)
	}
	if report.Status != metrics.StatusSuccess {
		t.Fatalf("expected success; got %v: %v", report.Status, report.Error)
	}
	if report.SummaryRows != 2 || report.EligibleSites != 1 || len(report.Batches) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.RunID == "" {
		t.Fatal("expected a generated run id")
	}
}

func TestRunPipelineSummaryOnly(t *testing.T) {
	srv := httptest.NewServer(upstream(http.StatusOK))
	defer srv.Close()
	f := writePipelineFile(t, srv.URL, "mock://warehouse", "")
	report, err := RunPipeline(context.Background(), &RunConfig{LogLevel: "error", PipelineFile: f, SummaryOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if report.SummaryRows != 2 || len(report.Batches) != 0 {
		t.Fatalf("expected the summary only; got %+v", report)
	}
}

func TestRunPipelineAuthFailure(t *testing.T) {
	srv := httptest.NewServer(upstream(http.StatusUnauthorized))
	defer srv.Close()
	f := writePipelineFile(t, srv.URL, "mock://warehouse", "")
	if _, err := RunPipeline(context.Background(), &RunConfig{LogLevel: "error", PipelineFile: f}); err == nil {
		t.Fatal("expected an authentication error")
	}
}

func TestRunPipelineInvalidConfig(t *testing.T) {
	f := writePipelineFile(t, "not a url", "mock://warehouse", "")
	if _, err := RunPipeline(context.Background(), &RunConfig{LogLevel: "error", PipelineFile: f}); err == nil {
		t.Fatal("expected a validation error")
	}
	if _, err := RunPipeline(context.Background(), nil); err == nil {
		t.Fatal("expected an error for a nil config")
	}
}

func TestLoadPipelineConfigCredentials(t *testing.T) {
	dir := t.TempDir()
	creds := config.NewFile(dir, "credentials.yaml")
	// A missing credentials file is not an error.
	pc, err := LoadPipelineConfig("", creds)
	if err != nil {
		t.Fatal(err)
	}
	if pc.API.BaseURL != "" {
		t.Fatalf("expected no base URL; got %q", pc.API.BaseURL)
	}
	if err = config.SaveAPICredentials(creds, config.APICredentials{BaseURL: "https://api.example.com", UserLogonID: "stored", Password: "pw"}); err != nil {
		t.Fatal(err)
	}
	f := path.Join(dir, "pipeline.yaml")
	if err = ioutil.WriteFile(f, []byte("api:\n  userLogonId: from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	pc, err = LoadPipelineConfig(f, creds)
	if err != nil {
		t.Fatal(err)
	}
	if pc.API.BaseURL != "https://api.example.com" || pc.API.Password != "pw" {
		t.Fatalf("expected stored credentials to fill the blanks; got %+v", pc.API)
	}
	if pc.API.UserLogonID != "from-file" {
		t.Fatalf("expected the file to win over stored credentials; got %v", pc.API.UserLogonID)
	}
}

func TestLogLevel(t *testing.T) {
	pc := config.NewPipelineConfig()
	if got := logLevel("", pc); got != defaultLogLevel {
		t.Fatalf("expected %v; got %v", defaultLogLevel, got)
	}
	pc.LogLevel = "debug"
	if got := logLevel("", pc); got != "debug" {
		t.Fatalf("expected debug; got %v", got)
	}
	if got := logLevel("warn", pc); got != "warn" {
		t.Fatalf("expected warn; got %v", got)
	}
}

func TestWriteOutput(t *testing.T) {
	v := map[string]int{"rows": 3}
	w := &bytes.Buffer{}
	if err := WriteOutput(w, v, "json"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(w.String(), `"rows": 3`) {
		t.Fatalf("unexpected json %q", w.String())
	}
	w.Reset()
	if err := WriteOutput(w, v, "yaml"); err != nil {
		t.Fatal(err)
	}
	if w.String() != "rows: 3\n" {
		t.Fatalf("unexpected yaml %q", w.String())
	}
	if err := WriteOutput(w, v, "xml"); err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
}

func TestAuthCheck(t *testing.T) {
	srv := httptest.NewServer(upstream(http.StatusOK))
	defer srv.Close()
	f := writePipelineFile(t, srv.URL, "mock://warehouse", "")
	w := &bytes.Buffer{}
	s, err := RunAuthCheck(context.Background(), &AuthCheckConfig{LogLevel: "error", PipelineFile: f, Output: w})
	if err != nil {
		t.Fatal(err)
	}
	if s.Token != "abc" {
		t.Fatalf("unexpected session %+v", s)
	}
	if strings.Contains(w.String(), "abc") || !strings.Contains(w.String(), "authenticated user") {
		t.Fatalf("unexpected output %q", w.String())
	}
	bad := httptest.NewServer(upstream(http.StatusUnauthorized))
	defer bad.Close()
	f = writePipelineFile(t, bad.URL, "mock://warehouse", "")
	if _, err = RunAuthCheck(context.Background(), &AuthCheckConfig{LogLevel: "error", PipelineFile: f, Output: w}); err == nil {
		t.Fatal("expected an authentication error")
	}
}

func TestCreateTables(t *testing.T) {
	f := writePipelineFile(t, "https://api.example.com", "/tmp/jcr.duckdb", "")
	w := &bytes.Buffer{}
	err := RunCreateTables(context.Background(), &CreateTablesConfig{LogLevel: "error", PipelineFile: f, PrintOnly: true, Output: w})
	if err != nil {
		t.Fatal(err)
	}
	out := w.String()
	for _, table := range []string{constants.TableObservationSummary, constants.TableObservationNotes, constants.TableHcoDetails} {
		if !strings.Contains(out, "jcr."+table) {
			t.Fatalf("expected DDL for %v in %q", table, out)
		}
	}
	if strings.Count(out, ";") != 7 {
		t.Fatalf("expected 7 statements; got %q", out)
	}
	// Create against the mock warehouse.
	f = writePipelineFile(t, "https://api.example.com", "mock://warehouse", "")
	w.Reset()
	if err = RunCreateTables(context.Background(), &CreateTablesConfig{LogLevel: "error", PipelineFile: f, Output: w}); err != nil {
		t.Fatal(err)
	}
	if strings.Count(w.String(), "is ready") != 7 {
		t.Fatalf("expected 7 tables ready; got %q", w.String())
	}
}

func TestValidate(t *testing.T) {
	f := writePipelineFile(t, "https://api.example.com", "mock://warehouse", "")
	w := &bytes.Buffer{}
	if err := RunValidate(&ValidateConfig{PipelineFile: f, Output: w}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(w.String(), "password: pw") {
		t.Fatalf("expected the password to be hidden in %q", w.String())
	}
	f = writePipelineFile(t, "https://api.example.com", "mock://warehouse", "  lookbackDays: -1\n")
	if err := RunValidate(&ValidateConfig{PipelineFile: f, Output: w}); err == nil {
		t.Fatal("expected a validation error for negative lookback days")
	}
}
