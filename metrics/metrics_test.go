package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(RowsWrittenTotal.WithLabelValues("programs"))
	RowsWrittenTotal.WithLabelValues("programs").Add(3)
	if got := testutil.ToFloat64(RowsWrittenTotal.WithLabelValues("programs")); got != before+3 {
		t.Fatalf("expected %v; got %v", before+3, got)
	}
}

func TestPush(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	if err := Push(srv.URL, "run123"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(gotPath, "/job/obspipe") || !strings.Contains(gotPath, "run_id/run123") {
		t.Fatalf("unexpected push path %v", gotPath)
	}
}
