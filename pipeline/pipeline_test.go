package pipeline

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/relloyd/obspipe/api"
	"github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/stream"
)

type fakeAuth struct {
	err   error
	calls int
}

func (f *fakeAuth) Authenticate(ctx context.Context, loginID string, password string) (api.Session, error) {
	f.calls++
	if f.err != nil {
		return api.Session{}, f.err
	}
	return api.Session{Token: "t", UserID: "1"}, nil
}

type detailsCall struct {
	siteIDs  string
	from, to time.Time
}

type fakeClient struct {
	summary      *api.SummaryPayload
	summaryErr   error
	detailsErrOn map[string]error
	bundle       func() *api.DetailBundle
	delay        time.Duration
	calls        []detailsCall
}

func (f *fakeClient) FetchSummary(ctx context.Context, s api.Session) (*api.SummaryPayload, error) {
	return f.summary, f.summaryErr
}

func (f *fakeClient) FetchDetails(ctx context.Context, s api.Session, siteIDs string, from time.Time, to time.Time) (*api.DetailBundle, error) {
	f.calls = append(f.calls, detailsCall{siteIDs: siteIDs, from: from, to: to})
	time.Sleep(f.delay)
	if err := f.detailsErrOn[siteIDs]; err != nil {
		return nil, err
	}
	return f.bundle(), nil
}

type fakeLoader struct {
	summaries []*api.SummaryPayload
	bundles   []*api.DetailBundle
	appends   []string
	storeErr  error
}

func (f *fakeLoader) StoreSummary(ctx context.Context, p *api.SummaryPayload) (int, error) {
	f.summaries = append(f.summaries, p)
	if !p.Valid() {
		return 0, errors.New("invalid payload")
	}
	return len(p.Records), nil
}

func (f *fakeLoader) StoreDetails(ctx context.Context, b *api.DetailBundle) (map[string]int, error) {
	f.bundles = append(f.bundles, b)
	counts := make(map[string]int)
	for _, name := range b.Names() {
		if r, _ := b.Collection(name); len(r) > 0 {
			f.appends = append(f.appends, name)
			counts[name] = len(r)
		}
	}
	return counts, f.storeErr
}

func (f *fakeLoader) calls() int {
	return len(f.summaries) + len(f.bundles)
}

// sevenSites has five active sites.
func sevenSites() *api.SummaryPayload {
	active := []bool{true, false, true, true, false, true, true}
	recs := make([]stream.Record, 0, len(active))
	for idx, a := range active {
		recs = append(recs, stream.NewRecordFromMap(map[string]interface{}{"site_id": idx + 1, "has_active_license": a}))
	}
	return &api.SummaryPayload{Present: true, Records: recs, Raw: []byte(`{}`)}
}

func twoCollections() *api.DetailBundle {
	return api.NewDetailBundle(map[string][]stream.Record{
		constants.TablePrograms:      {},
		constants.TableHcoDetails:    {stream.NewRecordFromMap(map[string]interface{}{"hco_id": 1})},
		constants.TableTracerDetails: {stream.NewRecordFromMap(map[string]interface{}{"tracer_id": 1})},
	})
}

type fakeArchive struct {
	keys []string
}

func (f *fakeArchive) Put(ctx context.Context, key string, raw []byte, meta map[string]string) error {
	f.keys = append(f.keys, key)
	return nil
}

func newTestPipeline(t *testing.T, auth *fakeAuth, client *fakeClient, loader *fakeLoader, mod func(*Config)) *Pipeline {
	now := time.Date(2024, 3, 15, 14, 5, 0, 0, time.UTC)
	cfg := &Config{
		Log:          testLog,
		Auth:         auth,
		Client:       client,
		Loader:       loader,
		LoginID:      "user",
		Password:     "pw",
		BatchSize:    3,
		LookbackDays: 7,
		Now:          func() time.Time { return now },
	}
	if mod != nil {
		mod(cfg)
	}
	p, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRunEndToEnd(t *testing.T) {
	client := &fakeClient{summary: sevenSites(), bundle: twoCollections}
	loader := &fakeLoader{}
	arch := &fakeArchive{}
	p := newTestPipeline(t, &fakeAuth{}, client, loader, func(c *Config) { c.Archive = arch })
	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(client.calls) != 2 {
		t.Fatalf("expected 2 detail batches; got %v", len(client.calls))
	}
	if client.calls[0].siteIDs != "1,3,4" || client.calls[1].siteIDs != "6,7" {
		t.Fatalf("unexpected batches %+v", client.calls)
	}
	if !client.calls[0].from.Equal(client.calls[1].from) || !client.calls[0].to.Equal(client.calls[1].to) {
		t.Fatal("every batch must use the same window")
	}
	if got := client.calls[0].to.Sub(client.calls[0].from); got != 7*24*time.Hour {
		t.Fatalf("expected a 7 day window; got %v", got)
	}
	if len(loader.summaries) != 1 || len(loader.bundles) != 2 {
		t.Fatalf("unexpected loader calls: %v summaries, %v bundles", len(loader.summaries), len(loader.bundles))
	}
	// One append per present non-empty key per batch.
	expected := []string{constants.TableHcoDetails, constants.TableTracerDetails, constants.TableHcoDetails, constants.TableTracerDetails}
	if !reflect.DeepEqual(loader.appends, expected) {
		t.Fatalf("unexpected appends %v", loader.appends)
	}
	if report.Status != "success" || report.SummaryRows != 7 || report.EligibleSites != 5 || len(report.Batches) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.RowsByTable()[constants.TableHcoDetails] != 2 {
		t.Fatalf("unexpected rows by table %v", report.RowsByTable())
	}
	if len(arch.keys) != 1 {
		t.Fatalf("expected the summary to be archived; got %v", arch.keys)
	}
}

func TestRunAuthFailureWritesNothing(t *testing.T) {
	client := &fakeClient{summary: sevenSites(), bundle: twoCollections}
	loader := &fakeLoader{}
	p := newTestPipeline(t, &fakeAuth{err: &api.AuthError{StatusCode: 401}}, client, loader, nil)
	report, err := p.Run(context.Background())
	var pe *PipelineError
	if !errors.As(err, &pe) || pe.Stage != StageAuthenticate {
		t.Fatalf("expected an authenticate PipelineError; got %v", err)
	}
	var ae *api.AuthError
	if !errors.As(err, &ae) {
		t.Fatal("the AuthError should be wrapped")
	}
	if loader.calls() != 0 || len(client.calls) != 0 {
		t.Fatal("nothing should be fetched or written after an authentication failure")
	}
	if report.Status != "failure" {
		t.Fatalf("unexpected status %v", report.Status)
	}
}

func TestRunSummaryFetchFailureAborts(t *testing.T) {
	client := &fakeClient{summaryErr: &api.FetchError{Endpoint: api.EndpointSummary, StatusCode: 500}}
	loader := &fakeLoader{}
	p := newTestPipeline(t, &fakeAuth{}, client, loader, nil)
	_, err := p.Run(context.Background())
	var pe *PipelineError
	if !errors.As(err, &pe) || pe.Stage != StageSummary {
		t.Fatalf("expected a fetch_summary PipelineError; got %v", err)
	}
	if loader.calls() != 0 {
		t.Fatal("nothing should be written")
	}
}

func TestRunBatchFailureDoesNotStopLaterBatches(t *testing.T) {
	client := &fakeClient{
		summary:      sevenSites(),
		bundle:       twoCollections,
		detailsErrOn: map[string]error{"1,3,4": &api.FetchError{Endpoint: api.EndpointDetails, StatusCode: 502}},
	}
	loader := &fakeLoader{}
	p := newTestPipeline(t, &fakeAuth{}, client, loader, nil)
	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("batch failures should not fail the run by default: %v", err)
	}
	if len(client.calls) != 2 || len(loader.bundles) != 1 {
		t.Fatal("the second batch should still be fetched and stored")
	}
	if report.FailedBatches() != 1 || report.Batches[0].FetchError == "" || report.Batches[1].Status != "success" {
		t.Fatalf("unexpected batch reports %+v", report.Batches)
	}
}

func TestRunRecordsBatchDuration(t *testing.T) {
	client := &fakeClient{
		summary:      sevenSites(),
		bundle:       twoCollections,
		delay:        20 * time.Millisecond,
		detailsErrOn: map[string]error{"6,7": errors.New("timeout")},
	}
	p := newTestPipeline(t, &fakeAuth{}, client, &fakeLoader{}, nil)
	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Batches) != 2 {
		t.Fatalf("expected 2 batches; got %v", len(report.Batches))
	}
	for _, b := range report.Batches {
		if b.Duration < client.delay {
			t.Fatalf("batch %v: expected a duration of at least %v; got %v", b.Index, client.delay, b.Duration)
		}
	}
}

func TestRunFailOnBatchError(t *testing.T) {
	client := &fakeClient{summary: sevenSites(), bundle: twoCollections}
	loader := &fakeLoader{storeErr: errors.New("load failed")}
	p := newTestPipeline(t, &fakeAuth{}, client, loader, func(c *Config) { c.FailOnBatchError = true })
	report, err := p.Run(context.Background())
	var pe *PipelineError
	if !errors.As(err, &pe) || pe.Stage != StageBatches {
		t.Fatalf("expected a batches PipelineError; got %v", err)
	}
	if len(loader.bundles) != 2 || report.FailedBatches() != 2 {
		t.Fatal("all batches should be attempted before failing")
	}
	if !strings.Contains(report.Batches[0].LoadError, "load failed") {
		t.Fatalf("unexpected load error %q", report.Batches[0].LoadError)
	}
}

func TestRunMissingSummaryKey(t *testing.T) {
	client := &fakeClient{summary: &api.SummaryPayload{Present: false}, bundle: twoCollections}
	loader := &fakeLoader{}
	p := newTestPipeline(t, &fakeAuth{}, client, loader, nil)
	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(client.calls) != 0 || report.SummaryError == "" {
		t.Fatalf("no batches should run without a summary; report %+v", report)
	}
}

func TestRunSummaryOnly(t *testing.T) {
	client := &fakeClient{summary: sevenSites(), bundle: twoCollections}
	loader := &fakeLoader{}
	p := newTestPipeline(t, &fakeAuth{}, client, loader, func(c *Config) { c.SummaryOnly = true })
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(loader.summaries) != 1 || len(client.calls) != 0 {
		t.Fatal("a summary only run should not fetch details")
	}
}

func TestNewValidatesConfig(t *testing.T) {
	base := Config{Log: testLog, Auth: &fakeAuth{}, Client: &fakeClient{}, Loader: &fakeLoader{}, LoginID: "u", Password: "p"}
	c := base
	if p, err := New(&c); err != nil || p.cfg.BatchSize != constants.DefaultSiteBatchSize || p.cfg.LookbackDays != constants.DefaultLookbackDays {
		t.Fatalf("expected defaults to apply; got %v", err)
	}
	c = base
	c.BatchSize = -1
	if _, err := New(&c); err == nil {
		t.Fatal("expected an error for a negative batch size")
	}
	c = base
	c.Password = ""
	if _, err := New(&c); err == nil {
		t.Fatal("expected an error for a missing password")
	}
}
