package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/relloyd/obspipe/api"
	"github.com/relloyd/obspipe/archive"
	"github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/helper"
	"github.com/relloyd/obspipe/logger"
	"github.com/relloyd/obspipe/metrics"
	"github.com/rs/xid"
)

type Authenticator interface {
	Authenticate(ctx context.Context, loginID string, password string) (api.Session, error)
}

type ObservationClient interface {
	FetchSummary(ctx context.Context, s api.Session) (*api.SummaryPayload, error)
	FetchDetails(ctx context.Context, s api.Session, siteIDs string, from time.Time, to time.Time) (*api.DetailBundle, error)
}

type WarehouseLoader interface {
	StoreSummary(ctx context.Context, p *api.SummaryPayload) (int, error)
	StoreDetails(ctx context.Context, b *api.DetailBundle) (map[string]int, error)
}

// Config is everything a run needs. Archive, PushgatewayURL, RunID and Now are optional.
type Config struct {
	Log              logger.Logger
	Auth             Authenticator
	Client           ObservationClient
	Loader           WarehouseLoader
	Archive          archive.Archiver
	LoginID          string `errorTxt:"API user logon id" mandatory:"yes"`
	Password         string `errorTxt:"API password" mandatory:"yes"`
	BatchSize        int    `errorTxt:"batch size" validate:"gt=0"`
	LookbackDays     int    `errorTxt:"lookback days" validate:"gt=0"`
	SummaryOnly      bool
	FailOnBatchError bool
	PushgatewayURL   string
	RunID            string // generated when empty.
	Now              func() time.Time
}

type Pipeline struct {
	cfg Config
}

// New validates cfg and returns a Pipeline. Zero BatchSize and LookbackDays take the defaults.
func New(cfg *Config) (*Pipeline, error) {
	c := *cfg
	if c.Log == nil || c.Auth == nil || c.Client == nil || c.Loader == nil {
		return nil, fmt.Errorf("pipeline requires a logger, authenticator, client and loader")
	}
	if c.BatchSize == 0 {
		c.BatchSize = constants.DefaultSiteBatchSize
	}
	if c.LookbackDays == 0 {
		c.LookbackDays = constants.DefaultLookbackDays
	}
	if err := helper.ValidateStruct(&c); err != nil {
		return nil, err
	}
	if c.Archive == nil {
		c.Archive = archive.Nop{}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return &Pipeline{cfg: c}, nil
}

// Run executes one pipeline run.
// Authentication and summary fetch failures stop the run before anything is written.
// A batch that fails to fetch or load is logged and the run moves on to the next batch;
// the run only returns an error for failed batches when FailOnBatchError is set.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	runID := p.cfg.RunID
	if runID == "" {
		runID = NewRunID()
	}
	report := &RunReport{RunID: runID, Started: p.cfg.Now(), Batches: []BatchReport{}}
	log := p.cfg.Log.WithField("run_id", report.RunID)
	metrics.RunsInProgress.Inc()
	defer metrics.RunsInProgress.Dec()
	err := p.run(ctx, log, report)
	p.finish(log, report, err)
	return report, err
}

// NewRunID returns a sortable, globally unique run id.
func NewRunID() string {
	return xid.New().String()
}

func (p *Pipeline) run(ctx context.Context, log logger.Logger, report *RunReport) error {
	log.Info("starting run")
	session, err := p.cfg.Auth.Authenticate(ctx, p.cfg.LoginID, p.cfg.Password)
	if err != nil {
		return &PipelineError{Stage: StageAuthenticate, Err: err}
	}
	summary, err := p.cfg.Client.FetchSummary(ctx, session)
	if err != nil {
		return &PipelineError{Stage: StageSummary, Err: err}
	}
	p.archive(ctx, log, archive.SummaryKey(report.RunID, report.Started), summary.Raw)
	if n, err := p.cfg.Loader.StoreSummary(ctx, summary); err != nil {
		log.Error("error storing observation summary: ", err)
		report.SummaryError = err.Error()
	} else {
		report.SummaryRows = n
	}
	if p.cfg.SummaryOnly {
		log.Info("summary only run, skipping details")
		return nil
	}
	if !summary.Valid() {
		log.Warn("no ", constants.SummaryPayloadKey, " found in the summary response, nothing to fetch")
		return nil
	}
	siteIDs := FilterActiveSites(log, summary.Records)
	report.EligibleSites = len(siteIDs)
	batches, err := PartitionSites(siteIDs, p.cfg.BatchSize)
	if err != nil {
		return &PipelineError{Stage: StageBatches, Err: err}
	}
	report.Window = NewDateWindow(p.cfg.Now(), p.cfg.LookbackDays)
	log.Info("fetching details for ", len(siteIDs), " active sites in ", len(batches), " batches from ", report.Window)
	for idx, batch := range batches {
		if err := ctx.Err(); err != nil {
			return &PipelineError{Stage: StageBatches, Err: err}
		}
		report.Batches = append(report.Batches, p.runBatch(ctx, log, report, idx, batch, session))
	}
	if failed := report.FailedBatches(); failed > 0 {
		log.Warn(failed, " of ", len(batches), " batches failed")
		if p.cfg.FailOnBatchError {
			return &PipelineError{Stage: StageBatches, Err: fmt.Errorf("%v of %v batches failed", failed, len(batches))}
		}
	}
	return nil
}

func (p *Pipeline) runBatch(ctx context.Context, log logger.Logger, report *RunReport, idx int, siteIDs []int64, session api.Session) (br BatchReport) {
	start := time.Now()
	br = BatchReport{ID: uuid.New().String(), Index: idx, SiteIDs: siteIDs, Status: metrics.StatusSuccess}
	blog := log.WithFields(map[string]interface{}{"batch": idx, "batch_id": br.ID})
	metrics.BatchSizeHistogram.Observe(float64(len(siteIDs)))
	defer func() {
		br.Duration = time.Since(start)
		metrics.BatchesTotal.WithLabelValues(br.Status).Inc()
	}()
	csv := helper.Int64sToCsv(siteIDs)
	blog.Debug("fetching details for sites ", csv)
	bundle, err := p.cfg.Client.FetchDetails(ctx, session, csv, report.Window.From, report.Window.To)
	if err != nil {
		blog.Error("error fetching details: ", err)
		br.FetchError = err.Error()
		br.Status = metrics.StatusFailure
		return br
	}
	p.archive(ctx, blog, archive.DetailsKey(report.RunID, idx, report.Started), bundle.Raw)
	br.Rows, err = p.cfg.Loader.StoreDetails(ctx, bundle)
	if err != nil {
		blog.Error("error storing details: ", err)
		br.LoadError = err.Error()
		br.Status = metrics.StatusFailure
		return br
	}
	blog.Info("batch complete: ", br.Rows)
	return br
}

func (p *Pipeline) archive(ctx context.Context, log logger.Logger, key string, raw []byte) {
	if len(raw) == 0 {
		return
	}
	meta := map[string]string{"service": constants.ServiceName}
	if err := p.cfg.Archive.Put(ctx, key, raw, meta); err != nil {
		log.Warn("error archiving raw payload ", key, ": ", err)
	}
}

func (p *Pipeline) finish(log logger.Logger, report *RunReport, err error) {
	report.Finished = p.cfg.Now()
	report.Status = metrics.StatusSuccess
	if err != nil {
		report.Status = metrics.StatusFailure
		report.Error = err.Error()
		log.Error("run failed: ", err)
	} else {
		metrics.LastSuccessTimestamp.Set(float64(report.Finished.Unix()))
		log.Info("run complete: summary rows = ", report.SummaryRows, "; batches = ", len(report.Batches), "; failed batches = ", report.FailedBatches())
	}
	metrics.RunsTotal.WithLabelValues(report.Status).Inc()
	metrics.RunDurationSeconds.Observe(report.Finished.Sub(report.Started).Seconds())
	if p.cfg.PushgatewayURL != "" {
		if err := metrics.Push(p.cfg.PushgatewayURL, report.RunID); err != nil {
			log.Warn("error pushing metrics: ", err)
		}
	}
}
