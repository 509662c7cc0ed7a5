package actions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/relloyd/obspipe/api"
	"github.com/relloyd/obspipe/archive"
	"github.com/relloyd/obspipe/aws/s3"
	"github.com/relloyd/obspipe/config"
	"github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/logger"
	"github.com/relloyd/obspipe/pipeline"
	"github.com/relloyd/obspipe/rdbms"
	"github.com/relloyd/obspipe/rdbms/shared"
	"github.com/relloyd/obspipe/warehouse"
)

// RunConfig is the CLI input to RunPipeline.
type RunConfig struct {
	LogLevel         string // overrides the pipeline definition when set.
	StackDumpOnPanic bool
	PipelineFile     string // optional YAML or JSON pipeline definition.
	SummaryOnly      bool
	Connections      ConnectionLoader
	Credentials      ConfigGetter
}

// RunOptions change a single run.
type RunOptions struct {
	RunID       string
	SummaryOnly bool
}

// PipelineRunner owns the API client, warehouse connection and archive shared by pipeline runs.
// Runs are serialised because the warehouse loader is not safe for concurrent use.
type PipelineRunner struct {
	log     logger.Logger
	cfg     *config.PipelineConfig
	db      shared.Connector
	auth    *api.Authenticator
	client  *api.Client
	loader  *warehouse.Loader
	archive archive.Archiver
	mu      sync.Mutex
}

// LoadPipelineConfig reads the pipeline definition in fileName, applies OP_ environment variables
// and fills missing API credentials from the credentials store.
func LoadPipelineConfig(fileName string, creds ConfigGetter) (*config.PipelineConfig, error) {
	cfg, err := config.LoadPipelineConfig(fileName)
	if err != nil {
		return nil, err
	}
	if err = cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if creds != nil {
		a := config.APICredentials{}
		err = creds.Get(config.APICredentialsKey, &a)
		switch {
		case err == nil:
			cfg.ApplyCredentials(a)
		case errors.As(err, &config.KeyNotFoundError{}), errors.As(err, &config.FileNotFoundError{}):
		default:
			return nil, err
		}
	}
	return cfg, nil
}

// ClientConfig translates the API section of cfg.
func ClientConfig(log logger.Logger, cfg *config.PipelineConfig) *api.ClientConfig {
	return &api.ClientConfig{
		Log:               log,
		BaseURL:           cfg.API.BaseURL,
		Timeout:           time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		MaxRetries:        cfg.API.MaxRetries,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		CircuitBreaker:    cfg.API.CircuitBreaker,
	}
}

// NewPipelineRunner validates cfg and opens everything a run needs.
// Call Close when done.
func NewPipelineRunner(ctx context.Context, log logger.Logger, cfg *config.PipelineConfig, conns ConnectionLoader) (*PipelineRunner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &PipelineRunner{log: log, cfg: cfg, archive: archive.Nop{}}
	var err error
	clientCfg := ClientConfig(log, cfg)
	if r.auth, err = api.NewAuthenticator(clientCfg); err != nil {
		return nil, err
	}
	if r.client, err = api.NewClient(clientCfg); err != nil {
		return nil, err
	}
	if cfg.Archive != nil {
		if r.archive, err = archive.NewMinioArchive(ctx, log, *cfg.Archive); err != nil {
			return nil, err
		}
	}
	if r.db, r.loader, err = OpenWarehouse(log, cfg, conns); err != nil {
		return nil, err
	}
	return r, nil
}

// OpenWarehouse connects to the configured warehouse and returns a Loader writing to it.
func OpenWarehouse(log logger.Logger, cfg *config.PipelineConfig, conns ConnectionLoader) (shared.Connector, *warehouse.Loader, error) {
	details, err := cfg.WarehouseConnection(conns)
	if err != nil {
		return nil, nil, err
	}
	db, err := rdbms.OpenDbConnection(log, details)
	if err != nil {
		return nil, nil, err
	}
	wcfg := &warehouse.Config{
		Log:             log,
		Db:              db,
		TargetSchema:    cfg.TargetSchema(),
		InsertBatchRows: cfg.Warehouse.InsertBatchRows,
	}
	if cfg.Stage != nil {
		b, err := s3.ParseDSN(cfg.Stage.Bucket, cfg.Stage.Region)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("staging loads through ", b)
		wcfg.Stage = &warehouse.StageConfig{
			Bucket:    s3.NewBasicClient(b.Name, b.Region, b.Prefix),
			StageName: cfg.Stage.StageName,
			KeepFiles: cfg.Stage.KeepFiles,
		}
	}
	l, err := warehouse.NewLoader(wcfg)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, l, nil
}

// Run executes one pipeline run.
func (r *PipelineRunner) Run(ctx context.Context, opts RunOptions) (*pipeline.RunReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := pipeline.New(&pipeline.Config{
		Log:              r.log,
		Auth:             r.auth,
		Client:           r.client,
		Loader:           r.loader,
		Archive:          r.archive,
		LoginID:          r.cfg.API.UserLogonID,
		Password:         r.cfg.API.Password,
		BatchSize:        r.cfg.Batch.BatchSize,
		LookbackDays:     r.cfg.Batch.LookbackDays,
		SummaryOnly:      opts.SummaryOnly,
		FailOnBatchError: r.cfg.Batch.FailOnBatchError,
		PushgatewayURL:   r.cfg.PushgatewayURL,
		RunID:            opts.RunID,
	})
	if err != nil {
		return nil, err
	}
	return p.Run(ctx)
}

func (r *PipelineRunner) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

// RunPipeline loads the pipeline definition, runs it once and returns the report.
func RunPipeline(ctx context.Context, cfg *RunConfig) (*pipeline.RunReport, error) {
	if cfg == nil {
		return nil, errors.New("nil pointer to run config supplied")
	}
	pc, err := LoadPipelineConfig(cfg.PipelineFile, cfg.Credentials)
	if err != nil {
		return nil, err
	}
	log := logger.NewLogger(constants.ServiceName, logLevel(cfg.LogLevel, pc), cfg.StackDumpOnPanic)
	r, err := NewPipelineRunner(ctx, log, pc, cfg.Connections)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Run(ctx, RunOptions{SummaryOnly: cfg.SummaryOnly})
}
