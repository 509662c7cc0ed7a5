package warehouse

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/relloyd/obspipe/api"
	"github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/logger"
	"github.com/relloyd/obspipe/metrics"
	"github.com/relloyd/obspipe/rdbms"
	"github.com/relloyd/obspipe/rdbms/shared"
	"github.com/relloyd/obspipe/schema"
	"github.com/relloyd/obspipe/stream"
)

type Config struct {
	Log             logger.Logger
	Db              shared.Connector
	TargetSchema    string       // optional [<database>.]<schema> that holds the tables.
	InsertBatchRows int          // rows per multi-row INSERT; capped by the database bind limit.
	Stage           *StageConfig // optional, Snowflake only: load through files on S3.
}

// Loader creates the pipeline tables and writes typed rows into them.
// It is not safe for concurrent use.
type Loader struct {
	log          logger.Logger
	db           shared.Connector
	targetSchema string
	batchRows    int
	stager       *stager
	ensured      map[string]bool
}

func NewLoader(cfg *Config) (*Loader, error) {
	if cfg.Log == nil || cfg.Db == nil {
		return nil, errors.New("warehouse loader requires a logger and a database connection")
	}
	l := &Loader{
		log:          cfg.Log,
		db:           cfg.Db,
		targetSchema: cfg.TargetSchema,
		batchRows:    cfg.InsertBatchRows,
		ensured:      make(map[string]bool),
	}
	if l.batchRows <= 0 {
		l.batchRows = constants.DefaultInsertBatchRows
	}
	if cfg.Stage != nil {
		if cfg.Db.GetType() != constants.ConnectionTypeSnowflake {
			return nil, fmt.Errorf("staged loads are only supported by snowflake, not %q", cfg.Db.GetType())
		}
		var err error
		if l.stager, err = newStager(cfg.Log, cfg.Stage); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// QualifiedTable returns the [<schema>.]<table> name written to for table.
func (l *Loader) QualifiedTable(table string) rdbms.SchemaTable {
	return rdbms.NewSchemaTable(l.targetSchema, table)
}

// TableDDL returns the CREATE TABLE statement EnsureTable would execute.
func (l *Loader) TableDDL(table string) (string, error) {
	s, err := schema.SchemaFor(table)
	if err != nil {
		return "", err
	}
	st := l.QualifiedTable(table)
	return schema.CreateTableDDL(l.db.GetType(), st.String(), s)
}

// EnsureTable creates table if it does not exist. The DDL is only executed once per Loader.
func (l *Loader) EnsureTable(ctx context.Context, table string) error {
	if l.ensured[table] {
		return nil
	}
	ddl, err := l.TableDDL(table)
	if err != nil {
		return newLoadError(table, err)
	}
	l.log.Debug("ensuring table exists: ", ddl)
	if _, err := l.db.ExecContext(ctx, ddl); err != nil {
		return newLoadError(table, errors.Wrapf(err, "error creating table %v", l.QualifiedTable(table).String()))
	}
	l.ensured[table] = true
	return nil
}

// EnsureTables creates every registered table.
func (l *Loader) EnsureTables(ctx context.Context) error {
	loadErr := &LoadError{}
	for _, t := range schema.Tables() {
		if err := l.EnsureTable(ctx, t); err != nil {
			loadErr.add(t, err)
		}
	}
	if len(loadErr.Failures) > 0 {
		return loadErr
	}
	return nil
}

// Coerce converts records to the types of table, logging fields that do not convert.
func (l *Loader) Coerce(records []stream.Record, table string) (*TypedRecords, error) {
	return Coerce(l.log.WithField("table", table), records, table)
}

// StoreSummary replaces the contents of the summary table with the rows of p in one transaction.
// After it succeeds the table holds exactly the rows of p.
func (l *Loader) StoreSummary(ctx context.Context, p *api.SummaryPayload) (int, error) {
	table := constants.TableObservationSummary
	if !p.Valid() {
		metrics.TableLoadsTotal.WithLabelValues(table, metrics.StatusFailure).Inc()
		return 0, newLoadError(table, ErrInvalidPayload)
	}
	n, err := l.store(ctx, table, p.Records, true)
	if err != nil {
		return 0, err
	}
	l.log.Info("stored ", n, " rows in ", l.QualifiedTable(table).String(), " (overwrite)")
	return n, nil
}

// StoreDetails appends each non-empty collection of b to its table.
// Empty or absent collections are skipped. Tables are written independently so one failure
// does not stop the others; the returned counts cover the tables that succeeded and the error,
// if any, is a *LoadError naming the tables that failed.
func (l *Loader) StoreDetails(ctx context.Context, b *api.DetailBundle) (map[string]int, error) {
	counts := make(map[string]int)
	loadErr := &LoadError{}
	for _, name := range constants.DetailCollections {
		recs, ok := b.Collection(name)
		if !ok || len(recs) == 0 {
			l.log.Debug("no ", name, " to load")
			metrics.TableLoadsTotal.WithLabelValues(name, metrics.StatusSkipped).Inc()
			continue
		}
		n, err := l.store(ctx, name, recs, false)
		if err != nil {
			l.log.Error("error loading ", name, ": ", err)
			loadErr.add(name, err)
			continue
		}
		l.log.Info("appended ", n, " rows to ", l.QualifiedTable(name).String())
		counts[name] = n
	}
	if len(loadErr.Failures) > 0 {
		return counts, loadErr
	}
	return counts, nil
}

// store writes records to table in a single transaction, deleting all existing rows first if overwrite is set.
func (l *Loader) store(ctx context.Context, table string, records []stream.Record, overwrite bool) (n int, err error) {
	defer func() {
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusFailure
		} else {
			metrics.RowsWrittenTotal.WithLabelValues(table).Add(float64(n))
		}
		metrics.TableLoadsTotal.WithLabelValues(table, status).Inc()
	}()
	if err = l.EnsureTable(ctx, table); err != nil {
		return 0, err
	}
	tr, err := l.Coerce(records, table)
	if err != nil {
		return 0, newLoadError(table, err)
	}
	st := l.QualifiedTable(table)
	tx, err := l.db.BeginTx(ctx)
	if err != nil {
		return 0, newLoadError(table, errors.Wrap(err, "error starting transaction"))
	}
	rollbackRequired := true
	defer rollback(l.log, table, tx, &rollbackRequired)
	if overwrite {
		query := fmt.Sprintf("delete from %v", st.String())
		if _, err = tx.ExecContext(ctx, query); err != nil {
			return 0, newLoadError(table, errors.Wrapf(err, "error executing %q", query))
		}
	}
	if l.stager != nil {
		n, err = l.stager.load(ctx, tx, st, tr, overwrite)
	} else {
		n, err = l.insert(ctx, tx, st, tr)
	}
	if err != nil {
		return 0, newLoadError(table, err)
	}
	if err = tx.Commit(); err != nil {
		return 0, newLoadError(table, errors.Wrap(err, "error committing"))
	}
	rollbackRequired = false
	return n, nil
}

// insert executes multi-row INSERT statements for all rows of tr.
func (l *Loader) insert(ctx context.Context, tx shared.Transacter, st rdbms.SchemaTable, tr *TypedRecords) (int, error) {
	if tr.Len() == 0 {
		return 0, nil
	}
	dml := l.db.GetDmlGenerator()
	gen, ok := dml.NewInsertGenerator(&shared.SqlStatementGeneratorConfig{
		Log:          l.log,
		OutputSchema: st.GetSchema(),
		OutputTable:  st.GetTable(),
		TargetCols:   tr.Schema.ColumnMap(),
	}).(shared.SqlStmtTxtBatcher)
	if !ok {
		return 0, errors.New("insert generator does not support batches")
	}
	maxRows := dml.GetMaxRowsPerBatch(len(tr.Schema.Columns), l.batchRows)
	written := 0
	for written < tr.Len() {
		size := tr.Len() - written
		if size > maxRows {
			size = maxRows
		}
		gen.InitBatch(size)
		for _, row := range tr.Rows[written : written+size] {
			if _, err := gen.AddValuesToBatch(row); err != nil {
				return written, err
			}
		}
		if _, err := tx.ExecContext(ctx, gen.GetStatement(), gen.GetValues()...); err != nil {
			return written, errors.Wrapf(err, "error inserting into %v", st.String())
		}
		written += size
	}
	return written, nil
}

func rollback(log logger.Logger, table string, tx shared.Transacter, rollbackRequired *bool) {
	if !*rollbackRequired {
		return
	}
	*rollbackRequired = false
	if err := tx.Rollback(); err != nil {
		log.Error("error rolling back load of ", table, ": ", err)
		return
	}
	log.Info("rolled back load of ", table)
}
