package actions

import (
	"context"
	"errors"
	"io"

	"github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/logger"
	"github.com/relloyd/obspipe/rdbms"
	"github.com/relloyd/obspipe/schema"
)

type CreateTablesConfig struct {
	LogLevel         string
	StackDumpOnPanic bool
	PipelineFile     string
	Connections      ConnectionLoader
	Credentials      ConfigGetter
	PrintOnly        bool // print the DDL without connecting to the warehouse.
	Output           io.Writer
}

// RunCreateTables creates any missing pipeline tables in the warehouse, or prints their DDL.
func RunCreateTables(ctx context.Context, cfg *CreateTablesConfig) error {
	if cfg == nil || cfg.Output == nil {
		return errors.New("create tables requires a config with an output writer")
	}
	pc, err := LoadPipelineConfig(cfg.PipelineFile, cfg.Credentials)
	if err != nil {
		return err
	}
	log := logger.NewLogger(constants.ServiceName, logLevel(cfg.LogLevel, pc), cfg.StackDumpOnPanic)
	printLogFn := getPrintLogFunc(log, cfg.Output)
	if cfg.PrintOnly {
		details, err := pc.WarehouseConnection(cfg.Connections)
		if err != nil {
			return err
		}
		for _, table := range schema.Tables() {
			s, err := schema.SchemaFor(table)
			if err != nil {
				return err
			}
			st := rdbms.NewSchemaTable(pc.TargetSchema(), table)
			ddl, err := schema.CreateTableDDL(details.Type, st.String(), s)
			if err != nil {
				return err
			}
			printLogFn(ddl + ";")
		}
		return nil
	}
	db, loader, err := OpenWarehouse(log, pc, cfg.Connections)
	if err != nil {
		return err
	}
	defer db.Close()
	if err = loader.EnsureTables(ctx); err != nil {
		return err
	}
	for _, table := range schema.Tables() {
		st := loader.QualifiedTable(table)
		printLogFn("table " + st.String() + " is ready")
	}
	return nil
}
