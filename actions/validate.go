package actions

import (
	"fmt"
	"io"
)

type ValidateConfig struct {
	PipelineFile string
	Credentials  ConfigGetter
	Connections  ConnectionLoader
	Output       io.Writer
}

// RunValidate checks the pipeline definition, including the warehouse connection it names,
// and prints the effective configuration with secrets hidden.
func RunValidate(cfg *ValidateConfig) error {
	pc, err := LoadPipelineConfig(cfg.PipelineFile, cfg.Credentials)
	if err != nil {
		return err
	}
	if err = pc.Validate(); err != nil {
		return err
	}
	if pc.Warehouse.Dsn != "" || cfg.Connections != nil {
		if _, err = pc.WarehouseConnection(cfg.Connections); err != nil {
			return err
		}
	}
	if cfg.Output != nil {
		_, _ = fmt.Fprint(cfg.Output, pc.String())
	}
	return nil
}
