package actions

import (
	"fmt"
	"io"

	"github.com/ghodss/yaml"
	"github.com/goccy/go-json"
	"github.com/relloyd/obspipe/config"
	"github.com/relloyd/obspipe/logger"
)

const defaultLogLevel = "info"

// logLevel picks the CLI level over the pipeline definition, falling back to info.
func logLevel(cliLevel string, cfg *config.PipelineConfig) string {
	if cliLevel != "" {
		return cliLevel
	}
	if cfg != nil && cfg.LogLevel != "" {
		return cfg.LogLevel
	}
	return defaultLogLevel
}

// WriteOutput marshals v as "yaml" or "json" to w.
func WriteOutput(w io.Writer, v interface{}, format string) error {
	var data []byte
	var err error
	switch format {
	case "yaml":
		data, err = yaml.Marshal(v)
	case "json", "":
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func getPrintLogFunc(log logger.Logger, w io.Writer) func(msg string) {
	return func(msg string) {
		if w != nil {
			_, _ = fmt.Fprintln(w, msg)
		} else {
			log.Info(msg)
		}
	}
}
