package warehouse

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/obspipe/aws/s3"
	"github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/file"
	"github.com/relloyd/obspipe/helper"
	"github.com/relloyd/obspipe/logger"
	"github.com/relloyd/obspipe/rdbms"
	"github.com/relloyd/obspipe/rdbms/shared"
	"github.com/relloyd/obspipe/schema"
)

// csvNull is written for nil values and declared as NULL_IF in the COPY statement.
const csvNull = `\N`

// StageConfig sets up loads through gzipped CSV files in an S3 bucket that a Snowflake external stage reads.
type StageConfig struct {
	Bucket      s3.BasicClient
	StageName   string `errorTxt:"snowflake external stage name" mandatory:"yes"`
	Directory   string // local directory for CSV files; a temp directory is used when blank.
	MaxFileRows int
	KeepFiles   bool // do not delete staged S3 objects after loading.
}

type stager struct {
	log logger.Logger
	cfg *StageConfig
}

func newStager(log logger.Logger, cfg *StageConfig) (*stager, error) {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return nil, err
	}
	if cfg.Bucket == nil {
		return nil, errors.New("staged loads require an S3 bucket")
	}
	if cfg.MaxFileRows <= 0 {
		cfg.MaxFileRows = constants.StageMaxFileRows
	}
	return &stager{log: log, cfg: cfg}, nil
}

// load writes tr to CSV files, uploads them and copies them into st using tx.
// Files are loaded with force=true when the table has just been emptied so they are never skipped as already loaded.
func (s *stager) load(ctx context.Context, tx shared.Transacter, st rdbms.SchemaTable, tr *TypedRecords, force bool) (int, error) {
	if tr.Len() == 0 {
		return 0, nil
	}
	prefix := fmt.Sprintf("%v_%v", tr.Schema.Name, helper.FileNameTimestamp(time.Now()))
	out, err := file.NewCSVFileOutput(s.log, s.cfg.Directory, prefix, constants.StageFileExtension, s.cfg.MaxFileRows, 0, true)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := out.RemoveAll(); err != nil {
			s.log.Warn("error removing staged CSV files: ", err)
		}
	}()
	for _, row := range tr.Rows {
		rec, err := csvRecord(row)
		if err != nil {
			return 0, err
		}
		if _, err := out.WriteToCSV(rec); err != nil {
			return 0, err
		}
	}
	if err := out.Close(); err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(out.ListOfOutputFiles))
	defer func() {
		if s.cfg.KeepFiles {
			return
		}
		for _, k := range keys {
			if err := s.cfg.Bucket.Delete(ctx, k); err != nil && !errors.Is(err, s3.ErrKeyNotFound) {
				s.log.Warn("error deleting staged object ", s.cfg.Bucket.URL(k), ": ", err)
			}
		}
	}()
	for _, name := range out.ListOfOutputFiles {
		key := path.Join(tr.Schema.Name, filepath.Base(name))
		if err := s.put(ctx, key, name); err != nil {
			return 0, err
		}
		keys = append(keys, key)
		for _, stmt := range CopyIntoSql(st, s.cfg.StageName, key, force) {
			s.log.Debug("executing: ", stmt)
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return 0, errors.Wrapf(err, "error executing %q", stmt)
			}
		}
	}
	return out.TotalRows(), nil
}

func (s *stager) put(ctx context.Context, key string, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	s.log.Info("staging ", name, " to ", s.cfg.Bucket.URL(key))
	return errors.Wrapf(s.cfg.Bucket.BufferPut(ctx, key, f), "error staging %v", name)
}

// CopyIntoSql returns the statements that copy the staged file key into st.
func CopyIntoSql(st rdbms.SchemaTable, stageName string, key string, force bool) []string {
	forceSql := ""
	if force {
		forceSql = " force=true"
	}
	return []string{fmt.Sprintf(
		`copy into %v from '@%v' file_format = (type = csv compression = gzip field_optionally_enclosed_by = '"' null_if = ('\\N'))%v`,
		st.String(), path.Join(stageName, key), forceSql)}
}

// csvRecord renders typed values as CSV fields.
func csvRecord(row []interface{}) ([]string, error) {
	retval := make([]string, len(row))
	for idx, v := range row {
		if v == nil {
			retval[idx] = csvNull
			continue
		}
		s, err := schema.ToString(v)
		if err != nil {
			return nil, err
		}
		retval[idx] = s
	}
	return retval, nil
}
