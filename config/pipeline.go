package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	"github.com/relloyd/obspipe/archive"
	"github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/helper"
	"github.com/relloyd/obspipe/rdbms"
	"github.com/relloyd/obspipe/rdbms/shared"
)

// PipelineConfig is the definition of a pipeline run.
// It can be read from a YAML or JSON file and overridden by OP_ environment variables.
type PipelineConfig struct {
	Environment    string          `json:"environment" errorTxt:"environment" mandatory:"yes" validate:"oneof=production development testing"`
	LogLevel       string          `json:"logLevel,omitempty" errorTxt:"log level" validate:"omitempty,oneof=trace debug info warn error"`
	API            APIConfig       `json:"api"`
	Warehouse      WarehouseConfig `json:"warehouse"`
	Batch          BatchConfig     `json:"batch"`
	Archive        *archive.Config `json:"archive,omitempty"`
	Stage          *StageConfig    `json:"stage,omitempty"`
	PushgatewayURL string          `json:"pushgatewayUrl,omitempty" errorTxt:"pushgateway URL" validate:"omitempty,url"`
}

type APIConfig struct {
	BaseURL           string  `json:"baseUrl" errorTxt:"API base URL" mandatory:"yes" validate:"url"`
	UserLogonID       string  `json:"userLogonId" errorTxt:"API user logon id" mandatory:"yes"`
	Password          string  `json:"password" errorTxt:"API password" mandatory:"yes"`
	TimeoutSeconds    int     `json:"timeoutSeconds,omitempty" errorTxt:"API timeout seconds" validate:"gte=0"`
	MaxRetries        int     `json:"maxRetries,omitempty" errorTxt:"API max retries" validate:"gte=0"`
	RequestsPerSecond float64 `json:"requestsPerSecond,omitempty" errorTxt:"API requests per second" validate:"gte=0"`
	CircuitBreaker    bool    `json:"circuitBreaker,omitempty"`
}

// WarehouseConfig names the target database. Dsn takes priority over Connection.
type WarehouseConfig struct {
	Connection      string `json:"connection,omitempty"`
	Dsn             string `json:"dsn,omitempty"`
	ProjectID       string `json:"projectId,omitempty"`
	DatasetID       string `json:"datasetId,omitempty"`
	InsertBatchRows int    `json:"insertBatchRows,omitempty" errorTxt:"insert batch rows" validate:"gte=0"`
}

type BatchConfig struct {
	BatchSize        int  `json:"batchSize" errorTxt:"batch size" validate:"gt=0"`
	LookbackDays     int  `json:"lookbackDays" errorTxt:"lookback days" validate:"gt=0"`
	FailOnBatchError bool `json:"failOnBatchError,omitempty"`
}

// StageConfig enables staged loads through an S3 bucket and a Snowflake external stage.
type StageConfig struct {
	Bucket    string `json:"bucket" errorTxt:"stage bucket s3://<bucket>/<prefix>" mandatory:"yes"`
	Region    string `json:"region" errorTxt:"stage bucket region" mandatory:"yes"`
	StageName string `json:"stageName" errorTxt:"snowflake stage name" mandatory:"yes"`
	KeepFiles bool   `json:"keepFiles,omitempty"`
}

// NewPipelineConfig returns a PipelineConfig holding the defaults.
func NewPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		Environment: constants.DefaultEnvironment,
		Batch: BatchConfig{
			BatchSize:    constants.DefaultSiteBatchSize,
			LookbackDays: constants.DefaultLookbackDays,
		},
		Warehouse: WarehouseConfig{InsertBatchRows: constants.DefaultInsertBatchRows},
	}
}

// LoadPipelineConfig reads the YAML or JSON file at fileName over the defaults.
// An empty fileName gives the defaults only.
func LoadPipelineConfig(fileName string) (*PipelineConfig, error) {
	cfg := NewPipelineConfig()
	if fileName == "" {
		return cfg, nil
	}
	b, err := ioutil.ReadFile(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading pipeline config %v", fileName)
	}
	if err = ParsePipelineConfig(b, cfg); err != nil {
		return nil, errors.Wrapf(err, "error parsing pipeline config %v", fileName)
	}
	return cfg, nil
}

// ParsePipelineConfig unmarshals YAML or JSON in b into cfg.
// Fields missing from b keep the values already in cfg.
func ParsePipelineConfig(b []byte, cfg *PipelineConfig) error {
	return yaml.Unmarshal(b, cfg)
}

type envOverride struct {
	name string
	set  func(c *PipelineConfig, v string) error
}

func setInt(field func(c *PipelineConfig) *int) func(c *PipelineConfig, v string) error {
	return func(c *PipelineConfig, v string) error {
		i, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = i
		return nil
	}
}

// envOverrides lists the environment variables read by ApplyEnv, without the OP_ prefix.
var envOverrides = []envOverride{
	{"environment", func(c *PipelineConfig, v string) error { c.Environment = v; return nil }},
	{"log-level", func(c *PipelineConfig, v string) error { c.LogLevel = v; return nil }},
	{"base-url", func(c *PipelineConfig, v string) error { c.API.BaseURL = v; return nil }},
	{"user-logon-id", func(c *PipelineConfig, v string) error { c.API.UserLogonID = v; return nil }},
	{"password", func(c *PipelineConfig, v string) error { c.API.Password = v; return nil }},
	{"api-timeout", setInt(func(c *PipelineConfig) *int { return &c.API.TimeoutSeconds })},
	{"api-max-retries", setInt(func(c *PipelineConfig) *int { return &c.API.MaxRetries })},
	{"api-requests-per-second", func(c *PipelineConfig, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		c.API.RequestsPerSecond = f
		return nil
	}},
	{"api-circuit-breaker", func(c *PipelineConfig, v string) error {
		b, err := strconv.ParseBool(v)
		c.API.CircuitBreaker = b
		return err
	}},
	{"warehouse-connection", func(c *PipelineConfig, v string) error { c.Warehouse.Connection = v; return nil }},
	{"warehouse-dsn", func(c *PipelineConfig, v string) error { c.Warehouse.Dsn = v; return nil }},
	{"project-id", func(c *PipelineConfig, v string) error { c.Warehouse.ProjectID = v; return nil }},
	{"dataset-id", func(c *PipelineConfig, v string) error { c.Warehouse.DatasetID = v; return nil }},
	{"insert-batch-rows", setInt(func(c *PipelineConfig) *int { return &c.Warehouse.InsertBatchRows })},
	{"batch-size", setInt(func(c *PipelineConfig) *int { return &c.Batch.BatchSize })},
	{"lookback-days", setInt(func(c *PipelineConfig) *int { return &c.Batch.LookbackDays })},
	{"fail-on-batch-error", func(c *PipelineConfig, v string) error {
		b, err := strconv.ParseBool(v)
		c.Batch.FailOnBatchError = b
		return err
	}},
	{"pushgateway-url", func(c *PipelineConfig, v string) error { c.PushgatewayURL = v; return nil }},
}

// PipelineEnvVars returns the names of the environment variables read by ApplyEnv.
func PipelineEnvVars() []string {
	retval := make([]string, 0, len(envOverrides))
	for _, o := range envOverrides {
		retval = append(retval, helper.GetEnvVarName(o.name))
	}
	return retval
}

// ApplyEnv overrides fields of c with any OP_ environment variables that are set.
func (c *PipelineConfig) ApplyEnv() error {
	errs := make([]string, 0)
	for _, o := range envOverrides {
		k := helper.GetEnvVarName(o.name)
		v := strings.TrimSpace(os.Getenv(k))
		if v == "" {
			continue
		}
		if err := o.set(c, v); err != nil {
			errs = append(errs, fmt.Sprintf("%v: %v", k, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid environment variables: %v", strings.Join(errs, "; "))
	}
	return nil
}

// ApplyCredentials fills the API settings that are not already set from the stored credentials.
func (c *PipelineConfig) ApplyCredentials(a APICredentials) {
	if c.API.BaseURL == "" {
		c.API.BaseURL = a.BaseURL
	}
	if c.API.UserLogonID == "" {
		c.API.UserLogonID = a.UserLogonID
	}
	if c.API.Password == "" {
		c.API.Password = a.Password
	}
}

// Validate checks mandatory values and value rules.
// Every problem found is returned in one error.
func (c *PipelineConfig) Validate() error {
	problems := make([]string, 0)
	if err := helper.ValidateStruct(c); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Warehouse.Dsn == "" && c.Warehouse.Connection == "" {
		problems = append(problems, "please supply a warehouse connection name or DSN")
	}
	if c.Warehouse.ProjectID != "" && c.Warehouse.DatasetID == "" {
		problems = append(problems, "warehouse projectId requires a datasetId")
	}
	if c.Archive != nil {
		if err := helper.ValidateStructIsPopulated(c.Archive); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if c.Stage != nil {
		if err := helper.ValidateStructIsPopulated(c.Stage); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "\n"))
	}
	return nil
}

// TargetSchema returns [<projectId>.]<datasetId>, which may be empty to use the connection default.
func (c *PipelineConfig) TargetSchema() string {
	if c.Warehouse.DatasetID == "" {
		return ""
	}
	if c.Warehouse.ProjectID == "" {
		return c.Warehouse.DatasetID
	}
	return c.Warehouse.ProjectID + "." + c.Warehouse.DatasetID
}

// WarehouseConnection resolves the warehouse to connection details.
// A DSN is used directly, otherwise the named connection is loaded using getter.
func (c *PipelineConfig) WarehouseConnection(getter shared.ConnectionGetter) (shared.ConnectionDetails, error) {
	if c.Warehouse.Dsn != "" {
		t, err := rdbms.ConnectionTypeFromDsn(c.Warehouse.Dsn)
		if err != nil {
			return shared.ConnectionDetails{}, err
		}
		return shared.ConnectionDetails{
			Type:        t,
			LogicalName: "warehouse",
			Data:        map[string]string{shared.DefaultDsnConnectionKeyNames.Dsn: c.Warehouse.Dsn},
		}, nil
	}
	if c.Warehouse.Connection == "" {
		return shared.ConnectionDetails{}, errors.New("no warehouse connection or DSN configured")
	}
	if getter == nil {
		return shared.ConnectionDetails{}, fmt.Errorf("unable to load warehouse connection %q without a connection store", c.Warehouse.Connection)
	}
	return getter.LoadConnection(c.Warehouse.Connection)
}

// String renders c as YAML with secrets hidden.
func (c PipelineConfig) String() string {
	c.API.Password = redacted(c.API.Password)
	if c.Warehouse.Dsn != "" {
		t, _ := rdbms.ConnectionTypeFromDsn(c.Warehouse.Dsn)
		c.Warehouse.Dsn = shared.RedactDsn(t, c.Warehouse.Dsn)
	}
	if c.Archive != nil {
		a := *c.Archive
		a.SecretKey = redacted(a.SecretKey)
		c.Archive = &a
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<error rendering config: %v>", err)
	}
	return string(b)
}

func redacted(s string) string {
	if s == "" {
		return ""
	}
	return "xxxxx"
}
