package constants

// API

const (
	ApiPathAuthenticate       = "/external/api/v1.0/Authenticate/Authenticate"
	ApiPathObservationSummary = "/external/api/v1.0/Observation/ObservationSummary"
	ApiPathObservationDetails = "/external/api/v1.0/Observation/ObservationDetails"
	ApiHeaderUserID           = "user_id"
	ApiHeaderToken            = "token"
	ApiContentType            = "application/json"
	ApiDateFormat             = "01/02/2006 03:04 PM" // MM/DD/YYYY hh:mm AM/PM
	ApiDateFormatRegex        = `^[0-9]{2}/[0-9]{2}/[0-9]{4} [0-9]{2}:[0-9]{2} (AM|PM)$`
)

// Pipeline

const (
	DefaultSiteBatchSize     = 5
	DefaultLookbackDays      = 7
	DefaultEnvironment       = "production"
	DefaultInsertBatchRows   = 500
	DefaultHttpTimeoutSecs   = 0                 // no client timeout unless configured
	TimeFormatYearSeconds    = "20060102T150405" // used for human readable file names
	TimeFormatYearSecondsTZ  = "20060102T150405-0700"
	PartitionColumnName      = "last_updated"
	SummaryCollectionName    = "observation_summary"
	SummaryPayloadKey        = "observation_summary"
	SiteIDFieldName          = "site_id"
	HasActiveLicenseField    = "has_active_license"
	EnvVarPrefix             = "OP" // prefix for environment variables in twelveFactorMode
	ServiceName              = "obspipe"
	StageFileExtension       = "csv"
	StageMaxFileRows         = 100000
)

// Raw payload archive

const (
	RawArchiveContentType     = "application/json"
	RawArchiveContentEncoding = "gzip"
	RawArchiveSummaryPrefix   = "summary"
	RawArchiveDetailsPrefix   = "details"
)

// Tables

const (
	TableObservationSummary = "observation_summary"
	TableHcoDetails         = "hco_details"
	TablePrograms           = "programs"
	TableTracerDetails      = "tracer_details"
	TableObservationHeaders = "observation_headers"
	TableObservationDetails = "observation_details"
	TableObservationNotes   = "observation_notes"
)

// DetailCollections lists the detail payload keys in the order they are loaded.
var DetailCollections = []string{
	TableHcoDetails,
	TablePrograms,
	TableTracerDetails,
	TableObservationHeaders,
	TableObservationDetails,
	TableObservationNotes,
}

// Environments accepted in pipeline configuration.
var Environments = []string{"production", "development", "testing"}

// Warehouse connection types

const (
	ConnectionTypeSnowflake     = "snowflake"
	ConnectionTypeDuckDB        = "duckdb"
	ConnectionTypeNetezza       = "netezza"
	ConnectionTypeOdbc          = "odbc" // this is not a real connection type, since we need a suffix to provide the driver name like sqlserver.
	ConnectionTypeOdbcSqlServer = "odbc+sqlserver"
	ConnectionTypeSqlServer     = "sqlserver"
	ConnectionTypeMock          = "mock"
	ConnectionTypeS3            = "s3"
)
