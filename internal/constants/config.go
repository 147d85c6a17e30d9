package constants

import "time"

// ConfigEnvKey names an environment variable the config resolver recognizes.
type ConfigEnvKey string

const (
	// EnvPrefix namespaces environment-sourced secrets (e.g. MSSQLTOOL_DB_USERNAME).
	EnvPrefix = ConfigEnvKey("MSSQLTOOL")
	// DBUsername is the environment variable name for the database username.
	DBUsername = ConfigEnvKey("DB_USERNAME")
	// DBPassword is the environment variable name for the database password.
	DBPassword = ConfigEnvKey("DB_PASSWORD")
)

// String implements the flag.Value interface.
func (k ConfigEnvKey) String() string {
	return string(k)
}

// Defaults mirror spec.md §3/§4 and §6; every one is operator-tunable.
const (
	DefaultTimeout = 30 * time.Second

	DefaultPort             = 1433
	DefaultConnectTimeoutMs = 15000
	DefaultRequestTimeoutMs = 30000
	DefaultMaxRetries       = 3
	DefaultRetryDelayMs     = 500
	DefaultPoolMax          = 10
	DefaultPoolMin          = 0
	DefaultPoolIdleMs       = 30000

	// Three-tier safety defaults are secure-by-default: read-only until an
	// operator explicitly relaxes them (spec.md §1).
	DefaultReadOnlyMode       = true
	DefaultAllowDestructive   = false
	DefaultAllowSchemaChanges = false

	DefaultPerfEnabled      = true
	DefaultPerfMaxHistory   = 1000
	DefaultSlowQueryMs      = 1000
	DefaultPerfSamplingRate = 1.0
	DefaultTrackPool        = true

	DefaultStreamingEnabled         = false
	DefaultStreamBatchRows          = 100
	DefaultStreamMemLimitMB         = 64
	DefaultStreamResponseLimitBytes = 10 * 1024 * 1024

	DefaultLogLevel     = "info"
	DefaultAuditEnabled = true

	// StatementFingerprintCacheSize bounds the LRU used to memoize statement
	// fingerprints (see internal/perfobs).
	StatementFingerprintCacheSize = 512

	// MaxStoredStatementBytes truncates statement text before it is retained
	// in a query record (spec.md §3: "stored truncated").
	MaxStoredStatementBytes = 1024
)
