package config

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/hyp3rd/ewrap/pkg/ewrap"
	"github.com/hyp3rd/mssql-tool-server/internal/constants"
	"github.com/hyp3rd/mssql-tool-server/internal/secrets"
	"github.com/spf13/viper"
)

// Config is the immutable-after-load configuration snapshot described in
// spec.md §3. Every exported field is a value the orchestrator (C8) resolved
// once at startup from defaults, environment variables, an optional YAML
// file, and an optional secrets provider. Nothing downstream of NewConfig
// mutates it outside of the test-only ReloadSecrets/RotateSecrets path.
type Config struct {
	Environment string         `mapstructure:"environment"`
	MSSQL       MSSQLConfig    `mapstructure:"mssql"`
	Safety      SafetyConfig   `mapstructure:"safety"`
	Perf        PerfConfig     `mapstructure:"perf"`
	Stream      StreamConfig   `mapstructure:"stream"`
	LogLevel    string         `mapstructure:"log_level"`
	AuditEnabled bool          `mapstructure:"audit_enabled"`
	Secrets     *secrets.Store `mapstructure:"-"` // Secrets are handled separately

	mu sync.RWMutex
	// rotationCallbacks holds functions to be called after secret rotation
	rotationCallbacks []RotationCallback
	// secretsManager holds the reference to our secrets manager
	secretsManager *secrets.Manager
}

// RotationCallback is a function that gets called after secrets are rotated.
type RotationCallback func(ctx context.Context, oldSecrets, newSecrets *secrets.Store) error

// Options holds configuration options for initializing the Config.
type Options struct {
	// ConfigName is the name of the configuration file (without extension).
	ConfigName string
	// SecretsProvider is the interface for accessing secrets.
	SecretsProvider secrets.Provider
	// Timeout for secrets operations.
	Timeout time.Duration
}

// DefaultOptions returns the default configuration options.
func DefaultOptions() Options {
	return Options{
		ConfigName: "config",
		Timeout:    constants.DefaultTimeout,
	}
}

// NewConfig loads the server configuration from a YAML file, environment
// variables, and an optional secrets provider, validating the result before
// returning it (spec.md §4.1).
func NewConfig(ctx context.Context, opts Options) (*Config, error) {
	if opts.ConfigName == "" {
		opts.ConfigName = DefaultOptions().ConfigName
	}

	if opts.Timeout == 0 {
		opts.Timeout = DefaultOptions().Timeout
	}

	viper.SetConfigName(opts.ConfigName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.SetEnvPrefix(constants.EnvPrefix.String())
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, ewrap.Wrapf(err, "reading config file")
		}
	}

	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, ewrap.Wrapf(err, "unmarshaling config")
	}

	if opts.SecretsProvider != nil {
		if err := cfg.initializeSecrets(ctx, opts); err != nil {
			return nil, ewrap.Wrapf(err, "initializing secrets")
		}
	}

	if viper.IsSet("mssql.trust_server_certificate") {
		cfg.MSSQL.SetTrustServerCertificateExplicit(cfg.MSSQL.TrustServerCertificate)
	}

	cfg.MSSQL.ResolveTrust(cfg.Environment)

	if err := validateConfig(&cfg); err != nil {
		return nil, ewrap.Wrap(err, "validating configuration")
	}

	return &cfg, nil
}

// initializeSecrets loads secrets from the provided secrets provider.
func (c *Config) initializeSecrets(ctx context.Context, opts Options) error {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	manager := secrets.NewManager(opts.SecretsProvider)

	if err := manager.Load(ctx); err != nil {
		return ewrap.Wrapf(err, "loading secrets")
	}

	c.Secrets = manager.GetStore()
	c.secretsManager = manager

	return c.applySecrets()
}

// applySecrets updates the configuration with values from the secrets store.
func (c *Config) applySecrets() error {
	if c.Secrets == nil {
		return ewrap.New("secrets are empty")
	}

	if c.Secrets.DBCredentials.Username != "" {
		c.MSSQL.User = c.Secrets.DBCredentials.Username
	}

	if c.Secrets.DBCredentials.Password != "" {
		c.MSSQL.Password = c.Secrets.DBCredentials.Password
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("mssql.port", constants.DefaultPort)
	viper.SetDefault("mssql.connect_timeout_ms", constants.DefaultConnectTimeoutMs)
	viper.SetDefault("mssql.request_timeout_ms", constants.DefaultRequestTimeoutMs)
	viper.SetDefault("mssql.max_retries", constants.DefaultMaxRetries)
	viper.SetDefault("mssql.retry_delay_ms", constants.DefaultRetryDelayMs)
	viper.SetDefault("mssql.pool_max", constants.DefaultPoolMax)
	viper.SetDefault("mssql.pool_min", constants.DefaultPoolMin)
	viper.SetDefault("mssql.pool_idle_ms", constants.DefaultPoolIdleMs)

	viper.SetDefault("safety.read_only_mode", constants.DefaultReadOnlyMode)
	viper.SetDefault("safety.allow_destructive", constants.DefaultAllowDestructive)
	viper.SetDefault("safety.allow_schema_changes", constants.DefaultAllowSchemaChanges)

	viper.SetDefault("perf.enabled", constants.DefaultPerfEnabled)
	viper.SetDefault("perf.max_history", constants.DefaultPerfMaxHistory)
	viper.SetDefault("perf.slow_query_ms", constants.DefaultSlowQueryMs)
	viper.SetDefault("perf.sampling_rate", constants.DefaultPerfSamplingRate)
	viper.SetDefault("perf.track_pool", constants.DefaultTrackPool)

	viper.SetDefault("stream.enabled", constants.DefaultStreamingEnabled)
	viper.SetDefault("stream.batch_rows", constants.DefaultStreamBatchRows)
	viper.SetDefault("stream.mem_limit_mb", constants.DefaultStreamMemLimitMB)
	viper.SetDefault("stream.response_limit_bytes", constants.DefaultStreamResponseLimitBytes)

	viper.SetDefault("log_level", constants.DefaultLogLevel)
	viper.SetDefault("audit_enabled", constants.DefaultAuditEnabled)
}

func validateConfig(cfg *Config) error {
	validator := NewValidator()

	return validator.Validate(&cfg.MSSQL, &cfg.Safety, &cfg.Perf, &cfg.Stream)
}

// RegisterRotationCallback adds a callback to be executed after secret rotation.
func (c *Config) RegisterRotationCallback(callback RotationCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rotationCallbacks = append(c.rotationCallbacks, callback)
}

// ReloadSecrets refreshes all secrets from the provider. Production code
// never calls this — the snapshot is immutable after load (spec.md §3) — but
// tests use it to exercise rotation behavior without restarting the process.
func (c *Config) ReloadSecrets(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.secretsManager == nil {
		return ewrap.New("secrets manager not initialized")
	}

	oldSecrets := c.Secrets

	if err := c.secretsManager.Load(ctx); err != nil {
		return ewrap.Wrapf(err, "reloading secrets")
	}

	newSecrets := c.secretsManager.GetStore()
	c.Secrets = newSecrets

	if err := c.applySecrets(); err != nil {
		c.Secrets = oldSecrets

		return ewrap.Wrapf(err, "applying reloaded secrets")
	}

	for _, callback := range c.rotationCallbacks {
		if err := callback(ctx, oldSecrets, newSecrets); err != nil {
			c.logRotationCallbackError(err)
		}
	}

	return nil
}

func (c *Config) logRotationCallbackError(_ error) {
	// Rotation callbacks are best-effort; the caller's logger records failures.
}

// RotateSecrets performs a full secret rotation: new credentials are
// generated and swapped in under the config lock. If applying them fails, the
// previous secrets are restored; the new credentials are not tested against
// the server before they are swapped in.
func (c *Config) RotateSecrets(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.secretsManager == nil {
		return ewrap.New("secrets manager not initialized")
	}

	oldSecrets := c.Secrets

	rotationCtx, cancel := context.WithTimeout(ctx, 5*time.Minute) //nolint:mnd
	defer cancel()

	newSecrets, err := c.performRotation(rotationCtx)
	if err != nil {
		return err
	}

	c.Secrets = newSecrets

	if err := c.applySecrets(); err != nil {
		c.Secrets = oldSecrets
		c.secretsManager.SetStore(oldSecrets)

		return ewrap.Wrapf(err, "applying rotated secrets")
	}

	return c.executeRotationCallbacks(ctx, oldSecrets, newSecrets)
}

func (c *Config) performRotation(ctx context.Context) (*secrets.Store, error) {
	newSecrets := &secrets.Store{}

	if err := c.rotateDatabaseCredentials(ctx, newSecrets); err != nil {
		return nil, ewrap.Wrapf(err, "rotating database credentials")
	}

	return newSecrets, nil
}

func (c *Config) rotateDatabaseCredentials(ctx context.Context, newSecrets *secrets.Store) error {
	username, err := generateSecureString(32) //nolint:mnd
	if err != nil {
		return ewrap.Wrapf(err, "generating new username")
	}

	password, err := generateSecureString(64) //nolint:mnd
	if err != nil {
		return ewrap.Wrapf(err, "generating new password")
	}

	newSecrets.DBCredentials.Username = username
	newSecrets.DBCredentials.Password = password

	if err := c.secretsManager.Provider.SetSecret(ctx, "DB_USERNAME", username); err != nil {
		return ewrap.Wrapf(err, "storing username")
	}

	if err := c.secretsManager.Provider.SetSecret(ctx, "DB_PASSWORD", password); err != nil {
		return ewrap.Wrapf(err, "storing password")
	}

	return nil
}

func generateSecureString(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", ewrap.Wrapf(err, "generating random bytes")
	}

	return base64.URLEncoding.EncodeToString(bytes)[:length], nil
}

func (c *Config) executeRotationCallbacks(ctx context.Context, oldSecrets, newSecrets *secrets.Store) error {
	var errs []error

	for _, callback := range c.rotationCallbacks {
		if err := callback(ctx, oldSecrets, newSecrets); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return ewrap.New("one or more rotation callbacks failed").
			WithMetadata("errors", errs)
	}

	return nil
}
