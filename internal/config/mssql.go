package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/hyp3rd/ewrap/pkg/ewrap"
)

// implement the validatable interface.
var _ validatable = (*MSSQLConfig)(nil)

// MSSQLConfig holds the connection target, credentials, and pool tuning for
// the single SQL Server instance this process mediates (spec.md §3).
type MSSQLConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Domain   string `mapstructure:"domain"`

	Encrypt                 bool `mapstructure:"encrypt"`
	TrustServerCertificate  bool `mapstructure:"trust_server_certificate"`
	trustExplicitlySet      bool

	ConnectTimeoutMs int `mapstructure:"connect_timeout_ms"`
	RequestTimeoutMs int `mapstructure:"request_timeout_ms"`
	MaxRetries       int `mapstructure:"max_retries"`
	RetryDelayMs     int `mapstructure:"retry_delay_ms"`

	PoolMax     int `mapstructure:"pool_max"`
	PoolMin     int `mapstructure:"pool_min"`
	PoolIdleMs  int `mapstructure:"pool_idle_ms"`
}

// SetTrustServerCertificateExplicit records that the operator set
// trust_server_certificate explicitly, so ResolveTrust leaves it alone.
// Exported for tests that build an MSSQLConfig by hand.
func (c *MSSQLConfig) SetTrustServerCertificateExplicit(v bool) {
	c.TrustServerCertificate = v
	c.trustExplicitlySet = true
}

// ResolveTrust derives TrustServerCertificate via DeriveTrustServerCertificate
// when the operator never set it explicitly (spec.md §4.1). viper cannot tell
// us "unset" from "false", so NewConfig treats an absent trust_server_certificate
// key in both the file and the environment as "not explicitly set".
func (c *MSSQLConfig) ResolveTrust(environment string) {
	if c.trustExplicitlySet {
		return
	}

	c.TrustServerCertificate = DeriveTrustServerCertificate(c.Host, environment)
}

// ConnectTimeout returns ConnectTimeoutMs as a time.Duration.
func (c *MSSQLConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMs) * time.Millisecond
}

// RequestTimeout returns RequestTimeoutMs as a time.Duration.
func (c *MSSQLConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// RetryDelay returns RetryDelayMs as a time.Duration.
func (c *MSSQLConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// PoolIdleTimeout returns PoolIdleMs as a time.Duration.
func (c *MSSQLConfig) PoolIdleTimeout() time.Duration {
	return time.Duration(c.PoolIdleMs) * time.Millisecond
}

// IntegratedAuth reports whether the config asks for Windows/NTLM integrated
// authentication rather than SQL authentication (spec.md §4.2: "integrated
// when no user is configured").
func (c *MSSQLConfig) IntegratedAuth() bool {
	return c.User == ""
}

// DSN builds the sqlserver:// connection URL for github.com/microsoft/go-mssqldb.
func (c *MSSQLConfig) DSN() string {
	query := url.Values{}
	query.Set("database", c.Database)

	if c.Encrypt {
		query.Set("encrypt", "true")
	} else {
		query.Set("encrypt", "disable")
	}

	if c.TrustServerCertificate {
		query.Set("TrustServerCertificate", "true")
	}

	if c.ConnectTimeoutMs > 0 {
		query.Set("dial timeout", fmt.Sprintf("%d", c.ConnectTimeoutMs/1000)) //nolint:mnd
	}

	u := url.URL{
		Scheme:   "sqlserver",
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		RawQuery: query.Encode(),
	}

	if c.IntegratedAuth() {
		if c.Domain != "" {
			query.Set("domain", c.Domain)
			u.RawQuery = query.Encode()
		}

		return u.String()
	}

	u.User = url.UserPassword(c.User, c.Password)

	return u.String()
}

// MaskedDSN renders the DSN with the password redacted, safe for logging.
func (c *MSSQLConfig) MaskedDSN() string {
	if c.IntegratedAuth() {
		return c.DSN()
	}

	masked := *c
	masked.Password = "********"

	return masked.DSN()
}

// Validate checks the MSSQLConfig's invariants (spec.md §3).
func (c *MSSQLConfig) Validate(eg *ewrap.ErrorGroup) {
	if c.Host == "" {
		eg.Add(ewrap.New("mssql host is required"))
	}

	if c.Port <= 0 || c.Port > 65535 { //nolint:mnd
		eg.Add(ewrap.New("mssql port must be between 1 and 65535").WithMetadata("port", c.Port))
	}

	if c.Database == "" {
		eg.Add(ewrap.New("mssql database is required"))
	}

	if c.ConnectTimeoutMs < 0 {
		eg.Add(ewrap.New("mssql connect_timeout_ms must be non-negative"))
	}

	if c.RequestTimeoutMs < 0 {
		eg.Add(ewrap.New("mssql request_timeout_ms must be non-negative"))
	}

	if c.MaxRetries < 0 {
		eg.Add(ewrap.New("mssql max_retries must be non-negative"))
	}

	if c.RetryDelayMs < 0 {
		eg.Add(ewrap.New("mssql retry_delay_ms must be non-negative"))
	}

	if c.PoolMax < 1 {
		eg.Add(ewrap.New("mssql pool_max must be at least 1"))
	}

	if c.PoolMin < 0 {
		eg.Add(ewrap.New("mssql pool_min must be non-negative"))
	}

	if c.PoolMin > c.PoolMax {
		eg.Add(ewrap.New("mssql pool_min must not exceed pool_max").
			WithMetadata("pool_min", c.PoolMin).
			WithMetadata("pool_max", c.PoolMax))
	}

	if c.PoolIdleMs < 0 {
		eg.Add(ewrap.New("mssql pool_idle_ms must be non-negative"))
	}
}
