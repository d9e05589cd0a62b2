package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	DBDriver    string
	DatabaseDSN string
	NATSURL     string
	LogLevel    string

	LeaseStaleAfter   time.Duration
	LeaseClaimRetries int
	DefaultTimezone   string
	// TenantTimezones is the raw "tenant=Area/City,..." list.
	TenantTimezones string

	WorkerPollInterval time.Duration
	OutboxBatchSize    int
	EnableReconciler   bool
	EnableOutboxRelay  bool
}

const (
	DriverPostgres  = "postgres"
	DriverSQLServer = "sqlserver"
	DriverSQLite    = "sqlite"
)

// SetDefaults registers every key with its default so environment variables are
// picked up by AutomaticEnv even without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "routeops")
	v.SetDefault("http_port", "8080")
	v.SetDefault("db_driver", DriverPostgres)
	v.SetDefault("database_dsn", "")
	v.SetDefault("nats_url", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("lease_stale_after", "10m")
	v.SetDefault("lease_claim_retries", 3)
	v.SetDefault("default_timezone", "UTC")
	v.SetDefault("tenant_timezones", "")
	v.SetDefault("worker_poll_interval", "2s")
	v.SetDefault("outbox_batch_size", 100)
	v.SetDefault("enable_reconciler", true)
	v.SetDefault("enable_outbox_relay", true)
}

// Bind wires environment lookup onto v. POSTGRES_DSN is kept as an alias of
// DATABASE_DSN for existing deployments.
func Bind(v *viper.Viper) {
	SetDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database_dsn", "DATABASE_DSN", "POSTGRES_DSN")
}

// Load reads configuration from the global viper instance, which the CLI
// prepares with flags and an optional config file.
func Load() (Config, error) {
	Bind(viper.GetViper())
	return LoadFrom(viper.GetViper())
}

func LoadFrom(v *viper.Viper) (Config, error) {
	cfg := Config{
		ServiceName:        strings.TrimSpace(v.GetString("service_name")),
		HTTPPort:           strings.TrimSpace(v.GetString("http_port")),
		DBDriver:           strings.ToLower(strings.TrimSpace(v.GetString("db_driver"))),
		DatabaseDSN:        strings.TrimSpace(v.GetString("database_dsn")),
		NATSURL:            strings.TrimSpace(v.GetString("nats_url")),
		LogLevel:           strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
		LeaseStaleAfter:    v.GetDuration("lease_stale_after"),
		LeaseClaimRetries:  v.GetInt("lease_claim_retries"),
		DefaultTimezone:    strings.TrimSpace(v.GetString("default_timezone")),
		TenantTimezones:    strings.TrimSpace(v.GetString("tenant_timezones")),
		WorkerPollInterval: v.GetDuration("worker_poll_interval"),
		OutboxBatchSize:    v.GetInt("outbox_batch_size"),
		EnableReconciler:   v.GetBool("enable_reconciler"),
		EnableOutboxRelay:  v.GetBool("enable_outbox_relay"),
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "routeops"
	}
	if cfg.HTTPPort == "" {
		cfg.HTTPPort = "8080"
	}
	if cfg.DefaultTimezone == "" {
		cfg.DefaultTimezone = "UTC"
	}

	switch cfg.DBDriver {
	case DriverPostgres, DriverSQLServer, DriverSQLite:
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.LeaseStaleAfter <= 0 {
		return Config{}, fmt.Errorf("LEASE_STALE_AFTER must be positive, got %s", cfg.LeaseStaleAfter)
	}
	if cfg.LeaseClaimRetries <= 0 {
		return Config{}, fmt.Errorf("LEASE_CLAIM_RETRIES must be positive, got %d", cfg.LeaseClaimRetries)
	}
	if cfg.WorkerPollInterval <= 0 {
		return Config{}, fmt.Errorf("WORKER_POLL_INTERVAL must be positive, got %s", cfg.WorkerPollInterval)
	}
	if cfg.OutboxBatchSize <= 0 {
		cfg.OutboxBatchSize = 100
	}
	return cfg, nil
}
