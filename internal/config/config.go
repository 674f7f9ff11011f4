package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	pkgconfig "github.com/wekeepgrowing/medvoa-backend/pkg/config"
	"github.com/wekeepgrowing/medvoa-backend/pkg/logger"
)

// ServiceName selects configs/<env>/entitlement.yaml and the ENTITLEMENT_
// environment prefix.
const ServiceName = "entitlement"

type Config struct {
	Service      ServiceConfig      `mapstructure:"service" validate:"required"`
	Database     DatabaseConfig     `mapstructure:"database" validate:"required"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Server       ServerConfig       `mapstructure:"server" validate:"required"`
	Log          logger.Config      `mapstructure:"log"`
	Entitlements EntitlementsConfig `mapstructure:"entitlements"`
}

// EntitlementsConfig locates the tier tables and sets window rollover.
type EntitlementsConfig struct {
	// TablesPath overrides the embedded tables when set
	TablesPath        string        `mapstructure:"tables_path"`
	Timezone          string        `mapstructure:"timezone"`
	SnapshotFreshness time.Duration `mapstructure:"snapshot_freshness" validate:"gte=0"`
}

// LoadConfig reads the service configuration through viper and validates it
func LoadConfig() (*Config, error) {
	src, err := pkgconfig.Load(ServiceName)
	if err != nil {
		return nil, err
	}
	return fromSource(src)
}

// LoadConfigFile reads one explicit configuration file
func LoadConfigFile(path string) (*Config, error) {
	src, err := pkgconfig.LoadFile(ServiceName, path)
	if err != nil {
		return nil, err
	}
	return fromSource(src)
}

func fromSource(src pkgconfig.Config) (*Config, error) {
	var cfg Config
	if err := src.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyDefaults()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.validateDriver(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = ServiceName
	}
	if c.Service.StripeTimeout == 0 {
		c.Service.StripeTimeout = 5 * time.Second
	}
	if c.Service.Supabase.Timeout == 0 {
		c.Service.Supabase.Timeout = 10 * time.Second
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Server.HTTP.Port == 0 {
		c.Server.HTTP.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Entitlements.SnapshotFreshness == 0 {
		c.Entitlements.SnapshotFreshness = 30 * time.Second
	}
	c.Log.Service = c.Service.Name
}

// validateDriver checks the settings each datastore driver needs
func (c *Config) validateDriver() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required for the postgres driver")
		}
	case DriverSupabase:
		if c.Service.Supabase.ProjectURL == "" || c.Service.Supabase.ServiceKey == "" {
			return fmt.Errorf("service.supabase.project_url and service.supabase.service_key are required for the supabase driver")
		}
	}
	return nil
}
