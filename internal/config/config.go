package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config represents the application configuration
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Auth        AuthConfig       `mapstructure:"auth"`
	Dashboard   DashboardConfig  `mapstructure:"dashboard"`
	Reporting   ReportingConfig  `mapstructure:"reporting"`
	Insights    InsightsConfig   `mapstructure:"insights"`
	Monitoring  MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host    string        `mapstructure:"host"`
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AuthConfig contains session token settings
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTExpiry time.Duration `mapstructure:"jwt_expiry"`
}

// DashboardConfig contains dashboard and reminder engine settings
type DashboardConfig struct {
	Organization     string `mapstructure:"organization"`
	SeedDemoData     bool   `mapstructure:"seed_demo_data"`
	ReminderSchedule string `mapstructure:"reminder_schedule"`
	AuditQueryLimit  int    `mapstructure:"audit_query_limit"`
}

// ReportingConfig contains report generation settings
type ReportingConfig struct {
	EnabledFormats []string `mapstructure:"enabled_formats"`
	AuditPeriod    string   `mapstructure:"audit_period"`
}

// InsightsConfig contains the optional AI insight enrichment settings.
// An empty APIKey degrades the feature instead of failing the service.
type InsightsConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	Endpoint string        `mapstructure:"endpoint"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// MonitoringConfig contains metrics settings
type MonitoringConfig struct {
	EnableMetrics bool   `mapstructure:"enable_metrics"`
	MetricsPath   string `mapstructure:"metrics_path"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetEnvPrefix("DASHBOARD")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeout", "30s")

	// Auth defaults
	viper.SetDefault("auth.jwt_secret", "freshlabs-dev-secret")
	viper.SetDefault("auth.jwt_expiry", "24h")

	// Dashboard defaults
	viper.SetDefault("dashboard.organization", "FreshLabs Enterprise")
	viper.SetDefault("dashboard.seed_demo_data", true)
	viper.SetDefault("dashboard.reminder_schedule", "@daily")
	viper.SetDefault("dashboard.audit_query_limit", 100)

	// Reporting defaults
	viper.SetDefault("reporting.enabled_formats", []string{"pdf", "excel", "csv", "json"})
	viper.SetDefault("reporting.audit_period", "Q1 - 2024")

	// Insights defaults
	viper.SetDefault("insights.endpoint", "https://generativelanguage.googleapis.com")
	viper.SetDefault("insights.model", "gemini-1.5-flash")
	viper.SetDefault("insights.timeout", "20s")

	// Monitoring defaults
	viper.SetDefault("monitoring.enable_metrics", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.Port)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth JWT secret is required")
	}

	if c.Auth.JWTExpiry <= 0 {
		return fmt.Errorf("auth JWT expiry must be positive")
	}

	if c.Dashboard.ReminderSchedule == "" {
		return fmt.Errorf("dashboard reminder schedule is required")
	}

	if len(c.Reporting.EnabledFormats) == 0 {
		return fmt.Errorf("at least one report format must be enabled")
	}

	return nil
}

// InitLogger initializes the logger based on configuration
func (c *Config) InitLogger() (*zap.Logger, error) {
	var config zap.Config

	if c.Environment == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger, nil
}
