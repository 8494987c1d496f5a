package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env           string              `mapstructure:"env"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Enrollment    EnrollmentConfig    `mapstructure:"enrollment"`
	Verification  VerificationConfig  `mapstructure:"verification"`
	ErrorLog      ErrorLogConfig      `mapstructure:"error_log"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

type EnrollmentConfig struct {
	DefaultProfileImage string        `mapstructure:"default_profile_image"`
	StorageTimeout      time.Duration `mapstructure:"storage_timeout"`
}

type VerificationConfig struct {
	StorageTimeout time.Duration `mapstructure:"storage_timeout"`
}

type ErrorLogConfig struct {
	RetentionDays int           `mapstructure:"retention_days"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	DefaultProfileImage          = "max-smith.png"
	DefaultStorageTimeout        = 3 * time.Second
	DefaultErrorLogRetentionDays = 30
	DefaultErrorLogPruneInterval = 24 * time.Hour
)

// LoadConfigFromEnv builds the configuration from plain environment
// variables, used for container deployments without a config.yml.
func LoadConfigFromEnv() *Config {
	return &Config{
		Env: getEnv("APP_ENV", "production"),
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:           getEnv("HTTP_BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("HTTP_ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Enrollment: EnrollmentConfig{
			DefaultProfileImage: getEnv("ENROLLMENT_DEFAULT_PROFILE_IMAGE", DefaultProfileImage),
			StorageTimeout:      getEnvAsDuration("ENROLLMENT_STORAGE_TIMEOUT", DefaultStorageTimeout),
		},
		Verification: VerificationConfig{
			StorageTimeout: getEnvAsDuration("VERIFICATION_STORAGE_TIMEOUT", DefaultStorageTimeout),
		},
		ErrorLog: ErrorLogConfig{
			RetentionDays: getEnvAsInt("ERROR_LOG_RETENTION_DAYS", DefaultErrorLogRetentionDays),
			PruneInterval: getEnvAsDuration("ERROR_LOG_PRUNE_INTERVAL", DefaultErrorLogPruneInterval),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
}

// ApplyDefaults fills the knobs a config.yml may leave out.
func (c *Config) ApplyDefaults() {
	if c.Enrollment.DefaultProfileImage == "" {
		c.Enrollment.DefaultProfileImage = DefaultProfileImage
	}
	if c.Enrollment.StorageTimeout <= 0 {
		c.Enrollment.StorageTimeout = DefaultStorageTimeout
	}
	if c.Verification.StorageTimeout <= 0 {
		c.Verification.StorageTimeout = DefaultStorageTimeout
	}
	if c.ErrorLog.RetentionDays == 0 {
		c.ErrorLog.RetentionDays = DefaultErrorLogRetentionDays
	}
	if c.ErrorLog.PruneInterval <= 0 {
		c.ErrorLog.PruneInterval = DefaultErrorLogPruneInterval
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Verification.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("verification config: %v", err))
	}

	if err := c.ErrorLog.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("error_log config: %v", err))
	}

	if err := c.Observability.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.GetDSN() == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

// GetDSN returns the connection string handed to the pgx driver.
func (c *DatabaseConfig) GetDSN() string {
	return strings.TrimSpace(c.Source)
}

func (c *VerificationConfig) Validate() error {
	if c.StorageTimeout <= 0 {
		return errors.New("storage_timeout must be positive")
	}
	return nil
}

func (c *ErrorLogConfig) Validate() error {
	if c.RetentionDays < 1 {
		return errors.New("retention_days must be at least 1")
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %q", c.Level)
	}
	switch c.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	return nil
}

// Retention converts RetentionDays into a duration.
func (c ErrorLogConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}
