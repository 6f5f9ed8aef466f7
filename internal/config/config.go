package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	JWTSecret                 string
	JWTRefreshSecret          string
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
	MetricsEnabled            bool
	Database                  DatabaseConfig
	Redis                     RedisConfig
	Storage                   StorageConfig
	Scheduling                SchedulingConfig
	Log                       LogConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// RedisConfig holds the connection details for the working-hours store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StorageConfig selects where generated report PDFs are written.
type StorageConfig struct {
	Backend           string // "local" or "s3"
	ReportDir         string
	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// SchedulingConfig controls slot generation.
type SchedulingConfig struct {
	SlotGranularityMinutes int
	MaxAppointmentMinutes  int
	DefaultTimezone        string
}

// LogConfig controls the application logger.
type LogConfig struct {
	Level  string
	Format string
	File   string
}

// SlotGranularity returns the spacing between candidate slot start times.
func (s SchedulingConfig) SlotGranularity() time.Duration {
	return time.Duration(s.SlotGranularityMinutes) * time.Minute
}

// MaxAppointment returns the longest bookable appointment.
func (s SchedulingConfig) MaxAppointment() time.Duration {
	return time.Duration(s.MaxAppointmentMinutes) * time.Minute
}

// Location resolves DefaultTimezone, falling back to UTC.
func (s SchedulingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load database configuration
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "medi"),
	}

	// Times are stored in UTC so overlap checks compare like with like.
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	jwtExpMinutes, err := getEnvAsInt("JWT_EXPIRATION_MINUTES", 15)
	if err != nil {
		return nil, err
	}
	jwtRefreshExpHours, err := getEnvAsInt("JWT_REFRESH_EXPIRATION_HOURS", 168) // 7 days
	if err != nil {
		return nil, err
	}
	redisDB, err := getEnvAsInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	granularity, err := getEnvAsInt("SLOT_GRANULARITY_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	maxMinutes, err := getEnvAsInt("MAX_APPOINTMENT_MINUTES", 240)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:                      getEnv("PORT", "3001"),
		Origin:                    getEnv("ORIGIN", "http://localhost:4200"),
		Environment:               getEnv("APP_ENV", "development"),
		JWTSecret:                 getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTRefreshSecret:          getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
		MetricsEnabled:            getEnvAsBool("METRICS_ENABLED", true),
		Database:                  dbConfig,
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Storage: StorageConfig{
			Backend:           strings.ToLower(strings.TrimSpace(getEnv("REPORT_STORAGE", "local"))),
			ReportDir:         getEnv("REPORT_DIR", "./data/reports"),
			S3Bucket:          getEnv("S3_BUCKET", ""),
			S3Region:          getEnv("S3_REGION", "us-east-1"),
			S3Endpoint:        getEnv("S3_ENDPOINT", ""),
			S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		},
		Scheduling: SchedulingConfig{
			SlotGranularityMinutes: granularity,
			MaxAppointmentMinutes:  maxMinutes,
			DefaultTimezone:        getEnv("DEFAULT_TIMEZONE", "UTC"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the scheduler or storage layer cannot work with.
func (c *Config) Validate() error {
	if c.Scheduling.SlotGranularityMinutes <= 0 {
		return fmt.Errorf("SLOT_GRANULARITY_MINUTES must be positive, got %d", c.Scheduling.SlotGranularityMinutes)
	}
	if c.Scheduling.MaxAppointmentMinutes < c.Scheduling.SlotGranularityMinutes {
		return fmt.Errorf("MAX_APPOINTMENT_MINUTES (%d) must be at least the slot granularity (%d)",
			c.Scheduling.MaxAppointmentMinutes, c.Scheduling.SlotGranularityMinutes)
	}
	if _, err := time.LoadLocation(c.Scheduling.DefaultTimezone); err != nil {
		return fmt.Errorf("invalid DEFAULT_TIMEZONE %q: %w", c.Scheduling.DefaultTimezone, err)
	}
	switch c.Storage.Backend {
	case "local":
		if c.Storage.ReportDir == "" {
			return fmt.Errorf("REPORT_DIR is required for local report storage")
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for s3 report storage")
		}
	default:
		return fmt.Errorf("unknown REPORT_STORAGE %q", c.Storage.Backend)
	}
	return nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return defaultValue
	}
	return v
}
