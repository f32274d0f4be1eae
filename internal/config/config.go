package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/attendance"
	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	JWT       JWTConfig
	App       AppConfig
	Timesheet TimesheetConfig
	Cron      CronConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// TimesheetConfig holds the reconciliation policy
type TimesheetConfig struct {
	Timezone            string
	LunchThresholdHours float64
	LunchDeductionHours float64
	NightShiftLunch     bool
	LateGraceMinutes    int
	FillCalendar        bool
	Workers             int
}

// CronConfig holds the scheduled recompute settings
type CronConfig struct {
	Enabled           bool
	RecomputeHour     int
	PreviousMonthDays int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{}

	var errs []error
	intEnv := func(key, fallback string) int {
		v, err := strconv.Atoi(getEnv(key, fallback))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}
	floatEnv := func(key, fallback string) float64 {
		v, err := strconv.ParseFloat(getEnv(key, fallback), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}
	boolEnv := func(key, fallback string) bool {
		v, err := strconv.ParseBool(getEnv(key, fallback))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}

	// Database configuration
	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     intEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "cmlabs-timesheet"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: intEnv("DB_MAX_CONNS", "25"),
	}

	// Application configuration
	config.App = AppConfig{
		Port:           intEnv("APP_PORT", "8080"),
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Reconciliation policy
	config.Timesheet = TimesheetConfig{
		Timezone:            getEnv("TIMESHEET_TIMEZONE", "Asia/Jakarta"),
		LunchThresholdHours: floatEnv("LUNCH_THRESHOLD_HOURS", "6"),
		LunchDeductionHours: floatEnv("LUNCH_DEDUCTION_HOURS", "1"),
		NightShiftLunch:     boolEnv("NIGHT_SHIFT_LUNCH", "false"),
		LateGraceMinutes:    intEnv("LATE_GRACE_MINUTES", "0"),
		FillCalendar:        boolEnv("FILL_CALENDAR", "true"),
		Workers:             intEnv("RECOMPUTE_WORKERS", "8"),
	}

	// Scheduled recompute
	config.Cron = CronConfig{
		Enabled:           boolEnv("CRON_ENABLED", "true"),
		RecomputeHour:     intEnv("CRON_RECOMPUTE_HOUR", "2"),
		PreviousMonthDays: intEnv("CRON_PREVIOUS_MONTH_DAYS", "5"),
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := time.ParseDuration(c.JWT.AccessExpiration); err != nil {
		return fmt.Errorf("JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}
	if _, err := time.LoadLocation(c.Timesheet.Timezone); err != nil {
		return fmt.Errorf("TIMESHEET_TIMEZONE: %w", err)
	}
	if c.Timesheet.LunchThresholdHours < 0 || c.Timesheet.LunchDeductionHours < 0 {
		return fmt.Errorf("lunch hours must not be negative")
	}
	if c.Timesheet.LateGraceMinutes < 0 {
		return fmt.Errorf("LATE_GRACE_MINUTES must not be negative")
	}
	if c.Timesheet.Workers < 1 {
		return fmt.Errorf("RECOMPUTE_WORKERS must be at least 1")
	}
	if c.Cron.RecomputeHour < 0 || c.Cron.RecomputeHour > 23 {
		return fmt.Errorf("CRON_RECOMPUTE_HOUR must be between 0 and 23")
	}
	if c.Cron.PreviousMonthDays < 0 || c.Cron.PreviousMonthDays > 28 {
		return fmt.Errorf("CRON_PREVIOUS_MONTH_DAYS must be between 0 and 28")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Location returns the workplace time zone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timesheet.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Policy builds the engine policy from the timesheet settings.
func (c *Config) Policy() attendance.Policy {
	return attendance.Policy{
		LunchThreshold:  hoursToDuration(c.Timesheet.LunchThresholdHours),
		LunchDeduction:  hoursToDuration(c.Timesheet.LunchDeductionHours),
		NightShiftLunch: c.Timesheet.NightShiftLunch,
		LateGrace:       time.Duration(c.Timesheet.LateGraceMinutes) * time.Minute,
		FillCalendar:    c.Timesheet.FillCalendar,
	}
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func hoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour)).Round(time.Second)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
