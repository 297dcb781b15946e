package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Scheduler     SchedulerConfig
	Configuration ConfigurationAPIConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ConfigurationAPIConfig toggles the configuration admin API, which also
// carries the active term pointer the scheduler uses when a request omits
// an explicit term id.
type ConfigurationAPIConfig struct {
	Enabled      bool
	ActiveTermID string
}

// SchedulerConfig carries the Timetable Solver's defaults: the CP-SAT
// driver's time budget and worker count (see §6 of the scheduling spec),
// plus the default soft-constraint objective weights (§4.5).
type SchedulerConfig struct {
	Enabled                bool
	TimeBudgetSeconds      int
	Workers                int
	WeightForbiddenStart   int
	WeightOverConsecutive  int
	WeightCapacityOverflow int
	WeightLateFinish       int
	MaxConsecutiveBlocks   int
	LateStartThreshold     int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:                v.GetBool("ENABLE_SCHEDULER"),
		TimeBudgetSeconds:      v.GetInt("SCHEDULER_TIME_BUDGET_SECONDS"),
		Workers:                v.GetInt("SCHEDULER_WORKERS"),
		WeightForbiddenStart:   v.GetInt("SCHEDULER_WEIGHT_FORBIDDEN"),
		WeightOverConsecutive:  v.GetInt("SCHEDULER_WEIGHT_CONSEC"),
		WeightCapacityOverflow: v.GetInt("SCHEDULER_WEIGHT_CAPACITY"),
		WeightLateFinish:       v.GetInt("SCHEDULER_WEIGHT_LATE"),
		MaxConsecutiveBlocks:   v.GetInt("SCHEDULER_MAX_CONSECUTIVE_BLOCKS"),
		LateStartThreshold:     v.GetInt("SCHEDULER_LATE_START_THRESHOLD"),
	}

	cfg.Configuration = ConfigurationAPIConfig{
		Enabled:      v.GetBool("ENABLE_CONFIGURATION_API"),
		ActiveTermID: v.GetString("CONFIG_ACTIVE_TERM_ID"),
	}

	return cfg, nil
}

// requiredDatabaseEnvVars are the database connection parameters Load
// otherwise fills in with development-only fallbacks (see setDefaults).
// The HTTP gateway keeps those fallbacks for local convenience; the
// solver CLI cannot, since a silently defaulted connection string would
// let it "solve" against the wrong database instead of failing loudly.
var requiredDatabaseEnvVars = []string{"DB_HOST", "DB_USER", "DB_PASSWORD", "DB_NAME"}

// RequireDatabaseEnv reports the first required database environment
// variable that is unset. Callers that must fail rather than fall back to
// Load's defaults (the solver CLI's input-error contract) should call this
// before trusting cfg.Database.
func RequireDatabaseEnv() error {
	for _, key := range requiredDatabaseEnvVars {
		if os.Getenv(key) == "" {
			return fmt.Errorf("missing required environment variable %s", key)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "admin_panel_sma")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_SCHEDULER", false)
	v.SetDefault("SCHEDULER_TIME_BUDGET_SECONDS", 300)
	v.SetDefault("SCHEDULER_WORKERS", 8)
	v.SetDefault("SCHEDULER_WEIGHT_FORBIDDEN", 10)
	v.SetDefault("SCHEDULER_WEIGHT_CONSEC", 3)
	v.SetDefault("SCHEDULER_WEIGHT_CAPACITY", 1000)
	v.SetDefault("SCHEDULER_WEIGHT_LATE", 500)
	v.SetDefault("SCHEDULER_MAX_CONSECUTIVE_BLOCKS", 4)
	v.SetDefault("SCHEDULER_LATE_START_THRESHOLD", 16)

	v.SetDefault("ENABLE_CONFIGURATION_API", false)
	v.SetDefault("CONFIG_ACTIVE_TERM_ID", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
