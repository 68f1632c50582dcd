package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration
//
//nolint:govet // Field alignment optimization would reduce readability
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	LLM           LLMConfig
	Redis         RedisConfig
	ObjectStorage ObjectStorageConfig
	EventTriggers EventTriggersConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
	Cache         CacheConfig
	Booking       BookingConfig
	Matching      MatchingConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	AppEnv         string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL         string
	MaxConns    int32
	MinConns    int32
	WorkOffline bool // serve from in-memory stores, no postgres
}

type AuthConfig struct {
	JWTSecret string
	JWTIssuer string

	// Guest questionnaires must pass reCAPTCHA when a secret is set
	RecaptchaSecretKey string
	RecaptchaMinScore  float64
}

// LLM providers for the primary ranker
const (
	LLMProviderOpenAI = "openai"
	LLMProviderGemini = "gemini"
)

type LLMConfig struct {
	Provider       string
	APIKey         string
	Endpoint       string
	Model          string
	TimeoutSeconds int
}

// Enabled reports whether the primary ranker has credentials
func (c LLMConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

type RedisConfig struct {
	Addr                  string
	Password              string
	DB                    int
	ReservationTTLSeconds int
}

type ObjectStorageConfig struct {
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Endpoint        string
	Region          string
}

// Enabled reports whether the snapshot archive is configured
func (c ObjectStorageConfig) Enabled() bool {
	return c.BucketName != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

type EventTriggersConfig struct {
	SessionBookedTriggerURL        string
	SessionStatusChangedTriggerURL string
}

type LoggingConfig struct {
	Level string
	Dir   string
}

type ObservabilityConfig struct {
	ExporterEndpoint  string
	ServiceName       string
	ServiceNamespace  string
	ServiceVersion    string
	ServiceInstanceID string
}

type ProfilingConfig struct {
	Enabled               bool
	Endpoint              string
	AppName               string
	SampleTypes           string
	UploadIntervalSeconds int
}

type CacheConfig struct {
	CandidateTTLSeconds int
	DisableCandidates   bool // read the directory on every questionnaire
}

type BookingConfig struct {
	SweepIntervalSeconds int
}

type MatchingConfig struct {
	PoolSize int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("PORT", "8081")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("ALLOWED_CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DIR", "/app/logs")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("RECAPTCHA_MIN_SCORE", 0.5)
	v.SetDefault("LLM_PROVIDER", LLMProviderOpenAI)
	v.SetDefault("LLM_ENDPOINT", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("LLM_TIMEOUT_SECONDS", 15)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RESERVATION_TTL_SECONDS", 10)
	v.SetDefault("SNAPSHOT_STORAGE_ENDPOINT", "https://storage.yandexcloud.net")
	v.SetDefault("SNAPSHOT_STORAGE_REGION", "ru-central1")
	v.SetDefault("O11Y_EXPORTER_ENDPOINT", "")
	v.SetDefault("O11Y_BE_SERVICE_NAME", "psysupport-api")
	v.SetDefault("O11Y_SERVICE_NAMESPACE", "psysupport")
	v.SetDefault("O11Y_BE_SERVICE_VERSION", "1.0.0")
	v.SetDefault("O11Y_PROFILING_ENABLED", false)
	v.SetDefault("O11Y_PROFILING_APP_NAME", "psysupport-api")
	v.SetDefault("O11Y_PROFILING_SAMPLE_TYPES", "cpu,alloc_space,alloc_objects,goroutines,mutex,block")
	v.SetDefault("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS", 15)
	v.SetDefault("CANDIDATE_CACHE_TTL", 300)
	v.SetDefault("DISABLE_CANDIDATE_CACHE", false)
	v.SetDefault("SESSION_SWEEP_INTERVAL_SECONDS", 300)
	v.SetDefault("MATCHING_POOL_SIZE", 50)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	_ = v.ReadInConfig() //nolint:errcheck // Ignore error if .env file doesn't exist

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			GinMode:        v.GetString("GIN_MODE"),
			AppEnv:         v.GetString("APP_ENV"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_CORS_ORIGINS")),
		},
		Database: DatabaseConfig{
			URL:         v.GetString("DATABASE_URL"),
			MaxConns:    20,
			MinConns:    2,
			WorkOffline: v.GetBool("DB_WORK_OFFLINE"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			JWTIssuer: v.GetString("JWT_ISSUER"),

			RecaptchaSecretKey: v.GetString("RECAPTCHA_SECRET_KEY"),
			RecaptchaMinScore:  v.GetFloat64("RECAPTCHA_MIN_SCORE"),
		},
		LLM: LLMConfig{
			Provider:       strings.ToLower(strings.TrimSpace(v.GetString("LLM_PROVIDER"))),
			APIKey:         v.GetString("LLM_API_KEY"),
			Endpoint:       v.GetString("LLM_ENDPOINT"),
			Model:          v.GetString("LLM_MODEL"),
			TimeoutSeconds: v.GetInt("LLM_TIMEOUT_SECONDS"),
		},
		Redis: RedisConfig{
			Addr:                  v.GetString("REDIS_ADDR"),
			Password:              v.GetString("REDIS_PASSWORD"),
			DB:                    v.GetInt("REDIS_DB"),
			ReservationTTLSeconds: v.GetInt("RESERVATION_TTL_SECONDS"),
		},
		ObjectStorage: ObjectStorageConfig{
			AccessKeyID:     v.GetString("SNAPSHOT_STORAGE_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("SNAPSHOT_STORAGE_SECRET_ACCESS_KEY"),
			BucketName:      v.GetString("SNAPSHOT_STORAGE_BUCKET_NAME"),
			Endpoint:        v.GetString("SNAPSHOT_STORAGE_ENDPOINT"),
			Region:          v.GetString("SNAPSHOT_STORAGE_REGION"),
		},
		EventTriggers: EventTriggersConfig{
			SessionBookedTriggerURL:        v.GetString("SESSION_BOOKED_TRIGGER_URL"),
			SessionStatusChangedTriggerURL: v.GetString("SESSION_STATUS_CHANGED_TRIGGER_URL"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
			Dir:   v.GetString("LOG_DIR"),
		},
		Observability: ObservabilityConfig{
			ExporterEndpoint:  v.GetString("O11Y_EXPORTER_ENDPOINT"),
			ServiceName:       v.GetString("O11Y_BE_SERVICE_NAME"),
			ServiceNamespace:  v.GetString("O11Y_SERVICE_NAMESPACE"),
			ServiceVersion:    v.GetString("O11Y_BE_SERVICE_VERSION"),
			ServiceInstanceID: v.GetString("SERVICE_INSTANCE_ID"),
		},
		Profiling: ProfilingConfig{
			Enabled:               v.GetBool("O11Y_PROFILING_ENABLED"),
			Endpoint:              v.GetString("O11Y_PROFILING_ENDPOINT"),
			AppName:               v.GetString("O11Y_PROFILING_APP_NAME"),
			SampleTypes:           v.GetString("O11Y_PROFILING_SAMPLE_TYPES"),
			UploadIntervalSeconds: v.GetInt("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS"),
		},
		Cache: CacheConfig{
			CandidateTTLSeconds: v.GetInt("CANDIDATE_CACHE_TTL"),
			DisableCandidates:   v.GetBool("DISABLE_CANDIDATE_CACHE"),
		},
		Booking: BookingConfig{
			SweepIntervalSeconds: v.GetInt("SESSION_SWEEP_INTERVAL_SECONDS"),
		},
		Matching: MatchingConfig{
			PoolSize: v.GetInt("MATCHING_POOL_SIZE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func splitList(raw string) []string {
	out := []string{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	if !c.Database.WorkOffline && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when not in offline mode")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_CORS_ORIGINS is required")
	}

	if c.Auth.RecaptchaMinScore < 0 || c.Auth.RecaptchaMinScore > 1 {
		return fmt.Errorf("RECAPTCHA_MIN_SCORE must be between 0 and 1")
	}

	switch c.LLM.Provider {
	case LLMProviderOpenAI, LLMProviderGemini:
	default:
		return fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", LLMProviderOpenAI, LLMProviderGemini, c.LLM.Provider)
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return fmt.Errorf("LLM_TIMEOUT_SECONDS must be positive")
	}

	if c.Booking.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL_SECONDS must be positive")
	}
	if c.Matching.PoolSize <= 0 {
		return fmt.Errorf("MATCHING_POOL_SIZE must be positive")
	}

	if c.Profiling.Enabled && c.Profiling.Endpoint == "" {
		return fmt.Errorf("O11Y_PROFILING_ENDPOINT is required when profiling is enabled")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.GinMode == "debug"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.AppEnv == "production"
}
