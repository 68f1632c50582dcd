package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8081", AppEnv: "development", AllowedOrigins: []string{"http://localhost:3000"}},
		Database: DatabaseConfig{WorkOffline: true},
		Auth:     AuthConfig{JWTSecret: "secret"},
		LLM:      LLMConfig{Provider: LLMProviderOpenAI, TimeoutSeconds: 15},
		Booking:  BookingConfig{SweepIntervalSeconds: 300},
		Matching: MatchingConfig{PoolSize: 50},
	}
}

// chdirTemp keeps a developer's .env out of Load
func chdirTemp(t *testing.T) {
	t.Helper()
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(originalDir) })
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected bool
	}{
		{"development environment", &Config{Server: ServerConfig{AppEnv: "development"}}, true},
		{"debug gin mode", &Config{Server: ServerConfig{GinMode: "debug"}}, true},
		{"production environment", &Config{Server: ServerConfig{AppEnv: "production"}}, false},
		{"release mode", &Config{Server: ServerConfig{GinMode: "release", AppEnv: "production"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.IsDevelopment())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{
			name:   "valid offline config",
			mutate: func(*Config) {},
		},
		{
			name: "valid online config",
			mutate: func(c *Config) {
				c.Database = DatabaseConfig{URL: "postgres://localhost/psy"}
			},
		},
		{
			name:     "missing database url",
			mutate:   func(c *Config) { c.Database = DatabaseConfig{} },
			errorMsg: "DATABASE_URL is required",
		},
		{
			name:     "missing jwt secret",
			mutate:   func(c *Config) { c.Auth.JWTSecret = "" },
			errorMsg: "JWT_SECRET is required",
		},
		{
			name: "short jwt secret in production",
			mutate: func(c *Config) {
				c.Server.AppEnv = "production"
			},
			errorMsg: "at least 32 characters",
		},
		{
			name:     "unknown llm provider",
			mutate:   func(c *Config) { c.LLM.Provider = "claude-local" },
			errorMsg: "LLM_PROVIDER",
		},
		{
			name:     "non-positive llm timeout",
			mutate:   func(c *Config) { c.LLM.TimeoutSeconds = 0 },
			errorMsg: "LLM_TIMEOUT_SECONDS",
		},
		{
			name:     "recaptcha score out of range",
			mutate:   func(c *Config) { c.Auth.RecaptchaMinScore = 1.5 },
			errorMsg: "RECAPTCHA_MIN_SCORE",
		},
		{
			name:     "non-positive sweep interval",
			mutate:   func(c *Config) { c.Booking.SweepIntervalSeconds = 0 },
			errorMsg: "SESSION_SWEEP_INTERVAL_SECONDS",
		},
		{
			name: "profiling without endpoint",
			mutate: func(c *Config) {
				c.Profiling.Enabled = true
			},
			errorMsg: "O11Y_PROFILING_ENDPOINT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_WORK_OFFLINE", "true")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, LLMProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", cfg.LLM.Endpoint)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 15, cfg.LLM.TimeoutSeconds)
	assert.False(t, cfg.LLM.Enabled())
	assert.False(t, cfg.ObjectStorage.Enabled())
	assert.Equal(t, 50, cfg.Matching.PoolSize)
	assert.Equal(t, 300, cfg.Booking.SweepIntervalSeconds)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Empty(t, cfg.Auth.RecaptchaSecretKey)
	assert.InDelta(t, 0.5, cfg.Auth.RecaptchaMinScore, 1e-9)
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "9000")
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "postgres://db/psy")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("LLM_API_KEY", "key-123")
	t.Setenv("LLM_MODEL", "gemini-1.5-flash")
	t.Setenv("ALLOWED_CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("RECAPTCHA_SECRET_KEY", "captcha-secret")
	t.Setenv("RECAPTCHA_MIN_SCORE", "0.7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "postgres://db/psy", cfg.Database.URL)
	assert.Equal(t, LLMProviderGemini, cfg.LLM.Provider)
	assert.True(t, cfg.LLM.Enabled())
	assert.Equal(t, "gemini-1.5-flash", cfg.LLM.Model)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "captcha-secret", cfg.Auth.RecaptchaSecretKey)
	assert.InDelta(t, 0.7, cfg.Auth.RecaptchaMinScore, 1e-9)
}

func TestLoad_ValidationFailure(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DB_WORK_OFFLINE", "false")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
}
