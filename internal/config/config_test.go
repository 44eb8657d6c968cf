package config

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	clearEnvVars(t)

	// Set the required API key for the default provider (openai).
	t.Setenv("EXPERTFINDER_LLM_OPENAI_API_KEY", "sk-test-default")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Metrics defaults
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)

	// LLM defaults
	assert.True(t, cfg.LLM.Enabled)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.True(t, cfg.LLM.BiographiesEnabled)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, "gpt-4-turbo", cfg.LLM.OpenAI.Model)

	// Source defaults
	assert.Equal(t, "https://api.openalex.org", cfg.Sources.OpenAlex.BaseURL)
	assert.Equal(t, 10.0, cfg.Sources.OpenAlex.RateLimit)
	assert.Equal(t, "https://api.semanticscholar.org/graph/v1", cfg.Sources.SemanticScholar.BaseURL)
	assert.Equal(t, 1.0, cfg.Sources.SemanticScholar.RateLimit)

	// Search defaults
	assert.Equal(t, 10, cfg.Search.DefaultPageSize)
	assert.Equal(t, 50, cfg.Search.MaxPageSize)
	assert.Equal(t, 256, cfg.Search.RankedCacheSize)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("EXPERTFINDER_SERVER_HTTP_PORT", "8888")
	t.Setenv("EXPERTFINDER_SERVER_METRICS_PORT", "9999")
	t.Setenv("EXPERTFINDER_LOGGING_LEVEL", "debug")
	t.Setenv("EXPERTFINDER_LLM_PROVIDER", "anthropic")
	t.Setenv("EXPERTFINDER_LLM_ANTHROPIC_API_KEY", "sk-ant-override")
	t.Setenv("EXPERTFINDER_SOURCES_OPENALEX_EMAIL", "ops@example.com")
	t.Setenv("EXPERTFINDER_SEARCH_DEFAULT_PAGE_SIZE", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, 9999, cfg.Server.MetricsPort)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "ops@example.com", cfg.Sources.OpenAlex.Email)
	assert.Equal(t, 25, cfg.Search.DefaultPageSize)
}

func TestLoad_APIKeysFromEnvOnly(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("EXPERTFINDER_LLM_OPENAI_API_KEY", "sk-openai-test")
	t.Setenv("EXPERTFINDER_LLM_ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("EXPERTFINDER_SOURCES_SEMANTIC_SCHOLAR_API_KEY", "ss-key-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-openai-test", cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, "sk-ant-test", cfg.LLM.Anthropic.APIKey)
	assert.Equal(t, "ss-key-test", cfg.Sources.SemanticScholar.APIKey)
}

func TestLoad_LLMDisabledNeedsNoKey(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("EXPERTFINDER_LLM_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.LLM.Enabled)
	assert.Empty(t, cfg.LLM.OpenAI.APIKey)
	assert.Empty(t, cfg.LLM.Anthropic.APIKey)
}

func TestValidate_InvalidPort(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectedErr string
	}{
		{
			name: "HTTP port zero",
			modifyFunc: func(c *Config) {
				c.Server.HTTPPort = 0
			},
			expectedErr: "invalid HTTP port: 0",
		},
		{
			name: "HTTP port too high",
			modifyFunc: func(c *Config) {
				c.Server.HTTPPort = 70000
			},
			expectedErr: "invalid HTTP port: 70000",
		},
		{
			name: "metrics port invalid",
			modifyFunc: func(c *Config) {
				c.Server.MetricsPort = -5
			},
			expectedErr: "invalid metrics port: -5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestValidate_LogLevel(t *testing.T) {
	validLevels := []string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}
	for _, level := range validLevels {
		t.Run("valid_"+level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logging.Level = level
			assert.NoError(t, cfg.Validate())
		})
	}

	t.Run("invalid log level", func(t *testing.T) {
		cfg := validConfig()
		cfg.Logging.Level = "loud"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level: loud")
	})
}

func TestValidate_Sources(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectedErr string
	}{
		{
			name: "missing openalex base URL",
			modifyFunc: func(c *Config) {
				c.Sources.OpenAlex.BaseURL = ""
			},
			expectedErr: "openalex base_url is required",
		},
		{
			name: "zero openalex rate limit",
			modifyFunc: func(c *Config) {
				c.Sources.OpenAlex.RateLimit = 0
			},
			expectedErr: "openalex rate_limit must be positive",
		},
		{
			name: "missing semantic scholar base URL",
			modifyFunc: func(c *Config) {
				c.Sources.SemanticScholar.BaseURL = ""
			},
			expectedErr: "semantic_scholar base_url is required",
		},
		{
			name: "negative semantic scholar rate limit",
			modifyFunc: func(c *Config) {
				c.Sources.SemanticScholar.RateLimit = -1
			},
			expectedErr: "semantic_scholar rate_limit must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestValidate_Search(t *testing.T) {
	t.Run("default page size zero", func(t *testing.T) {
		cfg := validConfig()
		cfg.Search.DefaultPageSize = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "default_page_size must be positive")
	})

	t.Run("max below default", func(t *testing.T) {
		cfg := validConfig()
		cfg.Search.DefaultPageSize = 20
		cfg.Search.MaxPageSize = 10
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_page_size (10) must be >= default_page_size (20)")
	})
}

func TestValidate_LLMProviderAPIKey(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectError bool
		errContains string
	}{
		{
			name: "openai without key fails",
			modifyFunc: func(c *Config) {
				c.LLM.Provider = "openai"
				c.LLM.OpenAI.APIKey = ""
			},
			expectError: true,
			errContains: "EXPERTFINDER_LLM_OPENAI_API_KEY",
		},
		{
			name: "openai with key passes",
			modifyFunc: func(c *Config) {
				c.LLM.Provider = "openai"
				c.LLM.OpenAI.APIKey = "sk-test"
			},
			expectError: false,
		},
		{
			name: "anthropic without key fails",
			modifyFunc: func(c *Config) {
				c.LLM.Provider = "anthropic"
				c.LLM.Anthropic.APIKey = ""
			},
			expectError: true,
			errContains: "EXPERTFINDER_LLM_ANTHROPIC_API_KEY",
		},
		{
			name: "anthropic with key passes",
			modifyFunc: func(c *Config) {
				c.LLM.Provider = "anthropic"
				c.LLM.Anthropic.APIKey = "sk-ant-test"
			},
			expectError: false,
		},
		{
			name: "unknown provider fails",
			modifyFunc: func(c *Config) {
				c.LLM.Provider = "mystery"
			},
			expectError: true,
			errContains: `unsupported LLM provider: "mystery"`,
		},
		{
			name: "disabled LLM skips the key check",
			modifyFunc: func(c *Config) {
				c.LLM.Enabled = false
				c.LLM.Provider = "openai"
				c.LLM.OpenAI.APIKey = ""
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)
			err := cfg.Validate()
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// clearEnvVars unsets every EXPERTFINDER_ environment variable so tests
// start from the defaults.
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "EXPERTFINDER_") {
			key, _, _ := strings.Cut(env, "=")
			os.Unsetenv(key)
		}
	}
}

// validConfig returns a valid configuration for testing
func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			HTTPPort:    8080,
			MetricsPort: 9091,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		LLM: LLMConfig{
			Enabled:  true,
			Provider: "openai",
			OpenAI:   OpenAIConfig{APIKey: "sk-test"},
		},
		Sources: SourcesConfig{
			OpenAlex: OpenAlexConfig{
				BaseURL:   "https://api.openalex.org",
				RateLimit: 10,
			},
			SemanticScholar: SourceConfig{
				BaseURL:   "https://api.semanticscholar.org/graph/v1",
				RateLimit: 1,
			},
		},
		Search: SearchConfig{
			DefaultPageSize: 10,
			MaxPageSize:     50,
			RankedCacheSize: 256,
		},
	}
}
