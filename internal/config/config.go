// Package config loads pdftext configuration from the environment, an
// optional .env file, and an optional YAML file. The API key is the only
// required setting; everything else has documented defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pagelens/pdftext/internal/domain"
)

const (
	// DefaultModel is the vision model used when MODEL_NAME is not set.
	DefaultModel = "meta-llama/Llama-3.2-11B-Vision-Instruct"

	// DefaultBaseURL is the OpenAI-compatible endpoint used when
	// API_BASE_URL is not set.
	DefaultBaseURL = "https://api.deepinfra.com/v1/openai"

	// DefaultMaxUploadBytes is the upload size ceiling.
	DefaultMaxUploadBytes = 10 * 1024 * 1024
)

// Config holds all settings for the process lifetime. Loaded once at
// startup and never mutated.
type Config struct {
	// Remote model settings.
	APIKey      string  `yaml:"-"` // never read from YAML
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// Pipeline settings.
	RasterDPI           int           `yaml:"raster_dpi"`
	MaxUploadBytes      int64         `yaml:"max_upload_bytes"`
	PageConcurrency     int           `yaml:"page_concurrency"`
	ContinueOnPageError bool          `yaml:"continue_on_page_error"`
	PageSeparator       string        `yaml:"page_separator"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`

	// Server and logging settings.
	HTTPAddr  string `yaml:"http_addr"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the compiled-in defaults, without an API key.
func Default() *Config {
	return &Config{
		Model:               DefaultModel,
		BaseURL:             DefaultBaseURL,
		Temperature:         0.7,
		MaxTokens:           4096,
		RasterDPI:           200,
		MaxUploadBytes:      DefaultMaxUploadBytes,
		PageConcurrency:     1,
		ContinueOnPageError: true,
		PageSeparator:       "\n\n",
		RequestTimeout:      120 * time.Second,
		HTTPAddr:            ":8080",
		LogLevel:            "info",
		LogFormat:           "console",
	}
}

// Load builds the configuration. Precedence: environment variables over the
// .env file over the YAML file named by PDFTEXT_CONFIG over defaults.
// Fails with a config error when the API key is missing or a value is out
// of range.
func Load() (*Config, error) {
	_ = godotenv.Load() // ignore error if .env doesn't exist

	cfg := Default()

	if path := os.Getenv("PDFTEXT_CONFIG"); path != "" {
		if err := cfg.applyYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.APIKey = os.Getenv("DEEPINFRA_API_KEY")
	cfg.Model = getEnv("MODEL_NAME", cfg.Model)
	cfg.BaseURL = getEnv("API_BASE_URL", cfg.BaseURL)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.PageSeparator = getEnv("PAGE_SEPARATOR", cfg.PageSeparator)

	var err error
	if cfg.Temperature, err = getEnvFloat("TEMPERATURE", cfg.Temperature); err != nil {
		return nil, err
	}
	if cfg.MaxTokens, err = getEnvInt("MAX_TOKENS", cfg.MaxTokens); err != nil {
		return nil, err
	}
	if cfg.RasterDPI, err = getEnvInt("RASTER_DPI", cfg.RasterDPI); err != nil {
		return nil, err
	}
	if cfg.PageConcurrency, err = getEnvInt("PAGE_CONCURRENCY", cfg.PageConcurrency); err != nil {
		return nil, err
	}
	if cfg.ContinueOnPageError, err = getEnvBool("CONTINUE_ON_PAGE_ERROR", cfg.ContinueOnPageError); err != nil {
		return nil, err
	}
	maxUpload, err := getEnvInt("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes))
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)
	if cfg.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ConfigError(fmt.Sprintf("cannot read config file %s", path), err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return domain.ConfigError(fmt.Sprintf("cannot parse config file %s", path), err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.APIKey == "" {
		return domain.ConfigError("missing API key: DEEPINFRA_API_KEY is required", nil)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return domain.ConfigError(fmt.Sprintf("temperature must be in [0,2], got %g", c.Temperature), nil)
	}
	if c.MaxTokens <= 0 {
		return domain.ConfigError(fmt.Sprintf("max tokens must be positive, got %d", c.MaxTokens), nil)
	}
	if c.RasterDPI < 36 || c.RasterDPI > 600 {
		return domain.ConfigError(fmt.Sprintf("raster DPI must be in [36,600], got %d", c.RasterDPI), nil)
	}
	if c.PageConcurrency < 1 {
		return domain.ConfigError(fmt.Sprintf("page concurrency must be at least 1, got %d", c.PageConcurrency), nil)
	}
	if c.MaxUploadBytes <= 0 {
		return domain.ConfigError(fmt.Sprintf("max upload bytes must be positive, got %d", c.MaxUploadBytes), nil)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, domain.ConfigError(fmt.Sprintf("%s must be an integer, got %q", key, value), err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, domain.ConfigError(fmt.Sprintf("%s must be a number, got %q", key, value), err)
	}
	return f, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, domain.ConfigError(fmt.Sprintf("%s must be a boolean, got %q", key, value), err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, domain.ConfigError(fmt.Sprintf("%s must be a duration, got %q", key, value), err)
	}
	return d, nil
}
