package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all glossa configuration.
type Config struct {
	Listen      string            `yaml:"listen"`
	Bearer      string            `yaml:"bearer"`
	Version     string            `yaml:"version"`
	Provider    ProviderConfig    `yaml:"provider"`
	Translation TranslationConfig `yaml:"translation"`
	Cache       CacheConfig       `yaml:"cache"`
	Log         LogConfig         `yaml:"log"`
}

// ProviderConfig defines the upstream chat-completion endpoint.
type ProviderConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// TranslationConfig controls languages and provider call admission.
type TranslationConfig struct {
	SourceLanguage string        `yaml:"source_language"`
	TargetLanguage string        `yaml:"target_language"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
}

// CacheConfig controls the translation cache and its maintenance.
type CacheConfig struct {
	DBPath        string        `yaml:"db_path"`
	MaxAge        time.Duration `yaml:"max_age"`
	CleanupHour   int           `yaml:"cleanup_hour"`
	StaleDays     int           `yaml:"stale_days"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// LogConfig selects log level and output format ("text" or "json").
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:  "127.0.0.1:8080",
		Version: "1.0.0",
		Provider: ProviderConfig{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-4o-mini",
			MaxTokens: 16000,
		},
		Translation: TranslationConfig{
			SourceLanguage: "en",
			TargetLanguage: "zh-CN",
			MaxConcurrent:  5,
			Timeout:        600 * time.Second,
			MaxAttempts:    3,
			RetryDelay:     2 * time.Second,
		},
		Cache: CacheConfig{
			DBPath:        "./data/cache.db",
			MaxAge:        30 * 24 * time.Hour,
			CleanupHour:   1,
			StaleDays:     30,
			FlushInterval: time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file, expands environment variables, applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finish(cfg)
}

// LoadOrDefault behaves like Load but starts from Default when path is empty
// or the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat config: %w", err)
		}
	}
	return finish(Default())
}

func finish(cfg *Config) (*Config, error) {
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv looks for a .env file in dir and then in each parent directory
// and loads the first one found. Variables already set are not overridden.
// It returns the loaded path, or "" when none was found.
func LoadDotEnv(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve dir: %w", err)
	}
	for {
		candidate := filepath.Join(abs, ".env")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			if err := godotenv.Load(candidate); err != nil {
				return "", fmt.Errorf("load %s: %w", candidate, err)
			}
			return candidate, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", nil
		}
		abs = parent
	}
}

// applyEnv overrides flat settings from the process environment.
func applyEnv(cfg *Config) {
	v := viper.New()
	v.AutomaticEnv()

	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	setInt := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	setString("openai_api_key", &cfg.Provider.APIKey)
	setString("openai_base_url", &cfg.Provider.BaseURL)
	setString("openai_model", &cfg.Provider.Model)
	setInt("max_tokens", &cfg.Provider.MaxTokens)

	setString("local_api_bearer", &cfg.Bearer)
	setString("translator_version", &cfg.Version)

	setString("source_language", &cfg.Translation.SourceLanguage)
	setString("target_language", &cfg.Translation.TargetLanguage)
	setInt("max_concurrent_translations", &cfg.Translation.MaxConcurrent)
	if v.IsSet("translation_timeout_seconds") {
		cfg.Translation.Timeout = time.Duration(v.GetInt("translation_timeout_seconds")) * time.Second
	}

	setString("cache_db_path", &cfg.Cache.DBPath)
	if v.IsSet("cache_max_age_days") {
		cfg.Cache.MaxAge = time.Duration(v.GetInt("cache_max_age_days")) * 24 * time.Hour
	}

	setString("log_level", &cfg.Log.Level)
	setString("log_format", &cfg.Log.Format)

	if v.IsSet("host") || v.IsSet("port") {
		host, port, err := net.SplitHostPort(cfg.Listen)
		if err != nil {
			host, port = "127.0.0.1", "8080"
		}
		setString("host", &host)
		if v.IsSet("port") {
			port = strconv.Itoa(v.GetInt("port"))
		}
		cfg.Listen = net.JoinHostPort(host, port)
	}
}

// Validate checks the configuration for values glossa cannot run with.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Listen, validation.Required),
		validation.Field(&c.Version, validation.Required),
		validation.Field(&c.Provider),
		validation.Field(&c.Translation),
		validation.Field(&c.Cache),
		validation.Field(&c.Log),
	)
}

// Validate checks provider settings.
func (p ProviderConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Model, validation.Required),
		validation.Field(&p.BaseURL, validation.Required),
		validation.Field(&p.MaxTokens, validation.Required, validation.Min(1)),
	)
}

// Validate checks translation settings.
func (t TranslationConfig) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.SourceLanguage, validation.Required),
		validation.Field(&t.TargetLanguage, validation.Required),
		validation.Field(&t.MaxConcurrent, validation.Required, validation.Min(1)),
		validation.Field(&t.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&t.MaxAttempts, validation.Required, validation.Min(1)),
		validation.Field(&t.RetryDelay, validation.Min(time.Duration(0))),
	)
}

// Validate checks cache settings.
func (c CacheConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.DBPath, validation.Required),
		validation.Field(&c.MaxAge, validation.Required, validation.Min(time.Hour)),
		validation.Field(&c.CleanupHour, validation.Min(0), validation.Max(23)),
		validation.Field(&c.StaleDays, validation.Required, validation.Min(1)),
		validation.Field(&c.FlushInterval, validation.Min(time.Duration(0))),
	)
}

// Validate checks logging settings.
func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("trace", "debug", "info", "warn", "warning", "error")),
		validation.Field(&l.Format, validation.In("text", "json")),
	)
}
