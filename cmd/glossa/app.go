package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	cachepkg "github.com/pario-ai/glossa/pkg/cache/sqlite"
	"github.com/pario-ai/glossa/pkg/config"
	"github.com/pario-ai/glossa/pkg/gate"
	"github.com/pario-ai/glossa/pkg/logging"
	"github.com/pario-ai/glossa/pkg/provider"
	"github.com/pario-ai/glossa/pkg/translator"
)

// loadConfig reads .env, the config file and the environment, then sets up
// logging.
func loadConfig(path string) (*config.Config, error) {
	envFile, err := config.LoadDotEnv(".")
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format, nil); err != nil {
		return nil, err
	}
	if envFile != "" {
		logrus.WithField("path", envFile).Debug("loaded .env")
	}
	return cfg, nil
}

// app is the translation stack built from a Config.
type app struct {
	cfg   *config.Config
	cache *cachepkg.Cache
	svc   *translator.Service
}

func openCache(cfg *config.Config) (*cachepkg.Cache, error) {
	c, err := cachepkg.New(cfg.Cache.DBPath, cfg.Cache.MaxAge)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}
	return c, nil
}

func newApp(cfg *config.Config) (*app, error) {
	c, err := openCache(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Provider.APIKey == "" {
		logrus.Warn("OpenAI API key not configured, translation will fail")
	}
	completer := provider.NewOpenAI(provider.OpenAIConfig{
		APIKey:    cfg.Provider.APIKey,
		BaseURL:   cfg.Provider.BaseURL,
		Model:     cfg.Provider.Model,
		MaxTokens: cfg.Provider.MaxTokens,
	})
	g := gate.New(gate.Config{
		MaxConcurrent: cfg.Translation.MaxConcurrent,
		Timeout:       cfg.Translation.Timeout,
		MaxAttempts:   cfg.Translation.MaxAttempts,
		RetryDelay:    cfg.Translation.RetryDelay,
	})
	tr := translator.New(completer, g, translator.Config{
		Model:   cfg.Provider.Model,
		Version: cfg.Version,
	})
	svc := translator.NewService(tr, c, translator.ServiceConfig{
		SourceLanguage: cfg.Translation.SourceLanguage,
		TargetLanguage: cfg.Translation.TargetLanguage,
	})

	return &app{cfg: cfg, cache: c, svc: svc}, nil
}

// Close flushes buffered hits and closes the cache.
func (a *app) Close() error {
	if err := a.cache.Close(); err != nil {
		logrus.WithError(err).Error("close cache")
		return err
	}
	return nil
}
