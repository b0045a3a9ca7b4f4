package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cachepkg "github.com/pario-ai/glossa/pkg/cache/sqlite"
	"github.com/pario-ai/glossa/pkg/janitor"
	"github.com/pario-ai/glossa/pkg/server"
)

func newServeCmd(configPath *string) *cobra.Command {
	var (
		listen   string
		noBackup bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the translation HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			logrus.WithFields(logrus.Fields{
				"version": cfg.Version,
				"model":   cfg.Provider.Model,
				"cache":   cfg.Cache.DBPath,
			}).Info("starting glossa")
			if cfg.Bearer == "" {
				logrus.Warn("API bearer not configured, the API is open without authentication")
			}

			if !noBackup {
				if _, err := cachepkg.Backup(cfg.Cache.DBPath); err != nil {
					return err
				}
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			jctx, stopJanitor := context.WithCancel(ctx)
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				janitor.New(a.cache, janitor.Config{
					Hour:       cfg.Cache.CleanupHour,
					StaleDays:  cfg.Cache.StaleDays,
					FlushEvery: cfg.Cache.FlushInterval,
				}).Run(jctx)
			}()
			defer func() {
				stopJanitor()
				wg.Wait()
			}()

			srv := server.New(server.Config{
				Listen:           cfg.Listen,
				Bearer:           cfg.Bearer,
				Version:          cfg.Version,
				OpenAIConfigured: cfg.Provider.APIKey != "",
				ShutdownTimeout:  cfg.Translation.Timeout,
			}, a.svc)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (overrides config)")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "skip the cache database backup at startup")
	return cmd
}
