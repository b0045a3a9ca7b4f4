package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pario-ai/glossa/pkg/models"
	"github.com/pario-ai/glossa/pkg/translator"
)

func newTranslateCmd(configPath *string) *cobra.Command {
	var (
		output  string
		source  string
		target  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "translate <file>",
		Short: "Translate one Markdown file (\"-\" reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			content, err := readInput(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var opts *models.TranslateOptions
			if source != "" || target != "" {
				opts = &models.TranslateOptions{SourceLanguage: source, TargetLanguage: target}
			}
			res, err := a.svc.TranslateDocument(ctx, translator.DocumentRequest{
				Content:       content,
				Path:          args[0],
				Options:       opts,
				NoCacheLookup: noCache,
			})
			if err != nil {
				return fmt.Errorf("translate %s: %w", args[0], err)
			}

			logrus.WithFields(logrus.Fields{
				"path":   args[0],
				"cached": res.Cached,
			}).Info("translated")

			if output == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), res.Content)
				return err
			}
			if err := os.WriteFile(output, []byte(res.Content), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the translation to this file instead of stdout")
	cmd.Flags().StringVar(&source, "source", "", "source language (defaults to config)")
	cmd.Flags().StringVar(&target, "target", "", "target language (defaults to config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "skip the cache lookup (the result is still stored)")
	return cmd
}

func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
