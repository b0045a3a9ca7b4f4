package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "glossa",
		Short:         "Glossa translates Markdown documents through an LLM and caches the results",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "glossa.yaml", "path to config file (optional)")

	root.AddCommand(
		newServeCmd(&configPath),
		newTranslateCmd(&configPath),
		newCacheCmd(&configPath),
		newMCPCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
