package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newCacheCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the translation cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			c, err := openCache(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			stats, err := c.Stats(context.Background())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Entries:\t%s\n", humanize.Comma(stats.TotalEntries))
			fmt.Fprintf(w, "Size:\t%s\n", humanize.Bytes(uint64(stats.TotalSizeBytes)))
			fmt.Fprintf(w, "Hits:\t%d\n", stats.TotalHits)
			if stats.OldestEntry != nil {
				fmt.Fprintf(w, "Oldest:\t%s (%s)\n", stats.OldestEntry.Local().Format("2006-01-02 15:04:05"), humanize.Time(*stats.OldestEntry))
			}
			if stats.NewestEntry != nil {
				fmt.Fprintf(w, "Newest:\t%s (%s)\n", stats.NewestEntry.Local().Format("2006-01-02 15:04:05"), humanize.Time(*stats.NewestEntry))
			}
			return w.Flush()
		},
	}

	var (
		expiredOnly bool
		staleDays   int
	)
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if expiredOnly && staleDays > 0 {
				return fmt.Errorf("--expired and --stale are mutually exclusive")
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			c, err := openCache(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			ctx := context.Background()
			switch {
			case expiredOnly:
				n, err := c.ClearExpired(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Cleared %d expired entries.\n", n)
			case staleDays > 0:
				n, err := c.ClearStale(ctx, staleDays)
				if err != nil {
					return err
				}
				fmt.Printf("Cleared %d entries not accessed in %d days.\n", n, staleDays)
			default:
				n, err := c.ClearAll(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Cleared all %d entries.\n", n)
			}
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&expiredOnly, "expired", false, "only clear entries older than the max age")
	clearCmd.Flags().IntVar(&staleDays, "stale", 0, "only clear entries not accessed in this many days")

	flushCmd := &cobra.Command{
		Use:   "flush",
		Short: "Write buffered hit counts to the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			c, err := openCache(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			n, err := c.FlushPendingHits(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Flushed pending hits for %d entries.\n", n)
			return nil
		},
	}

	cmd.AddCommand(statsCmd, clearCmd, flushCmd)
	return cmd
}
