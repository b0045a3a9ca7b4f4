package mcp

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/pario-ai/glossa/pkg/models"
)

func formatCacheStats(stats models.CacheStats) string {
	total := stats.TotalHits + stats.TotalMisses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.TotalHits) / float64(total) * 100
	}

	var b strings.Builder
	b.WriteString("Cache Statistics\n")
	fmt.Fprintf(&b, "  Entries:  %s\n", humanize.Comma(stats.TotalEntries))
	fmt.Fprintf(&b, "  Size:     %s\n", humanize.Bytes(uint64(stats.TotalSizeBytes)))
	fmt.Fprintf(&b, "  Hits:     %d\n", stats.TotalHits)
	fmt.Fprintf(&b, "  Misses:   %d\n", stats.TotalMisses)
	fmt.Fprintf(&b, "  Hit Rate: %.1f%%\n", hitRate)
	if stats.OldestEntry != nil {
		fmt.Fprintf(&b, "  Oldest:   %s\n", humanize.Time(*stats.OldestEntry))
	}
	if stats.NewestEntry != nil {
		fmt.Fprintf(&b, "  Newest:   %s\n", humanize.Time(*stats.NewestEntry))
	}
	return b.String()
}
