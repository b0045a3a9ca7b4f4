// Package sqlite stores translated documents in a SQLite database with
// buffered hit accounting, expiry on read and staleness sweeps.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/pario-ai/glossa/pkg/apperr"
	"github.com/pario-ai/glossa/pkg/models"
)

// timeLayout is fixed width so stored timestamps compare lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Connection settings applied to every pooled connection.
var pragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"cache_size(-8000)",
	"busy_timeout(5000)",
	"wal_autocheckpoint(100)",
}

const maxOpenConns = 2

const createTranslationsTable = `
CREATE TABLE IF NOT EXISTS translations (
	cache_key TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL,
	path TEXT NOT NULL,
	translated_content TEXT NOT NULL,
	translated_hash TEXT NOT NULL,
	created_at TEXT NOT NULL,
	accessed_at TEXT NOT NULL,
	hit_count INTEGER DEFAULT 0,
	metadata TEXT DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_content_hash ON translations(content_hash);
CREATE INDEX IF NOT EXISTS idx_path ON translations(path);
CREATE INDEX IF NOT EXISTS idx_created_at ON translations(created_at);
`

// Cache is the durable translation store.
type Cache struct {
	db     *sql.DB
	maxAge time.Duration
	now    func() time.Time

	// flushMu keeps a flush from landing between a Get's read of hit_count
	// and its pending increment.
	flushMu sync.RWMutex
	mu      sync.Mutex
	pending map[string]int64
	misses  atomic.Int64

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the wall clock used for timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New opens (creating if needed) the cache database at dbPath. Entries older
// than maxAge are treated as expired when read.
func New(dbPath string, maxAge time.Duration, opts ...Option) (*Cache, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperr.Storage("create directory", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, apperr.Storage("open", err)
	}
	db.SetMaxOpenConns(maxOpenConns)

	if _, err := db.Exec(createTranslationsTable); err != nil {
		db.Close()
		return nil, apperr.Storage("migrate", err)
	}

	c := &Cache{
		db:      db,
		maxAge:  maxAge,
		now:     time.Now,
		pending: make(map[string]int64),
	}
	for _, o := range opts {
		o(c)
	}

	logrus.WithFields(logrus.Fields{
		"path":    dbPath,
		"max_age": maxAge.String(),
	}).Info("[CACHE] database opened")
	return c, nil
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

func (c *Cache) timestamp() string {
	return c.now().UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Get returns the entry stored under key, or nil when it is absent or
// expired. An expired row is deleted before returning. A fresh hit is
// buffered and reflected in the returned HitCount.
func (c *Cache) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	c.flushMu.RLock()
	defer c.flushMu.RUnlock()

	var (
		entry                 models.CacheEntry
		createdAt, accessedAt string
		metadata              string
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT cache_key, content_hash, path, translated_content, translated_hash,
		        created_at, accessed_at, hit_count, metadata
		 FROM translations WHERE cache_key = ?`, key,
	).Scan(&entry.CacheKey, &entry.ContentHash, &entry.Path, &entry.TranslatedContent,
		&entry.TranslatedHash, &createdAt, &accessedAt, &entry.HitCount, &metadata)
	if errors.Is(err, sql.ErrNoRows) {
		c.misses.Add(1)
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage("get", err)
	}

	if entry.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, apperr.Storage("get", fmt.Errorf("parse created_at: %w", err))
	}
	if entry.AccessedAt, err = parseTime(accessedAt); err != nil {
		return nil, apperr.Storage("get", fmt.Errorf("parse accessed_at: %w", err))
	}

	if c.now().Sub(entry.CreatedAt) > c.maxAge {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM translations WHERE cache_key = ?`, key); err != nil {
			return nil, apperr.Storage("delete expired", err)
		}
		c.mu.Lock()
		delete(c.pending, key)
		c.mu.Unlock()
		c.misses.Add(1)
		logrus.WithField("key", key).Debug("[CACHE] entry expired")
		return nil, nil
	}

	if err := json.Unmarshal([]byte(metadata), &entry.Metadata); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("[CACHE] unreadable metadata")
	}
	if entry.Metadata == nil {
		entry.Metadata = map[string]any{}
	}

	c.mu.Lock()
	c.pending[key]++
	entry.HitCount += c.pending[key]
	c.mu.Unlock()

	return &entry, nil
}

// Set stores a translation under key, replacing any previous entry and
// resetting its hit count.
func (c *Cache) Set(ctx context.Context, key, contentHash, path, translated, translatedHash string, metadata map[string]any) (*models.CacheEntry, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return nil, apperr.Storage("set", fmt.Errorf("encode metadata: %w", err))
	}

	now := c.now().UTC()
	ts := now.Format(timeLayout)
	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO translations
		 (cache_key, content_hash, path, translated_content, translated_hash,
		  created_at, accessed_at, hit_count, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		key, contentHash, path, translated, translatedHash, ts, ts, string(meta),
	)
	if err != nil {
		return nil, apperr.Storage("set", err)
	}

	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()

	return &models.CacheEntry{
		CacheKey:          key,
		ContentHash:       contentHash,
		Path:              path,
		TranslatedContent: translated,
		TranslatedHash:    translatedHash,
		CreatedAt:         now,
		AccessedAt:        now,
		Metadata:          metadata,
	}, nil
}

// FlushPendingHits writes buffered hits to storage and returns the number of
// keys updated. On failure the drained hits are merged back for the next
// flush.
func (c *Cache) FlushPendingHits(ctx context.Context) (int, error) {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	batch := c.pending
	c.pending = make(map[string]int64)
	c.mu.Unlock()

	if len(batch) == 0 {
		return 0, nil
	}

	if err := c.applyHits(ctx, batch); err != nil {
		c.mu.Lock()
		for k, n := range batch {
			c.pending[k] += n
		}
		c.mu.Unlock()
		return 0, apperr.Storage("flush hits", err)
	}

	logrus.WithField("keys", len(batch)).Debug("[CACHE] flushed pending hits")
	return len(batch), nil
}

func (c *Cache) applyHits(ctx context.Context, batch map[string]int64) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE translations SET accessed_at = ?, hit_count = hit_count + ? WHERE cache_key = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	ts := c.timestamp()
	for key, n := range batch {
		if _, err := stmt.ExecContext(ctx, ts, n, key); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ClearExpired deletes entries created more than maxAge ago.
func (c *Cache) ClearExpired(ctx context.Context) (int64, error) {
	cutoff := c.now().Add(-c.maxAge).UTC().Format(timeLayout)
	n, err := c.deleteWhere(ctx, `DELETE FROM translations WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, apperr.Storage("clear expired", err)
	}
	return n, nil
}

// ClearStale deletes entries not accessed in the last days days.
func (c *Cache) ClearStale(ctx context.Context, days int) (int64, error) {
	cutoff := c.now().AddDate(0, 0, -days).UTC().Format(timeLayout)
	n, err := c.deleteWhere(ctx, `DELETE FROM translations WHERE accessed_at < ?`, cutoff)
	if err != nil {
		return 0, apperr.Storage("clear stale", err)
	}
	return n, nil
}

// ClearAll deletes every entry and drops buffered hits.
func (c *Cache) ClearAll(ctx context.Context) (int64, error) {
	n, err := c.deleteWhere(ctx, `DELETE FROM translations`)
	if err != nil {
		return 0, apperr.Storage("clear", err)
	}
	c.mu.Lock()
	c.pending = make(map[string]int64)
	c.mu.Unlock()
	return n, nil
}

func (c *Cache) deleteWhere(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Stats reports entry counts and hit/miss totals. Hits are the persisted
// counts only; misses are counted since the process started.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	var (
		stats          models.CacheStats
		oldest, newest sql.NullString
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(LENGTH(CAST(translated_content AS BLOB))), 0),
		        MIN(created_at), MAX(created_at),
		        COALESCE(SUM(hit_count), 0)
		 FROM translations`,
	).Scan(&stats.TotalEntries, &stats.TotalSizeBytes, &oldest, &newest, &stats.TotalHits)
	if err != nil {
		return models.CacheStats{}, apperr.Storage("stats", err)
	}

	if oldest.Valid {
		if t, err := parseTime(oldest.String); err == nil {
			stats.OldestEntry = &t
		}
	}
	if newest.Valid {
		if t, err := parseTime(newest.String); err == nil {
			stats.NewestEntry = &t
		}
	}
	stats.TotalMisses = c.misses.Load()
	return stats, nil
}

// Ping reports whether the database is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return apperr.Storage("ping", c.db.PingContext(ctx))
}

// Close flushes pending hits, checkpoints the write-ahead log into the main
// database file and releases the pool. Later calls return the first result.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		ctx := context.Background()
		var errs []error
		if _, err := c.FlushPendingHits(ctx); err != nil {
			errs = append(errs, err)
		}
		if _, err := c.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
			errs = append(errs, apperr.Storage("checkpoint", err))
		}
		if err := c.db.Close(); err != nil {
			errs = append(errs, apperr.Storage("close", err))
		}
		c.closeErr = errors.Join(errs...)
		logrus.Info("[CACHE] closed")
	})
	return c.closeErr
}
