// Package tmcache is a persistent translation memory: an SQLite table of
// earlier machine translations with an in-process LRU in front of it.
//
// A Cache satisfies translate.Memory, so translators can be wrapped with
// translate.Cached and stop paying for text they have already seen.
package tmcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	sq "github.com/Masterminds/squirrel"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/minios-linux/modloc/translate"
)

// DefaultMemoryEntries is the LRU size used when Open gets a non-positive one.
const DefaultMemoryEntries = 4096

// DefaultPath returns the cache database path under dataDir.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, "cache.db")
}

// Stats counts cache activity since Open.
type Stats struct {
	MemoryHits int64
	DiskHits   int64
	Misses     int64
	Stores     int64
}

// Cache is a two-tier translation memory. Safe for concurrent use.
type Cache struct {
	db  *sql.DB
	sq  sq.StatementBuilderType
	mem *lru.Cache[translate.MemoryKey, string]

	memHits, diskHits, misses, stores atomic.Int64
}

// Open opens (creating if needed) the cache database at path.
func Open(path string, memoryEntries int) (*Cache, error) {
	if memoryEntries <= 0 {
		memoryEntries = DefaultMemoryEntries
	}
	mem, err := lru.New[translate.MemoryKey, string](memoryEntries)
	if err != nil {
		return nil, fmt.Errorf("creating memory tier: %w", err)
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &Cache{db: db, sq: sq.StatementBuilder, mem: mem}, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		MemoryHits: c.memHits.Load(),
		DiskHits:   c.diskHits.Load(),
		Misses:     c.misses.Load(),
		Stores:     c.stores.Load(),
	}
}

// Get returns the stored translation for key.
func (c *Cache) Get(ctx context.Context, key translate.MemoryKey) (string, bool, error) {
	if v, ok := c.mem.Get(key); ok {
		c.memHits.Add(1)
		return v, true, nil
	}

	sqlStr, args, err := c.sq.Select("translation").
		From("cache").
		Where(sq.Eq{
			"source_text": key.Source,
			"src_lang":    key.SrcLang,
			"tgt_lang":    key.TgtLang,
			"provider":    key.Provider,
			"model":       key.Model,
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return "", false, err
	}

	var v string
	if err := c.db.QueryRowContext(ctx, sqlStr, args...).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.misses.Add(1)
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading translation memory: %w", err)
	}
	c.diskHits.Add(1)
	c.mem.Add(key, v)
	return v, true, nil
}

// Put stores translation for key, replacing an earlier one.
func (c *Cache) Put(ctx context.Context, key translate.MemoryKey, translation string) error {
	sqlStr, args, err := c.sq.Insert("cache").
		Columns("source_text", "src_lang", "tgt_lang", "provider", "model", "translation").
		Values(key.Source, key.SrcLang, key.TgtLang, key.Provider, key.Model, translation).
		Suffix("ON CONFLICT(source_text, src_lang, tgt_lang, provider, model) DO UPDATE SET translation=excluded.translation").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := c.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("writing translation memory: %w", err)
	}
	c.stores.Add(1)
	c.mem.Add(key, translation)
	return nil
}

// Lookup implements translate.Memory.
func (c *Cache) Lookup(ctx context.Context, key translate.MemoryKey) (string, bool, error) {
	return c.Get(ctx, key)
}

// Store implements translate.Memory.
func (c *Cache) Store(ctx context.Context, key translate.MemoryKey, translation string) error {
	return c.Put(ctx, key, translation)
}

var _ translate.Memory = (*Cache)(nil)
