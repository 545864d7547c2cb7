package extraction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"golang-statement-extractor/internal/models"
	"golang-statement-extractor/pkg/logger"
)

// CachedExtractor memoizes adapter results by document content, so that
// duplicate files inside a batch are extracted once. Failed extractions are
// not cached.
type CachedExtractor struct {
	cache  *cache.Cache
	hits   atomic.Int64
	misses atomic.Int64
	logger logger.Logger
}

// NewCachedExtractor creates a cache whose entries expire after ttl
func NewCachedExtractor(ttl time.Duration) *CachedExtractor {
	return &CachedExtractor{
		cache:  cache.New(ttl, 2*ttl),
		logger: logger.WithComponent("extraction_cache"),
	}
}

// Wrap returns the strategies with every non-nil one served through the cache
func (c *CachedExtractor) Wrap(e Extractors) Extractors {
	wrapped := Extractors{}
	if e.Tables != nil {
		wrapped.Tables = &cachedTables{cache: c, next: e.Tables}
	}
	if e.Text != nil {
		wrapped.Text = &cachedText{cache: c, next: e.Text}
	}
	if e.OCR != nil {
		wrapped.OCR = &cachedOCR{cache: c, next: e.OCR}
	}
	return wrapped
}

// Stats returns the number of cache hits and misses
func (c *CachedExtractor) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// key returns the cache key of a document and strategy. ok is false when
// the document cannot be read, in which case the cache is bypassed.
func (c *CachedExtractor) key(path, strategy string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", false
	}
	return hex.EncodeToString(h.Sum(nil)) + ":" + strategy, true
}

func (c *CachedExtractor) lookup(key string) (interface{}, bool) {
	v, ok := c.cache.Get(key)
	if ok {
		c.hits.Add(1)
		c.logger.WithField("key", key).Debug("Extraction cache hit")
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

type cachedTables struct {
	cache *CachedExtractor
	next  TableExtractor
}

func (t *cachedTables) ExtractTables(ctx context.Context, path string, flavor Flavor) ([]models.Grid, error) {
	key, ok := t.cache.key(path, methodTables+":"+string(flavor))
	if !ok {
		return t.next.ExtractTables(ctx, path, flavor)
	}
	if v, hit := t.cache.lookup(key); hit {
		return v.([]models.Grid), nil
	}
	grids, err := t.next.ExtractTables(ctx, path, flavor)
	if err == nil {
		t.cache.cache.SetDefault(key, grids)
	}
	return grids, err
}

type cachedText struct {
	cache *CachedExtractor
	next  TextExtractor
}

func (t *cachedText) ExtractText(ctx context.Context, path string) (TextResult, error) {
	key, ok := t.cache.key(path, methodText)
	if !ok {
		return t.next.ExtractText(ctx, path)
	}
	if v, hit := t.cache.lookup(key); hit {
		return v.(TextResult), nil
	}
	result, err := t.next.ExtractText(ctx, path)
	if err == nil {
		t.cache.cache.SetDefault(key, result)
	}
	return result, err
}

type cachedOCR struct {
	cache *CachedExtractor
	next  OCRExtractor
}

func (o *cachedOCR) ExtractPages(ctx context.Context, path string) ([]models.PageText, error) {
	key, ok := o.cache.key(path, methodOCR)
	if !ok {
		return o.next.ExtractPages(ctx, path)
	}
	if v, hit := o.cache.lookup(key); hit {
		return v.([]models.PageText), nil
	}
	pages, err := o.next.ExtractPages(ctx, path)
	if err == nil {
		o.cache.cache.SetDefault(key, pages)
	}
	return pages, err
}
