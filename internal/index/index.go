// Package index maintains the in-memory searchable view of every
// published PDF title.
package index

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lawbot/backend/internal/arabic"
	"github.com/lawbot/backend/internal/content"
	"github.com/lawbot/backend/internal/metrics"
	"github.com/lawbot/backend/pkg/logger"
)

// Entry is one searchable PDF title with its parent document.
type Entry struct {
	DocumentID      int64
	DocumentTitle   string
	DocumentLink    string
	PDFTitle        string
	PDFURL          string
	TitleNorm       string
	DocumentTitNorm string
}

// Cache holds the flattened index and rebuilds it from the store when
// it ages out.
type Cache struct {
	store content.Store
	ttl   time.Duration

	mu      sync.RWMutex
	entries []Entry
	builtAt time.Time
}

// NewCache wraps the store with a TTL-bounded index.
func NewCache(store content.Store, ttl time.Duration) *Cache {
	return &Cache{store: store, ttl: ttl}
}

// Entries returns the current index, rebuilding it first if the
// cached copy is older than the TTL. A rebuild failure with a warm
// cache serves the stale copy.
func (c *Cache) Entries(ctx context.Context) ([]Entry, error) {
	c.mu.RLock()
	fresh := c.entries != nil && time.Since(c.builtAt) < c.ttl
	entries := c.entries
	c.mu.RUnlock()

	if fresh {
		return entries, nil
	}

	rebuilt, err := c.build(ctx)
	if err != nil {
		if entries != nil {
			logger.Warn("Index rebuild failed, serving stale entries", zap.Error(err))
			return entries, nil
		}
		return nil, err
	}
	return rebuilt, nil
}

// Invalidate drops the cached index so the next read rebuilds it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = nil
	c.builtAt = time.Time{}
	c.mu.Unlock()
}

// Size returns the number of indexed PDF titles without triggering a
// rebuild.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) build(ctx context.Context) ([]Entry, error) {
	docs, err := c.store.ListPublished(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(docs))
	skipped := 0
	for _, doc := range docs {
		attachments := DecodePayload(doc.Payload)
		if len(attachments) == 0 {
			skipped++
			continue
		}

		docTitle := content.CleanTitle(doc.Title)
		docTitleNorm := arabic.Normalize(docTitle)
		for _, a := range attachments {
			title := content.CleanTitle(a.Title)
			if title == "" {
				continue
			}
			entries = append(entries, Entry{
				DocumentID:      doc.ID,
				DocumentTitle:   docTitle,
				DocumentLink:    doc.Link,
				PDFTitle:        title,
				PDFURL:          a.URL,
				TitleNorm:       arabic.Normalize(title),
				DocumentTitNorm: docTitleNorm,
			})
		}
	}

	c.mu.Lock()
	c.entries = entries
	c.builtAt = time.Now()
	c.mu.Unlock()

	metrics.IndexEntries.Set(float64(len(entries)))

	logger.Debug("Rebuilt document index",
		zap.Int("documents", len(docs)),
		zap.Int("entries", len(entries)),
		zap.Int("skipped", skipped),
	)
	return entries, nil
}
