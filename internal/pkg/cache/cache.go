package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"threatlens/internal/pkg/models"
)

// Defines the interface for the analysis-result cache.
type ResultCache interface {
	Get(ctx context.Context, key string) (*models.AnalysisResult, bool)
	Put(ctx context.Context, key string, result *models.AnalysisResult)
}

// Creates a SHA-256 signature for a piece of content and its account
// metadata. Two requests with the same signature produce the same analysis.
func Signature(content string, meta *models.AccountMetadata) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(content)))
	if meta != nil {
		fmt.Fprintf(h, "|%s|%d|%d|%d|%t|%t",
			meta.Username, meta.AccountAgeDays, meta.Followers, meta.Following,
			meta.Verified, meta.Anonymous)
	}
	return hex.EncodeToString(h.Sum(nil))
}

type lruEntry struct {
	key    string
	result *models.AnalysisResult
}

// Bounded in-memory LRU cache. This is the default ResultCache when no
// Redis instance is configured.
type lruCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[string]*list.Element
}

// Creates an in-memory LRU cache holding up to capacity results.
func NewLRUCache(capacity int) ResultCache {
	if capacity <= 0 {
		capacity = 1024
	}
	return &lruCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

func (c *lruCache) Get(_ context.Context, key string) (*models.AnalysisResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(element)
	return element.Value.(*lruEntry).result, true
}

func (c *lruCache) Put(_ context.Context, key string, result *models.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.items[key]; ok {
		element.Value.(*lruEntry).result = result
		c.order.MoveToFront(element)
		return
	}

	c.items[key] = c.order.PushFront(&lruEntry{key: key, result: result})

	// Evict the least recently used entry once over capacity
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry).key)
		}
	}
}
