package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"

	"github.com/foodlens/backend/internal/domain"
)

// ScanCache is a thread-safe in-memory cache of previously resolved scans,
// keyed by barcode. It holds at most capacity records; the least recently
// scanned entry is evicted first.
type ScanCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently scanned
}

type entry struct {
	barcode string
	record  domain.ProductRecord
}

// NewScanCache creates a scan cache holding at most capacity records.
func NewScanCache(capacity int) *ScanCache {
	if capacity <= 0 {
		capacity = 200
	}
	return &ScanCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// GetByBarcode returns the cached record for an exact barcode match and
// refreshes its recency, or ErrCacheMiss.
func (c *ScanCache) GetByBarcode(ctx context.Context, barcode string) (*domain.ProductRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[barcode]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	c.order.MoveToFront(elem)

	record := elem.Value.(*entry).record
	return &record, nil
}

// SearchByName returns cached records whose name or brand contains any
// word of the query, or the whole query as a substring.
func (c *ScanCache) SearchByName(ctx context.Context, query string) ([]domain.ProductRecord, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, domain.ErrInvalidRequest
	}
	words := strings.Fields(q)

	c.mu.Lock()
	defer c.mu.Unlock()

	var matches []domain.ProductRecord
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*entry)
		haystack := strings.ToLower(e.record.Name + " " + e.record.Brand)
		if strings.Contains(haystack, q) || containsAnyWord(haystack, words) {
			matches = append(matches, e.record)
		}
	}
	return matches, nil
}

// Put stores a freshly resolved record, evicting the least recently
// scanned entry when over capacity. Records without a barcode are ignored.
func (c *ScanCache) Put(ctx context.Context, record domain.ProductRecord) error {
	if record.Barcode == "" {
		return domain.ErrInvalidRequest
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[record.Barcode]; ok {
		elem.Value.(*entry).record = record
		c.order.MoveToFront(elem)
		return nil
	}

	c.entries[record.Barcode] = c.order.PushFront(&entry{barcode: record.Barcode, record: record})

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).barcode)
	}
	return nil
}

// Size returns the current number of cached records.
func (c *ScanCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear removes all cached records.
func (c *ScanCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

func containsAnyWord(haystack string, words []string) bool {
	for _, w := range words {
		if len(w) > 1 && strings.Contains(haystack, w) {
			return true
		}
	}
	return false
}
