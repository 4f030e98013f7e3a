package service

import (
	"context"
	"sync"
	"time"
)

// DocumentCache caches rendered metadata documents to avoid rebuilding them on every request
type DocumentCache struct {
	cache      map[string]*CachedDocument
	mutex      sync.RWMutex
	ttl        time.Duration
	cleanupInt time.Duration
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// CachedDocument represents a cached document of a service
type CachedDocument struct {
	Service   string
	Document  *Document
	CachedAt  time.Time
	ExpiresAt time.Time
}

// NewDocumentCache creates a new document cache.
// A non-positive ttl keeps documents until they are invalidated.
func NewDocumentCache(ttl time.Duration) *DocumentCache {
	return &DocumentCache{
		cache:      make(map[string]*CachedDocument),
		ttl:        ttl,
		cleanupInt: 10 * time.Minute,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the background cleanup process
func (dc *DocumentCache) Start(ctx context.Context) {
	ticker := time.NewTicker(dc.cleanupInt)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-dc.stopChan:
			return
		case <-ticker.C:
			dc.cleanupExpired()
		}
	}
}

// Stop stops the background cleanup process
func (dc *DocumentCache) Stop() {
	dc.stopOnce.Do(func() {
		close(dc.stopChan)
	})
}

// Get retrieves the cached document of a service
func (dc *DocumentCache) Get(service string) (*Document, bool) {
	dc.mutex.RLock()
	defer dc.mutex.RUnlock()

	cached, exists := dc.cache[service]
	if !exists || dc.expired(cached, time.Now()) {
		return nil, false
	}
	return cached.Document, true
}

// Set stores a document in cache
func (dc *DocumentCache) Set(service string, doc *Document) {
	dc.mutex.Lock()
	defer dc.mutex.Unlock()

	now := time.Now()
	dc.cache[service] = &CachedDocument{
		Service:   service,
		Document:  doc,
		CachedAt:  now,
		ExpiresAt: now.Add(dc.ttl),
	}
}

// Invalidate removes the cached document of a service
func (dc *DocumentCache) Invalidate(service string) {
	dc.mutex.Lock()
	defer dc.mutex.Unlock()

	delete(dc.cache, service)
}

// cleanupExpired removes all expired entries from cache
func (dc *DocumentCache) cleanupExpired() {
	dc.mutex.Lock()
	defer dc.mutex.Unlock()

	now := time.Now()
	for service, cached := range dc.cache {
		if dc.expired(cached, now) {
			delete(dc.cache, service)
		}
	}
}

func (dc *DocumentCache) expired(cached *CachedDocument, now time.Time) bool {
	return dc.ttl > 0 && now.After(cached.ExpiresAt)
}

// GetStats returns cache statistics
func (dc *DocumentCache) GetStats() CacheStats {
	dc.mutex.RLock()
	defer dc.mutex.RUnlock()

	totalEntries := len(dc.cache)
	expiredEntries := 0
	now := time.Now()

	for _, cached := range dc.cache {
		if dc.expired(cached, now) {
			expiredEntries++
		}
	}

	return CacheStats{
		TotalEntries:   totalEntries,
		ActiveEntries:  totalEntries - expiredEntries,
		ExpiredEntries: expiredEntries,
		TTL:            dc.ttl.String(),
	}
}

// CacheStats represents cache statistics
type CacheStats struct {
	TotalEntries   int    `json:"totalEntries"`
	ActiveEntries  int    `json:"activeEntries"`
	ExpiredEntries int    `json:"expiredEntries"`
	TTL            string `json:"ttl"`
}
