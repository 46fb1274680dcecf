// Package cache provides dataset metadata caches.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/jobrunner/limes/internal/domain"
)

type entry struct {
	dataset domain.Dataset
	expires time.Time
}

// Memory is an in-process dataset cache. The least recently used dataset
// is dropped once the cache is full. maxTTL bounds the lifetime of every
// entry; a shorter TTL passed to Set is honored on lookup.
type Memory struct {
	lru *expirable.LRU[string, entry]
	now func() time.Time
}

// NewMemory creates an in-memory cache holding at most capacity datasets.
// A maxTTL of zero keeps entries until they are evicted or their own TTL
// has passed.
func NewMemory(capacity int, maxTTL time.Duration) *Memory {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Memory{
		lru: expirable.NewLRU[string, entry](capacity, nil, maxTTL),
		now: time.Now,
	}
}

// Get implements output.DatasetCache.
func (m *Memory) Get(_ context.Context, key string) (domain.Dataset, bool, error) {
	e, ok := m.lru.Get(key)
	if !ok {
		return domain.Dataset{}, false, nil
	}
	if !m.now().Before(e.expires) {
		m.lru.Remove(key)
		return domain.Dataset{}, false, nil
	}
	return e.dataset, true, nil
}

// Set implements output.DatasetCache.
func (m *Memory) Set(_ context.Context, ds domain.Dataset, ttl time.Duration) error {
	m.lru.Add(ds.Key, entry{dataset: ds, expires: m.now().Add(ttl)})
	return nil
}

// Len returns the number of entries, including expired ones not yet dropped.
func (m *Memory) Len() int {
	return m.lru.Len()
}
