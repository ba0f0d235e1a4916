// SPDX-License-Identifier: MIT

// Package cache stores session snapshots keyed by session id, so a rejoining
// client can render the last known state before its stream catches up.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/morahq/mora/internal/metrics"
	"github.com/morahq/mora/internal/session"
)

// Key returns the canonical cache key for a session.
func Key(sessionID string) string {
	return "mora:session:" + sessionID
}

// SnapshotCache holds the most recent snapshot per session with a TTL.
type SnapshotCache interface {
	// Get returns the cached snapshot, if present and not expired.
	Get(ctx context.Context, sessionID string) (session.Snapshot, bool)
	// Put stores a snapshot with the given TTL.
	Put(ctx context.Context, snap session.Snapshot, ttl time.Duration)
	// Delete removes a session's snapshot.
	Delete(ctx context.Context, sessionID string)
	// Close releases background resources.
	Close() error
}

type memoryEntry struct {
	snap       session.Snapshot
	expiration time.Time
}

func (e memoryEntry) expired() bool {
	return time.Now().After(e.expiration)
}

// memoryCache is the default in-process implementation.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	stop    chan struct{}
	once    sync.Once
}

// NewMemory creates an in-process snapshot cache. cleanupInterval controls
// how often expired entries are swept; <= 0 disables the sweeper.
func NewMemory(cleanupInterval time.Duration) SnapshotCache {
	c := &memoryCache{
		entries: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.sweep(cleanupInterval)
	}
	return c
}

func (c *memoryCache) Get(_ context.Context, sessionID string) (session.Snapshot, bool) {
	c.mu.RLock()
	e, found := c.entries[Key(sessionID)]
	c.mu.RUnlock()

	if !found || e.expired() {
		metrics.IncCacheRequest(false)
		return session.Snapshot{}, false
	}
	metrics.IncCacheRequest(true)
	return e.snap, true
}

func (c *memoryCache) Put(_ context.Context, snap session.Snapshot, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[Key(snap.ID)] = memoryEntry{snap: snap, expiration: time.Now().Add(ttl)}
}

func (c *memoryCache) Delete(_ context.Context, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, Key(sessionID))
}

func (c *memoryCache) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

func (c *memoryCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *memoryCache) deleteExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if e.expired() {
			delete(c.entries, key)
		}
	}
}

// noopCache disables caching without branching at the call sites.
type noopCache struct{}

// NewNoop returns a cache that never stores anything.
func NewNoop() SnapshotCache { return noopCache{} }

func (noopCache) Get(context.Context, string) (session.Snapshot, bool) {
	return session.Snapshot{}, false
}
func (noopCache) Put(context.Context, session.Snapshot, time.Duration) {}
func (noopCache) Delete(context.Context, string)                       {}
func (noopCache) Close() error                                         { return nil }
