// Package cache holds in-memory caches shared by the commands of one session.
package cache

import (
	"io/fs"
	"time"
)

// DefaultHashEntries bounds the content hash cache.
const DefaultHashEntries = 20000

type hashEntry struct {
	size    int64
	modTime time.Time
	hash    string
}

// HashCache remembers content hashes by absolute file path. An entry is only
// reused while the file's size and modification time are unchanged.
type HashCache struct {
	lru *LRU[string, hashEntry]
}

// NewHashCache creates a cache holding up to capacity hashes.
func NewHashCache(capacity int) *HashCache {
	return &HashCache{lru: NewLRU[string, hashEntry](capacity)}
}

// Get returns the cached hash of path if info still describes the hashed file.
func (c *HashCache) Get(path string, info fs.FileInfo) (string, bool) {
	e, ok := c.lru.Get(path)
	if !ok {
		return "", false
	}
	if e.size != info.Size() || !e.modTime.Equal(info.ModTime()) {
		c.lru.Delete(path)
		return "", false
	}
	return e.hash, true
}

// Set records the hash of path as described by info.
func (c *HashCache) Set(path string, info fs.FileInfo, hash string) {
	c.lru.Set(path, hashEntry{size: info.Size(), modTime: info.ModTime(), hash: hash})
}

// Len returns the number of cached hashes.
func (c *HashCache) Len() int {
	return c.lru.Len()
}
