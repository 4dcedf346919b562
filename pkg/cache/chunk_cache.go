// Copyright 2025 Alexander Alten (novatechflow), NovaTechflow (novatechflow.com).
// This project is supported and financed by Scalytics, Inc. (www.scalytics.io).
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"container/list"
	"sync"
)

// ChunkCache provides an LRU cache of decompressed chunk bytes keyed by the
// chunk's file position.
type ChunkCache struct {
	mu       sync.Mutex
	capacity int
	size     int
	ll       *list.List
	items    map[int64]*list.Element
}

type cacheEntry struct {
	pos  int64
	data []byte
}

// NewChunkCache creates a cache with capacity in bytes.
func NewChunkCache(capacityBytes int) *ChunkCache {
	if capacityBytes <= 0 {
		capacityBytes = 1
	}
	return &ChunkCache{
		capacity: capacityBytes,
		ll:       list.New(),
		items:    make(map[int64]*list.Element),
	}
}

// Get returns cached data if present.
func (c *ChunkCache) Get(pos int64) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[pos]; ok {
		c.ll.MoveToFront(elem)
		return elem.Value.(*cacheEntry).data, true
	}
	return nil, false
}

// Set adds or replaces the bytes for a chunk. The cache takes ownership of
// data. An entry larger than the capacity is not retained.
func (c *ChunkCache) Set(pos int64, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[pos]; ok {
		entry := elem.Value.(*cacheEntry)
		c.size += len(data) - len(entry.data)
		entry.data = data
		c.ll.MoveToFront(elem)
		c.evictIfNeeded()
		return
	}
	elem := c.ll.PushFront(&cacheEntry{pos: pos, data: data})
	c.items[pos] = elem
	c.size += len(data)
	c.evictIfNeeded()
}

// Evict drops the entry for pos, reporting whether it was cached.
func (c *ChunkCache) Evict(pos int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[pos]
	if !ok {
		return false
	}
	c.remove(elem)
	return true
}

// Reset drops every entry.
func (c *ChunkCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[int64]*list.Element)
	c.size = 0
}

// Len returns the number of cached chunks.
func (c *ChunkCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Size returns the cached byte total.
func (c *ChunkCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *ChunkCache) evictIfNeeded() {
	for c.size > c.capacity && c.ll.Len() > 0 {
		c.remove(c.ll.Back())
	}
}

func (c *ChunkCache) remove(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	delete(c.items, entry.pos)
	c.ll.Remove(elem)
	c.size -= len(entry.data)
}
