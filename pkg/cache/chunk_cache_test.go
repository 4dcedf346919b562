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

import "testing"

func TestChunkCacheEviction(t *testing.T) {
	cache := NewChunkCache(10)
	cache.Set(4117, []byte("12345"))
	if _, ok := cache.Get(4117); !ok {
		t.Fatalf("expected cache hit")
	}
	cache.Set(8200, []byte("67890"))
	if cache.Len() != 2 || cache.Size() != 10 {
		t.Fatalf("expected two entries, got %d (%d bytes)", cache.Len(), cache.Size())
	}
	cache.Set(12000, []byte("abcde")) // evicts 4117

	if _, ok := cache.Get(4117); ok {
		t.Fatalf("oldest entry should be evicted")
	}
	if _, ok := cache.Get(12000); !ok {
		t.Fatalf("new entry missing")
	}
}

func TestChunkCacheExplicitEvict(t *testing.T) {
	cache := NewChunkCache(100)
	cache.Set(1, []byte("abc"))
	cache.Set(1, []byte("abcdef"))
	if cache.Size() != 6 {
		t.Fatalf("replacement should update size, got %d", cache.Size())
	}
	if !cache.Evict(1) {
		t.Fatalf("expected evict to report entry")
	}
	if cache.Evict(1) {
		t.Fatalf("second evict should be a no-op")
	}
	cache.Set(2, []byte("x"))
	cache.Reset()
	if cache.Len() != 0 || cache.Size() != 0 {
		t.Fatalf("reset should empty the cache")
	}
}

func TestChunkCacheOversizedEntry(t *testing.T) {
	cache := NewChunkCache(4)
	cache.Set(1, []byte("toolarge"))
	if _, ok := cache.Get(1); ok {
		t.Fatalf("entry larger than capacity should not be retained")
	}
}
