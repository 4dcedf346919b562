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

package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/novatechflow/bagkit/pkg/cache"
)

const (
	// DefaultBlockSize is the granularity of ranged reads.
	DefaultBlockSize = 1 << 20
	// DefaultCacheBlocks is how many blocks an ObjectReader keeps.
	DefaultCacheBlocks = 16
)

// ReaderOptions tune an ObjectReader.
type ReaderOptions struct {
	BlockSize   int
	CacheBlocks int
}

// ObjectReader exposes an object as an io.ReaderAt. Reads are served from
// fixed-size blocks fetched with ranged requests and kept in an LRU, so the
// many small record reads of a bag scan cost a handful of requests.
type ObjectReader struct {
	ctx       context.Context
	store     ObjectStore
	key       string
	size      int64
	blockSize int64
	blocks    *cache.ChunkCache
}

// NewObjectReader stats key and returns a reader over it. ctx bounds every
// request the reader makes.
func NewObjectReader(ctx context.Context, store ObjectStore, key string, opts ReaderOptions) (*ObjectReader, error) {
	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultBlockSize
	}
	if opts.CacheBlocks <= 0 {
		opts.CacheBlocks = DefaultCacheBlocks
	}
	size, err := store.Stat(ctx, key)
	if err != nil {
		return nil, err
	}
	return &ObjectReader{
		ctx:       ctx,
		store:     store,
		key:       key,
		size:      size,
		blockSize: int64(opts.BlockSize),
		blocks:    cache.NewChunkCache(opts.BlockSize * opts.CacheBlocks),
	}, nil
}

// Size returns the object size.
func (r *ObjectReader) Size() int64 {
	return r.size
}

func (r *ObjectReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("read %s: negative offset %d", r.key, off)
	}
	if off >= r.size {
		return 0, io.EOF
	}
	n := 0
	for n < len(p) && off < r.size {
		block, err := r.block(off / r.blockSize)
		if err != nil {
			return n, err
		}
		c := copy(p[n:], block[off%r.blockSize:])
		n += c
		off += int64(c)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (r *ObjectReader) block(idx int64) ([]byte, error) {
	start := idx * r.blockSize
	if data, ok := r.blocks.Get(start); ok {
		return data, nil
	}
	end := min(start+r.blockSize, r.size) - 1
	data, err := r.store.ReadRange(r.ctx, r.key, &ByteRange{Start: start, End: end})
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != end-start+1 {
		return nil, fmt.Errorf("read %s: range %d-%d returned %d bytes", r.key, start, end, len(data))
	}
	r.blocks.Set(start, data)
	return data, nil
}

// Close drops the cached blocks.
func (r *ObjectReader) Close() error {
	r.blocks.Reset()
	return nil
}
