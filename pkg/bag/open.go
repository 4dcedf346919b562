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

// Package bag reads ROSBAG V2.0 files: it builds a catalog of connections,
// chunks and per-connection message indexes, and iterates messages in time
// order.
package bag

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/novatechflow/bagkit/pkg/cache"
	"github.com/novatechflow/bagkit/pkg/codec"
)

// DefaultCacheBytes bounds the decompressed chunk cache when Options.CacheBytes is unset.
const DefaultCacheBytes = 256 << 20

// Strategy selects how the catalog is built.
type Strategy int

const (
	// StrategyAuto reads the index and falls back to a linear scan when the
	// index is missing or malformed.
	StrategyAuto Strategy = iota
	// StrategyIndexed reads chunk headers, index data and the index section
	// without decompressing chunks.
	StrategyIndexed
	// StrategyLinear decompresses every chunk and rebuilds the index from
	// the records it finds.
	StrategyLinear
)

func (s Strategy) String() string {
	switch s {
	case StrategyAuto:
		return "auto"
	case StrategyIndexed:
		return "indexed"
	case StrategyLinear:
		return "linear"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy parses "auto", "indexed" or "linear". An empty string means auto.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return StrategyAuto, nil
	case "indexed":
		return StrategyIndexed, nil
	case "linear":
		return StrategyLinear, nil
	default:
		return 0, fmt.Errorf("unknown read strategy %q", s)
	}
}

// Options configures how a bag is opened.
type Options struct {
	Strategy Strategy
	// StrictChunkInfo fails Open on inconsistent ChunkInfo records instead
	// of logging them and relying on the index data.
	StrictChunkInfo bool
	// RetainChunks keeps decompressed chunks cached after an iterator is done
	// with them.
	RetainChunks bool
	CacheBytes   int
	Logger       *slog.Logger
	// OnChunkLoad observes every chunk decompression.
	OnChunkLoad func(compression string, size int, elapsed time.Duration, err error)
}

// Bag is an open bag. Its catalog is immutable; iterators created from it may
// be used concurrently.
type Bag struct {
	src     io.ReaderAt
	closer  io.Closer
	size    int64
	opts    Options
	logger  *slog.Logger
	header  bagHeader
	catalog *Catalog
	conns   map[uint32]*Connection
	cache   *cache.ChunkCache
	schemas sync.Map // connection id -> *schemaResult
	closed  atomic.Bool
}

type bagHeader struct {
	indexPos   int64
	connCount  uint32
	chunkCount uint32
	// end is the position of the first record after the bag header.
	end int64
}

// Open opens the bag file at path.
func Open(path string, opts Options) (*Bag, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	b, err := NewReader(f, st.Size(), opts)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return b, nil
}

// OpenBytes opens a bag held in memory.
func OpenBytes(data []byte, opts Options) (*Bag, error) {
	return NewReader(bytes.NewReader(data), int64(len(data)), opts)
}

// NewReader opens a bag of size bytes read through src. If src is also an
// io.Closer it is closed by Close.
func NewReader(src io.ReaderAt, size int64, opts Options) (*Bag, error) {
	if opts.CacheBytes <= 0 {
		opts.CacheBytes = DefaultCacheBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := &Bag{
		src:    src,
		size:   size,
		opts:   opts,
		logger: logger,
		cache:  cache.NewChunkCache(opts.CacheBytes),
	}
	if c, ok := src.(io.Closer); ok {
		b.closer = c
	}
	header, err := b.readBagHeader()
	if err != nil {
		return nil, err
	}
	b.header = header
	cat, err := b.buildCatalog()
	if err != nil {
		return nil, err
	}
	cat.IndexPos = header.indexPos
	cat.Size = size
	b.catalog = cat
	b.conns = make(map[uint32]*Connection, len(cat.Connections))
	for _, c := range cat.Connections {
		b.conns[c.ID] = c
	}
	b.logger.Debug("bag opened",
		"strategy", cat.Strategy.String(),
		"connections", len(cat.Connections),
		"chunks", len(cat.Chunks),
		"size", size)
	return b, nil
}

// Close releases the underlying source and drops cached chunks.
func (b *Bag) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.cache.Reset()
	if b.closer != nil {
		return b.closer.Close()
	}
	return nil
}

// Catalog returns the bag's catalog. Callers must not modify it.
func (b *Bag) Catalog() *Catalog {
	return b.catalog
}

func (b *Bag) readBagHeader() (bagHeader, error) {
	buf := make([]byte, min(int64(len(magic)), b.size))
	if err := readFullAt(b.src, buf, 0); err != nil {
		return bagHeader{}, fmt.Errorf("read magic: %w", err)
	}
	if !bytes.HasPrefix(buf, []byte(magicPrefix)) {
		return bagHeader{}, fmt.Errorf("%w: missing %q magic", ErrMalformedRecord, magicPrefix)
	}
	if string(buf) != magic {
		version, _, _ := strings.Cut(string(buf[len(magicPrefix):]), "\n")
		return bagHeader{}, fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
	}
	rec, err := readRecordAt(b.src, int64(len(magic)), b.size)
	if err != nil {
		return bagHeader{}, fmt.Errorf("bag header: %w", err)
	}
	if rec.op != opBagHeader {
		return bagHeader{}, fmt.Errorf("%w: expected bag header, found %s", ErrMalformedRecord, rec.kind())
	}
	indexPos, err := rec.header.uint64("index_pos")
	if err != nil {
		return bagHeader{}, fmt.Errorf("bag header: %w", err)
	}
	connCount, err := rec.header.uint32("conn_count")
	if err != nil {
		return bagHeader{}, fmt.Errorf("bag header: %w", err)
	}
	chunkCount, err := rec.header.uint32("chunk_count")
	if err != nil {
		return bagHeader{}, fmt.Errorf("bag header: %w", err)
	}
	return bagHeader{
		indexPos:   int64(indexPos),
		connCount:  connCount,
		chunkCount: chunkCount,
		end:        rec.end(),
	}, nil
}

func (b *Bag) buildCatalog() (*Catalog, error) {
	switch b.opts.Strategy {
	case StrategyIndexed:
		return b.scanIndexed()
	case StrategyLinear:
		return b.scanLinear()
	}
	cat, err := b.scanIndexed()
	if err == nil {
		return cat, nil
	}
	var strict *chunkInfoError
	if errors.As(err, &strict) || !errors.Is(err, ErrMalformedRecord) {
		return nil, err
	}
	b.logger.Warn("bag index unusable, falling back to linear scan", "error", err)
	return b.scanLinear()
}

// decompress reads and decodes the body of c.
func (b *Bag) decompress(c *Chunk) ([]byte, error) {
	start := time.Now()
	raw := make([]byte, c.CompressedSize)
	err := readFullAt(b.src, raw, c.DataPos)
	var data []byte
	if err == nil {
		data, err = codec.Decompress(c.Compression, raw, int(c.UncompressedSize))
	}
	if b.opts.OnChunkLoad != nil {
		b.opts.OnChunkLoad(c.Compression, int(c.UncompressedSize), time.Since(start), err)
	}
	if err != nil {
		return nil, fmt.Errorf("chunk at %d: %w", c.Pos, err)
	}
	return data, nil
}

// chunkData returns the decompressed contents of chunk idx, using the cache.
func (b *Bag) chunkData(idx int) ([]byte, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	c := &b.catalog.Chunks[idx]
	if data, ok := b.cache.Get(c.Pos); ok {
		return data, nil
	}
	data, err := b.decompress(c)
	if err != nil {
		return nil, err
	}
	b.cache.Set(c.Pos, data)
	return data, nil
}

func (b *Bag) releaseChunk(idx int) {
	if b.opts.RetainChunks {
		return
	}
	b.cache.Evict(b.catalog.Chunks[idx].Pos)
}
