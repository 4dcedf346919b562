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

package bag

import (
	"errors"
	"fmt"
)

// scanLinear rebuilds the catalog from the records themselves, decompressing
// every chunk. Records that cannot be read at or after a declared index
// position end the scan with a warning; anywhere else they are fatal.
func (b *Bag) scanLinear() (*Catalog, error) {
	h := b.header
	cb := newCatalogBuilder()
	for pos := h.end; pos < b.size; {
		rec, err := readRecordAt(b.src, pos, b.size)
		if err == nil {
			err = b.linearRecord(cb, rec)
		}
		if err != nil {
			if b.inIndexSection(pos) && !errors.Is(err, ErrInconsistentConnection) {
				b.logger.Warn("stopping linear scan at unreadable index section", "pos", pos, "error", err)
				break
			}
			return nil, err
		}
		pos = rec.end()
	}
	cat, err := cb.finish()
	if err != nil {
		return nil, err
	}
	if h.connCount != uint32(len(cat.Connections)) || h.chunkCount != uint32(len(cat.Chunks)) {
		b.logger.Warn("bag header counts disagree with contents",
			"header_connections", h.connCount, "connections", len(cat.Connections),
			"header_chunks", h.chunkCount, "chunks", len(cat.Chunks))
	}
	cat.Strategy = StrategyLinear
	return cat, nil
}

func (b *Bag) inIndexSection(pos int64) bool {
	return b.header.indexPos >= b.header.end && pos >= b.header.indexPos
}

func (b *Bag) linearRecord(cb *catalogBuilder, rec *record) error {
	switch rec.op {
	case opChunk:
		return b.scanChunk(cb, rec)
	case opConnection:
		data, err := rec.data(b.src)
		if err != nil {
			return err
		}
		c, err := parseConnection(rec, data)
		if err != nil {
			return err
		}
		return cb.addConnection(c)
	}
	return nil
}

// scanChunk decompresses a chunk and indexes the records inside it.
func (b *Bag) scanChunk(cb *catalogBuilder, rec *record) error {
	chunk, err := chunkFromRecord(rec)
	if err != nil {
		return err
	}
	idx := cb.addChunk(chunk)
	data, err := b.decompress(&chunk)
	if err != nil {
		return err
	}
	for off := 0; off < len(data); {
		inner, payload, err := parseRecord(data, off)
		if err != nil {
			return fmt.Errorf("chunk at %d: %w", chunk.Pos, err)
		}
		switch inner.op {
		case opConnection:
			c, err := parseConnection(inner, payload)
			if err != nil {
				return fmt.Errorf("chunk at %d: %w", chunk.Pos, err)
			}
			if err := cb.addConnection(c); err != nil {
				return err
			}
		case opMessageData:
			conn, err := inner.header.uint32("conn")
			if err != nil {
				return fmt.Errorf("chunk at %d: message at %d: %w", chunk.Pos, off, err)
			}
			t, err := inner.header.time("time")
			if err != nil {
				return fmt.Errorf("chunk at %d: message at %d: %w", chunk.Pos, off, err)
			}
			cb.addEntry(IndexEntry{Conn: conn, Time: t, Chunk: idx, Offset: uint32(off)})
		}
		off = int(inner.end())
	}
	b.cache.Set(chunk.Pos, data)
	return nil
}
