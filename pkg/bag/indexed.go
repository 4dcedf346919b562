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
	"fmt"
	"maps"

	"github.com/novatechflow/bagkit/pkg/rostime"
)

const (
	indexDataVersion = 1
	chunkInfoVersion = 1
	indexEntrySize   = 12
	chunkInfoEntry   = 8
)

// chunkInfo is a parsed ChunkInfo record. err is set when the record could
// not be decoded.
type chunkInfo struct {
	pos      int64
	version  uint32
	chunkPos int64
	start    rostime.Time
	end      rostime.Time
	counts   map[uint32]uint32
	err      error
}

func (b *Bag) scanIndexed() (*Catalog, error) {
	h := b.header
	if h.indexPos == 0 {
		return nil, fmt.Errorf("%w: bag is not indexed", ErrMalformedRecord)
	}
	if h.indexPos < h.end || h.indexPos >= b.size {
		return nil, fmt.Errorf("%w: index position %d outside [%d, %d)", ErrMalformedRecord, h.indexPos, h.end, b.size)
	}
	cb := newCatalogBuilder()
	infos, err := b.readIndexSection(cb)
	if err != nil {
		return nil, err
	}
	if err := b.walkChunks(cb, h.end, h.indexPos); err != nil {
		return nil, err
	}
	if n := uint32(len(cb.conns)); n != h.connCount {
		return nil, fmt.Errorf("%w: bag header declares %d connections, index has %d", ErrMalformedRecord, h.connCount, n)
	}
	if n := uint32(len(cb.chunks)); n != h.chunkCount {
		return nil, fmt.Errorf("%w: bag header declares %d chunks, found %d", ErrMalformedRecord, h.chunkCount, n)
	}
	cat, err := cb.finish()
	if err != nil {
		return nil, err
	}
	if err := b.checkChunkInfos(cat, infos); err != nil {
		return nil, err
	}
	cat.Strategy = StrategyIndexed
	return cat, nil
}

// walkChunks visits the top-level records of the data section, seeking over
// chunk bodies and collecting the index data that follows each chunk.
func (b *Bag) walkChunks(cb *catalogBuilder, start, limit int64) error {
	current := -1
	for pos := start; pos < limit; {
		rec, err := readRecordAt(b.src, pos, limit)
		if err != nil {
			return err
		}
		switch rec.op {
		case opChunk:
			chunk, err := chunkFromRecord(rec)
			if err != nil {
				return err
			}
			current = cb.addChunk(chunk)
		case opIndexData:
			if current < 0 {
				return fmt.Errorf("%w: index data at %d precedes any chunk", ErrMalformedRecord, rec.pos)
			}
			data, err := rec.data(b.src)
			if err != nil {
				return err
			}
			if err := parseIndexData(cb, rec, data, current); err != nil {
				return err
			}
		case opConnection:
			data, err := rec.data(b.src)
			if err != nil {
				return err
			}
			c, err := parseConnection(rec, data)
			if err != nil {
				return err
			}
			if err := cb.addConnection(c); err != nil {
				return err
			}
		}
		pos = rec.end()
	}
	return nil
}

func chunkFromRecord(rec *record) (Chunk, error) {
	compression, err := rec.header.string("compression")
	if err != nil {
		return Chunk{}, fmt.Errorf("chunk at %d: %w", rec.pos, err)
	}
	size, err := rec.header.uint32("size")
	if err != nil {
		return Chunk{}, fmt.Errorf("chunk at %d: %w", rec.pos, err)
	}
	return Chunk{
		Pos:              rec.pos,
		DataPos:          rec.dataPos,
		Compression:      compression,
		CompressedSize:   rec.dataLen,
		UncompressedSize: size,
	}, nil
}

func parseIndexData(cb *catalogBuilder, rec *record, data []byte, chunk int) error {
	ver, err := rec.header.uint32("ver")
	if err != nil {
		return fmt.Errorf("index data at %d: %w", rec.pos, err)
	}
	if ver != indexDataVersion {
		return fmt.Errorf("%w: index data at %d has version %d", ErrMalformedRecord, rec.pos, ver)
	}
	conn, err := rec.header.uint32("conn")
	if err != nil {
		return fmt.Errorf("index data at %d: %w", rec.pos, err)
	}
	count, err := rec.header.uint32("count")
	if err != nil {
		return fmt.Errorf("index data at %d: %w", rec.pos, err)
	}
	if int64(len(data)) != int64(count)*indexEntrySize {
		return fmt.Errorf("%w: index data at %d declares %d entries in %d bytes", ErrMalformedRecord, rec.pos, count, len(data))
	}
	r := newByteReader(data)
	for range count {
		t, err := r.Time()
		if err != nil {
			return err
		}
		off, err := r.Uint32()
		if err != nil {
			return err
		}
		cb.addEntry(IndexEntry{Conn: conn, Time: t, Chunk: chunk, Offset: off})
	}
	return nil
}

// readIndexSection reads the connection and chunk info records starting at
// the index position.
func (b *Bag) readIndexSection(cb *catalogBuilder) ([]chunkInfo, error) {
	var infos []chunkInfo
	for pos := b.header.indexPos; pos < b.size; {
		rec, err := readRecordAt(b.src, pos, b.size)
		if err != nil {
			return nil, fmt.Errorf("index section: %w", err)
		}
		switch rec.op {
		case opConnection:
			data, err := rec.data(b.src)
			if err != nil {
				return nil, err
			}
			c, err := parseConnection(rec, data)
			if err != nil {
				return nil, err
			}
			if err := cb.addConnection(c); err != nil {
				return nil, err
			}
		case opChunkInfo:
			data, err := rec.data(b.src)
			if err != nil {
				return nil, err
			}
			infos = append(infos, parseChunkInfo(rec, data))
		default:
			return nil, fmt.Errorf("%w: unexpected %s record at %d in index section", ErrMalformedRecord, rec.kind(), rec.pos)
		}
		pos = rec.end()
	}
	return infos, nil
}

func parseChunkInfo(rec *record, data []byte) chunkInfo {
	info := chunkInfo{pos: rec.pos}
	fail := func(err error) chunkInfo {
		info.err = err
		return info
	}
	var err error
	if info.version, err = rec.header.uint32("ver"); err != nil {
		return fail(err)
	}
	if info.version != chunkInfoVersion {
		return info
	}
	chunkPos, err := rec.header.uint64("chunk_pos")
	if err != nil {
		return fail(err)
	}
	info.chunkPos = int64(chunkPos)
	if info.start, err = rec.header.time("start_time"); err != nil {
		return fail(err)
	}
	if info.end, err = rec.header.time("end_time"); err != nil {
		return fail(err)
	}
	count, err := rec.header.uint32("count")
	if err != nil {
		return fail(err)
	}
	if int64(len(data)) != int64(count)*chunkInfoEntry {
		return fail(fmt.Errorf("declares %d connections in %d bytes", count, len(data)))
	}
	info.counts = make(map[uint32]uint32, count)
	r := newByteReader(data)
	for range count {
		conn, _ := r.Uint32()
		n, _ := r.Uint32()
		info.counts[conn] = n
	}
	return info
}

// checkChunkInfos compares ChunkInfo records with the statistics derived from
// index data. Disagreements are logged, or returned when strict.
func (b *Bag) checkChunkInfos(cat *Catalog, infos []chunkInfo) error {
	byPos := make(map[int64]int, len(cat.Chunks))
	for i := range cat.Chunks {
		byPos[cat.Chunks[i].Pos] = i
	}
	covered := make(map[int]bool, len(cat.Chunks))
	for _, info := range infos {
		var reason string
		switch {
		case info.err != nil:
			reason = info.err.Error()
		case info.version != chunkInfoVersion:
			reason = fmt.Sprintf("unsupported version %d", info.version)
		default:
			idx, ok := byPos[info.chunkPos]
			if !ok {
				reason = fmt.Sprintf("refers to unknown chunk at %d", info.chunkPos)
				break
			}
			covered[idx] = true
			reason = compareChunkInfo(&cat.Chunks[idx], info)
		}
		if reason == "" {
			continue
		}
		if err := b.chunkInfoProblem(info.pos, reason); err != nil {
			return err
		}
	}
	for i := range cat.Chunks {
		if !covered[i] {
			if err := b.chunkInfoProblem(cat.Chunks[i].Pos, "chunk has no chunk info"); err != nil {
				return err
			}
		}
	}
	return nil
}

func compareChunkInfo(ch *Chunk, info chunkInfo) string {
	if !maps.Equal(ch.Counts, info.counts) {
		return fmt.Sprintf("message counts %v disagree with index data %v", info.counts, ch.Counts)
	}
	if ch.MessageCount() > 0 && (ch.Start != info.start || ch.End != info.end) {
		return fmt.Sprintf("time range [%s, %s] disagrees with index data [%s, %s]", info.start, info.end, ch.Start, ch.End)
	}
	return ""
}

func (b *Bag) chunkInfoProblem(pos int64, reason string) error {
	if b.opts.StrictChunkInfo {
		return &chunkInfoError{pos: pos, reason: reason}
	}
	b.logger.Warn("ignoring inconsistent chunk info", "pos", pos, "reason", reason)
	return nil
}
