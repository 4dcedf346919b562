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
	"container/heap"
	"errors"
	"fmt"
	"io"
	"iter"
)

// cursor walks the selected entries of one connection.
type cursor struct {
	entries []IndexEntry
	pos     int
}

func (c *cursor) head() IndexEntry {
	return c.entries[c.pos]
}

// cursorHeap orders cursors by their next entry.
type cursorHeap []*cursor

func (h cursorHeap) Len() int { return len(h) }
func (h cursorHeap) Less(i, j int) bool {
	return compareEntries(h[i].head(), h[j].head()) < 0
}
func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *cursorHeap) Push(x any)   { *h = append(*h, x.(*cursor)) }
func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// Iterator yields the messages selected by a query in time order. An
// Iterator is not safe for concurrent use; separate iterators on the same
// Bag are.
type Iterator struct {
	bag     *Bag
	heap    cursorHeap
	pending map[int]int
	loaded  map[int][]byte
	failed  map[int]error
}

// Messages returns an iterator over the messages selected by q.
func (b *Bag) Messages(q Query) *Iterator {
	it := &Iterator{
		bag:     b,
		pending: make(map[int]int),
		loaded:  make(map[int][]byte),
		failed:  make(map[int]error),
	}
	for _, c := range b.catalog.Connections {
		if !q.matches(c) {
			continue
		}
		entries := q.clip(b.catalog.Index[c.ID])
		if len(entries) == 0 {
			continue
		}
		for _, e := range entries {
			it.pending[e.Chunk]++
		}
		it.heap = append(it.heap, &cursor{entries: entries})
	}
	heap.Init(&it.heap)
	return it
}

// ReadMessages returns the messages selected by q as a sequence. A message
// whose chunk cannot be read is yielded with its error and iteration goes on.
func (b *Bag) ReadMessages(q Query) iter.Seq2[MessageView, error] {
	return func(yield func(MessageView, error) bool) {
		it := b.Messages(q)
		defer it.Close()
		for {
			v, err := it.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(v, err) {
				return
			}
		}
	}
}

// Remaining returns the number of messages not yet returned.
func (it *Iterator) Remaining() int {
	n := 0
	for _, c := range it.heap {
		n += len(c.entries) - c.pos
	}
	return n
}

// Next returns the next message, or io.EOF once all are consumed. When the
// message's chunk cannot be decompressed, or its record is damaged, the
// returned view still carries the connection and time together with the error,
// and the following call moves on.
func (it *Iterator) Next() (MessageView, error) {
	if len(it.heap) == 0 {
		return MessageView{}, io.EOF
	}
	cur := it.heap[0]
	e := cur.head()
	cur.pos++
	if cur.pos == len(cur.entries) {
		heap.Pop(&it.heap)
	} else {
		heap.Fix(&it.heap, 0)
	}
	view, err := it.view(e)
	it.release(e.Chunk)
	return view, err
}

func (it *Iterator) view(e IndexEntry) (MessageView, error) {
	conn := it.bag.conns[e.Conn]
	view := MessageView{Conn: conn, Topic: conn.Topic, Time: e.Time}
	if err, ok := it.failed[e.Chunk]; ok {
		return view, err
	}
	data, ok := it.loaded[e.Chunk]
	if !ok {
		var err error
		data, err = it.bag.chunkData(e.Chunk)
		if err != nil {
			it.failed[e.Chunk] = err
			return view, err
		}
		it.loaded[e.Chunk] = data
	}
	rec, payload, err := parseRecord(data, int(e.Offset))
	if err != nil {
		return view, fmt.Errorf("chunk at %d: %w", it.bag.catalog.Chunks[e.Chunk].Pos, err)
	}
	if rec.op != opMessageData {
		return view, fmt.Errorf("%w: chunk at %d offset %d holds %s, not message data",
			ErrMalformedRecord, it.bag.catalog.Chunks[e.Chunk].Pos, e.Offset, rec.kind())
	}
	if conn, err := rec.header.uint32("conn"); err != nil || conn != e.Conn {
		return view, fmt.Errorf("%w: chunk at %d offset %d does not belong to connection %d",
			ErrMalformedRecord, it.bag.catalog.Chunks[e.Chunk].Pos, e.Offset, e.Conn)
	}
	view.Data = payload
	return view, nil
}

func (it *Iterator) release(chunk int) {
	it.pending[chunk]--
	if it.pending[chunk] > 0 {
		return
	}
	delete(it.pending, chunk)
	delete(it.failed, chunk)
	if _, ok := it.loaded[chunk]; ok {
		delete(it.loaded, chunk)
		it.bag.releaseChunk(chunk)
	}
}

// Close releases the chunks the iterator still holds.
func (it *Iterator) Close() {
	for chunk := range it.loaded {
		it.bag.releaseChunk(chunk)
	}
	it.heap = nil
	it.pending = map[int]int{}
	it.loaded = map[int][]byte{}
	it.failed = map[int]error{}
}
