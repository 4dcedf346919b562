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
	"cmp"
	"fmt"
	"slices"

	"github.com/novatechflow/bagkit/pkg/rostime"
)

// Connection describes one publisher stream recorded in the bag.
type Connection struct {
	ID         uint32
	Topic      string
	Type       string
	MD5Sum     string
	Definition string
	CallerID   string
	Latching   bool
}

func (c *Connection) sameAs(other *Connection) bool {
	return c.Topic == other.Topic &&
		c.Type == other.Type &&
		c.MD5Sum == other.MD5Sum &&
		c.Definition == other.Definition
}

// Chunk describes one chunk record. Counts maps connection id to the number
// of messages the chunk holds for it.
type Chunk struct {
	Pos              int64
	DataPos          int64
	Compression      string
	CompressedSize   uint32
	UncompressedSize uint32
	Start            rostime.Time
	End              rostime.Time
	Counts           map[uint32]uint32
}

// MessageCount returns the number of messages in the chunk.
func (c *Chunk) MessageCount() uint64 {
	var total uint64
	for _, n := range c.Counts {
		total += uint64(n)
	}
	return total
}

// IndexEntry locates one message: Chunk is an index into Catalog.Chunks and
// Offset the position of its record within the decompressed chunk.
type IndexEntry struct {
	Conn   uint32
	Time   rostime.Time
	Chunk  int
	Offset uint32
}

func compareEntries(a, b IndexEntry) int {
	if c := a.Time.Compare(b.Time); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Chunk, b.Chunk); c != 0 {
		return c
	}
	return cmp.Compare(a.Offset, b.Offset)
}

// Catalog is everything learned about a bag without decoding messages.
// It is read-only once built.
type Catalog struct {
	Version     string
	IndexPos    int64
	Size        int64
	Strategy    Strategy
	Connections []*Connection
	Chunks      []Chunk
	// Index holds the entries of each connection ordered by time, then chunk
	// position, then offset.
	Index map[uint32][]IndexEntry
}

// catalogBuilder accumulates connections, chunks and entries during a scan.
type catalogBuilder struct {
	conns   map[uint32]*Connection
	chunks  []Chunk
	entries map[uint32][]IndexEntry
}

func newCatalogBuilder() *catalogBuilder {
	return &catalogBuilder{
		conns:   make(map[uint32]*Connection),
		entries: make(map[uint32][]IndexEntry),
	}
}

func (cb *catalogBuilder) addConnection(c *Connection) error {
	if prev, ok := cb.conns[c.ID]; ok {
		if !prev.sameAs(c) {
			return fmt.Errorf("%w: connection %d declared as %s (%s) and %s (%s)",
				ErrInconsistentConnection, c.ID, prev.Topic, prev.Type, c.Topic, c.Type)
		}
		return nil
	}
	cb.conns[c.ID] = c
	return nil
}

func (cb *catalogBuilder) addChunk(c Chunk) int {
	cb.chunks = append(cb.chunks, c)
	return len(cb.chunks) - 1
}

func (cb *catalogBuilder) addEntry(e IndexEntry) {
	cb.entries[e.Conn] = append(cb.entries[e.Conn], e)
}

// finish validates entry references, sorts the index and derives per-chunk
// statistics from it.
func (cb *catalogBuilder) finish() (*Catalog, error) {
	for i := range cb.chunks {
		cb.chunks[i].Counts = make(map[uint32]uint32)
		cb.chunks[i].Start = rostime.Time{}
		cb.chunks[i].End = rostime.Time{}
	}
	for id, entries := range cb.entries {
		if _, ok := cb.conns[id]; !ok {
			return nil, fmt.Errorf("%w: messages reference unknown connection %d", ErrMalformedRecord, id)
		}
		slices.SortFunc(entries, compareEntries)
		for _, e := range entries {
			ch := &cb.chunks[e.Chunk]
			if len(ch.Counts) == 0 || e.Time.Before(ch.Start) {
				ch.Start = e.Time
			}
			if e.Time.After(ch.End) {
				ch.End = e.Time
			}
			ch.Counts[id]++
		}
	}
	conns := make([]*Connection, 0, len(cb.conns))
	for _, c := range cb.conns {
		conns = append(conns, c)
	}
	slices.SortFunc(conns, func(a, b *Connection) int { return cmp.Compare(a.ID, b.ID) })
	return &Catalog{
		Version:     "2.0",
		Connections: conns,
		Chunks:      cb.chunks,
		Index:       cb.entries,
	}, nil
}

// parseConnection decodes a connection record. The topic comes from the
// record header; the data carries the type description.
func parseConnection(rec *record, data []byte) (*Connection, error) {
	id, err := rec.header.uint32("conn")
	if err != nil {
		return nil, fmt.Errorf("connection at %d: %w", rec.pos, err)
	}
	topic, err := rec.header.string("topic")
	if err != nil {
		return nil, fmt.Errorf("connection at %d: %w", rec.pos, err)
	}
	fields, err := parseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("connection at %d: %w", rec.pos, err)
	}
	c := &Connection{ID: id, Topic: topic}
	if c.Type, err = fields.string("type"); err != nil {
		return nil, fmt.Errorf("connection %d: %w", id, err)
	}
	if c.MD5Sum, err = fields.string("md5sum"); err != nil {
		return nil, fmt.Errorf("connection %d: %w", id, err)
	}
	if c.Definition, err = fields.string("message_definition"); err != nil {
		return nil, fmt.Errorf("connection %d: %w", id, err)
	}
	if v, ok := fields["callerid"]; ok {
		c.CallerID = string(v)
	}
	if v, ok := fields["latching"]; ok {
		c.Latching = string(v) == "1"
	}
	return c, nil
}
