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

// Package bagtest builds ROSBAG V2.0 files for tests, including deliberately
// damaged ones.
package bagtest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/dsnet/compress/bzip2"
	"github.com/pierrec/lz4/v4"

	"github.com/novatechflow/bagkit/pkg/msgdef"
	"github.com/novatechflow/bagkit/pkg/rostime"
)

// bagHeaderLen is the fixed size of the bag header record, padding included.
const bagHeaderLen = 4096

// Connection is a connection record to write.
type Connection struct {
	ID         uint32
	Topic      string
	Type       string
	MD5Sum     string
	Definition string
	CallerID   string
	Latching   bool
}

// ConnectionFor describes a connection publishing T on topic. It panics if T
// is not a struct message type.
func ConnectionFor[T msgdef.Message](id uint32, topic string) Connection {
	mt, err := msgdef.TypeOf[T]()
	if err != nil {
		panic(err)
	}
	return Connection{
		ID:         id,
		Topic:      topic,
		Type:       mt.Name,
		MD5Sum:     mt.MD5Sum,
		Definition: mt.Definition,
		CallerID:   "/bagtest",
	}
}

// Message is a message data record to write.
type Message struct {
	Conn uint32
	Time rostime.Time
	Data []byte
}

// Chunk groups messages into one chunk record.
type Chunk struct {
	// Compression defaults to "none". Kinds other than none, lz4 and bz2
	// are written uncompressed under the given name.
	Compression string
	Messages    []Message
	// SizeDelta is added to the declared uncompressed size.
	SizeDelta int
	// Connections are extra connection records written at the start of the chunk.
	Connections []Connection
}

// ChunkInfo is the chunk info record about to be written for a chunk.
type ChunkInfo struct {
	Version  uint32
	ChunkPos uint64
	Start    rostime.Time
	End      rostime.Time
	Counts   map[uint32]uint32
}

// Header is the bag header about to be written.
type Header struct {
	IndexPos   uint64
	ConnCount  uint32
	ChunkCount uint32
}

// Bag describes a bag file.
type Bag struct {
	// Version replaces "2.0" in the magic line when set.
	Version     string
	Connections []Connection
	Chunks      []Chunk
	// OmitIndex leaves index_pos at zero and writes no index section.
	OmitIndex bool
	// IndexConnections are extra connection records appended to the index section.
	IndexConnections []Connection
	EditChunkInfo    func(chunk int, info *ChunkInfo)
	EditHeader       func(h *Header)
}

// Layout reports where records landed in the encoded bag.
type Layout struct {
	ChunkPos     []int64
	ChunkDataPos []int64
	IndexPos     int64
}

// Encode renders b as bag bytes.
func Encode(b Bag) ([]byte, Layout, error) {
	version := b.Version
	if version == "" {
		version = "2.0"
	}
	magic := "#ROSBAG V" + version + "\n"
	base := int64(len(magic) + bagHeaderLen)

	conns := make(map[uint32]Connection, len(b.Connections))
	for _, c := range b.Connections {
		conns[c.ID] = c
	}

	var body bytes.Buffer
	var layout Layout
	var infos []ChunkInfo
	written := make(map[uint32]bool)
	for i, ch := range b.Chunks {
		inner, offsets, err := chunkContents(ch, conns, written)
		if err != nil {
			return nil, Layout{}, fmt.Errorf("chunk %d: %w", i, err)
		}
		compression := ch.Compression
		if compression == "" {
			compression = "none"
		}
		payload, err := compress(compression, inner)
		if err != nil {
			return nil, Layout{}, fmt.Errorf("chunk %d: %w", i, err)
		}
		pos := base + int64(body.Len())
		layout.ChunkPos = append(layout.ChunkPos, pos)
		header := fields(
			opField(0x05),
			strField("compression", compression),
			u32Field("size", uint32(len(inner)+ch.SizeDelta)),
		)
		layout.ChunkDataPos = append(layout.ChunkDataPos, pos+int64(4+len(header)+4))
		writeRecord(&body, header, payload)

		info := ChunkInfo{Version: 1, ChunkPos: uint64(pos), Counts: make(map[uint32]uint32)}
		byConn := make(map[uint32][]int)
		for j, m := range ch.Messages {
			byConn[m.Conn] = append(byConn[m.Conn], j)
			if j == 0 || m.Time.Before(info.Start) {
				info.Start = m.Time
			}
			if j == 0 || m.Time.After(info.End) {
				info.End = m.Time
			}
			info.Counts[m.Conn]++
		}
		for _, id := range slices.Sorted(maps.Keys(byConn)) {
			var entries []byte
			for _, j := range byConn[id] {
				entries = appendTime(entries, ch.Messages[j].Time)
				entries = binary.LittleEndian.AppendUint32(entries, offsets[j])
			}
			writeRecord(&body, fields(
				opField(0x04),
				u32Field("ver", 1),
				u32Field("conn", id),
				u32Field("count", uint32(len(byConn[id]))),
			), entries)
		}
		infos = append(infos, info)
	}

	hdr := Header{
		ConnCount:  uint32(len(b.Connections)),
		ChunkCount: uint32(len(b.Chunks)),
	}
	if !b.OmitIndex {
		hdr.IndexPos = uint64(base + int64(body.Len()))
		layout.IndexPos = int64(hdr.IndexPos)
		ids := make([]uint32, 0, len(b.Connections))
		for _, c := range b.Connections {
			ids = append(ids, c.ID)
		}
		slices.Sort(ids)
		for _, id := range ids {
			writeConnection(&body, conns[id])
		}
		for _, c := range b.IndexConnections {
			writeConnection(&body, c)
		}
		for i := range infos {
			if b.EditChunkInfo != nil {
				b.EditChunkInfo(i, &infos[i])
			}
			writeChunkInfo(&body, infos[i])
		}
	}
	if b.EditHeader != nil {
		b.EditHeader(&hdr)
	}

	var out bytes.Buffer
	out.WriteString(magic)
	header := fields(
		opField(0x03),
		u64Field("index_pos", hdr.IndexPos),
		u32Field("conn_count", hdr.ConnCount),
		u32Field("chunk_count", hdr.ChunkCount),
	)
	writeRecord(&out, header, bytes.Repeat([]byte{' '}, bagHeaderLen-8-len(header)))
	out.Write(body.Bytes())
	return out.Bytes(), layout, nil
}

// Build is Encode for tests.
func Build(tb testing.TB, b Bag) ([]byte, Layout) {
	tb.Helper()
	data, layout, err := Encode(b)
	if err != nil {
		tb.Fatalf("build bag: %v", err)
	}
	return data, layout
}

// WriteFile builds b into a file under dir and returns its path.
func WriteFile(tb testing.TB, dir string, b Bag) string {
	tb.Helper()
	data, _ := Build(tb, b)
	path := filepath.Join(dir, "test.bag")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("write bag: %v", err)
	}
	return path
}

// chunkContents renders the records inside a chunk. Connection records are
// written before the first message of each connection in the bag.
func chunkContents(ch Chunk, conns map[uint32]Connection, written map[uint32]bool) ([]byte, []uint32, error) {
	var buf bytes.Buffer
	for _, c := range ch.Connections {
		writeConnection(&buf, c)
	}
	offsets := make([]uint32, len(ch.Messages))
	for i, m := range ch.Messages {
		c, ok := conns[m.Conn]
		if !ok {
			return nil, nil, fmt.Errorf("message %d uses unknown connection %d", i, m.Conn)
		}
		if !written[m.Conn] {
			writeConnection(&buf, c)
			written[m.Conn] = true
		}
		offsets[i] = uint32(buf.Len())
		writeRecord(&buf, fields(
			opField(0x02),
			u32Field("conn", m.Conn),
			timeField("time", m.Time),
		), m.Data)
	}
	return buf.Bytes(), offsets, nil
}

func compress(kind string, data []byte) ([]byte, error) {
	switch kind {
	case "lz4":
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "bz2":
		var buf bytes.Buffer
		w, err := bzip2.NewWriter(&buf, nil)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return data, nil
	}
}

func writeConnection(buf *bytes.Buffer, c Connection) {
	props := [][]byte{
		strField("topic", c.Topic),
		strField("type", c.Type),
		strField("md5sum", c.MD5Sum),
		strField("message_definition", c.Definition),
	}
	if c.CallerID != "" {
		props = append(props, strField("callerid", c.CallerID))
	}
	if c.Latching {
		props = append(props, strField("latching", "1"))
	}
	writeRecord(buf, fields(
		opField(0x07),
		u32Field("conn", c.ID),
		strField("topic", c.Topic),
	), fields(props...))
}

func writeChunkInfo(buf *bytes.Buffer, info ChunkInfo) {
	var data []byte
	for _, id := range slices.Sorted(maps.Keys(info.Counts)) {
		data = binary.LittleEndian.AppendUint32(data, id)
		data = binary.LittleEndian.AppendUint32(data, info.Counts[id])
	}
	writeRecord(buf, fields(
		opField(0x06),
		u32Field("ver", info.Version),
		u64Field("chunk_pos", info.ChunkPos),
		timeField("start_time", info.Start),
		timeField("end_time", info.End),
		u32Field("count", uint32(len(info.Counts))),
	), data)
}

func writeRecord(buf *bytes.Buffer, header, data []byte) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(header)))
	buf.Write(n[:])
	buf.Write(header)
	binary.LittleEndian.PutUint32(n[:], uint32(len(data)))
	buf.Write(n[:])
	buf.Write(data)
}

func fields(encoded ...[]byte) []byte {
	var out []byte
	for _, f := range encoded {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(f)))
		out = append(out, f...)
	}
	return out
}

func field(name string, value []byte) []byte {
	return append([]byte(name+"="), value...)
}

func opField(op byte) []byte { return field("op", []byte{op}) }

func strField(name, value string) []byte { return field(name, []byte(value)) }

func u32Field(name string, v uint32) []byte {
	return field(name, binary.LittleEndian.AppendUint32(nil, v))
}

func u64Field(name string, v uint64) []byte {
	return field(name, binary.LittleEndian.AppendUint64(nil, v))
}

func timeField(name string, t rostime.Time) []byte {
	return field(name, appendTime(nil, t))
}

func appendTime(b []byte, t rostime.Time) []byte {
	b = binary.LittleEndian.AppendUint32(b, t.Sec)
	return binary.LittleEndian.AppendUint32(b, t.NSec)
}
