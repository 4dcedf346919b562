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

package bagtest

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/novatechflow/bagkit/pkg/msgs/stdmsgs"
)

func TestEncodeLayout(t *testing.T) {
	data, layout := Build(t, Chatter("lz4", 60))
	if !bytes.HasPrefix(data, []byte("#ROSBAG V2.0\n")) {
		t.Fatalf("missing magic")
	}
	if len(layout.ChunkPos) != 5 || len(layout.ChunkDataPos) != 5 {
		t.Fatalf("expected 5 chunks, got %d", len(layout.ChunkPos))
	}
	if layout.ChunkPos[0] != int64(len("#ROSBAG V2.0\n")+bagHeaderLen) {
		t.Fatalf("first chunk should follow the padded bag header, got %d", layout.ChunkPos[0])
	}
	for i, pos := range layout.ChunkPos {
		hlen := int64(binary.LittleEndian.Uint32(data[pos:]))
		if want := pos + 4 + hlen + 4; layout.ChunkDataPos[i] != want {
			t.Fatalf("chunk %d: data at %d, expected %d", i, layout.ChunkDataPos[i], want)
		}
		if !bytes.Contains(data[pos+4:pos+4+hlen], []byte("op=\x05")) {
			t.Fatalf("chunk %d: record is not a chunk", i)
		}
	}
	if layout.IndexPos <= layout.ChunkPos[4] || layout.IndexPos >= int64(len(data)) {
		t.Fatalf("index position %d out of place", layout.IndexPos)
	}
}

func TestEncodeBZ2Chunks(t *testing.T) {
	data, layout := Build(t, Chatter("bz2", 60))
	for i, pos := range layout.ChunkPos {
		hlen := int64(binary.LittleEndian.Uint32(data[pos:]))
		if !bytes.Contains(data[pos+4:pos+4+hlen], []byte("compression=bz2")) {
			t.Fatalf("chunk %d: expected bz2 compression", i)
		}
		if !bytes.HasPrefix(data[layout.ChunkDataPos[i]:], []byte("BZh")) {
			t.Fatalf("chunk %d: payload is not a bzip2 stream", i)
		}
	}
}

func TestConnectionForRejectsPointerTypes(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for pointer message type")
		}
	}()
	ConnectionFor[*stdmsgs.String](0, "/chatter")
}

func TestChatterSingleChunk(t *testing.T) {
	b := Chatter("none", 0)
	if len(b.Chunks) != 1 || len(b.Chunks[0].Messages) != 3*ChatterCount {
		t.Fatalf("expected one chunk with every message")
	}
}
