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

package codec

import (
	"bytes"
	"errors"
	"runtime"
	"testing"

	"github.com/dsnet/compress/bzip2"
	"github.com/pierrec/lz4/v4"
)

func bz2Stream(t *testing.T, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := bzip2.NewWriter(&buf, nil)
	if err != nil {
		t.Fatalf("bzip2 writer: %v", err)
	}
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("bzip2 write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("bzip2 close: %v", err)
	}
	return buf.Bytes()
}

func lz4Frame(t *testing.T, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("lz4 write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("lz4 close: %v", err)
	}
	return buf.Bytes()
}

func TestDecompressNone(t *testing.T) {
	out, err := Decompress(None, []byte("abc"), 3)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(out) != "abc" {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := Decompress(None, []byte("abc"), 4); !errors.Is(err, ErrDecompressionFailed) {
		t.Fatalf("expected length mismatch error, got %v", err)
	}
}

func TestDecompressBZ2(t *testing.T) {
	payload := bytes.Repeat([]byte("hello rosbag chunk payload "), 300)
	stream := bz2Stream(t, payload)

	out, err := Decompress(BZ2, stream, len(payload))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("payload mismatch")
	}
	if _, err := Decompress(BZ2, stream[:len(stream)/2], len(payload)); !errors.Is(err, ErrDecompressionFailed) {
		t.Fatalf("expected failure on truncated stream, got %v", err)
	}
	if _, err := Decompress(BZ2, stream, len(payload)-2); !errors.Is(err, ErrDecompressionFailed) {
		t.Fatalf("expected failure on short declared size, got %v", err)
	}
	if _, err := Decompress(BZ2, stream, len(payload)+2); !errors.Is(err, ErrDecompressionFailed) {
		t.Fatalf("expected failure on long declared size, got %v", err)
	}
	corrupt := bytes.Clone(stream)
	corrupt[len(corrupt)/2] ^= 0xff
	if _, err := Decompress(BZ2, corrupt, len(payload)); !errors.Is(err, ErrDecompressionFailed) {
		t.Fatalf("expected failure on corrupted stream, got %v", err)
	}
	if _, err := Decompress(BZ2, []byte("BZh9 not really"), 4); !errors.Is(err, ErrDecompressionFailed) {
		t.Fatalf("expected failure on garbage, got %v", err)
	}
}

func TestDecompressHugeDeclaredSize(t *testing.T) {
	payload := bytes.Repeat([]byte("chatter foo_"), 50)
	cases := map[string][]byte{
		LZ4: lz4Frame(t, payload),
		BZ2: bz2Stream(t, payload),
	}
	for kind, src := range cases {
		var before, after runtime.MemStats
		runtime.ReadMemStats(&before)
		_, err := Decompress(kind, src, 1<<30)
		runtime.ReadMemStats(&after)
		if !errors.Is(err, ErrDecompressionFailed) {
			t.Fatalf("%s: expected failure on oversized declared size, got %v", kind, err)
		}
		if grew := after.TotalAlloc - before.TotalAlloc; grew > 64<<20 {
			t.Fatalf("%s: allocated %d bytes for a %d byte payload", kind, grew, len(payload))
		}
	}
}

func TestDecompressLZ4(t *testing.T) {
	payload := bytes.Repeat([]byte("chatter foo_"), 200)
	frame := lz4Frame(t, payload)

	out, err := Decompress(LZ4, frame, len(payload))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("payload mismatch")
	}
	if _, err := Decompress(LZ4, frame, len(payload)+2); !errors.Is(err, ErrDecompressionFailed) {
		t.Fatalf("expected failure on long declared size, got %v", err)
	}
	if _, err := Decompress(LZ4, frame, len(payload)-2); !errors.Is(err, ErrDecompressionFailed) {
		t.Fatalf("expected failure on short declared size, got %v", err)
	}
	if _, err := Decompress(LZ4, []byte("not a frame"), 4); !errors.Is(err, ErrDecompressionFailed) {
		t.Fatalf("expected failure on garbage, got %v", err)
	}
}

func TestDecompressUnsupported(t *testing.T) {
	_, err := Decompress("zstd", []byte{1}, 1)
	if !errors.Is(err, ErrUnsupportedCompression) {
		t.Fatalf("expected unsupported compression, got %v", err)
	}
	if Supported("zstd") || !Supported(LZ4) {
		t.Fatalf("unexpected Supported result")
	}
	kinds := Kinds()
	if len(kinds) != 3 || kinds[0] != BZ2 || kinds[1] != LZ4 || kinds[2] != None {
		t.Fatalf("unexpected kinds %v", kinds)
	}
}
