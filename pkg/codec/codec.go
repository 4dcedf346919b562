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

// Package codec decompresses bag chunk payloads.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/dsnet/compress/bzip2"
	"github.com/pierrec/lz4/v4"
)

// Compression kinds as they appear in chunk record headers.
const (
	None = "none"
	BZ2  = "bz2"
	LZ4  = "lz4"
)

var (
	// ErrUnsupportedCompression is returned for compression kinds without a decoder.
	ErrUnsupportedCompression = errors.New("unsupported compression")
	// ErrDecompressionFailed is returned when a codec rejects its input or the
	// output length disagrees with the declared uncompressed length.
	ErrDecompressionFailed = errors.New("decompression failed")
)

type decodeFunc func(src []byte, size int) ([]byte, error)

var decoders = map[string]decodeFunc{
	None: decodeNone,
	BZ2: func(src []byte, size int) ([]byte, error) {
		r, err := bzip2.NewReader(bytes.NewReader(src), nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
		}
		defer r.Close()
		return decodeStream(r, size)
	},
	LZ4: func(src []byte, size int) ([]byte, error) {
		return decodeStream(lz4.NewReader(bytes.NewReader(src)), size)
	},
}

// Decompress returns exactly size decoded bytes of src, or an error.
func Decompress(kind string, src []byte, size int) ([]byte, error) {
	decode, ok := decoders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCompression, kind)
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: negative declared size %d", ErrDecompressionFailed, size)
	}
	return decode(src, size)
}

// Supported reports whether kind has a decoder.
func Supported(kind string) bool {
	_, ok := decoders[kind]
	return ok
}

// Kinds lists the supported compression kinds in sorted order.
func Kinds() []string {
	out := make([]string, 0, len(decoders))
	for kind := range decoders {
		out = append(out, kind)
	}
	sort.Strings(out)
	return out
}

func decodeNone(src []byte, size int) ([]byte, error) {
	if len(src) != size {
		return nil, fmt.Errorf("%w: have %d bytes, declared %d", ErrDecompressionFailed, len(src), size)
	}
	return src, nil
}

// initialGrow caps the buffer preallocated from a declared size, which comes
// from the file and is not trusted.
const initialGrow = 64 << 10

// decodeStream reads at most size+1 bytes and requires exactly size. Reading
// to the end of the stream is also where trailing checksums get verified.
func decodeStream(r io.Reader, size int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(min(size, initialGrow))
	n, err := buf.ReadFrom(io.LimitReader(r, int64(size)+1))
	switch {
	case err != nil:
		return nil, fmt.Errorf("%w: decoded %d of %d bytes: %v", ErrDecompressionFailed, n, size, err)
	case n > int64(size):
		return nil, fmt.Errorf("%w: stream continues past declared size %d", ErrDecompressionFailed, size)
	case n < int64(size):
		return nil, fmt.Errorf("%w: decoded %d of %d bytes: %v", ErrDecompressionFailed, n, size, io.ErrUnexpectedEOF)
	}
	return buf.Bytes(), nil
}
