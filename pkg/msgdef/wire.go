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

package msgdef

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/novatechflow/bagkit/pkg/rostime"
)

// wireReader is a little-endian cursor over a message payload.
type wireReader struct {
	buf []byte
	pos int
}

func newWireReader(b []byte) *wireReader {
	return &wireReader{buf: b}
}

func (r *wireReader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *wireReader) read(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncatedMessage, n, r.pos, r.remaining())
	}
	start := r.pos
	r.pos += n
	return r.buf[start:r.pos], nil
}

func (r *wireReader) Uint32() (uint32, error) {
	b, err := r.read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Length reads a u32 count and rejects counts that cannot fit in the rest of
// the payload given the minimum element size. Counts of zero-size elements
// are not bounded.
func (r *wireReader) Length(minElem int) (int, error) {
	n, err := r.Uint32()
	if err != nil {
		return 0, err
	}
	if minElem > 0 && int64(n) > int64(r.remaining()/minElem) {
		return 0, fmt.Errorf("%w: length %d exceeds remaining %d bytes", ErrTruncatedMessage, n, r.remaining())
	}
	return int(n), nil
}

// Scalar reads one value of a non-message kind as its natural Go type.
func (r *wireReader) Scalar(k Kind) (any, error) {
	if size := k.wireSize(); size > 0 {
		b, err := r.read(size)
		if err != nil {
			return nil, err
		}
		return decodeFixed(k, b), nil
	}
	if k != KindString {
		return nil, fmt.Errorf("%w: no scalar reader for %s", ErrTypeMismatch, k)
	}
	n, err := r.Length(1)
	if err != nil {
		return nil, err
	}
	b, err := r.read(n)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func decodeFixed(k Kind, b []byte) any {
	le := binary.LittleEndian
	switch k {
	case KindBool:
		return b[0] != 0
	case KindInt8:
		return int8(b[0])
	case KindUint8:
		return b[0]
	case KindInt16:
		return int16(le.Uint16(b))
	case KindUint16:
		return le.Uint16(b)
	case KindInt32:
		return int32(le.Uint32(b))
	case KindUint32:
		return le.Uint32(b)
	case KindInt64:
		return int64(le.Uint64(b))
	case KindUint64:
		return le.Uint64(b)
	case KindFloat32:
		return math.Float32frombits(le.Uint32(b))
	case KindFloat64:
		return math.Float64frombits(le.Uint64(b))
	case KindTime:
		return rostime.Time{Sec: le.Uint32(b), NSec: le.Uint32(b[4:])}
	case KindDuration:
		return rostime.Duration{Sec: int32(le.Uint32(b)), NSec: int32(le.Uint32(b[4:]))}
	}
	return nil
}

// wireWriter appends the little-endian encoding of values.
type wireWriter struct {
	buf []byte
}

func (w *wireWriter) Bytes() []byte {
	return w.buf
}

func (w *wireWriter) Uint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *wireWriter) Uint64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *wireWriter) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *wireWriter) Zero(n int) {
	for range n {
		w.buf = append(w.buf, 0)
	}
}
