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
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/novatechflow/bagkit/pkg/rostime"
)

const (
	magic       = "#ROSBAG V2.0\n"
	magicPrefix = "#ROSBAG V"
)

// Record op codes.
const (
	opMessageData = 0x02
	opBagHeader   = 0x03
	opIndexData   = 0x04
	opChunk       = 0x05
	opChunkInfo   = 0x06
	opConnection  = 0x07
)

var opNames = map[byte]string{
	opMessageData: "message data",
	opBagHeader:   "bag header",
	opIndexData:   "index data",
	opChunk:       "chunk",
	opChunkInfo:   "chunk info",
	opConnection:  "connection",
}

// headerFields holds the name=value pairs of a record header.
type headerFields map[string][]byte

func parseHeader(b []byte) (headerFields, error) {
	fields := make(headerFields)
	r := newByteReader(b)
	for r.remaining() > 0 {
		n, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		field, err := r.read(int(n))
		if err != nil {
			return nil, err
		}
		eq := bytes.IndexByte(field, '=')
		if eq < 0 {
			return nil, fmt.Errorf("%w: header field without '='", ErrMalformedRecord)
		}
		fields[string(field[:eq])] = field[eq+1:]
	}
	return fields, nil
}

func (h headerFields) op() (byte, error) {
	v, ok := h["op"]
	if !ok || len(v) != 1 {
		return 0, fmt.Errorf("%w: missing op field", ErrMalformedRecord)
	}
	return v[0], nil
}

func (h headerFields) fixed(name string, size int) ([]byte, error) {
	v, ok := h[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing field %q", ErrMalformedRecord, name)
	}
	if len(v) != size {
		return nil, fmt.Errorf("%w: field %q has %d bytes, want %d", ErrMalformedRecord, name, len(v), size)
	}
	return v, nil
}

func (h headerFields) uint32(name string) (uint32, error) {
	v, err := h.fixed(name, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(v), nil
}

func (h headerFields) uint64(name string) (uint64, error) {
	v, err := h.fixed(name, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(v), nil
}

func (h headerFields) time(name string) (rostime.Time, error) {
	v, err := h.fixed(name, 8)
	if err != nil {
		return rostime.Time{}, err
	}
	return decodeTime(v), nil
}

func (h headerFields) string(name string) (string, error) {
	v, ok := h[name]
	if !ok {
		return "", fmt.Errorf("%w: missing field %q", ErrMalformedRecord, name)
	}
	return string(v), nil
}

func decodeTime(b []byte) rostime.Time {
	return rostime.Time{
		Sec:  binary.LittleEndian.Uint32(b),
		NSec: binary.LittleEndian.Uint32(b[4:]),
	}
}

// byteReader is a little-endian cursor over record bytes.
type byteReader struct {
	buf []byte
	pos int
}

func newByteReader(b []byte) *byteReader {
	return &byteReader{buf: b}
}

func (r *byteReader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *byteReader) read(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrMalformedRecord, n, r.pos, r.remaining())
	}
	start := r.pos
	r.pos += n
	return r.buf[start:r.pos], nil
}

func (r *byteReader) Uint32() (uint32, error) {
	b, err := r.read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *byteReader) Time() (rostime.Time, error) {
	b, err := r.read(8)
	if err != nil {
		return rostime.Time{}, err
	}
	return decodeTime(b), nil
}

// record is a record whose header has been read; data is fetched separately.
type record struct {
	op      byte
	header  headerFields
	pos     int64
	dataPos int64
	dataLen uint32
}

func (r *record) end() int64 {
	return r.dataPos + int64(r.dataLen)
}

func (r *record) kind() string {
	if name, ok := opNames[r.op]; ok {
		return name
	}
	return fmt.Sprintf("op 0x%02x", r.op)
}

// readRecordAt reads the record header at pos and validates that the whole
// record fits before limit.
func readRecordAt(src io.ReaderAt, pos, limit int64) (*record, error) {
	var lenBuf [4]byte
	if pos+4 > limit {
		return nil, fmt.Errorf("%w: record at %d: header length past end", ErrMalformedRecord, pos)
	}
	if err := readFullAt(src, lenBuf[:], pos); err != nil {
		return nil, fmt.Errorf("read record at %d: %w", pos, err)
	}
	hlen := int64(binary.LittleEndian.Uint32(lenBuf[:]))
	if pos+4+hlen+4 > limit {
		return nil, fmt.Errorf("%w: record at %d: header length %d past end", ErrMalformedRecord, pos, hlen)
	}
	buf := make([]byte, hlen+4)
	if err := readFullAt(src, buf, pos+4); err != nil {
		return nil, fmt.Errorf("read record at %d: %w", pos, err)
	}
	rec, err := newRecord(buf[:hlen], pos)
	if err != nil {
		return nil, err
	}
	rec.dataPos = pos + 4 + hlen + 4
	rec.dataLen = binary.LittleEndian.Uint32(buf[hlen:])
	if rec.end() > limit {
		return nil, fmt.Errorf("%w: record at %d: data length %d past end", ErrMalformedRecord, pos, rec.dataLen)
	}
	return rec, nil
}

func newRecord(header []byte, pos int64) (*record, error) {
	fields, err := parseHeader(header)
	if err != nil {
		return nil, fmt.Errorf("record at %d: %w", pos, err)
	}
	op, err := fields.op()
	if err != nil {
		return nil, fmt.Errorf("record at %d: %w", pos, err)
	}
	return &record{op: op, header: fields, pos: pos}, nil
}

func (r *record) data(src io.ReaderAt) ([]byte, error) {
	buf := make([]byte, r.dataLen)
	if err := readFullAt(src, buf, r.dataPos); err != nil {
		return nil, fmt.Errorf("read %s data at %d: %w", r.kind(), r.pos, err)
	}
	return buf, nil
}

// parseRecord reads the record at off within an in-memory buffer such as
// decompressed chunk contents.
func parseRecord(buf []byte, off int) (*record, []byte, error) {
	r := newByteReader(buf)
	r.pos = off
	hlen, err := r.Uint32()
	if err != nil {
		return nil, nil, fmt.Errorf("record at %d: %w", off, err)
	}
	header, err := r.read(int(hlen))
	if err != nil {
		return nil, nil, fmt.Errorf("record at %d: %w", off, err)
	}
	dlen, err := r.Uint32()
	if err != nil {
		return nil, nil, fmt.Errorf("record at %d: %w", off, err)
	}
	data, err := r.read(int(dlen))
	if err != nil {
		return nil, nil, fmt.Errorf("record at %d: %w", off, err)
	}
	rec, err := newRecord(header, int64(off))
	if err != nil {
		return nil, nil, err
	}
	rec.dataPos = int64(r.pos) - int64(dlen)
	rec.dataLen = dlen
	return rec, data, nil
}

func readFullAt(src io.ReaderAt, buf []byte, off int64) error {
	n, err := src.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}
