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
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/novatechflow/bagkit/pkg/rostime"
)

type point struct {
	X float64
	Y float64
}

type header struct {
	Seq     uint32
	Stamp   rostime.Time
	FrameID string
}

type sample struct {
	Flag    bool
	Small   int8
	Count   uint16
	Value   int64
	Ratio   float32
	Name    string
	Stamp   rostime.Time
	Elapsed rostime.Duration
	Raw     []byte
	Fixed   [3]float64
	Points  []point
	Head    header `ros:"head"`
}

func sampleSchema(t *testing.T) *Schema {
	t.Helper()
	rule := strings.Repeat("=", 80)
	def := strings.Join([]string{
		"bool flag",
		"int8 small",
		"uint16 count",
		"int64 value",
		"float32 ratio",
		"string name",
		"time stamp",
		"duration elapsed",
		"uint8[] raw",
		"float64[3] fixed",
		"Point[] points",
		"Header head",
		rule,
		"MSG: demo_msgs/Point",
		"float64 x",
		"float64 y",
		rule,
		"MSG: std_msgs/Header",
		headerText,
	}, "\n")
	s, err := Compile("demo_msgs/Sample", def, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return s
}

func newSample() sample {
	return sample{
		Flag:    true,
		Small:   -7,
		Count:   513,
		Value:   -1 << 40,
		Ratio:   0.5,
		Name:    "lidar",
		Stamp:   rostime.Time{Sec: 12, NSec: 34},
		Elapsed: rostime.Duration{Sec: -1, NSec: 500},
		Raw:     []byte{1, 2, 3},
		Fixed:   [3]float64{3.14, 3.14, 3.14},
		Points:  []point{{X: 1, Y: 2}, {X: 3, Y: 4}},
		Head:    header{Seq: 9, Stamp: rostime.Time{Sec: 1}, FrameID: "base_link"},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := sampleSchema(t)
	enc, err := NewEncoder[sample](s)
	if err != nil {
		t.Fatalf("encoder: %v", err)
	}
	dec, err := NewDecoder[sample](s)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	in := newSample()
	data, err := enc.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := dec.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	if dec.Schema() != s {
		t.Fatalf("decoder should expose its schema")
	}
}

func TestDecodeWireLayout(t *testing.T) {
	s, err := Compile("std_msgs/String", "string data\n", nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	type str struct {
		Data string
	}
	dec, err := NewDecoder[str](s)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	// trailing bytes after the message are ignored
	out, err := dec.Decode([]byte{2, 0, 0, 0, 'h', 'i', 0xff})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Data != "hi" {
		t.Fatalf("unexpected data %q", out.Data)
	}
}

func TestDecodeTruncatedPayload(t *testing.T) {
	s := sampleSchema(t)
	enc, _ := NewEncoder[sample](s)
	dec, _ := NewDecoder[sample](s)
	data, err := enc.Encode(newSample())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for i := 0; i < len(data); i++ {
		if _, err := dec.Decode(data[:i]); !errors.Is(err, ErrTruncatedMessage) {
			t.Fatalf("prefix %d: expected truncated message, got %v", i, err)
		}
		if _, err := DecodeDynamic(s, data[:i]); !errors.Is(err, ErrTruncatedMessage) {
			t.Fatalf("dynamic prefix %d: expected truncated message, got %v", i, err)
		}
	}
}

func TestDecodeRejectsOversizedLength(t *testing.T) {
	s, err := Compile("std_msgs/Float64MultiArrayData", "float64[] data\n", nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	type arr struct {
		Data []float64
	}
	dec, _ := NewDecoder[arr](s)
	if _, err := dec.Decode([]byte{0xff, 0xff, 0xff, 0x7f, 0, 0, 0, 0}); !errors.Is(err, ErrTruncatedMessage) {
		t.Fatalf("expected truncated message, got %v", err)
	}
}

func TestDecodeSkipsUnboundFields(t *testing.T) {
	s := sampleSchema(t)
	type partial struct {
		Name string
		Head header `ros:"head"`
	}
	full, _ := NewEncoder[sample](s)
	data, err := full.Encode(newSample())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	dec, err := NewDecoder[partial](s)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	out, err := dec.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Name != "lidar" || out.Head.FrameID != "base_link" || out.Head.Seq != 9 {
		t.Fatalf("unexpected partial decode %+v", out)
	}

	penc, err := NewEncoder[partial](s)
	if err != nil {
		t.Fatalf("partial encoder: %v", err)
	}
	data, err = penc.Encode(partial{Name: "imu"})
	if err != nil {
		t.Fatalf("partial encode: %v", err)
	}
	back, err := NewDecoder[sample](s)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	got, err := back.Decode(data)
	if err != nil {
		t.Fatalf("decode zero-filled: %v", err)
	}
	if got.Name != "imu" || got.Flag || len(got.Points) != 0 || got.Fixed != [3]float64{} {
		t.Fatalf("unexpected zero-filled decode %+v", got)
	}
}

func TestDecoderTypeMismatch(t *testing.T) {
	s := sampleSchema(t)
	type wrongScalar struct {
		Name int32
	}
	if _, err := NewDecoder[wrongScalar](s); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected type mismatch, got %v", err)
	}
	type wrongArray struct {
		Fixed [2]float64
	}
	if _, err := NewDecoder[wrongArray](s); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected array length mismatch, got %v", err)
	}
	if _, err := NewDecoder[int](s); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected non-struct mismatch, got %v", err)
	}
	enc, _ := NewEncoder[struct {
		Fixed []float64
	}](s)
	if _, err := enc.Encode(struct{ Fixed []float64 }{Fixed: []float64{1}}); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected fixed length violation, got %v", err)
	}
}

func TestDecodeDynamic(t *testing.T) {
	s := sampleSchema(t)
	enc, _ := NewEncoder[sample](s)
	data, err := enc.Encode(newSample())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	m, err := DecodeDynamic(s, data)
	if err != nil {
		t.Fatalf("decode dynamic: %v", err)
	}
	if m["name"] != "lidar" || m["small"] != int8(-7) || m["count"] != uint16(513) {
		t.Fatalf("unexpected scalars %v", m)
	}
	if m["stamp"] != (rostime.Time{Sec: 12, NSec: 34}) {
		t.Fatalf("unexpected stamp %v", m["stamp"])
	}
	if raw, ok := m["raw"].([]byte); !ok || len(raw) != 3 {
		t.Fatalf("unexpected raw %v", m["raw"])
	}
	points, ok := m["points"].([]any)
	if !ok || len(points) != 2 {
		t.Fatalf("unexpected points %v", m["points"])
	}
	if y := points[1].(map[string]any)["y"]; y != float64(4) {
		t.Fatalf("unexpected nested value %v", y)
	}
	if frame := m["head"].(map[string]any)["frame_id"]; frame != "base_link" {
		t.Fatalf("unexpected frame %v", frame)
	}
}

type chatter struct {
	Data string `ros:"data"`
}

func (chatter) DataType() string   { return "std_msgs/String" }
func (chatter) MD5Sum() string     { return "992ce8a1687cec8c8bd883ec73ca41d1" }
func (chatter) Definition() string { return "string data\n" }

type staleChatter struct {
	Data string `ros:"data"`
}

func (staleChatter) DataType() string   { return "std_msgs/String" }
func (staleChatter) MD5Sum() string     { return "00000000000000000000000000000000" }
func (staleChatter) Definition() string { return "string data\n" }

func TestCompileMessage(t *testing.T) {
	first, err := CompileMessage[chatter]()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	second, err := CompileMessage[chatter]()
	if err != nil {
		t.Fatalf("compile again: %v", err)
	}
	if first != second {
		t.Fatalf("expected memoized decoder")
	}
	msg, err := first.Decode([]byte{5, 0, 0, 0, 'f', 'o', 'o', '_', '1'})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Data != "foo_1" {
		t.Fatalf("unexpected data %q", msg.Data)
	}
	if _, err := CompileMessage[staleChatter](); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected md5 mismatch, got %v", err)
	}
}

func TestTypeOfRejectsPointers(t *testing.T) {
	mt, err := TypeOf[chatter]()
	if err != nil {
		t.Fatalf("type of: %v", err)
	}
	want := MessageType{Name: "std_msgs/String", MD5Sum: "992ce8a1687cec8c8bd883ec73ca41d1", Definition: "string data\n"}
	if diff := cmp.Diff(want, mt); diff != "" {
		t.Fatalf("unexpected type (-want +got):\n%s", diff)
	}
	if _, err := TypeOf[*chatter](); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected type mismatch for pointer type, got %v", err)
	}
	if _, err := CompileMessage[*chatter](); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected compile to reject pointer type, got %v", err)
	}
}

func TestDefinitionMD5(t *testing.T) {
	sum, err := DefinitionMD5("std_msgs/String", "string data\n")
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if sum != "992ce8a1687cec8c8bd883ec73ca41d1" {
		t.Fatalf("unexpected digest %s", sum)
	}
	again, _ := DefinitionMD5("std_msgs/String", "string data\n")
	if again != sum {
		t.Fatalf("digest changed between calls: %s vs %s", sum, again)
	}
	if _, err := DefinitionMD5("std_msgs/String", "string\n"); !errors.Is(err, ErrMalformedSchema) {
		t.Fatalf("expected malformed schema, got %v", err)
	}
}

func TestDecodeManyEmptyElements(t *testing.T) {
	def := "Empty[] items\n" + strings.Repeat("=", 80) + "\nMSG: std_msgs/Empty\n"
	s, err := Compile("demo_msgs/Empties", def, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	type empty struct{}
	type empties struct {
		Items []empty
	}
	count := 80000
	payload := []byte{byte(count), byte(count >> 8), byte(count >> 16), 0}

	dec, err := NewDecoder[empties](s)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	msg, err := dec.Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(msg.Items) != count {
		t.Fatalf("expected %d items, got %d", count, len(msg.Items))
	}
	dyn, err := DecodeDynamic(s, payload)
	if err != nil {
		t.Fatalf("decode dynamic: %v", err)
	}
	if items := dyn["items"].([]any); len(items) != count {
		t.Fatalf("expected %d dynamic items, got %d", count, len(items))
	}
}
