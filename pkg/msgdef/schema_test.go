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
)

const headerText = "uint32 seq\ntime stamp\nstring frame_id\n"

func TestParseDefinition(t *testing.T) {
	text := `# leading comment
int32 X=5 # trailing comment
string GREETING = hello # world
float64[] values   # variable length
uint8[16] id
geometry_msgs/Point origin

Header header
`
	s, err := Parse("demo_msgs/Sample", text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Package != "demo_msgs" || s.Name != "Sample" || s.FullName() != "demo_msgs/Sample" {
		t.Fatalf("unexpected name %q / %q", s.Package, s.Name)
	}
	if len(s.Constants) != 2 {
		t.Fatalf("expected 2 constants, got %d", len(s.Constants))
	}
	if c := s.Constants[0]; c.Name != "X" || c.Value != int32(5) || c.Text != "5" {
		t.Fatalf("unexpected constant %+v", c)
	}
	if c := s.Constants[1]; c.Name != "GREETING" || c.Value != "hello # world" {
		t.Fatalf("string constant should keep '#': %+v", c)
	}
	if len(s.Fields) != 4 {
		t.Fatalf("expected 4 fields, got %d", len(s.Fields))
	}
	if f := s.Fields[0]; f.Kind != KindFloat64 || !f.IsArray || f.Len != 0 || f.TypeText() != "float64[]" {
		t.Fatalf("unexpected variable array %+v", f)
	}
	if f := s.Fields[1]; f.Kind != KindUint8 || f.Len != 16 || f.TypeText() != "uint8[16]" {
		t.Fatalf("unexpected fixed array %+v", f)
	}
	if f := s.Fields[2]; f.Kind != KindMessage || f.Type != "geometry_msgs/Point" {
		t.Fatalf("unexpected package reference %+v", f)
	}
	if s.Resolved() {
		t.Fatalf("schema with nested references should not resolve on parse")
	}
}

func TestParseRejectsMalformedLines(t *testing.T) {
	cases := []string{
		"int32",
		"int32[x] a",
		"int32[0] a",
		"int32[ a",
		"int32 1a",
		"int32 a b",
		"foo a",
		"a/b/c x",
		"Header h=3",
		"int32[] A=3",
		"time T=3",
		"int8 A=300",
		"bool B=maybe",
		"int32 a\nint32 a",
	}
	for _, text := range cases {
		if _, err := Parse("demo_msgs/Bad", text); !errors.Is(err, ErrMalformedSchema) {
			t.Fatalf("%q: expected malformed schema, got %v", text, err)
		}
	}
}

func TestCompileHashes(t *testing.T) {
	rule := strings.Repeat("=", 80)
	cases := []struct {
		name string
		text string
		md5  string
	}{
		{"std_msgs/String", "string data\n", "992ce8a1687cec8c8bd883ec73ca41d1"},
		{"std_msgs/Empty", "", "d41d8cd98f00b204e9800998ecf8427e"},
		{"std_msgs/Header", "# comment\n" + headerText, "2176decaecbce78abc3b96ef049fabed"},
		{
			"std_msgs/MultiArrayLayout",
			"MultiArrayDimension[] dim\nuint32 data_offset\n" + rule +
				"\nMSG: std_msgs/MultiArrayDimension\nstring label\nuint32 size\nuint32 stride\n",
			"0fed2a11c13e11c5571b4e2a995a91a3",
		},
		{
			"demo_msgs/Stamped",
			"Header header\nint32 X=5 # c\nstring S=a#b\nint32 value\n" + rule + "\nMSG: std_msgs/Header\n" + headerText,
			"cc34557eb121d1dcd348f207a0d8651f",
		},
	}
	for _, tc := range cases {
		s, err := Compile(tc.name, tc.text, nil)
		if err != nil {
			t.Fatalf("%s: compile: %v", tc.name, err)
		}
		if got := s.MD5Sum(); got != tc.md5 {
			t.Fatalf("%s: md5 %s, want %s (canonical %q)", tc.name, got, tc.md5, s.CanonicalText())
		}
	}
}

func TestHashIgnoresFormatting(t *testing.T) {
	rule := strings.Repeat("=", 80)
	base := "Header header\nint32 X=5\nstring S=a#b\nint32 value\n" + rule + "\nMSG: std_msgs/Header\n" + headerText
	want, err := Compile("demo_msgs/Stamped", base, nil)
	if err != nil {
		t.Fatalf("compile base: %v", err)
	}
	cases := []struct {
		name string
		text string
	}{
		{"tabs", "Header\theader\nint32\tX=5\nstring\tS=a#b\nint32\t\tvalue\n" + rule + "\nMSG: std_msgs/Header\nuint32\tseq\ntime\tstamp\nstring\tframe_id\n"},
		{"spaces", "  Header    header\nint32   X = 5\nstring  S=a#b  \nint32 value   \n" + rule + "\nMSG:   std_msgs/Header\nuint32  seq\ntime   stamp\nstring frame_id\n"},
		{"crlf", strings.ReplaceAll(base, "\n", "\r\n")},
		{"blank lines", "\n\nHeader header\n\n\nint32 X=5\nstring S=a#b\n\nint32 value\n\n" + rule + "\n\nMSG: std_msgs/Header\n\n" + headerText + "\n\n"},
		{"comments", "# stamped sample\nHeader header # meta\n  # indented\nint32 X=5 # five\nstring S=a#b\nint32 value#trailing\n" + rule + "\nMSG: std_msgs/Header\n# header docs\n" + headerText},
	}
	for _, tc := range cases {
		got, err := Compile("demo_msgs/Stamped", tc.text, nil)
		if err != nil {
			t.Fatalf("%s: compile: %v", tc.name, err)
		}
		if got.MD5Sum() != want.MD5Sum() {
			t.Fatalf("%s: md5 %s, want %s (canonical %q)", tc.name, got.MD5Sum(), want.MD5Sum(), got.CanonicalText())
		}
	}
}

func TestCanonicalTextRecompiles(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"std_msgs/Header", "# comment\n" + headerText},
		{"demo_msgs/Limits", "int32 MAX = 10\nstring NOTE=keep # this\nbool ON=1\nfloat64[] values\nuint8[4] id\nduration timeout\n"},
		{"std_msgs/Empty", ""},
	}
	for _, tc := range cases {
		first, err := Compile(tc.name, tc.text, nil)
		if err != nil {
			t.Fatalf("%s: compile: %v", tc.name, err)
		}
		second, err := Compile(tc.name, first.CanonicalText(), nil)
		if err != nil {
			t.Fatalf("%s: compile canonical text: %v", tc.name, err)
		}
		if second.MD5Sum() != first.MD5Sum() || second.CanonicalText() != first.CanonicalText() {
			t.Fatalf("%s: canonical text is not a fixed point: %q vs %q", tc.name, first.CanonicalText(), second.CanonicalText())
		}
	}
}

func TestCanonicalAndFullText(t *testing.T) {
	rule := strings.Repeat("=", 80)
	def := "Header header # meta\nint32 X=5\nint32 value\n" + rule + "\nMSG: std_msgs/Header\n" + headerText
	s, err := Compile("demo_msgs/Stamped", def, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	wantCanonical := "int32 X=5\n2176decaecbce78abc3b96ef049fabed header\nint32 value"
	if got := s.CanonicalText(); got != wantCanonical {
		t.Fatalf("canonical text %q, want %q", got, wantCanonical)
	}
	wantFull := "int32 X=5\nHeader header\nint32 value\n" + rule +
		"\nMSG: std_msgs/Header\nuint32 seq\ntime stamp\nstring frame_id"
	if got := s.FullText(); got != wantFull {
		t.Fatalf("full text %q, want %q", got, wantFull)
	}
	if hdr := s.Fields[0]; hdr.MsgType != "std_msgs/Header" || hdr.Msg == nil {
		t.Fatalf("header not bound: %+v", hdr)
	}
}

func TestCompileUnresolvedType(t *testing.T) {
	_, err := Compile("demo_msgs/Pose", "geometry_msgs/Point position\n", nil)
	if !errors.Is(err, ErrUnresolvedType) {
		t.Fatalf("expected unresolved type, got %v", err)
	}
	if !strings.Contains(err.Error(), "geometry_msgs/Point") {
		t.Fatalf("error should name the missing type: %v", err)
	}
	if _, err := Compile("demo_msgs/Bad", "int32 a\n====\nint32 b\n", nil); !errors.Is(err, ErrMalformedSchema) {
		t.Fatalf("expected malformed section header, got %v", err)
	}
}

func TestCompileSelfReference(t *testing.T) {
	_, err := Compile("demo_msgs/Node", "Node next\n", nil)
	if !errors.Is(err, ErrUnresolvedType) {
		t.Fatalf("expected unresolved self reference, got %v", err)
	}
	rule := strings.Repeat("=", 80)
	_, err = Compile("demo_msgs/A", "B b\n"+rule+"\nMSG: demo_msgs/B\nA a\n"+rule+"\nMSG: demo_msgs/A\nB b\n", nil)
	if !errors.Is(err, ErrMalformedSchema) {
		t.Fatalf("expected cycle to be rejected, got %v", err)
	}
}

func TestRegistryResolvesExternalTypes(t *testing.T) {
	reg := NewRegistry()
	hdr, err := reg.Register("std_msgs/Header", headerText)
	if err != nil {
		t.Fatalf("register header: %v", err)
	}
	s, err := Compile("demo_msgs/Stamped", "Header header\nint32 value\n", reg)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if s.Fields[0].Msg != hdr {
		t.Fatalf("expected registry schema to be bound")
	}
	if _, err := reg.Register("std_msgs/Header", "uint32 seq\n"); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected conflicting registration to fail, got %v", err)
	}
	if _, err := reg.Register("demo_msgs/Alpha", "int32 value\n"); err != nil {
		t.Fatalf("register alpha: %v", err)
	}
	if _, err := reg.Register("zoo_msgs/Zebra", "int32 value\n"); err != nil {
		t.Fatalf("register zebra: %v", err)
	}
	want := []string{"demo_msgs/Alpha", "std_msgs/Header", "zoo_msgs/Zebra"}
	if diff := cmp.Diff(want, reg.Names()); diff != "" {
		t.Fatalf("unexpected names (-want +got):\n%s", diff)
	}
	var nilReg *Registry
	if _, ok := nilReg.Lookup("std_msgs/Header"); ok {
		t.Fatalf("nil registry should not resolve")
	}
}
