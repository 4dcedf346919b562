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
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// Kind is the closed set of field element kinds.
type Kind int

const (
	KindBool Kind = iota + 1
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindTime
	KindDuration
	KindMessage
)

var primitives = map[string]Kind{
	"bool":     KindBool,
	"int8":     KindInt8,
	"byte":     KindInt8,
	"uint8":    KindUint8,
	"char":     KindUint8,
	"int16":    KindInt16,
	"uint16":   KindUint16,
	"int32":    KindInt32,
	"uint32":   KindUint32,
	"int64":    KindInt64,
	"uint64":   KindUint64,
	"float32":  KindFloat32,
	"float64":  KindFloat64,
	"string":   KindString,
	"time":     KindTime,
	"duration": KindDuration,
}

var kindNames = map[Kind]string{
	KindBool:     "bool",
	KindInt8:     "int8",
	KindUint8:    "uint8",
	KindInt16:    "int16",
	KindUint16:   "uint16",
	KindInt32:    "int32",
	KindUint32:   "uint32",
	KindInt64:    "int64",
	KindUint64:   "uint64",
	KindFloat32:  "float32",
	KindFloat64:  "float64",
	KindString:   "string",
	KindTime:     "time",
	KindDuration: "duration",
	KindMessage:  "message",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// wireSize is the fixed encoded size of a scalar kind, or 0 when variable.
func (k Kind) wireSize() int {
	switch k {
	case KindBool, KindInt8, KindUint8:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32:
		return 4
	case KindInt64, KindUint64, KindFloat64, KindTime, KindDuration:
		return 8
	default:
		return 0
	}
}

// Field is one declared field of a message.
type Field struct {
	Name string
	// Type is the element type as written, e.g. "float64", "Header" or "geometry_msgs/Point".
	Type    string
	Kind    Kind
	IsArray bool
	// Len is the fixed array length, or 0 for variable-length arrays.
	Len int
	// MsgType and Msg are set on message fields once the schema is resolved.
	MsgType string
	Msg     *Schema
}

// TypeText returns the declared type including array brackets.
func (f Field) TypeText() string {
	switch {
	case !f.IsArray:
		return f.Type
	case f.Len > 0:
		return fmt.Sprintf("%s[%d]", f.Type, f.Len)
	default:
		return f.Type + "[]"
	}
}

// Constant is a named constant declared in a message definition.
type Constant struct {
	Name string
	Type string
	Kind Kind
	// Text is the value as written, trimmed.
	Text  string
	Value any
}

// Schema is a parsed message definition. A schema is immutable once resolved
// and may then be shared between goroutines.
type Schema struct {
	Package   string
	Name      string
	Fields    []Field
	Constants []Constant

	canonical string
	md5       string
}

// FullName returns "package/Name", or just the name when there is no package.
func (s *Schema) FullName() string {
	if s.Package == "" {
		return s.Name
	}
	return s.Package + "/" + s.Name
}

// Resolved reports whether every nested reference has been bound.
func (s *Schema) Resolved() bool {
	return s.md5 != ""
}

// CanonicalText returns the text hashed by MD5Sum: constants then fields, with
// nested message types replaced by their own hash. Empty until resolved.
func (s *Schema) CanonicalText() string {
	return s.canonical
}

// MD5Sum returns the hex MD5 of CanonicalText, or "" until resolved.
func (s *Schema) MD5Sum() string {
	return s.md5
}

// FullText returns the normalized definition followed by every nested
// definition it depends on, in first-use order.
func (s *Schema) FullText() string {
	var b strings.Builder
	b.WriteString(s.blockText())
	seen := map[*Schema]bool{s: true}
	var walk func(*Schema)
	walk = func(cur *Schema) {
		for _, f := range cur.Fields {
			if f.Msg == nil || seen[f.Msg] {
				continue
			}
			seen[f.Msg] = true
			b.WriteString("\n")
			b.WriteString(sectionRule)
			b.WriteString("\nMSG: ")
			b.WriteString(f.Msg.FullName())
			b.WriteString("\n")
			b.WriteString(f.Msg.blockText())
			walk(f.Msg)
		}
	}
	walk(s)
	return b.String()
}

func (s *Schema) blockText() string {
	lines := make([]string, 0, len(s.Constants)+len(s.Fields))
	for _, c := range s.Constants {
		lines = append(lines, fmt.Sprintf("%s %s=%s", c.Type, c.Name, c.Text))
	}
	for _, f := range s.Fields {
		lines = append(lines, f.TypeText()+" "+f.Name)
	}
	return strings.Join(lines, "\n")
}

// Resolve binds nested message references through lookup and computes the
// schema hash. Bare names resolve within the schema's own package, except
// Header which always means std_msgs/Header.
func (s *Schema) Resolve(lookup func(fullName string) (*Schema, bool)) error {
	return s.resolve(lookup, make(map[*Schema]bool))
}

func (s *Schema) resolve(lookup func(string) (*Schema, bool), visiting map[*Schema]bool) error {
	if s.Resolved() {
		return nil
	}
	if visiting[s] {
		return fmt.Errorf("%w: %s refers to itself", ErrMalformedSchema, s.FullName())
	}
	visiting[s] = true
	defer delete(visiting, s)

	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Kind != KindMessage {
			continue
		}
		name := s.qualify(f.Type)
		var nested *Schema
		ok := false
		if lookup != nil {
			nested, ok = lookup(name)
		}
		if !ok || nested == nil {
			return fmt.Errorf("%w: %s (field %q of %s)", ErrUnresolvedType, name, f.Name, s.FullName())
		}
		if err := nested.resolve(lookup, visiting); err != nil {
			return err
		}
		f.MsgType = name
		f.Msg = nested
	}
	s.finalize()
	return nil
}

func (s *Schema) qualify(typ string) string {
	switch {
	case strings.Contains(typ, "/"):
		return typ
	case typ == "Header":
		return "std_msgs/Header"
	case s.Package == "":
		return typ
	default:
		return s.Package + "/" + typ
	}
}

func (s *Schema) finalize() {
	lines := make([]string, 0, len(s.Constants)+len(s.Fields))
	for _, c := range s.Constants {
		lines = append(lines, fmt.Sprintf("%s %s=%s", c.Type, c.Name, c.Text))
	}
	for _, f := range s.Fields {
		if f.Kind == KindMessage {
			lines = append(lines, f.Msg.MD5Sum()+" "+f.Name)
			continue
		}
		lines = append(lines, f.TypeText()+" "+f.Name)
	}
	s.canonical = strings.Join(lines, "\n")
	sum := md5.Sum([]byte(s.canonical))
	s.md5 = hex.EncodeToString(sum[:])
}
