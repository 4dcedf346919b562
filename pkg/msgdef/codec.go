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
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/novatechflow/bagkit/pkg/rostime"
)

var (
	timeType     = reflect.TypeFor[rostime.Time]()
	durationType = reflect.TypeFor[rostime.Duration]()
)

var goKinds = map[Kind]reflect.Kind{
	KindBool:    reflect.Bool,
	KindInt8:    reflect.Int8,
	KindUint8:   reflect.Uint8,
	KindInt16:   reflect.Int16,
	KindUint16:  reflect.Uint16,
	KindInt32:   reflect.Int32,
	KindUint32:  reflect.Uint32,
	KindInt64:   reflect.Int64,
	KindUint64:  reflect.Uint64,
	KindFloat32: reflect.Float32,
	KindFloat64: reflect.Float64,
	KindString:  reflect.String,
}

// valueCodec moves one schema value between the wire and a reflect.Value.
type valueCodec struct {
	decode func(r *wireReader, v reflect.Value) error
	encode func(w *wireWriter, v reflect.Value) error
}

type planKey struct {
	schema *Schema
	typ    reflect.Type
}

// planner compiles codecs by recursion over field kinds, sharing the codec
// of a (schema, Go type) pair that appears more than once.
type planner struct {
	messages map[planKey]*valueCodec
}

func newPlanner() *planner {
	return &planner{messages: make(map[planKey]*valueCodec)}
}

func compileCodec(s *Schema, t reflect.Type) (*valueCodec, error) {
	if !s.Resolved() {
		return nil, fmt.Errorf("%w: %s has unresolved fields", ErrUnresolvedType, s.FullName())
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s cannot hold %s", ErrTypeMismatch, t, s.FullName())
	}
	return newPlanner().message(s, t)
}

type binding struct {
	field *Field
	index int
	codec *valueCodec
}

func (p *planner) message(s *Schema, t reflect.Type) (*valueCodec, error) {
	key := planKey{schema: s, typ: t}
	if c, ok := p.messages[key]; ok {
		return c, nil
	}
	bindings := make([]binding, 0, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		idx := structFieldIndex(t, f.Name)
		if idx < 0 {
			bindings = append(bindings, binding{field: f, index: -1})
			continue
		}
		c, err := p.field(f, t.Field(idx).Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", s.FullName(), f.Name, err)
		}
		bindings = append(bindings, binding{field: f, index: idx, codec: c})
	}
	c := &valueCodec{
		decode: func(r *wireReader, v reflect.Value) error {
			for _, b := range bindings {
				var err error
				if b.index < 0 {
					_, err = decodeField(r, b.field)
				} else {
					err = b.codec.decode(r, v.Field(b.index))
				}
				if err != nil {
					return err
				}
			}
			return nil
		},
		encode: func(w *wireWriter, v reflect.Value) error {
			for _, b := range bindings {
				if b.index < 0 {
					writeZeroField(w, b.field)
					continue
				}
				if err := b.codec.encode(w, v.Field(b.index)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	p.messages[key] = c
	return c, nil
}

func (p *planner) field(f *Field, t reflect.Type) (*valueCodec, error) {
	if !f.IsArray {
		return p.element(f, t)
	}
	switch {
	case t.Kind() == reflect.Slice:
	case t.Kind() == reflect.Array && f.Len > 0 && t.Len() == f.Len:
	default:
		return nil, fmt.Errorf("%w: %s cannot hold %s", ErrTypeMismatch, t, f.TypeText())
	}
	if f.Kind == KindUint8 && t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
		return bytesCodec(f), nil
	}
	elem, err := p.element(f, t.Elem())
	if err != nil {
		return nil, err
	}
	minElem := minElementSize(f)
	return &valueCodec{
		decode: func(r *wireReader, v reflect.Value) error {
			n := f.Len
			if n == 0 {
				var err error
				if n, err = r.Length(minElem); err != nil {
					return err
				}
			}
			if v.Kind() == reflect.Slice {
				v.Set(reflect.MakeSlice(t, n, n))
			}
			for i := range n {
				if err := elem.decode(r, v.Index(i)); err != nil {
					return err
				}
			}
			return nil
		},
		encode: func(w *wireWriter, v reflect.Value) error {
			n := v.Len()
			if f.Len > 0 {
				if n != f.Len {
					return fmt.Errorf("%w: %s needs %d elements, have %d", ErrTypeMismatch, f.Name, f.Len, n)
				}
			} else {
				w.Uint32(uint32(n))
			}
			for i := range n {
				if err := elem.encode(w, v.Index(i)); err != nil {
					return err
				}
			}
			return nil
		},
	}, nil
}

func bytesCodec(f *Field) *valueCodec {
	return &valueCodec{
		decode: func(r *wireReader, v reflect.Value) error {
			n := f.Len
			if n == 0 {
				var err error
				if n, err = r.Length(1); err != nil {
					return err
				}
			}
			b, err := r.read(n)
			if err != nil {
				return err
			}
			v.SetBytes(append([]byte(nil), b...))
			return nil
		},
		encode: func(w *wireWriter, v reflect.Value) error {
			b := v.Bytes()
			if f.Len > 0 {
				if len(b) != f.Len {
					return fmt.Errorf("%w: %s needs %d bytes, have %d", ErrTypeMismatch, f.Name, f.Len, len(b))
				}
			} else {
				w.Uint32(uint32(len(b)))
			}
			w.Raw(b)
			return nil
		},
	}
}

func (p *planner) element(f *Field, t reflect.Type) (*valueCodec, error) {
	switch f.Kind {
	case KindMessage:
		if t.Kind() != reflect.Struct {
			return nil, fmt.Errorf("%w: %s cannot hold %s", ErrTypeMismatch, t, f.MsgType)
		}
		return p.message(f.Msg, t)
	case KindTime, KindDuration:
		want := timeType
		if f.Kind == KindDuration {
			want = durationType
		}
		if t != want {
			return nil, fmt.Errorf("%w: %s cannot hold %s", ErrTypeMismatch, t, f.Kind)
		}
	default:
		if t.Kind() != goKinds[f.Kind] {
			return nil, fmt.Errorf("%w: %s cannot hold %s", ErrTypeMismatch, t, f.Kind)
		}
	}
	k := f.Kind
	return &valueCodec{
		decode: func(r *wireReader, v reflect.Value) error {
			val, err := r.Scalar(k)
			if err != nil {
				return err
			}
			v.Set(reflect.ValueOf(val).Convert(t))
			return nil
		},
		encode: func(w *wireWriter, v reflect.Value) error {
			writeScalar(w, k, v)
			return nil
		},
	}, nil
}

func writeScalar(w *wireWriter, k Kind, v reflect.Value) {
	switch k {
	case KindBool:
		if v.Bool() {
			w.Raw([]byte{1})
		} else {
			w.Raw([]byte{0})
		}
	case KindInt8:
		w.Raw([]byte{byte(v.Int())})
	case KindUint8:
		w.Raw([]byte{byte(v.Uint())})
	case KindInt16:
		x := uint16(v.Int())
		w.Raw([]byte{byte(x), byte(x >> 8)})
	case KindUint16:
		x := uint16(v.Uint())
		w.Raw([]byte{byte(x), byte(x >> 8)})
	case KindInt32:
		w.Uint32(uint32(v.Int()))
	case KindUint32:
		w.Uint32(uint32(v.Uint()))
	case KindInt64:
		w.Uint64(uint64(v.Int()))
	case KindUint64:
		w.Uint64(v.Uint())
	case KindFloat32:
		w.Uint32(math.Float32bits(float32(v.Float())))
	case KindFloat64:
		w.Uint64(math.Float64bits(v.Float()))
	case KindString:
		s := v.String()
		w.Uint32(uint32(len(s)))
		w.Raw([]byte(s))
	case KindTime:
		t := v.Interface().(rostime.Time)
		w.Uint32(t.Sec)
		w.Uint32(t.NSec)
	case KindDuration:
		d := v.Interface().(rostime.Duration)
		w.Uint32(uint32(d.Sec))
		w.Uint32(uint32(d.NSec))
	}
}

func writeZeroField(w *wireWriter, f *Field) {
	switch {
	case f.IsArray && f.Len == 0:
		w.Uint32(0)
	case f.IsArray:
		for range f.Len {
			writeZeroElement(w, f)
		}
	default:
		writeZeroElement(w, f)
	}
}

func writeZeroElement(w *wireWriter, f *Field) {
	switch f.Kind {
	case KindMessage:
		for i := range f.Msg.Fields {
			writeZeroField(w, &f.Msg.Fields[i])
		}
	case KindString:
		w.Uint32(0)
	default:
		w.Zero(f.Kind.wireSize())
	}
}

// minElementSize is the fewest bytes one element of f can occupy.
func minElementSize(f *Field) int {
	switch f.Kind {
	case KindMessage:
		total := 0
		for i := range f.Msg.Fields {
			nf := &f.Msg.Fields[i]
			switch {
			case nf.IsArray && nf.Len == 0:
				total += 4
			case nf.IsArray:
				total += nf.Len * minElementSize(nf)
			default:
				total += minElementSize(nf)
			}
		}
		return total
	case KindString:
		return 4
	default:
		return f.Kind.wireSize()
	}
}

// structFieldIndex finds the exported field bound to a schema field: an exact
// `ros:"name"` tag wins, otherwise names are compared ignoring case and
// underscores.
func structFieldIndex(t reflect.Type, name string) int {
	for i := range t.NumField() {
		sf := t.Field(i)
		if sf.IsExported() && sf.Tag.Get("ros") == name {
			return i
		}
	}
	want := foldName(name)
	for i := range t.NumField() {
		sf := t.Field(i)
		tag := sf.Tag.Get("ros")
		if !sf.IsExported() || tag != "" {
			continue
		}
		if foldName(sf.Name) == want {
			return i
		}
	}
	return -1
}

func foldName(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", ""))
}

// Decoder decodes payloads of one schema into T.
type Decoder[T any] struct {
	schema *Schema
	codec  *valueCodec
}

// NewDecoder binds schema to the struct type T.
func NewDecoder[T any](schema *Schema) (*Decoder[T], error) {
	c, err := compileCodec(schema, reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return &Decoder[T]{schema: schema, codec: c}, nil
}

// Schema returns the schema the decoder was built for.
func (d *Decoder[T]) Schema() *Schema {
	return d.schema
}

// Decode reads one message from data. Bytes past the end of the message are
// ignored.
func (d *Decoder[T]) Decode(data []byte) (T, error) {
	var out T
	err := d.DecodeInto(data, &out)
	return out, err
}

// DecodeInto is Decode writing into dst, which must not be nil. Fields of
// dst without a schema counterpart are left untouched.
func (d *Decoder[T]) DecodeInto(data []byte, dst *T) error {
	return d.codec.decode(newWireReader(data), reflect.ValueOf(dst).Elem())
}

// Encoder writes values of T in the wire format of one schema.
type Encoder[T any] struct {
	schema *Schema
	codec  *valueCodec
}

// NewEncoder binds schema to the struct type T.
func NewEncoder[T any](schema *Schema) (*Encoder[T], error) {
	c, err := compileCodec(schema, reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return &Encoder[T]{schema: schema, codec: c}, nil
}

// Encode serializes v. Schema fields with no Go counterpart are written as
// zero values.
func (e *Encoder[T]) Encode(v T) ([]byte, error) {
	w := &wireWriter{}
	if err := e.codec.encode(w, reflect.ValueOf(&v).Elem()); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
