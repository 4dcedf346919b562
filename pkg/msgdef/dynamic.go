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

import "fmt"

// DecodeDynamic decodes one message of schema into a map keyed by field name.
// Scalars use their natural Go types, time and duration use rostime values,
// uint8 arrays become []byte and other arrays []any.
func DecodeDynamic(schema *Schema, data []byte) (map[string]any, error) {
	if !schema.Resolved() {
		return nil, fmt.Errorf("%w: %s has unresolved fields", ErrUnresolvedType, schema.FullName())
	}
	return decodeMessage(newWireReader(data), schema)
}

func decodeMessage(r *wireReader, s *Schema) (map[string]any, error) {
	out := make(map[string]any, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		v, err := decodeField(r, f)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

func decodeField(r *wireReader, f *Field) (any, error) {
	if !f.IsArray {
		return decodeElement(r, f)
	}
	n := f.Len
	if n == 0 {
		var err error
		if n, err = r.Length(minElementSize(f)); err != nil {
			return nil, err
		}
	}
	if f.Kind == KindUint8 {
		b, err := r.read(n)
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), b...), nil
	}
	// Zero-size elements have no wire bytes bounding n.
	out := make([]any, 0, min(n, r.remaining()+1))
	for range n {
		v, err := decodeElement(r, f)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeElement(r *wireReader, f *Field) (any, error) {
	if f.Kind == KindMessage {
		return decodeMessage(r, f.Msg)
	}
	return r.Scalar(f.Kind)
}
