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
	"strconv"
	"strings"
	"unicode"
)

// Parse parses a single definition block for the message fullName
// ("package/Name"). Nested message fields stay unresolved until Resolve is
// called; schemas without nested messages are resolved immediately.
func Parse(fullName, text string) (*Schema, error) {
	s := &Schema{}
	s.Package, s.Name = splitName(fullName)
	if !validIdent(s.Name) || (s.Package != "" && !validIdent(s.Package)) {
		return nil, fmt.Errorf("%w: invalid type name %q", ErrMalformedSchema, fullName)
	}
	seen := make(map[string]bool)
	for i, raw := range strings.Split(text, "\n") {
		name, err := s.parseLine(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrMalformedSchema, fullName, i+1, err)
		}
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %s line %d: duplicate name %q", ErrMalformedSchema, fullName, i+1, name)
		}
		seen[name] = true
	}
	if !s.hasMessageFields() {
		s.finalize()
	}
	return s, nil
}

func (s *Schema) hasMessageFields() bool {
	for _, f := range s.Fields {
		if f.Kind == KindMessage {
			return true
		}
	}
	return false
}

// parseLine adds the field or constant declared on raw and returns its name,
// or "" for blank and comment-only lines.
func (s *Schema) parseLine(raw string) (string, error) {
	clean := strings.TrimSpace(stripComment(raw))
	if clean == "" {
		return "", nil
	}
	sp := strings.IndexAny(clean, " \t")
	if sp < 0 {
		return "", fmt.Errorf("expected \"type name\", got %q", clean)
	}
	typ := clean[:sp]
	base, isArray, n, err := parseType(typ)
	if err != nil {
		return "", err
	}
	kind, err := kindOf(base)
	if err != nil {
		return "", err
	}

	if strings.Contains(clean, "=") {
		return s.parseConstant(raw, clean, typ, kind, isArray)
	}

	name := strings.TrimSpace(clean[sp:])
	if !validIdent(name) {
		return "", fmt.Errorf("invalid field name %q", name)
	}
	s.Fields = append(s.Fields, Field{
		Name:    name,
		Type:    base,
		Kind:    kind,
		IsArray: isArray,
		Len:     n,
	})
	return name, nil
}

func (s *Schema) parseConstant(raw, clean, typ string, kind Kind, isArray bool) (string, error) {
	if isArray || kind == KindMessage || kind == KindTime || kind == KindDuration {
		return "", fmt.Errorf("constants of type %s are not allowed", typ)
	}
	var name, text string
	if kind == KindString {
		// string constants run to the end of the line, '#' included
		line := strings.TrimLeft(raw, " \t")
		line = line[len(typ):]
		eq := strings.IndexByte(line, '=')
		name, text = line[:eq], line[eq+1:]
	} else {
		rest := clean[len(typ):]
		eq := strings.IndexByte(rest, '=')
		name, text = rest[:eq], rest[eq+1:]
	}
	name = strings.TrimSpace(name)
	text = strings.TrimSpace(text)
	if !validIdent(name) {
		return "", fmt.Errorf("invalid constant name %q", name)
	}
	value, err := parseConstantValue(kind, text)
	if err != nil {
		return "", fmt.Errorf("constant %s: %w", name, err)
	}
	s.Constants = append(s.Constants, Constant{
		Name:  name,
		Type:  typ,
		Kind:  kind,
		Text:  text,
		Value: value,
	})
	return name, nil
}

func parseConstantValue(kind Kind, text string) (any, error) {
	switch kind {
	case KindBool:
		return strconv.ParseBool(text)
	case KindInt8:
		v, err := strconv.ParseInt(text, 10, 8)
		return int8(v), err
	case KindInt16:
		v, err := strconv.ParseInt(text, 10, 16)
		return int16(v), err
	case KindInt32:
		v, err := strconv.ParseInt(text, 10, 32)
		return int32(v), err
	case KindInt64:
		return strconv.ParseInt(text, 10, 64)
	case KindUint8:
		v, err := strconv.ParseUint(text, 10, 8)
		return uint8(v), err
	case KindUint16:
		v, err := strconv.ParseUint(text, 10, 16)
		return uint16(v), err
	case KindUint32:
		v, err := strconv.ParseUint(text, 10, 32)
		return uint32(v), err
	case KindUint64:
		return strconv.ParseUint(text, 10, 64)
	case KindFloat32:
		v, err := strconv.ParseFloat(text, 32)
		return float32(v), err
	case KindFloat64:
		return strconv.ParseFloat(text, 64)
	case KindString:
		return text, nil
	default:
		return nil, fmt.Errorf("unsupported constant kind %s", kind)
	}
}

// parseType splits "base", "base[]" and "base[N]".
func parseType(tok string) (base string, isArray bool, n int, err error) {
	base = tok
	if open := strings.IndexByte(tok, '['); open >= 0 {
		if !strings.HasSuffix(tok, "]") || open == 0 {
			return "", false, 0, fmt.Errorf("invalid array type %q", tok)
		}
		base = tok[:open]
		isArray = true
		if inner := tok[open+1 : len(tok)-1]; inner != "" {
			n, err = strconv.Atoi(inner)
			if err != nil || n <= 0 {
				return "", false, 0, fmt.Errorf("invalid array length in %q", tok)
			}
		}
	}
	parts := strings.Split(base, "/")
	if len(parts) > 2 {
		return "", false, 0, fmt.Errorf("invalid type %q", tok)
	}
	for _, p := range parts {
		if !validIdent(p) {
			return "", false, 0, fmt.Errorf("invalid type %q", tok)
		}
	}
	return base, isArray, n, nil
}

func kindOf(base string) (Kind, error) {
	if kind, ok := primitives[base]; ok {
		return kind, nil
	}
	if !strings.Contains(base, "/") && unicode.IsLower(rune(base[0])) {
		return 0, fmt.Errorf("unknown primitive type %q", base)
	}
	return KindMessage, nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

func splitName(fullName string) (pkg, name string) {
	if i := strings.LastIndexByte(fullName, '/'); i >= 0 {
		return fullName[:i], fullName[i+1:]
	}
	return "", fullName
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
