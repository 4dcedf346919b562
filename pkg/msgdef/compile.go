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
	"maps"
	"slices"
	"strings"
	"sync"
)

// sectionRule separates dependency sections in a full definition.
var sectionRule = strings.Repeat("=", 80)

// Compile parses a full definition as stored in bag connection records: the
// main block followed by "===" delimited sections, each starting with a
// "MSG: package/Type" line. Nested references resolve against those sections
// first and then against known, which may be nil.
func Compile(fullName, definition string, known *Registry) (*Schema, error) {
	sections, err := splitSections(fullName, definition)
	if err != nil {
		return nil, err
	}
	local := make(map[string]*Schema, len(sections))
	var main *Schema
	for i, sec := range sections {
		s, err := Parse(sec.name, sec.text)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			main = s
			continue
		}
		if _, dup := local[sec.name]; !dup {
			local[sec.name] = s
		}
	}
	lookup := func(name string) (*Schema, bool) {
		if s, ok := local[name]; ok {
			return s, true
		}
		return known.Lookup(name)
	}
	if err := main.Resolve(lookup); err != nil {
		return nil, err
	}
	return main, nil
}

type section struct {
	name string
	text string
}

func splitSections(fullName, definition string) ([]section, error) {
	out := []section{{name: fullName}}
	var body []string
	expectHeader := false
	flush := func() {
		out[len(out)-1].text = strings.Join(body, "\n")
		body = body[:0]
	}
	for _, line := range strings.Split(definition, "\n") {
		trimmed := strings.TrimSpace(line)
		if isRule(trimmed) {
			flush()
			out = append(out, section{})
			expectHeader = true
			continue
		}
		if expectHeader {
			if trimmed == "" {
				continue
			}
			name, ok := strings.CutPrefix(trimmed, "MSG:")
			if !ok {
				return nil, fmt.Errorf("%w: %s: section without MSG: header", ErrMalformedSchema, fullName)
			}
			out[len(out)-1].name = strings.TrimSpace(name)
			expectHeader = false
			continue
		}
		body = append(body, line)
	}
	if expectHeader {
		return nil, fmt.Errorf("%w: %s: trailing section without MSG: header", ErrMalformedSchema, fullName)
	}
	flush()
	return out, nil
}

func isRule(line string) bool {
	return len(line) >= 3 && strings.Trim(line, "=") == ""
}

// Registry holds resolved schemas by full type name.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

// Lookup is safe on a nil registry.
func (r *Registry) Lookup(fullName string) (*Schema, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[fullName]
	return s, ok
}

// Add stores a resolved schema. Adding a different definition under a name
// that is already registered fails.
func (r *Registry) Add(s *Schema) error {
	if !s.Resolved() {
		return fmt.Errorf("%w: %s is not resolved", ErrUnresolvedType, s.FullName())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.schemas[s.FullName()]; ok && prev.MD5Sum() != s.MD5Sum() {
		return fmt.Errorf("%w: %s already registered with md5 %s", ErrTypeMismatch, s.FullName(), prev.MD5Sum())
	}
	r.schemas[s.FullName()] = s
	return nil
}

// Register compiles definition against the registry and adds the result.
func (r *Registry) Register(fullName, definition string) (*Schema, error) {
	s, err := Compile(fullName, definition, r)
	if err != nil {
		return nil, err
	}
	if err := r.Add(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Names returns the registered type names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.schemas))
}
