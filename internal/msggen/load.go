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

// Package msggen turns ROS .msg packages into Go message types that
// implement msgdef.Message.
package msggen

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/novatechflow/bagkit/pkg/msgdef"
)

// ErrNoMessages is returned when the input roots hold no .msg files.
var ErrNoMessages = errors.New("no message definitions found")

// sectionRule separates dependency sections in a full definition.
var sectionRule = strings.Repeat("=", 80) + "\n"

// Package is one ROS message package.
type Package struct {
	// Name is the ROS package name, e.g. "std_msgs".
	Name     string
	Dir      string
	Messages []*Message
}

// Message is one .msg file with its resolved schema.
type Message struct {
	Package string
	Name    string
	Path    string
	// Text is the .msg file as written.
	Text   string
	Schema *msgdef.Schema
	// Definition is the text a bag connection record carries for this type:
	// Text followed by every dependency section in first-use order.
	Definition string
}

// FullName returns "package/Name".
func (m *Message) FullName() string {
	return m.Package + "/" + m.Name
}

// Load walks roots for <package>/msg/*.msg files and resolves every message
// against the whole set. The package name comes from package.xml when
// present and from the directory name otherwise.
func Load(roots ...string) ([]*Package, error) {
	byName := make(map[string]*Package)
	names := make(map[string]string) // package dir -> package name
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || filepath.Ext(path) != ".msg" || filepath.Base(filepath.Dir(path)) != "msg" {
				return nil
			}
			dir := filepath.Dir(filepath.Dir(path))
			name, ok := names[dir]
			if !ok {
				if name, err = packageName(dir); err != nil {
					return err
				}
				names[dir] = name
			}
			p := byName[name]
			if p == nil {
				p = &Package{Name: name, Dir: dir}
				byName[name] = p
			} else if p.Dir != dir {
				return fmt.Errorf("package %s found in %s and %s", name, p.Dir, dir)
			}
			text, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			p.Messages = append(p.Messages, &Message{
				Package: name,
				Name:    strings.TrimSuffix(filepath.Base(path), ".msg"),
				Path:    path,
				Text:    string(text),
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if len(byName) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoMessages, strings.Join(roots, ", "))
	}

	pkgs := make([]*Package, 0, len(byName))
	for _, p := range byName {
		slices.SortFunc(p.Messages, func(a, b *Message) int { return strings.Compare(a.Name, b.Name) })
		pkgs = append(pkgs, p)
	}
	slices.SortFunc(pkgs, func(a, b *Package) int { return strings.Compare(a.Name, b.Name) })
	if err := resolve(pkgs); err != nil {
		return nil, err
	}
	return pkgs, nil
}

func resolve(pkgs []*Package) error {
	messages := make(map[string]*Message)
	schemas := make(map[string]*msgdef.Schema)
	for _, p := range pkgs {
		for _, m := range p.Messages {
			s, err := msgdef.Parse(m.FullName(), m.Text)
			if err != nil {
				return fmt.Errorf("%s: %w", m.Path, err)
			}
			m.Schema = s
			messages[m.FullName()] = m
			schemas[m.FullName()] = s
		}
	}
	lookup := func(name string) (*msgdef.Schema, bool) {
		s, ok := schemas[name]
		return s, ok
	}
	for _, p := range pkgs {
		for _, m := range p.Messages {
			if err := m.Schema.Resolve(lookup); err != nil {
				return fmt.Errorf("%s: %w", m.Path, err)
			}
		}
	}
	for _, p := range pkgs {
		for _, m := range p.Messages {
			m.Definition = fullDefinition(m, messages)
			// The composed text must hash like the schema it came from.
			s, err := msgdef.Compile(m.FullName(), m.Definition, nil)
			if err != nil {
				return fmt.Errorf("%s: composed definition: %w", m.Path, err)
			}
			if s.MD5Sum() != m.Schema.MD5Sum() {
				return fmt.Errorf("%w: %s composed definition hashes to %s, want %s",
					msgdef.ErrTypeMismatch, m.FullName(), s.MD5Sum(), m.Schema.MD5Sum())
			}
		}
	}
	return nil
}

// fullDefinition appends the .msg text of every nested type to m's own text
// in depth-first first-use order.
func fullDefinition(m *Message, messages map[string]*Message) string {
	var b strings.Builder
	b.WriteString(withNewline(m.Text))
	seen := map[string]bool{m.FullName(): true}
	var walk func(*msgdef.Schema)
	walk = func(s *msgdef.Schema) {
		for _, f := range s.Fields {
			if f.Msg == nil || seen[f.MsgType] {
				continue
			}
			seen[f.MsgType] = true
			b.WriteString(sectionRule)
			b.WriteString("MSG: " + f.MsgType + "\n")
			b.WriteString(withNewline(messages[f.MsgType].Text))
			walk(f.Msg)
		}
	}
	walk(m.Schema)
	return b.String()
}

func withNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// packageName reads <name> from dir/package.xml, falling back to the
// directory name when there is no manifest.
func packageName(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "package.xml"))
	if errors.Is(err, fs.ErrNotExist) {
		return filepath.Base(dir), nil
	}
	if err != nil {
		return "", err
	}
	var manifest struct {
		Name string `xml:"name"`
	}
	if err := xml.Unmarshal(data, &manifest); err != nil {
		return "", fmt.Errorf("%s: %w", filepath.Join(dir, "package.xml"), err)
	}
	name := strings.TrimSpace(manifest.Name)
	if name == "" {
		return "", fmt.Errorf("%s: missing <name>", filepath.Join(dir, "package.xml"))
	}
	return name, nil
}
