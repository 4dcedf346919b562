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

package msggen

import (
	"bytes"
	"fmt"
	"go/format"
	"maps"
	"math"
	"path"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/novatechflow/bagkit/pkg/msgdef"
)

const rostimeImport = "github.com/novatechflow/bagkit/pkg/rostime"

// FileName is the name of the file written into each generated package.
const FileName = "msgs_gen.go"

// Options controls code generation.
type Options struct {
	// ImportPrefix is the import path of the output directory. References
	// across ROS packages import ImportPrefix/<go package>.
	ImportPrefix string
	// Packages restricts output to these ROS packages. Empty emits all.
	Packages []string
	// Header is written verbatim at the top of every file.
	Header string
}

// File is one generated Go source file.
type File struct {
	Package   string
	GoPackage string
	// Path is relative to the output directory.
	Path   string
	Source []byte
}

// Generate renders one gofmt-formatted file per selected package.
func Generate(pkgs []*Package, opts Options) ([]File, error) {
	known := make(map[string]bool, len(pkgs))
	for _, p := range pkgs {
		known[p.Name] = true
	}
	for _, name := range opts.Packages {
		if !known[name] {
			return nil, fmt.Errorf("package %s not found", name)
		}
	}
	var files []File
	for _, p := range pkgs {
		if len(opts.Packages) > 0 && !slices.Contains(opts.Packages, p.Name) {
			continue
		}
		src, err := generatePackage(p, opts)
		if err != nil {
			return nil, err
		}
		gopkg := GoPackageName(p.Name)
		files = append(files, File{
			Package:   p.Name,
			GoPackage: gopkg,
			Path:      path.Join(gopkg, FileName),
			Source:    src,
		})
	}
	return files, nil
}

type generator struct {
	pkg     *Package
	prefix  string
	imports map[string]bool
	idents  map[string]string // identifier -> message that declared it
}

func generatePackage(p *Package, opts Options) ([]byte, error) {
	g := &generator{
		pkg:     p,
		prefix:  opts.ImportPrefix,
		imports: make(map[string]bool),
		idents:  make(map[string]string),
	}
	var body bytes.Buffer
	for _, m := range p.Messages {
		if err := g.message(&body, m); err != nil {
			return nil, fmt.Errorf("%s: %w", m.FullName(), err)
		}
	}

	gopkg := GoPackageName(p.Name)
	var out bytes.Buffer
	if opts.Header != "" {
		out.WriteString(strings.TrimRight(opts.Header, "\n"))
		out.WriteString("\n\n")
	}
	fmt.Fprintf(&out, "// Code generated by bag-gen from %s. DO NOT EDIT.\n\n", p.Name)
	fmt.Fprintf(&out, "// Package %s provides Go bindings for the %s message package.\n", gopkg, p.Name)
	fmt.Fprintf(&out, "package %s\n\n", gopkg)
	if len(g.imports) > 0 {
		out.WriteString("import (\n")
		for _, imp := range slices.Sorted(maps.Keys(g.imports)) {
			fmt.Fprintf(&out, "\t%q\n", imp)
		}
		out.WriteString(")\n\n")
	}
	out.Write(body.Bytes())

	src, err := format.Source(out.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", p.Name, err)
	}
	return src, nil
}

func (g *generator) declare(ident string, m *Message) error {
	if prev, ok := g.idents[ident]; ok {
		return fmt.Errorf("identifier %s already declared by %s", ident, prev)
	}
	g.idents[ident] = m.FullName()
	return nil
}

func (g *generator) message(w *bytes.Buffer, m *Message) error {
	name := exported(m.Name)
	if err := g.declare(name, m); err != nil {
		return err
	}

	fmt.Fprintf(w, "// %s is the %s message.\n", name, m.FullName())
	if len(m.Schema.Fields) == 0 {
		fmt.Fprintf(w, "type %s struct{}\n\n", name)
	} else {
		fmt.Fprintf(w, "type %s struct {\n", name)
		seen := make(map[string]string)
		for _, f := range m.Schema.Fields {
			fname := FieldName(f.Name)
			if fname == "" {
				return fmt.Errorf("field %s has no Go name", f.Name)
			}
			if prev, ok := seen[fname]; ok {
				return fmt.Errorf("fields %s and %s both map to %s", prev, f.Name, fname)
			}
			seen[fname] = f.Name
			typ, err := g.goType(f)
			if err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
			fmt.Fprintf(w, "\t%s %s `ros:%q`\n", fname, typ, f.Name)
		}
		w.WriteString("}\n\n")
	}

	if len(m.Schema.Constants) > 0 {
		fmt.Fprintf(w, "// Constants declared by %s.\nconst (\n", m.FullName())
		for _, c := range m.Schema.Constants {
			cname := name + ConstantName(c.Name)
			if err := g.declare(cname, m); err != nil {
				return err
			}
			lit, err := constantLiteral(c)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "\t%s %s = %s\n", cname, scalarTypes[c.Kind], lit)
		}
		w.WriteString(")\n\n")
	}

	def := strconv.Quote(m.Definition)
	if strings.Count(m.Definition, "\n") > 1 {
		dname := unexported(m.Name) + "Definition"
		if err := g.declare(dname, m); err != nil {
			return err
		}
		fmt.Fprintf(w, "const %s = %s\n\n", dname, stringLiteral(m.Definition))
		def = dname
	}
	fmt.Fprintf(w, "func (%s) DataType() string { return %q }\n", name, m.FullName())
	fmt.Fprintf(w, "func (%s) MD5Sum() string { return %q }\n", name, m.Schema.MD5Sum())
	fmt.Fprintf(w, "func (%s) Definition() string { return %s }\n\n", name, def)
	return nil
}

var scalarTypes = map[msgdef.Kind]string{
	msgdef.KindBool:    "bool",
	msgdef.KindInt8:    "int8",
	msgdef.KindUint8:   "uint8",
	msgdef.KindInt16:   "int16",
	msgdef.KindUint16:  "uint16",
	msgdef.KindInt32:   "int32",
	msgdef.KindUint32:  "uint32",
	msgdef.KindInt64:   "int64",
	msgdef.KindUint64:  "uint64",
	msgdef.KindFloat32: "float32",
	msgdef.KindFloat64: "float64",
	msgdef.KindString:  "string",
}

func (g *generator) goType(f msgdef.Field) (string, error) {
	var elem string
	switch f.Kind {
	case msgdef.KindMessage:
		ref, err := g.messageRef(f.MsgType)
		if err != nil {
			return "", err
		}
		elem = ref
	case msgdef.KindTime:
		g.imports[rostimeImport] = true
		elem = "rostime.Time"
	case msgdef.KindDuration:
		g.imports[rostimeImport] = true
		elem = "rostime.Duration"
	default:
		t, ok := scalarTypes[f.Kind]
		if !ok {
			return "", fmt.Errorf("no Go type for %s", f.Type)
		}
		elem = t
	}
	if f.IsArray && f.Kind == msgdef.KindUint8 {
		elem = "byte"
	}
	switch {
	case !f.IsArray:
		return elem, nil
	case f.Len > 0:
		return fmt.Sprintf("[%d]%s", f.Len, elem), nil
	default:
		return "[]" + elem, nil
	}
}

func (g *generator) messageRef(fullName string) (string, error) {
	pkg, name, _ := strings.Cut(fullName, "/")
	if pkg == g.pkg.Name {
		return exported(name), nil
	}
	if g.prefix == "" {
		return "", fmt.Errorf("reference to %s needs an import prefix", fullName)
	}
	gopkg := GoPackageName(pkg)
	g.imports[path.Join(g.prefix, gopkg)] = true
	return gopkg + "." + exported(name), nil
}

func constantLiteral(c msgdef.Constant) (string, error) {
	switch v := c.Value.(type) {
	case bool:
		return strconv.FormatBool(v), nil
	case string:
		return strconv.Quote(v), nil
	case float32:
		return floatLiteral(c.Name, float64(v), 32)
	case float64:
		return floatLiteral(c.Name, v, 64)
	default:
		return fmt.Sprint(v), nil
	}
}

func floatLiteral(name string, v float64, bits int) (string, error) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "", fmt.Errorf("constant %s: %v has no Go literal", name, v)
	}
	return strconv.FormatFloat(v, 'g', -1, bits), nil
}

// stringLiteral prefers a raw string so definitions stay readable.
func stringLiteral(s string) string {
	if strings.ContainsAny(s, "`\r") {
		return strconv.Quote(s)
	}
	return "`" + s + "`"
}

// GoPackageName maps a ROS package name to a Go package name:
// std_msgs becomes stdmsgs.
func GoPackageName(rosPackage string) string {
	return strings.ToLower(strings.ReplaceAll(rosPackage, "_", ""))
}

// Go initialisms kept upper case in field names.
var initialisms = map[string]bool{
	"ACK": true, "API": true, "CPU": true, "GPS": true, "HTTP": true, "ID": true,
	"IMU": true, "IP": true, "JSON": true, "RGB": true, "RPC": true, "TCP": true,
	"UDP": true, "URI": true, "URL": true, "UTF8": true, "UUID": true, "XML": true,
}

// reserved names collide with the msgdef.Message methods.
var reserved = map[string]bool{"DataType": true, "MD5Sum": true, "Definition": true}

// FieldName maps a snake_case field name to an exported Go name:
// frame_id becomes FrameID.
func FieldName(name string) string {
	var b strings.Builder
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		if up := strings.ToUpper(part); initialisms[up] {
			b.WriteString(up)
			continue
		}
		b.WriteString(exported(part))
	}
	out := b.String()
	if reserved[out] {
		out += "_"
	}
	return out
}

// ConstantName maps an UPPER_CASE constant to CamelCase: MAX_VALUE becomes
// MaxValue. Mixed-case names keep their inner casing.
func ConstantName(name string) string {
	if strings.ToUpper(name) == name {
		name = strings.ToLower(name)
	}
	return strings.TrimSuffix(FieldName(name), "_")
}

func exported(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func unexported(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}
