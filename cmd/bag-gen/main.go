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

// Command bag-gen generates Go message types from ROS .msg packages. Each
// input directory is searched for <package>/msg/*.msg files; every selected
// package is written to <out>/<go package>/msgs_gen.go.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/novatechflow/bagkit/internal/config"
	"github.com/novatechflow/bagkit/internal/msggen"
)

const usage = `usage: bag-gen [flags] DIR...

flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("bag-gen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	out := fs.String("out", ".", "output directory")
	importPrefix := fs.String("import", "", "import path of the output directory")
	packages := fs.String("packages", "", "comma-separated ROS packages to emit (default all)")
	headerFile := fs.String("header", "", "file written at the top of every generated file")
	level := fs.String("log-level", "info", "log level")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	lvl, err := config.ParseLevel(*level)
	if err != nil {
		fmt.Fprintf(stderr, "bag-gen: %v\n", err)
		return 2
	}
	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: lvl})).With("component", "bag-gen")

	opts := msggen.Options{ImportPrefix: *importPrefix}
	if *packages != "" {
		for _, p := range strings.Split(*packages, ",") {
			if p = strings.TrimSpace(p); p != "" {
				opts.Packages = append(opts.Packages, p)
			}
		}
	}
	if *headerFile != "" {
		header, err := os.ReadFile(*headerFile)
		if err != nil {
			logger.Error("read header", "error", err)
			return 1
		}
		opts.Header = string(header)
	}
	if err := generate(logger, fs.Args(), *out, opts); err != nil {
		logger.Error("generate failed", "error", err)
		return 1
	}
	return 0
}

func generate(logger *slog.Logger, roots []string, out string, opts msggen.Options) error {
	pkgs, err := msggen.Load(roots...)
	if err != nil {
		return err
	}
	files, err := msggen.Generate(pkgs, opts)
	if err != nil {
		return err
	}
	for _, f := range files {
		path := filepath.Join(out, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, f.Source, 0o644); err != nil {
			return err
		}
		logger.Info("wrote package", "package", f.Package, "path", path)
	}
	return nil
}
