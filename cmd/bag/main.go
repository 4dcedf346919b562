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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/novatechflow/bagkit/internal/config"
	"github.com/novatechflow/bagkit/internal/replay"
	"github.com/novatechflow/bagkit/internal/telemetry"
	"github.com/novatechflow/bagkit/pkg/bag"
	"github.com/novatechflow/bagkit/pkg/storage"
)

const usage = `usage: bag <command> [flags] FILE|s3://bucket/key

commands:
  info     print bag information
  topics   print the topics in the bag
  types    print the message types in the bag
  echo     print messages as JSON lines
  replay   publish messages to Kafka
`

type app struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *telemetry.Metrics
	stdout  io.Writer
	stderr  io.Writer
	// openStore builds the object store for s3 locations.
	openStore func(ctx context.Context, cfg storage.S3Config) (storage.ObjectStore, error)
	// producer overrides the Kafka client used by replay.
	producer replay.Producer
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(os.Getenv("BAGKIT_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "bag: %v\n", err)
		os.Exit(2)
	}
	logger := newLogger(cfg.Log.Level, os.Stderr)
	registry := prometheus.NewRegistry()
	a := &app{
		cfg:       cfg,
		logger:    logger,
		metrics:   telemetry.New(registry),
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		openStore: storage.NewS3Store,
	}
	if cfg.Metrics.Addr != "" {
		startMetricsServer(ctx, cfg.Metrics.Addr, registry, logger)
	}
	os.Exit(a.run(ctx, os.Args[1:]))
}

func newLogger(level string, w io.Writer) *slog.Logger {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		lvl = slog.LevelWarn
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
	})
	return slog.New(handler).With("component", "bag")
}

func startMetricsServer(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()
}

// run executes one command and returns the process exit code.
func (a *app) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(a.stderr, usage)
		return 2
	}
	var err error
	switch args[0] {
	case "info":
		err = a.cmdInfo(ctx, args[1:])
	case "topics":
		err = a.cmdList(ctx, "topics", args[1:])
	case "types":
		err = a.cmdList(ctx, "types", args[1:])
	case "echo":
		err = a.cmdEcho(ctx, args[1:])
	case "replay":
		err = a.cmdReplay(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(a.stdout, usage)
		return 0
	default:
		fmt.Fprintf(a.stderr, "bag: unknown command %q\n%s", args[0], usage)
		return 2
	}
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(a.stderr, "bag %s: %v\n", args[0], err)
		return 2
	}
	if err != nil {
		fmt.Fprintf(a.stderr, "bag %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// location parses fs and returns its single positional argument.
func location(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return "", err
		}
		return "", usageError{msg: err.Error()}
	}
	if fs.NArg() != 1 {
		return "", usageError{msg: "expected exactly one bag location"}
	}
	return fs.Arg(0), nil
}

// openBag opens a local path or an s3://bucket/key location.
func (a *app) openBag(ctx context.Context, loc string) (*bag.Bag, error) {
	opts := a.cfg.BagOptions(a.logger)
	if a.metrics != nil {
		opts.OnChunkLoad = a.metrics.ObserveChunkLoad
	}
	bucket, key, isS3, err := storage.ParseURL(loc)
	if err != nil {
		return nil, usageError{msg: err.Error()}
	}
	if !isS3 {
		return bag.Open(loc, opts)
	}
	store, err := a.openStore(ctx, a.cfg.S3Store(bucket))
	if err != nil {
		return nil, err
	}
	r, err := storage.NewObjectReader(ctx, store, key, storage.ReaderOptions{BlockSize: a.cfg.Reader.BlockSize})
	if err != nil {
		return nil, err
	}
	b, err := bag.NewReader(r, r.Size(), opts)
	if err != nil {
		r.Close()
		return nil, err
	}
	return b, nil
}

func (a *app) cmdInfo(ctx context.Context, args []string) error {
	fs := a.flags("info")
	minimal := fs.Bool("minimal", false, "omit types and topics")
	loc, err := location(fs, args)
	if err != nil {
		return err
	}
	b, err := a.openBag(ctx, loc)
	if err != nil {
		return err
	}
	defer b.Close()
	return writeInfo(a.stdout, loc, b, *minimal)
}

func (a *app) cmdList(ctx context.Context, what string, args []string) error {
	loc, err := location(a.flags(what), args)
	if err != nil {
		return err
	}
	b, err := a.openBag(ctx, loc)
	if err != nil {
		return err
	}
	defer b.Close()
	if what == "topics" {
		for _, topic := range b.Topics() {
			fmt.Fprintln(a.stdout, topic)
		}
		return nil
	}
	var last string
	for _, ti := range b.Types() {
		if ti.Name != last {
			fmt.Fprintln(a.stdout, ti.Name)
		}
		last = ti.Name
	}
	return nil
}

func (a *app) cmdEcho(ctx context.Context, args []string) error {
	fs := a.flags("echo")
	topics := fs.String("topic", "", "comma-separated topics to print")
	limit := fs.Int("limit", 0, "stop after this many messages (0 prints all)")
	loc, err := location(fs, args)
	if err != nil {
		return err
	}
	b, err := a.openBag(ctx, loc)
	if err != nil {
		return err
	}
	defer b.Close()
	return echoMessages(ctx, a.stdout, b, buildQuery(*topics), *limit, a.metrics)
}

func (a *app) cmdReplay(ctx context.Context, args []string) error {
	fs := a.flags("replay")
	topics := fs.String("topic", "", "comma-separated topics to replay")
	prefix := fs.String("prefix", a.cfg.Replay.TopicPrefix, "Kafka topic prefix")
	loc, err := location(fs, args)
	if err != nil {
		return err
	}
	b, err := a.openBag(ctx, loc)
	if err != nil {
		return err
	}
	defer b.Close()

	producer := a.producer
	if producer == nil {
		client, err := replay.NewClient(a.cfg.Replay.Brokers, a.cfg.Replay.ClientID)
		if err != nil {
			return err
		}
		defer client.Close()
		producer = client
	}
	rcfg := replay.Config{TopicPrefix: *prefix, Logger: a.logger}
	if a.metrics != nil {
		rcfg.OnRecord = a.metrics.ObserveReplay
	}
	stats, err := replay.New(producer, rcfg).Replay(ctx, b, buildQuery(*topics))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "produced %d messages (%d skipped)\n", stats.Produced, stats.Skipped)
	return nil
}

func buildQuery(topics string) bag.Query {
	q := bag.All()
	if topics == "" {
		return q
	}
	var names []string
	for _, t := range strings.Split(topics, ",") {
		if t = strings.TrimSpace(t); t != "" {
			names = append(names, t)
		}
	}
	return q.WithTopics(names...)
}
