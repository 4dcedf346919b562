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

package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/novatechflow/bagkit/pkg/bag"
)

// Header keys attached to every replayed record.
const (
	HeaderType     = "ros.type"
	HeaderMD5Sum   = "ros.md5sum"
	HeaderTime     = "ros.time"
	HeaderCallerID = "ros.callerid"
)

const defaultBatchSize = 100

// Producer is the slice of *kgo.Client used by replay.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Config controls how bag messages map onto Kafka records.
type Config struct {
	TopicPrefix string
	BatchSize   int
	Logger      *slog.Logger
	// OnRecord observes the outcome of every produced record.
	OnRecord func(err error)
}

// Stats summarizes a replay.
type Stats struct {
	Produced int
	Skipped  int
}

// Replayer publishes bag messages to Kafka.
type Replayer struct {
	producer Producer
	cfg      Config
	logger   *slog.Logger
}

// NewClient builds a franz-go client suitable for replay.
func NewClient(brokers []string, clientID string) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, errors.New("replay brokers required")
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	}
	if clientID != "" {
		opts = append(opts, kgo.ClientID(clientID))
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// New returns a Replayer writing to producer. A zero BatchSize defaults to
// 100 and a nil Logger discards output.
func New(producer Producer, cfg Config) *Replayer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Replayer{producer: producer, cfg: cfg, logger: logger}
}

// Replay produces every message matching q in time order. Messages that
// cannot be read are logged and skipped; a produce failure stops the replay.
func (r *Replayer) Replay(ctx context.Context, b *bag.Bag, q bag.Query) (Stats, error) {
	var stats Stats
	batch := make([]*kgo.Record, 0, r.cfg.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		results := r.producer.ProduceSync(ctx, batch...)
		var firstErr error
		for _, res := range results {
			if r.cfg.OnRecord != nil {
				r.cfg.OnRecord(res.Err)
			}
			if res.Err != nil {
				if firstErr == nil {
					firstErr = res.Err
				}
				continue
			}
			stats.Produced++
		}
		batch = batch[:0]
		if firstErr != nil {
			return fmt.Errorf("produce: %w", firstErr)
		}
		return nil
	}

	for v, err := range b.ReadMessages(q) {
		if err != nil {
			stats.Skipped++
			r.logger.Warn("skipping unreadable message", "topic", v.Topic, "error", err)
			continue
		}
		batch = append(batch, r.record(v))
		if len(batch) == r.cfg.BatchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}
	r.logger.Info("replay finished", "produced", stats.Produced, "skipped", stats.Skipped)
	return stats, nil
}

func (r *Replayer) record(v bag.MessageView) *kgo.Record {
	rec := &kgo.Record{
		Topic:     KafkaTopic(r.cfg.TopicPrefix, v.Topic),
		Key:       []byte(v.Topic),
		Value:     v.Data,
		Timestamp: v.Time.Std(),
		Headers: []kgo.RecordHeader{
			{Key: HeaderTime, Value: []byte(strconv.FormatUint(v.Time.Nanoseconds(), 10))},
		},
	}
	if c := v.Conn; c != nil {
		rec.Headers = append(rec.Headers,
			kgo.RecordHeader{Key: HeaderType, Value: []byte(c.Type)},
			kgo.RecordHeader{Key: HeaderMD5Sum, Value: []byte(c.MD5Sum)},
		)
		if c.CallerID != "" {
			rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: HeaderCallerID, Value: []byte(c.CallerID)})
		}
	}
	return rec
}

// KafkaTopic maps a ROS topic name onto a Kafka topic: the leading slash is
// dropped, namespace separators become dots and anything Kafka rejects
// becomes an underscore.
func KafkaTopic(prefix, rosTopic string) string {
	name := strings.Trim(rosTopic, "/")
	if name == "" {
		name = "root"
	}
	var sb strings.Builder
	sb.WriteString(prefix)
	for _, r := range name {
		switch {
		case r == '/':
			sb.WriteByte('.')
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	out := sb.String()
	if len(out) > 249 {
		out = out[:249]
	}
	return out
}
