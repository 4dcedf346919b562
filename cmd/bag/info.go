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
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/novatechflow/bagkit/internal/telemetry"
	"github.com/novatechflow/bagkit/pkg/bag"
	"github.com/novatechflow/bagkit/pkg/rostime"
)

const labelWidth = 13

func writeInfo(out io.Writer, loc string, b *bag.Bag, minimal bool) error {
	w := bufio.NewWriter(out)
	line := func(label, format string, args ...any) {
		fmt.Fprintf(w, "%-*s%s\n", labelWidth, label, fmt.Sprintf(format, args...))
	}
	s := b.Summary()
	line("path:", "%s", loc)
	line("version:", "%s", s.Version)
	line("duration:", "%.2fs", s.Duration.Seconds())
	if s.Messages > 0 {
		line("start:", "%s", formatTime(s.Start))
		line("end:", "%s", formatTime(s.End))
	}
	line("size:", "%s", humanBytes(uint64(s.Size)))
	line("messages:", "%d", s.Messages)

	nameWidth := 0
	for _, st := range s.Compression {
		nameWidth = max(nameWidth, len(st.Compression))
	}
	for i, st := range s.Compression {
		label := ""
		if i == 0 {
			label = "compression:"
		}
		ratio := 0.0
		if st.UncompressedBytes > 0 {
			ratio = 100 * float64(st.CompressedBytes) / float64(st.UncompressedBytes)
		}
		line(label, "%-*s [%d/%d chunks; %.2f%%]", nameWidth, st.Compression, st.Chunks, s.Chunks, ratio)
	}
	if minimal {
		return w.Flush()
	}

	typeWidth := 0
	for _, ti := range s.Types {
		typeWidth = max(typeWidth, len(ti.Name))
	}
	for i, ti := range s.Types {
		label := ""
		if i == 0 {
			label = "types:"
		}
		line(label, "%-*s [%s]", typeWidth, ti.Name, ti.MD5Sum)
	}
	topicWidth := 0
	for _, ts := range s.Topics {
		topicWidth = max(topicWidth, len(ts.Topic))
	}
	for i, ts := range s.Topics {
		label := ""
		if i == 0 {
			label = "topics:"
		}
		line(label, "%-*s %10d msgs : %s", topicWidth, ts.Topic, ts.Messages, ts.Type)
	}
	return w.Flush()
}

func formatTime(t rostime.Time) string {
	return fmt.Sprintf("%s (%.6f)", t.Std().UTC().Format(time.DateTime+".000000"), t.Seconds())
}

func humanBytes(n uint64) string {
	units := []string{"bytes", "KB", "MB", "GB"}
	unit := units[0]
	rem := float64(n)
	for _, u := range units {
		unit = u
		if rem < 1024 {
			break
		}
		rem /= 1024
	}
	if unit == "bytes" {
		return fmt.Sprintf("%d bytes", n)
	}
	return fmt.Sprintf("%.2f %s (%d bytes)", rem, unit, n)
}

type echoLine struct {
	Topic string         `json:"topic"`
	Type  string         `json:"type"`
	Time  float64        `json:"time"`
	Data  map[string]any `json:"data,omitempty"`
	Error string         `json:"error,omitempty"`
}

// echoMessages writes one JSON object per message. Messages that cannot be
// read or decoded are written with an error field instead of data.
func echoMessages(ctx context.Context, out io.Writer, b *bag.Bag, q bag.Query, limit int, metrics *telemetry.Metrics) error {
	w := bufio.NewWriter(out)
	enc := json.NewEncoder(w)
	n := 0
	for v, err := range b.ReadMessages(q) {
		if metrics != nil {
			metrics.ObserveMessage(err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		line := echoLine{Topic: v.Topic, Time: v.Time.Seconds()}
		if v.Conn != nil {
			line.Type = v.Conn.Type
		}
		if err == nil {
			line.Data, err = b.Decode(v)
		}
		if err != nil {
			line.Data = nil
			line.Error = err.Error()
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("encode %s at %s: %w", v.Topic, v.Time, err)
		}
		n++
		if limit > 0 && n >= limit {
			break
		}
	}
	return w.Flush()
}
