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

package bag

import (
	"cmp"
	"slices"
	"time"

	"github.com/novatechflow/bagkit/pkg/rostime"
)

// TypeInfo describes a message type recorded in the bag.
type TypeInfo struct {
	Name       string
	MD5Sum     string
	Definition string
}

// TopicType pairs a topic with a type published on it.
type TopicType struct {
	Topic string
	Type  string
}

// CompressionStat aggregates the chunks using one compression kind.
type CompressionStat struct {
	Compression       string
	Chunks            int
	CompressedBytes   uint64
	UncompressedBytes uint64
}

// TopicSummary describes one topic for presentation.
type TopicSummary struct {
	Topic       string
	Type        string
	Messages    uint64
	Connections int
}

// Summary aggregates the catalog for presentation layers.
type Summary struct {
	Version     string
	Size        int64
	Strategy    string
	Start       rostime.Time
	End         rostime.Time
	Duration    time.Duration
	Messages    uint64
	Chunks      int
	Compression []CompressionStat
	Topics      []TopicSummary
	Types       []TypeInfo
}

// Version returns the format version from the magic line, always "2.0".
func (b *Bag) Version() string {
	return b.catalog.Version
}

// Size returns the bag size in bytes.
func (b *Bag) Size() int64 {
	return b.catalog.Size
}

// Connections returns the connections ordered by id.
func (b *Bag) Connections() []*Connection {
	return slices.Clone(b.catalog.Connections)
}

// StartTime returns the earliest message time, or zero for an empty bag.
func (b *Bag) StartTime() rostime.Time {
	var start rostime.Time
	found := false
	for i := range b.catalog.Chunks {
		ch := &b.catalog.Chunks[i]
		if ch.MessageCount() == 0 {
			continue
		}
		if !found || ch.Start.Before(start) {
			start, found = ch.Start, true
		}
	}
	return start
}

// EndTime returns the latest message time, or zero for an empty bag.
func (b *Bag) EndTime() rostime.Time {
	var end rostime.Time
	for i := range b.catalog.Chunks {
		ch := &b.catalog.Chunks[i]
		if ch.MessageCount() > 0 && ch.End.After(end) {
			end = ch.End
		}
	}
	return end
}

// Duration is EndTime minus StartTime.
func (b *Bag) Duration() time.Duration {
	return b.EndTime().Sub(b.StartTime())
}

// MessageCount returns the number of messages in the bag.
func (b *Bag) MessageCount() uint64 {
	var total uint64
	for _, entries := range b.catalog.Index {
		total += uint64(len(entries))
	}
	return total
}

// TopicMessageCounts returns message counts keyed by topic.
func (b *Bag) TopicMessageCounts() map[string]uint64 {
	out := make(map[string]uint64)
	for _, c := range b.catalog.Connections {
		out[c.Topic] += uint64(len(b.catalog.Index[c.ID]))
	}
	return out
}

// Topics returns the sorted distinct topics.
func (b *Bag) Topics() []string {
	topics := make([]string, 0, len(b.catalog.Connections))
	for _, c := range b.catalog.Connections {
		topics = append(topics, c.Topic)
	}
	slices.Sort(topics)
	return slices.Compact(topics)
}

// Types returns the distinct message types, sorted by name.
func (b *Bag) Types() []TypeInfo {
	types := make([]TypeInfo, 0, len(b.catalog.Connections))
	for _, c := range b.catalog.Connections {
		types = append(types, TypeInfo{Name: c.Type, MD5Sum: c.MD5Sum, Definition: c.Definition})
	}
	slices.SortFunc(types, func(a, b TypeInfo) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.MD5Sum, b.MD5Sum))
	})
	return slices.CompactFunc(types, func(a, b TypeInfo) bool {
		return a.Name == b.Name && a.MD5Sum == b.MD5Sum
	})
}

// TopicTypes returns the distinct (topic, type) pairs sorted by topic.
func (b *Bag) TopicTypes() []TopicType {
	pairs := make([]TopicType, 0, len(b.catalog.Connections))
	for _, c := range b.catalog.Connections {
		pairs = append(pairs, TopicType{Topic: c.Topic, Type: c.Type})
	}
	slices.SortFunc(pairs, func(a, b TopicType) int {
		return cmp.Or(cmp.Compare(a.Topic, b.Topic), cmp.Compare(a.Type, b.Type))
	})
	return slices.Compact(pairs)
}

// CompressionStats returns per-compression chunk totals sorted by kind.
func (b *Bag) CompressionStats() []CompressionStat {
	byKind := make(map[string]*CompressionStat)
	var out []CompressionStat
	for i := range b.catalog.Chunks {
		ch := &b.catalog.Chunks[i]
		st, ok := byKind[ch.Compression]
		if !ok {
			st = &CompressionStat{Compression: ch.Compression}
			byKind[ch.Compression] = st
		}
		st.Chunks++
		st.CompressedBytes += uint64(ch.CompressedSize)
		st.UncompressedBytes += uint64(ch.UncompressedSize)
	}
	for _, st := range byKind {
		out = append(out, *st)
	}
	slices.SortFunc(out, func(a, b CompressionStat) int { return cmp.Compare(a.Compression, b.Compression) })
	return out
}

// Summary collects the metadata queries into one value.
func (b *Bag) Summary() Summary {
	counts := make(map[string]*TopicSummary)
	for _, c := range b.catalog.Connections {
		ts, ok := counts[c.Topic]
		if !ok {
			ts = &TopicSummary{Topic: c.Topic, Type: c.Type}
			counts[c.Topic] = ts
		}
		ts.Connections++
		ts.Messages += uint64(len(b.catalog.Index[c.ID]))
	}
	topics := make([]TopicSummary, 0, len(counts))
	for _, ts := range counts {
		topics = append(topics, *ts)
	}
	slices.SortFunc(topics, func(a, b TopicSummary) int { return cmp.Compare(a.Topic, b.Topic) })
	return Summary{
		Version:     b.Version(),
		Size:        b.Size(),
		Strategy:    b.catalog.Strategy.String(),
		Start:       b.StartTime(),
		End:         b.EndTime(),
		Duration:    b.Duration(),
		Messages:    b.MessageCount(),
		Chunks:      len(b.catalog.Chunks),
		Compression: b.CompressionStats(),
		Topics:      topics,
		Types:       b.Types(),
	}
}
