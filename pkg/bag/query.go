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
	"maps"
	"slices"

	"github.com/novatechflow/bagkit/pkg/rostime"
)

// Query selects messages by topic, type and inclusive time bounds. The zero
// value, like All(), selects everything. Queries are immutable: every With
// method returns a modified copy.
type Query struct {
	topics   map[string]struct{}
	types    map[string]struct{}
	start    rostime.Time
	end      rostime.Time
	hasStart bool
	hasEnd   bool
}

// All selects every message.
func All() Query {
	return Query{}
}

// WithTopics restricts the query to the given topics. Calling it with no
// topics selects nothing.
func (q Query) WithTopics(topics ...string) Query {
	q.topics = toSet(topics)
	return q
}

// WithTypes restricts the query to the given message types.
func (q Query) WithTypes(types ...string) Query {
	q.types = toSet(types)
	return q
}

// WithStart drops messages stamped before t.
func (q Query) WithStart(t rostime.Time) Query {
	q.start, q.hasStart = t, true
	return q
}

// WithEnd drops messages stamped after t. Both bounds are inclusive.
func (q Query) WithEnd(t rostime.Time) Query {
	q.end, q.hasEnd = t, true
	return q
}

// WithRange restricts the query to [start, end].
func (q Query) WithRange(start, end rostime.Time) Query {
	return q.WithStart(start).WithEnd(end)
}

// Topics returns the topic filter, or nil when topics are unrestricted.
func (q Query) Topics() []string {
	return setKeys(q.topics)
}

// Types returns the type filter, or nil when types are unrestricted.
func (q Query) Types() []string {
	return setKeys(q.types)
}

// Start returns the lower time bound and whether one is set.
func (q Query) Start() (rostime.Time, bool) {
	return q.start, q.hasStart
}

// End returns the upper time bound and whether one is set.
func (q Query) End() (rostime.Time, bool) {
	return q.end, q.hasEnd
}

func (q Query) matches(c *Connection) bool {
	if q.topics != nil {
		if _, ok := q.topics[c.Topic]; !ok {
			return false
		}
	}
	if q.types != nil {
		if _, ok := q.types[c.Type]; !ok {
			return false
		}
	}
	return true
}

// clip returns the entries inside the query's time bounds. entries must be
// sorted by time.
func (q Query) clip(entries []IndexEntry) []IndexEntry {
	lo, hi := 0, len(entries)
	if q.hasStart {
		lo, _ = slices.BinarySearchFunc(entries, q.start, func(e IndexEntry, t rostime.Time) int {
			if e.Time.Before(t) {
				return -1
			}
			return 1
		})
	}
	if q.hasEnd {
		hi, _ = slices.BinarySearchFunc(entries, q.end, func(e IndexEntry, t rostime.Time) int {
			if e.Time.After(t) {
				return 1
			}
			return -1
		})
	}
	if lo >= hi {
		return nil
	}
	return entries[lo:hi]
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func setKeys(set map[string]struct{}) []string {
	if set == nil {
		return nil
	}
	keys := slices.Sorted(maps.Keys(set))
	if keys == nil {
		keys = []string{}
	}
	return keys
}
