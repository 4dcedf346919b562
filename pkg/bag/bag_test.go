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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/novatechflow/bagkit/internal/bagtest"
	"github.com/novatechflow/bagkit/pkg/msgs/stdmsgs"
)

type fixture struct {
	name string
	data []byte
}

func chatterFixtures(t *testing.T) []fixture {
	t.Helper()
	plain, _ := bagtest.Build(t, bagtest.Chatter("none", 60))
	lz4, _ := bagtest.Build(t, bagtest.Chatter("lz4", 60))
	bz2, _ := bagtest.Build(t, bagtest.Chatter("bz2", 60))
	return []fixture{
		{name: "none", data: plain},
		{name: "lz4", data: lz4},
		{name: "bz2", data: bz2},
	}
}

func openBytes(t *testing.T, data []byte, opts Options) *Bag {
	t.Helper()
	b, err := OpenBytes(data, opts)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func collect(t *testing.T, b *Bag, q Query) []MessageView {
	t.Helper()
	var out []MessageView
	for v, err := range b.ReadMessages(q) {
		if err != nil {
			t.Fatalf("read message: %v", err)
		}
		out = append(out, v)
	}
	return out
}

func TestQueryCounts(t *testing.T) {
	cases := []struct {
		query Query
		want  int
	}{
		{All(), 300},
		{All().WithTopics("/chatter"), 100},
		{All().WithTopics("/array"), 100},
		{All().WithTypes("std_msgs/String"), 100},
		{All().WithTopics("/chatter").WithTypes("std_msgs/String"), 100},
		{All().WithTopics("/time").WithTypes("std_msgs/Time"), 100},
		{All().WithTopics("/chatter").WithTypes("std_msgs/Time"), 0},
		{All().WithTypes("std_msgs/Time", "std_msgs/String"), 200},
		{All().WithTopics(), 0},
		{All().WithTopics("/missing"), 0},
	}
	for _, fx := range chatterFixtures(t) {
		for _, strategy := range []Strategy{StrategyAuto, StrategyIndexed, StrategyLinear} {
			b := openBytes(t, fx.data, Options{Strategy: strategy})
			for i, tc := range cases {
				if got := len(collect(t, b, tc.query)); got != tc.want {
					t.Fatalf("%s/%s case %d: got %d messages, want %d", fx.name, strategy, i, got, tc.want)
				}
			}
			for _, v := range collect(t, b, All().WithTypes("std_msgs/String")) {
				if v.Topic != "/chatter" {
					t.Fatalf("%s/%s: unexpected topic %s for std_msgs/String", fx.name, strategy, v.Topic)
				}
			}
		}
	}
}

func TestInstantiateMessages(t *testing.T) {
	for _, fx := range chatterFixtures(t) {
		b := openBytes(t, fx.data, Options{})

		chatter := collect(t, b, All().WithTopics("/chatter"))
		for i, v := range chatter {
			msg, err := Instantiate[stdmsgs.String](v)
			if err != nil {
				t.Fatalf("%s: instantiate chatter %d: %v", fx.name, i, err)
			}
			if want := fmt.Sprintf("foo_%d", i); msg.Data != want {
				t.Fatalf("%s: chatter %d = %q, want %q", fx.name, i, msg.Data, want)
			}
		}

		for i, v := range collect(t, b, All().WithTopics("/time")) {
			msg, err := Instantiate[stdmsgs.Time](v)
			if err != nil {
				t.Fatalf("%s: instantiate time %d: %v", fx.name, i, err)
			}
			if msg.Data.Sec != uint32(i) || msg.Data != v.Time {
				t.Fatalf("%s: time %d = %v at %v", fx.name, i, msg.Data, v.Time)
			}
		}

		for _, v := range collect(t, b, All().WithTopics("/array")) {
			msg, err := Instantiate[stdmsgs.Float64MultiArray](v)
			if err != nil {
				t.Fatalf("%s: instantiate array: %v", fx.name, err)
			}
			if diff := cmp.Diff([]float64{3.14, 3.14, 3.14}, msg.Data); diff != "" {
				t.Fatalf("%s: array mismatch (-want +got):\n%s", fx.name, diff)
			}
		}
	}
}

func TestInstantiateWrongType(t *testing.T) {
	instantiate := map[string]func(MessageView) error{
		"std_msgs/String": func(v MessageView) error {
			_, err := Instantiate[stdmsgs.String](v)
			return err
		},
		"std_msgs/Time": func(v MessageView) error {
			_, err := Instantiate[stdmsgs.Time](v)
			return err
		},
		"std_msgs/Float64MultiArray": func(v MessageView) error {
			_, err := Instantiate[stdmsgs.Float64MultiArray](v)
			return err
		},
	}
	for _, fx := range chatterFixtures(t) {
		b := openBytes(t, fx.data, Options{})
		views := collect(t, b, All())
		for _, v := range views[:30] {
			for typ, fn := range instantiate {
				err := fn(v)
				if typ == v.Conn.Type {
					if err != nil {
						t.Fatalf("%s: %s as %s: %v", fx.name, v.Topic, typ, err)
					}
					continue
				}
				if !errors.Is(err, ErrTypeMismatch) {
					t.Fatalf("%s: %s as %s: expected type mismatch, got %v", fx.name, v.Topic, typ, err)
				}
			}
		}
	}
}

func TestInstantiateWildcardMD5(t *testing.T) {
	desc := bagtest.Chatter("none", 0)
	desc.Connections[0].MD5Sum = "*"
	data, _ := bagtest.Build(t, desc)
	b := openBytes(t, data, Options{})
	views := collect(t, b, All().WithTopics("/chatter"))
	if views[0].Conn.MD5Sum != "*" {
		t.Fatalf("expected wildcard md5 on the connection, got %q", views[0].Conn.MD5Sum)
	}
	if _, err := Instantiate[stdmsgs.Time](views[0]); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected type mismatch for wildcard connection, got %v", err)
	}
	msg, err := Instantiate[stdmsgs.String](views[3])
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if msg.Data != "foo_3" {
		t.Fatalf("unexpected message %q", msg.Data)
	}
	if _, err := b.Decode(views[3]); err != nil {
		t.Fatalf("decode: %v", err)
	}

	bare := *views[0].Conn
	bare.Definition = ""
	v := views[0]
	v.Conn = &bare
	if _, err := Instantiate[stdmsgs.String](v); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected type mismatch without a definition, got %v", err)
	}
	bare.ID = 99
	if _, err := b.Schema(&bare); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected schema error without a definition, got %v", err)
	}
}

func TestInstantiatePointerType(t *testing.T) {
	data, _ := bagtest.Build(t, bagtest.Chatter("none", 0))
	b := openBytes(t, data, Options{})
	views := collect(t, b, All().WithTopics("/chatter"))
	if _, err := Instantiate[*stdmsgs.String](views[0]); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected type mismatch for pointer type, got %v", err)
	}
}

func TestInstantiateTruncatedPayload(t *testing.T) {
	data, _ := bagtest.Build(t, bagtest.Chatter("none", 0))
	b := openBytes(t, data, Options{})
	views := collect(t, b, All().WithTopics("/chatter"))
	v := views[len(views)-1]
	v.Data = v.Data[:len(v.Data)-1]
	if _, err := Instantiate[stdmsgs.String](v); !errors.Is(err, ErrTruncatedMessage) {
		t.Fatalf("expected truncated message, got %v", err)
	}
}

func TestDecodeDynamic(t *testing.T) {
	data, _ := bagtest.Build(t, bagtest.Chatter("lz4", 60))
	b := openBytes(t, data, Options{})
	views := collect(t, b, All().WithTopics("/chatter"))
	m, err := b.Decode(views[7])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m["data"] != "foo_7" {
		t.Fatalf("unexpected decode %v", m)
	}
	first, err := b.Schema(views[0].Conn)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	second, _ := b.Schema(views[0].Conn)
	if first != second || first.MD5Sum() != views[0].Conn.MD5Sum {
		t.Fatalf("expected cached schema matching the connection hash")
	}
}

func TestIndexedAndLinearCatalogsMatch(t *testing.T) {
	for _, fx := range chatterFixtures(t) {
		indexed := openBytes(t, fx.data, Options{Strategy: StrategyIndexed})
		linear := openBytes(t, fx.data, Options{Strategy: StrategyLinear})
		if indexed.Catalog().Strategy != StrategyIndexed || linear.Catalog().Strategy != StrategyLinear {
			t.Fatalf("%s: unexpected strategies %s / %s", fx.name, indexed.Catalog().Strategy, linear.Catalog().Strategy)
		}
		diff := cmp.Diff(indexed.Catalog(), linear.Catalog(), cmpopts.IgnoreFields(Catalog{}, "Strategy"))
		if diff != "" {
			t.Fatalf("%s: catalogs differ (-indexed +linear):\n%s", fx.name, diff)
		}
	}
}

func TestOpenFile(t *testing.T) {
	path := bagtest.WriteFile(t, t.TempDir(), bagtest.Chatter("lz4", 60))
	b, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := len(collect(t, b, All())); got != 300 {
		t.Fatalf("expected 300 messages, got %d", got)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := b.Messages(All()).Next(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing.bag"), Options{}); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist, got %v", err)
	}
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{"": StrategyAuto, "auto": StrategyAuto, "Indexed": StrategyIndexed, "linear": StrategyLinear} {
		got, err := ParseStrategy(in)
		if err != nil || got != want {
			t.Fatalf("ParseStrategy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseStrategy("random"); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}
