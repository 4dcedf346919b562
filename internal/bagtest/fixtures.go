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

package bagtest

import (
	"fmt"

	"github.com/novatechflow/bagkit/pkg/msgdef"
	"github.com/novatechflow/bagkit/pkg/msgs/stdmsgs"
	"github.com/novatechflow/bagkit/pkg/rostime"
)

// ChatterCount is the number of messages per topic in Chatter bags.
const ChatterCount = 100

// Connection ids used by Chatter.
const (
	ChatterConn uint32 = iota
	TimeConn
	ArrayConn
)

// ChatterTime is the record time of the i-th message on each Chatter topic.
func ChatterTime(i int) rostime.Time {
	return rostime.Time{Sec: uint32(i), NSec: uint32(1000 + i*1000)}
}

// Chatter describes a bag with ChatterCount messages on each of /chatter
// (std_msgs/String "foo_<i>"), /time (std_msgs/Time) and /array
// (std_msgs/Float64MultiArray), split into chunks of perChunk messages.
func Chatter(compression string, perChunk int) Bag {
	if perChunk <= 0 {
		perChunk = 3 * ChatterCount
	}
	b := Bag{
		Connections: []Connection{
			ConnectionFor[stdmsgs.String](ChatterConn, "/chatter"),
			ConnectionFor[stdmsgs.Time](TimeConn, "/time"),
			ConnectionFor[stdmsgs.Float64MultiArray](ArrayConn, "/array"),
		},
	}
	var msgs []Message
	for i := range ChatterCount {
		t := ChatterTime(i)
		msgs = append(msgs,
			Message{Conn: ChatterConn, Time: t, Data: MustEncode(stdmsgs.String{Data: fmt.Sprintf("foo_%d", i)})},
			Message{Conn: TimeConn, Time: t, Data: MustEncode(stdmsgs.Time{Data: t})},
			Message{Conn: ArrayConn, Time: t, Data: MustEncode(stdmsgs.Float64MultiArray{Data: []float64{3.14, 3.14, 3.14}})},
		)
	}
	for len(msgs) > 0 {
		n := min(perChunk, len(msgs))
		b.Chunks = append(b.Chunks, Chunk{Compression: compression, Messages: msgs[:n]})
		msgs = msgs[n:]
	}
	return b
}

// MustEncode serializes msg with its own definition and panics on failure.
func MustEncode[T msgdef.Message](msg T) []byte {
	dec, err := msgdef.CompileMessage[T]()
	if err != nil {
		panic(err)
	}
	enc, err := msgdef.NewEncoder[T](dec.Schema())
	if err != nil {
		panic(err)
	}
	data, err := enc.Encode(msg)
	if err != nil {
		panic(err)
	}
	return data
}
