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
	"fmt"

	"github.com/novatechflow/bagkit/pkg/msgdef"
	"github.com/novatechflow/bagkit/pkg/rostime"
)

// MessageView is one message as stored in the bag. Data borrows the chunk
// buffer and must not be modified.
type MessageView struct {
	Conn  *Connection
	Topic string
	Time  rostime.Time
	Data  []byte
}

// Instantiate decodes v into the generated type T after checking that the
// connection carries T. A connection recorded with md5sum "*" is checked by
// hashing the definition it carries instead.
func Instantiate[T msgdef.Message](v MessageView) (T, error) {
	var zero T
	mt, err := msgdef.TypeOf[T]()
	if err != nil {
		return zero, err
	}
	if v.Conn == nil {
		return zero, fmt.Errorf("%w: message has no connection", ErrTypeMismatch)
	}
	got, err := connectionMD5(v.Conn)
	if err != nil {
		return zero, err
	}
	if got != mt.MD5Sum {
		return zero, fmt.Errorf("%w: topic %s carries %s (%s), not %s (%s)",
			ErrTypeMismatch, v.Topic, v.Conn.Type, got, mt.Name, mt.MD5Sum)
	}
	dec, err := msgdef.CompileMessage[T]()
	if err != nil {
		return zero, err
	}
	msg, err := dec.Decode(v.Data)
	if err != nil {
		return zero, fmt.Errorf("%s at %s: %w", v.Topic, v.Time, err)
	}
	return msg, nil
}

// connectionMD5 returns the hash of the type c carries, computing it from
// the definition when the recorded md5sum is the "*" wildcard.
func connectionMD5(c *Connection) (string, error) {
	if c.MD5Sum != "*" {
		return c.MD5Sum, nil
	}
	if c.Definition == "" {
		return "", fmt.Errorf("%w: connection %d has md5sum * and no definition", ErrTypeMismatch, c.ID)
	}
	sum, err := msgdef.DefinitionMD5(c.Type, c.Definition)
	if err != nil {
		return "", fmt.Errorf("%w: connection %d: %w", ErrTypeMismatch, c.ID, err)
	}
	return sum, nil
}

type schemaResult struct {
	schema *msgdef.Schema
	err    error
}

// Schema compiles the definition carried by connection c. Results are cached
// per connection.
func (b *Bag) Schema(c *Connection) (*msgdef.Schema, error) {
	if v, ok := b.schemas.Load(c.ID); ok {
		res := v.(*schemaResult)
		return res.schema, res.err
	}
	res := &schemaResult{}
	if c.MD5Sum == "*" && c.Definition == "" {
		res.err = fmt.Errorf("%w: connection %d has md5sum * and no definition", ErrTypeMismatch, c.ID)
	} else {
		res.schema, res.err = msgdef.Compile(c.Type, c.Definition, nil)
	}
	if res.err == nil && c.MD5Sum != "*" && res.schema.MD5Sum() != c.MD5Sum {
		res.err = fmt.Errorf("%w: connection %d definition hashes to %s, recorded %s",
			ErrTypeMismatch, c.ID, res.schema.MD5Sum(), c.MD5Sum)
		res.schema = nil
	}
	v, _ := b.schemas.LoadOrStore(c.ID, res)
	res = v.(*schemaResult)
	return res.schema, res.err
}

// Decode decodes v into a map using the connection's own definition.
func (b *Bag) Decode(v MessageView) (map[string]any, error) {
	schema, err := b.Schema(v.Conn)
	if err != nil {
		return nil, err
	}
	return msgdef.DecodeDynamic(schema, v.Data)
}
