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

package msgdef

import (
	"fmt"
	"reflect"
	"sync"
)

// Message is implemented by generated message types.
type Message interface {
	// DataType returns the full ROS type name, e.g. "std_msgs/String".
	DataType() string
	MD5Sum() string
	// Definition returns the full definition text including nested sections.
	Definition() string
}

// MessageType is the identity a Message type reports.
type MessageType struct {
	Name       string
	MD5Sum     string
	Definition string
}

// TypeOf returns the identity reported by T. Only struct types are
// accepted, so pointer types fail instead of dereferencing nil.
func TypeOf[T Message]() (MessageType, error) {
	rt := reflect.TypeFor[T]()
	if rt.Kind() != reflect.Struct {
		return MessageType{}, fmt.Errorf("%w: %s is not a struct message type", ErrTypeMismatch, rt)
	}
	var zero T
	return MessageType{Name: zero.DataType(), MD5Sum: zero.MD5Sum(), Definition: zero.Definition()}, nil
}

var (
	compiled sync.Map // reflect.Type -> compiledMessage
	digests  sync.Map // name + "\x00" + definition -> digestResult
)

type compiledMessage struct {
	decoder any
	err     error
}

type digestResult struct {
	md5 string
	err error
}

// DefinitionMD5 compiles a full definition and returns its hash. Results are
// memoized per name and definition text.
func DefinitionMD5(fullName, definition string) (string, error) {
	key := fullName + "\x00" + definition
	if v, ok := digests.Load(key); ok {
		res := v.(digestResult)
		return res.md5, res.err
	}
	var res digestResult
	if s, err := Compile(fullName, definition, nil); err != nil {
		res.err = err
	} else {
		res.md5 = s.MD5Sum()
	}
	v, _ := digests.LoadOrStore(key, res)
	res = v.(digestResult)
	return res.md5, res.err
}

// CompileMessage compiles the definition carried by T and returns a decoder
// for it. The result is memoized per type. The compiled hash must equal
// T's MD5Sum.
func CompileMessage[T Message]() (*Decoder[T], error) {
	key := reflect.TypeFor[T]()
	if v, ok := compiled.Load(key); ok {
		cm := v.(compiledMessage)
		if cm.err != nil {
			return nil, cm.err
		}
		return cm.decoder.(*Decoder[T]), nil
	}
	dec, err := compileMessage[T]()
	v, _ := compiled.LoadOrStore(key, compiledMessage{decoder: dec, err: err})
	cm := v.(compiledMessage)
	if cm.err != nil {
		return nil, cm.err
	}
	return cm.decoder.(*Decoder[T]), nil
}

func compileMessage[T Message]() (*Decoder[T], error) {
	mt, err := TypeOf[T]()
	if err != nil {
		return nil, err
	}
	schema, err := Compile(mt.Name, mt.Definition, nil)
	if err != nil {
		return nil, err
	}
	if schema.MD5Sum() != mt.MD5Sum {
		return nil, fmt.Errorf("%w: %s definition hashes to %s, type declares %s",
			ErrTypeMismatch, mt.Name, schema.MD5Sum(), mt.MD5Sum)
	}
	return NewDecoder[T](schema)
}
