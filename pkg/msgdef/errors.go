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

// Package msgdef compiles ROS message definitions into schemas and binds them
// to Go types for decoding and encoding the ROS wire format.
package msgdef

import "errors"

var (
	// ErrMalformedSchema is returned when definition text cannot be parsed.
	ErrMalformedSchema = errors.New("malformed message definition")
	// ErrUnresolvedType is returned when a referenced message type has no definition.
	ErrUnresolvedType = errors.New("unresolved message type")
	// ErrTruncatedMessage is returned when a payload ends before its schema does.
	ErrTruncatedMessage = errors.New("truncated message")
	// ErrTypeMismatch is returned when a Go type cannot represent a schema or
	// its hash disagrees with the compiled definition.
	ErrTypeMismatch = errors.New("message type mismatch")
)
