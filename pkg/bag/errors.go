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

	"github.com/novatechflow/bagkit/pkg/codec"
	"github.com/novatechflow/bagkit/pkg/msgdef"
)

var (
	// ErrUnsupportedVersion is returned for bags other than ROSBAG V2.0.
	ErrUnsupportedVersion = errors.New("unsupported bag version")
	// ErrMalformedRecord is returned when record framing or required fields are invalid.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrInconsistentConnection is returned when a connection id is declared twice with different content.
	ErrInconsistentConnection = errors.New("inconsistent connection")
	// ErrClosed is returned by operations on a closed bag.
	ErrClosed = errors.New("bag closed")

	ErrUnsupportedCompression = codec.ErrUnsupportedCompression
	ErrDecompressionFailed    = codec.ErrDecompressionFailed
	ErrMalformedSchema        = msgdef.ErrMalformedSchema
	ErrUnresolvedType         = msgdef.ErrUnresolvedType
	ErrTruncatedMessage       = msgdef.ErrTruncatedMessage
	ErrTypeMismatch           = msgdef.ErrTypeMismatch
)

// chunkInfoError reports an inconsistent ChunkInfo record when strict
// checking is enabled. It is never recovered by falling back to a linear scan.
type chunkInfoError struct {
	pos    int64
	reason string
}

func (e *chunkInfoError) Error() string {
	return fmt.Sprintf("%s: chunk info at %d: %s", ErrMalformedRecord, e.pos, e.reason)
}

func (e *chunkInfoError) Unwrap() error {
	return ErrMalformedRecord
}
