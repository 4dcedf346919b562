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

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// ByteRange is an inclusive byte range within an object.
type ByteRange struct {
	Start int64
	End   int64
}

func (br *ByteRange) headerValue() *string {
	if br == nil {
		return nil
	}
	val := fmt.Sprintf("bytes=%d-%d", br.Start, br.End)
	return &val
}

// ObjectStore is the read surface a bag source needs from an object store.
type ObjectStore interface {
	// Stat returns the size of key in bytes.
	Stat(ctx context.Context, key string) (int64, error)
	// ReadRange returns the bytes of key covered by rng, or the whole
	// object when rng is nil.
	ReadRange(ctx context.Context, key string, rng *ByteRange) ([]byte, error)
}

// S3Config describes how to reach the bucket holding bag files.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	ForcePathStyle  bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// ParseURL splits an s3://bucket/key location. ok is false for anything
// that is not an s3 URL.
func ParseURL(location string) (bucket, key string, ok bool, err error) {
	rest, found := strings.CutPrefix(location, "s3://")
	if !found {
		return "", "", false, nil
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", true, fmt.Errorf("s3 location %q needs a bucket and a key", location)
	}
	return bucket, key, true, nil
}
