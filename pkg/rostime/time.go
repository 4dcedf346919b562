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

// Package rostime holds the ROS time and duration wire types.
package rostime

import (
	"fmt"
	"math"
	"time"
)

const nsecPerSec = 1_000_000_000

// Time is a ROS timestamp: seconds and nanoseconds since the Unix epoch.
type Time struct {
	Sec  uint32
	NSec uint32
}

// Duration is a signed ROS duration.
type Duration struct {
	Sec  int32
	NSec int32
}

var (
	// Zero is the zero timestamp.
	Zero = Time{}
	// Min is the smallest non-zero timestamp.
	Min = Time{Sec: 0, NSec: 1}
	// Max is the largest representable timestamp.
	Max = Time{Sec: math.MaxUint32, NSec: nsecPerSec - 1}
)

// New returns a normalized Time.
func New(sec, nsec uint32) Time {
	t := Time{Sec: sec, NSec: nsec}
	if t.NSec >= nsecPerSec {
		t.Sec += t.NSec / nsecPerSec
		t.NSec %= nsecPerSec
	}
	return t
}

// FromTime converts a time.Time. Times before the epoch clamp to Zero.
func FromTime(t time.Time) Time {
	ns := t.UnixNano()
	if ns <= 0 {
		return Zero
	}
	return Time{Sec: uint32(ns / nsecPerSec), NSec: uint32(ns % nsecPerSec)}
}

// Nanoseconds returns the timestamp as nanoseconds since the epoch.
func (t Time) Nanoseconds() uint64 {
	return uint64(t.Sec)*nsecPerSec + uint64(t.NSec)
}

// Compare returns -1, 0 or +1.
func (t Time) Compare(o Time) int {
	a, b := t.Nanoseconds(), o.Nanoseconds()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (t Time) Before(o Time) bool { return t.Compare(o) < 0 }
func (t Time) After(o Time) bool  { return t.Compare(o) > 0 }
func (t Time) IsZero() bool       { return t.Sec == 0 && t.NSec == 0 }

// Sub returns t-o as a time.Duration.
func (t Time) Sub(o Time) time.Duration {
	return time.Duration(int64(t.Nanoseconds()) - int64(o.Nanoseconds()))
}

// Std converts to a UTC time.Time.
func (t Time) Std() time.Time {
	return time.Unix(int64(t.Sec), int64(t.NSec)).UTC()
}

// Seconds returns the timestamp as floating point seconds.
func (t Time) Seconds() float64 {
	return float64(t.Sec) + float64(t.NSec)/nsecPerSec
}

func (t Time) String() string {
	return fmt.Sprintf("%d.%09d", t.Sec, t.NSec)
}

// Std converts to a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d.Sec)*time.Second + time.Duration(d.NSec)
}

func (d Duration) String() string {
	return d.Std().String()
}
