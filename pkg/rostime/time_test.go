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

package rostime

import (
	"testing"
	"time"
)

func TestTimeOrdering(t *testing.T) {
	a := Time{Sec: 1, NSec: 999}
	b := Time{Sec: 2, NSec: 0}
	if !a.Before(b) || !b.After(a) {
		t.Fatalf("expected %s before %s", a, b)
	}
	if a.Compare(a) != 0 {
		t.Fatalf("expected equal compare")
	}
	if Max.Compare(Min) != 1 {
		t.Fatalf("max should sort after min")
	}
}

func TestTimeNormalize(t *testing.T) {
	got := New(1, 2_500_000_000)
	if got.Sec != 3 || got.NSec != 500_000_000 {
		t.Fatalf("unexpected normalized time %+v", got)
	}
}

func TestTimeConversions(t *testing.T) {
	tm := Time{Sec: 1700000000, NSec: 42}
	if FromTime(tm.Std()) != tm {
		t.Fatalf("round trip through time.Time failed")
	}
	if d := (Time{Sec: 3}).Sub(Time{Sec: 1, NSec: 500_000_000}); d != 1500*time.Millisecond {
		t.Fatalf("unexpected sub %v", d)
	}
	if s := tm.String(); s != "1700000000.000000042" {
		t.Fatalf("unexpected string %q", s)
	}
	if (Duration{Sec: -1, NSec: 500_000_000}).Std() != -500*time.Millisecond {
		t.Fatalf("unexpected duration conversion")
	}
}
