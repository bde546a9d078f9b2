// Copyright 2026 The spopt Authors
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

package milp

import (
	"math"
	"testing"
)

func TestInterval(t *testing.T) {
	testCases := []struct {
		name     string
		in       Interval
		empty    bool
		fixed    bool
		hasLower bool
		hasUpper bool
		str      string
	}{
		{name: "Bounded", in: NewInterval(-1, 2.5), hasLower: true, hasUpper: true, str: "[-1,2.5]"},
		{name: "AtLeast", in: AtLeast(3), hasLower: true, str: "[3,inf]"},
		{name: "AtMost", in: AtMost(3), hasUpper: true, str: "[-inf,3]"},
		{name: "Exactly", in: Exactly(4), fixed: true, hasLower: true, hasUpper: true, str: "[4]"},
		{name: "AnyValue", in: AnyValue(), str: "[-inf,inf]"},
		{name: "Empty", in: NewInterval(2, 1), empty: true, hasLower: true, hasUpper: true, str: "[2,1]"},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			if got := test.in.Empty(); got != test.empty {
				t.Errorf("Empty() = %v, want %v", got, test.empty)
			}
			if got := test.in.Fixed(); got != test.fixed {
				t.Errorf("Fixed() = %v, want %v", got, test.fixed)
			}
			if got := test.in.HasLower(); got != test.hasLower {
				t.Errorf("HasLower() = %v, want %v", got, test.hasLower)
			}
			if got := test.in.HasUpper(); got != test.hasUpper {
				t.Errorf("HasUpper() = %v, want %v", got, test.hasUpper)
			}
			if got := test.in.String(); got != test.str {
				t.Errorf("String() = %q, want %q", got, test.str)
			}
		})
	}
}

func TestInterval_Arithmetic(t *testing.T) {
	i := NewInterval(0, 10)

	if got, want := i.Offset(-2), NewInterval(-2, 8); got != want {
		t.Errorf("Offset(-2) = %v, want %v", got, want)
	}
	if got, want := AtLeast(1).Offset(5), AtLeast(6); got != want {
		t.Errorf("Offset(5) = %v, want %v", got, want)
	}
	if got, want := i.Intersect(NewInterval(5, 20)), NewInterval(5, 10); got != want {
		t.Errorf("Intersect() = %v, want %v", got, want)
	}
	if got := i.Intersect(NewInterval(11, 12)); !got.Empty() {
		t.Errorf("Intersect() = %v, want an empty interval", got)
	}
	if !i.Contains(10.0000001, 1e-6) {
		t.Errorf("Contains(10.0000001, 1e-6) = false, want true")
	}
	if i.Contains(-0.1, 1e-6) {
		t.Errorf("Contains(-0.1, 1e-6) = true, want false")
	}
	if got := i.Violation(12); got != 2 {
		t.Errorf("Violation(12) = %v, want 2", got)
	}
	if got := i.Violation(-3); got != 3 {
		t.Errorf("Violation(-3) = %v, want 3", got)
	}
	if got := AnyValue().Violation(math.MaxFloat64); got != 0 {
		t.Errorf("Violation(MaxFloat64) = %v, want 0", got)
	}
}
