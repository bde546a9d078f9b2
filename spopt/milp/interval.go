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
	"fmt"
	"math"
	"strconv"
)

// Interval stores the closed interval `[Lower,Upper]` used for variable bounds and row
// bounds. Either end may be infinite. If `Lower` is greater than `Upper`, the interval is
// considered empty.
type Interval struct {
	Lower float64
	Upper float64
}

// NewInterval returns the interval `[lb,ub]`.
func NewInterval(lb, ub float64) Interval {
	return Interval{Lower: lb, Upper: ub}
}

// AtLeast returns the interval `[lb,+inf]`.
func AtLeast(lb float64) Interval {
	return Interval{Lower: lb, Upper: math.Inf(1)}
}

// AtMost returns the interval `[-inf,ub]`.
func AtMost(ub float64) Interval {
	return Interval{Lower: math.Inf(-1), Upper: ub}
}

// Exactly returns the interval `[v,v]`.
func Exactly(v float64) Interval {
	return Interval{Lower: v, Upper: v}
}

// AnyValue returns `[-inf,+inf]`.
func AnyValue() Interval {
	return Interval{Lower: math.Inf(-1), Upper: math.Inf(1)}
}

// Empty reports whether no value lies in the interval.
func (i Interval) Empty() bool {
	return i.Lower > i.Upper || math.IsNaN(i.Lower) || math.IsNaN(i.Upper)
}

// Fixed reports whether the interval holds a single value.
func (i Interval) Fixed() bool {
	return i.Lower == i.Upper
}

// HasLower reports whether the lower end is finite.
func (i Interval) HasLower() bool {
	return !math.IsInf(i.Lower, -1)
}

// HasUpper reports whether the upper end is finite.
func (i Interval) HasUpper() bool {
	return !math.IsInf(i.Upper, 1)
}

// Offset adds `delta` to both ends of the interval. Infinite ends stay infinite.
func (i Interval) Offset(delta float64) Interval {
	return Interval{Lower: i.Lower + delta, Upper: i.Upper + delta}
}

// Intersect returns the intersection of `i` and `o`. The result may be empty.
func (i Interval) Intersect(o Interval) Interval {
	return Interval{Lower: math.Max(i.Lower, o.Lower), Upper: math.Min(i.Upper, o.Upper)}
}

// Contains reports whether `v` lies in the interval, allowing an absolute violation of
// `tol` on either end.
func (i Interval) Contains(v, tol float64) bool {
	return v >= i.Lower-tol && v <= i.Upper+tol
}

// Violation returns by how much `v` lies outside the interval, or 0 if it lies inside.
func (i Interval) Violation(v float64) float64 {
	switch {
	case v < i.Lower:
		return i.Lower - v
	case v > i.Upper:
		return v - i.Upper
	}
	return 0
}

func formatBound(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (i Interval) String() string {
	if i.Fixed() {
		return fmt.Sprintf("[%s]", formatBound(i.Lower))
	}
	return fmt.Sprintf("[%s,%s]", formatBound(i.Lower), formatBound(i.Upper))
}
