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

package geoframe

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"gonum.org/v1/gonum/mat"
)

var square = orb.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}}

func newLayer(t *testing.T, crs string, gs ...orb.Geometry) *Frame {
	t.Helper()
	f := NewFrame(crs)
	if err := f.SetGeometry(GeometryColumn, gs); err != nil {
		t.Fatalf("SetGeometry() returned with unexpected error %v", err)
	}
	return f
}

func hasWarning(warnings []error, target error) bool {
	for _, w := range warnings {
		if errors.Is(w, target) {
			return true
		}
	}
	return false
}

func TestCostMatrix_Centroid(t *testing.T) {
	demand := newLayer(t, "EPSG:3857", orb.Point{0, 0}, orb.Point{3, 4})
	facility := newLayer(t, "EPSG:3857", square, orb.Point{6, 8})

	res, err := CostMatrix(demand, facility, GeometryColumn, GeometryColumn)
	if err != nil {
		t.Fatalf("CostMatrix() returned with unexpected error %v", err)
	}
	want := mat.NewDense(2, 2, []float64{
		math.Sqrt2, 10,
		math.Sqrt(13), 5,
	})
	if !mat.EqualApprox(res.Cost, want, 1e-9) {
		t.Errorf("CostMatrix() = %v, want %v", mat.Formatted(res.Cost), mat.Formatted(want))
	}
	if res.CRS != "EPSG:3857" {
		t.Errorf("CRS = %q, want EPSG:3857", res.CRS)
	}
	if len(res.Warnings) != 1 || !errors.Is(res.Warnings[0], ErrMixedGeometry) {
		t.Errorf("Warnings = %v, want one ErrMixedGeometry", res.Warnings)
	}
}

func TestCostMatrix_Nearest(t *testing.T) {
	demand := newLayer(t, "", orb.Point{1, 1}, orb.Point{5, 1})
	facility := newLayer(t, "", square, orb.LineString{{10, 0}, {10, 10}})

	res, err := CostMatrix(demand, facility, GeometryColumn, GeometryColumn, WithMode(Nearest))
	if err != nil {
		t.Fatalf("CostMatrix() returned with unexpected error %v", err)
	}
	want := mat.NewDense(2, 2, []float64{
		0, 9,
		3, 5,
	})
	if !mat.EqualApprox(res.Cost, want, 1e-9) {
		t.Errorf("CostMatrix() = %v, want %v", mat.Formatted(res.Cost), mat.Formatted(want))
	}
	if hasWarning(res.Warnings, ErrGeographicCentroid) {
		t.Errorf("Warnings = %v, want no ErrGeographicCentroid in nearest mode", res.Warnings)
	}
}

func TestNearestDistance(t *testing.T) {
	testCases := []struct {
		name string
		a, b orb.Geometry
		want float64
	}{
		{name: "PointInPolygon", a: orb.Point{1, 1}, b: square, want: 0},
		{name: "Crossing", a: orb.LineString{{-1, 1}, {3, 1}}, b: square, want: 0},
		{name: "PolygonInPolygon", a: orb.Polygon{{{0.5, 0.5}, {1, 0.5}, {1, 1}, {0.5, 0.5}}}, b: square, want: 0},
		{name: "Polygons", a: orb.Polygon{{{5, 0}, {6, 0}, {6, 1}, {5, 0}}}, b: square, want: 3},
		{name: "Points", a: orb.MultiPoint{{0, 0}, {4, 0}}, b: orb.Point{4, 3}, want: 3},
		{name: "LineToPoint", a: orb.LineString{{0, 0}, {10, 0}}, b: orb.Point{5, 2}, want: 2},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			if got := nearestDistance(test.a, test.b); math.Abs(got-test.want) > 1e-9 {
				t.Errorf("nearestDistance() = %v, want %v", got, test.want)
			}
		})
	}
}

func TestCostMatrix_Haversine(t *testing.T) {
	demand := newLayer(t, "EPSG:4326", orb.Point{0, 0})
	facility := newLayer(t, "WGS84", orb.Point{0, 1})

	res, err := CostMatrix(demand, facility, GeometryColumn, GeometryColumn, WithMetric(Haversine))
	if err != nil {
		t.Fatalf("CostMatrix() returned with unexpected error %v", err)
	}
	want := geo.DistanceHaversine(orb.Point{0, 0}, orb.Point{0, 1})
	if got := res.Cost.At(0, 0); got != want {
		t.Errorf("Cost.At(0, 0) = %v, want %v", got, want)
	}
	if want < 110000 || want > 112000 {
		t.Errorf("one degree of latitude measures %v meters", want)
	}
	if !hasWarning(res.Warnings, ErrCRSAlias) {
		t.Errorf("Warnings = %v, want ErrCRSAlias", res.Warnings)
	}
}

func TestCostMatrix_GeographicCentroid(t *testing.T) {
	demand := newLayer(t, "EPSG:4326", square)
	facility := newLayer(t, "EPSG:4326", orb.Point{1, 1})

	res, err := CostMatrix(demand, facility, GeometryColumn, GeometryColumn)
	if err != nil {
		t.Fatalf("CostMatrix() returned with unexpected error %v", err)
	}
	for _, target := range []error{ErrMixedGeometry, ErrGeographicCentroid} {
		if !hasWarning(res.Warnings, target) {
			t.Errorf("Warnings = %v, want %v", res.Warnings, target)
		}
	}
	if got := res.Cost.At(0, 0); math.Abs(got) > 1e-9 {
		t.Errorf("Cost.At(0, 0) = %v, want 0", got)
	}
}

func TestCostMatrix_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		demand   *Frame
		facility *Frame
		opts     []Option
		want     error
	}{
		{
			name:     "CRSMismatch",
			demand:   newLayer(t, "EPSG:4326", orb.Point{0, 0}),
			facility: newLayer(t, "EPSG:3857", square),
			want:     ErrCRSMismatch,
		},
		{
			name:     "HaversineProjected",
			demand:   newLayer(t, "EPSG:3857", orb.Point{0, 0}),
			facility: newLayer(t, "EPSG:3857", orb.Point{0, 1}),
			opts:     []Option{WithMetric(Haversine)},
			want:     ErrUnsupportedMetric,
		},
		{
			name:     "HaversineNearest",
			demand:   newLayer(t, "EPSG:4326", orb.Point{0, 0}),
			facility: newLayer(t, "EPSG:4326", orb.Point{0, 1}),
			opts:     []Option{WithMetric(Haversine), WithMode(Nearest)},
			want:     ErrUnsupportedMetric,
		},
		{
			name:     "EmptyGeometry",
			demand:   newLayer(t, "", orb.Point{0, 0}),
			facility: newLayer(t, "", orb.LineString{}),
			want:     ErrEmptyGeometry,
		},
		{
			name:     "MissingColumn",
			demand:   NewFrame(""),
			facility: newLayer(t, "", orb.Point{0, 1}),
			want:     ErrColumnNotFound,
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			res, err := CostMatrix(test.demand, test.facility, GeometryColumn, GeometryColumn, test.opts...)
			if !errors.Is(err, test.want) {
				t.Errorf("CostMatrix() returned with unexpected error %v; want %v", err, test.want)
			}
			if res != nil {
				t.Errorf("CostMatrix() returned with unexpected result %v; want nil", res)
			}
		})
	}
}

func TestCostMatrix_EmptyLayer(t *testing.T) {
	demand := newLayer(t, "")
	facility := newLayer(t, "", orb.Point{0, 1})

	res, err := CostMatrix(demand, facility, GeometryColumn, GeometryColumn)
	if err != nil {
		t.Fatalf("CostMatrix() returned with unexpected error %v", err)
	}
	if !res.Cost.IsEmpty() {
		t.Errorf("Cost.IsEmpty() = false, want true")
	}
}

func TestParseMetricAndMode(t *testing.T) {
	if m, err := ParseMetric("Haversine"); err != nil || m != Haversine {
		t.Errorf("ParseMetric(Haversine) = %v, %v, want %v", m, err, Haversine)
	}
	if m, err := ParseMetric(""); err != nil || m != Euclidean {
		t.Errorf("ParseMetric(\"\") = %v, %v, want %v", m, err, Euclidean)
	}
	if _, err := ParseMetric("manhattan"); !errors.Is(err, ErrUnsupportedMetric) {
		t.Errorf("ParseMetric(manhattan) returned with unexpected error %v; want ErrUnsupportedMetric", err)
	}
	if m, err := ParseMode("nearest"); err != nil || m != Nearest {
		t.Errorf("ParseMode(nearest) = %v, %v, want %v", m, err, Nearest)
	}
	if _, err := ParseMode("farthest"); !errors.Is(err, ErrUnsupportedMetric) {
		t.Errorf("ParseMode(farthest) returned with unexpected error %v; want ErrUnsupportedMetric", err)
	}
}
