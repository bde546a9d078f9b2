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
	"fmt"
	"math"
	"strings"

	log "github.com/golang/glog"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrMixedGeometry warns that a layer holds geometries other than points, which are
	// reduced to their centroids.
	ErrMixedGeometry = errors.New("layer contains mixed type geometries or is not a point layer")
	// ErrGeographicCentroid warns that centroids are computed on longitudes and latitudes.
	ErrGeographicCentroid = errors.New("centroids computed in a geographic CRS are likely incorrect")
	// ErrUnsupportedMetric is returned for metric, mode and CRS combinations that cannot be
	// computed.
	ErrUnsupportedMetric = errors.New("unsupported distance metric")
	// ErrEmptyGeometry is returned for geometries without coordinates.
	ErrEmptyGeometry = errors.New("empty geometry")
)

// Metric is the distance function between two locations.
type Metric int8

const (
	// Euclidean is the planar distance in CRS units.
	Euclidean Metric = iota
	// Haversine is the great circle distance in meters. It needs a geographic CRS.
	Haversine
)

func (m Metric) String() string {
	switch m {
	case Euclidean:
		return "euclidean"
	case Haversine:
		return "haversine"
	}
	return fmt.Sprintf("Metric(%d)", int8(m))
}

// ParseMetric parses "euclidean" or "haversine". The empty string is Euclidean.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(s) {
	case "", "euclidean":
		return Euclidean, nil
	case "haversine":
		return Haversine, nil
	}
	return 0, fmt.Errorf("metric %q: %w", s, ErrUnsupportedMetric)
}

// Mode selects which points of two geometries are measured.
type Mode int8

const (
	// Centroid measures between the centroids of the geometries.
	Centroid Mode = iota
	// Nearest measures between the closest points of the geometries, 0 when they touch.
	Nearest
)

func (m Mode) String() string {
	switch m {
	case Centroid:
		return "centroid"
	case Nearest:
		return "nearest"
	}
	return fmt.Sprintf("Mode(%d)", int8(m))
}

// ParseMode parses "centroid" or "nearest". The empty string is Centroid.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "centroid":
		return Centroid, nil
	case "nearest":
		return Nearest, nil
	}
	return 0, fmt.Errorf("distance mode %q: %w", s, ErrUnsupportedMetric)
}

type options struct {
	metric Metric
	mode   Mode
}

// Option configures CostMatrix.
type Option func(*options)

// WithMetric sets the distance metric. Defaults to Euclidean.
func WithMetric(m Metric) Option {
	return func(o *options) {
		o.metric = m
	}
}

// WithMode sets the distance mode. Defaults to Centroid.
func WithMode(m Mode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// Result is the outcome of CostMatrix.
type Result struct {
	// Cost has one row per demand feature and one column per facility feature.
	Cost *mat.Dense
	// CRS is the reconciled CRS of both layers.
	CRS string
	// Warnings lists the non fatal issues found in the inputs. Each wraps one of
	// ErrMixedGeometry, ErrGeographicCentroid, ErrCRSUnset or ErrCRSAlias.
	Warnings []error
}

// CostMatrix computes the distances between every demand and facility geometry.
//
// Warnings are logged and returned in the Result. A CRS mismatch between the layers is an
// error wrapping ErrCRSMismatch, reported after the warnings found so far are logged.
func CostMatrix(demand, facility *Frame, demandCol, facilityCol string, opts ...Option) (*Result, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	dem, err := demand.Geometry(demandCol)
	if err != nil {
		return nil, fmt.Errorf("demand: %w", err)
	}
	fac, err := facility.Geometry(facilityCol)
	if err != nil {
		return nil, fmt.Errorf("facility: %w", err)
	}

	res := &Result{}
	warn := func(err error) {
		log.Warningf("%v", err)
		res.Warnings = append(res.Warnings, err)
	}
	for _, layer := range []struct {
		name  string
		crs   string
		geoms []orb.Geometry
	}{{"demand", demand.CRS, dem}, {"facility", facility.CRS, fac}} {
		if allPoints(layer.geoms) {
			continue
		}
		warn(fmt.Errorf("%s: %w", layer.name, ErrMixedGeometry))
		if o.mode == Centroid && IsGeographic(layer.crs) {
			warn(fmt.Errorf("%s in %s: %w", layer.name, layer.crs, ErrGeographicCentroid))
		}
	}
	crs, crsWarnings, err := ReconcileCRS(demand.CRS, facility.CRS)
	if err != nil {
		return nil, err
	}
	for _, w := range crsWarnings {
		warn(w)
	}
	res.CRS = crs

	if o.metric == Haversine && (o.mode != Centroid || !IsGeographic(crs)) {
		return nil, fmt.Errorf("%v distance in %s mode with CRS %q: %w", o.metric, o.mode, crs, ErrUnsupportedMetric)
	}

	if len(dem) == 0 || len(fac) == 0 {
		res.Cost = &mat.Dense{}
		return res, nil
	}
	res.Cost = mat.NewDense(len(dem), len(fac), nil)
	switch o.mode {
	case Centroid:
		dc, err := centroids(dem)
		if err != nil {
			return nil, fmt.Errorf("demand: %w", err)
		}
		fc, err := centroids(fac)
		if err != nil {
			return nil, fmt.Errorf("facility: %w", err)
		}
		dist := planar.Distance
		if o.metric == Haversine {
			dist = geo.DistanceHaversine
		}
		for i, p := range dc {
			for j, q := range fc {
				res.Cost.Set(i, j, dist(p, q))
			}
		}
	case Nearest:
		for i, g := range dem {
			for j, h := range fac {
				res.Cost.Set(i, j, nearestDistance(g, h))
			}
		}
	default:
		return nil, fmt.Errorf("distance mode %v: %w", o.mode, ErrUnsupportedMetric)
	}
	log.V(1).Infof("cost matrix %dx%d computed with %v distance in %v mode", len(dem), len(fac), o.metric, o.mode)
	return res, nil
}

func allPoints(gs []orb.Geometry) bool {
	for _, g := range gs {
		if _, ok := g.(orb.Point); !ok {
			return false
		}
	}
	return true
}

func centroids(gs []orb.Geometry) ([]orb.Point, error) {
	ps := make([]orb.Point, len(gs))
	for i, g := range gs {
		if p, ok := g.(orb.Point); ok {
			ps[i] = p
			continue
		}
		if g == nil || len(vertices(g)) == 0 {
			return nil, fmt.Errorf("feature %d: %w", i, ErrEmptyGeometry)
		}
		ps[i], _ = planar.CentroidArea(g)
	}
	return ps, nil
}

// vertices returns every coordinate of `g`.
func vertices(g orb.Geometry) []orb.Point {
	switch g := g.(type) {
	case orb.Point:
		return []orb.Point{g}
	case orb.MultiPoint:
		return g
	case orb.LineString:
		return g
	case orb.Ring:
		return g
	case orb.MultiLineString:
		var ps []orb.Point
		for _, ls := range g {
			ps = append(ps, ls...)
		}
		return ps
	case orb.Polygon:
		var ps []orb.Point
		for _, r := range g {
			ps = append(ps, r...)
		}
		return ps
	case orb.MultiPolygon:
		var ps []orb.Point
		for _, p := range g {
			ps = append(ps, vertices(p)...)
		}
		return ps
	case orb.Collection:
		var ps []orb.Point
		for _, c := range g {
			ps = append(ps, vertices(c)...)
		}
		return ps
	case orb.Bound:
		return vertices(g.ToPolygon())
	}
	return nil
}

// segments returns every edge of the linear and areal parts of `g`.
func segments(g orb.Geometry) [][2]orb.Point {
	var segs [][2]orb.Point
	addLine := func(ls []orb.Point) {
		for k := 1; k < len(ls); k++ {
			segs = append(segs, [2]orb.Point{ls[k-1], ls[k]})
		}
	}
	switch g := g.(type) {
	case orb.LineString:
		addLine(g)
	case orb.Ring:
		addLine(g)
	case orb.MultiLineString:
		for _, ls := range g {
			addLine(ls)
		}
	case orb.Polygon:
		for _, r := range g {
			addLine(r)
		}
	case orb.MultiPolygon:
		for _, p := range g {
			segs = append(segs, segments(p)...)
		}
	case orb.Collection:
		for _, c := range g {
			segs = append(segs, segments(c)...)
		}
	case orb.Bound:
		segs = segments(g.ToPolygon())
	}
	return segs
}

// contains reports whether `p` lies in the areal part of `g`.
func contains(g orb.Geometry, p orb.Point) bool {
	switch g := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, p)
	case orb.Ring:
		return planar.RingContains(g, p)
	case orb.Bound:
		return g.Contains(p)
	case orb.Collection:
		for _, c := range g {
			if contains(c, p) {
				return true
			}
		}
	}
	return false
}

// nearestDistance returns the planar distance between the closest points of `a` and `b`,
// 0 when they intersect.
func nearestDistance(a, b orb.Geometry) float64 {
	va, vb := vertices(a), vertices(b)
	if len(va) == 0 || len(vb) == 0 {
		return math.Inf(1)
	}
	for _, p := range va {
		if contains(b, p) {
			return 0
		}
	}
	for _, p := range vb {
		if contains(a, p) {
			return 0
		}
	}
	sa, sb := segments(a), segments(b)
	for _, s := range sa {
		for _, t := range sb {
			if segmentsIntersect(s, t) {
				return 0
			}
		}
	}
	d := math.Inf(1)
	for _, p := range va {
		d = math.Min(d, distanceFrom(b, vb, p))
	}
	for _, p := range vb {
		d = math.Min(d, distanceFrom(a, va, p))
	}
	return d
}

func distanceFrom(g orb.Geometry, vs []orb.Point, p orb.Point) float64 {
	switch g.(type) {
	case orb.Point, orb.MultiPoint:
		d := math.Inf(1)
		for _, v := range vs {
			d = math.Min(d, planar.Distance(v, p))
		}
		return d
	}
	return planar.DistanceFrom(g, p)
}

func orientation(p, q, r orb.Point) float64 {
	return (q[0]-p[0])*(r[1]-p[1]) - (q[1]-p[1])*(r[0]-p[0])
}

func onSegment(p, q, r orb.Point) bool {
	return math.Min(p[0], r[0]) <= q[0] && q[0] <= math.Max(p[0], r[0]) &&
		math.Min(p[1], r[1]) <= q[1] && q[1] <= math.Max(p[1], r[1])
}

func segmentsIntersect(s, t [2]orb.Point) bool {
	d1 := orientation(t[0], t[1], s[0])
	d2 := orientation(t[0], t[1], s[1])
	d3 := orientation(s[0], s[1], t[0])
	d4 := orientation(s[0], s[1], t[1])
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	switch {
	case d1 == 0 && onSegment(t[0], s[0], t[1]):
		return true
	case d2 == 0 && onSegment(t[0], s[1], t[1]):
		return true
	case d3 == 0 && onSegment(s[0], t[0], s[1]):
		return true
	case d4 == 0 && onSegment(s[0], t[1], s[1]):
		return true
	}
	return false
}
