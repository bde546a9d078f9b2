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

// Package geoframe turns layers of demand and facility geometries into the cost matrices
// consumed by the location models.
//
// A Frame is a small column store: every column has one entry per feature, and the
// frame carries the coordinate reference system (CRS) of its geometries.
package geoframe

import (
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
)

// GeometryColumn is the name given to the geometry column by the loaders.
const GeometryColumn = "geometry"

var (
	// ErrColumnNotFound is returned when a frame has no column of the requested name and type.
	ErrColumnNotFound = errors.New("column not found")
	// ErrLengthMismatch is returned when a column does not have one entry per feature.
	ErrLengthMismatch = errors.New("column length does not match frame length")
)

// Frame holds per-feature columns of geometries, numbers and booleans. The zero value is
// an empty frame with no CRS.
type Frame struct {
	// CRS names the coordinate reference system of the geometries, e.g. "EPSG:4326".
	// Empty means unknown.
	CRS string

	n      int
	sized  bool
	geoms  map[string][]orb.Geometry
	floats map[string][]float64
	bools  map[string][]bool
}

// NewFrame returns an empty frame in the given CRS.
func NewFrame(crs string) *Frame {
	return &Frame{
		CRS:    crs,
		geoms:  make(map[string][]orb.Geometry),
		floats: make(map[string][]float64),
		bools:  make(map[string][]bool),
	}
}

// Len returns the number of features, 0 for a frame without columns.
func (f *Frame) Len() int {
	return f.n
}

func (f *Frame) checkLen(col string, n int) error {
	if f.sized && f.n != n {
		return fmt.Errorf("column %q has %d entries, frame has %d: %w", col, n, f.n, ErrLengthMismatch)
	}
	f.n, f.sized = n, true
	return nil
}

// SetGeometry sets the geometry column `col`.
func (f *Frame) SetGeometry(col string, gs []orb.Geometry) error {
	if err := f.checkLen(col, len(gs)); err != nil {
		return err
	}
	if f.geoms == nil {
		f.geoms = make(map[string][]orb.Geometry)
	}
	f.geoms[col] = gs
	return nil
}

// SetFloats sets the numeric column `col`.
func (f *Frame) SetFloats(col string, vs []float64) error {
	if err := f.checkLen(col, len(vs)); err != nil {
		return err
	}
	if f.floats == nil {
		f.floats = make(map[string][]float64)
	}
	f.floats[col] = vs
	return nil
}

// SetBools sets the boolean column `col`.
func (f *Frame) SetBools(col string, vs []bool) error {
	if err := f.checkLen(col, len(vs)); err != nil {
		return err
	}
	if f.bools == nil {
		f.bools = make(map[string][]bool)
	}
	f.bools[col] = vs
	return nil
}

// Geometry returns the geometry column `col`.
func (f *Frame) Geometry(col string) ([]orb.Geometry, error) {
	gs, ok := f.geoms[col]
	if !ok {
		return nil, fmt.Errorf("geometry column %q: %w", col, ErrColumnNotFound)
	}
	return gs, nil
}

// Floats returns the numeric column `col`. Boolean columns are converted to 0 and 1.
func (f *Frame) Floats(col string) ([]float64, error) {
	if vs, ok := f.floats[col]; ok {
		return vs, nil
	}
	if bs, ok := f.bools[col]; ok {
		vs := make([]float64, len(bs))
		for i, b := range bs {
			if b {
				vs[i] = 1
			}
		}
		return vs, nil
	}
	return nil, fmt.Errorf("numeric column %q: %w", col, ErrColumnNotFound)
}

// Bools returns the boolean column `col`. Numeric columns are true where non-zero.
func (f *Frame) Bools(col string) ([]bool, error) {
	if bs, ok := f.bools[col]; ok {
		return bs, nil
	}
	if vs, ok := f.floats[col]; ok {
		bs := make([]bool, len(vs))
		for i, v := range vs {
			bs[i] = v != 0
		}
		return bs, nil
	}
	return nil, fmt.Errorf("boolean column %q: %w", col, ErrColumnNotFound)
}

// Columns returns the sorted names of all columns.
func (f *Frame) Columns() []string {
	var cols []string
	for c := range f.geoms {
		cols = append(cols, c)
	}
	for c := range f.floats {
		cols = append(cols, c)
	}
	for c := range f.bools {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// PredefinedFacilities returns the indices of the features flagged by column `col`. The
// column may be boolean or numeric, non-zero meaning predefined.
func PredefinedFacilities(f *Frame, col string) ([]int, error) {
	bs, err := f.Bools(col)
	if err != nil {
		return nil, err
	}
	var idx []int
	for i, b := range bs {
		if b {
			idx = append(idx, i)
		}
	}
	return idx, nil
}
