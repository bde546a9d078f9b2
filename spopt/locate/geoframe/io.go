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
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

// DefaultGeoJSONCRS is the CRS of GeoJSON documents that do not say otherwise.
const DefaultGeoJSONCRS = "EPSG:4326"

// FromGeoJSON loads a FeatureCollection. Geometries go to GeometryColumn. A property
// becomes a numeric column when every feature holds a number for it, and a boolean
// column when every feature holds a boolean. Other properties are dropped. An empty
// `crs` means DefaultGeoJSONCRS.
func FromGeoJSON(data []byte, crs string) (*Frame, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshaling feature collection failed: %w", err)
	}
	if crs == "" {
		crs = DefaultGeoJSONCRS
	}
	f := NewFrame(crs)
	gs := make([]orb.Geometry, len(fc.Features))
	keys := make(map[string]bool)
	for i, feat := range fc.Features {
		gs[i] = feat.Geometry
		for k := range feat.Properties {
			keys[k] = true
		}
	}
	if err := f.SetGeometry(GeometryColumn, gs); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		floats := make([]float64, len(fc.Features))
		bools := make([]bool, len(fc.Features))
		isFloat, isBool := true, true
		for i, feat := range fc.Features {
			switch v := feat.Properties[k].(type) {
			case float64:
				floats[i] = v
				isBool = false
			case bool:
				bools[i] = v
				isFloat = false
			default:
				isFloat, isBool = false, false
			}
		}
		switch {
		case isFloat:
			err = f.SetFloats(k, floats)
		case isBool:
			err = f.SetBools(k, bools)
		}
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

// FromWKT returns a frame whose GeometryColumn holds the parsed WKT geometries.
func FromWKT(crs string, wkts []string) (*Frame, error) {
	gs := make([]orb.Geometry, len(wkts))
	for i, s := range wkts {
		g, err := wkt.Unmarshal(s)
		if err != nil {
			return nil, fmt.Errorf("feature %d: parsing %q failed: %w", i, s, err)
		}
		gs[i] = g
	}
	f := NewFrame(crs)
	if err := f.SetGeometry(GeometryColumn, gs); err != nil {
		return nil, err
	}
	return f, nil
}
