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
	"strings"
)

var (
	// ErrCRSMismatch is returned when demand and facility layers use different reference
	// systems.
	ErrCRSMismatch = errors.New("demand and facility layers have different CRS")
	// ErrCRSUnset warns that only one of the layers declares a CRS.
	ErrCRSUnset = errors.New("CRS set on one layer only")
	// ErrCRSAlias warns that the layers name the same CRS differently.
	ErrCRSAlias = errors.New("layers name the same CRS differently")
)

var crsAliases = map[string]string{
	"WGS84":                         "EPSG:4326",
	"WGS 84":                        "EPSG:4326",
	"CRS84":                         "EPSG:4326",
	"OGC:CRS84":                     "EPSG:4326",
	"URN:OGC:DEF:CRS:OGC:1.3:CRS84": "EPSG:4326",
	"URN:OGC:DEF:CRS:OGC::CRS84":    "EPSG:4326",
	"EPSG:900913":                   "EPSG:3857",
	"EPSG:3785":                     "EPSG:3857",
	"EPSG:102100":                   "EPSG:3857",
	"EPSG:102113":                   "EPSG:3857",
	"ESRI:102100":                   "EPSG:3857",
	"ESRI:102113":                   "EPSG:3857",
}

// geographic lists the normalized CRS whose coordinates are longitudes and latitudes.
var geographic = map[string]bool{
	"EPSG:4326": true,
	"EPSG:4269": true,
	"EPSG:4258": true,
	"EPSG:4283": true,
	"EPSG:4167": true,
	"EPSG:4617": true,
	"EPSG:4674": true,
}

// NormalizeCRS returns the canonical AUTHORITY:CODE spelling of `crs`.
func NormalizeCRS(crs string) string {
	c := strings.ToUpper(strings.TrimSpace(crs))
	if c == "" {
		return ""
	}
	if a, ok := crsAliases[c]; ok {
		return a
	}
	if rest, ok := strings.CutPrefix(c, "URN:OGC:DEF:CRS:"); ok {
		// URN:OGC:DEF:CRS:EPSG::3857 and URN:OGC:DEF:CRS:EPSG:9.1:3857.
		parts := strings.Split(rest, ":")
		if len(parts) >= 2 {
			c = parts[0] + ":" + parts[len(parts)-1]
		}
	}
	if rest, ok := strings.CutPrefix(c, "HTTP://WWW.OPENGIS.NET/DEF/CRS/"); ok {
		parts := strings.Split(rest, "/")
		if len(parts) >= 2 {
			c = parts[0] + ":" + parts[len(parts)-1]
		}
	}
	if a, ok := crsAliases[c]; ok {
		return a
	}
	return c
}

// IsGeographic reports whether `crs` is a known geographic (longitude, latitude) system.
func IsGeographic(crs string) bool {
	return geographic[NormalizeCRS(crs)]
}

// ReconcileCRS returns the CRS shared by the demand and facility layers. Differences that
// do not change the reference system are returned as warnings; a true mismatch is an
// error wrapping ErrCRSMismatch.
func ReconcileCRS(demand, facility string) (string, []error, error) {
	d, f := NormalizeCRS(demand), NormalizeCRS(facility)
	switch {
	case d == "" && f == "":
		return "", nil, nil
	case d == "":
		return f, []error{fmt.Errorf("demand has no CRS, using facility CRS %q: %w", facility, ErrCRSUnset)}, nil
	case f == "":
		return d, []error{fmt.Errorf("facility has no CRS, using demand CRS %q: %w", demand, ErrCRSUnset)}, nil
	case d != f:
		return "", nil, fmt.Errorf("demand is %q, facility is %q: %w", demand, facility, ErrCRSMismatch)
	case demand != facility:
		return d, []error{fmt.Errorf("demand is %q, facility is %q, both %s: %w", demand, facility, d, ErrCRSAlias)}, nil
	}
	return d, nil, nil
}
