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

// Package config loads facility location scenarios from YAML.
//
// A scenario names the model to build, its parameters, its inputs (a cost matrix or
// demand and facility layers) and the solver settings:
//
//	name: stores
//	model: mclp
//	service_radius: 5000
//	p_facilities: 4
//	demand:
//	  crs: EPSG:3857
//	  geometries: ["POINT (0 0)", "POINT (10 0)"]
//	  weights: [3, 1]
//	facilities:
//	  crs: EPSG:3857
//	  geometries: ["POINT (5 0)"]
//	solver:
//	  precision: 4
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/golang/glog"
	"github.com/weikang9009/spopt/spopt/locate"
	"github.com/weikang9009/spopt/spopt/locate/geoframe"
	"github.com/weikang9009/spopt/spopt/metrics"
	"github.com/weikang9009/spopt/spopt/milp"
	"github.com/weikang9009/spopt/spopt/milp/pbsolver"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// ErrInvalidScenario is wrapped by every validation error.
var ErrInvalidScenario = errors.New("invalid scenario")

// Model kinds.
const (
	KindLSCP    = "lscp"
	KindLSCPB   = "lscpb"
	KindMCLP    = "mclp"
	KindPCenter = "pcenter"
	KindPMedian = "pmedian"
)

// BackendPB is the only solver backend, the in-process pseudo-boolean solver.
const BackendPB = "pb"

// Layer describes a demand or facility layer.
type Layer struct {
	CRS string `yaml:"crs"`
	// Geometries are WKT strings.
	Geometries []string `yaml:"geometries"`
	// GeoJSON is the path of a FeatureCollection, relative to the scenario file. It is
	// exclusive with Geometries.
	GeoJSON string `yaml:"geojson"`
	// Weights are client weights, demand layers only.
	Weights []float64 `yaml:"weights"`
	// WeightColumn names a GeoJSON property holding client weights.
	WeightColumn string `yaml:"weight_column"`
	// Predefined flags the facilities that must be sited, facility layers only.
	Predefined []bool `yaml:"predefined"`
	// PredefinedColumn names a GeoJSON property flagging predefined facilities.
	PredefinedColumn string `yaml:"predefined_column"`
}

// Distance holds the cost matrix options used with layers.
type Distance struct {
	Metric string `yaml:"metric"`
	Mode   string `yaml:"mode"`
}

// Solver holds the solver settings.
type Solver struct {
	Backend   string `yaml:"backend"`
	Precision *int   `yaml:"precision"`
	Verbose   bool   `yaml:"verbose"`
}

// Export names the files the built model is written to before solving.
type Export struct {
	LP      string `yaml:"lp"`
	MPModel string `yaml:"mpmodel"`
}

// Scenario is the root of a scenario file.
type Scenario struct {
	Name                 string      `yaml:"name"`
	Model                string      `yaml:"model"`
	ServiceRadius        float64     `yaml:"service_radius"`
	PFacilities          int         `yaml:"p_facilities"`
	Weights              []float64   `yaml:"weights"`
	PredefinedFacilities []int       `yaml:"predefined_facilities"`
	CostMatrix           [][]float64 `yaml:"cost_matrix"`
	Demand               *Layer      `yaml:"demand"`
	Facilities           *Layer      `yaml:"facilities"`
	Distance             Distance    `yaml:"distance"`
	Solver               Solver      `yaml:"solver"`
	Export               Export      `yaml:"export"`
	// Results disables the computation of Fac2Cli and Cli2Fac when false.
	Results *bool `yaml:"results"`

	// dir resolves relative paths.
	dir string
}

// Load decodes and validates a scenario. Unknown fields are errors. Relative paths are
// resolved against the working directory.
func Load(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	s := &Scenario{}
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("decoding scenario failed: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFile loads the scenario at `path`. Relative paths in the scenario are resolved
// against the directory of `path`.
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

func invalidf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, ErrInvalidScenario)...)
}

// Validate checks that the scenario describes one buildable model.
func (s *Scenario) Validate() error {
	switch s.Model {
	case KindLSCP, KindLSCPB:
		if s.ServiceRadius <= 0 {
			return invalidf("%s needs a positive service_radius, got %v", s.Model, s.ServiceRadius)
		}
	case KindMCLP:
		if s.ServiceRadius <= 0 {
			return invalidf("%s needs a positive service_radius, got %v", s.Model, s.ServiceRadius)
		}
		if s.PFacilities < 0 {
			return invalidf("p_facilities must not be negative, got %d", s.PFacilities)
		}
	case KindPCenter, KindPMedian:
		if s.PFacilities < 0 {
			return invalidf("p_facilities must not be negative, got %d", s.PFacilities)
		}
	default:
		return invalidf("unknown model %q", s.Model)
	}

	hasLayers := s.Demand != nil || s.Facilities != nil
	switch {
	case s.CostMatrix != nil && hasLayers:
		return invalidf("cost_matrix and layers are exclusive")
	case s.CostMatrix != nil:
		for i, row := range s.CostMatrix {
			if len(row) != len(s.CostMatrix[0]) {
				return invalidf("cost_matrix row %d has %d columns, row 0 has %d", i, len(row), len(s.CostMatrix[0]))
			}
		}
	case s.Demand == nil || s.Facilities == nil:
		return invalidf("either cost_matrix or both demand and facilities layers are required")
	default:
		for name, l := range map[string]*Layer{"demand": s.Demand, "facilities": s.Facilities} {
			if (l.GeoJSON == "") == (l.Geometries == nil) {
				return invalidf("%s layer needs exactly one of geometries and geojson", name)
			}
		}
		if _, err := geoframe.ParseMetric(s.Distance.Metric); err != nil {
			return invalidf("%v", err)
		}
		if _, err := geoframe.ParseMode(s.Distance.Mode); err != nil {
			return invalidf("%v", err)
		}
	}

	if b := s.Solver.Backend; b != "" && b != BackendPB {
		return invalidf("unknown solver backend %q", b)
	}
	if p := s.Solver.Precision; p != nil && (*p < 0 || *p > 9) {
		return invalidf("solver precision must be in [0,9], got %d", *p)
	}
	return nil
}

func (s *Scenario) path(p string) string {
	if filepath.IsAbs(p) || s.dir == "" {
		return p
	}
	return filepath.Join(s.dir, p)
}

// frame loads a layer. Weights and predefined flags become the columns "weight" and
// "predefined".
func (s *Scenario) frame(l *Layer) (*geoframe.Frame, error) {
	var f *geoframe.Frame
	var err error
	if l.GeoJSON != "" {
		data, rerr := os.ReadFile(s.path(l.GeoJSON))
		if rerr != nil {
			return nil, rerr
		}
		f, err = geoframe.FromGeoJSON(data, l.CRS)
	} else {
		f, err = geoframe.FromWKT(l.CRS, l.Geometries)
	}
	if err != nil {
		return nil, err
	}
	if l.Weights != nil {
		if err := f.SetFloats("weight", l.Weights); err != nil {
			return nil, err
		}
	}
	if l.Predefined != nil {
		if err := f.SetBools("predefined", l.Predefined); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (s *Scenario) options() []locate.Option {
	var opts []locate.Option
	if s.Name != "" {
		opts = append(opts, locate.WithName(s.Name))
	}
	if s.Weights != nil {
		opts = append(opts, locate.WithWeights(s.Weights))
	}
	if len(s.PredefinedFacilities) > 0 {
		opts = append(opts, locate.WithPredefinedFacilities(s.PredefinedFacilities...))
	}
	return opts
}

func (s *Scenario) layerOptions() []locate.Option {
	var opts []locate.Option
	// Validate already parsed both.
	metric, _ := geoframe.ParseMetric(s.Distance.Metric)
	mode, _ := geoframe.ParseMode(s.Distance.Mode)
	opts = append(opts, locate.WithDistance(geoframe.WithMetric(metric), geoframe.WithMode(mode)))
	switch {
	case s.Demand.Weights != nil:
		opts = append(opts, locate.WithWeightColumn("weight"))
	case s.Demand.WeightColumn != "":
		opts = append(opts, locate.WithWeightColumn(s.Demand.WeightColumn))
	}
	switch {
	case s.Facilities.Predefined != nil:
		opts = append(opts, locate.WithPredefinedFacilityColumn("predefined"))
	case s.Facilities.PredefinedColumn != "":
		opts = append(opts, locate.WithPredefinedFacilityColumn(s.Facilities.PredefinedColumn))
	}
	return opts
}

func model[T locate.Model](m T, err error) (locate.Model, error) {
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Build builds the model described by the scenario.
func (s *Scenario) Build() (locate.Model, error) {
	opts := s.options()
	if s.CostMatrix != nil {
		var cost mat.Matrix = &mat.Dense{}
		if len(s.CostMatrix) > 0 && len(s.CostMatrix[0]) > 0 {
			d := mat.NewDense(len(s.CostMatrix), len(s.CostMatrix[0]), nil)
			for i, row := range s.CostMatrix {
				d.SetRow(i, row)
			}
			cost = d
		}
		switch s.Model {
		case KindLSCP:
			return model(locate.NewLSCP(cost, s.ServiceRadius, opts...))
		case KindLSCPB:
			return model(locate.NewLSCPB(cost, s.ServiceRadius, opts...))
		case KindMCLP:
			return model(locate.NewMCLP(cost, s.ServiceRadius, s.PFacilities, opts...))
		case KindPCenter:
			return model(locate.NewPCenter(cost, s.PFacilities, opts...))
		case KindPMedian:
			return model(locate.NewPMedian(cost, s.PFacilities, opts...))
		}
		return nil, invalidf("unknown model %q", s.Model)
	}

	dem, err := s.frame(s.Demand)
	if err != nil {
		return nil, fmt.Errorf("demand layer: %w", err)
	}
	fac, err := s.frame(s.Facilities)
	if err != nil {
		return nil, fmt.Errorf("facilities layer: %w", err)
	}
	opts = append(opts, s.layerOptions()...)
	col := geoframe.GeometryColumn
	switch s.Model {
	case KindLSCP:
		return model(locate.NewLSCPFromGeoFrame(dem, fac, col, col, s.ServiceRadius, opts...))
	case KindLSCPB:
		return model(locate.NewLSCPBFromGeoFrame(dem, fac, col, col, s.ServiceRadius, opts...))
	case KindMCLP:
		return model(locate.NewMCLPFromGeoFrame(dem, fac, col, col, s.ServiceRadius, s.PFacilities, opts...))
	case KindPCenter:
		return model(locate.NewPCenterFromGeoFrame(dem, fac, col, col, s.PFacilities, opts...))
	case KindPMedian:
		return model(locate.NewPMedianFromGeoFrame(dem, fac, col, col, s.PFacilities, opts...))
	}
	return nil, invalidf("unknown model %q", s.Model)
}

// NewSolver returns the solver configured by the scenario.
func (s *Scenario) NewSolver() (milp.Solver, error) {
	switch s.Solver.Backend {
	case "", BackendPB:
		opts := []pbsolver.Option{pbsolver.WithVerbose(s.Solver.Verbose)}
		if s.Solver.Precision != nil {
			opts = append(opts, pbsolver.WithPrecision(*s.Solver.Precision))
		}
		return pbsolver.New(opts...), nil
	}
	return nil, invalidf("unknown solver backend %q", s.Solver.Backend)
}

// Run builds the model, writes the requested exports and solves it. Solves are recorded
// on metrics.Registry.
func (s *Scenario) Run() (locate.Model, error) {
	metrics.Register()
	m, err := s.Build()
	if err != nil {
		return nil, err
	}
	if err := s.export(m.Problem()); err != nil {
		return nil, err
	}
	solver, err := s.NewSolver()
	if err != nil {
		return nil, err
	}
	var opts []locate.SolveOption
	if s.Results != nil && !*s.Results {
		opts = append(opts, locate.WithoutResults())
	}
	if err := m.SolveModel(solver, opts...); err != nil {
		return nil, err
	}
	log.Infof("scenario %q: %s ended %v", s.Name, m.Name(), m.Status())
	return m, nil
}

func (s *Scenario) export(p *milp.Problem) error {
	if s.Export.LP == "" && s.Export.MPModel == "" {
		return nil
	}
	m, err := p.Model()
	if err != nil {
		return err
	}
	if s.Export.LP != "" {
		lp, err := milp.ExportModelAsLpFormat(m, milp.ExportOptions{})
		if err != nil {
			return err
		}
		if err := os.WriteFile(s.path(s.Export.LP), []byte(lp), 0o644); err != nil {
			return err
		}
	}
	if s.Export.MPModel != "" {
		b, err := milp.MarshalMPModel(m)
		if err != nil {
			return err
		}
		if err := os.WriteFile(s.path(s.Export.MPModel), b, 0o644); err != nil {
			return err
		}
	}
	return nil
}
