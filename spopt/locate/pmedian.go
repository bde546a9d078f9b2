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

package locate

import (
	"github.com/weikang9009/spopt/spopt/locate/geoframe"
	"github.com/weikang9009/spopt/spopt/milp"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// PMedian sites exactly p facilities and assigns every client to one of them so that
// the total weighted assignment cost is minimal.
//
//	minimize    sum_i sum_j w_i * c_ij * z_ij
//	subject to  sum_j z_ij == 1     for every client i
//	            z_ij <= y_j         for every client i and facility j
//	            sum_j y_j == p
//	            y_j, z_ij in {0, 1}
type PMedian struct {
	base
	p       int
	weights []float64
}

var _ Model = (*PMedian)(nil)

// NewPMedian builds a PMedian siting `p` facilities. Client weights default to 1.
func NewPMedian(cost mat.Matrix, p int, opts ...Option) (*PMedian, error) {
	o := newOptions("p-median", opts)
	nCli, nFac := cost.Dims()
	weights, err := o.clientWeights(nCli)
	if err != nil {
		return nil, err
	}
	m := &PMedian{
		base:    newBase(o.name, milp.Minimize, nCli),
		p:       p,
		weights: weights,
	}
	AddFacilityVariable(m.fm, nFac, "y[%d]")
	AddAssignmentVariable(m.fm, nCli, nFac, "z[%d_%d]")
	obj := milp.NewLinearExpr()
	for i, zs := range m.fm.CliAssignVars {
		for j, z := range zs {
			obj.AddTerm(z, weights[i]*cost.At(i, j))
		}
	}
	m.fm.Problem.Minimize(obj)
	if err := AddAssignmentConstraint(m.fm); err != nil {
		return nil, err
	}
	if err := AddOpeningConstraint(m.fm); err != nil {
		return nil, err
	}
	if err := AddFacilityConstraint(m.fm, p); err != nil {
		return nil, err
	}
	if len(o.predefined) > 0 {
		if err := AddPredefinedFacilityConstraint(m.fm, o.predefined); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewPMedianFromGeoFrame builds a PMedian from the distances between the demand and
// facility geometries.
func NewPMedianFromGeoFrame(demand, facility *geoframe.Frame, demandCol, facilityCol string, p int, opts ...Option) (*PMedian, error) {
	res, opts, err := fromGeoFrame(demand, facility, demandCol, facilityCol, opts)
	if err != nil {
		return nil, err
	}
	m, err := NewPMedian(res.Cost, p, opts...)
	if err != nil {
		return nil, err
	}
	m.warnings = res.Warnings
	return m, nil
}

// Solve solves the model and returns it.
func (m *PMedian) Solve(s milp.Solver, opts ...SolveOption) (*PMedian, error) {
	return m, m.SolveModel(s, opts...)
}

// SolveModel implements Model.
func (m *PMedian) SolveModel(s milp.Solver, opts ...SolveOption) error {
	return m.solve(s, opts, func() [][]int {
		return assignmentFacilityArray(m.fm)
	})
}

// MeanDistance returns the weighted mean assignment cost of the solution.
func (m *PMedian) MeanDistance() (float64, error) {
	if m.fac2cli == nil {
		return 0, ErrResultsNotComputed
	}
	total := floats.Sum(m.weights)
	if total == 0 {
		return 0, nil
	}
	return m.ObjectiveValue() / total, nil
}
