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
	"gonum.org/v1/gonum/mat"
)

// LSCP is the Location Set Covering Problem: site the fewest facilities such that every
// client lies within the service radius of a sited facility.
//
//	minimize    sum_j y_j
//	subject to  sum_j a_ij * y_j >= 1   for every client i
//	            y_j in {0, 1}
//
// where a_ij is 1 when cost(i, j) <= radius.
type LSCP struct {
	base
	radius   float64
	coverage *mat.Dense
}

var _ Model = (*LSCP)(nil)

// NewLSCP builds an LSCP from a cost matrix with one row per client and one column per
// candidate facility.
func NewLSCP(cost mat.Matrix, radius float64, opts ...Option) (*LSCP, error) {
	o := newOptions("lscp", opts)
	nCli, nFac := cost.Dims()
	m := &LSCP{
		base:     newBase(o.name, milp.Minimize, nCli),
		radius:   radius,
		coverage: CoverageMatrix(cost, radius),
	}
	AddFacilityVariable(m.fm, nFac, "y[%d]")
	m.fm.Problem.Minimize(milp.NewLinearExpr().AddSum(milp.Vars(m.fm.FacVars)...))
	if err := AddSetCoveringConstraint(m.fm, m.coverage); err != nil {
		return nil, err
	}
	if len(o.predefined) > 0 {
		if err := AddPredefinedFacilityConstraint(m.fm, o.predefined); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewLSCPFromGeoFrame builds an LSCP from the distances between the demand and facility
// geometries.
func NewLSCPFromGeoFrame(demand, facility *geoframe.Frame, demandCol, facilityCol string, radius float64, opts ...Option) (*LSCP, error) {
	res, opts, err := fromGeoFrame(demand, facility, demandCol, facilityCol, opts)
	if err != nil {
		return nil, err
	}
	m, err := NewLSCP(res.Cost, radius, opts...)
	if err != nil {
		return nil, err
	}
	m.warnings = res.Warnings
	return m, nil
}

// Radius returns the service radius.
func (m *LSCP) Radius() float64 {
	return m.radius
}

// Coverage returns the client by facility coverage matrix.
func (m *LSCP) Coverage() *mat.Dense {
	return m.coverage
}

// Solve solves the model and returns it.
func (m *LSCP) Solve(s milp.Solver, opts ...SolveOption) (*LSCP, error) {
	return m, m.SolveModel(s, opts...)
}

// SolveModel implements Model.
func (m *LSCP) SolveModel(s milp.Solver, opts ...SolveOption) error {
	return m.solve(s, opts, func() [][]int {
		return coverageFacilityArray(m.fm, m.coverage, nil)
	})
}
