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

// PCenter sites exactly p facilities and assigns every client to one of them so that
// the largest assignment cost is minimal.
//
//	minimize    W
//	subject to  sum_j z_ij == 1            for every client i
//	            z_ij <= y_j                for every client i and facility j
//	            sum_j c_ij * z_ij <= W     for every client i
//	            sum_j y_j == p
//	            y_j, z_ij in {0, 1}, W >= 0
type PCenter struct {
	base
	p    int
	cost mat.Matrix
}

var _ Model = (*PCenter)(nil)

// NewPCenter builds a PCenter siting `p` facilities.
func NewPCenter(cost mat.Matrix, p int, opts ...Option) (*PCenter, error) {
	o := newOptions("p-center", opts)
	nCli, nFac := cost.Dims()
	m := &PCenter{
		base: newBase(o.name, milp.Minimize, nCli),
		p:    p,
		cost: cost,
	}
	AddFacilityVariable(m.fm, nFac, "y[%d]")
	AddAssignmentVariable(m.fm, nCli, nFac, "z[%d_%d]")
	AddWeightVariable(m.fm)
	m.fm.Problem.Minimize(*m.fm.WeightVar)
	for _, add := range []func() error{
		func() error { return AddAssignmentConstraint(m.fm) },
		func() error { return AddOpeningConstraint(m.fm) },
		func() error { return AddMinimizedMaximumConstraint(m.fm, cost) },
		func() error { return AddFacilityConstraint(m.fm, p) },
	} {
		if err := add(); err != nil {
			return nil, err
		}
	}
	if len(o.predefined) > 0 {
		if err := AddPredefinedFacilityConstraint(m.fm, o.predefined); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewPCenterFromGeoFrame builds a PCenter from the distances between the demand and
// facility geometries.
func NewPCenterFromGeoFrame(demand, facility *geoframe.Frame, demandCol, facilityCol string, p int, opts ...Option) (*PCenter, error) {
	res, opts, err := fromGeoFrame(demand, facility, demandCol, facilityCol, opts)
	if err != nil {
		return nil, err
	}
	m, err := NewPCenter(res.Cost, p, opts...)
	if err != nil {
		return nil, err
	}
	m.warnings = res.Warnings
	return m, nil
}

// Solve solves the model and returns it.
func (m *PCenter) Solve(s milp.Solver, opts ...SolveOption) (*PCenter, error) {
	return m, m.SolveModel(s, opts...)
}

// SolveModel implements Model.
func (m *PCenter) SolveModel(s milp.Solver, opts ...SolveOption) error {
	return m.solve(s, opts, func() [][]int {
		return assignmentFacilityArray(m.fm)
	})
}
