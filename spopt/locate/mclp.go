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

// MCLP is the Maximal Covering Location Problem: site exactly p facilities so that the
// total weight of the clients within the service radius of a sited facility is maximal.
//
//	maximize    sum_i w_i * x_i
//	subject to  sum_j a_ij * y_j >= x_i   for every client i
//	            sum_j y_j == p
//	            x_i, y_j in {0, 1}
type MCLP struct {
	base
	radius   float64
	p        int
	weights  []float64
	coverage *mat.Dense
}

var _ Model = (*MCLP)(nil)

// NewMCLP builds an MCLP siting `p` facilities. Client weights default to 1.
func NewMCLP(cost mat.Matrix, radius float64, p int, opts ...Option) (*MCLP, error) {
	o := newOptions("mclp", opts)
	nCli, nFac := cost.Dims()
	weights, err := o.clientWeights(nCli)
	if err != nil {
		return nil, err
	}
	m := &MCLP{
		base:     newBase(o.name, milp.Maximize, nCli),
		radius:   radius,
		p:        p,
		weights:  weights,
		coverage: CoverageMatrix(cost, radius),
	}
	AddFacilityVariable(m.fm, nFac, "y[%d]")
	AddClientVariable(m.fm, nCli, "x[%d]")
	m.fm.Problem.Maximize(milp.NewLinearExpr().AddWeightedSum(milp.Vars(m.fm.CliVars), weights))
	if err := AddMaximalCoverageConstraint(m.fm, m.coverage); err != nil {
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

// NewMCLPFromGeoFrame builds an MCLP from the distances between the demand and facility
// geometries.
func NewMCLPFromGeoFrame(demand, facility *geoframe.Frame, demandCol, facilityCol string, radius float64, p int, opts ...Option) (*MCLP, error) {
	res, opts, err := fromGeoFrame(demand, facility, demandCol, facilityCol, opts)
	if err != nil {
		return nil, err
	}
	m, err := NewMCLP(res.Cost, radius, p, opts...)
	if err != nil {
		return nil, err
	}
	m.warnings = res.Warnings
	return m, nil
}

// Solve solves the model and returns it.
func (m *MCLP) Solve(s milp.Solver, opts ...SolveOption) (*MCLP, error) {
	return m, m.SolveModel(s, opts...)
}

// SolveModel implements Model.
func (m *MCLP) SolveModel(s milp.Solver, opts ...SolveOption) error {
	return m.solve(s, opts, func() [][]int {
		return coverageFacilityArray(m.fm, m.coverage, func(i int) bool {
			return m.fm.CliVars[i].Value() > 0.5
		})
	})
}

// Coverage returns the client by facility coverage matrix.
func (m *MCLP) Coverage() *mat.Dense {
	return m.coverage
}

// CoveragePercentage returns the percentage of clients covered by a sited facility.
func (m *MCLP) CoveragePercentage() (float64, error) {
	cli2fac, err := m.Cli2Fac()
	if err != nil {
		return 0, err
	}
	if len(cli2fac) == 0 {
		return 0, nil
	}
	covered := 0
	for _, facs := range cli2fac {
		if len(facs) > 0 {
			covered++
		}
	}
	return float64(covered) / float64(len(cli2fac)) * 100, nil
}
