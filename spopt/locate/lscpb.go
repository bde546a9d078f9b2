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
	"fmt"
	"math"

	log "github.com/golang/glog"
	"github.com/weikang9009/spopt/spopt/locate/geoframe"
	"github.com/weikang9009/spopt/spopt/milp"
	"gonum.org/v1/gonum/mat"
)

// LSCPB is the Location Set Covering Problem with Backup. It first solves an LSCP on the
// same coverage to find the minimal number p of facilities, then sites exactly p
// facilities so that the number of clients covered twice is maximal.
//
//	maximize    sum_i u_i
//	subject to  sum_j a_ij * y_j >= 1 + u_i   for every client i with two candidates or more
//	            sum_j a_ij * y_j >= 1         for every other client i
//	            sum_j y_j == p
//	            u_i, y_j in {0, 1}
type LSCPB struct {
	base
	radius     float64
	coverage   *mat.Dense
	lscp       *LSCP
	facilities int
}

var _ Model = (*LSCPB)(nil)

// NewLSCPB builds an LSCPB. Predefined facilities apply to both stages.
func NewLSCPB(cost mat.Matrix, radius float64, opts ...Option) (*LSCPB, error) {
	o := newOptions("lscp-b", opts)
	lscpOpts := append(append([]Option(nil), opts...), WithName(o.name+"-lscp"))
	lscp, err := NewLSCP(cost, radius, lscpOpts...)
	if err != nil {
		return nil, err
	}
	nCli, nFac := cost.Dims()
	m := &LSCPB{
		base:     newBase(o.name, milp.Maximize, nCli),
		radius:   radius,
		coverage: lscp.Coverage(),
		lscp:     lscp,
	}
	AddFacilityVariable(m.fm, nFac, "y[%d]")
	AddClientVariable(m.fm, nCli, "u[%d]")
	m.fm.Problem.Maximize(milp.NewLinearExpr().AddSum(milp.Vars(m.fm.CliVars)...))
	if err := AddBackupCoveringConstraint(m.fm, m.coverage); err != nil {
		return nil, err
	}
	if len(o.predefined) > 0 {
		if err := AddPredefinedFacilityConstraint(m.fm, o.predefined); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewLSCPBFromGeoFrame builds an LSCPB from the distances between the demand and
// facility geometries.
func NewLSCPBFromGeoFrame(demand, facility *geoframe.Frame, demandCol, facilityCol string, radius float64, opts ...Option) (*LSCPB, error) {
	res, opts, err := fromGeoFrame(demand, facility, demandCol, facilityCol, opts)
	if err != nil {
		return nil, err
	}
	m, err := NewLSCPB(res.Cost, radius, opts...)
	if err != nil {
		return nil, err
	}
	m.warnings = res.Warnings
	m.lscp.warnings = res.Warnings
	return m, nil
}

// LSCP returns the first stage model.
func (m *LSCPB) LSCP() *LSCP {
	return m.lscp
}

// Facilities returns the number of facilities fixed by the first stage, 0 before a solve.
func (m *LSCPB) Facilities() int {
	return m.facilities
}

// Coverage returns the client by facility coverage matrix.
func (m *LSCPB) Coverage() *mat.Dense {
	return m.coverage
}

// Solve solves both stages and returns the model.
func (m *LSCPB) Solve(s milp.Solver, opts ...SolveOption) (*LSCPB, error) {
	return m, m.SolveModel(s, opts...)
}

// SolveModel implements Model. When the first stage has no optimal solution, the second
// stage is solved without the facility count and ends with the same status.
func (m *LSCPB) SolveModel(s milp.Solver, opts ...SolveOption) error {
	if err := m.lscp.SolveModel(s, WithoutResults()); err != nil {
		return fmt.Errorf("solving %s failed: %w", m.lscp.Name(), err)
	}
	if m.lscp.Status() == milp.Optimal {
		m.facilities = int(math.Round(m.lscp.ObjectiveValue()))
		if err := AddFacilityConstraint(m.fm, m.facilities); err != nil {
			return err
		}
	} else {
		log.Warningf("%s: first stage ended %v, solving backup coverage without facility count", m.name, m.lscp.Status())
	}
	return m.solve(s, opts, func() [][]int {
		return coverageFacilityArray(m.fm, m.coverage, nil)
	})
}

// BackupPercentage returns the percentage of clients covered by at least two sited
// facilities.
func (m *LSCPB) BackupPercentage() (float64, error) {
	cli2fac, err := m.Cli2Fac()
	if err != nil {
		return 0, err
	}
	if len(cli2fac) == 0 {
		return 0, nil
	}
	backup := 0
	for _, facs := range cli2fac {
		if len(facs) >= 2 {
			backup++
		}
	}
	return float64(backup) / float64(len(cli2fac)) * 100, nil
}
