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
	"errors"
	"fmt"

	"github.com/weikang9009/spopt/spopt/milp"
	"gonum.org/v1/gonum/mat"
)

// ErrVariableNotSet is wrapped by every OrderingError.
var ErrVariableNotSet = errors.New("decision variable not set")

// ErrDimension is returned when a matrix does not match the decision variables.
var ErrDimension = errors.New("matrix dimensions do not match decision variables")

// OrderingError is returned by a constraint adder called before the decision variables it
// references were added.
type OrderingError struct {
	Constraint string
	Variable   string
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("before setting %s constraints must set %s variable", e.Constraint, e.Variable)
}

// Unwrap returns ErrVariableNotSet.
func (e *OrderingError) Unwrap() error {
	return ErrVariableNotSet
}

// FacilityModel holds a problem and the decision variables attached to it. A nil slot
// means the corresponding variables have not been added yet.
//
// The Add functions below are not idempotent: calling one twice adds its variables or
// rows twice.
type FacilityModel struct {
	Problem *milp.Problem
	// FacVars[j] is 1 when facility j is sited.
	FacVars []milp.Var
	// CliVars[i] is 1 when client i is covered (or backed up, for LSCPB).
	CliVars []milp.Var
	// CliAssignVars[i][j] is 1 when client i is served by facility j.
	CliAssignVars [][]milp.Var
	// WeightVar is the maximum assigned cost minimized by PCenter.
	WeightVar *milp.Var
}

// NewFacilityModel returns a FacilityModel around a new empty problem.
func NewFacilityModel(name string, sense milp.Sense) *FacilityModel {
	return &FacilityModel{Problem: milp.NewProblem(name, sense)}
}

// AddFacilityVariable adds one binary variable per candidate facility, named by
// fmt.Sprintf(nameFmt, j).
func AddFacilityVariable(fm *FacilityModel, nFacilities int, nameFmt string) {
	fm.FacVars = make([]milp.Var, nFacilities)
	for j := range fm.FacVars {
		fm.FacVars[j] = fm.Problem.NewBinaryVar().WithName(fmt.Sprintf(nameFmt, j))
	}
}

// AddClientVariable adds one binary variable per client, named by fmt.Sprintf(nameFmt, i).
func AddClientVariable(fm *FacilityModel, nClients int, nameFmt string) {
	fm.CliVars = make([]milp.Var, nClients)
	for i := range fm.CliVars {
		fm.CliVars[i] = fm.Problem.NewBinaryVar().WithName(fmt.Sprintf(nameFmt, i))
	}
}

// AddAssignmentVariable adds one binary variable per client and facility pair, named by
// fmt.Sprintf(nameFmt, i, j).
func AddAssignmentVariable(fm *FacilityModel, nClients, nFacilities int, nameFmt string) {
	fm.CliAssignVars = make([][]milp.Var, nClients)
	for i := range fm.CliAssignVars {
		fm.CliAssignVars[i] = make([]milp.Var, nFacilities)
		for j := range fm.CliAssignVars[i] {
			fm.CliAssignVars[i][j] = fm.Problem.NewBinaryVar().WithName(fmt.Sprintf(nameFmt, i, j))
		}
	}
}

// AddWeightVariable adds the continuous variable W >= 0.
func AddWeightVariable(fm *FacilityModel) {
	w := fm.Problem.NewContinuousVar(0, inf).WithName("W")
	fm.WeightVar = &w
}

func requireFacility(fm *FacilityModel, constraint string) error {
	if fm.FacVars == nil {
		return &OrderingError{Constraint: constraint, Variable: "facility"}
	}
	return nil
}

func requireClient(fm *FacilityModel, constraint string) error {
	if fm.CliVars == nil {
		return &OrderingError{Constraint: constraint, Variable: "client"}
	}
	return nil
}

func requireAssignment(fm *FacilityModel, constraint string) error {
	if fm.CliAssignVars == nil {
		return &OrderingError{Constraint: constraint, Variable: "client assignment"}
	}
	return nil
}

func checkDims(m mat.Matrix, rows, cols int, what string) error {
	r, c := m.Dims()
	if r != rows || c != cols {
		return fmt.Errorf("%s is %dx%d, want %dx%d: %w", what, r, c, rows, cols, ErrDimension)
	}
	return nil
}

// coverageExpr returns sum_j a_ij * y_j for client i.
func coverageExpr(fm *FacilityModel, coverage mat.Matrix, i int) *milp.LinearExpr {
	expr := milp.NewLinearExpr()
	for j, y := range fm.FacVars {
		if a := coverage.At(i, j); a != 0 {
			expr.AddTerm(y, a)
		}
	}
	return expr
}

// AddSetCoveringConstraint requires every client to be covered by at least one sited
// facility: sum_j a_ij * y_j >= 1. `coverage` has one row per client and one column
// per facility.
func AddSetCoveringConstraint(fm *FacilityModel, coverage mat.Matrix) error {
	if err := requireFacility(fm, "set covering"); err != nil {
		return err
	}
	nCli, _ := coverage.Dims()
	if err := checkDims(coverage, nCli, len(fm.FacVars), "coverage matrix"); err != nil {
		return err
	}
	for i := 0; i < nCli; i++ {
		fm.Problem.AddLinearConstraint(coverageExpr(fm, coverage, i), 1, inf)
	}
	return nil
}

// AddFacilityConstraint requires exactly `p` facilities to be sited.
func AddFacilityConstraint(fm *FacilityModel, p int) error {
	if err := requireFacility(fm, "facility"); err != nil {
		return err
	}
	sum := milp.NewLinearExpr().AddSum(milp.Vars(fm.FacVars)...)
	fm.Problem.AddEquality(sum, milp.NewConstant(float64(p)))
	return nil
}

// AddMaximalCoverageConstraint lets a client count as covered only if a sited facility
// covers it: sum_j a_ij * y_j >= x_i.
func AddMaximalCoverageConstraint(fm *FacilityModel, coverage mat.Matrix) error {
	if err := requireFacility(fm, "maximal coverage"); err != nil {
		return err
	}
	if err := requireClient(fm, "maximal coverage"); err != nil {
		return err
	}
	if err := checkDims(coverage, len(fm.CliVars), len(fm.FacVars), "coverage matrix"); err != nil {
		return err
	}
	for i, x := range fm.CliVars {
		fm.Problem.AddGreaterOrEqual(coverageExpr(fm, coverage, i), x)
	}
	return nil
}

// AddAssignmentConstraint assigns every client to exactly one facility:
// sum_j z_ij == 1.
func AddAssignmentConstraint(fm *FacilityModel) error {
	if err := requireAssignment(fm, "assignment"); err != nil {
		return err
	}
	for _, zs := range fm.CliAssignVars {
		sum := milp.NewLinearExpr().AddSum(milp.Vars(zs)...)
		fm.Problem.AddEquality(sum, milp.NewConstant(1))
	}
	return nil
}

// AddOpeningConstraint only lets clients be assigned to sited facilities: z_ij <= y_j.
func AddOpeningConstraint(fm *FacilityModel) error {
	if err := requireFacility(fm, "opening"); err != nil {
		return err
	}
	if err := requireAssignment(fm, "opening"); err != nil {
		return err
	}
	for i, zs := range fm.CliAssignVars {
		if len(zs) != len(fm.FacVars) {
			return fmt.Errorf("client %d has %d assignment variables, %d facilities: %w", i, len(zs), len(fm.FacVars), ErrDimension)
		}
		for j, z := range zs {
			fm.Problem.AddLessOrEqual(z, fm.FacVars[j])
		}
	}
	return nil
}

// AddMinimizedMaximumConstraint bounds the cost of every assignment by the weight
// variable: sum_j c_ij * z_ij <= W.
func AddMinimizedMaximumConstraint(fm *FacilityModel, cost mat.Matrix) error {
	if err := requireAssignment(fm, "minimized maximum"); err != nil {
		return err
	}
	if fm.WeightVar == nil {
		return &OrderingError{Constraint: "minimized maximum", Variable: "weight"}
	}
	nFac := 0
	if len(fm.CliAssignVars) > 0 {
		nFac = len(fm.CliAssignVars[0])
	}
	if err := checkDims(cost, len(fm.CliAssignVars), nFac, "cost matrix"); err != nil {
		return err
	}
	for i, zs := range fm.CliAssignVars {
		expr := milp.NewLinearExpr()
		for j, z := range zs {
			expr.AddTerm(z, cost.At(i, j))
		}
		fm.Problem.AddLessOrEqual(expr, *fm.WeightVar)
	}
	return nil
}

// AddBackupCoveringConstraint requires every client to be covered, and lets the client
// variable u_i count a second covering facility where one exists:
// sum_j a_ij * y_j >= 1 + u_i if client i has at least two candidate facilities, and
// sum_j a_ij * y_j >= 1 otherwise.
func AddBackupCoveringConstraint(fm *FacilityModel, coverage mat.Matrix) error {
	if err := requireFacility(fm, "backup covering"); err != nil {
		return err
	}
	if err := requireClient(fm, "backup covering"); err != nil {
		return err
	}
	if err := checkDims(coverage, len(fm.CliVars), len(fm.FacVars), "coverage matrix"); err != nil {
		return err
	}
	for i, u := range fm.CliVars {
		expr := coverageExpr(fm, coverage, i)
		var candidates float64
		for j := range fm.FacVars {
			candidates += coverage.At(i, j)
		}
		if candidates >= 2 {
			fm.Problem.AddGreaterOrEqual(expr, milp.NewConstant(1).Add(u))
		} else {
			fm.Problem.AddLinearConstraint(expr, 1, inf)
		}
	}
	return nil
}

// AddPredefinedFacilityConstraint forces the given facilities to be sited and hints them
// as sited to solvers able to warm start.
func AddPredefinedFacilityConstraint(fm *FacilityModel, indices []int) error {
	if err := requireFacility(fm, "predefined facility"); err != nil {
		return err
	}
	hint := make(milp.Hint, len(indices))
	for _, j := range indices {
		if j < 0 || j >= len(fm.FacVars) {
			return fmt.Errorf("predefined facility %d out of range [0,%d): %w", j, len(fm.FacVars), ErrDimension)
		}
		fm.FacVars[j].SetLowerBound(1)
		hint[fm.FacVars[j]] = 1
	}
	fm.Problem.SetHint(hint)
	return nil
}
