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

package milp

import (
	"fmt"
	"math"
)

// Status is the outcome of an optimization.
type Status int8

const (
	// NotSolved means no solver has been run on the problem yet.
	NotSolved Status = iota
	// Optimal means the solver proved the returned solution optimal.
	Optimal
	// Infeasible means the solver proved that no solution satisfies the constraints.
	Infeasible
	// Unbounded means the objective can be improved without limit.
	Unbounded
	// Undefined means the solver stopped without a conclusive answer.
	Undefined
)

func (s Status) String() string {
	switch s {
	case NotSolved:
		return "Not Solved"
	case Optimal:
		return "Optimal"
	case Infeasible:
		return "Infeasible"
	case Unbounded:
		return "Unbounded"
	case Undefined:
		return "Undefined"
	}
	return fmt.Sprintf("Status(%d)", int8(s))
}

// VariableSpec describes one column of a Model. The field layout follows
// operations_research.MPVariableProto.
type VariableSpec struct {
	Name                 string
	LowerBound           float64
	UpperBound           float64
	ObjectiveCoefficient float64
	IsInteger            bool
}

// Bounds returns the bounds of the variable as an Interval.
func (v VariableSpec) Bounds() Interval {
	return Interval{Lower: v.LowerBound, Upper: v.UpperBound}
}

// IsBinary reports whether the variable is an integer restricted to {0, 1}.
func (v VariableSpec) IsBinary() bool {
	return v.IsInteger && v.LowerBound >= 0 && v.UpperBound <= 1
}

// ConstraintSpec describes one row `LowerBound <= sum(Coefficient[k]*x[VarIndex[k]]) <= UpperBound`.
// The field layout follows operations_research.MPConstraintProto.
type ConstraintSpec struct {
	Name        string
	VarIndex    []int32
	Coefficient []float64
	LowerBound  float64
	UpperBound  float64
}

// Bounds returns the row bounds as an Interval.
func (c ConstraintSpec) Bounds() Interval {
	return Interval{Lower: c.LowerBound, Upper: c.UpperBound}
}

// Activity returns the value of the row's linear expression for `values`.
func (c ConstraintSpec) Activity(values []float64) float64 {
	var a float64
	for k, ind := range c.VarIndex {
		a += c.Coefficient[k] * values[ind]
	}
	return a
}

// SolutionHint is a partial assignment handed to solvers able to warm start.
type SolutionHint struct {
	VarIndex []int32
	VarValue []float64
}

// Model is an immutable snapshot of a Problem, handed to solvers.
type Model struct {
	Name            string
	Maximize        bool
	ObjectiveOffset float64
	Variables       []VariableSpec
	Constraints     []ConstraintSpec
	SolutionHint    *SolutionHint
}

// ObjectiveValue evaluates the objective for `values`.
func (m *Model) ObjectiveValue(values []float64) float64 {
	obj := m.ObjectiveOffset
	for i, v := range m.Variables {
		obj += v.ObjectiveCoefficient * values[i]
	}
	return obj
}

// Solution is what a Solver returns. Values is indexed like Model.Variables and is only
// meaningful when Status is Optimal.
type Solution struct {
	Status         Status
	ObjectiveValue float64
	Values         []float64
}

// Solver is an optimization engine. Optimize must not modify the model. Infeasible and
// unbounded models are reported through Solution.Status; the error return is reserved for
// failures of the solver itself.
type Solver interface {
	Optimize(m *Model) (*Solution, error)
}

// NamedSolver is implemented by solvers that report a name for logs and metrics.
type NamedSolver interface {
	Solver
	Name() string
}

// CheckSolution returns an error describing the first variable bound, integrality or row
// violated by `values` by more than `tol`.
func CheckSolution(m *Model, values []float64, tol float64) error {
	if len(values) != len(m.Variables) {
		return fmt.Errorf("solution has %d values, model has %d variables", len(values), len(m.Variables))
	}
	for i, v := range m.Variables {
		x := values[i]
		if !v.Bounds().Contains(x, tol) {
			return fmt.Errorf("variable %d (%q) = %v outside bounds %v", i, v.Name, x, v.Bounds())
		}
		if v.IsInteger && math.Abs(x-math.Round(x)) > tol {
			return fmt.Errorf("integer variable %d (%q) has fractional value %v", i, v.Name, x)
		}
	}
	for i, c := range m.Constraints {
		if a := c.Activity(values); !c.Bounds().Contains(a, tol) {
			return fmt.Errorf("constraint %d (%q) activity %v outside bounds %v", i, c.Name, a, c.Bounds())
		}
	}
	return nil
}
