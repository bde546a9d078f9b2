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

// Package milp offers a solver-agnostic API to build mixed-integer linear programs.
//
// The `Problem` struct owns the variables, rows and objective of the program and provides
// helper methods for adding them.
// The `Var` and `Constraint` structs are references to specific columns and rows of a
// Problem.
// The `LinearExpr` struct provides helper methods for creating constraints and the
// objective from expressions with many variables and coefficients.
// Solving is delegated to any `Solver`, which receives an immutable `Model` snapshot.
package milp

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	log "github.com/golang/glog"
	"github.com/weikang9009/spopt/spopt/metrics"
)

var (
	// ErrMixedModels holds the error when elements added to a problem are from another problem.
	ErrMixedModels = errors.New("elements are not part of the same model")
	// ErrSolved holds the error when a problem is modified after it has been solved.
	ErrSolved = errors.New("problem has already been solved")
)

type (
	// VarIndex is the index of a variable in the problem.
	VarIndex int32
	// ConstrIndex is the index of a constraint in the problem.
	ConstrIndex int32
)

// Sense is the optimization direction of the objective.
type Sense int8

const (
	// Minimize asks for the smallest objective value.
	Minimize Sense = iota
	// Maximize asks for the largest objective value.
	Maximize
)

func (s Sense) String() string {
	if s == Maximize {
		return "Maximize"
	}
	return "Minimize"
}

// LinearArgument provides an interface for Var and LinearExpr.
type LinearArgument interface {
	addToLinearExpr(e *LinearExpr, c float64)
	evaluateSolutionValue(values []float64) float64
}

// LinearExpr is a container for a linear expression.
type LinearExpr struct {
	varCoeffs []varCoeff
	offset    float64
}

type varCoeff struct {
	ind   VarIndex
	coeff float64
	p     *Problem
}

// NewLinearExpr creates a new empty LinearExpr.
func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// NewConstant creates and returns a LinearExpr containing the constant `c`.
func NewConstant(c float64) *LinearExpr {
	return &LinearExpr{offset: c}
}

// Add adds the linear argument term to the LinearExpr and returns itself.
func (l *LinearExpr) Add(la LinearArgument) *LinearExpr {
	l.AddTerm(la, 1)
	return l
}

// AddConstant adds the constant to the LinearExpr and returns itself.
func (l *LinearExpr) AddConstant(c float64) *LinearExpr {
	l.offset += c
	return l
}

// AddTerm adds the linear argument term with the given coefficient to the LinearExpr and returns itself.
func (l *LinearExpr) AddTerm(la LinearArgument, coeff float64) *LinearExpr {
	la.addToLinearExpr(l, coeff)
	return l
}

// AddSum adds the sum of the linear arguments to the LinearExpr and returns itself.
func (l *LinearExpr) AddSum(las ...LinearArgument) *LinearExpr {
	for _, la := range las {
		l.Add(la)
	}
	return l
}

// AddWeightedSum adds the linear arguments with the corresponding coefficients to the LinearExpr
// and returns itself.
func (l *LinearExpr) AddWeightedSum(las []LinearArgument, coeffs []float64) *LinearExpr {
	if len(coeffs) != len(las) {
		log.Fatalf("las and coeffs must be the same length: %v != %v", len(las), len(coeffs))
	}
	for i, la := range las {
		l.AddTerm(la, coeffs[i])
	}
	return l
}

// Len returns the number of terms in the expression, duplicates included.
func (l *LinearExpr) Len() int {
	return len(l.varCoeffs)
}

// Offset returns the constant part of the expression.
func (l *LinearExpr) Offset() float64 {
	return l.offset
}

func (l *LinearExpr) addToLinearExpr(e *LinearExpr, c float64) {
	for _, vc := range l.varCoeffs {
		e.varCoeffs = append(e.varCoeffs, varCoeff{ind: vc.ind, coeff: vc.coeff * c, p: vc.p})
	}
	e.offset += l.offset * c
}

func (l *LinearExpr) evaluateSolutionValue(values []float64) float64 {
	result := l.offset
	for _, vc := range l.varCoeffs {
		result += values[vc.ind] * vc.coeff
	}
	return result
}

// Vars wraps a slice of variables as linear arguments, e.g. to pass them to AddSum.
func Vars(vs []Var) []LinearArgument {
	las := make([]LinearArgument, len(vs))
	for i, v := range vs {
		las[i] = v
	}
	return las
}

// Var is a reference to a variable in the problem.
type Var struct {
	ind VarIndex
	p   *Problem
}

// Name returns the name of the variable.
func (v Var) Name() string {
	return v.p.vars[v.ind].name
}

// Index returns the index of the variable.
func (v Var) Index() VarIndex {
	return v.ind
}

// Bounds returns the bounds of the variable.
func (v Var) Bounds() Interval {
	return v.p.vars[v.ind].bounds
}

// IsInteger reports whether the variable carries an integrality requirement.
func (v Var) IsInteger() bool {
	return v.p.vars[v.ind].integer
}

// WithName sets the name of the variable. Characters that LP files do not accept are
// replaced by underscores, so `y[3]` becomes `y_3_`.
func (v Var) WithName(s string) Var {
	v.p.checkMutable("renaming variable %v", v.ind)
	v.p.vars[v.ind].name = sanitizeName(s)
	return v
}

// SetLowerBound changes the lower bound of the variable.
func (v Var) SetLowerBound(lb float64) Var {
	v.p.checkMutable("changing lower bound of variable %v", v.ind)
	v.p.vars[v.ind].bounds.Lower = lb
	return v
}

// SetUpperBound changes the upper bound of the variable.
func (v Var) SetUpperBound(ub float64) Var {
	v.p.checkMutable("changing upper bound of variable %v", v.ind)
	v.p.vars[v.ind].bounds.Upper = ub
	return v
}

// Fix sets both bounds of the variable to `value`.
func (v Var) Fix(value float64) Var {
	return v.SetLowerBound(value).SetUpperBound(value)
}

// Value returns the value of the variable in the solution, or NaN if the problem holds no
// solution.
func (v Var) Value() float64 {
	return v.p.Value(v)
}

func (v Var) addToLinearExpr(e *LinearExpr, c float64) {
	e.varCoeffs = append(e.varCoeffs, varCoeff{ind: v.ind, coeff: c, p: v.p})
}

func (v Var) evaluateSolutionValue(values []float64) float64 {
	return values[v.ind]
}

// Constraint is a reference to a row in the problem.
type Constraint struct {
	ind ConstrIndex
	p   *Problem
}

// WithName sets the name of the constraint.
func (c Constraint) WithName(s string) Constraint {
	c.p.checkMutable("renaming constraint %v", c.ind)
	c.p.rows[c.ind].name = sanitizeName(s)
	return c
}

// Name returns the name of the constraint.
func (c Constraint) Name() string {
	return c.p.rows[c.ind].name
}

// Index returns the index of the constraint.
func (c Constraint) Index() ConstrIndex {
	return c.ind
}

// Bounds returns the bounds of the row, offsets of the expression already moved to them.
func (c Constraint) Bounds() Interval {
	return c.p.rows[c.ind].bounds
}

// Len returns the number of distinct variables in the row.
func (c Constraint) Len() int {
	return len(c.p.rows[c.ind].vars)
}

// Coefficient returns the coefficient of `v` in the row, 0 if absent.
func (c Constraint) Coefficient(v Var) float64 {
	r := c.p.rows[c.ind]
	for k, ind := range r.vars {
		if ind == v.ind {
			return r.coeffs[k]
		}
	}
	return 0
}

// Activity returns the value of the row expression in the solution, or NaN if the
// problem holds no solution.
func (c Constraint) Activity() float64 {
	values := c.p.solutionValues()
	if values == nil {
		return math.NaN()
	}
	r := c.p.rows[c.ind]
	var a float64
	for k, ind := range r.vars {
		a += r.coeffs[k] * values[ind]
	}
	return a
}

type variable struct {
	name    string
	bounds  Interval
	integer bool
}

type row struct {
	name   string
	vars   []VarIndex
	coeffs []float64
	bounds Interval
}

// Problem holds a mixed-integer linear program: its variables, rows, objective, solution
// hint and, once solved, the solution returned by the solver.
type Problem struct {
	name      string
	sense     Sense
	vars      []*variable
	rows      []*row
	objective []varCoeff
	objOffset float64
	hint      map[VarIndex]float64

	solved   bool
	solution *Solution
	// The first and only the first error is reported in Model.
	err error
}

// NewProblem creates and returns a new empty Problem.
func NewProblem(name string, sense Sense) *Problem {
	return &Problem{name: name, sense: sense}
}

// Name returns the name of the problem.
func (p *Problem) Name() string {
	return p.name
}

// Sense returns the optimization direction.
func (p *Problem) Sense() Sense {
	return p.sense
}

// NumVariables returns the number of variables.
func (p *Problem) NumVariables() int {
	return len(p.vars)
}

// NumConstraints returns the number of rows.
func (p *Problem) NumConstraints() int {
	return len(p.rows)
}

// Var returns the variable at index `ind`.
func (p *Problem) Var(ind VarIndex) Var {
	return Var{ind: ind, p: p}
}

// Constraint returns the row at index `ind`.
func (p *Problem) Constraint(ind ConstrIndex) Constraint {
	return Constraint{ind: ind, p: p}
}

// LookupVar returns the variable with the given name, and false if there is none.
func (p *Problem) LookupVar(name string) (Var, bool) {
	name = sanitizeName(name)
	for i, v := range p.vars {
		if v.name == name {
			return Var{ind: VarIndex(i), p: p}, true
		}
	}
	return Var{}, false
}

func (p *Problem) checkMutable(format string, a ...any) bool {
	if !p.solved {
		return true
	}
	err := fmt.Errorf(format+": %w", append(a, ErrSolved)...)
	log.Errorf("%v", err)
	if p.err == nil {
		p.err = err
	}
	return false
}

// checkSameModelAndSetErrorf returns true if `p` and `p2` point to the same Problem.
// If false, an error with the error message `errString` is set on `p` if `p.err`
// is nil.
func (p *Problem) checkSameModelAndSetErrorf(p2 *Problem, format string, a ...any) bool {
	if p == p2 {
		return true
	}
	var args = make([]any, len(a)+1)
	copy(args, a)
	args[len(a)] = ErrMixedModels
	err := fmt.Errorf(format+": %w", args...)
	log.Errorf("%v; use `-log_backtrace_at` flag to get the error stack", err)
	if p.err == nil {
		p.err = err
	}
	return false
}

func (p *Problem) newVar(bounds Interval, integer bool) Var {
	p.checkMutable("adding variable %v", len(p.vars))
	v := Var{ind: VarIndex(len(p.vars)), p: p}
	p.vars = append(p.vars, &variable{bounds: bounds, integer: integer})
	return v
}

// NewBinaryVar creates a new integer variable restricted to {0, 1}.
func (p *Problem) NewBinaryVar() Var {
	return p.newVar(Interval{0, 1}, true)
}

// NewIntVar creates a new integer variable with bounds `[lb,ub]`.
func (p *Problem) NewIntVar(lb, ub float64) Var {
	return p.newVar(Interval{lb, ub}, true)
}

// NewContinuousVar creates a new continuous variable with bounds `[lb,ub]`. Use
// math.Inf for a missing bound.
func (p *Problem) NewContinuousVar(lb, ub float64) Var {
	return p.newVar(Interval{lb, ub}, false)
}

// normalize merges duplicated variables of `le`, keeping the order in which the variables
// first appear.
func (p *Problem) normalize(le *LinearExpr, what string) ([]VarIndex, []float64) {
	pos := make(map[VarIndex]int, len(le.varCoeffs))
	var vars []VarIndex
	var coeffs []float64
	for _, vc := range le.varCoeffs {
		if !p.checkSameModelAndSetErrorf(vc.p, "variable %v added to %s", vc.ind, what) {
			continue
		}
		if k, ok := pos[vc.ind]; ok {
			coeffs[k] += vc.coeff
			continue
		}
		pos[vc.ind] = len(vars)
		vars = append(vars, vc.ind)
		coeffs = append(coeffs, vc.coeff)
	}
	return vars, coeffs
}

// addLinearConstraint adds a linear constraint that enforces the value of `le` to be in
// `bounds`. The constant offset of `le` is subtracted from the bounds.
func (p *Problem) addLinearConstraint(le *LinearExpr, bounds Interval) Constraint {
	ind := ConstrIndex(len(p.rows))
	p.checkMutable("adding constraint %v", ind)
	vars, coeffs := p.normalize(le, fmt.Sprintf("constraint %v", ind))
	p.rows = append(p.rows, &row{vars: vars, coeffs: coeffs, bounds: bounds.Offset(-le.offset)})
	return Constraint{ind: ind, p: p}
}

// AddLinearConstraint adds the linear constraint `lb <= expr <= ub`.
func (p *Problem) AddLinearConstraint(expr LinearArgument, lb, ub float64) Constraint {
	return p.addLinearConstraint(NewLinearExpr().Add(expr), Interval{lb, ub})
}

// AddEquality adds the linear constraint `lhs == rhs`.
func (p *Problem) AddEquality(lhs, rhs LinearArgument) Constraint {
	diff := NewLinearExpr().Add(lhs).AddTerm(rhs, -1)
	return p.addLinearConstraint(diff, Exactly(0))
}

// AddLessOrEqual adds the linear constraint `lhs <= rhs`.
func (p *Problem) AddLessOrEqual(lhs, rhs LinearArgument) Constraint {
	diff := NewLinearExpr().Add(lhs).AddTerm(rhs, -1)
	return p.addLinearConstraint(diff, AtMost(0))
}

// AddGreaterOrEqual adds the linear constraint `lhs >= rhs`.
func (p *Problem) AddGreaterOrEqual(lhs, rhs LinearArgument) Constraint {
	diff := NewLinearExpr().Add(lhs).AddTerm(rhs, -1)
	return p.addLinearConstraint(diff, AtLeast(0))
}

// SetObjective replaces the objective and its direction.
func (p *Problem) SetObjective(sense Sense, obj LinearArgument) {
	p.checkMutable("setting objective")
	o := NewLinearExpr().Add(obj)
	vars, coeffs := p.normalize(o, "objective")
	p.sense = sense
	p.objective = p.objective[:0]
	for k, ind := range vars {
		p.objective = append(p.objective, varCoeff{ind: ind, coeff: coeffs[k], p: p})
	}
	p.objOffset = o.offset
}

// Minimize sets a linear minimization objective.
func (p *Problem) Minimize(obj LinearArgument) {
	p.SetObjective(Minimize, obj)
}

// Maximize sets a linear maximization objective.
func (p *Problem) Maximize(obj LinearArgument) {
	p.SetObjective(Maximize, obj)
}

// Objective returns a copy of the objective expression.
func (p *Problem) Objective() *LinearExpr {
	e := &LinearExpr{offset: p.objOffset}
	e.varCoeffs = append(e.varCoeffs, p.objective...)
	return e
}

// Hint is a container for variable hints (warm start values) to the problem.
type Hint map[Var]float64

// SetHint adds the hinted values to the problem, replacing earlier hints for the same
// variables.
func (p *Problem) SetHint(hint Hint) {
	p.checkMutable("setting hint")
	if p.hint == nil {
		p.hint = make(map[VarIndex]float64, len(hint))
	}
	for v, val := range hint {
		if !p.checkSameModelAndSetErrorf(v.p, "variable %v added as a hint", v.ind) {
			return
		}
		p.hint[v.ind] = val
	}
}

// ClearHint clears any hints on the problem.
func (p *Problem) ClearHint() {
	p.hint = nil
}

// Model returns an immutable snapshot of the problem for solvers and exporters.
//
// Model returns an error when invalid parameters have been used during problem building
// (e.g. passing variables from other problems, or modifying a solved problem).
func (p *Problem) Model() (*Model, error) {
	if p.err != nil {
		return nil, p.err
	}
	m := &Model{
		Name:            p.name,
		Maximize:        p.sense == Maximize,
		ObjectiveOffset: p.objOffset,
		Variables:       make([]VariableSpec, len(p.vars)),
		Constraints:     make([]ConstraintSpec, len(p.rows)),
	}
	for i, v := range p.vars {
		m.Variables[i] = VariableSpec{
			Name:       v.name,
			LowerBound: v.bounds.Lower,
			UpperBound: v.bounds.Upper,
			IsInteger:  v.integer,
		}
	}
	for _, vc := range p.objective {
		m.Variables[vc.ind].ObjectiveCoefficient += vc.coeff
	}
	for i, r := range p.rows {
		c := ConstraintSpec{
			Name:        r.name,
			VarIndex:    make([]int32, len(r.vars)),
			Coefficient: append([]float64(nil), r.coeffs...),
			LowerBound:  r.bounds.Lower,
			UpperBound:  r.bounds.Upper,
		}
		for k, ind := range r.vars {
			c.VarIndex[k] = int32(ind)
		}
		m.Constraints[i] = c
	}
	if len(p.hint) > 0 {
		h := &SolutionHint{}
		for ind := range p.hint {
			h.VarIndex = append(h.VarIndex, int32(ind))
		}
		sort.Slice(h.VarIndex, func(i, j int) bool { return h.VarIndex[i] < h.VarIndex[j] })
		for _, ind := range h.VarIndex {
			h.VarValue = append(h.VarValue, p.hint[VarIndex(ind)])
		}
		m.SolutionHint = h
	}
	return m, nil
}

// Solve hands a snapshot of the problem to `s` and records the returned solution. The
// problem cannot be modified afterwards. Infeasible or unbounded problems are not errors:
// inspect the returned Status. An error is only returned when the problem is invalid or
// the solver itself fails.
func (p *Problem) Solve(s Solver) (Status, error) {
	m, err := p.Model()
	if err != nil {
		return p.Status(), err
	}
	name := solverName(s)
	start := time.Now()
	sol, err := s.Optimize(m)
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveError(name, elapsed)
		return p.Status(), fmt.Errorf("solver %s failed on problem %q: %w", name, p.name, err)
	}
	if sol == nil {
		metrics.ObserveError(name, elapsed)
		return p.Status(), fmt.Errorf("solver %s returned no solution for problem %q", name, p.name)
	}
	if sol.Status == Optimal && len(sol.Values) != len(p.vars) {
		metrics.ObserveError(name, elapsed)
		return p.Status(), fmt.Errorf("solver %s returned %d values for %d variables", name, len(sol.Values), len(p.vars))
	}
	metrics.ObserveSolve(name, sol.Status.String(), elapsed, len(m.Variables), len(m.Constraints))
	log.V(1).Infof("problem %q solved by %s in %v: %v, objective %v", p.name, name, elapsed, sol.Status, sol.ObjectiveValue)
	p.solved = true
	p.solution = sol
	return sol.Status, nil
}

func solverName(s Solver) string {
	if ns, ok := s.(NamedSolver); ok {
		return ns.Name()
	}
	return fmt.Sprintf("%T", s)
}

// Solved reports whether Solve has returned successfully at least once.
func (p *Problem) Solved() bool {
	return p.solved
}

// Status returns the status of the last solve, NotSolved if there was none.
func (p *Problem) Status() Status {
	if p.solution == nil {
		return NotSolved
	}
	return p.solution.Status
}

// ObjectiveValue returns the objective value of the solution, or NaN if the problem holds
// no solution.
func (p *Problem) ObjectiveValue() float64 {
	values := p.solutionValues()
	if values == nil {
		return math.NaN()
	}
	return p.Objective().evaluateSolutionValue(values)
}

// Value returns the value of `la` in the solution, or NaN if the problem holds no
// solution.
func (p *Problem) Value(la LinearArgument) float64 {
	values := p.solutionValues()
	if values == nil {
		return math.NaN()
	}
	return la.evaluateSolutionValue(values)
}

func (p *Problem) solutionValues() []float64 {
	if p.solution == nil || p.solution.Status != Optimal {
		return nil
	}
	return p.solution.Values
}

var nameReplacer = strings.NewReplacer("-", "_", "+", "_", "[", "_", "]", "_", " ", "_", ">", "_", "/", "_")

func sanitizeName(s string) string {
	return nameReplacer.Replace(s)
}
