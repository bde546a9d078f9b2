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

// Package pbsolver solves 0-1 linear programs in process with the gophersat pseudo-boolean
// engine.
//
// Binary variables become boolean literals and every row is scaled to integer weights.
// At most one non-fixed continuous variable is accepted, and only when the objective
// pushes it down onto rows of the form `v >= sum(g*x) + h`, which covers min-max
// objectives. Such problems are solved by repeatedly asking for a strictly better
// assignment until none exists.
package pbsolver

import (
	"errors"
	"fmt"
	"math"

	"github.com/crillab/gophersat/solver"
	log "github.com/golang/glog"
	"github.com/weikang9009/spopt/spopt/milp"
)

// ErrUnsupported is returned for models outside the 0-1 fragment handled by the solver.
var ErrUnsupported = errors.New("model not supported by the pseudo-boolean solver")

const (
	// DefaultPrecision is the number of decimal digits kept when scaling fractional
	// coefficients to integers.
	DefaultPrecision = 4
	tol              = 1e-6
)

// Solver implements milp.Solver.
type Solver struct {
	precision int
	verbose   bool
}

// Option configures a Solver.
type Option func(*Solver)

// WithPrecision sets the number of decimal digits kept when scaling fractional rows.
func WithPrecision(digits int) Option {
	return func(s *Solver) {
		s.precision = digits
	}
}

// WithVerbose makes the underlying engine print its search statistics on stdout.
func WithVerbose(verbose bool) Option {
	return func(s *Solver) {
		s.verbose = verbose
	}
}

// New returns a Solver configured by `opts`.
func New(opts ...Option) *Solver {
	s := &Solver{precision: DefaultPrecision}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the name reported in logs and metrics.
func (s *Solver) Name() string {
	return "gophersat"
}

// bound is a row `v >= sum(g[k]*x[vars[k]]) + h` on the continuous variable.
type bound struct {
	vars []int
	g    []float64
	h    float64
}

func (b bound) eval(values []float64) float64 {
	r := b.h
	for k, i := range b.vars {
		r += b.g[k] * values[i]
	}
	return r
}

// encoding holds the translation of a model into pseudo-boolean constraints.
type encoding struct {
	m *milp.Model
	// lit[i] is the 1-based boolean variable of model variable i, 0 when i is fixed or
	// continuous.
	lit []int
	// vars[k] is the model variable of boolean k+1.
	vars   []int
	fixed  []float64
	isFix  []bool
	cont   int
	nBools int
	constr []solver.PBConstr
	bounds []bound
	// infeasible is set when a row is violated by fixed variables alone.
	infeasible bool
}

func (s *Solver) scaleFor(coeffs []float64, rhs ...float64) float64 {
	integral := func(v float64) bool {
		return math.IsInf(v, 0) || math.Abs(v-math.Round(v)) < 1e-9
	}
	for _, c := range coeffs {
		if !integral(c) {
			return math.Pow10(s.precision)
		}
	}
	for _, r := range rhs {
		if !integral(r) {
			return math.Pow10(s.precision)
		}
	}
	return 1
}

func (s *Solver) encode(m *milp.Model) (*encoding, error) {
	e := &encoding{
		m:     m,
		lit:   make([]int, len(m.Variables)),
		fixed: make([]float64, len(m.Variables)),
		isFix: make([]bool, len(m.Variables)),
		cont:  -1,
	}
	for i, v := range m.Variables {
		b := v.Bounds()
		if v.IsInteger {
			b = milp.NewInterval(math.Ceil(b.Lower-tol), math.Floor(b.Upper+tol))
		}
		if b.Empty() {
			e.infeasible = true
			continue
		}
		if b.Fixed() {
			e.isFix[i] = true
			e.fixed[i] = b.Lower
			continue
		}
		if !v.IsInteger {
			if e.cont >= 0 {
				return nil, fmt.Errorf("continuous variables %d and %d: %w", e.cont, i, ErrUnsupported)
			}
			e.cont = i
			continue
		}
		if b.Lower < 0 || b.Upper > 1 {
			return nil, fmt.Errorf("integer variable %d (%q) with bounds %v: %w", i, v.Name, b, ErrUnsupported)
		}
		e.nBools++
		e.lit[i] = e.nBools
		e.vars = append(e.vars, i)
	}

	// Declares every boolean so that the engine sizes its model to all of them.
	decl := solver.PBConstr{Lits: make([]int, e.nBools), Weights: make([]int, e.nBools)}
	for k := range decl.Lits {
		decl.Lits[k] = k + 1
	}
	e.constr = append(e.constr, decl)

	for r, c := range m.Constraints {
		if err := s.encodeRow(e, r, c); err != nil {
			return nil, err
		}
	}
	if e.cont >= 0 {
		v := m.Variables[e.cont]
		if !math.IsInf(v.UpperBound, 1) {
			// The value given to the continuous variable must stay below its upper bound.
			for _, b := range e.bounds {
				s.appendRow(e, b.vars, b.g, math.Inf(-1), v.UpperBound-b.h)
			}
		}
	}
	return e, nil
}

func (s *Solver) encodeRow(e *encoding, r int, c milp.ConstraintSpec) error {
	lb, ub := c.LowerBound, c.UpperBound
	var vars []int
	var coeffs []float64
	contCoeff := 0.0
	for k, ind := range c.VarIndex {
		i, a := int(ind), c.Coefficient[k]
		switch {
		case a == 0:
		case e.isFix[i]:
			lb -= a * e.fixed[i]
			ub -= a * e.fixed[i]
		case i == e.cont:
			contCoeff += a
		default:
			vars = append(vars, i)
			coeffs = append(coeffs, a)
		}
	}
	if contCoeff == 0 {
		s.appendRow(e, vars, coeffs, lb, ub)
		return nil
	}
	// lb <= sum(a*x) + a_v*v gives a lower bound on v when a_v > 0, and
	// sum(a*x) + a_v*v <= ub gives one when a_v < 0.
	side := lb
	if contCoeff < 0 {
		side = ub
	}
	other := ub
	if contCoeff < 0 {
		other = lb
	}
	if !math.IsInf(other, 0) {
		return fmt.Errorf("constraint %d (%q) bounds continuous variable %d from above: %w", r, c.Name, e.cont, ErrUnsupported)
	}
	if math.IsInf(side, 0) {
		return nil
	}
	b := bound{vars: vars, g: make([]float64, len(coeffs)), h: side / contCoeff}
	for k, a := range coeffs {
		b.g[k] = -a / contCoeff
	}
	e.bounds = append(e.bounds, b)
	return nil
}

// appendRow adds `lb <= sum(coeffs[k]*x[vars[k]]) <= ub` over boolean variables.
func (s *Solver) appendRow(e *encoding, vars []int, coeffs []float64, lb, ub float64) {
	if len(vars) == 0 {
		if !milp.NewInterval(lb, ub).Contains(0, tol) {
			e.infeasible = true
		}
		return
	}
	scale := s.scaleFor(coeffs, lb, ub)
	lits := func() ([]int, []int) {
		ls := make([]int, len(vars))
		ws := make([]int, len(vars))
		for k, i := range vars {
			ls[k] = e.lit[i]
			ws[k] = int(math.Round(coeffs[k] * scale))
		}
		return ls, ws
	}
	if !math.IsInf(lb, -1) {
		ls, ws := lits()
		e.constr = append(e.constr, solver.GtEq(ls, ws, int(math.Ceil(lb*scale-tol))))
	}
	if !math.IsInf(ub, 1) {
		ls, ws := lits()
		e.constr = append(e.constr, solver.LtEq(ls, ws, int(math.Floor(ub*scale+tol))))
	}
}

// objective returns the signed literals and positive weights whose weighted count is
// minimized. The constant part is left to the model.
func (s *Solver) objective(e *encoding) ([]int, []int) {
	var coeffs []float64
	var vars []int
	for i, v := range e.m.Variables {
		if e.lit[i] == 0 || v.ObjectiveCoefficient == 0 {
			continue
		}
		c := v.ObjectiveCoefficient
		if e.m.Maximize {
			c = -c
		}
		vars = append(vars, i)
		coeffs = append(coeffs, c)
	}
	if len(vars) == 0 {
		return nil, nil
	}
	scale := s.scaleFor(coeffs)
	lits := make([]int, 0, len(vars))
	weights := make([]int, 0, len(vars))
	for k, i := range vars {
		w := int(math.Round(coeffs[k] * scale))
		if w == 0 {
			continue
		}
		// c*x == c + |c|*not(x) when c < 0.
		lit := e.lit[i]
		if w < 0 {
			w, lit = -w, -lit
		}
		lits = append(lits, lit)
		weights = append(weights, w)
	}
	return lits, weights
}

// satisfy runs the engine on the encoded rows plus `extra`. It returns nil when the rows
// are unsatisfiable.
func (s *Solver) satisfy(e *encoding, extra []solver.PBConstr) []float64 {
	values := make([]float64, len(e.m.Variables))
	for i := range values {
		if e.isFix[i] {
			values[i] = e.fixed[i]
		}
	}
	if e.nBools == 0 {
		for _, c := range extra {
			if c.AtLeast > 0 {
				return nil
			}
		}
		return values
	}
	// The engine keeps and reorders the weight slices it is given.
	constrs := make([]solver.PBConstr, 0, len(e.constr)+len(extra))
	for _, c := range [][]solver.PBConstr{e.constr, extra} {
		for _, r := range c {
			constrs = append(constrs, solver.PBConstr{
				Lits:    append([]int(nil), r.Lits...),
				Weights: append([]int(nil), r.Weights...),
				AtLeast: r.AtLeast,
			})
		}
	}
	engine := solver.New(solver.ParsePBConstrs(constrs))
	engine.Verbose = s.verbose
	if engine.Solve() != solver.Sat {
		return nil
	}
	model := engine.Model()
	for i := range values {
		if e.lit[i] > 0 && model[e.lit[i]-1] {
			values[i] = 1
		}
	}
	return values
}

// minimize returns an assignment minimizing the weighted count of true `lits`, or nil
// when the rows are unsatisfiable. Each round asks for a strictly cheaper assignment.
func (s *Solver) minimize(e *encoding, lits, weights []int) []float64 {
	var best []float64
	var cuts []solver.PBConstr
	for {
		values := s.satisfy(e, cuts)
		if values == nil {
			return best
		}
		best = values
		cost := 0
		for k, lit := range lits {
			if (values[e.varOf(lit)] > 0.5) == (lit > 0) {
				cost += weights[k]
			}
		}
		if cost == 0 {
			return best
		}
		log.V(2).Infof("%s: objective cost down to %d", s.Name(), cost)
		ls := append([]int(nil), lits...)
		ws := append([]int(nil), weights...)
		cuts = []solver.PBConstr{solver.LtEq(ls, ws, cost-1)}
	}
}

// varOf returns the model variable of a signed literal.
func (e *encoding) varOf(lit int) int {
	if lit < 0 {
		lit = -lit
	}
	return e.vars[lit-1]
}

// contValue returns the smallest value of the continuous variable allowed by `values`.
func (e *encoding) contValue(values []float64) float64 {
	v := e.m.Variables[e.cont].LowerBound
	for _, b := range e.bounds {
		v = math.Max(v, b.eval(values))
	}
	return v
}

// Optimize implements milp.Solver.
func (s *Solver) Optimize(m *milp.Model) (*milp.Solution, error) {
	if m.SolutionHint != nil {
		log.V(1).Infof("%s: ignoring solution hint on %d variables", s.Name(), len(m.SolutionHint.VarIndex))
	}
	e, err := s.encode(m)
	if err != nil {
		return nil, err
	}
	if e.infeasible {
		return &milp.Solution{Status: milp.Infeasible}, nil
	}
	log.V(1).Infof("%s: %q encoded as %d booleans, %d constraints, %d bounding rows", s.Name(), m.Name, e.nBools, len(e.constr), len(e.bounds))

	contCoeff := 0.0
	if e.cont >= 0 {
		contCoeff = m.Variables[e.cont].ObjectiveCoefficient
		if m.Maximize {
			contCoeff = -contCoeff
		}
	}
	if contCoeff == 0 {
		lits, weights := s.objective(e)
		values := s.minimize(e, lits, weights)
		if values == nil {
			return &milp.Solution{Status: milp.Infeasible}, nil
		}
		if e.cont >= 0 {
			v := e.contValue(values)
			if math.IsInf(v, -1) {
				v = math.Min(math.Max(0, v), m.Variables[e.cont].UpperBound)
			}
			values[e.cont] = v
		}
		return &milp.Solution{Status: milp.Optimal, ObjectiveValue: m.ObjectiveValue(values), Values: values}, nil
	}
	return s.descend(e, contCoeff)
}

// descend minimizes the continuous variable. Each round asks for an assignment under
// which every bounding row evaluates strictly below the best value found so far.
func (s *Solver) descend(e *encoding, contCoeff float64) (*milp.Solution, error) {
	m := e.m
	if contCoeff < 0 {
		return nil, fmt.Errorf("objective pushes continuous variable %d up: %w", e.cont, ErrUnsupported)
	}
	for i, v := range m.Variables {
		if i != e.cont && e.lit[i] > 0 && v.ObjectiveCoefficient != 0 {
			return nil, fmt.Errorf("objective mixes continuous variable %d with variable %d: %w", e.cont, i, ErrUnsupported)
		}
	}
	lb := m.Variables[e.cont].LowerBound
	if len(e.bounds) == 0 && math.IsInf(lb, -1) {
		if s.satisfy(e, nil) == nil {
			return &milp.Solution{Status: milp.Infeasible}, nil
		}
		return &milp.Solution{Status: milp.Unbounded}, nil
	}

	best := s.satisfy(e, nil)
	if best == nil {
		return &milp.Solution{Status: milp.Infeasible}, nil
	}
	best[e.cont] = e.contValue(best)
	for iter := 0; ; iter++ {
		v := best[e.cont]
		log.V(2).Infof("%s: iteration %d, continuous variable %d down to %v", s.Name(), iter, e.cont, v)
		if v <= lb+tol {
			break
		}
		cuts, ok := s.below(e, v-tol)
		if !ok {
			break
		}
		values := s.improve(e, cuts, v-tol)
		if values == nil {
			break
		}
		best = values
	}
	return finish(m, best), nil
}

// below returns rows keeping every bounding row under `target`. Terms that alone reach
// `target` are forbidden outright. The remaining terms form a relaxation with weights
// rounded down, so no assignment meeting `target` is lost. It reports false when some
// row cannot get under `target`.
func (s *Solver) below(e *encoding, target float64) ([]solver.PBConstr, bool) {
	var cuts []solver.PBConstr
	for _, b := range e.bounds {
		least := b.h
		for _, g := range b.g {
			if g < 0 {
				least += g
			}
		}
		if least >= target {
			return nil, false
		}
		scale := s.scaleFor(b.g, target-b.h)
		var ls, ws []int
		for k, i := range b.vars {
			if b.g[k] > 0 && least+b.g[k] >= target {
				cuts = append(cuts, solver.GtEq([]int{-e.lit[i]}, []int{1}, 1))
				continue
			}
			if w := int(math.Floor(b.g[k] * scale)); w != 0 {
				ls = append(ls, e.lit[i])
				ws = append(ws, w)
			}
		}
		if len(ls) > 0 {
			cuts = append(cuts, solver.LtEq(ls, ws, int(math.Ceil((target-b.h)*scale))-1))
		}
	}
	return cuts, true
}

// improve returns an assignment under which every bounding row evaluates below `target`,
// or nil when there is none. Assignments let through by the rounded rows are excluded
// one offending row at a time.
func (s *Solver) improve(e *encoding, cuts []solver.PBConstr, target float64) []float64 {
	for {
		values := s.satisfy(e, cuts)
		if values == nil {
			return nil
		}
		if v := e.contValue(values); v < target {
			values[e.cont] = v
			return values
		}
		for _, b := range e.bounds {
			if b.eval(values) < target {
				continue
			}
			c, ok := e.exclude(b, values)
			if !ok {
				return nil
			}
			cuts = append(cuts, c)
		}
	}
}

// exclude returns a clause ruling out every assignment under which `b` evaluates at
// least as high as under `values`: one positive term must turn off or one negative term
// must turn on.
func (e *encoding) exclude(b bound, values []float64) (solver.PBConstr, bool) {
	var lits []int
	for k, i := range b.vars {
		on := values[i] > 0.5
		switch {
		case b.g[k] > 0 && on:
			lits = append(lits, -e.lit[i])
		case b.g[k] < 0 && !on:
			lits = append(lits, e.lit[i])
		}
	}
	if len(lits) == 0 {
		return solver.PBConstr{}, false
	}
	ws := make([]int, len(lits))
	for k := range ws {
		ws[k] = 1
	}
	return solver.GtEq(lits, ws, 1), true
}

func finish(m *milp.Model, values []float64) *milp.Solution {
	return &milp.Solution{Status: milp.Optimal, ObjectiveValue: m.ObjectiveValue(values), Values: values}
}
