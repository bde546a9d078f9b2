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

// Package locate builds and solves facility location models.
//
// Each model (LSCP, MCLP, PCenter, PMedian and LSCPB) is built from a cost matrix with
// one row per client and one column per candidate facility, or from demand and facility
// geometry frames. Models are assembled with the Add functions of builder.go over a
// FacilityModel, then solved by any milp.Solver. After a successful solve, Fac2Cli and
// Cli2Fac report which clients each sited facility serves.
package locate

import (
	"errors"
	"fmt"
	"math"

	log "github.com/golang/glog"
	"github.com/weikang9009/spopt/spopt/locate/geoframe"
	"github.com/weikang9009/spopt/spopt/milp"
	"gonum.org/v1/gonum/mat"
)

// ErrResultsNotComputed is returned by the result accessors before a solve, after a solve
// with WithoutResults, or when the solve did not end on an optimal solution.
var ErrResultsNotComputed = errors.New("results not computed")

var inf = math.Inf(1)

// Model is implemented by every facility location model.
type Model interface {
	// Name returns the name of the model, also used as problem name.
	Name() string
	// Problem returns the underlying problem.
	Problem() *milp.Problem
	// Facility returns the decision variables of the model.
	Facility() *FacilityModel
	// Status returns the status of the last solve.
	Status() milp.Status
	// Fac2Cli returns, for every candidate facility, the clients it serves.
	Fac2Cli() ([][]int, error)
	// Cli2Fac returns, for every client, the facilities serving it.
	Cli2Fac() ([][]int, error)
	// Warnings returns the input warnings raised while building the model.
	Warnings() []error
	// SolveModel solves the model with `s`.
	SolveModel(s milp.Solver, opts ...SolveOption) error
}

type options struct {
	name          string
	predefined    []int
	predefinedCol string
	weights       []float64
	weightCol     string
	distance      []geoframe.Option
}

// Option configures a model constructor.
type Option func(*options)

// WithName sets the model name.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithPredefinedFacilities forces the facilities at the given column indices to be sited.
func WithPredefinedFacilities(indices ...int) Option {
	return func(o *options) {
		o.predefined = append(o.predefined, indices...)
	}
}

// WithPredefinedFacilityColumn reads predefined facilities from a boolean or numeric
// column of the facility frame. Only used by the FromGeoFrame constructors.
func WithPredefinedFacilityColumn(col string) Option {
	return func(o *options) {
		o.predefinedCol = col
	}
}

// WithWeights sets the demand weight of every client. Defaults to 1 for every client.
func WithWeights(weights []float64) Option {
	return func(o *options) {
		o.weights = weights
	}
}

// WithWeightColumn reads client weights from a numeric column of the demand frame. Only
// used by the FromGeoFrame constructors.
func WithWeightColumn(col string) Option {
	return func(o *options) {
		o.weightCol = col
	}
}

// WithDistance sets the options used to compute the cost matrix from frames.
func WithDistance(opts ...geoframe.Option) Option {
	return func(o *options) {
		o.distance = append(o.distance, opts...)
	}
}

func newOptions(defaultName string, opts []Option) options {
	o := options{name: defaultName}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o *options) clientWeights(nClients int) ([]float64, error) {
	if o.weights == nil {
		w := make([]float64, nClients)
		for i := range w {
			w[i] = 1
		}
		return w, nil
	}
	if len(o.weights) != nClients {
		return nil, fmt.Errorf("%d weights for %d clients: %w", len(o.weights), nClients, ErrDimension)
	}
	return o.weights, nil
}

// fromGeoFrame computes the cost matrix of two frames and folds the frame columns named
// in `opts` into plain options.
func fromGeoFrame(demand, facility *geoframe.Frame, demandCol, facilityCol string, opts []Option) (*geoframe.Result, []Option, error) {
	o := newOptions("", opts)
	res, err := geoframe.CostMatrix(demand, facility, demandCol, facilityCol, o.distance...)
	if err != nil {
		return nil, nil, err
	}
	opts = append([]Option(nil), opts...)
	if o.predefinedCol != "" {
		idx, err := geoframe.PredefinedFacilities(facility, o.predefinedCol)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, WithPredefinedFacilities(idx...))
	}
	if o.weightCol != "" {
		w, err := demand.Floats(o.weightCol)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, WithWeights(w))
	}
	return res, opts, nil
}

// SolveOption configures a solve.
type SolveOption func(*solveOptions)

type solveOptions struct {
	results bool
}

// WithoutResults skips the computation of Fac2Cli and Cli2Fac.
func WithoutResults() SolveOption {
	return func(o *solveOptions) {
		o.results = false
	}
}

// base holds what every model shares.
type base struct {
	name     string
	clients  int
	fm       *FacilityModel
	warnings []error
	fac2cli  [][]int
	cli2fac  [][]int
}

func newBase(name string, sense milp.Sense, nClients int) base {
	return base{name: name, clients: nClients, fm: NewFacilityModel(name, sense)}
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Problem() *milp.Problem {
	return b.fm.Problem
}

func (b *base) Facility() *FacilityModel {
	return b.fm
}

func (b *base) Status() milp.Status {
	return b.fm.Problem.Status()
}

func (b *base) Warnings() []error {
	return b.warnings
}

// ObjectiveValue returns the objective value of the solution, NaN without one.
func (b *base) ObjectiveValue() float64 {
	return b.fm.Problem.ObjectiveValue()
}

// SitedFacilities returns the indices of the facilities sited by the solution.
func (b *base) SitedFacilities() ([]int, error) {
	if b.fm.Problem.Status() != milp.Optimal {
		return nil, ErrResultsNotComputed
	}
	var sited []int
	for j, y := range b.fm.FacVars {
		if y.Value() > 0.5 {
			sited = append(sited, j)
		}
	}
	return sited, nil
}

func (b *base) Fac2Cli() ([][]int, error) {
	if b.fac2cli == nil {
		return nil, ErrResultsNotComputed
	}
	return b.fac2cli, nil
}

func (b *base) Cli2Fac() ([][]int, error) {
	if b.cli2fac == nil {
		return nil, ErrResultsNotComputed
	}
	return b.cli2fac, nil
}

// solve runs the solver and, unless disabled, fills the results with `fac2cli`.
func (b *base) solve(s milp.Solver, opts []SolveOption, fac2cli func() [][]int) error {
	o := solveOptions{results: true}
	for _, opt := range opts {
		opt(&o)
	}
	b.fac2cli, b.cli2fac = nil, nil
	status, err := b.fm.Problem.Solve(s)
	if err != nil {
		return err
	}
	log.V(1).Infof("%s: %v, objective %v", b.name, status, b.fm.Problem.ObjectiveValue())
	if !o.results || status != milp.Optimal {
		return nil
	}
	b.fac2cli = fac2cli()
	b.cli2fac = clientFacilityArray(b.fac2cli, b.clients)
	return nil
}

// coverageFacilityArray lists, for every sited facility, the clients it covers among
// those accepted by `served`.
func coverageFacilityArray(fm *FacilityModel, coverage mat.Matrix, served func(i int) bool) [][]int {
	nCli, _ := coverage.Dims()
	fac2cli := make([][]int, len(fm.FacVars))
	for j, y := range fm.FacVars {
		fac2cli[j] = []int{}
		if y.Value() <= 0.5 {
			continue
		}
		for i := 0; i < nCli; i++ {
			if coverage.At(i, j) > 0 && (served == nil || served(i)) {
				fac2cli[j] = append(fac2cli[j], i)
			}
		}
	}
	return fac2cli
}

// assignmentFacilityArray lists, for every facility, the clients assigned to it.
func assignmentFacilityArray(fm *FacilityModel) [][]int {
	fac2cli := make([][]int, len(fm.FacVars))
	for j, y := range fm.FacVars {
		fac2cli[j] = []int{}
		if y.Value() <= 0.5 {
			continue
		}
		for i, zs := range fm.CliAssignVars {
			if zs[j].Value() > 0.5 {
				fac2cli[j] = append(fac2cli[j], i)
			}
		}
	}
	return fac2cli
}

// clientFacilityArray inverts a facility to clients array.
func clientFacilityArray(fac2cli [][]int, nClients int) [][]int {
	cli2fac := make([][]int, nClients)
	for i := range cli2fac {
		cli2fac[i] = []int{}
	}
	for j, clients := range fac2cli {
		for _, i := range clients {
			cli2fac[i] = append(cli2fac[i], j)
		}
	}
	return cli2fac
}

// CoverageMatrix returns the binary matrix whose entry (i, j) is 1 when cost(i, j) is at
// most `radius`.
func CoverageMatrix(cost mat.Matrix, radius float64) *mat.Dense {
	r, c := cost.Dims()
	if r == 0 || c == 0 {
		return &mat.Dense{}
	}
	a := mat.NewDense(r, c, nil)
	a.Apply(func(i, j int, v float64) float64 {
		if v <= radius {
			return 1
		}
		return 0
	}, cost)
	return a
}
