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
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/weikang9009/spopt/spopt/milp"
	"github.com/weikang9009/spopt/spopt/milp/pbsolver"
	"gonum.org/v1/gonum/mat"
)

// distances returns |c-f| for clients and facilities placed on a line.
func distances(clients, facilities []float64) *mat.Dense {
	cost := mat.NewDense(len(clients), len(facilities), nil)
	for i, c := range clients {
		for j, f := range facilities {
			cost.Set(i, j, math.Abs(c-f))
		}
	}
	return cost
}

func TestPMedian_Solve(t *testing.T) {
	cost := distances([]float64{0, 1, 10, 11}, []float64{0, 5, 11})
	m, err := NewPMedian(cost, 2)
	if err != nil {
		t.Fatalf("NewPMedian() returned with unexpected error %v", err)
	}
	if _, err := m.Solve(pbsolver.New()); err != nil {
		t.Fatalf("Solve() returned with unexpected error %v", err)
	}
	if got := m.Status(); got != milp.Optimal {
		t.Fatalf("Status() = %v, want %v", got, milp.Optimal)
	}
	if got := m.ObjectiveValue(); got != 2 {
		t.Errorf("ObjectiveValue() = %v, want 2", got)
	}
	fac2cli, err := m.Fac2Cli()
	if err != nil {
		t.Fatalf("Fac2Cli() returned with unexpected error %v", err)
	}
	if diff := cmp.Diff([][]int{{0, 1}, {}, {2, 3}}, fac2cli); diff != "" {
		t.Errorf("Fac2Cli() returned with unexpected diff (-want+got): %v", diff)
	}
	mean, err := m.MeanDistance()
	if err != nil {
		t.Fatalf("MeanDistance() returned with unexpected error %v", err)
	}
	if mean != 0.5 {
		t.Errorf("MeanDistance() = %v, want 0.5", mean)
	}
}

func TestPMedian_Weights(t *testing.T) {
	cost := distances([]float64{0, 1, 10, 11}, []float64{0, 5, 11})
	// A heavy client at 1 pulls the single facility away from the middle.
	m, err := NewPMedian(cost, 1, WithWeights([]float64{1, 10, 1, 1}))
	if err != nil {
		t.Fatalf("NewPMedian() returned with unexpected error %v", err)
	}
	if _, err := m.Solve(pbsolver.New()); err != nil {
		t.Fatalf("Solve() returned with unexpected error %v", err)
	}
	sited, err := m.SitedFacilities()
	if err != nil {
		t.Fatalf("SitedFacilities() returned with unexpected error %v", err)
	}
	if diff := cmp.Diff([]int{0}, sited); diff != "" {
		t.Errorf("SitedFacilities() returned with unexpected diff (-want+got): %v", diff)
	}
	if got, want := m.ObjectiveValue(), 0+10*1+10+11.0; got != want {
		t.Errorf("ObjectiveValue() = %v, want %v", got, want)
	}
}

func TestPMedian_PredefinedFacilities(t *testing.T) {
	cost := distances([]float64{0, 1, 10, 11}, []float64{0, 5, 11})
	m, err := NewPMedian(cost, 2, WithPredefinedFacilities(1))
	if err != nil {
		t.Fatalf("NewPMedian() returned with unexpected error %v", err)
	}
	if _, err := m.Solve(pbsolver.New()); err != nil {
		t.Fatalf("Solve() returned with unexpected error %v", err)
	}
	sited, err := m.SitedFacilities()
	if err != nil {
		t.Fatalf("SitedFacilities() returned with unexpected error %v", err)
	}
	// {1, 2} costs 10 and {0, 1} costs 12.
	if diff := cmp.Diff([]int{1, 2}, sited); diff != "" {
		t.Errorf("SitedFacilities() returned with unexpected diff (-want+got): %v", diff)
	}
}
