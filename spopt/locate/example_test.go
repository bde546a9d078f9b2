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

package locate_test

import (
	"fmt"

	"github.com/weikang9009/spopt/spopt/locate"
	"github.com/weikang9009/spopt/spopt/milp/pbsolver"
	"gonum.org/v1/gonum/mat"
)

func ExampleLSCP() {
	cost := mat.NewDense(3, 3, []float64{
		1, 5, 9,
		5, 1, 5,
		9, 5, 1,
	})
	m, err := locate.NewLSCP(cost, 5)
	if err != nil {
		fmt.Println(err)
		return
	}
	if _, err := m.Solve(pbsolver.New()); err != nil {
		fmt.Println(err)
		return
	}
	fac2cli, _ := m.Fac2Cli()
	fmt.Println(m.Status(), m.ObjectiveValue(), fac2cli)
	// Output: Optimal 1 [[] [0 1 2] []]
}

func ExamplePMedian() {
	cost := mat.NewDense(4, 3, []float64{
		0, 5, 11,
		1, 4, 10,
		10, 5, 1,
		11, 6, 0,
	})
	m, err := locate.NewPMedian(cost, 2)
	if err != nil {
		fmt.Println(err)
		return
	}
	if _, err := m.Solve(pbsolver.New()); err != nil {
		fmt.Println(err)
		return
	}
	sited, _ := m.SitedFacilities()
	mean, _ := m.MeanDistance()
	fmt.Println(sited, m.ObjectiveValue(), mean)
	// Output: [0 2] 2 0.5
}
