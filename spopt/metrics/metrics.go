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

// Package metrics holds the Prometheus collectors updated by every solve.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Registry is the dedicated registry the collectors below are registered on.
	Registry = prometheus.NewRegistry()
	// Solves counts finished solves by solver and status.
	Solves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "spopt_solves_total", Help: "Solves by solver and resulting status."},
		[]string{"solver", "status"},
	)
	// SolveErrors counts solves that failed inside the solver.
	SolveErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "spopt_solve_errors_total", Help: "Solves aborted by a solver error."},
		[]string{"solver"},
	)
	// SolveDuration records wall time spent in the solver.
	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "spopt_solve_duration_seconds", Help: "Time spent in the solver in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"solver"},
	)
	// ModelSize records the number of variables and constraints of solved models.
	ModelSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "spopt_model_size", Help: "Number of variables and constraints handed to the solver.", Buckets: prometheus.ExponentialBuckets(1, 4, 10)},
		[]string{"kind"},
	)
)

var regOnce sync.Once

// Register registers the collectors on Registry. It is safe to call several times.
func Register() {
	regOnce.Do(func() {
		Registry.MustRegister(Solves)
		Registry.MustRegister(SolveErrors)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(ModelSize)
	})
}

// ObserveSolve records a finished solve.
func ObserveSolve(solver, status string, d time.Duration, vars, constraints int) {
	Solves.WithLabelValues(solver, status).Inc()
	SolveDuration.WithLabelValues(solver).Observe(d.Seconds())
	ModelSize.WithLabelValues("variables").Observe(float64(vars))
	ModelSize.WithLabelValues("constraints").Observe(float64(constraints))
}

// ObserveError records a solve the solver failed on.
func ObserveError(solver string, d time.Duration) {
	SolveErrors.WithLabelValues(solver).Inc()
	SolveDuration.WithLabelValues(solver).Observe(d.Seconds())
}
