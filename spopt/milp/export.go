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
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidModel is returned when a model cannot be exported or decoded.
var ErrInvalidModel = errors.New("invalid model")

// ExportOptions groups all options for exporting models to text formats.
type ExportOptions struct {
	// Obfuscate replaces variable and constraint names by V<index> and C<index>.
	Obfuscate bool
	// MaxLineLength wraps long rows. Zero means 255, the CPLEX limit.
	MaxLineLength int
}

const dummyVar = "__dummy"

// ExportModelAsLpFormat outputs the model as a string in CPLEX LP format.
//
// Unnamed variables are written as x<index> and unnamed rows as _C<index>. Rows bounded
// on both sides by different values are split into <name>_lo and <name>_hi. Empty rows
// and an empty objective reference the variable __dummy, fixed to 0.
//
// Usage:
//
//	m, err := p.Model()
//	...
//	s, err := ExportModelAsLpFormat(m, ExportOptions{})
func ExportModelAsLpFormat(m *Model, options ExportOptions) (string, error) {
	if err := validateModel(m); err != nil {
		return "", err
	}
	varNames, err := exportNames(len(m.Variables), func(i int) string {
		switch {
		case options.Obfuscate:
			return fmt.Sprintf("V%d", i)
		case m.Variables[i].Name != "":
			return m.Variables[i].Name
		}
		return fmt.Sprintf("x%d", i)
	})
	if err != nil {
		return "", fmt.Errorf("cannot export as LP format: variable %w", err)
	}
	rowNames, err := exportNames(len(m.Constraints), func(i int) string {
		switch {
		case options.Obfuscate:
			return fmt.Sprintf("C%d", i)
		case m.Constraints[i].Name != "":
			return m.Constraints[i].Name
		}
		return fmt.Sprintf("_C%d", i)
	})
	if err != nil {
		return "", fmt.Errorf("cannot export as LP format: constraint %w", err)
	}

	w := &lpWriter{maxLen: options.MaxLineLength}
	if w.maxLen <= 0 {
		w.maxLen = 255
	}
	needDummy := false

	if m.Name != "" && !options.Obfuscate {
		w.line("\\ " + m.Name)
	}
	if m.Maximize {
		w.line("Maximize")
	} else {
		w.line("Minimize")
	}
	w.start(" obj:")
	nTerms := 0
	for i, v := range m.Variables {
		if v.ObjectiveCoefficient != 0 {
			w.term(v.ObjectiveCoefficient, varNames[i])
			nTerms++
		}
	}
	if nTerms == 0 {
		w.term(0, dummyVar)
		needDummy = true
	}
	if m.ObjectiveOffset != 0 {
		w.token(signed(m.ObjectiveOffset))
	}
	w.end()

	w.line("Subject To")
	for i, c := range m.Constraints {
		b := c.Bounds()
		if !b.HasLower() && !b.HasUpper() {
			continue
		}
		writeRow := func(name, op string, rhs float64) {
			w.start(" " + name + ":")
			for k, ind := range c.VarIndex {
				w.term(c.Coefficient[k], varNames[ind])
			}
			if len(c.VarIndex) == 0 {
				w.term(0, dummyVar)
				needDummy = true
			}
			w.token(op)
			w.token(formatNumber(rhs))
			w.end()
		}
		switch {
		case b.Fixed():
			writeRow(rowNames[i], "=", b.Lower)
		case b.HasLower() && b.HasUpper():
			writeRow(rowNames[i]+"_lo", ">=", b.Lower)
			writeRow(rowNames[i]+"_hi", "<=", b.Upper)
		case b.HasLower():
			writeRow(rowNames[i], ">=", b.Lower)
		default:
			writeRow(rowNames[i], "<=", b.Upper)
		}
	}

	w.line("Bounds")
	var binaries, generals []string
	for i, v := range m.Variables {
		b := v.Bounds()
		if v.IsInteger {
			if v.LowerBound == 0 && v.UpperBound == 1 {
				binaries = append(binaries, varNames[i])
				continue
			}
			if v.IsBinary() {
				binaries = append(binaries, varNames[i])
			} else {
				generals = append(generals, varNames[i])
			}
		}
		switch {
		case b.Fixed():
			w.line(fmt.Sprintf(" %s = %s", varNames[i], formatNumber(b.Lower)))
		case !b.HasLower() && !b.HasUpper():
			w.line(fmt.Sprintf(" %s free", varNames[i]))
		default:
			w.line(fmt.Sprintf(" %s <= %s <= %s", formatNumber(b.Lower), varNames[i], formatNumber(b.Upper)))
		}
	}
	if needDummy {
		w.line(fmt.Sprintf(" %s = 0", dummyVar))
	}
	if len(binaries) > 0 {
		w.line("Binaries")
		for _, n := range binaries {
			w.line(" " + n)
		}
	}
	if len(generals) > 0 {
		w.line("Generals")
		for _, n := range generals {
			w.line(" " + n)
		}
	}
	w.line("End")
	return w.String(), nil
}

// ExportModelAsLpFormat exports the current problem in CPLEX LP format.
func (p *Problem) ExportModelAsLpFormat(options ExportOptions) (string, error) {
	m, err := p.Model()
	if err != nil {
		return "", err
	}
	return ExportModelAsLpFormat(m, options)
}

func exportNames(n int, name func(int) string) ([]string, error) {
	names := make([]string, n)
	seen := make(map[string]int, n)
	for i := range names {
		names[i] = name(i)
		if j, ok := seen[names[i]]; ok {
			return nil, fmt.Errorf("name %q used by %d and %d: %w", names[i], j, i, ErrInvalidModel)
		}
		seen[names[i]] = i
	}
	return names, nil
}

func validateModel(m *Model) error {
	for i, v := range m.Variables {
		if math.IsNaN(v.LowerBound) || math.IsNaN(v.UpperBound) || math.IsNaN(v.ObjectiveCoefficient) {
			return fmt.Errorf("variable %d (%q) has NaN bound or coefficient: %w", i, v.Name, ErrInvalidModel)
		}
		if math.IsInf(v.ObjectiveCoefficient, 0) {
			return fmt.Errorf("variable %d (%q) has infinite objective coefficient: %w", i, v.Name, ErrInvalidModel)
		}
	}
	for i, c := range m.Constraints {
		if len(c.VarIndex) != len(c.Coefficient) {
			return fmt.Errorf("constraint %d (%q) has %d indices and %d coefficients: %w", i, c.Name, len(c.VarIndex), len(c.Coefficient), ErrInvalidModel)
		}
		if math.IsNaN(c.LowerBound) || math.IsNaN(c.UpperBound) {
			return fmt.Errorf("constraint %d (%q) has NaN bound: %w", i, c.Name, ErrInvalidModel)
		}
		for k, ind := range c.VarIndex {
			if ind < 0 || int(ind) >= len(m.Variables) {
				return fmt.Errorf("constraint %d (%q) references variable %d of %d: %w", i, c.Name, ind, len(m.Variables), ErrInvalidModel)
			}
			if coeff := c.Coefficient[k]; math.IsNaN(coeff) || math.IsInf(coeff, 0) {
				return fmt.Errorf("constraint %d (%q) has coefficient %v: %w", i, c.Name, coeff, ErrInvalidModel)
			}
		}
	}
	if h := m.SolutionHint; h != nil {
		if len(h.VarIndex) != len(h.VarValue) {
			return fmt.Errorf("solution hint has %d indices and %d values: %w", len(h.VarIndex), len(h.VarValue), ErrInvalidModel)
		}
		for _, ind := range h.VarIndex {
			if ind < 0 || int(ind) >= len(m.Variables) {
				return fmt.Errorf("solution hint references variable %d of %d: %w", ind, len(m.Variables), ErrInvalidModel)
			}
		}
	}
	return nil
}

func formatNumber(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func signed(v float64) string {
	if v < 0 || math.Signbit(v) {
		return "- " + formatNumber(-v)
	}
	return "+ " + formatNumber(v)
}

// lpWriter accumulates lines, wrapping a row onto continuation lines when it grows past
// maxLen.
type lpWriter struct {
	sb     strings.Builder
	cur    strings.Builder
	maxLen int
}

func (w *lpWriter) line(s string) {
	w.sb.WriteString(s)
	w.sb.WriteByte('\n')
}

func (w *lpWriter) start(s string) {
	w.cur.Reset()
	w.cur.WriteString(s)
}

func (w *lpWriter) token(s string) {
	if w.cur.Len()+1+len(s) > w.maxLen {
		w.line(w.cur.String())
		w.cur.Reset()
	}
	w.cur.WriteByte(' ')
	w.cur.WriteString(s)
}

func (w *lpWriter) term(coeff float64, name string) {
	w.token(signed(coeff) + " " + name)
}

func (w *lpWriter) end() {
	w.line(w.cur.String())
	w.cur.Reset()
}

func (w *lpWriter) String() string {
	return w.sb.String()
}
