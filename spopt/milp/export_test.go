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
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestProblem_ExportModelAsLpFormat(t *testing.T) {
	p, _, _, _ := demoProblem()

	got, err := p.ExportModelAsLpFormat(ExportOptions{})
	if err != nil {
		t.Fatalf("ExportModelAsLpFormat() returned with unexpected error %v", err)
	}
	want := `\ demo
Minimize
 obj: + 3 y_0_ - 1 n + 2
Subject To
 c1: + 1 y_0_ + 2 n >= 1
 _C1_lo: + 1 n - 1.5 x2 >= -2
 _C1_hi: + 1 n - 1.5 x2 <= 3
 _C2: + 1 x2 = 0.5
Bounds
 0 <= n <= 5
 x2 free
Binaries
 y_0_
Generals
 n
End
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExportModelAsLpFormat() returned with unexpected diff (-want+got): %v", diff)
	}
}

func TestExportModelAsLpFormat_Obfuscate(t *testing.T) {
	p := NewProblem("secret", Maximize)
	x := p.NewBinaryVar().WithName("open")
	y := p.NewBinaryVar().WithName("close")
	p.AddLinearConstraint(NewLinearExpr().AddSum(x, y), math.Inf(-1), 1).WithName("one")
	p.Maximize(NewLinearExpr().AddTerm(x, 2).AddTerm(y, 1))

	got, err := p.ExportModelAsLpFormat(ExportOptions{Obfuscate: true})
	if err != nil {
		t.Fatalf("ExportModelAsLpFormat() returned with unexpected error %v", err)
	}
	want := `Maximize
 obj: + 2 V0 + 1 V1
Subject To
 C0: + 1 V0 + 1 V1 <= 1
Bounds
Binaries
 V0
 V1
End
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExportModelAsLpFormat() returned with unexpected diff (-want+got): %v", diff)
	}
}

func TestExportModelAsLpFormat_EmptyRows(t *testing.T) {
	p := NewProblem("", Minimize)
	x := p.NewContinuousVar(0, 3)
	p.AddLinearConstraint(NewLinearExpr(), 0, 0)
	p.AddLinearConstraint(x, math.Inf(-1), math.Inf(1))

	got, err := p.ExportModelAsLpFormat(ExportOptions{})
	if err != nil {
		t.Fatalf("ExportModelAsLpFormat() returned with unexpected error %v", err)
	}
	want := `Minimize
 obj: + 0 __dummy
Subject To
 _C0: + 0 __dummy = 0
Bounds
 0 <= x0 <= 3
 __dummy = 0
End
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExportModelAsLpFormat() returned with unexpected diff (-want+got): %v", diff)
	}
}

func TestExportModelAsLpFormat_LineWrapping(t *testing.T) {
	p := NewProblem("wide", Minimize)
	obj := NewLinearExpr()
	for i := 0; i < 200; i++ {
		obj.AddTerm(p.NewBinaryVar(), float64(i+1))
	}
	p.Minimize(obj)

	got, err := p.ExportModelAsLpFormat(ExportOptions{MaxLineLength: 80})
	if err != nil {
		t.Fatalf("ExportModelAsLpFormat() returned with unexpected error %v", err)
	}
	for _, line := range strings.Split(got, "\n") {
		if len(line) > 80 {
			t.Errorf("ExportModelAsLpFormat() wrote line of %d characters: %q", len(line), line)
		}
	}
	if !strings.Contains(got, "+ 200 x199") {
		t.Errorf("ExportModelAsLpFormat() lost the last objective term")
	}
}

func TestExportModelAsLpFormat_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		model *Model
	}{
		{
			name: "DuplicateVariableNames",
			model: &Model{Variables: []VariableSpec{
				{Name: "a", UpperBound: 1},
				{Name: "a", UpperBound: 1},
			}},
		},
		{
			name: "NaNBound",
			model: &Model{Variables: []VariableSpec{
				{LowerBound: math.NaN(), UpperBound: 1},
			}},
		},
		{
			name: "IndexOutOfRange",
			model: &Model{
				Variables:   []VariableSpec{{UpperBound: 1}},
				Constraints: []ConstraintSpec{{VarIndex: []int32{3}, Coefficient: []float64{1}, UpperBound: 1}},
			},
		},
		{
			name: "MissingCoefficient",
			model: &Model{
				Variables:   []VariableSpec{{UpperBound: 1}},
				Constraints: []ConstraintSpec{{VarIndex: []int32{0}, UpperBound: 1}},
			},
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			_, err := ExportModelAsLpFormat(test.model, ExportOptions{})
			if !errors.Is(err, ErrInvalidModel) {
				t.Errorf("ExportModelAsLpFormat() returned with unexpected error %v; want ErrInvalidModel", err)
			}
		})
	}
}

func TestMarshalMPModel(t *testing.T) {
	p, x, _, _ := demoProblem()
	p.SetHint(Hint{x: 1})
	want, err := p.Model()
	if err != nil {
		t.Fatalf("Model() returned with unexpected error %v", err)
	}

	b, err := MarshalMPModel(want)
	if err != nil {
		t.Fatalf("MarshalMPModel() returned with unexpected error %v", err)
	}
	got, err := UnmarshalMPModel(b)
	if err != nil {
		t.Fatalf("UnmarshalMPModel() returned with unexpected error %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UnmarshalMPModel(MarshalMPModel()) returned with unexpected diff (-want+got): %v", diff)
	}
}

func TestUnmarshalMPModel_UnpackedFields(t *testing.T) {
	var v []byte
	v = protowire.AppendTag(v, varIsInteger, protowire.VarintType)
	v = protowire.AppendVarint(v, 1)
	v = protowire.AppendTag(v, varName, protowire.BytesType)
	v = protowire.AppendString(v, "a")
	// Unknown field 99 is skipped.
	v = protowire.AppendTag(v, 99, protowire.VarintType)
	v = protowire.AppendVarint(v, 7)

	var c []byte
	c = appendDouble(c, constrUpperBound, 4)
	for _, ind := range []uint64{0, 0} {
		c = protowire.AppendTag(c, constrVarIndex, protowire.VarintType)
		c = protowire.AppendVarint(c, ind)
	}
	for _, coeff := range []float64{1, 2} {
		c = appendDouble(c, constrCoefficient, coeff)
	}

	var b []byte
	b = protowire.AppendTag(b, modelVariable, protowire.BytesType)
	b = protowire.AppendBytes(b, v)
	b = protowire.AppendTag(b, modelConstraint, protowire.BytesType)
	b = protowire.AppendBytes(b, c)
	b = protowire.AppendTag(b, modelMaximize, protowire.VarintType)
	b = protowire.AppendVarint(b, 1)

	got, err := UnmarshalMPModel(b)
	if err != nil {
		t.Fatalf("UnmarshalMPModel() returned with unexpected error %v", err)
	}
	want := &Model{
		Maximize: true,
		Variables: []VariableSpec{
			{Name: "a", LowerBound: math.Inf(-1), UpperBound: math.Inf(1), IsInteger: true},
		},
		Constraints: []ConstraintSpec{
			{VarIndex: []int32{0, 0}, Coefficient: []float64{1, 2}, LowerBound: math.Inf(-1), UpperBound: 4},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UnmarshalMPModel() returned with unexpected diff (-want+got): %v", diff)
	}
}

func TestUnmarshalMPModel_Errors(t *testing.T) {
	var badIndex []byte
	badIndex = protowire.AppendTag(badIndex, modelConstraint, protowire.BytesType)
	badIndex = protowire.AppendBytes(badIndex, appendPackedDouble(appendPackedInt32(nil, constrVarIndex, []int32{2}), constrCoefficient, []float64{1}))

	testCases := []struct {
		name string
		in   []byte
	}{
		{name: "Truncated", in: append(protowire.AppendTag(nil, modelVariable, protowire.BytesType), 10, 1)},
		{name: "BadIndex", in: badIndex},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			if _, err := UnmarshalMPModel(test.in); !errors.Is(err, ErrInvalidModel) {
				t.Errorf("UnmarshalMPModel() returned with unexpected error %v; want ErrInvalidModel", err)
			}
		})
	}
}
