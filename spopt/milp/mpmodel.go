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

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of operations_research.MPModelProto and its nested messages.
const (
	modelMaximize        protowire.Number = 1
	modelObjectiveOffset protowire.Number = 2
	modelVariable        protowire.Number = 3
	modelConstraint      protowire.Number = 4
	modelName            protowire.Number = 5
	modelSolutionHint    protowire.Number = 6

	varLowerBound           protowire.Number = 1
	varUpperBound           protowire.Number = 2
	varObjectiveCoefficient protowire.Number = 3
	varIsInteger            protowire.Number = 4
	varName                 protowire.Number = 5

	constrLowerBound  protowire.Number = 2
	constrUpperBound  protowire.Number = 3
	constrName        protowire.Number = 4
	constrVarIndex    protowire.Number = 6
	constrCoefficient protowire.Number = 7

	hintVarIndex protowire.Number = 1
	hintVarValue protowire.Number = 2
)

// MarshalMPModel encodes the model in the wire format of operations_research.MPModelProto,
// readable by any OR-Tools linear solver.
func MarshalMPModel(m *Model) ([]byte, error) {
	if err := validateModel(m); err != nil {
		return nil, err
	}
	var b []byte
	if m.Maximize {
		b = protowire.AppendTag(b, modelMaximize, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	if m.ObjectiveOffset != 0 {
		b = appendDouble(b, modelObjectiveOffset, m.ObjectiveOffset)
	}
	for _, v := range m.Variables {
		var vb []byte
		vb = appendDouble(vb, varLowerBound, v.LowerBound)
		vb = appendDouble(vb, varUpperBound, v.UpperBound)
		if v.ObjectiveCoefficient != 0 {
			vb = appendDouble(vb, varObjectiveCoefficient, v.ObjectiveCoefficient)
		}
		if v.IsInteger {
			vb = protowire.AppendTag(vb, varIsInteger, protowire.VarintType)
			vb = protowire.AppendVarint(vb, 1)
		}
		if v.Name != "" {
			vb = protowire.AppendTag(vb, varName, protowire.BytesType)
			vb = protowire.AppendString(vb, v.Name)
		}
		b = protowire.AppendTag(b, modelVariable, protowire.BytesType)
		b = protowire.AppendBytes(b, vb)
	}
	for _, c := range m.Constraints {
		var cb []byte
		cb = appendDouble(cb, constrLowerBound, c.LowerBound)
		cb = appendDouble(cb, constrUpperBound, c.UpperBound)
		if c.Name != "" {
			cb = protowire.AppendTag(cb, constrName, protowire.BytesType)
			cb = protowire.AppendString(cb, c.Name)
		}
		cb = appendPackedInt32(cb, constrVarIndex, c.VarIndex)
		cb = appendPackedDouble(cb, constrCoefficient, c.Coefficient)
		b = protowire.AppendTag(b, modelConstraint, protowire.BytesType)
		b = protowire.AppendBytes(b, cb)
	}
	if m.Name != "" {
		b = protowire.AppendTag(b, modelName, protowire.BytesType)
		b = protowire.AppendString(b, m.Name)
	}
	if h := m.SolutionHint; h != nil && len(h.VarIndex) > 0 {
		var hb []byte
		hb = appendPackedInt32(hb, hintVarIndex, h.VarIndex)
		hb = appendPackedDouble(hb, hintVarValue, h.VarValue)
		b = protowire.AppendTag(b, modelSolutionHint, protowire.BytesType)
		b = protowire.AppendBytes(b, hb)
	}
	return b, nil
}

// UnmarshalMPModel decodes operations_research.MPModelProto wire bytes. Both packed and
// unpacked repeated fields are accepted and unknown fields are skipped.
func UnmarshalMPModel(b []byte) (*Model, error) {
	m := &Model{}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == modelMaximize && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Maximize = v != 0
			return n, nil
		case num == modelObjectiveOffset && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			m.ObjectiveOffset = math.Float64frombits(v)
			return n, nil
		case num == modelName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			m.Name = v
			return n, nil
		case num == modelVariable && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			vs, err := unmarshalVariable(v)
			if err != nil {
				return 0, fmt.Errorf("variable %d: %w", len(m.Variables), err)
			}
			m.Variables = append(m.Variables, vs)
			return n, nil
		case num == modelConstraint && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			cs, err := unmarshalConstraint(v)
			if err != nil {
				return 0, fmt.Errorf("constraint %d: %w", len(m.Constraints), err)
			}
			m.Constraints = append(m.Constraints, cs)
			return n, nil
		case num == modelSolutionHint && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			h := &SolutionHint{}
			err := consumeFields(v, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case hintVarIndex:
					return consumeInt32s(typ, b, &h.VarIndex)
				case hintVarValue:
					return consumeDoubles(typ, b, &h.VarValue)
				}
				return protowire.ConsumeFieldValue(num, typ, b), nil
			})
			if err != nil {
				return 0, fmt.Errorf("solution hint: %w", err)
			}
			m.SolutionHint = h
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	if err != nil {
		return nil, err
	}
	if err := validateModel(m); err != nil {
		return nil, err
	}
	return m, nil
}

func unmarshalVariable(b []byte) (VariableSpec, error) {
	v := VariableSpec{LowerBound: math.Inf(-1), UpperBound: math.Inf(1)}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == varLowerBound && typ == protowire.Fixed64Type:
			return consumeDouble(b, &v.LowerBound), nil
		case num == varUpperBound && typ == protowire.Fixed64Type:
			return consumeDouble(b, &v.UpperBound), nil
		case num == varObjectiveCoefficient && typ == protowire.Fixed64Type:
			return consumeDouble(b, &v.ObjectiveCoefficient), nil
		case num == varIsInteger && typ == protowire.VarintType:
			x, n := protowire.ConsumeVarint(b)
			v.IsInteger = x != 0
			return n, nil
		case num == varName && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			v.Name = s
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	return v, err
}

func unmarshalConstraint(b []byte) (ConstraintSpec, error) {
	c := ConstraintSpec{LowerBound: math.Inf(-1), UpperBound: math.Inf(1)}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == constrLowerBound && typ == protowire.Fixed64Type:
			return consumeDouble(b, &c.LowerBound), nil
		case num == constrUpperBound && typ == protowire.Fixed64Type:
			return consumeDouble(b, &c.UpperBound), nil
		case num == constrName && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			c.Name = s
			return n, nil
		case num == constrVarIndex:
			return consumeInt32s(typ, b, &c.VarIndex)
		case num == constrCoefficient:
			return consumeDoubles(typ, b, &c.Coefficient)
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	return c, err
}

// consumeFields walks the fields of a message, calling `field` with the bytes following
// each tag. `field` returns the number of bytes it consumed, or a negative protowire error
// code.
func consumeFields(b []byte, field func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%v: %w", protowire.ParseError(n), ErrInvalidModel)
		}
		b = b[n:]
		m, err := field(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			return fmt.Errorf("field %d: %v: %w", num, protowire.ParseError(m), ErrInvalidModel)
		}
		b = b[m:]
	}
	return nil
}

func consumeDouble(b []byte, out *float64) int {
	v, n := protowire.ConsumeFixed64(b)
	if n >= 0 {
		*out = math.Float64frombits(v)
	}
	return n
}

func consumeInt32s(typ protowire.Type, b []byte, out *[]int32) (int, error) {
	switch typ {
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(b)
		if n >= 0 {
			*out = append(*out, int32(v))
		}
		return n, nil
	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		for len(packed) > 0 {
			v, m := protowire.ConsumeVarint(packed)
			if m < 0 {
				return m, nil
			}
			*out = append(*out, int32(v))
			packed = packed[m:]
		}
		return n, nil
	}
	return 0, fmt.Errorf("int32 field with wire type %v: %w", typ, ErrInvalidModel)
}

func consumeDoubles(typ protowire.Type, b []byte, out *[]float64) (int, error) {
	switch typ {
	case protowire.Fixed64Type:
		var v float64
		n := consumeDouble(b, &v)
		if n >= 0 {
			*out = append(*out, v)
		}
		return n, nil
	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		if len(packed)%8 != 0 {
			return 0, fmt.Errorf("packed double field of %d bytes: %w", len(packed), ErrInvalidModel)
		}
		for ; len(packed) > 0; packed = packed[8:] {
			v, _ := protowire.ConsumeFixed64(packed)
			*out = append(*out, math.Float64frombits(v))
		}
		return n, nil
	}
	return 0, fmt.Errorf("double field with wire type %v: %w", typ, ErrInvalidModel)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendPackedInt32(b []byte, num protowire.Number, vs []int32) []byte {
	if len(vs) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(int64(v)))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

func appendPackedDouble(b []byte, num protowire.Number, vs []float64) []byte {
	if len(vs) == 0 {
		return b
	}
	packed := make([]byte, 0, 8*len(vs))
	for _, v := range vs {
		packed = protowire.AppendFixed64(packed, math.Float64bits(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}
