// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package smtsynth

import (
	"bufio"
	"bytes"
	"fmt"

	"github.com/consensys/go-als/pkg/als/bitfun"
	"github.com/pkg/errors"
)

// Marshal encodes a model into a canonical line-based form.  The encoding is
// deterministic, hence two structurally equal models always produce identical
// bytes.
func (m *Model) Marshal() []byte {
	var buf bytes.Buffer
	//
	fmt.Fprintf(&buf, "%s %d %d %d %d\n", m.Kind, m.NumInputs, m.NumGates, m.Out, bit(m.OutP))
	fmt.Fprintf(&buf, "%s\n", bitfun.ToString(m.FunSpec))
	// Gate rows only; base rows are implied by the input count.
	for i := m.NumInputs; i < uint(len(m.S)); i++ {
		fmt.Fprintf(&buf, "g")
		//
		for c := range m.S[i] {
			fmt.Fprintf(&buf, " %d %d", m.S[i][c], bit(m.P[i][c]))
		}
		//
		fmt.Fprintf(&buf, "\n")
	}
	//
	return buf.Bytes()
}

// UnmarshalModel decodes a model previously encoded with Marshal.
func UnmarshalModel(data []byte) (Model, error) {
	var (
		scanner = bufio.NewScanner(bytes.NewReader(data))
		kind    string
		inputs  uint
		gates   uint
		out     uint
		outp    uint
	)
	//
	if !scanner.Scan() {
		return Model{}, errors.New("truncated model")
	}
	//
	if _, err := fmt.Sscanf(scanner.Text(), "%s %d %d %d %d", &kind, &inputs, &gates, &out, &outp); err != nil {
		return Model{}, errors.Wrap(err, "malformed model header")
	}
	//
	model, err := headerModel(kind, inputs)
	if err != nil {
		return Model{}, err
	}
	//
	if !scanner.Scan() {
		return Model{}, errors.New("truncated model")
	}
	//
	fun, err := bitfun.FromString(scanner.Text())
	if err != nil {
		return Model{}, err
	}
	//
	model.FunSpec = fun
	model.NumGates = gates
	model.Out = out
	model.OutP = outp != 0
	//
	for g := uint(0); g < gates; g++ {
		if !scanner.Scan() {
			return Model{}, errors.New("truncated model")
		}
		//
		s, p, err := scanGate(scanner.Text(), model.Kind.FanIn())
		if err != nil {
			return Model{}, err
		}
		//
		model.S = append(model.S, s)
		model.P = append(model.P, p)
	}
	//
	if model.Out >= uint(len(model.S)) {
		return Model{}, errors.Errorf("model output %d out of range", model.Out)
	}
	//
	return model, nil
}

func headerModel(kind string, inputs uint) (Model, error) {
	// The header records the input node count, which includes the reserved
	// constant-zero node on top of the variables.
	if inputs == 0 {
		return Model{}, errors.New("model header declares no input nodes")
	}
	//
	switch kind {
	case AIG.String():
		return baseModel(AIG, inputs-1), nil
	case MIG.String():
		return baseModel(MIG, inputs-1), nil
	default:
		return Model{}, errors.Errorf("unknown model kind %q", kind)
	}
}

func scanGate(line string, fanin uint) ([]uint, []bool, error) {
	var (
		s      = make([]uint, fanin)
		p      = make([]uint, fanin)
		fields = make([]any, 0, 2*fanin)
	)
	//
	for c := uint(0); c < fanin; c++ {
		fields = append(fields, &s[c], &p[c])
	}
	//
	format := "g" + repeat(" %d %d", fanin)
	//
	if _, err := fmt.Sscanf(line, format, fields...); err != nil {
		return nil, nil, errors.Wrap(err, "malformed gate row")
	}
	//
	polarity := make([]bool, fanin)
	for c := range p {
		polarity[c] = p[c] != 0
	}
	//
	return s, polarity, nil
}

func repeat(s string, n uint) string {
	var buf bytes.Buffer
	//
	for i := uint(0); i < n; i++ {
		buf.WriteString(s)
	}
	//
	return buf.String()
}

func bit(b bool) uint {
	if b {
		return 1
	}
	//
	return 0
}
